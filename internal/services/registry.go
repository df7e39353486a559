package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/squaresclub/gatedb/internal/models"
)

// IsSubscriber reports whether a subscription payment covering the
// period exists for the person.
func IsSubscriber(gdb *gorm.DB, personID uint, periodSlug string) (bool, error) {
	var n int64
	err := gdb.Model(&models.Payment{}).
		Joins("JOIN payment_periods ON payment_periods.payment_id = payments.id").
		Where("payments.kind = ? AND payments.person_id = ? AND payment_periods.period_slug = ?",
			models.PaymentKindSub, personID, periodSlug).
		Count(&n).Error
	return n > 0, err
}

// SubscriberSet returns the person IDs holding a subscription for the
// period, for annotating a whole roster in one query.
func SubscriberSet(gdb *gorm.DB, periodSlug string) (map[uint]bool, error) {
	var ids []uint
	err := gdb.Model(&models.Payment{}).
		Joins("JOIN payment_periods ON payment_periods.payment_id = payments.id").
		Where("payments.kind = ? AND payment_periods.period_slug = ?",
			models.PaymentKindSub, periodSlug).
		Pluck("payments.person_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// ValidPeriods returns periods still running as of the reference date,
// ordered by start date then slug.
func ValidPeriods(gdb *gorm.DB, asOf time.Time) ([]models.SubscriptionPeriod, error) {
	var periods []models.SubscriptionPeriod
	err := gdb.Where("end_date >= ?", asOf).
		Order("start_date, slug").
		Find(&periods).Error
	return periods, err
}

// Roster lists people for the gate sheet, frequent attendees first then
// by name. The ordering is a UX contract for door staff.
func Roster(gdb *gorm.DB, excludeStatuses, excludeFrequencies []string) ([]models.Person, error) {
	q := gdb.Model(&models.Person{}).
		Joins("JOIN person_frequencies ON person_frequencies.slug = people.frequency_slug").
		Order("person_frequencies.rank, people.name").
		Preload("FeeCat").
		Preload("Frequency")
	if len(excludeStatuses) > 0 {
		q = q.Where("people.status_slug NOT IN ?", excludeStatuses)
	}
	if len(excludeFrequencies) > 0 {
		q = q.Where("people.frequency_slug NOT IN ?", excludeFrequencies)
	}
	var people []models.Person
	err := q.Find(&people).Error
	return people, err
}
