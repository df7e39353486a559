package services

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/squaresclub/gatedb/internal/models"
)

type PeriodPriceInput struct {
	FeeCatSlug string
	Low        int
	High       int
}

type NewPeriodInput struct {
	Slug      string
	Name      string
	StartDate time.Time
	EndDate   time.Time
	DanceTime string // "20:00", start time for each generated dance
	SchemeID  uint
	Prices    []PeriodPriceInput
}

// CreatePeriod creates a subscription period with its per-category
// prices and generates one dance per week from start to end, all
// attached to the given price scheme. The period's date range is
// immutable once the dances exist.
func CreatePeriod(gdb *gorm.DB, in NewPeriodInput) (*models.SubscriptionPeriod, int, error) {
	if strings.TrimSpace(in.Slug) == "" || strings.TrimSpace(in.Name) == "" {
		return nil, 0, reqErr(ErrMissingField, "period slug and name are required")
	}
	if !in.StartDate.Before(in.EndDate) {
		return nil, 0, reqErr(ErrDomain, "start date must be before end date")
	}
	clock, err := time.Parse("15:04", in.DanceTime)
	if err != nil {
		return nil, 0, reqErr(ErrUnparseable, "dance time %q is not HH:MM", in.DanceTime)
	}

	period := models.SubscriptionPeriod{
		Slug:      in.Slug,
		Name:      in.Name,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
	}
	dances := 0
	err = gdb.Transaction(func(tx *gorm.DB) error {
		var scheme models.DancePriceScheme
		if err := tx.First(&scheme, in.SchemeID).Error; err != nil {
			return reqErr(ErrBadReference, "price scheme %d not found", in.SchemeID)
		}
		var existing models.SubscriptionPeriod
		if tx.First(&existing, "slug = ?", in.Slug).Error == nil {
			return reqErr(ErrConflict, "period %q already exists", in.Slug)
		}
		if err := tx.Create(&period).Error; err != nil {
			return err
		}
		for _, price := range in.Prices {
			row := models.SubscriptionPeriodPrice{
				PeriodSlug: period.Slug,
				FeeCatSlug: price.FeeCatSlug,
				Low:        price.Low,
				High:       price.High,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		for day := in.StartDate; !day.After(in.EndDate); day = day.AddDate(0, 0, 7) {
			dance := models.Dance{
				Time: time.Date(day.Year(), day.Month(), day.Day(),
					clock.Hour(), clock.Minute(), 0, 0, day.Location()),
				PeriodSlug:    &period.Slug,
				PriceSchemeID: scheme.ID,
			}
			if err := tx.Create(&dance).Error; err != nil {
				return err
			}
			dances++
		}
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return &period, dances, nil
}

// CurrentDances lists dances belonging to still-valid periods, oldest
// first, for the gate index.
func CurrentDances(gdb *gorm.DB, asOf time.Time) ([]models.Dance, error) {
	periods, err := ValidPeriods(gdb, asOf)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, len(periods))
	for i, period := range periods {
		slugs[i] = period.Slug
	}
	var dances []models.Dance
	if len(slugs) == 0 {
		return dances, nil
	}
	err = gdb.Where("period_slug IN ?", slugs).
		Order("time").
		Preload("Period").
		Find(&dances).Error
	return dances, err
}
