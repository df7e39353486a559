package services

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/squaresclub/gatedb/internal/models"
)

// The payment ledger is append-only: corrections are undo + re-create,
// never in-place edits.

// RecordDancePaymentTx creates one single-dance payment. atDance is
// where the money changed hands (nil for online/office payments),
// forDance the dance being paid for.
func RecordDancePaymentTx(tx *gorm.DB, person *models.Person, atDance, forDance *models.Dance,
	method *models.PaymentMethod, amount decimal.Decimal, notes string) (*models.Payment, error) {

	pay := models.Payment{
		Kind:       models.PaymentKindDance,
		PersonID:   person.ID,
		Time:       time.Now(),
		MethodSlug: method.Slug,
		Amount:     amount,
		FeeCatSlug: &person.FeeCatSlug,
		Notes:      notes,
		ForDanceID: &forDance.ID,
	}
	if atDance != nil {
		pay.AtDanceID = &atDance.ID
	}
	if err := tx.Create(&pay).Error; err != nil {
		return nil, err
	}
	return &pay, nil
}

// RecordSubscriptionPaymentTx creates one payment covering one or more
// periods atomically (one row plus a join row per period).
func RecordSubscriptionPaymentTx(tx *gorm.DB, person *models.Person, atDance *models.Dance,
	method *models.PaymentMethod, amount decimal.Decimal, notes string,
	periods []models.SubscriptionPeriod) (*models.Payment, error) {

	if len(periods) == 0 {
		return nil, reqErr(ErrDomain, "subscription payment covers no periods")
	}
	pay := models.Payment{
		Kind:       models.PaymentKindSub,
		PersonID:   person.ID,
		Time:       time.Now(),
		MethodSlug: method.Slug,
		Amount:     amount,
		FeeCatSlug: &person.FeeCatSlug,
		Notes:      notes,
	}
	if atDance != nil {
		pay.AtDanceID = &atDance.ID
	}
	if err := tx.Create(&pay).Error; err != nil {
		return nil, err
	}
	for _, period := range periods {
		link := models.PaymentPeriod{PaymentID: pay.ID, PeriodSlug: period.Slug}
		if err := tx.Create(&link).Error; err != nil {
			return nil, err
		}
	}
	return &pay, nil
}
