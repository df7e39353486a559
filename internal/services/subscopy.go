package services

import (
	"fmt"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/squaresclub/gatedb/internal/models"
)

// Slug of the payment method recorded for settled online subscriptions.
const onlineMethodSlug = "online"

// SubscriptionSettler reconciles online subscription purchases into the
// payment ledger: each subscription line item becomes a subscription
// payment covering its period. Anything it can't resolve (no person on
// file, unknown period) routes the transaction to REVIEW for an
// operator instead of guessing.
type SubscriptionSettler struct{}

func (SubscriptionSettler) Name() string { return "sub" }

func (SubscriptionSettler) TrySettle(tx *gorm.DB, txn *models.Transaction) (bool, error) {
	var items []models.LineItem
	if err := tx.Where("transaction_id = ? AND kind = ?", txn.ID, models.LineItemKindSub).
		Find(&items).Error; err != nil {
		return false, err
	}
	if len(items) == 0 {
		return true, nil
	}

	var method models.PaymentMethod
	if err := tx.First(&method, "slug = ?", onlineMethodSlug).Error; err != nil {
		txn.AdminNotes += fmt.Sprintf("No %q payment method configured\n", onlineMethodSlug)
		return false, nil
	}

	ok := true
	for _, item := range items {
		if item.SubPersonID == nil {
			txn.AdminNotes += fmt.Sprintf("Subscription for %q has no person on file\n",
				item.SubscriberName)
			ok = false
			continue
		}
		var person models.Person
		if err := tx.First(&person, *item.SubPersonID).Error; err != nil {
			txn.AdminNotes += fmt.Sprintf("Subscription for %q: person %d not found\n",
				item.SubscriberName, *item.SubPersonID)
			ok = false
			continue
		}
		if item.SubPeriodSlug == nil {
			txn.AdminNotes += fmt.Sprintf("Subscription for %q has no period\n",
				item.SubscriberName)
			ok = false
			continue
		}
		var period models.SubscriptionPeriod
		if err := tx.First(&period, "slug = ?", *item.SubPeriodSlug).Error; err != nil {
			txn.AdminNotes += fmt.Sprintf("Subscription for %q: period %q not found\n",
				item.SubscriberName, *item.SubPeriodSlug)
			ok = false
			continue
		}

		notes := fmt.Sprintf("online payment %s", txn.RefNumber)
		if _, err := RecordSubscriptionPaymentTx(tx, &person, nil, &method,
			item.Amount, notes, []models.SubscriptionPeriod{period}); err != nil {
			return false, err
		}
	}
	return ok, nil
}

// CopySubscriptions grants everyone subscribed in one period a
// zero-amount subscription in another, for season rollover comps.
// Returns how many payments were created.
func CopySubscriptions(gdb *gorm.DB, fromSlug, toSlug, comment string) (int, error) {
	if comment == "" {
		comment = fmt.Sprintf("bulk sub copy from %s to %s", fromSlug, toSlug)
	}
	count := 0
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var from, to models.SubscriptionPeriod
		if err := tx.First(&from, "slug = ?", fromSlug).Error; err != nil {
			return reqErr(ErrBadReference, "subscription period %q not found", fromSlug)
		}
		if err := tx.First(&to, "slug = ?", toSlug).Error; err != nil {
			return reqErr(ErrBadReference, "subscription period %q not found", toSlug)
		}
		var method models.PaymentMethod
		if err := tx.First(&method, "slug = ?", "cash").Error; err != nil {
			return reqErr(ErrBadReference, "cash payment method not found")
		}

		var personIDs []uint
		if err := tx.Model(&models.Payment{}).Distinct("payments.person_id").
			Joins("JOIN payment_periods ON payment_periods.payment_id = payments.id").
			Where("payments.kind = ? AND payment_periods.period_slug = ?",
				models.PaymentKindSub, from.Slug).
			Pluck("payments.person_id", &personIDs).Error; err != nil {
			return err
		}

		for _, personID := range personIDs {
			var person models.Person
			if err := tx.First(&person, personID).Error; err != nil {
				return err
			}
			if _, err := RecordSubscriptionPaymentTx(tx, &person, nil, &method,
				decimal.Zero, comment, []models.SubscriptionPeriod{to}); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}
