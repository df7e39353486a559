package services

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/squaresclub/gatedb/internal/models"
)

// MarkPresent records a person at a dance. Idempotent: a duplicate
// returns the existing row with created=false, never an error. If the
// existing row has no payment and one is supplied now, the link is
// attached.
func MarkPresent(gdb *gorm.DB, personID, danceID uint, paymentID *uint) (models.Attendee, bool, error) {
	var att models.Attendee
	var created bool
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var err error
		att, created, err = MarkPresentTx(tx, personID, danceID, paymentID)
		return err
	})
	return att, created, err
}

// MarkPresentTx does the same as MarkPresent but inside an existing TX,
// so the read-then-write stays race-free under the caller's isolation.
func MarkPresentTx(tx *gorm.DB, personID, danceID uint, paymentID *uint) (models.Attendee, bool, error) {
	var att models.Attendee
	err := tx.Where("person_id = ? AND dance_id = ?", personID, danceID).First(&att).Error
	if err == nil {
		if att.PaymentID == nil && paymentID != nil {
			att.PaymentID = paymentID
			if err := tx.Save(&att).Error; err != nil {
				return att, false, err
			}
		}
		return att, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return att, false, err
	}

	att = models.Attendee{
		PersonID:  personID,
		DanceID:   danceID,
		Time:      time.Now(),
		PaymentID: paymentID,
	}
	if err := tx.Create(&att).Error; err != nil {
		return att, false, err
	}
	return att, true, nil
}

// Undo deletes an attendee and/or a payment as one atomic compensation
// step. It refuses to run when neither id is given, when the attendee's
// stored payment link doesn't match the supplied payment (stale
// client), or when deleting the payment would leave another attendee's
// link dangling.
func Undo(gdb *gorm.DB, attendeeID, paymentID uint) error {
	if attendeeID == 0 && paymentID == 0 {
		return reqErr(ErrDomain, "nothing to undo: no attendee or payment given")
	}
	return gdb.Transaction(func(tx *gorm.DB) error {
		if attendeeID != 0 {
			var att models.Attendee
			if err := tx.First(&att, attendeeID).Error; err != nil {
				return reqErr(ErrBadReference, "attendee %d not found", attendeeID)
			}
			if paymentID != 0 && (att.PaymentID == nil || *att.PaymentID != paymentID) {
				return reqErr(ErrConflict,
					"attendee %d is not linked to payment %d", attendeeID, paymentID)
			}
			if err := tx.Delete(&att).Error; err != nil {
				return err
			}
		}
		if paymentID != 0 {
			var pay models.Payment
			if err := tx.First(&pay, paymentID).Error; err != nil {
				return reqErr(ErrBadReference, "payment %d not found", paymentID)
			}
			var n int64
			if err := tx.Model(&models.Attendee{}).
				Where("payment_id = ?", paymentID).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return reqErr(ErrConflict,
					"payment %d is still referenced by an attendee", paymentID)
			}
			if err := tx.Where("payment_id = ?", paymentID).
				Delete(&models.PaymentPeriod{}).Error; err != nil {
				return err
			}
			if err := tx.Delete(&pay).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SigninStatus is one roster row's classification for a dance.
type SigninStatus struct {
	Present    bool
	Paid       bool // same-dance payment, covering sub, or free admission
	Subscriber bool
}

// DanceSigninStatus classifies every given person for one dance in a
// fixed number of queries (the gate page renders hundreds of rows).
func DanceSigninStatus(gdb *gorm.DB, dance *models.Dance, people []models.Person) (map[uint]SigninStatus, error) {
	var attendees []models.Attendee
	if err := gdb.Where("dance_id = ?", dance.ID).Find(&attendees).Error; err != nil {
		return nil, err
	}
	present := make(map[uint]bool, len(attendees))
	for _, att := range attendees {
		present[att.PersonID] = true
	}

	var payerIDs []uint
	if err := gdb.Model(&models.Payment{}).
		Where("kind = ? AND for_dance_id = ?", models.PaymentKindDance, dance.ID).
		Pluck("person_id", &payerIDs).Error; err != nil {
		return nil, err
	}
	paidDance := make(map[uint]bool, len(payerIDs))
	for _, id := range payerIDs {
		paidDance[id] = true
	}

	subscribers := map[uint]bool{}
	if dance.PeriodSlug != nil {
		var err error
		subscribers, err = SubscriberSet(gdb, *dance.PeriodSlug)
		if err != nil {
			return nil, err
		}
	}

	var freeCats []string
	if err := gdb.Model(&models.FeeCategory{}).
		Where("free_dance = ?", true).Pluck("slug", &freeCats).Error; err != nil {
		return nil, err
	}
	free := make(map[string]bool, len(freeCats))
	for _, slug := range freeCats {
		free[slug] = true
	}

	out := make(map[uint]SigninStatus, len(people))
	for _, person := range people {
		out[person.ID] = SigninStatus{
			Present:    present[person.ID],
			Paid:       paidDance[person.ID] || subscribers[person.ID] || free[person.FeeCatSlug],
			Subscriber: subscribers[person.ID],
		}
	}
	return out, nil
}

// AttendeesOwing returns attendees of a dance with no satisfying
// payment condition, for the books view.
func AttendeesOwing(gdb *gorm.DB, danceID uint) ([]models.Attendee, error) {
	var dance models.Dance
	if err := gdb.First(&dance, danceID).Error; err != nil {
		return nil, err
	}
	var attendees []models.Attendee
	if err := gdb.Where("dance_id = ?", danceID).
		Preload("Person").Preload("Person.FeeCat").
		Find(&attendees).Error; err != nil {
		return nil, err
	}

	people := make([]models.Person, 0, len(attendees))
	for _, att := range attendees {
		people = append(people, att.Person)
	}
	status, err := DanceSigninStatus(gdb, &dance, people)
	if err != nil {
		return nil, err
	}

	var owing []models.Attendee
	for _, att := range attendees {
		if !status[att.PersonID].Paid {
			owing = append(owing, att)
		}
	}
	return owing, nil
}
