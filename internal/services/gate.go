package services

import (
	"errors"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/squaresclub/gatedb/internal/models"
)

// SigninRequest carries the raw form fields of one gate submission.
// Everything is a string: parsing and validation happen in
// ProcessSignin, in a fixed order, inside one transaction.
type SigninRequest struct {
	Person  string
	Dance   string
	Present string
	Paid    string
	Notes   string

	// Only consulted when Paid is true.
	PaidAmount  string
	PaidMethod  string
	PaidFor     string   // "dance" | "sub"
	ForDance    string   // optional, defaults to Dance
	PaidPeriods []string // required when PaidFor == "sub"
}

type SigninResult struct {
	PaymentID  uint
	AttendeeID uint
	Created    bool // attendee newly created (vs existing row reused)
}

// ProcessSignin handles one check-in/payment submission. Order matters
// for partial-failure behavior: references first, booleans second,
// payment third, attendance last, so the attendance record can point
// at the payment created in the same request. The whole pipeline runs
// in one transaction; any validation failure rolls back everything.
func ProcessSignin(gdb *gorm.DB, req SigninRequest) (SigninResult, error) {
	var res SigninResult
	err := gdb.Transaction(func(tx *gorm.DB) error {
		// 1. Resolve references.
		person, err := resolvePerson(tx, "person", req.Person)
		if err != nil {
			return err
		}
		dance, err := resolveDance(tx, "dance", req.Dance)
		if err != nil {
			return err
		}

		// 2. Validate booleans.
		present, err := parseBoolField("present", req.Present)
		if err != nil {
			return err
		}
		paid, err := parseBoolField("paid", req.Paid)
		if err != nil {
			return err
		}
		if strings.TrimSpace(req.Notes) != "" && !paid {
			return reqErr(ErrDomain, "notes are only accepted with a payment")
		}

		// 3. Payment sub-fields, then exactly one payment row.
		var pay *models.Payment
		if paid {
			pay, err = createSigninPayment(tx, person, dance, req)
			if err != nil {
				return err
			}
			res.PaymentID = pay.ID
		}

		// 4. Attendance, linked to the just-created payment if any.
		if present {
			var payID *uint
			if pay != nil {
				payID = &pay.ID
			}
			att, created, err := MarkPresentTx(tx, person.ID, dance.ID, payID)
			if err != nil {
				return err
			}
			res.AttendeeID = att.ID
			res.Created = created
		}
		return nil
	})
	if err != nil {
		return SigninResult{}, err
	}
	return res, nil
}

func createSigninPayment(tx *gorm.DB, person *models.Person, dance *models.Dance,
	req SigninRequest) (*models.Payment, error) {

	if strings.TrimSpace(req.PaidAmount) == "" {
		return nil, reqErr(ErrMissingField, "paid_amount is required")
	}
	amount, err := decimal.NewFromString(strings.TrimSpace(req.PaidAmount))
	if err != nil {
		return nil, reqErr(ErrUnparseable, "paid_amount %q is not a valid amount", req.PaidAmount)
	}

	if req.PaidMethod == "" {
		return nil, reqErr(ErrMissingField, "paid_method is required")
	}
	var method models.PaymentMethod
	if err := tx.First(&method, "slug = ?", req.PaidMethod).Error; err != nil {
		return nil, reqErr(ErrBadReference, "payment method %q not found", req.PaidMethod)
	}
	if !method.InGate {
		return nil, reqErr(ErrDomain, "payment method %q is not usable at the gate", method.Slug)
	}

	switch req.PaidFor {
	case "dance":
		forDance := dance
		if req.ForDance != "" {
			forDance, err = resolveDance(tx, "for_dance", req.ForDance)
			if err != nil {
				return nil, err
			}
		}
		return RecordDancePaymentTx(tx, person, dance, forDance, &method, amount, req.Notes)
	case "sub":
		if len(req.PaidPeriods) == 0 {
			return nil, reqErr(ErrDomain, "subscription payment needs at least one period")
		}
		periods := make([]models.SubscriptionPeriod, 0, len(req.PaidPeriods))
		for _, slug := range req.PaidPeriods {
			var period models.SubscriptionPeriod
			if err := tx.First(&period, "slug = ?", slug).Error; err != nil {
				return nil, reqErr(ErrBadReference, "subscription period %q not found", slug)
			}
			periods = append(periods, period)
		}
		return RecordSubscriptionPaymentTx(tx, person, dance, &method, amount, req.Notes, periods)
	case "":
		return nil, reqErr(ErrMissingField, "paid_for is required")
	default:
		return nil, reqErr(ErrDomain, "unknown paid_for value %q", req.PaidFor)
	}
}

func resolvePerson(tx *gorm.DB, field, raw string) (*models.Person, error) {
	id, err := parseIDField(field, raw)
	if err != nil {
		return nil, err
	}
	var person models.Person
	if err := tx.First(&person, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reqErr(ErrBadReference, "person %d not found", id)
		}
		return nil, err
	}
	return &person, nil
}

func resolveDance(tx *gorm.DB, field, raw string) (*models.Dance, error) {
	id, err := parseIDField(field, raw)
	if err != nil {
		return nil, err
	}
	var dance models.Dance
	if err := tx.First(&dance, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reqErr(ErrBadReference, "dance %d not found", id)
		}
		return nil, err
	}
	return &dance, nil
}

func parseIDField(field, raw string) (uint, error) {
	if raw == "" {
		return 0, reqErr(ErrMissingField, "%s is required", field)
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, reqErr(ErrUnparseable, "%s %q is not a valid id", field, raw)
	}
	return uint(id), nil
}

func parseBoolField(field, raw string) (bool, error) {
	switch raw {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "":
		return false, reqErr(ErrMissingField, "%s is required", field)
	}
	return false, reqErr(ErrUnparseable, "%s must be true or false, got %q", field, raw)
}
