package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// FormatPriceRange renders "$5" when the range collapses, else "$5-8".
func FormatPriceRange(low, high int) string {
	if low == high {
		return fmt.Sprintf("$%d", low)
	}
	return fmt.Sprintf("$%d-%d", low, high)
}

// SubscriptionPeriod is a season-long pass covering every dance in its
// date range. The range is immutable once dances have been generated.
type SubscriptionPeriod struct {
	Slug      string `gorm:"primaryKey"`
	Name      string
	StartDate time.Time
	EndDate   time.Time
}

type SubscriptionPeriodPrice struct {
	ID         uint   `gorm:"primaryKey"`
	PeriodSlug string `gorm:"index:idx_subprice_period_cat,unique"`
	FeeCatSlug string `gorm:"index:idx_subprice_period_cat,unique"`
	Low        int
	High       int
}

// DancePriceScheme is a reusable price table attachable to many dances.
type DancePriceScheme struct {
	ID     uint `gorm:"primaryKey"`
	Name   string
	Notes  string
	Active bool `gorm:"default:true"`
}

type DancePrice struct {
	ID            uint   `gorm:"primaryKey"`
	PriceSchemeID uint   `gorm:"index:idx_danceprice_scheme_cat,unique"`
	FeeCatSlug    string `gorm:"index:idx_danceprice_scheme_cat,unique"`
	Low           int
	High          int
}

type Dance struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	Time          time.Time `gorm:"index"`
	PeriodSlug    *string
	Period        *SubscriptionPeriod `gorm:"foreignKey:PeriodSlug"`
	PriceSchemeID uint
	PriceScheme   DancePriceScheme
}

// PaymentMethod: cash, check, credit, online... InGate marks methods
// door staff may accept.
type PaymentMethod struct {
	Slug   string `gorm:"primaryKey"`
	Name   string
	InGate bool
}

// Payment kinds (single table, Kind discriminant).
const (
	PaymentKindDance = "dance"
	PaymentKindSub   = "sub"
)

// Payment is append-only; corrections go through the undo flow
// (delete + re-create), never in-place edits of amount or method.
type Payment struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	Kind     string `gorm:"index;not null"`
	PersonID uint   `gorm:"index;not null"`
	Person   Person

	// AtDance is where the money changed hands, if at a dance.
	AtDanceID  *uint
	Time       time.Time
	MethodSlug string          `gorm:"not null"`
	Method     PaymentMethod   `gorm:"foreignKey:MethodSlug"`
	Amount     decimal.Decimal `gorm:"type:numeric"`

	// Fee category snapshot at payment time; the person's may change later.
	FeeCatSlug *string
	Notes      string

	// Kind=dance: the dance this payment admits the person to (usually
	// the same as AtDance, but someone can pay ahead for another night).
	ForDanceID *uint `gorm:"index"`

	// Kind=sub: covered periods live in PaymentPeriod rows.
}

// PaymentPeriod joins a subscription payment to one covered period; a
// single payment may cover several concurrent periods.
type PaymentPeriod struct {
	ID         uint   `gorm:"primaryKey"`
	PaymentID  uint   `gorm:"index:idx_paymentperiod,unique"`
	PeriodSlug string `gorm:"index:idx_paymentperiod,unique;index"`
}

// Attendee marks a person present at a dance, at most once per
// (person, dance). A nil payment is not necessarily a problem: they may
// hold a subscription, get free admission, or have paid another night.
type Attendee struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	PersonID uint `gorm:"index:idx_attendee_person_dance,unique"`
	Person   Person
	DanceID  uint `gorm:"index:idx_attendee_person_dance,unique"`
	Time     time.Time

	PaymentID *uint
	Payment   *Payment
}
