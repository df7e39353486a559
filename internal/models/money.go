package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Transaction stages. A transaction starts in CART and moves forward
// only: PAID and CANCEL are terminal, REVIEW waits for an operator.
const (
	StageCart   = 10
	StageReview = 40
	StagePaid   = 50
	StageCancel = 60
)

func StageLabel(stage int) string {
	switch stage {
	case StageCart:
		return "Cart"
	case StageReview:
		return "Review"
	case StagePaid:
		return "Paid"
	case StageCancel:
		return "Cancel"
	}
	return "Unknown"
}

// NewNonce returns the random token that makes receipt/callback URLs
// unguessable. 8 bytes / 16 hex chars.
func NewNonce() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand failing means the host is broken
	}
	return hex.EncodeToString(buf)
}

// Transaction is one online-payment cart plus its settlement history.
// Any transaction with Stage=PAID nets to zero across its line items.
type Transaction struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	Nonce string `gorm:"size:16;index"`
	// RefNumber is handed to the external gateway and echoed back in
	// its callback; unique so replays are detectable.
	RefNumber string `gorm:"uniqueIndex"`
	Time      time.Time

	PersonName string `gorm:"size:50"`
	Email      string
	Notes      string
	AdminNotes string
	Stage      int `gorm:"index"`

	LineItems []LineItem
}

// Line item kinds (single table, Kind discriminant).
const (
	LineItemKindProduct     = "product"
	LineItemKindCybersource = "cybersource"
	LineItemKindSub         = "sub"
)

// LineItem is one signed monetary entry. Purchases are positive,
// payments received are negative. TransactionID is nullable so a
// callback for an unknown transaction can still be kept for audit.
type LineItem struct {
	ID        uint `gorm:"primaryKey"`
	CreatedAt time.Time

	TransactionID *uint           `gorm:"index"`
	Kind          string          `gorm:"index;not null"`
	Amount        decimal.Decimal `gorm:"type:numeric"`
	AccountName   string
	Label         string
	Notes         string

	// Kind=cybersource: verbatim gateway callback plus parsed fields.
	ReceiptPost datatypes.JSON
	Decision    string `gorm:"size:50"`
	RefNumber   string `gorm:"size:50;index"`
	CardNumber  string `gorm:"size:50"`
	CardType    string `gorm:"size:50"`

	// Kind=product
	ProductSlug *string
	Count       int
	PriceEach   decimal.Decimal `gorm:"type:numeric"`

	// Kind=sub: an online subscription purchase, reconciled into a
	// subscription payment at settlement.
	SubPeriodSlug  *string
	SubscriberName string `gorm:"size:50"`
	SubPersonID    *uint
}

type ProductCategory struct {
	Slug string `gorm:"primaryKey"`
	Name string
	Rank int `gorm:"index"`
}

// Product is a catalog item purchasable online. Low==High means a
// fixed price; otherwise the buyer picks within the range.
type Product struct {
	Slug         string `gorm:"primaryKey"`
	Label        string
	CategorySlug string
	Category     ProductCategory `gorm:"foreignKey:CategorySlug"`
	Rank         int             `gorm:"index"`
	Active       bool            `gorm:"default:true"`
	AccountName  string
	Description  string
	AdminNotes   string
	Low          decimal.Decimal `gorm:"type:numeric"`
	High         decimal.Decimal `gorm:"type:numeric"`
}

// FixedPrice returns the price when the range collapses, else nil.
func (p Product) FixedPrice() *decimal.Decimal {
	if p.Low.Equal(p.High) {
		return &p.Low
	}
	return nil
}
