package services

import (
	"encoding/json"
	"fmt"
	"log"
	"net/url"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/squaresclub/gatedb/internal/models"
)

// LineItemSettler performs kind-specific follow-up once a transaction's
// payment is accepted and the amounts reconcile. Returning ok=false
// routes the transaction to REVIEW instead of PAID; the settler should
// record why in the transaction's AdminNotes.
type LineItemSettler interface {
	Name() string
	TrySettle(tx *gorm.DB, txn *models.Transaction) (bool, error)
}

// The statically-known settler list: generic catalog products (nothing
// to do) and online subscription purchases (materialized into the
// payment ledger).
func settlers() []LineItemSettler {
	return []LineItemSettler{
		ProductSettler{},
		SubscriptionSettler{},
	}
}

// ProductSettler covers plain catalog purchases; delivery is handled by
// a human reading the books, so settling is always successful.
type ProductSettler struct{}

func (ProductSettler) Name() string { return "prod" }

func (ProductSettler) TrySettle(_ *gorm.DB, _ *models.Transaction) (bool, error) {
	return true, nil
}

const gatewayAccountName = "/Assets/Receivable/Cybersource"

// CallbackOutcome reports where the gateway browser redirect should go.
type CallbackOutcome struct {
	Txn *models.Transaction // nil when the (id, nonce) pair resolved nothing
	OK  bool                // false routes to the error page
}

// ProcessGatewayCallback ingests one settlement POST from the payment
// gateway. The payload is hostile input: the only authentication is
// possession of (id, nonce). Money is never silently dropped: even a
// callback for an unknown transaction is kept as an orphan line item
// for audit. Replays (transaction no longer in CART) are rejected
// outright with no ledger writes; see DESIGN.md.
func ProcessGatewayCallback(gdb *gorm.DB, id uint, nonce string, form url.Values) CallbackOutcome {
	log.Printf("settlement: gateway POST id=%d nonce=%s decision=%q auth_amount=%q",
		id, nonce, form.Get("decision"), form.Get("auth_amount"))

	// Parse failures default to 0 rather than discarding the callback.
	amount, err := decimal.NewFromString(form.Get("auth_amount"))
	if err != nil {
		log.Printf("settlement: unparseable auth_amount %q for transaction %d", form.Get("auth_amount"), id)
		amount = decimal.Zero
	}

	decision := form.Get("decision")
	cardNumber := form.Get("req_card_number")
	if len(cardNumber) > 5 {
		cardNumber = cardNumber[len(cardNumber)-5:]
	}
	cardType := form.Get("card_type_name")
	raw, _ := json.Marshal(form)

	item := models.LineItem{
		Kind:        models.LineItemKindCybersource,
		Amount:      amount.Neg(), // money received
		AccountName: gatewayAccountName,
		Label:       fmt.Sprintf("Paid by %s %s", cardType, cardNumber),
		ReceiptPost: datatypes.JSON(raw),
		Decision:    decision,
		RefNumber:   form.Get("req_reference_number"),
		CardNumber:  cardNumber,
		CardType:    cardType,
	}

	var txn models.Transaction
	var found, replayed bool
	err = gdb.Transaction(func(tx *gorm.DB) error {
		// Lookup, stage check, and every ledger write share one
		// transaction: concurrent callbacks for the same (id, nonce)
		// serialize here, and the loser sees the settled stage.
		found = tx.Where("id = ? AND nonce = ?", id, nonce).First(&txn).Error == nil
		if found && txn.Stage != models.StageCart {
			replayed = true
			return nil
		}

		var expected decimal.Decimal
		if found {
			item.TransactionID = &txn.ID
			// Net of the cart before the settlement row is added; a
			// matching payment brings the transaction to zero.
			var err error
			expected, err = netAmount(tx, txn.ID)
			if err != nil {
				return err
			}
		}

		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		if !found {
			return nil
		}

		switch {
		case decision != "ACCEPT":
			txn.Stage = models.StageCancel
			txn.AdminNotes += fmt.Sprintf("Decision: %s\n", decision)
		case !amount.Equal(expected):
			txn.Stage = models.StageReview
			txn.AdminNotes += fmt.Sprintf("Amount mismatch: paid %s != expected %s\n",
				amount.StringFixed(2), expected.StringFixed(2))
		default:
			allOK := true
			for _, settler := range settlers() {
				ok, err := settler.TrySettle(tx, &txn)
				if err != nil {
					return err
				}
				allOK = allOK && ok
			}
			if allOK {
				txn.Stage = models.StagePaid
			} else {
				txn.Stage = models.StageReview
			}
		}
		return tx.Save(&txn).Error
	})
	if err != nil {
		log.Printf("settlement: transaction %d callback failed: %v", id, err)
		return CallbackOutcome{OK: false}
	}
	if replayed {
		log.Printf("settlement: replayed callback for transaction %d (stage %s), rejecting",
			txn.ID, models.StageLabel(txn.Stage))
		return CallbackOutcome{Txn: &txn, OK: false}
	}

	if found && txn.Stage == models.StagePaid {
		// Best-effort, off the critical path: the money has moved, a
		// failed receipt send must never roll back PAID.
		go SendReceipt(gdb, txn)
	}

	ok := found && decision == "ACCEPT"
	out := CallbackOutcome{OK: ok}
	if found {
		out.Txn = &txn
	}
	return out
}

// netAmount sums a transaction's line items.
func netAmount(tx *gorm.DB, txnID uint) (decimal.Decimal, error) {
	var items []models.LineItem
	if err := tx.Where("transaction_id = ?", txnID).Find(&items).Error; err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.Amount)
	}
	return sum, nil
}

// NetAmount is the read-side variant for receipts and the books view.
func NetAmount(gdb *gorm.DB, txnID uint) (decimal.Decimal, error) {
	return netAmount(gdb, txnID)
}
