package services

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"strings"

	"gorm.io/gorm"

	"github.com/squaresclub/gatedb/internal/events"
	"github.com/squaresclub/gatedb/internal/models"
)

// NormEmail lowercases/trims an address and validates it when present.
func NormEmail(s string) (string, bool) {
	e := strings.TrimSpace(strings.ToLower(s))
	if e == "" {
		return "", true // treat empty as ok/optional
	}
	_, err := mail.ParseAddress(e)
	return e, err == nil
}

// BuildReceipt renders the plain-text receipt for a settled transaction.
func BuildReceipt(txn models.Transaction, items []models.LineItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Receipt for %s\n", txn.PersonName)
	fmt.Fprintf(&b, "Reference: %s\n", txn.RefNumber)
	fmt.Fprintf(&b, "Status: %s\n\n", models.StageLabel(txn.Stage))
	for _, item := range items {
		fmt.Fprintf(&b, "  %-40s %10s\n", item.Label, item.Amount.StringFixed(2))
	}
	if txn.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", txn.Notes)
	}
	return b.String()
}

// ReceiptRecipients is the deduplicated set of addresses a receipt goes
// to: the payer plus the treasurer address, if configured.
func ReceiptRecipients(txn models.Transaction) []string {
	seen := map[string]bool{}
	var out []string
	for _, addr := range []string{txn.Email, os.Getenv("RECEIPT_BCC")} {
		addr = strings.TrimSpace(strings.ToLower(addr))
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, addr)
	}
	return out
}

// SendReceipt delivers the receipt out-of-band. The transaction is
// already PAID when this runs; delivery failure is logged, never
// propagated back into the settlement flow.
func SendReceipt(gdb *gorm.DB, txn models.Transaction) {
	var items []models.LineItem
	if err := gdb.Where("transaction_id = ?", txn.ID).Order("id").Find(&items).Error; err != nil {
		log.Printf("receipt: loading line items for transaction %d: %v", txn.ID, err)
		return
	}
	body := BuildReceipt(txn, items)
	recipients := ReceiptRecipients(txn)
	if events.OnReceipt != nil {
		events.OnReceipt(txn, recipients, body)
		return
	}
	log.Printf("receipt: no sender configured; transaction %d receipt for %v:\n%s",
		txn.ID, recipients, body)
}
