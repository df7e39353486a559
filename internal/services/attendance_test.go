package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/squaresclub/gatedb/internal/models"
)

// TestMarkPresent_Idempotent verifies that marking the same person
// present twice yields exactly one attendee row and created=false on
// the repeat, never an error.
func TestMarkPresent_Idempotent(t *testing.T) {
	gdb := openTestDB(t)
	fx := seedGate(t, gdb)

	_, created, err := MarkPresent(gdb, fx.Alice.ID, fx.Dance.ID, nil)
	if err != nil {
		t.Fatalf("first MarkPresent: %v", err)
	}
	if !created {
		t.Error("first call: want created=true")
	}

	_, created, err = MarkPresent(gdb, fx.Alice.ID, fx.Dance.ID, nil)
	if err != nil {
		t.Fatalf("second MarkPresent: %v", err)
	}
	if created {
		t.Error("second call: want created=false")
	}

	if n := countRows(t, gdb, &models.Attendee{}); n != 1 {
		t.Errorf("attendee rows: want 1, got %d", n)
	}
}

// TestMarkPresent_AttachesPayment verifies that a payment supplied on a
// repeat call is attached to an existing payment-less attendee.
func TestMarkPresent_AttachesPayment(t *testing.T) {
	gdb := openTestDB(t)
	fx := seedGate(t, gdb)

	att, _, err := MarkPresent(gdb, fx.Alice.ID, fx.Dance.ID, nil)
	if err != nil {
		t.Fatalf("MarkPresent: %v", err)
	}
	if att.PaymentID != nil {
		t.Fatal("expected no payment link yet")
	}

	pay := createDancePayment(t, gdb, fx, decimal.NewFromInt(5))

	att, created, err := MarkPresent(gdb, fx.Alice.ID, fx.Dance.ID, &pay.ID)
	if err != nil {
		t.Fatalf("MarkPresent with payment: %v", err)
	}
	if created {
		t.Error("want created=false on existing row")
	}
	if att.PaymentID == nil || *att.PaymentID != pay.ID {
		t.Errorf("payment link: want %d, got %v", pay.ID, att.PaymentID)
	}
}

// TestUndo_Mismatch verifies the stale-client guard: undoing an
// attendee together with a payment it is not linked to deletes nothing.
func TestUndo_Mismatch(t *testing.T) {
	gdb := openTestDB(t)
	fx := seedGate(t, gdb)

	p1 := createDancePayment(t, gdb, fx, decimal.NewFromInt(5))
	p2 := createDancePayment(t, gdb, fx, decimal.NewFromInt(8))
	att, _, err := MarkPresent(gdb, fx.Alice.ID, fx.Dance.ID, &p1.ID)
	if err != nil {
		t.Fatalf("MarkPresent: %v", err)
	}

	err = Undo(gdb, att.ID, p2.ID)
	re, ok := AsRequestError(err)
	if !ok || re.Kind != ErrConflict {
		t.Fatalf("want conflict error, got %v", err)
	}

	if n := countRows(t, gdb, &models.Attendee{}); n != 1 {
		t.Errorf("attendee rows after failed undo: want 1, got %d", n)
	}
	if n := countRows(t, gdb, &models.Payment{}); n != 2 {
		t.Errorf("payment rows after failed undo: want 2, got %d", n)
	}
}

// TestUndo_DeletesBoth verifies attendee+payment undo is atomic.
func TestUndo_DeletesBoth(t *testing.T) {
	gdb := openTestDB(t)
	fx := seedGate(t, gdb)

	pay := createDancePayment(t, gdb, fx, decimal.NewFromInt(5))
	att, _, err := MarkPresent(gdb, fx.Alice.ID, fx.Dance.ID, &pay.ID)
	if err != nil {
		t.Fatalf("MarkPresent: %v", err)
	}

	if err := Undo(gdb, att.ID, pay.ID); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if n := countRows(t, gdb, &models.Attendee{}); n != 0 {
		t.Errorf("attendee rows: want 0, got %d", n)
	}
	if n := countRows(t, gdb, &models.Payment{}); n != 0 {
		t.Errorf("payment rows: want 0, got %d", n)
	}
}

// TestUndo_RefusesDanglingPayment verifies a payment still referenced
// by an attendee cannot be deleted alone.
func TestUndo_RefusesDanglingPayment(t *testing.T) {
	gdb := openTestDB(t)
	fx := seedGate(t, gdb)

	pay := createDancePayment(t, gdb, fx, decimal.NewFromInt(5))
	if _, _, err := MarkPresent(gdb, fx.Alice.ID, fx.Dance.ID, &pay.ID); err != nil {
		t.Fatalf("MarkPresent: %v", err)
	}

	err := Undo(gdb, 0, pay.ID)
	re, ok := AsRequestError(err)
	if !ok || re.Kind != ErrConflict {
		t.Fatalf("want conflict error, got %v", err)
	}
}

// TestUndo_NothingGiven verifies the empty undo is rejected.
func TestUndo_NothingGiven(t *testing.T) {
	gdb := openTestDB(t)
	seedGate(t, gdb)

	err := Undo(gdb, 0, 0)
	re, ok := AsRequestError(err)
	if !ok || re.Kind != ErrDomain {
		t.Fatalf("want domain error, got %v", err)
	}
}

// createDancePayment inserts a cash single-dance payment for Alice.
func createDancePayment(t *testing.T, gdb *gorm.DB, fx fixture, amount decimal.Decimal) *models.Payment {
	t.Helper()
	var pay *models.Payment
	err := gdb.Transaction(func(tx *gorm.DB) error {
		var err error
		pay, err = RecordDancePaymentTx(tx, &fx.Alice, &fx.Dance, &fx.Dance, &fx.Cash, amount, "")
		return err
	})
	if err != nil {
		t.Fatalf("create dance payment: %v", err)
	}
	return pay
}
