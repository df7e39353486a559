package db

import (
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/squaresclub/gatedb/internal/models"
)

var conn *gorm.DB

func Init(path string) error {
	var err error
	conn, err = gorm.Open(sqlite.Open(path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"), &gorm.Config{})
	if err != nil {
		return err
	}

	// SQLite works best with a single writer; cap the pool accordingly.
	// This is also what serializes concurrent gate submissions touching
	// the same (person, dance) pair.
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := Migrate(conn); err != nil {
		return err
	}

	log.Println("database ready (sqlite)")
	return nil
}

// Migrate creates/updates the schema. Split out so tests can migrate an
// isolated database without going through Init.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&models.FeeCategory{},
		&models.PersonStatus{},
		&models.PersonFrequency{},
		&models.Person{},
		&models.SubscriptionPeriod{},
		&models.SubscriptionPeriodPrice{},
		&models.DancePriceScheme{},
		&models.DancePrice{},
		&models.Dance{},
		&models.PaymentMethod{},
		&models.Payment{},
		&models.PaymentPeriod{},
		&models.Attendee{},
		&models.Transaction{},
		&models.LineItem{},
		&models.ProductCategory{},
		&models.Product{},
	); err != nil {
		return err
	}

	// Composite indexes that GORM doesn't auto-create from struct tags.
	gdb.Exec("CREATE INDEX IF NOT EXISTS idx_payment_person_fordance ON payments(person_id, for_dance_id)")
	gdb.Exec("CREATE INDEX IF NOT EXISTS idx_lineitem_txn_kind       ON line_items(transaction_id, kind)")
	return nil
}

func Conn() *gorm.DB {
	return conn
}
