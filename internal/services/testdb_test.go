package services

import (
	"path/filepath"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/squaresclub/gatedb/internal/db"
	"github.com/squaresclub/gatedb/internal/models"
)

// openTestDB returns an isolated in-file SQLite database in a temp directory.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dir := t.TempDir()
	dsn := filepath.Join(dir, "test.db")
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

// fixture holds a small but complete club: three fee categories, a
// price scheme, one period with a weekly dance, and two people.
type fixture struct {
	Student    models.FeeCategory
	Full       models.FeeCategory
	MITStudent models.FeeCategory // free single-dance admission, no price rows

	Cash   models.PaymentMethod
	Online models.PaymentMethod // not usable at the gate

	Scheme models.DancePriceScheme
	Period models.SubscriptionPeriod
	Dance  models.Dance

	Alice models.Person // student, attends always
	Bob   models.Person // full, attends sometimes
}

func seedGate(t *testing.T, gdb *gorm.DB) fixture {
	t.Helper()
	var fx fixture

	fx.Student = models.FeeCategory{Slug: "student", Name: "Student"}
	fx.Full = models.FeeCategory{Slug: "full", Name: "Full"}
	fx.MITStudent = models.FeeCategory{Slug: "mit-student", Name: "MIT student", FreeDance: true}
	for _, cat := range []*models.FeeCategory{&fx.Student, &fx.Full, &fx.MITStudent} {
		if err := gdb.Create(cat).Error; err != nil {
			t.Fatalf("seed fee category: %v", err)
		}
	}

	statuses := []models.PersonStatus{
		{Slug: "member", Name: "Member", Member: true},
		{Slug: "guest", Name: "Guest"},
		{Slug: "system", Name: "System"},
	}
	for i := range statuses {
		gdb.Create(&statuses[i])
	}
	frequencies := []models.PersonFrequency{
		{Slug: "always", Name: "Always", Rank: 1},
		{Slug: "sometimes", Name: "Sometimes", Rank: 2},
		{Slug: "never", Name: "Never", Rank: 9},
	}
	for i := range frequencies {
		gdb.Create(&frequencies[i])
	}

	fx.Cash = models.PaymentMethod{Slug: "cash", Name: "Cash", InGate: true}
	fx.Online = models.PaymentMethod{Slug: "online", Name: "Online card", InGate: false}
	check := models.PaymentMethod{Slug: "check", Name: "Check", InGate: true}
	for _, m := range []*models.PaymentMethod{&fx.Cash, &fx.Online, &check} {
		gdb.Create(m)
	}

	fx.Scheme = models.DancePriceScheme{Name: "Regular", Active: true}
	gdb.Create(&fx.Scheme)
	// mit-student deliberately has no DancePrice row.
	gdb.Create(&models.DancePrice{PriceSchemeID: fx.Scheme.ID, FeeCatSlug: "student", Low: 5, High: 8})
	gdb.Create(&models.DancePrice{PriceSchemeID: fx.Scheme.ID, FeeCatSlug: "full", Low: 10, High: 10})

	fx.Period = models.SubscriptionPeriod{
		Slug:      "2026-spring",
		Name:      "Spring 2026",
		StartDate: time.Date(2026, 2, 3, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 5, 26, 0, 0, 0, 0, time.UTC),
	}
	gdb.Create(&fx.Period)
	gdb.Create(&models.SubscriptionPeriodPrice{PeriodSlug: fx.Period.Slug, FeeCatSlug: "student", Low: 30, High: 50})
	gdb.Create(&models.SubscriptionPeriodPrice{PeriodSlug: fx.Period.Slug, FeeCatSlug: "full", Low: 60, High: 60})

	fx.Dance = models.Dance{
		Time:          time.Date(2026, 2, 10, 20, 0, 0, 0, time.UTC),
		PeriodSlug:    &fx.Period.Slug,
		PriceSchemeID: fx.Scheme.ID,
	}
	gdb.Create(&fx.Dance)

	fx.Alice = models.Person{Name: "Alice", FeeCatSlug: "student", StatusSlug: "member", FrequencySlug: "always"}
	fx.Bob = models.Person{Name: "Bob", FeeCatSlug: "full", StatusSlug: "member", FrequencySlug: "sometimes"}
	for _, p := range []*models.Person{&fx.Alice, &fx.Bob} {
		if err := gdb.Create(p).Error; err != nil {
			t.Fatalf("seed person: %v", err)
		}
	}

	return fx
}

func countRows(t *testing.T, gdb *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := gdb.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}
