package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/squaresclub/gatedb/internal/db"
	"github.com/squaresclub/gatedb/internal/models"
)

type testApp struct {
	DB     *gorm.DB
	Alice  models.Person
	Dance  models.Dance
	Period models.SubscriptionPeriod
	Shirt  models.Product
}

// setupTestApp points the package-global connection at an isolated
// temp-dir database and seeds enough catalog for the gate and pay flows.
func setupTestApp(t *testing.T) testApp {
	t.Helper()
	if err := db.Init(filepath.Join(t.TempDir(), "handlers_test.db")); err != nil {
		t.Fatalf("db init: %v", err)
	}
	gdb := db.Conn()
	app := testApp{DB: gdb}

	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	must(gdb.Create(&models.FeeCategory{Slug: "student", Name: "Student"}).Error)
	must(gdb.Create(&models.PersonStatus{Slug: "member", Name: "Member", Member: true}).Error)
	must(gdb.Create(&models.PersonFrequency{Slug: "always", Name: "Always", Rank: 1}).Error)
	must(gdb.Create(&models.PaymentMethod{Slug: "cash", Name: "Cash", InGate: true}).Error)
	must(gdb.Create(&models.PaymentMethod{Slug: "online", Name: "Online card", InGate: false}).Error)

	app.Alice = models.Person{
		Name: "Alice", Email: "alice@example.com",
		FeeCatSlug: "student", StatusSlug: "member", FrequencySlug: "always",
	}
	must(gdb.Create(&app.Alice).Error)

	scheme := models.DancePriceScheme{Name: "Regular", Active: true}
	must(gdb.Create(&scheme).Error)
	must(gdb.Create(&models.DancePrice{
		PriceSchemeID: scheme.ID, FeeCatSlug: "student", Low: 5, High: 8,
	}).Error)

	app.Period = models.SubscriptionPeriod{
		Slug: "2026-spring", Name: "Spring 2026",
		StartDate: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC),
	}
	must(gdb.Create(&app.Period).Error)
	must(gdb.Create(&models.SubscriptionPeriodPrice{
		PeriodSlug: app.Period.Slug, FeeCatSlug: "student", Low: 30, High: 50,
	}).Error)

	app.Dance = models.Dance{
		Time:          time.Date(2026, 2, 10, 20, 0, 0, 0, time.UTC),
		PeriodSlug:    &app.Period.Slug,
		PriceSchemeID: scheme.ID,
	}
	must(gdb.Create(&app.Dance).Error)

	must(gdb.Create(&models.ProductCategory{Slug: "merch", Name: "Merchandise", Rank: 1}).Error)
	app.Shirt = models.Product{
		Slug: "tshirt", Label: "Club T-shirt", CategorySlug: "merch",
		Rank: 1, Active: true, AccountName: "/Income/Sales",
		Low: decimal.NewFromInt(10), High: decimal.NewFromInt(10),
	}
	must(gdb.Create(&app.Shirt).Error)

	return app
}

func postForm(h http.HandlerFunc, target string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}
