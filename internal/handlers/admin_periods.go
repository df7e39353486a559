package handlers

import (
	"strconv"
	"strings"
	"time"

	"net/http"

	"github.com/squaresclub/gatedb/internal/db"
	"github.com/squaresclub/gatedb/internal/models"
	svc "github.com/squaresclub/gatedb/internal/services"
)

// POST /admin/periods
// Creates a subscription period, its per-category prices, and the
// weekly dances. Price rows arrive as low_<feecat>/high_<feecat>.
func AdminCreatePeriod(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()

	start, err := time.Parse("2006-01-02", r.FormValue("start_date"))
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := time.Parse("2006-01-02", r.FormValue("end_date"))
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}
	schemeID, err := strconv.ParseUint(r.FormValue("price_scheme"), 10, 32)
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "price_scheme is not a valid id")
		return
	}
	danceTime := r.FormValue("time")
	if danceTime == "" {
		danceTime = "20:00"
	}

	var cats []models.FeeCategory
	if err := db.Conn().Find(&cats).Error; err != nil {
		writeMsg(w, http.StatusInternalServerError, "internal error")
		return
	}
	var prices []svc.PeriodPriceInput
	for _, cat := range cats {
		lowRaw := r.FormValue("low_" + cat.Slug)
		highRaw := r.FormValue("high_" + cat.Slug)
		if lowRaw == "" && highRaw == "" {
			continue
		}
		low, err1 := strconv.Atoi(lowRaw)
		high, err2 := strconv.Atoi(highRaw)
		if err1 != nil || err2 != nil {
			writeMsg(w, http.StatusBadRequest, "price for "+cat.Slug+" is not a valid range")
			return
		}
		prices = append(prices, svc.PeriodPriceInput{FeeCatSlug: cat.Slug, Low: low, High: high})
	}

	period, dances, err := svc.CreatePeriod(db.Conn(), svc.NewPeriodInput{
		Slug:      strings.TrimSpace(r.FormValue("slug")),
		Name:      strings.TrimSpace(r.FormValue("name")),
		StartDate: start,
		EndDate:   end,
		DanceTime: danceTime,
		SchemeID:  uint(schemeID),
		Prices:    prices,
	})
	if err != nil {
		if re, ok := svc.AsRequestError(err); ok {
			writeMsg(w, http.StatusBadRequest, re.Msg)
			return
		}
		writeMsg(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"period": period.Slug,
		"dances": dances,
	})
}

// POST /admin/periods/copy
// Season rollover: copy every subscriber of one period into another as
// zero-amount payments.
func AdminCopySubscriptions(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	from := r.FormValue("from")
	to := r.FormValue("to")
	if from == "" || to == "" {
		writeMsg(w, http.StatusBadRequest, "from and to periods are required")
		return
	}
	count, err := svc.CopySubscriptions(db.Conn(), from, to, r.FormValue("comment"))
	if err != nil {
		if re, ok := svc.AsRequestError(err); ok {
			writeMsg(w, http.StatusBadRequest, re.Msg)
			return
		}
		writeMsg(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"copied": count})
}
