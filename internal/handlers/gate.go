package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/squaresclub/gatedb/internal/db"
	"github.com/squaresclub/gatedb/internal/models"
	svc "github.com/squaresclub/gatedb/internal/services"
)

func Health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Roster rows exclude placeholder people and the never-attends bucket.
var (
	rosterExcludeStatuses    = []string{"system"}
	rosterExcludeFrequencies = []string{"never"}
)

// GET /gate lists current dances, for picking which night to run.
func GateIndex(w http.ResponseWriter, r *http.Request) {
	dances, err := svc.CurrentDances(db.Conn(), time.Now().AddDate(0, 0, -7))
	if err != nil {
		writeMsg(w, http.StatusInternalServerError, "internal error")
		return
	}
	type danceRow struct {
		ID     uint   `json:"id"`
		Time   string `json:"time"`
		Period string `json:"period"`
	}
	rows := make([]danceRow, 0, len(dances))
	for _, dance := range dances {
		row := danceRow{ID: dance.ID, Time: dance.Time.Format(time.RFC3339)}
		if dance.Period != nil {
			row.Period = dance.Period.Name
		}
		rows = append(rows, row)
	}
	writeJSON(w, http.StatusOK, map[string]any{"dances": rows})
}

type rosterRow struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	FeeCat     string `json:"fee_cat"`
	Label      string `json:"label"` // e.g. "S+": fee cat initial + subscriber marker
	Present    bool   `json:"present"`
	Paid       bool   `json:"paid"`
	Subscriber bool   `json:"subscriber"`
}

// GET /gate/dance/{id} returns everything the signin screen needs: the
// ordered roster with per-person status plus the price matrix.
func SigninPage(w http.ResponseWriter, r *http.Request) {
	dance, ok := loadDance(w, r)
	if !ok {
		return
	}

	people, err := svc.Roster(db.Conn(), rosterExcludeStatuses, rosterExcludeFrequencies)
	if err != nil {
		writeMsg(w, http.StatusInternalServerError, "internal error")
		return
	}
	status, err := svc.DanceSigninStatus(db.Conn(), dance, people)
	if err != nil {
		writeMsg(w, http.StatusInternalServerError, "internal error")
		return
	}
	periods, err := svc.ValidPeriods(db.Conn(), dance.Time)
	if err != nil {
		writeMsg(w, http.StatusInternalServerError, "internal error")
		return
	}
	matrix, err := svc.PriceMatrix(db.Conn(), dance, periods)
	if err != nil {
		writeMsg(w, http.StatusInternalServerError, "internal error")
		return
	}

	rows := make([]rosterRow, 0, len(people))
	for _, person := range people {
		st := status[person.ID]
		marker := "-"
		if st.Subscriber {
			marker = "+"
		}
		label := "?"
		if person.FeeCat.Name != "" {
			// First rune, not first byte: category names may be accented.
			label = string([]rune(person.FeeCat.Name)[0])
		}
		rows = append(rows, rosterRow{
			ID:         person.ID,
			Name:       person.Name,
			FeeCat:     person.FeeCatSlug,
			Label:      label + marker,
			Present:    st.Present,
			Paid:       st.Paid,
			Subscriber: st.Subscriber,
		})
	}

	type priceEntry struct {
		Dance string            `json:"dance"`
		Subs  map[string]string `json:"subs"`
	}
	prices := make(map[string]priceEntry, len(matrix))
	for cat, cp := range matrix {
		entry := priceEntry{Dance: cp.Dance.Display(), Subs: map[string]string{}}
		for slug, pr := range cp.Subs {
			entry.Subs[slug] = pr.Display()
		}
		prices[cat] = entry
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dance":  dance.ID,
		"time":   dance.Time.Format(time.RFC3339),
		"people": rows,
		"prices": prices,
	})
}

// GET /gate/books/{id} is the post-dance reconciliation: every payment taken
// at the dance plus who is still owing.
func BooksPage(w http.ResponseWriter, r *http.Request) {
	dance, ok := loadDance(w, r)
	if !ok {
		return
	}

	var payments []models.Payment
	if err := db.Conn().Where("at_dance_id = ?", dance.ID).
		Preload("Person").Preload("Method").
		Order("time").Find(&payments).Error; err != nil {
		writeMsg(w, http.StatusInternalServerError, "internal error")
		return
	}
	owing, err := svc.AttendeesOwing(db.Conn(), dance.ID)
	if err != nil {
		writeMsg(w, http.StatusInternalServerError, "internal error")
		return
	}
	var attendeeCount int64
	if err := db.Conn().Model(&models.Attendee{}).
		Where("dance_id = ?", dance.ID).Count(&attendeeCount).Error; err != nil {
		writeMsg(w, http.StatusInternalServerError, "internal error")
		return
	}

	type paymentRow struct {
		ID     uint   `json:"id"`
		Person string `json:"person"`
		Kind   string `json:"kind"`
		Method string `json:"method"`
		Amount string `json:"amount"`
		Notes  string `json:"notes,omitempty"`
	}
	payRows := make([]paymentRow, 0, len(payments))
	for _, pay := range payments {
		payRows = append(payRows, paymentRow{
			ID:     pay.ID,
			Person: pay.Person.Name,
			Kind:   pay.Kind,
			Method: pay.Method.Name,
			Amount: pay.Amount.StringFixed(2),
			Notes:  pay.Notes,
		})
	}
	owingNames := make([]string, 0, len(owing))
	for _, att := range owing {
		owingNames = append(owingNames, att.Person.Name)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"dance":     dance.ID,
		"attendees": attendeeCount,
		"payments":  payRows,
		"owing":     owingNames,
	})
}

func loadDance(w http.ResponseWriter, r *http.Request) (*models.Dance, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 32)
	if err != nil {
		writeMsg(w, http.StatusBadRequest, "invalid dance id")
		return nil, false
	}
	var dance models.Dance
	if err := db.Conn().Preload("Period").First(&dance, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			writeMsg(w, http.StatusNotFound, "dance not found")
		} else {
			writeMsg(w, http.StatusInternalServerError, "internal error")
		}
		return nil, false
	}
	return &dance, true
}
