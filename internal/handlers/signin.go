package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/squaresclub/gatedb/internal/db"
	svc "github.com/squaresclub/gatedb/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMsg(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"msg": msg})
}

type signinResponse struct {
	Msg      string `json:"msg"`
	Payment  uint   `json:"payment"`
	Attendee uint   `json:"attendee"`
}

// POST /gate/signin
// Records presence and/or a payment for one person at one dance.
// 201 with created ids on success; any validation failure is a 400
// with a message and no persisted side effects.
func SigninSubmit(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	req := svc.SigninRequest{
		Person:      r.FormValue("person"),
		Dance:       r.FormValue("dance"),
		Present:     r.FormValue("present"),
		Paid:        r.FormValue("paid"),
		Notes:       r.FormValue("notes"),
		PaidAmount:  r.FormValue("paid_amount"),
		PaidMethod:  r.FormValue("paid_method"),
		PaidFor:     r.FormValue("paid_for"),
		ForDance:    r.FormValue("for_dance"),
		PaidPeriods: r.Form["paid_period"],
	}

	res, err := svc.ProcessSignin(db.Conn(), req)
	if err != nil {
		if re, ok := svc.AsRequestError(err); ok {
			writeMsg(w, http.StatusBadRequest, re.Msg)
			return
		}
		writeMsg(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, signinResponse{
		Msg:      "recorded",
		Payment:  res.PaymentID,
		Attendee: res.AttendeeID,
	})
}

// POST /gate/undo
// Deletes a recent attendee and/or payment. 400 if neither id is given
// or the attendee/payment linkage doesn't match (stale client).
func UndoSubmit(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	attendeeID, ok := parseOptionalID(r.FormValue("attendee"))
	if !ok {
		writeMsg(w, http.StatusBadRequest, "attendee is not a valid id")
		return
	}
	paymentID, ok := parseOptionalID(r.FormValue("payment"))
	if !ok {
		writeMsg(w, http.StatusBadRequest, "payment is not a valid id")
		return
	}

	if err := svc.Undo(db.Conn(), attendeeID, paymentID); err != nil {
		if re, ok := svc.AsRequestError(err); ok {
			writeMsg(w, http.StatusBadRequest, re.Msg)
			return
		}
		writeMsg(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeMsg(w, http.StatusOK, "undone")
}

// parseOptionalID treats absent and "0" as zero.
func parseOptionalID(raw string) (uint, bool) {
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
