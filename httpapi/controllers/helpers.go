package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"omrledger/core"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a core.Error's Kind to the HTTP status spec §6 names:
// 400 bad input, 404 not found, 409 state conflict/duplicate, 422
// signature incomplete/quality rejected, 500 persistence/internal.
func writeError(w http.ResponseWriter, err error) {
	if _, ok := err.(*badRequestErr); ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	status := http.StatusInternalServerError
	if kind, ok := core.KindOf(err); ok {
		switch kind {
		case core.KindNotFound:
			status = http.StatusNotFound
		case core.KindAlreadyExists, core.KindInvalidState:
			status = http.StatusConflict
		case core.KindSignaturesIncomplete, core.KindQualityRejected:
			status = http.StatusUnprocessableEntity
		case core.KindHashMismatch:
			status = http.StatusBadRequest
		case core.KindMiningBudgetExceeded, core.KindPersistenceFailed,
			core.KindIntegrityViolation, core.KindExternalFailed:
			status = http.StatusInternalServerError
		}
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// badRequestErr carries a plain 400 independent of core's Kind taxonomy,
// for malformed request bodies rejected before any domain command runs.
type badRequestErr struct{ msg string }

func (e *badRequestErr) Error() string { return e.msg }

func badRequest(msg string) error { return &badRequestErr{msg: msg} }

func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid request body: " + err.Error())
	}
	return nil
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}
