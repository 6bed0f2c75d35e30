package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ocx/fairgov/internal/detection"
	"github.com/ocx/fairgov/internal/engine"
)

// ============================================================================
// MANIPULATION ALERTS
//
//   POST /api/v1/alerts
//   GET  /api/v1/alerts/{id}
//   POST /api/v1/alerts/{id}/{investigate|resolve|false-positive|dismiss}
// ============================================================================

// HandleCreateAlert scores and opens an alert.
func HandleCreateAlert(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req detection.NewAlert
		if err := decode(r, &req, false); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a, err := eng.CreateAlert(r.Context(), req)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

func HandleGetAlert(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idVar(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a, err := eng.GetAlert(r.Context(), id)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// HandleAlertAction applies the transition named in the path. The body
// (investigator, notes, resolution, action taken) is optional.
func HandleAlertAction(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idVar(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var act detection.AlertAction
		if err := decode(r, &act, true); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		event := detection.AlertEvent(mux.Vars(r)["action"])
		a, err := eng.TransitionAlert(r.Context(), id, event, act)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}
