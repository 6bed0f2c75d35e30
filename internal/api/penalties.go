package api

import (
	"net/http"

	"github.com/ocx/fairgov/internal/engine"
	"github.com/ocx/fairgov/internal/penalty"
)

// ============================================================================
// PENALTIES
//
//   POST /api/v1/penalties
//   GET  /api/v1/penalties
//   GET  /api/v1/penalties/{id}
//   POST /api/v1/penalties/{id}/pay
// ============================================================================

// HandleIssuePenalty issues a penalty and restricts the offender when the
// type calls for it.
func HandleIssuePenalty(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req penalty.NewPenalty
		if err := decode(r, &req, false); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		p, err := eng.IssuePenalty(r.Context(), req)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

func HandleListPenalties(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := eng.ListPenalties(r.Context())
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		if list == nil {
			list = []*penalty.Penalty{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func HandleGetPenalty(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idVar(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		p, err := eng.GetPenalty(r.Context(), id)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// HandlePayPenalty settles an active penalty.
func HandlePayPenalty(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idVar(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		p, err := eng.PayPenalty(r.Context(), id)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
