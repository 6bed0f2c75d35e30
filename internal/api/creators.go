package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ocx/fairgov/internal/engine"
	"github.com/ocx/fairgov/internal/performance"
)

// ============================================================================
// CREATORS
//
//   POST /api/v1/creators
//   GET  /api/v1/creators/{id}
//   PUT  /api/v1/creators/{id}/performance
//   POST /api/v1/creators/{id}/feedback
// ============================================================================

// HandleRegisterCreator opens a creator assessment.
func HandleRegisterCreator(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req engine.NewCreator
		if err := decode(r, &req, false); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		c, err := eng.RegisterCreator(r.Context(), req)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, c)
	}
}

func HandleGetCreator(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := eng.GetCreator(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

// HandleScoreCreator rescores a creator from new metrics.
func HandleScoreCreator(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var m performance.Metrics
		if err := decode(r, &m, false); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		c, err := eng.ScoreCreator(r.Context(), mux.Vars(r)["id"], m)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func HandleRecordFeedback(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Positive bool `json:"positive"`
		}
		if err := decode(r, &req, false); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		c, err := eng.RecordFeedback(r.Context(), mux.Vars(r)["id"], req.Positive)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}
