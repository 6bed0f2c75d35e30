package api

import (
	"net/http"

	"github.com/ocx/fairgov/internal/engine"
	"github.com/ocx/fairgov/internal/safeguards"
	"github.com/ocx/fairgov/internal/votingpower"
)

// ============================================================================
// SAFEGUARD CONFIG & STATELESS COMPUTE
//
//   GET  /api/v1/config
//   PUT  /api/v1/config
//   POST /api/v1/config/validate
//   POST /api/v1/voting-power
// ============================================================================

// actorOf names the caller for the audit trail.
func actorOf(r *http.Request) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return "api"
}

// HandleGetConfig returns the active safeguard configuration.
func HandleGetConfig(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, eng.Config())
	}
}

// HandleUpdateConfig validates and swaps in a full configuration.
func HandleUpdateConfig(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg safeguards.Config
		if err := decode(r, &cfg, false); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		updated, err := eng.UpdateConfig(r.Context(), actorOf(r), cfg)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

// HandleValidateConfig checks a configuration without applying it.
func HandleValidateConfig(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cfg safeguards.Config
		if err := decode(r, &cfg, false); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := eng.ValidateConfig(cfg); err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
	}
}

// HandleComputeVotingPower runs the power pipeline on raw signals against
// the active configuration.
func HandleComputeVotingPower(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var s votingpower.Signals
		if err := decode(r, &s, false); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		b, err := eng.ComputeVotingPower(s)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, b)
	}
}

// HandleStats returns the governance counters.
func HandleStats(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := eng.Stats(r.Context())
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}
