package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/ocx/fairgov/internal/engine"
	"github.com/ocx/fairgov/internal/votingpower"
)

// ============================================================================
// PARTICIPANTS
//
//   POST /api/v1/participants
//   GET  /api/v1/participants/{id}
//   PUT  /api/v1/participants/{id}/signals
//   PUT  /api/v1/participants/{id}/balance
//   GET  /api/v1/participants/{id}/eligibility
//   POST /api/v1/participants/{id}/votes
// ============================================================================

type registerParticipantRequest struct {
	ID      string              `json:"id"`
	Signals votingpower.Signals `json:"signals"`
}

type updateSignalsRequest struct {
	Signals     votingpower.Signals `json:"signals"`
	TotalSupply uint64              `json:"total_supply"`
}

type setBalanceRequest struct {
	Balance uint64 `json:"balance"`
}

type eligibilityResponse struct {
	Eligible bool   `json:"eligible"`
	Reason   string `json:"reason,omitempty"`
}

// HandleRegisterParticipant creates a participant with zero power.
func HandleRegisterParticipant(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerParticipantRequest
		if err := decode(r, &req, false); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		p, err := eng.RegisterParticipant(r.Context(), req.ID, req.Signals)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, p)
	}
}

// HandleGetParticipant returns one participant.
func HandleGetParticipant(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := eng.GetParticipant(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// HandleUpdateParticipantPower recomputes power from fresh signals and
// returns the participant together with the computation breakdown.
func HandleUpdateParticipantPower(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateSignalsRequest
		if err := decode(r, &req, false); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		p, b, err := eng.UpdateParticipantPower(r.Context(), mux.Vars(r)["id"], req.Signals, req.TotalSupply)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"participant": p,
			"breakdown":   b,
		})
	}
}

// HandleSetParticipantBalance stores the balance reported by the token
// ledger.
func HandleSetParticipantBalance(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req setBalanceRequest
		if err := decode(r, &req, false); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		p, err := eng.SetParticipantBalance(r.Context(), mux.Vars(r)["id"], req.Balance)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

// HandleCheckEligibility reports whether the participant may vote now.
// Ineligibility is a normal answer, not an error, unless the participant
// does not exist.
func HandleCheckEligibility(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := eng.CheckVoteEligibility(r.Context(), mux.Vars(r)["id"])
		if status := StatusFor(err); err != nil && (status == http.StatusNotFound || status == http.StatusInternalServerError) {
			writeEngineError(w, r, err)
			return
		}
		resp := eligibilityResponse{Eligible: err == nil}
		if err != nil {
			resp.Reason = err.Error()
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HandleRecordVote stamps a vote and starts the cooldown.
func HandleRecordVote(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := eng.RecordVote(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}
