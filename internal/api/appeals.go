package api

import (
	"net/http"

	"github.com/ocx/fairgov/internal/appeal"
	"github.com/ocx/fairgov/internal/engine"
)

// ============================================================================
// APPEALS
//
//   POST /api/v1/appeals
//   GET  /api/v1/appeals
//   GET  /api/v1/appeals/{id}
//   POST /api/v1/appeals/{id}/panel
//   POST /api/v1/appeals/{id}/votes
//   POST /api/v1/appeals/{id}/resolve
// ============================================================================

type panelRequest struct {
	Reviewers []string `json:"reviewers"`
}

type panelVoteRequest struct {
	Reviewer string `json:"reviewer"`
	Overturn bool   `json:"overturn"`
	Comment  string `json:"comment"`
}

// HandleSubmitAppeal contests a penalty.
func HandleSubmitAppeal(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req appeal.NewAppeal
		if err := decode(r, &req, false); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a, err := eng.SubmitAppeal(r.Context(), req)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, a)
	}
}

func HandleListAppeals(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := eng.ListAppeals(r.Context())
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		if list == nil {
			list = []*appeal.Appeal{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func HandleGetAppeal(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idVar(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a, err := eng.GetAppeal(r.Context(), id)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// HandleAssemblePanel seats reviewers and moves the appeal under review.
func HandleAssemblePanel(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idVar(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var req panelRequest
		if err := decode(r, &req, false); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a, err := eng.AssemblePanel(r.Context(), id, req.Reviewers)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func HandleCastPanelVote(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idVar(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var req panelVoteRequest
		if err := decode(r, &req, false); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a, err := eng.CastPanelVote(r.Context(), id, req.Reviewer, req.Overturn, req.Comment)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// HandleResolveAppeal tallies the panel and settles the contested penalty.
func HandleResolveAppeal(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idVar(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		var req appeal.Resolution
		if err := decode(r, &req, false); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		a, err := eng.ResolveAppeal(r.Context(), id, req)
		if err != nil {
			writeEngineError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}
