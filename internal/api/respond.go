package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ocx/fairgov/internal/core"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("JSON encode error", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// StatusFor maps an engine error to its HTTP status.
func StatusFor(err error) int {
	switch core.KindOf(err) {
	case core.KindConfig, core.KindPrecondition:
		return http.StatusBadRequest
	case core.KindState:
		return http.StatusConflict
	case core.KindArithmetic:
		return http.StatusUnprocessableEntity
	case core.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeEngineError replies with the mapped status. Internal failures are
// logged and hidden from the caller.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("[API] internal error", "path", r.URL.Path, "request_id", RequestID(r.Context()), "error", err)
		writeError(w, status, "internal error")
		return
	}

	resp := ErrorResponse{Error: err.Error()}
	var ce *core.Error
	if errors.As(err, &ce) {
		resp.Kind = ce.Kind.String()
		resp.Field = ce.Field
	}
	writeJSON(w, status, resp)
}

// decode reads a JSON body into v. An empty body leaves v untouched when
// optional is set.
func decode(r *http.Request, v interface{}, optional bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) && optional {
		return nil
	}
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// idVar parses a numeric path variable.
func idVar(r *http.Request, name string) (uint64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return id, nil
}
