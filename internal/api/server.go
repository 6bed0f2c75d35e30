// Package api serves the governance engine over HTTP/JSON.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ocx/fairgov/internal/engine"
)

// NewRouter registers every route on a gorilla/mux router. gatherer backs
// /metrics; nil uses the default registry.
func NewRouter(eng *engine.Engine, gatherer prometheus.Gatherer) *mux.Router {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := mux.NewRouter()
	r.Use(requestIDMiddleware, loggingMiddleware, corsMiddleware)

	r.HandleFunc("/health", HandleHealth()).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	v1 := r.PathPrefix("/api/v1").Subrouter()

	// Config
	v1.HandleFunc("/config", HandleGetConfig(eng)).Methods(http.MethodGet)
	v1.HandleFunc("/config", HandleUpdateConfig(eng)).Methods(http.MethodPut)
	v1.HandleFunc("/config/validate", HandleValidateConfig(eng)).Methods(http.MethodPost)
	v1.HandleFunc("/voting-power", HandleComputeVotingPower(eng)).Methods(http.MethodPost)

	// Participants
	v1.HandleFunc("/participants", HandleRegisterParticipant(eng)).Methods(http.MethodPost)
	v1.HandleFunc("/participants/{id}", HandleGetParticipant(eng)).Methods(http.MethodGet)
	v1.HandleFunc("/participants/{id}/signals", HandleUpdateParticipantPower(eng)).Methods(http.MethodPut)
	v1.HandleFunc("/participants/{id}/balance", HandleSetParticipantBalance(eng)).Methods(http.MethodPut)
	v1.HandleFunc("/participants/{id}/eligibility", HandleCheckEligibility(eng)).Methods(http.MethodGet)
	v1.HandleFunc("/participants/{id}/votes", HandleRecordVote(eng)).Methods(http.MethodPost)

	// Creators
	v1.HandleFunc("/creators", HandleRegisterCreator(eng)).Methods(http.MethodPost)
	v1.HandleFunc("/creators/{id}", HandleGetCreator(eng)).Methods(http.MethodGet)
	v1.HandleFunc("/creators/{id}/performance", HandleScoreCreator(eng)).Methods(http.MethodPut)
	v1.HandleFunc("/creators/{id}/feedback", HandleRecordFeedback(eng)).Methods(http.MethodPost)

	// Alerts
	v1.HandleFunc("/alerts", HandleCreateAlert(eng)).Methods(http.MethodPost)
	v1.HandleFunc("/alerts/{id:[0-9]+}", HandleGetAlert(eng)).Methods(http.MethodGet)
	v1.HandleFunc("/alerts/{id:[0-9]+}/{action:investigate|resolve|false-positive|dismiss}", HandleAlertAction(eng)).Methods(http.MethodPost)

	// Penalties
	v1.HandleFunc("/penalties", HandleIssuePenalty(eng)).Methods(http.MethodPost)
	v1.HandleFunc("/penalties", HandleListPenalties(eng)).Methods(http.MethodGet)
	v1.HandleFunc("/penalties/{id:[0-9]+}", HandleGetPenalty(eng)).Methods(http.MethodGet)
	v1.HandleFunc("/penalties/{id:[0-9]+}/pay", HandlePayPenalty(eng)).Methods(http.MethodPost)

	// Appeals
	v1.HandleFunc("/appeals", HandleSubmitAppeal(eng)).Methods(http.MethodPost)
	v1.HandleFunc("/appeals", HandleListAppeals(eng)).Methods(http.MethodGet)
	v1.HandleFunc("/appeals/{id:[0-9]+}", HandleGetAppeal(eng)).Methods(http.MethodGet)
	v1.HandleFunc("/appeals/{id:[0-9]+}/panel", HandleAssemblePanel(eng)).Methods(http.MethodPost)
	v1.HandleFunc("/appeals/{id:[0-9]+}/votes", HandleCastPanelVote(eng)).Methods(http.MethodPost)
	v1.HandleFunc("/appeals/{id:[0-9]+}/resolve", HandleResolveAppeal(eng)).Methods(http.MethodPost)

	v1.HandleFunc("/stats", HandleStats(eng)).Methods(http.MethodGet)

	return r
}

// HandleHealth reports liveness.
func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// ============================================================================
// MIDDLEWARE
// ============================================================================

type ctxKey int

const requestIDKey ctxKey = iota

// RequestID returns the id assigned to the request, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// requestIDMiddleware honours an incoming X-Request-ID or assigns a new one.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("[API] request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
			"request_id", RequestID(r.Context()))
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID, X-Actor")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
