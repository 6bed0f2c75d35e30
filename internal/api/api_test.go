package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/fairgov/internal/appeal"
	"github.com/ocx/fairgov/internal/core"
	"github.com/ocx/fairgov/internal/detection"
	"github.com/ocx/fairgov/internal/engine"
	"github.com/ocx/fairgov/internal/metrics"
	"github.com/ocx/fairgov/internal/participant"
	"github.com/ocx/fairgov/internal/penalty"
	"github.com/ocx/fairgov/internal/safeguards"
	"github.com/ocx/fairgov/internal/store"
	"github.com/ocx/fairgov/internal/votingpower"
)

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	holder, err := safeguards.NewHolder(safeguards.DefaultConfig())
	require.NoError(t, err)
	reg := prometheus.NewRegistry()
	start := time.Unix(1_700_000_000, 0)

	eng, err := engine.New(engine.Deps{
		Store:     store.NewMemoryStore(),
		Config:    holder,
		Penalties: penalty.DefaultSettings(),
		Appeals:   appeal.DefaultSettings(),
		Detection: detection.DefaultSettings(),
		Metrics:   metrics.NewMetrics(reg),
		Clock:     func() time.Time { return start },
	})
	require.NoError(t, err)
	return NewRouter(eng, reg)
}

func do(t *testing.T, h http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func testSignals() votingpower.Signals {
	return votingpower.Signals{
		StakedAmount:          1_000_000,
		StakingDuration:       200 * 24 * 60 * 60,
		CommunityContribution: 500,
		TokenHolding:          900,
		ConsistencyScore:      90,
		ReputationScore:       850,
		ParticipationHistory:  150,
		ContributionQuality:   85,
	}
}

func TestHealthAndRequestID(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestConfigEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodGet, "/api/v1/config", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg safeguards.Config
	decodeBody(t, rec, &cfg)
	assert.Equal(t, safeguards.DefaultConfig(), cfg)

	bad := cfg
	bad.Weights.Staked = 90
	rec = do(t, r, http.MethodPost, "/api/v1/config/validate", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	var errResp ErrorResponse
	decodeBody(t, rec, &errResp)
	assert.Equal(t, core.KindConfig.String(), errResp.Kind)

	rec = do(t, r, http.MethodPut, "/api/v1/config", bad)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	cfg.WhaleDiscountPercent = 40
	rec = do(t, r, http.MethodPut, "/api/v1/config", cfg)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, r, http.MethodGet, "/api/v1/config", nil)
	decodeBody(t, rec, &cfg)
	assert.Equal(t, uint8(40), cfg.WhaleDiscountPercent)

	req := httptest.NewRequest(http.MethodPut, "/api/v1/config", strings.NewReader("{"))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestComputeVotingPower(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/api/v1/voting-power", testSignals())
	require.Equal(t, http.StatusOK, rec.Code)
	var b votingpower.Breakdown
	decodeBody(t, rec, &b)
	assert.NotZero(t, b.FinalPower)

	s := testSignals()
	s.StakedAmount = 0
	rec = do(t, r, http.MethodPost, "/api/v1/voting-power", s)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParticipantEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/api/v1/participants", registerParticipantRequest{ID: "wallet-1", Signals: testSignals()})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/v1/participants", registerParticipantRequest{ID: "wallet-1", Signals: testSignals()})
	assert.Equal(t, http.StatusConflict, rec.Code)

	// registered without power
	rec = do(t, r, http.MethodGet, "/api/v1/participants/wallet-1/eligibility", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var elig eligibilityResponse
	decodeBody(t, rec, &elig)
	assert.False(t, elig.Eligible)
	assert.NotEmpty(t, elig.Reason)

	rec = do(t, r, http.MethodPut, "/api/v1/participants/wallet-1/signals", updateSignalsRequest{Signals: testSignals()})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated struct {
		Participant participant.Participant `json:"participant"`
		Breakdown   votingpower.Breakdown   `json:"breakdown"`
	}
	decodeBody(t, rec, &updated)
	assert.Equal(t, updated.Breakdown.FinalPower, updated.Participant.VotingPower)

	rec = do(t, r, http.MethodGet, "/api/v1/participants/wallet-1/eligibility", nil)
	decodeBody(t, rec, &elig)
	assert.True(t, elig.Eligible)

	rec = do(t, r, http.MethodPost, "/api/v1/participants/wallet-1/votes", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var p participant.Participant
	decodeBody(t, rec, &p)
	assert.Equal(t, int64(1_700_000_000), p.LastVote)

	rec = do(t, r, http.MethodPut, "/api/v1/participants/wallet-1/balance", setBalanceRequest{Balance: 75_000})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &p)
	assert.Equal(t, uint64(75_000), p.Balance)
	assert.Equal(t, updated.Participant.VotingPower, p.VotingPower)
	rec = do(t, r, http.MethodPut, "/api/v1/participants/ghost/balance", setBalanceRequest{Balance: 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/v1/participants/ghost", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, r, http.MethodGet, "/api/v1/participants/ghost/eligibility", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPenaltyAndAppealFlow(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/api/v1/participants", registerParticipantRequest{ID: "wallet-1", Signals: testSignals()})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/v1/penalties", penalty.NewPenalty{Offender: "wallet-1", Type: penalty.VotingBan, Reason: "sybil"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var pen penalty.Penalty
	decodeBody(t, rec, &pen)
	assert.Equal(t, uint64(1), pen.ID)

	rec = do(t, r, http.MethodGet, "/api/v1/participants/wallet-1", nil)
	var p participant.Participant
	decodeBody(t, rec, &p)
	assert.True(t, p.Restricted)

	rec = do(t, r, http.MethodPost, "/api/v1/appeals", appeal.NewAppeal{Appellant: "someone-else", PenaltyID: pen.ID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/v1/appeals", appeal.NewAppeal{Appellant: "wallet-1", PenaltyID: pen.ID, Reason: "wrong wallet"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var a appeal.Appeal
	decodeBody(t, rec, &a)

	reviewers := []string{"r1", "r2", "r3", "r4", "r5"}
	rec = do(t, r, http.MethodPost, "/api/v1/appeals/1/panel", panelRequest{Reviewers: reviewers})
	require.Equal(t, http.StatusOK, rec.Code)

	for _, rv := range reviewers {
		rec = do(t, r, http.MethodPost, "/api/v1/appeals/1/votes", panelVoteRequest{Reviewer: rv, Overturn: true})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}
	rec = do(t, r, http.MethodPost, "/api/v1/appeals/1/votes", panelVoteRequest{Reviewer: "r1", Overturn: true})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/v1/appeals/1/resolve", appeal.Resolution{Reasoning: "unanimous"})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &a)
	assert.Equal(t, appeal.StatusApproved, a.Status)

	rec = do(t, r, http.MethodGet, "/api/v1/penalties/1", nil)
	decodeBody(t, rec, &pen)
	assert.Equal(t, penalty.StatusOverturned, pen.Status)

	rec = do(t, r, http.MethodPost, "/api/v1/penalties/1/pay", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/v1/penalties/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, r, http.MethodGet, "/api/v1/penalties/0", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/v1/appeals", nil)
	var list []appeal.Appeal
	decodeBody(t, rec, &list)
	assert.Len(t, list, 1)

	rec = do(t, r, http.MethodGet, "/api/v1/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats engine.Stats
	decodeBody(t, rec, &stats)
	assert.Equal(t, uint64(1), stats.SuccessfulAppeals)
	assert.Equal(t, 1, stats.Participants)
}

func TestAlertEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec := do(t, r, http.MethodPost, "/api/v1/alerts", detection.NewAlert{
		Type: detection.Collusion, TargetWallet: "wallet-9", Activity: "mirrored votes", EvidenceStrength: 80,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var a detection.Alert
	decodeBody(t, rec, &a)
	assert.Equal(t, detection.AlertOpen, a.Status)

	rec = do(t, r, http.MethodPost, "/api/v1/alerts/1/investigate", detection.AlertAction{Investigator: "inv-1"})
	require.Equal(t, http.StatusOK, rec.Code)
	decodeBody(t, rec, &a)
	assert.Equal(t, detection.AlertUnderInvestigation, a.Status)

	// empty body is allowed for dismissal
	rec = do(t, r, http.MethodPost, "/api/v1/alerts/1/dismiss", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, r, http.MethodPost, "/api/v1/alerts/1/resolve", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodPost, "/api/v1/alerts/1/escalate", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreatorEndpoints(t *testing.T) {
	r := newTestRouter(t)
	now := int64(1_700_000_000)

	rec := do(t, r, http.MethodPost, "/api/v1/creators", map[string]interface{}{
		"id": "perf-1", "creator_id": "creator-1", "token_ref": "TKN",
		"metrics": map[string]interface{}{
			"token_price_performance": 50, "trading_volume": 60, "community_growth": 70, "staking_participation": 80,
			"community_satisfaction": 80, "marketing_efforts": 70, "community_engagement": 60, "transparency_score": 90,
		},
		"assessment_start": now, "assessment_end": now + 90*24*60*60,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/api/v1/creators/perf-1/feedback", map[string]bool{"positive": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodPut, "/api/v1/creators/perf-1/performance", map[string]interface{}{
		"token_price_performance": 0,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/api/v1/creators/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	do(t, r, http.MethodPost, "/api/v1/voting-power", testSignals())

	rec := do(t, r, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "fairgov_operation_total")
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, StatusFor(core.Configf("op", "f", "x")))
	assert.Equal(t, http.StatusBadRequest, StatusFor(core.Preconditionf("op", "f", "x")))
	assert.Equal(t, http.StatusConflict, StatusFor(core.Statef("op", "x")))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusFor(core.Arithmeticf("op", "x")))
	assert.Equal(t, http.StatusNotFound, StatusFor(core.NotFoundf("op", "x")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(assert.AnError))
}
