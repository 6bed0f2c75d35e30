package sdk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/fairgov/internal/api"
	"github.com/ocx/fairgov/internal/appeal"
	"github.com/ocx/fairgov/internal/detection"
	"github.com/ocx/fairgov/internal/engine"
	"github.com/ocx/fairgov/internal/metrics"
	"github.com/ocx/fairgov/internal/penalty"
	"github.com/ocx/fairgov/internal/safeguards"
	"github.com/ocx/fairgov/internal/store"
	"github.com/ocx/fairgov/internal/votingpower"
)

func newTestClient(t *testing.T) *Client {
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

	srv := httptest.NewServer(api.NewRouter(eng, reg))
	t.Cleanup(srv.Close)
	return NewClient(Config{BaseURL: srv.URL + "/", Actor: "sdk-test"})
}

func signals() votingpower.Signals {
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

func TestClientGovernanceFlow(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.RegisterParticipant(ctx, "wallet-1", signals())
	require.NoError(t, err)
	p, b, err := c.UpdateSignals(ctx, "wallet-1", signals(), 0)
	require.NoError(t, err)
	assert.Equal(t, b.FinalPower, p.VotingPower)

	p, err = c.SetBalance(ctx, "wallet-1", 1_250)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_250), p.Balance)
	assert.Equal(t, b.FinalPower, p.VotingPower, "balance does not move power")

	ok, _, err := c.Eligibility(ctx, "wallet-1")
	require.NoError(t, err)
	assert.True(t, ok)

	pen, err := c.IssuePenalty(ctx, penalty.NewPenalty{Offender: "wallet-1", RiskScore: 40, Reason: "spam proposals"})
	require.NoError(t, err)
	assert.Equal(t, penalty.VotingRestriction, pen.Type)

	ok, reason, err := c.Eligibility(ctx, "wallet-1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotEmpty(t, reason)

	pen, err = c.PayPenalty(ctx, pen.ID)
	require.NoError(t, err)
	assert.Equal(t, penalty.StatusPaid, pen.Status)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.TotalPenalties)
	assert.Equal(t, 1, stats.RestrictedParticipants)
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	_, err := c.Participant(ctx, "ghost")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.NotEmpty(t, apiErr.RequestID)

	cfg, err := c.Config(ctx)
	require.NoError(t, err)
	cfg.Weights.Holding = 50
	err = c.ValidateConfig(ctx, *cfg)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "weights", apiErr.Field)

	_, err = c.AlertAction(ctx, 7, detection.EventDismiss, detection.AlertAction{})
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestClientAlertAndAppeal(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()

	a, err := c.CreateAlert(ctx, detection.NewAlert{Type: detection.Bribery, TargetWallet: "wallet-2", EvidenceStrength: 50})
	require.NoError(t, err)
	a, err = c.AlertAction(ctx, a.ID, detection.EventMarkFalsePositive, detection.AlertAction{Notes: "bot noise"})
	require.NoError(t, err)
	assert.Equal(t, detection.AlertFalsePositive, a.Status)

	_, err = c.RegisterParticipant(ctx, "wallet-2", signals())
	require.NoError(t, err)
	pen, err := c.IssuePenalty(ctx, penalty.NewPenalty{Offender: "wallet-2", Type: penalty.TemporaryBan})
	require.NoError(t, err)

	ap, err := c.SubmitAppeal(ctx, appeal.NewAppeal{Appellant: "wallet-2", PenaltyID: pen.ID, Reason: "false positive alert"})
	require.NoError(t, err)
	panel := []string{"r1", "r2", "r3", "r4", "r5"}
	_, err = c.AssemblePanel(ctx, ap.ID, panel)
	require.NoError(t, err)
	for _, r := range panel {
		_, err = c.CastPanelVote(ctx, ap.ID, r, false, "")
		require.NoError(t, err)
	}
	ap, err = c.ResolveAppeal(ctx, ap.ID, appeal.Resolution{Reasoning: "evidence holds"})
	require.NoError(t, err)
	assert.Equal(t, appeal.StatusRejected, ap.Status)

	pen, err = c.Penalty(ctx, pen.ID)
	require.NoError(t, err)
	assert.Equal(t, penalty.StatusActive, pen.Status)
}
