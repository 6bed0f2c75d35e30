package sweeper

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ocx/fairgov/internal/appeal"
	"github.com/ocx/fairgov/internal/detection"
	"github.com/ocx/fairgov/internal/engine"
	"github.com/ocx/fairgov/internal/metrics"
	"github.com/ocx/fairgov/internal/penalty"
	"github.com/ocx/fairgov/internal/safeguards"
	"github.com/ocx/fairgov/internal/store"
	"github.com/ocx/fairgov/internal/votingpower"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func setup(t *testing.T) (*engine.Engine, *Sweeper, *clock, *metrics.Metrics) {
	t.Helper()
	holder, err := safeguards.NewHolder(safeguards.DefaultConfig())
	require.NoError(t, err)
	clk := &clock{t: time.Unix(1_700_000_000, 0)}
	m := metrics.NewMetrics(prometheus.NewRegistry())

	eng, err := engine.New(engine.Deps{
		Store:     store.NewMemoryStore(),
		Config:    holder,
		Penalties: penalty.DefaultSettings(),
		Appeals:   appeal.DefaultSettings(),
		Detection: detection.DefaultSettings(),
		Clock:     clk.Now,
	})
	require.NoError(t, err)
	return eng, New(eng, Config{Metrics: m, Clock: clk.Now}), clk, m
}

func register(t *testing.T, eng *engine.Engine, id string) {
	t.Helper()
	s := votingpower.Signals{
		StakedAmount:          50_000,
		StakingDuration:       100 * 24 * 60 * 60,
		CommunityContribution: 10,
		TokenHolding:          100,
		ConsistencyScore:      50,
		ReputationScore:       100,
		ParticipationHistory:  5,
		ContributionQuality:   40,
	}
	_, err := eng.RegisterParticipant(context.Background(), id, s)
	require.NoError(t, err)
	_, _, err = eng.UpdateParticipantPower(context.Background(), id, s, 0)
	require.NoError(t, err)
}

func TestSweepExpiresAndLifts(t *testing.T) {
	eng, sw, clk, m := setup(t)
	ctx := context.Background()
	for _, id := range []string{"wallet-1", "wallet-2", "wallet-3"} {
		register(t, eng, id)
	}

	// wallet-1: ban under an appeal that nobody decides
	ban, err := eng.IssuePenalty(ctx, penalty.NewPenalty{Offender: "wallet-1", Type: penalty.VotingBan})
	require.NoError(t, err)
	_, err = eng.SubmitAppeal(ctx, appeal.NewAppeal{Appellant: "wallet-1", PenaltyID: ban.ID})
	require.NoError(t, err)

	// wallet-2: paid restriction, which still runs its course
	paid, err := eng.IssuePenalty(ctx, penalty.NewPenalty{Offender: "wallet-2", Type: penalty.VotingRestriction})
	require.NoError(t, err)
	_, err = eng.PayPenalty(ctx, paid.ID)
	require.NoError(t, err)

	// wallet-3: plain restriction
	_, err = eng.IssuePenalty(ctx, penalty.NewPenalty{Offender: "wallet-3", Type: penalty.VotingRestriction})
	require.NoError(t, err)

	res, err := sw.Sweep(ctx)
	require.NoError(t, err)
	assert.False(t, res.Changed())

	clk.Advance(31 * 24 * time.Hour)
	res, err = sw.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, Result{AppealsExpired: 1, PenaltiesExpired: 2, RestrictionsLifted: 1}, res)

	for _, id := range []string{"wallet-1", "wallet-2", "wallet-3"} {
		p, err := eng.GetParticipant(ctx, id)
		require.NoError(t, err)
		assert.False(t, p.Restricted, id)
	}
	pen, err := eng.GetPenalty(ctx, ban.ID)
	require.NoError(t, err)
	assert.Equal(t, penalty.StatusExpired, pen.Status)

	stats, err := eng.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), stats.ExpiredAppeals)
	assert.Zero(t, stats.ActivePenalties)

	res, err = sw.Sweep(ctx)
	require.NoError(t, err)
	assert.False(t, res.Changed())

	assert.Equal(t, 3.0, testutil.ToFloat64(m.SweepRuns))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SweepActions.WithLabelValues("penalty_expired")))
}

func TestSweepStopsOnCancelledContext(t *testing.T) {
	eng, sw, clk, _ := setup(t)
	register(t, eng, "wallet-1")
	_, err := eng.IssuePenalty(context.Background(), penalty.NewPenalty{Offender: "wallet-1", Type: penalty.VotingRestriction})
	require.NoError(t, err)
	clk.Advance(8 * 24 * time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = sw.Sweep(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInvalidSchedule(t *testing.T) {
	_, sw, _, _ := setup(t)
	assert.Error(t, sw.Start(context.Background(), "every now and then"))
	sw.Stop()
}

func TestScheduledSweepsStopCleanly(t *testing.T) {
	defer goleak.VerifyNone(t)

	_, sw, _, m := setup(t)
	require.NoError(t, sw.Start(context.Background(), "@every 1s"))

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(m.SweepRuns) >= 1
	}, 5*time.Second, 50*time.Millisecond)

	sw.Stop()
	sw.Stop()
}
