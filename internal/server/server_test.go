package server

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/fairgov/internal/config"
	"github.com/ocx/fairgov/internal/votingpower"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.Port = "0"
	cfg.Server.ShutdownTimeoutSeconds = 2
	cfg.Log.Format = "text"
	return cfg
}

func TestBuildRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Safeguards.Weights.Staked = 99

	_, err := Build(context.Background(), cfg, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestBuildLimitsWritesPerActor(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.WritesPerMinute = 1

	app, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	post := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/config/validate", strings.NewReader(`{}`))
		req.Header.Set("X-Actor", "council")
		rec := httptest.NewRecorder()
		app.Handler.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.NotEqual(t, http.StatusTooManyRequests, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestBuildWiresSQLiteStoreAndAudit(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(t)
	cfg.Store.Backend = "sqlite"
	cfg.Store.SQLitePath = filepath.Join(dir, "governance.db")
	cfg.Audit.Driver = "sqlite"
	cfg.Audit.DSN = filepath.Join(dir, "audit.db")

	app, err := Build(context.Background(), cfg, NewLogger(cfg.Log))
	require.NoError(t, err)

	ctx := context.Background()
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
	_, err = app.Engine.RegisterParticipant(ctx, "wallet-1", s)
	require.NoError(t, err)
	_, _, err = app.Engine.UpdateParticipantPower(ctx, "wallet-1", s, 0)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/participants/wallet-1", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	app.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), "go_goroutines"))

	require.NoError(t, app.Close())

	db, err := sql.Open("sqlite", cfg.Audit.DSN)
	require.NoError(t, err)
	defer db.Close()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM governance_audit_log WHERE event_type = 'POWER_UPDATE'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestBuildFailsOnUnreachableAuditDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audit.Driver = "sqlite"
	cfg.Audit.DSN = filepath.Join(t.TempDir(), "missing", "audit.db")

	_, err := Build(context.Background(), cfg, nil)
	assert.Error(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sweeper.Schedule = "@every 1s"

	app, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunRejectsBadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Sweeper.Schedule = "whenever"

	app, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer app.Close()

	assert.Error(t, app.Run(context.Background()))
}
