package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "fairgov v"+version+"\n", out)
}

func TestScoreCommand(t *testing.T) {
	out, err := run(t, "score",
		"--price", "50", "--volume", "60", "--growth", "70", "--staking", "80",
		"--satisfaction", "80", "--marketing", "70", "--engagement", "60", "--transparency", "90")
	require.NoError(t, err)

	var got struct {
		Score   uint64 `json:"performance_score"`
		Release uint8  `json:"release_percentage"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, uint64(64), got.Score)
	assert.Equal(t, uint8(55), got.Release)

	_, err = run(t, "score", "--price", "0")
	assert.Error(t, err)
}

func TestRiskCommand(t *testing.T) {
	out, err := run(t, "risk", "--type", "SUSPICIOUS_PATTERN", "--evidence", "50")
	require.NoError(t, err)

	var got struct {
		Risk uint8  `json:"risk_score"`
		Type string `json:"penalty_type"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, uint8(60), got.Risk)
	assert.Equal(t, "VOTING_BAN", got.Type)

	_, err = run(t, "risk", "--type", "GOSSIP")
	assert.Error(t, err)
}

func TestPowerCommand(t *testing.T) {
	out, err := run(t, "power",
		"--staked", "1000000", "--duration", "17280000", "--reputation", "850",
		"--contribution", "500", "--holding", "900", "--consistency", "90",
		"--participation", "150", "--quality", "85",
		"--total-supply", "10000000")
	require.NoError(t, err)

	var got struct {
		Breakdown struct {
			FinalPower uint64 `json:"final_power"`
		} `json:"breakdown"`
		Whale struct {
			IsWhale bool `json:"is_whale"`
		} `json:"whale"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.NotZero(t, got.Breakdown.FinalPower)
	assert.True(t, got.Whale.IsWhale)

	_, err = run(t, "power", "--staked", "0")
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	out, err := run(t, "config", "validate")
	require.NoError(t, err)
	assert.Equal(t, "config OK\n", out)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("safeguards:\n  weights:\n    staked: 90\n"), 0o600))
	_, err = run(t, "--config", path, "config", "validate")
	assert.Error(t, err)
}

func TestConfigShow(t *testing.T) {
	out, err := run(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "whale_discount_percent")
}

func TestStatsCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/stats", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"participants":3,"total_penalties_issued":2}`))
	}))
	defer srv.Close()

	out, err := run(t, "stats", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, `"participants": 3`)
	assert.Contains(t, out, `"total_penalties_issued": 2`)
}
