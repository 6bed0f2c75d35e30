package whale

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/fairgov/internal/core"
	"github.com/ocx/fairgov/internal/safeguards"
)

func TestApplyCap(t *testing.T) {
	cfg := safeguards.DefaultConfig() // max 10_000_000, discount 50%

	tests := []struct {
		name string
		raw  uint64
		want uint64
	}{
		{"below threshold unchanged", 4_000_000, 4_000_000},
		{"at threshold unchanged", 5_000_000, 5_000_000},
		{"above threshold discounted", 6_000_000, 3_000_000},
		{"at ceiling discounted", 10_000_000, 5_000_000},
		{"above ceiling capped", 10_000_001, 10_000_000},
		{"huge capped", math.MaxUint64, 10_000_000},
		{"zero", 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ApplyCap(tt.raw, 1_000, cfg))
		})
	}
}

func TestApplyCapNeverExceedsCeiling(t *testing.T) {
	for _, discount := range []uint8{0, 1, 50, 99, 100} {
		cfg := safeguards.DefaultConfig()
		cfg.WhaleDiscountPercent = discount
		for _, raw := range []uint64{0, 1, 4_999_999, 5_000_001, 9_999_999, 10_000_000, 10_000_001, math.MaxUint64} {
			assert.LessOrEqual(t, ApplyCap(raw, 0, cfg), cfg.MaxVotingPowerPerWallet)
		}
	}
}

func TestApplyCapFullDiscountWithHugeCeiling(t *testing.T) {
	cfg := safeguards.DefaultConfig()
	cfg.MaxVotingPowerPerWallet = math.MaxUint64
	cfg.WhaleDiscountPercent = 0
	raw := uint64(math.MaxUint64 - 1)
	assert.Equal(t, raw, ApplyCap(raw, 0, cfg))
}

func TestIsWhale(t *testing.T) {
	cfg := safeguards.DefaultConfig() // 5%

	whale, err := IsWhale(6, 100, cfg)
	require.NoError(t, err)
	assert.True(t, whale)

	whale, err = IsWhale(5, 100, cfg)
	require.NoError(t, err)
	assert.False(t, whale, "exactly at the concentration limit is not a whale")

	_, err = IsWhale(1, 0, cfg)
	assert.True(t, errors.Is(err, core.ErrArithmetic))
}

func TestIsUnderCooldown(t *testing.T) {
	cfg := safeguards.DefaultConfig()
	cfg.WhaleCooldownPeriod = 3600

	assert.True(t, IsUnderCooldown(1_000, 1_000+3599, cfg))
	assert.False(t, IsUnderCooldown(1_000, 1_000+3600, cfg))

	cfg.WhaleCooldownPeriod = 0
	assert.False(t, IsUnderCooldown(1_000, 1_000, cfg))
}

func TestAssess(t *testing.T) {
	cfg := safeguards.DefaultConfig()

	a, err := Assess(6_000_000, 50, 100, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint64(3_000_000), a.FinalPower)
	assert.True(t, a.DiscountApplied)
	assert.True(t, a.IsWhale)
	assert.Equal(t, uint8(50), a.ConcentrationPercent)

	a, err = Assess(1_000, 50, 0, cfg)
	require.NoError(t, err)
	assert.False(t, a.IsWhale)
	assert.False(t, a.DiscountApplied)
	assert.Equal(t, uint64(1_000), a.FinalPower)

	a, err = Assess(1_000, 300, 100, cfg)
	require.NoError(t, err)
	assert.Equal(t, uint8(100), a.ConcentrationPercent)
}
