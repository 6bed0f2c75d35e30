package safeguards

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/fairgov/internal/core"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, uint16(100), cfg.Weights.Sum())
}

func TestValidateNamesFirstViolation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"weights under 100", func(c *Config) { c.Weights.Holding = 10 }, "weights"},
		{"weights over 100", func(c *Config) { c.Weights.Staked = 200 }, "weights"},
		{"zero short multiplier", func(c *Config) { c.Multipliers.ShortTerm = 0 }, "short_term_multiplier"},
		{"zero medium multiplier", func(c *Config) { c.Multipliers.MediumTerm = 0 }, "medium_term_multiplier"},
		{"zero long multiplier", func(c *Config) { c.Multipliers.LongTerm = 0 }, "long_term_multiplier"},
		{"zero very long multiplier", func(c *Config) { c.Multipliers.VeryLong = 0 }, "very_long_multiplier"},
		{"zero max power", func(c *Config) { c.MaxVotingPowerPerWallet = 0 }, "max_voting_power_per_wallet"},
		{"discount over 100", func(c *Config) { c.WhaleDiscountPercent = 101 }, "whale_discount_percent"},
		{"concentration over 100", func(c *Config) { c.MaxConcentrationPercent = 101 }, "max_concentration_percent"},
		{"zero min duration", func(c *Config) { c.MinStakingDuration = 0 }, "min_staking_duration"},
		{"zero min stake", func(c *Config) { c.MinStakedAmount = 0 }, "min_staked_amount"},
		{"negative lock", func(c *Config) { c.LockPeriodDuringVoting = -1 }, "lock_period_during_voting"},
		{"negative cooldown", func(c *Config) { c.WhaleCooldownPeriod = -1 }, "whale_cooldown_period"},
		{"zero suspicious threshold", func(c *Config) { c.SuspiciousActivityThreshold = 0 }, "suspicious_activity_threshold"},
		{"weights checked before multipliers", func(c *Config) {
			c.Weights.Staked = 0
			c.Multipliers.ShortTerm = 0
		}, "weights"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrConfig))

			var cerr *core.Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestZeroCooldownAndLockAreAllowed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WhaleCooldownPeriod = 0
	cfg.LockPeriodDuringVoting = 0
	assert.NoError(t, cfg.Validate())
}

func TestMultiplierForMonths(t *testing.T) {
	cfg := DefaultConfig()
	cases := map[int64]uint8{0: 1, 2: 1, 3: 2, 5: 2, 6: 3, 11: 3, 12: 4, 48: 4}
	for months, want := range cases {
		assert.Equal(t, want, cfg.MultiplierForMonths(months), "months=%d", months)
	}
}

func TestHolderKeepsPreviousOnInvalidReplace(t *testing.T) {
	h, err := NewHolder(DefaultConfig())
	require.NoError(t, err)

	bad := DefaultConfig()
	bad.Weights.Duration = 0
	_, err = h.Replace(bad)
	require.Error(t, err)
	assert.Equal(t, uint8(25), h.Get().Weights.Duration)

	good := DefaultConfig()
	good.WhaleDiscountPercent = 30
	old, err := h.Replace(good)
	require.NoError(t, err)
	assert.Equal(t, uint8(50), old.WhaleDiscountPercent)
	assert.Equal(t, uint8(30), h.Get().WhaleDiscountPercent)
}

func TestNewHolderRejectsInvalid(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinStakedAmount = 0
	_, err := NewHolder(cfg)
	assert.True(t, errors.Is(err, core.ErrConfig))
}
