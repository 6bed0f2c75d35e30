// Package safeguards defines the fairness configuration bundle.
//
// Config holds the voting-power weights, anti-whale parameters, staking time
// requirements, duration multipliers and the suspicious-activity threshold.
// A Config is only ever used after Validate accepts it; Holder enforces that
// by refusing to swap in a bundle that fails validation.
package safeguards

import (
	"sync"

	"github.com/ocx/fairgov/internal/core"
)

// SecondsPerMonth is the month length used to bucket staking duration.
const SecondsPerMonth int64 = 30 * 24 * 60 * 60

// Weights are the percentages given to the four primary signals.
type Weights struct {
	Staked       uint8 `json:"staked" yaml:"staked"`
	Duration     uint8 `json:"duration" yaml:"duration"`
	Contribution uint8 `json:"contribution" yaml:"contribution"`
	Holding      uint8 `json:"holding" yaml:"holding"`
}

// Sum returns the total weight without overflowing uint8.
func (w Weights) Sum() uint16 {
	return uint16(w.Staked) + uint16(w.Duration) + uint16(w.Contribution) + uint16(w.Holding)
}

// Multipliers scale duration power by staking-age bucket.
type Multipliers struct {
	ShortTerm  uint8 `json:"short_term" yaml:"short_term"`   // 0-2 months
	MediumTerm uint8 `json:"medium_term" yaml:"medium_term"` // 3-5 months
	LongTerm   uint8 `json:"long_term" yaml:"long_term"`     // 6-11 months
	VeryLong   uint8 `json:"very_long" yaml:"very_long"`     // 12+ months
}

// Config is the SafeguardsConfig bundle.
type Config struct {
	Weights Weights `json:"weights" yaml:"weights"`

	// ── Anti-whale ──
	MaxVotingPowerPerWallet uint64 `json:"max_voting_power_per_wallet" yaml:"max_voting_power_per_wallet"`
	WhaleDiscountPercent    uint8  `json:"whale_discount_percent" yaml:"whale_discount_percent"`
	MaxConcentrationPercent uint8  `json:"max_concentration_percent" yaml:"max_concentration_percent"`
	WhaleCooldownPeriod     int64  `json:"whale_cooldown_period" yaml:"whale_cooldown_period"` // seconds

	// ── Time requirements ──
	MinStakingDuration     int64  `json:"min_staking_duration" yaml:"min_staking_duration"` // seconds
	MinStakedAmount        uint64 `json:"min_staked_amount" yaml:"min_staked_amount"`
	LockPeriodDuringVoting int64  `json:"lock_period_during_voting" yaml:"lock_period_during_voting"` // seconds

	Multipliers Multipliers `json:"multipliers" yaml:"multipliers"`

	// ── Detection ──
	SuspiciousActivityThreshold  uint64 `json:"suspicious_activity_threshold" yaml:"suspicious_activity_threshold"`
	ManipulationDetectionEnabled bool   `json:"manipulation_detection_enabled" yaml:"manipulation_detection_enabled"`
	AutomatedMonitoringEnabled   bool   `json:"automated_monitoring_enabled" yaml:"automated_monitoring_enabled"`
}

// DefaultConfig returns a bundle that passes Validate.
func DefaultConfig() Config {
	return Config{
		Weights: Weights{Staked: 40, Duration: 25, Contribution: 20, Holding: 15},

		MaxVotingPowerPerWallet: 10_000_000,
		WhaleDiscountPercent:    50,
		MaxConcentrationPercent: 5,
		WhaleCooldownPeriod:     24 * 60 * 60,

		MinStakingDuration:     7 * 24 * 60 * 60,
		MinStakedAmount:        1_000,
		LockPeriodDuringVoting: 3 * 24 * 60 * 60,

		Multipliers: Multipliers{ShortTerm: 1, MediumTerm: 2, LongTerm: 3, VeryLong: 4},

		SuspiciousActivityThreshold:  1_000_000,
		ManipulationDetectionEnabled: true,
		AutomatedMonitoringEnabled:   true,
	}
}

// WhaleThreshold is the power above which the whale discount applies.
func (c Config) WhaleThreshold() uint64 {
	return c.MaxVotingPowerPerWallet / 2
}

// MultiplierForMonths picks the duration multiplier for whole months staked.
func (c Config) MultiplierForMonths(months int64) uint8 {
	switch {
	case months <= 2:
		return c.Multipliers.ShortTerm
	case months <= 5:
		return c.Multipliers.MediumTerm
	case months <= 11:
		return c.Multipliers.LongTerm
	default:
		return c.Multipliers.VeryLong
	}
}

const validateOp = "safeguards.Validate"

// Validate checks the bundle, failing on the first violation and naming the
// violated field. It has no side effects.
func (c Config) Validate() error {
	if sum := c.Weights.Sum(); sum != 100 {
		return core.Configf(validateOp, "weights", "voting power weights must sum to 100, got %d", sum)
	}

	for _, m := range []struct {
		name string
		val  uint8
	}{
		{"short_term_multiplier", c.Multipliers.ShortTerm},
		{"medium_term_multiplier", c.Multipliers.MediumTerm},
		{"long_term_multiplier", c.Multipliers.LongTerm},
		{"very_long_multiplier", c.Multipliers.VeryLong},
	} {
		if m.val == 0 {
			return core.Configf(validateOp, m.name, "duration multiplier must be positive")
		}
	}

	if c.MaxVotingPowerPerWallet == 0 {
		return core.Configf(validateOp, "max_voting_power_per_wallet", "must be positive")
	}
	if c.WhaleDiscountPercent > 100 {
		return core.Configf(validateOp, "whale_discount_percent", "must be at most 100, got %d", c.WhaleDiscountPercent)
	}
	if c.MaxConcentrationPercent > 100 {
		return core.Configf(validateOp, "max_concentration_percent", "must be at most 100, got %d", c.MaxConcentrationPercent)
	}
	if c.MinStakingDuration <= 0 {
		return core.Configf(validateOp, "min_staking_duration", "must be positive, got %d", c.MinStakingDuration)
	}
	if c.MinStakedAmount == 0 {
		return core.Configf(validateOp, "min_staked_amount", "must be positive")
	}
	if c.LockPeriodDuringVoting < 0 {
		return core.Configf(validateOp, "lock_period_during_voting", "must not be negative, got %d", c.LockPeriodDuringVoting)
	}
	if c.WhaleCooldownPeriod < 0 {
		return core.Configf(validateOp, "whale_cooldown_period", "must not be negative, got %d", c.WhaleCooldownPeriod)
	}
	if c.SuspiciousActivityThreshold == 0 {
		return core.Configf(validateOp, "suspicious_activity_threshold", "must be positive")
	}

	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Holder: the single live bundle
// ──────────────────────────────────────────────────────────────────────────────

// Holder owns the active Config. The active bundle is never partially invalid:
// Replace validates the full candidate before swapping it in.
type Holder struct {
	mu  sync.RWMutex
	cfg Config
}

// NewHolder validates cfg and wraps it.
func NewHolder(cfg Config) (*Holder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Holder{cfg: cfg}, nil
}

// Get returns a copy of the active bundle.
func (h *Holder) Get() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Replace re-validates candidate and swaps it in. On failure the previous
// bundle stays active. It returns the bundle that was replaced.
func (h *Holder) Replace(candidate Config) (Config, error) {
	if err := candidate.Validate(); err != nil {
		return h.Get(), err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	old := h.cfg
	h.cfg = candidate
	return old, nil
}
