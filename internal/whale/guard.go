// Package whale caps and discounts concentrated voting power and flags
// wallets whose stake concentration or vote cadence needs restraint.
//
// The three checks (cap, concentration flag, cooldown) are independent;
// callers compose them.
package whale

import (
	"math/bits"

	"github.com/ocx/fairgov/internal/core"
	"github.com/ocx/fairgov/internal/safeguards"
)

// ApplyCap enforces the hard ceiling and the whale discount.
//
// Above MaxVotingPowerPerWallet the ceiling is returned. Above half the
// ceiling the power is discounted by WhaleDiscountPercent. Otherwise the
// power is returned unchanged. The result never exceeds the ceiling.
// stakedAmount is accepted for callers that log it; the cap is power-based.
func ApplyCap(rawPower, stakedAmount uint64, cfg safeguards.Config) uint64 {
	if rawPower > cfg.MaxVotingPowerPerWallet {
		return cfg.MaxVotingPowerPerWallet
	}
	if rawPower > cfg.WhaleThreshold() {
		keep := uint64(100) - uint64(cfg.WhaleDiscountPercent)
		hi, lo := bits.Mul64(rawPower, keep)
		q, _ := bits.Div64(hi, lo, 100) // hi < 100 since keep <= 100
		return q
	}
	return rawPower
}

// Discounted reports whether ApplyCap changes rawPower.
func Discounted(rawPower uint64, cfg safeguards.Config) bool {
	if rawPower > cfg.MaxVotingPowerPerWallet {
		return true
	}
	return rawPower > cfg.WhaleThreshold() && cfg.WhaleDiscountPercent > 0
}

// Concentration returns stakedAmount * 100 / totalSupply.
func Concentration(stakedAmount, totalSupply uint64) (uint64, error) {
	if totalSupply == 0 {
		return 0, core.Arithmeticf("whale.Concentration", "total supply is zero")
	}
	hi, lo := bits.Mul64(stakedAmount, 100)
	if hi >= totalSupply {
		return 0, core.Arithmeticf("whale.Concentration", "concentration of %d over %d overflows", stakedAmount, totalSupply)
	}
	q, _ := bits.Div64(hi, lo, totalSupply)
	return q, nil
}

// IsWhale flags a wallet whose stake concentration exceeds
// MaxConcentrationPercent.
func IsWhale(stakedAmount, totalSupply uint64, cfg safeguards.Config) (bool, error) {
	pct, err := Concentration(stakedAmount, totalSupply)
	if err != nil {
		return false, err
	}
	return pct > uint64(cfg.MaxConcentrationPercent), nil
}

// IsUnderCooldown reports whether fewer than WhaleCooldownPeriod seconds
// have elapsed since lastVoteTime.
func IsUnderCooldown(lastVoteTime, now int64, cfg safeguards.Config) bool {
	return now-lastVoteTime < cfg.WhaleCooldownPeriod
}

// Assessment bundles the whale checks for one participant.
type Assessment struct {
	FinalPower           uint64 `json:"final_power"`
	DiscountApplied      bool   `json:"discount_applied"`
	IsWhale              bool   `json:"is_whale"`
	ConcentrationPercent uint8  `json:"concentration_percent"`
}

// Assess runs ApplyCap and, when totalSupply is non-zero, the concentration
// flag. ConcentrationPercent saturates at 100.
func Assess(rawPower, stakedAmount, totalSupply uint64, cfg safeguards.Config) (Assessment, error) {
	a := Assessment{
		FinalPower:      ApplyCap(rawPower, stakedAmount, cfg),
		DiscountApplied: Discounted(rawPower, cfg),
	}
	if totalSupply == 0 {
		return a, nil
	}
	pct, err := Concentration(stakedAmount, totalSupply)
	if err != nil {
		return Assessment{}, err
	}
	a.IsWhale = pct > uint64(cfg.MaxConcentrationPercent)
	if pct > 100 {
		pct = 100
	}
	a.ConcentrationPercent = uint8(pct)
	return a, nil
}
