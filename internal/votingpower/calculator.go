// Package votingpower turns a participant's raw signals into a single
// voting-power value.
//
// Four primary signals (stake, staking duration, community contribution,
// token holding) are transformed and combined with the configured weights.
// Four anti-manipulation signals (consistency, reputation, participation,
// contribution quality) add an averaged bonus. The sum is passed through the
// whale guard. Every multiplication and addition is overflow-checked.
package votingpower

import (
	"math"

	"github.com/ocx/fairgov/internal/core"
	"github.com/ocx/fairgov/internal/safeguards"
	"github.com/ocx/fairgov/internal/whale"
)

// Reputation bounds accepted from collaborators.
const (
	MinReputation int32 = -100
	MaxReputation int32 = 1000
)

const (
	stakedScale  = 1_000_000
	durationBase = 1_000_000
	holdingScale = 1_000
	computeOp    = "votingpower.Compute"
)

// Signals are the eight raw inputs for one participant.
type Signals struct {
	StakedAmount          uint64 `json:"staked_amount"`
	StakingDuration       int64  `json:"staking_duration"` // seconds
	CommunityContribution uint64 `json:"community_contribution"`
	TokenHolding          uint64 `json:"token_holding"`
	ConsistencyScore      uint64 `json:"consistency_score"`
	ReputationScore       int32  `json:"reputation_score"`
	ParticipationHistory  uint64 `json:"participation_history"`
	ContributionQuality   uint64 `json:"contribution_quality"`
}

// Validate checks the up-front bounds shared by every transform.
func (s Signals) Validate() error {
	if s.StakedAmount == 0 {
		return core.Preconditionf(computeOp, "staked_amount", "must be positive")
	}
	if s.StakingDuration < 0 {
		return core.Preconditionf(computeOp, "staking_duration", "must not be negative, got %d", s.StakingDuration)
	}
	if s.ReputationScore < MinReputation || s.ReputationScore > MaxReputation {
		return core.Preconditionf(computeOp, "reputation_score", "must be within [%d,%d], got %d",
			MinReputation, MaxReputation, s.ReputationScore)
	}
	return nil
}

// Breakdown exposes every intermediate value of one computation.
type Breakdown struct {
	StakedPower        uint64 `json:"staked_power"`
	DurationPower      uint64 `json:"duration_power"`
	ContributionPower  uint64 `json:"contribution_power"`
	HoldingPower       uint64 `json:"holding_power"`
	ConsistencyPower   uint64 `json:"consistency_power"`
	ReputationPower    uint64 `json:"reputation_power"`
	ParticipationPower uint64 `json:"participation_power"`
	QualityPower       uint64 `json:"quality_power"`

	Weighted   uint64 `json:"weighted"`
	Bonus      uint64 `json:"bonus"`
	RawPower   uint64 `json:"raw_power"`
	FinalPower uint64 `json:"final_power"`
	Discounted bool   `json:"discounted"`
}

// Compute returns the final (whale-guarded) voting power.
func Compute(s Signals, cfg safeguards.Config) (uint64, error) {
	b, err := ComputeBreakdown(s, cfg)
	if err != nil {
		return 0, err
	}
	return b.FinalPower, nil
}

// ComputeBreakdown runs the full pipeline and keeps the intermediates.
func ComputeBreakdown(s Signals, cfg safeguards.Config) (Breakdown, error) {
	if err := s.Validate(); err != nil {
		return Breakdown{}, err
	}

	var b Breakdown
	var err error

	if b.StakedPower, err = StakedPower(s.StakedAmount, cfg); err != nil {
		return Breakdown{}, err
	}
	if b.DurationPower, err = DurationPower(s.StakingDuration, cfg); err != nil {
		return Breakdown{}, err
	}
	if b.ContributionPower, err = ContributionPower(s.CommunityContribution); err != nil {
		return Breakdown{}, err
	}
	if b.HoldingPower, err = HoldingPower(s.TokenHolding); err != nil {
		return Breakdown{}, err
	}
	if b.ConsistencyPower, err = ConsistencyPower(s.ConsistencyScore); err != nil {
		return Breakdown{}, err
	}
	if b.ReputationPower, err = ReputationPower(s.ReputationScore); err != nil {
		return Breakdown{}, err
	}
	if b.ParticipationPower, err = ParticipationPower(s.ParticipationHistory); err != nil {
		return Breakdown{}, err
	}
	if b.QualityPower, err = QualityPower(s.ContributionQuality); err != nil {
		return Breakdown{}, err
	}

	weightedSum, err := core.WeightedSum(computeOp,
		[]uint64{b.StakedPower, b.DurationPower, b.ContributionPower, b.HoldingPower},
		[]uint64{
			uint64(cfg.Weights.Staked),
			uint64(cfg.Weights.Duration),
			uint64(cfg.Weights.Contribution),
			uint64(cfg.Weights.Holding),
		})
	if err != nil {
		return Breakdown{}, err
	}
	b.Weighted = weightedSum / 100

	bonusSum, err := core.SumU64(computeOp, b.ConsistencyPower, b.ReputationPower, b.ParticipationPower, b.QualityPower)
	if err != nil {
		return Breakdown{}, err
	}
	b.Bonus = bonusSum / 4

	if b.RawPower, err = core.AddU64(computeOp, b.Weighted, b.Bonus); err != nil {
		return Breakdown{}, err
	}

	b.FinalPower = whale.ApplyCap(b.RawPower, s.StakedAmount, cfg)
	b.Discounted = b.FinalPower != b.RawPower
	return b, nil
}

// ============================================================================
// PER-SIGNAL TRANSFORMS
// ============================================================================

// StakedPower is floor(ln(staked) * 1e6); logarithmic so that large stakes
// gain sub-linear power.
func StakedPower(staked uint64, cfg safeguards.Config) (uint64, error) {
	if staked < cfg.MinStakedAmount {
		return 0, core.Preconditionf(computeOp, "staked_amount", "%d is below the minimum stake %d", staked, cfg.MinStakedAmount)
	}
	if staked == 0 {
		return 0, core.Preconditionf(computeOp, "staked_amount", "must be positive")
	}
	return uint64(math.Log(float64(staked)) * stakedScale), nil
}

// DurationPower buckets whole months staked into a configured multiplier.
func DurationPower(duration int64, cfg safeguards.Config) (uint64, error) {
	if duration < cfg.MinStakingDuration {
		return 0, core.Preconditionf(computeOp, "staking_duration", "%d is below the minimum staking duration %d",
			duration, cfg.MinStakingDuration)
	}
	months := duration / safeguards.SecondsPerMonth
	return core.MulU64(computeOp, durationBase, uint64(cfg.MultiplierForMonths(months)))
}

// ContributionPower is contribution * 2.
func ContributionPower(contribution uint64) (uint64, error) {
	if contribution == 0 {
		return 0, core.Preconditionf(computeOp, "community_contribution", "must be positive")
	}
	return core.MulU64(computeOp, contribution, 2)
}

// HoldingPower is floor(sqrt(holding)) * 1000.
func HoldingPower(holding uint64) (uint64, error) {
	if holding == 0 {
		return 0, core.Preconditionf(computeOp, "token_holding", "must be positive")
	}
	return core.MulU64(computeOp, ISqrt(holding), holdingScale)
}

// ConsistencyPower triples scores of 80 and above, doubles the rest.
func ConsistencyPower(score uint64) (uint64, error) {
	return tiered("consistency_score", score, 80)
}

// ReputationPower clamps negative reputation to zero, then multiplies by
// 4 (>=800), 3 (>=500) or 2.
func ReputationPower(reputation int32) (uint64, error) {
	if reputation < MinReputation || reputation > MaxReputation {
		return 0, core.Preconditionf(computeOp, "reputation_score", "must be within [%d,%d], got %d",
			MinReputation, MaxReputation, reputation)
	}
	if reputation < 0 {
		return 0, nil
	}
	adjusted := uint64(reputation)
	switch {
	case adjusted >= 800:
		return adjusted * 4, nil
	case adjusted >= 500:
		return adjusted * 3, nil
	default:
		return adjusted * 2, nil
	}
}

// ParticipationPower triples a history of 100 and above, doubles the rest.
func ParticipationPower(history uint64) (uint64, error) {
	return tiered("participation_history", history, 100)
}

// QualityPower triples quality of 80 and above, doubles the rest.
func QualityPower(quality uint64) (uint64, error) {
	return tiered("contribution_quality", quality, 80)
}

func tiered(field string, v, bonusFrom uint64) (uint64, error) {
	if v == 0 {
		return 0, core.Preconditionf(computeOp, field, "must be positive")
	}
	if v >= bonusFrom {
		return core.MulU64(computeOp, v, 3)
	}
	return core.MulU64(computeOp, v, 2)
}

// ISqrt returns floor(sqrt(x)) exactly, correcting the float estimate so the
// result does not depend on float rounding.
func ISqrt(x uint64) uint64 {
	if x < 2 {
		return x
	}
	r := uint64(math.Sqrt(float64(x)))
	for r > 0 && (r > math.MaxUint32 || r*r > x) {
		r--
	}
	for r+1 <= math.MaxUint32 && (r+1)*(r+1) <= x {
		r++
	}
	return r
}
