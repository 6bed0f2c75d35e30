package votingpower

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/fairgov/internal/core"
	"github.com/ocx/fairgov/internal/safeguards"
)

const day = 24 * 60 * 60

func scenarioSignals() Signals {
	return Signals{
		StakedAmount:          1_000_000,
		StakingDuration:       200 * day,
		CommunityContribution: 500,
		TokenHolding:          900,
		ConsistencyScore:      90,
		ReputationScore:       850,
		ParticipationHistory:  150,
		ContributionQuality:   85,
	}
}

func TestScenarioTriggersWhaleDiscount(t *testing.T) {
	cfg := safeguards.DefaultConfig()
	require.NoError(t, cfg.Validate())

	b, err := ComputeBreakdown(scenarioSignals(), cfg)
	require.NoError(t, err)

	assert.Equal(t, uint64(13_815_510), b.StakedPower)
	assert.Equal(t, uint64(3_000_000), b.DurationPower, "200 days is 6 whole months: long-term bucket")
	assert.Equal(t, uint64(1_000), b.ContributionPower)
	assert.Equal(t, uint64(30_000), b.HoldingPower)
	assert.Equal(t, uint64(270), b.ConsistencyPower)
	assert.Equal(t, uint64(3_400), b.ReputationPower)
	assert.Equal(t, uint64(450), b.ParticipationPower)
	assert.Equal(t, uint64(255), b.QualityPower)

	assert.Equal(t, uint64(6_280_904), b.Weighted)
	assert.Equal(t, uint64(1_093), b.Bonus)
	assert.Equal(t, uint64(6_281_997), b.RawPower)

	assert.Greater(t, b.RawPower, cfg.WhaleThreshold())
	assert.True(t, b.Discounted)
	assert.Equal(t, uint64(3_140_998), b.FinalPower)
	assert.Less(t, b.FinalPower, b.RawPower)
	assert.LessOrEqual(t, b.FinalPower, cfg.MaxVotingPowerPerWallet)

	power, err := Compute(scenarioSignals(), cfg)
	require.NoError(t, err)
	assert.Equal(t, b.FinalPower, power)
}

func TestUpfrontPreconditions(t *testing.T) {
	cfg := safeguards.DefaultConfig()
	tests := []struct {
		name   string
		mutate func(*Signals)
		field  string
	}{
		{"zero stake", func(s *Signals) { s.StakedAmount = 0 }, "staked_amount"},
		{"negative duration", func(s *Signals) { s.StakingDuration = -1 }, "staking_duration"},
		{"reputation too low", func(s *Signals) { s.ReputationScore = -101 }, "reputation_score"},
		{"reputation too high", func(s *Signals) { s.ReputationScore = 1001 }, "reputation_score"},
		{"stake below minimum", func(s *Signals) { s.StakedAmount = 999 }, "staked_amount"},
		{"duration below minimum", func(s *Signals) { s.StakingDuration = 6 * day }, "staking_duration"},
		{"zero contribution", func(s *Signals) { s.CommunityContribution = 0 }, "community_contribution"},
		{"zero holding", func(s *Signals) { s.TokenHolding = 0 }, "token_holding"},
		{"zero consistency", func(s *Signals) { s.ConsistencyScore = 0 }, "consistency_score"},
		{"zero participation", func(s *Signals) { s.ParticipationHistory = 0 }, "participation_history"},
		{"zero quality", func(s *Signals) { s.ContributionQuality = 0 }, "contribution_quality"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := scenarioSignals()
			tt.mutate(&s)
			_, err := Compute(s, cfg)
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrPrecondition))
			var cerr *core.Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestDurationBuckets(t *testing.T) {
	cfg := safeguards.DefaultConfig()
	cfg.MinStakingDuration = 1
	month := safeguards.SecondsPerMonth

	cases := []struct {
		duration int64
		want     uint64
	}{
		{1, 1_000_000},
		{3*month - 1, 1_000_000},
		{3 * month, 2_000_000},
		{6*month - 1, 2_000_000},
		{6 * month, 3_000_000},
		{12*month - 1, 3_000_000},
		{12 * month, 4_000_000},
		{60 * month, 4_000_000},
	}
	for _, c := range cases {
		got, err := DurationPower(c.duration, cfg)
		require.NoError(t, err)
		assert.Equal(t, c.want, got, "duration=%d", c.duration)
	}
}

func TestReputationPowerTiers(t *testing.T) {
	cases := map[int32]uint64{-100: 0, -1: 0, 0: 0, 499: 998, 500: 1_500, 799: 2_397, 800: 3_200, 1000: 4_000}
	for rep, want := range cases {
		got, err := ReputationPower(rep)
		require.NoError(t, err)
		assert.Equal(t, want, got, "reputation=%d", rep)
	}
}

func TestTieredBonuses(t *testing.T) {
	p, _ := ConsistencyPower(79)
	assert.Equal(t, uint64(158), p)
	p, _ = ConsistencyPower(80)
	assert.Equal(t, uint64(240), p)

	p, _ = ParticipationPower(99)
	assert.Equal(t, uint64(198), p)
	p, _ = ParticipationPower(100)
	assert.Equal(t, uint64(300), p)

	p, _ = QualityPower(1)
	assert.Equal(t, uint64(2), p)
}

func TestBonusSignalsMustBePositive(t *testing.T) {
	transforms := map[string]func(uint64) (uint64, error){
		"community_contribution": ContributionPower,
		"token_holding":          HoldingPower,
		"consistency_score":      ConsistencyPower,
		"participation_history":  ParticipationPower,
		"contribution_quality":   QualityPower,
	}
	for field, fn := range transforms {
		t.Run(field, func(t *testing.T) {
			_, err := fn(0)
			var cerr *core.Error
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, core.KindPrecondition, cerr.Kind)
			assert.Equal(t, field, cerr.Field)

			_, err = fn(1)
			assert.NoError(t, err)
		})
	}
}

func TestHoldingPowerFloorsSquareRoot(t *testing.T) {
	p, err := HoldingPower(899)
	require.NoError(t, err)
	assert.Equal(t, uint64(29_000), p)

	for _, x := range []uint64{0, 1, 2, 3, 4, 15, 16, 17, 1 << 52, (1 << 52) + 1, math.MaxUint64} {
		r := ISqrt(x)
		assert.LessOrEqual(t, r*r, x, "x=%d", x)
		if r < math.MaxUint32 {
			assert.Greater(t, (r+1)*(r+1), x, "x=%d", x)
		}
	}
	assert.Equal(t, uint64(math.MaxUint32), ISqrt(math.MaxUint64))
}

func TestOverflowIsReported(t *testing.T) {
	cfg := safeguards.DefaultConfig()
	s := scenarioSignals()
	s.CommunityContribution = math.MaxUint64
	_, err := Compute(s, cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrArithmetic))

	s = scenarioSignals()
	s.ConsistencyScore = math.MaxUint64 / 2
	_, err = Compute(s, cfg)
	assert.True(t, errors.Is(err, core.ErrArithmetic))
}

func TestPowerNonDecreasingInStake(t *testing.T) {
	cfg := safeguards.DefaultConfig()
	cfg.MaxVotingPowerPerWallet = math.MaxUint64

	var prevFinal, prevRaw uint64
	for staked := uint64(1_000); staked <= 1_000_000_000_000; staked = staked*3 + 7 {
		s := scenarioSignals()
		s.StakedAmount = staked
		b, err := ComputeBreakdown(s, cfg)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, b.FinalPower, prevFinal, "staked=%d", staked)
		assert.GreaterOrEqual(t, b.RawPower, prevRaw, "staked=%d", staked)
		prevFinal, prevRaw = b.FinalPower, b.RawPower
	}
}

func TestRawPowerNonDecreasingUnderDefaultCap(t *testing.T) {
	cfg := safeguards.DefaultConfig()

	var prev uint64
	for staked := uint64(1_000); staked <= 1<<50; staked *= 2 {
		s := scenarioSignals()
		s.StakedAmount = staked
		b, err := ComputeBreakdown(s, cfg)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, b.RawPower, prev)
		assert.LessOrEqual(t, b.FinalPower, cfg.MaxVotingPowerPerWallet)
		prev = b.RawPower
	}
}
