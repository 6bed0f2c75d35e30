package performance

import (
	"github.com/ocx/fairgov/internal/core"
)

const scoreOp = "performance.Score"

// Metrics are a creator's four quantitative and four qualitative measures.
// Qualitative measures are percentages.
type Metrics struct {
	// Quantitative (70% of the score)
	TokenPricePerformance uint64 `json:"token_price_performance"`
	TradingVolume         uint64 `json:"trading_volume"`
	CommunityGrowth       uint64 `json:"community_growth"`
	StakingParticipation  uint64 `json:"staking_participation"`

	// Qualitative (30% of the score)
	CommunitySatisfaction uint8 `json:"community_satisfaction"`
	MarketingEfforts      uint8 `json:"marketing_efforts"`
	CommunityEngagement   uint8 `json:"community_engagement"`
	TransparencyScore     uint8 `json:"transparency_score"`
}

// Validate checks that quantitative metrics are positive and qualitative
// metrics are at most 100.
func (m Metrics) Validate() error {
	for _, q := range []struct {
		name string
		val  uint64
	}{
		{"token_price_performance", m.TokenPricePerformance},
		{"trading_volume", m.TradingVolume},
		{"community_growth", m.CommunityGrowth},
		{"staking_participation", m.StakingParticipation},
	} {
		if q.val == 0 {
			return core.Preconditionf(scoreOp, q.name, "must be positive")
		}
	}
	for _, q := range []struct {
		name string
		val  uint8
	}{
		{"community_satisfaction", m.CommunitySatisfaction},
		{"marketing_efforts", m.MarketingEfforts},
		{"community_engagement", m.CommunityEngagement},
		{"transparency_score", m.TransparencyScore},
	} {
		if q.val > 100 {
			return core.Preconditionf(scoreOp, q.name, "must be at most 100, got %d", q.val)
		}
	}
	return nil
}

// Score computes the performance score in [0,100].
//
//	quant   = (price*25 + volume*20 + growth*15 + staking*10) / 70
//	qual    = (satisfaction*10 + marketing*8 + engagement*7 + transparency*5) / 30
//	overall = min(100, (quant*70 + qual*30) / 100)
func Score(m Metrics) (uint64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}

	quantSum, err := core.WeightedSum(scoreOp,
		[]uint64{m.TokenPricePerformance, m.TradingVolume, m.CommunityGrowth, m.StakingParticipation},
		[]uint64{25, 20, 15, 10})
	if err != nil {
		return 0, err
	}
	quant := quantSum / 70

	// Bounded by 100*30, cannot overflow.
	qual := (uint64(m.CommunitySatisfaction)*10 +
		uint64(m.MarketingEfforts)*8 +
		uint64(m.CommunityEngagement)*7 +
		uint64(m.TransparencyScore)*5) / 30

	weightedQuant, err := core.MulU64(scoreOp, quant, 70)
	if err != nil {
		return 0, err
	}
	total, err := core.AddU64(scoreOp, weightedQuant, qual*30)
	if err != nil {
		return 0, err
	}

	overall := total / 100
	if overall > 100 {
		overall = 100
	}
	return overall, nil
}

// release bands, highest first; scores below the last band get floorRelease.
var releaseBands = []struct {
	min     uint64
	percent uint8
}{
	{90, 100},
	{80, 85},
	{70, 70},
	{60, 55},
	{50, 40},
	{40, 25},
	{30, 15},
}

const floorRelease uint8 = 10

// ReleasePercentage maps a score to the share of a creator's held
// allocation that unlocks. Full release is reserved for scores of 90 and
// above; even a failing score releases 10%. Scores above 100 are treated as
// 100.
func ReleasePercentage(score uint64) uint8 {
	for _, b := range releaseBands {
		if score >= b.min {
			return b.percent
		}
	}
	return floorRelease
}
