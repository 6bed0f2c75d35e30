package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ocx/fairgov/internal/detection"
	"github.com/ocx/fairgov/internal/penalty"
	"github.com/ocx/fairgov/internal/performance"
	"github.com/ocx/fairgov/internal/votingpower"
	"github.com/ocx/fairgov/internal/whale"
)

// ============================================================================
// OFFLINE CALCULATORS
//
// These run the pure governance formulas against the configured bundle
// without touching a store.
// ============================================================================

func powerCommand() *cobra.Command {
	var (
		s           votingpower.Signals
		totalSupply uint64
	)
	cmd := &cobra.Command{
		Use:   "power",
		Short: "Compute voting power from raw signals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			b, err := votingpower.ComputeBreakdown(s, cfg.Safeguards)
			if err != nil {
				return err
			}
			out := map[string]interface{}{"breakdown": b}
			if totalSupply > 0 {
				a, err := whale.Assess(b.RawPower, s.StakedAmount, totalSupply, cfg.Safeguards)
				if err != nil {
					return err
				}
				out["whale"] = a
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	f := cmd.Flags()
	f.Uint64Var(&s.StakedAmount, "staked", 0, "staked token amount")
	f.Int64Var(&s.StakingDuration, "duration", 0, "staking duration in seconds")
	f.Uint64Var(&s.CommunityContribution, "contribution", 0, "community contribution")
	f.Uint64Var(&s.TokenHolding, "holding", 0, "token holding")
	f.Uint64Var(&s.ConsistencyScore, "consistency", 0, "consistency score")
	f.Int32Var(&s.ReputationScore, "reputation", 0, "reputation score")
	f.Uint64Var(&s.ParticipationHistory, "participation", 0, "participation history")
	f.Uint64Var(&s.ContributionQuality, "quality", 0, "contribution quality")
	f.Uint64Var(&totalSupply, "total-supply", 0, "total token supply for the whale assessment")
	return cmd
}

func scoreCommand() *cobra.Command {
	var m performance.Metrics
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score creator performance and derive the release percentage",
		RunE: func(cmd *cobra.Command, _ []string) error {
			score, err := performance.Score(m)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"performance_score":  score,
				"release_percentage": performance.ReleasePercentage(score),
			})
		},
	}
	f := cmd.Flags()
	f.Uint64Var(&m.TokenPricePerformance, "price", 0, "token price performance")
	f.Uint64Var(&m.TradingVolume, "volume", 0, "trading volume")
	f.Uint64Var(&m.CommunityGrowth, "growth", 0, "community growth")
	f.Uint64Var(&m.StakingParticipation, "staking", 0, "staking participation")
	f.Uint8Var(&m.CommunitySatisfaction, "satisfaction", 0, "community satisfaction percent")
	f.Uint8Var(&m.MarketingEfforts, "marketing", 0, "marketing efforts percent")
	f.Uint8Var(&m.CommunityEngagement, "engagement", 0, "community engagement percent")
	f.Uint8Var(&m.TransparencyScore, "transparency", 0, "transparency percent")
	return cmd
}

func riskCommand() *cobra.Command {
	var (
		alertType  string
		strength   uint8
		violations uint64
	)
	cmd := &cobra.Command{
		Use:   "risk",
		Short: "Score an alert and show the penalty its risk maps to",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			risk, err := detection.RiskScore(detection.AlertType(alertType), strength, violations)
			if err != nil {
				return err
			}
			typ := penalty.TypeForRisk(risk)
			amount, err := cfg.Penalties.AmountFor(typ)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]interface{}{
				"risk_score":     risk,
				"penalty_type":   typ,
				"penalty_amount": amount,
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&alertType, "type", "", fmt.Sprintf("alert type, one of %v", detection.AlertTypes))
	f.Uint8Var(&strength, "evidence", 50, "evidence strength (0-100)")
	f.Uint64Var(&violations, "violations", 0, "historical violations")
	return cmd
}
