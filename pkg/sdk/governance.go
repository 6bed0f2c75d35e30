package sdk

import (
	"context"
	"net/http"

	"github.com/ocx/fairgov/internal/appeal"
	"github.com/ocx/fairgov/internal/detection"
	"github.com/ocx/fairgov/internal/engine"
	"github.com/ocx/fairgov/internal/participant"
	"github.com/ocx/fairgov/internal/penalty"
	"github.com/ocx/fairgov/internal/performance"
	"github.com/ocx/fairgov/internal/safeguards"
	"github.com/ocx/fairgov/internal/votingpower"
)

// ----------------------------------------------------------------
// config & compute
// ----------------------------------------------------------------

func (c *Client) Config(ctx context.Context) (*safeguards.Config, error) {
	var out safeguards.Config
	return &out, c.do(ctx, http.MethodGet, "/api/v1/config", nil, &out)
}

// UpdateConfig replaces the active safeguards. The server keeps the old
// bundle when the new one is invalid.
func (c *Client) UpdateConfig(ctx context.Context, cfg safeguards.Config) (*safeguards.Config, error) {
	var out safeguards.Config
	return &out, c.do(ctx, http.MethodPut, "/api/v1/config", cfg, &out)
}

func (c *Client) ValidateConfig(ctx context.Context, cfg safeguards.Config) error {
	return c.do(ctx, http.MethodPost, "/api/v1/config/validate", cfg, nil)
}

func (c *Client) VotingPower(ctx context.Context, s votingpower.Signals) (*votingpower.Breakdown, error) {
	var out votingpower.Breakdown
	return &out, c.do(ctx, http.MethodPost, "/api/v1/voting-power", s, &out)
}

func (c *Client) Stats(ctx context.Context) (*engine.Stats, error) {
	var out engine.Stats
	return &out, c.do(ctx, http.MethodGet, "/api/v1/stats", nil, &out)
}

// ----------------------------------------------------------------
// participants
// ----------------------------------------------------------------

func (c *Client) RegisterParticipant(ctx context.Context, id string, s votingpower.Signals) (*participant.Participant, error) {
	in := map[string]interface{}{"id": id, "signals": s}
	var out participant.Participant
	return &out, c.do(ctx, http.MethodPost, "/api/v1/participants", in, &out)
}

func (c *Client) Participant(ctx context.Context, id string) (*participant.Participant, error) {
	var out participant.Participant
	return &out, c.do(ctx, http.MethodGet, pathID("/api/v1/participants/%s", id), nil, &out)
}

// UpdateSignals recomputes voting power. totalSupply 0 skips the
// concentration check.
func (c *Client) UpdateSignals(ctx context.Context, id string, s votingpower.Signals, totalSupply uint64) (*participant.Participant, *votingpower.Breakdown, error) {
	in := map[string]interface{}{"signals": s, "total_supply": totalSupply}
	var out struct {
		Participant participant.Participant `json:"participant"`
		Breakdown   votingpower.Breakdown   `json:"breakdown"`
	}
	if err := c.do(ctx, http.MethodPut, pathID("/api/v1/participants/%s/signals", id), in, &out); err != nil {
		return nil, nil, err
	}
	return &out.Participant, &out.Breakdown, nil
}

// SetBalance records the participant's token balance.
func (c *Client) SetBalance(ctx context.Context, id string, balance uint64) (*participant.Participant, error) {
	in := map[string]interface{}{"balance": balance}
	var out participant.Participant
	return &out, c.do(ctx, http.MethodPut, pathID("/api/v1/participants/%s/balance", id), in, &out)
}

// Eligibility reports whether the participant may vote now and, if not, why.
func (c *Client) Eligibility(ctx context.Context, id string) (bool, string, error) {
	var out struct {
		Eligible bool   `json:"eligible"`
		Reason   string `json:"reason"`
	}
	err := c.do(ctx, http.MethodGet, pathID("/api/v1/participants/%s/eligibility", id), nil, &out)
	return out.Eligible, out.Reason, err
}

func (c *Client) RecordVote(ctx context.Context, id string) (*participant.Participant, error) {
	var out participant.Participant
	return &out, c.do(ctx, http.MethodPost, pathID("/api/v1/participants/%s/votes", id), nil, &out)
}

// ----------------------------------------------------------------
// creators
// ----------------------------------------------------------------

func (c *Client) RegisterCreator(ctx context.Context, in engine.NewCreator) (*performance.CreatorPerformance, error) {
	var out performance.CreatorPerformance
	return &out, c.do(ctx, http.MethodPost, "/api/v1/creators", in, &out)
}

func (c *Client) ScoreCreator(ctx context.Context, id string, m performance.Metrics) (*performance.CreatorPerformance, error) {
	var out performance.CreatorPerformance
	return &out, c.do(ctx, http.MethodPut, pathID("/api/v1/creators/%s/performance", id), m, &out)
}

func (c *Client) RecordFeedback(ctx context.Context, id string, positive bool) (*performance.CreatorPerformance, error) {
	var out performance.CreatorPerformance
	return &out, c.do(ctx, http.MethodPost, pathID("/api/v1/creators/%s/feedback", id), map[string]bool{"positive": positive}, &out)
}

// ----------------------------------------------------------------
// alerts, penalties, appeals
// ----------------------------------------------------------------

func (c *Client) CreateAlert(ctx context.Context, in detection.NewAlert) (*detection.Alert, error) {
	var out detection.Alert
	return &out, c.do(ctx, http.MethodPost, "/api/v1/alerts", in, &out)
}

// AlertAction applies investigate, resolve, false-positive or dismiss.
func (c *Client) AlertAction(ctx context.Context, id uint64, event detection.AlertEvent, act detection.AlertAction) (*detection.Alert, error) {
	var out detection.Alert
	path := pathID("/api/v1/alerts/%s/", id) + string(event)
	return &out, c.do(ctx, http.MethodPost, path, act, &out)
}

func (c *Client) IssuePenalty(ctx context.Context, in penalty.NewPenalty) (*penalty.Penalty, error) {
	var out penalty.Penalty
	return &out, c.do(ctx, http.MethodPost, "/api/v1/penalties", in, &out)
}

func (c *Client) Penalty(ctx context.Context, id uint64) (*penalty.Penalty, error) {
	var out penalty.Penalty
	return &out, c.do(ctx, http.MethodGet, pathID("/api/v1/penalties/%s", id), nil, &out)
}

func (c *Client) PayPenalty(ctx context.Context, id uint64) (*penalty.Penalty, error) {
	var out penalty.Penalty
	return &out, c.do(ctx, http.MethodPost, pathID("/api/v1/penalties/%s/pay", id), nil, &out)
}

func (c *Client) SubmitAppeal(ctx context.Context, in appeal.NewAppeal) (*appeal.Appeal, error) {
	var out appeal.Appeal
	return &out, c.do(ctx, http.MethodPost, "/api/v1/appeals", in, &out)
}

func (c *Client) AssemblePanel(ctx context.Context, id uint64, reviewers []string) (*appeal.Appeal, error) {
	var out appeal.Appeal
	in := map[string][]string{"reviewers": reviewers}
	return &out, c.do(ctx, http.MethodPost, pathID("/api/v1/appeals/%s/panel", id), in, &out)
}

func (c *Client) CastPanelVote(ctx context.Context, id uint64, reviewer string, overturn bool, comment string) (*appeal.Appeal, error) {
	var out appeal.Appeal
	in := map[string]interface{}{"reviewer": reviewer, "overturn": overturn, "comment": comment}
	return &out, c.do(ctx, http.MethodPost, pathID("/api/v1/appeals/%s/votes", id), in, &out)
}

func (c *Client) ResolveAppeal(ctx context.Context, id uint64, res appeal.Resolution) (*appeal.Appeal, error) {
	var out appeal.Appeal
	return &out, c.do(ctx, http.MethodPost, pathID("/api/v1/appeals/%s/resolve", id), res, &out)
}
