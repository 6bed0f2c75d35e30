package appeal

import (
	"github.com/ocx/fairgov/internal/core"
)

// MaxPanelSize bounds review_panel_size.
const MaxPanelSize = 21

// Settings are the appeal parameters.
type Settings struct {
	ThresholdPercent uint8  `json:"threshold_percent" yaml:"threshold_percent"`
	AppealPeriod     int64  `json:"appeal_period" yaml:"appeal_period"`
	ReviewPanelSize  uint8  `json:"review_panel_size" yaml:"review_panel_size"`
	AppealFee        uint64 `json:"appeal_fee" yaml:"appeal_fee"`
}

// DefaultSettings: a seven-day window, five reviewers, 15% to overturn.
func DefaultSettings() Settings {
	return Settings{
		ThresholdPercent: 15,
		AppealPeriod:     7 * 24 * 60 * 60,
		ReviewPanelSize:  5,
		AppealFee:        1_000_000,
	}
}

// Validate checks the parameter bounds.
func (s Settings) Validate() error {
	const op = "appeal.Settings.Validate"
	if s.ThresholdPercent == 0 || s.ThresholdPercent > 100 {
		return core.Configf(op, "threshold_percent", "must be in 1..100, got %d", s.ThresholdPercent)
	}
	if s.AppealPeriod <= 0 {
		return core.Configf(op, "appeal_period", "must be positive")
	}
	if s.ReviewPanelSize == 0 || s.ReviewPanelSize > MaxPanelSize {
		return core.Configf(op, "review_panel_size", "must be in 1..%d, got %d", MaxPanelSize, s.ReviewPanelSize)
	}
	return nil
}

// System is the appeal aggregate. Counters change only in the same step as
// the appeal they count.
type System struct {
	Settings Settings `json:"settings"`

	TotalAppeals      uint64 `json:"total_appeals"`
	SuccessfulAppeals uint64 `json:"successful_appeals"`
	RejectedAppeals   uint64 `json:"rejected_appeals"`
	ExpiredAppeals    uint64 `json:"expired_appeals"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// NewSystem creates an empty aggregate.
func NewSystem(settings Settings, now int64) (*System, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &System{Settings: settings, CreatedAt: now, UpdatedAt: now}, nil
}

// NewAppeal is the input to Submit.
type NewAppeal struct {
	Appellant    string `json:"appellant"`
	PenaltyID    uint64 `json:"penalty_id,omitempty"`
	DecisionRef  string `json:"original_decision"`
	DecisionTime int64  `json:"-"` // set by the caller, never by the client
	Reason       string `json:"reason"`
	Evidence     string `json:"evidence"`
}

// Submit opens a pending appeal with an empty panel. The decision must still
// be inside the appeal period.
func (s *System) Submit(in NewAppeal, now int64) (*Appeal, error) {
	const op = "appeal.Submit"
	if in.Appellant == "" {
		return nil, core.Preconditionf(op, "appellant", "appellant is required")
	}
	if in.DecisionRef == "" && in.PenaltyID == 0 {
		return nil, core.Preconditionf(op, "original_decision", "a decision reference or penalty id is required")
	}
	if err := core.CheckLen(op, "reason", in.Reason, core.MaxAppealReasonLen); err != nil {
		return nil, err
	}
	if err := core.CheckLen(op, "evidence", in.Evidence, core.MaxAppealEvidenceLen); err != nil {
		return nil, err
	}
	if in.DecisionTime > now {
		return nil, core.Preconditionf(op, "decision_time", "decision time %d is in the future", in.DecisionTime)
	}
	if !PeriodActive(in.DecisionTime, now, s.Settings.AppealPeriod) {
		return nil, core.Statef(op, "appeal period for %q ended at %d", in.DecisionRef, in.DecisionTime+s.Settings.AppealPeriod)
	}

	s.TotalAppeals++
	s.UpdatedAt = now
	return &Appeal{
		ID:           s.TotalAppeals,
		Appellant:    in.Appellant,
		PenaltyID:    in.PenaltyID,
		DecisionRef:  in.DecisionRef,
		DecisionTime: in.DecisionTime,
		Reason:       in.Reason,
		Evidence:     in.Evidence,
		FeePaid:      s.Settings.AppealFee,
		Status:       StatusPending,
		Panel:        []string{},
		Votes:        []PanelVote{},
		SubmittedAt:  now,
		UpdatedAt:    now,
	}, nil
}

// AssemblePanel seats exactly ReviewPanelSize distinct reviewers, none of
// them the appellant, and starts the review.
func (s *System) AssemblePanel(a *Appeal, reviewers []string, now int64) error {
	const op = "appeal.AssemblePanel"
	next, err := NextStatus(a.Status, EventAssemblePanel)
	if err != nil {
		return err
	}
	if !PeriodActive(a.DecisionTime, now, s.Settings.AppealPeriod) {
		return core.Statef(op, "appeal %d is past its period", a.ID)
	}
	if len(reviewers) != int(s.Settings.ReviewPanelSize) {
		return core.Preconditionf(op, "reviewers", "panel needs %d reviewers, got %d", s.Settings.ReviewPanelSize, len(reviewers))
	}
	seen := make(map[string]struct{}, len(reviewers))
	for _, r := range reviewers {
		if r == "" {
			return core.Preconditionf(op, "reviewers", "reviewer id is required")
		}
		if r == a.Appellant {
			return core.Preconditionf(op, "reviewers", "appellant %s cannot review their own appeal", r)
		}
		if _, dup := seen[r]; dup {
			return core.Preconditionf(op, "reviewers", "reviewer %s listed twice", r)
		}
		seen[r] = struct{}{}
	}

	a.Panel = append([]string(nil), reviewers...)
	a.Status = next
	a.ReviewStartedAt = now
	a.UpdatedAt = now
	s.UpdatedAt = now
	return nil
}

// CastVote records one panel member's vote while the review is open.
func (s *System) CastVote(a *Appeal, reviewer string, overturn bool, comment string, now int64) error {
	const op = "appeal.CastVote"
	if a.Status != StatusUnderReview {
		return core.Statef(op, "appeal %d is %s, not under review", a.ID, a.Status)
	}
	if !PeriodActive(a.DecisionTime, now, s.Settings.AppealPeriod) {
		return core.Statef(op, "appeal %d is past its period", a.ID)
	}
	if !a.OnPanel(reviewer) {
		return core.Preconditionf(op, "reviewer", "%s is not on the panel for appeal %d", reviewer, a.ID)
	}
	if a.HasVoted(reviewer) {
		return core.Statef(op, "%s already voted on appeal %d", reviewer, a.ID)
	}
	if err := core.CheckLen(op, "comment", comment, core.MaxResolutionLen); err != nil {
		return err
	}

	a.Votes = append(a.Votes, PanelVote{Reviewer: reviewer, Overturn: overturn, Comment: comment, CastAt: now})
	a.UpdatedAt = now
	return nil
}

// Resolution is the input to Resolve. ReductionPercent in 1..99 reduces the
// contested penalty on approval; 0 or 100 overturns it.
type Resolution struct {
	Reasoning        string `json:"reasoning"`
	ReductionPercent uint8  `json:"reduction_percent,omitempty"`
}

// Resolve tallies the panel. The appeal is approved when overturn votes
// reach the threshold and rejected otherwise. Nothing changes on error.
func (s *System) Resolve(a *Appeal, res Resolution, now int64) (Status, error) {
	const op = "appeal.Resolve"
	if a.Status != StatusUnderReview {
		return a.Status, core.Statef(op, "appeal %d is %s, not under review", a.ID, a.Status)
	}
	if !PeriodActive(a.DecisionTime, now, s.Settings.AppealPeriod) {
		return a.Status, core.Statef(op, "appeal %d is past its period", a.ID)
	}
	if err := core.CheckLen(op, "reasoning", res.Reasoning, core.MaxResolutionLen); err != nil {
		return a.Status, err
	}
	if res.ReductionPercent > 100 {
		return a.Status, core.Preconditionf(op, "reduction_percent", "must be at most 100, got %d", res.ReductionPercent)
	}

	overturn, total := a.Tally()
	met, err := ThresholdMet(overturn, total, s.Settings.ThresholdPercent)
	if err != nil {
		return a.Status, err
	}

	event := EventReject
	if met {
		event = EventApprove
	}
	next, err := NextStatus(a.Status, event)
	if err != nil {
		return a.Status, err
	}

	if met {
		s.SuccessfulAppeals++
		a.ReductionPercent = res.ReductionPercent
	} else {
		s.RejectedAppeals++
	}
	a.Reasoning = res.Reasoning
	a.Status = next
	a.ResolvedAt = now
	a.UpdatedAt = now
	s.UpdatedAt = now
	return next, nil
}

// Expire closes an undecided appeal whose period has ended.
func (s *System) Expire(a *Appeal, now int64) error {
	const op = "appeal.Expire"
	next, err := NextStatus(a.Status, EventExpire)
	if err != nil {
		return err
	}
	if PeriodActive(a.DecisionTime, now, s.Settings.AppealPeriod) {
		return core.Statef(op, "appeal %d is open until %d", a.ID, a.DecisionTime+s.Settings.AppealPeriod)
	}

	s.ExpiredAppeals++
	a.Status = next
	a.ResolvedAt = now
	a.UpdatedAt = now
	s.UpdatedAt = now
	return nil
}

// Expirable reports an undecided appeal whose period has ended.
func (s *System) Expirable(a *Appeal, now int64) bool {
	return !a.Status.IsTerminal() && !PeriodActive(a.DecisionTime, now, s.Settings.AppealPeriod)
}
