// Package appeal runs the review-panel workflow that lets a penalized party
// contest a decision.
package appeal

import (
	"github.com/ocx/fairgov/internal/core"
)

// ThresholdMet reports whether votesAgainst is at least thresholdPercent of
// totalVotes. A zero totalVotes is an Arithmetic error.
func ThresholdMet(votesAgainst, totalVotes uint64, thresholdPercent uint8) (bool, error) {
	const op = "appeal.ThresholdMet"
	if totalVotes == 0 {
		return false, core.Arithmeticf(op, "no votes cast")
	}
	if votesAgainst > totalVotes {
		return false, core.Preconditionf(op, "votes_against", "%d exceeds total votes %d", votesAgainst, totalVotes)
	}
	scaled, err := core.MulU64(op, votesAgainst, 100)
	if err != nil {
		return false, err
	}
	return scaled/totalVotes >= uint64(thresholdPercent), nil
}

// PeriodActive reports whether now is within appealPeriod seconds of the
// decision.
func PeriodActive(decisionTime, now, appealPeriod int64) bool {
	return now-decisionTime <= appealPeriod
}

// ============================================================================
// APPEAL STATE MACHINE
// ============================================================================

// Status is the lifecycle state of an appeal.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusApproved    Status = "APPROVED"
	StatusRejected    Status = "REJECTED"
	StatusExpired     Status = "EXPIRED"
)

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusExpired
}

// Event drives an appeal transition.
type Event string

const (
	EventAssemblePanel Event = "assemble-panel"
	EventApprove       Event = "approve"
	EventReject        Event = "reject"
	EventExpire        Event = "expire"
)

type transition struct {
	from  Status
	event Event
}

var transitions = map[transition]Status{
	{StatusPending, EventAssemblePanel}: StatusUnderReview,
	{StatusPending, EventExpire}:        StatusExpired,
	{StatusUnderReview, EventApprove}:   StatusApproved,
	{StatusUnderReview, EventReject}:    StatusRejected,
	{StatusUnderReview, EventExpire}:    StatusExpired,
}

// NextStatus looks up the transition table. Illegal transitions are State
// errors.
func NextStatus(from Status, event Event) (Status, error) {
	next, ok := transitions[transition{from, event}]
	if !ok {
		return from, core.Statef("appeal.NextStatus", "cannot %s an appeal in state %s", event, from)
	}
	return next, nil
}

// PanelVote is one reviewer's ballot. Overturn is a vote for the appellant.
type PanelVote struct {
	Reviewer string `json:"reviewer"`
	Overturn bool   `json:"overturn"`
	Comment  string `json:"comment,omitempty"`
	CastAt   int64  `json:"cast_at"`
}

// Appeal contests one decision, usually a penalty.
type Appeal struct {
	ID          uint64 `json:"id"`
	Appellant   string `json:"appellant"`
	PenaltyID   uint64 `json:"penalty_id,omitempty"`
	DecisionRef string `json:"original_decision"`
	// DecisionTime starts the appeal period.
	DecisionTime int64  `json:"decision_time"`
	Reason       string `json:"reason"`
	Evidence     string `json:"evidence"`
	FeePaid      uint64 `json:"fee_paid"`
	Status       Status `json:"status"`

	Panel []string    `json:"review_panel"`
	Votes []PanelVote `json:"panel_votes"`

	Reasoning        string `json:"reasoning,omitempty"`
	ReductionPercent uint8  `json:"reduction_percent,omitempty"`

	SubmittedAt     int64 `json:"submitted_at"`
	ReviewStartedAt int64 `json:"review_started_at,omitempty"`
	ResolvedAt      int64 `json:"resolved_at,omitempty"`
	UpdatedAt       int64 `json:"updated_at"`
}

// OnPanel reports whether reviewer sits on the panel.
func (a *Appeal) OnPanel(reviewer string) bool {
	for _, r := range a.Panel {
		if r == reviewer {
			return true
		}
	}
	return false
}

// HasVoted reports whether reviewer already cast a vote.
func (a *Appeal) HasVoted(reviewer string) bool {
	for _, v := range a.Votes {
		if v.Reviewer == reviewer {
			return true
		}
	}
	return false
}

// Tally counts overturn votes and total votes.
func (a *Appeal) Tally() (overturn, total uint64) {
	for _, v := range a.Votes {
		if v.Overturn {
			overturn++
		}
	}
	return overturn, uint64(len(a.Votes))
}

// Reduces reports whether an approved appeal reduces rather than overturns
// its penalty.
func (a *Appeal) Reduces() bool {
	return a.ReductionPercent > 0 && a.ReductionPercent < 100
}
