package detection

import (
	"github.com/ocx/fairgov/internal/core"
)

// ============================================================================
// ALERT STATE MACHINE
// ============================================================================

// AlertStatus is the investigation state of an alert.
type AlertStatus string

const (
	AlertOpen               AlertStatus = "OPEN"
	AlertUnderInvestigation AlertStatus = "UNDER_INVESTIGATION"
	AlertResolved           AlertStatus = "RESOLVED"
	AlertFalsePositive      AlertStatus = "FALSE_POSITIVE"
	AlertDismissed          AlertStatus = "DISMISSED"
)

// IsTerminal reports whether no further transition is possible.
func (s AlertStatus) IsTerminal() bool {
	return s == AlertResolved || s == AlertFalsePositive || s == AlertDismissed
}

// AlertEvent drives an alert transition.
type AlertEvent string

const (
	EventInvestigate       AlertEvent = "investigate"
	EventResolve           AlertEvent = "resolve"
	EventMarkFalsePositive AlertEvent = "false-positive"
	EventDismiss           AlertEvent = "dismiss"
)

type alertTransition struct {
	from  AlertStatus
	event AlertEvent
}

var alertTransitions = map[alertTransition]AlertStatus{
	{AlertOpen, EventInvestigate}:                     AlertUnderInvestigation,
	{AlertOpen, EventResolve}:                         AlertResolved,
	{AlertOpen, EventMarkFalsePositive}:               AlertFalsePositive,
	{AlertOpen, EventDismiss}:                         AlertDismissed,
	{AlertUnderInvestigation, EventResolve}:           AlertResolved,
	{AlertUnderInvestigation, EventMarkFalsePositive}: AlertFalsePositive,
	{AlertUnderInvestigation, EventDismiss}:           AlertDismissed,
}

// NextAlertStatus looks up the transition table. Illegal transitions are
// State errors.
func NextAlertStatus(from AlertStatus, event AlertEvent) (AlertStatus, error) {
	next, ok := alertTransitions[alertTransition{from, event}]
	if !ok {
		return from, core.Statef("detection.NextAlertStatus", "cannot %s an alert in state %s", event, from)
	}
	return next, nil
}

// Alert is a suspicious-activity report against one wallet.
type Alert struct {
	ID                   uint64      `json:"id"`
	Type                 AlertType   `json:"alert_type"`
	TargetWallet         string      `json:"target_wallet"`
	Activity             string      `json:"suspicious_activity"`
	Evidence             string      `json:"evidence"`
	EvidenceStrength     uint8       `json:"evidence_strength"`
	HistoricalViolations uint64      `json:"historical_violations"`
	RiskScore            uint8       `json:"risk_score"`
	Status               AlertStatus `json:"status"`

	Investigator       string `json:"investigator,omitempty"`
	InvestigationNotes string `json:"investigation_notes,omitempty"`
	Resolution         string `json:"resolution,omitempty"`
	ActionTaken        string `json:"action_taken,omitempty"`

	CreatedAt  int64 `json:"created_at"`
	ReviewedAt int64 `json:"reviewed_at,omitempty"`
	ResolvedAt int64 `json:"resolved_at,omitempty"`
	UpdatedAt  int64 `json:"updated_at"`
}
