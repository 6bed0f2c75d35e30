package detection

import (
	"github.com/ocx/fairgov/internal/core"
)

// Settings are the detector thresholds and per-family switches.
type Settings struct {
	WhaleThreshold             uint64 `json:"whale_threshold" yaml:"whale_threshold"`
	WhaleCoordinationThreshold uint64 `json:"whale_coordination_threshold" yaml:"whale_coordination_threshold"`
	SuspiciousPatternThreshold uint64 `json:"suspicious_pattern_threshold" yaml:"suspicious_pattern_threshold"`

	WhaleDetectionEnabled       bool `json:"whale_detection_enabled" yaml:"whale_detection_enabled"`
	SuspiciousActivityEnabled   bool `json:"suspicious_activity_enabled" yaml:"suspicious_activity_enabled"`
	CollusionDetectionEnabled   bool `json:"collusion_detection_enabled" yaml:"collusion_detection_enabled"`
	BriberyDetectionEnabled     bool `json:"bribery_detection_enabled" yaml:"bribery_detection_enabled"`
	VoteSellingDetectionEnabled bool `json:"vote_selling_detection_enabled" yaml:"vote_selling_detection_enabled"`
}

// DefaultSettings enables every detector.
func DefaultSettings() Settings {
	return Settings{
		WhaleThreshold:              10_000_000,
		WhaleCoordinationThreshold:  5_000_000,
		SuspiciousPatternThreshold:  1_000_000,
		WhaleDetectionEnabled:       true,
		SuspiciousActivityEnabled:   true,
		CollusionDetectionEnabled:   true,
		BriberyDetectionEnabled:     true,
		VoteSellingDetectionEnabled: true,
	}
}

// Validate rejects zero thresholds.
func (s Settings) Validate() error {
	const op = "detection.Settings.Validate"
	if s.WhaleThreshold == 0 {
		return core.Configf(op, "whale_threshold", "must be positive")
	}
	if s.WhaleCoordinationThreshold == 0 {
		return core.Configf(op, "whale_coordination_threshold", "must be positive")
	}
	if s.SuspiciousPatternThreshold == 0 {
		return core.Configf(op, "suspicious_pattern_threshold", "must be positive")
	}
	return nil
}

// Enabled reports whether the detector family owning t is switched on.
func (s Settings) Enabled(t AlertType) bool {
	switch t {
	case WhaleManipulation, FlashLoanAttack:
		return s.WhaleDetectionEnabled
	case VoteCoordination, SuspiciousPattern, SybilAttack:
		return s.SuspiciousActivityEnabled
	case Collusion:
		return s.CollusionDetectionEnabled
	case Bribery:
		return s.BriberyDetectionEnabled
	case VoteSelling:
		return s.VoteSellingDetectionEnabled
	default:
		return false
	}
}

// System is the detection aggregate. It owns the alert counters, which only
// change in the same step as the alert they count.
type System struct {
	Settings Settings `json:"settings"`

	TotalAlerts            uint64 `json:"total_alerts"`
	ConfirmedManipulations uint64 `json:"confirmed_manipulations"`
	FalsePositives         uint64 `json:"false_positives"`

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

// NewAlert is the input to CreateAlert.
type NewAlert struct {
	Type                 AlertType `json:"alert_type"`
	TargetWallet         string    `json:"target_wallet"`
	Activity             string    `json:"suspicious_activity"`
	Evidence             string    `json:"evidence"`
	EvidenceStrength     uint8     `json:"evidence_strength"`
	HistoricalViolations uint64    `json:"historical_violations"`
}

// CreateAlert scores and opens a new alert and counts it. The alert id is
// the next counter value.
func (s *System) CreateAlert(in NewAlert, now int64) (*Alert, error) {
	const op = "detection.CreateAlert"
	if in.TargetWallet == "" {
		return nil, core.Preconditionf(op, "target_wallet", "target wallet is required")
	}
	if err := core.CheckLen(op, "suspicious_activity", in.Activity, core.MaxActivityLen); err != nil {
		return nil, err
	}
	if err := core.CheckLen(op, "evidence", in.Evidence, core.MaxAlertEvidenceLen); err != nil {
		return nil, err
	}
	risk, err := RiskScore(in.Type, in.EvidenceStrength, in.HistoricalViolations)
	if err != nil {
		return nil, err
	}
	if !s.Settings.Enabled(in.Type) {
		return nil, core.Statef(op, "detection for %s is disabled", in.Type)
	}

	s.TotalAlerts++
	s.UpdatedAt = now
	return &Alert{
		ID:                   s.TotalAlerts,
		Type:                 in.Type,
		TargetWallet:         in.TargetWallet,
		Activity:             in.Activity,
		Evidence:             in.Evidence,
		EvidenceStrength:     in.EvidenceStrength,
		HistoricalViolations: in.HistoricalViolations,
		RiskScore:            risk,
		Status:               AlertOpen,
		CreatedAt:            now,
		UpdatedAt:            now,
	}, nil
}

// AlertAction carries the free text attached to a transition.
type AlertAction struct {
	Investigator string `json:"investigator,omitempty"`
	Notes        string `json:"notes,omitempty"`
	Resolution   string `json:"resolution,omitempty"`
	ActionTaken  string `json:"action_taken,omitempty"`
}

// Apply moves a through event, recording the action text and updating the
// aggregate counters. Nothing changes on error.
func (s *System) Apply(a *Alert, event AlertEvent, act AlertAction, now int64) error {
	const op = "detection.Apply"
	next, err := NextAlertStatus(a.Status, event)
	if err != nil {
		return err
	}
	if err := core.CheckLen(op, "notes", act.Notes, core.MaxAlertEvidenceLen); err != nil {
		return err
	}
	if err := core.CheckLen(op, "resolution", act.Resolution, core.MaxResolutionLen); err != nil {
		return err
	}
	if err := core.CheckLen(op, "action_taken", act.ActionTaken, core.MaxResolutionLen); err != nil {
		return err
	}
	if event == EventInvestigate && act.Investigator == "" {
		return core.Preconditionf(op, "investigator", "investigator is required")
	}

	switch event {
	case EventInvestigate:
		a.Investigator = act.Investigator
		a.ReviewedAt = now
	case EventResolve:
		a.ResolvedAt = now
		s.ConfirmedManipulations++
	case EventMarkFalsePositive:
		a.ResolvedAt = now
		s.FalsePositives++
	case EventDismiss:
		a.ResolvedAt = now
	}
	if act.Notes != "" {
		a.InvestigationNotes = act.Notes
	}
	if act.Resolution != "" {
		a.Resolution = act.Resolution
	}
	if act.ActionTaken != "" {
		a.ActionTaken = act.ActionTaken
	}

	a.Status = next
	a.UpdatedAt = now
	s.UpdatedAt = now
	return nil
}
