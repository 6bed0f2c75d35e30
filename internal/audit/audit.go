// Package audit records governance decisions in an append-only trail.
package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// EventType enumerates the kinds of audit entries.
type EventType string

const (
	EventConfigChange EventType = "CONFIG_CHANGE"
	EventPowerUpdate  EventType = "POWER_UPDATE"
	EventAlert        EventType = "ALERT"
	EventPenalty      EventType = "PENALTY"
	EventAppeal       EventType = "APPEAL"
	EventSweep        EventType = "SWEEP"
)

// Entry is a single audit log entry.
type Entry struct {
	LogID     string            `json:"log_id,omitempty"`
	EventType EventType         `json:"event_type"`
	ActorID   string            `json:"actor_id,omitempty"`
	TargetID  string            `json:"target_id,omitempty"`
	Action    string            `json:"action"`
	OldValue  json.RawMessage   `json:"old_value,omitempty"`
	NewValue  json.RawMessage   `json:"new_value,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at,omitempty"`
}

// Logger writes audit entries.
type Logger interface {
	InsertAuditLog(ctx context.Context, entry *Entry) error
}

// Service provides a structured API for logging governance events. Write
// failures are logged and never fail the operation being audited.
type Service struct {
	logger Logger
	now    func() time.Time
}

// NewService creates a new audit service backed by the given logger.
func NewService(logger Logger) *Service {
	return &Service{logger: logger, now: time.Now}
}

func (s *Service) write(ctx context.Context, entry *Entry) {
	if entry.LogID == "" {
		entry.LogID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.logger.InsertAuditLog(ctx, entry); err != nil {
		slog.Error("Failed to write audit entry", "error", err,
			"event_type", entry.EventType, "action", entry.Action, "target_id", entry.TargetID)
	}
}

// LogConfigChange records a safeguards config replacement with both values.
func (s *Service) LogConfigChange(ctx context.Context, actorID string, oldVal, newVal interface{}) {
	oldJSON, _ := json.Marshal(oldVal)
	newJSON, _ := json.Marshal(newVal)

	s.write(ctx, &Entry{
		EventType: EventConfigChange,
		ActorID:   actorID,
		TargetID:  "safeguards",
		Action:    "update_config",
		OldValue:  oldJSON,
		NewValue:  newJSON,
	})
}

// LogPowerUpdate records a voting power recomputation.
func (s *Service) LogPowerUpdate(ctx context.Context, participantID string, oldPower, newPower uint64, discounted bool) {
	oldJSON, _ := json.Marshal(map[string]interface{}{"voting_power": oldPower})
	newJSON, _ := json.Marshal(map[string]interface{}{"voting_power": newPower, "discount_applied": discounted})

	s.write(ctx, &Entry{
		EventType: EventPowerUpdate,
		TargetID:  participantID,
		Action:    "update_participant_power",
		OldValue:  oldJSON,
		NewValue:  newJSON,
	})
}

// LogTransition records a lifecycle change of an alert, penalty or appeal.
func (s *Service) LogTransition(ctx context.Context, eventType EventType, actorID, targetID, action, from, to string) {
	oldJSON, _ := json.Marshal(map[string]string{"status": from})
	newJSON, _ := json.Marshal(map[string]string{"status": to})

	s.write(ctx, &Entry{
		EventType: eventType,
		ActorID:   actorID,
		TargetID:  targetID,
		Action:    action,
		OldValue:  oldJSON,
		NewValue:  newJSON,
	})
}

// LogGeneric records a governance event with custom data.
func (s *Service) LogGeneric(ctx context.Context, eventType EventType, actorID, targetID, action string, data interface{}) {
	dataJSON, _ := json.Marshal(data)

	s.write(ctx, &Entry{
		EventType: eventType,
		ActorID:   actorID,
		TargetID:  targetID,
		Action:    action,
		NewValue:  dataJSON,
	})
}

// SlogLogger writes entries to a structured logger. It is the sink when no
// audit database is configured.
type SlogLogger struct {
	Logger *slog.Logger
}

func (l SlogLogger) InsertAuditLog(_ context.Context, entry *Entry) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("audit",
		"log_id", entry.LogID,
		"event_type", entry.EventType,
		"actor_id", entry.ActorID,
		"target_id", entry.TargetID,
		"action", entry.Action,
		"old_value", string(entry.OldValue),
		"new_value", string(entry.NewValue),
	)
	return nil
}
