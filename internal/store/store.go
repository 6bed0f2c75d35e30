// Package store persists governance records.
//
// Every backend commits a Batch atomically so a child record and the system
// counters that count it are never written separately.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ocx/fairgov/internal/appeal"
	"github.com/ocx/fairgov/internal/core"
	"github.com/ocx/fairgov/internal/detection"
	"github.com/ocx/fairgov/internal/participant"
	"github.com/ocx/fairgov/internal/penalty"
	"github.com/ocx/fairgov/internal/performance"
)

// Store is implemented by the memory, Redis and SQL backends.
type Store interface {
	GetParticipant(ctx context.Context, id string) (*participant.Participant, error)
	ListParticipants(ctx context.Context) ([]*participant.Participant, error)
	GetCreator(ctx context.Context, id string) (*performance.CreatorPerformance, error)

	GetDetectionSystem(ctx context.Context) (*detection.System, error)
	GetAlert(ctx context.Context, id uint64) (*detection.Alert, error)

	GetPenaltySystem(ctx context.Context) (*penalty.System, error)
	GetPenalty(ctx context.Context, id uint64) (*penalty.Penalty, error)
	ListPenalties(ctx context.Context) ([]*penalty.Penalty, error)

	GetAppealSystem(ctx context.Context) (*appeal.System, error)
	GetAppeal(ctx context.Context, id uint64) (*appeal.Appeal, error)
	ListAppeals(ctx context.Context) ([]*appeal.Appeal, error)

	// Commit writes every record in b in one atomic step.
	Commit(ctx context.Context, b *Batch) error
	Close() error
}

// Batch is a set of records written together. Nil systems are left as is.
type Batch struct {
	Participants []*participant.Participant
	Creators     []*performance.CreatorPerformance

	DetectionSystem *detection.System
	Alerts          []*detection.Alert

	PenaltySystem *penalty.System
	Penalties     []*penalty.Penalty

	AppealSystem *appeal.System
	Appeals      []*appeal.Appeal
}

// Empty reports whether the batch carries nothing to write.
func (b *Batch) Empty() bool {
	return len(b.Participants) == 0 && len(b.Creators) == 0 &&
		b.DetectionSystem == nil && len(b.Alerts) == 0 &&
		b.PenaltySystem == nil && len(b.Penalties) == 0 &&
		b.AppealSystem == nil && len(b.Appeals) == 0
}

// Kinds of record, used as key and table namespaces.
const (
	KindParticipant     = "participant"
	KindCreator         = "creator"
	KindAlert           = "alert"
	KindPenalty         = "penalty"
	KindAppeal          = "appeal"
	KindDetectionSystem = "detection_system"
	KindPenaltySystem   = "penalty_system"
	KindAppealSystem    = "appeal_system"
)

// record is one encoded entry of a batch.
type record struct {
	kind string
	id   string
	data []byte
	// status is indexed by the SQL backend; empty for systems
	status string
}

func idString(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// encode flattens a batch into records, failing before anything is written.
func (b *Batch) encode() ([]record, error) {
	var out []record
	add := func(kind, id, status string, v any) error {
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", kind, id, err)
		}
		out = append(out, record{kind: kind, id: id, data: data, status: status})
		return nil
	}

	for _, p := range b.Participants {
		if err := add(KindParticipant, p.ID, "", p); err != nil {
			return nil, err
		}
	}
	for _, c := range b.Creators {
		if err := add(KindCreator, c.ID, "", c); err != nil {
			return nil, err
		}
	}
	if b.DetectionSystem != nil {
		if err := add(KindDetectionSystem, KindDetectionSystem, "", b.DetectionSystem); err != nil {
			return nil, err
		}
	}
	for _, a := range b.Alerts {
		if err := add(KindAlert, idString(a.ID), string(a.Status), a); err != nil {
			return nil, err
		}
	}
	if b.PenaltySystem != nil {
		if err := add(KindPenaltySystem, KindPenaltySystem, "", b.PenaltySystem); err != nil {
			return nil, err
		}
	}
	for _, p := range b.Penalties {
		if err := add(KindPenalty, idString(p.ID), string(p.Status), p); err != nil {
			return nil, err
		}
	}
	if b.AppealSystem != nil {
		if err := add(KindAppealSystem, KindAppealSystem, "", b.AppealSystem); err != nil {
			return nil, err
		}
	}
	for _, a := range b.Appeals {
		if err := add(KindAppeal, idString(a.ID), string(a.Status), a); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func decode[T any](kind, id string, data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("unmarshal %s %s: %w", kind, id, err)
	}
	return &v, nil
}

func notFound(kind, id string) error {
	return core.NotFoundf("store.Get", "%s %s not found", kind, id)
}
