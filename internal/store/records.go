package store

import (
	"context"
	"sort"

	"github.com/ocx/fairgov/internal/appeal"
	"github.com/ocx/fairgov/internal/detection"
	"github.com/ocx/fairgov/internal/participant"
	"github.com/ocx/fairgov/internal/penalty"
	"github.com/ocx/fairgov/internal/performance"
)

// backend is the raw keyed storage under a recordStore. load returns
// found=false for a missing record.
type backend interface {
	load(ctx context.Context, kind, id string) (data []byte, found bool, err error)
	list(ctx context.Context, kind string) ([][]byte, error)
	commit(ctx context.Context, recs []record) error
	close() error
}

// recordStore implements Store over any backend by encoding records as JSON.
type recordStore struct {
	b backend
}

func get[T any](ctx context.Context, b backend, kind, id string) (*T, error) {
	data, found, err := b.load(ctx, kind, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, notFound(kind, id)
	}
	return decode[T](kind, id, data)
}

func listAll[T any](ctx context.Context, b backend, kind string) ([]*T, error) {
	raw, err := b.list(ctx, kind)
	if err != nil {
		return nil, err
	}
	out := make([]*T, 0, len(raw))
	for _, data := range raw {
		v, err := decode[T](kind, "", data)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *recordStore) GetParticipant(ctx context.Context, id string) (*participant.Participant, error) {
	return get[participant.Participant](ctx, s.b, KindParticipant, id)
}

func (s *recordStore) ListParticipants(ctx context.Context) ([]*participant.Participant, error) {
	out, err := listAll[participant.Participant](ctx, s.b, KindParticipant)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *recordStore) GetCreator(ctx context.Context, id string) (*performance.CreatorPerformance, error) {
	return get[performance.CreatorPerformance](ctx, s.b, KindCreator, id)
}

func (s *recordStore) GetDetectionSystem(ctx context.Context) (*detection.System, error) {
	return get[detection.System](ctx, s.b, KindDetectionSystem, KindDetectionSystem)
}

func (s *recordStore) GetAlert(ctx context.Context, id uint64) (*detection.Alert, error) {
	return get[detection.Alert](ctx, s.b, KindAlert, idString(id))
}

func (s *recordStore) GetPenaltySystem(ctx context.Context) (*penalty.System, error) {
	return get[penalty.System](ctx, s.b, KindPenaltySystem, KindPenaltySystem)
}

func (s *recordStore) GetPenalty(ctx context.Context, id uint64) (*penalty.Penalty, error) {
	return get[penalty.Penalty](ctx, s.b, KindPenalty, idString(id))
}

func (s *recordStore) ListPenalties(ctx context.Context) ([]*penalty.Penalty, error) {
	out, err := listAll[penalty.Penalty](ctx, s.b, KindPenalty)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *recordStore) GetAppealSystem(ctx context.Context) (*appeal.System, error) {
	return get[appeal.System](ctx, s.b, KindAppealSystem, KindAppealSystem)
}

func (s *recordStore) GetAppeal(ctx context.Context, id uint64) (*appeal.Appeal, error) {
	return get[appeal.Appeal](ctx, s.b, KindAppeal, idString(id))
}

func (s *recordStore) ListAppeals(ctx context.Context) ([]*appeal.Appeal, error) {
	out, err := listAll[appeal.Appeal](ctx, s.b, KindAppeal)
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *recordStore) Commit(ctx context.Context, b *Batch) error {
	if b == nil || b.Empty() {
		return nil
	}
	recs, err := b.encode()
	if err != nil {
		return err
	}
	return s.b.commit(ctx, recs)
}

func (s *recordStore) Close() error {
	return s.b.close()
}
