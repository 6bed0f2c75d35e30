package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ocx/fairgov/internal/appeal"
	"github.com/ocx/fairgov/internal/audit"
	"github.com/ocx/fairgov/internal/core"
	"github.com/ocx/fairgov/internal/events"
	"github.com/ocx/fairgov/internal/participant"
	"github.com/ocx/fairgov/internal/penalty"
	"github.com/ocx/fairgov/internal/store"
)

// GetAppeal loads an appeal.
func (e *Engine) GetAppeal(ctx context.Context, id uint64) (*appeal.Appeal, error) {
	return e.store.GetAppeal(ctx, id)
}

// ListAppeals returns every appeal ordered by id.
func (e *Engine) ListAppeals(ctx context.Context) ([]*appeal.Appeal, error) {
	return e.store.ListAppeals(ctx)
}

// SubmitAppeal opens an appeal. When it contests a penalty, only the
// offender may appeal, the decision time is the penalty's issue time and the
// penalty moves to Appealed in the same commit. Otherwise the decision time
// is the submission time.
func (e *Engine) SubmitAppeal(ctx context.Context, in appeal.NewAppeal) (_ *appeal.Appeal, err error) {
	defer e.observe("submit_appeal", time.Now(), &err)
	const op = "engine.SubmitAppeal"

	g := e.acquire(appealSystemKey(), penaltySystemKey())
	if in.PenaltyID != 0 {
		g.lock(penaltyKey(in.PenaltyID))
	}
	defer g.release()

	var (
		psys *penalty.System
		p    *penalty.Penalty
	)
	if in.PenaltyID != 0 {
		if p, err = e.store.GetPenalty(ctx, in.PenaltyID); err != nil {
			return nil, err
		}
		if p.Offender != in.Appellant {
			return nil, core.Preconditionf(op, "appellant", "only %s may appeal penalty %d", p.Offender, p.ID)
		}
		if psys, err = e.penaltySystem(ctx); err != nil {
			return nil, err
		}
		in.DecisionTime = p.IssuedAt
		if in.DecisionRef == "" {
			in.DecisionRef = fmt.Sprintf("penalty:%d", p.ID)
		}
	}

	asys, err := e.appealSystem(ctx)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if p == nil {
		in.DecisionTime = now
	}
	a, err := asys.Submit(in, now)
	if err != nil {
		return nil, err
	}

	batch := &store.Batch{AppealSystem: asys, Appeals: []*appeal.Appeal{a}}
	if p != nil {
		if err := psys.MarkAppealed(p, a.ID, now); err != nil {
			return nil, err
		}
		batch.PenaltySystem = psys
		batch.Penalties = []*penalty.Penalty{p}
	}
	if err := e.commit(ctx, batch); err != nil {
		return nil, err
	}

	e.audit.LogGeneric(ctx, audit.EventAppeal, a.Appellant, fmt.Sprint(a.ID), "submit_appeal", map[string]interface{}{
		"penalty_id":        a.PenaltyID,
		"original_decision": a.DecisionRef,
		"fee_paid":          a.FeePaid,
	})
	g.emit(events.TypeAppealSubmitted, "/appeals", fmt.Sprint(a.ID), map[string]interface{}{
		"appellant":  a.Appellant,
		"penalty_id": a.PenaltyID,
	})
	return a, nil
}

// AssemblePanel seats the review panel and starts the review.
func (e *Engine) AssemblePanel(ctx context.Context, id uint64, reviewers []string) (_ *appeal.Appeal, err error) {
	defer e.observe("assemble_panel", time.Now(), &err)
	g := e.acquire(appealSystemKey(), appealKey(id))
	defer g.release()

	sys, a, err := e.loadAppeal(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sys.AssemblePanel(a, reviewers, e.now()); err != nil {
		return nil, err
	}
	if err := e.commit(ctx, &store.Batch{AppealSystem: sys, Appeals: []*appeal.Appeal{a}}); err != nil {
		return nil, err
	}

	e.audit.LogTransition(ctx, audit.EventAppeal, "", fmt.Sprint(id), "assemble_panel", string(appeal.StatusPending), string(a.Status))
	g.emit(events.TypeAppealPanel, "/appeals", fmt.Sprint(id), map[string]interface{}{"panel": a.Panel})
	return a, nil
}

// CastPanelVote records one panel member's vote.
func (e *Engine) CastPanelVote(ctx context.Context, id uint64, reviewer string, overturn bool, comment string) (_ *appeal.Appeal, err error) {
	defer e.observe("cast_panel_vote", time.Now(), &err)
	g := e.acquire(appealSystemKey(), appealKey(id))
	defer g.release()

	sys, a, err := e.loadAppeal(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := sys.CastVote(a, reviewer, overturn, comment, e.now()); err != nil {
		return nil, err
	}
	if err := e.commit(ctx, &store.Batch{Appeals: []*appeal.Appeal{a}}); err != nil {
		return nil, err
	}

	overturnVotes, total := a.Tally()
	g.emit(events.TypeAppealVote, "/appeals", fmt.Sprint(id), map[string]interface{}{
		"reviewer":       reviewer,
		"overturn_votes": overturnVotes,
		"total_votes":    total,
	})
	return a, nil
}

// ResolveAppeal tallies the panel and applies the outcome to the contested
// penalty: an approved appeal overturns it, or reduces it when the
// resolution carries a reduction of 1..99 percent. A rejected appeal
// reinstates it.
func (e *Engine) ResolveAppeal(ctx context.Context, id uint64, res appeal.Resolution) (_ *appeal.Appeal, err error) {
	defer e.observe("resolve_appeal", time.Now(), &err)
	g := e.acquire(appealSystemKey(), appealKey(id), penaltySystemKey())
	defer g.release()

	sys, a, err := e.loadAppeal(ctx, id)
	if err != nil {
		return nil, err
	}
	now := e.now()
	from := a.Status
	outcome, err := sys.Resolve(a, res, now)
	if err != nil {
		return nil, err
	}

	batch := &store.Batch{AppealSystem: sys, Appeals: []*appeal.Appeal{a}}
	if err := e.settlePenalty(ctx, g, batch, a, now); err != nil {
		return nil, err
	}
	if err := e.commit(ctx, batch); err != nil {
		return nil, err
	}

	e.appealClosed(ctx, g, a, from, "resolve_appeal", events.TypeAppealResolved)
	e.logger.Info("appeal resolved", "appeal_id", id, "outcome", outcome)
	return a, nil
}

// ExpireAppeal closes an undecided appeal whose period has ended and
// reinstates the penalty it contested.
func (e *Engine) ExpireAppeal(ctx context.Context, id uint64) (_ *appeal.Appeal, err error) {
	defer e.observe("expire_appeal", time.Now(), &err)
	g := e.acquire(appealSystemKey(), appealKey(id), penaltySystemKey())
	defer g.release()

	sys, a, err := e.loadAppeal(ctx, id)
	if err != nil {
		return nil, err
	}
	now := e.now()
	from := a.Status
	if err := sys.Expire(a, now); err != nil {
		return nil, err
	}

	batch := &store.Batch{AppealSystem: sys, Appeals: []*appeal.Appeal{a}}
	if err := e.settlePenalty(ctx, g, batch, a, now); err != nil {
		return nil, err
	}
	if err := e.commit(ctx, batch); err != nil {
		return nil, err
	}

	e.appealClosed(ctx, g, a, from, "expire_appeal", events.TypeAppealExpired)
	return a, nil
}

// IsAppealExpirable reports whether a is undecided and past its period.
func (e *Engine) IsAppealExpirable(ctx context.Context, a *appeal.Appeal) (bool, error) {
	sys, err := e.appealSystem(ctx)
	if err != nil {
		return false, err
	}
	return sys.Expirable(a, e.now()), nil
}

func (e *Engine) loadAppeal(ctx context.Context, id uint64) (*appeal.System, *appeal.Appeal, error) {
	a, err := e.store.GetAppeal(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	sys, err := e.appealSystem(ctx)
	if err != nil {
		return nil, nil, err
	}
	return sys, a, nil
}

// settlePenalty applies a closed appeal's outcome to its penalty and adds
// the changed records to batch. The caller holds the penalty system lock.
func (e *Engine) settlePenalty(ctx context.Context, g *guard, batch *store.Batch, a *appeal.Appeal, now int64) error {
	if a.PenaltyID == 0 {
		return nil
	}
	g.lock(penaltyKey(a.PenaltyID))
	p, err := e.store.GetPenalty(ctx, a.PenaltyID)
	if err != nil {
		return err
	}
	psys, err := e.penaltySystem(ctx)
	if err != nil {
		return err
	}
	g.lock(participantKey(p.Offender))

	switch {
	case a.Status == appeal.StatusApproved && a.Reduces():
		err = psys.Reduce(p, a.ReductionPercent, now)
	case a.Status == appeal.StatusApproved:
		err = psys.Overturn(p, now)
	default:
		err = psys.Reinstate(p, now)
	}
	if err != nil {
		return err
	}
	batch.PenaltySystem = psys
	batch.Penalties = []*penalty.Penalty{p}

	if p.Status == penalty.StatusOverturned {
		offender, err := e.optionalParticipant(ctx, p.Offender)
		if err != nil {
			return err
		}
		if liftIfImposedBy(offender, p.ID, now) {
			batch.Participants = []*participant.Participant{offender}
		}
	}
	return nil
}

func (e *Engine) appealClosed(ctx context.Context, g *guard, a *appeal.Appeal, from appeal.Status, action, eventType string) {
	if e.metrics != nil {
		e.metrics.AppealOutcomes.WithLabelValues(string(a.Status)).Inc()
	}
	e.audit.LogTransition(ctx, audit.EventAppeal, "", fmt.Sprint(a.ID), action, string(from), string(a.Status))
	g.emit(eventType, "/appeals", fmt.Sprint(a.ID), map[string]interface{}{
		"status":            a.Status,
		"penalty_id":        a.PenaltyID,
		"reduction_percent": a.ReductionPercent,
	})
}
