package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ocx/fairgov/internal/audit"
	"github.com/ocx/fairgov/internal/core"
	"github.com/ocx/fairgov/internal/events"
	"github.com/ocx/fairgov/internal/participant"
	"github.com/ocx/fairgov/internal/penalty"
	"github.com/ocx/fairgov/internal/store"
)

// GetPenalty loads a penalty.
func (e *Engine) GetPenalty(ctx context.Context, id uint64) (*penalty.Penalty, error) {
	return e.store.GetPenalty(ctx, id)
}

// ListPenalties returns every penalty ordered by id.
func (e *Engine) ListPenalties(ctx context.Context) ([]*penalty.Penalty, error) {
	return e.store.ListPenalties(ctx)
}

// IssuePenalty creates a penalty, deriving its type from the risk score when
// none is given. Restricting types also restrict the offender's voting when
// the offender is a registered participant.
func (e *Engine) IssuePenalty(ctx context.Context, in penalty.NewPenalty) (_ *penalty.Penalty, err error) {
	defer e.observe("issue_penalty", time.Now(), &err)
	g := e.acquire(penaltySystemKey())
	defer g.release()

	sys, err := e.penaltySystem(ctx)
	if err != nil {
		return nil, err
	}
	now := e.now()
	p, err := sys.Issue(in, now)
	if err != nil {
		return nil, err
	}
	g.lock(penaltyKey(p.ID), participantKey(p.Offender))

	batch := &store.Batch{PenaltySystem: sys, Penalties: []*penalty.Penalty{p}}
	if p.Type.Restricts() {
		offender, err := e.optionalParticipant(ctx, p.Offender)
		if err != nil {
			return nil, err
		}
		if offender != nil {
			until := sys.Settings.ExpiryFor(p.Type, now)
			if !outlasts(offender, until, now) {
				offender.Restrict(fmt.Sprintf("%s penalty %d", p.Type, p.ID), until, p.ID, now)
				batch.Participants = []*participant.Participant{offender}
			}
		}
	}
	if err := e.commit(ctx, batch); err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.PenaltiesIssued.WithLabelValues(string(p.Type)).Inc()
	}
	e.audit.LogGeneric(ctx, audit.EventPenalty, "", p.Offender, "issue_penalty", map[string]interface{}{
		"penalty_id":   p.ID,
		"penalty_type": p.Type,
		"amount":       p.Amount,
		"restricted":   len(batch.Participants) > 0,
	})
	g.emit(events.TypePenaltyIssued, "/penalties", fmt.Sprint(p.ID), map[string]interface{}{
		"offender":     p.Offender,
		"penalty_type": p.Type,
		"amount":       p.Amount,
		"expires_at":   p.ExpiresAt,
	})
	return p, nil
}

// PayPenalty settles an active or reduced penalty. A voting restriction
// still runs to its end time.
func (e *Engine) PayPenalty(ctx context.Context, id uint64) (_ *penalty.Penalty, err error) {
	defer e.observe("pay_penalty", time.Now(), &err)
	return e.transitionPenalty(ctx, id, "pay_penalty", func(sys *penalty.System, p *penalty.Penalty, now int64) error {
		return sys.Pay(p, now)
	})
}

// ExpirePenalty closes a penalty whose expiry has passed and lifts the
// restriction it imposed.
func (e *Engine) ExpirePenalty(ctx context.Context, id uint64) (_ *penalty.Penalty, err error) {
	defer e.observe("expire_penalty", time.Now(), &err)
	return e.transitionPenalty(ctx, id, "expire_penalty", func(sys *penalty.System, p *penalty.Penalty, now int64) error {
		return sys.Expire(p, now)
	})
}

func (e *Engine) transitionPenalty(ctx context.Context, id uint64, action string, apply func(*penalty.System, *penalty.Penalty, int64) error) (*penalty.Penalty, error) {
	g := e.acquire(penaltySystemKey(), penaltyKey(id))
	defer g.release()

	sys, err := e.penaltySystem(ctx)
	if err != nil {
		return nil, err
	}
	p, err := e.store.GetPenalty(ctx, id)
	if err != nil {
		return nil, err
	}
	g.lock(participantKey(p.Offender))

	now := e.now()
	from := p.Status
	if err := apply(sys, p, now); err != nil {
		return nil, err
	}

	batch := &store.Batch{PenaltySystem: sys, Penalties: []*penalty.Penalty{p}}
	if p.Status == penalty.StatusExpired {
		offender, err := e.optionalParticipant(ctx, p.Offender)
		if err != nil {
			return nil, err
		}
		if liftIfImposedBy(offender, p.ID, now) {
			batch.Participants = []*participant.Participant{offender}
		}
	}
	if err := e.commit(ctx, batch); err != nil {
		return nil, err
	}

	e.penaltyTransitioned(ctx, g, p, action, from)
	if len(batch.Participants) > 0 {
		g.emit(events.TypeRestrictionLifted, "/participants", p.Offender, map[string]interface{}{"penalty_id": p.ID})
	}
	return p, nil
}

func (e *Engine) penaltyTransitioned(ctx context.Context, g *guard, p *penalty.Penalty, action string, from penalty.Status) {
	e.audit.LogTransition(ctx, audit.EventPenalty, "", fmt.Sprint(p.ID), action, string(from), string(p.Status))
	g.emit(events.TypePenaltyTransitioned, "/penalties", fmt.Sprint(p.ID), map[string]interface{}{
		"from":   from,
		"to":     p.Status,
		"amount": p.Amount,
	})
}

// optionalParticipant loads a participant, returning nil when none is
// registered under id.
func (e *Engine) optionalParticipant(ctx context.Context, id string) (*participant.Participant, error) {
	p, err := e.store.GetParticipant(ctx, id)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	return p, err
}

// outlasts reports whether p already carries a restriction that ends no
// earlier than until.
func outlasts(p *participant.Participant, until, now int64) bool {
	if !p.RestrictionActive(now) {
		return false
	}
	if p.RestrictedUntil == participant.Indefinite {
		return true
	}
	return until != participant.Indefinite && p.RestrictedUntil >= until
}
