package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ocx/fairgov/internal/core"
	"github.com/ocx/fairgov/internal/events"
	"github.com/ocx/fairgov/internal/participant"
	"github.com/ocx/fairgov/internal/safeguards"
	"github.com/ocx/fairgov/internal/store"
	"github.com/ocx/fairgov/internal/votingpower"
)

// ============================================================================
// CONFIG
// ============================================================================

// Config returns the active safeguards bundle.
func (e *Engine) Config() safeguards.Config {
	return e.config.Get()
}

// ValidateConfig checks a candidate bundle without applying it.
func (e *Engine) ValidateConfig(cfg safeguards.Config) (err error) {
	defer e.observe("validate_config", time.Now(), &err)
	return cfg.Validate()
}

// UpdateConfig replaces the active bundle after full validation. An invalid
// candidate leaves the previous bundle active.
func (e *Engine) UpdateConfig(ctx context.Context, actor string, cfg safeguards.Config) (_ safeguards.Config, err error) {
	defer e.observe("update_config", time.Now(), &err)

	old, err := e.config.Replace(cfg)
	if err != nil {
		return old, err
	}
	e.audit.LogConfigChange(ctx, actor, old, cfg)
	e.emit(events.TypeConfigUpdated, "/config", "safeguards", map[string]interface{}{"actor": actor})
	return cfg, nil
}

// ComputeVotingPower runs the voting power pipeline under the active bundle
// without touching any record.
func (e *Engine) ComputeVotingPower(signals votingpower.Signals) (b votingpower.Breakdown, err error) {
	defer e.observe("compute_voting_power", time.Now(), &err)
	return votingpower.ComputeBreakdown(signals, e.config.Get())
}

// ============================================================================
// PARTICIPANTS
// ============================================================================

// GetParticipant loads a participant.
func (e *Engine) GetParticipant(ctx context.Context, id string) (*participant.Participant, error) {
	return e.store.GetParticipant(ctx, id)
}

// ListParticipants returns every participant ordered by id.
func (e *Engine) ListParticipants(ctx context.Context) ([]*participant.Participant, error) {
	return e.store.ListParticipants(ctx)
}

// RegisterParticipant creates a participant with zero power and no
// restriction. Registering an existing id is a State error.
func (e *Engine) RegisterParticipant(ctx context.Context, id string, signals votingpower.Signals) (_ *participant.Participant, err error) {
	defer e.observe("register_participant", time.Now(), &err)
	g := e.acquire(participantKey(id))
	defer g.release()

	if _, err := e.store.GetParticipant(ctx, id); err == nil {
		return nil, core.Statef("engine.RegisterParticipant", "participant %s is already registered", id)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	p, err := participant.New(id, signals, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.commit(ctx, &store.Batch{Participants: []*participant.Participant{p}}); err != nil {
		return nil, err
	}

	g.emit(events.TypeParticipantCreated, "/participants", id, nil)
	return p, nil
}

// UpdateParticipantPower stores new signals and recomputes voting power and
// whale flags. A zero totalSupply leaves the concentration flags as they are.
func (e *Engine) UpdateParticipantPower(ctx context.Context, id string, signals votingpower.Signals, totalSupply uint64) (_ *participant.Participant, _ votingpower.Breakdown, err error) {
	defer e.observe("update_participant_power", time.Now(), &err)
	g := e.acquire(participantKey(id))
	defer g.release()

	p, err := e.store.GetParticipant(ctx, id)
	if err != nil {
		return nil, votingpower.Breakdown{}, err
	}
	oldPower := p.VotingPower

	b, err := p.Recompute(signals, totalSupply, e.config.Get(), e.now())
	if err != nil {
		return nil, votingpower.Breakdown{}, err
	}
	if err := e.commit(ctx, &store.Batch{Participants: []*participant.Participant{p}}); err != nil {
		return nil, votingpower.Breakdown{}, err
	}

	if e.metrics != nil {
		e.metrics.VotingPower.Observe(float64(p.VotingPower))
		if p.DiscountApplied {
			e.metrics.WhaleDiscounts.Inc()
		}
	}
	e.audit.LogPowerUpdate(ctx, id, oldPower, p.VotingPower, p.DiscountApplied)
	g.emit(events.TypePowerUpdated, "/participants", id, map[string]interface{}{
		"voting_power":     p.VotingPower,
		"is_whale":         p.IsWhale,
		"discount_applied": p.DiscountApplied,
	})
	return p, b, nil
}

// CheckVoteEligibility returns a State error when the participant may not
// vote now.
func (e *Engine) CheckVoteEligibility(ctx context.Context, id string) (err error) {
	defer e.observe("check_vote_eligibility", time.Now(), &err)

	p, err := e.store.GetParticipant(ctx, id)
	if err != nil {
		return err
	}
	return p.CheckEligibility(e.now(), e.config.Get())
}

// RecordVote checks eligibility and stamps the participant's last vote.
func (e *Engine) RecordVote(ctx context.Context, id string) (_ *participant.Participant, err error) {
	defer e.observe("record_vote", time.Now(), &err)
	g := e.acquire(participantKey(id))
	defer g.release()

	p, err := e.store.GetParticipant(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := p.RecordVote(e.now(), e.config.Get()); err != nil {
		return nil, err
	}
	if err := e.commit(ctx, &store.Batch{Participants: []*participant.Participant{p}}); err != nil {
		return nil, err
	}

	g.emit(events.TypeVoteRecorded, "/participants", id, map[string]interface{}{
		"voting_power": p.VotingPower,
		"last_vote":    p.LastVote,
	})
	return p, nil
}

// SetParticipantBalance records the token balance reported by the token
// ledger. Voting power is not recomputed.
func (e *Engine) SetParticipantBalance(ctx context.Context, id string, balance uint64) (_ *participant.Participant, err error) {
	defer e.observe("set_participant_balance", time.Now(), &err)
	g := e.acquire(participantKey(id))
	defer g.release()

	p, err := e.store.GetParticipant(ctx, id)
	if err != nil {
		return nil, err
	}
	old := p.Balance
	p.Balance = balance
	p.UpdatedAt = e.now()
	if err := e.commit(ctx, &store.Batch{Participants: []*participant.Participant{p}}); err != nil {
		return nil, err
	}

	g.emit(events.TypeBalanceUpdated, "/participants", id, map[string]interface{}{
		"old_balance": old,
		"balance":     balance,
	})
	return p, nil
}

// LiftLapsedRestriction clears a restriction whose end time has passed.
func (e *Engine) LiftLapsedRestriction(ctx context.Context, id string) (_ *participant.Participant, err error) {
	defer e.observe("lift_restriction", time.Now(), &err)
	g := e.acquire(participantKey(id))
	defer g.release()

	p, err := e.store.GetParticipant(ctx, id)
	if err != nil {
		return nil, err
	}
	now := e.now()
	if !p.RestrictionLapsed(now) {
		return nil, core.Statef("engine.LiftLapsedRestriction", "participant %s has no lapsed restriction", id)
	}
	penaltyID := p.RestrictedBy
	p.Lift(now)
	if err := e.commit(ctx, &store.Batch{Participants: []*participant.Participant{p}}); err != nil {
		return nil, err
	}

	g.emit(events.TypeRestrictionLifted, "/participants", id, map[string]interface{}{"penalty_id": penaltyID})
	return p, nil
}

// liftIfImposedBy clears p's restriction when penaltyID imposed it. It
// reports whether anything changed.
func liftIfImposedBy(p *participant.Participant, penaltyID uint64, now int64) bool {
	if p == nil || !p.Restricted || p.RestrictedBy != penaltyID {
		return false
	}
	p.Lift(now)
	return true
}
