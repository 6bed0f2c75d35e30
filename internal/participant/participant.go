// Package participant holds the voting-power subject record.
//
// A Participant is never deleted, only restricted. Its signals are updated by
// the holder; its restriction fields are set by the penalty workflow and
// cleared when a restriction lapses or a penalty is overturned.
package participant

import (
	"github.com/ocx/fairgov/internal/core"
	"github.com/ocx/fairgov/internal/safeguards"
	"github.com/ocx/fairgov/internal/votingpower"
	"github.com/ocx/fairgov/internal/whale"
)

// Indefinite marks a restriction with no end time.
const Indefinite int64 = 0

// Participant is the governance voting-power subject.
type Participant struct {
	ID          string              `json:"id"`
	Balance     uint64              `json:"balance"`
	VotingPower uint64              `json:"voting_power"`
	Signals     votingpower.Signals `json:"signals"`

	// Whale flags
	IsWhale              bool  `json:"is_whale"`
	DiscountApplied      bool  `json:"discount_applied"`
	ConcentrationPercent uint8 `json:"concentration_percent"`

	// Voting restriction. RestrictedUntil of 0 is indefinite; RestrictedBy is
	// the penalty that imposed it.
	Restricted        bool   `json:"restricted"`
	RestrictionReason string `json:"restriction_reason,omitempty"`
	RestrictedUntil   int64  `json:"restricted_until"`
	RestrictedBy      uint64 `json:"restricted_by,omitempty"`

	LastVote  int64 `json:"last_vote"`
	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// New creates a participant with zero balance and power and no restriction.
// The signals must pass the up-front bounds checks.
func New(id string, signals votingpower.Signals, now int64) (*Participant, error) {
	if id == "" {
		return nil, core.Preconditionf("participant.New", "id", "participant id is required")
	}
	if err := signals.Validate(); err != nil {
		return nil, err
	}
	return &Participant{
		ID:        id,
		Signals:   signals,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Recompute stores signals and recomputes voting power and whale flags.
// totalSupply of zero leaves the concentration flags untouched. On error the
// participant is not modified.
func (p *Participant) Recompute(signals votingpower.Signals, totalSupply uint64, cfg safeguards.Config, now int64) (votingpower.Breakdown, error) {
	b, err := votingpower.ComputeBreakdown(signals, cfg)
	if err != nil {
		return votingpower.Breakdown{}, err
	}
	a, err := whale.Assess(b.RawPower, signals.StakedAmount, totalSupply, cfg)
	if err != nil {
		return votingpower.Breakdown{}, err
	}

	p.Signals = signals
	p.VotingPower = b.FinalPower
	p.DiscountApplied = a.DiscountApplied
	if totalSupply > 0 {
		p.IsWhale = a.IsWhale
		p.ConcentrationPercent = a.ConcentrationPercent
	}
	p.UpdatedAt = now
	return b, nil
}

// Restrict blocks voting until the given time (Indefinite for no end).
func (p *Participant) Restrict(reason string, until int64, penaltyID uint64, now int64) {
	p.Restricted = true
	p.RestrictionReason = reason
	p.RestrictedUntil = until
	p.RestrictedBy = penaltyID
	p.UpdatedAt = now
}

// Lift clears the restriction.
func (p *Participant) Lift(now int64) {
	p.Restricted = false
	p.RestrictionReason = ""
	p.RestrictedUntil = 0
	p.RestrictedBy = 0
	p.UpdatedAt = now
}

// RestrictionActive reports whether the restriction still applies at now.
func (p *Participant) RestrictionActive(now int64) bool {
	if !p.Restricted {
		return false
	}
	return p.RestrictedUntil == Indefinite || now < p.RestrictedUntil
}

// RestrictionLapsed reports a restriction whose end time has passed.
func (p *Participant) RestrictionLapsed(now int64) bool {
	return p.Restricted && p.RestrictedUntil != Indefinite && now >= p.RestrictedUntil
}

// CheckEligibility returns a State error when the participant may not vote:
// an active restriction, or a flagged whale still inside its cooldown.
func (p *Participant) CheckEligibility(now int64, cfg safeguards.Config) error {
	const op = "participant.CheckEligibility"
	if p.RestrictionActive(now) {
		return core.Statef(op, "participant %s is restricted: %s", p.ID, p.RestrictionReason)
	}
	if p.IsWhale && p.LastVote != 0 && whale.IsUnderCooldown(p.LastVote, now, cfg) {
		return core.Statef(op, "participant %s is under whale cooldown", p.ID)
	}
	if p.VotingPower == 0 {
		return core.Statef(op, "participant %s has no voting power", p.ID)
	}
	return nil
}

// RecordVote checks eligibility and stamps the vote time.
func (p *Participant) RecordVote(now int64, cfg safeguards.Config) error {
	if err := p.CheckEligibility(now, cfg); err != nil {
		return err
	}
	p.LastVote = now
	p.UpdatedAt = now
	return nil
}
