package penalty

import (
	"github.com/ocx/fairgov/internal/core"
)

const day int64 = 24 * 60 * 60

// Amounts are the configured base amounts per penalty type. Temporary and
// permanent bans are derived at twice the voting-ban and confiscation
// amounts.
type Amounts struct {
	Warning           uint64 `json:"warning" yaml:"warning"`
	VotingRestriction uint64 `json:"voting_restriction" yaml:"voting_restriction"`
	VotingBan         uint64 `json:"voting_ban" yaml:"voting_ban"`
	TokenConfiscation uint64 `json:"token_confiscation" yaml:"token_confiscation"`
}

// Durations are how long each restricting type blocks voting, in seconds.
// Permanent bans never lapse.
type Durations struct {
	VotingRestriction int64 `json:"voting_restriction" yaml:"voting_restriction"`
	VotingBan         int64 `json:"voting_ban" yaml:"voting_ban"`
	TemporaryBan      int64 `json:"temporary_ban" yaml:"temporary_ban"`
}

// Settings bundle the penalty amounts and restriction durations.
type Settings struct {
	Amounts   Amounts   `json:"amounts" yaml:"amounts"`
	Durations Durations `json:"durations" yaml:"durations"`
}

// DefaultSettings returns the stock penalty schedule.
func DefaultSettings() Settings {
	return Settings{
		Amounts: Amounts{
			Warning:           100_000,
			VotingRestriction: 500_000,
			VotingBan:         1_000_000,
			TokenConfiscation: 2_000_000,
		},
		Durations: Durations{
			VotingRestriction: 7 * day,
			VotingBan:         30 * day,
			TemporaryBan:      90 * day,
		},
	}
}

// Validate checks amounts are positive, the doubled amounts fit in 64 bits
// and durations are positive.
func (s Settings) Validate() error {
	const op = "penalty.Settings.Validate"
	for _, a := range []struct {
		field string
		val   uint64
	}{
		{"warning", s.Amounts.Warning},
		{"voting_restriction", s.Amounts.VotingRestriction},
		{"voting_ban", s.Amounts.VotingBan},
		{"token_confiscation", s.Amounts.TokenConfiscation},
	} {
		if a.val == 0 {
			return core.Configf(op, a.field, "penalty amount must be positive")
		}
	}
	if _, err := core.MulU64(op, s.Amounts.VotingBan, 2); err != nil {
		return core.Configf(op, "voting_ban", "doubled amount overflows")
	}
	if _, err := core.MulU64(op, s.Amounts.TokenConfiscation, 2); err != nil {
		return core.Configf(op, "token_confiscation", "doubled amount overflows")
	}
	for _, d := range []struct {
		field string
		val   int64
	}{
		{"voting_restriction_duration", s.Durations.VotingRestriction},
		{"voting_ban_duration", s.Durations.VotingBan},
		{"temporary_ban_duration", s.Durations.TemporaryBan},
	} {
		if d.val <= 0 {
			return core.Configf(op, d.field, "restriction duration must be positive")
		}
	}
	return nil
}

// AmountFor returns the amount charged for t.
func (s Settings) AmountFor(t Type) (uint64, error) {
	const op = "penalty.AmountFor"
	switch t {
	case Warning:
		return s.Amounts.Warning, nil
	case VotingRestriction:
		return s.Amounts.VotingRestriction, nil
	case VotingBan:
		return s.Amounts.VotingBan, nil
	case TokenConfiscation:
		return s.Amounts.TokenConfiscation, nil
	case TemporaryBan:
		return core.MulU64(op, s.Amounts.VotingBan, 2)
	case PermanentBan:
		return core.MulU64(op, s.Amounts.TokenConfiscation, 2)
	}
	return 0, core.Preconditionf(op, "penalty_type", "unknown penalty type %q", t)
}

// ExpiryFor returns when a penalty of type t issued at now lapses. Zero
// means it never lapses.
func (s Settings) ExpiryFor(t Type, now int64) int64 {
	switch t {
	case VotingRestriction:
		return now + s.Durations.VotingRestriction
	case VotingBan:
		return now + s.Durations.VotingBan
	case TemporaryBan:
		return now + s.Durations.TemporaryBan
	}
	return 0
}

// System is the penalty aggregate. Counters change only in the same step as
// the penalty they count.
type System struct {
	Settings Settings `json:"settings"`

	TotalIssued uint64 `json:"total_penalties_issued"`
	TotalAmount uint64 `json:"total_penalty_amount"`
	ActiveCount uint64 `json:"active_penalties"`

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

// NewPenalty is the input to Issue. An empty Type is derived from RiskScore.
type NewPenalty struct {
	Offender  string `json:"offender"`
	Type      Type   `json:"penalty_type,omitempty"`
	RiskScore uint8  `json:"risk_score"`
	Reason    string `json:"reason"`
	Evidence  string `json:"evidence"`
}

// Issue creates an active penalty and counts it. The penalty id is the next
// counter value. Nothing changes on error.
func (s *System) Issue(in NewPenalty, now int64) (*Penalty, error) {
	const op = "penalty.Issue"
	if in.Offender == "" {
		return nil, core.Preconditionf(op, "offender", "offender is required")
	}
	if in.RiskScore > 100 {
		return nil, core.Preconditionf(op, "risk_score", "must be at most 100, got %d", in.RiskScore)
	}
	if err := core.CheckLen(op, "reason", in.Reason, core.MaxPenaltyReasonLen); err != nil {
		return nil, err
	}
	if err := core.CheckLen(op, "evidence", in.Evidence, core.MaxPenaltyEvidenceLen); err != nil {
		return nil, err
	}

	typ := in.Type
	if typ == "" {
		typ = TypeForRisk(in.RiskScore)
	}
	amount, err := s.Settings.AmountFor(typ)
	if err != nil {
		return nil, err
	}
	total, err := core.AddU64(op, s.TotalAmount, amount)
	if err != nil {
		return nil, err
	}

	s.TotalIssued++
	s.TotalAmount = total
	s.ActiveCount++
	s.UpdatedAt = now
	return &Penalty{
		ID:             s.TotalIssued,
		Offender:       in.Offender,
		Type:           typ,
		Reason:         in.Reason,
		Evidence:       in.Evidence,
		RiskScore:      in.RiskScore,
		Amount:         amount,
		OriginalAmount: amount,
		Status:         StatusActive,
		ExpiresAt:      s.Settings.ExpiryFor(typ, now),
		IssuedAt:       now,
		UpdatedAt:      now,
	}, nil
}

func (s *System) apply(p *Penalty, event Event, now int64) error {
	next, err := NextStatus(p.Status, event)
	if err != nil {
		return err
	}
	if p.Status.Outstanding() && !next.Outstanding() {
		s.ActiveCount--
		p.ResolvedAt = now
	}
	p.Status = next
	p.UpdatedAt = now
	s.UpdatedAt = now
	return nil
}

// Pay settles an active or reduced penalty.
func (s *System) Pay(p *Penalty, now int64) error {
	return s.apply(p, EventPay, now)
}

// Expire closes a penalty whose restriction window has ended.
func (s *System) Expire(p *Penalty, now int64) error {
	if !p.Lapsed(now) {
		if _, err := NextStatus(p.Status, EventExpire); err != nil {
			return err
		}
		return core.Statef("penalty.Expire", "penalty %d does not lapse until %d", p.ID, p.ExpiresAt)
	}
	return s.apply(p, EventExpire, now)
}

// MarkAppealed links an appeal to an active penalty.
func (s *System) MarkAppealed(p *Penalty, appealID uint64, now int64) error {
	if err := s.apply(p, EventAppeal, now); err != nil {
		return err
	}
	p.AppealID = appealID
	return nil
}

// Overturn cancels an appealed penalty.
func (s *System) Overturn(p *Penalty, now int64) error {
	return s.apply(p, EventOverturn, now)
}

// Reduce cuts an appealed penalty's amount by percent (1..99).
func (s *System) Reduce(p *Penalty, percent uint8, now int64) error {
	if percent == 0 || percent >= 100 {
		return core.Preconditionf("penalty.Reduce", "reduction_percent", "must be in 1..99, got %d", percent)
	}
	if err := s.apply(p, EventReduce, now); err != nil {
		return err
	}
	// amount*(100-percent)/100 split so it cannot overflow
	keep := uint64(100 - percent)
	p.Amount = (p.Amount/100)*keep + (p.Amount%100)*keep/100
	return nil
}

// Reinstate returns an appealed penalty to active after the appeal fails.
func (s *System) Reinstate(p *Penalty, now int64) error {
	return s.apply(p, EventReinstate, now)
}
