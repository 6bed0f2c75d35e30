// Package penalty maps risk to sanctions and tracks each penalty from
// issuance through payment, expiry or appeal.
package penalty

import (
	"github.com/ocx/fairgov/internal/core"
)

// Type is the sanction kind, ordered by severity.
type Type string

const (
	Warning           Type = "WARNING"
	VotingRestriction Type = "VOTING_RESTRICTION"
	VotingBan         Type = "VOTING_BAN"
	TokenConfiscation Type = "TOKEN_CONFISCATION"
	TemporaryBan      Type = "TEMPORARY_BAN"
	PermanentBan      Type = "PERMANENT_BAN"
)

// Valid reports whether t is a known penalty type.
func (t Type) Valid() bool {
	switch t {
	case Warning, VotingRestriction, VotingBan, TokenConfiscation, TemporaryBan, PermanentBan:
		return true
	}
	return false
}

// Restricts reports whether t blocks the offender from voting.
func (t Type) Restricts() bool {
	switch t {
	case VotingRestriction, VotingBan, TemporaryBan, PermanentBan:
		return true
	}
	return false
}

// risk bands, inclusive upper bounds, lowest first
var riskBands = []struct {
	max uint8
	typ Type
}{
	{30, Warning},
	{50, VotingRestriction},
	{70, VotingBan},
	{85, TokenConfiscation},
	{95, TemporaryBan},
}

// TypeForRisk picks the sanction for a risk score. Anything above 95 is a
// permanent ban.
func TypeForRisk(risk uint8) Type {
	for _, b := range riskBands {
		if risk <= b.max {
			return b.typ
		}
	}
	return PermanentBan
}

// ============================================================================
// PENALTY STATE MACHINE
// ============================================================================

// Status is the lifecycle state of a penalty.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusPaid       Status = "PAID"
	StatusExpired    Status = "EXPIRED"
	StatusAppealed   Status = "APPEALED"
	StatusOverturned Status = "OVERTURNED"
	StatusReduced    Status = "REDUCED"
)

// Outstanding reports whether the penalty still counts as active.
func (s Status) Outstanding() bool {
	return s == StatusActive || s == StatusAppealed || s == StatusReduced
}

// Event drives a penalty transition.
type Event string

const (
	EventPay       Event = "pay"
	EventExpire    Event = "expire"
	EventAppeal    Event = "appeal"
	EventOverturn  Event = "overturn"
	EventReduce    Event = "reduce"
	EventReinstate Event = "reinstate"
)

type transition struct {
	from  Status
	event Event
}

var transitions = map[transition]Status{
	{StatusActive, EventPay}:         StatusPaid,
	{StatusActive, EventExpire}:      StatusExpired,
	{StatusActive, EventAppeal}:      StatusAppealed,
	{StatusAppealed, EventOverturn}:  StatusOverturned,
	{StatusAppealed, EventReduce}:    StatusReduced,
	{StatusAppealed, EventReinstate}: StatusActive,
	{StatusReduced, EventPay}:        StatusPaid,
	{StatusReduced, EventExpire}:     StatusExpired,
}

// NextStatus looks up the transition table. Illegal transitions are State
// errors.
func NextStatus(from Status, event Event) (Status, error) {
	next, ok := transitions[transition{from, event}]
	if !ok {
		return from, core.Statef("penalty.NextStatus", "cannot %s a penalty in state %s", event, from)
	}
	return next, nil
}

// Penalty is a sanction issued against one offender.
type Penalty struct {
	ID             uint64 `json:"id"`
	Offender       string `json:"offender"`
	Type           Type   `json:"penalty_type"`
	Reason         string `json:"reason"`
	Evidence       string `json:"evidence"`
	RiskScore      uint8  `json:"risk_score"`
	Amount         uint64 `json:"amount"`
	OriginalAmount uint64 `json:"original_amount"`
	Status         Status `json:"status"`

	// AppealID is the appeal contesting this penalty, 0 if none.
	AppealID uint64 `json:"appeal_id,omitempty"`
	// ExpiresAt is when a restricting penalty lapses; 0 never expires.
	ExpiresAt int64 `json:"expires_at,omitempty"`

	IssuedAt   int64 `json:"issued_at"`
	ResolvedAt int64 `json:"resolved_at,omitempty"`
	UpdatedAt  int64 `json:"updated_at"`
}

// Lapsed reports an outstanding penalty whose expiry has passed. Appealed
// penalties wait for the appeal.
func (p *Penalty) Lapsed(now int64) bool {
	return p.ExpiresAt != 0 && now >= p.ExpiresAt &&
		(p.Status == StatusActive || p.Status == StatusReduced)
}
