package penalty

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ocx/fairgov/internal/core"
)

func TestTypeForRiskBands(t *testing.T) {
	tests := []struct {
		risk uint8
		want Type
	}{
		{0, Warning},
		{30, Warning},
		{31, VotingRestriction},
		{50, VotingRestriction},
		{51, VotingBan},
		{70, VotingBan},
		{71, TokenConfiscation},
		{85, TokenConfiscation},
		{86, TemporaryBan},
		{95, TemporaryBan},
		{96, PermanentBan},
		{100, PermanentBan},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TypeForRisk(tt.risk), "risk=%d", tt.risk)
	}
}

func TestAmounts(t *testing.T) {
	s := DefaultSettings()
	want := map[Type]uint64{
		Warning:           100_000,
		VotingRestriction: 500_000,
		VotingBan:         1_000_000,
		TokenConfiscation: 2_000_000,
		TemporaryBan:      2_000_000,
		PermanentBan:      4_000_000,
	}
	for typ, amount := range want {
		got, err := s.AmountFor(typ)
		require.NoError(t, err)
		assert.Equal(t, amount, got, "%s", typ)
	}

	_, err := s.AmountFor(Type("EXILE"))
	assert.True(t, errors.Is(err, core.ErrPrecondition))
}

func TestSettingsValidate(t *testing.T) {
	require.NoError(t, DefaultSettings().Validate())

	s := DefaultSettings()
	s.Amounts.Warning = 0
	assert.True(t, errors.Is(s.Validate(), core.ErrConfig))

	s = DefaultSettings()
	s.Amounts.TokenConfiscation = math.MaxUint64
	assert.True(t, errors.Is(s.Validate(), core.ErrConfig))

	s = DefaultSettings()
	s.Durations.VotingBan = 0
	assert.True(t, errors.Is(s.Validate(), core.ErrConfig))
}

func newSystem(t *testing.T) *System {
	t.Helper()
	s, err := NewSystem(DefaultSettings(), 0)
	require.NoError(t, err)
	return s
}

func TestIssueUpdatesCounters(t *testing.T) {
	s := newSystem(t)

	p1, err := s.Issue(NewPenalty{Offender: "wallet-1", RiskScore: 90, Reason: "bribery"}, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), p1.ID)
	assert.Equal(t, TemporaryBan, p1.Type)
	assert.Equal(t, uint64(2_000_000), p1.Amount)
	assert.Equal(t, StatusActive, p1.Status)
	assert.Equal(t, 100+90*day, p1.ExpiresAt)

	p2, err := s.Issue(NewPenalty{Offender: "wallet-2", Type: Warning, RiskScore: 99}, 100)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), p2.ID)
	assert.Equal(t, Warning, p2.Type, "explicit type wins over risk")
	assert.Zero(t, p2.ExpiresAt)

	assert.Equal(t, uint64(2), s.TotalIssued)
	assert.Equal(t, uint64(2_100_000), s.TotalAmount)
	assert.Equal(t, uint64(2), s.ActiveCount)
}

func TestIssueRejectsWithoutCounting(t *testing.T) {
	s := newSystem(t)

	_, err := s.Issue(NewPenalty{Offender: "wallet-1", RiskScore: 101}, 0)
	assert.True(t, errors.Is(err, core.ErrPrecondition))
	_, err = s.Issue(NewPenalty{Offender: "wallet-1", Reason: strings.Repeat("r", core.MaxPenaltyReasonLen+1)}, 0)
	assert.True(t, errors.Is(err, core.ErrPrecondition))
	_, err = s.Issue(NewPenalty{Offender: "wallet-1", Type: Type("EXILE")}, 0)
	assert.True(t, errors.Is(err, core.ErrPrecondition))
	_, err = s.Issue(NewPenalty{RiskScore: 10}, 0)
	assert.True(t, errors.Is(err, core.ErrPrecondition))

	s.TotalAmount = math.MaxUint64
	_, err = s.Issue(NewPenalty{Offender: "wallet-1", RiskScore: 10}, 0)
	assert.True(t, errors.Is(err, core.ErrArithmetic))

	assert.Zero(t, s.TotalIssued)
	assert.Zero(t, s.ActiveCount)
}

func TestPayAndExpire(t *testing.T) {
	s := newSystem(t)
	p, _ := s.Issue(NewPenalty{Offender: "wallet-1", RiskScore: 40}, 0)

	err := s.Expire(p, p.ExpiresAt-1)
	assert.True(t, errors.Is(err, core.ErrState))

	require.NoError(t, s.Pay(p, 10))
	assert.Equal(t, StatusPaid, p.Status)
	assert.Zero(t, s.ActiveCount)
	assert.True(t, errors.Is(s.Pay(p, 11), core.ErrState))

	q, _ := s.Issue(NewPenalty{Offender: "wallet-2", RiskScore: 60}, 0)
	require.True(t, q.Lapsed(q.ExpiresAt))
	require.NoError(t, s.Expire(q, q.ExpiresAt))
	assert.Equal(t, StatusExpired, q.Status)
	assert.Equal(t, q.ExpiresAt, q.ResolvedAt)
	assert.Zero(t, s.ActiveCount)
}

func TestAppealOutcomes(t *testing.T) {
	s := newSystem(t)

	overturned, _ := s.Issue(NewPenalty{Offender: "wallet-1", RiskScore: 60}, 0)
	require.NoError(t, s.MarkAppealed(overturned, 7, 1))
	assert.Equal(t, uint64(7), overturned.AppealID)
	assert.False(t, overturned.Lapsed(overturned.ExpiresAt), "appealed penalties wait for the appeal")
	require.NoError(t, s.Overturn(overturned, 2))
	assert.Equal(t, StatusOverturned, overturned.Status)

	reduced, _ := s.Issue(NewPenalty{Offender: "wallet-2", RiskScore: 60}, 0)
	require.NoError(t, s.MarkAppealed(reduced, 8, 1))
	assert.True(t, errors.Is(s.Reduce(reduced, 100, 2), core.ErrPrecondition))
	require.NoError(t, s.Reduce(reduced, 40, 2))
	assert.Equal(t, StatusReduced, reduced.Status)
	assert.Equal(t, uint64(600_000), reduced.Amount)
	assert.Equal(t, uint64(1_000_000), reduced.OriginalAmount)

	reinstated, _ := s.Issue(NewPenalty{Offender: "wallet-3", RiskScore: 60}, 0)
	require.NoError(t, s.MarkAppealed(reinstated, 9, 1))
	require.NoError(t, s.Reinstate(reinstated, 2))
	assert.Equal(t, StatusActive, reinstated.Status)

	// reduced and reinstated are still owed
	assert.Equal(t, uint64(2), s.ActiveCount)
	require.NoError(t, s.Pay(reduced, 3))
	assert.Equal(t, uint64(1), s.ActiveCount)

	assert.True(t, errors.Is(s.Overturn(reinstated, 4), core.ErrState))
}

func TestReduceKeepsPrecision(t *testing.T) {
	s := newSystem(t)
	p := &Penalty{Status: StatusAppealed, Amount: math.MaxUint64}
	s.ActiveCount = 1
	require.NoError(t, s.Reduce(p, 1, 0))
	assert.Equal(t, uint64(math.MaxUint64/100*99+(math.MaxUint64%100)*99/100), p.Amount)
	assert.Less(t, p.Amount, uint64(math.MaxUint64))
}
