package engine

import (
	"context"
	"time"
)

// Stats are the system counters exposed to operators.
type Stats struct {
	Participants           int `json:"participants"`
	RestrictedParticipants int `json:"restricted_participants"`

	TotalAlerts            uint64 `json:"total_alerts"`
	ConfirmedManipulations uint64 `json:"confirmed_manipulations"`
	FalsePositives         uint64 `json:"false_positives"`

	TotalPenalties     uint64 `json:"total_penalties_issued"`
	TotalPenaltyAmount uint64 `json:"total_penalty_amount"`
	ActivePenalties    uint64 `json:"active_penalties"`

	TotalAppeals      uint64 `json:"total_appeals"`
	SuccessfulAppeals uint64 `json:"successful_appeals"`
	RejectedAppeals   uint64 `json:"rejected_appeals"`
	ExpiredAppeals    uint64 `json:"expired_appeals"`
}

// Stats gathers the counters of every system aggregate. Systems that have
// never been written report zeros.
func (e *Engine) Stats(ctx context.Context) (_ Stats, err error) {
	defer e.observe("stats", time.Now(), &err)

	var s Stats
	participants, err := e.store.ListParticipants(ctx)
	if err != nil {
		return Stats{}, err
	}
	now := e.now()
	s.Participants = len(participants)
	for _, p := range participants {
		if p.RestrictionActive(now) {
			s.RestrictedParticipants++
		}
	}

	det, err := e.detectionSystem(ctx)
	if err != nil {
		return Stats{}, err
	}
	s.TotalAlerts = det.TotalAlerts
	s.ConfirmedManipulations = det.ConfirmedManipulations
	s.FalsePositives = det.FalsePositives

	pen, err := e.penaltySystem(ctx)
	if err != nil {
		return Stats{}, err
	}
	s.TotalPenalties = pen.TotalIssued
	s.TotalPenaltyAmount = pen.TotalAmount
	s.ActivePenalties = pen.ActiveCount

	app, err := e.appealSystem(ctx)
	if err != nil {
		return Stats{}, err
	}
	s.TotalAppeals = app.TotalAppeals
	s.SuccessfulAppeals = app.SuccessfulAppeals
	s.RejectedAppeals = app.RejectedAppeals
	s.ExpiredAppeals = app.ExpiredAppeals

	if e.metrics != nil {
		e.metrics.ActivePenalties.Set(float64(s.ActivePenalties))
	}
	return s, nil
}
