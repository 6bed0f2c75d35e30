// Package detection scores suspicious governance activity and tracks alerts
// through investigation.
package detection

import (
	"github.com/ocx/fairgov/internal/core"
)

// AlertType is the kind of manipulation an alert reports.
type AlertType string

const (
	WhaleManipulation AlertType = "WHALE_MANIPULATION"
	VoteCoordination  AlertType = "VOTE_COORDINATION"
	SuspiciousPattern AlertType = "SUSPICIOUS_PATTERN"
	Collusion         AlertType = "COLLUSION"
	Bribery           AlertType = "BRIBERY"
	VoteSelling       AlertType = "VOTE_SELLING"
	SybilAttack       AlertType = "SYBIL_ATTACK"
	FlashLoanAttack   AlertType = "FLASH_LOAN_ATTACK"
)

// AlertTypes lists every alert type.
var AlertTypes = []AlertType{
	WhaleManipulation, VoteCoordination, SuspiciousPattern, Collusion,
	Bribery, VoteSelling, SybilAttack, FlashLoanAttack,
}

var baseRisk = map[AlertType]int64{
	WhaleManipulation: 70,
	VoteCoordination:  80,
	SuspiciousPattern: 60,
	Collusion:         90,
	Bribery:           95,
	VoteSelling:       85,
	SybilAttack:       75,
	FlashLoanAttack:   90,
}

// Valid reports whether t is a known alert type.
func (t AlertType) Valid() bool {
	_, ok := baseRisk[t]
	return ok
}

// BaseRisk returns the fixed starting risk for t.
func (t AlertType) BaseRisk() (uint8, error) {
	base, ok := baseRisk[t]
	if !ok {
		return 0, core.Preconditionf("detection.BaseRisk", "alert_type", "unknown alert type %q", t)
	}
	return uint8(base), nil
}

const (
	maxViolationAdj  = 50
	violationAdjStep = 5
)

// RiskScore estimates how likely an activity is manipulation:
//
//	clamp(base + (strength-50)*2 + min(50, violations*5), 0, 100)
//
// evidenceStrength must be in [0,100].
func RiskScore(t AlertType, evidenceStrength uint8, historicalViolations uint64) (uint8, error) {
	const op = "detection.RiskScore"
	base, ok := baseRisk[t]
	if !ok {
		return 0, core.Preconditionf(op, "alert_type", "unknown alert type %q", t)
	}
	if evidenceStrength > 100 {
		return 0, core.Preconditionf(op, "evidence_strength", "must be at most 100, got %d", evidenceStrength)
	}

	evidenceAdj := (int64(evidenceStrength) - 50) * 2

	violationAdj := int64(maxViolationAdj)
	if historicalViolations < maxViolationAdj/violationAdjStep {
		violationAdj = int64(historicalViolations) * violationAdjStep
	}

	score := base + evidenceAdj + violationAdj
	switch {
	case score < 0:
		score = 0
	case score > 100:
		score = 100
	}
	return uint8(score), nil
}
