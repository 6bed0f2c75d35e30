// Package performance scores creators and tracks their assessment record.
package performance

import (
	"github.com/ocx/fairgov/internal/core"
)

// MaxHistory caps performance_history. Older scores are trimmed first.
const MaxHistory = 256

// CreatorPerformance is the assessment record for one creator and token.
type CreatorPerformance struct {
	ID        string  `json:"id"`
	CreatorID string  `json:"creator_id"`
	TokenRef  string  `json:"token_ref"`
	Metrics   Metrics `json:"metrics"`

	PerformanceScore  uint64   `json:"performance_score"`
	ReleasePercentage uint8    `json:"release_percentage"`
	History           []uint64 `json:"performance_history"`

	AssessmentStart int64 `json:"assessment_start"`
	AssessmentEnd   int64 `json:"assessment_end"`
	LastAssessment  int64 `json:"last_assessment"`

	FeedbackCount       uint64 `json:"feedback_count"`
	PositiveFeedback    uint64 `json:"positive_feedback"`
	NegativeFeedback    uint64 `json:"negative_feedback"`
	PositiveFeedbackPct uint8  `json:"positive_feedback_pct"`
	NegativeFeedbackPct uint8  `json:"negative_feedback_pct"`

	CreatedAt int64 `json:"created_at"`
	UpdatedAt int64 `json:"updated_at"`
}

// NewCreatorPerformance registers a creator and computes the initial score.
// The history starts empty.
func NewCreatorPerformance(id, creatorID, tokenRef string, m Metrics, start, end, now int64) (*CreatorPerformance, error) {
	const op = "performance.NewCreatorPerformance"
	if id == "" {
		return nil, core.Preconditionf(op, "id", "record id is required")
	}
	if creatorID == "" {
		return nil, core.Preconditionf(op, "creator_id", "creator id is required")
	}
	if start >= end {
		return nil, core.Preconditionf(op, "assessment_window", "start %d must precede end %d", start, end)
	}
	score, err := Score(m)
	if err != nil {
		return nil, err
	}
	return &CreatorPerformance{
		ID:                id,
		CreatorID:         creatorID,
		TokenRef:          tokenRef,
		Metrics:           m,
		PerformanceScore:  score,
		ReleasePercentage: ReleasePercentage(score),
		History:           []uint64{},
		AssessmentStart:   start,
		AssessmentEnd:     end,
		LastAssessment:    now,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// Update rescores with new metrics. The score being replaced is appended to
// the history. On error the record is not modified.
func (c *CreatorPerformance) Update(m Metrics, now int64) (uint64, uint8, error) {
	score, err := Score(m)
	if err != nil {
		return 0, 0, err
	}

	c.History = append(c.History, c.PerformanceScore)
	if over := len(c.History) - MaxHistory; over > 0 {
		c.History = append([]uint64(nil), c.History[over:]...)
	}

	c.Metrics = m
	c.PerformanceScore = score
	c.ReleasePercentage = ReleasePercentage(score)
	c.LastAssessment = now
	c.UpdatedAt = now
	return score, c.ReleasePercentage, nil
}

// RecordFeedback counts one piece of community feedback.
func (c *CreatorPerformance) RecordFeedback(positive bool, now int64) {
	c.FeedbackCount++
	if positive {
		c.PositiveFeedback++
	} else {
		c.NegativeFeedback++
	}
	c.PositiveFeedbackPct = uint8(c.PositiveFeedback * 100 / c.FeedbackCount)
	c.NegativeFeedbackPct = uint8(c.NegativeFeedback * 100 / c.FeedbackCount)
	c.UpdatedAt = now
}
