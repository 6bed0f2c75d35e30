package engine

import (
	"context"
	"errors"
	"time"

	"github.com/ocx/fairgov/internal/core"
	"github.com/ocx/fairgov/internal/events"
	"github.com/ocx/fairgov/internal/performance"
	"github.com/ocx/fairgov/internal/store"
)

// NewCreator is the input to RegisterCreator.
type NewCreator struct {
	ID              string              `json:"id"`
	CreatorID       string              `json:"creator_id"`
	TokenRef        string              `json:"token_ref"`
	Metrics         performance.Metrics `json:"metrics"`
	AssessmentStart int64               `json:"assessment_start"`
	AssessmentEnd   int64               `json:"assessment_end"`
}

// GetCreator loads a creator performance record.
func (e *Engine) GetCreator(ctx context.Context, id string) (*performance.CreatorPerformance, error) {
	return e.store.GetCreator(ctx, id)
}

// RegisterCreator scores the initial metrics and opens the record.
func (e *Engine) RegisterCreator(ctx context.Context, in NewCreator) (_ *performance.CreatorPerformance, err error) {
	defer e.observe("register_creator", time.Now(), &err)
	g := e.acquire(creatorKey(in.ID))
	defer g.release()

	if _, err := e.store.GetCreator(ctx, in.ID); err == nil {
		return nil, core.Statef("engine.RegisterCreator", "creator record %s already exists", in.ID)
	} else if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	c, err := performance.NewCreatorPerformance(in.ID, in.CreatorID, in.TokenRef, in.Metrics,
		in.AssessmentStart, in.AssessmentEnd, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.commit(ctx, &store.Batch{Creators: []*performance.CreatorPerformance{c}}); err != nil {
		return nil, err
	}

	g.emit(events.TypeCreatorRegistered, "/creators", c.ID, map[string]interface{}{
		"creator_id":         c.CreatorID,
		"performance_score":  c.PerformanceScore,
		"release_percentage": c.ReleasePercentage,
	})
	return c, nil
}

// ScoreCreator replaces the metrics, rescoring the record and pushing the
// previous score onto its history.
func (e *Engine) ScoreCreator(ctx context.Context, id string, m performance.Metrics) (_ *performance.CreatorPerformance, err error) {
	defer e.observe("score_creator_performance", time.Now(), &err)
	g := e.acquire(creatorKey(id))
	defer g.release()

	c, err := e.store.GetCreator(ctx, id)
	if err != nil {
		return nil, err
	}
	score, release, err := c.Update(m, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.commit(ctx, &store.Batch{Creators: []*performance.CreatorPerformance{c}}); err != nil {
		return nil, err
	}

	g.emit(events.TypeCreatorScored, "/creators", id, map[string]interface{}{
		"performance_score":  score,
		"release_percentage": release,
	})
	return c, nil
}

// RecordFeedback counts one positive or negative community feedback.
func (e *Engine) RecordFeedback(ctx context.Context, id string, positive bool) (_ *performance.CreatorPerformance, err error) {
	defer e.observe("record_feedback", time.Now(), &err)
	g := e.acquire(creatorKey(id))
	defer g.release()

	c, err := e.store.GetCreator(ctx, id)
	if err != nil {
		return nil, err
	}
	c.RecordFeedback(positive, e.now())
	if err := e.commit(ctx, &store.Batch{Creators: []*performance.CreatorPerformance{c}}); err != nil {
		return nil, err
	}

	g.emit(events.TypeCreatorFeedback, "/creators", id, map[string]interface{}{
		"positive":       positive,
		"feedback_count": c.FeedbackCount,
	})
	return c, nil
}
