package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/ocx/fairgov/internal/audit"
	"github.com/ocx/fairgov/internal/core"
	"github.com/ocx/fairgov/internal/detection"
	"github.com/ocx/fairgov/internal/events"
	"github.com/ocx/fairgov/internal/store"
)

// GetAlert loads an alert.
func (e *Engine) GetAlert(ctx context.Context, id uint64) (*detection.Alert, error) {
	return e.store.GetAlert(ctx, id)
}

// CreateAlert scores and opens an alert. It is a State error while
// manipulation detection is switched off in the safeguards bundle.
func (e *Engine) CreateAlert(ctx context.Context, in detection.NewAlert) (_ *detection.Alert, err error) {
	defer e.observe("create_alert", time.Now(), &err)
	if !e.config.Get().ManipulationDetectionEnabled {
		return nil, core.Statef("engine.CreateAlert", "manipulation detection is disabled")
	}

	g := e.acquire(detectionSystemKey())
	defer g.release()

	sys, err := e.detectionSystem(ctx)
	if err != nil {
		return nil, err
	}
	a, err := sys.CreateAlert(in, e.now())
	if err != nil {
		return nil, err
	}
	g.lock(alertKey(a.ID))
	if err := e.commit(ctx, &store.Batch{DetectionSystem: sys, Alerts: []*detection.Alert{a}}); err != nil {
		return nil, err
	}

	if e.metrics != nil {
		e.metrics.AlertRiskScore.WithLabelValues(string(a.Type)).Observe(float64(a.RiskScore))
	}
	e.audit.LogGeneric(ctx, audit.EventAlert, "", a.TargetWallet, "create_alert", map[string]interface{}{
		"alert_id":   a.ID,
		"alert_type": a.Type,
		"risk_score": a.RiskScore,
	})
	g.emit(events.TypeAlertCreated, "/alerts", fmt.Sprint(a.ID), map[string]interface{}{
		"alert_type":    a.Type,
		"target_wallet": a.TargetWallet,
		"risk_score":    a.RiskScore,
	})
	return a, nil
}

// TransitionAlert applies an investigation event to an alert: investigate,
// resolve, false-positive or dismiss.
func (e *Engine) TransitionAlert(ctx context.Context, id uint64, event detection.AlertEvent, act detection.AlertAction) (_ *detection.Alert, err error) {
	defer e.observe("alert_"+string(event), time.Now(), &err)
	g := e.acquire(detectionSystemKey(), alertKey(id))
	defer g.release()

	a, err := e.store.GetAlert(ctx, id)
	if err != nil {
		return nil, err
	}
	sys, err := e.detectionSystem(ctx)
	if err != nil {
		return nil, err
	}
	from := a.Status
	if err := sys.Apply(a, event, act, e.now()); err != nil {
		return nil, err
	}
	if err := e.commit(ctx, &store.Batch{DetectionSystem: sys, Alerts: []*detection.Alert{a}}); err != nil {
		return nil, err
	}

	e.audit.LogTransition(ctx, audit.EventAlert, act.Investigator, fmt.Sprint(id), "alert_"+string(event), string(from), string(a.Status))
	g.emit(events.TypeAlertTransitioned, "/alerts", fmt.Sprint(id), map[string]interface{}{
		"from": from,
		"to":   a.Status,
	})
	return a, nil
}
