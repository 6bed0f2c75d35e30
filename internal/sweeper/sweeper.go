// Package sweeper runs the scheduled expiry pass over governance records.
//
// Each sweep expires appeals whose period ended undecided (reinstating the
// contested penalty), expires lapsed penalties (lifting the restriction they
// imposed) and lifts any other restriction whose end time has passed.
package sweeper

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ocx/fairgov/internal/appeal"
	"github.com/ocx/fairgov/internal/audit"
	"github.com/ocx/fairgov/internal/metrics"
	"github.com/ocx/fairgov/internal/participant"
	"github.com/ocx/fairgov/internal/penalty"
)

// Engine is the part of the governance engine the sweeper drives.
type Engine interface {
	ListAppeals(ctx context.Context) ([]*appeal.Appeal, error)
	IsAppealExpirable(ctx context.Context, a *appeal.Appeal) (bool, error)
	ExpireAppeal(ctx context.Context, id uint64) (*appeal.Appeal, error)

	ListPenalties(ctx context.Context) ([]*penalty.Penalty, error)
	ExpirePenalty(ctx context.Context, id uint64) (*penalty.Penalty, error)

	ListParticipants(ctx context.Context) ([]*participant.Participant, error)
	LiftLapsedRestriction(ctx context.Context, id string) (*participant.Participant, error)
}

// Config holds the optional collaborators of a Sweeper.
type Config struct {
	Metrics *metrics.Metrics
	Audit   *audit.Service
	Clock   func() time.Time
	Logger  *slog.Logger

	// RunTimeout bounds one scheduled sweep.
	RunTimeout time.Duration
}

// Result counts what one sweep changed.
type Result struct {
	AppealsExpired     int `json:"appeals_expired"`
	PenaltiesExpired   int `json:"penalties_expired"`
	RestrictionsLifted int `json:"restrictions_lifted"`
	Failed             int `json:"failed"`
}

// Changed reports whether the sweep touched any record.
func (r Result) Changed() bool {
	return r.AppealsExpired+r.PenaltiesExpired+r.RestrictionsLifted > 0
}

// Sweeper runs sweeps on demand or on a cron schedule. Sweeps never overlap.
type Sweeper struct {
	mu      sync.Mutex
	engine  Engine
	metrics *metrics.Metrics
	audit   *audit.Service
	clock   func() time.Time
	logger  *slog.Logger
	timeout time.Duration
	cron    *cron.Cron
}

// New creates a sweeper over engine.
func New(engine Engine, cfg Config) *Sweeper {
	s := &Sweeper{
		engine:  engine,
		metrics: cfg.Metrics,
		audit:   cfg.Audit,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		timeout: cfg.RunTimeout,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "sweeper")
	if s.timeout <= 0 {
		s.timeout = 30 * time.Second
	}
	return s
}

// Start schedules Sweep on spec, a cron expression with a seconds field
// (descriptors such as "@every 1m" also work). Runs stop when ctx is done or
// Stop is called.
func (s *Sweeper) Start(ctx context.Context, spec string) error {
	logger := cronLogger{s.logger}
	c := cron.New(cron.WithSeconds(), cron.WithLogger(logger), cron.WithChain(cron.Recover(logger)))

	_, err := c.AddFunc(spec, func() {
		// keep each run bounded
		rctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		if _, err := s.Sweep(rctx); err != nil {
			s.logger.Warn("[Sweeper] sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweeper schedule %q: %w", spec, err)
	}

	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()

	c.Start()
	s.logger.Info("[Sweeper] started", "schedule", spec)
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
		s.logger.Info("[Sweeper] stopped")
	}
}

// Sweep runs one pass. Failures on single records are logged and counted;
// only a failure to list records aborts the pass.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res Result
	if err := s.expireAppeals(ctx, &res); err != nil {
		return res, err
	}
	if err := s.expirePenalties(ctx, &res); err != nil {
		return res, err
	}
	if err := s.liftRestrictions(ctx, &res); err != nil {
		return res, err
	}

	if s.metrics != nil {
		s.metrics.SweepRuns.Inc()
		s.metrics.SweepActions.WithLabelValues("appeal_expired").Add(float64(res.AppealsExpired))
		s.metrics.SweepActions.WithLabelValues("penalty_expired").Add(float64(res.PenaltiesExpired))
		s.metrics.SweepActions.WithLabelValues("restriction_lifted").Add(float64(res.RestrictionsLifted))
	}
	if res.Changed() || res.Failed > 0 {
		s.logger.Info("[Sweeper] sweep complete",
			"appeals_expired", res.AppealsExpired,
			"penalties_expired", res.PenaltiesExpired,
			"restrictions_lifted", res.RestrictionsLifted,
			"failed", res.Failed)
		if s.audit != nil {
			s.audit.LogGeneric(ctx, audit.EventSweep, "sweeper", "", "sweep", res)
		}
	}
	return res, nil
}

func (s *Sweeper) expireAppeals(ctx context.Context, res *Result) error {
	appeals, err := s.engine.ListAppeals(ctx)
	if err != nil {
		return fmt.Errorf("list appeals: %w", err)
	}
	for _, a := range appeals {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ok, err := s.engine.IsAppealExpirable(ctx, a)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if _, err := s.engine.ExpireAppeal(ctx, a.ID); err != nil {
			res.Failed++
			s.logger.Warn("[Sweeper] could not expire appeal", "appeal_id", a.ID, "error", err)
			continue
		}
		res.AppealsExpired++
	}
	return nil
}

func (s *Sweeper) expirePenalties(ctx context.Context, res *Result) error {
	penalties, err := s.engine.ListPenalties(ctx)
	if err != nil {
		return fmt.Errorf("list penalties: %w", err)
	}
	now := s.clock().Unix()
	for _, p := range penalties {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !p.Lapsed(now) {
			continue
		}
		if _, err := s.engine.ExpirePenalty(ctx, p.ID); err != nil {
			res.Failed++
			s.logger.Warn("[Sweeper] could not expire penalty", "penalty_id", p.ID, "error", err)
			continue
		}
		res.PenaltiesExpired++
	}
	return nil
}

func (s *Sweeper) liftRestrictions(ctx context.Context, res *Result) error {
	participants, err := s.engine.ListParticipants(ctx)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}
	now := s.clock().Unix()
	for _, p := range participants {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !p.RestrictionLapsed(now) {
			continue
		}
		if _, err := s.engine.LiftLapsedRestriction(ctx, p.ID); err != nil {
			res.Failed++
			s.logger.Warn("[Sweeper] could not lift restriction", "participant", p.ID, "error", err)
			continue
		}
		res.RestrictionsLifted++
	}
	return nil
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug("[Sweeper] cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error("[Sweeper] cron: "+msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
