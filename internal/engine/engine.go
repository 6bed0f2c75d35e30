// Package engine exposes every governance operation over a Store.
//
// Each operation loads the records it needs, applies the domain change in
// memory and commits the result as one Batch. A failed operation commits
// nothing. Operations touching the same records are serialized through a
// table of per-record locks, always taken in the order appeals, penalties,
// detection, creators, participants.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/ocx/fairgov/internal/appeal"
	"github.com/ocx/fairgov/internal/audit"
	"github.com/ocx/fairgov/internal/core"
	"github.com/ocx/fairgov/internal/detection"
	"github.com/ocx/fairgov/internal/events"
	"github.com/ocx/fairgov/internal/metrics"
	"github.com/ocx/fairgov/internal/penalty"
	"github.com/ocx/fairgov/internal/safeguards"
	"github.com/ocx/fairgov/internal/store"
)

// Deps wires an Engine. Events, Metrics, Audit, Clock and Logger are
// optional.
type Deps struct {
	Store  store.Store
	Config *safeguards.Holder

	// Settings used when a system aggregate is created for the first time.
	Penalties penalty.Settings
	Appeals   appeal.Settings
	Detection detection.Settings

	Events  events.EventEmitter
	Metrics *metrics.Metrics
	Audit   *audit.Service
	Clock   func() time.Time
	Logger  *slog.Logger
}

// Engine runs governance operations.
type Engine struct {
	store  store.Store
	config *safeguards.Holder

	penalties penalty.Settings
	appeals   appeal.Settings
	detection detection.Settings

	events  events.EventEmitter
	metrics *metrics.Metrics
	audit   *audit.Service
	clock   func() time.Time
	logger  *slog.Logger

	locks *xsync.Map[string, *recordLock]
}

// New validates the system settings and builds an Engine.
func New(d Deps) (*Engine, error) {
	if d.Store == nil {
		return nil, fmt.Errorf("engine: store is required")
	}
	if d.Config == nil {
		return nil, fmt.Errorf("engine: safeguards config is required")
	}
	if err := d.Penalties.Validate(); err != nil {
		return nil, err
	}
	if err := d.Appeals.Validate(); err != nil {
		return nil, err
	}
	if err := d.Detection.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		store:     d.Store,
		config:    d.Config,
		penalties: d.Penalties,
		appeals:   d.Appeals,
		detection: d.Detection,
		events:    d.Events,
		metrics:   d.Metrics,
		audit:     d.Audit,
		clock:     d.Clock,
		logger:    d.Logger,
		locks:     xsync.NewMap[string, *recordLock](),
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.logger = e.logger.With("component", "engine")
	if e.audit == nil {
		e.audit = audit.NewService(audit.SlogLogger{Logger: e.logger})
	}
	return e, nil
}

func (e *Engine) now() int64 {
	return e.clock().Unix()
}

// ============================================================================
// LOCKING
// ============================================================================

type rank int

const (
	rankAppealSystem rank = iota
	rankAppeal
	rankPenaltySystem
	rankPenalty
	rankDetectionSystem
	rankAlert
	rankCreator
	rankParticipant
)

type lockKey struct {
	rank rank
	id   string
}

func (k lockKey) String() string {
	return fmt.Sprintf("%d/%s", k.rank, k.id)
}

func appealSystemKey() lockKey { return lockKey{rankAppealSystem, ""} }
func appealKey(id uint64) lockKey { return lockKey{rankAppeal, fmt.Sprint(id)} }
func penaltySystemKey() lockKey { return lockKey{rankPenaltySystem, ""} }
func penaltyKey(id uint64) lockKey { return lockKey{rankPenalty, fmt.Sprint(id)} }
func detectionSystemKey() lockKey { return lockKey{rankDetectionSystem, ""} }
func alertKey(id uint64) lockKey { return lockKey{rankAlert, fmt.Sprint(id)} }
func creatorKey(id string) lockKey { return lockKey{rankCreator, id} }
func participantKey(id string) lockKey { return lockKey{rankParticipant, id} }

// recordLock is one entry of the lock table. refs counts the operations
// holding or waiting on mu; the entry is removed when it drops to zero.
type recordLock struct {
	mu   sync.Mutex
	refs int
}

// guard holds the locks of one operation. Keys must be added in
// non-decreasing rank across calls to lock. Events emitted through the
// guard are published by release once every lock is dropped.
type guard struct {
	e       *Engine
	held    map[string]*recordLock
	top     rank
	pending []pendingEvent
}

type pendingEvent struct {
	eventType, source, subject string
	data                       map[string]interface{}
}

func (e *Engine) acquire(keys ...lockKey) *guard {
	g := &guard{e: e, held: make(map[string]*recordLock)}
	g.lock(keys...)
	return g
}

func (g *guard) lock(keys ...lockKey) {
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].rank != keys[j].rank {
			return keys[i].rank < keys[j].rank
		}
		return keys[i].id < keys[j].id
	})
	for _, k := range keys {
		name := k.String()
		if _, ok := g.held[name]; ok {
			continue
		}
		if k.rank < g.top {
			panic(fmt.Sprintf("engine: lock %s taken out of order", name))
		}
		l, _ := g.e.locks.Compute(name, func(l *recordLock, loaded bool) (*recordLock, xsync.ComputeOp) {
			if !loaded {
				l = &recordLock{}
			}
			l.refs++
			return l, xsync.UpdateOp
		})
		l.mu.Lock()
		g.held[name] = l
		g.top = k.rank
	}
}

// emit queues an event until release.
func (g *guard) emit(eventType, source, subject string, data map[string]interface{}) {
	g.pending = append(g.pending, pendingEvent{eventType, source, subject, data})
}

func (g *guard) release() {
	for name, l := range g.held {
		l.mu.Unlock()
		g.e.locks.Compute(name, func(cur *recordLock, loaded bool) (*recordLock, xsync.ComputeOp) {
			if !loaded {
				return cur, xsync.CancelOp
			}
			cur.refs--
			if cur.refs == 0 {
				return cur, xsync.DeleteOp
			}
			return cur, xsync.UpdateOp
		})
	}
	g.held = nil

	pending := g.pending
	g.pending = nil
	for _, ev := range pending {
		g.e.emit(ev.eventType, ev.source, ev.subject, ev.data)
	}
}

// ============================================================================
// SYSTEM AGGREGATES
// ============================================================================

func (e *Engine) detectionSystem(ctx context.Context) (*detection.System, error) {
	s, err := e.store.GetDetectionSystem(ctx)
	if errors.Is(err, core.ErrNotFound) {
		return detection.NewSystem(e.detection, e.now())
	}
	return s, err
}

func (e *Engine) penaltySystem(ctx context.Context) (*penalty.System, error) {
	s, err := e.store.GetPenaltySystem(ctx)
	if errors.Is(err, core.ErrNotFound) {
		return penalty.NewSystem(e.penalties, e.now())
	}
	return s, err
}

func (e *Engine) appealSystem(ctx context.Context) (*appeal.System, error) {
	s, err := e.store.GetAppealSystem(ctx)
	if errors.Is(err, core.ErrNotFound) {
		return appeal.NewSystem(e.appeals, e.now())
	}
	return s, err
}

// ============================================================================
// SIDE CHANNELS
// ============================================================================

// observe records the outcome of an operation. Call it deferred with a
// pointer to the named error result.
func (e *Engine) observe(op string, started time.Time, errp *error) {
	var err error
	if errp != nil {
		err = *errp
	}
	result := Result(err)
	if e.metrics != nil {
		e.metrics.ObserveOperation(op, result, started)
	}
	switch result {
	case "ok":
		e.logger.Debug("operation completed", "op", op, "duration", time.Since(started))
	case "internal":
		e.logger.Error("operation failed", "op", op, "error", err)
	default:
		e.logger.Info("operation rejected", "op", op, "result", result, "error", err)
	}
}

// Result names the outcome class of err for metrics and logs.
func Result(err error) string {
	if err == nil {
		return "ok"
	}
	switch core.KindOf(err) {
	case core.KindConfig:
		return "config"
	case core.KindPrecondition:
		return "precondition"
	case core.KindState:
		return "state"
	case core.KindArithmetic:
		return "arithmetic"
	case core.KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

func (e *Engine) emit(eventType, source, subject string, data map[string]interface{}) {
	if e.events == nil {
		return
	}
	e.events.Emit(eventType, source, subject, data)
}

func (e *Engine) commit(ctx context.Context, b *store.Batch) error {
	if err := e.store.Commit(ctx, b); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if b.PenaltySystem != nil && e.metrics != nil {
		e.metrics.ActivePenalties.Set(float64(b.PenaltySystem.ActiveCount))
	}
	return nil
}
