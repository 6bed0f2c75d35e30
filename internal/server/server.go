// Package server assembles the governance engine, its HTTP surface and the
// expiry sweeper from a loaded configuration, and runs them until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	_ "github.com/glebarez/go-sqlite" // "sqlite" audit driver
	_ "github.com/lib/pq"             // "postgres" audit driver
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/ocx/fairgov/internal/api"
	"github.com/ocx/fairgov/internal/audit"
	"github.com/ocx/fairgov/internal/circuitbreaker"
	"github.com/ocx/fairgov/internal/config"
	"github.com/ocx/fairgov/internal/engine"
	"github.com/ocx/fairgov/internal/events"
	"github.com/ocx/fairgov/internal/metrics"
	"github.com/ocx/fairgov/internal/middleware"
	"github.com/ocx/fairgov/internal/safeguards"
	"github.com/ocx/fairgov/internal/store"
	"github.com/ocx/fairgov/internal/sweeper"
)

// App is a fully wired instance. Close releases everything Build opened.
type App struct {
	Config   *config.Config
	Engine   *engine.Engine
	Sweeper  *sweeper.Sweeper
	Bus      *events.EventBus
	Registry *prometheus.Registry
	Handler  http.Handler

	logger  *slog.Logger
	closers []func() error
}

// NewLogger builds the process logger from the log section.
func NewLogger(cfg config.LogConfig) *slog.Logger {
	level := cfg.SlogLevel()
	opts := &slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// Build validates cfg and wires store, events, audit, metrics, engine,
// sweeper and router.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, logger: logger}

	st, redisClient, err := store.New(cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	app.closers = append(app.closers, st.Close)
	logger.Info("[Server] store ready", "backend", cfg.Store.Backend)

	app.Bus = events.NewEventBus(logger)
	app.closers = append(app.closers, func() error { app.Bus.Close(); return nil })
	if redisClient != nil {
		breaker := circuitbreaker.New(circuitbreaker.Config{
			Name:             "redis-events",
			FailureThreshold: 5,
			OpenTimeout:      30 * time.Second,
			Logger:           logger,
		})
		app.Bus.ForwardTo(circuitbreaker.GuardPublisher(redisClient, breaker), cfg.Store.KeyPrefix+"events:")
	}

	auditSink, err := openAudit(ctx, cfg.Audit, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	if c, ok := auditSink.(interface{ Close() error }); ok {
		app.closers = append(app.closers, c.Close)
	}
	auditSvc := audit.NewService(auditSink)

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(app.Registry)

	holder, err := safeguards.NewHolder(cfg.Safeguards)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Engine, err = engine.New(engine.Deps{
		Store:     st,
		Config:    holder,
		Penalties: cfg.Penalties,
		Appeals:   cfg.Appeals,
		Detection: cfg.Detection,
		Events:    app.Bus,
		Metrics:   m,
		Audit:     auditSvc,
		Logger:    logger,
	})
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Sweeper = sweeper.New(app.Engine, sweeper.Config{
		Metrics: m,
		Audit:   auditSvc,
		Logger:  logger,
	})
	app.Handler = api.NewRouter(app.Engine, app.Registry)
	if cfg.Server.WritesPerMinute > 0 {
		app.Handler = middleware.NewRateLimiter(cfg.Server.WritesPerMinute, nil).Middleware(app.Handler)
	}
	return app, nil
}

func openAudit(ctx context.Context, cfg config.AuditConfig, logger *slog.Logger) (audit.Logger, error) {
	if cfg.Driver == "" {
		return audit.SlogLogger{Logger: logger}, nil
	}
	l, err := audit.OpenSQLLogger(ctx, cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	logger.Info("[Server] audit log ready", "driver", cfg.Driver)
	return l, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// Run serves HTTP and runs the sweeper until ctx is cancelled, then shuts
// both down within the configured timeout.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         ":" + a.Config.Server.Port,
		Handler:      a.Handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	if a.Config.Sweeper.Enabled {
		if err := a.Sweeper.Start(gctx, a.Config.Sweeper.Schedule); err != nil {
			return err
		}
	}

	g.Go(func() error {
		a.logger.Info("[Server] listening", "addr", srv.Addr, "env", a.Config.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("[Server] shutting down")
		timeout := time.Duration(a.Config.Server.ShutdownTimeoutSeconds) * time.Second
		sctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		a.Sweeper.Stop()
		return srv.Shutdown(sctx)
	})

	return g.Wait()
}
