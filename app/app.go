package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/searchktools/pooled-server/config"
	"github.com/searchktools/pooled-server/core"
	"github.com/searchktools/pooled-server/core/admin"
	"github.com/searchktools/pooled-server/core/observability"
	"github.com/searchktools/pooled-server/core/pools"
	"github.com/searchktools/pooled-server/core/router"
)

// ServiceName identifies the process in traces
const ServiceName = "pooled-server"

// App wires the listener, worker pool and admin surface together
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *observability.Metrics
	pool    *pools.WorkerPool
	router  *router.Router
	engine  *core.Engine
	admin   *admin.Server

	shutdownTracer func(context.Context) error
}

// New creates an application instance. The worker pool starts immediately.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	a := &App{
		cfg:     cfg,
		logger:  logger,
		metrics: observability.NewMetrics(),
		router:  router.Default(),
	}

	pools.ApplyGCConfig(pools.GCConfig{
		Percent:     cfg.GCPercent,
		MemoryLimit: cfg.MemoryLimit,
	})

	if cfg.Tracing {
		shutdown, err := observability.InitTracer(ServiceName, os.Stderr)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		a.shutdownTracer = shutdown
	}

	pool, err := pools.NewWorkerPool(cfg.Workers,
		pools.WithLogger(logger.With("component", "pool")),
		pools.WithObserver(a.metrics))
	if err != nil {
		return nil, err
	}
	a.pool = pool

	if err := a.metrics.RegisterPool(pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("register pool metrics: %w", err)
	}

	proc := core.NewProcessor(a.router, core.WithReadBufferSize(cfg.ReadBufferSize))
	a.engine = core.NewEngine(pool, proc,
		core.WithEngineLogger(logger),
		core.WithMetrics(a.metrics),
		core.WithTracer(observability.Tracer()))

	if cfg.AdminAddr != "" {
		a.admin = admin.NewServer(admin.Config{
			Addr:     cfg.AdminAddr,
			Gatherer: a.metrics.Registry(),
			Stats:    func() (map[string]any, error) { return a.Stats().Map() },
			Logger:   logger,
		})
	}

	return a, nil
}

// Engine returns the underlying engine
func (a *App) Engine() *core.Engine {
	return a.engine
}

// Router returns the route table. Routes must be added before Run.
func (a *App) Router() *router.Router {
	return a.router
}

// Stats returns current server statistics
func (a *App) Stats() core.ServerStats {
	return a.engine.Stats(a.pool)
}

// Run serves until ctx is done or SIGINT/SIGTERM arrives, then shuts down
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := core.Listen(a.cfg.Addr)
	if err != nil {
		a.pool.Close()
		return fmt.Errorf("listen %s: %w", a.cfg.Addr, err)
	}
	return a.serve(ctx, ln)
}

func (a *App) serve(ctx context.Context, ln net.Listener) error {
	a.logger.Info("server starting",
		"addr", ln.Addr().String(),
		"workers", a.cfg.Workers,
		"read_buffer_size", a.cfg.ReadBufferSize)

	errc := make(chan error, 2)
	go func() { errc <- a.engine.Serve(ln) }()

	if a.admin != nil {
		adminLn, err := net.Listen("tcp", a.cfg.AdminAddr)
		if err != nil {
			a.engine.Close()
			<-errc
			a.shutdown()
			return fmt.Errorf("listen admin %s: %w", a.cfg.AdminAddr, err)
		}
		go func() { errc <- a.admin.Serve(adminLn) }()
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutting down", "reason", context.Cause(ctx))
	case runErr = <-errc:
		if runErr != nil {
			a.logger.Error("serve failed", "error", runErr)
		}
	}

	return errors.Join(runErr, a.shutdown())
}

// shutdown stops in order: accept loop, pool drain, admin server, tracer.
// Closing the listening socket first means no job is produced after the
// dispatch queue closes.
func (a *App) shutdown() error {
	var errs []error

	if err := a.engine.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close listener: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.pool.Close()
	if err := a.pool.Wait(ctx); err != nil {
		st := a.pool.Stats()
		a.logger.Warn("worker pool did not drain",
			"pending", st.TasksPending,
			"busy", st.BusyWorkers,
			"error", err)
		errs = append(errs, fmt.Errorf("drain pool: %w", err))
	}

	if a.admin != nil {
		if err := a.admin.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("admin shutdown: %w", err))
		}
	}

	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}

	a.logger.Info("server stopped", "stats", a.Stats().Connections)
	return errors.Join(errs...)
}
