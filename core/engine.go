package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/searchktools/pooled-server/core/observability"
	"github.com/searchktools/pooled-server/core/pools"
)

// Executor accepts jobs for asynchronous execution
type Executor interface {
	Execute(job pools.Job) error
}

// EngineOption configures an Engine
type EngineOption func(*Engine)

// WithEngineLogger sets the engine logger
func WithEngineLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithMetrics records connection metrics into m
func WithMetrics(m *observability.Metrics) EngineOption {
	return func(e *Engine) {
		e.metrics = m
	}
}

// WithTracer sets the tracer used for per-connection spans
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// Engine accepts connections and hands each one to the pool as a job
type Engine struct {
	pool    Executor
	proc    *Processor
	logger  *slog.Logger
	metrics *observability.Metrics
	tracer  trace.Tracer

	mu       sync.Mutex
	listener net.Listener
	closed   atomic.Bool

	// Statistics
	stats struct {
		accepted  atomic.Uint64
		processed atomic.Uint64
		empty     atomic.Uint64
		ioErrors  atomic.Uint64
	}
}

// NewEngine creates an engine submitting to pool and processing with proc
func NewEngine(pool Executor, proc *Processor, opts ...EngineOption) *Engine {
	e := &Engine{
		pool:   pool,
		proc:   proc,
		logger: slog.Default(),
		tracer: observability.Tracer(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "engine")
	return e
}

// Listen opens the TCP listener used by ListenAndServe
func Listen(addr string) (net.Listener, error) {
	lc := net.ListenConfig{Control: controlListener}
	return lc.Listen(context.Background(), "tcp", addr)
}

// ListenAndServe listens on addr and serves until Close
func (e *Engine) ListenAndServe(addr string) error {
	ln, err := Listen(addr)
	if err != nil {
		return err
	}
	return e.Serve(ln)
}

// Serve runs the accept loop on ln. It returns nil after Close, or the error
// that stopped it. ln is closed on return.
func (e *Engine) Serve(ln net.Listener) error {
	e.mu.Lock()
	if e.closed.Load() {
		e.mu.Unlock()
		ln.Close()
		return ErrServerClosed
	}
	e.listener = ln
	e.mu.Unlock()
	defer ln.Close()

	e.logger.Info("server listening", "addr", ln.Addr().String())

	var tempDelay time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if e.closed.Load() {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}

			// Anything else (EMFILE, ECONNABORTED, ...) is retried with back-off
			if tempDelay == 0 {
				tempDelay = 5 * time.Millisecond
			} else {
				tempDelay *= 2
			}
			if maxDelay := 1 * time.Second; tempDelay > maxDelay {
				tempDelay = maxDelay
			}
			if e.metrics != nil {
				e.metrics.AcceptErrors.Inc()
			}
			e.logger.Warn("accept error", "error", err, "retry_in", tempDelay)
			time.Sleep(tempDelay)
			continue
		}
		tempDelay = 0

		e.stats.accepted.Add(1)
		if e.metrics != nil {
			e.metrics.ConnectionsAccepted.Inc()
		}

		id := uuid.NewString()
		if err := e.pool.Execute(e.newJob(id, conn)); err != nil {
			conn.Close()
			return fmt.Errorf("submit connection %s: %w", id, err)
		}
	}
}

// newJob wraps conn and the processor into a job. The job owns conn.
func (e *Engine) newJob(id string, conn net.Conn) pools.Job {
	return func() {
		attrs := []attribute.KeyValue{attribute.String("conn.id", id)}
		if addr := conn.RemoteAddr(); addr != nil {
			attrs = append(attrs, attribute.String("net.peer.addr", addr.String()))
		}
		_, span := e.tracer.Start(context.Background(), "conn.process",
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attrs...))
		defer span.End()

		res, err := e.proc.Process(conn)
		e.record(id, res, err, span)
	}
}

// record reports the outcome of one connection to stats, metrics, logs and the span
func (e *Engine) record(id string, res Result, err error, span trace.Span) {
	e.stats.processed.Add(1)

	if res.Route != "" {
		span.SetAttributes(attribute.String("http.route", res.Route))
	}
	if res.Written > 0 {
		span.SetAttributes(attribute.Int("http.response.size", res.Written))
	}

	if res.ParseErr != nil {
		span.SetAttributes(attribute.String("parse.error", res.ParseErr.Error()))
		if e.metrics != nil {
			e.metrics.ParseFailures.WithLabelValues(observability.ParseFailureReason(res.ParseErr)).Inc()
		}
		e.logger.Debug("unparseable request", "conn", id, "error", res.ParseErr)
	}

	if res.Status != 0 {
		span.SetAttributes(attribute.Int("http.response.status_code", res.Status))
		if e.metrics != nil {
			e.metrics.Responses.WithLabelValues(strconv.Itoa(res.Status)).Inc()
		}
	}

	if res.Empty {
		e.stats.empty.Add(1)
	}

	if err != nil {
		e.stats.ioErrors.Add(1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "connection I/O failure")

		op := "unknown"
		var ioErr *IOError
		if errors.As(err, &ioErr) {
			op = ioErr.Op
		}
		if e.metrics != nil {
			e.metrics.IOErrors.WithLabelValues(op).Inc()
		}
		e.logger.Warn("error handling connection", "conn", id, "op", op, "error", err)
	}
}

// Close stops the accept loop. Connections already submitted keep running.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.closed.CompareAndSwap(false, true) {
		return nil
	}
	if e.listener != nil {
		if err := e.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			return err
		}
	}
	return nil
}

// Addr returns the listener address, or nil before Serve
func (e *Engine) Addr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.listener == nil {
		return nil
	}
	return e.listener.Addr()
}
