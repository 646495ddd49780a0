package admin

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// StatsFunc returns the current server statistics as a JSON-compatible map
type StatsFunc func() (map[string]any, error)

// Config contains admin server configuration
type Config struct {
	Addr     string
	Gatherer prometheus.Gatherer
	Stats    StatsFunc
	Logger   *slog.Logger

	MaxConcurrentStreams uint32
	IdleTimeout          time.Duration
}

// Server exposes metrics and statistics over HTTP/1.1 and h2c
type Server struct {
	addr   string
	server *http.Server
	logger *slog.Logger

	mu     sync.Mutex
	closed bool
}

// NewServer creates a new admin server
func NewServer(cfg Config) *Server {
	if cfg.MaxConcurrentStreams == 0 {
		cfg.MaxConcurrentStreams = 250
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 120 * time.Second
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	s := &Server{
		addr:   cfg.Addr,
		logger: cfg.Logger.With("component", "admin"),
	}

	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /stats", s.statsHandler(cfg.Stats))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})

	h2 := &http2.Server{
		MaxConcurrentStreams: cfg.MaxConcurrentStreams,
		IdleTimeout:          cfg.IdleTimeout,
	}

	// h2c (HTTP/2 cleartext), HTTP/1.1 clients are served unchanged
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           h2c.NewHandler(mux, h2),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return s
}

// Handler returns the admin HTTP handler
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// statsHandler encodes stats as a protobuf Struct, JSON by default
func (s *Server) statsHandler(stats StatsFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if stats == nil {
			http.Error(w, "stats not available", http.StatusNotFound)
			return
		}

		m, err := stats()
		if err != nil {
			s.logger.Error("collect stats", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		msg, err := structpb.NewStruct(m)
		if err != nil {
			s.logger.Error("encode stats", "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		var body []byte
		if r.URL.Query().Get("format") == "binary" {
			body, err = proto.Marshal(msg)
			w.Header().Set("Content-Type", "application/x-protobuf")
		} else {
			body, err = protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(msg)
			w.Header().Set("Content-Type", "application/json")
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Write(body)
	}
}

// Serve serves admin requests on ln
func (s *Server) Serve(ln net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return http.ErrServerClosed
	}
	s.mu.Unlock()

	s.logger.Info("admin server listening", "addr", ln.Addr().String(), "protocol", "h2c")
	err := s.server.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// ListenAndServe listens on the configured address and serves
func (s *Server) ListenAndServe() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}
	return s.Serve(ln)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.server.Shutdown(ctx)
}
