// Package server exposes the triage engine over HTTP: POST /v1/triage,
// stored-verdict queries, health, and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/sentriage/sentriage/internal/buildinfo"
	"github.com/sentriage/sentriage/internal/config"
	"github.com/sentriage/sentriage/internal/report"
	"github.com/sentriage/sentriage/internal/rules"
	"github.com/sentriage/sentriage/internal/triage"
	"github.com/sentriage/sentriage/internal/trust"
)

// Server is the sentriage HTTP API server.
type Server struct {
	cfg    *config.Config
	srv    *http.Server
	ln     net.Listener
	store  *report.Store
	logger *slog.Logger
	shutTP func(context.Context) error
	ready  chan struct{}
}

// NewServer creates and wires the API server.
func NewServer(cfg *config.Config, src trust.Source, store *report.Store, logger *slog.Logger) (*Server, error) {
	engine := triage.NewEngine(rules.Thresholds{
		VolumeMB:    cfg.Triage.VolumeThresholdMB,
		DomesticGeo: cfg.Triage.DomesticGeoLabel,
		ZScore:      cfg.Triage.IntervalZScoreThreshold,
	}, logger)

	handler := NewHandler(engine, src, store, logger)

	mux := http.NewServeMux()
	mux.Handle("POST /v1/triage", handler)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": buildinfo.Version,
		})
	})
	mux.HandleFunc("GET /v1/verdicts", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no store configured"})
			return
		}
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		verdicts, err := store.Query(report.QueryOpts{
			Label: q.Get("label"),
			Actor: q.Get("actor"),
			Since: q.Get("since"),
			Limit: limit,
		})
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, verdicts)
	})
	mux.HandleFunc("GET /v1/heatmap", func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no store configured"})
			return
		}
		cells, err := store.Heatmap()
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, cells)
	})

	var root http.Handler = mux
	root = recovery(logger)(root)
	root = logging(logger)(root)
	root = requestID(root)

	s := &Server{cfg: cfg, store: store, logger: logger, ready: make(chan struct{})}

	if cfg.Server.Trace {
		exp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("creating trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exp))
		otel.SetTracerProvider(tp)
		s.shutTP = tp.Shutdown
		root = otelhttp.NewHandler(root, "sentriage")
	}

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Bind, cfg.Server.Port),
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s, nil
}

// Start listens and serves until the context is cancelled or a
// termination signal arrives.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.srv.Addr, err)
	}
	s.ln = ln
	close(s.ready)

	errCh := make(chan error, 1)
	go func() {
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	s.logger.Info("sentriage API listening", "addr", s.srv.Addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
	case <-ctx.Done():
	}

	return s.Shutdown()
}

// Shutdown drains in-flight requests and closes resources.
func (s *Server) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := s.srv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down server: %w", err))
	}
	if s.shutTP != nil {
		if err := s.shutTP(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutting down tracer: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound address once Start has been called.
func (s *Server) Addr() string {
	if s.ln == nil {
		return s.srv.Addr
	}
	return s.ln.Addr().String()
}
