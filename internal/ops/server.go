package ops

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/adilkhan-b/scentwatch/pkg/config"
	"github.com/adilkhan-b/scentwatch/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is a dependency health probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ServerParams group dependencies for the ops HTTP server.
type ServerParams struct {
	Logger   *logger.Logger
	Registry *prometheus.Registry
	// Pingers maps a dependency name to its probe. A nil probe is skipped.
	Pingers map[string]Pinger
	Config  config.OpsConfig
}

// Server exposes the operational surface: liveness plus metrics. It is
// not the bot's user-facing transport and binds to its own address.
type Server struct {
	httpServer *http.Server
	logg       *logger.Logger
	pingers    map[string]Pinger
}

// NewServer builds the ops server.
func NewServer(params ServerParams) (*Server, error) {
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s := &Server{
		logg:    params.Logger,
		pingers: params.Pingers,
	}

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", s.handleHealth)
	if params.Registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}

	s.httpServer = &http.Server{
		Addr:              params.Config.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s, nil
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logg.Info(ctx, "ops server listening on "+s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for name, pinger := range s.pingers {
		if pinger == nil {
			continue
		}
		if err := pinger.Ping(ctx); err != nil {
			s.logg.Error(ctx, "health probe failed: "+name, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(name + ": unavailable"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
