package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Server exposes /metrics and /healthz
type Server struct {
	srv *http.Server
	log logrus.FieldLogger
}

// NewServer builds the metrics server; health may be nil
func NewServer(addr string, registry *prometheus.Registry, health *HealthChecker, log logrus.FieldLogger) *Server {
	router := mux.NewRouter()
	router.Use(RecoveryMiddleware(log), LoggingMiddleware(log))
	router.Handle("/metrics", Handler(registry)).Methods(http.MethodGet)
	if health != nil {
		router.Handle("/healthz", health).Methods(http.MethodGet)
	}

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           otelhttp.NewHandler(router, "mixy-metrics"),
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled, then shuts down
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("Metrics server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("metrics server shutdown: %w", err)
	}
	return nil
}
