package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rentloop/rentloop-backend/pkg/config"
	"github.com/rentloop/rentloop-backend/pkg/logger"
)

// ServerParams wires the health/metrics HTTP surface of a worker.
type ServerParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	Dispatcher Snapshotter
	Deps       map[string]Pinger
	Registry   *prometheus.Registry
}

// NewRouter builds the chi router for the worker's operational endpoints.
func NewRouter(params ServerParams) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz/live", HealthLive(params.Config))
	r.Get("/healthz/ready", HealthReady(params.Config, params.Logger, params.Deps))
	if params.Dispatcher != nil {
		r.Get("/healthz/dispatcher", DispatcherStatus(params.Dispatcher))
	}
	if params.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(params.Registry, promhttp.HandlerOpts{}))
	}
	return r
}

// Serve runs the HTTP server until the context is canceled, then shuts
// down gracefully.
func Serve(ctx context.Context, params ServerParams) error {
	server := &http.Server{
		Addr:              ":" + params.Config.App.Port,
		Handler:           NewRouter(params),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}
