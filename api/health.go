package api

import (
	"context"
	"net/http"

	"github.com/rentloop/rentloop-backend/api/responses"
	"github.com/rentloop/rentloop-backend/internal/dispatcher"
	"github.com/rentloop/rentloop-backend/pkg/config"
	pkgerrors "github.com/rentloop/rentloop-backend/pkg/errors"
	"github.com/rentloop/rentloop-backend/pkg/logger"
)

// Snapshotter is the dispatcher surface the health endpoint reads.
type Snapshotter interface {
	HealthSnapshot(ctx context.Context) dispatcher.Snapshot
}

// Pinger checks a dependency's reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Rentloop-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Rentloop-Env", cfg.App.Env)
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), logg,
					w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unreachable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

// DispatcherStatus reports the merged dispatcher metrics snapshot. The
// snapshot itself never fails; a store outage shows up as storeError
// inside the payload.
func DispatcherStatus(worker Snapshotter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, worker.HealthSnapshot(r.Context()))
	}
}
