package httpapi

import (
	"context"
	"net/http"
	"time"
)

const healthCheckTimeout = 2 * time.Second

// Health states reported by /health.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

type healthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
}

func (rt *Router) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	resp := healthResponse{
		Status:    StatusHealthy,
		Checks:    make(map[string]string, len(rt.checks)),
		Timestamp: rt.clock.Now().UTC(),
	}
	for _, check := range rt.checks {
		if err := check.Check(ctx); err != nil {
			resp.Checks[check.Name] = err.Error()
			if check.Critical {
				resp.Status = StatusUnhealthy
			} else if resp.Status == StatusHealthy {
				resp.Status = StatusDegraded
			}
			continue
		}
		resp.Checks[check.Name] = "ok"
	}

	status := http.StatusOK
	if resp.Status == StatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	rt.writeJSON(w, r, status, resp)
}

func (rt *Router) ping(w http.ResponseWriter, r *http.Request) {
	rt.writeJSON(w, r, http.StatusOK, map[string]any{
		"message":   "pong",
		"timestamp": rt.clock.Now().UTC(),
	})
}

// databaseCheck counts products straight from the store, bypassing the cache.
func (rt *Router) databaseCheck(w http.ResponseWriter, r *http.Request) {
	n, err := rt.svc.Count(r.Context())
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	rt.writeJSON(w, r, http.StatusOK, map[string]any{
		"status":       "connected",
		"productCount": n,
	})
}
