package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/devmsrajput/yt-backend/internal/envelope"
	"github.com/devmsrajput/yt-backend/internal/logging"
)

// HealthCheck names one backing service probed by /healthz.
type HealthCheck struct {
	Name  string
	Probe Pinger
}

// HealthHandler reports whether the API and the services behind it are reachable.
type HealthHandler struct {
	Checks  []HealthCheck
	Timeout time.Duration
}

type healthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Handle implements GET /healthz. Probes run in parallel; any failure turns the answer into a 503.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	timeout := h.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	report := healthReport{Status: "ok", Checks: make(map[string]string, len(h.Checks))}
	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	for _, check := range h.Checks {
		g.Go(func() error {
			state := "ok"
			if err := check.Probe.Ping(probeCtx); err != nil {
				logging.FromContext(ctx).Error("health probe failed", "check", check.Name, "error", err)
				state = "unreachable"
			}
			mu.Lock()
			report.Checks[check.Name] = state
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	for _, state := range report.Checks {
		if state != "ok" {
			report.Status = "degraded"
			envelope.Write(ctx, w, http.StatusServiceUnavailable, report, "dependency unreachable")
			return
		}
	}
	envelope.Write(ctx, w, http.StatusOK, report, "")
}
