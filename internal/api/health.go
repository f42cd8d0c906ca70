package api

import (
	"context"
	"net/http"
	"time"
)

// HealthChecker is satisfied by pgstore.DB; declared narrowly here so
// internal/api never imports the database driver directly.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// ActiveCallCounter reports the live call count for the health summary.
type ActiveCallCounter interface {
	Count() int
}

type HealthResponse struct {
	Status      string            `json:"status"`
	Version     string            `json:"version"`
	UptimeSecs  int64             `json:"uptime_seconds"`
	ActiveCalls int               `json:"active_calls"`
	Checks      map[string]string `json:"checks"`
}

type HealthHandler struct {
	db        HealthChecker
	calls     ActiveCallCounter
	version   string
	startTime time.Time
}

func NewHealthHandler(db HealthChecker, calls ActiveCallCounter, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{db: db, calls: calls, version: version, startTime: startTime}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	status := "ok"

	if err := h.db.HealthCheck(r.Context()); err != nil {
		checks["database"] = err.Error()
		status = "degraded"
	} else {
		checks["database"] = "ok"
	}

	resp := HealthResponse{
		Status:      status,
		Version:     h.version,
		UptimeSecs:  int64(time.Since(h.startTime).Seconds()),
		ActiveCalls: h.calls.Count(),
		Checks:      checks,
	}

	httpStatus := http.StatusOK
	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}
	WriteJSON(w, httpStatus, resp)
}
