package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/daap14/useradmin/internal/api/middleware"
	"github.com/daap14/useradmin/internal/api/response"
)

// Pinger checks connectivity to a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingerFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

// HealthHandler handles the GET /health endpoint.
type HealthHandler struct {
	db      Pinger
	redis   Pinger
	version string
}

// NewHealthHandler creates a new HealthHandler. redis may be nil when the
// service runs without redis.
func NewHealthHandler(db Pinger, redis Pinger, version string) *HealthHandler {
	return &HealthHandler{
		db:      db,
		redis:   redis,
		version: version,
	}
}

type dependencyStatus struct {
	Status string  `json:"status"`
	Error  *string `json:"error,omitempty"`
}

type healthData struct {
	Status   string           `json:"status"`
	Version  string           `json:"version"`
	Database dependencyStatus `json:"database"`
	Redis    dependencyStatus `json:"redis"`
}

// ServeHTTP handles the health check request.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	data := healthData{
		Status:   "healthy",
		Version:  h.version,
		Database: check(ctx, h.db),
		Redis:    check(ctx, h.redis),
	}

	status := http.StatusOK
	switch {
	case data.Database.Status == "unavailable":
		data.Status = "unhealthy"
		status = http.StatusServiceUnavailable
	case data.Redis.Status == "unavailable":
		data.Status = "degraded"
	}

	response.Success(w, status, data, requestID)
}

func check(ctx context.Context, p Pinger) dependencyStatus {
	if p == nil {
		return dependencyStatus{Status: "disabled"}
	}
	if err := p.Ping(ctx); err != nil {
		msg := err.Error()
		return dependencyStatus{Status: "unavailable", Error: &msg}
	}
	return dependencyStatus{Status: "connected"}
}
