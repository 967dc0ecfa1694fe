package services

import (
	"context"
	"log/slog"
	"runtime"
	"strconv"
	"time"

	"wbbcli/internal/operations"
)

// ClientCounter reports connected WebSocket clients
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	version   string
	hub       ClientCounter
	runs      *RunService
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. hub and runs may be nil.
func NewHealthService(version string, hub ClientCounter, runs *RunService, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthService{
		version:   version,
		hub:       hub,
		runs:      runs,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck reports process and component health
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime_seconds": time.Since(hs.startTime).Seconds(),
			"go_version":     runtime.Version(),
			"goroutines":     runtime.NumGoroutine(),
		},
		Services: map[string]ServiceHealth{
			"websocket": hs.checkWebSocketHealth(),
			"runs":      hs.checkRunHealth(),
		},
	}

	for _, svc := range status.Services {
		if svc.Status != "ready" {
			status.Status = "degraded"
			break
		}
	}

	hs.logger.DebugContext(ctx, "Health check completed", slog.String("status", status.Status))
	return status
}

func (hs *HealthService) checkWebSocketHealth() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "not_ready", Message: "websocket hub not initialized"}
	}
	return ServiceHealth{Status: "ready", Message: plural(hs.hub.ClientCount(), "client")}
}

func (hs *HealthService) checkRunHealth() ServiceHealth {
	if hs.runs == nil {
		return ServiceHealth{Status: "not_ready", Message: "run service not initialized"}
	}
	running := len(hs.runs.List(context.Background(), operations.RunFilter{Status: operations.RunStatusRunning}))
	if running > 0 {
		return ServiceHealth{Status: "ready", Message: "run in progress"}
	}
	return ServiceHealth{Status: "ready", Message: "idle"}
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return strconv.Itoa(n) + " " + noun + "s"
}
