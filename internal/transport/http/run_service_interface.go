package http

import (
	"context"

	"wbbcli/internal/operations"
	"wbbcli/internal/services"
)

// RunManager is the slice of services.RunService the run handlers use
type RunManager interface {
	Start(ctx context.Context, req services.RunRequest) (*operations.Run, error)
	Get(ctx context.Context, id string) (*operations.Run, error)
	List(ctx context.Context, filter operations.RunFilter) []*operations.Run
	Cancel(ctx context.Context, id string) error
}

// HealthChecker reports service health
type HealthChecker interface {
	HealthCheck(ctx context.Context) services.HealthStatus
}

var (
	_ RunManager    = (*services.RunService)(nil)
	_ HealthChecker = (*services.HealthService)(nil)
)
