package in

import (
	"context"

	"github.com/bnema/ledgerctl/internal/domain"
)

// HealthMonitor defines the contract for node health checking operations.
type HealthMonitor interface {
	// HealthCheck checks container existence, running state and, when
	// running, probes the node endpoint.
	HealthCheck(ctx context.Context) (*domain.HealthReport, error)

	// RestartStats reports restart telemetry and recent lifecycle events.
	RestartStats(ctx context.Context) (*domain.RestartStats, error)
}
