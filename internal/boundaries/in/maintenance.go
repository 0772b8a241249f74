package in

import "context"

// MaintenanceCoordinator enters and leaves the maintenance window.
type MaintenanceCoordinator interface {
	StartMaintenance(ctx context.Context) error
	EndMaintenance(ctx context.Context) error
	Active(ctx context.Context) (bool, error)
}
