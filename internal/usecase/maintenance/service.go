// Package maintenance implements the maintenance window of the ledger node.
//
// The window has no stored flag. It is active when the engine reports the
// container stopped with auto-restart disabled (see domain.InMaintenance).
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/bnema/ledgerctl/internal/boundaries/in"
	"github.com/bnema/ledgerctl/internal/boundaries/out"
	"github.com/bnema/ledgerctl/internal/domain"
)

// Service implements the MaintenanceCoordinator interface.
type Service struct {
	runtime     out.ContainerRuntime
	serviceCtl  in.ServiceController
	confirmer   out.Confirmer
	id          domain.Identity
	stopTimeout time.Duration
	log         zerowrap.Logger
}

// NewService creates a new maintenance coordinator.
func NewService(
	runtime out.ContainerRuntime,
	serviceCtl in.ServiceController,
	confirmer out.Confirmer,
	id domain.Identity,
	stopTimeout time.Duration,
	log zerowrap.Logger,
) *Service {
	return &Service{
		runtime:     runtime,
		serviceCtl:  serviceCtl,
		confirmer:   confirmer,
		id:          id,
		stopTimeout: stopTimeout,
		log:         log,
	}
}

// StartMaintenance disables auto-restart and then stops the node.
//
// The order matters: stopping first leaves a gap in which the engine's
// restart policy can bring the container back before it is disabled.
func (s *Service) StartMaintenance(ctx context.Context) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "StartMaintenance",
		"container":           s.id.Name(),
	})
	log := zerowrap.FromCtx(ctx)

	name := s.id.Name()
	if _, err := s.runtime.InspectContainer(ctx, name); err != nil {
		if domain.IsNotFound(err) {
			return fmt.Errorf("%w: %s does not exist, nothing to put in maintenance", domain.ErrContainerNotFound, name)
		}
		return log.WrapErr(err, "failed to inspect container")
	}

	if err := s.runtime.UpdateRestartPolicy(ctx, name, domain.RestartNone()); err != nil {
		return log.WrapErr(err, "failed to disable restart policy")
	}
	log.Info().Msg("auto-restart disabled")

	if err := s.runtime.StopContainer(ctx, name, s.stopTimeout); err != nil {
		return log.WrapErr(err, "failed to stop container")
	}

	log.Info().Msg("maintenance window started")
	return nil
}

// EndMaintenance leaves the window by recreating the node from scratch.
// Resuming on the existing volume is exactly what the ledger's storage
// initialization refuses, so there is no lighter resume path.
func (s *Service) EndMaintenance(ctx context.Context) error {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "EndMaintenance",
		"container":           s.id.Name(),
	})
	log := zerowrap.FromCtx(ctx)

	if active, err := s.Active(ctx); err == nil && !active {
		log.Warn().Msg("maintenance window is not active")
	}

	err := out.Require(ctx, s.confirmer, domain.ConfirmRequest{
		Action:   "end-maintenance",
		Question: fmt.Sprintf("Remove %s and %s and start a fresh node?", s.id.Name(), s.id.Volume()),
		Warning:  "Ending maintenance deletes the ledger volume. Make sure a backup exists.",
	})
	if err != nil {
		return err
	}

	if err := s.serviceCtl.Recreate(ctx); err != nil {
		return err
	}

	log.Info().Msg("maintenance window ended")
	return nil
}

// Active reports whether the maintenance window is currently active.
func (s *Service) Active(ctx context.Context) (bool, error) {
	info, err := s.runtime.InspectContainer(ctx, s.id.Name())
	if err != nil {
		if domain.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to inspect container: %w", err)
	}
	return domain.InMaintenance(info), nil
}
