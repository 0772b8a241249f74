// Package service implements the basic lifecycle verbs for the ledger node container.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/bnema/ledgerctl/internal/boundaries/out"
	"github.com/bnema/ledgerctl/internal/domain"
)

// DefaultStopTimeout bounds the graceful shutdown before the engine kills the node.
const DefaultStopTimeout = 30 * time.Second

// Config holds service controller settings.
type Config struct {
	StopTimeout time.Duration
}

// Service implements the ServiceController interface.
type Service struct {
	runtime    out.ContainerRuntime
	freshStart out.FreshStarter
	confirmer  out.Confirmer
	id         domain.Identity
	config     Config
	log        zerowrap.Logger
	now        func() time.Time
}

// NewService creates a new service controller for one container/volume pair.
func NewService(
	runtime out.ContainerRuntime,
	freshStart out.FreshStarter,
	confirmer out.Confirmer,
	id domain.Identity,
	config Config,
	log zerowrap.Logger,
) *Service {
	if config.StopTimeout <= 0 {
		config.StopTimeout = DefaultStopTimeout
	}
	return &Service{
		runtime:    runtime,
		freshStart: freshStart,
		confirmer:  confirmer,
		id:         id,
		config:     config,
		log:        log,
		now:        time.Now,
	}
}

func (s *Service) withFields(ctx context.Context, useCase string) context.Context {
	return zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: useCase,
		"container":           s.id.Name(),
	})
}

// inspect returns nil info, without error, when the container is absent.
func (s *Service) inspect(ctx context.Context) (*domain.ContainerInfo, error) {
	info, err := s.runtime.InspectContainer(ctx, s.id.Name())
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to inspect container: %w", err)
	}
	return info, nil
}

func (s *Service) notFound() error {
	return fmt.Errorf("%w: %s does not exist, run the fresh-start procedure to create it", domain.ErrContainerNotFound, s.id.Name())
}

// Start starts an existing, stopped container. It never creates one.
func (s *Service) Start(ctx context.Context) error {
	ctx = s.withFields(ctx, "Start")
	log := zerowrap.FromCtx(ctx)

	info, err := s.inspect(ctx)
	if err != nil {
		return err
	}

	switch domain.StateOf(info) {
	case domain.StateNotFound:
		return s.notFound()
	case domain.StateRunning:
		log.Info().Msg("container already running")
		return nil
	}

	if err := s.runtime.StartContainer(ctx, s.id.Name()); err != nil {
		return log.WrapErr(err, "failed to start container")
	}

	log.Info().Msg("container started")
	return nil
}

// Stop gracefully stops the container. Stopping a stopped container is a no-op.
func (s *Service) Stop(ctx context.Context) error {
	ctx = s.withFields(ctx, "Stop")
	log := zerowrap.FromCtx(ctx)

	info, err := s.inspect(ctx)
	if err != nil {
		return err
	}
	if info == nil {
		return s.notFound()
	}

	if err := s.runtime.StopContainer(ctx, s.id.Name(), s.config.StopTimeout); err != nil {
		if domain.IsNotFound(err) {
			return s.notFound()
		}
		return log.WrapErr(err, "failed to stop container")
	}

	log.Info().Dur("timeout", s.config.StopTimeout).Msg("container stopped")
	return nil
}

// Restart replaces the node with a fresh one. A runtime-level restart would
// re-run storage initialization over existing data, which the ledger refuses,
// so this always destroys the container and volume first.
func (s *Service) Restart(ctx context.Context) error {
	ctx = s.withFields(ctx, "Restart")

	err := out.Require(ctx, s.confirmer, domain.ConfirmRequest{
		Action:   "restart",
		Question: fmt.Sprintf("Destroy %s and %s and create a fresh node?", s.id.Name(), s.id.Volume()),
		Warning:  "All ledger data in the volume will be deleted. Take a backup first if you need it.",
	})
	if err != nil {
		return err
	}

	return s.Recreate(ctx)
}

// Recreate destroys the container and volume and invokes fresh-start.
// It is not gated; callers must have obtained confirmation.
func (s *Service) Recreate(ctx context.Context) error {
	ctx = s.withFields(ctx, "Recreate")
	log := zerowrap.FromCtx(ctx)

	if err := s.teardown(ctx); err != nil {
		return err
	}

	exists, err := s.runtime.VolumeExists(ctx, s.id.Volume())
	if err != nil {
		return log.WrapErr(err, "failed to check volume")
	}
	if exists {
		return fmt.Errorf("%w: volume %s still exists, fresh-start would fail on existing ledger storage; remove it and retry",
			domain.ErrConflict, s.id.Volume())
	}

	log.Info().Msg("running fresh-start")
	if err := s.freshStart.FreshStart(ctx); err != nil {
		return log.WrapErr(err, "fresh-start failed")
	}

	log.Info().Msg("node recreated")
	return nil
}

// Status reports the current runtime state from a fresh inspection.
func (s *Service) Status(ctx context.Context) (*domain.StatusReport, error) {
	ctx = s.withFields(ctx, "Status")

	info, err := s.inspect(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.StatusReport{
		Name:          s.id.Name(),
		State:         domain.StateOf(info),
		InMaintenance: domain.InMaintenance(info),
	}
	if info == nil {
		return report, nil
	}

	report.ID = info.ID
	report.Image = info.Image
	report.Policy = info.Policy
	if info.Running {
		report.Ports = info.Ports
		report.StartedAt = info.StartedAt
		if !info.StartedAt.IsZero() {
			report.Uptime = s.now().Sub(info.StartedAt).Truncate(time.Second)
		}
	}

	return report, nil
}

// Logs streams container output until it ends or ctx is cancelled.
// Cancellation is the normal way to end a followed stream.
func (s *Service) Logs(ctx context.Context, opts domain.LogOptions, stdout, stderr io.Writer) error {
	ctx = s.withFields(ctx, "Logs")
	log := zerowrap.FromCtx(ctx)

	err := s.runtime.StreamLogs(ctx, s.id.Name(), opts, stdout, stderr)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		return nil
	case domain.IsNotFound(err):
		return s.notFound()
	default:
		return log.WrapErr(err, "failed to stream logs")
	}
}

// Remove stops and removes the container and its volume. Each step
// tolerates the resource already being gone, so Remove is idempotent.
func (s *Service) Remove(ctx context.Context) error {
	ctx = s.withFields(ctx, "Remove")
	if err := s.teardown(ctx); err != nil {
		return err
	}
	zerowrap.FromCtx(ctx).Info().Msg("container and volume removed")
	return nil
}

func (s *Service) teardown(ctx context.Context) error {
	log := zerowrap.FromCtx(ctx)
	name := s.id.Name()

	if err := s.runtime.StopContainer(ctx, name, s.config.StopTimeout); err != nil {
		if !domain.IsNotFound(err) {
			log.Warn().Err(err).Msg("stop failed, removal will force it")
		}
	}

	if err := s.runtime.RemoveContainer(ctx, name); err != nil {
		if !domain.IsNotFound(err) {
			return log.WrapErr(err, "failed to remove container")
		}
		log.Debug().Msg("container already removed")
	}

	if err := s.runtime.RemoveVolume(ctx, s.id.Volume()); err != nil {
		if !domain.IsNotFound(err) {
			return log.WrapErr(err, "failed to remove volume")
		}
		log.Debug().Msg("volume already removed")
	}

	return nil
}
