// Package backup implements volume-level backup and restore of the ledger node.
package backup

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/bnema/ledgerctl/internal/boundaries/in"
	"github.com/bnema/ledgerctl/internal/boundaries/out"
	"github.com/bnema/ledgerctl/internal/domain"
)

const helperTimeout = 30 * time.Minute

// Service orchestrates backup operations.
type Service struct {
	runtime    out.ContainerRuntime
	storage    out.BackupStorage
	serviceCtl in.ServiceController
	confirmer  out.Confirmer
	id         domain.Identity
	log        zerowrap.Logger
	now        func() time.Time
}

// NewService creates a backup service.
func NewService(
	runtime out.ContainerRuntime,
	storage out.BackupStorage,
	serviceCtl in.ServiceController,
	confirmer out.Confirmer,
	id domain.Identity,
	log zerowrap.Logger,
) *Service {
	return &Service{
		runtime:    runtime,
		storage:    storage,
		serviceCtl: serviceCtl,
		confirmer:  confirmer,
		id:         id,
		log:        log,
		now:        time.Now,
	}
}

func (s *Service) withFields(ctx context.Context, useCase string) context.Context {
	return zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: useCase,
		"volume":              s.id.Volume(),
	})
}

// Backup archives the whole volume into a new timestamped artifact.
func (s *Service) Backup(ctx context.Context) (*domain.BackupArtifact, error) {
	ctx = s.withFields(ctx, "Backup")
	log := zerowrap.FromCtx(ctx)

	if err := s.requireVolume(ctx); err != nil {
		return nil, err
	}

	info, err := s.runtime.InspectContainer(ctx, s.id.Name())
	if err != nil && !domain.IsNotFound(err) {
		return nil, log.WrapErr(err, "failed to inspect container")
	}
	if info != nil && info.Running {
		log.Warn().Msg("node is running, the archive may capture an inconsistent ledger state")
		if err := out.Require(ctx, s.confirmer, domain.ConfirmRequest{
			Action:   "backup",
			Question: fmt.Sprintf("Back up %s while %s is running?", s.id.Volume(), s.id.Name()),
			Warning:  "Stop the node or enter maintenance first for a consistent snapshot.",
		}); err != nil {
			return nil, err
		}
	}

	fileName, path, err := s.storage.Allocate(ctx, s.id.Name(), s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackupIO, err)
	}

	log.Info().Str(zerowrap.FieldPath, path).Msg("archiving volume")

	if err := s.runHelper(ctx, domain.HelperJob{
		Kind:        domain.HelperArchive,
		Volume:      s.id.Volume(),
		ReadOnly:    true,
		ArchiveDir:  s.storage.Dir(),
		ArchiveName: fileName,
	}); err != nil {
		if delErr := s.storage.Delete(ctx, path); delErr != nil {
			log.Warn().Err(delErr).Str(zerowrap.FieldPath, path).Msg("failed to remove partial backup")
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrBackupIO, err)
	}

	artifact, err := s.storage.Stat(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrBackupIO, err)
	}

	log.Info().
		Str(zerowrap.FieldPath, artifact.Path).
		Int64(zerowrap.FieldSize, artifact.SizeBytes).
		Msg("backup completed")

	return artifact, nil
}

// Restore replaces the volume contents with the given archive. The service
// is stopped for the duration and started again afterwards.
func (s *Service) Restore(ctx context.Context, path string) error {
	ctx = s.withFields(ctx, "Restore")
	log := zerowrap.FromCtx(ctx)

	resolved, err := s.storage.Resolve(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrBackupIO, err)
	}

	if err := s.requireVolume(ctx); err != nil {
		return err
	}

	if err := out.Require(ctx, s.confirmer, domain.ConfirmRequest{
		Action:   "restore",
		Question: fmt.Sprintf("Replace the contents of %s with %s?", s.id.Volume(), filepath.Base(resolved)),
		Warning:  "All current ledger data in the volume will be deleted.",
	}); err != nil {
		return err
	}

	exists := true
	if _, err := s.runtime.InspectContainer(ctx, s.id.Name()); err != nil {
		if !domain.IsNotFound(err) {
			return log.WrapErr(err, "failed to inspect container")
		}
		exists = false
	}

	if exists {
		if err := s.serviceCtl.Stop(ctx); err != nil {
			return log.WrapErr(err, "failed to stop node before restore")
		}
	}

	log.Info().Str(zerowrap.FieldPath, resolved).Msg("restoring volume")

	if err := s.runHelper(ctx, domain.HelperJob{
		Kind:        domain.HelperRestore,
		Volume:      s.id.Volume(),
		ReadOnly:    false,
		ArchiveDir:  filepath.Dir(resolved),
		ArchiveName: filepath.Base(resolved),
	}); err != nil {
		log.Error().Err(err).Msg("restore failed, node left stopped")
		return fmt.Errorf("%w: %w", domain.ErrRestoreIO, err)
	}

	if exists {
		if err := s.serviceCtl.Start(ctx); err != nil {
			return log.WrapErr(err, "restore completed but node failed to start")
		}
	}

	log.Info().Msg("restore completed")
	return nil
}

// List returns the artifacts of this node, newest first.
func (s *Service) List(ctx context.Context) ([]domain.BackupArtifact, error) {
	return s.storage.List(ctx, s.id.Name())
}

// Prune keeps the newest keep artifacts and deletes the rest.
func (s *Service) Prune(ctx context.Context, keep int) (int, error) {
	ctx = s.withFields(ctx, "Prune")
	log := zerowrap.FromCtx(ctx)

	if keep < 0 {
		return 0, fmt.Errorf("%w: keep must not be negative", domain.ErrInvalidConfig)
	}

	deleted, err := s.storage.ApplyRetention(ctx, s.id.Name(), keep)
	if err != nil {
		return deleted, fmt.Errorf("%w: %w", domain.ErrBackupIO, err)
	}

	log.Info().Int(zerowrap.FieldCount, deleted).Int("keep", keep).Msg("backups pruned")
	return deleted, nil
}

func (s *Service) requireVolume(ctx context.Context) error {
	ok, err := s.runtime.VolumeExists(ctx, s.id.Volume())
	if err != nil {
		return fmt.Errorf("failed to inspect volume: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrVolumeNotFound, s.id.Volume())
	}
	return nil
}

func (s *Service) runHelper(ctx context.Context, job domain.HelperJob) error {
	helperCtx, cancel := context.WithTimeout(ctx, helperTimeout)
	defer cancel()

	result, err := s.runtime.RunHelper(helperCtx, job)
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		output := strings.TrimSpace(result.Output)
		if output == "" {
			return fmt.Errorf("helper exited with code %d", result.ExitCode)
		}
		return fmt.Errorf("helper exited with code %d: %s", result.ExitCode, output)
	}
	return nil
}

var _ in.BackupManager = (*Service)(nil)

