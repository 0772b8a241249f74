package in

import (
	"context"

	"github.com/bnema/ledgerctl/internal/domain"
)

// BackupManager defines volume backup and restore use cases.
type BackupManager interface {
	Backup(ctx context.Context) (*domain.BackupArtifact, error)
	Restore(ctx context.Context, path string) error
	List(ctx context.Context) ([]domain.BackupArtifact, error)
	Prune(ctx context.Context, keep int) (int, error)
}
