package out

import (
	"context"
	"time"

	"github.com/bnema/ledgerctl/internal/domain"
)

// BackupStorage locates and manages backup artifacts on the host.
type BackupStorage interface {
	// Dir returns the absolute directory holding artifacts.
	Dir() string
	// Allocate returns the file name and absolute path for a new artifact.
	// It fails if the path is already taken.
	Allocate(ctx context.Context, containerName string, timestamp time.Time) (string, string, error)
	// Resolve turns a user supplied path into an absolute one and checks it is a regular file.
	Resolve(ctx context.Context, path string) (string, error)
	Stat(ctx context.Context, path string) (*domain.BackupArtifact, error)
	List(ctx context.Context, containerName string) ([]domain.BackupArtifact, error)
	Delete(ctx context.Context, path string) error
	ApplyRetention(ctx context.Context, containerName string, keep int) (int, error)
}
