// Package filesystem implements backup artifact storage on the local filesystem.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/bnema/zerowrap"

	"github.com/bnema/ledgerctl/internal/domain"
)

// BackupStorage implements backup artifact persistence on local filesystem.
type BackupStorage struct {
	rootDir string
	log     zerowrap.Logger
}

// NewBackupStorage creates a new filesystem backup storage rooted at rootDir.
// The directory is created if needed and stored as an absolute path, since
// helper containers bind-mount it.
func NewBackupStorage(rootDir string, log zerowrap.Logger) (*BackupStorage, error) {
	rootDir = expandTilde(rootDir)

	abs, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backup directory: %w", err)
	}

	if err := os.MkdirAll(abs, 0750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	return &BackupStorage{rootDir: abs, log: log}, nil
}

// expandTilde replaces a leading "~/" with the user's home directory.
func expandTilde(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path[2:])
	}
	return path
}

// Dir returns the absolute backup directory.
func (s *BackupStorage) Dir() string {
	return s.rootDir
}

// Allocate returns the file name and path for a new artifact. Names are
// second-granular, so a second backup within the same second is rejected
// rather than overwriting the first.
func (s *BackupStorage) Allocate(_ context.Context, containerName string, timestamp time.Time) (string, string, error) {
	fileName := domain.BackupFileName(containerName, timestamp)
	path := filepath.Join(s.rootDir, fileName)

	if _, err := os.Lstat(path); err == nil {
		return "", "", fmt.Errorf("backup file %s already exists", path)
	} else if !os.IsNotExist(err) {
		return "", "", fmt.Errorf("failed to check backup path: %w", err)
	}

	return fileName, path, nil
}

// Resolve returns the absolute path of an existing regular file. Relative
// paths are tried against the working directory first, then the backup root.
func (s *BackupStorage) Resolve(_ context.Context, path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("backup path is empty")
	}

	candidates := []string{expandTilde(path)}
	if !filepath.IsAbs(path) {
		candidates = append(candidates, filepath.Join(s.rootDir, path))
	}

	var lastErr error
	for _, candidate := range candidates {
		abs, err := filepath.Abs(candidate)
		if err != nil {
			lastErr = err
			continue
		}
		info, err := os.Stat(abs)
		if err != nil {
			lastErr = err
			continue
		}
		if !info.Mode().IsRegular() {
			return "", fmt.Errorf("%s is not a regular file", abs)
		}
		return abs, nil
	}

	return "", fmt.Errorf("backup file %s not found: %w", path, lastErr)
}

// Stat describes an artifact on disk.
func (s *BackupStorage) Stat(_ context.Context, path string) (*domain.BackupArtifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	ts := info.ModTime().UTC()
	base := filepath.Base(path)
	if idx := strings.LastIndex(base, "-backup-"); idx > 0 {
		if parsed, err := domain.ParseBackupFileName(base[:idx], base); err == nil {
			ts = parsed
		}
	}

	return &domain.BackupArtifact{
		Path:      path,
		Timestamp: ts,
		SizeBytes: info.Size(),
	}, nil
}

// List returns the artifacts of a container, newest first.
func (s *BackupStorage) List(_ context.Context, containerName string) ([]domain.BackupArtifact, error) {
	entries, err := os.ReadDir(s.rootDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.BackupArtifact{}, nil
		}
		return nil, err
	}

	artifacts := make([]domain.BackupArtifact, 0)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		ts, err := domain.ParseBackupFileName(containerName, entry.Name())
		if err != nil {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		artifacts = append(artifacts, domain.BackupArtifact{
			Path:      filepath.Join(s.rootDir, entry.Name()),
			Timestamp: ts,
			SizeBytes: info.Size(),
		})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Timestamp.After(artifacts[j].Timestamp)
	})

	return artifacts, nil
}

// Delete removes a backup file. A file that is already gone is not an error.
func (s *BackupStorage) Delete(_ context.Context, path string) error {
	if !pathWithinRoot(s.rootDir, path) {
		return fmt.Errorf("backup path escapes storage root")
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ApplyRetention keeps the newest keep artifacts and deletes the rest.
func (s *BackupStorage) ApplyRetention(ctx context.Context, containerName string, keep int) (int, error) {
	if keep < 0 {
		return 0, fmt.Errorf("retention count must not be negative")
	}

	artifacts, err := s.List(ctx, containerName)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for idx := keep; idx < len(artifacts); idx++ {
		if err := s.Delete(ctx, artifacts[idx].Path); err != nil {
			return deleted, err
		}
		s.log.Debug().Str(zerowrap.FieldPath, artifacts[idx].Path).Msg("backup pruned")
		deleted++
	}

	return deleted, nil
}

func pathWithinRoot(root, path string) bool {
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	pathAbs, err := filepath.Abs(path)
	if err != nil {
		return false
	}

	rootClean := filepath.Clean(rootAbs)
	pathClean := filepath.Clean(pathAbs)
	rel, err := filepath.Rel(rootClean, pathClean)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
