package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	backupTimestampLayout = "20060102-150405"
	backupInfix           = "-backup-"
	BackupExtension       = ".tar.gz"
)

// BackupArtifact is a timestamped archive of the node volume.
type BackupArtifact struct {
	Path      string
	Timestamp time.Time
	SizeBytes int64
}

// BackupFileName returns the artifact file name for a container at ts.
// The timestamp is UTC so names sort chronologically.
func BackupFileName(containerName string, ts time.Time) string {
	return containerName + backupInfix + ts.UTC().Format(backupTimestampLayout) + BackupExtension
}

// ParseBackupFileName extracts the timestamp from an artifact name that
// belongs to containerName.
func ParseBackupFileName(containerName, fileName string) (time.Time, error) {
	prefix := containerName + backupInfix
	if !strings.HasPrefix(fileName, prefix) || !strings.HasSuffix(fileName, BackupExtension) {
		return time.Time{}, fmt.Errorf("%q is not a backup of %s", fileName, containerName)
	}
	raw := strings.TrimSuffix(strings.TrimPrefix(fileName, prefix), BackupExtension)
	ts, err := time.Parse(backupTimestampLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid backup timestamp %q: %w", raw, err)
	}
	return ts.UTC(), nil
}

// HelperKind selects what a helper container does with the volume.
type HelperKind string

const (
	HelperArchive HelperKind = "archive"
	HelperRestore HelperKind = "restore"
)

// HelperJob describes a short-lived helper container run against the
// node volume. ArchiveDir is a host directory holding ArchiveName.
type HelperJob struct {
	Kind        HelperKind
	Volume      string
	ReadOnly    bool
	ArchiveDir  string
	ArchiveName string
}

// HelperResult is the outcome of a helper run.
type HelperResult struct {
	ExitCode int
	Output   string
}
