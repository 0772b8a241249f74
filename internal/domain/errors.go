package domain

import "errors"

// Domain errors represent business-level errors that can occur in the system.
// These errors are used across layers to communicate specific failure conditions.
var (
	// ErrNotFound is the parent of every "resource absent" error.
	ErrNotFound            = errors.New("not found")
	ErrContainerNotFound   error = &notFoundError{resource: "container"}
	ErrVolumeNotFound      error = &notFoundError{resource: "volume"}
	ErrContainerNotRunning = errors.New("container is not running")

	// ErrConflict means the action would re-initialize storage that still exists.
	ErrConflict = errors.New("storage conflict")

	// ErrUserAborted is returned when a confirmation is declined.
	// It is a normal negative outcome, not a failure of the system.
	ErrUserAborted = errors.New("aborted by user")

	ErrProbeFailure = errors.New("probe failed")

	// Archive errors
	ErrBackupIO  = errors.New("backup I/O error")
	ErrRestoreIO = errors.New("restore I/O error")

	// Config errors
	ErrInvalidConfig = errors.New("invalid configuration")
)

type notFoundError struct {
	resource string
}

func (e *notFoundError) Error() string {
	return e.resource + " not found"
}

func (e *notFoundError) Unwrap() error {
	return ErrNotFound
}

// IsNotFound reports whether err means a container or volume is absent.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
