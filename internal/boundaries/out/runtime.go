// Package out defines output ports (interfaces) for infrastructure.
// These interfaces define the contract between use cases and driven adapters
// (Docker, filesystem, the fresh-start script, etc.).
package out

import (
	"context"
	"io"
	"time"

	"github.com/bnema/ledgerctl/internal/domain"
)

// ContainerRuntime is the narrow slice of the container engine the node
// lifecycle needs. Implementations return domain.ErrContainerNotFound and
// domain.ErrVolumeNotFound when a resource is absent.
type ContainerRuntime interface {
	// Container lifecycle
	InspectContainer(ctx context.Context, name string) (*domain.ContainerInfo, error)
	StartContainer(ctx context.Context, name string) error
	StopContainer(ctx context.Context, name string, timeout time.Duration) error
	RemoveContainer(ctx context.Context, name string) error
	UpdateRestartPolicy(ctx context.Context, name string, policy domain.RestartPolicy) error

	// Volume management
	VolumeExists(ctx context.Context, name string) (bool, error)
	RemoveVolume(ctx context.Context, name string) error

	// RunHelper runs a short-lived helper container for the job and always
	// removes it before returning, on success and on failure.
	RunHelper(ctx context.Context, job domain.HelperJob) (*domain.HelperResult, error)

	// Observation
	StreamLogs(ctx context.Context, name string, opts domain.LogOptions, stdout, stderr io.Writer) error
	Events(ctx context.Context, name string, since, until time.Time) ([]domain.LifecycleEvent, error)
	Ping(ctx context.Context) error
}
