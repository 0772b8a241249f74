// Package docker implements the container runtime adapter using Docker API.
package docker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bnema/zerowrap"
	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"

	"github.com/bnema/ledgerctl/internal/boundaries/out"
	"github.com/bnema/ledgerctl/internal/domain"
)

const (
	// DefaultHelperImage is used for backup and restore helpers.
	DefaultHelperImage = "alpine:3.20"

	// RestartDelayLabel records the back-off the node was created with.
	// The engine has no native delay setting, so it is kept as metadata.
	RestartDelayLabel = "ledgerctl.restart.delay"
)

// Runtime implements the ContainerRuntime interface using Docker API.
type Runtime struct {
	client      *client.Client
	helperImage string
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithHelperImage sets the image used for helper containers.
func WithHelperImage(image string) Option {
	return func(r *Runtime) {
		if image != "" {
			r.helperImage = image
		}
	}
}

// NewRuntime creates a new Docker runtime instance.
func NewRuntime(opts ...Option) (*Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	return NewRuntimeWithClient(cli, opts...), nil
}

// NewRuntimeWithClient creates a new Docker runtime instance with a custom client (for testing).
func NewRuntimeWithClient(cli *client.Client, opts ...Option) *Runtime {
	r := &Runtime{
		client:      cli,
		helperImage: DefaultHelperImage,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close releases the underlying client.
func (r *Runtime) Close() error {
	return r.client.Close()
}

func (r *Runtime) withFields(ctx context.Context, action, entity string) context.Context {
	return zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "adapter",
		zerowrap.FieldAdapter:  "docker",
		zerowrap.FieldAction:   action,
		zerowrap.FieldEntityID: entity,
	})
}

// containerErr maps engine errors for a named container to domain errors.
func containerErr(log zerowrap.Logger, err error, name, msg string) error {
	switch {
	case cerrdefs.IsNotFound(err):
		return fmt.Errorf("%w: %s", domain.ErrContainerNotFound, name)
	case cerrdefs.IsConflict(err):
		return fmt.Errorf("%w: %s: %v", domain.ErrConflict, name, err)
	default:
		return log.WrapErr(err, msg)
	}
}

// InspectContainer inspects a container.
func (r *Runtime) InspectContainer(ctx context.Context, name string) (*domain.ContainerInfo, error) {
	ctx = r.withFields(ctx, "InspectContainer", name)
	log := zerowrap.FromCtx(ctx)

	resp, err := r.client.ContainerInspect(ctx, name)
	if err != nil {
		return nil, containerErr(log, err, name, "failed to inspect container")
	}

	return toContainerInfo(resp), nil
}

func toContainerInfo(resp container.InspectResponse) *domain.ContainerInfo {
	info := &domain.ContainerInfo{Policy: domain.RestartNone()}
	if resp.ContainerJSONBase == nil {
		return info
	}

	info.ID = resp.ID
	info.Name = strings.TrimPrefix(resp.Name, "/")
	info.RestartCount = resp.RestartCount

	if resp.Config != nil {
		info.Image = resp.Config.Image
	}

	if resp.State != nil {
		info.Status = resp.State.Status
		info.Running = resp.State.Running
		info.ExitCode = resp.State.ExitCode
		info.StartedAt = parseEngineTime(resp.State.StartedAt)
		info.FinishedAt = parseEngineTime(resp.State.FinishedAt)
	}

	if resp.HostConfig != nil {
		info.Policy = fromDockerPolicy(resp.HostConfig.RestartPolicy)
	}
	if resp.Config != nil {
		if raw, ok := resp.Config.Labels[RestartDelayLabel]; ok {
			if delay, err := time.ParseDuration(raw); err == nil {
				info.Policy.Delay = delay
			}
		}
	}

	if resp.NetworkSettings != nil {
		info.Ports = portBindings(resp.NetworkSettings.Ports)
	}

	return info
}

// portBindings flattens published ports, ordered by port number then protocol.
func portBindings(ports nat.PortMap) []domain.PortBinding {
	keys := make([]nat.Port, 0, len(ports))
	for port := range ports {
		keys = append(keys, port)
	}
	nat.Sort(keys, func(a, b nat.Port) bool {
		if a.Int() != b.Int() {
			return a.Int() < b.Int()
		}
		return a.Proto() < b.Proto()
	})

	var bindings []domain.PortBinding
	for _, port := range keys {
		for _, binding := range ports[port] {
			if binding.HostPort == "" {
				continue
			}
			bindings = append(bindings, domain.PortBinding{
				ContainerPort: string(port),
				HostIP:        binding.HostIP,
				HostPort:      binding.HostPort,
			})
		}
	}
	return bindings
}

// parseEngineTime treats the engine's zero timestamp as unset.
func parseEngineTime(raw string) time.Time {
	if raw == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil || ts.Year() <= 1 {
		return time.Time{}
	}
	return ts.UTC()
}

func fromDockerPolicy(p container.RestartPolicy) domain.RestartPolicy {
	switch p.Name {
	case container.RestartPolicyOnFailure:
		return domain.RestartPolicy{Mode: domain.RestartModeOnFailure, MaxRetries: p.MaximumRetryCount}
	case container.RestartPolicyUnlessStopped:
		return domain.RestartUnlessStopped()
	case container.RestartPolicyAlways:
		return domain.RestartPolicy{Mode: domain.RestartModeAlways}
	default:
		return domain.RestartNone()
	}
}

func toDockerPolicy(p domain.RestartPolicy) container.RestartPolicy {
	switch p.Mode {
	case domain.RestartModeOnFailure:
		return container.RestartPolicy{Name: container.RestartPolicyOnFailure, MaximumRetryCount: p.MaxRetries}
	case domain.RestartModeUnlessStopped:
		return container.RestartPolicy{Name: container.RestartPolicyUnlessStopped}
	case domain.RestartModeAlways:
		return container.RestartPolicy{Name: container.RestartPolicyAlways}
	default:
		return container.RestartPolicy{Name: container.RestartPolicyDisabled}
	}
}

// StartContainer starts a container.
func (r *Runtime) StartContainer(ctx context.Context, name string) error {
	ctx = r.withFields(ctx, "StartContainer", name)
	log := zerowrap.FromCtx(ctx)

	if err := r.client.ContainerStart(ctx, name, container.StartOptions{}); err != nil {
		return containerErr(log, err, name, "failed to start container")
	}

	log.Info().Msg("container started")
	return nil
}

// StopContainer stops a container, killing it once timeout elapses.
func (r *Runtime) StopContainer(ctx context.Context, name string, timeout time.Duration) error {
	ctx = r.withFields(ctx, "StopContainer", name)
	log := zerowrap.FromCtx(ctx)

	secs := int(timeout.Round(time.Second) / time.Second)
	if err := r.client.ContainerStop(ctx, name, container.StopOptions{Timeout: &secs}); err != nil {
		return containerErr(log, err, name, "failed to stop container")
	}

	log.Info().Int("timeout_seconds", secs).Msg("container stopped")
	return nil
}

// RemoveContainer force-removes a container.
func (r *Runtime) RemoveContainer(ctx context.Context, name string) error {
	ctx = r.withFields(ctx, "RemoveContainer", name)
	log := zerowrap.FromCtx(ctx)

	if err := r.client.ContainerRemove(ctx, name, container.RemoveOptions{Force: true}); err != nil {
		return containerErr(log, err, name, "failed to remove container")
	}

	log.Info().Msg("container removed")
	return nil
}

// UpdateRestartPolicy changes the restart policy of an existing container in place.
func (r *Runtime) UpdateRestartPolicy(ctx context.Context, name string, policy domain.RestartPolicy) error {
	ctx = r.withFields(ctx, "UpdateRestartPolicy", name)
	log := zerowrap.FromCtx(ctx)

	_, err := r.client.ContainerUpdate(ctx, name, container.UpdateConfig{
		RestartPolicy: toDockerPolicy(policy),
	})
	if err != nil {
		return containerErr(log, err, name, "failed to update restart policy")
	}

	log.Info().Str("policy", policy.String()).Msg("restart policy updated")
	return nil
}

// VolumeExists checks if a Docker volume exists.
func (r *Runtime) VolumeExists(ctx context.Context, name string) (bool, error) {
	ctx = r.withFields(ctx, "VolumeExists", name)
	log := zerowrap.FromCtx(ctx)

	_, err := r.client.VolumeInspect(ctx, name)
	if err != nil {
		if cerrdefs.IsNotFound(err) {
			return false, nil
		}
		return false, log.WrapErr(err, "failed to inspect volume")
	}
	return true, nil
}

// RemoveVolume removes a Docker volume.
func (r *Runtime) RemoveVolume(ctx context.Context, name string) error {
	ctx = r.withFields(ctx, "RemoveVolume", name)
	log := zerowrap.FromCtx(ctx)

	if err := r.client.VolumeRemove(ctx, name, true); err != nil {
		switch {
		case cerrdefs.IsNotFound(err):
			return fmt.Errorf("%w: %s", domain.ErrVolumeNotFound, name)
		case cerrdefs.IsConflict(err):
			return fmt.Errorf("%w: volume %s is in use: %v", domain.ErrConflict, name, err)
		default:
			return log.WrapErr(err, "failed to remove volume")
		}
	}

	log.Info().Msg("volume removed")
	return nil
}

// Ping checks if the Docker daemon is reachable.
func (r *Runtime) Ping(ctx context.Context) error {
	ctx = r.withFields(ctx, "Ping", "")
	log := zerowrap.FromCtx(ctx)

	if _, err := r.client.Ping(ctx); err != nil {
		return log.WrapErr(err, "docker daemon unreachable")
	}
	return nil
}

var _ out.ContainerRuntime = (*Runtime)(nil)
