package docker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bnema/zerowrap"
	cerrdefs "github.com/containerd/errdefs"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"

	"github.com/bnema/ledgerctl/internal/domain"
)

const (
	helperDataDir    = "/data"
	helperArchiveDir = "/backup"
	helperLabel      = "ledgerctl.helper"
	helperRemoveWait = 30 * time.Second
)

// Helper scripts read the archive name from the environment so it is never
// interpolated into shell text. Archives are written to a temporary name
// and renamed so an interrupted run never leaves a complete-looking file.
const (
	archiveScript = `set -eu
tmp="` + helperArchiveDir + `/.${ARCHIVE_NAME}.partial"
if ! tar -czf "$tmp" -C ` + helperDataDir + ` .; then
  rm -f "$tmp"
  exit 1
fi
mv "$tmp" "` + helperArchiveDir + `/${ARCHIVE_NAME}"`

	restoreScript = `set -eu
src="` + helperArchiveDir + `/${ARCHIVE_NAME}"
tar -tzf "$src" > /dev/null
find ` + helperDataDir + ` -mindepth 1 -delete
tar -xzf "$src" -C ` + helperDataDir
)

func helperScript(kind domain.HelperKind) (string, error) {
	switch kind {
	case domain.HelperArchive:
		return archiveScript, nil
	case domain.HelperRestore:
		return restoreScript, nil
	default:
		return "", fmt.Errorf("unknown helper kind %q", kind)
	}
}

// helperMounts mounts the node volume at /data and the archive directory at
// /backup. The archive side is read-only when restoring.
func helperMounts(job domain.HelperJob) []mount.Mount {
	return []mount.Mount{
		{
			Type:     mount.TypeVolume,
			Source:   job.Volume,
			Target:   helperDataDir,
			ReadOnly: job.ReadOnly,
		},
		{
			Type:     mount.TypeBind,
			Source:   job.ArchiveDir,
			Target:   helperArchiveDir,
			ReadOnly: job.Kind == domain.HelperRestore,
		},
	}
}

// RunHelper runs a throwaway container against the node volume and waits for
// it to exit. The container is removed whatever the outcome.
func (r *Runtime) RunHelper(ctx context.Context, job domain.HelperJob) (*domain.HelperResult, error) {
	name := "ledgerctl-helper-" + uuid.NewString()[:8]
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:    "adapter",
		zerowrap.FieldAdapter:  "docker",
		zerowrap.FieldAction:   "RunHelper",
		zerowrap.FieldEntityID: name,
		"kind":                 string(job.Kind),
		"volume":               job.Volume,
		"read_only":            job.ReadOnly,
	})
	log := zerowrap.FromCtx(ctx)

	script, err := helperScript(job.Kind)
	if err != nil {
		return nil, err
	}

	if _, err := r.client.VolumeInspect(ctx, job.Volume); err != nil {
		if cerrdefs.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrVolumeNotFound, job.Volume)
		}
		return nil, log.WrapErr(err, "failed to inspect volume")
	}

	containerCfg := &container.Config{
		Image:  r.helperImage,
		Cmd:    []string{"sh", "-c", script},
		Env:    []string{"ARCHIVE_NAME=" + job.ArchiveName},
		Labels: map[string]string{helperLabel: string(job.Kind)},
	}
	hostCfg := &container.HostConfig{
		Mounts:      helperMounts(job),
		NetworkMode: "none",
	}

	created, err := r.client.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, name)
	if err != nil && cerrdefs.IsNotFound(err) {
		if pullErr := r.pullImage(ctx, r.helperImage); pullErr != nil {
			return nil, pullErr
		}
		created, err = r.client.ContainerCreate(ctx, containerCfg, hostCfg, nil, nil, name)
	}
	if err != nil {
		return nil, log.WrapErr(err, "failed to create helper container")
	}

	defer func() {
		rmCtx, cancel := context.WithTimeout(context.Background(), helperRemoveWait)
		defer cancel()
		if err := r.client.ContainerRemove(rmCtx, created.ID, container.RemoveOptions{Force: true}); err != nil && !cerrdefs.IsNotFound(err) {
			log.Warn().Err(err).Msg("failed to remove helper container")
		}
	}()

	waitCh, errCh := r.client.ContainerWait(ctx, created.ID, container.WaitConditionNextExit)

	if err := r.client.ContainerStart(ctx, created.ID, container.StartOptions{}); err != nil {
		return nil, log.WrapErr(err, "failed to start helper container")
	}

	var exitCode int64
	select {
	case resp := <-waitCh:
		exitCode = resp.StatusCode
		if resp.Error != nil && resp.Error.Message != "" {
			log.Warn().Str("wait_error", resp.Error.Message).Msg("helper wait reported an error")
		}
	case err := <-errCh:
		return nil, log.WrapErr(err, "failed waiting for helper container")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	result := &domain.HelperResult{
		ExitCode: int(exitCode),
		Output:   r.helperOutput(ctx, created.ID),
	}

	log.Debug().Int("exit_code", result.ExitCode).Msg("helper finished")
	return result, nil
}

// helperOutput collects what the helper wrote, for error reporting.
func (r *Runtime) helperOutput(ctx context.Context, id string) string {
	rc, err := r.client.ContainerLogs(ctx, id, container.LogsOptions{ShowStdout: true, ShowStderr: true})
	if err != nil {
		return ""
	}
	defer rc.Close()

	var buf bytes.Buffer
	_, _ = stdcopy.StdCopy(&buf, &buf, rc)
	return buf.String()
}

func (r *Runtime) pullImage(ctx context.Context, ref string) error {
	log := zerowrap.FromCtx(ctx)
	log.Info().Str("image", ref).Msg("pulling helper image")

	reader, err := r.client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return log.WrapErr(err, "failed to pull helper image")
	}
	defer reader.Close()

	// the pull only completes once the progress stream is drained
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return log.WrapErr(err, "failed to read pull response")
	}
	return nil
}
