package docker

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/events"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/bnema/ledgerctl/internal/domain"
)

// lifecycleActions are the container events reported in restart stats.
var lifecycleActions = []events.Action{
	events.ActionStart,
	events.ActionRestart,
	events.ActionDie,
	events.ActionStop,
	events.ActionKill,
	events.ActionOOM,
}

// StreamLogs copies container logs to stdout and stderr. With Follow set it
// blocks until the container stops or ctx is cancelled.
func (r *Runtime) StreamLogs(ctx context.Context, name string, opts domain.LogOptions, stdout, stderr io.Writer) error {
	ctx = r.withFields(ctx, "StreamLogs", name)
	log := zerowrap.FromCtx(ctx)

	info, err := r.client.ContainerInspect(ctx, name)
	if err != nil {
		return containerErr(log, err, name, "failed to inspect container")
	}

	tail := opts.Tail
	if tail == "" {
		tail = "all"
	}

	rc, err := r.client.ContainerLogs(ctx, name, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     opts.Follow,
		Tail:       tail,
		Timestamps: opts.Timestamps,
	})
	if err != nil {
		return containerErr(log, err, name, "failed to get container logs")
	}
	defer rc.Close()

	// TTY containers emit a raw stream without multiplexing headers
	if info.Config != nil && info.Config.Tty {
		_, err = io.Copy(stdout, rc)
	} else {
		_, err = stdcopy.StdCopy(stdout, stderr, rc)
	}
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return log.WrapErr(err, "failed to read container logs")
	}
	return nil
}

// Events returns the lifecycle events of the container between since and until.
func (r *Runtime) Events(ctx context.Context, name string, since, until time.Time) ([]domain.LifecycleEvent, error) {
	ctx = r.withFields(ctx, "Events", name)
	log := zerowrap.FromCtx(ctx)

	args := filters.NewArgs(
		filters.Arg("type", string(events.ContainerEventType)),
		filters.Arg("container", name),
	)
	for _, action := range lifecycleActions {
		args.Add("event", string(action))
	}

	msgs, errs := r.client.Events(ctx, events.ListOptions{
		Since:   strconv.FormatInt(since.Unix(), 10),
		Until:   strconv.FormatInt(until.Unix(), 10),
		Filters: args,
	})

	result := make([]domain.LifecycleEvent, 0)
	for {
		select {
		case msg := <-msgs:
			result = append(result, toLifecycleEvent(msg))
		case err := <-errs:
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, log.WrapErr(err, "failed to read events")
			}
			sort.SliceStable(result, func(i, j int) bool {
				return result[i].Time.Before(result[j].Time)
			})
			return result, nil
		}
	}
}

func toLifecycleEvent(msg events.Message) domain.LifecycleEvent {
	ts := time.Unix(msg.Time, 0)
	if msg.TimeNano != 0 {
		ts = time.Unix(0, msg.TimeNano)
	}
	return domain.LifecycleEvent{
		Time:     ts.UTC(),
		Action:   string(msg.Action),
		ExitCode: msg.Actor.Attributes["exitCode"],
	}
}
