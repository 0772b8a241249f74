// Package health implements node health checks and restart telemetry.
package health

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/bnema/zerowrap"
	"github.com/samber/lo"

	"github.com/bnema/ledgerctl/internal/boundaries/in"
	"github.com/bnema/ledgerctl/internal/boundaries/out"
	"github.com/bnema/ledgerctl/internal/domain"
)

// ProbeConfig locates the node's state endpoint.
type ProbeConfig struct {
	Host    string
	Port    int
	Path    string
	Timeout time.Duration
}

// DefaultProbeTimeout bounds a single probe.
const DefaultProbeTimeout = 5 * time.Second

// URL returns the https endpoint probed on a running node.
func (c ProbeConfig) URL() string {
	path := c.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return "https://" + net.JoinHostPort(c.Host, strconv.Itoa(c.Port)) + path
}

// Service implements the HealthMonitor interface.
type Service struct {
	runtime out.ContainerRuntime
	prober  out.Prober
	id      domain.Identity
	probe   ProbeConfig
	log     zerowrap.Logger
	now     func() time.Time
}

// NewService creates a new health service.
func NewService(
	runtime out.ContainerRuntime,
	prober out.Prober,
	id domain.Identity,
	probe ProbeConfig,
	log zerowrap.Logger,
) *Service {
	if probe.Timeout <= 0 {
		probe.Timeout = DefaultProbeTimeout
	}
	return &Service{
		runtime: runtime,
		prober:  prober,
		id:      id,
		probe:   probe,
		log:     log,
		now:     time.Now,
	}
}

// HealthCheck inspects the container and, if it is running, probes the node.
// The report is computed on every call.
func (s *Service) HealthCheck(ctx context.Context) (*domain.HealthReport, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "HealthCheck",
		"container":           s.id.Name(),
	})
	log := zerowrap.FromCtx(ctx)

	report := &domain.HealthReport{
		Name:   s.id.Name(),
		Status: domain.HealthDown,
		Probe:  domain.ProbeResult{URL: s.probe.URL()},
	}

	info, err := s.runtime.InspectContainer(ctx, s.id.Name())
	if err != nil {
		if domain.IsNotFound(err) {
			log.Debug().Msg("container not found")
			return report, nil
		}
		return nil, log.WrapErr(err, "failed to inspect container")
	}

	report.Exists = true
	report.Running = info.Running
	report.EngineStatus = info.Status
	report.RestartCount = info.RestartCount
	report.StartedAt = info.StartedAt
	report.FinishedAt = info.FinishedAt
	report.ExitCode = info.ExitCode
	report.RestartPolicy = info.Policy

	if !info.Running {
		log.Debug().Str("status", info.Status).Int("exit_code", info.ExitCode).Msg("container not running, skipping probe")
		report.Status = domain.Classify(false, false)
		return report, nil
	}

	report.Probe = s.runProbe(ctx)
	report.Status = domain.Classify(true, report.Probe.OK)

	log.Debug().
		Str("status", string(report.Status)).
		Int("http_status", report.Probe.StatusCode).
		Int64("response_time_ms", report.Probe.LatencyMs).
		Msg("health check complete")

	return report, nil
}

func (s *Service) runProbe(ctx context.Context) domain.ProbeResult {
	log := zerowrap.FromCtx(ctx)
	result := domain.ProbeResult{URL: s.probe.URL(), Attempted: true}

	probeCtx, cancel := context.WithTimeout(ctx, s.probe.Timeout)
	defer cancel()

	statusCode, responseTime, err := s.prober.Probe(probeCtx, result.URL)
	result.StatusCode = statusCode
	result.LatencyMs = responseTime
	if err != nil {
		result.Error = err.Error()
		log.Debug().Err(err).Str("url", result.URL).Msg("probe failed")
		return result
	}

	result.OK = statusCode >= 200 && statusCode < 400
	if !result.OK {
		result.Error = fmt.Sprintf("unexpected status %d", statusCode)
	}
	return result
}

// RestartStats reports restart telemetry and the lifecycle events of the
// trailing window. An unavailable event log yields no events, not an error.
func (s *Service) RestartStats(ctx context.Context) (*domain.RestartStats, error) {
	ctx = zerowrap.CtxWithFields(ctx, map[string]any{
		zerowrap.FieldLayer:   "usecase",
		zerowrap.FieldUseCase: "RestartStats",
		"container":           s.id.Name(),
	})
	log := zerowrap.FromCtx(ctx)

	info, err := s.runtime.InspectContainer(ctx, s.id.Name())
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", domain.ErrContainerNotFound, s.id.Name())
		}
		return nil, log.WrapErr(err, "failed to inspect container")
	}

	now := s.now().UTC()
	stats := &domain.RestartStats{
		Name:         s.id.Name(),
		State:        domain.StateOf(info),
		RestartCount: info.RestartCount,
		Policy:       info.Policy,
		StartedAt:    info.StartedAt,
		FinishedAt:   info.FinishedAt,
		ExitCode:     info.ExitCode,
		WindowStart:  now.Add(-domain.StatsWindow),
		Events:       []domain.LifecycleEvent{},
	}

	events, err := s.runtime.Events(ctx, s.id.Name(), stats.WindowStart, now)
	if err != nil {
		log.Warn().Err(err).Msg("event log unavailable")
		return stats, nil
	}

	stats.Events = lo.Filter(events, func(ev domain.LifecycleEvent, _ int) bool {
		return !ev.Time.Before(stats.WindowStart) && !ev.Time.After(now)
	})

	log.Debug().Int(zerowrap.FieldCount, len(stats.Events)).Msg("restart stats collected")
	return stats, nil
}

var _ in.HealthMonitor = (*Service)(nil)
