package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bnema/ledgerctl/internal/adapters/in/cli/ui/components"
	"github.com/bnema/ledgerctl/internal/domain"
)

func newHealthCheckCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "health-check",
		Short: "Check the node and probe its endpoint",
		Long: `Checks that the container exists and is running, then probes the node
endpoint over HTTPS. Exits 0 when healthy and 1 when degraded or down.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withServices(cmd, func(ctx context.Context, svc *Services) error {
				var report *domain.HealthReport
				err := st.runStep(ctx, "Checking node...", func(ctx context.Context) error {
					var err error
					report, err = svc.Health.HealthCheck(ctx)
					return err
				})
				if err != nil {
					return err
				}
				if err := cliWriteLine(cmd.OutOrStdout(), renderHealth(report)); err != nil {
					return err
				}
				if report.Status != domain.HealthHealthy {
					return fmt.Errorf("%w: %s", errNotHealthy, report.Status)
				}
				return nil
			})
		},
	}
}

func renderHealth(r *domain.HealthReport) string {
	var b strings.Builder
	b.WriteString(cliRenderTitle(r.Name))
	b.WriteString(" ")
	b.WriteString(components.HealthBadge(r.Status))
	b.WriteString("\n")

	if !r.Exists {
		b.WriteString(cliRenderEmptyState("Container does not exist."))
		return b.String()
	}

	pairs := [][2]string{
		{"Engine status", r.EngineStatus},
		{"Restart policy", r.RestartPolicy.String()},
		{"Restarts", strconv.Itoa(r.RestartCount)},
	}
	if r.Running {
		pairs = append(pairs, [2]string{"Started", formatTime(r.StartedAt)})
	} else {
		pairs = append(pairs, [2]string{"Finished", formatTime(r.FinishedAt)})
		if r.ExitCode != 0 {
			pairs = append(pairs, [2]string{"Exit code", strconv.Itoa(r.ExitCode)})
		}
	}
	if r.Probe.Attempted {
		pairs = append(pairs, [2]string{"Probe", r.Probe.URL})
		if r.Probe.StatusCode != 0 {
			pairs = append(pairs, [2]string{"HTTP status", strconv.Itoa(r.Probe.StatusCode)})
		}
		pairs = append(pairs, [2]string{"Latency", fmt.Sprintf("%dms", r.Probe.LatencyMs)})
	}
	b.WriteString(components.KeyValueTable(pairs))

	switch {
	case r.Crashed():
		b.WriteString("\n")
		b.WriteString(cliRenderWarning(fmt.Sprintf("Node crashed with exit code %d", r.ExitCode)))
	case r.Exists && !r.Running:
		b.WriteString("\n")
		b.WriteString(cliRenderInfo("Node is stopped"))
	case r.Probe.Error != "":
		b.WriteString("\n")
		b.WriteString(cliRenderWarning("Probe failed: " + r.Probe.Error))
	}
	return b.String()
}

func newRestartStatsCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "restart-stats",
		Short: "Show restart count, policy and recent lifecycle events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withServices(cmd, func(ctx context.Context, svc *Services) error {
				stats, err := svc.Health.RestartStats(ctx)
				if err != nil {
					return err
				}
				return cliWriteLine(cmd.OutOrStdout(), renderRestartStats(stats))
			})
		},
	}
}

func renderRestartStats(s *domain.RestartStats) string {
	var b strings.Builder
	b.WriteString(cliRenderTitle(s.Name))
	b.WriteString(" ")
	b.WriteString(components.StateBadge(s.State, false))
	b.WriteString("\n")

	pairs := [][2]string{
		{"Restarts", strconv.Itoa(s.RestartCount)},
		{"Policy", s.Policy.String()},
	}
	if s.Policy.Mode == domain.RestartModeOnFailure {
		retries := "unlimited"
		if s.Policy.MaxRetries > 0 {
			retries = strconv.Itoa(s.Policy.MaxRetries)
		}
		pairs = append(pairs, [2]string{"Max retries", retries})
	}
	if s.Policy.Delay > 0 {
		pairs = append(pairs, [2]string{"Retry delay", s.Policy.Delay.String()})
	}
	pairs = append(pairs,
		[2]string{"Started", formatTime(s.StartedAt)},
		[2]string{"Finished", formatTime(s.FinishedAt)},
		[2]string{"Exit code", strconv.Itoa(s.ExitCode)},
	)
	b.WriteString(components.KeyValueTable(pairs))
	b.WriteString("\n")

	b.WriteString(cliRenderTitle("Events since " + formatTime(s.WindowStart)))
	b.WriteString("\n")
	if len(s.Events) == 0 {
		b.WriteString(cliRenderEmptyState("No lifecycle events in the last 24h"))
		return b.String()
	}

	rows := make([][]string, 0, len(s.Events))
	for _, e := range s.Events {
		rows = append(rows, []string{formatTime(e.Time), e.Action, e.ExitCode})
	}
	b.WriteString(components.EventTable(rows))
	return b.String()
}
