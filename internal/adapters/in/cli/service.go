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

func newStartCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the stopped node container",
		Long: `Starts the existing node container. It never creates one: when the
container is missing, run the fresh-start procedure (ledgerctl restart).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withServices(cmd, func(ctx context.Context, svc *Services) error {
				if err := st.runStep(ctx, "Starting node...", svc.Service.Start); err != nil {
					return err
				}
				return cliWriteLine(cmd.OutOrStdout(), cliRenderSuccess("Node started"))
			})
		},
	}
}

func newStopCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Gracefully stop the node container",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withServices(cmd, func(ctx context.Context, svc *Services) error {
				if err := st.runStep(ctx, "Stopping node...", svc.Service.Stop); err != nil {
					return err
				}
				return cliWriteLine(cmd.OutOrStdout(), cliRenderSuccess("Node stopped"))
			})
		},
	}
}

func newRestartCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Destroy the node and its volume and run fresh-start",
		Long: `Restart is never a plain container restart. The node refuses to
initialize storage that already exists, so restart stops and removes the
container, removes the data volume and runs the fresh-start script.

All ledger data is lost. Take a backup first if you need it.

Examples:
  ledgerctl backup && ledgerctl restart
  ledgerctl restart --yes`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withServices(cmd, func(ctx context.Context, svc *Services) error {
				if err := svc.Service.Restart(ctx); err != nil {
					return err
				}
				return cliWriteLine(cmd.OutOrStdout(), cliRenderSuccess("Node recreated"))
			})
		},
	}
}

func newStatusCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the node container state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withServices(cmd, func(ctx context.Context, svc *Services) error {
				report, err := svc.Service.Status(ctx)
				if err != nil {
					return err
				}
				return cliWriteLine(cmd.OutOrStdout(), renderStatus(report))
			})
		},
	}
}

func renderStatus(report *domain.StatusReport) string {
	var b strings.Builder
	b.WriteString(cliRenderTitle(report.Name))
	b.WriteString(" ")
	b.WriteString(components.StateBadge(report.State, report.InMaintenance))
	b.WriteString("\n")

	if report.State == domain.StateNotFound {
		b.WriteString(cliRenderEmptyState("Container does not exist. Run 'ledgerctl restart' to create it."))
		return b.String()
	}

	pairs := [][2]string{
		{"ID", shortID(report.ID)},
		{"Image", report.Image},
		{"Restart policy", report.Policy.String()},
	}
	if report.State == domain.StateRunning {
		pairs = append(pairs,
			[2]string{"Started", formatTime(report.StartedAt)},
			[2]string{"Uptime", report.Uptime.String()},
		)
		for _, p := range report.Ports {
			pairs = append(pairs, [2]string{"Port " + p.ContainerPort, p.HostIP + ":" + p.HostPort})
		}
	}
	b.WriteString(components.KeyValueTable(pairs))

	if report.InMaintenance {
		b.WriteString("\n")
		b.WriteString(cliRenderInfo("Maintenance window active. End it with 'ledgerctl end-maintenance'."))
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

func newLogsCmd(st *rootState) *cobra.Command {
	var (
		follow     bool
		tail       string
		timestamps bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the node container logs",
		Long: `Prints the node container output. With --follow the stream stays open
until interrupted with Ctrl-C.

Examples:
  ledgerctl logs --tail 200
  ledgerctl logs -f`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if tail != "all" {
				n, err := strconv.Atoi(tail)
				if err != nil || n < 0 {
					return fmt.Errorf("%w: --tail must be \"all\" or a non-negative number, got %q", domain.ErrInvalidConfig, tail)
				}
			}
			return st.withServices(cmd, func(ctx context.Context, svc *Services) error {
				opts := domain.LogOptions{Follow: follow, Tail: tail, Timestamps: timestamps}
				return svc.Service.Logs(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
			})
		},
	}

	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Follow log output")
	cmd.Flags().StringVarP(&tail, "tail", "n", "all", "Number of lines to show from the end, or \"all\"")
	cmd.Flags().BoolVarP(&timestamps, "timestamps", "t", false, "Show timestamps")

	return cmd
}

func newRemoveCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "remove",
		Short: "Stop and remove the node container and its volume",
		Long: `Stops the node, removes the container and removes its data volume.
Resources that are already gone are skipped, so remove can be run again
safely.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withServices(cmd, func(ctx context.Context, svc *Services) error {
				if err := st.runStep(ctx, "Removing node...", svc.Service.Remove); err != nil {
					return err
				}
				return cliWriteLine(cmd.OutOrStdout(), cliRenderSuccess("Container and volume removed"))
			})
		},
	}
}
