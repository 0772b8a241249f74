package cli

import (
	"context"

	"github.com/spf13/cobra"
)

func newStartMaintenanceCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "start-maintenance",
		Short: "Disable auto-restart and stop the node",
		Long: `Enters the maintenance window: auto-restart is disabled first and the
node is stopped afterwards, so the engine cannot bring it back in between.
Use it before taking a consistent backup.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withServices(cmd, func(ctx context.Context, svc *Services) error {
				if err := st.runStep(ctx, "Entering maintenance...", svc.Maintenance.StartMaintenance); err != nil {
					return err
				}
				return cliWriteLine(cmd.OutOrStdout(), cliRenderSuccess("Maintenance window started"))
			})
		},
	}
}

func newEndMaintenanceCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "end-maintenance",
		Short: "Leave maintenance by recreating the node",
		Long: `Ends the maintenance window. The node cannot resume on its existing
data, so this removes the container and volume and runs fresh-start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withServices(cmd, func(ctx context.Context, svc *Services) error {
				if err := svc.Maintenance.EndMaintenance(ctx); err != nil {
					return err
				}
				return cliWriteLine(cmd.OutOrStdout(), cliRenderSuccess("Maintenance window ended, node recreated"))
			})
		},
	}
}
