package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bnema/ledgerctl/internal/adapters/in/cli/ui/components"
	"github.com/bnema/ledgerctl/internal/domain"
)

func newBackupCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Archive the node volume to a timestamped file",
		Long: `Archives the full contents of the node volume into
<backup.dir>/<name>-backup-YYYYMMDD-HHMMSS.tar.gz. The volume is mounted
read-only into a short-lived helper container.

A backup of a running node may be inconsistent. Run
'ledgerctl start-maintenance' first for a consistent copy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withServices(cmd, func(ctx context.Context, svc *Services) error {
				artifact, err := svc.Backup.Backup(ctx)
				if err != nil {
					return err
				}
				return cliWriteLine(cmd.OutOrStdout(), cliRenderSuccess(
					fmt.Sprintf("Backup written to %s (%s)", artifact.Path, formatSize(artifact.SizeBytes))))
			})
		},
	}
}

func newRestoreCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Replace the node volume contents with a backup",
		Long: `Stops the node, clears the data volume, extracts the archive into it
and starts the node again. The file may be a path or a file name inside
the backups directory.

If extraction fails the volume is left in an unknown state and the node
stays stopped.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withServices(cmd, func(ctx context.Context, svc *Services) error {
				if err := svc.Backup.Restore(ctx, args[0]); err != nil {
					return err
				}
				return cliWriteLine(cmd.OutOrStdout(), cliRenderSuccess(fmt.Sprintf("Restored %s", args[0])))
			})
		},
	}
}

func newBackupsCmd(st *rootState) *cobra.Command {
	return &cobra.Command{
		Use:   "backups",
		Short: "List backups of the node volume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withServices(cmd, func(ctx context.Context, svc *Services) error {
				artifacts, err := svc.Backup.List(ctx)
				if err != nil {
					return err
				}
				if len(artifacts) == 0 {
					return cliWriteLine(cmd.OutOrStdout(), cliRenderEmptyState("No backups found"))
				}
				return cliWriteLine(cmd.OutOrStdout(), components.BackupTable(backupRows(artifacts)))
			})
		},
	}
}

func backupRows(artifacts []domain.BackupArtifact) [][]string {
	rows := make([][]string, 0, len(artifacts))
	for _, a := range artifacts {
		rows = append(rows, []string{filepath.Base(a.Path), formatTime(a.Timestamp), formatSize(a.SizeBytes)})
	}
	return rows
}

func newPruneBackupsCmd(st *rootState) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune-backups",
		Short: "Delete all but the newest backups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return st.withServices(cmd, func(ctx context.Context, svc *Services) error {
				removed, err := svc.Backup.Prune(ctx, keep)
				if err != nil {
					return err
				}
				if removed == 0 {
					return cliWriteLine(cmd.OutOrStdout(), cliRenderEmptyState("Nothing to prune"))
				}
				return cliWriteLine(cmd.OutOrStdout(), cliRenderSuccess(fmt.Sprintf("Removed %d backup(s), kept %d", removed, keep)))
			})
		},
	}

	cmd.Flags().IntVar(&keep, "keep", 5, "Number of newest backups to keep")

	return cmd
}
