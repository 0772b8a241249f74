// Package cli implements the CLI adapter for ledgerctl.
// This package provides Cobra commands that delegate to the use cases.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bnema/ledgerctl/internal/boundaries/in"
	"github.com/bnema/ledgerctl/internal/boundaries/out"
	"github.com/bnema/ledgerctl/internal/domain"
)

var (
	// Version information (set at build time)
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

// SetVersionInfo sets the version information for the CLI.
func SetVersionInfo(version, commit, date string) {
	Version = version
	Commit = commit
	BuildDate = date
}

// GlobalOptions are the persistent flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	AssumeYes  bool
	LogLevel   string
}

// Services groups the use cases a command can call.
type Services struct {
	Service     in.ServiceController
	Maintenance in.MaintenanceCoordinator
	Backup      in.BackupManager
	Health      in.HealthMonitor
	Close       func() error
}

// Builder wires the use cases for one command invocation. The returned
// context carries the configured logger and is used for every call.
type Builder func(ctx context.Context, opts GlobalOptions, confirmer out.Confirmer) (context.Context, *Services, error)

// Streams are the process I/O handles the commands read and write.
type Streams struct {
	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// errNotHealthy signals exit code 1 after a report was already printed.
var errNotHealthy = errors.New("node is not healthy")

type rootState struct {
	build   Builder
	streams Streams
	opts    GlobalOptions
	// isTerminal reports whether a stream is an interactive terminal.
	isTerminal func(any) bool
}

// NewRootCmd creates the root command for the ledgerctl CLI.
func NewRootCmd(build Builder, streams Streams) *cobra.Command {
	return newRootCmd(&rootState{
		build:      build,
		streams:    streams,
		isTerminal: isTerminal,
	})
}

func newRootCmd(st *rootState) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "ledgerctl - lifecycle manager for a consortium ledger node",
		Long: `ledgerctl operates a single ledger node running in a container with an
attached data volume: start and stop it, enter a maintenance window, take
and restore volume backups, and check its health.

The node refuses to start on an existing data directory, so restart and
end-maintenance always destroy the container and volume and run the
fresh-start script.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetIn(st.streams.In)
	rootCmd.SetOut(st.streams.Out)
	rootCmd.SetErr(st.streams.Err)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&st.opts.ConfigPath, "config", "c", "", "Path to config file")
	flags.BoolVarP(&st.opts.AssumeYes, "yes", "y", false, "Answer yes to every confirmation")
	flags.StringVar(&st.opts.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newStartCmd(st),
		newStopCmd(st),
		newRestartCmd(st),
		newStatusCmd(st),
		newLogsCmd(st),
		newRemoveCmd(st),
		newStartMaintenanceCmd(st),
		newEndMaintenanceCmd(st),
		newBackupCmd(st),
		newRestoreCmd(st),
		newBackupsCmd(st),
		newPruneBackupsCmd(st),
		newHealthCheckCmd(st),
		newRestartStatsCmd(st),
		newVersionCmd(),
	)

	return rootCmd
}

// withServices builds the use cases, runs fn and releases them.
func (st *rootState) withServices(cmd *cobra.Command, fn func(ctx context.Context, svc *Services) error) (err error) {
	ctx, svc, err := st.build(cmd.Context(), st.opts, st.confirmer())
	if err != nil {
		return err
	}
	if svc.Close != nil {
		defer func() {
			if closeErr := svc.Close(); closeErr != nil && err == nil {
				err = closeErr
			}
		}()
	}
	return fn(ctx, svc)
}

// interactive reports whether stdout can host a bubbletea program.
func (st *rootState) interactive() bool {
	return st.isTerminal(st.streams.Out)
}

func isTerminal(stream any) bool {
	f, ok := stream.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("ledgerctl %s\n", Version)
			cmd.Printf("Commit: %s\n", Commit)
			cmd.Printf("Build Date: %s\n", BuildDate)
		},
	}
}

// Execute runs the CLI and maps the outcome to a process exit code.
func Execute(ctx context.Context, build Builder, args []string, streams Streams) int {
	cmd := NewRootCmd(build, streams)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	return exitCode(streams.Err, err)
}

func exitCode(w io.Writer, err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errNotHealthy):
		return 1
	case errors.Is(err, domain.ErrUserAborted):
		_ = cliWriteLine(w, cliRenderWarning(fmt.Sprintf("Aborted: %v", err)))
		return 1
	default:
		_ = cliWriteLine(w, cliRenderError(err.Error()))
		return 1
	}
}
