// Package app provides the application initialization and wiring.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/bnema/zerowrap"

	// Adapters - Input
	"github.com/bnema/ledgerctl/internal/adapters/in/cli"

	// Adapters - Output
	"github.com/bnema/ledgerctl/internal/adapters/out/docker"
	"github.com/bnema/ledgerctl/internal/adapters/out/filesystem"
	"github.com/bnema/ledgerctl/internal/adapters/out/freshstart"
	"github.com/bnema/ledgerctl/internal/adapters/out/httpprober"

	// Boundaries
	"github.com/bnema/ledgerctl/internal/boundaries/out"

	// Domain
	"github.com/bnema/ledgerctl/internal/domain"

	// Use cases
	"github.com/bnema/ledgerctl/internal/usecase/backup"
	"github.com/bnema/ledgerctl/internal/usecase/health"
	"github.com/bnema/ledgerctl/internal/usecase/maintenance"
	"github.com/bnema/ledgerctl/internal/usecase/service"
)

var errNoDocker = errors.New("docker engine is not reachable")

// Build loads configuration and wires every use case for one CLI invocation.
// It satisfies cli.Builder.
func Build(ctx context.Context, opts cli.GlobalOptions, confirmer out.Confirmer) (context.Context, *cli.Services, error) {
	cfg, err := LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, nil, err
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}

	log, cleanup, err := initLogger(cfg)
	if err != nil {
		return nil, nil, err
	}
	ctx = zerowrap.WithCtx(ctx, log)

	runtime, err := docker.NewRuntime(docker.WithHelperImage(cfg.Backup.HelperImage))
	if err != nil {
		runCleanup(cleanup)
		return nil, nil, log.WrapErr(err, "failed to create Docker runtime")
	}
	if err := runtime.Ping(ctx); err != nil {
		_ = runtime.Close()
		runCleanup(cleanup)
		return nil, nil, fmt.Errorf("%w: %w", errNoDocker, err)
	}

	svc, err := wire(ctx, cfg, runtime, confirmer, log)
	if err != nil {
		_ = runtime.Close()
		runCleanup(cleanup)
		return nil, nil, err
	}

	svc.Close = func() error {
		err := runtime.Close()
		runCleanup(cleanup)
		return err
	}
	return ctx, svc, nil
}

// wire builds the use cases on top of a container runtime.
func wire(ctx context.Context, cfg Config, runtime out.ContainerRuntime, confirmer out.Confirmer, log zerowrap.Logger) (*cli.Services, error) {
	id, err := domain.NewIdentity(cfg.Container.Name)
	if err != nil {
		return nil, err
	}

	storage, err := filesystem.NewBackupStorage(cfg.Backup.Dir, log)
	if err != nil {
		return nil, log.WrapErr(err, "failed to prepare backup directory")
	}

	prober, err := newProber(cfg)
	if err != nil {
		return nil, err
	}

	freshStart := freshstart.NewScript(id, freshstart.Config{
		Script:     cfg.FreshStart.Script,
		Platform:   cfg.Platform,
		Port:       cfg.Probe.Port,
		Transcript: cfg.FreshStart.Transcript,
	})

	serviceCtl := service.NewService(runtime, freshStart, confirmer, id, service.Config{
		StopTimeout: cfg.Service.StopTimeout,
	}, log)

	zerowrap.FromCtx(ctx).Debug().
		Str("container", id.Name()).
		Str("volume", id.Volume()).
		Str("backups", storage.Dir()).
		Msg("services wired")

	return &cli.Services{
		Service:     serviceCtl,
		Maintenance: maintenance.NewService(runtime, serviceCtl, confirmer, id, cfg.Service.StopTimeout, log),
		Backup:      backup.NewService(runtime, storage, serviceCtl, confirmer, id, log),
		Health: health.NewService(runtime, prober, id, health.ProbeConfig{
			Host:    cfg.Probe.Host,
			Port:    cfg.Probe.Port,
			Path:    cfg.Probe.Path,
			Timeout: cfg.Probe.Timeout,
		}, log),
	}, nil
}

func newProber(cfg Config) (*httpprober.Prober, error) {
	opts := []httpprober.Option{httpprober.WithTimeout(cfg.Probe.Timeout)}
	if cfg.Probe.CAFile != "" {
		pool, err := httpprober.LoadCAFile(cfg.Probe.CAFile)
		if err != nil {
			return nil, fmt.Errorf("%w: probe.ca_file: %w", domain.ErrInvalidConfig, err)
		}
		opts = append(opts, httpprober.WithRootCAs(pool))
	}
	return httpprober.New(opts...), nil
}

// initLogger initializes the zerowrap logger.
func initLogger(cfg Config) (zerowrap.Logger, func(), error) {
	logConfig := zerowrap.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}

	if cfg.Logging.File.Enabled {
		log, cleanup, err := zerowrap.NewWithFile(logConfig, zerowrap.FileConfig{
			Enabled:    true,
			Path:       cfg.logFilePath(),
			MaxSize:    cfg.Logging.File.MaxSize,
			MaxBackups: cfg.Logging.File.MaxBackups,
			MaxAge:     cfg.Logging.File.MaxAge,
			Compress:   true,
		})
		if err != nil {
			return zerowrap.Default(), nil, fmt.Errorf("failed to create logger with file: %w", err)
		}
		return log, cleanup, nil
	}

	return zerowrap.New(logConfig), nil, nil
}

func runCleanup(cleanup func()) {
	if cleanup != nil {
		cleanup()
	}
}
