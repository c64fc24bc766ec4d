// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/tomtom215/bedrockd/internal/backup"
	"github.com/tomtom215/bedrockd/internal/configwatch"
	"github.com/tomtom215/bedrockd/internal/logging"
	"github.com/tomtom215/bedrockd/internal/metrics"
	"github.com/tomtom215/bedrockd/internal/server"
	"github.com/tomtom215/bedrockd/internal/shutdown"
	"github.com/tomtom215/bedrockd/internal/supervisor"
	"github.com/tomtom215/bedrockd/internal/supervisor/services"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run and supervise the Bedrock server (default)",
	RunE:  runServer,
}

// errUngraceful is returned when the server had to be killed on shutdown.
var errUngraceful = errors.New("server did not stop gracefully")

//nolint:gocyclo // Sequential setup of every component
func runServer(_ *cobra.Command, _ []string) error {
	cfg, logFile, err := loadConfig(true)
	if err != nil {
		return err
	}
	defer func() {
		if err := logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close log file: %v\n", err)
		}
	}()

	backup.AppVersion = version
	metrics.SetAppInfo(version, runtime.Version())

	logging.Info().
		Str("version", version).
		Str("working_directory", cfg.Server.WorkingDirectory).
		Str("backup_directory", cfg.BackupDirectory()).
		Dur("backup_interval", cfg.Backup.Interval).
		Msg("Starting bedrockd")

	srv := server.New(serverConfig(cfg))
	defer srv.Close()

	backups, err := backup.NewManager(backupConfig(cfg), srv)
	if err != nil {
		return fmt.Errorf("failed to initialize backups: %w", err)
	}

	backups.SetOnBackupComplete(logBackupOutcome)

	coordinator := shutdown.New(shutdownConfig(cfg), srv, backups)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create supervisor tree: %w", err)
	}

	tree.AddProcessService(services.NewServerService(srv, coordinator.Stopping()))
	tree.AddJobService(services.NewBackupSchedulerService(backups, srv, cfg.Supervisor.ShutdownTimeout))

	var reactor *configwatch.Reactor
	if cfg.Watch.Enabled {
		watcher, err := configwatch.NewWatcher(ctx, cfg.Server.WorkingDirectory, cfg.Watch.Debounce)
		if err != nil {
			return fmt.Errorf("failed to watch configuration files: %w", err)
		}
		defer func() {
			if err := watcher.Close(); err != nil {
				logging.Warn().Err(err).Msg("Error closing configuration watcher")
			}
		}()
		reactor = configwatch.NewReactor(watcher, srv, reactorConfig(cfg))
		tree.AddJobService(services.NewConfigReactorService(reactor))
	} else {
		logging.Info().Msg("Configuration file watching disabled")
	}

	if cfg.Metrics.TextfilePath != "" {
		exporter := metrics.NewTextfileExporter(cfg.Metrics.TextfilePath, cfg.Metrics.Interval)
		tree.AddTelemetryService(services.NewTextfileExporterService(exporter))
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGUSR2)
	defer signal.Stop(sigCh)

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)
	treeDone := false

wait:
	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGUSR1:
				go forceBackup(ctx, backups)
			case syscall.SIGUSR2:
				logging.Info().Msg("Cancelling backup.")
				backups.CancelBackup()
			default:
				logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
				break wait
			}
		case err := <-errCh:
			treeDone = true
			if err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("Supervisor tree error")
			}
			break wait
		}
	}

	if reactor != nil {
		reactor.Suspend()
	}

	// A second signal cuts the player countdown short.
	countdownCtx, stopCountdown := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	graceful := coordinator.Shutdown(countdownCtx)
	stopCountdown()

	cancel()
	if !treeDone {
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	if !graceful {
		return errUngraceful
	}
	logging.Info().Msg("bedrockd stopped gracefully")
	return nil
}

// forceBackup takes a manual backup on operator request.
func forceBackup(ctx context.Context, backups *backup.Manager) {
	logging.Info().Msg("Manual backup requested.")
	if _, err := backups.CreateBackup(ctx, backup.TriggerManual); err != nil {
		if errors.Is(err, backup.ErrBackupInProgress) || errors.Is(err, backup.ErrBackupCancelled) {
			return
		}
		logging.Error().Err(err).Msg("Manual backup failed")
	}
}

// logBackupOutcome writes a one-line summary of every finished backup attempt.
func logBackupOutcome(b *backup.Backup) {
	event := logging.Info()
	if b.Status != backup.StatusCompleted {
		event = logging.Warn()
	}
	event.
		Str("backup_id", shortID(b.ID)).
		Str("status", string(b.Status)).
		Str("trigger", string(b.Trigger)).
		Dur("duration", b.Duration).
		Str("size", humanize.Bytes(uint64(max(b.FileSize, 0)))).
		Msg("Backup attempt finished")
}
