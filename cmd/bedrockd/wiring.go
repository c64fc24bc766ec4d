// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/tomtom215/bedrockd/internal/backup"
	"github.com/tomtom215/bedrockd/internal/config"
	"github.com/tomtom215/bedrockd/internal/configwatch"
	"github.com/tomtom215/bedrockd/internal/logging"
	"github.com/tomtom215/bedrockd/internal/server"
	"github.com/tomtom215/bedrockd/internal/shutdown"
	"github.com/tomtom215/bedrockd/internal/supervisor"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// loadConfig loads configuration and initializes logging. With withLogFile
// the log is also appended to the server's log file; the returned closer
// closes it.
func loadConfig(withLogFile bool) (*config.Config, io.Closer, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	var out io.Writer = os.Stderr
	var closer io.Closer = nopCloser{}
	if path := cfg.Server.LogFilePath(); withLogFile && path != "" {
		out, closer, err = logging.OpenLogFile(path, os.Stderr)
		if err != nil {
			return nil, nil, err
		}
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    out,
	})
	return cfg, closer, nil
}

func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		WorkingDirectory: cfg.Server.WorkingDirectory,
		Executable:       cfg.Server.Executable,
		Args:             cfg.Server.Args,
		RestartLimit:     cfg.Server.RestartLimit,
		RestartBurst:     cfg.Server.RestartBurst,
	}
}

func backupConfig(cfg *config.Config) *backup.Config {
	return &backup.Config{
		WorkingDirectory: cfg.Server.WorkingDirectory,
		BackupDir:        cfg.BackupDirectory(),
		Interval:         cfg.Backup.Interval,
		PollInterval:     cfg.Backup.PollInterval,
		Retention: backup.RetentionPolicy{
			MinCount: cfg.Backup.Retention.MinCount,
			MaxCount: cfg.Backup.Retention.MaxCount,
			MaxAge:   cfg.Backup.Retention.MaxAge,
		},
		Breaker: backup.BreakerConfig{
			FailureThreshold: cfg.Backup.Breaker.FailureThreshold,
			Cooldown:         cfg.Backup.Breaker.Cooldown,
		},
	}
}

func shutdownConfig(cfg *config.Config) shutdown.Config {
	return shutdown.Config{
		Checkpoints:  cfg.Shutdown.Checkpoints,
		DrainTimeout: cfg.Shutdown.DrainTimeout,
		StopTimeout:  cfg.Server.StopTimeout,
	}
}

func reactorConfig(cfg *config.Config) configwatch.ReactorConfig {
	return configwatch.ReactorConfig{
		Checkpoints: cfg.Shutdown.Checkpoints,
		StopTimeout: cfg.Server.StopTimeout,
	}
}

func treeConfig(cfg *config.Config) supervisor.TreeConfig {
	return supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	}
}

// openBackups creates a backup manager without a server, for the offline
// backup commands.
func openBackups() (*backup.Manager, error) {
	cfg, _, err := loadConfig(false)
	if err != nil {
		return nil, err
	}
	mgr, err := backup.NewManager(backupConfig(cfg), nil)
	if err != nil {
		return nil, fmt.Errorf("open backup index: %w", err)
	}
	return mgr, nil
}
