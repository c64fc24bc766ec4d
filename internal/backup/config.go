// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultPollInterval is how often "save query" is sent while waiting for the manifest.
const DefaultPollInterval = 1500 * time.Millisecond

// Config holds all backup-related configuration
type Config struct {
	// WorkingDirectory is the server's working directory. World files are
	// read from its worlds subdirectory.
	WorkingDirectory string

	// BackupDir is where archives and metadata.json are stored.
	BackupDir string

	// Interval between scheduled backups. Zero disables scheduling.
	Interval time.Duration

	// PollInterval between "save query" commands.
	PollInterval time.Duration

	// Retention policy applied after each scheduled backup
	Retention RetentionPolicy

	// Breaker settings for scheduled backups
	Breaker BreakerConfig
}

// BreakerConfig configures the scheduled-backup circuit breaker.
type BreakerConfig struct {
	// Consecutive failures before scheduled backups are skipped
	FailureThreshold uint32

	// How long scheduled backups are skipped once the breaker opens
	Cooldown time.Duration
}

// DefaultConfig returns the defaults for a server in workingDir.
func DefaultConfig(workingDir string) *Config {
	return &Config{
		WorkingDirectory: workingDir,
		BackupDir:        filepath.Join(workingDir, "Backups"),
		Interval:         30 * time.Minute,
		PollInterval:     DefaultPollInterval,
		Retention:        DefaultRetentionPolicy(),
		Breaker: BreakerConfig{
			FailureThreshold: 3,
			Cooldown:         time.Hour,
		},
	}
}

// DefaultRetentionPolicy keeps at least three backups and never prunes by count or age.
func DefaultRetentionPolicy() RetentionPolicy {
	return RetentionPolicy{MinCount: 3}
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	if c.WorkingDirectory == "" {
		return fmt.Errorf("working directory is required")
	}
	if c.BackupDir == "" {
		return fmt.Errorf("backup directory is required")
	}
	if !filepath.IsAbs(c.BackupDir) {
		return fmt.Errorf("backup directory must be an absolute path, got: %s", c.BackupDir)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got: %s", c.PollInterval)
	}
	if c.Interval < 0 {
		return fmt.Errorf("backup interval must not be negative, got: %s", c.Interval)
	}
	return validateRetentionPolicy(c.Retention)
}

// WorldsDir returns the directory manifest paths are relative to.
func (c *Config) WorldsDir() string {
	return filepath.Join(c.WorkingDirectory, "worlds")
}

// StagingDir returns the directory shadow copies are assembled in.
func (c *Config) StagingDir() string {
	return filepath.Join(c.BackupDir, ".staging")
}

// EnsureBackupDir creates the backup directory if it doesn't exist
func (c *Config) EnsureBackupDir() error {
	if err := os.MkdirAll(c.BackupDir, 0o750); err != nil {
		return fmt.Errorf("failed to create backup directory %s: %w", c.BackupDir, err)
	}
	return nil
}
