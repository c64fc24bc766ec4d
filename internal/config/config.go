// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package config

import (
	"path/filepath"
	"time"
)

// Config is the complete bedrockd configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Backup     BackupConfig     `koanf:"backup"`
	Shutdown   ShutdownConfig   `koanf:"shutdown"`
	Watch      WatchConfig      `koanf:"watch"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
	Metrics    MetricsConfig    `koanf:"metrics"`
	Logging    LoggingConfig    `koanf:"logging"`
}

// ServerConfig describes the supervised Bedrock server process.
type ServerConfig struct {
	// WorkingDirectory holds the server executable, its worlds/ directory and
	// the watched configuration files. Default: current directory.
	WorkingDirectory string `koanf:"working_directory" validate:"required"`

	// Executable is the server binary, relative to WorkingDirectory unless absolute.
	Executable string `koanf:"executable" validate:"required"`

	// Args are extra command line arguments for the server.
	Args []string `koanf:"args"`

	// LogFileName is the supervisor log file, relative to WorkingDirectory.
	// Empty disables the log file.
	LogFileName string `koanf:"log_file_name" validate:"omitempty,relpath"`

	// StopTimeout bounds the graceful stop before the process is killed.
	// Zero waits indefinitely.
	StopTimeout time.Duration `koanf:"stop_timeout" validate:"gte=0s"`

	// RestartLimit caps automatic restarts after crashes, in restarts per
	// minute. Zero restarts unconditionally.
	RestartLimit float64 `koanf:"restart_limit" validate:"gte=0"`

	// RestartBurst is the number of restarts allowed back to back when RestartLimit is set.
	RestartBurst int `koanf:"restart_burst" validate:"gte=0"`
}

// BackupConfig controls world backups.
type BackupConfig struct {
	// Directory receives the zip archives, relative to WorkingDirectory unless absolute.
	Directory string `koanf:"directory" validate:"required"`

	// Interval between scheduled backups. Zero disables scheduling.
	Interval time.Duration `koanf:"interval" validate:"gte=0s"`

	// PollInterval is the delay between "save query" commands.
	PollInterval time.Duration `koanf:"poll_interval" validate:"gt=0s"`

	Retention RetentionConfig `koanf:"retention"`
	Breaker   BreakerConfig   `koanf:"breaker"`
}

// RetentionConfig limits how many archives are kept. Zero values disable a limit.
type RetentionConfig struct {
	MinCount int           `koanf:"min_count" validate:"gte=0"`
	MaxCount int           `koanf:"max_count" validate:"gte=0"`
	MaxAge   time.Duration `koanf:"max_age" validate:"gte=0s"`
}

// BreakerConfig guards scheduled backups against repeated failures.
type BreakerConfig struct {
	FailureThreshold uint32        `koanf:"failure_threshold" validate:"gte=1"`
	Cooldown         time.Duration `koanf:"cooldown" validate:"gt=0s"`
}

// ShutdownConfig controls the graceful shutdown sequence.
type ShutdownConfig struct {
	// Checkpoints are the remaining times announced to players before a
	// shutdown or restart.
	Checkpoints []time.Duration `koanf:"checkpoints" validate:"dive,gt=0s"`

	// DrainTimeout bounds the wait for a running backup before it is cancelled.
	DrainTimeout time.Duration `koanf:"drain_timeout" validate:"gte=0s"`
}

// WatchConfig controls reactions to server configuration file changes.
type WatchConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Debounce time.Duration `koanf:"debounce" validate:"gte=0s"`
}

// SupervisorConfig tunes the suture supervisor tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gt=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gt=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gte=0s"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gt=0s"`
}

// MetricsConfig controls the Prometheus textfile export.
type MetricsConfig struct {
	// TextfilePath enables the export when set.
	TextfilePath string        `koanf:"textfile_path"`
	Interval     time.Duration `koanf:"interval" validate:"gt=0s"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn warning error fatal critical disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

// ExecutablePath returns the absolute path of the server executable.
func (c *ServerConfig) ExecutablePath() string {
	return c.resolve(c.Executable)
}

// LogFilePath returns the supervisor log file path, or "" when disabled.
func (c *ServerConfig) LogFilePath() string {
	if c.LogFileName == "" {
		return ""
	}
	return c.resolve(c.LogFileName)
}

// WorldsDirectory returns the directory the server keeps its worlds in.
func (c *ServerConfig) WorldsDirectory() string {
	return filepath.Join(c.WorkingDirectory, "worlds")
}

func (c *ServerConfig) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.WorkingDirectory, p)
}

// BackupDirectory returns the resolved backup directory.
func (c *Config) BackupDirectory() string {
	return c.Server.resolve(c.Backup.Directory)
}
