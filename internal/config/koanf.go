// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched when no explicit path is given.
var DefaultConfigPaths = []string{
	"bedrockd.yaml",
	"bedrockd.yml",
	"/etc/bedrockd/bedrockd.yaml",
	"/etc/bedrockd/bedrockd.yml",
}

// ConfigPathEnvVar names the environment variable holding the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix is stripped from every environment variable considered.
const envPrefix = "BEDROCKD_"

// DefaultCheckpoints are the countdown announcements before shutdown or restart.
var DefaultCheckpoints = []time.Duration{
	30 * time.Second,
	20 * time.Second,
	10 * time.Second,
	5 * time.Second,
	3 * time.Second,
	2 * time.Second,
	1 * time.Second,
}

func defaultConfig() *Config {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	return &Config{
		Server: ServerConfig{
			WorkingDirectory: wd,
			Executable:       "bedrock_server",
			LogFileName:      "bedrock_service.log",
			StopTimeout:      time.Minute,
			RestartLimit:     0,
			RestartBurst:     3,
		},
		Backup: BackupConfig{
			Directory:    "Backups",
			Interval:     30 * time.Minute,
			PollInterval: 1500 * time.Millisecond,
			Retention: RetentionConfig{
				MinCount: 3,
				MaxCount: 0,
				MaxAge:   0,
			},
			Breaker: BreakerConfig{
				FailureThreshold: 3,
				Cooldown:         time.Hour,
			},
		},
		Shutdown: ShutdownConfig{
			Checkpoints:  append([]time.Duration(nil), DefaultCheckpoints...),
			DrainTimeout: 2 * time.Minute,
		},
		Watch: WatchConfig{
			Enabled:  true,
			Debounce: 500 * time.Millisecond,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
		Metrics: MetricsConfig{
			TextfilePath: "",
			Interval:     15 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
			Caller: false,
		},
	}
}

// Load reads configuration from defaults, the config file at path (or the
// default search locations when path is empty), and the environment.
//
// Precedence: ENV > File > Defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional unless named explicitly)
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file %s: %w", path, err)
		}
	} else {
		path = findConfigFile()
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Layer 3: environment
	if err := k.Load(env.Provider(envPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths are split on commas when they arrive as a single string
// from the environment.
var sliceConfigPaths = []string{
	"server.args",
	"shutdown.checkpoints",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		var trimmed []string
		for _, p := range strings.Split(strVal, ",") {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envTransformFunc maps BEDROCKD_* variables to koanf paths. Unmapped
// variables return "" and are ignored.
//
// Examples:
//   - BEDROCKD_WORKING_DIRECTORY -> server.working_directory
//   - BEDROCKD_BACKUP_INTERVAL -> backup.interval
//   - BEDROCKD_LOG_LEVEL -> logging.level
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, envPrefix))

	envMappings := map[string]string{
		// Server
		"working_directory": "server.working_directory",
		"executable":        "server.executable",
		"server_args":       "server.args",
		"log_file_name":     "server.log_file_name",
		"stop_timeout":      "server.stop_timeout",
		"restart_limit":     "server.restart_limit",
		"restart_burst":     "server.restart_burst",

		// Backup
		"backup_directory":         "backup.directory",
		"backup_interval":          "backup.interval",
		"backup_poll_interval":     "backup.poll_interval",
		"backup_min_count":         "backup.retention.min_count",
		"backup_max_count":         "backup.retention.max_count",
		"backup_max_age":           "backup.retention.max_age",
		"backup_failure_threshold": "backup.breaker.failure_threshold",
		"backup_breaker_cooldown":  "backup.breaker.cooldown",

		// Shutdown
		"shutdown_checkpoints":   "shutdown.checkpoints",
		"shutdown_drain_timeout": "shutdown.drain_timeout",

		// Watch
		"watch_enabled":  "watch.enabled",
		"watch_debounce": "watch.debounce",

		// Supervisor
		"supervisor_failure_threshold": "supervisor.failure_threshold",
		"supervisor_failure_decay":     "supervisor.failure_decay",
		"supervisor_failure_backoff":   "supervisor.failure_backoff",
		"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",

		// Metrics
		"metrics_textfile_path": "metrics.textfile_path",
		"metrics_interval":      "metrics.interval",

		// Logging
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}
