// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package config

import (
	"fmt"
	"path/filepath"

	"github.com/tomtom215/bedrockd/internal/validation"
)

// Validate checks struct tags first, then the cross-field rules tags cannot express.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateBackup(); err != nil {
		return err
	}

	return c.validateRetention()
}

func (c *Config) validateServer() error {
	if !filepath.IsAbs(c.Server.WorkingDirectory) {
		abs, err := filepath.Abs(c.Server.WorkingDirectory)
		if err != nil {
			return fmt.Errorf("server.working_directory: %w", err)
		}
		c.Server.WorkingDirectory = abs
	}
	if c.Server.RestartLimit > 0 && c.Server.RestartBurst < 1 {
		return fmt.Errorf("server.restart_burst must be at least 1 when server.restart_limit is set")
	}
	return nil
}

func (c *Config) validateBackup() error {
	if c.Backup.Interval > 0 && c.Backup.Interval < c.Backup.PollInterval {
		return fmt.Errorf("backup.interval (%s) must not be shorter than backup.poll_interval (%s)",
			c.Backup.Interval, c.Backup.PollInterval)
	}
	if filepath.Clean(c.BackupDirectory()) == filepath.Clean(c.Server.WorldsDirectory()) {
		return fmt.Errorf("backup.directory must not be the worlds directory")
	}
	return nil
}

func (c *Config) validateRetention() error {
	r := c.Backup.Retention
	if r.MaxCount > 0 && r.MinCount > r.MaxCount {
		return fmt.Errorf("backup.retention.min_count (%d) must not exceed max_count (%d)", r.MinCount, r.MaxCount)
	}
	return nil
}
