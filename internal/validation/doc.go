// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

// Package validation provides struct validation using go-playground/validator v10.
//
// It wraps a thread-safe singleton validator and translates field errors into
// messages that name the configuration key an operator would edit, for
// example "backup.poll_interval must be greater than 0s".
//
//	type BackupConfig struct {
//	    Directory    string        `koanf:"directory" validate:"required"`
//	    PollInterval time.Duration `koanf:"poll_interval" validate:"gt=0s"`
//	}
//
//	if verr := validation.ValidateStruct(cfg); verr != nil {
//	    return fmt.Errorf("invalid configuration: %w", verr)
//	}
package validation
