// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

// Package logging provides centralized zerolog-based structured logging for bedrockd.
//
// Everything the supervisor reports goes through this package: lifecycle
// transitions, backup progress, configuration reactions, and the console
// output of the supervised Bedrock server itself (re-logged at the level the
// server printed it with).
//
// # Quick Start
//
//	logging.Init(logging.Config{
//	    Level:  "info",
//	    Format: "console",
//	})
//
//	logging.Info().Str("path", archive).Msg("Backup completed")
//	logging.Error().Err(err).Msg("The backup failed")
//
//	// Per-run correlation
//	ctx = logging.ContextWithCorrelationID(ctx, backupID)
//	logging.Ctx(ctx).Info().Msg("Starting backup")
//
// # Levels
//
// Bedrock prints six severities (TRCE, DBUG, INFO, WARN, FAIL, CRIT). The first
// five map directly onto zerolog levels. CRIT is written with [Critical], which
// uses zerolog's fatal level without terminating the process.
//
// # Supervisor Integration
//
// [NewSlogLogger] returns a log/slog logger backed by zerolog so that
// sutureslog can report supervisor tree events through the same sink.
package logging
