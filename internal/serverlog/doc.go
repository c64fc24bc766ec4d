// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

// Package serverlog parses console lines printed by the Bedrock dedicated server.
//
// A typical line looks like:
//
//	[2024-01-02 03:04:05:678 INFO] Player connected: Steve, xuid: 2535400000000000
//
// [Parse] strips the bracketed prefix, maps the level token (TRCE, DBUG, INFO,
// WARN, FAIL, CRIT) to a [Level], and classifies the message so that the
// process supervisor can react to readiness, version and player events without
// re-implementing any string matching. Parsing is pure and never fails: lines
// that do not match the prefix are returned unchanged at [LevelWarning].
package serverlog
