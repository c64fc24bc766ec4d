// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

// Package main is the entry point for bedrockd.
//
// bedrockd supervises one Minecraft Bedrock dedicated server: it keeps the
// process running, re-logs its console output, takes consistent world
// backups while players stay online, reacts to edits of the server's
// configuration files, and shuts everything down in order.
//
// # Application Architecture
//
// The run command initializes components in the following order:
//
//  1. Configuration: defaults, optional YAML file, BEDROCKD_* environment (Koanf v2)
//  2. Logging: zerolog to stderr, tee'd to the log file in the working directory
//  3. Server Manager: process lifecycle, console parsing, crash restarts
//  4. Backup Manager: snapshot protocol, zip packaging, schedule, retention
//  5. Shutdown Coordinator: countdown, backup drain, graceful stop
//  6. Config Reactor (optional): whitelist, permissions and server.properties changes
//  7. Supervisor Tree: suture hosts the long-running services
//
// # Signal Handling
//
//	SIGINT, SIGTERM  graceful shutdown; a second signal skips the countdown
//	SIGUSR1          take a manual backup now
//	SIGUSR2          cancel the running backup
//
// # Offline Commands
//
//	bedrockd backup list [--json]
//	bedrockd backup stats [--json]
//	bedrockd backup verify <id> [--json]
//	bedrockd backup delete <id>
//	bedrockd backup prune
//	bedrockd version
package main

func main() {
	Execute()
}
