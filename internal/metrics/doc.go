// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

/*
Package metrics provides Prometheus metrics for the supervised server and its backups.

bedrockd does not listen on any network port. Metrics are registered with the
default Prometheus registry and periodically written to a text file in the
exposition format, ready for node_exporter's textfile collector:

	metrics:
	  textfile_path: /var/lib/node_exporter/textfile/bedrockd.prom
	  interval: 15s

# Available Metrics

Server:
  - bedrock_server_state: 1 for the current lifecycle state (gauge)
    Labels: state
  - bedrock_players_online: connected players (gauge)
  - bedrock_server_restarts_total: automatic restarts after a crash (counter)
  - bedrock_server_commands_total: console commands sent (counter)
    Labels: command, result
  - bedrock_server_info: running server version (gauge)
    Labels: version

Backups:
  - bedrock_backups_total: backup attempts by outcome (counter)
    Labels: trigger, result
  - bedrock_backup_duration_seconds: end-to-end backup time (histogram)
  - bedrock_backup_size_bytes: size of the most recent archive (gauge)
  - bedrock_backup_last_success_timestamp_seconds (gauge)
  - bedrock_backups_pruned_total: archives removed by retention (counter)

Configuration:
  - bedrock_config_changes_total: reactions to watched files (counter)
    Labels: file

Circuit breaker (scheduled backups):
  - circuit_breaker_state, circuit_breaker_requests_total,
    circuit_breaker_state_transitions_total

# Usage

	metrics.SetServerState(state.String())
	metrics.RecordBackup("scheduled", "completed", time.Since(start), size)
*/
package metrics
