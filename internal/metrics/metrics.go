// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ServerStates lists every lifecycle state label so that exactly one of
// them reports 1 at any time.
var ServerStates = []string{"created", "starting", "running", "stopping", "stopped", "faulted"}

var (
	// Server Metrics
	ServerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bedrock_server_state",
			Help: "Current lifecycle state of the supervised server (1 for the active state)",
		},
		[]string{"state"},
	)

	PlayersOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bedrock_players_online",
			Help: "Number of players currently connected",
		},
	)

	ServerRestarts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bedrock_server_restarts_total",
			Help: "Total number of automatic restarts after an unexpected exit",
		},
	)

	ServerCommands = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bedrock_server_commands_total",
			Help: "Total number of console commands sent to the server",
		},
		[]string{"command", "result"}, // result: "sent", "dropped", "error"
	)

	ServerInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bedrock_server_info",
			Help: "Version reported by the running server",
		},
		[]string{"version"},
	)

	// Backup Metrics
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bedrock_backups_total",
			Help: "Total number of backup attempts by outcome",
		},
		[]string{"trigger", "result"}, // result: "completed", "failed", "cancelled", "skipped"
	)

	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bedrock_backup_duration_seconds",
			Help:    "Duration of completed backups in seconds",
			Buckets: []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 600},
		},
	)

	BackupSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bedrock_backup_size_bytes",
			Help: "Size of the most recent backup archive in bytes",
		},
	)

	BackupLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bedrock_backup_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last completed backup",
		},
	)

	BackupsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bedrock_backups_pruned_total",
			Help: "Total number of archives removed by the retention policy",
		},
	)

	// Configuration Metrics
	ConfigChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bedrock_config_changes_total",
			Help: "Total number of server configuration file changes handled",
		},
		[]string{"file"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// SetServerState marks state as the active lifecycle state.
func SetServerState(state string) {
	for _, s := range ServerStates {
		if s == state {
			ServerState.WithLabelValues(s).Set(1)
		} else {
			ServerState.WithLabelValues(s).Set(0)
		}
	}
}

// SetPlayersOnline records the current player count.
func SetPlayersOnline(n int) {
	PlayersOnline.Set(float64(n))
}

// RecordServerRestart counts an automatic restart.
func RecordServerRestart() {
	ServerRestarts.Inc()
}

// RecordCommand counts a console command. Only the command verb is used as
// a label so that free text (say messages) does not explode cardinality.
func RecordCommand(command, result string) {
	ServerCommands.WithLabelValues(commandVerb(command), result).Inc()
}

func commandVerb(command string) string {
	fields := strings.Fields(command)
	switch len(fields) {
	case 0:
		return "empty"
	case 1:
		return fields[0]
	}
	// Two-word commands ("save hold", "whitelist reload") keep both words.
	if fields[0] == "say" {
		return "say"
	}
	return fields[0] + " " + fields[1]
}

// SetServerVersion publishes the running server version.
func SetServerVersion(version string) {
	ServerInfo.Reset()
	if version != "" {
		ServerInfo.WithLabelValues(version).Set(1)
	}
}

// RecordBackup records the outcome of one backup attempt. Duration and size
// are only observed for completed backups.
func RecordBackup(trigger, result string, duration time.Duration, sizeBytes int64) {
	BackupsTotal.WithLabelValues(trigger, result).Inc()
	if result != "completed" {
		return
	}
	BackupDuration.Observe(duration.Seconds())
	BackupSize.Set(float64(sizeBytes))
	BackupLastSuccess.Set(float64(time.Now().Unix()))
}

// RecordBackupsPruned counts archives removed by retention.
func RecordBackupsPruned(n int) {
	if n > 0 {
		BackupsPruned.Add(float64(n))
	}
}

// RecordConfigChange counts a handled configuration file change.
func RecordConfigChange(file string) {
	ConfigChanges.WithLabelValues(file).Inc()
}

// RecordCircuitBreakerTransition records a breaker state change. States use
// the gobreaker names: "closed", "half-open", "open".
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	switch to {
	case "closed":
		CircuitBreakerState.WithLabelValues(name).Set(0)
	case "half-open":
		CircuitBreakerState.WithLabelValues(name).Set(1)
	case "open":
		CircuitBreakerState.WithLabelValues(name).Set(2)
	}
}

// RecordCircuitBreakerRequest records a request outcome through a breaker.
func RecordCircuitBreakerRequest(name, result string) {
	CircuitBreakerRequests.WithLabelValues(name, result).Inc()
}

// SetAppInfo publishes build information.
func SetAppInfo(version, goVersion string) {
	AppInfo.WithLabelValues(version, goVersion).Set(1)
}
