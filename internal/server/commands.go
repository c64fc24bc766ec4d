// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package server

import "github.com/tomtom215/bedrockd/internal/metrics"

// Console commands used by the supervisor.
const (
	CommandStop             = "stop"
	CommandSaveHold         = "save hold"
	CommandSaveQuery        = "save query"
	CommandSaveResume       = "save resume"
	CommandWhitelistReload  = "whitelist reload"
	CommandPermissionReload = "permission reload"
)

// SendCommand writes one command line to the server's stdin. Commands sent
// while the server is not Running are logged and dropped. Write failures
// are logged, never returned.
func (m *Manager) SendCommand(command string) {
	h := m.handle()
	if m.State() != StateRunning || h == nil {
		m.log.Error().Str("command", command).Msg("Attempted to send command to server but process is not running.")
		metrics.RecordCommand(command, "dropped")
		return
	}

	if err := h.write(command); err != nil {
		m.log.Error().Err(err).Str("command", command).Msg("Error when sending command to the server.")
		metrics.RecordCommand(command, "error")
		return
	}
	m.log.Debug().Str("command", command).Msg("Sent command to server")
	metrics.RecordCommand(command, "sent")
}

// Say broadcasts a chat message to every connected player.
func (m *Manager) Say(message string) {
	m.SendCommand("say " + message)
}
