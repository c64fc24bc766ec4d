// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package server

import (
	"bufio"
	"io"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/bedrockd/internal/metrics"
	"github.com/tomtom215/bedrockd/internal/serverlog"
)

const maxLineSize = 1024 * 1024

func (m *Manager) readStdout(h *processHandle, r io.Reader) {
	defer h.readers.Done()
	m.scan(r, "stdout", m.handleOutput)
}

func (m *Manager) readStderr(h *processHandle, r io.Reader) {
	defer h.readers.Done()
	m.scan(r, "stderr", m.handleError)
}

// scan feeds each line of r to fn. A line longer than maxLineSize ends
// scanning; the rest of the stream is discarded so the server never blocks
// on a full pipe.
func (m *Manager) scan(r io.Reader, stream string, fn func(string)) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		fn(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		m.log.Warn().Err(err).Str("stream", stream).Msg("Stopped parsing server output")
		_, _ = io.Copy(io.Discard, r)
	}
}

// handleOutput interprets one stdout line and publishes it to log subscribers.
func (m *Manager) handleOutput(raw string) {
	line := serverlog.Parse(raw)

	switch line.Kind {
	case serverlog.KindIgnored:
		return

	case serverlog.KindPlayerConnected:
		n := m.players.Add(1)
		metrics.SetPlayersOnline(int(n))
		m.console.Info().Str("player", serverlog.PlayerName(line.Message)).
			Msgf("%s (%d players online)", line.Message, n)

	case serverlog.KindPlayerDisconnected:
		n, ok := m.decrementPlayers()
		if !ok {
			m.log.Warn().Msg("Player disconnected while no players were counted")
		}
		metrics.SetPlayersOnline(int(n))
		m.console.Info().Str("player", serverlog.PlayerName(line.Message)).
			Msgf("%s (%d players online)", line.Message, n)

	case serverlog.KindServerStarted:
		m.console.Trace().Msg(line.Message)
		if m.compareAndSetState(StateStarting, StateRunning) {
			m.log.Info().Msg("Server started.")
		}

	case serverlog.KindVersion:
		if !line.Version.IsZero() {
			v := line.Version
			m.version.Store(&v)
			metrics.SetServerVersion(v.String())
		}
		m.logAtLevel(line)

	default:
		m.logAtLevel(line)
	}

	m.logs.Publish(line.Raw)
}

func (m *Manager) logAtLevel(line serverlog.Line) {
	m.console.WithLevel(line.Level.ZerologLevel()).Msg(line.Message)
}

// handleError logs stderr output. It is never published.
func (m *Manager) handleError(raw string) {
	text := strings.TrimRight(raw, "\r\n")
	if strings.TrimSpace(text) == "" {
		return
	}
	m.console.WithLevel(zerolog.FatalLevel).Str("stream", "stderr").Msg(text)
}

// decrementPlayers lowers the player count, clamping at zero. It reports
// false if the count was already zero.
func (m *Manager) decrementPlayers() (int64, bool) {
	for {
		cur := m.players.Load()
		if cur <= 0 {
			return 0, false
		}
		if m.players.CompareAndSwap(cur, cur-1) {
			return cur - 1, true
		}
	}
}
