// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package backup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/bedrockd/internal/logging"
	"github.com/tomtom215/bedrockd/internal/server"
)

// awaitRunning waits out a pending start and fails unless the server is Running.
func (m *Manager) awaitRunning(ctx context.Context) error {
	if m.server == nil {
		return ErrServerNotRunning
	}

	// Subscribe before reading the state so the change cannot be missed.
	changed := make(chan struct{}, 1)
	sub := m.server.SubscribeStates(func(server.State) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer sub.Close()

	state := m.server.State()
	for state == server.StateStarting {
		select {
		case <-changed:
			state = m.server.State()
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrBackupCancelled, ctx.Err())
		}
	}
	if state != server.StateRunning {
		return fmt.Errorf("%w (state %s)", ErrServerNotRunning, state)
	}
	return nil
}

// collectManifest runs the hold/query handshake and returns the file list.
// held is set once "save hold" has been sent so the caller knows to resume.
func (m *Manager) collectManifest(ctx context.Context, held *bool) (Manifest, error) {
	log := logging.Ctx(ctx)

	responses := make(chan string, 16)
	sub := m.server.SubscribeLogs(func(line string) {
		if !IsManifestLine(line) && !IsPreviousSaveLine(line) {
			return
		}
		select {
		case responses <- line:
		default:
			log.Warn().Msg("Dropped a save query response")
		}
	})
	defer sub.Close()

	// The query loop only ends on a response, so leaving Running must end it too.
	changed := make(chan struct{}, 1)
	states := m.server.SubscribeStates(func(server.State) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer states.Close()
	if state := m.server.State(); state != server.StateRunning {
		return nil, fmt.Errorf("%w (state %s)", ErrServerNotRunning, state)
	}

	m.server.SendCommand(server.CommandSaveHold)
	*held = true

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	manifest := make(Manifest)
	rehold := false
	for {
		select {
		case <-ctx.Done():
			log.Warn().Msg("Backup was cancelled.")
			return nil, fmt.Errorf("%w: %w", ErrBackupCancelled, ctx.Err())

		case <-changed:
			if state := m.server.State(); state != server.StateRunning {
				log.Error().Str("state", state.String()).Msg("The server stopped during the backup.")
				return nil, fmt.Errorf("%w (state %s)", ErrServerNotRunning, state)
			}

		case line := <-responses:
			if IsPreviousSaveLine(line) {
				log.Warn().Msg("A previous save has not been completed, holding again.")
				manifest = make(Manifest)
				rehold = true
				continue
			}
			m.mergeResponse(manifest, line, log)
			// Responses to queries sent before this one may already be queued.
			for drained := false; !drained; {
				select {
				case more := <-responses:
					if !IsPreviousSaveLine(more) {
						m.mergeResponse(manifest, more, log)
					}
				default:
					drained = true
				}
			}
			return manifest, nil

		case <-ticker.C:
			if rehold {
				m.server.SendCommand(server.CommandSaveResume)
				m.server.SendCommand(server.CommandSaveHold)
				rehold = false
				continue
			}
			m.server.SendCommand(server.CommandSaveQuery)
		}
	}
}

func (m *Manager) mergeResponse(manifest Manifest, line string, log *zerolog.Logger) {
	entries, skipped := ParseManifestLine(line)
	for _, entry := range skipped {
		if !strings.HasSuffix(entry, manifestMarker) {
			log.Debug().Str("entry", entry).Msg("Skipping malformed file list entry")
		}
	}
	manifest.Merge(entries, log)
}
