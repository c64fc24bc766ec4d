// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package configwatch

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"vawter.tech/stopper"

	"github.com/tomtom215/bedrockd/internal/announce"
	"github.com/tomtom215/bedrockd/internal/eventbus"
	"github.com/tomtom215/bedrockd/internal/logging"
	"github.com/tomtom215/bedrockd/internal/server"
)

// Countdown and final broadcast for a properties restart.
const (
	RestartMessage    = "Server restart in %s."
	RestartingMessage = "Restarting server now."
)

// Change identifies which configuration file changed.
type Change int

const (
	WhitelistChanged Change = iota + 1
	PermissionsChanged
	PropertiesChanged
)

// Changes lists every change the reactor watches for.
var Changes = []Change{WhitelistChanged, PermissionsChanged, PropertiesChanged}

func (c Change) String() string {
	switch c {
	case WhitelistChanged:
		return "whitelist"
	case PermissionsChanged:
		return "permissions"
	case PropertiesChanged:
		return "properties"
	default:
		return "unknown"
	}
}

// FileName is the file in the server's working directory.
func (c Change) FileName() string {
	switch c {
	case WhitelistChanged:
		return "whitelist.json"
	case PermissionsChanged:
		return "permissions.json"
	case PropertiesChanged:
		return "server.properties"
	default:
		return ""
	}
}

// Source hands out one-shot change tokens. *Watcher implements it.
type Source interface {
	Watch(name string) <-chan struct{}
}

// Server is what the reactor drives. *server.Manager implements it.
type Server interface {
	announce.Audience
	SendCommand(command string)
	StopServer(maxWait time.Duration) bool
	StartServer(ctx context.Context) bool
}

// ReactorConfig controls the properties restart.
type ReactorConfig struct {
	Checkpoints []time.Duration
	StopTimeout time.Duration
}

// Reactor turns configuration file changes into server actions.
type Reactor struct {
	source Source
	server Server
	cfg    ReactorConfig

	changes   eventbus.Bus[Change]
	suspended atomic.Bool

	// restartMu keeps one properties restart at a time.
	restartMu sync.Mutex
}

// NewReactor creates a reactor.
func NewReactor(source Source, srv Server, cfg ReactorConfig) *Reactor {
	return &Reactor{source: source, server: srv, cfg: cfg}
}

// Subscribe registers fn for every observed change, including changes
// ignored while suspended.
func (r *Reactor) Subscribe(fn func(Change)) *eventbus.Subscription {
	return r.changes.Subscribe(fn)
}

// Suspend stops the reactor from acting on further changes. It is used once
// a shutdown has begun so a properties edit cannot restart the server.
func (r *Reactor) Suspend() {
	r.suspended.Store(true)
}

// Run watches every file until ctx ends.
func (r *Reactor) Run(ctx context.Context) error {
	sctx := stopper.WithContext(ctx)
	for _, change := range Changes {
		sctx.Go(func(s *stopper.Context) error {
			r.loop(ctx, s, change)
			return nil
		})
	}

	<-ctx.Done()
	sctx.Stop(stopGrace)
	return sctx.Wait()
}

// loop waits for a change, handles it, then re-arms.
func (r *Reactor) loop(ctx context.Context, sctx *stopper.Context, change Change) {
	for {
		token := r.source.Watch(change.FileName())
		select {
		case <-sctx.Stopping():
			return
		case <-token:
		}
		r.handle(ctx, change)
	}
}

func (r *Reactor) handle(ctx context.Context, change Change) {
	r.changes.Publish(change)

	if r.suspended.Load() {
		logging.Info().Str("file", change.FileName()).Msg("Ignoring configuration change during shutdown")
		return
	}

	switch change {
	case WhitelistChanged:
		logging.Info().Msg("Reloading whitelist.")
		r.server.SendCommand(server.CommandWhitelistReload)
	case PermissionsChanged:
		logging.Info().Msg("Reloading permissions.")
		r.server.SendCommand(server.CommandPermissionReload)
	case PropertiesChanged:
		r.restart(ctx)
	}
}

func (r *Reactor) restart(ctx context.Context) {
	r.restartMu.Lock()
	defer r.restartMu.Unlock()

	logging.Info().Msg("Server properties changed, triggering server restart.")

	if err := announce.Countdown(ctx, r.server, RestartMessage, r.cfg.Checkpoints); err != nil {
		logging.Warn().Err(err).Msg("Restart countdown interrupted")
		return
	}
	if r.suspended.Load() {
		return
	}
	r.server.Say(RestartingMessage)

	r.server.StopServer(r.cfg.StopTimeout)
	// A shutdown may have begun while the server was stopping.
	if ctx.Err() != nil || r.suspended.Load() {
		return
	}
	if !r.server.StartServer(ctx) {
		logging.Error().Msg("Failed to restart the server after a configuration change.")
	}
}
