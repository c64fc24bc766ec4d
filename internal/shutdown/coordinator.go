// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

// Package shutdown orders the teardown of a supervised server: warn players,
// stop backup scheduling and wait out a running backup, then stop the process.
package shutdown

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/bedrockd/internal/announce"
	"github.com/tomtom215/bedrockd/internal/logging"
)

// ShutdownMessage is the countdown broadcast template.
const ShutdownMessage = "Server shutdown in %s."

// Server is the process side of a shutdown. *server.Manager implements it.
type Server interface {
	announce.Audience
	StopServer(maxWait time.Duration) bool
}

// Backups is the backup side of a shutdown. *backup.Manager implements it.
type Backups interface {
	StopWatching(ctx context.Context) error
	CancelBackup()
}

// Config controls the shutdown sequence.
type Config struct {
	Checkpoints []time.Duration

	// DrainTimeout bounds the wait for a running backup. When it expires the
	// backup is cancelled and waited for again. Zero waits indefinitely.
	DrainTimeout time.Duration

	// StopTimeout is how long the server gets to exit after "stop".
	StopTimeout time.Duration
}

// Coordinator runs the shutdown sequence once.
type Coordinator struct {
	cfg     Config
	server  Server
	backups Backups

	once     sync.Once
	stopping chan struct{}
	done     chan struct{}
	graceful bool
}

// New creates a coordinator.
func New(cfg Config, srv Server, backups Backups) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		server:   srv,
		backups:  backups,
		stopping: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Shutdown runs the sequence and reports whether the server exited cleanly.
// Concurrent and later calls wait for the first one and return its result.
//
// ctx only shortens the player countdown; the rest of the sequence always
// runs to completion so no backup is left half written.
func (c *Coordinator) Shutdown(ctx context.Context) bool {
	c.once.Do(func() {
		close(c.stopping)
		defer close(c.done)
		c.graceful = c.run(ctx)
	})
	return c.graceful
}

// Stopping is closed as soon as a shutdown begins.
func (c *Coordinator) Stopping() <-chan struct{} {
	return c.stopping
}

// Done is closed once a shutdown has completed.
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

func (c *Coordinator) run(ctx context.Context) bool {
	start := time.Now()
	logging.Info().Msg("Shutting down.")

	if err := announce.Countdown(ctx, c.server, ShutdownMessage, c.cfg.Checkpoints); err != nil {
		logging.Warn().Err(err).Msg("Shutdown countdown interrupted")
	}

	if c.backups != nil {
		c.drainBackups()
		// A backup may still be polling for its file list.
		c.backups.CancelBackup()
	}

	graceful := c.server.StopServer(c.cfg.StopTimeout)
	logging.Info().Bool("graceful", graceful).Dur("duration", time.Since(start)).Msg("Shutdown complete.")
	return graceful
}

func (c *Coordinator) drainBackups() {
	ctx := context.Background()
	if c.cfg.DrainTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.DrainTimeout)
		defer cancel()
	}

	err := c.backups.StopWatching(ctx)
	if err == nil {
		return
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		logging.Error().Err(err).Msg("Failed to stop backup scheduling")
		return
	}

	logging.Warn().Dur("timeout", c.cfg.DrainTimeout).Msg("Backup did not finish in time, cancelling it.")
	c.backups.CancelBackup()
	if err := c.backups.StopWatching(context.Background()); err != nil {
		logging.Error().Err(err).Msg("Failed to stop backup scheduling")
	}
}
