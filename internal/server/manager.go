// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package server

import (
	"context"
	"io"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/bedrockd/internal/eventbus"
	"github.com/tomtom215/bedrockd/internal/logging"
	"github.com/tomtom215/bedrockd/internal/metrics"
	"github.com/tomtom215/bedrockd/internal/serverlog"
)

// Config describes how to launch the Bedrock server.
type Config struct {
	// WorkingDirectory is the server's working directory. The executable,
	// worlds and configuration files are resolved relative to it.
	WorkingDirectory string

	// Executable is the server binary, relative to WorkingDirectory unless absolute.
	Executable string

	// Args are extra command line arguments for the server.
	Args []string

	// Env is appended to the supervisor's environment for the server process.
	Env []string

	// RestartLimit caps automatic crash restarts per minute. Zero disables the cap.
	RestartLimit float64

	// RestartBurst is the number of restarts allowed before RestartLimit applies.
	RestartBurst int
}

// ExecutablePath returns the absolute path of the server binary.
func (c Config) ExecutablePath() string {
	if filepath.IsAbs(c.Executable) {
		return c.Executable
	}
	return filepath.Join(c.WorkingDirectory, c.Executable)
}

// ProcessFinder looks for a running process started from the given executable.
type ProcessFinder interface {
	FindByExecutable(ctx context.Context, path string) (pid int32, found bool, err error)
}

// Option configures a Manager.
type Option func(*Manager)

// WithProcessFinder replaces the conflict guard's process lookup.
func WithProcessFinder(f ProcessFinder) Option {
	return func(m *Manager) {
		m.finder = f
	}
}

// Manager supervises one server process. It is safe for concurrent use.
type Manager struct {
	cfg    Config
	finder ProcessFinder

	// transitionMu serializes state mutation and state publication.
	transitionMu sync.Mutex
	state        atomic.Int32

	// lifecycleMu serializes StartServer, StopServer and automatic restarts.
	lifecycleMu   sync.Mutex
	stopRequested atomic.Bool

	procMu sync.Mutex
	proc   *processHandle

	players atomic.Int64
	version atomic.Pointer[serverlog.Version]

	logs   eventbus.Bus[string]
	states eventbus.Bus[State]

	restartLimiter *rate.Limiter
	restartFailed  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc

	log     zerolog.Logger
	console zerolog.Logger
}

// processHandle is one launched server process and its pipes.
type processHandle struct {
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	writeMu sync.Mutex
	readers sync.WaitGroup
	exited  chan struct{}
}

// write sends one command line to the process.
func (h *processHandle) write(command string) error {
	h.writeMu.Lock()
	defer h.writeMu.Unlock()
	_, err := io.WriteString(h.stdin, command+"\n")
	return err
}

// New creates a Manager in the Created state. No process is started.
func New(cfg Config, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		cfg:           cfg,
		finder:        gopsutilFinder{},
		restartFailed: make(chan struct{}, 1),
		ctx:           ctx,
		cancel:        cancel,
		log:           logging.WithComponent("server"),
		console:       logging.WithComponent("bedrock"),
	}
	if cfg.RestartLimit > 0 {
		burst := cfg.RestartBurst
		if burst < 1 {
			burst = 1
		}
		m.restartLimiter = rate.NewLimiter(rate.Limit(cfg.RestartLimit/60), burst)
	}
	for _, opt := range opts {
		opt(m)
	}
	metrics.SetServerState(StateCreated.String())
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// GetPlayerCount returns the number of connected players.
func (m *Manager) GetPlayerCount() int {
	return int(m.players.Load())
}

// GetVersion returns the version the server reported, or the zero Version.
func (m *Manager) GetVersion() serverlog.Version {
	if v := m.version.Load(); v != nil {
		return *v
	}
	return serverlog.Version{}
}

// WorkingDirectory returns the server's working directory.
func (m *Manager) WorkingDirectory() string {
	return m.cfg.WorkingDirectory
}

// SubscribeLogs registers fn for every published console line.
func (m *Manager) SubscribeLogs(fn func(line string)) *eventbus.Subscription {
	return m.logs.Subscribe(fn)
}

// SubscribeStates registers fn for every state change.
func (m *Manager) SubscribeStates(fn func(State)) *eventbus.Subscription {
	return m.states.Subscribe(fn)
}

// RestartFailures signals when an automatic restart could not bring the
// server back to Running. The server is left Faulted.
func (m *Manager) RestartFailures() <-chan struct{} {
	return m.restartFailed
}

// WaitForRunning blocks until the server is Running or ctx ends.
func (m *Manager) WaitForRunning(ctx context.Context) error {
	_, err := m.waitUntil(ctx, func(s State) bool { return s == StateRunning })
	return err
}

// Close cancels background waits owned by the Manager. It does not stop
// the server process; use StopServer for that.
func (m *Manager) Close() {
	m.cancel()
}

// setState validates and applies a transition, then publishes it.
func (m *Manager) setState(next State) bool {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()
	return m.applyLocked(m.State(), next)
}

// compareAndSetState applies next only if the current state is from.
// A mismatch is not an error; it means another path already moved on.
func (m *Manager) compareAndSetState(from, next State) bool {
	m.transitionMu.Lock()
	defer m.transitionMu.Unlock()
	if m.State() != from {
		return false
	}
	return m.applyLocked(from, next)
}

func (m *Manager) applyLocked(cur, next State) bool {
	if err := cur.CheckTransition(next); err != nil {
		m.log.Error().Err(err).Msg("Refusing server state change")
		return false
	}
	m.state.Store(int32(next))
	metrics.SetServerState(next.String())
	m.log.Debug().Str("from", cur.String()).Str("to", next.String()).Msg("Server state changed")
	m.states.Publish(next)
	return true
}

// waitUntil blocks until cond holds for the current state or ctx ends.
func (m *Manager) waitUntil(ctx context.Context, cond func(State) bool) (State, error) {
	changed := make(chan struct{}, 1)
	sub := m.states.Subscribe(func(State) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	defer sub.Close()

	for {
		if s := m.State(); cond(s) {
			return s, nil
		}
		select {
		case <-changed:
		case <-ctx.Done():
			return m.State(), ctx.Err()
		}
	}
}

func (m *Manager) handle() *processHandle {
	m.procMu.Lock()
	defer m.procMu.Unlock()
	return m.proc
}

// release drops the handle if it is still the current one and closes stdin.
func (m *Manager) release(h *processHandle) {
	m.procMu.Lock()
	if m.proc == h {
		m.proc = nil
	}
	m.procMu.Unlock()
	if h != nil {
		_ = h.stdin.Close()
	}
}

func (m *Manager) resetPlayers() {
	m.players.Store(0)
	metrics.SetPlayersOnline(0)
}

// forceKillWait bounds the wait for a killed process to be reaped.
const forceKillWait = 10 * time.Second
