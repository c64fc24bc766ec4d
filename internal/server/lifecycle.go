// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/tomtom215/bedrockd/internal/metrics"
)

// StartServer launches the server and blocks until it reports readiness,
// fails, or ctx ends. It returns true if the server is Running. Calling it
// while the server is Starting or Running logs a warning and returns true.
//
// If ctx ends first StartServer returns false, but the launch continues in
// the background.
func (m *Manager) StartServer(ctx context.Context) bool {
	return m.start(ctx, false)
}

func (m *Manager) start(ctx context.Context, auto bool) bool {
	m.lifecycleMu.Lock()

	if auto && m.stopRequested.Load() {
		m.lifecycleMu.Unlock()
		m.log.Debug().Msg("Skipping automatic restart, a stop was requested")
		return true
	}

	switch m.State() {
	case StateStarting, StateRunning:
		m.lifecycleMu.Unlock()
		m.log.Warn().Msg("Attempted to start server when it is already running.")
		return true
	case StateStopping:
		m.lifecycleMu.Unlock()
		m.log.Error().Msg("Cannot start the server while it is stopping.")
		return false
	}
	if !auto {
		m.stopRequested.Store(false)
	}

	// Subscribe before launching so the readiness transition cannot be missed.
	observed := make(chan State, 16)
	sub := m.states.Subscribe(func(s State) {
		select {
		case observed <- s:
		default:
		}
	})
	defer sub.Close()

	launched := m.launchLocked()
	m.lifecycleMu.Unlock()
	if !launched {
		return false
	}

	for {
		select {
		case s := <-observed:
			if s != StateStarting {
				return s == StateRunning
			}
		case <-ctx.Done():
			m.log.Warn().Err(ctx.Err()).Msg("Stopped waiting for the server to start")
			return false
		}
	}
}

// launchLocked performs Created/Stopped/Faulted -> Starting and spawns the
// process. Must be called with lifecycleMu held.
func (m *Manager) launchLocked() bool {
	if !m.setState(StateStarting) {
		return false
	}

	exe := m.cfg.ExecutablePath()

	if pid, found, err := m.finder.FindByExecutable(m.ctx, exe); err != nil {
		m.log.Warn().Err(err).Msg("Could not check for an existing server process")
	} else if found {
		m.log.Error().Int32("pid", pid).
			Msgf("A server process with ID %d was already found for this instance. The server manager cannot continue.", pid)
		m.setState(StateFaulted)
		return false
	}

	if _, err := os.Stat(exe); err != nil {
		m.log.Error().Err(err).Str("path", exe).
			Msgf("Could not find the %s executable in working directory %s.", m.cfg.Executable, m.cfg.WorkingDirectory)
		m.setState(StateFaulted)
		return false
	}

	//nolint:gosec // executable and arguments come from operator configuration
	cmd := exec.Command(exe, m.cfg.Args...)
	cmd.Dir = m.cfg.WorkingDirectory
	cmd.Env = append(os.Environ(), m.cfg.Env...)
	configureProcess(cmd)

	h, stdout, stderr, err := m.pipes(cmd)
	if err == nil {
		err = cmd.Start()
	}
	if err != nil {
		m.log.Error().Err(err).Msg("Failed to start the server.")
		m.setState(StateFaulted)
		return false
	}

	m.procMu.Lock()
	m.proc = h
	m.procMu.Unlock()
	m.resetPlayers()

	h.readers.Add(2)
	go m.readStdout(h, stdout)
	go m.readStderr(h, stderr)
	go m.watch(h)

	m.log.Info().Int("pid", cmd.Process.Pid).Str("executable", exe).Msg("Server process started")
	return true
}

func (m *Manager) pipes(cmd *exec.Cmd) (*processHandle, io.ReadCloser, io.ReadCloser, error) {
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, nil, nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, nil, nil, err
	}
	h := &processHandle{cmd: cmd, stdin: stdin, exited: make(chan struct{})}
	return h, stdout, stderr, nil
}

// watch reaps the process and treats an unrequested exit as a crash.
func (m *Manager) watch(h *processHandle) {
	h.readers.Wait()
	waitErr := h.cmd.Wait()
	close(h.exited)

	exitCode := -1
	if h.cmd.ProcessState != nil {
		exitCode = h.cmd.ProcessState.ExitCode()
	}

	// StopServer keeps lifecycleMu until it has released the handle, so a
	// stop that raced this exit is settled before the state is judged.
	m.lifecycleMu.Lock()
	if m.handle() != h {
		m.lifecycleMu.Unlock()
		return
	}
	if m.stopRequested.Load() {
		m.lifecycleMu.Unlock()
		// StopServer owns the rest of the teardown. An exit before readiness
		// still resolves Starting so StopServer does not wait for it.
		m.log.Debug().Int("exit_code", exitCode).Msg("Server process exited")
		m.compareAndSetState(StateStarting, StateFaulted)
		return
	}

	state := m.State()
	crashed := false
	if state == StateStarting || state == StateRunning {
		m.resetPlayers()
		m.release(h)
		crashed = m.compareAndSetState(state, StateFaulted)
	}
	m.lifecycleMu.Unlock()

	if !crashed {
		return
	}
	if state == StateStarting {
		m.log.Error().Err(waitErr).Int("exit_code", exitCode).Msg("Server exited before it finished starting.")
		return
	}
	m.log.Error().Err(waitErr).Int("exit_code", exitCode).Msg("Server exited unexpectedly, restarting.")
	metrics.RecordServerRestart()
	m.restart()
}

// restart brings a crashed server back, honouring the optional rate limit.
func (m *Manager) restart() {
	if m.restartLimiter != nil {
		if err := m.restartLimiter.Wait(m.ctx); err != nil {
			m.log.Warn().Err(err).Msg("Automatic restart abandoned")
			return
		}
	}
	if m.start(m.ctx, true) {
		return
	}
	m.log.Error().Msg("Failed to start the server.")
	select {
	case m.restartFailed <- struct{}{}:
	default:
	}
}

// StopServer stops the server gracefully, killing it if it has not exited
// within maxWait (zero waits indefinitely). It returns true if the server
// exited on its own or no server was running.
func (m *Manager) StopServer(maxWait time.Duration) bool {
	m.stopRequested.Store(true)

	ctx := context.Background()
	if maxWait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, maxWait)
		defer cancel()
	}

	if m.State() == StateStarting {
		_, _ = m.waitUntil(ctx, func(s State) bool { return s != StateStarting })
	}

	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	h := m.handle()
	if h == nil {
		m.resetPlayers()
		return true
	}

	graceful := false
	select {
	case <-h.exited:
		// The process exited on its own before the stop was sent.
		graceful = m.compareAndSetState(StateRunning, StateStopping)
	default:
		if m.compareAndSetState(StateRunning, StateStopping) {
			m.log.Info().Msg("Stopping server.")
			if err := h.write("stop"); err != nil {
				m.log.Error().Err(err).Msg("Error when sending stop to the server.")
			} else {
				select {
				case <-h.exited:
					graceful = true
				case <-ctx.Done():
				}
			}
		}
	}

	if !graceful {
		m.log.Warn().Msg("Failed to stop server gracefully, forcing exit.")
		if err := killProcessTree(h.cmd.Process); err != nil && !errors.Is(err, os.ErrProcessDone) {
			m.log.Error().Err(err).Msg("Failed to kill the server process")
		}
		select {
		case <-h.exited:
		case <-time.After(forceKillWait):
			m.log.Error().Msg("Server process did not exit after being killed")
		}
	}

	m.resetPlayers()
	m.release(h)

	if graceful {
		m.setState(StateStopped)
		m.log.Info().Msg("Server stopped.")
		return true
	}
	if !m.compareAndSetState(StateStopping, StateFaulted) {
		m.compareAndSetState(StateStarting, StateFaulted)
	}
	return false
}
