// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package services

import (
	"context"
	"errors"
)

var (
	// ErrServerStartFailed is returned when the server could not be brought
	// to Running. Suture restarts the service with backoff.
	ErrServerStartFailed = errors.New("bedrock server failed to start")

	// ErrServerRestartFailed is returned when the manager's own crash
	// recovery gave up and left the server Faulted.
	ErrServerRestartFailed = errors.New("bedrock server could not be restarted after a crash")
)

// ProcessManager is the subset of *server.Manager the service needs.
type ProcessManager interface {
	StartServer(ctx context.Context) bool
	RestartFailures() <-chan struct{}
}

// ServerService keeps the Bedrock server process up under suture.
//
// The manager restarts a crashed server by itself. The service only steps in
// when that fails: it returns an error, suture backs off, and the next Serve
// starts the server again.
//
// Cancelling ctx does not stop the process. Stopping is the shutdown
// coordinator's job so players get their countdown and backups can drain.
type ServerService struct {
	manager ProcessManager
	halt    <-chan struct{}
	name    string
}

// NewServerService creates the service. Once halt is closed the service no
// longer starts the server; pass the shutdown coordinator's Stopping channel.
// A nil halt never fires.
func NewServerService(manager ProcessManager, halt <-chan struct{}) *ServerService {
	return &ServerService{
		manager: manager,
		halt:    halt,
		name:    "bedrock-server",
	}
}

// Serve implements suture.Service.
func (s *ServerService) Serve(ctx context.Context) error {
	if s.halting() {
		<-ctx.Done()
		return ctx.Err()
	}

	if !s.manager.StartServer(ctx) {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrServerStartFailed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.halt:
		<-ctx.Done()
		return ctx.Err()
	case <-s.manager.RestartFailures():
		if s.halting() {
			<-ctx.Done()
			return ctx.Err()
		}
		return ErrServerRestartFailed
	}
}

func (s *ServerService) halting() bool {
	select {
	case <-s.halt:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer for logging.
func (s *ServerService) String() string {
	return s.name
}
