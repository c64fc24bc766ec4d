// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package server

import (
	"errors"
	"fmt"
)

// State is the lifecycle state of the supervised server.
type State int32

const (
	// StateCreated is the state of a Manager that has never started a server.
	StateCreated State = iota
	// StateStarting means the process was launched but has not reported readiness.
	StateStarting
	// StateRunning means the server printed its startup marker and accepts commands.
	StateRunning
	// StateStopping means a graceful stop is in progress.
	StateStopping
	// StateStopped means the server exited after a requested stop.
	StateStopped
	// StateFaulted means the server failed to start, crashed, or had to be killed.
	StateFaulted
)

// ErrInvalidState is returned when a State value is not a defined lifecycle state.
var ErrInvalidState = errors.New("invalid state")

// ErrInvalidTransition is returned when a state change is not permitted.
var ErrInvalidTransition = errors.New("invalid state transition")

// InvalidStateError wraps ErrInvalidState for errors.Is compatibility.
type InvalidStateError struct {
	Value State
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("invalid state %d", e.Value)
}

// Unwrap returns the sentinel error.
func (e *InvalidStateError) Unwrap() error {
	return ErrInvalidState
}

// TransitionError describes a refused state change.
type TransitionError struct {
	From, To State
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid state transition %s -> %s", e.From, e.To)
}

// Unwrap returns the sentinel error.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// String returns the lower-case state name, also used as the metrics label.
func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFaulted:
		return "faulted"
	default:
		return "unknown"
	}
}

// Validate returns nil if s is a defined lifecycle state.
func (s State) Validate() error {
	switch s {
	case StateCreated, StateStarting, StateRunning, StateStopping, StateStopped, StateFaulted:
		return nil
	default:
		return &InvalidStateError{Value: s}
	}
}

// transitions lists every permitted state change.
var transitions = map[State][]State{
	StateCreated:  {StateStarting},
	StateStarting: {StateRunning, StateFaulted},
	StateRunning:  {StateStopping, StateFaulted},
	StateStopping: {StateStopped, StateFaulted},
	StateStopped:  {StateStarting},
	StateFaulted:  {StateStarting},
}

// CheckTransition returns a *TransitionError if s may not change to next.
func (s State) CheckTransition(next State) error {
	if err := next.Validate(); err != nil {
		return err
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return nil
		}
	}
	return &TransitionError{From: s, To: next}
}
