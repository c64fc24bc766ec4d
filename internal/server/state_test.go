// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package server

import (
	"errors"
	"testing"
)

func TestState_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		state State
		want  string
	}{
		{StateCreated, "created"},
		{StateStarting, "starting"},
		{StateRunning, "running"},
		{StateStopping, "stopping"},
		{StateStopped, "stopped"},
		{StateFaulted, "faulted"},
		{State(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("State(%d).String() = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestState_Validate(t *testing.T) {
	t.Parallel()

	if err := StateRunning.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
	err := State(-1).Validate()
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("Validate() = %v, want ErrInvalidState", err)
	}
}

func TestState_CheckTransition(t *testing.T) {
	t.Parallel()

	allowed := map[[2]State]bool{
		{StateCreated, StateStarting}: true,
		{StateStopped, StateStarting}: true,
		{StateFaulted, StateStarting}: true,
		{StateStarting, StateRunning}: true,
		{StateStarting, StateFaulted}: true,
		{StateRunning, StateStopping}: true,
		{StateRunning, StateFaulted}:  true,
		{StateStopping, StateStopped}: true,
		{StateStopping, StateFaulted}: true,
	}
	all := []State{StateCreated, StateStarting, StateRunning, StateStopping, StateStopped, StateFaulted}

	for _, from := range all {
		for _, to := range all {
			err := from.CheckTransition(to)
			if allowed[[2]State{from, to}] {
				if err != nil {
					t.Errorf("%s -> %s: unexpected error %v", from, to, err)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s -> %s: error = %v, want ErrInvalidTransition", from, to, err)
			}
		}
	}
}
