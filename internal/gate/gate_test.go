// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package gate

import (
	"testing"
	"time"
)

// opened reports whether g's Done channel closes within d.
func opened(g *Gate, d time.Duration) bool {
	done := g.Done()
	select {
	case <-done:
		return true
	default:
	}
	select {
	case <-done:
		return true
	case <-time.After(d):
		return false
	}
}

func TestOpenGateDoesNotBlock(t *testing.T) {
	t.Parallel()

	g := New(true)
	if !opened(g, 0) {
		t.Fatal("expected an open gate to be done immediately")
	}
}

func TestBlockedGateWaitsForRelease(t *testing.T) {
	t.Parallel()

	g := New(true)
	g.Block()
	done := g.Done()

	select {
	case <-done:
		t.Fatal("Done closed while the gate was blocked")
	case <-time.After(20 * time.Millisecond):
	}

	g.Release()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Done did not close after Release")
	}
}

func TestGateRearms(t *testing.T) {
	t.Parallel()

	g := New(false)
	g.Release()
	g.Release()
	g.Block()
	g.Block()

	if opened(g, 10*time.Millisecond) {
		t.Fatal("expected gate to be blocked again")
	}

	g.Release()
	if !opened(g, time.Second) {
		t.Fatal("expected gate to open after re-release")
	}
}
