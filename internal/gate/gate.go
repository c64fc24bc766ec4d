// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

// Package gate provides a re-arming wait signal.
package gate

import "sync"

// Gate is either open or blocked. The channel returned by Done is closed
// while the gate is open. Unlike a closed channel a Gate can be blocked again
// after it has been opened.
type Gate struct {
	mu sync.Mutex
	// ch is closed while the gate is open.
	ch   chan struct{}
	open bool
}

// New returns a gate in the given initial state.
func New(open bool) *Gate {
	g := &Gate{ch: make(chan struct{})}
	if open {
		g.open = true
		close(g.ch)
	}
	return g
}

// Block makes channels returned by later Done calls wait for Release.
func (g *Gate) Block() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open {
		g.ch = make(chan struct{})
		g.open = false
	}
}

// Release opens the gate and wakes every waiter.
func (g *Gate) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.open {
		close(g.ch)
		g.open = true
	}
}

// Done returns a channel that is closed when the gate is next open.
func (g *Gate) Done() <-chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ch
}
