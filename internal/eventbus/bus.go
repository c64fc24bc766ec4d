// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

// Package eventbus provides a typed publish/subscribe registry.
//
// One Bus exists per payload type (console lines, server states, configuration
// changes). Publish delivers to a snapshot of the subscribers registered when
// it was called, synchronously and in registration order. Subscribers added
// during a publish do not see the event in flight, and a subscriber whose
// Subscription has been closed is never invoked again once Close returns.
package eventbus

import "sync"

// Bus is a registry of handlers for values of type T. The zero value is ready to use.
type Bus[T any] struct {
	mu   sync.Mutex
	subs []*entry[T]
}

type entry[T any] struct {
	fn func(T)

	// mu is held for the duration of each delivery so that Close can wait
	// out a delivery that raced it.
	mu     sync.Mutex
	closed bool
}

func (e *entry[T]) deliver(v T) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.fn(v)
}

// Subscribe registers fn and returns the Subscription that removes it.
func (b *Bus[T]) Subscribe(fn func(T)) *Subscription {
	e := &entry[T]{fn: fn}

	b.mu.Lock()
	b.subs = append(b.subs, e)
	b.mu.Unlock()

	return &Subscription{cancel: func() {
		b.remove(e)
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
	}}
}

func (b *Bus[T]) remove(e *entry[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s == e {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}

// Publish delivers v to every current subscriber before returning.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	snapshot := make([]*entry[T], len(b.subs))
	copy(snapshot, b.subs)
	b.mu.Unlock()

	for _, e := range snapshot {
		e.deliver(v)
	}
}

// Len returns the number of registered subscribers.
func (b *Bus[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Close removes the subscriber. It blocks until a delivery in progress to
// this subscriber has returned, so it must not be called from inside the
// subscriber's own handler. Close is idempotent and safe on a nil Subscription.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}
