// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package configwatch

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomtom215/bedrockd/internal/server"
)

// fakeSource hands out tokens the test fires by hand.
type fakeSource struct {
	mu     sync.Mutex
	tokens map[string]chan struct{}
	armed  map[string]int
}

func newFakeSource() *fakeSource {
	return &fakeSource{tokens: make(map[string]chan struct{}), armed: make(map[string]int)}
}

func (f *fakeSource) Watch(name string) <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.tokens[name]; ok {
		return ch
	}
	ch := make(chan struct{})
	f.tokens[name] = ch
	f.armed[name]++
	return ch
}

func (f *fakeSource) timesArmed(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.armed[name]
}

func (f *fakeSource) fire(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.tokens[name]; ok {
		close(ch)
		delete(f.tokens, name)
	}
}

type fakeServer struct {
	mu       sync.Mutex
	players  int
	calls    []string
	startsOK bool

	// When set, StopServer signals stopEntered and blocks until stopRelease is closed.
	stopEntered chan struct{}
	stopRelease chan struct{}
}

func (f *fakeServer) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeServer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeServer) GetPlayerCount() int { return f.players }
func (f *fakeServer) Say(message string) { f.record("say " + message) }
func (f *fakeServer) SendCommand(command string) { f.record(command) }

func (f *fakeServer) StopServer(time.Duration) bool {
	f.record("stop server")
	if f.stopEntered != nil {
		close(f.stopEntered)
		<-f.stopRelease
	}
	return true
}

func (f *fakeServer) StartServer(context.Context) bool {
	f.record("start server")
	return f.startsOK
}

func runReactor(t *testing.T, r *Reactor) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Error("reactor did not stop")
		}
	})
}

func TestChangeNames(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "whitelist.json", WhitelistChanged.FileName())
	assert.Equal(t, "permissions.json", PermissionsChanged.FileName())
	assert.Equal(t, "server.properties", PropertiesChanged.FileName())
	assert.Equal(t, "properties", PropertiesChanged.String())
	assert.Equal(t, "unknown", Change(0).String())
}

func TestReactorReloads(t *testing.T) {
	t.Parallel()
	src := newFakeSource()
	srv := &fakeServer{startsOK: true}
	r := NewReactor(src, srv, ReactorConfig{})

	var mu sync.Mutex
	var seen []Change
	r.Subscribe(func(c Change) {
		mu.Lock()
		seen = append(seen, c)
		mu.Unlock()
	})
	runReactor(t, r)

	require.Eventually(t, func() bool { return src.timesArmed("whitelist.json") == 1 }, time.Second, 5*time.Millisecond)
	src.fire("whitelist.json")
	require.Eventually(t, func() bool { return slices.Contains(srv.Calls(), server.CommandWhitelistReload) }, time.Second, 5*time.Millisecond)

	// The loop re-arms after handling.
	require.Eventually(t, func() bool { return src.timesArmed("whitelist.json") == 2 }, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return src.timesArmed("permissions.json") == 1 }, time.Second, 5*time.Millisecond)
	src.fire("permissions.json")
	require.Eventually(t, func() bool { return slices.Contains(srv.Calls(), server.CommandPermissionReload) }, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []Change{WhitelistChanged, PermissionsChanged}, seen)
}

// TestReactorPropertiesRestart covers a properties edit with players online:
// countdown, final broadcast, stop, start.
func TestReactorPropertiesRestart(t *testing.T) {
	t.Parallel()
	src := newFakeSource()
	srv := &fakeServer{players: 3, startsOK: true}
	r := NewReactor(src, srv, ReactorConfig{
		Checkpoints: []time.Duration{20 * time.Millisecond, 10 * time.Millisecond},
		StopTimeout: time.Second,
	})
	runReactor(t, r)

	require.Eventually(t, func() bool { return src.timesArmed("server.properties") == 1 }, time.Second, 5*time.Millisecond)
	src.fire("server.properties")

	require.Eventually(t, func() bool { return len(srv.Calls()) == 5 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{
		"say Server restart in 1 second.",
		"say Server restart in 1 second.",
		"say " + RestartingMessage,
		"stop server",
		"start server",
	}, srv.Calls())
}

func TestReactorPropertiesRestartNoPlayers(t *testing.T) {
	t.Parallel()
	src := newFakeSource()
	srv := &fakeServer{startsOK: false}
	r := NewReactor(src, srv, ReactorConfig{Checkpoints: []time.Duration{time.Hour}})
	runReactor(t, r)

	require.Eventually(t, func() bool { return src.timesArmed("server.properties") == 1 }, time.Second, 5*time.Millisecond)
	src.fire("server.properties")

	require.Eventually(t, func() bool { return len(srv.Calls()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"say " + RestartingMessage, "stop server", "start server"}, srv.Calls())

	// A failed start does not stop the loop.
	require.Eventually(t, func() bool { return src.timesArmed("server.properties") == 2 }, time.Second, 5*time.Millisecond)
}

func TestReactorSuspended(t *testing.T) {
	t.Parallel()
	src := newFakeSource()
	srv := &fakeServer{startsOK: true}
	r := NewReactor(src, srv, ReactorConfig{})

	published := make(chan Change, 1)
	r.Subscribe(func(c Change) { published <- c })
	r.Suspend()
	runReactor(t, r)

	require.Eventually(t, func() bool { return src.timesArmed("server.properties") == 1 }, time.Second, 5*time.Millisecond)
	src.fire("server.properties")

	select {
	case c := <-published:
		assert.Equal(t, PropertiesChanged, c)
	case <-time.After(time.Second):
		t.Fatal("change was not published")
	}
	require.Eventually(t, func() bool { return src.timesArmed("server.properties") == 2 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, srv.Calls())
}

// TestReactorSuspendedDuringStop covers a shutdown that begins while a
// restart is stopping the server: the server must not be started again.
func TestReactorSuspendedDuringStop(t *testing.T) {
	t.Parallel()
	src := newFakeSource()
	srv := &fakeServer{
		startsOK:    true,
		stopEntered: make(chan struct{}),
		stopRelease: make(chan struct{}),
	}
	r := NewReactor(src, srv, ReactorConfig{})
	runReactor(t, r)

	require.Eventually(t, func() bool { return src.timesArmed("server.properties") == 1 }, time.Second, 5*time.Millisecond)
	src.fire("server.properties")

	select {
	case <-srv.stopEntered:
	case <-time.After(time.Second):
		t.Fatal("restart did not stop the server")
	}
	r.Suspend()
	close(srv.stopRelease)

	require.Eventually(t, func() bool { return src.timesArmed("server.properties") == 2 }, time.Second, 5*time.Millisecond)
	assert.NotContains(t, srv.Calls(), "start server")
	assert.Equal(t, []string{"say " + RestartingMessage, "stop server"}, srv.Calls())
}
