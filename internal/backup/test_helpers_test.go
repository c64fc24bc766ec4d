// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package backup

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/bedrockd/internal/eventbus"
	"github.com/tomtom215/bedrockd/internal/server"
	"github.com/tomtom215/bedrockd/internal/serverlog"
)

const testLevel = "Bedrock level"

// fakeServer implements Server. Commands are recorded and handed to
// onCommand, which may publish console lines in reply.
type fakeServer struct {
	mu        sync.Mutex
	state     server.State
	commands  []string
	onCommand func(f *fakeServer, command string)

	logs   eventbus.Bus[string]
	states eventbus.Bus[server.State]
}

func newFakeServer(state server.State) *fakeServer {
	return &fakeServer{state: state}
}

func (f *fakeServer) State() server.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeServer) setState(s server.State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
	f.states.Publish(s)
}

func (f *fakeServer) SendCommand(command string) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	handler := f.onCommand
	f.mu.Unlock()

	if handler != nil {
		handler(f, command)
	}
}

func (f *fakeServer) SubscribeLogs(fn func(line string)) *eventbus.Subscription {
	return f.logs.Subscribe(fn)
}

func (f *fakeServer) SubscribeStates(fn func(server.State)) *eventbus.Subscription {
	return f.states.Subscribe(fn)
}

func (f *fakeServer) GetVersion() serverlog.Version {
	v, _ := serverlog.ParseVersion("1.21.44.01")
	return v
}

func (f *fakeServer) say(line string) {
	f.logs.Publish(line)
}

func (f *fakeServer) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.commands)
}

func (f *fakeServer) sent(command string) bool {
	return slices.Contains(f.Commands(), command)
}

// answerQueries replies to every "save query" with the given file list.
func answerQueries(manifestLine string) func(*fakeServer, string) {
	return func(f *fakeServer, command string) {
		if command == server.CommandSaveQuery {
			f.say("Data saved. Files are now ready to be copied.")
			f.say(manifestLine)
		}
	}
}

// testEnv holds a working directory with a world on disk
type testEnv struct {
	workDir string
	srv     *fakeServer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	workDir := t.TempDir()
	env := &testEnv{workDir: workDir, srv: newFakeServer(server.StateRunning)}

	env.writeWorldFile(t, "db/000005.ldb", "0123456789ABCDEF")
	env.writeWorldFile(t, "db/CURRENT", "MANIFEST-000002\n")
	env.writeWorldFile(t, "db/MANIFEST-000002", strings.Repeat("m", 40))
	env.writeWorldFile(t, "level.dat", strings.Repeat("L", 32))
	return env
}

func (e *testEnv) writeWorldFile(t *testing.T, rel, content string) {
	t.Helper()
	path := filepath.Join(e.workDir, "worlds", testLevel, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create world dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write world file: %v", err)
	}
}

func (e *testEnv) newTestConfig() *Config {
	cfg := DefaultConfig(e.workDir)
	cfg.PollInterval = 10 * time.Millisecond
	cfg.Interval = 0
	return cfg
}

func (e *testEnv) newTestManager(t *testing.T) *Manager {
	t.Helper()
	return e.newManagerWithConfig(t, e.newTestConfig())
}

func (e *testEnv) newManagerWithConfig(t *testing.T, cfg *Config) *Manager {
	t.Helper()
	m, err := NewManager(cfg, e.srv)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	return m
}

// standardManifest is the save query answer for the world newTestEnv writes.
// Lengths are shorter than the files on disk to exercise truncation.
func standardManifest() string {
	return testLevel + "/db/000005.ldb:10, " +
		testLevel + "/db/CURRENT:16, " +
		testLevel + "/db/MANIFEST-000002:20, " +
		testLevel + "/level.dat:32"
}

// readArchive returns the contents of every entry in a zip archive
func readArchive(t *testing.T, path string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	defer zr.Close()

	contents := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("failed to open entry %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("failed to read entry %s: %v", f.Name, err)
		}
		contents[f.Name] = string(data)
	}
	return contents
}

func zipFiles(t *testing.T, dir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.zip"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	return matches
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", msg)
}

func noLogger() *zerolog.Logger {
	l := zerolog.Nop()
	return &l
}
