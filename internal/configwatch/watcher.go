// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package configwatch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"

	"github.com/tomtom215/bedrockd/internal/logging"
)

// DefaultDebounce coalesces the burst of events a single save produces.
const DefaultDebounce = 500 * time.Millisecond

const stopGrace = 100 * time.Millisecond

// Watcher watches the files of one directory and hands out one-shot change
// tokens. A token is closed on the first change to its file after the
// debounce window; changes with no token outstanding are dropped.
type Watcher struct {
	dir      string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	sctx     *stopper.Context

	mu     sync.Mutex
	tokens map[string]chan struct{}
	timers map[string]*time.Timer
}

// NewWatcher starts watching dir. Close releases the watch.
func NewWatcher(ctx context.Context, dir string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("configwatch: create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("configwatch: watch %s: %w", dir, err)
	}

	w := &Watcher{
		dir:      dir,
		debounce: debounce,
		fsw:      fsw,
		sctx:     stopper.WithContext(ctx),
		tokens:   make(map[string]chan struct{}),
		timers:   make(map[string]*time.Timer),
	}

	w.sctx.Defer(func() {
		_ = fsw.Close()
		w.mu.Lock()
		for _, t := range w.timers {
			t.Stop()
		}
		w.mu.Unlock()
	})
	w.sctx.Go(w.loop)

	logging.Debug().Str("path", dir).Msg("Watching configuration files")
	return w, nil
}

// Watch returns a channel that is closed on the next change to the file
// called name in the watched directory. Calls before that change share the
// same channel.
func (w *Watcher) Watch(name string) <-chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()

	if ch, ok := w.tokens[name]; ok {
		return ch
	}
	ch := make(chan struct{})
	w.tokens[name] = ch
	return ch
}

// Close stops the watcher and waits for its goroutine.
func (w *Watcher) Close() error {
	w.sctx.Stop(stopGrace)
	return w.sctx.Wait()
}

func (w *Watcher) loop(sctx *stopper.Context) error {
	for {
		select {
		case <-sctx.Stopping():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			// Attribute-only changes do not alter the content.
			if event.Op == fsnotify.Chmod {
				continue
			}
			w.touch(filepath.Base(event.Name))

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			logging.Warn().Err(err).Str("path", w.dir).Msg("Configuration watcher error")
		}
	}
}

// touch restarts the debounce timer for name.
func (w *Watcher) touch(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[name]; ok {
		t.Stop()
	}
	w.timers[name] = time.AfterFunc(w.debounce, func() { w.fire(name) })
}

func (w *Watcher) fire(name string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	delete(w.timers, name)
	if ch, ok := w.tokens[name]; ok {
		close(ch)
		delete(w.tokens, name)
	}
}
