// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/tomtom215/bedrockd/internal/logging"
)

// TextfileExporter periodically writes the registry to a file for the
// node_exporter textfile collector.
type TextfileExporter struct {
	path     string
	interval time.Duration
	gatherer prometheus.Gatherer
	started  time.Time
}

// NewTextfileExporter creates an exporter for the default registry.
func NewTextfileExporter(path string, interval time.Duration) *TextfileExporter {
	return &TextfileExporter{
		path:     path,
		interval: interval,
		gatherer: prometheus.DefaultGatherer,
		started:  time.Now(),
	}
}

// WithGatherer replaces the registry to export. Intended for tests.
func (e *TextfileExporter) WithGatherer(g prometheus.Gatherer) *TextfileExporter {
	e.gatherer = g
	return e
}

// WriteOnce writes the current metrics. prometheus.WriteToTextfile renames a
// temporary file into place, so readers never see a partial file.
func (e *TextfileExporter) WriteOnce() error {
	AppUptime.Set(time.Since(e.started).Seconds())
	if err := os.MkdirAll(filepath.Dir(e.path), 0o750); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(e.path, e.gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Run writes metrics every interval until ctx is done, then writes a final snapshot.
func (e *TextfileExporter) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		if err := e.WriteOnce(); err != nil {
			logging.Warn().Err(err).Str("path", e.path).Msg("Failed to export metrics")
		}

		select {
		case <-ctx.Done():
			if err := e.WriteOnce(); err != nil {
				logging.Warn().Err(err).Str("path", e.path).Msg("Failed to export final metrics")
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// String implements fmt.Stringer for supervisor logging.
func (e *TextfileExporter) String() string {
	return "metrics-textfile"
}
