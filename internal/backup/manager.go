// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

/*
manager.go - Core Backup Manager

This file contains the manager struct, the server dependency and the
metadata index.

Metadata Storage:
Backup metadata is stored in metadata.json alongside the archives:
  - every backup attempt that reached the server, with status and details
  - last and next scheduled backup times

The index is rewritten atomically (renameio) on every change, so a crash
mid-write leaves the previous index intact.

Thread Safety:
Metadata is protected by a sync.RWMutex. The single-flight guard is an
atomic flag, the in-flight job's cancel function has its own mutex, and the
drain gate lets StopWatching wait for an in-flight backup.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/renameio/v2"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/bedrockd/internal/eventbus"
	"github.com/tomtom215/bedrockd/internal/gate"
	"github.com/tomtom215/bedrockd/internal/logging"
	"github.com/tomtom215/bedrockd/internal/server"
	"github.com/tomtom215/bedrockd/internal/serverlog"
)

// AppVersion is set at build time
var AppVersion = "dev"

// Server is the part of the process supervisor the backup engine drives.
// *server.Manager implements it.
type Server interface {
	State() server.State
	SendCommand(command string)
	SubscribeLogs(fn func(line string)) *eventbus.Subscription
	SubscribeStates(fn func(server.State)) *eventbus.Subscription
	GetVersion() serverlog.Version
}

// Manager creates, schedules and indexes backups.
type Manager struct {
	cfg    *Config
	server Server

	// Metadata storage
	metadataFile string
	metadata     *MetadataStore
	metadataMu   sync.RWMutex

	// Single flight
	inProgress atomic.Bool
	jobMu      sync.Mutex
	cancelJob  context.CancelFunc
	drain      *gate.Gate

	// Scheduler
	breaker       *gobreaker.CircuitBreaker[*Backup]
	schedulerStop context.CancelFunc
	schedulerDone chan struct{}
	runningMu     sync.Mutex

	onBackupComplete func(backup *Backup)
}

// MetadataStore holds all backup metadata
type MetadataStore struct {
	Backups       []*Backup  `json:"backups"`
	LastScheduled *time.Time `json:"last_scheduled,omitempty"`
	NextScheduled *time.Time `json:"next_scheduled,omitempty"`
}

// NewManager creates a backup manager. srv may be nil for offline use
// (listing, verification and pruning from the CLI); CreateBackup then fails
// with ErrServerNotRunning.
func NewManager(cfg *Config, srv Server) (*Manager, error) {
	if cfg == nil {
		return nil, fmt.Errorf("backup configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backup configuration validation failed: %w", err)
	}
	if err := cfg.EnsureBackupDir(); err != nil {
		return nil, err
	}

	m := &Manager{
		cfg:          cfg,
		server:       srv,
		metadataFile: filepath.Join(cfg.BackupDir, "metadata.json"),
		drain:        gate.New(true),
	}
	m.breaker = newScheduleBreaker(cfg.Breaker)

	if err := m.loadMetadata(); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logging.Warn().Err(err).Str("path", m.metadataFile).Msg("Backup index unreadable, starting a new one")
		}
		m.metadata = &MetadataStore{Backups: make([]*Backup, 0)}
	}

	return m, nil
}

// SetOnBackupComplete sets a callback invoked after every finished backup attempt.
func (m *Manager) SetOnBackupComplete(fn func(backup *Backup)) {
	m.onBackupComplete = fn
}

// saveBackup saves a backup to the metadata store
func (m *Manager) saveBackup(backup *Backup) {
	// The index keeps its own copy; the caller goes on mutating backup.
	stored := *backup
	stored.Files = slices.Clone(backup.Files)

	m.metadataMu.Lock()
	defer m.metadataMu.Unlock()

	found := false
	for i, b := range m.metadata.Backups {
		if b.ID == backup.ID {
			m.metadata.Backups[i] = &stored
			found = true
			break
		}
	}
	if !found {
		m.metadata.Backups = append(m.metadata.Backups, &stored)
	}

	if err := m.saveMetadataLocked(); err != nil {
		logging.Warn().Err(err).Str("backup_id", backup.ID).Msg("Failed to write backup index")
	}
}

// loadMetadata loads backup metadata from disk
func (m *Manager) loadMetadata() error {
	m.metadataMu.Lock()
	defer m.metadataMu.Unlock()

	data, err := os.ReadFile(m.metadataFile)
	if err != nil {
		return err
	}

	var metadata MetadataStore
	if err := json.Unmarshal(data, &metadata); err != nil {
		return err
	}
	if metadata.Backups == nil {
		metadata.Backups = make([]*Backup, 0)
	}

	// An in-progress record on disk belongs to a process that died mid-backup.
	for _, b := range metadata.Backups {
		if b.Status == StatusInProgress {
			b.Status = StatusFailed
			b.Error = "interrupted"
		}
	}

	m.metadata = &metadata
	return nil
}

// saveMetadataLocked saves backup metadata to disk (must be called with lock held)
func (m *Manager) saveMetadataLocked() error {
	data, err := json.MarshalIndent(m.metadata, "", "  ")
	if err != nil {
		return err
	}
	return renameio.WriteFile(m.metadataFile, data, 0o600)
}
