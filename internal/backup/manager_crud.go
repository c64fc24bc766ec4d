// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

/*
manager_crud.go - Backup Creation, Listing and Deletion

Backup Creation Flow:
 1. Take the single-flight guard and block the drain gate
 2. Wait for the server to be Running
 3. Record the backup as in progress (uuid, trigger, server version)
 4. Hold, query and collect the manifest (snapshot.go)
 5. Shadow copy and truncate into staging, zip into the archive (manager_archive.go)
 6. Resume, remove staging, record the outcome, release guard and gate

Listing and Filtering:
  - Filter by status, trigger and date range
  - Pagination with offset and limit
  - Sortable by creation time (asc/desc)
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/bedrockd/internal/logging"
	"github.com/tomtom215/bedrockd/internal/metrics"
	"github.com/tomtom215/bedrockd/internal/server"
)

// CreateBackup takes a backup of the running server. It returns
// ErrBackupInProgress without side effects if another backup is running,
// ErrServerNotRunning if the server is not Running, and ErrBackupCancelled
// (wrapped) if ctx ends or CancelBackup is called first.
func (m *Manager) CreateBackup(ctx context.Context, trigger BackupTrigger) (*Backup, error) {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !m.claimJob(cancel) {
		logging.Warn().Str("trigger", string(trigger)).Msg("A backup is already in progress.")
		return nil, ErrBackupInProgress
	}
	defer m.releaseJob()

	if err := m.awaitRunning(jobCtx); err != nil {
		logging.Error().Err(err).Str("trigger", string(trigger)).Msg("Cannot back up the server.")
		metrics.RecordBackup(string(trigger), "skipped", 0, 0)
		return nil, err
	}

	startTime := time.Now()
	backup := m.initializeBackupRecord(trigger, startTime)
	jobCtx = logging.ContextWithCorrelationID(jobCtx, backup.ID[:8])
	log := logging.Ctx(jobCtx)

	log.Info().Str("trigger", string(trigger)).Msg("Starting backup.")
	m.saveBackup(backup)

	err := m.snapshot(jobCtx, backup)
	m.finishBackup(jobCtx, backup, startTime, err)
	if err != nil {
		return backup, err
	}
	log.Info().Str("path", backup.FilePath).Int64("size", backup.FileSize).
		Msgf("Backup completed: %s.", backup.FilePath)
	return backup, nil
}

// snapshot runs the hold/query/copy/package steps. Resume and staging
// removal run on every path.
func (m *Manager) snapshot(ctx context.Context, backup *Backup) error {
	log := logging.Ctx(ctx)
	staging := m.cfg.StagingDir()

	if err := resetDir(staging); err != nil {
		return fmt.Errorf("failed to prepare staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(staging); err != nil {
			log.Warn().Err(err).Str("path", staging).Msg("Failed to remove staging directory")
		}
	}()

	held := false
	defer func() {
		if held {
			m.server.SendCommand(server.CommandSaveResume)
		}
	}()

	manifest, err := m.collectManifest(ctx, &held)
	if err != nil {
		return err
	}
	if err := manifest.Validate(); err != nil {
		return err
	}
	log.Info().Int("files", len(manifest)).Msg("Save query returned the file list")

	files, err := m.shadowCopy(ctx, staging, manifest)
	if err != nil {
		return err
	}
	backup.Files = files

	size, checksum, err := writeArchive(ctx, staging, backup.FilePath, files)
	if err != nil {
		return err
	}
	backup.FileSize = size
	backup.Checksum = checksum
	return nil
}

// initializeBackupRecord creates a new backup record with initial values
func (m *Manager) initializeBackupRecord(trigger BackupTrigger, startTime time.Time) *Backup {
	backup := &Backup{
		ID:         uuid.New().String(),
		Status:     StatusInProgress,
		Trigger:    trigger,
		CreatedAt:  startTime,
		AppVersion: AppVersion,
		Files:      make([]BackupFile, 0),
	}
	if v := m.server.GetVersion(); !v.IsZero() {
		backup.ServerVersion = v.String()
	}

	backup.FilePath = m.archivePath(startTime)
	if fileExists(backup.FilePath) {
		backup.FilePath = strings.TrimSuffix(backup.FilePath, ".zip") + " " + backup.ID[:8] + ".zip"
	}
	return backup
}

// finishBackup records the outcome of a backup attempt.
func (m *Manager) finishBackup(ctx context.Context, backup *Backup, startTime time.Time, err error) {
	completedAt := time.Now()
	backup.CompletedAt = &completedAt
	backup.Duration = time.Since(startTime)

	switch {
	case err == nil:
		backup.Status = StatusCompleted
	case errors.Is(err, ErrBackupCancelled) || errors.Is(err, context.Canceled):
		backup.Status = StatusCancelled
		backup.Error = err.Error()
	default:
		backup.Status = StatusFailed
		backup.Error = err.Error()
		logging.Ctx(ctx).Error().Err(err).Msg("The backup failed.")
	}

	m.saveBackup(backup)
	metrics.RecordBackup(string(backup.Trigger), string(backup.Status), backup.Duration, backup.FileSize)

	if m.onBackupComplete != nil {
		m.onBackupComplete(backup)
	}
}

// claimJob takes the single-flight guard. The guard, the drain gate and the
// cancel func change together under jobMu, so CancelBackup and StopWatching
// never observe a half-started job.
func (m *Manager) claimJob(cancel context.CancelFunc) bool {
	m.jobMu.Lock()
	defer m.jobMu.Unlock()
	if !m.inProgress.CompareAndSwap(false, true) {
		return false
	}
	m.drain.Block()
	m.cancelJob = cancel
	return true
}

// releaseJob undoes claimJob.
func (m *Manager) releaseJob() {
	m.jobMu.Lock()
	defer m.jobMu.Unlock()
	m.cancelJob = nil
	m.inProgress.Store(false)
	m.drain.Release()
}

// drained returns a channel closed once no backup holds the guard.
func (m *Manager) drained() <-chan struct{} {
	m.jobMu.Lock()
	defer m.jobMu.Unlock()
	return m.drain.Done()
}

// CancelBackup cancels the in-flight backup, if any. Cancellation is
// cooperative; cleanup still runs before CreateBackup returns.
func (m *Manager) CancelBackup() {
	m.jobMu.Lock()
	defer m.jobMu.Unlock()
	if m.cancelJob != nil {
		logging.Info().Msg("Cancelling backup.")
		m.cancelJob()
	}
}

// InProgress reports whether a backup is running.
func (m *Manager) InProgress() bool {
	return m.inProgress.Load()
}

// ListBackups returns a list of backups with optional filtering
func (m *Manager) ListBackups(opts BackupListOptions) ([]*Backup, error) {
	m.metadataMu.RLock()
	defer m.metadataMu.RUnlock()

	if m.metadata == nil {
		return []*Backup{}, nil
	}

	filtered := m.filterBackups(opts)

	sort.Slice(filtered, func(i, j int) bool {
		if opts.SortDesc {
			return filtered[i].CreatedAt.After(filtered[j].CreatedAt)
		}
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})

	return applyPagination(filtered, opts), nil
}

// filterBackups filters backups based on the provided options
func (m *Manager) filterBackups(opts BackupListOptions) []*Backup {
	filtered := make([]*Backup, 0, len(m.metadata.Backups))
	for _, b := range m.metadata.Backups {
		if matchesFilter(b, opts) {
			filtered = append(filtered, b)
		}
	}
	return filtered
}

func matchesFilter(b *Backup, opts BackupListOptions) bool {
	if opts.Status != nil && b.Status != *opts.Status {
		return false
	}
	if opts.Trigger != nil && b.Trigger != *opts.Trigger {
		return false
	}
	if opts.StartDate != nil && b.CreatedAt.Before(*opts.StartDate) {
		return false
	}
	if opts.EndDate != nil && b.CreatedAt.After(*opts.EndDate) {
		return false
	}
	return true
}

func applyPagination(filtered []*Backup, opts BackupListOptions) []*Backup {
	if opts.Offset >= len(filtered) && opts.Offset > 0 {
		return []*Backup{}
	}
	if opts.Offset > 0 {
		filtered = filtered[opts.Offset:]
	}
	if opts.Limit > 0 && opts.Limit < len(filtered) {
		filtered = filtered[:opts.Limit]
	}
	return filtered
}

// GetBackup returns a specific backup by ID. A unique ID prefix is accepted.
func (m *Manager) GetBackup(backupID string) (*Backup, error) {
	m.metadataMu.RLock()
	defer m.metadataMu.RUnlock()

	backup, _, err := m.findBackupLocked(backupID)
	return backup, err
}

// DeleteBackup deletes a backup's archive and its index entry
func (m *Manager) DeleteBackup(backupID string) error {
	m.metadataMu.Lock()
	defer m.metadataMu.Unlock()

	backup, _, err := m.findBackupLocked(backupID)
	if err != nil {
		return err
	}
	if backup.Status == StatusInProgress {
		return fmt.Errorf("backup %s is in progress", backup.ID)
	}
	if err := m.deleteBackupLocked(backup); err != nil {
		return err
	}
	return m.saveMetadataLocked()
}

// findBackupLocked finds a backup by ID or unique ID prefix (must be called with lock held)
func (m *Manager) findBackupLocked(backupID string) (*Backup, int, error) {
	match, idx := (*Backup)(nil), -1
	for i, b := range m.metadata.Backups {
		if b.ID == backupID {
			return b, i, nil
		}
		if backupID != "" && strings.HasPrefix(b.ID, backupID) {
			if match != nil {
				return nil, -1, fmt.Errorf("backup ID prefix %q is ambiguous", backupID)
			}
			match, idx = b, i
		}
	}
	if match == nil {
		return nil, -1, fmt.Errorf("%w: %s", ErrBackupNotFound, backupID)
	}
	return match, idx, nil
}

// deleteBackupLocked removes the archive and the index entry (must be called with lock held)
func (m *Manager) deleteBackupLocked(backup *Backup) error {
	if fileExists(backup.FilePath) {
		if err := os.Remove(backup.FilePath); err != nil {
			return fmt.Errorf("failed to delete backup file: %w", err)
		}
	}
	for i, b := range m.metadata.Backups {
		if b.ID == backup.ID {
			m.metadata.Backups = append(m.metadata.Backups[:i], m.metadata.Backups[i+1:]...)
			break
		}
	}
	return nil
}
