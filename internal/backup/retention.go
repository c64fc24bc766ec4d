// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package backup

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tomtom215/bedrockd/internal/logging"
	"github.com/tomtom215/bedrockd/internal/metrics"
)

// validateRetentionPolicy validates retention policy settings
func validateRetentionPolicy(p RetentionPolicy) error {
	if p.MinCount < 0 {
		return fmt.Errorf("retention min count must not be negative, got: %d", p.MinCount)
	}
	if p.MaxCount < 0 {
		return fmt.Errorf("retention max count must not be negative, got: %d", p.MaxCount)
	}
	if p.MaxCount > 0 && p.MaxCount < p.MinCount {
		return fmt.Errorf("retention max count (%d) must be at least min count (%d)", p.MaxCount, p.MinCount)
	}
	if p.MaxAge < 0 {
		return fmt.Errorf("retention max age must not be negative, got: %s", p.MaxAge)
	}
	return nil
}

// GetRetentionPolicy returns the configured retention policy.
func (m *Manager) GetRetentionPolicy() RetentionPolicy {
	return m.cfg.Retention
}

// getCompletedBackupsSorted returns completed backups sorted by creation time (newest first)
func (m *Manager) getCompletedBackupsSorted() []*Backup {
	var completedBackups []*Backup
	for _, b := range m.metadata.Backups {
		if b.Status == StatusCompleted {
			completedBackups = append(completedBackups, b)
		}
	}

	sort.Slice(completedBackups, func(i, j int) bool {
		return completedBackups[i].CreatedAt.After(completedBackups[j].CreatedAt)
	})

	return completedBackups
}

// collectBackupsToDelete applies the policy to completed backups, newest
// first. The newest MinCount are always kept; beyond that a backup goes if
// it is past MaxAge or past the first MaxCount.
func collectBackupsToDelete(newestFirst []*Backup, policy RetentionPolicy, now time.Time) []*Backup {
	var toDelete []*Backup
	for i, b := range newestFirst {
		if i < policy.MinCount {
			continue
		}
		tooMany := policy.MaxCount > 0 && i >= policy.MaxCount
		tooOld := policy.MaxAge > 0 && now.Sub(b.CreatedAt) > policy.MaxAge
		if tooMany || tooOld {
			toDelete = append(toDelete, b)
		}
	}
	return toDelete
}

// ApplyRetentionPolicy deletes completed backups the retention policy no
// longer keeps and returns how many were removed. Failed and cancelled
// attempts are never pruned here.
func (m *Manager) ApplyRetentionPolicy(ctx context.Context) (int, error) {
	m.metadataMu.Lock()
	defer m.metadataMu.Unlock()

	policy := m.cfg.Retention
	toDelete := collectBackupsToDelete(m.getCompletedBackupsSorted(), policy, time.Now())
	if len(toDelete) == 0 {
		return 0, nil
	}

	var deletedCount int
	var deletedSize int64
	var firstErr error
	for _, b := range toDelete {
		if err := ctx.Err(); err != nil {
			firstErr = err
			break
		}
		if err := m.deleteBackupLocked(b); err != nil {
			logging.Warn().Err(err).Str("backup_id", b.ID).Str("path", b.FilePath).Msg("Failed to prune backup")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		deletedCount++
		deletedSize += b.FileSize
	}

	if deletedCount > 0 {
		metrics.RecordBackupsPruned(deletedCount)
		logging.Info().Int("deleted_count", deletedCount).Int64("freed_bytes", deletedSize).Msg("Retention policy applied")
		if err := m.saveMetadataLocked(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to write backup index: %w", err)
		}
	}

	return deletedCount, firstErr
}
