// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package backup

import (
	"os"
	"time"
)

// GetStats returns backup statistics calculated from the index.
func (m *Manager) GetStats() (*BackupStats, error) {
	m.metadataMu.RLock()
	defer m.metadataMu.RUnlock()

	stats := &BackupStats{
		CountByStatus:   make(map[BackupStatus]int),
		CountByTrigger:  make(map[BackupTrigger]int),
		RetentionPolicy: m.cfg.Retention,
	}

	if m.metadata == nil {
		return stats, nil
	}
	stats.LastScheduled = m.metadata.LastScheduled
	stats.NextScheduledBackup = m.metadata.NextScheduled

	if len(m.metadata.Backups) > 0 {
		m.calculateBackupStats(stats)
	}
	return stats, nil
}

// calculateBackupStats calculates statistics from backup metadata
func (m *Manager) calculateBackupStats(stats *BackupStats) {
	var totalDuration time.Duration
	var successCount int

	for _, b := range m.metadata.Backups {
		stats.TotalCount++
		stats.CountByTrigger[b.Trigger]++
		stats.CountByStatus[b.Status]++
		stats.TotalSizeBytes += b.FileSize

		if b.Status == StatusCompleted {
			successCount++
			totalDuration += b.Duration
		}

		updateOldestNewest(stats, b)
	}

	if stats.TotalCount > 0 {
		stats.AverageBackupSize = stats.TotalSizeBytes / int64(stats.TotalCount)
		stats.SuccessRate = float64(successCount) / float64(stats.TotalCount) * 100
	}
	if successCount > 0 {
		stats.AverageDuration = totalDuration / time.Duration(successCount)
	}
}

// updateOldestNewest tracks the oldest and newest backups
func updateOldestNewest(stats *BackupStats, b *Backup) {
	if stats.OldestBackup == nil || b.CreatedAt.Before(*stats.OldestBackup) {
		created := b.CreatedAt
		stats.OldestBackup = &created
	}
	if stats.NewestBackup == nil || b.CreatedAt.After(*stats.NewestBackup) {
		created := b.CreatedAt
		stats.NewestBackup = &created
		stats.LastBackup = b
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
