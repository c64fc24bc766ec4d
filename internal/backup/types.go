// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package backup

import (
	"errors"
	"time"
)

var (
	// ErrBackupInProgress is returned when a backup is requested while another one runs.
	ErrBackupInProgress = errors.New("a backup is already in progress")

	// ErrServerNotRunning is returned when the server is not Running after any pending start.
	ErrServerNotRunning = errors.New("server is not running")

	// ErrBackupCancelled is returned when a backup was cancelled before it completed.
	ErrBackupCancelled = errors.New("backup was cancelled")

	// ErrBackupNotFound is returned for unknown backup IDs.
	ErrBackupNotFound = errors.New("backup not found")
)

// BackupStatus represents the current state of a backup
type BackupStatus string

const (
	// StatusInProgress indicates the backup is currently running
	StatusInProgress BackupStatus = "in_progress"

	// StatusCompleted indicates the archive was written successfully
	StatusCompleted BackupStatus = "completed"

	// StatusFailed indicates the backup failed
	StatusFailed BackupStatus = "failed"

	// StatusCancelled indicates the backup was cancelled
	StatusCancelled BackupStatus = "cancelled"

	// StatusCorrupted indicates verification found a checksum mismatch
	StatusCorrupted BackupStatus = "corrupted"
)

// BackupTrigger indicates what initiated the backup
type BackupTrigger string

const (
	// TriggerManual is an operator request (signal or CLI).
	TriggerManual BackupTrigger = "manual"

	// TriggerScheduled is the periodic scheduler.
	TriggerScheduled BackupTrigger = "scheduled"

	// TriggerInitial is the first backup when the backup directory holds none.
	TriggerInitial BackupTrigger = "initial"

	// TriggerCatchUp is taken at startup when the newest backup is older than the interval.
	TriggerCatchUp BackupTrigger = "catch_up"
)

// Backup represents metadata about a backup
type Backup struct {
	ID      string        `json:"id"`
	Status  BackupStatus  `json:"status"`
	Trigger BackupTrigger `json:"trigger"`

	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
	Duration    time.Duration `json:"duration_ms"`

	// Path to the archive
	FilePath string `json:"file_path"`

	// Size of the archive in bytes
	FileSize int64 `json:"file_size"`

	// SHA-256 checksum of the archive
	Checksum string `json:"checksum"`

	// Version reported by the server at backup time, if known
	ServerVersion string `json:"server_version,omitempty"`

	// Supervisor version that wrote the backup
	AppVersion string `json:"app_version"`

	// Error message if the backup failed or was cancelled
	Error string `json:"error,omitempty"`

	// Files captured from the manifest
	Files []BackupFile `json:"files"`
}

// BackupFile is one world file inside an archive.
type BackupFile struct {
	// Path relative to the worlds directory, using forward slashes
	Path string `json:"path"`

	// Truncated length in bytes
	Size int64 `json:"size"`
}

// BackupListOptions provides filtering and pagination for backup listing
type BackupListOptions struct {
	Status  *BackupStatus  `json:"status,omitempty"`
	Trigger *BackupTrigger `json:"trigger,omitempty"`

	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`

	Limit  int `json:"limit"`
	Offset int `json:"offset"`

	// Newest first
	SortDesc bool `json:"sort_desc"`
}

// RetentionPolicy defines how completed backups are pruned
type RetentionPolicy struct {
	// Keep at least this many backups regardless of age
	MinCount int `json:"min_count"`

	// Maximum number of backups to keep (0 = unlimited)
	MaxCount int `json:"max_count"`

	// Maximum age of backups (0 = unlimited)
	MaxAge time.Duration `json:"max_age"`
}

// BackupStats contains statistics about the backup system
type BackupStats struct {
	TotalCount     int                   `json:"total_count"`
	CountByStatus  map[BackupStatus]int  `json:"count_by_status"`
	CountByTrigger map[BackupTrigger]int `json:"count_by_trigger"`

	// Total disk space used by backups
	TotalSizeBytes    int64 `json:"total_size_bytes"`
	AverageBackupSize int64 `json:"average_backup_size"`

	OldestBackup *time.Time `json:"oldest_backup,omitempty"`
	NewestBackup *time.Time `json:"newest_backup,omitempty"`

	// Average duration of completed backups
	AverageDuration time.Duration `json:"average_duration_ms"`

	// Success rate (percentage)
	SuccessRate float64 `json:"success_rate"`

	LastBackup          *Backup    `json:"last_backup,omitempty"`
	LastScheduled       *time.Time `json:"last_scheduled,omitempty"`
	NextScheduledBackup *time.Time `json:"next_scheduled_backup,omitempty"`

	RetentionPolicy RetentionPolicy `json:"retention_policy"`
}

// ValidationResult contains the result of backup verification
type ValidationResult struct {
	Valid  bool    `json:"valid"`
	Backup *Backup `json:"backup"`

	ChecksumValid    bool   `json:"checksum_valid"`
	ExpectedChecksum string `json:"expected_checksum"`
	ActualChecksum   string `json:"actual_checksum"`

	// Whether the archive could be opened and every entry read
	ArchiveReadable bool `json:"archive_readable"`

	// Whether every recorded file is present with its recorded size
	FilesComplete  bool     `json:"files_complete"`
	MissingFiles   []string `json:"missing_files,omitempty"`
	CorruptedFiles []string `json:"corrupted_files,omitempty"`

	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
