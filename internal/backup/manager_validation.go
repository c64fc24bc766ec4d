// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

/*
manager_validation.go - Backup Verification

Verification Steps:
 1. File Existence: the archive is still on disk
 2. Checksum Verification: stored SHA-256 matches the archive
 3. Archive Readability: every zip entry decompresses (CRC checked by archive/zip)
 4. Contents: every recorded world file is present with its recorded length

Errors are collected in the result rather than returned, so a partially
damaged archive still reports everything that was checked. A completed
backup that fails verification is marked corrupted in the index.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"archive/zip"
	"fmt"
	"io"

	"github.com/tomtom215/bedrockd/internal/logging"
)

// VerifyBackup checks a backup archive against its index entry.
func (m *Manager) VerifyBackup(backupID string) (*ValidationResult, error) {
	backup, err := m.GetBackup(backupID)
	if err != nil {
		return nil, err
	}
	if backup.Status != StatusCompleted && backup.Status != StatusCorrupted {
		return nil, fmt.Errorf("backup %s has status %s and has no archive to verify", backup.ID, backup.Status)
	}

	result := &ValidationResult{
		Backup:           backup,
		ExpectedChecksum: backup.Checksum,
	}

	if !fileExists(backup.FilePath) {
		result.Errors = append(result.Errors, "backup file not found: "+backup.FilePath)
		m.markCorrupted(backup, result)
		return result, nil
	}

	validateChecksum(backup, result)
	entries := validateArchiveReadable(backup.FilePath, result)
	if result.ArchiveReadable {
		validateContents(backup, entries, result)
	}

	result.Valid = result.ChecksumValid && result.ArchiveReadable && result.FilesComplete
	if !result.Valid {
		m.markCorrupted(backup, result)
	}
	return result, nil
}

// validateChecksum compares the stored checksum with the archive on disk
func validateChecksum(backup *Backup, result *ValidationResult) {
	actual, err := calculateFileChecksum(backup.FilePath)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to calculate checksum: %v", err))
		return
	}
	result.ActualChecksum = actual

	if backup.Checksum == "" {
		result.Warnings = append(result.Warnings, "no checksum recorded for backup")
		result.ChecksumValid = true
		return
	}
	result.ChecksumValid = actual == backup.Checksum
	if !result.ChecksumValid {
		result.Errors = append(result.Errors, "checksum mismatch")
	}
}

// validateArchiveReadable reads every entry to EOF and returns the
// uncompressed size of each.
func validateArchiveReadable(archivePath string, result *ValidationResult) map[string]int64 {
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("archive not readable: %v", err))
		return nil
	}
	defer zr.Close() //nolint:errcheck // read-only

	entries := make(map[string]int64, len(zr.File))
	result.ArchiveReadable = true
	for _, f := range zr.File {
		n, err := readEntry(f)
		if err != nil {
			result.ArchiveReadable = false
			result.CorruptedFiles = append(result.CorruptedFiles, f.Name)
			result.Errors = append(result.Errors, fmt.Sprintf("failed to read %s: %v", f.Name, err))
			continue
		}
		entries[f.Name] = n
	}
	return entries
}

func readEntry(f *zip.File) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, err
	}
	defer rc.Close() //nolint:errcheck // read-only
	return io.Copy(io.Discard, rc)
}

// validateContents checks the recorded file list against the archive entries
func validateContents(backup *Backup, entries map[string]int64, result *ValidationResult) {
	result.FilesComplete = true
	for _, f := range backup.Files {
		size, ok := entries[f.Path]
		if !ok {
			result.FilesComplete = false
			result.MissingFiles = append(result.MissingFiles, f.Path)
			continue
		}
		if size != f.Size {
			result.FilesComplete = false
			result.CorruptedFiles = append(result.CorruptedFiles, f.Path)
			result.Errors = append(result.Errors,
				fmt.Sprintf("%s is %d bytes, expected %d", f.Path, size, f.Size))
		}
	}
	if len(result.MissingFiles) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("%d files missing from archive", len(result.MissingFiles)))
	}
}

// markCorrupted flags a backup that failed verification in the index.
func (m *Manager) markCorrupted(backup *Backup, result *ValidationResult) {
	logging.Warn().Str("backup_id", backup.ID).Strs("errors", result.Errors).Msg("Backup failed verification")
	if backup.Status == StatusCorrupted {
		return
	}
	updated := *backup
	updated.Status = StatusCorrupted
	m.saveBackup(&updated)
	result.Backup = &updated
}
