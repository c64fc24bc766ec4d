// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

/*
manager_archive.go - Shadow Copies and Archive Creation

Archive Structure:

	2026-01-02 03.04.05.zip
	├── Bedrock level/db/MANIFEST-000005
	├── Bedrock level/db/000012.ldb
	└── Bedrock level/level.dat

Entry names are the manifest paths, so an archive extracts directly into the
server's worlds directory.

Archive Creation Process:
 1. Copy each manifest file from the worlds directory into staging
 2. Truncate each copy to its manifest length
 3. Zip staging into a renameio pending file, hashing the bytes as they are written
 4. Atomically rename the pending file to the archive name
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/renameio/v2"

	"github.com/tomtom215/bedrockd/internal/logging"
)

// archiveTimeLayout names archives "2006-01-02 15.04.05.zip".
const archiveTimeLayout = "2006-01-02 15.04.05"

// archivePath returns the archive name for a backup started at t.
func (m *Manager) archivePath(t time.Time) string {
	return filepath.Join(m.cfg.BackupDir, t.Format(archiveTimeLayout)+".zip")
}

// resetDir removes dir and creates it empty.
func resetDir(dir string) error {
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o750)
}

// ctxReader stops a copy once its context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBackupCancelled, err)
	}
	return r.r.Read(p)
}

// shadowCopy copies every manifest file into staging, truncated to its
// recorded length.
func (m *Manager) shadowCopy(ctx context.Context, staging string, manifest Manifest) ([]BackupFile, error) {
	log := logging.Ctx(ctx)
	files := make([]BackupFile, 0, len(manifest))

	for _, path := range manifest.Paths() {
		if err := ctx.Err(); err != nil {
			log.Warn().Msg("Backup was cancelled.")
			return nil, fmt.Errorf("%w: %w", ErrBackupCancelled, err)
		}

		length := manifest[path]
		source := filepath.Join(m.cfg.WorldsDir(), filepath.FromSlash(path))
		target := filepath.Join(staging, filepath.FromSlash(path))

		log.Info().Str("file", path).Msgf("Creating shadow copy of %s.", path)
		if err := copyFile(ctx, source, target); err != nil {
			return nil, fmt.Errorf("shadow copy %s: %w", path, err)
		}

		log.Info().Str("file", path).Int64("length", length).Msgf("Truncating shadow copy to %d bytes.", length)
		if err := truncateCopy(target, length); err != nil {
			return nil, fmt.Errorf("truncate %s: %w", path, err)
		}

		files = append(files, BackupFile{Path: path, Size: length})
	}
	return files, nil
}

//nolint:gosec // G304: paths come from the manifest, validated against traversal
func copyFile(ctx context.Context, src, dst string) (err error) {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close() //nolint:errcheck // read-only

	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o640)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); err == nil {
			err = cerr
		}
	}()

	_, err = io.Copy(out, ctxReader{ctx: ctx, r: in})
	return err
}

// truncateCopy cuts a shadow copy to length. A copy shorter than length
// means the live file shrank after the hold, which cannot be repaired.
func truncateCopy(path string, length int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() < length {
		return fmt.Errorf("source is %d bytes, shorter than the recorded %d", info.Size(), length)
	}
	return os.Truncate(path, length)
}

// countingWriter counts bytes written through it.
type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}

// writeArchive zips the given files from staging into dest. It returns the
// archive size and SHA-256. Nothing is left at dest on error.
func writeArchive(ctx context.Context, staging, dest string, files []BackupFile) (size int64, checksum string, err error) {
	pending, err := renameio.NewPendingFile(dest,
		renameio.WithTempDir(filepath.Dir(dest)),
		renameio.WithPermissions(0o640))
	if err != nil {
		return 0, "", fmt.Errorf("failed to create archive: %w", err)
	}
	defer pending.Cleanup() //nolint:errcheck // no-op after a successful replace

	hasher := sha256.New()
	counter := &countingWriter{}
	zw := zip.NewWriter(io.MultiWriter(pending, hasher, counter))

	for _, f := range files {
		if err := addFileToArchive(ctx, zw, staging, f.Path); err != nil {
			return 0, "", err
		}
	}
	if err := zw.Close(); err != nil {
		return 0, "", fmt.Errorf("failed to finish archive: %w", err)
	}
	if err := pending.CloseAtomicallyReplace(); err != nil {
		return 0, "", fmt.Errorf("failed to publish archive: %w", err)
	}
	return counter.n, hex.EncodeToString(hasher.Sum(nil)), nil
}

// addFileToArchive adds one staged file under its manifest path
//
//nolint:gosec // G304: name is a validated manifest path under staging
func addFileToArchive(ctx context.Context, zw *zip.Writer, staging, name string) error {
	src := filepath.Join(staging, filepath.FromSlash(name))
	file, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer file.Close() //nolint:errcheck // read-only

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("failed to create zip header for %s: %w", name, err)
	}
	header.Name = filepath.ToSlash(name)
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("failed to write zip header for %s: %w", name, err)
	}
	if _, err := io.Copy(w, ctxReader{ctx: ctx, r: file}); err != nil {
		return fmt.Errorf("failed to copy %s to archive: %w", name, err)
	}
	return nil
}

// calculateFileChecksum calculates SHA-256 checksum of a file
//
//nolint:gosec // G304: filePath is from internal backup storage
func calculateFileChecksum(filePath string) (string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer file.Close() //nolint:errcheck // Best effort cleanup

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}
