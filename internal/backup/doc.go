// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

// Package backup creates consistent world backups of a running Bedrock server.
//
// # Overview
//
// The server can pause persistence ("save hold") while it keeps running, and
// report the exact length every world file had at that instant ("save query").
// The backup engine copies each reported file into a staging directory and
// truncates the copy to the reported length. The result is byte-identical to
// a snapshot taken at the hold instant even though the live files keep
// growing, and the server is only held for the duration of the copy.
//
// # Snapshot Protocol
//
//  1. Wait for the server to leave Starting; abort unless it is Running.
//  2. Reset the staging directory <backup_dir>/.staging.
//  3. Subscribe to console output and send "save hold".
//  4. Send "save query" every poll interval until a line containing
//     "/db/MANIFEST" arrives. Its "path:length" entries form the [Manifest].
//     If the server reports that a previous save has not completed, the
//     partial manifest is discarded and "save resume" + "save hold" are
//     reissued on the next tick.
//  5. Shadow copy each manifest entry from <working_dir>/worlds and truncate
//     it to the recorded length.
//  6. Zip the staging directory into "<backup_dir>/2006-01-02 15.04.05.zip".
//     The archive is written to a pending file and renamed into place, so a
//     failed or cancelled backup never leaves a partial archive behind.
//  7. Always: "save resume" (if a hold was sent), remove staging, clear the
//     single-flight guard and release the drain gate.
//
// # Single Flight
//
// Only one backup runs at a time. A concurrent [Manager.CreateBackup] logs
// "A backup is already in progress." and returns [ErrBackupInProgress]
// without touching the server or the filesystem.
//
// # Scheduling
//
// [Manager.StartWatching] takes an immediate backup when the backup directory
// holds no archive, or a catch-up backup when the newest archive is older than
// the interval, and then backs up once per interval. Scheduled runs go through
// a circuit breaker so a server that keeps failing backups is not hammered
// with save holds. [Manager.StopWatching] stops the loop and waits for an
// in-flight backup to finish.
//
// # Metadata
//
// Every attempt that reached the server is recorded in metadata.json next to
// the archives (status, trigger, file list, size, SHA-256, server version).
// The index is written atomically with renameio. Retention only ever removes
// completed backups.
package backup
