// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

/*
manager_scheduler.go - Backup Scheduling

Startup:
  - No archive in the backup directory: take an initial backup immediately
  - Newest archive older than the interval: take a catch-up backup immediately
  - Otherwise wait a full interval

Loop:
  - Sleep the interval, back up, apply retention, record last/next times
  - Scheduled runs go through a circuit breaker; once it opens, runs are
    skipped until the cooldown has elapsed

Stopping the loop does not abort a running backup. StopWatching waits for
it on the drain gate; CancelBackup aborts it.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/bedrockd/internal/logging"
	"github.com/tomtom215/bedrockd/internal/metrics"
)

const scheduleBreakerName = "backup-schedule"

// newScheduleBreaker builds the breaker that guards scheduled backups.
// A zero threshold never trips.
func newScheduleBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker[*Backup] {
	return gobreaker.NewCircuitBreaker[*Backup](gobreaker.Settings{
		Name:        scheduleBreakerName,
		MaxRequests: 1,
		Timeout:     cfg.Cooldown,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if cfg.FailureThreshold == 0 {
				return false
			}
			shouldTrip := counts.ConsecutiveFailures >= cfg.FailureThreshold
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.ConsecutiveFailures).
					Dur("cooldown", cfg.Cooldown).
					Msg("Scheduled backups keep failing, pausing them")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state transition")
			metrics.RecordCircuitBreakerTransition(name, from.String(), to.String())
		},

		// A skipped or cancelled run says nothing about the server's health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrBackupInProgress) || errors.Is(err, ErrBackupCancelled)
		},
	})
}

// StartWatching starts the backup scheduler. It returns immediately; the
// loop runs until ctx ends or StopWatching is called.
func (m *Manager) StartWatching(ctx context.Context) error {
	m.runningMu.Lock()
	defer m.runningMu.Unlock()

	if m.schedulerStop != nil {
		return fmt.Errorf("backup scheduler already running")
	}
	if m.cfg.Interval == 0 {
		logging.Info().Msg("Scheduled backups are disabled")
		return nil
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.schedulerStop = cancel
	m.schedulerDone = done

	go m.runScheduler(loopCtx, done)

	logging.Info().Dur("interval", m.cfg.Interval).Msg("Backup scheduler started")
	return nil
}

// StopWatching stops the scheduler and waits for any in-flight backup to
// finish. ctx bounds the wait; the backup keeps running if it expires.
func (m *Manager) StopWatching(ctx context.Context) error {
	m.runningMu.Lock()
	stop, done := m.schedulerStop, m.schedulerDone
	m.schedulerStop, m.schedulerDone = nil, nil
	m.runningMu.Unlock()

	if stop != nil {
		stop()
		select {
		case <-done:
		case <-ctx.Done():
			return fmt.Errorf("waiting for backup scheduler: %w", ctx.Err())
		}
		logging.Info().Msg("Backup scheduler stopped")
	}

	select {
	case <-m.drained():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight backup: %w", ctx.Err())
	}
}

// runScheduler runs the backup scheduler loop
func (m *Manager) runScheduler(ctx context.Context, done chan struct{}) {
	defer close(done)

	if trigger, due := m.startupBackup(); due {
		m.runScheduled(ctx, trigger)
	}

	timer := time.NewTimer(m.scheduleNext())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			m.runScheduled(ctx, TriggerScheduled)
			timer.Reset(m.scheduleNext())
		}
	}
}

// startupBackup decides whether a backup is due before the first interval.
func (m *Manager) startupBackup() (BackupTrigger, bool) {
	newest, ok, err := newestArchive(m.cfg.BackupDir)
	if err != nil {
		logging.Warn().Err(err).Str("path", m.cfg.BackupDir).Msg("Failed to inspect backup directory")
		return "", false
	}
	if !ok {
		logging.Info().Msg("No backups found, taking an initial backup.")
		return TriggerInitial, true
	}
	if age := time.Since(newest); age > m.cfg.Interval {
		logging.Info().Dur("age", age).Msg("Last backup is older than the backup interval, taking a backup now.")
		return TriggerCatchUp, true
	}
	return "", false
}

// runScheduled takes one scheduled backup through the breaker. Stopping the
// loop detaches from the backup rather than cancelling it.
func (m *Manager) runScheduled(ctx context.Context, trigger BackupTrigger) {
	backupCtx := context.WithoutCancel(ctx)
	backup, err := m.breaker.Execute(func() (*Backup, error) {
		return m.CreateBackup(backupCtx, trigger)
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.RecordCircuitBreakerRequest(scheduleBreakerName, "rejected")
		logging.Warn().Err(err).Str("trigger", string(trigger)).Msg("Scheduled backup skipped")
		return
	case err != nil:
		metrics.RecordCircuitBreakerRequest(scheduleBreakerName, "failure")
		return
	}

	metrics.RecordCircuitBreakerRequest(scheduleBreakerName, "success")
	logging.Debug().Str("backup_id", backup.ID).Str("trigger", string(trigger)).Msg("Scheduled backup completed")

	if _, err := m.ApplyRetentionPolicy(ctx); err != nil {
		logging.Error().Err(err).Msg("Retention policy application failed")
	}

	now := time.Now()
	m.metadataMu.Lock()
	m.metadata.LastScheduled = &now
	if err := m.saveMetadataLocked(); err != nil {
		logging.Warn().Err(err).Msg("Failed to write backup index")
	}
	m.metadataMu.Unlock()
}

// scheduleNext records and returns the delay until the next scheduled backup.
func (m *Manager) scheduleNext() time.Duration {
	next := time.Now().Add(m.cfg.Interval)

	m.metadataMu.Lock()
	m.metadata.NextScheduled = &next
	if err := m.saveMetadataLocked(); err != nil {
		logging.Warn().Err(err).Msg("Failed to write backup index")
	}
	m.metadataMu.Unlock()

	return m.cfg.Interval
}

// newestArchive returns the modification time of the newest *.zip in dir.
func newestArchive(dir string) (time.Time, bool, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.zip"))
	if err != nil {
		return time.Time{}, false, err
	}

	var newest time.Time
	found := false
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if !found || info.ModTime().After(newest) {
			newest = info.ModTime()
			found = true
		}
	}
	return newest, found, nil
}
