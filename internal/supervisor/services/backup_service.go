// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/bedrockd/internal/logging"
)

// BackupScheduler matches the scheduling lifecycle of *backup.Manager.
type BackupScheduler interface {
	StartWatching(ctx context.Context) error
	StopWatching(ctx context.Context) error
}

// RunningWaiter blocks until the server is Running. *server.Manager
// implements it.
type RunningWaiter interface {
	WaitForRunning(ctx context.Context) error
}

// BackupSchedulerService runs the backup scheduler once the server is up.
//
// The startup backup (initial or catch-up) needs a running server, so the
// scheduler is not started until the first Running state. After that the
// scheduler copes with the server going away on its own.
type BackupSchedulerService struct {
	scheduler   BackupScheduler
	server      RunningWaiter
	stopTimeout time.Duration
	name        string
}

// NewBackupSchedulerService creates the service. stopTimeout bounds the wait
// for an in-flight backup when the service is stopped.
func NewBackupSchedulerService(scheduler BackupScheduler, server RunningWaiter, stopTimeout time.Duration) *BackupSchedulerService {
	return &BackupSchedulerService{
		scheduler:   scheduler,
		server:      server,
		stopTimeout: stopTimeout,
		name:        "backup-scheduler",
	}
}

// Serve implements suture.Service.
func (s *BackupSchedulerService) Serve(ctx context.Context) error {
	if err := s.server.WaitForRunning(ctx); err != nil {
		return err
	}

	if err := s.scheduler.StartWatching(ctx); err != nil {
		return fmt.Errorf("backup scheduler start failed: %w", err)
	}

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()
	if err := s.scheduler.StopWatching(stopCtx); err != nil {
		logging.Warn().Err(err).Msg("Backup scheduler did not stop cleanly")
	}

	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (s *BackupSchedulerService) String() string {
	return s.name
}
