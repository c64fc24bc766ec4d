// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/bedrockd/internal/server"
)

// TestDefaultConfig tests the default backup configuration values
func TestDefaultConfig(t *testing.T) {
	t.Parallel()
	cfg := DefaultConfig("/srv/bedrock")

	if cfg.BackupDir != filepath.Join("/srv/bedrock", "Backups") {
		t.Errorf("expected BackupDir under working directory, got %s", cfg.BackupDir)
	}
	if cfg.Interval != 30*time.Minute {
		t.Errorf("expected Interval=30m, got %s", cfg.Interval)
	}
	if cfg.PollInterval != 1500*time.Millisecond {
		t.Errorf("expected PollInterval=1.5s, got %s", cfg.PollInterval)
	}
	if cfg.Retention.MinCount != 3 {
		t.Errorf("expected MinCount=3, got %d", cfg.Retention.MinCount)
	}
	if cfg.WorldsDir() != filepath.Join("/srv/bedrock", "worlds") {
		t.Errorf("unexpected worlds dir %s", cfg.WorldsDir())
	}
}

// TestConfigValidation tests configuration validation
func TestConfigValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"scheduling disabled", func(c *Config) { c.Interval = 0 }, false},
		{"missing working directory", func(c *Config) { c.WorkingDirectory = "" }, true},
		{"missing backup directory", func(c *Config) { c.BackupDir = "" }, true},
		{"zero poll interval", func(c *Config) { c.PollInterval = 0 }, true},
		{"negative interval", func(c *Config) { c.Interval = -time.Minute }, true},
		{"negative min count", func(c *Config) { c.Retention.MinCount = -1 }, true},
		{"max below min", func(c *Config) { c.Retention = RetentionPolicy{MinCount: 5, MaxCount: 2} }, true},
		{"negative max age", func(c *Config) { c.Retention.MaxAge = -time.Hour }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := DefaultConfig("/srv/bedrock")
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseManifestLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		line        string
		want        Manifest
		wantSkipped int
	}{
		{
			name: "plain list",
			line: "Bedrock level/db/000005.ldb:10, Bedrock level/db/MANIFEST-000002:20",
			want: Manifest{"Bedrock level/db/000005.ldb": 10, "Bedrock level/db/MANIFEST-000002": 20},
		},
		{
			name:        "leading marker without length",
			line:        "/db/MANIFEST, worlds/db/000001.ldb:128, worlds/db/MANIFEST-1:64",
			want:        Manifest{"worlds/db/000001.ldb": 128, "worlds/db/MANIFEST-1": 64},
			wantSkipped: 1,
		},
		{
			name: "console prefix is stripped",
			line: "[2026-10-17 12:00:00:000 INFO] w/db/MANIFEST-1:7",
			want: Manifest{"w/db/MANIFEST-1": 7},
		},
		{
			name:        "bad lengths are skipped",
			line:        "w/a:x, w/b:-1, w/db/MANIFEST-1:3",
			want:        Manifest{"w/db/MANIFEST-1": 3},
			wantSkipped: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, skipped := ParseManifestLine(tt.line)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for path, length := range tt.want {
				if got[path] != length {
					t.Errorf("%s: got length %d, want %d", path, got[path], length)
				}
			}
			if len(skipped) != tt.wantSkipped {
				t.Errorf("expected %d skipped entries, got %v", tt.wantSkipped, skipped)
			}
		})
	}
}

func TestManifestMergeReplaces(t *testing.T) {
	t.Parallel()
	m := Manifest{"w/a": 1}
	nop := noLogger()
	m.Merge(Manifest{"w/a": 5, "w/b": 2}, nop)

	if m["w/a"] != 5 || m["w/b"] != 2 {
		t.Errorf("unexpected merge result %v", m)
	}
	if paths := m.Paths(); len(paths) != 2 || paths[0] != "w/a" {
		t.Errorf("unexpected paths %v", paths)
	}
}

func TestManifestValidate(t *testing.T) {
	t.Parallel()
	if err := (Manifest{"level/db/CURRENT": 1}).Validate(); err != nil {
		t.Errorf("expected local path to be valid: %v", err)
	}
	for _, p := range []string{"../escape", "/etc/passwd", "level/../../x"} {
		if err := (Manifest{p: 1}).Validate(); err == nil {
			t.Errorf("expected %q to be rejected", p)
		}
	}
}

// TestCreateBackup covers the full hold, query, copy, package, resume cycle.
func TestCreateBackup(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.srv.onCommand = answerQueries(standardManifest())
	m := env.newTestManager(t)

	backup, err := m.CreateBackup(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	if backup.Status != StatusCompleted {
		t.Errorf("expected status completed, got %s", backup.Status)
	}
	if backup.ServerVersion != "1.21.44.01" {
		t.Errorf("expected server version recorded, got %q", backup.ServerVersion)
	}
	if backup.Checksum == "" || backup.FileSize == 0 {
		t.Error("expected checksum and size to be recorded")
	}
	if len(backup.Files) != 4 {
		t.Errorf("expected 4 files, got %d", len(backup.Files))
	}

	contents := readArchive(t, backup.FilePath)
	want := map[string]string{
		testLevel + "/db/000005.ldb":      "0123456789",
		testLevel + "/db/CURRENT":         "MANIFEST-000002\n",
		testLevel + "/db/MANIFEST-000002": strings.Repeat("m", 20),
		testLevel + "/level.dat":          strings.Repeat("L", 32),
	}
	for name, content := range want {
		if contents[name] != content {
			t.Errorf("%s: got %q, want %q", name, contents[name], content)
		}
	}

	commands := env.srv.Commands()
	if commands[0] != server.CommandSaveHold {
		t.Errorf("expected first command to be save hold, got %v", commands)
	}
	if commands[len(commands)-1] != server.CommandSaveResume {
		t.Errorf("expected last command to be save resume, got %v", commands)
	}
	if !env.srv.sent(server.CommandSaveQuery) {
		t.Error("expected save query to be sent")
	}

	if _, err := os.Stat(m.cfg.StagingDir()); !os.IsNotExist(err) {
		t.Errorf("expected staging directory to be removed, stat err = %v", err)
	}
	if files := zipFiles(t, m.cfg.BackupDir); len(files) != 1 {
		t.Errorf("expected exactly one archive, got %v", files)
	}

	// The index survives a restart.
	reloaded := env.newTestManager(t)
	got, err := reloaded.GetBackup(backup.ID)
	if err != nil {
		t.Fatalf("GetBackup after reload failed: %v", err)
	}
	if got.Status != StatusCompleted || got.Checksum != backup.Checksum {
		t.Errorf("reloaded backup mismatch: %+v", got)
	}
}

func TestCreateBackupServerNotRunning(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.srv.setState(server.StateStopped)
	m := env.newTestManager(t)

	_, err := m.CreateBackup(context.Background(), TriggerManual)
	if !errors.Is(err, ErrServerNotRunning) {
		t.Fatalf("expected ErrServerNotRunning, got %v", err)
	}
	if cmds := env.srv.Commands(); len(cmds) != 0 {
		t.Errorf("expected no commands, got %v", cmds)
	}
	if backups, _ := m.ListBackups(BackupListOptions{}); len(backups) != 0 {
		t.Errorf("expected no recorded backups, got %d", len(backups))
	}
	if m.InProgress() {
		t.Error("expected guard to be cleared")
	}
}

func TestCreateBackupNoServer(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	m, err := NewManager(env.newTestConfig(), nil)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	if _, err := m.CreateBackup(context.Background(), TriggerManual); !errors.Is(err, ErrServerNotRunning) {
		t.Errorf("expected ErrServerNotRunning, got %v", err)
	}
}

func TestCreateBackupWaitsForStarting(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.srv.setState(server.StateStarting)
	env.srv.onCommand = answerQueries(standardManifest())
	m := env.newTestManager(t)

	go func() {
		time.Sleep(50 * time.Millisecond)
		env.srv.setState(server.StateRunning)
	}()

	backup, err := m.CreateBackup(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}
	if backup.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", backup.Status)
	}
}

func TestCreateBackupStartingThenFaulted(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.srv.setState(server.StateStarting)
	m := env.newTestManager(t)

	go func() {
		time.Sleep(20 * time.Millisecond)
		env.srv.setState(server.StateFaulted)
	}()

	if _, err := m.CreateBackup(context.Background(), TriggerManual); !errors.Is(err, ErrServerNotRunning) {
		t.Errorf("expected ErrServerNotRunning, got %v", err)
	}
}

// TestCreateBackupSingleFlight checks the concurrent-call guard and
// cancellation cleanup.
func TestCreateBackupSingleFlight(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	m := env.newTestManager(t)

	type result struct {
		backup *Backup
		err    error
	}
	done := make(chan result, 1)
	go func() {
		b, err := m.CreateBackup(context.Background(), TriggerManual)
		done <- result{b, err}
	}()

	waitFor(t, 2*time.Second, func() bool { return env.srv.sent(server.CommandSaveQuery) }, "save query")

	if _, err := m.CreateBackup(context.Background(), TriggerManual); !errors.Is(err, ErrBackupInProgress) {
		t.Fatalf("expected ErrBackupInProgress, got %v", err)
	}

	m.CancelBackup()

	var res result
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("backup did not return after cancel")
	}
	if !errors.Is(res.err, ErrBackupCancelled) {
		t.Fatalf("expected ErrBackupCancelled, got %v", res.err)
	}
	if res.backup.Status != StatusCancelled {
		t.Errorf("expected cancelled status, got %s", res.backup.Status)
	}

	commands := env.srv.Commands()
	if commands[len(commands)-1] != server.CommandSaveResume {
		t.Errorf("expected save resume after cancel, got %v", commands)
	}
	if m.InProgress() {
		t.Error("expected guard to be cleared")
	}
	if files := zipFiles(t, m.cfg.BackupDir); len(files) != 0 {
		t.Errorf("expected no archive, got %v", files)
	}
	if _, err := os.Stat(m.cfg.StagingDir()); !os.IsNotExist(err) {
		t.Errorf("expected staging directory to be removed, stat err = %v", err)
	}
}

// TestCreateBackupServerFaultsDuringQuery checks that a crash while the file
// list is being polled fails the backup and frees the guard.
func TestCreateBackupServerFaultsDuringQuery(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	m := env.newTestManager(t)

	type result struct {
		backup *Backup
		err    error
	}
	done := make(chan result, 1)
	go func() {
		b, err := m.CreateBackup(context.Background(), TriggerScheduled)
		done <- result{b, err}
	}()

	waitFor(t, 2*time.Second, func() bool { return env.srv.sent(server.CommandSaveQuery) }, "save query")
	env.srv.setState(server.StateFaulted)

	var res result
	select {
	case res = <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("backup kept polling after the server faulted")
	}
	if !errors.Is(res.err, ErrServerNotRunning) {
		t.Fatalf("expected ErrServerNotRunning, got %v", res.err)
	}
	if res.backup == nil || res.backup.Status != StatusFailed {
		t.Errorf("expected failed backup record, got %+v", res.backup)
	}
	if m.InProgress() {
		t.Error("expected guard to be cleared")
	}
	if err := m.StopWatching(context.Background()); err != nil {
		t.Errorf("StopWatching failed: %v", err)
	}
	if _, err := os.Stat(m.cfg.StagingDir()); !os.IsNotExist(err) {
		t.Errorf("expected staging directory to be removed, stat err = %v", err)
	}
}

// TestClaimJobIsAtomic checks that a claimed job is immediately visible to
// CancelBackup and to the drain wait.
func TestClaimJobIsAtomic(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	m := env.newTestManager(t)

	jobCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if !m.claimJob(cancel) {
		t.Fatal("expected first claim to succeed")
	}
	if m.claimJob(func() {}) {
		t.Fatal("expected second claim to fail")
	}
	if !m.InProgress() {
		t.Error("expected InProgress after claim")
	}

	ctx, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	if err := m.StopWatching(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected drain wait to time out, got %v", err)
	}

	m.CancelBackup()
	if jobCtx.Err() == nil {
		t.Error("CancelBackup did not reach the claimed job")
	}

	m.releaseJob()
	if m.InProgress() {
		t.Error("expected guard to be cleared after release")
	}
	if err := m.StopWatching(context.Background()); err != nil {
		t.Errorf("StopWatching failed: %v", err)
	}
}

// TestCreateBackupConcurrentCallers races many callers; exactly one wins and
// every loser leaves no trace.
func TestCreateBackupConcurrentCallers(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.srv.onCommand = answerQueries(standardManifest())
	m := env.newTestManager(t)

	const callers = 8
	start := make(chan struct{})
	errs := make(chan error, callers)
	for range callers {
		go func() {
			<-start
			_, err := m.CreateBackup(context.Background(), TriggerManual)
			errs <- err
		}()
	}
	close(start)

	succeeded := 0
	for range callers {
		err := <-errs
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrBackupInProgress):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if succeeded < 1 {
		t.Error("expected at least one backup to succeed")
	}
	if m.InProgress() {
		t.Error("expected guard to be cleared")
	}
	if err := m.StopWatching(context.Background()); err != nil {
		t.Errorf("StopWatching failed: %v", err)
	}
}

func TestCreateBackupPreviousSaveNotCompleted(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	holds := 0
	env.srv.onCommand = func(f *fakeServer, command string) {
		switch command {
		case server.CommandSaveHold:
			holds++
		case server.CommandSaveQuery:
			if holds == 1 {
				f.say("[2026-10-17 12:00:00:000 INFO] A previous save has not been completed.")
				return
			}
			f.say(standardManifest())
		}
	}
	cfg := env.newTestConfig()
	cfg.PollInterval = 50 * time.Millisecond
	m := env.newManagerWithConfig(t, cfg)

	backup, err := m.CreateBackup(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}
	if backup.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", backup.Status)
	}

	commands := env.srv.Commands()
	want := []string{
		server.CommandSaveHold,
		server.CommandSaveQuery,
		server.CommandSaveResume,
		server.CommandSaveHold,
		server.CommandSaveQuery,
	}
	if len(commands) < len(want) {
		t.Fatalf("expected at least %v, got %v", want, commands)
	}
	for i, c := range want {
		if commands[i] != c {
			t.Fatalf("command %d: got %q, want %q (all: %v)", i, commands[i], c, commands)
		}
	}
}

func TestCreateBackupSourceShorterThanManifest(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.srv.onCommand = answerQueries(testLevel + "/db/MANIFEST-000002:400")
	m := env.newTestManager(t)

	backup, err := m.CreateBackup(context.Background(), TriggerManual)
	if err == nil {
		t.Fatal("expected an error for a truncated source")
	}
	if backup.Status != StatusFailed {
		t.Errorf("expected failed status, got %s", backup.Status)
	}
	if !env.srv.sent(server.CommandSaveResume) {
		t.Error("expected save resume after failure")
	}
	if files := zipFiles(t, m.cfg.BackupDir); len(files) != 0 {
		t.Errorf("expected no archive, got %v", files)
	}
}

func TestCreateBackupRejectsUnsafePaths(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.srv.onCommand = answerQueries("../../etc/passwd:10, " + testLevel + "/db/MANIFEST-000002:20")
	m := env.newTestManager(t)

	if _, err := m.CreateBackup(context.Background(), TriggerManual); err == nil {
		t.Fatal("expected an unsafe manifest path to fail the backup")
	}
	if !env.srv.sent(server.CommandSaveResume) {
		t.Error("expected save resume after failure")
	}
}

func TestOnBackupComplete(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.srv.onCommand = answerQueries(standardManifest())
	m := env.newTestManager(t)

	var got *Backup
	m.SetOnBackupComplete(func(b *Backup) { got = b })

	backup, err := m.CreateBackup(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}
	if got == nil || got.ID != backup.ID {
		t.Error("expected callback with the finished backup")
	}
}

func TestVerifyBackup(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.srv.onCommand = answerQueries(standardManifest())
	m := env.newTestManager(t)

	backup, err := m.CreateBackup(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}

	result, err := m.VerifyBackup(backup.ID[:8])
	if err != nil {
		t.Fatalf("VerifyBackup failed: %v", err)
	}
	if !result.Valid || !result.ChecksumValid || !result.ArchiveReadable || !result.FilesComplete {
		t.Fatalf("expected valid backup, got %+v", result)
	}

	f, err := os.OpenFile(backup.FilePath, os.O_APPEND|os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}
	_, _ = f.WriteString("garbage")
	f.Close()

	result, err = m.VerifyBackup(backup.ID)
	if err != nil {
		t.Fatalf("VerifyBackup failed: %v", err)
	}
	if result.Valid || result.ChecksumValid {
		t.Error("expected checksum mismatch")
	}

	stored, _ := m.GetBackup(backup.ID)
	if stored.Status != StatusCorrupted {
		t.Errorf("expected corrupted status, got %s", stored.Status)
	}
}

func TestVerifyBackupMissingArchive(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.srv.onCommand = answerQueries(standardManifest())
	m := env.newTestManager(t)

	backup, err := m.CreateBackup(context.Background(), TriggerManual)
	if err != nil {
		t.Fatalf("CreateBackup failed: %v", err)
	}
	if err := os.Remove(backup.FilePath); err != nil {
		t.Fatal(err)
	}

	result, err := m.VerifyBackup(backup.ID)
	if err != nil {
		t.Fatalf("VerifyBackup failed: %v", err)
	}
	if result.Valid || len(result.Errors) == 0 {
		t.Errorf("expected invalid result with errors, got %+v", result)
	}
}

// seedBackups writes completed backup records with archives of the given ages
func seedBackups(t *testing.T, m *Manager, ages ...time.Duration) []*Backup {
	t.Helper()
	now := time.Now()
	var out []*Backup
	for i, age := range ages {
		path := filepath.Join(m.cfg.BackupDir, time.Duration(i).String()+".zip")
		if err := os.WriteFile(path, []byte("zip"), 0o640); err != nil {
			t.Fatal(err)
		}
		b := &Backup{
			ID:        string(rune('a'+i)) + "0000000-seed",
			Status:    StatusCompleted,
			Trigger:   TriggerScheduled,
			CreatedAt: now.Add(-age),
			FilePath:  path,
			FileSize:  3,
		}
		m.saveBackup(b)
		out = append(out, b)
	}
	return out
}

func TestApplyRetentionPolicy(t *testing.T) {
	t.Parallel()

	ages := []time.Duration{time.Hour, 2 * time.Hour, 3 * time.Hour, 48 * time.Hour, 72 * time.Hour}
	tests := []struct {
		name        string
		policy      RetentionPolicy
		wantDeleted int
	}{
		{"keep everything", RetentionPolicy{MinCount: 3}, 0},
		{"max count", RetentionPolicy{MinCount: 1, MaxCount: 2}, 3},
		{"max age", RetentionPolicy{MinCount: 1, MaxAge: 24 * time.Hour}, 2},
		{"min count wins over age", RetentionPolicy{MinCount: 5, MaxAge: time.Minute}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			cfg := env.newTestConfig()
			cfg.Retention = tt.policy
			m := env.newManagerWithConfig(t, cfg)
			seeded := seedBackups(t, m, ages...)

			// Failed attempts are never pruned.
			m.saveBackup(&Backup{ID: "f0000000-failed", Status: StatusFailed, CreatedAt: time.Now().Add(-1000 * time.Hour)})

			deleted, err := m.ApplyRetentionPolicy(context.Background())
			if err != nil {
				t.Fatalf("ApplyRetentionPolicy failed: %v", err)
			}
			if deleted != tt.wantDeleted {
				t.Errorf("expected %d deleted, got %d", tt.wantDeleted, deleted)
			}

			backups, _ := m.ListBackups(BackupListOptions{})
			if len(backups) != len(ages)+1-tt.wantDeleted {
				t.Errorf("expected %d remaining records, got %d", len(ages)+1-tt.wantDeleted, len(backups))
			}
			// The newest backup is always kept.
			if !fileExists(seeded[0].FilePath) {
				t.Error("newest archive was deleted")
			}
		})
	}
}

func TestListBackups(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	m := env.newTestManager(t)
	seedBackups(t, m, time.Hour, 2*time.Hour, 3*time.Hour)
	m.saveBackup(&Backup{ID: "f0000000-failed", Status: StatusFailed, Trigger: TriggerManual, CreatedAt: time.Now()})

	all, _ := m.ListBackups(BackupListOptions{})
	if len(all) != 4 {
		t.Fatalf("expected 4 backups, got %d", len(all))
	}
	if !all[0].CreatedAt.Before(all[1].CreatedAt) {
		t.Error("expected ascending order by default")
	}

	completed := StatusCompleted
	list, _ := m.ListBackups(BackupListOptions{Status: &completed, SortDesc: true, Limit: 2})
	if len(list) != 2 {
		t.Fatalf("expected 2 backups, got %d", len(list))
	}
	if list[0].ID != "a0000000-seed" {
		t.Errorf("expected newest completed first, got %s", list[0].ID)
	}

	manual := TriggerManual
	list, _ = m.ListBackups(BackupListOptions{Trigger: &manual})
	if len(list) != 1 || list[0].Status != StatusFailed {
		t.Errorf("expected only the manual attempt, got %v", list)
	}

	list, _ = m.ListBackups(BackupListOptions{Offset: 10})
	if len(list) != 0 {
		t.Errorf("expected empty page, got %d", len(list))
	}
}

func TestGetAndDeleteBackup(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	m := env.newTestManager(t)
	seeded := seedBackups(t, m, time.Hour, 2*time.Hour)

	if _, err := m.GetBackup("missing"); !errors.Is(err, ErrBackupNotFound) {
		t.Errorf("expected ErrBackupNotFound, got %v", err)
	}
	if _, err := m.GetBackup("a0"); err != nil {
		t.Errorf("expected prefix lookup to succeed: %v", err)
	}

	if err := m.DeleteBackup(seeded[0].ID); err != nil {
		t.Fatalf("DeleteBackup failed: %v", err)
	}
	if fileExists(seeded[0].FilePath) {
		t.Error("expected archive to be removed")
	}
	if _, err := m.GetBackup(seeded[0].ID); !errors.Is(err, ErrBackupNotFound) {
		t.Errorf("expected deleted backup to be gone, got %v", err)
	}
}

func TestGetStats(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	m := env.newTestManager(t)
	seedBackups(t, m, time.Hour, 2*time.Hour, 3*time.Hour)
	m.saveBackup(&Backup{ID: "f0000000-failed", Status: StatusFailed, Trigger: TriggerManual, CreatedAt: time.Now()})

	stats, err := m.GetStats()
	if err != nil {
		t.Fatalf("GetStats failed: %v", err)
	}
	if stats.TotalCount != 4 {
		t.Errorf("expected 4 backups, got %d", stats.TotalCount)
	}
	if stats.CountByStatus[StatusCompleted] != 3 || stats.CountByTrigger[TriggerManual] != 1 {
		t.Errorf("unexpected breakdown %+v %+v", stats.CountByStatus, stats.CountByTrigger)
	}
	if stats.SuccessRate != 75 {
		t.Errorf("expected success rate 75, got %f", stats.SuccessRate)
	}
	if stats.LastBackup == nil || stats.LastBackup.ID != "f0000000-failed" {
		t.Error("expected newest attempt as last backup")
	}
}

func TestLoadMetadataMarksInterrupted(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	cfg := env.newTestConfig()
	if err := os.MkdirAll(cfg.BackupDir, 0o750); err != nil {
		t.Fatal(err)
	}
	index := `{"backups":[{"id":"b0000000-dead","status":"in_progress","trigger":"scheduled","created_at":"2026-10-17T10:00:00Z"}]}`
	if err := os.WriteFile(filepath.Join(cfg.BackupDir, "metadata.json"), []byte(index), 0o600); err != nil {
		t.Fatal(err)
	}

	m := env.newManagerWithConfig(t, cfg)
	b, err := m.GetBackup("b0000000-dead")
	if err != nil {
		t.Fatalf("GetBackup failed: %v", err)
	}
	if b.Status != StatusFailed || b.Error != "interrupted" {
		t.Errorf("expected interrupted failure, got %s %q", b.Status, b.Error)
	}
}

func TestStartWatchingInitialBackup(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.srv.onCommand = answerQueries(standardManifest())
	cfg := env.newTestConfig()
	cfg.Interval = time.Hour
	m := env.newManagerWithConfig(t, cfg)

	if err := m.StartWatching(context.Background()); err != nil {
		t.Fatalf("StartWatching failed: %v", err)
	}
	if err := m.StartWatching(context.Background()); err == nil {
		t.Error("expected second StartWatching to fail")
	}

	initial := TriggerInitial
	waitFor(t, 5*time.Second, func() bool {
		list, _ := m.ListBackups(BackupListOptions{Trigger: &initial})
		return len(list) == 1 && list[0].Status == StatusCompleted
	}, "initial backup")

	if err := m.StopWatching(context.Background()); err != nil {
		t.Fatalf("StopWatching failed: %v", err)
	}
	stats, _ := m.GetStats()
	if stats.NextScheduledBackup == nil {
		t.Error("expected next scheduled time to be recorded")
	}
}

func TestStartWatchingCatchUp(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.srv.onCommand = answerQueries(standardManifest())
	cfg := env.newTestConfig()
	cfg.Interval = time.Hour
	m := env.newManagerWithConfig(t, cfg)

	old := filepath.Join(cfg.BackupDir, "2026-01-01 00.00.00.zip")
	if err := os.WriteFile(old, []byte("zip"), 0o640); err != nil {
		t.Fatal(err)
	}
	stale := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatal(err)
	}

	if err := m.StartWatching(context.Background()); err != nil {
		t.Fatalf("StartWatching failed: %v", err)
	}
	defer m.StopWatching(context.Background()) //nolint:errcheck

	catchUp := TriggerCatchUp
	waitFor(t, 5*time.Second, func() bool {
		list, _ := m.ListBackups(BackupListOptions{Trigger: &catchUp})
		return len(list) == 1
	}, "catch-up backup")
}

func TestStartWatchingRecentBackup(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.srv.onCommand = answerQueries(standardManifest())
	cfg := env.newTestConfig()
	cfg.Interval = time.Hour
	m := env.newManagerWithConfig(t, cfg)

	if err := os.WriteFile(filepath.Join(cfg.BackupDir, "recent.zip"), []byte("zip"), 0o640); err != nil {
		t.Fatal(err)
	}
	if err := m.StartWatching(context.Background()); err != nil {
		t.Fatalf("StartWatching failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	if err := m.StopWatching(context.Background()); err != nil {
		t.Fatalf("StopWatching failed: %v", err)
	}
	if cmds := env.srv.Commands(); len(cmds) != 0 {
		t.Errorf("expected no backup, got commands %v", cmds)
	}
}

func TestStartWatchingDisabled(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	m := env.newTestManager(t)

	if err := m.StartWatching(context.Background()); err != nil {
		t.Fatalf("StartWatching failed: %v", err)
	}
	if err := m.StopWatching(context.Background()); err != nil {
		t.Fatalf("StopWatching failed: %v", err)
	}
}

// TestStopWatchingWaitsForBackup checks the drain gate.
func TestStopWatchingWaitsForBackup(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	m := env.newTestManager(t)

	done := make(chan error, 1)
	go func() {
		_, err := m.CreateBackup(context.Background(), TriggerManual)
		done <- err
	}()
	waitFor(t, 2*time.Second, func() bool { return env.srv.sent(server.CommandSaveHold) }, "save hold")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := m.StopWatching(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected drain wait to time out, got %v", err)
	}

	m.CancelBackup()
	if err := m.StopWatching(context.Background()); err != nil {
		t.Fatalf("StopWatching failed: %v", err)
	}
	if err := <-done; !errors.Is(err, ErrBackupCancelled) {
		t.Errorf("expected cancelled backup, got %v", err)
	}
}

func TestScheduleBreaker(t *testing.T) {
	t.Parallel()
	cb := newScheduleBreaker(BreakerConfig{FailureThreshold: 2, Cooldown: time.Hour})

	fail := func() (*Backup, error) { return nil, errors.New("boom") }
	busy := func() (*Backup, error) { return nil, ErrBackupInProgress }

	_, _ = cb.Execute(fail)
	_, _ = cb.Execute(busy)
	if cb.State() != gobreaker.StateClosed {
		t.Fatal("expected in-progress outcome not to count as a failure")
	}
	_, _ = cb.Execute(fail)
	_, _ = cb.Execute(fail)
	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("expected breaker to open, got %s", cb.State())
	}
	if _, err := cb.Execute(busy); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState, got %v", err)
	}

	never := newScheduleBreaker(BreakerConfig{})
	for i := 0; i < 10; i++ {
		_, _ = never.Execute(fail)
	}
	if never.State() != gobreaker.StateClosed {
		t.Error("expected zero threshold never to trip")
	}
}
