// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/bedrockd/internal/backup"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Inspect and maintain recorded backups",
	Long: `Work with the backup index (metadata.json) in the backup directory.

These commands read and write the index directly. A running bedrockd keeps its
own copy of the index, so changes made here while it runs can be overwritten.`,
}

var (
	backupJSONFlag   bool
	backupLimitFlag  int
	backupStatusFlag string
)

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	Args:  cobra.NoArgs,
	RunE:  runBackupList,
}

var backupStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show backup statistics",
	Args:  cobra.NoArgs,
	RunE:  runBackupStats,
}

var backupVerifyCmd = &cobra.Command{
	Use:   "verify <id>",
	Short: "Verify a backup archive against its record",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupVerify,
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a backup archive and its record",
	Args:  cobra.ExactArgs(1),
	RunE:  runBackupDelete,
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention policy now",
	Args:  cobra.NoArgs,
	RunE:  runBackupPrune,
}

func init() {
	backupListCmd.Flags().BoolVar(&backupJSONFlag, "json", false, "Output as JSON")
	backupListCmd.Flags().IntVarP(&backupLimitFlag, "limit", "n", 0, "Show at most n backups")
	backupListCmd.Flags().StringVar(&backupStatusFlag, "status", "", "Only show backups with this status")
	backupStatsCmd.Flags().BoolVar(&backupJSONFlag, "json", false, "Output as JSON")
	backupVerifyCmd.Flags().BoolVar(&backupJSONFlag, "json", false, "Output as JSON")

	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupStatsCmd)
	backupCmd.AddCommand(backupVerifyCmd)
	backupCmd.AddCommand(backupDeleteCmd)
	backupCmd.AddCommand(backupPruneCmd)
}

func runBackupList(cmd *cobra.Command, _ []string) error {
	mgr, err := openBackups()
	if err != nil {
		return err
	}

	opts := backup.BackupListOptions{Limit: backupLimitFlag, SortDesc: true}
	if backupStatusFlag != "" {
		status := backup.BackupStatus(backupStatusFlag)
		opts.Status = &status
	}
	backups, err := mgr.ListBackups(opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if backupJSONFlag {
		return writeJSON(out, backups)
	}
	if len(backups) == 0 {
		fmt.Fprintln(out, "No backups")
		return nil
	}
	printBackupTable(out, backups, time.Now())
	return nil
}

func printBackupTable(out io.Writer, backups []*backup.Backup, now time.Time) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tTRIGGER\tCREATED\tSIZE\tARCHIVE")
	for _, b := range backups {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(b.ID),
			b.Status,
			b.Trigger,
			humanize.RelTime(b.CreatedAt, now, "ago", "from now"),
			humanize.Bytes(uint64(max(b.FileSize, 0))),
			filepath.Base(b.FilePath),
		)
	}
	_ = w.Flush()
}

func runBackupStats(cmd *cobra.Command, _ []string) error {
	mgr, err := openBackups()
	if err != nil {
		return err
	}
	stats, err := mgr.GetStats()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if backupJSONFlag {
		return writeJSON(out, stats)
	}

	fmt.Fprintf(out, "Backups:       %d\n", stats.TotalCount)
	fmt.Fprintf(out, "Total size:    %s\n", humanize.Bytes(uint64(max(stats.TotalSizeBytes, 0))))
	fmt.Fprintf(out, "Success rate:  %.1f%%\n", stats.SuccessRate)
	if stats.AverageDuration > 0 {
		fmt.Fprintf(out, "Avg duration:  %s\n", stats.AverageDuration.Round(time.Millisecond))
	}
	if stats.LastBackup != nil {
		fmt.Fprintf(out, "Last backup:   %s (%s)\n", humanize.Time(stats.LastBackup.CreatedAt), stats.LastBackup.Status)
	}
	if stats.NextScheduledBackup != nil {
		fmt.Fprintf(out, "Next backup:   %s\n", stats.NextScheduledBackup.Format(time.RFC3339))
	}
	for _, status := range slices.Sorted(maps.Keys(stats.CountByStatus)) {
		fmt.Fprintf(out, "  %-12s %d\n", status, stats.CountByStatus[status])
	}
	return nil
}

// errVerifyFailed makes the command exit non-zero for an invalid archive.
var errVerifyFailed = errors.New("backup verification failed")

func runBackupVerify(cmd *cobra.Command, args []string) error {
	mgr, err := openBackups()
	if err != nil {
		return err
	}
	b, err := mgr.GetBackup(args[0])
	if err != nil {
		return err
	}
	result, err := mgr.VerifyBackup(b.ID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if backupJSONFlag {
		if err := writeJSON(out, result); err != nil {
			return err
		}
	} else {
		printVerification(out, result)
	}
	if !result.Valid {
		return errVerifyFailed
	}
	return nil
}

func printVerification(out io.Writer, result *backup.ValidationResult) {
	verdict := "OK"
	if !result.Valid {
		verdict = "INVALID"
	}
	fmt.Fprintf(out, "%s  %s\n", shortID(result.Backup.ID), verdict)
	fmt.Fprintf(out, "  checksum:  %t\n", result.ChecksumValid)
	fmt.Fprintf(out, "  readable:  %t\n", result.ArchiveReadable)
	fmt.Fprintf(out, "  complete:  %t\n", result.FilesComplete)
	if len(result.MissingFiles) > 0 {
		fmt.Fprintf(out, "  missing:   %s\n", strings.Join(result.MissingFiles, ", "))
	}
	if len(result.CorruptedFiles) > 0 {
		fmt.Fprintf(out, "  corrupted: %s\n", strings.Join(result.CorruptedFiles, ", "))
	}
	for _, e := range result.Errors {
		fmt.Fprintf(out, "  error:     %s\n", e)
	}
}

func runBackupDelete(cmd *cobra.Command, args []string) error {
	mgr, err := openBackups()
	if err != nil {
		return err
	}
	b, err := mgr.GetBackup(args[0])
	if err != nil {
		return err
	}
	if err := mgr.DeleteBackup(b.ID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", filepath.Base(b.FilePath))
	return nil
}

func runBackupPrune(cmd *cobra.Command, _ []string) error {
	mgr, err := openBackups()
	if err != nil {
		return err
	}
	deleted, err := mgr.ApplyRetentionPolicy(context.Background())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d backup(s)\n", deleted)
	return nil
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
