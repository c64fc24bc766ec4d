// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v4/process"
)

// gopsutilFinder scans the process table for a process whose executable
// resolves to the same file as ours.
type gopsutilFinder struct{}

func (gopsutilFinder) FindByExecutable(ctx context.Context, path string) (int32, bool, error) {
	target := resolvePath(path)

	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return 0, false, fmt.Errorf("list processes: %w", err)
	}

	self := int32(os.Getpid()) //nolint:gosec // pids fit in int32
	for _, p := range procs {
		if p.Pid == self {
			continue
		}
		exe, err := p.ExeWithContext(ctx)
		if err != nil || exe == "" {
			// Processes of other users are not inspectable; they cannot be ours.
			continue
		}
		if resolvePath(exe) == target {
			return p.Pid, true, nil
		}
	}
	return 0, false, nil
}

func resolvePath(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return filepath.Clean(path)
}
