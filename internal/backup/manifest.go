// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package backup

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/tomtom215/bedrockd/internal/serverlog"
)

// Markers in "save query" responses.
const (
	manifestMarker = "/db/MANIFEST"
	previousSave   = "A previous save has not been completed."
)

// Manifest maps world-relative paths to their length at the hold instant.
type Manifest map[string]int64

// IsManifestLine reports whether a console line is a "save query" file list.
func IsManifestLine(line string) bool {
	return strings.Contains(line, manifestMarker)
}

// IsPreviousSaveLine reports whether the server refused the hold because an
// earlier save is still being written.
func IsPreviousSaveLine(line string) bool {
	return strings.Contains(line, previousSave)
}

// ParseManifestLine parses the comma separated "path:length" entries of a
// file list. Entries without a valid non-negative length are returned in
// skipped and otherwise ignored.
func ParseManifestLine(line string) (entries Manifest, skipped []string) {
	entries = make(Manifest)
	for _, raw := range strings.Split(serverlog.StripPrefix(line), ",") {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		i := strings.LastIndex(entry, ":")
		if i <= 0 {
			skipped = append(skipped, entry)
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(entry[i+1:]), 10, 64)
		if err != nil || n < 0 {
			skipped = append(skipped, entry)
			continue
		}
		entries[entry[:i]] = n
	}
	return entries, skipped
}

// Merge adds other to m. A path already present with a different length is
// replaced and logged; the latest report wins.
func (m Manifest) Merge(other Manifest, log *zerolog.Logger) {
	for path, length := range other {
		if old, ok := m[path]; ok && old != length {
			log.Warn().Str("file", path).Int64("old_length", old).Int64("new_length", length).
				Msgf("File %s was already found in file collection with length of %d. Replacing with %d.", path, old, length)
		}
		m[path] = length
	}
}

// Paths returns the manifest paths in sorted order.
func (m Manifest) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Validate rejects paths that would escape the worlds or staging directory.
func (m Manifest) Validate() error {
	for p := range m {
		if !filepath.IsLocal(filepath.FromSlash(p)) {
			return fmt.Errorf("unsafe path in manifest: %q", p)
		}
	}
	return nil
}
