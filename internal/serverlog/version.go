// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package serverlog

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a dotted server version such as 1.21.44.01.
type Version struct {
	parts []int
}

// ParseVersion parses a dotted numeric version. Surrounding whitespace is ignored.
func ParseVersion(s string) (Version, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Version{}, fmt.Errorf("empty version")
	}

	fields := strings.Split(s, ".")
	parts := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version component %q in %q", f, s)
		}
		parts = append(parts, n)
	}
	return Version{parts: parts}, nil
}

// IsZero reports whether no version has been recorded.
func (v Version) IsZero() bool {
	return len(v.parts) == 0
}

// Compare returns -1, 0 or 1. Missing trailing components count as zero.
func (v Version) Compare(o Version) int {
	n := max(len(v.parts), len(o.parts))
	for i := range n {
		a, b := 0, 0
		if i < len(v.parts) {
			a = v.parts[i]
		}
		if i < len(o.parts) {
			b = o.parts[i]
		}
		switch {
		case a < b:
			return -1
		case a > b:
			return 1
		}
	}
	return 0
}

// String renders the version. Bedrock zero-pads the fourth component.
func (v Version) String() string {
	if v.IsZero() {
		return ""
	}
	var b strings.Builder
	for i, p := range v.parts {
		if i > 0 {
			b.WriteByte('.')
		}
		if i == 3 {
			fmt.Fprintf(&b, "%02d", p)
			continue
		}
		b.WriteString(strconv.Itoa(p))
	}
	return b.String()
}
