// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package serverlog

import (
	"strings"

	"github.com/rs/zerolog"
)

// Level is the severity the server printed a line with.
type Level int

const (
	// LevelWarning is used for lines whose level token is missing or unknown.
	LevelWarning Level = iota
	LevelTrace
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelCritical
)

// ParseLevel maps a Bedrock level token to a Level. Matching is case-insensitive.
func ParseLevel(token string) Level {
	switch strings.ToUpper(token) {
	case "TRCE":
		return LevelTrace
	case "DBUG":
		return LevelDebug
	case "INFO":
		return LevelInfo
	case "WARN":
		return LevelWarn
	case "FAIL":
		return LevelError
	case "CRIT":
		return LevelCritical
	default:
		return LevelWarning
	}
}

func (l Level) String() string {
	switch l {
	case LevelTrace:
		return "trace"
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	case LevelCritical:
		return "critical"
	default:
		return "warning"
	}
}

// ZerologLevel returns the zerolog level used when re-logging a line.
// Critical lines map to the fatal level; callers must log them with
// WithLevel so the process does not exit.
func (l Level) ZerologLevel() zerolog.Level {
	switch l {
	case LevelTrace:
		return zerolog.TraceLevel
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelCritical:
		return zerolog.FatalLevel
	default:
		return zerolog.WarnLevel
	}
}
