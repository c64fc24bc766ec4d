// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package serverlog

import (
	"regexp"
	"strings"
)

// Console markers printed by the server.
const (
	// Banner is printed once at startup when the server has no log file. It carries no information.
	Banner = "NO LOG FILE! - [] setting up server logging..."

	StartedMarker            = "Server started."
	PlayerConnectedMarker    = "Player connected: "
	PlayerDisconnectedMarker = "Player disconnected: "
	VersionPrefix            = "Version "
)

var (
	messagePrefix = regexp.MustCompile(`^(NO LOG FILE! - )?\[.* ?[A-Za-z]+\] `)
	levelPrefix   = regexp.MustCompile(`^(?:NO LOG FILE! - )?\[(?:.* )?([A-Za-z]+)\] `)
)

// Kind classifies a parsed line.
type Kind int

const (
	// KindMessage is an ordinary console message.
	KindMessage Kind = iota
	// KindIgnored is the startup banner; it is neither logged nor published.
	KindIgnored
	KindPlayerConnected
	KindPlayerDisconnected
	KindServerStarted
	KindVersion
)

func (k Kind) String() string {
	switch k {
	case KindIgnored:
		return "ignored"
	case KindPlayerConnected:
		return "player_connected"
	case KindPlayerDisconnected:
		return "player_disconnected"
	case KindServerStarted:
		return "server_started"
	case KindVersion:
		return "version"
	default:
		return "message"
	}
}

// Line is one parsed console line.
type Line struct {
	Raw     string
	Level   Level
	Message string
	Kind    Kind
	// Version is set for KindVersion lines whose version text parsed.
	Version Version
}

// Parse classifies a raw stdout line. It never fails.
func Parse(raw string) Line {
	raw = strings.TrimRight(raw, "\r\n")
	line := Line{Raw: raw, Level: LevelWarning, Message: raw}
	if raw == Banner {
		line.Kind = KindIgnored
		return line
	}

	line.Message = messagePrefix.ReplaceAllString(raw, "")

	if m := levelPrefix.FindStringSubmatch(raw); m != nil {
		line.Level = ParseLevel(m[1])
	}

	switch {
	case strings.HasSuffix(line.Message, StartedMarker):
		line.Kind = KindServerStarted
	case strings.Contains(line.Message, PlayerConnectedMarker):
		line.Kind = KindPlayerConnected
	case strings.Contains(line.Message, PlayerDisconnectedMarker):
		line.Kind = KindPlayerDisconnected
	case strings.HasPrefix(line.Message, VersionPrefix):
		line.Kind = KindVersion
		if v, err := ParseVersion(strings.TrimPrefix(line.Message, VersionPrefix)); err == nil {
			line.Version = v
		}
	default:
		line.Kind = KindMessage
	}
	return line
}

// StripPrefix returns raw with the timestamp/level prefix removed.
func StripPrefix(raw string) string {
	return messagePrefix.ReplaceAllString(raw, "")
}

// PlayerName extracts the player name from a connect/disconnect message
// ("Player connected: Steve, xuid: 123" yields "Steve").
func PlayerName(message string) string {
	for _, marker := range []string{PlayerConnectedMarker, PlayerDisconnectedMarker} {
		if i := strings.Index(message, marker); i >= 0 {
			rest := message[i+len(marker):]
			if j := strings.Index(rest, ","); j >= 0 {
				rest = rest[:j]
			}
			return strings.TrimSpace(rest)
		}
	}
	return ""
}
