// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

// Package configwatch reacts to edits of the server's configuration files.
//
// A [Watcher] wraps fsnotify on the server's working directory and hands
// out debounced one-shot change tokens per file name. The [Reactor] keeps one
// loop per file that waits for a token, acts, and asks for a new token:
//
//	whitelist.json     -> "whitelist reload"
//	permissions.json   -> "permission reload"
//	server.properties  -> countdown, "Restarting server now.", stop, start
//
// Changes that happen while a change is being handled are not queued.
package configwatch
