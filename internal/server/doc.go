// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

/*
Package server supervises a single Bedrock dedicated server process.

The [Manager] owns the process handle, its stdin/stdout/stderr pipes and the
lifecycle state machine:

	Created ──StartServer──▶ Starting ──"Server started."──▶ Running
	                            │                               │
	                            ▼                               ├──StopServer──▶ Stopping ──exit──▶ Stopped
	                         Faulted ◀──────crash───────────────┘                   │
	                            │                                                   ▼
	                            └──────auto-restart──▶ Starting            Faulted (forced kill)

Every transition goes through a single point that stores the new state and
publishes it to state subscribers while holding one mutex, so subscribers
observe each change exactly once and in order.

Console output is parsed with the serverlog package. Lines are re-logged at
the level the server printed them with and published, unchanged, to log
subscribers (the backup engine listens there for save-query responses).
Output on stderr is logged at critical level and not published.

A process exit that was not preceded by StopServer is treated as a crash: the
manager marks the server Faulted and starts it again. Restarts are
unconditional unless a restart rate limit is configured.
*/
package server
