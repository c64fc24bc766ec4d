// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

/*
Package supervisor hosts bedrockd's long-running services in a suture v4 tree.

# Overview

	RootSupervisor ("bedrockd")
	├── ProcessSupervisor ("process-layer")
	│   └── ServerService            (starts the Bedrock server, reports restart failures)
	├── JobsSupervisor ("jobs-layer")
	│   ├── BackupSchedulerService   (waits for Running, then StartWatching)
	│   └── ConfigReactorService     (if watch.enabled)
	└── TelemetrySupervisor ("telemetry-layer")
	    └── TextfileExporterService  (if metrics.textfile_path is set)

Each layer counts failures independently, so a backup scheduler that keeps
failing backs off without the server process being touched.

# Shutdown

The graceful shutdown sequence (countdown, backup drain, stop) runs outside
the tree in shutdown.Coordinator. Only once it has finished is the tree's
context cancelled, and the services then return promptly because the work
they wrap has already stopped.

# Logging

Supervisor events (service start, failure, backoff) are reported through
sutureslog, backed by the zerolog sink via logging.NewSlogLogger:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), cfg)

See the services subpackage for the service wrappers.
*/
package supervisor
