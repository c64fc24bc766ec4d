// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

/*
Package services provides suture.Service wrappers for bedrockd components.

Each wrapper adapts a component's own lifecycle (StartServer, StartWatching
and StopWatching, Run) to suture's context-aware Serve method and names
itself through fmt.Stringer so supervisor events read well in the log.

# Available Services

Bedrock Server (ServerService):
  - Starts the server process and waits
  - Returns an error when the manager's crash recovery gives up
  - Never stops the process itself; the shutdown coordinator does

Backup Scheduler (BackupSchedulerService):
  - Waits for the first Running state, then starts the scheduler
  - Stops the scheduler on cancellation, bounded by a timeout

Configuration Reactor (ConfigReactorService):
  - Runs configwatch.Reactor
  - Counts observed changes in bedrock_config_changes_total

Metrics Textfile (TextfileExporterService):
  - Runs metrics.TextfileExporter

# Usage Example

	tree, _ := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)

	tree.AddProcessService(services.NewServerService(srv, coordinator.Stopping()))
	tree.AddJobService(services.NewBackupSchedulerService(backups, srv, 10*time.Second))
	tree.AddJobService(services.NewConfigReactorService(reactor))
	tree.AddTelemetryService(services.NewTextfileExporterService(exporter))

	errCh := tree.ServeBackground(ctx)

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination
*/
package services
