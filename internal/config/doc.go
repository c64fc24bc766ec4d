// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

/*
Package config loads bedrockd configuration with Koanf.

Configuration is layered, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: the --config flag, CONFIG_PATH, or the first of
    DefaultConfigPaths that exists
 3. BEDROCKD_* environment variables, mapped explicitly in envTransformFunc

Example file:

	server:
	  working_directory: /opt/bedrock
	  executable: bedrock_server
	  stop_timeout: 1m
	backup:
	  directory: Backups
	  interval: 30m
	  retention:
	    max_count: 48
	shutdown:
	  checkpoints: [30s, 20s, 10s, 5s, 3s, 2s, 1s]

Durations use Go syntax ("1.5s", "30m"). Relative backup and log paths are
resolved against server.working_directory.
*/
package config
