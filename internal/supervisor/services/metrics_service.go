// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package services

import "context"

// Runner is a component that works until ctx ends.
type Runner interface {
	Run(ctx context.Context) error
}

// TextfileExporterService runs the metrics textfile exporter.
type TextfileExporterService struct {
	exporter Runner
	name     string
}

// NewTextfileExporterService creates the service.
func NewTextfileExporterService(exporter Runner) *TextfileExporterService {
	return &TextfileExporterService{
		exporter: exporter,
		name:     "metrics-textfile",
	}
}

// Serve implements suture.Service.
func (s *TextfileExporterService) Serve(ctx context.Context) error {
	return s.exporter.Run(ctx)
}

// String implements fmt.Stringer for logging.
func (s *TextfileExporterService) String() string {
	return s.name
}
