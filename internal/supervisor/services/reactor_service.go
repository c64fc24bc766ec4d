// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

package services

import (
	"context"

	"github.com/tomtom215/bedrockd/internal/configwatch"
	"github.com/tomtom215/bedrockd/internal/eventbus"
	"github.com/tomtom215/bedrockd/internal/metrics"
)

// ChangeReactor matches *configwatch.Reactor.
type ChangeReactor interface {
	Run(ctx context.Context) error
	Subscribe(fn func(configwatch.Change)) *eventbus.Subscription
}

// ConfigReactorService runs the configuration reactor and counts every
// observed change in bedrock_config_changes_total.
type ConfigReactorService struct {
	reactor ChangeReactor
	name    string
}

// NewConfigReactorService creates the service.
func NewConfigReactorService(reactor ChangeReactor) *ConfigReactorService {
	return &ConfigReactorService{
		reactor: reactor,
		name:    "config-reactor",
	}
}

// Serve implements suture.Service.
func (s *ConfigReactorService) Serve(ctx context.Context) error {
	sub := s.reactor.Subscribe(func(c configwatch.Change) {
		metrics.RecordConfigChange(c.FileName())
	})
	defer sub.Close()

	if err := s.reactor.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
func (s *ConfigReactorService) String() string {
	return s.name
}
