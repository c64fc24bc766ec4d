// Bedrockd - Minecraft Bedrock Dedicated Server Supervisor
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/bedrockd

// Package announce sends timed countdown broadcasts to connected players
// before a shutdown or restart.
package announce

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/tomtom215/bedrockd/internal/logging"
)

// Audience is the part of the server a countdown talks to.
type Audience interface {
	GetPlayerCount() int
	Say(message string)
}

// DefaultCheckpoints are the countdown offsets used for shutdowns and restarts.
func DefaultCheckpoints() []time.Duration {
	return Seconds(30, 20, 10, 5, 3, 2, 1)
}

// Seconds converts whole seconds to checkpoints.
func Seconds(secs ...int) []time.Duration {
	out := make([]time.Duration, len(secs))
	for i, s := range secs {
		out[i] = time.Duration(s) * time.Second
	}
	return out
}

var magnitudes = []humanize.RelTimeMagnitude{
	{D: 2 * time.Second, Format: "1 second", DivBy: 1},
	{D: time.Minute, Format: "%d seconds", DivBy: time.Second},
	{D: 2 * time.Minute, Format: "1 minute", DivBy: 1},
	{D: time.Hour, Format: "%d minutes", DivBy: time.Minute},
	{D: 2 * time.Hour, Format: "1 hour", DivBy: 1},
	{D: math.MaxInt64, Format: "%d hours", DivBy: time.Hour},
}

// Humanize renders a checkpoint for players: "30 seconds", "1 minute".
func Humanize(d time.Duration) string {
	var zero time.Time
	return humanize.CustomRelTime(zero, zero.Add(d), "", "", magnitudes)
}

// Countdown broadcasts template at each checkpoint, largest first, and
// sleeps the gap to the next one. After the last checkpoint it sleeps that
// checkpoint's own length so the final message is honoured. template takes a
// single %s for the remaining time.
//
// Nothing is sent when no players are connected. It returns ctx.Err() if ctx
// ends mid-countdown.
func Countdown(ctx context.Context, audience Audience, template string, checkpoints []time.Duration) error {
	if len(checkpoints) == 0 || audience.GetPlayerCount() <= 0 {
		return nil
	}

	sorted := slices.Clone(checkpoints)
	slices.SortFunc(sorted, func(a, b time.Duration) int { return cmp.Compare(b, a) })

	logging.Info().Dur("duration", sorted[0]).Msgf("Sending countdown timer %s.", Humanize(sorted[0]))

	for i, current := range sorted {
		audience.Say(fmt.Sprintf(template, Humanize(current)))

		var next time.Duration
		if i+1 < len(sorted) {
			next = sorted[i+1]
		}
		if err := sleep(ctx, current-next); err != nil {
			return err
		}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
