// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"strings"
)

// Validate rejects configurations the daemon cannot run with.
func (c AppConfig) Validate() error {
	if strings.TrimSpace(c.InputID) == "" {
		return fmt.Errorf("%w: inputId must not be empty", ErrInvalidConfig)
	}
	switch c.Player {
	case PlayerFFmpeg, PlayerStub:
	default:
		return fmt.Errorf("%w: player %q (supported: %s, %s)", ErrInvalidConfig, c.Player, PlayerFFmpeg, PlayerStub)
	}
	if c.Scheduler.Delay < 0 {
		return fmt.Errorf("%w: scheduler delay must not be negative", ErrInvalidConfig)
	}
	if c.Scheduler.RepeatCount < 1 {
		return fmt.Errorf("%w: scheduler repeatCount must be at least 1", ErrInvalidConfig)
	}
	if c.Banner.IconCacheSize < 1 {
		return fmt.Errorf("%w: banner iconCacheSize must be at least 1", ErrInvalidConfig)
	}
	if c.Telemetry.Enabled {
		switch c.Telemetry.Exporter {
		case "grpc", "http":
		default:
			return fmt.Errorf("%w: telemetry exporter %q", ErrInvalidConfig, c.Telemetry.Exporter)
		}
	}
	return nil
}
