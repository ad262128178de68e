// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package provider

import (
	"context"
	"time"

	"github.com/ManuGH/tvinput/internal/bus"
	"github.com/ManuGH/tvinput/internal/log"
)

// Change describes one write to the provider.
type Change struct {
	URI   string
	Table string
}

const notifyTimeout = 250 * time.Millisecond

// TopicFor returns the bus topic that carries changes of table.
func TopicFor(table string) string { return "provider." + table }

// Subscribe registers for changes on table. The returned subscriber delivers
// Change values.
func Subscribe(ctx context.Context, b bus.Bus, table string) (bus.Subscriber, error) {
	return b.Subscribe(ctx, TopicFor(table))
}

func (p *Provider) notify(table, uri string) {
	if p.bus == nil {
		return
	}
	// Writes never fail because an observer is slow.
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := p.bus.Publish(ctx, TopicFor(table), Change{URI: uri, Table: table}); err != nil {
		logger := log.WithComponent("provider")
		logger.Warn().Err(err).Str("uri", uri).Msg("change notification dropped")
	}
}
