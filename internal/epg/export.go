// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package epg

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/ManuGH/tvinput/internal/channels"
	"github.com/ManuGH/tvinput/internal/provider"
)

// ChannelSource lists the channels to export.
type ChannelSource interface {
	Entries(ctx context.Context) ([]channels.Entry, error)
}

// ProgramSource lists guide rows.
type ProgramSource interface {
	AllPrograms(ctx context.Context, from, to int64) ([]provider.ProgramRow, error)
}

// Exporter renders the guide as XMLTV.
type Exporter struct {
	Channels  ChannelSource
	Programs  ProgramSource
	Generator string
	// Window is how far ahead of now programs are exported.
	Window time.Duration
	Now    func() time.Time
	// Include filters channels. Nil exports every channel.
	Include func(channels.Entry) bool
}

// Build collects the channels and the programs overlapping [now, now+Window].
func (e *Exporter) Build(ctx context.Context) (*TV, error) {
	entries, err := e.Channels.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	window := e.Window
	if window <= 0 {
		window = 24 * time.Hour
	}
	from := now()
	rows, err := e.Programs.AllPrograms(ctx, from.UnixMilli(), from.Add(window).UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("list programs: %w", err)
	}

	tv := &TV{Generator: e.Generator, Channels: []Channel{}, Programs: []Programme{}}
	ids := make(map[int64]string, len(entries))
	for _, entry := range entries {
		if e.Include != nil && !e.Include(entry) {
			continue
		}
		id := stableID(entry.Descriptor.Number, entry.Descriptor.Name)
		ids[entry.ID] = id
		ch := Channel{ID: id, DisplayName: []string{displayName(entry.Descriptor.Name), entry.Descriptor.Number}}
		if entry.Descriptor.LogoURL != "" {
			ch.Icon = &Icon{Src: entry.Descriptor.LogoURL}
		}
		tv.Channels = append(tv.Channels, ch)
	}
	for _, row := range rows {
		id, ok := ids[row.ChannelID]
		if !ok {
			continue
		}
		p := Programme{
			Start:   formatXMLTVTime(time.UnixMilli(row.StartTimeUTCMillis).UTC()),
			Stop:    formatXMLTVTime(time.UnixMilli(row.EndTimeUTCMillis).UTC()),
			Channel: id,
			Title:   Title{Value: displayName(row.Title)},
			Desc:    row.ShortDescription,
		}
		if row.PosterArtURI != "" {
			p.Icon = &Icon{Src: row.PosterArtURI}
		}
		tv.Programs = append(tv.Programs, p)
	}
	return tv, nil
}

// WriteTo streams the current guide to w.
func (e *Exporter) WriteTo(ctx context.Context, w io.Writer) error {
	tv, err := e.Build(ctx)
	if err != nil {
		return err
	}
	return Encode(w, tv)
}

// WriteFile writes the current guide to path atomically.
func (e *Exporter) WriteFile(ctx context.Context, path string) error {
	tv, err := e.Build(ctx)
	if err != nil {
		return err
	}
	return WriteXMLTV(path, tv)
}
