// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package channels

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/metrics"
	"github.com/ManuGH/tvinput/internal/provider"
	"github.com/ManuGH/tvinput/internal/telemetry"
)

// Store is the slice of the provider the directory needs.
type Store interface {
	QueryChannels(ctx context.Context, inputID string) ([]provider.ChannelRow, error)
	InsertChannels(ctx context.Context, inputID string, rows []provider.ChannelRow) ([]int64, error)
}

// Entry binds a provider channel id to its descriptor.
type Entry struct {
	ID         int64
	URI        string
	Descriptor Descriptor
}

// Directory is the in-memory channel id → descriptor map. The map is only
// ever replaced wholesale by a rebuild.
type Directory struct {
	store       Store
	inputID     string
	descriptors []Descriptor
	logger      zerolog.Logger

	rebuildMu sync.Mutex // serializes rebuilds

	mu       sync.RWMutex
	loaded   bool
	byID     map[int64]Descriptor
	byNumber map[string]int64

	rebuilds atomic.Int64
}

// NewDirectory returns an unloaded directory for inputID.
func NewDirectory(store Store, inputID string, descriptors []Descriptor) *Directory {
	return &Directory{
		store:       store,
		inputID:     inputID,
		descriptors: append([]Descriptor(nil), descriptors...),
		logger:      log.WithComponent("channels"),
		byID:        map[int64]Descriptor{},
		byNumber:    map[string]int64{},
	}
}

// EnsureLoaded builds the map unless a previous call already did.
func (d *Directory) EnsureLoaded(ctx context.Context) error {
	d.mu.RLock()
	loaded := d.loaded
	d.mu.RUnlock()
	if loaded {
		return nil
	}
	return d.rebuild(ctx, true)
}

// Rebuild re-synchronizes the map against the provider.
func (d *Directory) Rebuild(ctx context.Context) error {
	return d.rebuild(ctx, false)
}

// Replace swaps the configured descriptors and rebuilds. The channel numbers
// must still match the provider rows; on failure the previous descriptors are
// restored and the map keeps serving.
func (d *Directory) Replace(ctx context.Context, descriptors []Descriptor) error {
	d.rebuildMu.Lock()
	prev := d.descriptors
	d.descriptors = append([]Descriptor(nil), descriptors...)
	d.rebuildMu.Unlock()

	if err := d.Rebuild(ctx); err != nil {
		d.rebuildMu.Lock()
		d.descriptors = prev
		d.rebuildMu.Unlock()
		return err
	}
	return nil
}

// Rebuilds reports how many rebuilds ran.
func (d *Directory) Rebuilds() int64 { return d.rebuilds.Load() }

func (d *Directory) rebuild(ctx context.Context, onlyIfUnloaded bool) (err error) {
	d.rebuildMu.Lock()
	defer d.rebuildMu.Unlock()

	if onlyIfUnloaded {
		d.mu.RLock()
		loaded := d.loaded
		d.mu.RUnlock()
		if loaded {
			return nil
		}
	}

	ctx, span := telemetry.Tracer(telemetry.TracerChannels).Start(ctx, "directory.rebuild")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	d.rebuilds.Add(1)
	byID, err := d.build(ctx)
	metrics.RecordDirectoryRebuild(err, len(byID))
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int(telemetry.ChannelCountKey, len(byID)))

	byNumber := make(map[string]int64, len(byID))
	for id, desc := range byID {
		byNumber[desc.Number] = id
	}
	d.mu.Lock()
	d.byID = byID
	d.byNumber = byNumber
	d.loaded = true
	d.mu.Unlock()

	d.logger.Info().Int("channels", len(byID)).Str(log.FieldInputID, d.inputID).Msg("channel directory rebuilt")
	return nil
}

func (d *Directory) build(ctx context.Context) (map[int64]Descriptor, error) {
	if len(d.descriptors) == 0 {
		d.logger.Warn().Str(log.FieldInputID, d.inputID).Msg("no channels configured")
		return map[int64]Descriptor{}, nil
	}

	rows, err := d.store.QueryChannels(ctx, d.inputID)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	if len(rows) == 0 {
		insert := make([]provider.ChannelRow, 0, len(d.descriptors))
		for _, desc := range d.descriptors {
			insert = append(insert, provider.ChannelRow{
				InputID:          d.inputID,
				DisplayNumber:    desc.Number,
				DisplayName:      desc.Name,
				LogoURI:          desc.LogoURL,
				VideoWidth:       desc.VideoWidth,
				VideoHeight:      desc.VideoHeight,
				AudioChannels:    desc.AudioChannels,
				HasClosedCaption: desc.HasClosedCaption,
			})
		}
		if _, err := d.store.InsertChannels(ctx, d.inputID, insert); err != nil {
			return nil, fmt.Errorf("insert channels: %w", err)
		}
		d.logger.Info().Int("channels", len(insert)).Msg("inserted configured channels")
		if rows, err = d.store.QueryChannels(ctx, d.inputID); err != nil {
			return nil, fmt.Errorf("query channels: %w", err)
		}
	}

	byNumber := make(map[string]Descriptor, len(d.descriptors))
	for _, desc := range d.descriptors {
		byNumber[desc.Number] = desc
	}
	out := make(map[int64]Descriptor, len(rows))
	for _, row := range rows {
		desc, ok := byNumber[row.DisplayNumber]
		if !ok {
			return nil, fmt.Errorf("%w: provider channel %d has number %q", ErrChannelListDrift, row.ID, row.DisplayNumber)
		}
		out[row.ID] = desc
	}
	return out, nil
}

func (d *Directory) byIDLocked(id int64) (Entry, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	desc, ok := d.byID[id]
	if !ok {
		return Entry{}, false
	}
	return Entry{ID: id, URI: provider.ChannelURI(id), Descriptor: desc}, true
}

func (d *Directory) byNumberLocked(number string) (Entry, bool) {
	d.mu.RLock()
	id, ok := d.byNumber[number]
	d.mu.RUnlock()
	if !ok {
		return Entry{}, false
	}
	return d.byIDLocked(id)
}

// LookupByID resolves a provider channel id, rebuilding once on a miss.
func (d *Directory) LookupByID(ctx context.Context, id int64) (Entry, error) {
	if err := d.EnsureLoaded(ctx); err != nil {
		return Entry{}, err
	}
	return LookupWithRefresh(ctx, id, d.byIDLocked, d.Rebuild, 1)
}

// LookupByNumber resolves a display number, rebuilding once on a miss.
func (d *Directory) LookupByNumber(ctx context.Context, number string) (Entry, error) {
	if err := d.EnsureLoaded(ctx); err != nil {
		return Entry{}, err
	}
	return LookupWithRefresh(ctx, number, d.byNumberLocked, d.Rebuild, 1)
}

// LookupByURI resolves a channel URI, rebuilding once on a miss.
func (d *Directory) LookupByURI(ctx context.Context, uri string) (Entry, error) {
	id, err := provider.ParseChannelID(uri)
	if err != nil {
		return Entry{}, fmt.Errorf("lookup channel: %w", err)
	}
	e, err := d.LookupByID(ctx, id)
	if err != nil {
		if u, ok := err.(*UnknownChannelError); ok {
			u.Key = uri
		}
		return Entry{}, err
	}
	return e, nil
}

// Entries returns the current map ordered by channel id.
func (d *Directory) Entries(ctx context.Context) ([]Entry, error) {
	if err := d.EnsureLoaded(ctx); err != nil {
		return nil, err
	}
	d.mu.RLock()
	out := make([]Entry, 0, len(d.byID))
	for id, desc := range d.byID {
		out = append(out, Entry{ID: id, URI: provider.ChannelURI(id), Descriptor: desc})
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
