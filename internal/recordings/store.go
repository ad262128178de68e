// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package recordings

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/metrics"
	"github.com/ManuGH/tvinput/internal/provider"
	"github.com/rs/zerolog"
)

var (
	// ErrNotFound is returned when no recorded program has the requested id.
	ErrNotFound = errors.New("recorded program not found")
	// ErrIDNotSet is returned when updating a program that was never inserted.
	ErrIDNotSet = errors.New("recorded program has no id")
)

// Store reads and writes recorded programs through the provider.
type Store struct {
	p       *provider.Provider
	codec   *Codec
	inputID string
	logger  zerolog.Logger
}

// NewStore probes the provider's optional columns once. inputID fills in
// programs stored without one. Internal provider data is decoded for the
// provider's own package and any extra bundled packages.
func NewStore(ctx context.Context, p *provider.Provider, inputID string, bundled ...string) (*Store, error) {
	var probeErr error
	hasColumn := func(name string) bool {
		ok, err := p.HasColumn(ctx, provider.TableRecordedPrograms, name)
		if err != nil && probeErr == nil {
			probeErr = err
		}
		return ok
	}
	if pkg := p.PackageName(); pkg != "" {
		bundled = append(bundled, pkg)
	}
	codec := NewCodec(p.SchemaVersion(), hasColumn, bundled...)
	if probeErr != nil {
		return nil, fmt.Errorf("probe recorded program columns: %w", probeErr)
	}
	return &Store{
		p:       p,
		codec:   codec,
		inputID: inputID,
		logger:  log.WithComponent("recordings"),
	}, nil
}

// Codec returns the row mapping in use.
func (s *Store) Codec() *Codec { return s.codec }

// Insert stores rp and returns it with the id assigned by the provider.
func (s *Store) Insert(ctx context.Context, rp RecordedProgram) (RecordedProgram, error) {
	row := s.codec.ToRow(s.withInput(rp))
	uri, err := s.p.InsertRecordedRow(ctx, row)
	if err != nil {
		return RecordedProgram{}, err
	}
	id, err := provider.ParseID(uri)
	if err != nil {
		return RecordedProgram{}, err
	}
	metrics.RecordRecordingWrite("insert")
	s.logger.Info().Int64("recording_id", id).Str("title", rp.Title()).Msg("recorded program stored")
	return s.withInput(rp).WithID(id), nil
}

// Update overwrites the stored program with rp's values.
func (s *Store) Update(ctx context.Context, rp RecordedProgram) error {
	if rp.ID() == IDNotSet {
		return ErrIDNotSet
	}
	if err := s.p.UpdateRecordedRow(ctx, rp.ID(), s.codec.ToRow(s.withInput(rp))); err != nil {
		return mapNotFound(err)
	}
	metrics.RecordRecordingWrite("update")
	return nil
}

// Get returns the recorded program with the given id.
func (s *Store) Get(ctx context.Context, id int64) (RecordedProgram, error) {
	row, err := s.p.GetRecordedRow(ctx, id, s.codec.Columns())
	if err != nil {
		return RecordedProgram{}, mapNotFound(err)
	}
	return s.codec.FromRow(row)
}

// List returns every recorded program ordered by start time, then id.
func (s *Store) List(ctx context.Context) ([]RecordedProgram, error) {
	rows, err := s.p.QueryRecordedRows(ctx, s.codec.Columns())
	if err != nil {
		return nil, err
	}
	out := make([]RecordedProgram, 0, len(rows))
	for _, row := range rows {
		rp, err := s.codec.FromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rp)
	}
	slices.SortFunc(out, ByStartTimeThenID)
	return out, nil
}

// Delete removes the recorded program with the given id.
func (s *Store) Delete(ctx context.Context, id int64) error {
	if err := s.p.DeleteRecorded(ctx, id); err != nil {
		return mapNotFound(err)
	}
	metrics.RecordRecordingWrite("delete")
	return nil
}

func (s *Store) withInput(rp RecordedProgram) RecordedProgram {
	if rp.InputID() != "" || s.inputID == "" {
		return rp
	}
	b := rp.ToBuilder()
	b.InputID = s.inputID
	return b.Build()
}

func mapNotFound(err error) error {
	if errors.Is(err, provider.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}
