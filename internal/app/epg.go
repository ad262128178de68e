// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package app

import (
	"context"
	"time"

	"github.com/ManuGH/tvinput/internal/provider"
)

// EpgSource is the provider surface the EPG reader reads from.
type EpgSource interface {
	QueryChannels(ctx context.Context, inputID string) ([]provider.ChannelRow, error)
	ListPrograms(ctx context.Context, channelID, from, to int64) ([]provider.ProgramRow, error)
}

// EpgReader reads the electronic program guide.
type EpgReader interface {
	// IsAvailable reports whether a remote guide service is reachable.
	IsAvailable() bool
	Channels(ctx context.Context) ([]provider.ChannelRow, error)
	Programs(ctx context.Context, channelID int64, from, to time.Time) ([]provider.ProgramRow, error)
}

// StubEpgReader serves the locally synthesized guide. There is no remote
// service behind it.
type StubEpgReader struct {
	source  EpgSource
	inputID string
}

// NewStubEpgReader reads channels of inputID from source.
func NewStubEpgReader(source EpgSource, inputID string) *StubEpgReader {
	return &StubEpgReader{source: source, inputID: inputID}
}

func (r *StubEpgReader) IsAvailable() bool { return false }

func (r *StubEpgReader) Channels(ctx context.Context) ([]provider.ChannelRow, error) {
	if r.source == nil {
		return nil, nil
	}
	return r.source.QueryChannels(ctx, r.inputID)
}

func (r *StubEpgReader) Programs(ctx context.Context, channelID int64, from, to time.Time) ([]provider.ProgramRow, error) {
	if r.source == nil {
		return nil, nil
	}
	return r.source.ListPrograms(ctx, channelID, from.UnixMilli(), to.UnixMilli())
}
