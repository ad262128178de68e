// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package media is the playback port and its ffmpeg and stub adapters.
package media

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrIllegalState is returned when a call does not fit the player's state.
	ErrIllegalState = errors.New("media: illegal player state")
	// ErrResourceNotFound is returned when a bundled resource id has no file.
	ErrResourceNotFound = errors.New("media: resource not found")
	// ErrInvalidSource is returned for malformed source references.
	ErrInvalidSource = errors.New("media: invalid source")
)

// Source is a bound playable input: a URL or a resolved local file.
type Source struct {
	URL  string
	Path string
}

// Input returns the string handed to the decoder.
func (s Source) Input() string {
	if s.URL != "" {
		return s.URL
	}
	return s.Path
}

// IsNetwork reports whether the source streams over HTTP(S).
func (s Source) IsNetwork() bool {
	u := strings.ToLower(s.URL)
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// Player is the playback engine a tuning session drives. Callbacks may fire
// on any goroutine; implementations never invoke them after Release.
type Player interface {
	SetDataSource(src Source) error
	SetLooping(loop bool)
	PrepareAsync(ctx context.Context) error
	OnPrepared(fn func())
	OnVideoSizeChanged(fn func(width, height int))
	OnError(fn func(err error))
	IsPlaying() bool
	Duration() time.Duration
	SeekTo(pos time.Duration) error
	Start() error
	SetVolume(v float64)
	// SetSurface binds the output target. Empty means discard.
	SetSurface(target string)
	Reset()
	Release()
}

// Factory builds one player per session.
type Factory func() Player
