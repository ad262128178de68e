// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package playback implements tuning sessions and the input service that owns them.
package playback

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/tvinput/internal/channels"
	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/media"
	"github.com/ManuGH/tvinput/internal/metrics"
	"github.com/ManuGH/tvinput/internal/telemetry"
)

// ErrReleased is returned by operations on a released session.
var ErrReleased = errors.New("playback: session released")

// ChannelResolver resolves channel URIs, rebuilding on a miss.
type ChannelResolver interface {
	LookupByURI(ctx context.Context, uri string) (channels.Entry, error)
}

// ProgramScheduler fabricates guide rows after a tune.
type ProgramScheduler interface {
	Schedule(channelURI string, tmpl channels.ProgramTemplate) error
}

// SourceResolver maps bundled resource ids to media.
type SourceResolver interface {
	Resolve(id int) (media.Source, error)
}

// Session is one tuning session bound to a single player.
type Session struct {
	id        string
	channels  ChannelResolver
	resources SourceResolver
	scheduler ProgramScheduler
	observer  Observer
	now       func() time.Time
	logger    zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	opMu sync.Mutex // serializes session operations

	mu        sync.Mutex
	player    media.Player
	state     State
	gen       int
	current   *channels.Entry
	stream    StreamInfo
	volume    float64
	muted     bool
	available bool
	surface   string
}

// Snapshot is a point-in-time view of a session.
type Snapshot struct {
	ID            string     `json:"id"`
	State         State      `json:"state"`
	ChannelURI    string     `json:"channel_uri,omitempty"`
	ChannelNumber string     `json:"channel_number,omitempty"`
	ChannelName   string     `json:"channel_name,omitempty"`
	Volume        float64    `json:"volume"`
	Muted         bool       `json:"muted"`
	Available     bool       `json:"available"`
	Surface       string     `json:"surface,omitempty"`
	Playing       bool       `json:"playing"`
	Stream        StreamInfo `json:"stream"`
}

type sessionDeps struct {
	channels  ChannelResolver
	resources SourceResolver
	scheduler ProgramScheduler
	observer  Observer
	player    media.Player
	now       func() time.Time
}

func newSession(id string, deps sessionDeps) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	now := deps.now
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:        id,
		channels:  deps.channels,
		resources: deps.resources,
		scheduler: deps.scheduler,
		observer:  deps.observer,
		player:    deps.player,
		now:       now,
		logger:    log.Derive(func(c *zerolog.Context) { *c = c.Str(log.FieldComponent, "playback").Str(log.FieldSessionID, id) }),
		ctx:       ctx,
		cancel:    cancel,
		volume:    1.0,
		available: true,
	}
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Tune switches the session to channelURI. It returns false when the channel's
// source could not be bound; an unknown channel is an error.
func (s *Session) Tune(ctx context.Context, channelURI string) (ok bool, err error) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	ctx, span := telemetry.Tracer(telemetry.TracerPlayback).Start(ctx, "session.tune")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	s.mu.Lock()
	player := s.player
	released := s.state == StateReleased
	s.mu.Unlock()
	if released {
		return false, ErrReleased
	}

	entry, err := s.channels.LookupByURI(ctx, channelURI)
	if err != nil {
		metrics.RecordTune("unknown_channel")
		return false, err
	}
	span.SetAttributes(telemetry.ChannelAttributes(entry.Descriptor.Number, channelURI)...)
	logger := s.logger.With().Str(log.FieldChannelURI, channelURI).Str(log.FieldChannelNumber, entry.Descriptor.Number).Logger()

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.current = &entry
	s.stream = StreamInfo{}
	s.mu.Unlock()

	player.Reset()
	src, looping, bindErr := s.bind(player, entry.Descriptor.Program)
	span.SetAttributes(telemetry.TuneAttributes(s.id, sourceKind(src), looping, bindErr == nil)...)
	if bindErr != nil {
		player.Reset()
		s.fail(gen)
		metrics.RecordTune("bind_failed")
		logger.Debug().Err(bindErr).Msg("failed to set the data source")
		return false, nil
	}

	player.OnPrepared(func() { s.onPrepared(gen) })
	player.OnVideoSizeChanged(func(int, int) { s.onVideoSizeChanged(gen) })
	player.OnError(func(err error) { s.onError(gen, err) })

	s.setState(gen, StatePreparing)
	if err := player.PrepareAsync(s.ctx); err != nil {
		s.fail(gen)
		metrics.RecordTune("prepare_failed")
		logger.Debug().Err(err).Msg("prepare rejected")
		return false, nil
	}

	if s.scheduler != nil {
		if err := s.scheduler.Schedule(channelURI, entry.Descriptor.Program); err != nil {
			logger.Warn().Err(err).Msg("program fill not scheduled")
		}
	}

	metrics.RecordTune("ok")
	logger.Info().Str(log.FieldSource, src.Input()).Bool("looping", looping).Msg("tuned")
	return true, nil
}

// bind configures player with the template's source. Network sources do not loop.
func (s *Session) bind(player media.Player, tmpl channels.ProgramTemplate) (media.Source, bool, error) {
	var src media.Source
	if tmpl.URL != "" {
		src = media.Source{URL: tmpl.URL}
	} else {
		if s.resources == nil {
			return src, false, media.ErrResourceNotFound
		}
		resolved, err := s.resources.Resolve(tmpl.ResourceID)
		if err != nil {
			return src, false, err
		}
		src = resolved
	}
	if err := player.SetDataSource(src); err != nil {
		return src, false, err
	}
	looping := !src.IsNetwork()
	if looping {
		player.SetLooping(true)
	}
	return src, looping, nil
}

func sourceKind(src media.Source) string {
	switch {
	case src.IsNetwork():
		return "network"
	case src.URL != "":
		return "url"
	case src.Path != "":
		return "resource"
	default:
		return "none"
	}
}

// live returns the player when gen is still the active tune of a live session.
func (s *Session) live(gen int) (media.Player, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReleased || gen != s.gen || s.player == nil {
		return nil, false
	}
	return s.player, true
}

func (s *Session) setState(gen int, st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReleased || gen != s.gen {
		return
	}
	if s.state != st {
		s.logger.Debug().Str(log.FieldOldState, s.state.String()).Str(log.FieldNewState, st.String()).Msg("session state changed")
	}
	s.state = st
}

// fail marks the tune of generation gen as failed and drops the channel it
// was tuning to.
func (s *Session) fail(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReleased || gen != s.gen {
		return
	}
	if s.state != StateFailed {
		s.logger.Debug().Str(log.FieldOldState, s.state.String()).Str(log.FieldNewState, StateFailed.String()).Msg("session state changed")
	}
	s.current = nil
	s.stream = StreamInfo{}
	s.state = StateFailed
}

// onPrepared seeks to the pseudo-live position now mod duration and starts.
func (s *Session) onPrepared(gen int) {
	player, ok := s.live(gen)
	if !ok {
		return
	}
	if !player.IsPlaying() {
		if ms := player.Duration().Milliseconds(); ms > 0 {
			pos := time.Duration(s.now().UnixMilli()%ms) * time.Millisecond
			if err := player.SeekTo(pos); err != nil {
				s.logger.Debug().Err(err).Msg("seek failed")
			}
		}
		if err := player.Start(); err != nil {
			s.logger.Warn().Err(err).Msg("start failed")
			s.setState(gen, StateFailed)
			return
		}
	}
	s.setState(gen, StateReady)
}

// onVideoSizeChanged reports the declared channel capabilities, not the decoded ones.
func (s *Session) onVideoSizeChanged(gen int) {
	if _, ok := s.live(gen); !ok {
		return
	}
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return
	}
	d := s.current.Descriptor
	s.stream = StreamInfo{
		VideoWidth:       d.VideoWidth,
		VideoHeight:      d.VideoHeight,
		AudioChannels:    d.AudioChannels,
		HasClosedCaption: d.HasClosedCaption,
		Known:            true,
	}
	observer := s.observer
	s.mu.Unlock()

	if observer != nil {
		observer.VideoStreamChanged(d.VideoWidth, d.VideoHeight, false)
		observer.AudioStreamChanged(d.AudioChannels)
		observer.ClosedCaptionStreamChanged(d.HasClosedCaption)
	}
}

func (s *Session) onError(gen int, err error) {
	if _, ok := s.live(gen); !ok {
		return
	}
	s.logger.Warn().Err(err).Msg("playback error")
	s.mu.Lock()
	preparing := s.state == StatePreparing
	s.mu.Unlock()
	if preparing {
		s.fail(gen)
		return
	}
	s.setState(gen, StateFailed)
}

// KeyDown handles a remote key and reports whether it was consumed.
func (s *Session) KeyDown(key Key) bool {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReleased {
		return false
	}
	switch key {
	case KeyMute:
		s.muted = !s.muted
		if s.muted {
			s.player.SetVolume(0)
		} else {
			s.player.SetVolume(s.volume)
		}
		return true
	case KeyAvailability:
		// Simulates an HDMI plug change. Not propagated to clients.
		s.available = !s.available
		s.logger.Info().Bool("available", s.available).Msg("input availability toggled")
		return true
	default:
		return false
	}
}

// SetStreamVolume stores v and applies it unless muted.
func (s *Session) SetStreamVolume(v float64) error {
	if v < 0 || v > 1 {
		return errors.New("playback: volume must be within [0, 1]")
	}
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReleased {
		return ErrReleased
	}
	s.volume = v
	if !s.muted {
		s.player.SetVolume(v)
	}
	return nil
}

// SetSurface binds the output target.
func (s *Session) SetSurface(target string) error {
	s.opMu.Lock()
	defer s.opMu.Unlock()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateReleased {
		return ErrReleased
	}
	s.surface = target
	s.player.SetSurface(target)
	return nil
}

// Release frees the player exactly once. Later calls are no-ops.
func (s *Session) Release() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.mu.Lock()
	if s.state == StateReleased {
		s.mu.Unlock()
		return
	}
	s.state = StateReleased
	s.gen++
	player := s.player
	s.player = nil
	s.mu.Unlock()

	s.cancel()
	if player != nil {
		player.Release()
	}
	s.logger.Info().Msg("session released")
}

// Snapshot returns the current session view.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:        s.id,
		State:     s.state,
		Volume:    s.volume,
		Muted:     s.muted,
		Available: s.available,
		Surface:   s.surface,
		Stream:    s.stream,
	}
	if s.current != nil {
		snap.ChannelURI = s.current.URI
		snap.ChannelNumber = s.current.Descriptor.Number
		snap.ChannelName = s.current.Descriptor.Name
	}
	if s.player != nil {
		snap.Playing = s.player.IsPlaying()
	}
	return snap
}

// Current returns the tuned channel, if any.
func (s *Session) Current() (channels.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return channels.Entry{}, false
	}
	return *s.current, true
}
