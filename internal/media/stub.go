// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package media

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// StubPlayer is a deterministic in-memory player. With ManualPrepare unset,
// PrepareAsync completes immediately on the calling goroutine.
type StubPlayer struct {
	// Probe is reported once preparation completes.
	Probe ProbeResult
	// ManualPrepare defers completion until CompletePrepare is called.
	ManualPrepare bool
	// FailSource makes SetDataSource reject sources for which it returns true.
	FailSource func(Source) bool

	mu       sync.Mutex
	state    playerState
	src      Source
	looping  bool
	volume   float64
	surface  string
	seeks    []time.Duration
	starts   int
	resets   int
	releases int

	onPrepared func()
	onSize     func(int, int)
	onError    func(error)
}

// NewStubPlayer returns a stub that reports probe on preparation.
func NewStubPlayer(probe ProbeResult) *StubPlayer {
	return &StubPlayer{Probe: probe, volume: 1.0}
}

func (s *StubPlayer) SetDataSource(src Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateIdle {
		return fmt.Errorf("%w: set data source in state %d", ErrIllegalState, s.state)
	}
	if src.Input() == "" || (s.FailSource != nil && s.FailSource(src)) {
		return fmt.Errorf("%w: %q", ErrInvalidSource, src.Input())
	}
	s.src = src
	s.state = stateInitialized
	return nil
}

func (s *StubPlayer) SetLooping(loop bool) {
	s.mu.Lock()
	s.looping = loop
	s.mu.Unlock()
}

func (s *StubPlayer) OnPrepared(fn func()) {
	s.mu.Lock()
	s.onPrepared = fn
	s.mu.Unlock()
}

func (s *StubPlayer) OnVideoSizeChanged(fn func(int, int)) {
	s.mu.Lock()
	s.onSize = fn
	s.mu.Unlock()
}

func (s *StubPlayer) OnError(fn func(error)) {
	s.mu.Lock()
	s.onError = fn
	s.mu.Unlock()
}

func (s *StubPlayer) PrepareAsync(_ context.Context) error {
	s.mu.Lock()
	if s.state != stateInitialized {
		s.mu.Unlock()
		return fmt.Errorf("%w: prepare in state %d", ErrIllegalState, s.state)
	}
	s.state = statePreparing
	manual := s.ManualPrepare
	s.mu.Unlock()
	if !manual {
		s.CompletePrepare()
	}
	return nil
}

// CompletePrepare finishes a pending preparation and fires the callbacks.
func (s *StubPlayer) CompletePrepare() {
	s.mu.Lock()
	if s.state != statePreparing {
		s.mu.Unlock()
		return
	}
	s.state = statePrepared
	onSize, onPrepared := s.onSize, s.onPrepared
	w, h := s.Probe.Width, s.Probe.Height
	s.mu.Unlock()

	if onSize != nil && w > 0 && h > 0 {
		onSize(w, h)
	}
	if onPrepared != nil {
		onPrepared()
	}
}

// FailPrepare aborts a pending preparation with err.
func (s *StubPlayer) FailPrepare(err error) {
	s.mu.Lock()
	if s.state != statePreparing {
		s.mu.Unlock()
		return
	}
	s.state = stateIdle
	onError := s.onError
	s.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}

func (s *StubPlayer) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateStarted
}

func (s *StubPlayer) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != statePrepared && s.state != stateStarted {
		return 0
	}
	return s.Probe.Duration
}

func (s *StubPlayer) SeekTo(pos time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != statePrepared && s.state != stateStarted {
		return fmt.Errorf("%w: seek in state %d", ErrIllegalState, s.state)
	}
	s.seeks = append(s.seeks, pos)
	return nil
}

func (s *StubPlayer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != statePrepared && s.state != stateStarted {
		return fmt.Errorf("%w: start in state %d", ErrIllegalState, s.state)
	}
	s.state = stateStarted
	s.starts++
	return nil
}

func (s *StubPlayer) SetVolume(v float64) {
	s.mu.Lock()
	s.volume = v
	s.mu.Unlock()
}

func (s *StubPlayer) SetSurface(target string) {
	s.mu.Lock()
	s.surface = target
	s.mu.Unlock()
}

func (s *StubPlayer) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == stateReleased {
		return
	}
	s.resets++
	s.src = Source{}
	s.looping = false
	s.state = stateIdle
}

func (s *StubPlayer) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.releases++
	s.onPrepared, s.onSize, s.onError = nil, nil, nil
	s.state = stateReleased
}

// StubState is a snapshot of what a StubPlayer has been asked to do.
type StubState struct {
	Source   Source
	Looping  bool
	Volume   float64
	Surface  string
	Playing  bool
	Seeks    []time.Duration
	Starts   int
	Resets   int
	Releases int
}

// State returns a snapshot for assertions and status reporting.
func (s *StubPlayer) State() StubState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StubState{
		Source:   s.src,
		Looping:  s.looping,
		Volume:   s.volume,
		Surface:  s.surface,
		Playing:  s.state == stateStarted,
		Seeks:    append([]time.Duration(nil), s.seeks...),
		Starts:   s.starts,
		Resets:   s.resets,
		Releases: s.releases,
	}
}

var _ Player = (*StubPlayer)(nil)
