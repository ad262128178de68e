// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package watchdog detects media processes that stop making progress. It
// consumes the key=value lines ffmpeg writes with -progress.
package watchdog

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ManuGH/tvinput/internal/log"
)

var (
	// ErrNoProgress is returned when nothing is produced before the start timeout.
	ErrNoProgress = errors.New("watchdog: no progress before start timeout")
	// ErrStalled is returned when progress stops for longer than the stall timeout.
	ErrStalled = errors.New("watchdog: progress stalled")
)

// State of the watched process.
type State int

const (
	StateStarting State = iota
	StateRunning
	StateStalled
	StateTimedOut
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStalled:
		return "stalled"
	case StateTimedOut:
		return "timed_out"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

type clock interface {
	Now() time.Time
	NewTicker(d time.Duration) ticker
}

type ticker interface {
	C() <-chan time.Time
	Stop()
}

type systemClock struct{}

func (systemClock) Now() time.Time                   { return time.Now() }
func (systemClock) NewTicker(d time.Duration) ticker { return timeTicker{time.NewTicker(d)} }

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// Watchdog tracks progress lines and fails Run when they dry up.
type Watchdog struct {
	startTimeout time.Duration
	stallTimeout time.Duration
	interval     time.Duration
	clock        clock

	mu           sync.Mutex
	outTimeUs    int64
	totalSize    int64
	lastProgress time.Time
	state        State
	completed    chan struct{}
}

// New returns a watchdog in StateStarting.
func New(startTimeout, stallTimeout time.Duration) *Watchdog {
	return &Watchdog{
		startTimeout: startTimeout,
		stallTimeout: stallTimeout,
		interval:     time.Second,
		clock:        systemClock{},
		completed:    make(chan struct{}),
	}
}

// Run checks progress once per interval until ctx ends, the process reports
// the end of its output, or a timeout fires.
func (w *Watchdog) Run(ctx context.Context) error {
	w.mu.Lock()
	w.lastProgress = w.clock.Now()
	w.mu.Unlock()

	t := w.clock.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.completed:
			return nil
		case <-t.C():
			if err := w.check(); err != nil {
				return err
			}
		}
	}
}

// Observe feeds one progress line. Unknown keys and malformed values are
// ignored. Counters only count as progress when they grow.
func (w *Watchdog) Observe(line string) {
	key, val, ok := strings.Cut(strings.TrimSpace(line), "=")
	if !ok {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	switch key {
	case "out_time_us", "out_time_ms":
		if us, err := strconv.ParseInt(val, 10, 64); err == nil && us > w.outTimeUs {
			w.outTimeUs = us
			w.progressLocked()
		}
	case "total_size":
		if size, err := strconv.ParseInt(val, 10, 64); err == nil && size > w.totalSize {
			w.totalSize = size
			w.progressLocked()
		}
	case "progress":
		if val == "end" && w.state != StateCompleted {
			w.state = StateCompleted
			close(w.completed)
		}
	}
}

func (w *Watchdog) progressLocked() {
	w.lastProgress = w.clock.Now()
	if w.state == StateStarting {
		w.state = StateRunning
		logger := log.WithComponent("watchdog")
		logger.Debug().Msg("media process is making progress")
	}
}

func (w *Watchdog) check() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	idle := w.clock.Now().Sub(w.lastProgress)
	switch w.state {
	case StateStarting:
		if idle > w.startTimeout {
			w.state = StateTimedOut
			return ErrNoProgress
		}
	case StateRunning:
		if idle > w.stallTimeout {
			w.state = StateStalled
			return ErrStalled
		}
	}
	return nil
}

// State returns the current state.
func (w *Watchdog) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}
