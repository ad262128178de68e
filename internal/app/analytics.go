package app

import (
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tvinput/internal/log"
)

// Tracker records user-visible events.
type Tracker interface {
	SendEvent(category, action, label string)
	SendScreenView(name string)
}

// Analytics hands out trackers.
type Analytics interface {
	DefaultTracker() Tracker
	SetOptOut(optOut bool)
}

// StubAnalytics logs events instead of reporting them.
type StubAnalytics struct {
	optOut  atomic.Bool
	tracker *logTracker
}

// NewStubAnalytics returns analytics backed by the debug log.
func NewStubAnalytics() *StubAnalytics {
	a := &StubAnalytics{}
	a.tracker = &logTracker{analytics: a, logger: log.WithComponent("analytics")}
	return a
}

func (a *StubAnalytics) DefaultTracker() Tracker { return a.tracker }
func (a *StubAnalytics) SetOptOut(optOut bool)   { a.optOut.Store(optOut) }

type logTracker struct {
	analytics *StubAnalytics
	logger    zerolog.Logger
	events    atomic.Int64
}

func (t *logTracker) SendEvent(category, action, label string) {
	if t.analytics.optOut.Load() {
		return
	}
	t.events.Add(1)
	t.logger.Debug().Str("category", category).Str("action", action).Str("label", label).Msg("event")
}

func (t *logTracker) SendScreenView(name string) {
	if t.analytics.optOut.Load() {
		return
	}
	t.events.Add(1)
	t.logger.Debug().Str("screen", name).Msg("screen view")
}
