// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package epg fabricates guide data for synthetic channels and exports it as XMLTV.
package epg

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/codes"

	"github.com/ManuGH/tvinput/internal/channels"
	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/metrics"
	"github.com/ManuGH/tvinput/internal/provider"
	"github.com/ManuGH/tvinput/internal/telemetry"
)

// ErrStopped is returned by Schedule after Stop.
var ErrStopped = errors.New("epg: scheduler stopped")

// ProgramStore is the part of the provider the scheduler writes to.
type ProgramStore interface {
	ProgramsAt(ctx context.Context, channelID, atMillis int64) ([]provider.ProgramRow, error)
	InsertProgram(ctx context.Context, pr provider.ProgramRow) (string, error)
}

type task struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Scheduler runs one deferred fill per channel. Scheduling a channel again
// supersedes its pending fill.
type Scheduler struct {
	store  ProgramStore
	logger zerolog.Logger

	Delay       time.Duration
	RepeatCount int

	clock Clock

	mu      sync.Mutex
	pending map[int64]*task
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler returns a scheduler writing to store.
func NewScheduler(store ProgramStore) *Scheduler {
	return &Scheduler{
		store:       store,
		logger:      log.WithComponent("epg.scheduler"),
		Delay:       time.Second,
		RepeatCount: DefaultRepeatCount,
		clock:       RealClock{},
		pending:     make(map[int64]*task),
	}
}

// WithClock replaces the time source.
func (s *Scheduler) WithClock(c Clock) *Scheduler {
	s.clock = c
	return s
}

// Schedule queues a fill for the channel at channelURI after Delay.
func (s *Scheduler) Schedule(channelURI string, tmpl channels.ProgramTemplate) error {
	channelID, err := provider.ParseID(channelURI)
	if err != nil {
		return err
	}
	if tmpl.DurationSec == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return ErrStopped
	}
	if prev, ok := s.pending[channelID]; ok {
		prev.cancel()
		s.logger.Debug().Int64(log.FieldChannelID, channelID).Msg("superseded pending program fill")
	}

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{cancel: cancel, done: make(chan struct{})}
	s.pending[channelID] = t
	timer := s.clock.NewTimer(s.Delay)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(t.done)
		defer timer.Stop()
		defer func() {
			s.mu.Lock()
			if s.pending[channelID] == t {
				delete(s.pending, channelID)
			}
			s.mu.Unlock()
			cancel()
		}()

		select {
		case <-ctx.Done():
			return
		case <-timer.C():
		}
		if _, err := s.Fill(ctx, channelID, tmpl); err != nil && ctx.Err() == nil {
			s.logger.Warn().Err(err).Int64(log.FieldChannelID, channelID).Msg("program fill failed")
		}
	}()
	return nil
}

// Pending reports how many fills are waiting or running.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Fill inserts every slot of tmpl not yet covered by a program row and
// returns the number inserted. Each slot is checked separately.
func (s *Scheduler) Fill(ctx context.Context, channelID int64, tmpl channels.ProgramTemplate) (inserted int, err error) {
	slots := Slots(tmpl, s.clock.Now(), s.RepeatCount)
	if len(slots) == 0 {
		return 0, nil
	}

	ctx, span := telemetry.Tracer(telemetry.TracerScheduler).Start(ctx, "scheduler.fill")
	defer func() {
		span.SetAttributes(telemetry.ScheduleAttributes(len(slots), inserted)...)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	for _, slot := range slots {
		if err := ctx.Err(); err != nil {
			return inserted, err
		}
		existing, err := s.store.ProgramsAt(ctx, channelID, slot.StartMillis+1000)
		if err != nil {
			return inserted, fmt.Errorf("check slot %d: %w", slot.StartMillis, err)
		}
		if len(existing) > 0 {
			metrics.RecordScheduledSlot("skipped")
			continue
		}
		if _, err := s.store.InsertProgram(ctx, provider.ProgramRow{
			ChannelID:          channelID,
			Title:              tmpl.Title,
			ShortDescription:   tmpl.Description,
			PosterArtURI:       tmpl.PosterArtURI,
			StartTimeUTCMillis: slot.StartMillis,
			EndTimeUTCMillis:   slot.EndMillis,
		}); err != nil {
			return inserted, fmt.Errorf("insert slot %d: %w", slot.StartMillis, err)
		}
		metrics.RecordScheduledSlot("inserted")
		inserted++
	}

	s.logger.Info().
		Int64(log.FieldChannelID, channelID).
		Int("slots", len(slots)).
		Int("inserted", inserted).
		Msg("program slots filled")
	return inserted, nil
}

// Stop cancels pending fills and waits for running ones to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for _, t := range s.pending {
		t.cancel()
	}
	s.mu.Unlock()
	s.wg.Wait()
}
