// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/media"
	"github.com/ManuGH/tvinput/internal/metrics"
)

// ErrSessionNotFound is returned for unknown session ids.
var ErrSessionNotFound = errors.New("playback: session not found")

// ErrServiceClosed is returned by CreateSession after Shutdown.
var ErrServiceClosed = errors.New("playback: service closed")

// Directory is what the service needs from the channel directory.
type Directory interface {
	ChannelResolver
	EnsureLoaded(ctx context.Context) error
}

// ServiceConfig wires the collaborators of a Service.
type ServiceConfig struct {
	Directory Directory
	Resources SourceResolver
	Scheduler ProgramScheduler
	Players   media.Factory
	// Observers builds the observer of a new session. Nil logs changes.
	Observers func(sessionID string) Observer
	// DefaultSurface names the output of a session until a client binds one.
	// Nil leaves new sessions unbound.
	DefaultSurface func(sessionID string) string
	Now            func() time.Time
}

// Service is the TV input service: it owns the directory and every session.
type Service struct {
	cfg    ServiceConfig
	logger zerolog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
	closed   bool
}

// NewService validates cfg and returns an idle service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Directory == nil {
		return nil, fmt.Errorf("playback: directory is required")
	}
	if cfg.Players == nil {
		return nil, fmt.Errorf("playback: player factory is required")
	}
	return &Service{
		cfg:      cfg,
		logger:   log.WithComponent("playback"),
		sessions: make(map[string]*Session),
	}, nil
}

// Start loads the channel directory.
func (s *Service) Start(ctx context.Context) error {
	if err := s.cfg.Directory.EnsureLoaded(ctx); err != nil {
		return fmt.Errorf("load channels: %w", err)
	}
	s.logger.Info().Msg("tv input service started")
	return nil
}

// CreateSession opens a new session with its own player.
func (s *Service) CreateSession(ctx context.Context) (*Session, error) {
	id := uuid.NewString()
	var observer Observer
	if s.cfg.Observers != nil {
		observer = s.cfg.Observers(id)
	} else {
		observer = logObserver{logger: s.logger.With().Str(log.FieldSessionID, id).Logger()}
	}
	sess := newSession(id, sessionDeps{
		channels:  s.cfg.Directory,
		resources: s.cfg.Resources,
		scheduler: s.cfg.Scheduler,
		observer:  observer,
		player:    s.cfg.Players(),
		now:       s.cfg.Now,
	})
	if s.cfg.DefaultSurface != nil {
		_ = sess.SetSurface(s.cfg.DefaultSurface(id))
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		sess.Release()
		return nil, ErrServiceClosed
	}
	s.sessions[id] = sess
	s.mu.Unlock()

	metrics.IncActiveSessions()
	log.FromContext(ctx).Info().Str(log.FieldSessionID, id).Msg("session created")
	return sess, nil
}

// Session returns the session with id.
func (s *Service) Session(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return sess, nil
}

// Sessions lists open sessions ordered by id.
func (s *Service) Sessions() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// ReleaseSession releases and forgets session id.
func (s *Service) ReleaseSession(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.Release()
	metrics.DecActiveSessions()
	return nil
}

// Shutdown releases every session and rejects new ones.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	for _, sess := range sessions {
		if err := ctx.Err(); err != nil {
			return err
		}
		sess.Release()
		metrics.DecActiveSessions()
	}
	s.logger.Info().Int("released", len(sessions)).Msg("tv input service stopped")
	return nil
}

type logObserver struct {
	logger zerolog.Logger
}

func (o logObserver) VideoStreamChanged(width, height int, interlaced bool) {
	o.logger.Debug().Int("width", width).Int("height", height).Bool("interlaced", interlaced).Msg("video stream changed")
}

func (o logObserver) AudioStreamChanged(channels int) {
	o.logger.Debug().Int("audio_channels", channels).Msg("audio stream changed")
}

func (o logObserver) ClosedCaptionStreamChanged(hasClosedCaption bool) {
	o.logger.Debug().Bool("closed_caption", hasClosedCaption).Msg("closed caption stream changed")
}
