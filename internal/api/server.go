// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package api serves the control API of the TV input daemon.
package api

import (
	"context"
	_ "embed"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ManuGH/tvinput/internal/api/middleware"
	"github.com/ManuGH/tvinput/internal/app"
	"github.com/ManuGH/tvinput/internal/banner"
	"github.com/ManuGH/tvinput/internal/channels"
	"github.com/ManuGH/tvinput/internal/health"
	"github.com/ManuGH/tvinput/internal/playback"
	"github.com/ManuGH/tvinput/internal/provider"
	"github.com/ManuGH/tvinput/internal/recordings"
)

//go:embed openapi.yaml
var openapiSpec []byte

// ChannelDirectory lists and resolves configured channels.
type ChannelDirectory interface {
	Entries(ctx context.Context) ([]channels.Entry, error)
	LookupByID(ctx context.Context, id int64) (channels.Entry, error)
}

// ChannelVisibility tracks which channels are shown in the guide.
type ChannelVisibility interface {
	IsBrowsable(number string) bool
	SetBrowsable(number string, browsable bool) error
}

// ProgramLister reads the guide of one channel.
type ProgramLister interface {
	ListPrograms(ctx context.Context, channelID, from, to int64) ([]provider.ProgramRow, error)
}

// RecordingStore persists recorded programs.
type RecordingStore interface {
	Insert(ctx context.Context, rp recordings.RecordedProgram) (recordings.RecordedProgram, error)
	Update(ctx context.Context, rp recordings.RecordedProgram) error
	Get(ctx context.Context, id int64) (recordings.RecordedProgram, error)
	List(ctx context.Context) ([]recordings.RecordedProgram, error)
	Delete(ctx context.Context, id int64) error
}

// GuideWriter renders the guide as XMLTV.
type GuideWriter interface {
	WriteTo(ctx context.Context, w io.Writer) error
}

// Deps are the services behind the API.
type Deps struct {
	Playback   *playback.Service
	Channels   ChannelDirectory
	Visibility ChannelVisibility
	Programs   ProgramLister
	Recordings RecordingStore
	Banners    *banner.Renderer
	Guide      GuideWriter
	App        *app.Singletons
	Health     *health.Manager

	InputID string
	// PackageName is assumed for recordings posted without one.
	PackageName string

	RateLimitEnabled bool
	RateLimitRPM     int
	// TracingService names the server spans. Empty disables HTTP tracing.
	TracingService string

	Now func() time.Time
}

// Server routes control API requests.
type Server struct {
	deps    Deps
	handler http.Handler
}

// New validates deps and builds the router.
func New(deps Deps) (*Server, error) {
	switch {
	case deps.Playback == nil:
		return nil, errors.New("api: playback service is required")
	case deps.Channels == nil:
		return nil, errors.New("api: channel directory is required")
	case deps.Health == nil:
		return nil, errors.New("api: health manager is required")
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{deps: deps}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) routes() http.Handler {
	r := middleware.NewRouter(middleware.StackConfig{
		EnableMetrics:    true,
		TracingService:   s.deps.TracingService,
		EnableLogging:    true,
		RateLimitEnabled: s.deps.RateLimitEnabled,
		RateLimitRPM:     s.deps.RateLimitRPM,
	})

	r.Get("/healthz", s.deps.Health.ServeHealth)
	r.Get("/readyz", s.deps.Health.ServeReady)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	if s.deps.Guide != nil {
		r.Get("/xmltv.xml", s.handleXMLTV)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/openapi.yaml", handleOpenAPI)
		r.Get("/app", s.handleAppInfo)

		r.Get("/channels", s.handleListChannels)
		r.Get("/channels/{id}", s.handleGetChannel)
		r.Get("/channels/{id}/programs", s.handleChannelPrograms)
		r.Put("/channels/{id}/browsable", s.handleSetBrowsable)

		r.Route("/sessions", func(r chi.Router) {
			r.Get("/", s.handleListSessions)
			r.Post("/", s.handleCreateSession)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSession)
				r.Delete("/", s.handleReleaseSession)
				r.Post("/tune", s.handleTune)
				r.Post("/keys", s.handleKey)
				r.Put("/volume", s.handleVolume)
				r.Put("/surface", s.handleSurface)
				r.Get("/banner", s.handleBanner)
				r.Post("/banner/layout", s.handleBannerLayout)
			})
		})

		if s.deps.Recordings != nil {
			r.Route("/recordings", func(r chi.Router) {
				r.Get("/", s.handleListRecordings)
				r.Post("/", s.handleCreateRecording)
				r.Get("/{id}", s.handleGetRecording)
				r.Put("/{id}", s.handleUpdateRecording)
				r.Delete("/{id}", s.handleDeleteRecording)
			})
		}
	})
	return r
}

func handleOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(openapiSpec)
}

func (s *Server) handleAppInfo(w http.ResponseWriter, r *http.Request) {
	if s.deps.App == nil {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, s.deps.App.Info())
}
