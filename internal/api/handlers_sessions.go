// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/tvinput/internal/banner"
	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/playback"
)

type tuneRequest struct {
	ChannelURI string `json:"channel_uri"`
}

type tuneResponse struct {
	Tuned   bool              `json:"tuned"`
	Session playback.Snapshot `json:"session"`
}

type keyRequest struct {
	Key playback.Key `json:"key"`
}

type volumeRequest struct {
	Volume *float64 `json:"volume"`
}

type surfaceRequest struct {
	Target string `json:"target"`
}

type layoutRequest struct {
	WidthPx int `json:"width_px"`
}

func (s *Server) session(w http.ResponseWriter, r *http.Request) (*playback.Session, bool) {
	sess, err := s.deps.Playback.Session(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return sess, true
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions := s.deps.Playback.Sessions()
	out := make([]playback.Snapshot, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Snapshot())
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.deps.Playback.CreateSession(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.deps.App != nil {
		s.deps.App.Tracker().SendScreenView("session")
	}
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleReleaseSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Playback.ReleaseSession(id); err != nil {
		writeError(w, r, err)
		return
	}
	if s.deps.Banners != nil {
		s.deps.Banners.Drop(id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleTune answers 200 with tuned=false when the channel exists but its
// source could not be bound, and 404 for an unknown channel.
func (s *Server) handleTune(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req tuneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.ChannelURI == "" {
		writeError(w, r, badRequest("channel_uri is required"))
		return
	}

	ctx := log.ContextWithSessionID(r.Context(), sess.ID())
	tuned, err := sess.Tune(ctx, req.ChannelURI)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if s.deps.App != nil {
		s.deps.App.Tracker().SendEvent("playback", "tune", req.ChannelURI)
	}
	if tuned {
		s.refreshBanner(r, sess)
	}
	writeJSON(w, http.StatusOK, tuneResponse{Tuned: tuned, Session: sess.Snapshot()})
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req keyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"handled": sess.KeyDown(req.Key)})
}

func (s *Server) handleVolume(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req volumeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Volume == nil {
		writeError(w, r, badRequest("volume is required"))
		return
	}
	if *req.Volume < 0 || *req.Volume > 1 {
		writeError(w, r, badRequest("volume must be within [0, 1]"))
		return
	}
	if err := sess.SetStreamVolume(*req.Volume); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleSurface(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req surfaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := sess.SetSurface(req.Target); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleBanner(w http.ResponseWriter, r *http.Request) {
	if s.deps.Banners == nil {
		writeNotFound(w)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.refreshBanner(r, sess))
}

func (s *Server) handleBannerLayout(w http.ResponseWriter, r *http.Request) {
	if s.deps.Banners == nil {
		writeNotFound(w)
		return
	}
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	var req layoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.WidthPx <= 0 {
		writeError(w, r, badRequest("width_px must be positive"))
		return
	}
	view := s.deps.Banners.Banner(sess.ID()).OnLayout(r.Context(), req.WidthPx)
	writeJSON(w, http.StatusOK, view)
}

// refreshBanner renders the session's banner from its current channel and
// stream. A session that never tuned keeps its last view.
func (s *Server) refreshBanner(r *http.Request, sess *playback.Session) banner.View {
	if s.deps.Banners == nil {
		return banner.View{}
	}
	b := s.deps.Banners.Banner(sess.ID())
	entry, ok := sess.Current()
	if !ok {
		return b.View()
	}
	snap := sess.Snapshot()
	d := entry.Descriptor
	state := banner.ChannelState{
		InputID:       s.deps.InputID,
		ChannelURI:    entry.URI,
		DisplayNumber: d.Number,
		DisplayName:   d.Name,
		LogoURI:       d.LogoURL,
	}
	stream := banner.StreamInfo{
		HasClosedCaption: snap.Stream.HasClosedCaption,
		DefinitionLevel:  banner.DefinitionFromSize(snap.Stream.VideoWidth, snap.Stream.VideoHeight),
		VideoWidth:       snap.Stream.VideoWidth,
		VideoHeight:      snap.Stream.VideoHeight,
		AudioChannels:    snap.Stream.AudioChannels,
	}
	return b.Update(r.Context(), state, stream)
}
