// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"
	"time"

	"github.com/ManuGH/tvinput/internal/channels"
	"github.com/ManuGH/tvinput/internal/provider"
)

// defaultGuideWindow is the span of /programs when no bounds are given.
const defaultGuideWindow = 6 * time.Hour

type channelJSON struct {
	ID               int64  `json:"id"`
	URI              string `json:"uri"`
	Number           string `json:"number"`
	Name             string `json:"name"`
	LogoURL          string `json:"logo_url,omitempty"`
	VideoWidth       int    `json:"video_width"`
	VideoHeight      int    `json:"video_height"`
	AudioChannels    int    `json:"audio_channels"`
	HasClosedCaption bool   `json:"has_closed_caption"`
	ProgramTitle     string `json:"program_title,omitempty"`
	Browsable        bool   `json:"browsable"`
}

func (s *Server) toChannelJSON(e channels.Entry) channelJSON {
	d := e.Descriptor
	browsable := true
	if s.deps.Visibility != nil {
		browsable = s.deps.Visibility.IsBrowsable(d.Number)
	}
	return channelJSON{
		ID:               e.ID,
		URI:              e.URI,
		Number:           d.Number,
		Name:             d.Name,
		LogoURL:          d.LogoURL,
		VideoWidth:       d.VideoWidth,
		VideoHeight:      d.VideoHeight,
		AudioChannels:    d.AudioChannels,
		HasClosedCaption: d.HasClosedCaption,
		ProgramTitle:     d.Program.Title,
		Browsable:        browsable,
	}
}

type programJSON struct {
	ID               int64  `json:"id"`
	URI              string `json:"uri"`
	ChannelID        int64  `json:"channel_id"`
	Title            string `json:"title"`
	ShortDescription string `json:"short_description,omitempty"`
	PosterArtURI     string `json:"poster_art_uri,omitempty"`
	StartMillis      int64  `json:"start_time_utc_millis"`
	EndMillis        int64  `json:"end_time_utc_millis"`
}

func toProgramJSON(p provider.ProgramRow) programJSON {
	return programJSON{
		ID:               p.ID,
		URI:              provider.ProgramURI(p.ID),
		ChannelID:        p.ChannelID,
		Title:            p.Title,
		ShortDescription: p.ShortDescription,
		PosterArtURI:     p.PosterArtURI,
		StartMillis:      p.StartTimeUTCMillis,
		EndMillis:        p.EndTimeUTCMillis,
	}
}

func (s *Server) handleListChannels(w http.ResponseWriter, r *http.Request) {
	entries, err := s.deps.Channels.Entries(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]channelJSON, 0, len(entries))
	for _, e := range entries {
		out = append(out, s.toChannelJSON(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetChannel(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.deps.Channels.LookupByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toChannelJSON(e))
}

type browsableRequest struct {
	Browsable *bool `json:"browsable"`
}

func (s *Server) handleSetBrowsable(w http.ResponseWriter, r *http.Request) {
	if s.deps.Visibility == nil {
		writeNotFound(w)
		return
	}
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req browsableRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Browsable == nil {
		writeError(w, r, badRequest("browsable is required"))
		return
	}
	e, err := s.deps.Channels.LookupByID(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Visibility.SetBrowsable(e.Descriptor.Number, *req.Browsable); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.toChannelJSON(e))
}

// handleChannelPrograms lists the programs overlapping [from, to], in epoch
// millis. The window defaults to the next six hours.
func (s *Server) handleChannelPrograms(w http.ResponseWriter, r *http.Request) {
	if s.deps.Programs == nil {
		writeNotFound(w)
		return
	}
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.deps.Channels.LookupByID(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	now := s.deps.Now().UnixMilli()
	from, err := int64Query(r, "from", now)
	if err != nil {
		writeError(w, r, err)
		return
	}
	to, err := int64Query(r, "to", from+defaultGuideWindow.Milliseconds())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if to < from {
		writeError(w, r, badRequest("to precedes from"))
		return
	}
	rows, err := s.deps.Programs.ListPrograms(r.Context(), id, from, to)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := make([]programJSON, 0, len(rows))
	for _, p := range rows {
		out = append(out, toProgramJSON(p))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleXMLTV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	if err := s.deps.Guide.WriteTo(r.Context(), w); err != nil {
		writeError(w, r, err)
	}
}
