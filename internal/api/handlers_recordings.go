// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"net/http"

	"github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/recordings"
)

func (s *Server) handleListRecordings(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Recordings.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if list == nil {
		list = []recordings.RecordedProgram{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleGetRecording(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rp, err := s.deps.Recordings.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rp)
}

// decodeRecording reads a Builder body on top of the builder defaults, so
// omitted ids stay unset.
func decodeRecording(w http.ResponseWriter, r *http.Request) (recordings.Builder, error) {
	b := recordings.NewBuilder()
	if err := decodeJSON(w, r, &b); err != nil {
		return b, err
	}
	if b.ChannelID < 0 && b.ChannelID != recordings.IDNotSet {
		return b, badRequest("invalid channel_id")
	}
	return b, nil
}

func (s *Server) withDefaults(b recordings.Builder) recordings.Builder {
	if b.PackageName == "" {
		b.PackageName = s.deps.PackageName
	}
	if b.InputID == "" {
		b.InputID = s.deps.InputID
	}
	return b
}

func (s *Server) handleCreateRecording(w http.ResponseWriter, r *http.Request) {
	b, err := decodeRecording(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b = s.withDefaults(b)
	b.ID = recordings.IDNotSet
	rp, err := s.deps.Recordings.Insert(r.Context(), b.Build())
	if err != nil {
		writeError(w, r, err)
		return
	}
	logger := log.WithComponentFromContext(r.Context(), "api")
	logger.Info().Int64(log.FieldRecordingID, rp.ID()).Str(log.FieldProgramTitle, rp.Title()).Msg("recording added")
	w.Header().Set("Location", rp.URI())
	writeJSON(w, http.StatusCreated, rp)
}

func (s *Server) handleUpdateRecording(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := decodeRecording(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	rp := s.withDefaults(b).Build().WithID(id)
	if err := s.deps.Recordings.Update(r.Context(), rp); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.deps.Recordings.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteRecording(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.deps.Recordings.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
