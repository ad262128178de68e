// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package provider is the TV provider: the persistent store of channels,
// program guide rows and recorded programs that inputs and the UI share.
package provider

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Authority is the host part of every provider URI.
const Authority = "tvinput"

const uriPrefix = "content://" + Authority + "/"

// Tables.
const (
	TableChannels         = "channels"
	TablePrograms         = "programs"
	TableRecordedPrograms = "recorded_programs"
)

// Common columns.
const (
	ColumnID = "_id"
)

// Recorded program columns.
const (
	ColumnPackageName                  = "package_name"
	ColumnInputID                      = "input_id"
	ColumnChannelID                    = "channel_id"
	ColumnTitle                        = "title"
	ColumnSeasonDisplayNumber          = "season_display_number"
	ColumnSeasonTitle                  = "season_title"
	ColumnEpisodeDisplayNumber         = "episode_display_number"
	ColumnEpisodeTitle                 = "episode_title"
	ColumnStartTimeUTCMillis           = "start_time_utc_millis"
	ColumnEndTimeUTCMillis             = "end_time_utc_millis"
	ColumnBroadcastGenre               = "broadcast_genre"
	ColumnCanonicalGenre               = "canonical_genre"
	ColumnShortDescription             = "short_description"
	ColumnLongDescription              = "long_description"
	ColumnVideoWidth                   = "video_width"
	ColumnVideoHeight                  = "video_height"
	ColumnAudioLanguage                = "audio_language"
	ColumnContentRating                = "content_rating"
	ColumnPosterArtURI                 = "poster_art_uri"
	ColumnThumbnailURI                 = "thumbnail_uri"
	ColumnSearchable                   = "searchable"
	ColumnRecordingDataURI             = "recording_data_uri"
	ColumnRecordingDataBytes           = "recording_data_bytes"
	ColumnRecordingDurationMillis      = "recording_duration_millis"
	ColumnRecordingExpireTimeUTCMillis = "recording_expire_time_utc_millis"
	ColumnInternalProviderData         = "internal_provider_data"
	ColumnVersionNumber                = "version_number"
	ColumnSeriesID                     = "series_id"
)

// Schema versions. Version 1 predates the series_id column.
const (
	SchemaV1      = 1
	SchemaV2      = 2
	SchemaCurrent = SchemaV2
)

var (
	// ErrNotFound is returned when a row addressed by id does not exist.
	ErrNotFound = errors.New("provider: not found")
	// ErrInvalidURI is returned for URIs this provider does not own.
	ErrInvalidURI = errors.New("provider: invalid uri")
	// ErrUnknownColumn is returned when a caller names a column the schema lacks.
	ErrUnknownColumn = errors.New("provider: unknown column")
)

// ChannelURI returns the URI of channel id.
func ChannelURI(id int64) string { return uriPrefix + "channel/" + strconv.FormatInt(id, 10) }

// ProgramURI returns the URI of program id.
func ProgramURI(id int64) string { return uriPrefix + "program/" + strconv.FormatInt(id, 10) }

// RecordedProgramURI returns the URI of recorded program id.
func RecordedProgramURI(id int64) string {
	return uriPrefix + "recorded_program/" + strconv.FormatInt(id, 10)
}

// ParseChannelID returns the id of a channel URI. Other provider URIs are
// rejected with ErrInvalidURI.
func ParseChannelID(uri string) (int64, error) {
	if !strings.HasPrefix(uri, uriPrefix+"channel/") {
		return 0, fmt.Errorf("%w: %q is not a channel", ErrInvalidURI, uri)
	}
	return ParseID(uri)
}

// ParseID returns the trailing numeric id of a provider URI.
func ParseID(uri string) (int64, error) {
	if !strings.HasPrefix(uri, uriPrefix) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	rest := strings.TrimPrefix(uri, uriPrefix)
	i := strings.LastIndexByte(rest, '/')
	if i <= 0 || i == len(rest)-1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	id, err := strconv.ParseInt(rest[i+1:], 10, 64)
	if err != nil || id < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	return id, nil
}
