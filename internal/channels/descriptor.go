// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package channels maps provider channel ids to the configured channel list.
package channels

import (
	"strings"

	"github.com/ManuGH/tvinput/internal/config"
)

// ProgramTemplate is the program looped on a channel. Exactly one of URL and
// ResourceID identifies the playable source.
type ProgramTemplate struct {
	Title        string
	PosterArtURI string
	Description  string
	// StartTimeSec anchors slot tiling, in epoch seconds.
	StartTimeSec int64
	// DurationSec is the slot length. Zero disables scheduling.
	DurationSec int64
	URL         string
	ResourceID  int
}

// IsNetwork reports whether the source is fetched over HTTP(S).
func (t ProgramTemplate) IsNetwork() bool {
	u := strings.ToLower(t.URL)
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

// Descriptor is a configured channel. Values are immutable once built.
type Descriptor struct {
	Number           string
	Name             string
	LogoURL          string
	VideoWidth       int
	VideoHeight      int
	AudioChannels    int
	HasClosedCaption bool
	Program          ProgramTemplate
}

// FromConfig converts the channels file representation.
func FromConfig(specs []config.ChannelSpec) []Descriptor {
	out := make([]Descriptor, 0, len(specs))
	for _, s := range specs {
		out = append(out, Descriptor{
			Number:           s.Number,
			Name:             s.Name,
			LogoURL:          s.LogoURL,
			VideoWidth:       s.VideoWidth,
			VideoHeight:      s.VideoHeight,
			AudioChannels:    s.AudioChannels,
			HasClosedCaption: s.HasClosedCaption,
			Program: ProgramTemplate{
				Title:        s.Program.Title,
				PosterArtURI: s.Program.PosterArtURI,
				Description:  s.Program.Description,
				StartTimeSec: s.Program.StartTimeSec,
				DurationSec:  s.Program.DurationSec,
				URL:          s.Program.URL,
				ResourceID:   s.Program.ResourceID,
			},
		})
	}
	return out
}
