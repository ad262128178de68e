// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ChannelSpec describes one synthetic channel as written in the channels file.
type ChannelSpec struct {
	Number           string      `yaml:"number"`
	Name             string      `yaml:"name"`
	LogoURL          string      `yaml:"logoUrl,omitempty"`
	VideoWidth       int         `yaml:"videoWidth"`
	VideoHeight      int         `yaml:"videoHeight"`
	AudioChannels    int         `yaml:"audioChannels"`
	HasClosedCaption bool        `yaml:"closedCaption,omitempty"`
	Program          ProgramSpec `yaml:"program"`
}

// ProgramSpec is the program template looped on a channel. Exactly one of URL
// and ResourceID is expected to be set.
type ProgramSpec struct {
	Title        string `yaml:"title"`
	PosterArtURI string `yaml:"posterArtUri,omitempty"`
	Description  string `yaml:"description,omitempty"`
	StartTimeSec int64  `yaml:"startTimeSec"`
	DurationSec  int64  `yaml:"durationSec"`
	URL          string `yaml:"url,omitempty"`
	ResourceID   int    `yaml:"resourceId,omitempty"`
}

type channelsFile struct {
	Channels []ChannelSpec `yaml:"channels"`
}

// LoadChannels reads the channel list from path. An empty path yields the
// built-in sample list.
func LoadChannels(path string) ([]ChannelSpec, error) {
	if path == "" {
		return DefaultChannels(), nil
	}
	// #nosec G304 -- path comes from operator configuration
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read channels file: %w", err)
	}

	var doc channelsFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse channels file: %w", err)
	}

	seen := make(map[string]struct{}, len(doc.Channels))
	for i, ch := range doc.Channels {
		if ch.Number == "" {
			return nil, fmt.Errorf("%w: channel #%d has no number", ErrInvalidConfig, i)
		}
		if _, dup := seen[ch.Number]; dup {
			return nil, fmt.Errorf("%w: duplicate channel number %q", ErrInvalidConfig, ch.Number)
		}
		seen[ch.Number] = struct{}{}
		if ch.Program.DurationSec < 0 {
			return nil, fmt.Errorf("%w: channel %q has a negative program duration", ErrInvalidConfig, ch.Number)
		}
	}
	return doc.Channels, nil
}

// DefaultChannels is the sample line-up used when no channels file is configured.
func DefaultChannels() []ChannelSpec {
	return []ChannelSpec{
		{
			Number:        "1-1",
			Name:          "BBB Loop",
			LogoURL:       "https://upload.wikimedia.org/wikipedia/commons/c/c5/Big_buck_bunny_poster_big.jpg",
			VideoWidth:    1280,
			VideoHeight:   720,
			AudioChannels: 2,
			Program: ProgramSpec{
				Title:        "Big Buck Bunny",
				PosterArtURI: "https://upload.wikimedia.org/wikipedia/commons/c/c5/Big_buck_bunny_poster_big.jpg",
				Description:  "Big Buck Bunny tells the story of a giant rabbit with a heart bigger than himself.",
				StartTimeSec: 1388534400,
				DurationSec:  596,
				ResourceID:   1,
			},
		},
		{
			Number:           "1-2",
			Name:             "Sintel HD",
			VideoWidth:       1920,
			VideoHeight:      1080,
			AudioChannels:    6,
			HasClosedCaption: true,
			Program: ProgramSpec{
				Title:        "Sintel",
				Description:  "A lonely young woman searches for her baby dragon.",
				StartTimeSec: 1388534400,
				DurationSec:  888,
				URL:          "https://download.blender.org/durian/movies/Sintel.2010.720p.mkv",
			},
		},
		{
			Number:        "1003",
			Name:          "Test Pattern",
			VideoWidth:    720,
			VideoHeight:   576,
			AudioChannels: 1,
			Program: ProgramSpec{
				Title:      "Test Pattern",
				ResourceID: 2,
			},
		},
	}
}
