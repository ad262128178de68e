package app

import (
	"time"

	"github.com/ManuGH/tvinput/internal/config"
)

// BackendKnobs tune guide maintenance.
type BackendKnobs struct {
	EnableRecordingRefresh bool          `json:"enable_recording_refresh"`
	EpgFetchInterval       time.Duration `json:"epg_fetch_interval"`
	EnablePartialFetch     bool          `json:"enable_partial_fetch"`
}

// CloudEpgFlags control fetching the guide from a cloud service. The daemon
// has none, so the reader only serves local data.
type CloudEpgFlags struct {
	Enabled          bool     `json:"enabled"`
	SupportedRegions []string `json:"supported_regions,omitempty"`
}

// ConcurrentDvrPlaybackFlags gate playing a recording while another one plays.
type ConcurrentDvrPlaybackFlags struct {
	Enabled     bool `json:"enabled"`
	MaxSessions int  `json:"max_sessions"`
}

// BackendKnobsFrom applies overrides to the defaults.
func BackendKnobsFrom(f config.FlagsConfig) BackendKnobs {
	k := BackendKnobs{
		EnableRecordingRefresh: true,
		EpgFetchInterval:       25 * time.Hour,
	}
	if f.EnableRecordingRefresh != nil {
		k.EnableRecordingRefresh = *f.EnableRecordingRefresh
	}
	return k
}

// CloudEpgFlagsFrom applies overrides to the defaults.
func CloudEpgFlagsFrom(f config.FlagsConfig) CloudEpgFlags {
	var c CloudEpgFlags
	if f.CloudEpg != nil {
		c.Enabled = *f.CloudEpg
	}
	return c
}

// ConcurrentDvrPlaybackFlagsFrom applies overrides to the defaults. A limit
// above one enables concurrent playback.
func ConcurrentDvrPlaybackFlagsFrom(f config.FlagsConfig) ConcurrentDvrPlaybackFlags {
	c := ConcurrentDvrPlaybackFlags{MaxSessions: 1}
	if f.ConcurrentDvrPlayback != nil && *f.ConcurrentDvrPlayback > 0 {
		c.MaxSessions = *f.ConcurrentDvrPlayback
		c.Enabled = c.MaxSessions > 1
	}
	return c
}
