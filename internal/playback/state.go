// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package playback

import "fmt"

// State is the lifecycle of a tuning session.
type State int

const (
	StateIdle State = iota
	StatePreparing
	StateReady
	StateFailed
	StateReleased
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePreparing:
		return "preparing"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateReleased:
		return "released"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a state name.
func (s *State) UnmarshalText(text []byte) error {
	for st := StateIdle; st <= StateReleased; st++ {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("playback: unknown state %q", text)
}

// Key is a remote-control key delivered to a session.
type Key string

const (
	// KeyMute toggles mute.
	KeyMute Key = "m"
	// KeyAvailability toggles the simulated input availability.
	KeyAvailability Key = "a"
)

// StreamInfo is the capability set last reported for the tuned channel.
type StreamInfo struct {
	VideoWidth       int  `json:"video_width"`
	VideoHeight      int  `json:"video_height"`
	AudioChannels    int  `json:"audio_channels"`
	HasClosedCaption bool `json:"has_closed_caption"`
	Known            bool `json:"known"`
}

// Observer receives stream change notifications from a session.
type Observer interface {
	VideoStreamChanged(width, height int, interlaced bool)
	AudioStreamChanged(channels int)
	ClosedCaptionStreamChanged(hasClosedCaption bool)
}
