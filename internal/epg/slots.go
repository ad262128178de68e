// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package epg

import (
	"time"

	"github.com/ManuGH/tvinput/internal/channels"
)

// DefaultRepeatCount is the number of slots tiled per run.
const DefaultRepeatCount = 24

// Slot is one fabricated airing, in epoch milliseconds.
type Slot struct {
	StartMillis int64
	EndMillis   int64
}

// Slots tiles tmpl forward from the last slot boundary at or before now.
// A zero duration yields no slots.
func Slots(tmpl channels.ProgramTemplate, now time.Time, repeats int) []Slot {
	if tmpl.DurationSec <= 0 || repeats <= 0 {
		return nil
	}
	nowSec := now.Unix()
	start := nowSec - posMod(nowSec-tmpl.StartTimeSec, tmpl.DurationSec)

	out := make([]Slot, repeats)
	for i := range out {
		s := start + int64(i)*tmpl.DurationSec
		out[i] = Slot{StartMillis: s * 1000, EndMillis: (s + tmpl.DurationSec) * 1000}
	}
	return out
}

func posMod(x, m int64) int64 {
	return ((x % m) + m) % m
}
