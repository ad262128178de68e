// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package channels

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/google/renameio/v2"

	"github.com/ManuGH/tvinput/internal/log"
)

// Visibility persists which channels are hidden from the guide. Channels are
// keyed by display number and browsable unless hidden. Only hidden numbers
// are stored.
type Visibility struct {
	path string

	mu     sync.RWMutex
	hidden map[string]bool
}

// NewVisibility stores its state in channels.json under dataDir.
func NewVisibility(dataDir string) *Visibility {
	return &Visibility{
		path:   filepath.Join(dataDir, "channels.json"),
		hidden: make(map[string]bool),
	}
}

// Load reads the hidden set. A missing file means every channel is browsable.
func (v *Visibility) Load() error {
	data, err := os.ReadFile(v.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	var numbers []string
	if err := json.Unmarshal(data, &numbers); err != nil {
		return err
	}

	hidden := make(map[string]bool, len(numbers))
	for _, n := range numbers {
		hidden[n] = true
	}
	v.mu.Lock()
	v.hidden = hidden
	v.mu.Unlock()

	logger := log.WithComponent("channels")
	logger.Info().Int("hidden", len(hidden)).Msg("loaded channel visibility")
	return nil
}

// IsBrowsable reports whether the channel with display number is shown.
func (v *Visibility) IsBrowsable(number string) bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return !v.hidden[number]
}

// Browsable reports whether e is shown in the guide.
func (v *Visibility) Browsable(e Entry) bool { return v.IsBrowsable(e.Descriptor.Number) }

// SetBrowsable shows or hides a channel and persists the change.
func (v *Visibility) SetBrowsable(number string, browsable bool) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if browsable {
		delete(v.hidden, number)
	} else {
		v.hidden[number] = true
	}
	return v.saveLocked()
}

// HiddenCount returns the number of hidden channels.
func (v *Visibility) HiddenCount() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.hidden)
}

func (v *Visibility) saveLocked() error {
	numbers := make([]string, 0, len(v.hidden))
	for n := range v.hidden {
		numbers = append(numbers, n)
	}
	slices.Sort(numbers)
	data, err := json.MarshalIndent(numbers, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(v.path), 0o750); err != nil {
		return err
	}
	return renameio.WriteFile(v.path, data, 0o600)
}
