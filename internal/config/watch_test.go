// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const oneChannel = `
channels:
  - number: "7"
    name: %s
    videoWidth: 1280
    videoHeight: 720
    audioChannels: 2
    program: {title: Loop, startTimeSec: 0, durationSec: 60, url: http://example.com/a.mp4}
`

type applied struct {
	mu    sync.Mutex
	names []string
}

func (a *applied) apply(_ context.Context, specs []ChannelSpec) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range specs {
		a.names = append(a.names, s.Name)
	}
	return nil
}

func (a *applied) last() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.names) == 0 {
		return ""
	}
	return a.names[len(a.names)-1]
}

func TestChannelsWatcher_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "channels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(oneChannel, "Before")), 0o600))

	var got applied
	w := NewChannelsWatcher(path, got.apply)
	w.Debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// The watch is registered asynchronously; keep writing until it is seen.
	assert.Eventually(t, func() bool {
		_ = os.WriteFile(path, []byte(fmt.Sprintf(oneChannel, "After")), 0o600)
		return got.last() == "After"
	}, 5*time.Second, 100*time.Millisecond)

	// A broken file keeps the previous list.
	require.NoError(t, os.WriteFile(path, []byte("channels: ["), 0o600))
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, "After", got.last())

	cancel()
	require.NoError(t, <-done)
}

func TestChannelsWatcher_MissingDirectory(t *testing.T) {
	w := NewChannelsWatcher(filepath.Join(t.TempDir(), "nope", "channels.yaml"), func(context.Context, []ChannelSpec) error { return nil })
	assert.Error(t, w.Run(context.Background()))
}

func TestLoadWatchChannels(t *testing.T) {
	path := writeFile(t, "config.yaml", "dataDir: "+t.TempDir()+"\nwatchChannels: true\n")
	cfg, err := NewLoader(path, "test").Load()
	require.NoError(t, err)
	assert.True(t, cfg.WatchChannels)
}
