// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/tvinput/internal/log"
)

// DefaultReloadDebounce collapses the burst of events an editor save produces.
const DefaultReloadDebounce = 500 * time.Millisecond

// ChannelsWatcher reloads the channels file when it changes on disk and hands
// the parsed list to Apply. A file that fails to parse is logged and skipped.
type ChannelsWatcher struct {
	Path     string
	Apply    func(ctx context.Context, specs []ChannelSpec) error
	Debounce time.Duration

	logger zerolog.Logger
}

// NewChannelsWatcher returns a watcher for path.
func NewChannelsWatcher(path string, apply func(context.Context, []ChannelSpec) error) *ChannelsWatcher {
	return &ChannelsWatcher{
		Path:     path,
		Apply:    apply,
		Debounce: DefaultReloadDebounce,
		logger:   xglog.WithComponent("config"),
	}
}

// Run blocks until ctx is cancelled. The parent directory is watched so a
// file replaced by rename is still seen.
func (w *ChannelsWatcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	target := filepath.Clean(w.Path)
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch channels file: %w", err)
	}
	w.logger.Info().
		Str(xglog.FieldEvent, "channels.watch_started").
		Str(xglog.FieldPath, target).
		Msg("watching channels file for changes")

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				timer.Reset(debounce)
			}
		case <-timer.C:
			w.reload(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn().Err(err).Str(xglog.FieldEvent, "channels.watch_error").Msg("channels watcher error")
		}
	}
}

func (w *ChannelsWatcher) reload(ctx context.Context) {
	specs, err := LoadChannels(w.Path)
	if err != nil {
		w.logger.Warn().Err(err).Str(xglog.FieldEvent, "channels.reload_failed").Msg("keeping previous channel list")
		return
	}
	if err := w.Apply(ctx, specs); err != nil {
		w.logger.Warn().Err(err).Str(xglog.FieldEvent, "channels.apply_failed").Msg("keeping previous channel list")
		return
	}
	w.logger.Info().Int("channels", len(specs)).Str(xglog.FieldEvent, "channels.reloaded").Msg("channel list reloaded")
}
