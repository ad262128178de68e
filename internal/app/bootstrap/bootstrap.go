// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package bootstrap is the composition root of the TV input daemon.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ManuGH/tvinput/internal/api"
	"github.com/ManuGH/tvinput/internal/app"
	"github.com/ManuGH/tvinput/internal/banner"
	"github.com/ManuGH/tvinput/internal/bus"
	"github.com/ManuGH/tvinput/internal/channels"
	"github.com/ManuGH/tvinput/internal/config"
	"github.com/ManuGH/tvinput/internal/daemon"
	"github.com/ManuGH/tvinput/internal/epg"
	"github.com/ManuGH/tvinput/internal/health"
	xglog "github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/media"
	"github.com/ManuGH/tvinput/internal/playback"
	"github.com/ManuGH/tvinput/internal/provider"
	"github.com/ManuGH/tvinput/internal/recordings"
	"github.com/ManuGH/tvinput/internal/telemetry"
)

// guideWindow is how far ahead the XMLTV export reaches.
const guideWindow = 24 * time.Hour

// Options tune the composition root. The zero value builds the production graph.
type Options struct {
	// Players overrides the media backend selected by the configuration.
	Players media.Factory
	// SkipStartupChecks disables the filesystem and toolchain probes.
	SkipStartupChecks bool
}

// Container is the wired daemon.
type Container struct {
	Config     config.AppConfig
	Logger     zerolog.Logger
	Provider   *provider.Provider
	Directory  *channels.Directory
	Visibility *channels.Visibility
	Playback   *playback.Service
	Scheduler  *epg.Scheduler
	Recordings *recordings.Store
	Banners    *banner.Renderer
	Singletons *app.Singletons
	Health     *health.Manager
	Server     *api.Server
	Manager    daemon.Manager
	App        *daemon.App

	InputIcons   *banner.IconCache
	ChannelLogos *banner.IconCache

	telemetry *telemetry.Provider
	closeOnce sync.Once
	closeErr  error
}

// New builds the dependency graph for cfg. On error everything opened so far
// is closed again.
func New(ctx context.Context, cfg config.AppConfig, opts Options) (_ *Container, err error) {
	if ctx == nil {
		return nil, errors.New("bootstrap context is nil")
	}
	perf := app.NewPerformanceMonitor(time.Now)

	xglog.Configure(xglog.Config{
		Level:   cfg.LogLevel,
		Service: cfg.LogService,
		Version: cfg.Version,
	})
	logger := xglog.WithComponent("bootstrap")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if !opts.SkipStartupChecks {
		if err := health.PerformStartupChecks(ctx, cfg); err != nil {
			return nil, fmt.Errorf("startup checks failed: %w", err)
		}
	}

	c := &Container{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = c.Close(context.WithoutCancel(ctx))
		}
	}()

	c.telemetry, err = telemetry.NewProvider(ctx, telemetry.Config{
		Enabled:        cfg.Telemetry.Enabled,
		ServiceName:    cfg.LogService,
		ServiceVersion: cfg.Version,
		Environment:    "production",
		ExporterType:   cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		SamplingRate:   cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	changes := bus.NewMemoryBus()
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o750); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	c.Provider, err = provider.Open(cfg.DatabasePath, provider.Options{
		PackageName: cfg.PackageName,
		Bus:         changes,
	})
	if err != nil {
		return nil, fmt.Errorf("open provider: %w", err)
	}

	specs, err := config.LoadChannels(cfg.ChannelsFile)
	if err != nil {
		return nil, fmt.Errorf("load channels: %w", err)
	}
	c.Directory = channels.NewDirectory(c.Provider, cfg.InputID, channels.FromConfig(specs))
	c.Visibility = channels.NewVisibility(cfg.DataDir)
	if err := c.Visibility.Load(); err != nil {
		return nil, fmt.Errorf("load channel visibility: %w", err)
	}

	players := opts.Players
	if players == nil {
		players = playerFactory(cfg)
	}

	c.Scheduler = epg.NewScheduler(c.Provider)
	c.Scheduler.Delay = cfg.Scheduler.Delay
	c.Scheduler.RepeatCount = cfg.Scheduler.RepeatCount

	var surface func(string) string
	if cfg.FFmpeg.OutputDir != "" {
		if err := os.MkdirAll(cfg.FFmpeg.OutputDir, 0o750); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
		surface = func(id string) string { return filepath.Join(cfg.FFmpeg.OutputDir, id+".ts") }
	}
	c.Playback, err = playback.NewService(playback.ServiceConfig{
		Directory:      c.Directory,
		Resources:      media.NewResources(cfg.AssetsDir),
		Scheduler:      c.Scheduler,
		Players:        players,
		DefaultSurface: surface,
	})
	if err != nil {
		return nil, err
	}

	c.Recordings, err = recordings.NewStore(ctx, c.Provider, cfg.InputID)
	if err != nil {
		return nil, fmt.Errorf("recordings: %w", err)
	}

	fetcher := banner.NewHTTPFetcher(cfg.Banner.IconTimeout)
	c.InputIcons = banner.NewIconCache(cfg.Banner.IconCacheSize, fetcher)
	c.ChannelLogos = banner.NewIconCache(cfg.Banner.IconCacheSize, fetcher)
	c.Banners = banner.NewRenderer(banner.Options{
		Programs:     c.Provider,
		InputIcons:   c.InputIcons,
		InputIconURL: cfg.Banner.InputIconURL,
		ChannelLogos: c.ChannelLogos,
		TimeFormat:   cfg.Banner.TimeFormat,
		TitleWidthPx: cfg.Banner.ProgramWidthPx,
		Bus:          changes,
	})

	c.Singletons = app.New(cfg, c.Provider, perf)

	c.Health = health.NewManager(cfg.Version)
	c.Health.RegisterChecker(health.DBChecker{DB: c.Provider.DB()})
	c.Health.RegisterChecker(health.DirectoryChecker{Count: func(ctx context.Context) (int, error) {
		entries, err := c.Directory.Entries(ctx)
		return len(entries), err
	}})
	if cfg.Player == config.PlayerFFmpeg && opts.Players == nil {
		c.Health.RegisterChecker(health.BinaryChecker{Tool: "ffmpeg", Bin: cfg.FFmpeg.Bin})
		c.Health.RegisterChecker(health.BinaryChecker{Tool: "ffprobe", Bin: cfg.FFmpeg.FFprobeBin})
	}
	if cfg.ChannelsFile != "" {
		c.Health.RegisterChecker(health.NewFileChecker("channels_file", cfg.ChannelsFile))
	}

	tracing := ""
	if cfg.Telemetry.Enabled {
		tracing = cfg.LogService + "-api"
	}
	c.Server, err = api.New(api.Deps{
		Playback:   c.Playback,
		Channels:   c.Directory,
		Visibility: c.Visibility,
		Programs:   c.Provider,
		Recordings: c.Recordings,
		Banners:    c.Banners,
		Guide: &epg.Exporter{
			Channels:  c.Directory,
			Programs:  c.Provider,
			Generator: cfg.LogService + "/" + cfg.Version,
			Window:    guideWindow,
			Include:   c.Visibility.Browsable,
		},
		App:              c.Singletons,
		Health:           c.Health,
		InputID:          cfg.InputID,
		PackageName:      cfg.PackageName,
		RateLimitEnabled: cfg.RateLimitEnabled,
		RateLimitRPM:     cfg.RateLimitRPM,
		TracingService:   tracing,
	})
	if err != nil {
		return nil, err
	}

	c.Manager, err = daemon.NewManager(daemon.Deps{
		Logger:     xglog.WithComponent("daemon"),
		ListenAddr: cfg.ListenAddr,
		APIHandler: c.Server.Handler(),
	})
	if err != nil {
		return nil, err
	}
	c.Manager.RegisterShutdownHook("resources", c.Close)

	workers := []daemon.Worker{{Name: "banner-refresh", Run: c.Banners.Watch}}
	if cfg.WatchChannels && cfg.ChannelsFile != "" {
		watcher := config.NewChannelsWatcher(cfg.ChannelsFile, func(ctx context.Context, specs []config.ChannelSpec) error {
			return c.Directory.Replace(ctx, channels.FromConfig(specs))
		})
		workers = append(workers, daemon.Worker{Name: "channels-watch", Run: watcher.Run})
	}
	c.App = daemon.NewApp(logger, c.Manager, workers...)

	perf.MarkCreated()
	logger.Info().
		Str(xglog.FieldEvent, "bootstrap.complete").
		Str(xglog.FieldInputID, cfg.InputID).
		Dur("startup", perf.StartupDuration()).
		Msg("daemon wired")
	return c, nil
}

// playerFactory selects the media backend.
func playerFactory(cfg config.AppConfig) media.Factory {
	if cfg.Player == config.PlayerStub {
		return func() media.Player {
			return media.NewStubPlayer(media.ProbeResult{Duration: time.Hour, Width: 1920, Height: 1080, AudioChannels: 2})
		}
	}
	ffmpegLogger := xglog.WithComponent("ffmpeg")
	return func() media.Player {
		return media.NewFFmpegPlayer(cfg.FFmpeg.Bin, cfg.FFmpeg.FFprobeBin, ffmpegLogger)
	}
}

// Run loads the channel directory and serves until ctx is cancelled.
func (c *Container) Run(ctx context.Context) error {
	if err := c.Playback.Start(ctx); err != nil {
		return err
	}
	return c.App.Run(ctx)
}

// Close releases sessions, stops the scheduler and closes the provider and
// the tracer. It is safe to call more than once.
func (c *Container) Close(ctx context.Context) error {
	c.closeOnce.Do(func() {
		var errs []error
		if c.Playback != nil {
			errs = append(errs, c.Playback.Shutdown(ctx))
		}
		if c.Scheduler != nil {
			c.Scheduler.Stop()
		}
		if c.Provider != nil {
			errs = append(errs, c.Provider.Close())
		}
		if c.telemetry != nil {
			errs = append(errs, c.telemetry.Shutdown(ctx))
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
