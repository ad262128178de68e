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
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment keys.
const (
	EnvDataDir      = "TVINPUT_DATA"
	EnvDatabase     = "TVINPUT_DB"
	EnvListen       = "TVINPUT_LISTEN"
	EnvLogLevel     = "TVINPUT_LOG_LEVEL"
	EnvInputID      = "TVINPUT_INPUT_ID"
	EnvChannelsFile = "TVINPUT_CHANNELS_FILE"
	EnvWatchFile    = "TVINPUT_WATCH_CHANNELS"
	EnvAssetsDir    = "TVINPUT_ASSETS_DIR"
	EnvPlayer       = "TVINPUT_PLAYER"
	EnvFFmpegBin    = "TVINPUT_FFMPEG_BIN"
	EnvFFprobeBin   = "TVINPUT_FFPROBE_BIN"
	EnvOutputDir    = "TVINPUT_OUTPUT_DIR"
	EnvSchedDelay   = "TVINPUT_SCHEDULER_DELAY"
	EnvRateLimit    = "TVINPUT_RATELIMIT_ENABLED"
	EnvOTelEnabled  = "TVINPUT_OTEL_ENABLED"
	EnvOTelEndpoint = "TVINPUT_OTEL_ENDPOINT"
)

// Loader handles configuration loading with precedence
type Loader struct {
	configPath      string
	version         string
	ConsumedEnvKeys map[string]struct{}
}

// NewLoader creates a new configuration loader
func NewLoader(configPath, version string) *Loader {
	return &Loader{
		configPath:      configPath,
		version:         version,
		ConsumedEnvKeys: make(map[string]struct{}),
	}
}

func (l *Loader) envString(key, defaultVal string) string {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseString(key, defaultVal)
}

func (l *Loader) envBool(key string, defaultVal bool) bool {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseBool(key, defaultVal)
}

func (l *Loader) envDuration(key string, defaultVal time.Duration) time.Duration {
	l.ConsumedEnvKeys[key] = struct{}{}
	return ParseDuration(key, defaultVal)
}

// Load loads configuration with precedence: ENV > File > Defaults
func (l *Loader) Load() (AppConfig, error) {
	cfg := Defaults()

	if l.configPath != "" {
		fileCfg, err := l.loadFile(l.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
		if err := mergeFileConfig(&cfg, fileCfg); err != nil {
			return cfg, fmt.Errorf("merge file config: %w", err)
		}
	}

	l.mergeEnvConfig(&cfg)

	if abs, err := filepath.Abs(cfg.DataDir); err == nil {
		cfg.DataDir = abs
	}
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(cfg.DataDir, "tvprovider.db")
	}
	if cfg.FFmpeg.OutputDir == "" {
		cfg.FFmpeg.OutputDir = filepath.Join(cfg.DataDir, "out")
	}
	cfg.Version = l.version

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Defaults returns the built-in configuration.
func Defaults() AppConfig {
	return AppConfig{
		DataDir:          "/tmp/tvinput",
		LogLevel:         "info",
		LogService:       "tvinput",
		ListenAddr:       ":8089",
		RateLimitEnabled: true,
		RateLimitRPM:     600,
		InputID:          "com.example.sampletvinput/.SampleTvInput",
		PackageName:      "com.example.sampletvinput",
		Player:           PlayerFFmpeg,
		FFmpeg: FFmpegConfig{
			Bin:        "ffmpeg",
			FFprobeBin: "ffprobe",
		},
		Scheduler: SchedulerConfig{
			Delay:       time.Second,
			RepeatCount: 24,
		},
		Banner: BannerConfig{
			IconCacheSize:  10,
			TimeFormat:     "15:04",
			ProgramWidthPx: 960,
			IconTimeout:    3 * time.Second,
		},
		Telemetry: TelemetryConfig{
			Exporter:     "grpc",
			SamplingRate: 1.0,
		},
	}
}

func (l *Loader) loadFile(path string) (*FileConfig, error) {
	path = filepath.Clean(path)

	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return nil, fmt.Errorf("unsupported config format: %s (only YAML supported)", ext)
	}

	// #nosec G304 -- configuration file paths are provided by the operator via CLI/ENV
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	if err := dec.Decode(&fileCfg); err != nil {
		if errors.Is(err, io.EOF) {
			return &FileConfig{}, nil
		}
		if strings.Contains(err.Error(), "field") && strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("%w: %v", ErrUnknownConfigField, err)
		}
		return nil, fmt.Errorf("strict config parse error: %w", err)
	}

	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config file contains multiple documents or trailing content")
	}

	return &fileCfg, nil
}

func mergeFileConfig(dst *AppConfig, src *FileConfig) error {
	setString(&dst.DataDir, src.DataDir)
	setString(&dst.DatabasePath, src.DatabasePath)
	setString(&dst.LogLevel, src.LogLevel)
	setString(&dst.LogService, src.LogService)
	setString(&dst.InputID, src.InputID)
	setString(&dst.PackageName, src.PackageName)
	setString(&dst.ChannelsFile, src.ChannelsFile)
	setString(&dst.AssetsDir, src.AssetsDir)
	setString(&dst.Player, src.Player)
	if src.WatchChannels != nil {
		dst.WatchChannels = *src.WatchChannels
	}
	setString(&dst.ListenAddr, src.API.ListenAddr)
	if src.API.RateLimit.Enabled != nil {
		dst.RateLimitEnabled = *src.API.RateLimit.Enabled
	}
	if src.API.RateLimit.RPM > 0 {
		dst.RateLimitRPM = src.API.RateLimit.RPM
	}

	if f := src.FFmpeg; f != nil {
		setString(&dst.FFmpeg.Bin, f.Bin)
		setString(&dst.FFmpeg.FFprobeBin, f.FFprobeBin)
		setString(&dst.FFmpeg.OutputDir, f.OutputDir)
	}

	if s := src.Scheduler; s != nil {
		if s.Delay != "" {
			d, err := time.ParseDuration(s.Delay)
			if err != nil {
				return fmt.Errorf("scheduler.delay: %w", err)
			}
			dst.Scheduler.Delay = d
		}
		if s.RepeatCount != 0 {
			dst.Scheduler.RepeatCount = s.RepeatCount
		}
	}

	if b := src.Banner; b != nil {
		if b.IconCacheSize > 0 {
			dst.Banner.IconCacheSize = b.IconCacheSize
		}
		setString(&dst.Banner.TimeFormat, b.TimeFormat)
		setString(&dst.Banner.InputIconURL, b.InputIconURL)
		if b.ProgramWidthPx > 0 {
			dst.Banner.ProgramWidthPx = b.ProgramWidthPx
		}
		if b.IconTimeout != "" {
			d, err := time.ParseDuration(b.IconTimeout)
			if err != nil {
				return fmt.Errorf("banner.iconTimeout: %w", err)
			}
			dst.Banner.IconTimeout = d
		}
	}

	if t := src.Telemetry; t != nil {
		dst.Telemetry.Enabled = t.Enabled
		setString(&dst.Telemetry.Exporter, t.Exporter)
		setString(&dst.Telemetry.Endpoint, t.Endpoint)
		if t.SamplingRate > 0 {
			dst.Telemetry.SamplingRate = t.SamplingRate
		}
	}

	if f := src.Flags; f != nil {
		dst.Flags = *f
	}
	return nil
}

func (l *Loader) mergeEnvConfig(cfg *AppConfig) {
	cfg.DataDir = l.envString(EnvDataDir, cfg.DataDir)
	cfg.DatabasePath = l.envString(EnvDatabase, cfg.DatabasePath)
	cfg.ListenAddr = l.envString(EnvListen, cfg.ListenAddr)
	cfg.LogLevel = l.envString(EnvLogLevel, cfg.LogLevel)
	cfg.InputID = l.envString(EnvInputID, cfg.InputID)
	cfg.ChannelsFile = l.envString(EnvChannelsFile, cfg.ChannelsFile)
	cfg.WatchChannels = l.envBool(EnvWatchFile, cfg.WatchChannels)
	cfg.AssetsDir = l.envString(EnvAssetsDir, cfg.AssetsDir)
	cfg.Player = l.envString(EnvPlayer, cfg.Player)
	cfg.FFmpeg.Bin = l.envString(EnvFFmpegBin, cfg.FFmpeg.Bin)
	cfg.FFmpeg.FFprobeBin = l.envString(EnvFFprobeBin, cfg.FFmpeg.FFprobeBin)
	cfg.FFmpeg.OutputDir = l.envString(EnvOutputDir, cfg.FFmpeg.OutputDir)
	cfg.Scheduler.Delay = l.envDuration(EnvSchedDelay, cfg.Scheduler.Delay)
	cfg.RateLimitEnabled = l.envBool(EnvRateLimit, cfg.RateLimitEnabled)
	cfg.Telemetry.Enabled = l.envBool(EnvOTelEnabled, cfg.Telemetry.Enabled)
	cfg.Telemetry.Endpoint = l.envString(EnvOTelEndpoint, cfg.Telemetry.Endpoint)
}

func setString(dst *string, v string) {
	if strings.TrimSpace(v) != "" {
		*dst = v
	}
}
