// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import "time"

// Player backends.
const (
	PlayerFFmpeg = "ffmpeg"
	PlayerStub   = "stub"
)

// FileConfig represents the YAML configuration structure.
type FileConfig struct {
	DataDir      string `yaml:"dataDir,omitempty"`
	DatabasePath string `yaml:"database,omitempty"`
	LogLevel     string `yaml:"logLevel,omitempty"`
	LogService   string `yaml:"logService,omitempty"`
	InputID      string `yaml:"inputId,omitempty"`
	PackageName  string `yaml:"packageName,omitempty"`
	ChannelsFile string `yaml:"channelsFile,omitempty"`
	AssetsDir    string `yaml:"assetsDir,omitempty"`
	Player       string `yaml:"player,omitempty"`
	// WatchChannels reloads channelsFile when it changes.
	WatchChannels *bool `yaml:"watchChannels,omitempty"`

	API       APIFileConfig        `yaml:"api,omitempty"`
	FFmpeg    *FFmpegConfig        `yaml:"ffmpeg,omitempty"`
	Scheduler *SchedulerFileConfig `yaml:"scheduler,omitempty"`
	Banner    *BannerFileConfig    `yaml:"banner,omitempty"`
	Telemetry *TelemetryConfig     `yaml:"telemetry,omitempty"`
	Flags     *FlagsConfig         `yaml:"flags,omitempty"`
}

// APIFileConfig holds API server settings as they appear in YAML.
type APIFileConfig struct {
	ListenAddr string          `yaml:"listenAddr,omitempty"`
	RateLimit  RateLimitConfig `yaml:"rateLimit,omitempty"`
}

// RateLimitConfig holds rate limiting settings.
type RateLimitConfig struct {
	Enabled *bool `yaml:"enabled,omitempty"`
	RPM     int   `yaml:"rpm,omitempty"` // requests per minute per client
}

// FFmpegConfig holds the media toolchain settings.
type FFmpegConfig struct {
	Bin        string `yaml:"bin,omitempty"`
	FFprobeBin string `yaml:"ffprobeBin,omitempty"`
	// OutputDir is where a session without an explicit surface writes its stream.
	OutputDir string `yaml:"outputDir,omitempty"`
}

// SchedulerFileConfig is the YAML shape of SchedulerConfig.
type SchedulerFileConfig struct {
	Delay       string `yaml:"delay,omitempty"` // e.g. "1s"
	RepeatCount int    `yaml:"repeatCount,omitempty"`
}

// SchedulerConfig controls the synthetic program scheduler.
type SchedulerConfig struct {
	Delay       time.Duration
	RepeatCount int
}

// BannerFileConfig is the YAML shape of BannerConfig.
type BannerFileConfig struct {
	IconCacheSize  int    `yaml:"iconCacheSize,omitempty"`
	TimeFormat     string `yaml:"timeFormat,omitempty"`
	ProgramWidthPx int    `yaml:"programWidthPx,omitempty"`
	IconTimeout    string `yaml:"iconTimeout,omitempty"`
	InputIconURL   string `yaml:"inputIconUrl,omitempty"`
}

// BannerConfig controls the channel banner renderer.
type BannerConfig struct {
	IconCacheSize  int
	TimeFormat     string
	ProgramWidthPx int
	IconTimeout    time.Duration
	// InputIconURL points at the logo of this TV input. Empty hides it.
	InputIconURL string
}

// TelemetryConfig holds OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `yaml:"enabled,omitempty"`
	Exporter     string  `yaml:"exporter,omitempty"` // "grpc" or "http"
	Endpoint     string  `yaml:"endpoint,omitempty"`
	SamplingRate float64 `yaml:"samplingRate,omitempty"`
}

// FlagsConfig overrides the default feature flags of the application.
type FlagsConfig struct {
	CloudEpg               *bool `yaml:"cloudEpg,omitempty"`
	ConcurrentDvrPlayback  *int  `yaml:"concurrentDvrPlayback,omitempty"`
	EnableRecordingRefresh *bool `yaml:"enableRecordingRefresh,omitempty"`
}

// AppConfig is the fully resolved runtime configuration.
type AppConfig struct {
	Version string

	DataDir      string
	DatabasePath string
	LogLevel     string
	LogService   string

	ListenAddr       string
	RateLimitEnabled bool
	RateLimitRPM     int

	// InputID identifies this TV input in the provider.
	InputID     string
	PackageName string

	ChannelsFile  string
	WatchChannels bool
	AssetsDir     string
	Player        string

	FFmpeg    FFmpegConfig
	Scheduler SchedulerConfig
	Banner    BannerConfig
	Telemetry TelemetryConfig
	Flags     FlagsConfig
}
