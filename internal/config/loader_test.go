// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(EnvDataDir, t.TempDir())

	cfg, err := NewLoader("", "v1.2.3").Load()
	require.NoError(t, err)

	assert.Equal(t, "v1.2.3", cfg.Version)
	assert.Equal(t, time.Second, cfg.Scheduler.Delay)
	assert.Equal(t, 24, cfg.Scheduler.RepeatCount)
	assert.Equal(t, 10, cfg.Banner.IconCacheSize)
	assert.Equal(t, filepath.Join(cfg.DataDir, "tvprovider.db"), cfg.DatabasePath)
	assert.Equal(t, filepath.Join(cfg.DataDir, "out"), cfg.FFmpeg.OutputDir)
}

func TestLoadPrecedenceEnvOverFile(t *testing.T) {
	path := writeFile(t, "config.yaml", `
dataDir: /var/lib/tvinput
inputId: file-input
player: stub
api:
  listenAddr: ":9000"
scheduler:
  delay: 250ms
  repeatCount: 4
banner:
  iconCacheSize: 3
`)
	t.Setenv(EnvListen, ":9100")

	cfg, err := NewLoader(path, "dev").Load()
	require.NoError(t, err)

	assert.Equal(t, "file-input", cfg.InputID)
	assert.Equal(t, PlayerStub, cfg.Player)
	assert.Equal(t, ":9100", cfg.ListenAddr, "env wins over file")
	assert.Equal(t, 250*time.Millisecond, cfg.Scheduler.Delay)
	assert.Equal(t, 4, cfg.Scheduler.RepeatCount)
	assert.Equal(t, 3, cfg.Banner.IconCacheSize)
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	path := writeFile(t, "config.yaml", "noSuchKey: 1\n")

	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownConfigField)
}

func TestLoadRejectsNonYAML(t *testing.T) {
	path := writeFile(t, "config.json", "{}")

	_, err := NewLoader(path, "dev").Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*AppConfig)
	}{
		{"empty input id", func(c *AppConfig) { c.InputID = " " }},
		{"unknown player", func(c *AppConfig) { c.Player = "vlc" }},
		{"negative delay", func(c *AppConfig) { c.Scheduler.Delay = -time.Second }},
		{"zero repeats", func(c *AppConfig) { c.Scheduler.RepeatCount = 0 }},
		{"zero icon cache", func(c *AppConfig) { c.Banner.IconCacheSize = 0 }},
		{"bad exporter", func(c *AppConfig) { c.Telemetry.Enabled = true; c.Telemetry.Exporter = "zipkin" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}

	assert.NoError(t, Defaults().Validate())
}

func TestLoadChannels(t *testing.T) {
	t.Run("default list", func(t *testing.T) {
		chs, err := LoadChannels("")
		require.NoError(t, err)
		require.NotEmpty(t, chs)
	})

	t.Run("file", func(t *testing.T) {
		path := writeFile(t, "channels.yaml", `
channels:
  - number: "5"
    name: Five
    videoWidth: 1920
    videoHeight: 1080
    audioChannels: 2
    program:
      title: News
      startTimeSec: 0
      durationSec: 1800
      url: http://example.com/news.m3u8
`)
		chs, err := LoadChannels(path)
		require.NoError(t, err)
		require.Len(t, chs, 1)
		assert.Equal(t, "5", chs[0].Number)
		assert.Equal(t, int64(1800), chs[0].Program.DurationSec)
	})

	t.Run("duplicate numbers", func(t *testing.T) {
		path := writeFile(t, "channels.yaml", `
channels:
  - number: "5"
    name: A
    videoWidth: 1
    videoHeight: 1
    audioChannels: 1
    program: {title: x, startTimeSec: 0, durationSec: 1}
  - number: "5"
    name: B
    videoWidth: 1
    videoHeight: 1
    audioChannels: 1
    program: {title: y, startTimeSec: 0, durationSec: 1}
`)
		_, err := LoadChannels(path)
		assert.ErrorIs(t, err, ErrInvalidConfig)
	})
}
