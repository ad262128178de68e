// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/tvinput/internal/config"
	"github.com/ManuGH/tvinput/internal/epg"
	"github.com/ManuGH/tvinput/internal/version"
)

func TestVersionCommand(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), version.Version)
}

func TestResolveConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(config.EnvDataDir, dir)
	assert.Equal(t, "", resolveConfigPath(""))
	assert.Equal(t, "/etc/x.yaml", resolveConfigPath(" /etc/x.yaml "))

	auto := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(auto, []byte("logLevel: debug\n"), 0o600))
	assert.Equal(t, auto, resolveConfigPath(""))
}

func TestReadyURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8089/readyz", readyURL(":8089"))
	assert.Equal(t, "http://10.0.0.2:9000/readyz", readyURL("10.0.0.2:9000"))
	assert.Equal(t, "http://[::1]:80/readyz", readyURL("[::1]:80"))
}

func TestExportXMLTV(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Defaults()
	cfg.DatabasePath = filepath.Join(dir, "tv.db")
	out := filepath.Join(dir, "guide.xml")

	require.NoError(t, exportXMLTV(context.Background(), cfg, out, 0))

	tv, err := epg.ReadXMLTV(out)
	require.NoError(t, err)
	assert.Len(t, tv.Channels, len(config.DefaultChannels()))
	assert.Equal(t, "tvinputd/"+version.Version, tv.Generator)
}
