// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ManuGH/tvinput/internal/channels"
	"github.com/ManuGH/tvinput/internal/config"
	"github.com/ManuGH/tvinput/internal/epg"
	"github.com/ManuGH/tvinput/internal/provider"
	"github.com/ManuGH/tvinput/internal/version"
)

func newXMLTVCmd(opts *rootOptions) *cobra.Command {
	var (
		out    string
		window time.Duration
	)
	cmd := &cobra.Command{
		Use:   "xmltv",
		Short: "Export the program guide as XMLTV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			if err := exportXMLTV(cmd.Context(), cfg, out, window); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "guide.xml", "destination file")
	cmd.Flags().DurationVar(&window, "window", 24*time.Hour, "how far ahead to export")
	return cmd
}

func exportXMLTV(ctx context.Context, cfg config.AppConfig, out string, window time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}
	p, err := provider.Open(cfg.DatabasePath, provider.Options{PackageName: cfg.PackageName})
	if err != nil {
		return fmt.Errorf("open provider: %w", err)
	}
	defer func() { _ = p.Close() }()

	specs, err := config.LoadChannels(cfg.ChannelsFile)
	if err != nil {
		return err
	}
	visibility := channels.NewVisibility(cfg.DataDir)
	if err := visibility.Load(); err != nil {
		return err
	}
	exp := &epg.Exporter{
		Channels:  channels.NewDirectory(p, cfg.InputID, channels.FromConfig(specs)),
		Programs:  p,
		Generator: "tvinputd/" + version.Version,
		Window:    window,
		Include:   visibility.Browsable,
	}
	return exp.WriteFile(ctx, out)
}
