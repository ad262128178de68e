// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Command tvinputd runs the synthetic live TV input daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ManuGH/tvinput/internal/app/bootstrap"
	"github.com/ManuGH/tvinput/internal/config"
	xglog "github.com/ManuGH/tvinput/internal/log"
	"github.com/ManuGH/tvinput/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:          "tvinputd",
		Short:        "Synthetic live TV input daemon",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to config file (YAML)")

	root.AddCommand(
		newServeCmd(opts),
		newXMLTVCmd(opts),
		newHealthcheckCmd(opts),
		newVersionCmd(),
	)
	return root
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the daemon (default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// resolveConfigPath prefers --config and falls back to config.yaml in the
// data directory when it exists.
func resolveConfigPath(explicit string) string {
	if p := strings.TrimSpace(explicit); p != "" {
		return p
	}
	dataDir := strings.TrimSpace(config.ParseString(config.EnvDataDir, ""))
	if dataDir == "" {
		return ""
	}
	auto := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(auto); err == nil {
		return auto
	}
	return ""
}

func loadConfig(opts *rootOptions) (config.AppConfig, error) {
	path := resolveConfigPath(opts.configPath)
	cfg, err := config.NewLoader(path, version.Version).Load()
	if err != nil {
		return cfg, fmt.Errorf("load configuration: %w", err)
	}
	return cfg, nil
}

func runServe(parent context.Context, opts *rootOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	xglog.Configure(xglog.Config{Level: "info", Service: "tvinputd", Version: version.Version})
	logger := xglog.WithComponent("main")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(opts)
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "config.load_failed").Msg("failed to load configuration")
		return err
	}

	c, err := bootstrap.New(ctx, cfg, bootstrap.Options{})
	if err != nil {
		logger.Error().Err(err).Str(xglog.FieldEvent, "bootstrap.failed").Msg("failed to start")
		return err
	}
	defer func() { _ = c.Close(context.WithoutCancel(ctx)) }()

	logger = xglog.WithComponent("main")
	logger.Info().
		Str("listen", cfg.ListenAddr).
		Str(xglog.FieldInputID, cfg.InputID).
		Str("player", cfg.Player).
		Msg("starting tv input daemon")
	if err := c.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("daemon stopped with error")
		return err
	}
	logger.Info().Msg("daemon stopped")
	return nil
}
