// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/contentloop/contentloop/internal/config"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/spf13/cobra"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the contentloop gateway",
		Long:  "Load configuration, wire providers, sessions and the HTTP API, and serve until interrupted.",
		RunE:  runStart,
	}

	cmd.Flags().String("listen", "", "override listen address (host:port)")

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Networking.Listen = listen
		if errs := cfg.Validate(); len(errs) > 0 {
			return looperr.Errorf(looperr.CodeCLIInputInvalid, "invalid --listen: %v", errs[0])
		}
	}

	dataDir, _ := cmd.Flags().GetString("data-dir")
	gw, err := WireGateway(cfg, dataDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := gw.Close(); err != nil {
			slog.Warn("closing gateway", "error", err)
		}
	}()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Starting contentloop %s on %s\n", version, cfg.Networking.Listen)
	slog.Info("gateway starting",
		"listen", cfg.Networking.Listen,
		"model", cfg.Models.Default,
		"storage", cfg.Storage.Backend,
		"session_ttl", cfg.Sessions.TTL)

	if err := gw.Start(ctx); err != nil {
		return err
	}
	slog.Info("gateway stopped")
	return nil
}

// loadConfig reads --config, or discovers contentloop.yaml. When nothing is
// found a commented default is written to ~/.config/contentloop first.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	store := secretStoreFactory()

	cfg, used, err := config.Load(path, store)
	if err != nil {
		return nil, err
	}
	if used == "" {
		if def, derr := config.DefaultConfigPath(); derr == nil && config.BootstrapConfig(def) {
			cfg, used, err = config.Load(def, store)
			if err != nil {
				return nil, err
			}
		}
	}

	config.WarnInsecurePermissions(used)
	if used != "" {
		slog.Debug("loaded config", "path", used)
	}
	return cfg, nil
}
