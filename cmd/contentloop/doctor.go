// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/contentloop/contentloop/internal/config"
	"github.com/contentloop/contentloop/internal/secrets"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/spf13/cobra"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Run diagnostics",
		Long:  "Check the binary, configuration, stored provider keys, the running gateway and free disk space.",
		RunE:  runDoctor,
	}
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	w := cmd.OutOrStdout()
	addr, _ := cmd.Flags().GetString("address")
	cfgPath, _ := cmd.Flags().GetString("config")
	dataDir, _ := cmd.Flags().GetString("data-dir")

	cfg, used, cfgErr := config.Load(cfgPath, nil)
	if dataDir == "" && cfg != nil {
		dataDir = cfg.Storage.DataDir
	}

	checks := []struct {
		name string
		fn   func() string
	}{
		{"Binary", checkBinary},
		{"Platform", checkPlatform},
		{"Config", func() string { return checkConfig(used, cfgErr) }},
		{"Provider Keys", checkProviderKeys},
		{"Gateway", func() string { return checkGateway(cmd, addr) }},
		{"Disk Space", func() string { return checkDiskSpace(dataDir) }},
	}

	for _, c := range checks {
		if _, err := fmt.Fprintf(w, "%-20s %s\n", c.name+":", c.fn()); err != nil {
			return err
		}
	}
	return nil
}

func checkBinary() string {
	return fmt.Sprintf("contentloop %s (commit %s)", version, commit)
}

func checkPlatform() string {
	return fmt.Sprintf("%s/%s, Go %s", runtime.GOOS, runtime.GOARCH, runtime.Version())
}

func checkConfig(used string, err error) string {
	switch {
	case err != nil:
		return fmt.Sprintf("error: %s", err)
	case used != "":
		return fmt.Sprintf("loaded from %s", used)
	default:
		return "using defaults (no config file found)"
	}
}

func checkProviderKeys() string {
	store := secretStoreFactory()
	var stored []string
	for _, name := range config.ProviderNames() {
		if _, err := store.Get(secrets.DefaultService, secrets.ProviderKeyName(name)); err == nil {
			stored = append(stored, name)
		}
	}
	if len(stored) == 0 {
		return "none in keyring (run 'contentloop secret set <provider>')"
	}
	return "stored for " + strings.Join(stored, ", ")
}

func checkGateway(cmd *cobra.Command, addr string) string {
	var body struct {
		Status string `json:"status"`
	}
	if err := newGatewayClient(addr, statusClient).getJSON(cmd.Context(), "/health", &body); err != nil {
		if looperr.HasCode(err, looperr.CodeCLIGatewayNotRunning) {
			return fmt.Sprintf("not running at %s (run 'contentloop start')", addr)
		}
		return fmt.Sprintf("error: %s", err)
	}
	return fmt.Sprintf("%s at %s", body.Status, addr)
}

func checkDiskSpace(dataDir string) string {
	path := dataDir
	if path == "" {
		path, _ = os.UserHomeDir()
	} else if _, err := os.Stat(path); os.IsNotExist(err) {
		path, _ = os.UserHomeDir()
	}

	avail, err := availableBytes(path)
	if err != nil {
		return fmt.Sprintf("unable to check: %s", err)
	}
	return formatBytes(avail) + " available"
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b uint64) string {
	const (
		gb = 1024 * 1024 * 1024
		mb = 1024 * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(mb))
	default:
		return fmt.Sprintf("%d bytes", b)
	}
}
