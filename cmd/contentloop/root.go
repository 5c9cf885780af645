// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package main

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

const defaultAddress = "127.0.0.1:8000"

// NewRootCmd creates the root contentloop command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "contentloop",
		Short:         "ContentLoop: human-in-the-loop content drafting",
		Long:          "ContentLoop drafts content from a brief with an LLM and refines it round by round from your feedback.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			verbose, _ := cmd.Flags().GetBool("verbose")
			setupLogging(cmd.ErrOrStderr(), verbose)
		},
	}

	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory (sqlite backend)")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	root.PersistentFlags().String("address", defaultAddress, "gateway address for client commands")

	root.AddCommand(
		newStartCmd(),
		newStatusCmd(),
		newDoctorCmd(),
		newVersionCmd(),
		newDraftCmd(),
		newOptimizeCmd(),
		newSecretCmd(),
	)

	return root
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
