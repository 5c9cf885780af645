// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package main

import (
	"fmt"
	"text/tabwriter"

	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show gateway status",
		Long:  "Check the running gateway's health endpoint and list provider health.",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("address")
	out := cmd.OutOrStdout()
	gw := newGatewayClient(addr, statusClient)

	var body struct {
		Status string `json:"status"`
	}
	if err := gw.getJSON(cmd.Context(), "/health", &body); err != nil {
		if looperr.HasCode(err, looperr.CodeCLIGatewayNotRunning) {
			_, _ = fmt.Fprintf(out, "Gateway at %s is not running (connection refused)\n", addr)
			return nil
		}
		_, _ = fmt.Fprintf(out, "Gateway at %s: %s\n", addr, err)
		return nil
	}
	_, _ = fmt.Fprintf(out, "Gateway at %s: %s\n", addr, body.Status)

	var providers struct {
		Providers []struct {
			Provider     string `json:"provider"`
			Available    bool   `json:"available"`
			Message      string `json:"message"`
			FailureCount int64  `json:"failure_count"`
		} `json:"providers"`
	}
	if err := gw.getJSON(cmd.Context(), "/api/v1/providers", &providers); err != nil || len(providers.Providers) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "PROVIDER\tAVAILABLE\tFAILURES\tMESSAGE")
	for _, p := range providers.Providers {
		_, _ = fmt.Fprintf(tw, "%s\t%t\t%d\t%s\n", p.Provider, p.Available, p.FailureCount, p.Message)
	}
	return tw.Flush()
}
