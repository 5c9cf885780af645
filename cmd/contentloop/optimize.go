// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/contentloop/contentloop/internal/optimize"
	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newOptimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize [content...]",
		Short: "Score content for engagement and suggest hashtags",
		Long: "Analyze content given as arguments, with --file (\"-\" for stdin), or the current draft\n" +
			"of a session with --session. --hashtags N asks only for hashtags.",
		RunE: runOptimize,
	}
	cmd.Flags().StringP("file", "f", "", "read content from a file (\"-\" for stdin)")
	cmd.Flags().String("session", "", "analyze the current draft of this session")
	cmd.Flags().StringP("brief", "b", "", "brief the content was written from")
	cmd.Flags().StringP("length", "l", "", "content length: short, medium or long")
	cmd.Flags().String("industry", "", "audience industry (default general)")
	cmd.Flags().Int("hashtags", 0, "only suggest this many hashtags")
	cmd.Flags().StringP("output", "o", "text", "output format: text, yaml or json")
	return cmd
}

func runOptimize(cmd *cobra.Command, args []string) error {
	sessionID, _ := cmd.Flags().GetString("session")
	brief, _ := cmd.Flags().GetString("brief")
	length, _ := cmd.Flags().GetString("length")
	industry, _ := cmd.Flags().GetString("industry")
	hashtags, _ := cmd.Flags().GetInt("hashtags")
	format, _ := cmd.Flags().GetString("output")
	gw := clientFor(cmd, draftClient)
	out := cmd.OutOrStdout()

	if sessionID != "" {
		var report optimize.Report
		err := gw.postJSON(cmd.Context(), sessionPath(sessionID, "optimize"), map[string]string{"industry": industry}, &report)
		if err != nil {
			return err
		}
		return renderReport(out, format, &report)
	}

	content, err := readContent(cmd, args)
	if err != nil {
		return err
	}

	if hashtags > 0 {
		var body struct {
			Hashtags []string `json:"hashtags"`
		}
		err := gw.postJSON(cmd.Context(), "/api/v1/optimization/hashtags", map[string]any{
			"content": content, "brief": brief, "count": hashtags,
		}, &body)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(out, strings.Join(body.Hashtags, " "))
		return nil
	}

	var report optimize.Report
	err = gw.postJSON(cmd.Context(), "/api/v1/optimization/analyze", map[string]string{
		"content": content, "brief": brief, "content_length": length, "industry": industry,
	}, &report)
	if err != nil {
		return err
	}
	return renderReport(out, format, &report)
}

func readContent(cmd *cobra.Command, args []string) (string, error) {
	file, _ := cmd.Flags().GetString("file")
	switch {
	case file == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", looperr.Errorf(looperr.CodeCLIInputInvalid, "reading stdin: %v", err)
		}
		return string(data), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return "", looperr.Errorf(looperr.CodeCLIInputInvalid, "reading %s: %v", file, err)
		}
		return string(data), nil
	case len(args) > 0:
		return strings.Join(args, " "), nil
	default:
		return "", looperr.New(looperr.CodeCLIInputInvalid, "no content: pass it as arguments, --file or --session")
	}
}

func renderReport(out io.Writer, format string, r *optimize.Report) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return looperr.Errorf(looperr.CodeCLIResponseInvalid, "rendering yaml: %v", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case "text":
	default:
		return looperr.Errorf(looperr.CodeCLIInputInvalid, "unknown output format %q (text, yaml or json)", format)
	}

	source := "model"
	if r.Fallback {
		source = "fallback"
	}
	_, _ = fmt.Fprintf(out, "Score:       %d/100 (%s)\n", r.OverallScore, source)
	_, _ = fmt.Fprintf(out, "Engagement:  %s\n", r.Engagement.Prediction)
	_, _ = fmt.Fprintf(out, "Readability: %s, %d paragraphs, hook %s\n",
		r.Structure.Readability, r.Structure.ParagraphCount, r.Structure.HookEffectiveness)
	_, _ = fmt.Fprintf(out, "Hashtags:    %s\n", strings.Join(r.Hashtags.Suggested, " "))
	_, _ = fmt.Fprintf(out, "Call to action: %s\n", r.CallToAction.Improved)
	if len(r.Recommendations) > 0 {
		_, _ = fmt.Fprintln(out, "Recommendations:")
		for _, rec := range r.Recommendations {
			_, _ = fmt.Fprintf(out, "  - %s\n", rec)
		}
	}
	return nil
}
