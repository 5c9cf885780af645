// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"

	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// sessionResult mirrors the gateway's state-changing session responses.
type sessionResult struct {
	SessionID     string `json:"session_id"`
	State         string `json:"state"`
	Draft         string `json:"draft"`
	RevisionCount int    `json:"revision_count"`
	Message       string `json:"message"`
}

// sessionView mirrors GET /api/v1/sessions/{id}.
type sessionView struct {
	SessionID     string   `json:"session_id" yaml:"session_id"`
	State         string   `json:"state" yaml:"state"`
	Brief         string   `json:"brief" yaml:"brief"`
	ContentLength string   `json:"content_length" yaml:"content_length"`
	Style         string   `json:"style,omitempty" yaml:"style,omitempty"`
	Draft         string   `json:"draft" yaml:"draft"`
	RevisionCount int      `json:"revision_count" yaml:"revision_count"`
	Feedback      []string `json:"feedback_history" yaml:"feedback_history"`
	LastError     string   `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	CreatedAt     string   `json:"created_at" yaml:"created_at"`
	UpdatedAt     string   `json:"updated_at" yaml:"updated_at"`
}

func newDraftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Draft and refine content through a running gateway",
	}

	cmd.AddCommand(
		newDraftNewCmd(),
		newDraftTUICmd(),
		newDraftFeedbackCmd(),
		newDraftFinishCmd(),
		newDraftShowCmd(),
		newDraftDeleteCmd(),
	)

	return cmd
}

func newDraftNewCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <brief...>",
		Short: "Start a session from a brief and print the first draft",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runDraftNew,
	}
	cmd.Flags().StringP("length", "l", "medium", "content length: short, medium or long")
	cmd.Flags().StringP("style", "s", "", "tone or style guidance")
	cmd.Flags().BoolP("interactive", "i", false, "keep reading feedback lines from stdin until \"done\"")
	return cmd
}

func newDraftFeedbackCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "feedback <session-id> <feedback...>",
		Short: "Submit feedback and print the revised draft (\"done\" finishes)",
		Args:  cobra.MinimumNArgs(2),
		RunE:  runDraftFeedback,
	}
}

func newDraftFinishCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finish <session-id>",
		Short: "Accept the current draft",
		Args:  cobra.ExactArgs(1),
		RunE:  runDraftFinish,
	}
}

func newDraftShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <session-id>",
		Short: "Show a session",
		Args:  cobra.ExactArgs(1),
		RunE:  runDraftShow,
	}
	cmd.Flags().StringP("output", "o", "text", "output format: text, yaml or json")
	return cmd
}

func newDraftDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <session-id>",
		Short: "Delete a session",
		Args:  cobra.ExactArgs(1),
		RunE:  runDraftDelete,
	}
}

func sessionPath(id string, suffix ...string) string {
	p := "/api/v1/sessions/" + url.PathEscape(id)
	for _, s := range suffix {
		p += "/" + s
	}
	return p
}

func runDraftNew(cmd *cobra.Command, args []string) error {
	length, _ := cmd.Flags().GetString("length")
	style, _ := cmd.Flags().GetString("style")
	gw := clientFor(cmd, draftClient)
	out := cmd.OutOrStdout()

	var res sessionResult
	err := gw.postJSON(cmd.Context(), "/api/v1/sessions", map[string]string{
		"brief":          strings.Join(args, " "),
		"content_length": length,
		"style":          style,
	}, &res)
	if err != nil {
		return err
	}
	printResult(out, res)

	if interactive, _ := cmd.Flags().GetBool("interactive"); interactive {
		return feedbackLoop(cmd, gw, res.SessionID)
	}
	_, _ = fmt.Fprintf(out, "\nNext: contentloop draft feedback %s \"<changes>\"  (or \"done\")\n", res.SessionID)
	return nil
}

// feedbackLoop sends one feedback round per input line until the session
// completes or input ends. End of input finishes the session.
func feedbackLoop(cmd *cobra.Command, gw *gatewayClient, id string) error {
	out := cmd.OutOrStdout()
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for {
		_, _ = fmt.Fprint(out, "\nFeedback (\"done\" to finish)> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}

		var res sessionResult
		if err := gw.postJSON(cmd.Context(), sessionPath(id, "feedback"), map[string]string{"feedback_text": text}, &res); err != nil {
			_, _ = fmt.Fprintf(out, "\nError: %v\n", err)
			continue
		}
		printResult(out, res)
		if res.State == "COMPLETED" {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return looperr.Errorf(looperr.CodeCLIInputInvalid, "reading feedback: %v", err)
	}

	var res sessionResult
	if err := gw.postJSON(cmd.Context(), sessionPath(id, "finish"), nil, &res); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out)
	printResult(out, res)
	return nil
}

func runDraftFeedback(cmd *cobra.Command, args []string) error {
	var res sessionResult
	err := clientFor(cmd, draftClient).postJSON(cmd.Context(), sessionPath(args[0], "feedback"),
		map[string]string{"feedback_text": strings.Join(args[1:], " ")}, &res)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func runDraftFinish(cmd *cobra.Command, args []string) error {
	var res sessionResult
	if err := clientFor(cmd, statusClient).postJSON(cmd.Context(), sessionPath(args[0], "finish"), nil, &res); err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), res)
	return nil
}

func runDraftShow(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("output")
	var view sessionView
	if err := clientFor(cmd, statusClient).getJSON(cmd.Context(), sessionPath(args[0]), &view); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(view); err != nil {
			return looperr.Errorf(looperr.CodeCLIResponseInvalid, "rendering yaml: %v", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	case "text":
		_, _ = fmt.Fprintf(out, "Session:   %s\n", view.SessionID)
		_, _ = fmt.Fprintf(out, "State:     %s\n", view.State)
		_, _ = fmt.Fprintf(out, "Brief:     %s\n", view.Brief)
		_, _ = fmt.Fprintf(out, "Length:    %s\n", view.ContentLength)
		_, _ = fmt.Fprintf(out, "Revisions: %d\n", view.RevisionCount)
		for i, fb := range view.Feedback {
			_, _ = fmt.Fprintf(out, "  %d. %s\n", i+1, fb)
		}
		if view.LastError != "" {
			_, _ = fmt.Fprintf(out, "Last error: %s\n", view.LastError)
		}
		_, _ = fmt.Fprintf(out, "\n%s\n", view.Draft)
		return nil
	default:
		return looperr.Errorf(looperr.CodeCLIInputInvalid, "unknown output format %q (text, yaml or json)", format)
	}
}

func runDraftDelete(cmd *cobra.Command, args []string) error {
	if err := clientFor(cmd, statusClient).delete(cmd.Context(), sessionPath(args[0])); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Deleted session %s\n", args[0])
	return nil
}

func printResult(out io.Writer, res sessionResult) {
	_, _ = fmt.Fprintf(out, "Session %s [%s, %d revisions]\n", res.SessionID, res.State, res.RevisionCount)
	if res.Message != "" {
		_, _ = fmt.Fprintln(out, res.Message)
	}
	if res.Draft != "" {
		_, _ = fmt.Fprintf(out, "\n%s\n", res.Draft)
	}
}
