// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/contentloop/contentloop/internal/engine"
	"github.com/contentloop/contentloop/internal/optimize"
	"github.com/contentloop/contentloop/internal/server"
	"github.com/contentloop/contentloop/internal/session"
	"github.com/contentloop/contentloop/internal/store"
	looperr "github.com/contentloop/contentloop/pkg/errors"
)

func main() {
	spec, err := generateSpec()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	outPath := "api/openapi/openapi.json"
	if len(os.Args) > 1 {
		outPath = os.Args[1]
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "error creating output dir: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, spec, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "error writing document: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("OpenAPI document written to %s\n", outPath)
}

// generateSpec registers every route on a server backed by no-op services
// and renders the OpenAPI document huma derives from the handler types.
func generateSpec() ([]byte, error) {
	svc, err := server.NewServices(stubRefiner{}, stubSessions{}, stubOptimizer{}, nil)
	if err != nil {
		return nil, looperr.Wrapf(err, looperr.CodeCLISetupFailure, "creating services")
	}

	srv, err := server.New(server.Config{
		ListenAddr: "127.0.0.1:0",
		Services:   svc,
	})
	if err != nil {
		return nil, looperr.Wrapf(err, looperr.CodeCLISetupFailure, "creating server")
	}

	return json.MarshalIndent(srv.API().OpenAPI(), "", "  ")
}

// No-op services. Handlers are never invoked while rendering.

type stubRefiner struct{}

func (stubRefiner) Start(context.Context, engine.StartRequest) (*engine.Result, error) {
	return nil, nil
}

func (stubRefiner) SubmitFeedback(context.Context, engine.FeedbackRequest) (*engine.Result, error) {
	return nil, nil
}
func (stubRefiner) Finish(context.Context, string) (*engine.Result, error) { return nil, nil }
func (stubRefiner) Get(context.Context, string) (*store.Session, error)    { return nil, nil }
func (stubRefiner) Delete(context.Context, string) error                   { return nil }

type stubSessions struct{}

func (stubSessions) Stats(context.Context) (session.Stats, error) { return session.Stats{}, nil }
func (stubSessions) Reap(context.Context) (int, error)            { return 0, nil }

type stubOptimizer struct{}

func (stubOptimizer) Analyze(context.Context, optimize.Input) (*optimize.Report, error) {
	return nil, nil
}

func (stubOptimizer) Hashtags(context.Context, string, string, int, string) ([]string, error) {
	return nil, nil
}
