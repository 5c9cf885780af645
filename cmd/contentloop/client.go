// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/spf13/cobra"
)

// statusClient is used for quick probes. Overridden in tests.
var statusClient = &http.Client{Timeout: 5 * time.Second}

// draftClient must outlast a generation on the gateway.
var draftClient = &http.Client{Timeout: 150 * time.Second}

// gatewayClient provides HTTP access to a running ContentLoop gateway.
type gatewayClient struct {
	baseURL string
	http    *http.Client
}

func newGatewayClient(addr string, client *http.Client) *gatewayClient {
	return &gatewayClient{
		baseURL: "http://" + addr,
		http:    client,
	}
}

func clientFor(cmd *cobra.Command, client *http.Client) *gatewayClient {
	addr, _ := cmd.Flags().GetString("address")
	return newGatewayClient(addr, client)
}

// apiError mirrors the gateway's error body.
type apiError struct {
	Status    int    `json:"status"`
	Title     string `json:"title"`
	Detail    string `json:"detail"`
	Reason    string `json:"reason"`
	SessionID string `json:"session_id"`
	Draft     string `json:"draft"`
}

func (c *gatewayClient) getJSON(ctx context.Context, path string, dest any) error {
	return c.do(ctx, http.MethodGet, path, nil, dest)
}

func (c *gatewayClient) postJSON(ctx context.Context, path string, body, dest any) error {
	return c.do(ctx, http.MethodPost, path, body, dest)
}

func (c *gatewayClient) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// do sends one request. A refused connection yields CodeCLIGatewayNotRunning;
// a non-2xx status yields CodeCLIRequestFailure carrying the gateway's detail.
func (c *gatewayClient) do(ctx context.Context, method, path string, body, dest any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return looperr.Errorf(looperr.CodeCLIInputInvalid, "encoding request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return looperr.Errorf(looperr.CodeCLIRequestFailure, "building request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if isDialError(err) {
			return looperr.Errorf(looperr.CodeCLIGatewayNotRunning, "gateway at %s is not running (connection refused)", c.baseURL)
		}
		return looperr.Errorf(looperr.CodeCLIRequestFailure, "request failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Detail != "" {
			return looperr.New(looperr.CodeCLIRequestFailure,
				fmt.Sprintf("%s (%s)", apiErr.Detail, apiErr.Reason),
				looperr.Field("reason", apiErr.Reason),
				looperr.Field("status", resp.StatusCode))
		}
		return looperr.Errorf(looperr.CodeCLIRequestFailure, "gateway returned status %d: %s", resp.StatusCode, string(raw))
	}

	if dest == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return looperr.Errorf(looperr.CodeCLIResponseInvalid, "invalid response: %v", err)
	}
	return nil
}

// isDialError returns true if err is a net dial error (connection refused, etc.).
func isDialError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return opErr.Op == "dial"
	}
	return false
}
