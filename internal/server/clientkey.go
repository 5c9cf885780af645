// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package server

import (
	"context"
	"log/slog"
	"net"
	"net/http"
)

type clientIPContextKey struct{}

func clientIPContextMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIPFromRemoteAddr(r.RemoteAddr)
		ctx := context.WithValue(r.Context(), clientIPContextKey{}, ip)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func clientIPFromRemoteAddr(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		truncated := remoteAddr
		if len(truncated) > 64 {
			truncated = truncated[:64] + "..."
		}
		slog.Warn("failed to parse RemoteAddr, using raw value as client key",
			"remote_addr", truncated,
			"error", err)
		return remoteAddr
	}
	return host
}

// clientKey is the admission-control identity for the request.
func clientKey(ctx context.Context) string {
	if ip, ok := ctx.Value(clientIPContextKey{}).(string); ok && ip != "" {
		return "ip:" + ip
	}
	return "ip:unknown"
}
