// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	looperr "github.com/contentloop/contentloop/pkg/errors"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// DefaultCORSOrigins are the local frontend dev servers allowed when no
// origins are configured.
var DefaultCORSOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// Config holds HTTP server configuration.
type Config struct {
	ListenAddr   string
	CORSOrigins  []string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Services     *Services
	// Version is reported in the OpenAPI document.
	Version string
}

// Server wraps a chi router with the huma API and the HTTP listener.
type Server struct {
	router   chi.Router
	api      huma.API
	cfg      Config
	services *Services

	mu      sync.Mutex
	httpSrv *http.Server
}

// New creates a Server with the chi router, huma API, CORS and every route.
func New(cfg Config) (*Server, error) {
	if cfg.ListenAddr == "" {
		return nil, looperr.New(looperr.CodeServerConfigInvalid, "listen address is required")
	}
	if cfg.Services == nil {
		return nil, looperr.New(looperr.CodeServerConfigInvalid, "services are required")
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// Generator calls may take up to the engine's generation timeout.
		cfg.WriteTimeout = 120 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(cfg.CORSOrigins))
	r.Use(clientIPContextMiddleware)

	humaConfig := huma.DefaultConfig("ContentLoop Gateway", cfg.Version)
	humaConfig.Info.Description = "Human-in-the-loop content drafting and refinement API"
	api := humachi.New(r, humaConfig)

	srv := &Server{
		router:   r,
		api:      api,
		cfg:      cfg,
		services: cfg.Services,
	}
	srv.registerRoutes()

	return srv, nil
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// API returns the huma API, used to render the OpenAPI document.
func (s *Server) API() huma.API {
	return s.api
}

// Start runs the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return looperr.Wrapf(err, looperr.CodeServerStartFailure, "listening on %s", s.cfg.ListenAddr)
	}

	httpSrv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}
	s.mu.Lock()
	s.httpSrv = httpSrv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return looperr.Wrapf(err, looperr.CodeServerStartFailure, "serving on %s", s.cfg.ListenAddr)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return looperr.Wrapf(err, looperr.CodeServerShutdownFailure, "shutting down")
	}

	return <-errCh
}

// Close stops a running server immediately. It is safe to call when Start
// was never called.
func (s *Server) Close() error {
	s.mu.Lock()
	httpSrv := s.httpSrv
	s.mu.Unlock()
	if httpSrv == nil {
		return nil
	}
	return httpSrv.Close()
}

func corsMiddleware(origins []string) func(http.Handler) http.Handler {
	if len(origins) == 0 {
		origins = DefaultCORSOrigins
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
