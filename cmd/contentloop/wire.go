// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ContentLoop Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sort"

	"github.com/contentloop/contentloop/internal/config"
	"github.com/contentloop/contentloop/internal/engine"
	"github.com/contentloop/contentloop/internal/generate"
	"github.com/contentloop/contentloop/internal/guard"
	"github.com/contentloop/contentloop/internal/optimize"
	"github.com/contentloop/contentloop/internal/provider"
	anthropicprov "github.com/contentloop/contentloop/internal/provider/anthropic"
	googleprov "github.com/contentloop/contentloop/internal/provider/google"
	openaiprov "github.com/contentloop/contentloop/internal/provider/openai"
	openrouterprov "github.com/contentloop/contentloop/internal/provider/openrouter"
	"github.com/contentloop/contentloop/internal/safety"
	"github.com/contentloop/contentloop/internal/server"
	"github.com/contentloop/contentloop/internal/session"
	"github.com/contentloop/contentloop/internal/store"
	_ "github.com/contentloop/contentloop/internal/store/memory" // register memory backend
	_ "github.com/contentloop/contentloop/internal/store/sqlite" // register sqlite backend
	looperr "github.com/contentloop/contentloop/pkg/errors"
)

// Gateway holds all wired subsystems and manages their lifecycle.
type Gateway struct {
	Server           *server.Server
	Sessions         *session.Store
	Engine           *engine.Engine
	ProviderRegistry *provider.Registry

	// stop ends the guard's cleanup loop.
	stop chan struct{}
}

// WireGateway creates all subsystems and wires them together. dataDir
// overrides storage.data_dir when non-empty.
func WireGateway(cfg *config.Config, dataDir string) (*Gateway, error) {
	if dataDir == "" {
		dataDir = cfg.Storage.DataDir
	}
	if cfg.Storage.Backend == "sqlite" {
		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return nil, looperr.Errorf(looperr.CodeCLISetupFailure, "creating data directory: %v", err)
		}
	}

	// 1. Provider registry and routing.
	provReg := provider.NewRegistry()
	registerBuiltinProviders(cfg, provReg)

	if err := provReg.SetDefault(cfg.Models.Default); err != nil {
		name, _ := provider.ParseRef(cfg.Models.Default)
		return nil, looperr.Errorf(looperr.CodeCLISetupFailure,
			"default model %s is unavailable (set an API key with `contentloop secret set %s`): %v",
			cfg.Models.Default, name, err)
	}
	if failover := registeredOnly(provReg, cfg.Models.Failover); len(failover) > 0 {
		if err := provReg.SetFailover(failover); err != nil {
			return nil, looperr.Wrapf(err, looperr.CodeCLISetupFailure, "setting failover chain")
		}
	}

	// 2. Session store.
	backend, err := store.NewSessionStore(&store.StorageConfig{Backend: cfg.Storage.Backend, DataDir: dataDir})
	if err != nil {
		return nil, looperr.Wrapf(err, looperr.CodeCLISetupFailure, "creating session store")
	}
	sessions := session.New(backend, session.Config{
		TTL:          cfg.Sessions.TTL,
		ReapInterval: cfg.Sessions.ReapInterval,
		MaxPending:   cfg.Sessions.MaxPending,
	})

	// 3. Admission guard. Nil when no budget is configured.
	stop := make(chan struct{})
	g, err := guard.New(guard.Config{
		Window:    cfg.Guard.Window,
		PerClient: cfg.Guard.PerClient,
		Global:    cfg.Guard.Global,
		MaxKeys:   cfg.Guard.MaxKeys,
	}, stop)
	if err != nil {
		_ = sessions.Close()
		return nil, looperr.Wrapf(err, looperr.CodeCLISetupFailure, "creating guard")
	}

	// 4. Safety filter, generator, engine and optimizer.
	filter, err := safety.NewFilter(safety.Config{
		InputMode:  safety.Mode(cfg.Safety.InputMode),
		OutputMode: safety.Mode(cfg.Safety.OutputMode),
	})
	if err != nil {
		close(stop)
		_ = sessions.Close()
		return nil, looperr.Wrapf(err, looperr.CodeCLISetupFailure, "creating safety filter")
	}
	gen := generate.New(provReg, generate.Config{
		Model:       cfg.Models.Default,
		Temperature: cfg.Models.Temperature,
		MaxTokens:   cfg.Models.MaxTokens,
	})
	eng := engine.New(sessions, gen, g, engine.Config{
		GenerationTimeout: cfg.Engine.GenerationTimeout,
		Terminator:        engine.NewSentinelTerminator(cfg.Engine.Sentinels...),
		Screener:          filter,
	})
	opt := optimize.New(gen, g)

	// 5. HTTP server.
	services, err := server.NewServices(eng, sessions, opt, provReg)
	if err != nil {
		close(stop)
		_ = sessions.Close()
		return nil, looperr.Wrapf(err, looperr.CodeCLISetupFailure, "creating services")
	}
	srv, err := server.New(server.Config{
		ListenAddr:   cfg.Networking.Listen,
		CORSOrigins:  cfg.Networking.CORSOrigins,
		ReadTimeout:  cfg.Networking.ReadTimeout,
		WriteTimeout: cfg.Networking.WriteTimeout,
		Services:     services,
		Version:      version,
	})
	if err != nil {
		close(stop)
		_ = sessions.Close()
		return nil, looperr.Wrapf(err, looperr.CodeCLISetupFailure, "creating server")
	}

	return &Gateway{
		Server:           srv,
		Sessions:         sessions,
		Engine:           eng,
		ProviderRegistry: provReg,
		stop:             stop,
	}, nil
}

// Start runs the reaper and the HTTP server and blocks until ctx is cancelled.
func (gw *Gateway) Start(ctx context.Context) error {
	gw.Sessions.StartReaper(ctx)
	return gw.Server.Start(ctx)
}

// Close releases all resources held by the gateway.
func (gw *Gateway) Close() error {
	if gw.stop != nil {
		close(gw.stop)
		gw.stop = nil
	}

	type closer interface{ Close() error }
	closers := []closer{gw.Server, gw.Sessions, gw.ProviderRegistry}

	var errs []error
	for _, c := range closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// providerFactory builds a provider.Provider from a ProviderConfig.
type providerFactory func(config.ProviderConfig) (provider.Provider, error)

// builtinProviderFactories maps provider names to their constructors.
// Declared as a variable so tests can inject failing factories.
var builtinProviderFactories = map[string]providerFactory{
	"anthropic": func(pc config.ProviderConfig) (provider.Provider, error) {
		return anthropicprov.New(anthropicprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
	},
	"google": func(pc config.ProviderConfig) (provider.Provider, error) {
		return googleprov.New(googleprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
	},
	"openai": func(pc config.ProviderConfig) (provider.Provider, error) {
		return openaiprov.New(openaiprov.Config{APIKey: pc.APIKey, BaseURL: pc.Endpoint})
	},
	"openrouter": func(pc config.ProviderConfig) (provider.Provider, error) {
		return openrouterprov.New(openrouterprov.Config{
			APIKey:   pc.APIKey,
			BaseURL:  pc.Endpoint,
			AppTitle: "ContentLoop",
		})
	},
}

// registerBuiltinProviders registers every configured provider that has an
// API key. Unknown names, empty keys and constructor failures are logged and
// skipped.
func registerBuiltinProviders(cfg *config.Config, reg *provider.Registry) {
	names := make([]string, 0, len(cfg.Providers))
	for name := range cfg.Providers {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		pc := cfg.Providers[name]
		if pc.APIKey == "" {
			slog.Warn("skipping provider with empty API key", "provider", name)
			continue
		}
		factory, ok := builtinProviderFactories[name]
		if !ok {
			slog.Warn("unknown provider in config, skipping", "provider", name)
			continue
		}
		p, err := factory(pc)
		if err != nil {
			slog.Warn("failed to create provider", "provider", name, "error", err)
			continue
		}
		reg.Register(name, p)
		slog.Info("registered provider", "provider", name)
	}
}

// registeredOnly drops failover refs whose provider is not registered.
func registeredOnly(reg *provider.Registry, chain []string) []string {
	out := make([]string, 0, len(chain))
	for _, ref := range chain {
		name, _ := provider.ParseRef(ref)
		if _, err := reg.Get(name); err != nil {
			slog.Warn("dropping failover model with unregistered provider", "model", ref, "provider", name)
			continue
		}
		out = append(out, ref)
	}
	return out
}
