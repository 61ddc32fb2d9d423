// ABOUTME: Wires config, storage, credentials, generation, and dispatch into one app
// ABOUTME: Every subcommand that touches chats goes through openApp

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/2389/coven-chorus/internal/auth"
	"github.com/2389/coven-chorus/internal/config"
	"github.com/2389/coven-chorus/internal/dispatch"
	"github.com/2389/coven-chorus/internal/generation"
	"github.com/2389/coven-chorus/internal/kvstore"
	"github.com/2389/coven-chorus/internal/metrics"
	"github.com/2389/coven-chorus/internal/storage"
)

type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	kv         kvstore.KV
	dispatcher *dispatch.Dispatcher
	metricsSrv *http.Server
}

func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.LoadOrDefault(getConfigPath(), getDataPath())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	logger := setupLogger(cfg.Logging)

	personas, err := config.LoadPersonas(cfg.Personas.Path)
	if err != nil {
		return nil, fmt.Errorf("loading personas: %w", err)
	}

	kv, err := kvstore.Open(cfg.Store.Backend, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	adapterOpts := []storage.Option{storage.WithLogger(logger)}
	if cfg.Auth.SecretEnv != "" {
		if secret := os.Getenv(cfg.Auth.SecretEnv); secret != "" {
			sealer, err := auth.NewSealer(secret)
			if err != nil {
				kv.Close()
				return nil, fmt.Errorf("creating sealer: %w", err)
			}
			adapterOpts = append(adapterOpts, storage.WithSealer(sealer))
		}
	}
	adapter := storage.NewAdapter(kv, adapterOpts...)

	state, err := adapter.GetOrInit(ctx, personas)
	if err != nil {
		kv.Close()
		return nil, fmt.Errorf("loading state: %w", err)
	}

	if cfg.Generation.Model != "" {
		model, err := generation.ParseModel(cfg.Generation.Model)
		if err != nil {
			kv.Close()
			return nil, fmt.Errorf("generation.model: %w", err)
		}
		state.Model = &model
	}
	if cfg.Generation.Service != "" {
		service, err := auth.ParseService(cfg.Generation.Service)
		if err != nil {
			kv.Close()
			return nil, fmt.Errorf("generation.service: %w", err)
		}
		state.Service = &service
	}

	a := &app{cfg: cfg, logger: logger, kv: kv}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		m = metrics.New(reg)
		a.startMetrics(reg)
	}

	// The dispatcher is the only owner of state once built, so stored
	// credentials are read through it.
	stored := auth.ProviderFunc(func(ctx context.Context) (auth.Credentials, error) {
		var creds *auth.Credentials
		a.dispatcher.View(func(s *storage.State) {
			if s.Auth != nil {
				c := *s.Auth
				creds = &c
			}
		})
		if creds == nil {
			return auth.Credentials{}, auth.ErrNoCredentials
		}
		return *creds, nil
	})
	provider := auth.Chain(
		preferService(stored, state.Service),
		preferService(auth.NewEnvProvider(cfg.Auth.EnvFile), state.Service),
	)
	connector := &generation.ClientConnector{
		Provider: provider,
		Options:  []generation.ClientOption{generation.WithLogger(logger)},
	}

	a.dispatcher = dispatch.New(state, adapter, connector,
		dispatch.WithLogger(logger),
		dispatch.WithMetrics(m),
		dispatch.WithStreamTimeout(cfg.Generation.StreamTimeout),
	)

	if err := a.dispatcher.Update(ctx, func(s *storage.State) error {
		s.RunCount++
		return nil
	}); err != nil {
		logger.Warn("failed to record run", "error", err)
	}

	return a, nil
}

// preferService hides credentials for any service other than want.
func preferService(p auth.Provider, want *auth.Service) auth.Provider {
	if want == nil {
		return p
	}
	return auth.ProviderFunc(func(ctx context.Context) (auth.Credentials, error) {
		creds, err := p.Credentials(ctx)
		if err != nil {
			return creds, err
		}
		if creds.Service != *want {
			return auth.Credentials{}, auth.ErrNoCredentials
		}
		return creds, nil
	})
}

func (a *app) startMetrics(reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle(a.cfg.Metrics.Path, metrics.Handler(reg))
	a.metricsSrv = &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		a.logger.Info("metrics listening", "addr", a.cfg.Metrics.Addr, "path", a.cfg.Metrics.Path)
		if err := a.metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server error", "error", err)
		}
	}()
}

func (a *app) Close() {
	if a.metricsSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.metricsSrv.Shutdown(ctx); err != nil {
			a.logger.Error("metrics shutdown error", "error", err)
		}
	}
	a.dispatcher.Close()
	if err := a.kv.Close(); err != nil {
		a.logger.Error("closing store", "error", err)
	}
}
