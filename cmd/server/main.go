// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/tavola/internal/api"
	"github.com/tomtom215/tavola/internal/authz"
	"github.com/tomtom215/tavola/internal/config"
	"github.com/tomtom215/tavola/internal/eventbus"
	"github.com/tomtom215/tavola/internal/featureflag"
	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/module"
	"github.com/tomtom215/tavola/internal/modules/builtin"
	"github.com/tomtom215/tavola/internal/realtime"
	"github.com/tomtom215/tavola/internal/registry"
	"github.com/tomtom215/tavola/internal/session"
	"github.com/tomtom215/tavola/internal/supervisor"
	"github.com/tomtom215/tavola/internal/supervisor/services"
	"github.com/tomtom215/tavola/internal/tenancy"
)

//nolint:gocyclo // sequential startup wiring
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("addr", cfg.Server.Addr()).
		Msg("Starting Tavola")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tenancy is built from the static catalog so the platform module can
	// receive it before boot.
	catalog, err := builtin.Catalog()
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid module catalog")
	}
	store, gc, err := openTenancyStore(cfg.Tenancy)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open tenancy store")
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing tenancy store")
		}
	}()
	tenants := tenancy.NewService(store, catalog)
	if err := tenants.ApplySeeds(ctx, tenantSeeds(cfg.Tenancy.Seeds)); err != nil {
		logging.Fatal().Err(err).Msg("Failed to apply tenant seeds")
	}

	enforcer, err := authz.NewEnforcer(&authz.Config{
		ModelPath:      cfg.Security.Casbin.ModelPath,
		PolicyPath:     cfg.Security.Casbin.PolicyPath,
		AutoReload:     cfg.Security.Casbin.AutoReload,
		ReloadInterval: cfg.Security.Casbin.ReloadInterval,
		CacheTTL:       cfg.Security.Casbin.CacheTTL,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize role grants")
	}
	defer enforcer.Close()

	tokens, err := session.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.SessionTTL, cfg.Security.Issuer)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize session tokens")
	}
	issuer := session.NewIssuer(tokens, enforcer, tenants, catalog.PermissionIDs())

	flagRules := featureflag.NewRuleProvider(cfg.FeatureFlags)
	flags := featureflag.NewBreakerProvider(flagRules, featureflag.DefaultBreakerConfig())

	bus := eventbus.New(eventbus.Config{
		HandlerTimeout:   cfg.Runtime.HandlerTimeout,
		StrictEventTypes: cfg.Runtime.StrictEventTypes,
	})

	hub := realtime.NewHub(realtime.Config{
		ClientBuffer:    cfg.Realtime.ClientBuffer,
		BroadcastBuffer: cfg.Realtime.BroadcastBuffer,
		InboundRate:     cfg.Realtime.InboundRate,
		InboundBurst:    cfg.Realtime.InboundBurst,
	})

	msg, err := startMessaging(ctx, cfg, bus, hub)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize messaging")
	}
	defer msg.Close()

	serviceRegistry := registry.New()
	runtime := module.New(module.Config{RegisterTimeout: cfg.Runtime.RegisterTimeout}, serviceRegistry, bus, hub)
	if err := runtime.Add(builtin.Modules(builtin.Deps{Tenancy: tenants})...); err != nil {
		logging.Fatal().Err(err).Msg("Failed to add modules")
	}
	if err := runtime.Boot(ctx); err != nil {
		logging.Fatal().Err(err).Msg("Module boot failed")
	}
	logging.Info().
		Strs("order", runtime.Status().Order).
		Dur("duration", runtime.Status().Duration).
		Msg("Modules booted")

	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.Security.CORSOrigins
	mw.RateLimitRequests = cfg.Security.RateLimitReqs
	mw.RateLimitWindow = cfg.Security.RateLimitWindow
	mw.RateLimitDisabled = cfg.Security.RateLimitDisabled
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED")
	}
	if cfg.Security.DevSessions {
		logging.Warn().Msg("Development session endpoint is ENABLED; any caller can obtain a session")
	}

	router, err := api.NewRouter(api.Deps{
		Runtime:          runtime,
		Services:         serviceRegistry,
		Flags:            flags,
		Bus:              bus,
		Hub:              hub,
		Tokens:           tokens,
		Issuer:           issuer,
		Middleware:       mw,
		WebSocketOrigins: cfg.Realtime.AllowedOrigins,
		DevSessions:      cfg.Security.DevSessions,
	}).SetupChi()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to build router")
	}
	server := api.NewServer(cfg.Server.Addr(), router, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.IdleTimeout)

	watchFeatureFlags(flagRules)

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: cfg.Supervisor.FailureThreshold,
		FailureDecay:     cfg.Supervisor.FailureDecay,
		FailureBackoff:   cfg.Supervisor.FailureBackoff,
		ShutdownTimeout:  cfg.Supervisor.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if gc != nil {
		tree.AddDataService(services.NewPeriodicService("tenancy-value-log-gc", 10*time.Minute, gc))
	}
	tree.AddMessagingService(hub)
	msg.supervise(tree)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errCh := tree.ServeBackground(ctx)
	logging.Info().Str("addr", cfg.Server.Addr()).Msg("Server listening")

	select {
	case sig := <-sigChan:
		logging.Info().Str("signal", sig.String()).Msg("Shutting down")
	case err := <-errCh:
		if err != nil {
			logging.Error().Err(err).Msg("Supervisor tree stopped")
		}
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(cfg.Supervisor.ShutdownTimeout + 5*time.Second):
		logging.Warn().Msg("Supervisor tree did not stop in time")
	}
	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop")
		}
	}
	logging.Info().Msg("Tavola stopped")
}

// watchFeatureFlags reloads flag rules when the config file changes.
func watchFeatureFlags(rules *featureflag.RuleProvider) {
	path := config.FilePath()
	if path == "" {
		return
	}
	err := config.WatchConfigFile(path, func() {
		cfg, err := config.Load()
		if err != nil {
			logging.Warn().Err(err).Str("path", path).Msg("Ignoring invalid config reload")
			return
		}
		rules.Replace(cfg.FeatureFlags)
		logging.Info().Int("flags", len(cfg.FeatureFlags)).Msg("Feature flags reloaded")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
	}
}
