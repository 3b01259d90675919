// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package module

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/tavola/internal/eventbus"
	"github.com/tomtom215/tavola/internal/logging"
	"github.com/tomtom215/tavola/internal/manifest"
	"github.com/tomtom215/tavola/internal/metrics"
	"github.com/tomtom215/tavola/internal/registry"
)

var (
	// ErrDuplicateModule is returned by Add for a module ID already added.
	ErrDuplicateModule = errors.New("duplicate module")

	// ErrUnknownDependency is returned when dependsOn names a module that
	// was never added.
	ErrUnknownDependency = errors.New("unknown module dependency")

	// ErrDependencyCycle is returned when dependsOn forms a cycle.
	ErrDependencyCycle = errors.New("module dependency cycle")

	// ErrRegisterTimeout is returned when a module's Register does not
	// complete within the configured timeout.
	ErrRegisterTimeout = errors.New("module registration timed out")

	// ErrAlreadyBooted is returned by Add and Boot after a successful boot.
	ErrAlreadyBooted = errors.New("runtime already booted")

	// ErrNotBooted is returned by MountRoutes before a successful boot.
	ErrNotBooted = errors.New("runtime not booted")
)

// Config controls bootstrap.
type Config struct {
	// RegisterTimeout bounds each module's Register call. Zero disables it.
	RegisterTimeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{RegisterTimeout: 30 * time.Second}
}

// Status reports the outcome of Boot.
type Status struct {
	Booted   bool          `json:"booted"`
	Order    []string      `json:"order"`
	Duration time.Duration `json:"duration_ns"`
	Error    string        `json:"error,omitempty"`
}

// Runtime registers every module into one registry and one event bus, in
// dependency order, before the process serves traffic.
type Runtime struct {
	cfg      Config
	services *registry.Registry
	bus      *eventbus.Bus
	mc       *Context

	mu      sync.RWMutex
	modules []Module
	ids     map[string]struct{}
	catalog *manifest.Catalog
	booted  []Module
	status  Status
}

// New creates a runtime around an explicit registry and bus. emitter may be nil.
func New(cfg Config, services *registry.Registry, bus *eventbus.Bus, emitter Emitter) *Runtime {
	return &Runtime{
		cfg:      cfg,
		services: services,
		bus:      bus,
		mc:       newContext(bus, services, emitter),
		ids:      make(map[string]struct{}),
	}
}

// Add appends modules in declaration order.
func (rt *Runtime) Add(mods ...Module) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.status.Booted {
		return ErrAlreadyBooted
	}
	for _, m := range mods {
		if m == nil || m.Manifest() == nil {
			return errors.New("module and manifest are required")
		}
		id := m.Manifest().ID
		if _, exists := rt.ids[id]; exists {
			return fmt.Errorf("%w: %s", ErrDuplicateModule, id)
		}
		rt.ids[id] = struct{}{}
		rt.modules = append(rt.modules, m)
	}
	return nil
}

// Context returns the shared module context.
func (rt *Runtime) Context() *Context {
	return rt.mc
}

// Boot validates every manifest, then calls Register on each module in turn,
// waiting for one to finish before starting the next. The first failure
// aborts boot; modules already registered are not rolled back, and the
// caller must not serve traffic. On success the registry and bus are sealed.
func (rt *Runtime) Boot(ctx context.Context) error {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.status.Booted {
		return ErrAlreadyBooted
	}

	start := time.Now()
	err := rt.boot(ctx)
	rt.status.Duration = time.Since(start)
	if err != nil {
		rt.status.Error = err.Error()
		logging.Error().Err(err).Msg("Module runtime boot failed")
		return err
	}

	rt.services.Seal()
	rt.bus.Seal()
	rt.status.Booted = true

	logging.Info().
		Strs("modules", rt.status.Order).
		Int("services", rt.services.Len()).
		Dur("duration", rt.status.Duration).
		Msg("Module runtime booted")
	return nil
}

func (rt *Runtime) boot(ctx context.Context) error {
	manifests := make([]*manifest.ModuleManifest, 0, len(rt.modules))
	for _, m := range rt.modules {
		manifests = append(manifests, m.Manifest())
	}
	catalog, err := manifest.NewCatalog(manifests...)
	if err != nil {
		return fmt.Errorf("load manifests: %w", err)
	}
	rt.catalog = catalog

	order, err := resolveOrder(rt.modules)
	if err != nil {
		return err
	}

	for _, i := range order {
		m := rt.modules[i]
		mf := m.Manifest()

		eventTypes := make([]string, 0, len(mf.EventTypes))
		for _, et := range mf.EventTypes {
			eventTypes = append(eventTypes, et.ID)
		}
		rt.bus.Declare(mf.ID, eventTypes...)

		regStart := time.Now()
		if err := rt.register(ctx, m); err != nil {
			return fmt.Errorf("register module %s: %w", mf.ID, err)
		}
		if err := rt.mc.takeFailure(); err != nil {
			return fmt.Errorf("register module %s: %w", mf.ID, err)
		}
		elapsed := time.Since(regStart)
		metrics.RecordModuleRegistered(mf.ID, elapsed)

		rt.booted = append(rt.booted, m)
		rt.status.Order = append(rt.status.Order, mf.ID)

		logging.Info().
			Str("module", mf.ID).
			Str("version", mf.Version).
			Dur("duration", elapsed).
			Msg("Module registered")
	}
	return nil
}

// register runs one Register call under the configured timeout and turns a
// panic into an error.
func (rt *Runtime) register(ctx context.Context, m Module) error {
	rctx := ctx
	if rt.cfg.RegisterTimeout > 0 {
		var cancel context.CancelFunc
		rctx, cancel = context.WithTimeout(ctx, rt.cfg.RegisterTimeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("panic: %v", r)
			}
		}()
		done <- m.Register(rctx, rt.mc)
	}()

	select {
	case err := <-done:
		return err
	case <-rctx.Done():
		if errors.Is(rctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("%w after %s", ErrRegisterTimeout, rt.cfg.RegisterTimeout)
		}
		return rctx.Err()
	}
}

// Catalog returns the manifest catalog built during Boot.
func (rt *Runtime) Catalog() *manifest.Catalog {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.catalog
}

// Modules returns the registered modules in boot order.
func (rt *Runtime) Modules() []Module {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]Module, len(rt.booted))
	copy(out, rt.booted)
	return out
}

// Status returns a copy of the boot status.
func (rt *Runtime) Status() Status {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	s := rt.status
	s.Order = append([]string(nil), rt.status.Order...)
	return s
}

// MountRoutes lets every booted RouteMounter add its routes to r, in boot order.
func (rt *Runtime) MountRoutes(r chi.Router, env RouteEnv) error {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	if !rt.status.Booted {
		return ErrNotBooted
	}
	for _, m := range rt.booted {
		if mounter, ok := m.(RouteMounter); ok {
			mounter.MountRoutes(r, env)
			logging.Debug().Str("module", m.Manifest().ID).Msg("Module routes mounted")
		}
	}
	return nil
}
