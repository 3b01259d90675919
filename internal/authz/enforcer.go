// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

// Package authz resolves which declared permissions a role holds, using a
// Casbin RBAC model with role inheritance and namespace wildcards
// ("financial.*"). Grants are resolved when a session is issued and embedded
// in the session snapshot; request guards never call the enforcer.
package authz

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	fileadapter "github.com/casbin/casbin/v2/persist/file-adapter"

	"github.com/tomtom215/tavola/internal/logging"
)

// ActionGrant is the only action in the policy.
const ActionGrant = "grant"

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

// ErrNoAdapter is returned by SavePolicy and LoadPolicy when the enforcer
// runs on the embedded policy.
var ErrNoAdapter = errors.New("no policy adapter configured; using embedded policy")

// Config holds configuration for the enforcer.
type Config struct {
	// ModelPath is the path to the Casbin model file. Empty uses the embedded model.
	ModelPath string

	// PolicyPath is the path to the Casbin policy file. Empty uses the embedded policy.
	PolicyPath string

	// AutoReload periodically reloads PolicyPath.
	AutoReload bool

	// ReloadInterval is how often to reload the policy file.
	ReloadInterval time.Duration

	// CacheTTL is how long grant decisions are cached. Zero disables caching.
	CacheTTL time.Duration
}

// DefaultConfig returns default configuration.
func DefaultConfig() *Config {
	return &Config{
		ReloadInterval: 30 * time.Second,
		CacheTTL:       5 * time.Minute,
	}
}

// Enforcer wraps the Casbin enforcer.
type Enforcer struct {
	config   *Config
	enforcer *casbin.SyncedEnforcer
	cache    *grantCache
	external bool
}

// NewEnforcer creates an enforcer from files, or from the embedded model and
// policy when no paths are configured.
func NewEnforcer(config *Config) (*Enforcer, error) {
	if config == nil {
		config = DefaultConfig()
	}

	var m model.Model
	var err error
	if config.ModelPath != "" && fileExists(config.ModelPath) {
		m, err = model.NewModelFromFile(config.ModelPath)
	} else {
		m, err = model.NewModelFromString(embeddedModel)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	var enforcer *casbin.SyncedEnforcer
	external := false
	if config.PolicyPath != "" && fileExists(config.PolicyPath) {
		enforcer, err = casbin.NewSyncedEnforcer(m, fileadapter.NewAdapter(config.PolicyPath))
		external = true
	} else {
		enforcer, err = casbin.NewSyncedEnforcer(m)
		if err == nil {
			err = loadPolicyText(enforcer, embeddedPolicy)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	if config.AutoReload && external {
		enforcer.StartAutoLoadPolicy(config.ReloadInterval)
	}

	e := &Enforcer{
		config:   config,
		enforcer: enforcer,
		external: external,
	}
	if config.CacheTTL > 0 {
		e.cache = newGrantCache(config.CacheTTL)
	}

	logging.Debug().
		Bool("external_policy", external).
		Int("policies", len(e.GetPolicy())).
		Msg("Authorization enforcer ready")
	return e, nil
}

// loadPolicyText parses policy CSV lines into the enforcer.
func loadPolicyText(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) < 3 {
			continue
		}

		ptype, rule := parts[0], parts[1:]
		switch ptype {
		case "p":
			if len(rule) >= 3 {
				if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2]); err != nil {
					return fmt.Errorf("failed to add policy %v: %w", rule, err)
				}
			}
		case "g":
			if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", rule, err)
			}
		}
	}
	return nil
}

// Allowed reports whether role holds permission.
func (e *Enforcer) Allowed(role, permission string) (bool, error) {
	if e.cache != nil {
		if allowed, ok := e.cache.get(role, permission); ok {
			return allowed, nil
		}
	}

	allowed, err := e.enforcer.Enforce(role, permission, ActionGrant)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}

	if e.cache != nil {
		e.cache.set(role, permission, allowed)
	}
	return allowed, nil
}

// Grants returns the subset of declared permissions that role holds, in the
// order given. Wildcards in the policy never produce permissions that no
// module declared.
func (e *Enforcer) Grants(role string, declared []string) ([]string, error) {
	granted := make([]string, 0, len(declared))
	for _, perm := range declared {
		ok, err := e.Allowed(role, perm)
		if err != nil {
			return nil, err
		}
		if ok {
			granted = append(granted, perm)
		}
	}
	return granted, nil
}

// KnownRole reports whether role appears in any policy or grouping rule.
func (e *Enforcer) KnownRole(role string) bool {
	for _, p := range e.GetPolicy() {
		if len(p) > 0 && p[0] == role {
			return true
		}
	}
	for _, g := range e.GetGroupingPolicy() {
		for _, r := range g {
			if r == role {
				return true
			}
		}
	}
	return false
}

// ImplicitRoles returns the roles role inherits from.
func (e *Enforcer) ImplicitRoles(role string) ([]string, error) {
	return e.enforcer.GetImplicitRolesForUser(role)
}

// AddGrant adds a role -> permission rule.
func (e *Enforcer) AddGrant(role, permission string) (bool, error) {
	added, err := e.enforcer.AddPolicy(role, permission, ActionGrant)
	if err != nil {
		return false, fmt.Errorf("failed to add grant: %w", err)
	}
	e.invalidate()
	return added, nil
}

// RemoveGrant removes a role -> permission rule.
func (e *Enforcer) RemoveGrant(role, permission string) (bool, error) {
	removed, err := e.enforcer.RemovePolicy(role, permission, ActionGrant)
	if err != nil {
		return false, fmt.Errorf("failed to remove grant: %w", err)
	}
	e.invalidate()
	return removed, nil
}

// AddRoleInheritance makes role inherit every grant of parent.
func (e *Enforcer) AddRoleInheritance(role, parent string) error {
	if _, err := e.enforcer.AddGroupingPolicy(role, parent); err != nil {
		return fmt.Errorf("failed to add role inheritance: %w", err)
	}
	e.invalidate()
	return nil
}

// LoadPolicy reloads the policy file.
func (e *Enforcer) LoadPolicy() error {
	if !e.external {
		return ErrNoAdapter
	}
	if err := e.enforcer.LoadPolicy(); err != nil {
		return fmt.Errorf("failed to load policy: %w", err)
	}
	e.invalidate()
	return nil
}

// SavePolicy writes the current policy to the policy file.
func (e *Enforcer) SavePolicy() error {
	if !e.external {
		return ErrNoAdapter
	}
	return e.enforcer.SavePolicy()
}

// GetPolicy returns all policy rules.
func (e *Enforcer) GetPolicy() [][]string {
	p, _ := e.enforcer.GetPolicy()
	return p
}

// GetGroupingPolicy returns all role inheritance rules.
func (e *Enforcer) GetGroupingPolicy() [][]string {
	g, _ := e.enforcer.GetGroupingPolicy()
	return g
}

// Close stops background work.
func (e *Enforcer) Close() {
	if e.config.AutoReload && e.external {
		e.enforcer.StopAutoLoadPolicy()
	}
	if e.cache != nil {
		e.cache.stop()
	}
}

func (e *Enforcer) invalidate() {
	if e.cache != nil {
		e.cache.clear()
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
