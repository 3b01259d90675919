// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

// Package featureflag resolves named flags for a tenant, user and role.
//
// RuleProvider evaluates rules loaded from configuration. BreakerProvider
// wraps any Provider (typically a remote flag service) in a circuit breaker
// so an unhealthy provider fails fast instead of stalling requests.
package featureflag

import (
	"context"
	"hash/fnv"
	"slices"
	"sync"

	"github.com/tomtom215/tavola/internal/logging"
)

// Subject is who a flag is evaluated for.
type Subject struct {
	TenantID string
	UserID   string
	Role     string
}

// Provider resolves a flag for a subject.
type Provider interface {
	IsEnabled(ctx context.Context, flagID string, subject Subject) (bool, error)
}

// Rule describes when a flag is on. An empty list matches everyone; a
// non-empty list restricts the flag to its members. Percentage rolls the
// flag out to a stable share of tenants.
type Rule struct {
	Enabled    bool     `koanf:"enabled"`
	Tenants    []string `koanf:"tenants"`
	Roles      []string `koanf:"roles"`
	Users      []string `koanf:"users"`
	Percentage int      `koanf:"percentage"`
}

// Matches reports whether the rule turns the flag on for subject.
func (r Rule) Matches(flagID string, s Subject) bool {
	if !r.Enabled {
		return false
	}
	if len(r.Tenants) > 0 && !slices.Contains(r.Tenants, s.TenantID) {
		return false
	}
	if len(r.Roles) > 0 && !slices.Contains(r.Roles, s.Role) {
		return false
	}
	if len(r.Users) > 0 && !slices.Contains(r.Users, s.UserID) {
		return false
	}
	if r.Percentage > 0 && r.Percentage < 100 {
		return bucket(flagID, s.TenantID) < uint32(r.Percentage)
	}
	return true
}

// bucket maps (flag, tenant) to a stable value in [0, 100).
func bucket(flagID, tenantID string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(flagID))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(tenantID))
	return h.Sum32() % 100
}

// RuleProvider evaluates flags from an in-memory rule set. Unknown flags are
// disabled.
type RuleProvider struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

// NewRuleProvider creates a provider from a flag -> rule map.
func NewRuleProvider(rules map[string]Rule) *RuleProvider {
	p := &RuleProvider{rules: make(map[string]Rule, len(rules))}
	for id, r := range rules {
		p.rules[id] = r
	}
	return p
}

// IsEnabled implements Provider.
func (p *RuleProvider) IsEnabled(_ context.Context, flagID string, subject Subject) (bool, error) {
	p.mu.RLock()
	rule, ok := p.rules[flagID]
	p.mu.RUnlock()

	if !ok {
		logging.Debug().Str("flag", flagID).Msg("Unknown feature flag evaluated as disabled")
		return false, nil
	}
	return rule.Matches(flagID, subject), nil
}

// Set replaces the rule for a flag.
func (p *RuleProvider) Set(flagID string, rule Rule) {
	p.mu.Lock()
	p.rules[flagID] = rule
	p.mu.Unlock()
}

// Replace swaps the whole rule set. Flags absent from rules become unknown
// and evaluate as disabled.
func (p *RuleProvider) Replace(rules map[string]Rule) {
	next := make(map[string]Rule, len(rules))
	for id, r := range rules {
		next[id] = r
	}
	p.mu.Lock()
	p.rules = next
	p.mu.Unlock()
}

// Flags returns the configured flag IDs.
func (p *RuleProvider) Flags() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	ids := make([]string, 0, len(p.rules))
	for id := range p.rules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
