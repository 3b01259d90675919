// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

// Package manifest describes feature modules declaratively: identity, the
// permissions and event types they introduce, UI placement, the plan they
// require, and lifecycle flags. Manifests are pure data and never change
// after the process loads them.
package manifest

import (
	"slices"
)

// Scope controls whether a module is activated per tenant or for everyone.
type Scope string

const (
	// ScopeTenant modules are activated and deactivated per tenant.
	ScopeTenant Scope = "tenant"

	// ScopeGlobal modules are active for every tenant.
	ScopeGlobal Scope = "global"
)

// PlanTier is a subscription level. Tiers are ordered; a higher tier
// includes every module available to the tiers below it.
type PlanTier string

const (
	PlanFree       PlanTier = "free"
	PlanStarter    PlanTier = "starter"
	PlanPro        PlanTier = "pro"
	PlanEnterprise PlanTier = "enterprise"
)

var planRank = map[PlanTier]int{
	PlanFree:       0,
	PlanStarter:    1,
	PlanPro:        2,
	PlanEnterprise: 3,
}

// Valid reports whether the tier is one of the known plans.
func (p PlanTier) Valid() bool {
	_, ok := planRank[p]
	return ok
}

// Includes reports whether a tenant on plan p may use a module requiring
// the given tier. A nil requirement is satisfied by every plan.
func (p PlanTier) Includes(required *PlanTier) bool {
	if required == nil {
		return true
	}
	have, ok := planRank[p]
	if !ok {
		return false
	}
	need, ok := planRank[*required]
	if !ok {
		return false
	}
	return have >= need
}

// Plan returns a pointer to tier, for use in manifest literals.
func Plan(tier PlanTier) *PlanTier {
	return &tier
}

// PermissionDescriptor declares a permission a module introduces.
//
// ID is a dotted namespace ("<module>.<action>") and must be unique across
// all modules. Prefixing with the module slug is a convention module authors
// honor; the runtime only rejects exact duplicates.
type PermissionDescriptor struct {
	ID          string `json:"id" validate:"required,permission_id"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// EventTypeDescriptor documents an event type a module publishes. It is the
// contract other modules read to know what they may subscribe to.
type EventTypeDescriptor struct {
	ID          string `json:"id" validate:"required,permission_id"`
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

// UIEntry places a module in the navigation of the dashboard.
type UIEntry struct {
	Path  string `json:"path" validate:"required,startswith=/"`
	Label string `json:"label" validate:"required"`
	Icon  string `json:"icon,omitempty"`
	Order int    `json:"order"`
}

// ModuleManifest is the static description of one module.
type ModuleManifest struct {
	ID           string                 `json:"id" validate:"required,module_slug"`
	Name         string                 `json:"name" validate:"required"`
	Version      string                 `json:"version" validate:"required"`
	Permissions  []PermissionDescriptor `json:"permissions" validate:"dive"`
	EventTypes   []EventTypeDescriptor  `json:"eventTypes" validate:"dive"`
	RequiredPlan *PlanTier              `json:"requiredPlan"`
	UIEntry      *UIEntry               `json:"uiEntry,omitempty"`
	Scope        Scope                  `json:"scope" validate:"required,oneof=tenant global"`
	CanDisable   bool                   `json:"canDisable"`
	DependsOn    []string               `json:"dependsOn,omitempty" validate:"dive,module_slug"`
}

// PermissionIDs returns the IDs of the permissions the module declares.
func (m *ModuleManifest) PermissionIDs() []string {
	ids := make([]string, 0, len(m.Permissions))
	for _, p := range m.Permissions {
		ids = append(ids, p.ID)
	}
	return ids
}

// DeclaresEventType reports whether the module lists eventType in its manifest.
func (m *ModuleManifest) DeclaresEventType(eventType string) bool {
	return slices.ContainsFunc(m.EventTypes, func(e EventTypeDescriptor) bool {
		return e.ID == eventType
	})
}

// IsGlobal reports whether the module is active for every tenant.
func (m *ModuleManifest) IsGlobal() bool {
	return m.Scope == ScopeGlobal
}
