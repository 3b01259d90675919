// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package manifest

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateModuleID is returned when two manifests share an ID.
	ErrDuplicateModuleID = errors.New("duplicate module id")

	// ErrDuplicatePermission is returned when two modules declare the same permission ID.
	ErrDuplicatePermission = errors.New("duplicate permission id")
)

// Catalog is the read-only index of every loaded manifest, kept in
// declaration order.
type Catalog struct {
	manifests   []*ModuleManifest
	byID        map[string]*ModuleManifest
	permissions map[string]PermissionDescriptor
	permOwner   map[string]string
}

// NewCatalog validates the manifests and indexes them. Duplicate module IDs
// and duplicate permission IDs are rejected.
func NewCatalog(manifests ...*ModuleManifest) (*Catalog, error) {
	c := &Catalog{
		byID:        make(map[string]*ModuleManifest, len(manifests)),
		permissions: make(map[string]PermissionDescriptor),
		permOwner:   make(map[string]string),
	}

	for _, m := range manifests {
		if err := Validate(m); err != nil {
			return nil, err
		}
		if _, exists := c.byID[m.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateModuleID, m.ID)
		}
		for _, p := range m.Permissions {
			if owner, exists := c.permOwner[p.ID]; exists {
				return nil, fmt.Errorf("%w: %s declared by %s and %s", ErrDuplicatePermission, p.ID, owner, m.ID)
			}
			c.permOwner[p.ID] = m.ID
			c.permissions[p.ID] = p
		}
		c.byID[m.ID] = m
		c.manifests = append(c.manifests, m)
	}

	return c, nil
}

// Get returns the manifest with the given ID.
func (c *Catalog) Get(id string) (*ModuleManifest, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// All returns the manifests in declaration order.
func (c *Catalog) All() []*ModuleManifest {
	out := make([]*ModuleManifest, len(c.manifests))
	copy(out, c.manifests)
	return out
}

// Len returns the number of manifests.
func (c *Catalog) Len() int {
	return len(c.manifests)
}

// Permission looks up a declared permission by ID.
func (c *Catalog) Permission(id string) (PermissionDescriptor, bool) {
	p, ok := c.permissions[id]
	return p, ok
}

// PermissionIDs returns every declared permission ID in declaration order.
func (c *Catalog) PermissionIDs() []string {
	ids := make([]string, 0, len(c.permissions))
	for _, m := range c.manifests {
		ids = append(ids, m.PermissionIDs()...)
	}
	return ids
}

// PermissionOwner returns the module that declared a permission.
func (c *Catalog) PermissionOwner(id string) (string, bool) {
	owner, ok := c.permOwner[id]
	return owner, ok
}

// EventTypeOwners returns the modules declaring the given event type.
func (c *Catalog) EventTypeOwners(eventType string) []string {
	var owners []string
	for _, m := range c.manifests {
		if m.DeclaresEventType(eventType) {
			owners = append(owners, m.ID)
		}
	}
	return owners
}
