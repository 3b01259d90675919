// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

// Package builtin lists the modules compiled into the server binary.
package builtin

import (
	"github.com/tomtom215/tavola/internal/manifest"
	"github.com/tomtom215/tavola/internal/module"
	"github.com/tomtom215/tavola/internal/modules/financial"
	"github.com/tomtom215/tavola/internal/modules/orders"
	"github.com/tomtom215/tavola/internal/modules/platform"
	"github.com/tomtom215/tavola/internal/modules/soundnotifications"
	"github.com/tomtom215/tavola/internal/tenancy"
)

// Manifests returns the manifests of every built-in module in declaration
// order. The server needs the catalog before any module is constructed,
// because the tenancy service evaluates activations against it.
func Manifests() []*manifest.ModuleManifest {
	return []*manifest.ModuleManifest{
		platform.Manifest(),
		orders.Manifest(),
		soundnotifications.Manifest(),
		financial.Manifest(),
	}
}

// Catalog builds the catalog of built-in modules.
func Catalog() (*manifest.Catalog, error) {
	return manifest.NewCatalog(Manifests()...)
}

// Deps are the process services built-in modules are constructed with.
type Deps struct {
	Tenancy *tenancy.Service
}

// Modules constructs every built-in module, in the same order as Manifests.
func Modules(deps Deps) []module.Module {
	return []module.Module{
		platform.New(deps.Tenancy),
		orders.New(),
		soundnotifications.New(),
		financial.New(),
	}
}
