// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package api

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tomtom215/tavola/internal/module"
	"github.com/tomtom215/tavola/internal/realtime"
	"github.com/tomtom215/tavola/internal/session"
)

// Handler serves the platform's own endpoints. Module endpoints are mounted
// by the modules themselves.
type Handler struct {
	runtime   *module.Runtime
	issuer    *session.Issuer
	hub       *realtime.Hub
	validate  *validator.Validate
	startTime time.Time
}

// NewHandler creates a handler. hub may be nil.
func NewHandler(runtime *module.Runtime, issuer *session.Issuer, hub *realtime.Hub) *Handler {
	return &Handler{
		runtime:   runtime,
		issuer:    issuer,
		hub:       hub,
		validate:  validator.New(validator.WithRequiredStructEnabled()),
		startTime: time.Now(),
	}
}
