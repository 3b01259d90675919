// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/tavola/internal/api/response"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status           string   `json:"status"`
	Modules          []string `json:"modules"`
	RealtimeClients  int      `json:"realtimeClients"`
	RealtimeTenants  int      `json:"realtimeTenants"`
	UptimeSeconds    float64  `json:"uptimeSeconds"`
	BootDurationMs   int64    `json:"bootDurationMs"`
	BootError        string   `json:"bootError,omitempty"`
	RealtimeDisabled bool     `json:"realtimeDisabled,omitempty"`
}

// Health reports module runtime and realtime state. It answers 503 until the
// runtime has booted.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	st := h.runtime.Status()

	health := HealthStatus{
		Status:         "healthy",
		Modules:        st.Order,
		UptimeSeconds:  time.Since(h.startTime).Seconds(),
		BootDurationMs: st.Duration.Milliseconds(),
		BootError:      st.Error,
	}
	if h.hub != nil {
		health.RealtimeClients = h.hub.ClientCount()
		health.RealtimeTenants = len(h.hub.Tenants())
	} else {
		health.RealtimeDisabled = true
	}

	rw := response.NewResponseWriter(w, r)
	if !st.Booted {
		health.Status = "unavailable"
		rw.ErrorWithDetails(http.StatusServiceUnavailable, response.ErrCodeInternalError, "Module runtime not booted", health)
		return
	}
	rw.Success(health)
}

// HealthLive answers 200 while the process is up.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	response.WriteSuccess(w, r, map[string]string{"status": "alive"})
}

// HealthReady answers 200 once the module runtime has booted.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if !h.runtime.Status().Booted {
		response.WriteError(w, r, http.StatusServiceUnavailable, response.ErrCodeInternalError, "Module runtime not booted")
		return
	}
	response.WriteSuccess(w, r, map[string]string{"status": "ready"})
}
