// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package logging

import (
	"context"
	"strings"
)

// AccessDenial describes a request rejected by an authorization guard.
// Denials are expected outcomes, so they are logged at debug level and never
// carry an error field.
type AccessDenial struct {
	Stage      string
	Code       string
	TenantID   string
	UserID     string
	Role       string
	Method     string
	Path       string
	Module     string
	Permission string
	Flag       string
}

// LogAccessDenial writes access-denial telemetry for a terminated guard chain.
func LogAccessDenial(ctx context.Context, d *AccessDenial) {
	event := Ctx(ctx).Debug().
		Str("component", "rbac").
		Str("stage", d.Stage).
		Str("code", d.Code).
		Str("method", d.Method).
		Str("path", sanitizeLogValue(d.Path))

	if d.TenantID != "" {
		event = event.Str("tenant_id", d.TenantID)
	}
	if d.UserID != "" {
		event = event.Str("user_id", d.UserID)
	}
	if d.Role != "" {
		event = event.Str("role", d.Role)
	}
	if d.Module != "" {
		event = event.Str("module", d.Module)
	}
	if d.Permission != "" {
		event = event.Str("permission", d.Permission)
	}
	if d.Flag != "" {
		event = event.Str("flag", d.Flag)
	}

	event.Msg("access denied")
}

// sanitizeLogValue strips control characters and truncates untrusted input
// before it reaches log output.
func sanitizeLogValue(s string) string {
	const maxLen = 256
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	return s
}
