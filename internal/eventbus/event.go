// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package eventbus

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event is a domain event published by a module after a state change
// completes. Events are values; handlers receive their own copy.
type Event struct {
	// ID is unique per publish.
	ID string `json:"id"`

	// Type is one of the publishing module's declared event type IDs.
	Type string `json:"type"`

	TenantID string `json:"tenant_id"`
	UserID   string `json:"user_id,omitempty"`

	// Source is the publishing module ID. Optional; required only when
	// strict event type checking is enabled.
	Source string `json:"source,omitempty"`

	Timestamp time.Time `json:"timestamp"`

	// Data is the opaque payload. The bus never inspects it.
	Data map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with a fresh ID and the current time.
func NewEvent(eventType, tenantID, userID string, data map[string]any) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		TenantID:  tenantID,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// From sets the publishing module ID.
func (e Event) From(moduleID string) Event {
	e.Source = moduleID
	return e
}

// DataString returns a value from Data as a string, or "" when absent or
// not a string.
func (e Event) DataString(key string) string {
	s, _ := e.Data[key].(string)
	return s
}

// DataInt returns a numeric value from Data as an int64. JSON-decoded
// payloads carry float64, so both integer and float kinds are accepted.
func (e Event) DataInt(key string) (int64, bool) {
	switch v := e.Data[key].(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// ErrInvalidEvent is returned by Publish for events without a type.
var ErrInvalidEvent = errors.New("event type is required")

func (e *Event) normalize() error {
	if e.Type == "" {
		return ErrInvalidEvent
	}
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}
	return nil
}
