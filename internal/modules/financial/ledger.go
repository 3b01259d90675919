// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package financial

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/tavola/internal/eventbus"
)

// errMissingTotal is returned for order events without a numeric total.
var errMissingTotal = errors.New("order event has no totalCents")

// Summary is a tenant's revenue summary.
type Summary struct {
	TenantID          string     `json:"tenantId"`
	OrderCount        int64      `json:"orderCount"`
	CancelledCount    int64      `json:"cancelledCount"`
	GrossCents        int64      `json:"grossCents"`
	RefundedCents     int64      `json:"refundedCents"`
	NetCents          int64      `json:"netCents"`
	AverageOrderCents int64      `json:"averageOrderCents"`
	LastOrderAt       *time.Time `json:"lastOrderAt,omitempty"`
}

// seenWindow is how many recent event IDs each tenant remembers for replay
// detection.
const seenWindow = 1024

type tally struct {
	orders    int64
	cancelled int64
	gross     int64
	refunded  int64
	lastOrder time.Time

	seen     map[string]struct{}
	seenRing [seenWindow]string
	seenNext int
}

// markSeen records id and reports whether it was already in the window.
// The oldest ID is evicted once the window is full.
func (t *tally) markSeen(id string) bool {
	if _, dup := t.seen[id]; dup {
		return true
	}
	if old := t.seenRing[t.seenNext]; old != "" {
		delete(t.seen, old)
	}
	t.seenRing[t.seenNext] = id
	t.seenNext = (t.seenNext + 1) % seenWindow
	t.seen[id] = struct{}{}
	return false
}

// Ledger keeps running revenue totals per tenant from order events.
type Ledger struct {
	mu      sync.RWMutex
	tenants map[string]*tally
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{tenants: make(map[string]*tally)}
}

func (l *Ledger) tallyLocked(tenantID string) *tally {
	t, ok := l.tenants[tenantID]
	if !ok {
		t = &tally{seen: make(map[string]struct{}, seenWindow)}
		l.tenants[tenantID] = t
	}
	return t
}

// RecordOrder adds a created order to the tenant's totals. Replays of a
// recently seen event ID are ignored.
func (l *Ledger) RecordOrder(_ context.Context, ev eventbus.Event) error {
	total, ok := ev.DataInt("totalCents")
	if !ok {
		return errMissingTotal
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.tallyLocked(ev.TenantID)
	if t.markSeen(ev.ID) {
		return nil
	}
	t.orders++
	t.gross += total
	if ev.Timestamp.After(t.lastOrder) {
		t.lastOrder = ev.Timestamp
	}
	return nil
}

// RecordStatusChange refunds cancelled orders. Other transitions do not
// affect revenue.
func (l *Ledger) RecordStatusChange(_ context.Context, ev eventbus.Event) error {
	if ev.DataString("to") != "cancelled" {
		return nil
	}
	total, ok := ev.DataInt("totalCents")
	if !ok {
		return errMissingTotal
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	t := l.tallyLocked(ev.TenantID)
	if t.markSeen(ev.ID) {
		return nil
	}
	t.cancelled++
	t.refunded += total
	return nil
}

// Summary returns the tenant's current totals. Unknown tenants get zeros.
func (l *Ledger) Summary(tenantID string) Summary {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := Summary{TenantID: tenantID}
	t, ok := l.tenants[tenantID]
	if !ok {
		return s
	}
	s.OrderCount = t.orders
	s.CancelledCount = t.cancelled
	s.GrossCents = t.gross
	s.RefundedCents = t.refunded
	s.NetCents = t.gross - t.refunded
	if kept := t.orders - t.cancelled; kept > 0 {
		s.AverageOrderCents = s.NetCents / kept
	}
	if !t.lastOrder.IsZero() {
		last := t.lastOrder
		s.LastOrderAt = &last
	}
	return s
}
