// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package authz

import (
	"sync"
	"time"
)

// grantCache caches role -> permission decisions.
type grantCache struct {
	ttl      time.Duration
	mu       sync.RWMutex
	items    map[string]*cacheItem
	stopChan chan struct{}
	stopOnce sync.Once
}

type cacheItem struct {
	allowed   bool
	expiresAt time.Time
}

// newGrantCache creates a cache and starts its cleanup loop.
func newGrantCache(ttl time.Duration) *grantCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	c := &grantCache{
		ttl:      ttl,
		items:    make(map[string]*cacheItem),
		stopChan: make(chan struct{}),
	}
	go c.cleanup()
	return c
}

func (c *grantCache) key(role, permission string) string {
	return role + "|" + permission
}

func (c *grantCache) get(role, permission string) (bool, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[c.key(role, permission)]
	if !ok || time.Now().After(item.expiresAt) {
		return false, false
	}
	return item.allowed, true
}

func (c *grantCache) set(role, permission string, allowed bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[c.key(role, permission)] = &cacheItem{
		allowed:   allowed,
		expiresAt: time.Now().Add(c.ttl),
	}
}

// clear drops every cached decision. Called whenever policy changes.
func (c *grantCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*cacheItem)
}

func (c *grantCache) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// cleanup periodically removes expired items.
func (c *grantCache) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.mu.Lock()
			now := time.Now()
			for key, item := range c.items {
				if now.After(item.expiresAt) {
					delete(c.items, key)
				}
			}
			c.mu.Unlock()
		}
	}
}

// stop stops the cleanup goroutine. Safe to call more than once.
func (c *grantCache) stop() {
	c.stopOnce.Do(func() {
		close(c.stopChan)
	})
}
