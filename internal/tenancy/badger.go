// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package tenancy

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

// Key prefixes for BadgerDB storage
const (
	tenantKeyPrefix     = "tenant:"
	activationKeyPrefix = "activation:"
)

// BadgerStore implements Store on BadgerDB.
type BadgerStore struct {
	db       *badger.DB
	owned    bool
	inMemory bool
}

// OpenBadgerStore opens (or creates) a BadgerDB at path. An empty path opens
// an in-memory database.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil // Suppress BadgerDB logs

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger db for tenancy: %w", err)
	}
	return &BadgerStore{db: db, owned: true, inMemory: path == ""}, nil
}

// NewBadgerStore wraps an already open database. Close leaves it open.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

func activationKey(tenantID, moduleID string) []byte {
	return []byte(activationKeyPrefix + tenantID + ":" + moduleID)
}

// GetTenant implements Store.
func (s *BadgerStore) GetTenant(_ context.Context, tenantID string) (*Tenant, error) {
	var t Tenant
	if err := s.get([]byte(tenantKeyPrefix+tenantID), &t, ErrTenantNotFound); err != nil {
		return nil, err
	}
	return &t, nil
}

// PutTenant implements Store.
func (s *BadgerStore) PutTenant(_ context.Context, tenant *Tenant) error {
	return s.put([]byte(tenantKeyPrefix+tenant.ID), tenant)
}

// ListTenants implements Store.
func (s *BadgerStore) ListTenants(_ context.Context) ([]*Tenant, error) {
	var out []*Tenant
	err := s.scan([]byte(tenantKeyPrefix), func(val []byte) error {
		var t Tenant
		if err := json.Unmarshal(val, &t); err != nil {
			return err
		}
		out = append(out, &t)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	return out, nil
}

// GetActivation implements Store.
func (s *BadgerStore) GetActivation(_ context.Context, tenantID, moduleID string) (*Activation, error) {
	var a Activation
	if err := s.get(activationKey(tenantID, moduleID), &a, ErrActivationNotFound); err != nil {
		return nil, err
	}
	return &a, nil
}

// PutActivation implements Store.
func (s *BadgerStore) PutActivation(_ context.Context, activation *Activation) error {
	return s.put(activationKey(activation.TenantID, activation.ModuleID), activation)
}

// ListActivations implements Store. Results are ordered by module ID.
func (s *BadgerStore) ListActivations(_ context.Context, tenantID string) ([]*Activation, error) {
	var out []*Activation
	err := s.scan([]byte(activationKeyPrefix+tenantID+":"), func(val []byte) error {
		var a Activation
		if err := json.Unmarshal(val, &a); err != nil {
			return err
		}
		out = append(out, &a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list activations: %w", err)
	}
	return out, nil
}

// RunValueLogGC reclaims value log space until badger reports nothing left
// to rewrite. In-memory databases have no value log and return immediately.
func (s *BadgerStore) RunValueLogGC(_ context.Context) error {
	if s.inMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("tenancy value log gc: %w", err)
		}
	}
}

// Close closes the database if this store opened it.
func (s *BadgerStore) Close() error {
	if s.owned {
		return s.db.Close()
	}
	return nil
}

func (s *BadgerStore) get(key []byte, v any, notFound error) error {
	return s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return notFound
		}
		if err != nil {
			return fmt.Errorf("get %s: %w", key, err)
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
}

func (s *BadgerStore) put(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (s *BadgerStore) scan(prefix []byte, fn func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := it.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}
