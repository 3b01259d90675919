// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/tavola/internal/realtime"
	"github.com/tomtom215/tavola/internal/supervisor/services"
)

// countingService blocks until canceled, failing its first failN starts.
type countingService struct {
	name   string
	failN  int32
	starts atomic.Int32
}

func (s *countingService) Serve(ctx context.Context) error {
	if n := s.starts.Add(1); n <= s.failN {
		return fmt.Errorf("%s: start %d failed", s.name, n)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (s *countingService) String() string { return s.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewSupervisorTree_Defaults(t *testing.T) {
	tree, err := NewSupervisorTree(testLogger(), TreeConfig{})
	if err != nil {
		t.Fatalf("NewSupervisorTree: %v", err)
	}
	if tree.Root() == nil {
		t.Fatal("root supervisor is nil")
	}
	if tree.config != DefaultTreeConfig() {
		t.Errorf("zero config = %+v, want defaults %+v", tree.config, DefaultTreeConfig())
	}
}

func TestNewSupervisorTree_KeepsExplicitValues(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{
		FailureThreshold: 2,
		ShutdownTimeout:  time.Second,
	})

	want := DefaultTreeConfig()
	want.FailureThreshold = 2
	want.ShutdownTimeout = time.Second
	if tree.config != want {
		t.Errorf("config = %+v, want %+v", tree.config, want)
	}
	if got := tree.config.spec(nil).Timeout; got != time.Second {
		t.Errorf("layer timeout = %v, want 1s", got)
	}
}

func TestSupervisorTree_StartsEveryLayer(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})

	data := &countingService{name: "data"}
	messaging := &countingService{name: "messaging"}
	api := &countingService{name: "api"}
	tree.AddDataService(data)
	tree.AddMessagingService(messaging)
	tree.AddAPIService(api)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	time.Sleep(100 * time.Millisecond)

	for _, svc := range []*countingService{data, messaging, api} {
		if svc.starts.Load() < 1 {
			t.Errorf("%s service was not started", svc.name)
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("tree did not shut down in time")
	}
	if report, err := tree.UnstoppedServiceReport(); err != nil || len(report) != 0 {
		t.Errorf("unstopped services: %v (err %v)", report, err)
	}
}

func TestSupervisorTree_RestartsFailingService(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{
		FailureThreshold: 10,
		FailureBackoff:   10 * time.Millisecond,
		ShutdownTimeout:  time.Second,
	})

	failing := &countingService{name: "bridge", failN: 2}
	stable := &countingService{name: "http"}
	tree.AddMessagingService(failing)
	tree.AddAPIService(stable)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	go func() { _ = tree.Serve(ctx) }()
	time.Sleep(200 * time.Millisecond)

	if failing.starts.Load() < 3 {
		t.Errorf("expected at least 3 starts, got %d", failing.starts.Load())
	}
	if stable.starts.Load() != 1 {
		t.Errorf("stable service restarted: %d starts", stable.starts.Load())
	}
}

func TestSupervisorTree_RealServices(t *testing.T) {
	tree, _ := NewSupervisorTree(testLogger(), TreeConfig{ShutdownTimeout: time.Second})

	hub := realtime.NewHub(realtime.DefaultConfig())
	var gcRuns atomic.Int32
	tree.AddMessagingService(hub)
	tree.AddDataService(services.NewPeriodicService("tenancy-gc", 10*time.Millisecond, func(context.Context) error {
		gcRuns.Add(1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := tree.ServeBackground(ctx)
	time.Sleep(100 * time.Millisecond)
	cancel()
	<-errCh

	if gcRuns.Load() < 1 {
		t.Error("periodic GC never ran")
	}
}
