// Tavola - Multi-tenant Restaurant Operations Platform
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tavola

package broker

import (
	"context"
	"testing"
	"time"
)

func TestEmbeddedServer_ConnectAndShutdown(t *testing.T) {
	srv, err := NewEmbeddedServer(ServerConfig{})
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	if !srv.IsRunning() {
		t.Fatal("server should be running")
	}

	nc, err := Connect(srv.ClientURL(), "broker-test")
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	sub, err := nc.SubscribeSync("test.subject")
	if err != nil {
		t.Fatal(err)
	}
	if err := nc.Publish("test.subject", []byte("hello")); err != nil {
		t.Fatal(err)
	}
	msg, err := sub.NextMsg(2 * time.Second)
	if err != nil {
		t.Fatalf("NextMsg() error = %v", err)
	}
	if string(msg.Data) != "hello" {
		t.Errorf("message = %q, want hello", msg.Data)
	}
	nc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if srv.IsRunning() {
		t.Error("server should be stopped")
	}
}

func TestEmbeddedServer_JetStream(t *testing.T) {
	srv, err := NewEmbeddedServer(ServerConfig{JetStream: true, StoreDir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewEmbeddedServer() error = %v", err)
	}
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	nc, err := Connect(srv.ClientURL(), "broker-js-test")
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Close()

	js, err := nc.JetStream()
	if err != nil {
		t.Fatalf("JetStream() error = %v", err)
	}
	if _, err := js.AccountInfo(); err != nil {
		t.Errorf("AccountInfo() error = %v", err)
	}
}
