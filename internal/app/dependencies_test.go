package app

import (
	"context"
	"testing"
)

func TestNewDependencies_Memory(t *testing.T) {
	cfg := DefaultConfig()

	deps, err := NewDependencies(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewDependencies: %v", err)
	}
	defer deps.Close()

	if deps.CartService == nil {
		t.Error("cart service is not wired")
	}
	if deps.OrderService == nil {
		t.Error("order service is not wired")
	}
	if deps.Health == nil {
		t.Error("health registry is not wired")
	}
}

func TestNewDependencies_UnknownDriver(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StorageDriver = "cassandra"

	if _, err := NewDependencies(context.Background(), cfg, nil); err == nil {
		t.Fatal("expected error for unsupported storage driver")
	}
}
