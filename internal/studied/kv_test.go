package studied

import (
	"context"
	"testing"
	"time"
)

func TestMemoryKV_GetSet(t *testing.T) {
	kv := NewMemoryKV()
	ctx := t.Context()

	if _, ok, err := kv.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get() on empty store = %v, %v", ok, err)
	}
	if err := kv.Set(ctx, "k", "v1", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := kv.Set(ctx, "k", "v2", 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok, err := kv.Get(ctx, "k")
	if err != nil || !ok || v != "v2" {
		t.Errorf("Get() = %q, %v, %v, want v2", v, ok, err)
	}
}

func TestMemoryKV_Expiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	kv := NewMemoryKV()
	kv.now = func() time.Time { return now }
	ctx := t.Context()

	if err := kv.Set(ctx, "k", "v", time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	now = now.Add(59 * time.Minute)
	if _, ok, _ := kv.Get(ctx, "k"); !ok {
		t.Error("Get() before expiry = absent")
	}

	now = now.Add(time.Minute)
	if _, ok, _ := kv.Get(ctx, "k"); ok {
		t.Error("Get() at expiry = present")
	}
}

func TestMemoryKV_CanceledContext(t *testing.T) {
	kv := NewMemoryKV()
	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if err := kv.Set(ctx, "k", "v", 0); err == nil {
		t.Error("Set() with canceled context should fail")
	}
	if _, _, err := kv.Get(ctx, "k"); err == nil {
		t.Error("Get() with canceled context should fail")
	}
}
