package tokenstore

import (
	"context"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, _ := m.Get(ctx, "token"); ok {
		t.Error("expected miss on empty store")
	}

	if err := m.Set(ctx, "token", "abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v, ok, err := m.Get(ctx, "token")
	if err != nil || !ok || v != "abc" {
		t.Errorf("Get = (%q, %v, %v), want (abc, true, nil)", v, ok, err)
	}

	if err := m.Set(ctx, "token", "def"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _, _ := m.Get(ctx, "token"); v != "def" {
		t.Errorf("expected overwrite, got %q", v)
	}

	if err := m.Remove(ctx, "token"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "token"); ok {
		t.Error("expected miss after Remove")
	}

	// Removing a missing key is not an error.
	if err := m.Remove(ctx, "token"); err != nil {
		t.Errorf("unexpected error removing absent key: %v", err)
	}
}
