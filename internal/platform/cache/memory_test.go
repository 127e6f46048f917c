package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStore_SetGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	if err := s.Set(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "v" {
		t.Errorf("expected v, got %q", got)
	}

	got[0] = 'x'
	again, _ := s.Get(ctx, "k")
	if string(again) != "v" {
		t.Error("expected stored value to be isolated from caller mutation")
	}
}

func TestMemoryStore_Miss(t *testing.T) {
	s := NewMemoryStore()
	if _, err := s.Get(context.Background(), "absent"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected ErrMiss, got %v", err)
	}
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore()
	s.now = func() time.Time { return now }

	_ = s.Set(ctx, "short", []byte("1"), time.Second)
	_ = s.Set(ctx, "forever", []byte("2"), 0)

	now = now.Add(2 * time.Second)

	if _, err := s.Get(ctx, "short"); !errors.Is(err, ErrMiss) {
		t.Errorf("expected expired key to miss, got %v", err)
	}
	if _, err := s.Get(ctx, "forever"); err != nil {
		t.Errorf("expected zero ttl to persist, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expected expired entry to be evicted, %d entries remain", s.Len())
	}
}

func TestMemoryStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Set(ctx, "a", []byte("1"), 0)
	_ = s.Set(ctx, "b", []byte("2"), 0)

	if err := s.Delete(ctx, "a", "b", "c"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Len() != 0 {
		t.Errorf("expected empty store, got %d entries", s.Len())
	}
}

func TestMemoryStore_DeletePrefix(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	_ = s.Set(ctx, "ref:v1:sites", []byte("1"), 0)
	_ = s.Set(ctx, "ref:v1:site:3", []byte("2"), time.Minute)
	_ = s.Set(ctx, "other:key", []byte("3"), 0)

	n, err := s.DeletePrefix(ctx, "ref:v1:")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 keys removed, got %d", n)
	}
	if _, err := s.Get(ctx, "other:key"); err != nil {
		t.Errorf("expected unrelated key to survive, got %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("expected 1 entry left, got %d", s.Len())
	}
}
