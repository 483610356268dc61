package cache

import (
	"context"
	"reflect"
	"testing"
)

func TestMemoryAvailability_RoundTrip(t *testing.T) {
	c := NewMemoryAvailability()
	ctx := context.Background()

	if _, ok := c.Get(ctx, "doc", "2025-01-13"); ok {
		t.Fatalf("expected miss on empty cache")
	}

	c.Set(ctx, "doc", "2025-01-13", []string{"09:00", "09:30"})
	slots, ok := c.Get(ctx, "doc", "2025-01-13")
	if !ok {
		t.Fatalf("expected hit after Set")
	}
	if !reflect.DeepEqual(slots, []string{"09:00", "09:30"}) {
		t.Fatalf("slots = %v", slots)
	}

	// Пустой список — валидное закэшированное значение, не промах.
	c.Set(ctx, "doc", "2025-01-14", []string{})
	empty, ok := c.Get(ctx, "doc", "2025-01-14")
	if !ok || len(empty) != 0 {
		t.Fatalf("expected cached empty list, got %v ok=%v", empty, ok)
	}
}

func TestMemoryAvailability_Invalidate(t *testing.T) {
	c := NewMemoryAvailability()
	ctx := context.Background()

	c.Set(ctx, "doc", "2025-01-13", []string{"09:00"})
	c.Invalidate(ctx, "doc", "2025-01-13")
	if _, ok := c.Get(ctx, "doc", "2025-01-13"); ok {
		t.Fatalf("expected miss after Invalidate")
	}
}

func TestMemoryAvailability_InvalidateDoctor(t *testing.T) {
	c := NewMemoryAvailability()
	ctx := context.Background()

	c.Set(ctx, "doc-a", "2025-01-13", []string{"09:00"})
	c.Set(ctx, "doc-a", "2025-01-14", []string{"10:00"})
	c.Set(ctx, "doc-b", "2025-01-13", []string{"11:00"})

	c.InvalidateDoctor(ctx, "doc-a")
	if _, ok := c.Get(ctx, "doc-a", "2025-01-13"); ok {
		t.Fatalf("expected doc-a 2025-01-13 dropped")
	}
	if _, ok := c.Get(ctx, "doc-a", "2025-01-14"); ok {
		t.Fatalf("expected doc-a 2025-01-14 dropped")
	}
	if _, ok := c.Get(ctx, "doc-b", "2025-01-13"); !ok {
		t.Fatalf("expected doc-b untouched")
	}
}

func TestMemoryAvailability_CopyOnReadAndWrite(t *testing.T) {
	c := NewMemoryAvailability()
	ctx := context.Background()

	src := []string{"09:00"}
	c.Set(ctx, "doc", "2025-01-13", src)
	src[0] = "10:00"

	got, _ := c.Get(ctx, "doc", "2025-01-13")
	if got[0] != "09:00" {
		t.Fatalf("cache shares caller's backing array")
	}

	got[0] = "11:00"
	again, _ := c.Get(ctx, "doc", "2025-01-13")
	if again[0] != "09:00" {
		t.Fatalf("cache shares reader's backing array")
	}
}
