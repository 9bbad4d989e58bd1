package cache

import (
	"context"
	"testing"
	"time"

	"github.com/CCCloudPlatform/agenticcp-policy-engine/pkg/types"
)

func TestLRU_SetGet(t *testing.T) {
	c := NewLRU(10)

	c.Set("a", 1, time.Minute)
	v, ok := c.Get("a")
	if !ok || v.(int) != 1 {
		t.Fatalf("got (%v, %v)", v, ok)
	}

	if _, ok := c.Get("missing"); ok {
		t.Error("missing key should miss")
	}
}

func TestLRU_TTLExpiry(t *testing.T) {
	c := NewLRU(10)

	c.Set("short", 1, 10*time.Millisecond)
	c.Set("long", 2, time.Minute)

	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("short"); ok {
		t.Error("expired entry should miss")
	}
	if _, ok := c.Get("long"); !ok {
		t.Error("unexpired entry should hit")
	}

	// lazy expiry removes the entry on read
	if stats := c.Stats(); stats.Size != 1 {
		t.Errorf("size = %d, want 1 after expired read", stats.Size)
	}
}

func TestLRU_CapacityEviction(t *testing.T) {
	c := NewLRU(2)

	c.Set("a", 1, time.Minute)
	c.Set("b", 2, time.Minute)
	c.Get("a") // a becomes most recently used
	c.Set("c", 3, time.Minute)

	if _, ok := c.Get("b"); ok {
		t.Error("least recently used entry should be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("recently used entry should survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("new entry should be present")
	}
}

func TestLRU_DeleteByPrefix(t *testing.T) {
	c := NewLRU(10)

	c.Set("vm:delete:u1:t1", 1, time.Minute)
	c.Set("vm:delete:u2:t1", 2, time.Minute)
	c.Set("vm:read:u1:t1", 3, time.Minute)
	c.Set("volume:delete:u1:t1", 4, time.Minute)

	removed := c.DeleteByPrefix("vm:delete:")
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}

	if _, ok := c.Get("vm:delete:u1:t1"); ok {
		t.Error("prefixed entry should be gone")
	}
	if _, ok := c.Get("vm:read:u1:t1"); !ok {
		t.Error("entry outside the prefix should survive")
	}
	if _, ok := c.Get("volume:delete:u1:t1"); !ok {
		t.Error("entry outside the prefix should survive")
	}
}

func TestLRU_Stats(t *testing.T) {
	c := NewLRU(10)
	c.Set("a", 1, time.Minute)

	c.Get("a")
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	if stats.Hits != 2 || stats.Misses != 1 {
		t.Errorf("hits=%d misses=%d, want 2/1", stats.Hits, stats.Misses)
	}
	if stats.HitRate < 0.66 || stats.HitRate > 0.67 {
		t.Errorf("hit rate = %f", stats.HitRate)
	}
}

func TestLocal_ResultRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewLocal(10)

	res := &types.EvaluationResult{Decision: types.DecisionAllow, PolicyKey: "p1"}
	c.Set(ctx, "vm:read:u1:global", res, time.Minute)

	got, ok := c.Get(ctx, "vm:read:u1:global")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Decision != types.DecisionAllow || got.PolicyKey != "p1" {
		t.Errorf("got %+v", got)
	}

	c.DeleteAll(ctx)
	if _, ok := c.Get(ctx, "vm:read:u1:global"); ok {
		t.Error("DeleteAll should clear the cache")
	}
}
