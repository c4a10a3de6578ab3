package cache

import (
	"context"
	"testing"
	"time"

	"github.com/grcplane/grcplane-core/pkg/logger"
)

func TestNoopCache_SetGet(t *testing.T) {
	c := NewNoopValkey(logger.NewNop())
	if err := c.Set(context.Background(), "k", "v", 0); err != nil {
		t.Fatalf("set: %v", err)
	}
	b, err := c.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(b) != "v" {
		t.Fatalf("unexpected value: %s", string(b))
	}
}

func TestNoopCache_Delete(t *testing.T) {
	c := NewNoopValkey(logger.NewNop())
	_ = c.Set(context.Background(), "k", []byte("v"), 0)
	if err := c.Delete(context.Background(), "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected miss after delete")
	}
}

func TestNoopCache_TTLExpiry(t *testing.T) {
	c := NewNoopValkey(logger.NewNop())
	_ = c.Set(context.Background(), "k", "v", time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	if _, err := c.Get(context.Background(), "k"); err == nil {
		t.Fatalf("expected expired key to miss")
	}
}

func TestQueryHash_Stable(t *testing.T) {
	type q struct{ A, B string }
	h1 := QueryHash("alerts", q{A: "x", B: "y"})
	h2 := QueryHash("alerts", q{A: "x", B: "y"})
	if h1 != h2 {
		t.Fatalf("hash not stable: %s vs %s", h1, h2)
	}
	if h1 == QueryHash("alerts", q{A: "x", B: "z"}) {
		t.Fatalf("distinct queries must not collide on the happy path")
	}
}
