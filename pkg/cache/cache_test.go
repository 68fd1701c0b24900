package cache

import (
	"context"
	"testing"
	"time"
)

func TestFileCacheRoundTrip(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache failed: %v", err)
	}
	defer c.Close()
	ctx := context.Background()

	if _, hit, err := c.Get(ctx, "missing"); err != nil || hit {
		t.Fatalf("Get(missing) = hit=%v err=%v, want miss", hit, err)
	}

	if err := c.Set(ctx, "k", []byte("netlist"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	data, hit, err := c.Get(ctx, "k")
	if err != nil || !hit {
		t.Fatalf("Get(k) = hit=%v err=%v, want hit", hit, err)
	}
	if string(data) != "netlist" {
		t.Errorf("data = %q", data)
	}

	if err := c.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("deleted entry still present")
	}
}

func TestFileCacheExpiration(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("v"), -time.Second); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("expired entry served")
	}
}

func TestFileCacheClearAndStats(t *testing.T) {
	c, err := NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()
	ctx := context.Background()

	_ = c.Set(ctx, "a", []byte("1"), 0)
	_ = c.Set(ctx, "b", []byte("2"), 0)

	entries, size, err := c.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if entries != 2 || size == 0 {
		t.Errorf("Stats = %d entries, %d bytes", entries, size)
	}

	if err := c.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	entries, _, _ = c.Stats()
	if entries != 0 {
		t.Errorf("entries after Clear = %d", entries)
	}
}

func TestNullCacheNeverHits(t *testing.T) {
	c := NewNullCache()
	ctx := context.Background()
	if err := c.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatal(err)
	}
	if _, hit, _ := c.Get(ctx, "k"); hit {
		t.Error("null cache produced a hit")
	}
}

func TestSynthKeyVariesWithOptions(t *testing.T) {
	k := NewDefaultKeyer()
	base := k.SynthKey("abc", SynthKeyOpts{Top: "alu", Flatten: true, Tool: "yosys"})

	variants := []SynthKeyOpts{
		{Top: "alu2", Flatten: true, Tool: "yosys"},
		{Top: "alu", Flatten: false, Tool: "yosys"},
		{Top: "alu", Flatten: true, Tool: "yosys-0.38"},
	}
	for _, opts := range variants {
		if k.SynthKey("abc", opts) == base {
			t.Errorf("key collision for %+v", opts)
		}
	}
	if k.SynthKey("other", SynthKeyOpts{Top: "alu", Flatten: true, Tool: "yosys"}) == base {
		t.Error("key ignores source hash")
	}
}

func TestScopedKeyerPrefixes(t *testing.T) {
	k := NewScopedKeyer(NewDefaultKeyer(), "tenant:")
	key := k.SynthKey("abc", SynthKeyOpts{Top: "alu"})
	if key[:7] != "tenant:" {
		t.Errorf("key %q not prefixed", key)
	}
}
