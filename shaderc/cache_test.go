package shaderc

import (
	"fmt"
	"testing"
)

func TestCacheRoundTrip(t *testing.T) {
	c := NewCache(4)

	mod := Module{Words: []uint32{0x07230203}, Stage: StageFragment}
	c.Put("src", StageFragment, mod)

	got, ok := c.Get("src", StageFragment)
	if !ok {
		t.Fatal("Get() missed a stored module")
	}
	if got.Stage != StageFragment || len(got.Words) != 1 {
		t.Errorf("Get() = %+v, want the stored module", got)
	}

	// The same source under a different stage is a distinct entry.
	if _, ok := c.Get("src", StageVertex); ok {
		t.Error("Get() hit across stages")
	}
}

func TestCacheIgnoresInvalidModules(t *testing.T) {
	c := NewCache(4)
	c.Put("src", StageFragment, Module{})
	if c.Len() != 0 {
		t.Error("invalid module was cached")
	}
}

func TestCacheEvictsOldest(t *testing.T) {
	c := NewCache(2)
	for i := 0; i < 3; i++ {
		src := fmt.Sprintf("src-%d", i)
		c.Put(src, StageFragment, Module{Words: []uint32{uint32(i + 1)}, Stage: StageFragment})
	}

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if _, ok := c.Get("src-0", StageFragment); ok {
		t.Error("oldest entry survived eviction")
	}
	if _, ok := c.Get("src-2", StageFragment); !ok {
		t.Error("newest entry was evicted")
	}
}

func TestCacheLRUTouch(t *testing.T) {
	c := NewCache(2)
	c.Put("a", StageFragment, Module{Words: []uint32{1}, Stage: StageFragment})
	c.Put("b", StageFragment, Module{Words: []uint32{2}, Stage: StageFragment})

	// Touch "a" so "b" becomes the eviction candidate.
	if _, ok := c.Get("a", StageFragment); !ok {
		t.Fatal("Get(a) missed")
	}
	c.Put("c", StageFragment, Module{Words: []uint32{3}, Stage: StageFragment})

	if _, ok := c.Get("a", StageFragment); !ok {
		t.Error("recently used entry was evicted")
	}
	if _, ok := c.Get("b", StageFragment); ok {
		t.Error("least recently used entry survived")
	}
}

func TestCacheStats(t *testing.T) {
	c := NewCache(4)
	c.Put("src", StageFragment, Module{Words: []uint32{1}, Stage: StageFragment})

	c.Get("src", StageFragment)
	c.Get("other", StageFragment)

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Len != 1 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss, 1 entry", stats)
	}
}

func TestCompilerUsesCache(t *testing.T) {
	c, _ := newTestCompiler()

	first := c.Compile(ParticlesSimpleSource(), StageFragment, "")
	if !first.OK {
		t.Fatalf("Compile() failed: %v", first.Err)
	}

	before := c.Cache().Stats().Hits
	second := c.Compile(ParticlesSimpleSource(), StageFragment, "")
	if !second.OK {
		t.Fatal("cached Compile() failed")
	}
	if c.Cache().Stats().Hits != before+1 {
		t.Error("second compile did not hit the cache")
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache(4)
	c.Put("src", StageFragment, Module{Words: []uint32{1}, Stage: StageFragment})
	c.Clear()
	if c.Len() != 0 {
		t.Error("Clear() left entries behind")
	}
}
