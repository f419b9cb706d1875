package cache

import (
	"errors"
	"testing"
)

func TestGetOrCreateBuildsOnce(t *testing.T) {
	c := New[string, int](2, nil)
	calls := 0
	create := func() (int, error) {
		calls++
		return 7, nil
	}

	for i := 0; i < 3; i++ {
		v, err := c.GetOrCreate("a", create)
		if err != nil {
			t.Fatalf("GetOrCreate: %v", err)
		}
		if v != 7 {
			t.Errorf("GetOrCreate = %d, want 7", v)
		}
	}
	if calls != 1 {
		t.Errorf("create called %d times, want 1", calls)
	}

	s := c.Stats()
	if s.Hits != 2 || s.Misses != 1 {
		t.Errorf("Stats hits/misses = %d/%d, want 2/1", s.Hits, s.Misses)
	}
	if s.HitRate < 0.66 || s.HitRate > 0.67 {
		t.Errorf("HitRate = %v, want ~0.667", s.HitRate)
	}
}

func TestGetOrCreateErrorNotCached(t *testing.T) {
	c := New[string, int](2, nil)
	boom := errors.New("boom")

	if _, err := c.GetOrCreate("a", func() (int, error) { return 0, boom }); !errors.Is(err, boom) {
		t.Fatalf("GetOrCreate error = %v, want %v", err, boom)
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d after failed create, want 0", c.Len())
	}
	if _, ok := c.Get("a"); ok {
		t.Error("Get found an entry for a failed create")
	}
}

func TestAdvanceEvictsUnused(t *testing.T) {
	var evicted []string
	c := New[string, int](2, func(k string, _ int) { evicted = append(evicted, k) })

	mustCreate(t, c, "old", 1)
	mustCreate(t, c, "hot", 2)

	// Frames 1..3: "hot" is used every frame, "old" never again.
	for i := 0; i < 3; i++ {
		c.Advance()
		if _, ok := c.Get("hot"); !ok {
			t.Fatalf("frame %d: hot evicted", c.Frame())
		}
	}

	if len(evicted) != 1 || evicted[0] != "old" {
		t.Errorf("evicted = %v, want [old]", evicted)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	if got := c.Stats().Evictions; got != 1 {
		t.Errorf("Evictions = %d, want 1", got)
	}
}

func TestAdvanceKeepsWithinMaxAge(t *testing.T) {
	c := New[int, int](3, nil)
	mustCreate(t, c, 1, 1)

	for i := 0; i < 3; i++ {
		if n := c.Advance(); n != 0 {
			t.Fatalf("Advance %d evicted %d, want 0", i+1, n)
		}
	}
	if n := c.Advance(); n != 1 {
		t.Errorf("Advance 4 evicted %d, want 1", n)
	}
}

func TestAdvanceEvictsOldestFirst(t *testing.T) {
	var evicted []int
	c := New[int, int](1, func(k, _ int) { evicted = append(evicted, k) })

	mustCreate(t, c, 1, 1)
	mustCreate(t, c, 2, 2)
	mustCreate(t, c, 3, 3)
	c.Get(1)
	c.Advance()
	c.Get(2)
	c.Advance()

	// 1 and 3 were last used in frame 0, 2 in frame 1.
	if len(evicted) != 2 || evicted[0] != 3 || evicted[1] != 1 {
		t.Errorf("evicted = %v, want [3 1]", evicted)
	}
}

func TestZeroMaxAgeNeverEvicts(t *testing.T) {
	c := New[int, int](0, nil)
	mustCreate(t, c, 1, 1)
	for i := 0; i < 100; i++ {
		c.Advance()
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
}

func TestDeleteAndClear(t *testing.T) {
	released := map[string]int{}
	c := New[string, int](4, func(k string, v int) { released[k] = v })

	mustCreate(t, c, "a", 1)
	mustCreate(t, c, "b", 2)
	mustCreate(t, c, "c", 3)

	if !c.Delete("a") {
		t.Error("Delete(a) = false, want true")
	}
	if c.Delete("a") {
		t.Error("second Delete(a) = true, want false")
	}
	c.Clear()

	if c.Len() != 0 {
		t.Errorf("Len = %d after Clear, want 0", c.Len())
	}
	want := map[string]int{"a": 1, "b": 2, "c": 3}
	for k, v := range want {
		if released[k] != v {
			t.Errorf("onEvict(%q) = %d, want %d", k, released[k], v)
		}
	}

	// The list must be usable after Clear.
	mustCreate(t, c, "d", 4)
	c.Advance()
	if _, ok := c.Get("d"); !ok {
		t.Error("Get(d) after Clear failed")
	}
}

func TestRecency(t *testing.T) {
	var r recency[int, int]
	e1 := &cacheEntry[int, int]{key: 1}
	e2 := &cacheEntry[int, int]{key: 2}
	e3 := &cacheEntry[int, int]{key: 3}
	r.touch(e1)
	r.touch(e2)
	r.touch(e3)

	if got := r.stalest().key; got != 1 {
		t.Errorf("stalest = %d, want 1", got)
	}
	r.touch(e1)
	if got := r.stalest().key; got != 2 {
		t.Errorf("stalest after touch(1) = %d, want 2", got)
	}
	r.touch(e1)
	r.unlink(e3)
	r.unlink(e3)
	if r.n != 2 {
		t.Errorf("n = %d, want 2", r.n)
	}
	r.unlink(e2)
	if got := r.stalest().key; got != 1 {
		t.Errorf("stalest = %d, want 1", got)
	}
	r.reset()
	if r.stalest() != nil {
		t.Error("stalest on empty list returned an entry")
	}
}

func mustCreate[K comparable](t *testing.T, c *Cache[K, int], key K, v int) {
	t.Helper()
	if _, err := c.GetOrCreate(key, func() (int, error) { return v, nil }); err != nil {
		t.Fatalf("GetOrCreate(%v): %v", key, err)
	}
}
