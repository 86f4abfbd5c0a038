package semcache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestCache(t *testing.T) (*Cache[string], *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2025, 1, 8, 12, 0, 0, 0, time.UTC)}
	return New[string](Config{TTL: time.Minute, Now: clock.Now}), clock
}

func TestLookup_Idempotent(t *testing.T) {
	c, _ := newTestCache(t)
	vec := []float32{0.3, 0.1, 0.9}
	c.Store(vec, "rust web frameworks")

	got, sim, ok := c.Lookup(vec, 0.8)
	if !ok {
		t.Fatal("expected hit for identical vector")
	}
	if got != "rust web frameworks" {
		t.Errorf("value = %q", got)
	}
	if sim < 0.999999 {
		t.Errorf("similarity = %v, want ~1", sim)
	}
}

func TestLookup_ThresholdIsStrict(t *testing.T) {
	c, _ := newTestCache(t)
	c.Store([]float32{1, 0}, "a")

	// cos([1,0],[1,1]) = 0.7071...
	if _, _, ok := c.Lookup([]float32{1, 1}, 0.8); ok {
		t.Error("expected miss below threshold")
	}
	if _, _, ok := c.Lookup([]float32{1, 0}, 1.0); ok {
		t.Error("similarity equal to threshold must miss")
	}
	if _, _, ok := c.Lookup([]float32{1, 1}, 0.7); !ok {
		t.Error("expected hit above threshold")
	}
}

func TestLookup_Expiry(t *testing.T) {
	c, clock := newTestCache(t)
	vec := []float32{1, 2}
	c.Store(vec, "v")

	clock.Advance(time.Minute)
	if _, _, ok := c.Lookup(vec, 0.5); !ok {
		t.Error("entry at exactly ttl age should still be live")
	}

	clock.Advance(time.Second)
	if _, _, ok := c.Lookup(vec, 0.5); ok {
		t.Error("expected miss after ttl")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestStoreWithTTL_OverridesDefault(t *testing.T) {
	c, clock := newTestCache(t)
	c.StoreWithTTL([]float32{1}, "long", time.Hour)

	clock.Advance(30 * time.Minute)
	if _, _, ok := c.Lookup([]float32{1}, 0.5); !ok {
		t.Error("per-entry ttl ignored")
	}
}

func TestLookup_FirstMatchWins(t *testing.T) {
	c, _ := newTestCache(t)
	probe := []float32{1, 0.2}
	c.Store([]float32{1, 0.5}, "older, less similar")
	c.Store([]float32{1, 0.2001}, "newer, more similar")

	got, _, ok := c.Lookup(probe, 0.8)
	if !ok {
		t.Fatal("expected hit")
	}
	if got != "older, less similar" {
		t.Errorf("got %q, want first inserted match", got)
	}
}

func TestStore_OverwriteMovesToBack(t *testing.T) {
	c, clock := newTestCache(t)
	a := []float32{1, 0.5}
	b := []float32{1, 0.2001}
	c.Store(a, "a1")
	c.Store(b, "b")

	clock.Advance(10 * time.Second)
	c.Store(a, "a2")

	got, _, _ := c.Lookup([]float32{1, 0.2}, 0.8)
	if got != "b" {
		t.Errorf("got %q, want b now that a was re-inserted behind it", got)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2 after overwrite", c.Len())
	}

	// the overwrite refreshed a's timestamp
	clock.Advance(55 * time.Second)
	if v, _, ok := c.Lookup(a, 0.9999); !ok || v != "a2" {
		t.Errorf("Lookup(a) = %q, %v; want a2 still live", v, ok)
	}
}

func TestStore_PrunesExpired(t *testing.T) {
	c, clock := newTestCache(t)
	c.Store([]float32{1, 0}, "old")
	clock.Advance(2 * time.Minute)
	c.Store([]float32{0, 1}, "new")

	c.mu.RLock()
	n := c.order.Len()
	c.mu.RUnlock()
	if n != 1 {
		t.Errorf("physical entries = %d, want 1 after prune", n)
	}
}

func TestLookup_DimensionMismatchIsMiss(t *testing.T) {
	c, _ := newTestCache(t)
	c.Store([]float32{1, 0, 0}, "3d")

	if _, _, ok := c.Lookup([]float32{1, 0}, 0.1); ok {
		t.Error("mismatched dimensions must miss")
	}
	if _, _, ok := c.Lookup([]float32{0, 0, 0}, -1); ok {
		t.Error("zero-norm probe must miss")
	}
	if _, _, ok := c.Lookup(nil, 0); ok {
		t.Error("empty probe must miss")
	}
}

func TestStore_EmptyVectorIgnored(t *testing.T) {
	c, _ := newTestCache(t)
	c.Store(nil, "nothing")
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestStore_CopiesVector(t *testing.T) {
	c, _ := newTestCache(t)
	vec := []float32{1, 0}
	c.Store(vec, "v")
	vec[0], vec[1] = 0, 1

	if _, _, ok := c.Lookup([]float32{1, 0}, 0.99); !ok {
		t.Error("cache must not alias the caller's slice")
	}
}

func TestClear(t *testing.T) {
	c, _ := newTestCache(t)
	c.Store([]float32{1}, "a")
	c.Store([]float32{2, 1}, "b")
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len = %d after Clear", c.Len())
	}
}

func TestMetrics(t *testing.T) {
	lookups := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "lookups"}, []string{"result"})
	entries := prometheus.NewGauge(prometheus.GaugeOpts{Name: "entries"})
	c := New[int](Config{Lookups: lookups, Entries: entries})

	c.Store([]float32{1, 0}, 1)
	c.Lookup([]float32{1, 0}, 0.5)
	c.Lookup([]float32{0, 1}, 0.5)
	c.Lookup([]float32{0, 1}, 0.5)

	if v := testutil.ToFloat64(lookups.WithLabelValues("hit")); v != 1 {
		t.Errorf("hits = %v, want 1", v)
	}
	if v := testutil.ToFloat64(lookups.WithLabelValues("miss")); v != 2 {
		t.Errorf("misses = %v, want 2", v)
	}
	if v := testutil.ToFloat64(entries); v != 1 {
		t.Errorf("entries = %v, want 1", v)
	}
}

func TestDefaults(t *testing.T) {
	c := New[string](Config{})
	if c.ttl != DefaultTTL || c.now == nil || c.logger == nil {
		t.Errorf("defaults not applied: ttl=%v", c.ttl)
	}
}

func TestConcurrentAccess(t *testing.T) {
	c := New[string](Config{})
	var wg sync.WaitGroup

	for i := range 16 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := range 50 {
				c.Store([]float32{float32(i), float32(j), 1}, fmt.Sprintf("%d-%d", i, j))
			}
		}()
		go func() {
			defer wg.Done()
			for j := range 50 {
				c.Lookup([]float32{float32(j), float32(i), 1}, 0.9)
			}
		}()
	}
	wg.Wait()

	if c.Len() != 16*50 {
		t.Errorf("Len = %d, want %d", c.Len(), 16*50)
	}
}
