// Package semcache is an in-process cache keyed by query embeddings. A lookup
// hits when a stored vector is similar enough to the probe, so paraphrased
// queries share one backend round-trip.
package semcache

import (
	"container/list"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/reposearch/internal/domain/vector"
)

// DefaultTTL applies when Config.TTL is zero.
const DefaultTTL = 900 * time.Second

// Config wires a Cache. Every field is optional.
type Config struct {
	TTL     time.Duration
	Now     func() time.Time
	Logger  *zap.Logger
	Lookups *prometheus.CounterVec // labelled by result: hit / miss
	Entries prometheus.Gauge
}

type entry[V any] struct {
	key        string
	vec        []float32
	value      V
	insertedAt time.Time
	ttl        time.Duration
}

func (e *entry[V]) expired(now time.Time) bool {
	return now.Sub(e.insertedAt) > e.ttl
}

// Cache maps embeddings to values of type V.
//
// Lookup scans entries in insertion order and returns the first one above the
// threshold, not the most similar one. Overwriting a key moves it to the back.
type Cache[V any] struct {
	mu    sync.RWMutex
	order *list.List // of *entry[V], oldest first
	index map[string]*list.Element

	ttl     time.Duration
	now     func() time.Time
	logger  *zap.Logger
	lookups *prometheus.CounterVec
	entries prometheus.Gauge
}

// New creates an empty cache.
func New[V any](cfg Config) *Cache[V] {
	c := &Cache[V]{
		order:   list.New(),
		index:   make(map[string]*list.Element),
		ttl:     cfg.TTL,
		now:     cfg.Now,
		logger:  cfg.Logger,
		lookups: cfg.Lookups,
		entries: cfg.Entries,
	}
	if c.ttl <= 0 {
		c.ttl = DefaultTTL
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	return c
}

// Lookup returns the first live entry whose cosine similarity to vec is
// strictly greater than threshold. It never fails: faults count as a miss.
func (c *Cache[V]) Lookup(vec []float32, threshold float64) (value V, similarity float64, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("semantic cache lookup panicked", zap.Any("panic", r))
			var zero V
			value, similarity, ok = zero, 0, false
		}
		c.observe(ok)
	}()

	if len(vec) == 0 {
		return value, 0, false
	}

	now := c.now()

	c.mu.RLock()
	defer c.mu.RUnlock()

	for el := c.order.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry[V])
		if e.expired(now) {
			continue
		}
		sim, err := vector.Cosine(vec, e.vec)
		if err != nil {
			c.logger.Debug("semantic cache entry skipped", zap.String("key", e.key), zap.Error(err))
			continue
		}
		if sim > threshold {
			return e.value, sim, true
		}
	}
	return value, 0, false
}

// Store inserts value under vec with the default TTL.
func (c *Cache[V]) Store(vec []float32, value V) {
	c.StoreWithTTL(vec, value, 0)
}

// StoreWithTTL inserts or overwrites the entry for vec. ttl <= 0 means the
// default TTL. Expired entries are dropped in the same critical section.
func (c *Cache[V]) StoreWithTTL(vec []float32, value V, ttl time.Duration) {
	if err := c.store(vec, value, ttl); err != nil {
		c.logger.Warn("semantic cache store failed", zap.Error(err))
	}
}

func (c *Cache[V]) store(vec []float32, value V, ttl time.Duration) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	if len(vec) == 0 {
		return vector.ErrEmpty
	}
	if ttl <= 0 {
		ttl = c.ttl
	}

	e := &entry[V]{
		key:        vector.Fingerprint(vec),
		vec:        slices.Clone(vec),
		value:      value,
		insertedAt: c.now(),
		ttl:        ttl,
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.pruneLocked(e.insertedAt)
	if old, ok := c.index[e.key]; ok {
		c.order.Remove(old)
	}
	c.index[e.key] = c.order.PushBack(e)
	c.setGaugeLocked()
	return nil
}

func (c *Cache[V]) pruneLocked(now time.Time) {
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if e := el.Value.(*entry[V]); e.expired(now) {
			c.order.Remove(el)
			delete(c.index, e.key)
		}
		el = next
	}
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	clear(c.index)
	c.setGaugeLocked()
}

// Len counts live (unexpired) entries.
func (c *Cache[V]) Len() int {
	now := c.now()
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for el := c.order.Front(); el != nil; el = el.Next() {
		if !el.Value.(*entry[V]).expired(now) {
			n++
		}
	}
	return n
}

func (c *Cache[V]) setGaugeLocked() {
	if c.entries != nil {
		c.entries.Set(float64(c.order.Len()))
	}
}

func (c *Cache[V]) observe(hit bool) {
	if c.lookups == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.lookups.WithLabelValues(result).Inc()
}
