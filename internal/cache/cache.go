// Package cache keeps directory listings in two tiers: an in-process map
// for the running instance and a durable store that survives restarts.
// Both tiers share one fixed TTL.
package cache

import (
	"context"
	"encoding/json"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/notedrop/service/internal/logging"
)

const (
	DefaultTTL        = 30 * time.Second
	DefaultMaxRecords = 200
)

// Record is a listing snapshot as kept by a Durable tier.
type Record struct {
	FetchedAt time.Time
	// Payload is the JSON encoding of the listing.
	Payload []byte
}

// Durable is the persistent tier.
type Durable interface {
	Load(ctx context.Context, key string) (Record, bool, error)
	Save(ctx context.Context, key string, rec Record) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Fetcher loads a listing from the origin.
type Fetcher[T any] func(ctx context.Context) ([]T, error)

type memEntry[T any] struct {
	data      []T
	fetchedAt time.Time
}

// Cache is a two-tier TTL cache of listings keyed by backend and location.
type Cache[T any] struct {
	ttl        time.Duration
	maxRecords int
	now        func() time.Time
	durable    Durable
	log        logging.Logger

	mu  sync.RWMutex
	mem map[string]memEntry[T]
	// gen counts invalidations per key. A fetch that started under an older
	// generation does not write back.
	gen map[string]uint64

	flights singleflight.Group
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	ttl        time.Duration
	maxRecords int
	now        func() time.Time
	durable    Durable
	log        logging.Logger
}

func WithTTL(d time.Duration) Option        { return func(o *options) { o.ttl = d } }
func WithMaxRecords(n int) Option           { return func(o *options) { o.maxRecords = n } }
func WithClock(now func() time.Time) Option { return func(o *options) { o.now = now } }
func WithDurable(d Durable) Option          { return func(o *options) { o.durable = d } }
func WithLogger(l logging.Logger) Option    { return func(o *options) { o.log = l } }

// New creates a Cache. Without WithDurable only the in-process tier is used.
func New[T any](opts ...Option) *Cache[T] {
	o := options{
		ttl:        DefaultTTL,
		maxRecords: DefaultMaxRecords,
		now:        time.Now,
		durable:    Nop{},
		log:        logging.Nop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		ttl:        o.ttl,
		maxRecords: o.maxRecords,
		now:        o.now,
		durable:    o.durable,
		log:        o.log,
		mem:        make(map[string]memEntry[T]),
		gen:        make(map[string]uint64),
	}
}

// TTL returns the validity window of an entry.
func (c *Cache[T]) TTL() time.Duration {
	return c.ttl
}

// GetOrFetch returns the listing for key.
//
// Reads go in-process, then durable, then origin. A durable hit is copied
// into the in-process tier with its original fetch time. An origin fetch
// writes both tiers. force skips both reads but still writes the result
// back. Origin errors are returned as-is and leave the cache untouched.
func (c *Cache[T]) GetOrFetch(ctx context.Context, key string, fetch Fetcher[T], force bool) ([]T, error) {
	if !force {
		if data, ok := c.fromMemory(key); ok {
			return data, nil
		}
		if data, ok := c.fromDurable(ctx, key); ok {
			return data, nil
		}

		// Concurrent misses for one key share a single origin call. The
		// shared call outlives any one caller; each caller only stops waiting
		// when its own context ends.
		shared := context.WithoutCancel(ctx)
		ch := c.flights.DoChan(key, func() (any, error) {
			return c.refresh(shared, key, fetch)
		})
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				return nil, res.Err
			}
			return slices.Clone(res.Val.([]T)), nil
		}
	}

	data, err := c.refresh(ctx, key, fetch)
	if err != nil {
		return nil, err
	}
	return slices.Clone(data), nil
}

// Invalidate drops keys from both tiers. Fetches already in flight for
// those keys still return to their callers but are not cached.
func (c *Cache[T]) Invalidate(ctx context.Context, keys ...string) {
	c.mu.Lock()
	for _, key := range keys {
		delete(c.mem, key)
		c.gen[key]++
		c.flights.Forget(key)
	}
	c.mu.Unlock()

	for _, key := range keys {
		if err := c.durable.Delete(ctx, key); err != nil {
			c.log.Warn(ctx, "durable cache delete failed", "key", key, "error", err)
		}
	}
}

func (c *Cache[T]) fresh(fetchedAt time.Time) bool {
	return c.now().Sub(fetchedAt) < c.ttl
}

func (c *Cache[T]) fromMemory(key string) ([]T, bool) {
	c.mu.RLock()
	e, ok := c.mem[key]
	c.mu.RUnlock()

	if !ok || !c.fresh(e.fetchedAt) {
		return nil, false
	}
	return slices.Clone(e.data), true
}

func (c *Cache[T]) fromDurable(ctx context.Context, key string) ([]T, bool) {
	rec, ok, err := c.durable.Load(ctx, key)
	if err != nil {
		c.log.Warn(ctx, "durable cache read failed", "key", key, "error", err)
		return nil, false
	}
	if !ok || !c.fresh(rec.FetchedAt) {
		return nil, false
	}

	var data []T
	if err := json.Unmarshal(rec.Payload, &data); err != nil {
		c.log.Warn(ctx, "durable cache record unreadable", "key", key, "error", err)
		return nil, false
	}
	if data == nil {
		data = []T{}
	}

	c.mu.Lock()
	c.mem[key] = memEntry[T]{data: data, fetchedAt: rec.FetchedAt}
	c.mu.Unlock()

	return slices.Clone(data), true
}

func (c *Cache[T]) refresh(ctx context.Context, key string, fetch Fetcher[T]) ([]T, error) {
	gen := c.generation(key)

	data, err := fetch(ctx)
	if err != nil {
		return nil, err
	}
	if data == nil {
		data = []T{}
	}

	fetchedAt := c.now()
	c.mu.Lock()
	if c.gen[key] != gen {
		c.mu.Unlock()
		c.log.Debug(ctx, "listing invalidated during fetch, not cached", "key", key)
		return data, nil
	}
	c.mem[key] = memEntry[T]{data: data, fetchedAt: fetchedAt}
	c.mu.Unlock()

	c.persist(ctx, key, data, fetchedAt)

	// An Invalidate that landed between the memory write and the save
	// already cleared the durable tier; clear it again.
	if c.generation(key) != gen {
		if err := c.durable.Delete(ctx, key); err != nil {
			c.log.Warn(ctx, "durable cache delete failed", "key", key, "error", err)
		}
	}
	return data, nil
}

func (c *Cache[T]) generation(key string) uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen[key]
}

func (c *Cache[T]) persist(ctx context.Context, key string, data []T, fetchedAt time.Time) {
	if c.maxRecords > 0 && len(data) > c.maxRecords {
		data = data[:c.maxRecords]
	}

	payload, err := json.Marshal(data)
	if err != nil {
		c.log.Warn(ctx, "durable cache encode failed", "key", key, "error", err)
		return
	}
	if err := c.durable.Save(ctx, key, Record{FetchedAt: fetchedAt, Payload: payload}); err != nil {
		c.log.Warn(ctx, "durable cache write failed", "key", key, "error", err)
	}
}

// Nop is a Durable that stores nothing.
type Nop struct{}

func (Nop) Load(context.Context, string) (Record, bool, error) { return Record{}, false, nil }
func (Nop) Save(context.Context, string, Record) error         { return nil }
func (Nop) Delete(context.Context, string) error               { return nil }
func (Nop) Close() error                                       { return nil }
