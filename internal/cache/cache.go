package cache

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/socialhub/client/internal/logging"
)

// Fetcher loads the authoritative value for a resource.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Recorder receives cache lookup outcomes. *metrics.Metrics satisfies it.
type Recorder interface {
	CacheLookup(family, result string)
}

// Key identifies a cached resource.
type Key struct {
	Family Family
	Sub    string
}

func (k Key) String() string {
	if k.Sub == "" {
		return string(k.Family)
	}
	return string(k.Family) + "/" + k.Sub
}

type entry[T any] struct {
	value     T
	fetchedAt time.Time
}

type outcome[T any] struct {
	value   T
	ticket  uint64
	drops   uint64
	epoch   uint64
	network bool
}

// Cache is a TTL-bounded cache for one resource family. Each sub-key has at
// most one outstanding fetch, invalidation included; concurrent readers share
// its result.
type Cache[T any] struct {
	family  Family
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger
	metrics Recorder

	mu      sync.RWMutex
	entries map[string]entry[T]
	gens    map[string]uint64 // bumped by every local write
	drops   map[string]uint64 // bumped by Invalidate
	epoch   uint64

	tickets atomic.Uint64
	group   singleflight.Group
}

// Option customises a Cache.
type Option func(*options)

type options struct {
	now     func() time.Time
	logger  *slog.Logger
	metrics Recorder
}

// WithClock overrides the time source used for freshness checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithLogger sets the logger used when no logger is present on the context.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records hit, miss, shared and error lookups.
func WithMetrics(r Recorder) Option {
	return func(o *options) {
		o.metrics = r
	}
}

// New returns an empty cache for the family using its policy TTL.
func New[T any](family Family, opts ...Option) *Cache[T] {
	o := options{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[T]{
		family:  family,
		ttl:     TTL(family),
		now:     o.now,
		logger:  o.logger,
		metrics: o.metrics,
		entries: make(map[string]entry[T]),
		gens:    make(map[string]uint64),
		drops:   make(map[string]uint64),
	}
}

// Family returns the resource family served by the cache.
func (c *Cache[T]) Family() Family { return c.family }

// Key returns the resource key for sub.
func (c *Cache[T]) Key(sub string) Key { return Key{Family: c.family, Sub: sub} }

// Read returns the cached value for sub when it is fresh and force is false.
// Otherwise it joins the outstanding fetch for sub or starts one, storing the
// result on success. A forced read always observes a network fetch that began
// after the call was made. On error the cache is left unchanged.
//
// The shared fetch is detached from the caller's cancellation; a caller whose
// context ends returns ctx.Err() while the fetch completes for the others.
//
// A fetch that began before sub was last invalidated is never handed to a
// later reader. The reader waits for it to finish and then starts its own, so
// invalidation does not open a second concurrent fetch.
func (c *Cache[T]) Read(ctx context.Context, sub string, force bool, fetch Fetcher[T]) (T, error) {
	if !force {
		if v, ok := c.fresh(sub); ok {
			c.record("hit")
			return v, nil
		}
	}

	ticket := c.tickets.Add(1)
	c.mu.RLock()
	drops, epoch := c.drops[sub], c.epoch
	c.mu.RUnlock()
	for {
		ch := c.group.DoChan(sub, func() (any, error) {
			return c.load(context.WithoutCancel(ctx), sub, force, fetch)
		})

		var res singleflight.Result
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case res = <-ch:
		}

		if res.Err != nil {
			c.record("error")
			var zero T
			return zero, res.Err
		}

		out := res.Val.(outcome[T])
		if out.drops < drops || out.epoch < epoch {
			// the fetch predates an invalidation this call has seen
			continue
		}
		if force && (!out.network || out.ticket < ticket) {
			// joined a fetch that started before this call; wait for a newer one
			continue
		}
		switch {
		case res.Shared:
			c.record("shared")
		case out.network:
			c.record("miss")
		default:
			c.record("hit")
		}
		return out.value, nil
	}
}

// ReadOrStale behaves like Read but, when the fetch fails, returns whatever
// value is held for sub (or the zero value) together with the error.
func (c *Cache[T]) ReadOrStale(ctx context.Context, sub string, force bool, fetch Fetcher[T]) (T, error) {
	v, err := c.Read(ctx, sub, force, fetch)
	if err == nil {
		return v, nil
	}
	stale, _ := c.Peek(sub)
	return stale, err
}

func (c *Cache[T]) load(ctx context.Context, sub string, force bool, fetch Fetcher[T]) (outcome[T], error) {
	ticket := c.tickets.Add(1)
	c.mu.RLock()
	gen, drops, epoch := c.gens[sub], c.drops[sub], c.epoch
	c.mu.RUnlock()

	if !force {
		if v, ok := c.fresh(sub); ok {
			return outcome[T]{value: v, ticket: ticket, drops: drops, epoch: epoch}, nil
		}
	}

	v, err := fetch(ctx)
	if err != nil {
		logging.FromContext(ctx).Debug("cache fetch failed", "key", c.Key(sub).String(), "error", err)
		return outcome[T]{}, err
	}

	c.mu.Lock()
	if c.gens[sub] == gen && c.epoch == epoch {
		c.entries[sub] = entry[T]{value: v, fetchedAt: c.now()}
	}
	c.mu.Unlock()

	return outcome[T]{value: v, ticket: ticket, drops: drops, epoch: epoch, network: true}, nil
}

func (c *Cache[T]) fresh(sub string) (T, bool) {
	c.mu.RLock()
	e, ok := c.entries[sub]
	c.mu.RUnlock()
	if !ok {
		var zero T
		return zero, false
	}
	if c.ttl == Forever || c.now().Sub(e.fetchedAt) < c.ttl {
		return e.value, true
	}
	var zero T
	return zero, false
}

// Fresh reports whether sub holds a value inside its trust window.
func (c *Cache[T]) Fresh(sub string) bool {
	_, ok := c.fresh(sub)
	return ok
}

// Peek returns the held value for sub regardless of freshness.
func (c *Cache[T]) Peek(sub string) (T, bool) {
	c.mu.RLock()
	e, ok := c.entries[sub]
	c.mu.RUnlock()
	return e.value, ok
}

// Put stores v for sub as if it had just been fetched.
func (c *Cache[T]) Put(sub string, v T) {
	c.mu.Lock()
	c.gens[sub]++
	c.entries[sub] = entry[T]{value: v, fetchedAt: c.now()}
	c.mu.Unlock()
}

// Invalidate drops the entry for sub. A fetch already in progress for sub will
// not repopulate it; later reads wait for it and then start a new one.
func (c *Cache[T]) Invalidate(sub string) {
	c.mu.Lock()
	c.gens[sub]++
	c.drops[sub]++
	delete(c.entries, sub)
	c.mu.Unlock()
}

// Mutate replaces the held value for sub with fn applied to it. The entry's
// freshness is not extended. It reports whether an entry was present.
func (c *Cache[T]) Mutate(sub string, fn func(T) T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[sub]
	if !ok {
		return false
	}
	e.value = fn(e.value)
	c.entries[sub] = e
	c.gens[sub]++
	return true
}

// MutateAll applies fn to every held entry.
func (c *Cache[T]) MutateAll(fn func(sub string, v T) T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for sub, e := range c.entries {
		e.value = fn(sub, e.value)
		c.entries[sub] = e
		c.gens[sub]++
	}
}

// Subs lists the sub-keys currently held.
func (c *Cache[T]) Subs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	subs := make([]string, 0, len(c.entries))
	for sub := range c.entries {
		subs = append(subs, sub)
	}
	return subs
}

// Reset drops every entry. Fetches in progress will not repopulate the cache
// and their results are not handed to later reads.
func (c *Cache[T]) Reset() {
	c.mu.Lock()
	c.epoch++
	c.entries = make(map[string]entry[T])
	c.mu.Unlock()
	c.logger.Debug("cache reset", "family", string(c.family))
}

func (c *Cache[T]) record(result string) {
	if c.metrics != nil {
		c.metrics.CacheLookup(string(c.family), result)
	}
}

// Sub formats an integer identifier as a sub-key.
func Sub(id int64) string {
	return strconv.FormatInt(id, 10)
}
