// Package feedcache holds the most recent successful upstream load and serves
// it until it is older than a fixed freshness window.
//
// A Cache is owned by the caller and injected into whatever serves its value;
// there is no package-level state. The held entry is replaced atomically and
// only by a successful load, so a failed load never leaves a partial value
// behind. Callers that find the entry stale at the same time share a single
// in-flight load instead of each calling upstream.
package feedcache

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/shreya24m/IITBBSRHACKATHON-2026/internal/metrics"
)

// DefaultWindow is the freshness window for the asteroid feed.
const DefaultWindow = 60 * time.Second

// Loader performs one upstream load.
type Loader[T any] func(ctx context.Context) (T, error)

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now, for tests that need to control entry age.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

type entry[T any] struct {
	value     T
	fetchedAt time.Time
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Name         string
	Window       time.Duration
	Populated    bool
	FetchedAt    time.Time
	Age          time.Duration
	Hits         int64
	Misses       int64
	Loads        int64
	LoadFailures int64
}

// Cache is a time-boxed single-entry cache. Safe for concurrent use.
type Cache[T any] struct {
	name   string
	window time.Duration
	load   Loader[T]
	now    func() time.Time
	logger *slog.Logger

	current atomic.Pointer[entry[T]]
	group   singleflight.Group

	hits     atomic.Int64
	misses   atomic.Int64
	loads    atomic.Int64
	failures atomic.Int64
}

// New creates an empty cache. A non-positive window falls back to DefaultWindow.
func New[T any](name string, window time.Duration, load Loader[T], logger *slog.Logger, opts ...Option) *Cache[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Cache[T]{
		name:   name,
		window: window,
		load:   load,
		now:    o.now,
		logger: logger.With("component", "feedcache", "cache", name),
	}
}

// Name returns the cache name used in logs and metrics.
func (c *Cache[T]) Name() string {
	return c.name
}

// Get returns the held value while it is fresh. Otherwise it performs one
// upstream load, commits it on success and returns it. On failure the held
// entry is left untouched and the load error is returned.
func (c *Cache[T]) Get(ctx context.Context) (T, error) {
	if e, ok := c.fresh(); ok {
		c.hits.Add(1)
		metrics.IncCacheHit(c.name)
		c.logger.Debug("serving cached value", "age_ms", c.now().Sub(e.fetchedAt).Milliseconds())
		return e.value, nil
	}

	c.misses.Add(1)
	metrics.IncCacheMiss(c.name)

	// The shared load must not be cancelled by whichever caller started it.
	loadCtx := context.WithoutCancel(ctx)
	v, err, shared := c.group.Do(c.name, func() (any, error) {
		// A load that completed just before this one started is still fresh.
		if e, ok := c.fresh(); ok {
			return e, nil
		}
		return c.refresh(loadCtx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	if shared {
		c.logger.Debug("joined in-flight load")
	}
	return v.(*entry[T]).value, nil
}

// Peek returns the held value regardless of age without loading.
func (c *Cache[T]) Peek() (T, time.Time, bool) {
	e := c.current.Load()
	if e == nil {
		var zero T
		return zero, time.Time{}, false
	}
	return e.value, e.fetchedAt, true
}

// Populated reports whether a load has ever succeeded.
func (c *Cache[T]) Populated() bool {
	return c.current.Load() != nil
}

// Stats returns counters and the age of the held entry.
func (c *Cache[T]) Stats() Stats {
	s := Stats{
		Name:         c.name,
		Window:       c.window,
		Hits:         c.hits.Load(),
		Misses:       c.misses.Load(),
		Loads:        c.loads.Load(),
		LoadFailures: c.failures.Load(),
	}
	if e := c.current.Load(); e != nil {
		s.Populated = true
		s.FetchedAt = e.fetchedAt
		s.Age = c.now().Sub(e.fetchedAt)
	}
	return s
}

// PublishAge exports the age of the held entry as a gauge.
// Does nothing while the cache is empty.
func (c *Cache[T]) PublishAge() {
	if e := c.current.Load(); e != nil {
		metrics.SetCacheAge(c.name, c.now().Sub(e.fetchedAt).Seconds())
	}
}

func (c *Cache[T]) fresh() (*entry[T], bool) {
	e := c.current.Load()
	if e == nil {
		return nil, false
	}
	return e, c.now().Sub(e.fetchedAt) < c.window
}

func (c *Cache[T]) refresh(ctx context.Context) (*entry[T], error) {
	c.loads.Add(1)
	start := time.Now()

	v, err := c.load(ctx)
	if err != nil {
		c.failures.Add(1)
		metrics.IncUpstreamLoad(c.name, "error")
		c.logger.Warn("upstream load failed, keeping previous entry",
			"error", err,
			"populated", c.current.Load() != nil,
		)
		return nil, errors.Wrapf(err, "loading %s", c.name)
	}

	e := &entry[T]{value: v, fetchedAt: c.now()}
	c.current.Store(e)
	metrics.IncUpstreamLoad(c.name, "success")
	metrics.SetCacheAge(c.name, 0)
	c.logger.Info("cache refreshed", "duration_ms", time.Since(start).Milliseconds())
	return e, nil
}
