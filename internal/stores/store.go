// Package stores binds resource caches to the API endpoints of each domain
// family and applies confirmed changes to every cached collection holding the
// affected record.
package stores

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/socialhub/client/internal/cache"
	"github.com/socialhub/client/internal/logging"
	"github.com/socialhub/client/internal/transport"
)

// API is the transport surface the stores call. *transport.Client satisfies it.
type API interface {
	Send(ctx context.Context, req transport.Request) (*transport.Response, error)
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
}

// Option configures the stores built by NewRegistry.
type Option func(*settings)

type settings struct {
	logger    *slog.Logger
	cacheOpts []cache.Option
}

// WithLogger sets the logger used for degraded reads.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
			s.cacheOpts = append(s.cacheOpts, cache.WithLogger(logger))
		}
	}
}

// WithClock overrides the clock used for cache freshness.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		s.cacheOpts = append(s.cacheOpts, cache.WithClock(now))
	}
}

// WithMetrics records cache lookups.
func WithMetrics(r cache.Recorder) Option {
	return func(s *settings) {
		s.cacheOpts = append(s.cacheOpts, cache.WithMetrics(r))
	}
}

func newSettings(opts []Option) settings {
	s := settings{logger: slog.Default()}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func newCache[T any](s settings, family cache.Family) *cache.Cache[T] {
	return cache.New[T](family, s.cacheOpts...)
}

// base carries what every store needs.
type base struct {
	api     API
	logger  *slog.Logger
	loading *loadingSet
}

func newBase(api API, s settings) base {
	return base{api: api, logger: s.logger, loading: &loadingSet{counts: map[string]int{}}}
}

// degrade swallows a failed background read after logging it. Denied
// authorization and cancellation still reach the caller.
func (b *base) degrade(ctx context.Context, what string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, transport.ErrAuthorizationDenied) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	logging.FromContext(logging.WithFallback(ctx, b.logger)).Warn("serving stale data", "read", what, "error", err)
	return nil
}

// loadingSet tracks scoped in-progress flags. Overlapping operations on the
// same scope keep it set until the last one finishes.
type loadingSet struct {
	mu     sync.Mutex
	counts map[string]int
}

func (l *loadingSet) begin(scope string) func() {
	l.mu.Lock()
	l.counts[scope]++
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.counts[scope] <= 1 {
				delete(l.counts, scope)
				return
			}
			l.counts[scope]--
		})
	}
}

func (l *loadingSet) active(scope string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.counts[scope] > 0
}

func (l *loadingSet) any() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.counts) > 0
}

func idPath(prefix string, id int64, suffix string) string {
	return prefix + strconv.FormatInt(id, 10) + "/" + suffix
}

func namePath(prefix, name, suffix string) string {
	return prefix + url.PathEscape(name) + "/" + suffix
}
