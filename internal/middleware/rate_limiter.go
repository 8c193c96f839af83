package middleware

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter paces outbound calls. Wait blocks until a call to host may go
// out or ctx ends.
type RateLimiter interface {
	Wait(ctx context.Context, host string) error
}

type bucket struct {
	limiter *rate.Limiter
	used    time.Time
}

// hostLimiter keeps one token bucket per API host. Buckets idle for longer
// than idle are swept on a later call.
type hostLimiter struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	every     rate.Limit
	burst     int
	idle      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewHostRateLimiter lets through requests calls per window to each host, with
// burst calls allowed back to back. Non-positive arguments fall back to one
// call per second and a five minute idle expiry.
func NewHostRateLimiter(requests int, window time.Duration, burst int, idle time.Duration) RateLimiter {
	requests = max(requests, 1)
	burst = max(burst, 1)
	if window <= 0 {
		window = time.Second
	}
	if idle <= 0 {
		idle = 5 * time.Minute
	}
	return &hostLimiter{
		buckets: make(map[string]*bucket),
		every:   rate.Every(window / time.Duration(requests)),
		burst:   burst,
		idle:    idle,
		now:     time.Now,
	}
}

func (l *hostLimiter) Wait(ctx context.Context, host string) error {
	return l.bucket(host).Wait(ctx)
}

func (l *hostLimiter) bucket(host string) *rate.Limiter {
	host = strings.ToLower(host)
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= l.idle {
		for h, b := range l.buckets {
			if now.Sub(b.used) > l.idle {
				delete(l.buckets, h)
			}
		}
		l.lastSweep = now
	}

	b, ok := l.buckets[host]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(l.every, l.burst)}
		l.buckets[host] = b
	}
	b.used = now
	return b.limiter
}

// RateLimit holds each outbound request until the limiter admits its host. A
// nil limiter disables pacing.
func RateLimit(limiter RateLimiter) func(http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		if limiter == nil {
			return next
		}
		return RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			if err := limiter.Wait(r.Context(), r.URL.Host); err != nil {
				return nil, err
			}
			return next.RoundTrip(r)
		})
	}
}
