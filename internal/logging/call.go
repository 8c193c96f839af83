package logging

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Call tracks one logical API call. A call spans every attempt made for it,
// including the replay after a token renewal, and keeps one id throughout.
type Call struct {
	id       string
	logger   *slog.Logger
	start    time.Time
	attempts atomic.Int32
}

// BeginCall starts a call for method and path. The returned context carries
// the call id and a logger annotated with it.
func BeginCall(ctx context.Context, method, path string) (context.Context, *Call) {
	if ctx == nil {
		ctx = context.Background()
	}
	id := CallIDFromContext(ctx)
	if id == "" {
		id = uuid.NewString()
		ctx = context.WithValue(ctx, callIDKey, id)
	}

	logger := FromContext(ctx).With(
		slog.String("call_id", id),
		slog.String("method", method),
		slog.String("path", path),
	)
	ctx = WithLogger(ctx, logger)

	return ctx, &Call{id: id, logger: logger, start: time.Now()}
}

// ID returns the call id.
func (c *Call) ID() string { return c.id }

// Attempt records one more round trip and returns the attempt number.
func (c *Call) Attempt() int { return int(c.attempts.Add(1)) }

// End logs the outcome of the call. Cancellation by the caller is not logged.
func (c *Call) End(err error) {
	if c == nil {
		return
	}
	attrs := []any{
		slog.Int("attempts", int(c.attempts.Load())),
		slog.Duration("duration", time.Since(c.start)),
	}
	switch {
	case err == nil:
		c.logger.Debug("api call completed", attrs...)
	case errors.Is(err, context.Canceled):
	default:
		c.logger.Debug("api call failed", append(attrs, slog.Any("error", err))...)
	}
}
