package logging

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
)

func TestBeginCallAnnotatesLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx, call := BeginCall(WithLogger(context.Background(), base), "GET", "/posts/")
	if call.ID() == "" || CallIDFromContext(ctx) != call.ID() {
		t.Fatalf("expected call id on context got %q and %q", call.ID(), CallIDFromContext(ctx))
	}
	call.Attempt()
	if n := call.Attempt(); n != 2 {
		t.Fatalf("expected attempt 2 got %d", n)
	}
	call.End(nil)

	out := buf.String()
	for _, want := range []string{"api call completed", "call_id=" + call.ID(), "path=/posts/", "attempts=2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestNestedCallKeepsID(t *testing.T) {
	ctx, outer := BeginCall(context.Background(), "POST", "/token/refresh/")
	_, inner := BeginCall(ctx, "POST", "/token/refresh/")
	if inner.ID() != outer.ID() {
		t.Fatalf("expected nested call to reuse %q got %q", outer.ID(), inner.ID())
	}
}

func TestEndSkipsCancellation(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	_, call := BeginCall(WithLogger(context.Background(), base), "GET", "/friends/")

	call.End(fmt.Errorf("fetch friends: %w", context.Canceled))
	if buf.Len() != 0 {
		t.Fatalf("expected no log for cancellation got %q", buf.String())
	}

	call.End(errors.New("boom"))
	if !strings.Contains(buf.String(), "api call failed") {
		t.Fatalf("expected failure log got %q", buf.String())
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if FromContext(context.Background()) != slog.Default() {
		t.Fatalf("expected default logger")
	}
	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithFallback(WithLogger(context.Background(), custom), slog.Default())
	if FromContext(ctx) != custom {
		t.Fatalf("expected fallback to keep the existing logger")
	}
}
