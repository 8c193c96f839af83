package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	if m.CacheLookups == nil || m.RequestsTotal == nil || m.RequestDuration == nil {
		t.Fatal("expected request and cache metrics to be initialized")
	}
	if m.RefreshesTotal == nil || m.RevalidationsTotal == nil || m.RevalidationQueue == nil {
		t.Fatal("expected refresh and revalidation metrics to be initialized")
	}
}

func TestMetricsRecording(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.CacheLookup("posts", "hit")
	m.CacheLookup("posts", "hit")
	m.CacheLookup("posts", "miss")
	if got := testutil.ToFloat64(m.CacheLookups.WithLabelValues("posts", "hit")); got != 2 {
		t.Fatalf("expected 2 hits got %v", got)
	}

	m.ObserveRequest("GET", 200, 20*time.Millisecond)
	m.ObserveRequest("GET", 0, time.Second)
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "200")); got != 1 {
		t.Fatalf("expected one 200 got %v", got)
	}
	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "network_error")); got != 1 {
		t.Fatalf("expected one network error got %v", got)
	}

	m.RefreshResult("success")
	if got := testutil.ToFloat64(m.RefreshesTotal.WithLabelValues("success")); got != 1 {
		t.Fatalf("expected one refresh got %v", got)
	}

	m.QueueDepth(3)
	m.QueueDepth(-1)
	if got := testutil.ToFloat64(m.RevalidationQueue); got != 2 {
		t.Fatalf("expected queue depth 2 got %v", got)
	}

	m.Revalidated("posts", "ok")
	if got := testutil.ToFloat64(m.RevalidationsTotal.WithLabelValues("posts", "ok")); got != 1 {
		t.Fatalf("expected one revalidation got %v", got)
	}

	expected := `
# HELP socialhub_token_refreshes_total Access token refresh attempts
# TYPE socialhub_token_refreshes_total counter
socialhub_token_refreshes_total{result="success"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "socialhub_token_refreshes_total"); err != nil {
		t.Fatalf("unexpected exposition: %v", err)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.CacheLookup("posts", "hit")
	m.ObserveRequest("GET", 200, time.Millisecond)
	m.RefreshResult("failure")
	m.Revalidated("posts", "error")
	m.QueueDepth(1)
}
