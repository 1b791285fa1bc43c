package query_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/five82/cquery/query"
	"github.com/five82/cquery/query/querytest"
)

func TestMetrics_CountFetchesAndResolutions(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := query.NewMetrics(reg, "cquery")
	clock := querytest.NewClock(time.Unix(0, 0))
	engine := &querytest.Engine{}
	c := query.New(query.Options{Engine: engine, Clock: clock, Logger: &logRecorder{}, Metrics: metrics})
	t.Cleanup(c.Reset)

	c.Register("users", src("https://yolo"), query.WithInterval(5*time.Second))
	stop, err := c.Subscribe("users", func(query.Snapshot, *query.StopHandle) {})
	if err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	if got := testutil.ToFloat64(metrics.Subscribers.WithLabelValues("users")); got != 1 {
		t.Fatalf("subscribers = %v, want 1", got)
	}

	clock.Advance(5 * time.Second)
	if err := c.Invalidate("users"); err != nil {
		t.Fatalf("Invalidate returned error: %v", err)
	}
	reqs := engine.Requests()
	if len(reqs) != 2 {
		t.Fatalf("requests = %d, want 2", len(reqs))
	}
	reqs[0].Resolve("stale", nil, nil)
	reqs[1].Resolve(nil, errors.New("boom"), nil)
	stop.Stop()

	checks := []struct {
		name      string
		collector prometheus.Collector
		want      float64
	}{
		{"fetches", metrics.FetchesTotal.WithLabelValues("users"), 2},
		{"suppressed", metrics.SuppressedTotal.WithLabelValues("users"), 1},
		{"errors", metrics.ResolutionsTotal.WithLabelValues("users", "error"), 1},
		{"successes", metrics.ResolutionsTotal.WithLabelValues("users", "success"), 0},
		{"ticks fired", metrics.PollTicksTotal.WithLabelValues("users", "fired"), 1},
		{"ticks skipped", metrics.PollTicksTotal.WithLabelValues("users", "skipped"), 1},
		{"subscribers", metrics.Subscribers.WithLabelValues("users"), 0},
	}
	for _, tt := range checks {
		if got := testutil.ToFloat64(tt.collector); got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMetrics_NilIsSafe(t *testing.T) {
	c := query.New(query.Options{Engine: querytest.Static(hello), Logger: &logRecorder{}})
	t.Cleanup(c.Reset)
	c.Register("users", src("https://yolo"))
	if _, err := c.Subscribe("users", func(query.Snapshot, *query.StopHandle) {}); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
}
