package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/five82/cquery/internal/config"
	"github.com/five82/cquery/internal/prefs"
	"github.com/five82/cquery/internal/state"
	"github.com/five82/cquery/internal/ui"
	"github.com/five82/cquery/query"
)

// Options configure the watch command.
type Options struct {
	ManifestPath string
	ThemeName    string // empty uses the saved preference, then the manifest theme
	PrefsPath    string // empty uses prefs.DefaultPath
	Plain        bool   // print one line per notification instead of the dashboard
	MetricsAddr  string // empty disables the metrics endpoint
	Out          io.Writer

	// Engine and Clock replace the HTTP engine and system clock. Tests only.
	Engine query.Engine
	Clock  query.Clock
}

// Run loads the manifest, prepares every query and watches them until the
// context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	manifest, err := config.Load(opts.ManifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}
	if len(manifest.Queries) == 0 {
		glog.Warningf("manifest %s lists no queries", manifest.Path)
	}

	reg := newRegistry()
	cache := newCache(manifest, reg, opts.Engine, opts.Clock, true)
	defer cache.ClearAll()

	if opts.MetricsAddr != "" {
		srv, err := NewMetricsServer(opts.MetricsAddr, reg)
		if err != nil {
			return fmt.Errorf("start metrics server: %w", err)
		}
		srv.StartAsync(ctx)
		glog.Infof("serving metrics on http://%s/metrics", srv.Addr())
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}

	if opts.Plain {
		printer := &linePrinter{out: out, now: time.Now}
		if err := subscribeAll(cache, manifest, printer.subscriber); err != nil {
			return err
		}
		<-ctx.Done()
		return nil
	}

	store := &state.Store{}
	for _, q := range manifest.Queries {
		store.Track(q.Key, q.URL)
	}
	if err := subscribeAll(cache, manifest, store.Subscriber); err != nil {
		return err
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}
	saved := prefs.Load(prefsPath)
	return ui.Run(ctx, ui.Options{
		Store:     store,
		Queries:   cache,
		ThemeName: themeName(opts.ThemeName, saved, manifest),
		PrefsPath: prefsPath,
		SelectKey: saved.Selected,
	})
}

// themeName picks the dashboard theme: the flag, then the saved
// preference, then the manifest.
func themeName(flag string, saved prefs.Prefs, m config.Manifest) string {
	if flag != "" {
		return flag
	}
	if saved.Theme != "" {
		return saved.Theme
	}
	return m.Theme
}

// GetOptions configure the get command.
type GetOptions struct {
	ManifestPath string
	Key          string
	Timeout      time.Duration // zero uses ten seconds
	Out          io.Writer

	Engine query.Engine
}

// Get fetches one prepared query once and prints its data as indented JSON.
func Get(ctx context.Context, opts GetOptions) error {
	manifest, err := config.Load(opts.ManifestPath)
	if err != nil {
		return fmt.Errorf("load manifest: %w", err)
	}

	q, ok := manifest.Find(opts.Key)
	if !ok {
		known := make([]string, 0, len(manifest.Queries))
		for _, mq := range manifest.Queries {
			known = append(known, mq.Key)
		}
		slices.Sort(known)
		return &query.UnknownQueryError{Key: opts.Key, Known: known}
	}
	glog.V(1).Infof("fetching %s from %s", q.Key, q.URL)

	// Only the requested query is registered.
	manifest.Queries = []config.Query{q}
	cache := newCache(manifest, prometheus.NewRegistry(), opts.Engine, nil, false)
	defer cache.ClearAll()

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan query.Snapshot, 1)
	_, err = cache.Subscribe(opts.Key, func(snap query.Snapshot, stop *query.StopHandle) {
		if snap.Loading {
			return
		}
		stop.Stop()
		done <- snap
	})
	if err != nil {
		return err
	}

	var snap query.Snapshot
	select {
	case snap = <-done:
	case <-ctx.Done():
		return fmt.Errorf("wait for %s: %w", opts.Key, ctx.Err())
	}
	if snap.Err != nil {
		return snap.Err
	}

	out := opts.Out
	if out == nil {
		out = os.Stdout
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap.Data); err != nil {
		return fmt.Errorf("encode %s: %w", opts.Key, err)
	}
	return nil
}

// newCache registers every manifest query. Polling is left off for one-shot
// commands.
func newCache(m config.Manifest, reg prometheus.Registerer, engine query.Engine, clock query.Clock, poll bool) *query.Cache {
	cache := query.New(query.Options{
		Engine:  engine,
		Clock:   clock,
		Metrics: query.NewMetrics(reg, metricsNamespace),
	})

	defaultPoll := m.Poll
	if !poll {
		defaultPoll = 0
	}
	for _, q := range m.Queries {
		if !poll {
			q.Interval = new(time.Duration)
		}
		cache.Register(q.Key, q.Source(), q.Options(defaultPoll)...)
	}
	return cache
}

func subscribeAll(cache *query.Cache, m config.Manifest, subscriber func(key string) query.Callback) error {
	var errs []error
	for _, q := range m.Queries {
		if _, err := cache.Subscribe(q.Key, subscriber(q.Key)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
