package query

import "time"

// Option configures a query at Register or Replace time.
type Option func(*queryConfig)

type queryConfig struct {
	interval    time.Duration
	mock        *Mock
	coalesce    bool
	skipOverlap bool
	engine      Engine
}

func newQueryConfig(opts []Option) queryConfig {
	cfg := queryConfig{coalesce: true, skipOverlap: true}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithInterval re-fetches the query every d. Zero or negative disables
// polling.
func WithInterval(d time.Duration) Option {
	return func(c *queryConfig) {
		c.interval = d
	}
}

// WithMock answers the query with m instead of calling an engine.
func WithMock(m Mock) Option {
	return func(c *queryConfig) {
		c.mock = &m
	}
}

// WithCoalescing controls whether only the last of several overlapping
// fetches is published (the default). When disabled every resolution is
// published as it arrives, so subscribers may see superseded or out of order
// results when engine latencies vary.
func WithCoalescing(enabled bool) Option {
	return func(c *queryConfig) {
		c.coalesce = enabled
	}
}

// WithSkipOverlappingPoll controls whether a poll tick is skipped while the
// query is loading (the default).
func WithSkipOverlappingPoll(skip bool) Option {
	return func(c *queryConfig) {
		c.skipOverlap = skip
	}
}

// WithEngine uses e for this query instead of the cache default.
func WithEngine(e Engine) Option {
	return func(c *queryConfig) {
		c.engine = e
	}
}
