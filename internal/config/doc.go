// Package config loads the cquery query manifest.
//
// # Overview
//
// The manifest names the queries cquery prepares at startup: their keys, the
// URLs the HTTP engine fetches, and the per-query polling and coalescing
// behaviour. Each entry becomes one query.Cache.Register call.
//
// # Manifest Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/cquery/queries.toml (default)
//  3. If the file doesn't exist, return an empty manifest with defaults
//
// Files ending in .yaml or .yml are decoded as YAML, everything else as TOML.
//
// # TOML Format
//
//	poll = 30            # seconds, default interval for every query
//	theme = "Nord"
//
//	[[query]]
//	key = "users"
//	url = "https://api.example.com/users"
//	interval = 10        # overrides poll; 0 disables, omit to inherit
//	coalesce = true
//	skip_overlapping_poll = true
//	timeout = "5s"
//
//	[query.headers]
//	Authorization = "Bearer token"
//
// # Validation
//
// Load rejects entries without a key or url, duplicate keys, urls without a
// scheme and host, negative intervals and timeouts that time.ParseDuration
// cannot read. Errors name the 1-based entry index.
package config
