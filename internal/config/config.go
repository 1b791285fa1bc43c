package config

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/five82/cquery/query"
)

// Manifest lists the queries cquery prepares at startup.
type Manifest struct {
	Path    string
	Poll    time.Duration // interval for queries that do not set one
	Theme   string
	Queries []Query
}

// Query is one prepared query from the manifest.
type Query struct {
	Key                 string
	URL                 string
	Interval            *time.Duration // nil inherits Manifest.Poll, zero disables polling
	Coalesce            bool
	SkipOverlappingPoll bool
	Timeout             time.Duration
	Headers             map[string]string
}

const (
	defaultManifestPath = "~/.config/cquery/queries.toml"
	defaultTheme        = "Dracula"
)

type rawManifest struct {
	Poll    int        `toml:"poll" yaml:"poll"`
	Theme   string     `toml:"theme" yaml:"theme"`
	Queries []rawQuery `toml:"query" yaml:"query"`
}

type rawQuery struct {
	Key                 string            `toml:"key" yaml:"key"`
	URL                 string            `toml:"url" yaml:"url"`
	Interval            *int              `toml:"interval" yaml:"interval"`
	Coalesce            *bool             `toml:"coalesce" yaml:"coalesce"`
	SkipOverlappingPoll *bool             `toml:"skip_overlapping_poll" yaml:"skip_overlapping_poll"`
	Timeout             string            `toml:"timeout" yaml:"timeout"`
	Headers             map[string]string `toml:"headers" yaml:"headers"`
}

// Load reads the manifest at path, TOML unless the file ends in .yaml or .yml.
// A missing file yields an empty manifest with defaults.
func Load(path string) (Manifest, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Manifest{}, err
	}

	m := Manifest{Path: resolved, Theme: defaultTheme}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return m, nil
		}
		return Manifest{}, fmt.Errorf("open manifest: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}

	var raw rawManifest
	switch strings.ToLower(filepath.Ext(resolved)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(bytes, &raw)
	default:
		err = toml.Unmarshal(bytes, &raw)
	}
	if err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}

	if raw.Poll < 0 {
		return Manifest{}, fmt.Errorf("parse manifest: poll must not be negative")
	}
	m.Poll = time.Duration(raw.Poll) * time.Second
	if theme := strings.TrimSpace(raw.Theme); theme != "" {
		m.Theme = theme
	}

	seen := make(map[string]struct{}, len(raw.Queries))
	for i, rq := range raw.Queries {
		q, err := rq.parse()
		if err != nil {
			return Manifest{}, fmt.Errorf("query %d: %w", i+1, err)
		}
		if _, dup := seen[q.Key]; dup {
			return Manifest{}, fmt.Errorf("query %d: duplicate key %q", i+1, q.Key)
		}
		seen[q.Key] = struct{}{}
		m.Queries = append(m.Queries, q)
	}
	return m, nil
}

func (rq rawQuery) parse() (Query, error) {
	q := Query{
		Key:                 strings.TrimSpace(rq.Key),
		URL:                 strings.TrimSpace(rq.URL),
		Coalesce:            true,
		SkipOverlappingPoll: true,
		Headers:             rq.Headers,
	}
	if q.Key == "" {
		return Query{}, fmt.Errorf("key is required")
	}
	if q.URL == "" {
		return Query{}, fmt.Errorf("%s: url is required", q.Key)
	}
	u, err := url.Parse(q.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Query{}, fmt.Errorf("%s: invalid url %q", q.Key, q.URL)
	}
	if rq.Interval != nil {
		if *rq.Interval < 0 {
			return Query{}, fmt.Errorf("%s: interval must not be negative", q.Key)
		}
		d := time.Duration(*rq.Interval) * time.Second
		q.Interval = &d
	}
	if rq.Coalesce != nil {
		q.Coalesce = *rq.Coalesce
	}
	if rq.SkipOverlappingPoll != nil {
		q.SkipOverlappingPoll = *rq.SkipOverlappingPoll
	}
	if timeout := strings.TrimSpace(rq.Timeout); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return Query{}, fmt.Errorf("%s: parse timeout: %w", q.Key, err)
		}
		q.Timeout = d
	}
	return q, nil
}

// Source returns the query source for q.
func (q Query) Source() query.Source {
	return query.Source{
		URL:     q.URL,
		Options: query.RequestOptions{Header: q.Headers, Timeout: q.Timeout},
	}
}

// Options returns the query options for q. defaultPoll applies when q has no
// interval of its own.
func (q Query) Options(defaultPoll time.Duration) []query.Option {
	interval := defaultPoll
	if q.Interval != nil {
		interval = *q.Interval
	}
	opts := []query.Option{
		query.WithCoalescing(q.Coalesce),
		query.WithSkipOverlappingPoll(q.SkipOverlappingPoll),
	}
	if interval > 0 {
		opts = append(opts, query.WithInterval(interval))
	}
	return opts
}

// Find returns the query registered under key.
func (m Manifest) Find(key string) (Query, bool) {
	for _, q := range m.Queries {
		if q.Key == key {
			return q, true
		}
	}
	return Query{}, false
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultManifestPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
