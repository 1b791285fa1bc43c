package query_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/five82/cquery/query"
	"github.com/five82/cquery/query/querytest"
)

func newUsersServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/users":
			if r.Header.Get("X-Token") != "secret" {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"results":[{"name":"ada"},{"name":"linus"}]}`))
		case "/broken":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("{not-json"))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHTTPEngine_GetDecodesJSONAndSendsHeaders(t *testing.T) {
	t.Parallel()
	server := newUsersServer(t)
	engine := query.NewHTTPEngine(nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)

	data, resp, err := engine.Get(ctx, query.Source{
		URL:     server.URL + "/users",
		Options: query.RequestOptions{Header: map[string]string{"X-Token": "secret"}},
	})
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if resp == nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("response = %+v, want status 200", resp)
	}
	payload, ok := data.(map[string]any)
	if !ok {
		t.Fatalf("data = %T, want map[string]any", data)
	}
	results, ok := payload["results"].([]any)
	if !ok || len(results) != 2 {
		t.Fatalf("results = %#v, want 2 entries", payload["results"])
	}
}

func TestHTTPEngine_GetReportsStatusAndDecodeErrors(t *testing.T) {
	t.Parallel()
	server := newUsersServer(t)
	engine := query.NewHTTPEngine(nil)

	_, resp, err := engine.Get(context.Background(), query.Source{URL: server.URL + "/users"})
	if err == nil || !strings.Contains(err.Error(), "returned status 403") {
		t.Fatalf("Get error = %v, want status 403 error", err)
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("response = %+v, want status 403", resp)
	}

	_, resp, err = engine.Get(context.Background(), query.Source{URL: server.URL + "/broken"})
	if err == nil || !strings.Contains(err.Error(), "decode response") {
		t.Fatalf("Get error = %v, want decode response error", err)
	}
	if resp == nil {
		t.Fatal("response = nil, want metadata on decode failure")
	}

	_, resp, err = engine.Get(context.Background(), query.Source{URL: "http://127.0.0.1:1/unreachable"})
	if err == nil || !strings.Contains(err.Error(), "execute request") {
		t.Fatalf("Get error = %v, want execute request error", err)
	}
	if resp != nil {
		t.Fatalf("response = %+v, want nil when the server never answered", resp)
	}
}

func TestHTTPEngine_ResolvesThroughCache(t *testing.T) {
	t.Parallel()
	server := newUsersServer(t)
	c := query.New(query.Options{Logger: &logRecorder{}})
	t.Cleanup(c.Reset)

	c.Register("users", query.Source{
		URL: server.URL + "/users",
		Options: query.RequestOptions{
			Header:  map[string]string{"X-Token": "secret"},
			Timeout: 2 * time.Second,
		},
	})
	c.Register("missing", query.Source{URL: server.URL + "/missing"})

	var users, missing querytest.Recorder
	if _, err := c.Subscribe("users", users.Callback); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}
	if _, err := c.Subscribe("missing", missing.Callback); err != nil {
		t.Fatalf("Subscribe returned error: %v", err)
	}

	waitFor(t, &users, 2)
	waitFor(t, &missing, 2)

	last, _ := users.Last()
	if last.Loading || last.Err != nil || last.Data == nil {
		t.Fatalf("users = %+v, want loaded data", last)
	}
	resp, ok := last.Response.(*query.Response)
	if !ok || resp.StatusCode != http.StatusOK {
		t.Fatalf("users response = %#v, want *query.Response with 200", last.Response)
	}

	last, _ = missing.Last()
	if last.Err == nil || last.Data != nil {
		t.Fatalf("missing = %+v, want an error without data", last)
	}
}

func waitFor(t *testing.T, rec *querytest.Recorder, n int) {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for rec.Len() < n {
		select {
		case <-rec.Notified():
		case <-deadline:
			t.Fatalf("notifications = %d, want %d", rec.Len(), n)
		}
	}
}
