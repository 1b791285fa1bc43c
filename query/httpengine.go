package query

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultUserAgent = "cquery/0.1"
	requestTimeout   = 10 * time.Second
)

// Response is the metadata HTTPEngine attaches to Success and Error states.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
}

// HTTPEngine performs a GET against Source.URL and decodes the JSON body.
type HTTPEngine struct {
	client    *http.Client
	userAgent string
}

// Ensure HTTPEngine implements Engine at compile time.
var _ Engine = (*HTTPEngine)(nil)

// NewHTTPEngine builds an engine around client. A nil client gets a default
// one with a 10 second timeout.
func NewHTTPEngine(client *http.Client) *HTTPEngine {
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &HTTPEngine{client: client, userAgent: defaultUserAgent}
}

// Fetch starts the request on its own goroutine.
func (e *HTTPEngine) Fetch(req *Request) {
	go func() {
		ctx := context.Background()
		if timeout := req.Source.Options.Timeout; timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		data, resp, err := e.Get(ctx, req.Source)
		if resp == nil {
			req.Resolve(data, err, nil)
			return
		}
		req.Resolve(data, err, resp)
	}()
}

// Get performs the request synchronously. The returned Response is non-nil
// whenever the server answered, including on decode failures.
func (e *HTTPEngine) Get(ctx context.Context, src Source) (any, *Response, error) {
	target, err := url.Parse(src.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse url %q: %w", src.URL, err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", e.userAgent)
	for name, value := range src.Options.Header {
		httpReq.Header.Set(name, value)
	}

	httpResp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	resp := &Response{
		URL:        target.String(),
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header.Clone(),
	}
	if httpResp.StatusCode >= 400 {
		return nil, resp, fmt.Errorf("api %s returned status %d", target.Redacted(), httpResp.StatusCode)
	}

	var data any
	if err := json.NewDecoder(httpResp.Body).Decode(&data); err != nil {
		return nil, resp, fmt.Errorf("decode response: %w", err)
	}
	return data, resp, nil
}
