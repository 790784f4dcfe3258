// Package workflow calls external automation endpoints (webhooks) over HTTP
// and decodes their JSON responses.
package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"mnemo/core"
	"mnemo/logging"
)

// CallOptions parameterize one workflow call. URL may be absolute or a path
// relative to the client's base URL; Endpoint is an optional extra path
// segment appended to URL.
type CallOptions struct {
	URL      string
	Endpoint string
	Method   string
	Params   map[string]string
	Body     any
	Headers  map[string]string
}

// Options configure a Client.
type Options struct {
	// BaseURL prefixes relative call URLs.
	BaseURL string
	// APIToken, when set, is sent as a bearer token on every call.
	APIToken string
	// HTTPClient is injectable for tests.
	HTTPClient *http.Client
	Logger     logging.Logger
}

// Client executes workflow calls.
type Client struct {
	opts Options
}

// NewClient constructs a workflow client.
func NewClient(optFns ...func(o *Options)) *Client {
	opts := Options{
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		Logger:     logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{opts: opts}
}

// Call executes one workflow request and returns the decoded JSON body. A
// non-2xx response yields a core.RemoteCallError.
func (c *Client) Call(ctx context.Context, call CallOptions) (any, error) {
	method := strings.ToUpper(call.Method)
	if method == "" {
		method = http.MethodGet
	}

	endpoint, err := c.buildURL(call)
	if err != nil {
		return nil, &core.RemoteCallError{Endpoint: call.URL, Err: err}
	}

	var body io.Reader
	if call.Body != nil {
		encoded, err := json.Marshal(call.Body)
		if err != nil {
			return nil, &core.RemoteCallError{Endpoint: endpoint, Err: fmt.Errorf("encode body: %w", err)}
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, &core.RemoteCallError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.opts.APIToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.opts.APIToken)
	}
	for key, value := range call.Headers {
		req.Header.Set(key, value)
	}

	c.opts.Logger.Debug("workflow call", "method", method, "url", endpoint)
	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, &core.RemoteCallError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &core.RemoteCallError{Endpoint: endpoint, Status: resp.StatusCode}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &core.RemoteCallError{Endpoint: endpoint, Err: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		// Endpoints occasionally answer with plain text; hand it back as-is.
		return string(raw), nil
	}
	return decoded, nil
}

// Get executes a GET with query-string parameters. Satisfies the invoker
// contract of the action selector.
func (c *Client) Get(ctx context.Context, callURL string, params map[string]string) (any, error) {
	return c.Call(ctx, CallOptions{URL: callURL, Method: http.MethodGet, Params: params})
}

func (c *Client) buildURL(call CallOptions) (string, error) {
	endpoint := call.URL
	if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
		if c.opts.BaseURL == "" {
			return "", fmt.Errorf("relative url %q without base url", endpoint)
		}
		endpoint = strings.TrimSuffix(c.opts.BaseURL, "/") + "/" + strings.TrimPrefix(endpoint, "/")
	}
	if call.Endpoint != "" {
		endpoint = strings.TrimSuffix(endpoint, "/") + "/" + strings.TrimPrefix(call.Endpoint, "/")
	}

	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", err
	}
	if len(call.Params) > 0 {
		query := parsed.Query()
		for key, value := range call.Params {
			query.Set(key, value)
		}
		parsed.RawQuery = query.Encode()
	}
	return parsed.String(), nil
}
