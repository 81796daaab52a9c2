package clients

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ErrNotFound is returned for upstream 404 responses.
var ErrNotFound = errors.New("upstream: not found")

// HTTPDoer defines http.Client interface subset.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// StatusError reports an unexpected upstream status.
type StatusError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream %s %s: status %d", e.Method, e.Path, e.Status)
}

// Is maps 404 to ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// BaseClient provides request helpers against one base URL.
type BaseClient struct {
	baseURL string
	client  HTTPDoer
}

// NewBaseClient builds client with base URL.
func NewBaseClient(baseURL string, client HTTPDoer) *BaseClient {
	return &BaseClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}
}

func (c *BaseClient) buildURL(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// Do executes an HTTP request and returns status and body.
func (c *BaseClient) Do(ctx context.Context, method, path string, query url.Values, body []byte) (int, []byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.buildURL(path, query), reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("upstream %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("upstream %s %s: read body: %w", method, path, err)
	}
	return resp.StatusCode, respBody, nil
}

// Expect runs Do and turns any status outside want into a *StatusError.
func (c *BaseClient) Expect(ctx context.Context, method, path string, query url.Values, body []byte, want ...int) ([]byte, error) {
	status, respBody, err := c.Do(ctx, method, path, query, body)
	if err != nil {
		return nil, err
	}
	if len(want) == 0 {
		if status >= 200 && status < 300 {
			return respBody, nil
		}
	} else {
		for _, w := range want {
			if status == w {
				return respBody, nil
			}
		}
	}
	return nil, &StatusError{Method: method, Path: path, Status: status, Body: truncate(string(respBody), 256)}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// NewDefaultHTTPClient returns *http.Client with timeout.
func NewDefaultHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}
