// Package api is the HTTP client for the ChatFun server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/chasedut/chatfun/internal/version"
	"golang.org/x/time/rate"
)

const DefaultTimeout = 30 * time.Second

// TokenSource supplies the bearer credential for each request. An empty
// token sends the request unauthenticated.
type TokenSource func() string

type Client struct {
	baseURL    string
	token      TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	self       func() string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outgoing requests per second across all slots. A
// non-positive rate disables the limiter.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithSelf supplies the signed-in user id, used to mark own messages when
// the server does not.
func WithSelf(self func() string) Option {
	return func(c *Client) { c.self = self }
}

func NewClient(baseURL string, token TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) selfID() string {
	if c.self == nil {
		return ""
	}
	return c.self()
}

func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, payload any) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, err
	}
	if params != nil {
		u.RawQuery = params.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != nil {
		if tok := c.token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		apiErr := newError(resp.StatusCode, data)
		slog.Debug("API request failed", "method", method, "path", path, "status", resp.StatusCode, "kind", apiErr.Kind)
		return nil, apiErr
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	return c.decode(c.doRequest(ctx, http.MethodGet, path, params, nil))(out)
}

func (c *Client) send(ctx context.Context, method, path string, payload, out any) error {
	return c.decode(c.doRequest(ctx, method, path, nil, payload))(out)
}

func (c *Client) decode(data []byte, err error) func(out any) error {
	return func(out any) error {
		if err != nil {
			return err
		}
		if out == nil || len(bytes.TrimSpace(data)) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
		return nil
	}
}
