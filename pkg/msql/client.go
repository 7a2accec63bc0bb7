package msql

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

const maxErrorBody = 512

// Option configures a Client.
type Option func(*Client)

// WithBaseURL resolves relative request URLs against base.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.base = strings.TrimSpace(base)
	}
}

// WithHTTPClient sets the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds each fetch. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the clock used for the cache-busting parameter.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// Client is the HTTP Fetcher. Requests are one-shot: no retries.
type Client struct {
	base    string
	http    *http.Client
	timeout time.Duration
	logger  *slog.Logger
	now     func() time.Time
}

// NewClient constructs a Client.
func NewClient(options ...Option) *Client {
	c := &Client{
		http:    http.DefaultClient,
		timeout: 30 * time.Second,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Fetch implements Fetcher.
func (c *Client) Fetch(ctx context.Context, req Request) (Response, error) {
	target, err := c.resolve(req)
	if err != nil {
		return Response{}, err
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Response{}, fmt.Errorf("msql: build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")

	started := c.now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("msql: GET %s: %w", req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return Response{}, &StatusError{URL: req.URL, Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, fmt.Errorf("msql: decode response from %s: %w", req.URL, err)
	}
	c.logger.Debug("msql: fetched", "url", req.URL, "elapsed", c.now().Sub(started))
	return out, nil
}

func (c *Client) resolve(req Request) (string, error) {
	raw := strings.TrimSpace(req.URL)
	if raw == "" {
		return "", ErrEmptyURL
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("msql: parse url %q: %w", raw, err)
	}
	if c.base != "" {
		base, err := url.Parse(c.base)
		if err != nil {
			return "", fmt.Errorf("msql: parse base url %q: %w", c.base, err)
		}
		ref = base.ResolveReference(ref)
	}

	query := ref.Query()
	for key, value := range EncodePayload(req.Payload) {
		query[key] = value
	}
	query.Set("_", strconv.FormatInt(c.now().UnixMilli(), 10))
	ref.RawQuery = query.Encode()
	return ref.String(), nil
}

// EncodePayload flattens the model state into query values. Scalars are
// written as text; objects and lists as JSON.
func EncodePayload(payload map[string]any) url.Values {
	out := make(url.Values, len(payload))
	keys := make([]string, 0, len(payload))
	for key := range payload {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		switch v := payload[key].(type) {
		case nil:
			out.Set(key, "")
		case string:
			out.Set(key, v)
		case bool:
			out.Set(key, strconv.FormatBool(v))
		case int:
			out.Set(key, strconv.Itoa(v))
		case int64:
			out.Set(key, strconv.FormatInt(v, 10))
		case float64:
			out.Set(key, strconv.FormatFloat(v, 'f', -1, 64))
		default:
			encoded, err := json.Marshal(v)
			if err != nil {
				out.Set(key, fmt.Sprint(v))
				continue
			}
			out.Set(key, string(encoded))
		}
	}
	return out
}
