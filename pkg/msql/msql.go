// Package msql fetches the "modified SQL" preview for a record: a GET against
// the URL a schema node generates, carrying the full model state as query
// parameters, answered with {"data": "<sql>"}.
package msql

import (
	"context"
	"errors"
	"fmt"
)

// ErrEmptyURL is returned when a request carries no URL.
var ErrEmptyURL = errors.New("msql: url is required")

// Request is one preview fetch.
type Request struct {
	URL     string
	Payload map[string]any
}

// Response carries the SQL text.
type Response struct {
	Data string `json:"data"`
}

// Fetcher fetches previews. Implementations must be safe to call off the
// event loop.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) (Response, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, req Request) (Response, error)

// Fetch implements Fetcher.
func (fn FetcherFunc) Fetch(ctx context.Context, req Request) (Response, error) {
	return fn(ctx, req)
}

// StatusError reports a non-2xx response.
type StatusError struct {
	URL  string
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("msql: GET %s: status %d", e.URL, e.Code)
	}
	return fmt.Sprintf("msql: GET %s: status %d: %s", e.URL, e.Code, e.Body)
}
