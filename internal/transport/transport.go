package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

// maxBodyBytes caps how much of a reply is read into memory.
const maxBodyBytes = 8 << 20

// Request is a single outbound HTTP call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is the raw reply: status code plus the (possibly truncated) body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns a *StatusError for non-2xx replies and nil otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	return &StatusError{StatusCode: r.StatusCode, Body: string(r.Body)}
}

// StatusError is a reply that arrived but was not 2xx.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Doer issues one request and returns its reply. Implementations return an
// error only when no reply was received.
type Doer interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

type Client struct {
	client *http.Client
}

// New returns a Client using hc, or a fresh http.Client when hc is nil.
// Timeouts come from the caller's context.
func New(hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{client: hc}
}

func (c *Client) Do(ctx context.Context, req *Request) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bytes.NewReader(req.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", redact(err))
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", redact(err))
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close response body", "error", err)
		}
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// redact strips the query string from URLs embedded in err, since some
// providers carry the API key there.
func redact(err error) error {
	var uerr *url.Error
	if !errors.As(err, &uerr) {
		return err
	}
	if u, perr := url.Parse(uerr.URL); perr == nil && u.RawQuery != "" {
		u.RawQuery = "REDACTED"
		uerr.URL = u.String()
	}
	return err
}
