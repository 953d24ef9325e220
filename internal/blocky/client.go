package blocky

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// API paths relative to the configured base URL.
const (
	StatusPath   = "blocking/status"
	EnablePath   = "blocking/enable"
	DisablePath  = "blocking/disable"
	QueryPath    = "query"
	RefreshPath  = "lists/refresh"
	noErrorRCode = "NOERROR"
	blockedType  = "BLOCKED"
)

// ErrUpstreamUnavailable matches every failed call to the blocky API.
var ErrUpstreamUnavailable = errors.New("blocky API unavailable")

// UpstreamError describes one failed call. StatusCode is zero when no
// response was received.
type UpstreamError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("blocky %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("blocky %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("blocky %s: status %d", e.Op, e.StatusCode)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstreamUnavailable }

// BlockingStatus is the body of GET blocking/status.
type BlockingStatus struct {
	Enabled bool `json:"enabled"`
	// AutoEnableInSec is set while blocking is temporarily disabled.
	AutoEnableInSec uint `json:"autoEnableInSec"`
}

// State is a blocking toggle target.
type State string

const (
	Enable  State = "enable"
	Disable State = "disable"
)

// ParseState accepts exactly "enable" or "disable".
func ParseState(s string) (State, bool) {
	switch State(s) {
	case Enable, Disable:
		return State(s), true
	}
	return "", false
}

// QueryOutcome classifies a resolved query.
type QueryOutcome int

const (
	QueryError QueryOutcome = iota
	Blocked
	NotBlocked
)

func (o QueryOutcome) String() string {
	switch o {
	case Blocked:
		return "blocked"
	case NotBlocked:
		return "not_blocked"
	}
	return "error"
}

type queryRequest struct {
	Query string `json:"query"`
	Type  string `json:"type"`
}

type queryResponse struct {
	Reason       string `json:"reason"`
	Response     string `json:"response"`
	ResponseType string `json:"responseType"`
	ReturnCode   string `json:"returnCode"`
}

// Observer receives the latency and outcome of every upstream call.
type Observer interface {
	ObserveUpstream(op, outcome string, d time.Duration)
}

// Client talks to the blocky HTTP API. Calls are never retried.
type Client struct {
	BaseURL  string
	HTTP     *http.Client
	Observer Observer
}

// NewClient expects baseURL to end in "/".
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// Status fetches the current blocking state.
func (c *Client) Status(ctx context.Context) (BlockingStatus, error) {
	var status BlockingStatus
	err := c.do(ctx, "status", http.MethodGet, StatusPath, nil, &status)
	return status, err
}

// Query resolves domain as an A record and reports whether blocky blocks it.
func (c *Client) Query(ctx context.Context, domain string) (QueryOutcome, error) {
	var resp queryResponse
	if err := c.do(ctx, "query", http.MethodPost, QueryPath, queryRequest{Query: domain, Type: "A"}, &resp); err != nil {
		return QueryError, err
	}
	if resp.ReturnCode != noErrorRCode {
		return QueryError, &UpstreamError{Op: "query", Err: fmt.Errorf("return code %q", resp.ReturnCode)}
	}
	if resp.ResponseType == blockedType {
		return Blocked, nil
	}
	return NotBlocked, nil
}

// SetBlocking enables or disables blocking.
func (c *Client) SetBlocking(ctx context.Context, state State) error {
	path := EnablePath
	if state == Disable {
		path = DisablePath
	}
	return c.do(ctx, "toggle", http.MethodGet, path, nil, nil)
}

// RefreshLists asks blocky to reload its allow and deny lists.
func (c *Client) RefreshLists(ctx context.Context) error {
	return c.do(ctx, "refresh", http.MethodPost, RefreshPath, nil, nil)
}

// do sends one request. A non-nil out is decoded from the JSON body.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.Observer != nil {
			outcome := "ok"
			if err != nil {
				outcome = "error"
			}
			c.Observer.ObserveUpstream(op, outcome, time.Since(start))
		}
	}()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &UpstreamError{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return &UpstreamError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return &UpstreamError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &UpstreamError{Op: op, StatusCode: resp.StatusCode}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &UpstreamError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
