package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	appLog "classcal/internal/log"
)

const maxResponseBytes = 4 << 20

// Session identifies the signed-in user. It is passed to the client
// explicitly; nothing reads tokens from ambient storage.
type Session struct {
	Token string
}

// SignedIn reports whether a bearer token is present.
func (s Session) SignedIn() bool {
	return strings.TrimSpace(s.Token) != ""
}

// Observer receives one callback per API call.
type Observer interface {
	ObserveAPICall(operation string, err error, d time.Duration)
}

// Client talks to the platform REST API rooted at /api/v1.
type Client struct {
	baseURL  string
	http     *http.Client
	session  Session
	loc      *time.Location
	observer Observer
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithLocation sets the timezone for zone-less timestamps.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.loc = loc }
}

// WithObserver records call outcomes, typically into metrics.
func WithObserver(o Observer) Option {
	return func(c *Client) { c.observer = o }
}

// New returns a client for baseURL (for example
// "http://localhost:4000/api/v1").
func New(baseURL string, session Session, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
		session: session,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	return c
}

// Session returns the session the client was built with.
func (c *Client) Session() Session {
	return c.session
}

// call describes one request.
type call struct {
	op     string
	method string
	path   string
	body   any
	// requireAuth fails fast with ErrUnauthorized when no token is set.
	requireAuth bool
}

// do performs the call and decodes a JSON response into out (if non-nil).
func (c *Client) do(ctx context.Context, cl call, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveAPICall(cl.op, err, time.Since(start))
		}
	}()

	if cl.requireAuth && !c.session.SignedIn() {
		return fmt.Errorf("%s: %w: no token found", cl.op, ErrUnauthorized)
	}

	var body io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", cl.op, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, c.baseURL+cl.path, body)
	if err != nil {
		return fmt.Errorf("%s: %w", cl.op, err)
	}
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.session.SignedIn() {
		req.Header.Set("Authorization", "Bearer "+c.session.Token)
	}
	reqID := uuid.NewString()
	req.Header.Set("X-Request-ID", reqID)

	appLog.Debug("api request", "op", cl.op, "method", cl.method, "path", cl.path, "request_id", reqID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", cl.op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: read response: %w", cl.op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{
			Operation:  cl.op,
			StatusCode: resp.StatusCode,
			Message:    serverMessage(data),
		}
		appLog.Error("api call failed", apiErr, "op", cl.op, "status", resp.StatusCode, "request_id", reqID)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("%s: %w", cl.op, ErrEmptyResponse)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s: decode response: %w", cl.op, err)
	}
	return nil
}

// serverMessage extracts a human-readable message from an error body.
func serverMessage(data []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	msg := strings.TrimSpace(string(data))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	return msg
}

// flexID accepts JSON strings and numbers.
type flexID string

func (f *flexID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || string(b) == "null" {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("id must be a string or number")
	}
	*f = flexID(n.String())
	return nil
}

// pickID prefers id over _id.
func pickID(ids ...flexID) string {
	for _, id := range ids {
		if id != "" {
			return string(id)
		}
	}
	return ""
}
