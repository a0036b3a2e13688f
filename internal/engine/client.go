// Package engine is the HTTP client for a Tractor engine: spooling job
// scripts, logging in, and querying job state.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/vk/farmspool/internal/ctxlog"
)

// Client talks to one Tractor engine.
type Client struct {
	baseURL string
	httpc   *http.Client

	sessionStore *SessionStore
	tsid         string
	user         string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// WithSessionStore sets where login sessions persist between runs.
func WithSessionStore(store *SessionStore) Option {
	return func(c *Client) { c.sessionStore = store }
}

// New creates a client for the engine at baseURL, e.g.
// "http://tractor-engine:80".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.sessionStore != nil {
		if session, err := c.sessionStore.Load(); err == nil && session.EngineURL == c.baseURL {
			c.tsid = session.TSID
			c.user = session.User
		}
	}
	return c
}

// BaseURL returns the engine base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// JobURL returns the monitor URL for a job id.
func (c *Client) JobURL(jid int) string {
	return fmt.Sprintf("%s/tv/#jid=%d", c.baseURL, jid)
}

// SpoolOptions qualify a spooled job.
type SpoolOptions struct {
	Owner string
	Cwd   string
	// Hostname recorded as the spooling host; defaults to "farmspool".
	Hostname string
}

// spoolResponse is the engine's reply to a spool request.
type spoolResponse struct {
	JID int    `json:"jid"`
	Msg string `json:"msg"`
}

var jidPattern = regexp.MustCompile(`jid[^0-9]*([0-9]+)`)

// Spool submits an Alfred job script and returns the new job id.
func (c *Client) Spool(ctx context.Context, script []byte, opts SpoolOptions) (int, error) {
	logger := ctxlog.FromContext(ctx)

	q := url.Values{}
	if opts.Owner != "" {
		q.Set("owner", opts.Owner)
	}
	if opts.Cwd != "" {
		q.Set("cwd", opts.Cwd)
	}
	hostname := opts.Hostname
	if hostname == "" {
		hostname = "farmspool"
	}
	q.Set("spoolhost", hostname)
	q.Set("spoolfile", "farmspool.alf")

	endpoint := c.baseURL + "/Tractor/spool?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(script))
	if err != nil {
		return 0, fmt.Errorf("engine: building spool request: %w", err)
	}
	req.Header.Set("Content-Type", "application/tractor-spool")

	body, err := c.do(req)
	if err != nil {
		return 0, err
	}

	jid, err := parseJID(body)
	if err != nil {
		return 0, err
	}
	logger.Info("Job spooled.", "jid", jid, "owner", opts.Owner)
	return jid, nil
}

// parseJID extracts the job id from a spool response: JSON when the engine
// sends it, otherwise the first jid-looking number in the text.
func parseJID(body []byte) (int, error) {
	var resp spoolResponse
	if err := json.Unmarshal(body, &resp); err == nil && resp.JID > 0 {
		return resp.JID, nil
	}
	if m := jidPattern.FindSubmatch(bytes.ToLower(body)); m != nil {
		return strconv.Atoi(string(m[1]))
	}
	return 0, fmt.Errorf("engine: no job id in spool response %q", truncate(body))
}

// do sends the request and returns the response body, treating any non-2xx
// status as an error carrying the trimmed body.
func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("engine: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("engine: reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("engine: %s %s: status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, truncate(body))
	}
	return body, nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		return s[:200] + "..."
	}
	return s
}
