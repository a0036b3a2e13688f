package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/vk/farmspool/internal/ctxlog"
)

// loginResponse is the monitor's reply to a login query.
type loginResponse struct {
	TSID string `json:"tsid"`
	User string `json:"user"`
	Err  string `json:"err"`
}

// Login authenticates against the engine monitor and keeps the returned
// session id for subsequent queries. The session persists through the
// configured session store, if any.
func (c *Client) Login(ctx context.Context, user, password string) error {
	logger := ctxlog.FromContext(ctx)

	q := url.Values{}
	q.Set("q", "login")
	q.Set("user", user)
	if password != "" {
		q.Set("pass", password)
	}

	body, err := c.monitor(ctx, q)
	if err != nil {
		return err
	}

	var resp loginResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("engine: decoding login response: %w", err)
	}
	if resp.Err != "" {
		return fmt.Errorf("engine: login rejected: %s", resp.Err)
	}
	if resp.TSID == "" {
		return fmt.Errorf("engine: login response carries no session id")
	}

	c.tsid = resp.TSID
	c.user = user
	if c.sessionStore != nil {
		if err := c.sessionStore.Save(Session{EngineURL: c.baseURL, User: user, TSID: resp.TSID}); err != nil {
			logger.Warn("Could not persist engine session.", "error", err)
		}
	}
	logger.Info("Logged in to engine.", "user", user)
	return nil
}

// LoggedIn reports whether the client holds a session id.
func (c *Client) LoggedIn() bool {
	return c.tsid != ""
}

// JobStatus is the subset of job state the submitter reports on.
type JobStatus struct {
	JID      int            `json:"jid"`
	Title    string         `json:"title"`
	Owner    string         `json:"owner"`
	Priority float64        `json:"priority"`
	Paused   bool           `json:"paused"`
	States   map[string]int `json:"states"`
}

// Job queries the engine for the state of one job.
func (c *Client) Job(ctx context.Context, jid int) (*JobStatus, error) {
	q := url.Values{}
	q.Set("q", "jtree")
	q.Set("jid", fmt.Sprintf("%d", jid))
	if c.tsid != "" {
		q.Set("tsid", c.tsid)
	}

	body, err := c.monitor(ctx, q)
	if err != nil {
		return nil, err
	}

	var status JobStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("engine: decoding job %d status: %w", jid, err)
	}
	if status.JID == 0 {
		status.JID = jid
	}
	return &status, nil
}

// monitor issues a GET against the engine monitor endpoint.
func (c *Client) monitor(ctx context.Context, q url.Values) ([]byte, error) {
	endpoint := c.baseURL + "/Tractor/monitor?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("engine: building monitor request: %w", err)
	}
	return c.do(req)
}
