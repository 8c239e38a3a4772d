// Package api is the HTTP client for the tutoring backend.
//
// A Client is an immutable value built from a base URL and bearer
// token; when either changes, callers construct a new Client instead
// of mutating shared state.
package api

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

	"tutorcal/internal/model"
)

// Client talks to the tutoring backend REST API.
type Client struct {
	baseURL string
	token   string
	httpc   *http.Client
}

// New constructs a Client for baseURL. token may be empty for
// endpoints that do not require auth (login, health).
func New(baseURL, token string) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpc: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithToken returns a copy of the client carrying the given token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// FetchToday returns today's schedule list.
func (c *Client) FetchToday(ctx context.Context) ([]model.Schedule, error) {
	var schedules []model.Schedule
	if err := c.get(ctx, "api/dashboard/today", nil, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

// FetchByDate returns the schedule list for date ("yyyy-MM-dd").
func (c *Client) FetchByDate(ctx context.Context, date string) ([]model.Schedule, error) {
	var schedules []model.Schedule
	query := url.Values{"date": {date}}
	if err := c.get(ctx, "api/dashboard/date", query, &schedules); err != nil {
		return nil, err
	}
	return schedules, nil
}

// LoginResult is the backend's login response.
type LoginResult struct {
	Token       string `json:"token"`
	CurrentUser struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
		Name     string `json:"name"`
	} `json:"currentUser"`
}

// Login exchanges credentials for a bearer token.
func (c *Client) Login(ctx context.Context, username, password string) (LoginResult, error) {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return LoginResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"api/login", bytes.NewReader(body))
	if err != nil {
		return LoginResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	var result LoginResult
	if err := c.do(req, &result); err != nil {
		return LoginResult{}, err
	}
	return result, nil
}

// Health checks backend reachability.
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	return c.get(ctx, "health", nil, &resp)
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: %s", req.Method, req.URL.Path, resp.Status)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", req.URL.Path, err)
	}
	return nil
}
