// Package devclient drives the developer endpoints of a running engine
// over HTTP with the admin bearer token.
package devclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// ErrRefused is returned when the engine refuses the request (409), for
// instance scaling with no valid multiplier.
var ErrRefused = errors.New("refused by engine")

// Status mirrors GET /api/v1/status.
type Status struct {
	Name           string       `json:"name"`
	Active         bool         `json:"active"`
	Busy           bool         `json:"busy"`
	FastTicks      bool         `json:"fast_ticks"`
	LastHealthTick time.Time    `json:"last_health_tick"`
	Tasks          []TaskStatus `json:"tasks"`
	Dev            bool         `json:"dev"`
}

// TaskStatus mirrors one scheduler task in the status response.
type TaskStatus struct {
	Name    string    `json:"name"`
	Running bool      `json:"running"`
	LastRun time.Time `json:"last_run"`
}

// Grant is a bundle of resources credited in one call.
type Grant struct {
	Money      int    `json:"money,omitempty"`
	Experience int    `json:"experience,omitempty"`
	Energy     int    `json:"energy,omitempty"`
	Health     int    `json:"health,omitempty"`
	HeartRate  int    `json:"heart_rate,omitempty"`
	Heat       int    `json:"heat,omitempty"`
	Item       string `json:"item,omitempty"`
	Quantity   int    `json:"quantity,omitempty"`
}

// Client talks to one engine instance.
type Client struct {
	BaseURL    string
	AdminKey   string
	HTTPClient *http.Client
}

// New creates a Client targeting baseURL with admin auth.
func New(baseURL, adminKey string) *Client {
	return &Client{
		BaseURL:  baseURL,
		AdminKey: adminKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Status fetches the engine status. No auth is needed.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var st Status
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// SetFastTicks toggles fast ticks and returns the resulting flag.
func (c *Client) SetFastTicks(ctx context.Context, enabled bool) (bool, error) {
	var out struct {
		FastTicks bool `json:"fast_ticks"`
	}
	err := c.do(ctx, http.MethodPost, "/api/v1/dev/fast-ticks", map[string]bool{"enabled": enabled}, &out)
	return out.FastTicks, err
}

// Reset deletes the character and its save.
func (c *Client) Reset(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/dev/reset", struct{}{}, nil)
}

// Scale multiplies the character's stats and resources.
func (c *Client) Scale(ctx context.Context, multiplier float64) error {
	return c.do(ctx, http.MethodPost, "/api/v1/dev/scale", map[string]float64{"multiplier": multiplier}, nil)
}

// RunTask fires one scheduler task synchronously.
func (c *Client) RunTask(ctx context.Context, task string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/dev/run-task", map[string]string{"task": task}, nil)
}

// Grant credits g to the character.
func (c *Client) Grant(ctx context.Context, g Grant) error {
	return c.do(ctx, http.MethodPost, "/api/v1/dev/grant", g, nil)
}

// Confine sends the character to "jail" or "hospital" for minutes.
func (c *Client) Confine(ctx context.Context, kind string, minutes int) error {
	body := map[string]any{"kind": kind, "minutes": minutes}
	return c.do(ctx, http.MethodPost, "/api/v1/dev/confine", body, nil)
}

// WaitReady polls the status endpoint with exponential backoff until it
// answers or ctx is done.
func (c *Client) WaitReady(ctx context.Context) error {
	backoff := 250 * time.Millisecond
	const maxBackoff = 5 * time.Second
	for {
		if _, err := c.Status(ctx); err == nil {
			return nil
		}
		slog.Debug("engine not ready, retrying", "backoff", backoff)
		select {
		case <-ctx.Done():
			return fmt.Errorf("engine not ready: %w", ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.AdminKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.AdminKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("%s: %w", path, ErrRefused)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%s failed (%d): %s", path, resp.StatusCode, bytes.TrimSpace(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
