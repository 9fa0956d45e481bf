package client

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cuemby/tracething/pkg/api"
	"github.com/cuemby/tracething/pkg/events"
	"github.com/cuemby/tracething/pkg/metrics"
	"github.com/sugawarayuuta/sonnet"
)

// requestTimeout bounds every non-streaming call
const requestTimeout = 10 * time.Second

// Client talks to a running responder's admin listener
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the admin listener at addr. addr may be a
// bare host:port or a full URL.
func NewClient(addr string) *Client {
	base := strings.TrimSuffix(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{},
	}
}

// Close releases idle connections
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// Slots returns slot table occupancy
func (c *Client) Slots() (*api.SlotsResponse, error) {
	var resp api.SlotsResponse
	if err := c.getJSON("/slots", &resp, http.StatusOK); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health returns the component health report. An unhealthy responder is
// not an error; the report says so.
func (c *Client) Health() (*metrics.HealthStatus, error) {
	var status metrics.HealthStatus
	if err := c.getJSON("/health", &status, http.StatusOK, http.StatusServiceUnavailable); err != nil {
		return nil, err
	}
	return &status, nil
}

// Ready returns the readiness report
func (c *Client) Ready() (*metrics.HealthStatus, error) {
	var status metrics.HealthStatus
	if err := c.getJSON("/ready", &status, http.StatusOK, http.StatusServiceUnavailable); err != nil {
		return nil, err
	}
	return &status, nil
}

// Watch streams activity events to fn until ctx is done, the server closes
// the stream, or fn returns an error.
func (c *Client) Watch(ctx context.Context, fn func(*events.Event) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to open event stream: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream: HTTP %d", resp.StatusCode)
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		data, ok := strings.CutPrefix(scanner.Text(), "data: ")
		if !ok {
			continue
		}
		var ev events.Event
		if err := sonnet.Unmarshal([]byte(data), &ev); err != nil {
			return fmt.Errorf("failed to decode event: %w", err)
		}
		if err := fn(&ev); err != nil {
			return err
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

func (c *Client) getJSON(path string, out interface{}, accept ...int) error {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach admin listener: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	for _, code := range accept {
		if resp.StatusCode == code {
			if err := sonnet.Unmarshal(body, out); err != nil {
				return fmt.Errorf("failed to decode %s: %w", path, err)
			}
			return nil
		}
	}
	return fmt.Errorf("%s: HTTP %d: %s", path, resp.StatusCode, strings.TrimSpace(string(body)))
}
