package telemetry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/banshee-data/citation.report/internal/httputil"
)

// DefaultURL is the local ETS2 telemetry server endpoint.
const DefaultURL = "http://localhost:25555/api/ets2/telemetry"

// DefaultTimeout bounds a single poll.
const DefaultTimeout = 500 * time.Millisecond

// ErrNotConnected means the telemetry server answered but the game is not
// running or not attached.
var ErrNotConnected = errors.New("telemetry: game not connected")

const maxBodySize = 1 << 20

// Client polls the telemetry server.
type Client struct {
	url     string
	http    httputil.HTTPClient
	timeout time.Duration
}

// NewClient creates a client for url. A nil httpClient uses a standard client.
func NewClient(url string, httpClient httputil.HTTPClient, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = httputil.NewStandardClient(timeout)
	}
	return &Client{url: url, http: httpClient, timeout: timeout}
}

// Fetch performs one poll. Any error, including ErrNotConnected, means no
// snapshot is available this tick.
func (c *Client) Fetch(ctx context.Context) (*Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build telemetry request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch telemetry: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch telemetry: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read telemetry body: %w", err)
	}

	snap, err := Decode(body)
	if err != nil {
		return nil, err
	}
	if !snap.Game.Connected {
		return nil, ErrNotConnected
	}
	return snap, nil
}
