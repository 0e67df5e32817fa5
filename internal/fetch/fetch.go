// Package fetch retrieves source HTML documents. A source is either an
// http(s) URL or a local file path, so the same pipeline serves live scrapes
// and saved page snapshots.
package fetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client fetches source documents
type Client struct {
	httpClient *http.Client
}

// New creates a fetch client with the given timeout. A zero timeout uses the
// default.
func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch returns a reader over the document at src. URLs are fetched over
// HTTP; anything else is treated as a local file path.
func (c *Client) Fetch(ctx context.Context, src string) (io.ReadCloser, error) {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return c.fetchURL(ctx, src)
	}
	return c.fetchFile(src)
}

func (c *Client) fetchURL(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	return resp.Body, nil
}

func (c *Client) fetchFile(path string) (io.ReadCloser, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
