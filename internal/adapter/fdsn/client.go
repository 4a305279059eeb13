// Package fdsn fetches raw event query responses from FDSN web services.
package fdsn

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/couchcryptid/quake-watch/internal/domain"
)

// maxBodyBytes caps a response body. A 100-event page is well under 1 MiB;
// anything past the cap is treated as a broken upstream.
const maxBodyBytes = 8 << 20

// Client performs GET requests against provider query URLs.
// It implements pipeline.Fetcher.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger
	maxBody    int64
}

// NewClient creates a client whose connection phase (dial and TLS) is bounded
// by connectTimeout and whose wait for response headers is bounded by
// readTimeout. The whole exchange is bounded by their sum.
func NewClient(connectTimeout, readTimeout time.Duration, logger *slog.Logger) *Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
		IdleConnTimeout:       90 * time.Second,
		MaxIdleConnsPerHost:   2,
	}
	return &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   connectTimeout + readTimeout,
		},
		logger:  logger,
		maxBody: maxBodyBytes,
	}
}

// Fetch returns the body of a 200 response. Transport failures and any other
// status are reported as *domain.FetchError.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// Drain a little so the connection can be reused.
		_, _ = io.CopyN(io.Discard, resp.Body, 4<<10)
		c.logger.Debug("provider returned non-200", "url", url, "status", resp.StatusCode)
		return nil, &domain.FetchError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, &domain.FetchError{URL: url, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(body)) > c.maxBody {
		return nil, &domain.FetchError{URL: url, Err: fmt.Errorf("response body exceeds %d bytes", c.maxBody)}
	}
	return body, nil
}
