// Package ipapi implements the external reputation lookup against the
// ip-api.com JSON endpoint.
package ipapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shrike/internal/reputation"
)

const (
	providerName   = "ip-api"
	defaultBaseURL = "http://ip-api.com/json"
	defaultTimeout = 10 * time.Second

	lookupFields     = "status,message,proxy,hosting,mobile,query"
	maxResponseBytes = 1 << 20
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient() *Client {
	return NewClientWith(defaultBaseURL, defaultTimeout)
}

// NewClientWith builds a client against a non-default endpoint; used for
// self-hosted mirrors and tests.
func NewClientWith(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *Client) Name() string {
	return providerName
}

// Lookup queries the provider for one address. Transport failures and
// non-2xx responses come back as errors; a well-formed response is returned
// as-is, including provider-side "fail" statuses.
func (c *Client) Lookup(ctx context.Context, address string) (*reputation.LookupResult, error) {
	lookupURL := fmt.Sprintf("%s/%s?fields=%s", c.baseURL, url.PathEscape(address), lookupFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build lookup request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "shrike-backend")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reputation lookup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("reputation lookup %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read lookup response: %w", err)
	}

	var result reputation.LookupResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode lookup response: %w", err)
	}

	result.Raw = body
	return &result, nil
}
