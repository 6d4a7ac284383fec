// Package extraction calls the external service that turns a roster page
// into provider objects. It does no extraction itself.
package extraction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/JonMunkholm/provimport/internal/core"
	"github.com/JonMunkholm/provimport/internal/httpx"
)

var _ core.Extractor = (*Client)(nil)

type Config struct {
	// Endpoint receives POST {"url": ...} and answers {"records": [...]}.
	Endpoint  string
	APIKey    string
	UserAgent string

	// Optional
	HTTPClient *http.Client
	Retry      httpx.RetryPolicy
}

type Client struct {
	endpoint  string
	apiKey    string
	userAgent string
	http      *http.Client
	retry     httpx.RetryPolicy
}

func New(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.Endpoint)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("extraction endpoint %q: must be an absolute http(s) URL", cfg.Endpoint)
	}
	c := &Client{
		endpoint:  cfg.Endpoint,
		apiKey:    cfg.APIKey,
		userAgent: cfg.UserAgent,
		http:      cfg.HTTPClient,
		retry:     cfg.Retry,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.retry.MaxAttempts == 0 {
		c.retry = httpx.DefaultRetryPolicy()
	}
	return c, nil
}

type extractRequest struct {
	URL string `json:"url"`
}

type extractResponse struct {
	Records []core.ExtractedRecord `json:"records"`
}

// Extract asks the service for the provider objects on the page at u.
// The caller's context bounds all attempts.
func (c *Client) Extract(ctx context.Context, u *url.URL) ([]core.ExtractedRecord, error) {
	payload, err := json.Marshal(extractRequest{URL: u.String()})
	if err != nil {
		return nil, fmt.Errorf("extraction service: encode request: %w", err)
	}

	buildReq := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if c.userAgent != "" {
			req.Header.Set("User-Agent", c.userAgent)
		}
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}
		return req, nil
	}

	var resp extractResponse
	if err := httpx.DoJSON(ctx, c.http, buildReq, &resp, c.retry); err != nil {
		return nil, fmt.Errorf("extraction service: %w", err)
	}
	return resp.Records, nil
}
