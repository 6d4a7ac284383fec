// Package httpx is the outbound HTTP layer used by the robots.txt checker and
// the extraction client: retries with backoff, Retry-After, and compressed
// response bodies.
package httpx

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
)

// MaxBodyBytes caps how much of a response body is read.
const MaxBodyBytes = 8 << 20

var ErrBodyTooLarge = errors.New("response body too large")

// HTTPError is returned for non-2xx responses.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, snippet(e.Body, 300))
}

// StatusCode returns the status carried by an *HTTPError in err's chain, or 0.
func StatusCode(err error) int {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.StatusCode
	}
	return 0
}

func snippet(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}

// RetryPolicy controls Do's retry behavior.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration

	// Retry5xx retries every 5xx status.
	Retry5xx bool

	// RetryStatuses lists additional statuses to retry.
	RetryStatuses map[int]bool
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    5 * time.Second,
		Retry5xx:    true,
		RetryStatuses: map[int]bool{
			http.StatusTooManyRequests: true,
			http.StatusRequestTimeout:  true,
		},
	}
}

// NoRetry makes a single attempt.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		return DefaultRetryPolicy()
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 500 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 5 * time.Second
	}
	return p
}

func (p RetryPolicy) retryable(code int) bool {
	return p.RetryStatuses[code] || (p.Retry5xx && code >= 500 && code <= 599)
}

// Do executes the request built by buildReq, retrying transient network
// errors and retryable statuses. The body is always read in full and
// decoded per Content-Encoding. Non-2xx responses return an *HTTPError
// together with the response and body.
func Do(
	ctx context.Context,
	client *http.Client,
	buildReq func(context.Context) (*http.Request, error),
	policy RetryPolicy,
) (*http.Response, []byte, error) {
	policy = policy.withDefaults()

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		req, err := buildReq(ctx)
		if err != nil {
			return nil, nil, err
		}
		if req.Header.Get("Accept-Encoding") == "" {
			req.Header.Set("Accept-Encoding", "br, gzip")
		}

		resp, err := client.Do(req)
		if err != nil {
			if !isRetryableNetErr(ctx, err) || attempt == policy.MaxAttempts {
				return nil, nil, err
			}
			lastErr = err
			if err := sleepBackoff(ctx, attempt, policy, 0); err != nil {
				return nil, nil, err
			}
			continue
		}

		body, err := readBody(resp)
		if err != nil {
			if !isRetryableNetErr(ctx, err) || attempt == policy.MaxAttempts {
				return resp, body, err
			}
			lastErr = err
			if err := sleepBackoff(ctx, attempt, policy, 0); err != nil {
				return nil, nil, err
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, body, nil
		}

		herr := &HTTPError{
			Method:     req.Method,
			URL:        req.URL.String(),
			StatusCode: resp.StatusCode,
			Header:     resp.Header.Clone(),
			Body:       body,
		}
		if !policy.retryable(resp.StatusCode) || attempt == policy.MaxAttempts {
			return resp, body, herr
		}
		lastErr = herr
		if err := sleepBackoff(ctx, attempt, policy, ParseRetryAfter(resp)); err != nil {
			return nil, nil, err
		}
	}

	if lastErr == nil {
		lastErr = errors.New("httpx: request failed")
	}
	return nil, nil, lastErr
}

// readBody reads and closes the body, undoing br or gzip content encoding.
func readBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()

	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "br":
		r = brotli.NewReader(resp.Body)
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip body: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	body, err := io.ReadAll(io.LimitReader(r, MaxBodyBytes+1))
	if err != nil {
		return body, err
	}
	if len(body) > MaxBodyBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, MaxBodyBytes)
	}
	return body, nil
}

func sleepBackoff(ctx context.Context, attempt int, p RetryPolicy, retryAfter time.Duration) error {
	sleep := retryAfter
	if sleep <= 0 {
		sleep = p.BaseDelay << (attempt - 1)
		if sleep > p.MaxDelay {
			sleep = p.MaxDelay
		}
		sleep += time.Duration(rand.Int64N(int64(sleep)/4 + 1))
	}
	if sleep > p.MaxDelay {
		sleep = p.MaxDelay
	}

	t := time.NewTimer(sleep)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func isRetryableNetErr(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrBodyTooLarge) {
		return false
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "unexpected eof")
}

// ParseRetryAfter parses the Retry-After header as seconds or an HTTP date.
// Returns 0 when the header is missing or invalid.
func ParseRetryAfter(resp *http.Response) time.Duration {
	v := strings.TrimSpace(resp.Header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// DoJSON runs Do and decodes a 2xx body into out.
func DoJSON(
	ctx context.Context,
	client *http.Client,
	buildReq func(context.Context) (*http.Request, error),
	out any,
	policy RetryPolicy,
) error {
	_, body, err := Do(ctx, client, buildReq, policy)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w body=%s", err, snippet(body, 300))
	}
	return nil
}
