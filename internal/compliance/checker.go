// Package compliance gates URL imports on the target site's robots.txt.
//
// A site is off limits when its robots.txt has a blanket "Disallow: /" for
// every agent or for this service's agent. A missing robots.txt (any 4xx)
// allows access. Anything else that prevents a decision, such as a 5xx,
// a network error, or the timeout, fails closed.
package compliance

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/JonMunkholm/provimport/internal/core"
	"github.com/JonMunkholm/provimport/internal/httpx"
	"github.com/JonMunkholm/provimport/internal/logging"
)

const (
	DefaultUserAgent = "ProvImport/1.0"
	DefaultTimeout   = 10 * time.Second
	DefaultCacheTTL  = time.Hour
)

var _ core.ComplianceChecker = (*Checker)(nil)

// Cache stores robots.txt decisions per origin.
type Cache interface {
	Get(ctx context.Context, origin string) (allowed, found bool, err error)
	Set(ctx context.Context, origin string, allowed bool, ttl time.Duration) error
}

type Config struct {
	UserAgent string
	Timeout   time.Duration
	CacheTTL  time.Duration

	// Optional
	Client  *http.Client
	Cache   Cache
	Metrics *Metrics
}

// Checker fetches and evaluates robots.txt. Concurrent checks of one origin
// share a single fetch.
type Checker struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	cacheTTL  time.Duration
	cache     Cache
	metrics   *Metrics
	tracer    trace.Tracer
	group     singleflight.Group
}

func New(cfg Config) *Checker {
	c := &Checker{
		client:    cfg.Client,
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		cacheTTL:  cfg.CacheTTL,
		cache:     cfg.Cache,
		metrics:   cfg.Metrics,
		tracer:    otel.Tracer("github.com/JonMunkholm/provimport/internal/compliance"),
	}
	if c.client == nil {
		c.client = &http.Client{}
	}
	if c.userAgent == "" {
		c.userAgent = DefaultUserAgent
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.cacheTTL <= 0 {
		c.cacheTTL = DefaultCacheTTL
	}
	return c
}

// Check returns nil when u's origin allows this service, an error wrapping
// core.ErrRobotsDisallowed when it does not, and an error wrapping
// core.ErrRobotsUnavailable when no decision could be made.
func (c *Checker) Check(ctx context.Context, u *url.URL) (err error) {
	origin := u.Scheme + "://" + u.Host
	ctx, span := c.tracer.Start(ctx, "robots.check", trace.WithAttributes(
		attribute.String("robots.origin", origin),
	))
	defer func() {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	logger := logging.WithFields(ctx, "origin", origin)

	if c.cache != nil {
		allowed, found, cerr := c.cache.Get(ctx, origin)
		switch {
		case cerr != nil:
			logger.Warn("robots cache read failed", "error", cerr)
		case found:
			span.SetAttributes(attribute.Bool("robots.cached", true))
			c.metrics.IncrementCheck(outcome(allowed), true)
			return decision(origin, allowed)
		}
	}

	ch := c.group.DoChan(origin, func() (any, error) {
		// The shared fetch outlives any single caller's cancellation.
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.fetch(fctx, origin)
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %v", core.ErrRobotsUnavailable, origin, ctx.Err())
	}

	if res.Err != nil {
		c.metrics.IncrementCheck("error", false)
		logger.Warn("robots.txt check failed", "error", res.Err)
		return fmt.Errorf("%w: %s: %v", core.ErrRobotsUnavailable, origin, res.Err)
	}

	allowed := res.Val.(bool)
	c.metrics.IncrementCheck(outcome(allowed), false)
	if c.cache != nil && !res.Shared {
		if err := c.cache.Set(ctx, origin, allowed, c.cacheTTL); err != nil {
			logger.Warn("robots cache write failed", "error", err)
		}
	}
	return decision(origin, allowed)
}

func (c *Checker) fetch(ctx context.Context, origin string) (any, error) {
	buildReq := func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, origin+"/robots.txt", nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", c.userAgent)
		return req, nil
	}

	_, body, err := httpx.Do(ctx, c.client, buildReq, httpx.NoRetry())
	if code := httpx.StatusCode(err); code >= 400 && code < 500 {
		return true, nil
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("timeout after %s", c.timeout)
		}
		return nil, err
	}
	groups, err := parseRobots(string(body))
	if err != nil {
		return nil, err
	}
	return !blanketDisallow(groups, c.userAgent), nil
}

func decision(origin string, allowed bool) error {
	if allowed {
		return nil
	}
	return fmt.Errorf("%w: %s", core.ErrRobotsDisallowed, origin)
}

func outcome(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "disallowed"
}
