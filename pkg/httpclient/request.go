package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/FranksOps/furrow/pkg/proxy"
)

// Response is a decoded JSON object. Numbers are json.Number.
type Response map[string]any

// errRateLimited marks an attempt answered with 429.
type errRateLimited struct {
	wait   time.Duration
	capped bool
}

func (e *errRateLimited) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.wait)
}

// errBlocked marks a non-2xx response recognised as a bot-protection page.
type errBlocked struct {
	source string
	status int
}

func (e *errBlocked) Error() string {
	return fmt.Sprintf("blocked by %s (status %d)", e.source, e.status)
}

// GetJSON issues a GET to endpoint (relative to BaseURL) with params and
// decodes the JSON object it returns.
//
// Transport errors, non-2xx statuses and undecodable bodies are retried up to
// MaxRetries attempts with a BackoffBase*2^attempt pause between them. A 429
// waits for the server's Retry-After and repeats the same attempt, up to
// MaxRateLimitWaits times. GetJSON never returns an error: ok is false when
// no data could be obtained and the caller should carry on without it.
func (c *Client) GetJSON(ctx context.Context, endpoint string, params url.Values) (resp Response, ok bool) {
	target, err := c.resolve(endpoint, params)
	if err != nil {
		c.cfg.Logger.Error("invalid request target", "endpoint", endpoint, "err", err)
		return nil, false
	}

	log := c.cfg.Logger.With("endpoint", endpoint)
	rateLimitWaits := 0

	for attempt := 0; attempt < c.cfg.MaxRetries; {
		if err := ctx.Err(); err != nil {
			log.Warn("request abandoned", "err", err)
			return nil, false
		}

		start := time.Now()
		body, err := c.attempt(ctx, target)
		var rl *errRateLimited
		switch {
		case err == nil:
			c.cfg.Observer.ObserveRequest(endpoint, "ok", time.Since(start))
			return body, true

		case errors.As(err, &rl):
			c.cfg.Observer.ObserveRequest(endpoint, "rate_limited", time.Since(start))
			if rateLimitWaits >= c.cfg.MaxRateLimitWaits {
				log.Error("rate limit waits exhausted", "waits", rateLimitWaits)
				return nil, false
			}
			rateLimitWaits++
			if rl.capped {
				log.Warn("retry-after exceeds cap", "cap", rl.wait)
			}
			c.cfg.Observer.ObserveRateLimit(endpoint, rl.wait)
			log.Warn("rate limited, waiting", "wait", rl.wait, "wait_count", rateLimitWaits)
			if err := c.cfg.Sleep(ctx, rl.wait); err != nil {
				log.Warn("request abandoned", "err", err)
				return nil, false
			}
			continue
		}

		outcome := "error"
		var blocked *errBlocked
		if errors.As(err, &blocked) {
			outcome = "blocked"
		}
		c.cfg.Observer.ObserveRequest(endpoint, outcome, time.Since(start))
		log.Error("request failed", "attempt", attempt+1, "max_retries", c.cfg.MaxRetries, "err", err)

		if attempt+1 >= c.cfg.MaxRetries {
			break
		}
		backoff := c.cfg.BackoffBase << attempt
		attempt++
		c.cfg.Observer.ObserveRetry(endpoint)
		if err := c.cfg.Sleep(ctx, backoff); err != nil {
			log.Warn("request abandoned", "err", err)
			return nil, false
		}
	}

	log.Error("max retries exceeded")
	return nil, false
}

func (c *Client) resolve(endpoint string, params url.Values) (*url.URL, error) {
	var u *url.URL
	if c.base != nil {
		joined := *c.base
		joined.Path = strings.TrimSuffix(c.base.Path, "/")
		if endpoint != "" {
			joined.Path += "/" + strings.TrimPrefix(endpoint, "/")
		}
		u = &joined
	} else {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}
		u = parsed
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("context: %q is not an absolute url", u.String())
	}

	q := u.Query()
	for k, vs := range params {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u, nil
}

// attempt performs one GET and decodes the body.
func (c *Client) attempt(ctx context.Context, target *url.URL) (Response, error) {
	var activeProxy *url.URL
	if c.cfg.Proxies != nil {
		activeProxy = c.cfg.Proxies.Next()
		ctx = proxy.WithProxy(ctx, activeProxy)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	for k, vs := range c.cfg.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("User-Agent", c.cfg.UserAgents.Next())
	req.Header.Set("Accept", "application/json")

	resp, err := c.Do(ctx, req)
	if err != nil {
		if activeProxy != nil {
			_ = c.cfg.Proxies.MarkFailure(activeProxy)
		}
		return nil, err
	}
	defer resp.Body.Close()

	if activeProxy != nil {
		_ = c.cfg.Proxies.MarkSuccess(activeProxy)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		_, _ = io.Copy(io.Discard, resp.Body)
		wait, capped := parseRetryAfter(resp.Header.Get("Retry-After"), time.Now(), c.cfg.RetryAfter, c.cfg.MaxRetryAfter)
		return nil, &errRateLimited{wait: wait, capped: capped}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("context: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if c.cfg.DetectBlock != nil {
			if src, ok := c.cfg.DetectBlock(resp.StatusCode, resp.Header, body); ok {
				return nil, &errBlocked{source: src, status: resp.StatusCode}
			}
		}
		return nil, fmt.Errorf("context: unexpected status %d", resp.StatusCode)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var out Response
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("context: decode body: %w", err)
	}
	if out == nil {
		return nil, errors.New("context: response body is not a JSON object")
	}
	return out, nil
}

// parseRetryAfter reads a Retry-After value as delta-seconds or an HTTP date.
// Values above limit are clamped to it and reported as capped.
func parseRetryAfter(v string, now time.Time, fallback, limit time.Duration) (wait time.Duration, capped bool) {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback, false
	}
	if secs, err := strconv.ParseInt(v, 10, 64); err == nil {
		if secs < 0 {
			return fallback, false
		}
		if secs > int64(limit/time.Second) {
			return limit, true
		}
		return time.Duration(secs) * time.Second, false
	}
	if at, err := http.ParseTime(v); err == nil {
		d := at.Sub(now)
		switch {
		case d <= 0:
			return 0, false
		case d > limit:
			return limit, true
		}
		return d, false
	}
	return fallback, false
}
