package httpclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/FranksOps/furrow/pkg/proxy"
	"github.com/FranksOps/furrow/pkg/useragent"
)

// Defaults applied by New when the corresponding Config field is zero.
const (
	DefaultTimeout           = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultMaxRateLimitWaits = 10
	DefaultRetryAfter        = 60 * time.Second
	DefaultMaxRetryAfter     = time.Hour
	DefaultBackoffBase       = time.Second
)

// BlockDetector reports the bot-protection vendor behind a non-2xx
// response, if one is recognisable.
type BlockDetector func(status int, header http.Header, body []byte) (source string, blocked bool)

// Sleeper pauses for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Observer receives request outcomes. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveRequest(endpoint, outcome string, d time.Duration)
	ObserveRetry(endpoint string)
	ObserveRateLimit(endpoint string, wait time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, string, time.Duration) {}
func (nopObserver) ObserveRetry(string)                          {}
func (nopObserver) ObserveRateLimit(string, time.Duration)       {}

// Config defines the setup for the HTTP Client.
type Config struct {
	// BaseURL is prefixed to every endpoint passed to GetJSON.
	BaseURL string
	Timeout time.Duration
	// MaxRedirects caps followed redirects; 0 means 10, negative follows none.
	MaxRedirects int
	UseCookieJar bool
	// Provide a custom Transport, e.g. for proxies or uTLS fingerprinting
	Transport http.RoundTripper

	// Header is sent with every request, like a session's shared headers.
	Header http.Header
	// UserAgents supplies the User-Agent header. Nil sends useragent.Default.
	UserAgents *useragent.Pool
	// Proxies rotates requests across proxies. The Transport must use
	// proxy.Func for the choice to take effect.
	Proxies *proxy.Pool

	// MaxRetries bounds attempts for transport errors and non-2xx responses.
	MaxRetries int
	// MaxRateLimitWaits bounds 429 cooldowns per request; they do not use
	// up MaxRetries.
	MaxRateLimitWaits int
	// RetryAfter is the cooldown when a 429 carries no usable Retry-After.
	RetryAfter time.Duration
	// MaxRetryAfter caps a server-requested cooldown.
	MaxRetryAfter time.Duration
	// BackoffBase is multiplied by 2^attempt between failed attempts.
	BackoffBase time.Duration

	// DetectBlock, when set, labels non-2xx responses served by a
	// bot-protection edge instead of the API itself.
	DetectBlock BlockDetector

	Sleep    Sleeper
	Logger   *slog.Logger
	Observer Observer
}

// Client wraps a standard http.Client with the session state shared by every
// request a provider makes: base URL, headers, retry policy.
type Client struct {
	*http.Client
	base *url.URL
	cfg  Config
}

// New creates a new HTTP client based on the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.MaxRateLimitWaits <= 0 {
		cfg.MaxRateLimitWaits = DefaultMaxRateLimitWaits
	}
	if cfg.RetryAfter <= 0 {
		cfg.RetryAfter = DefaultRetryAfter
	}
	if cfg.MaxRetryAfter <= 0 {
		cfg.MaxRetryAfter = DefaultMaxRetryAfter
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Observer == nil {
		cfg.Observer = nopObserver{}
	}

	var base *url.URL
	if cfg.BaseURL != "" {
		u, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("context: invalid base url: %w", err)
		}
		base = u
	}

	c := &http.Client{
		Timeout: cfg.Timeout,
	}

	if cfg.MaxRedirects >= 0 {
		limit := cfg.MaxRedirects
		if limit == 0 {
			limit = 10
		}
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return fmt.Errorf("context: stopped after %d redirects", limit)
			}
			return nil
		}
	} else {
		// Don't follow any redirects if max < 0
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}
		c.Jar = jar
	}

	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	}

	return &Client{Client: c, base: base, cfg: cfg}, nil
}

// Do executes an HTTP request. The provided context.Context should control
// the overarching request timeout/cancellation independent of the client timeout.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("context: context cannot be nil")
	}

	resp, err := c.Client.Do(req.Clone(ctx))
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	return resp, nil
}

// MaxRetries returns the effective attempt limit.
func (c *Client) MaxRetries() int {
	return c.cfg.MaxRetries
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
