package proxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"
)

var errNotFound = errors.New("context: proxy not found in pool")

// entry is a single proxy endpoint with health tracking.
type entry struct {
	url           *url.URL
	failures      int
	successes     int
	disabledUntil time.Time
}

// Pool rotates provider requests across a set of proxies, benching any proxy
// that fails MaxFailures times in a row for Cooldown.
type Pool struct {
	mu          sync.Mutex
	entries     []*entry
	byURL       map[string]*entry
	cursor      int
	maxFailures int
	cooldown    time.Duration
	now         func() time.Time
}

// Config defines settings for the Pool.
type Config struct {
	// MaxFailures before disabling a proxy temporarily.
	MaxFailures int
	// Cooldown is how long a proxy remains disabled after hitting MaxFailures.
	Cooldown time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewPool creates an empty pool. Zero config values get defaults of 3
// failures and a 5 minute cooldown.
func NewPool(cfg Config) *Pool {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Pool{
		byURL:       make(map[string]*entry),
		maxFailures: cfg.MaxFailures,
		cooldown:    cfg.Cooldown,
		now:         cfg.Now,
	}
}

// LoadFile reads proxies from a file, one URL per line. Blank lines and lines
// starting with '#' are ignored.
func (p *Pool) LoadFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}
	defer f.Close()

	var raw []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		raw = append(raw, line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return p.Add(raw...)
}

// Add parses proxy URLs and appends them to the pool. A missing scheme
// defaults to http. Duplicates are ignored.
func (p *Pool) Add(rawURLs ...string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, raw := range rawURLs {
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("context: %w", err)
		}
		key := u.String()
		if _, dup := p.byURL[key]; dup {
			continue
		}
		e := &entry{url: u}
		p.entries = append(p.entries, e)
		p.byURL[key] = e
	}
	return nil
}

// Len returns the number of proxies in the pool, healthy or not.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Next returns the next healthy proxy in round-robin order, or nil when the
// pool is empty or every proxy is cooling down.
func (p *Pool) Next() *url.URL {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.now()
	for range p.entries {
		e := p.entries[p.cursor]
		p.cursor = (p.cursor + 1) % len(p.entries)

		if e.disabledUntil.IsZero() {
			return e.url
		}
		if now.After(e.disabledUntil) {
			e.disabledUntil = time.Time{}
			e.failures = 0
			return e.url
		}
	}
	return nil
}

// MarkSuccess records a successful request through proxyURL.
func (p *Pool) MarkSuccess(proxyURL *url.URL) error {
	if proxyURL == nil {
		return errors.New("context: proxyURL cannot be nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.byURL[proxyURL.String()]
	if !ok {
		return errNotFound
	}
	e.successes++
	if e.failures > 0 {
		e.failures--
	}
	return nil
}

// MarkFailure records a failed request through proxyURL, benching the proxy
// once it reaches the failure limit.
func (p *Pool) MarkFailure(proxyURL *url.URL) error {
	if proxyURL == nil {
		return errors.New("context: proxyURL cannot be nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.byURL[proxyURL.String()]
	if !ok {
		return errNotFound
	}
	e.failures++
	if e.failures >= p.maxFailures {
		e.disabledUntil = p.now().Add(p.cooldown)
	}
	return nil
}

type contextKey struct{}

// WithProxy returns a context that routes requests made with it through u.
func WithProxy(ctx context.Context, u *url.URL) context.Context {
	if u == nil {
		return ctx
	}
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext returns the proxy stored by WithProxy, if any.
func FromContext(ctx context.Context) (*url.URL, bool) {
	u, ok := ctx.Value(contextKey{}).(*url.URL)
	return u, ok && u != nil
}

// Func is an http.Transport Proxy function that honours WithProxy and
// otherwise falls back to the environment.
func Func(req *http.Request) (*url.URL, error) {
	if u, ok := FromContext(req.Context()); ok {
		return u, nil
	}
	return http.ProxyFromEnvironment(req)
}
