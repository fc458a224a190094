package httpcache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// DefaultTTL is how long a stored response stays fresh.
const DefaultTTL = 6 * time.Hour

// HeaderFromCache is set on responses served from the store.
const HeaderFromCache = "X-From-Cache"

// KeyFunc derives the cache key of a request.
type KeyFunc func(*http.Request) (string, error)

// Stats counts cache activity since the transport was created.
type Stats struct {
	Hits   int64
	Misses int64
	Stores int64
}

// Option configures a Transport.
type Option func(*Transport)

// WithBase sets the round tripper used on a cache miss.
func WithBase(base http.RoundTripper) Option {
	return func(t *Transport) {
		if base != nil {
			t.base = base
		}
	}
}

// WithTTL sets how long stored responses stay fresh. Zero stores them
// without expiry.
func WithTTL(ttl time.Duration) Option {
	return func(t *Transport) {
		t.ttl = ttl
	}
}

// WithLimiter throttles requests that reach the network.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(t *Transport) {
		t.limiter = limiter
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(t *Transport) {
		t.logger = logger
	}
}

// WithCacheableMethods replaces the set of methods whose responses are stored.
func WithCacheableMethods(methods ...string) Option {
	return func(t *Transport) {
		t.methods = make(map[string]bool, len(methods))
		for _, m := range methods {
			t.methods[m] = true
		}
	}
}

// Transport is an http.RoundTripper that answers repeated requests from a
// Store. Only 2xx responses are stored.
type Transport struct {
	base    http.RoundTripper
	store   Store
	keyFunc KeyFunc
	ttl     time.Duration
	limiter *rate.Limiter
	methods map[string]bool
	logger  zerolog.Logger
	now     func() time.Time

	hits   atomic.Int64
	misses atomic.Int64
	stores atomic.Int64
}

// NewTransport creates a caching transport. A nil store disables caching.
func NewTransport(store Store, keyFunc KeyFunc, opts ...Option) *Transport {
	t := &Transport{
		base:    http.DefaultTransport,
		store:   store,
		keyFunc: keyFunc,
		ttl:     DefaultTTL,
		methods: map[string]bool{http.MethodGet: true},
		logger:  zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.store == nil || t.keyFunc == nil || !t.methods[req.Method] {
		return t.send(req)
	}

	key, err := t.keyFunc(req)
	if err != nil {
		t.logger.Debug().Err(err).Str("url", req.URL.String()).Msg("Cannot derive cache key")
		return t.send(req)
	}

	entry, ok, err := t.store.Get(key)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Cache lookup failed")
	}
	if ok {
		t.hits.Add(1)
		t.logger.Debug().Str("url", req.URL.String()).Msg("Cache hit")
		return entry.response(req), nil
	}
	t.misses.Add(1)

	resp, err := t.send(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, nil
	}

	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))

	now := t.now()
	stored := &Entry{
		StatusCode: resp.StatusCode,
		Header:     resp.Header.Clone(),
		Body:       body,
		StoredAt:   now,
	}
	if t.ttl > 0 {
		stored.ExpiresAt = now.Add(t.ttl)
	}
	if err := t.store.Set(key, stored); err != nil {
		t.logger.Warn().Err(err).Msg("Failed to store response")
	} else {
		t.stores.Add(1)
	}

	return resp, nil
}

// Has reports whether a fresh response is stored under key.
func (t *Transport) Has(key string) (bool, error) {
	if t.store == nil {
		return false, ErrNoStore
	}
	return t.store.Has(key)
}

// Store returns the underlying store, which may be nil.
func (t *Transport) Store() Store {
	return t.store
}

// Stats returns the hit, miss and store counters.
func (t *Transport) Stats() Stats {
	return Stats{
		Hits:   t.hits.Load(),
		Misses: t.misses.Load(),
		Stores: t.stores.Load(),
	}
}

func (t *Transport) send(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}
	return t.base.RoundTrip(req)
}

func (e *Entry) response(req *http.Request) *http.Response {
	header := e.Header.Clone()
	if header == nil {
		header = make(http.Header)
	}
	header.Set(HeaderFromCache, "1")

	return &http.Response{
		Status:        fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode)),
		StatusCode:    e.StatusCode,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// ProxyConfig holds per-scheme proxy URLs. Empty fields mean no proxy for
// that scheme.
type ProxyConfig struct {
	HTTP  string
	HTTPS string
}

// NewBaseTransport clones http.DefaultTransport and applies proxy. With no
// proxy configured the environment proxy settings are kept.
func NewBaseTransport(proxy ProxyConfig) (*http.Transport, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if proxy.HTTP == "" && proxy.HTTPS == "" {
		return base, nil
	}

	httpProxy, err := parseProxy(proxy.HTTP)
	if err != nil {
		return nil, err
	}
	httpsProxy, err := parseProxy(proxy.HTTPS)
	if err != nil {
		return nil, err
	}

	base.Proxy = func(req *http.Request) (*url.URL, error) {
		if req.URL.Scheme == "https" {
			return httpsProxy, nil
		}
		return httpProxy, nil
	}
	return base, nil
}

func parseProxy(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid proxy URL %q: %w", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid proxy URL %q: scheme and host are required", raw)
	}
	return u, nil
}
