package tvdb

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultBaseURL is the v3 API root.
	DefaultBaseURL = "https://api.thetvdb.com"
	// DefaultArtworkURL expands relative artwork paths into full URLs.
	DefaultArtworkURL = "http://thetvdb.com/banners/%s"
	// DefaultLanguage is used when no language is configured.
	DefaultLanguage = "en"
	// DefaultMaxPages caps how many continuation pages one fetch will follow.
	DefaultMaxPages = 100
)

// Option configures a Client.
type Option func(*clientOptions)

// clientOptions holds configuration options for the Client.
type clientOptions struct {
	httpClient         *http.Client
	probe              CacheProbe
	selector           Selector
	logger             zerolog.Logger
	baseURL            string
	artworkURL         string
	language           string
	username           string
	userKey            string
	banners            bool
	actors             bool
	dvdOrder           bool
	searchAllLanguages bool
	maxPages           int
	now                func() time.Time
}

func defaultOptions() clientOptions {
	return clientOptions{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		selector:   FirstSelector{},
		logger:     zerolog.Nop(),
		baseURL:    DefaultBaseURL,
		artworkURL: DefaultArtworkURL,
		language:   DefaultLanguage,
		maxPages:   DefaultMaxPages,
		now:        time.Now,
	}
}

// WithHTTPClient sets the HTTP client used for every request. Its transport
// is where response caching lives.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// WithCacheProbe lets the client skip the login round-trip when the
// response it is about to request is already cached.
func WithCacheProbe(probe CacheProbe) Option {
	return func(o *clientOptions) {
		o.probe = probe
	}
}

// WithSelector sets how a series is chosen from search results.
func WithSelector(selector Selector) Option {
	return func(o *clientOptions) {
		if selector != nil {
			o.selector = selector
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *clientOptions) {
		o.logger = logger
	}
}

// WithBaseURL overrides the API root.
func WithBaseURL(baseURL string) Option {
	return func(o *clientOptions) {
		if baseURL != "" {
			o.baseURL = baseURL
		}
	}
}

// WithArtworkURL overrides the artwork prefix. The format must contain one %s.
func WithArtworkURL(format string) Option {
	return func(o *clientOptions) {
		if format != "" {
			o.artworkURL = format
		}
	}
}

// WithLanguage sets the Accept-Language sent with every request.
func WithLanguage(language string) Option {
	return func(o *clientOptions) {
		if language != "" {
			o.language = language
		}
	}
}

// WithCredentials sets the optional username and user key sent at login.
func WithCredentials(username, userKey string) Option {
	return func(o *clientOptions) {
		o.username = username
		o.userKey = userKey
	}
}

// WithBanners enables fetching artwork metadata into the _banners attribute.
func WithBanners(enabled bool) Option {
	return func(o *clientOptions) {
		o.banners = enabled
	}
}

// WithActors enables fetching the cast into the _actors attribute.
func WithActors(enabled bool) Option {
	return func(o *clientOptions) {
		o.actors = enabled
	}
}

// WithDVDOrder numbers episodes by DVD season and episode when both are known.
func WithDVDOrder(enabled bool) Option {
	return func(o *clientOptions) {
		o.dvdOrder = enabled
	}
}

// WithSearchAllLanguages sends series searches without a language restriction.
func WithSearchAllLanguages(enabled bool) Option {
	return func(o *clientOptions) {
		o.searchAllLanguages = enabled
	}
}

// WithMaxPages sets the pagination ceiling.
func WithMaxPages(pages int) Option {
	return func(o *clientOptions) {
		if pages > 0 {
			o.maxPages = pages
		}
	}
}

// WithClock replaces time.Now for the series tree eviction timer.
func WithClock(now func() time.Time) Option {
	return func(o *clientOptions) {
		if now != nil {
			o.now = now
		}
	}
}
