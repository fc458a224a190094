package tvdb

import (
	"context"
)

// API defines the catalog operations consumers depend on.
// This interface allows for easy mocking in tests.
type API interface {
	// Search returns every series whose name matches
	Search(ctx context.Context, name string) ([]SeriesCandidate, error)
	// ResolveID maps a show name to its series id, asking the selector when needed
	ResolveID(ctx context.Context, name string) (SeriesID, error)
	// Get returns the populated series for a show name
	Get(ctx context.Context, name string) (*Series, error)
	// GetByID returns the populated series for an id
	GetByID(ctx context.Context, id SeriesID) (*Series, error)
	// Languages returns the language abbreviations the provider accepts
	Languages(ctx context.Context) ([]string, error)
}

// CacheProbe reports whether a response is already stored under a cache key
// produced by CacheKey.
type CacheProbe interface {
	Has(key string) (bool, error)
}

// Selector picks one series out of a list of search results.
// Implementations may return ErrUserAbort or ErrShowNotFound.
type Selector interface {
	SelectSeries(candidates []SeriesCandidate) (SeriesCandidate, error)
}

// Ensure Client implements API
var _ API = (*Client)(nil)
