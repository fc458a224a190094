package tvdb

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// Client is a catalog API client. It resolves show names to series ids,
// fetches and assembles series into its Tree, and serves repeated lookups
// from memory.
type Client struct {
	opts    clientOptions
	auth    *authenticator
	fetcher *pagedFetcher
	tree    *Tree
	logger  zerolog.Logger

	mu          sync.Mutex
	corrections map[string]SeriesID

	// selectMu keeps concurrent name resolutions from prompting at once.
	selectMu sync.Mutex
	group    singleflight.Group
}

// New creates a client. It fails with ErrMissingAPIKey before any network
// use when apiKey is empty.
func New(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	o.baseURL = strings.TrimRight(o.baseURL, "/")

	auth := newAuthenticator(o.httpClient, o.baseURL, loginRequest{
		APIKey:   apiKey,
		Username: o.username,
		UserKey:  o.userKey,
	}, o.probe, o.logger)

	return &Client{
		opts: o,
		auth: auth,
		fetcher: &pagedFetcher{
			httpClient: o.httpClient,
			auth:       auth,
			maxPages:   o.maxPages,
			logger:     o.logger,
		},
		tree:        NewTree(o.now),
		logger:      o.logger,
		corrections: make(map[string]SeriesID),
	}, nil
}

// Language returns the configured language.
func (c *Client) Language() string {
	return c.opts.language
}

// Tree returns the in-memory series tree.
func (c *Client) Tree() *Tree {
	return c.tree
}

// Corrections returns a copy of the name to id mappings resolved so far.
func (c *Client) Corrections() map[string]SeriesID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return maps.Clone(c.corrections)
}

// Authorize logs in unconditionally. It is useful to verify credentials.
func (c *Client) Authorize(ctx context.Context) error {
	return c.auth.authorize(ctx, c.opts.language)
}

// Close releases idle connections.
func (c *Client) Close() {
	c.opts.httpClient.CloseIdleConnections()
}

// Search returns every series matching name. Each candidate's Language is
// set to the configured language.
func (c *Client) Search(ctx context.Context, name string) ([]SeriesCandidate, error) {
	language := c.opts.language
	if c.opts.searchAllLanguages {
		language = ""
	}

	escaped := strings.ReplaceAll(url.QueryEscape(name), "+", "%20")
	c.logger.Debug().Str("name", name).Msg("Searching for show")

	raw, err := c.fetcher.fetch(ctx, c.endpoint("/search/series?name=%s", escaped), language)
	if err != nil {
		return nil, fmt.Errorf("failed to search for %q: %w", name, err)
	}

	var candidates []SeriesCandidate
	if !isNull(raw) {
		if err := json.Unmarshal(raw, &candidates); err != nil {
			return nil, &ProviderError{Message: "failed to parse search results", Err: err}
		}
	}
	if len(candidates) == 0 {
		return nil, &ShowNotFoundError{Query: name, Message: "show-name search returned zero results"}
	}

	for i := range candidates {
		candidates[i].Language = c.opts.language
		c.logger.Debug().
			Str("series", candidates[i].SeriesName).
			Int("id", int(candidates[i].ID)).
			Msg("Found series")
	}

	return candidates, nil
}

// ResolveID maps name to a series id. The first resolution of a name
// searches, asks the selector and populates the chosen series; later calls
// are answered from the correction cache.
func (c *Client) ResolveID(ctx context.Context, name string) (SeriesID, error) {
	c.mu.Lock()
	id, ok := c.corrections[name]
	c.mu.Unlock()
	if ok {
		c.logger.Debug().Str("name", name).Int("id", int(id)).Msg("Using corrected series id")
		return id, nil
	}

	candidates, err := c.Search(ctx, name)
	if err != nil {
		return 0, err
	}

	c.selectMu.Lock()
	selected, err := c.opts.selector.SelectSeries(candidates)
	c.selectMu.Unlock()
	if err != nil {
		return 0, err
	}

	c.logger.Debug().
		Str("series", selected.SeriesName).
		Int("id", int(selected.ID)).
		Msg("Selected series")

	c.mu.Lock()
	c.corrections[name] = selected.ID
	c.mu.Unlock()

	if _, err := c.Populate(ctx, selected.ID); err != nil {
		return 0, err
	}

	return selected.ID, nil
}

// Get returns the series for a show name, fetching it on first use.
func (c *Client) Get(ctx context.Context, name string) (*Series, error) {
	id, err := c.ResolveID(ctx, name)
	if err != nil {
		return nil, err
	}
	return c.GetByID(ctx, id)
}

// GetByID returns the series for id, fetching it on first use.
func (c *Client) GetByID(ctx context.Context, id SeriesID) (*Series, error) {
	if s, ok := c.tree.Get(id); ok {
		return s, nil
	}
	return c.Populate(ctx, id)
}

// Populate fetches series id and replaces it in the tree. Nothing is
// inserted unless every step succeeds. Concurrent calls for the same id
// share one fetch.
func (c *Client) Populate(ctx context.Context, id SeriesID) (*Series, error) {
	v, err, _ := c.group.Do(id.String(), func() (any, error) {
		s, err := c.populate(ctx, id)
		if err != nil {
			return nil, err
		}
		c.tree.put(s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Series), nil
}

// GetMany resolves and fetches several shows with at most limit requests
// in flight. Results are returned in the order of names.
func (c *Client) GetMany(ctx context.Context, names []string, limit int) ([]*Series, error) {
	if limit <= 0 {
		limit = 4
	}

	results := make([]*Series, len(names))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, name := range names {
		g.Go(func() error {
			s, err := c.Get(ctx, name)
			if err != nil {
				return fmt.Errorf("failed to get %q: %w", name, err)
			}
			results[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Languages returns the language abbreviations the provider accepts, sorted.
func (c *Client) Languages(ctx context.Context) ([]string, error) {
	raw, err := c.fetcher.fetch(ctx, c.endpoint("/languages"), c.opts.language)
	if err != nil {
		return nil, fmt.Errorf("failed to get languages: %w", err)
	}

	var langs []language
	if !isNull(raw) {
		if err := json.Unmarshal(raw, &langs); err != nil {
			return nil, &ProviderError{Message: "failed to parse languages", Err: err}
		}
	}

	abbrevs := make([]string, 0, len(langs))
	for _, l := range langs {
		abbrevs = append(abbrevs, l.Abbreviation)
	}
	slices.Sort(abbrevs)
	return abbrevs, nil
}

func (c *Client) endpoint(format string, args ...any) string {
	return c.opts.baseURL + fmt.Sprintf(format, args...)
}

func (c *Client) artwork(path string) string {
	return fmt.Sprintf(c.opts.artworkURL, path)
}

func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}
