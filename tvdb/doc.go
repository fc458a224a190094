// Package tvdb provides a client for the TheTVDB v3 JSON API.
//
// The client resolves show names to series ids, fetches series info,
// artwork, cast and every episode, and assembles them into an in-memory
// tree of series, seasons and episodes.
//
// # Architecture
//
// The package is organized into several components:
//
//   - Client: search, name resolution and on-demand population
//   - Tree: the series -> season -> episode hierarchy with bounded eviction
//   - Selector: picks one series from search results (first result or console prompt)
//   - CacheKey: the request fingerprint shared with the caching transport
//   - Errors: sentinel and typed errors for every not-found level
//
// # Usage
//
//	client, err := tvdb.New(apiKey,
//		tvdb.WithLanguage("en"),
//		tvdb.WithHTTPClient(&http.Client{Transport: cachingTransport}),
//		tvdb.WithCacheProbe(cachingTransport),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	series, err := client.Get(ctx, "scrubs")
//	if err != nil {
//		log.Fatal(err)
//	}
//	season, _ := series.Season(1)
//	ep, _ := season.Episode(24)
//	fmt.Println(ep.Name())
//
// # Caching and authorization
//
// A login round-trip is only made when the request about to be sent is not
// already answerable from the response cache. The cache key ignores the
// Authorization header, which changes every session, and includes
// Accept-Language, which changes the payload.
//
// # Errors
//
// Lookups fail with typed errors that match the sentinels through errors.Is:
//
//	if errors.Is(err, tvdb.ErrEpisodeNotFound) {
//		// ...
//	}
//
// No request is ever retried; a rejected token surfaces as ErrNotAuthorized.
package tvdb
