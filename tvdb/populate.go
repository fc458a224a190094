package tvdb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"net/url"
	"slices"
)

// artworkKeys are series attributes holding relative artwork paths.
var artworkKeys = map[string]bool{
	"banner": true,
	"fanart": true,
	"poster": true,
}

// populate fetches series info, banners and actors when enabled, then every
// episode, into a series that is not yet reachable from the tree.
func (c *Client) populate(ctx context.Context, id SeriesID) (*Series, error) {
	language := c.opts.language
	logger := c.logger.With().Int("series_id", int(id)).Logger()
	s := newSeries(id)

	logger.Debug().Msg("Getting series info")
	raw, err := c.fetcher.fetch(ctx, c.endpoint("/series/%d", id), language)
	if err != nil {
		return nil, fmt.Errorf("failed to get series %d: %w", id, err)
	}
	info, err := decodeAttrs(raw)
	if err != nil {
		return nil, err
	}
	if len(info) == 0 {
		return nil, &ShowNotFoundError{Query: id.String(), Message: fmt.Sprintf("ID: %d not found", id)}
	}
	for key, value := range info {
		if artworkKeys[key] {
			value = c.artworkValue(value)
		}
		s.attrs[key] = value
	}
	s.attrs["language"] = language

	if c.opts.banners {
		logger.Debug().Msg("Getting banners")
		banners, err := c.fetchBanners(ctx, id, language)
		if err != nil {
			return nil, fmt.Errorf("failed to get banners for series %d: %w", id, err)
		}
		s.attrs["_banners"] = banners
	}

	if c.opts.actors {
		logger.Debug().Msg("Getting actors")
		actors, err := c.fetchActors(ctx, id, language)
		if err != nil {
			return nil, fmt.Errorf("failed to get actors for series %d: %w", id, err)
		}
		s.attrs["_actors"] = actors
	}

	logger.Debug().Msg("Getting all episodes")
	raw, err = c.fetcher.fetch(ctx, c.endpoint("/series/%d/episodes", id), language)
	if err != nil {
		return nil, fmt.Errorf("failed to get episodes of series %d: %w", id, err)
	}
	episodes, err := decodeAttrList(raw)
	if err != nil {
		return nil, err
	}

	var skipped int
	for _, ep := range episodes {
		season, number, ok := c.episodeNumbers(ep)
		if !ok {
			skipped++
			logger.Warn().
				Interface("season", ep["airedSeason"]).
				Interface("episode", ep["airedEpisodeNumber"]).
				Msg("Episode has incomplete season/episode number, skipping")
			continue
		}
		for key, value := range ep {
			if key == "filename" {
				value = c.artworkValue(value)
			}
			s.setEpisodeField(season, number, key, value)
		}
	}

	logger.Debug().
		Int("seasons", len(s.seasons)).
		Int("episodes", len(episodes)-skipped).
		Int("skipped", skipped).
		Msg("Series populated")

	return s, nil
}

// episodeNumbers picks the DVD pair when DVD order is on and both numbers
// are integral, the aired pair otherwise.
func (c *Client) episodeNumbers(ep map[string]any) (season, episode int, ok bool) {
	if c.opts.dvdOrder && ep["dvdSeason"] != nil && ep["dvdEpisodeNumber"] != nil {
		if season, episode, ok := intPair(ep["dvdSeason"], ep["dvdEpisodeNumber"]); ok {
			return season, episode, true
		}
		c.logger.Debug().
			Interface("dvd_season", ep["dvdSeason"]).
			Interface("dvd_episode", ep["dvdEpisodeNumber"]).
			Msg("DVD number is not integral, using aired order")
	}
	return intPair(ep["airedSeason"], ep["airedEpisodeNumber"])
}

func intPair(a, b any) (int, int, bool) {
	x, aok := toInt(a)
	y, bok := toInt(b)
	return x, y, aok && bok
}

func (c *Client) fetchBanners(ctx context.Context, id SeriesID, language string) (Banners, error) {
	raw, err := c.fetcher.fetch(ctx, c.endpoint("/series/%d/images", id), language)
	if err != nil {
		return nil, err
	}

	banners := Banners{}
	if isNull(raw) {
		return banners, nil
	}

	var counts map[string]json.RawMessage
	if err := json.Unmarshal(raw, &counts); err != nil {
		return nil, &ProviderError{Message: "failed to parse image summary", Err: err}
	}

	for _, keyType := range slices.Sorted(maps.Keys(counts)) {
		raw, err := c.fetcher.fetch(ctx, c.endpoint("/series/%d/images/query?keyType=%s", id, url.QueryEscape(keyType)), language)
		if err != nil {
			return nil, err
		}

		var records []json.RawMessage
		if !isNull(raw) {
			if err := json.Unmarshal(raw, &records); err != nil {
				return nil, &ProviderError{Message: "failed to parse images of type " + keyType, Err: err}
			}
		}

		for _, rawRec := range records {
			var rec imageRecord
			if err := json.Unmarshal(rawRec, &rec); err != nil {
				return nil, &ProviderError{Message: "failed to parse image record", Err: err}
			}
			if rec.KeyType == nil || rec.Resolution == nil {
				continue
			}
			group := banners.group(*rec.KeyType)
			byID, ok := group.ByResolution[*rec.Resolution]
			if !ok {
				byID = make(map[int]Banner)
				group.ByResolution[*rec.Resolution] = byID
			}
			byID[rec.ID] = Banner{
				ID:         rec.ID,
				BannerPath: rec.FileName,
				Resolution: *rec.Resolution,
				SubKey:     rec.SubKey,
				URL:        c.artwork(rec.FileName),
			}
		}

		banners.group(keyType).Raw = records
	}

	return banners, nil
}

func (b Banners) group(keyType string) *BannerGroup {
	g, ok := b[keyType]
	if !ok {
		g = &BannerGroup{ByResolution: make(map[string]map[int]Banner)}
		b[keyType] = g
	}
	return g
}

func (c *Client) fetchActors(ctx context.Context, id SeriesID, language string) ([]Actor, error) {
	raw, err := c.fetcher.fetch(ctx, c.endpoint("/series/%d/actors", id), language)
	if err != nil {
		return nil, err
	}

	actors := []Actor{}
	if isNull(raw) {
		return actors, nil
	}
	if err := json.Unmarshal(raw, &actors); err != nil {
		return nil, &ProviderError{Message: "failed to parse actors", Err: err}
	}
	for i := range actors {
		if actors[i].Image != "" {
			actors[i].Image = c.artwork(actors[i].Image)
		}
	}
	return actors, nil
}

// artworkValue expands a non-empty relative path; anything else is kept.
func (c *Client) artworkValue(v any) any {
	if path, ok := v.(string); ok && path != "" {
		return c.artwork(path)
	}
	return v
}

func decodeAttrs(raw json.RawMessage) (map[string]any, error) {
	if isNull(raw) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var attrs map[string]any
	if err := dec.Decode(&attrs); err != nil {
		return nil, &ProviderError{Message: "failed to parse record", Err: err}
	}
	return attrs, nil
}

func decodeAttrList(raw json.RawMessage) ([]map[string]any, error) {
	if isNull(raw) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var list []map[string]any
	if err := dec.Decode(&list); err != nil {
		return nil, &ProviderError{Message: "failed to parse record list", Err: err}
	}
	return list, nil
}

// toInt converts a decoded JSON number holding an integral value.
func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int(f), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	}
	return 0, false
}
