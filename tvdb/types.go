package tvdb

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// SeriesID identifies one series in the catalog.
type SeriesID int

// String returns the decimal form used in API paths.
func (id SeriesID) String() string {
	return strconv.Itoa(int(id))
}

// ParseSeriesID parses a decimal series id.
func ParseSeriesID(s string) (SeriesID, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid series id %q", s)
	}
	return SeriesID(n), nil
}

// SeriesCandidate is one result of a series search.
type SeriesCandidate struct {
	ID         SeriesID `json:"id"`
	SeriesName string   `json:"seriesName"`
	Aliases    []string `json:"aliases,omitempty"`
	Banner     string   `json:"banner,omitempty"`
	FirstAired string   `json:"firstAired,omitempty"`
	Network    string   `json:"network,omitempty"`
	Overview   string   `json:"overview,omitempty"`
	Slug       string   `json:"slug,omitempty"`
	Status     string   `json:"status,omitempty"`
	// Language is the language the search was issued in, not a provider field.
	Language string `json:"language,omitempty"`
}

// Actor is one cast member from the actors endpoint. Image is a full URL.
type Actor struct {
	ID          int    `json:"id"`
	SeriesID    int    `json:"seriesId"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	SortOrder   int    `json:"sortOrder"`
	Image       string `json:"image"`
	ImageAuthor int    `json:"imageAuthor"`
	ImageAdded  string `json:"imageAdded"`
	LastUpdated string `json:"lastUpdated"`
}

// Banner is one artwork record. URL is BannerPath expanded with the artwork prefix.
type Banner struct {
	ID         int    `json:"id"`
	BannerPath string `json:"bannerpath"`
	Resolution string `json:"resolution"`
	SubKey     string `json:"subKey"`
	URL        string `json:"_bannerpath"`
}

// BannerGroup holds the banners of one key type, by resolution then id,
// along with the unprocessed records they were built from.
type BannerGroup struct {
	ByResolution map[string]map[int]Banner
	Raw          []json.RawMessage
}

// Banners maps a key type (poster, fanart, season, series...) to its group.
type Banners map[string]*BannerGroup

// imageRecord is one entry of /series/{id}/images/query.
type imageRecord struct {
	ID         int     `json:"id"`
	KeyType    *string `json:"keyType"`
	SubKey     string  `json:"subKey"`
	FileName   string  `json:"fileName"`
	Resolution *string `json:"resolution"`
}

// language is one entry of /languages.
type language struct {
	ID           int    `json:"id"`
	Abbreviation string `json:"abbreviation"`
	Name         string `json:"name"`
	EnglishName  string `json:"englishName"`
}
