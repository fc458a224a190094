package tvdb

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors
var (
	// ErrMissingAPIKey indicates the client was constructed without an API key
	ErrMissingAPIKey = errors.New("tvdb API key is required")
	// ErrNotAuthorized indicates the provider rejected the credentials or token
	ErrNotAuthorized = errors.New("not authorized")
	// ErrShowNotFound indicates no series matched a name or id
	ErrShowNotFound = errors.New("show not found")
	// ErrSeasonNotFound indicates a series has no such season
	ErrSeasonNotFound = errors.New("season not found")
	// ErrEpisodeNotFound indicates a season has no such episode
	ErrEpisodeNotFound = errors.New("episode not found")
	// ErrAttributeNotFound indicates a node has no such attribute
	ErrAttributeNotFound = errors.New("attribute not found")
	// ErrUserAbort indicates the selector declined to choose a series
	ErrUserAbort = errors.New("user aborted")
)

// ShowNotFoundError carries the name or id that could not be resolved.
type ShowNotFoundError struct {
	Query   string
	Message string
}

func (e *ShowNotFoundError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("show not found: %s", e.Message)
	}
	return fmt.Sprintf("show not found: %q", e.Query)
}

// Is reports whether target is ErrShowNotFound.
func (e *ShowNotFoundError) Is(target error) bool {
	return target == ErrShowNotFound
}

// SeasonNotFoundError is returned when a series has no season with the given number.
type SeasonNotFoundError struct {
	SeriesID SeriesID
	Season   int
}

func (e *SeasonNotFoundError) Error() string {
	return fmt.Sprintf("series %d: could not find season %d", e.SeriesID, e.Season)
}

// Is reports whether target is ErrSeasonNotFound.
func (e *SeasonNotFoundError) Is(target error) bool {
	return target == ErrSeasonNotFound
}

// EpisodeNotFoundError is returned when an episode lookup or air-date search misses.
type EpisodeNotFoundError struct {
	SeriesID SeriesID
	Season   int
	Episode  int
	Reason   string
}

func (e *EpisodeNotFoundError) Error() string {
	if e.Reason != "" {
		if e.SeriesID == 0 {
			return e.Reason
		}
		return fmt.Sprintf("series %d: %s", e.SeriesID, e.Reason)
	}
	return fmt.Sprintf("series %d: could not find episode %d in season %d", e.SeriesID, e.Episode, e.Season)
}

// Is reports whether target is ErrEpisodeNotFound.
func (e *EpisodeNotFoundError) Is(target error) bool {
	return target == ErrEpisodeNotFound
}

// AttributeNotFoundError names the missing attribute key.
type AttributeNotFoundError struct {
	Key string
}

func (e *AttributeNotFoundError) Error() string {
	return fmt.Sprintf("cannot find attribute %q", e.Key)
}

// Is reports whether target is ErrAttributeNotFound.
func (e *AttributeNotFoundError) Is(target error) bool {
	return target == ErrAttributeNotFound
}

// ProviderError is any failure reported by the catalog API or the transport
// underneath it. Message is the provider's text when there is one.
type ProviderError struct {
	StatusCode int
	Message    string
	Err        error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("tvdb API error: status %d: %s: %v", e.StatusCode, e.Message, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("tvdb API error: status %d: %s", e.StatusCode, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("tvdb API error: %s: %v", e.Message, e.Err)
	default:
		return fmt.Sprintf("tvdb API error: %s", e.Message)
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsNotFound checks if the error indicates a not found response
func (e *ProviderError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized checks if the error indicates an authentication failure
func (e *ProviderError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
