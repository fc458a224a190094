package tvdb

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const airDateKey = "firstAired"

// Match reports whether any attribute of the episode contains term,
// ignoring case. When key is non-empty only that attribute is compared.
// Attributes with no value never match.
func (e *Episode) Match(term, key string) bool {
	term = strings.ToLower(term)
	if key != "" {
		v, ok := e.attrs[key]
		return ok && containsFold(v, term)
	}
	for _, v := range e.attrs {
		if containsFold(v, term) {
			return true
		}
	}
	return false
}

// Search returns the matching episodes of the season in episode order.
func (s *Season) Search(term, key string) []*Episode {
	matches := []*Episode{}
	for _, ep := range s.Episodes() {
		if ep.Match(term, key) {
			matches = append(matches, ep)
		}
	}
	return matches
}

// Search returns the matching episodes of the series in season then
// episode order.
//
//	series.Search("mentor", "episodeName")
func (s *Series) Search(term, key string) []*Episode {
	matches := []*Episode{}
	for _, season := range s.Seasons() {
		matches = append(matches, season.Search(term, key)...)
	}
	return matches
}

// AiredOn returns the episodes first aired on date. Unlike Search an empty
// result is an error.
func (s *Series) AiredOn(date time.Time) ([]*Episode, error) {
	day := date.Format(time.DateOnly)
	matches := s.Search(day, airDateKey)
	if len(matches) == 0 {
		return nil, &EpisodeNotFoundError{
			SeriesID: s.id,
			Reason:   fmt.Sprintf("could not find any episodes that aired on %s", day),
		}
	}
	return matches, nil
}

// Search runs Series.Search over every held series in insertion order.
func (t *Tree) Search(term, key string) []*Episode {
	t.mu.RLock()
	defer t.mu.RUnlock()

	matches := []*Episode{}
	for _, id := range t.order {
		matches = append(matches, t.series[id].Search(term, key)...)
	}
	return matches
}

// AiredOn returns the episodes of every held series first aired on date.
func (t *Tree) AiredOn(date time.Time) ([]*Episode, error) {
	day := date.Format(time.DateOnly)
	matches := t.Search(day, airDateKey)
	if len(matches) == 0 {
		return nil, &EpisodeNotFoundError{
			Reason: fmt.Sprintf("could not find any episodes that aired on %s", day),
		}
	}
	return matches, nil
}

func containsFold(v any, lowerTerm string) bool {
	s, ok := stringify(v)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(s), lowerTerm)
}

// stringify renders an attribute value for text matching.
func stringify(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case json.Number:
		return val.String(), true
	case bool:
		return strconv.FormatBool(val), true
	case int:
		return strconv.Itoa(val), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case fmt.Stringer:
		return val.String(), true
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val), true
		}
		return string(b), true
	}
}
