package tvdb

import (
	"maps"
	"slices"
	"strconv"
	"sync"
	"time"
)

const (
	maxSeries     = 100
	sweepInterval = 20 * time.Second
)

// Tree owns every series the client has fetched. It keeps at most the 100
// most recently inserted series; eviction runs from insert no more than
// once per sweep interval.
type Tree struct {
	mu        sync.RWMutex
	series    map[SeriesID]*Series
	order     []SeriesID
	lastSweep time.Time
	now       func() time.Time
}

// NewTree creates an empty tree. now may be nil.
func NewTree(now func() time.Time) *Tree {
	if now == nil {
		now = time.Now
	}
	return &Tree{
		series:    make(map[SeriesID]*Series),
		lastSweep: now(),
		now:       now,
	}
}

// EnsureSeries returns the series for id, creating an empty one if needed.
func (t *Tree) EnsureSeries(id SeriesID) *Series {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ensureLocked(id)
}

func (t *Tree) ensureLocked(id SeriesID) *Series {
	if s, ok := t.series[id]; ok {
		return s
	}
	s := newSeries(id)
	t.insertLocked(s)
	return s
}

// put stores s, replacing any node with the same id.
func (t *Tree) put(s *Series) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.insertLocked(s)
}

func (t *Tree) insertLocked(s *Series) {
	if _, ok := t.series[s.id]; ok {
		t.order = slices.DeleteFunc(t.order, func(id SeriesID) bool { return id == s.id })
	}
	t.series[s.id] = s
	t.order = append(t.order, s.id)
	t.maybeSweepLocked()
}

func (t *Tree) maybeSweepLocked() {
	now := t.now()
	if now.Sub(t.lastSweep) < sweepInterval {
		return
	}
	t.sweepLocked()
	t.lastSweep = now
}

// Sweep evicts all but the most recently inserted series and returns how
// many were removed.
func (t *Tree) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := t.sweepLocked()
	t.lastSweep = t.now()
	return n
}

func (t *Tree) sweepLocked() int {
	if len(t.order) <= maxSeries {
		return 0
	}
	cut := len(t.order) - maxSeries
	for _, id := range t.order[:cut] {
		delete(t.series, id)
	}
	t.order = slices.Clone(t.order[cut:])
	return cut
}

// Get returns the series for id.
func (t *Tree) Get(id SeriesID) (*Series, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.series[id]
	return s, ok
}

// Len returns the number of series held.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.series)
}

// IDs returns the held series ids in insertion order.
func (t *Tree) IDs() []SeriesID {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return slices.Clone(t.order)
}

// SetAttribute sets a series-level attribute, creating the series if needed.
func (t *Tree) SetAttribute(id SeriesID, key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureLocked(id).attrs[key] = value
}

// SetEpisodeField sets one episode attribute, creating the series, season
// and episode as needed.
func (t *Tree) SetEpisodeField(id SeriesID, season, episode int, key string, value any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ensureLocked(id).setEpisodeField(season, episode, key, value)
}

// Season returns season n of series id.
func (t *Tree) Season(id SeriesID, n int) (*Season, error) {
	s, ok := t.Get(id)
	if !ok {
		return nil, &ShowNotFoundError{Query: id.String()}
	}
	return s.Season(n)
}

// Episode returns episode e of season n of series id.
func (t *Tree) Episode(id SeriesID, n, e int) (*Episode, error) {
	season, err := t.Season(id, n)
	if err != nil {
		return nil, err
	}
	return season.Episode(e)
}

// Series is one show: its attributes and the seasons it owns.
type Series struct {
	id      SeriesID
	attrs   map[string]any
	seasons map[int]*Season
}

func newSeries(id SeriesID) *Series {
	return &Series{
		id:      id,
		attrs:   make(map[string]any),
		seasons: make(map[int]*Season),
	}
}

// ID returns the series id.
func (s *Series) ID() SeriesID {
	return s.id
}

// Name returns the seriesName attribute, or "" when absent.
func (s *Series) Name() string {
	name, _ := s.attrs["seriesName"].(string)
	return name
}

// Attr returns a series attribute.
func (s *Series) Attr(key string) (any, error) {
	v, ok := s.attrs[key]
	if !ok {
		return nil, &AttributeNotFoundError{Key: key}
	}
	return v, nil
}

// Attributes returns a copy of the series attributes.
func (s *Series) Attributes() map[string]any {
	return maps.Clone(s.attrs)
}

// Season returns season n.
func (s *Series) Season(n int) (*Season, error) {
	season, ok := s.seasons[n]
	if !ok {
		return nil, &SeasonNotFoundError{SeriesID: s.id, Season: n}
	}
	return season, nil
}

// Lookup resolves key against season numbers first and attributes second.
// A numeric key that matches neither is reported as a missing season.
func (s *Series) Lookup(key string) (any, error) {
	n, numErr := strconv.Atoi(key)
	if numErr == nil {
		if season, ok := s.seasons[n]; ok {
			return season, nil
		}
	}
	if v, ok := s.attrs[key]; ok {
		return v, nil
	}
	if numErr == nil {
		return nil, &SeasonNotFoundError{SeriesID: s.id, Season: n}
	}
	return nil, &AttributeNotFoundError{Key: key}
}

// SeasonNumbers returns the season numbers in ascending order.
func (s *Series) SeasonNumbers() []int {
	return slices.Sorted(maps.Keys(s.seasons))
}

// Seasons returns the seasons in ascending order.
func (s *Series) Seasons() []*Season {
	nums := s.SeasonNumbers()
	seasons := make([]*Season, 0, len(nums))
	for _, n := range nums {
		seasons = append(seasons, s.seasons[n])
	}
	return seasons
}

// Episodes returns every episode in season then episode order.
func (s *Series) Episodes() []*Episode {
	var episodes []*Episode
	for _, season := range s.Seasons() {
		episodes = append(episodes, season.Episodes()...)
	}
	return episodes
}

// Actors returns the _actors attribute, or nil when actors were not fetched.
func (s *Series) Actors() []Actor {
	actors, _ := s.attrs["_actors"].([]Actor)
	return actors
}

// Banners returns the _banners attribute, or nil when banners were not fetched.
func (s *Series) Banners() Banners {
	banners, _ := s.attrs["_banners"].(Banners)
	return banners
}

func (s *Series) ensureSeason(n int) *Season {
	season, ok := s.seasons[n]
	if !ok {
		season = &Season{number: n, series: s, episodes: make(map[int]*Episode)}
		s.seasons[n] = season
	}
	return season
}

func (s *Series) setEpisodeField(season, episode int, key string, value any) {
	s.ensureSeason(season).ensureEpisode(episode).attrs[key] = value
}

// Season holds the episodes of one season number.
type Season struct {
	number   int
	series   *Series
	episodes map[int]*Episode
}

// Number returns the season number.
func (s *Season) Number() int {
	return s.number
}

// Series returns the owning series.
func (s *Season) Series() *Series {
	return s.series
}

// Episode returns episode n of the season.
func (s *Season) Episode(n int) (*Episode, error) {
	ep, ok := s.episodes[n]
	if !ok {
		return nil, &EpisodeNotFoundError{SeriesID: s.series.id, Season: s.number, Episode: n}
	}
	return ep, nil
}

// EpisodeNumbers returns the episode numbers in ascending order.
func (s *Season) EpisodeNumbers() []int {
	return slices.Sorted(maps.Keys(s.episodes))
}

// Episodes returns the episodes in ascending order.
func (s *Season) Episodes() []*Episode {
	nums := s.EpisodeNumbers()
	episodes := make([]*Episode, 0, len(nums))
	for _, n := range nums {
		episodes = append(episodes, s.episodes[n])
	}
	return episodes
}

// Len returns the number of episodes.
func (s *Season) Len() int {
	return len(s.episodes)
}

func (s *Season) ensureEpisode(n int) *Episode {
	ep, ok := s.episodes[n]
	if !ok {
		ep = &Episode{number: n, season: s, attrs: make(map[string]any)}
		s.episodes[n] = ep
	}
	return ep
}

// Episode is a flat set of attributes as returned by the provider.
type Episode struct {
	number int
	season *Season
	attrs  map[string]any
}

// Number returns the episode number within its season.
func (e *Episode) Number() int {
	return e.number
}

// Season returns the owning season.
func (e *Episode) Season() *Season {
	return e.season
}

// Attr returns an episode attribute.
func (e *Episode) Attr(key string) (any, error) {
	v, ok := e.attrs[key]
	if !ok {
		return nil, &AttributeNotFoundError{Key: key}
	}
	return v, nil
}

// Attributes returns a copy of the episode attributes.
func (e *Episode) Attributes() map[string]any {
	return maps.Clone(e.attrs)
}

// Name returns the episodeName attribute.
func (e *Episode) Name() string {
	return e.str("episodeName")
}

// FirstAired returns the firstAired attribute as YYYY-MM-DD, or "".
func (e *Episode) FirstAired() string {
	return e.str("firstAired")
}

// Overview returns the overview attribute.
func (e *Episode) Overview() string {
	return e.str("overview")
}

func (e *Episode) str(key string) string {
	v, _ := e.attrs[key].(string)
	return v
}

// String formats the episode as "<series> - S01E02 - <name>".
func (e *Episode) String() string {
	series := ""
	seasonNum := 0
	if e.season != nil {
		seasonNum = e.season.number
		if e.season.series != nil {
			series = e.season.series.Name()
		}
	}
	return series + " - S" + pad2(seasonNum) + "E" + pad2(e.number) + " - " + e.Name()
}

func pad2(n int) string {
	if n >= 0 && n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
