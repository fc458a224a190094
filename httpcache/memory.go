package httpcache

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps responses in process memory only.
type MemoryStore struct {
	items *cache.Cache
	now   func() time.Time
}

// NewMemoryStore creates an empty memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: cache.New(cache.NoExpiration, 10*time.Minute),
		now:   time.Now,
	}
}

func (s *MemoryStore) Get(key string) (*Entry, bool, error) {
	v, ok := s.items.Get(key)
	if !ok {
		return nil, false, nil
	}
	entry := v.(*Entry)
	if entry.Expired(s.now()) {
		return nil, false, nil
	}
	return entry, true, nil
}

func (s *MemoryStore) Set(key string, entry *Entry) error {
	s.items.Set(key, entry, expiration(entry, s.now()))
	return nil
}

func (s *MemoryStore) Has(key string) (bool, error) {
	_, ok, err := s.Get(key)
	return ok, err
}

func (s *MemoryStore) Delete(key string) error {
	s.items.Delete(key)
	return nil
}

func (s *MemoryStore) Clear() error {
	s.items.Flush()
	return nil
}

func (s *MemoryStore) RemoveExpired() (int, error) {
	now := s.now()
	removed := 0
	for key, item := range s.items.Items() {
		if entry, ok := item.Object.(*Entry); ok && entry.Expired(now) {
			s.items.Delete(key)
			removed++
		}
	}
	s.items.DeleteExpired()
	return removed, nil
}

func (s *MemoryStore) Len() (int, error) {
	return s.items.ItemCount(), nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// expiration converts an entry's expiry into a go-cache duration.
func expiration(entry *Entry, now time.Time) time.Duration {
	if entry.ExpiresAt.IsZero() {
		return cache.NoExpiration
	}
	d := entry.ExpiresAt.Sub(now)
	if d <= 0 {
		// go-cache treats 0 as the default expiration
		return time.Nanosecond
	}
	return d
}
