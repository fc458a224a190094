package httpcache

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	bolt "go.etcd.io/bbolt"
)

var bucketResponses = []byte("responses")

// boltLockTimeout bounds how long one operation waits for the file lock
// held by another store or process.
const boltLockTimeout = 2 * time.Second

// BoltStore persists responses in a BoltDB file with a short-lived memory
// tier in front of it. Entries read from disk are promoted to memory.
//
// The file is opened per operation, read-only for lookups, so several
// stores and processes can share one cache path.
type BoltStore struct {
	path string
	mu   sync.Mutex
	mem  *cache.Cache
	ttl  time.Duration
	now  func() time.Time
}

// NewBoltStore opens or creates the database at path. memoryTTL bounds how
// long an entry stays in the memory tier; zero means five minutes.
func NewBoltStore(path string, memoryTTL time.Duration) (*BoltStore, error) {
	if memoryTTL <= 0 {
		memoryTTL = 5 * time.Minute
	}

	s := &BoltStore{
		path: path,
		mem:  cache.New(memoryTTL, 2*memoryTTL),
		ttl:  memoryTTL,
		now:  time.Now,
	}

	err := s.update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketResponses)
		return err
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (s *BoltStore) open(readOnly bool) (*bolt.DB, error) {
	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: boltLockTimeout, ReadOnly: readOnly})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	return db, nil
}

func (s *BoltStore) view(fn func(tx *bolt.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.open(true)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.View(fn)
}

func (s *BoltStore) update(fn func(tx *bolt.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	db, err := s.open(false)
	if err != nil {
		return err
	}
	defer db.Close()
	return db.Update(fn)
}

func (s *BoltStore) Get(key string) (*Entry, bool, error) {
	now := s.now()

	if v, ok := s.mem.Get(key); ok {
		entry := v.(*Entry)
		if entry.Expired(now) {
			return nil, false, nil
		}
		return entry, true, nil
	}

	var data []byte
	err := s.view(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResponses)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if data == nil {
		return nil, false, nil
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	if entry.Expired(now) {
		return nil, false, nil
	}

	s.mem.Set(key, &entry, s.memoryExpiration(&entry, now))
	return &entry, true, nil
}

func (s *BoltStore) Set(key string, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	s.mem.Set(key, entry, s.memoryExpiration(entry, s.now()))

	return s.update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketResponses)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), data)
	})
}

func (s *BoltStore) Has(key string) (bool, error) {
	_, ok, err := s.Get(key)
	return ok, err
}

func (s *BoltStore) Delete(key string) error {
	s.mem.Delete(key)
	return s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResponses)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

func (s *BoltStore) Clear() error {
	s.mem.Flush()
	return s.update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketResponses); err != nil && err != bolt.ErrBucketNotFound {
			return err
		}
		_, err := tx.CreateBucket(bucketResponses)
		return err
	})
}

// RemoveExpired deletes expired and undecodable entries.
func (s *BoltStore) RemoveExpired() (int, error) {
	now := s.now()
	s.mem.DeleteExpired()

	var removed int
	err := s.update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketResponses)
		if b == nil {
			return nil
		}

		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil || entry.Expired(now) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}

		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			s.mem.Delete(string(k))
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func (s *BoltStore) Len() (int, error) {
	var n int
	err := s.view(func(tx *bolt.Tx) error {
		if b := tx.Bucket(bucketResponses); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

// Close drops the memory tier. The file is not held between operations.
func (s *BoltStore) Close() error {
	if s == nil {
		return nil
	}
	s.mem.Flush()
	return nil
}

// memoryExpiration keeps an entry in memory no longer than the tier TTL or
// the entry's own expiry, whichever comes first.
func (s *BoltStore) memoryExpiration(entry *Entry, now time.Time) time.Duration {
	d := expiration(entry, now)
	if d == cache.NoExpiration || d > s.ttl {
		return s.ttl
	}
	return d
}
