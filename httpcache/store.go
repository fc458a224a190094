package httpcache

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Backend names accepted by Open.
const (
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
	BackendNone   = "none"
)

// ErrNoStore is returned by Transport.Has when caching is disabled.
var ErrNoStore = errors.New("httpcache: no store configured")

// Entry is one stored response. A zero ExpiresAt never expires.
type Entry struct {
	StatusCode int         `json:"status"`
	Header     http.Header `json:"header"`
	Body       []byte      `json:"body"`
	StoredAt   time.Time   `json:"stored_at"`
	ExpiresAt  time.Time   `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at now.
func (e *Entry) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && !now.Before(e.ExpiresAt)
}

// Store persists responses by cache key. Expired entries are misses for
// Get and Has even before RemoveExpired deletes them.
type Store interface {
	Get(key string) (*Entry, bool, error)
	Set(key string, entry *Entry) error
	Has(key string) (bool, error)
	Delete(key string) error
	Clear() error
	RemoveExpired() (int, error)
	Len() (int, error)
	Close() error
}

// Options selects and configures a store backend.
type Options struct {
	Backend string
	// Path is the directory holding the database file.
	Path string
	// MemoryTTL bounds how long the bolt backend keeps entries in its
	// in-process tier.
	MemoryTTL time.Duration
	Logger    zerolog.Logger
}

// Open creates the configured store. BackendNone returns a nil store,
// which a Transport treats as pass-through. Stores opened on the same path,
// in one process or several, share their entries.
func Open(opts Options) (Store, error) {
	switch opts.Backend {
	case BackendNone:
		return nil, nil
	case BackendMemory:
		return NewMemoryStore(), nil
	case BackendBolt, BackendSQLite:
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}

	if opts.Path == "" {
		return nil, fmt.Errorf("cache path is required for the %s backend", opts.Backend)
	}
	if err := os.MkdirAll(opts.Path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	opts.Logger.Debug().Str("backend", opts.Backend).Str("path", opts.Path).Msg("Opening response cache")

	if opts.Backend == BackendSQLite {
		s, err := NewSQLiteStore(filepath.Join(opts.Path, "tvcatalog.sqlite3"))
		if err != nil {
			return nil, err
		}
		return s, nil
	}

	s, err := NewBoltStore(filepath.Join(opts.Path, "tvcatalog.db"), opts.MemoryTTL)
	if err != nil {
		return nil, err
	}
	return s, nil
}
