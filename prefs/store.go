package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble/v2"
)

// Well-known preference keys.
const (
	KeyTheme    = "theme"
	KeyUsername = "username"
	KeyCookies  = "cookies"
)

// ErrNotFound is returned by Get when a key has never been written.
var ErrNotFound = errors.New("prefs: key not found")

// KV is the persisted key/value surface the components read and write.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Lookup returns the stored value for key, or def when it is missing or unreadable.
func Lookup(kv KV, key, def string) string {
	if kv == nil {
		return def
	}
	v, err := kv.Get(key)
	if err != nil || v == "" {
		return def
	}
	return v
}

// Store persists preferences in a PebbleDB key-value store.
// Keys are stored verbatim, values as raw bytes.
type Store struct {
	db *pebble.DB
}

// Open opens (or creates) the preference store rooted at dir.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("prefs: empty data path")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data path: %w", err)
	}
	db, err := pebble.Open(filepath.Join(filepath.Clean(dir), "prefs"), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble db: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(key string) (string, error) {
	data, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("get %q: %w", key, err)
	}
	defer closer.Close()
	return string(data), nil
}

func (s *Store) Set(key, value string) error {
	if err := s.db.Set([]byte(key), []byte(value), pebble.Sync); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Memory is a process-local KV, used when no data path is configured.
type Memory struct {
	mu     sync.RWMutex
	values map[string]string
}

func NewMemory() *Memory {
	return &Memory{values: map[string]string{}}
}

func (m *Memory) Get(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(key, value string) error {
	m.mu.Lock()
	m.values[key] = value
	m.mu.Unlock()
	return nil
}
