// Package storage persists the small amount of client-side state the
// storefront keeps between runs: the guest cart id and the access token.
// Everything else is owned by the backend.
package storage

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-faster/errors"
)

// Storage keys. The values are opaque to this package; validation belongs to
// the consumers (the cart engine normalizes the guest id, the session checks
// the token).
const (
	GuestCartKey = "RC_GUEST_CART_ID"
	TokenKey     = "RC_ACCESS_TOKEN"
)

// Store is a small string key-value store. Absent keys are a normal state,
// not an error; only I/O failures surface as errors.
type Store interface {
	Get(key string) (string, bool)
	Set(key, value string) error
	Delete(key string) error
}

// FileStore keeps values in a single JSON file. It is safe for concurrent
// use within one process; concurrent processes may race on writes, which is
// an accepted limitation of the client storage model.
type FileStore struct {
	path string

	mu     sync.Mutex
	values map[string]string
}

// OpenFile loads (or initializes) a FileStore at path. A missing or
// unreadable file starts empty rather than failing: malformed client storage
// must never prevent startup.
func OpenFile(path string) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, errors.Wrap(err, "create storage dir")
	}
	s := &FileStore{path: path, values: make(map[string]string)}
	raw, err := os.ReadFile(path)
	if err == nil {
		// Corrupt content is discarded, same as an absent file.
		_ = json.Unmarshal(raw, &s.values)
		if s.values == nil {
			s.values = make(map[string]string)
		}
	}
	return s, nil
}

func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flush()
}

func (s *FileStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.values[key]; !ok {
		return nil
	}
	delete(s.values, key)
	return s.flush()
}

// flush writes the whole map atomically via a temp file rename. Caller holds
// the lock.
func (s *FileStore) flush() error {
	raw, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal storage")
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return errors.Wrap(err, "write storage")
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return errors.Wrap(err, "replace storage")
	}
	return nil
}

// MemStore is an in-memory Store for tests and ephemeral sessions.
type MemStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMem creates an empty MemStore.
func NewMem() *MemStore {
	return &MemStore{values: make(map[string]string)}
}

func (s *MemStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *MemStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

func (s *MemStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
	return nil
}
