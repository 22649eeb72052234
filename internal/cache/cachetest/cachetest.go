// Package cachetest provides an in-process cache.Store for tests.
package cachetest

import (
	"context"
	"sync"
	"time"

	"github.com/Additional-Code/florex/internal/cache"
)

// Store keeps entries in a map and ignores TTLs.
type Store struct {
	mu      sync.Mutex
	entries map[string][]byte
	// GetErr, when set, is returned by every Get.
	GetErr error
}

var _ cache.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{entries: make(map[string][]byte)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	v, ok := s.entries[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return append([]byte(nil), v...), nil
}

func (s *Store) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = append([]byte(nil), value...)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Has reports whether key is cached.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}
