// Package blob reads and writes serialized graph payloads at addressed
// locations: plain filesystem paths, a managed local cache directory, a
// shared MinIO bucket, or process memory. Stores carry bytes only; encoding
// and cache policy live with the caller.
package blob

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound reports that no payload exists at the requested address.
var ErrNotFound = errors.New("graph payload not found")

// Store persists one payload per address.
type Store interface {
	Put(ctx context.Context, address string, payload []byte) error
	Get(ctx context.Context, address string) ([]byte, error)
	Exists(ctx context.Context, address string) (bool, error)

	// Kind names the backend ("disk", "local", "remote", "memory") for
	// feedback messages and metrics labels.
	Kind() string
}

// MemoryStore keeps payloads in process memory. Used in tests and for
// ephemeral runs that should never touch the filesystem.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, address string, payload []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("address is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[address] = append([]byte(nil), payload...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, address string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("address is required")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[address]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) Exists(_ context.Context, address string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("store is nil")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.data[strings.TrimSpace(address)]
	return ok, nil
}

func (s *MemoryStore) Kind() string { return "memory" }

// Addresses lists the stored addresses in sorted order.
func (s *MemoryStore) Addresses() []string {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for addr := range s.data {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}
