// Package pointer records which cache location last held the graph for a
// (dataset, direction) pair. The recorded pointer is the fast-path cache
// candidate: authoritative when present and readable, harmless when stale
// because readers fall back to the deterministic default location.
package pointer

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/jackc/pgx/v5/stdlib"

	"pipetrace/internal/network"
)

// Registry is the injected two-operation capability the cache layer sees.
type Registry interface {
	Get(ctx context.Context, dataset string, direction network.Direction) (string, bool)
	Set(ctx context.Context, dataset string, direction network.Direction, location string) error
}

const (
	backendFile     = "file"
	backendPostgres = "postgres"

	// Environment keys honored by NewFromEnv.
	EnvPointerDSN  = "PIPETRACE_POINTER_DSN"
	EnvPointerFile = "PIPETRACE_POINTER_FILE"

	defaultPointerFile = "pipetrace-pointers.json"
)

// Store implements Registry over a JSON file or Postgres, with a small LRU in
// front so hot datasets skip the backend on reads.
type Store struct {
	backend string

	mu       sync.RWMutex
	loadOnce sync.Once
	path     string
	entries  map[string]fileEntry

	db         *sql.DB
	schemaOnce sync.Once
	schemaErr  error

	cache *lru.Cache[string, string]
}

type fileEntry struct {
	Location  string
	UpdatedAt time.Time
}

// NewFile returns a Store persisting pointers as a JSON file at path.
func NewFile(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("path is required")
	}
	cache, err := lru.New[string, string](256)
	if err != nil {
		return nil, err
	}
	return &Store{
		backend: backendFile,
		path:    path,
		entries: make(map[string]fileEntry),
		cache:   cache,
	}, nil
}

// NewPostgres returns a Store backed by the given DSN via the pgx stdlib
// driver. The schema bootstraps lazily on first use.
func NewPostgres(dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("dsn is required")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	cache, err := lru.New[string, string](256)
	if err != nil {
		return nil, err
	}
	return &Store{backend: backendPostgres, db: db, cache: cache}, nil
}

// NewFromEnv picks Postgres when PIPETRACE_POINTER_DSN is set, otherwise a
// JSON file at PIPETRACE_POINTER_FILE (default pipetrace-pointers.json in the
// working directory).
func NewFromEnv() (*Store, error) {
	if dsn := strings.TrimSpace(os.Getenv(EnvPointerDSN)); dsn != "" {
		return NewPostgres(dsn)
	}
	path := strings.TrimSpace(os.Getenv(EnvPointerFile))
	if path == "" {
		path = defaultPointerFile
	}
	return NewFile(path)
}

func (s *Store) Get(ctx context.Context, dataset string, direction network.Direction) (string, bool) {
	if s == nil {
		return "", false
	}
	dataset = strings.TrimSpace(dataset)
	if dataset == "" || !direction.Valid() {
		return "", false
	}
	key := cacheKey(dataset, direction)
	if loc, ok := s.cache.Get(key); ok {
		return loc, loc != ""
	}

	var loc string
	var ok bool
	switch s.backend {
	case backendPostgres:
		loc, ok = s.getPostgres(ctx, dataset, direction)
	default:
		loc, ok = s.getFile(dataset, direction)
	}
	if ok {
		s.cache.Add(key, loc)
	}
	return loc, ok
}

func (s *Store) Set(ctx context.Context, dataset string, direction network.Direction, location string) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	dataset = strings.TrimSpace(dataset)
	location = strings.TrimSpace(location)
	if dataset == "" {
		return fmt.Errorf("dataset is required")
	}
	if !direction.Valid() {
		return fmt.Errorf("unknown direction %q", direction)
	}
	if location == "" {
		return fmt.Errorf("location is required")
	}

	var err error
	switch s.backend {
	case backendPostgres:
		err = s.setPostgres(ctx, dataset, direction, location)
	default:
		err = s.setFile(dataset, direction, location)
	}
	if err != nil {
		return err
	}
	s.cache.Add(cacheKey(dataset, direction), location)
	return nil
}

// Close releases the database handle, if any.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func cacheKey(dataset string, direction network.Direction) string {
	return dataset + "\x00" + direction.String()
}

// Memory is a map-backed Registry for tests and ephemeral runs.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]string
}

func NewMemory() *Memory {
	return &Memory{entries: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, dataset string, direction network.Direction) (string, bool) {
	if m == nil {
		return "", false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	loc, ok := m.entries[cacheKey(strings.TrimSpace(dataset), direction)]
	return loc, ok && loc != ""
}

func (m *Memory) Set(_ context.Context, dataset string, direction network.Direction, location string) error {
	if m == nil {
		return fmt.Errorf("registry is nil")
	}
	dataset = strings.TrimSpace(dataset)
	if dataset == "" {
		return fmt.Errorf("dataset is required")
	}
	if !direction.Valid() {
		return fmt.Errorf("unknown direction %q", direction)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[cacheKey(dataset, direction)] = strings.TrimSpace(location)
	return nil
}
