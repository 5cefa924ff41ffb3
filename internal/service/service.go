// Package service ties the pieces together: datasets resolve to cached or
// freshly built graphs, and traces run against them. Persistence failures
// never fail a trace; a valid in-memory graph always completes the request.
package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"pipetrace/internal/dataset"
	"pipetrace/internal/feedback"
	"pipetrace/internal/graphcache"
	"pipetrace/internal/metrics"
	"pipetrace/internal/network"
)

// ErrUnknownDataset marks requests that name a dataset no manifest declares.
var ErrUnknownDataset = errors.New("unknown dataset")

// Options wires a Service. Locator is required; everything else degrades to
// a quiet default.
type Options struct {
	Locator *graphcache.Locator
	Sink    feedback.Sink
	Metrics *metrics.Collector

	// MemoryEntries bounds the decoded-graph LRU (default 16). MemoryTTL of
	// zero keeps entries until evicted or invalidated.
	MemoryEntries int
	MemoryTTL     time.Duration
}

type Service struct {
	locator *graphcache.Locator
	sink    feedback.Sink
	metrics *metrics.Collector

	graphs *expirable.LRU[string, *network.Graph]

	mu            sync.RWMutex
	manifests     map[string]*dataset.Manifest
	keysByDataset map[string]map[string]struct{}

	// dirty marks datasets whose sources changed since the last build. A
	// re-exported file keeps its basename and therefore its cache key, so
	// the next request must rebuild instead of trusting persisted payloads.
	dirty map[string]struct{}
}

func New(opts Options) (*Service, error) {
	if opts.Locator == nil {
		return nil, fmt.Errorf("locator is required")
	}
	if opts.Sink == nil {
		opts.Sink = feedback.Discard{}
	}
	if opts.MemoryEntries <= 0 {
		opts.MemoryEntries = 16
	}
	return &Service{
		locator:       opts.Locator,
		sink:          opts.Sink,
		metrics:       opts.Metrics,
		graphs:        expirable.NewLRU[string, *network.Graph](opts.MemoryEntries, nil, opts.MemoryTTL),
		manifests:     make(map[string]*dataset.Manifest),
		keysByDataset: make(map[string]map[string]struct{}),
		dirty:         make(map[string]struct{}),
	}, nil
}

// AddManifest registers a dataset. Re-registering a name replaces the old
// manifest and drops its decoded graphs.
func (s *Service) AddManifest(m *dataset.Manifest) error {
	if s == nil {
		return fmt.Errorf("service is nil")
	}
	if m == nil || strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("manifest has no name")
	}
	s.mu.Lock()
	_, replaced := s.manifests[m.Name]
	s.manifests[m.Name] = m
	s.mu.Unlock()
	if replaced {
		s.Invalidate([]string{m.Name})
	}
	return nil
}

// LoadManifestDir registers every *.yaml / *.yml manifest under dir. A file
// that fails to parse is a warning, not a failure: one broken manifest must
// not take the service down.
func (s *Service) LoadManifestDir(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read manifest dir: %w", err)
	}
	loaded := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		m, err := dataset.Load(filepath.Join(dir, e.Name()))
		if err != nil {
			feedback.Warnf(s.sink, "skipping manifest %s: %v", e.Name(), err)
			continue
		}
		if err := s.AddManifest(m); err != nil {
			feedback.Warnf(s.sink, "skipping manifest %s: %v", e.Name(), err)
			continue
		}
		loaded++
	}
	return loaded, nil
}

// Manifest looks a dataset up by name.
func (s *Service) Manifest(name string) (*dataset.Manifest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.manifests[name]
	return m, ok
}

// Datasets lists registered dataset names, sorted.
func (s *Service) Datasets() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.manifests))
	for name := range s.manifests {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invalidate drops decoded graphs for the named datasets. The watcher calls
// this when source files change; persisted cache files stay put and are
// judged by key on the next lookup.
func (s *Service) Invalidate(datasets []string) {
	if s == nil {
		return
	}
	s.mu.Lock()
	var keys []string
	for _, name := range datasets {
		for key := range s.keysByDataset[name] {
			keys = append(keys, key)
		}
		delete(s.keysByDataset, name)
		if _, ok := s.manifests[name]; ok {
			s.dirty[name] = struct{}{}
		}
	}
	s.mu.Unlock()

	for _, key := range keys {
		s.graphs.Remove(key)
	}
	if len(keys) > 0 {
		feedback.Infof(s.sink, "dropped %d decoded graph(s) after source change", len(keys))
	}
}

func (s *Service) rememberKey(datasetName, key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys, ok := s.keysByDataset[datasetName]
	if !ok {
		keys = make(map[string]struct{})
		s.keysByDataset[datasetName] = keys
	}
	keys[key] = struct{}{}
}

// takeDirty reports whether the dataset changed since its last build and
// clears the mark.
func (s *Service) takeDirty(datasetName string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dirty[datasetName]; !ok {
		return false
	}
	delete(s.dirty, datasetName)
	return true
}
