package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// LocalConfig sizes the managed cache directory. MaxBytes <= 0 means
// unbounded by size; TTL <= 0 means entries never expire by age (the source
// watcher and LRU eviction still retire them).
type LocalConfig struct {
	Dir        string
	MaxEntries int
	MaxBytes   int64
	TTL        time.Duration
}

type localRecord struct {
	File       string    `json:"file"`
	Size       int64     `json:"size"`
	ExpiresAt  time.Time `json:"expires_at,omitempty"`
	AccessedAt time.Time `json:"accessed_at"`
}

type localIndex struct {
	Records map[string]localRecord `json:"records"`
}

// LocalStore is the service-owned cache directory: the fallback candidate
// when a graph can be written neither to the recorded pointer target nor
// next to its source dataset. Payloads live under dir/graphs with hashed
// names; a JSON index carries LRU order and expiry.
type LocalStore struct {
	mu sync.Mutex

	dir       string
	dataDir   string
	indexPath string

	maxEntries int
	maxBytes   int64
	ttl        time.Duration

	totalBytes int64
	records    map[string]localRecord
}

func NewLocalStore(cfg LocalConfig) (*LocalStore, error) {
	dir := strings.TrimSpace(cfg.Dir)
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 32
	}

	s := &LocalStore{
		dir:        dir,
		dataDir:    filepath.Join(dir, "graphs"),
		indexPath:  filepath.Join(dir, "index.json"),
		maxEntries: cfg.MaxEntries,
		maxBytes:   cfg.MaxBytes,
		ttl:        cfg.TTL,
		records:    map[string]localRecord{},
	}
	if err := os.MkdirAll(s.dataDir, 0o755); err != nil {
		return nil, err
	}
	if err := s.loadIndex(); err != nil {
		return nil, err
	}
	s.sweepLocked(time.Now())
	if err := s.persistIndexLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *LocalStore) Put(_ context.Context, address string, payload []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return fmt.Errorf("address is required")
	}

	now := time.Now()
	file := localFileName(address)
	path := filepath.Join(s.dataDir, file)

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.records[address]; ok {
		s.totalBytes -= old.Size
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return err
	}
	rec := localRecord{File: file, Size: int64(len(payload)), AccessedAt: now}
	if s.ttl > 0 {
		rec.ExpiresAt = now.Add(s.ttl)
	}
	s.records[address] = rec
	s.totalBytes += rec.Size

	s.sweepLocked(now)
	return s.persistIndexLocked()
}

func (s *LocalStore) Get(_ context.Context, address string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, fmt.Errorf("address is required")
	}

	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[address]
	if !ok {
		return nil, ErrNotFound
	}
	if rec.expired(now) {
		s.dropLocked(address, rec)
		_ = s.persistIndexLocked()
		return nil, ErrNotFound
	}
	raw, err := os.ReadFile(filepath.Join(s.dataDir, rec.File))
	if err != nil {
		if os.IsNotExist(err) {
			s.dropLocked(address, rec)
			_ = s.persistIndexLocked()
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.AccessedAt = now
	s.records[address] = rec
	_ = s.persistIndexLocked()
	return append([]byte(nil), raw...), nil
}

func (s *LocalStore) Exists(_ context.Context, address string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("store is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[strings.TrimSpace(address)]
	if !ok || rec.expired(time.Now()) {
		return false, nil
	}
	return true, nil
}

func (s *LocalStore) Kind() string { return "local" }

// Stats reports what the directory currently holds, for cache inspection.
type LocalStats struct {
	Dir        string   `json:"dir"`
	Entries    int      `json:"entries"`
	TotalBytes int64    `json:"total_bytes"`
	Addresses  []string `json:"addresses"`
}

func (s *LocalStore) Stats() LocalStats {
	if s == nil {
		return LocalStats{}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := LocalStats{Dir: s.dir, Entries: len(s.records), TotalBytes: s.totalBytes}
	for addr := range s.records {
		st.Addresses = append(st.Addresses, addr)
	}
	sort.Strings(st.Addresses)
	return st
}

// Purge removes every cached payload and resets the index.
func (s *LocalStore) Purge() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range s.records {
		_ = os.Remove(filepath.Join(s.dataDir, rec.File))
	}
	s.records = map[string]localRecord{}
	s.totalBytes = 0
	return s.persistIndexLocked()
}

func (r localRecord) expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

func (s *LocalStore) loadIndex() error {
	raw, err := os.ReadFile(s.indexPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	var idx localIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		// A corrupt index means the directory contents are unaccounted for;
		// start over rather than fail the whole cache.
		s.records = map[string]localRecord{}
		s.totalBytes = 0
		return nil
	}
	if idx.Records == nil {
		idx.Records = map[string]localRecord{}
	}
	s.records = idx.Records
	s.totalBytes = 0
	for _, rec := range s.records {
		s.totalBytes += rec.Size
	}
	return nil
}

func (s *LocalStore) sweepLocked(now time.Time) {
	for addr, rec := range s.records {
		if rec.expired(now) {
			s.dropLocked(addr, rec)
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dataDir, rec.File)); os.IsNotExist(err) {
			s.dropLocked(addr, rec)
		}
	}
	for s.overfullLocked() {
		addr, rec, ok := s.oldestLocked()
		if !ok {
			break
		}
		s.dropLocked(addr, rec)
	}
}

func (s *LocalStore) overfullLocked() bool {
	if len(s.records) == 0 {
		return false
	}
	if len(s.records) > s.maxEntries {
		return true
	}
	return s.maxBytes > 0 && s.totalBytes > s.maxBytes
}

func (s *LocalStore) oldestLocked() (string, localRecord, bool) {
	if len(s.records) == 0 {
		return "", localRecord{}, false
	}
	addrs := make([]string, 0, len(s.records))
	for addr := range s.records {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool {
		ai := s.records[addrs[i]].AccessedAt
		aj := s.records[addrs[j]].AccessedAt
		if ai.Equal(aj) {
			return addrs[i] < addrs[j]
		}
		return ai.Before(aj)
	})
	oldest := addrs[0]
	return oldest, s.records[oldest], true
}

func (s *LocalStore) dropLocked(address string, rec localRecord) {
	delete(s.records, address)
	s.totalBytes -= rec.Size
	if s.totalBytes < 0 {
		s.totalBytes = 0
	}
	_ = os.Remove(filepath.Join(s.dataDir, rec.File))
}

func (s *LocalStore) persistIndexLocked() error {
	raw, err := json.MarshalIndent(localIndex{Records: s.records}, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.indexPath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.indexPath)
}

func localFileName(address string) string {
	sum := sha256.Sum256([]byte(address))
	return hex.EncodeToString(sum[:]) + ".graph.json"
}
