package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DiskStore reads and writes payloads at plain filesystem paths. This backs
// the default cache location colocated with a source dataset and whatever
// absolute paths recorded pointers name. Writes go through a temp file and
// rename so readers never observe a half-written graph.
type DiskStore struct{}

func NewDiskStore() *DiskStore { return &DiskStore{} }

func (s *DiskStore) Put(_ context.Context, address string, payload []byte) error {
	if s == nil {
		return fmt.Errorf("store is nil")
	}
	path := strings.TrimSpace(address)
	if path == "" {
		return fmt.Errorf("address is required")
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (s *DiskStore) Get(_ context.Context, address string) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("store is nil")
	}
	path := strings.TrimSpace(address)
	if path == "" {
		return nil, fmt.Errorf("address is required")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return raw, nil
}

func (s *DiskStore) Exists(_ context.Context, address string) (bool, error) {
	if s == nil {
		return false, fmt.Errorf("store is nil")
	}
	path := strings.TrimSpace(address)
	if path == "" {
		return false, nil
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

func (s *DiskStore) Kind() string { return "disk" }
