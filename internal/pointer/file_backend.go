package pointer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pipetrace/internal/network"
)

type pointerRow struct {
	Dataset   string    `json:"dataset"`
	Direction string    `json:"direction"`
	Location  string    `json:"location"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Store) ensureLoadedFile() {
	s.loadOnce.Do(func() {
		b, err := os.ReadFile(s.path)
		if err != nil {
			return
		}
		var rows []pointerRow
		if err := json.Unmarshal(b, &rows); err != nil {
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, row := range rows {
			dataset := strings.TrimSpace(row.Dataset)
			direction, derr := network.ParseDirection(row.Direction)
			location := strings.TrimSpace(row.Location)
			if dataset == "" || derr != nil || location == "" {
				continue
			}
			s.entries[cacheKey(dataset, direction)] = fileEntry{Location: location, UpdatedAt: row.UpdatedAt}
		}
	})
}

func (s *Store) getFile(dataset string, direction network.Direction) (string, bool) {
	s.ensureLoadedFile()
	s.mu.RLock()
	defer s.mu.RUnlock()
	ent, ok := s.entries[cacheKey(dataset, direction)]
	return ent.Location, ok && ent.Location != ""
}

func (s *Store) setFile(dataset string, direction network.Direction, location string) error {
	s.ensureLoadedFile()
	s.mu.Lock()
	s.entries[cacheKey(dataset, direction)] = fileEntry{Location: location, UpdatedAt: time.Now().UTC()}
	rows := make([]pointerRow, 0, len(s.entries))
	for key, ent := range s.entries {
		parts := strings.SplitN(key, "\x00", 2)
		if len(parts) != 2 {
			continue
		}
		rows = append(rows, pointerRow{
			Dataset:   parts[0],
			Direction: parts[1],
			Location:  ent.Location,
			UpdatedAt: ent.UpdatedAt,
		})
	}
	s.mu.Unlock()

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Dataset != rows[j].Dataset {
			return rows[i].Dataset < rows[j].Dataset
		}
		return rows[i].Direction < rows[j].Direction
	})

	b, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
