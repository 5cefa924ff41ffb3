// Package graphcache decides where a built graph lives and when a persisted
// copy may be reused. The cache is a pure performance optimization: source
// records stay the ground truth, reads that fail fall back to a rebuild, and
// concurrent writers resolve by last-writer-wins with no locking.
package graphcache

import (
	"fmt"
	"hash/fnv"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"pipetrace/internal/network"
)

// Variant tags the topology joined into a graph, so a pipes-only graph and a
// pipes+branches graph built from the same pipe source key differently.
type Variant struct {
	Layers int
}

func (v Variant) String() string {
	if v.Layers <= 1 {
		return "L1"
	}
	return fmt.Sprintf("L%d", v.Layers)
}

// Key derives the deterministic cache key for a graph: a digest over the
// stable hash of each source identifier's basename, the direction and the
// variant tag. The same inputs yield the same key across processes and hosts.
func Key(sourceIDs []string, direction network.Direction, variant Variant) (string, error) {
	if !direction.Valid() {
		return "", fmt.Errorf("unknown direction %q", direction)
	}
	cleaned := make([]string, 0, len(sourceIDs))
	for _, id := range sourceIDs {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		cleaned = append(cleaned, id)
	}
	if len(cleaned) == 0 {
		return "", fmt.Errorf("at least one source identifier is required")
	}

	h := fnv.New64a()
	for _, id := range cleaned {
		io.WriteString(h, sourceHash(id))
		io.WriteString(h, "|")
	}
	io.WriteString(h, direction.String())
	io.WriteString(h, "|")
	io.WriteString(h, variant.String())
	return strconv.FormatUint(h.Sum64(), 16), nil
}

// sourceHash is the stable per-source hash: the identifier's basename run
// through FNV-64a, so the same dataset keys identically whether referenced
// by relative or absolute path.
func sourceHash(id string) string {
	h := fnv.New64a()
	io.WriteString(h, filepath.Base(id))
	return strconv.FormatUint(h.Sum64(), 16)
}

// FileName is the canonical cache file name for a key and direction.
func FileName(key string, direction network.Direction) string {
	return fmt.Sprintf("%s-%s.graph.json", key, direction)
}

// DefaultLocation is the deterministic cache location colocated with the
// primary source dataset.
func DefaultLocation(primarySource, key string, direction network.Direction) string {
	return filepath.Join(filepath.Dir(primarySource), FileName(key, direction))
}
