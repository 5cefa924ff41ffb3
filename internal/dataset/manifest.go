// Package dataset describes where a network's record sources live. A manifest
// is a small YAML file checked in next to the exports; the watcher notices
// when those exports change so cached graphs can be dropped.
package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"pipetrace/internal/graphcache"
	"pipetrace/internal/network"
	"pipetrace/internal/records"
)

var validate = validator.New()

// Source names one record file. Format is csv or jsonl; blank means detect
// from the extension.
type Source struct {
	Path   string `yaml:"path" validate:"required"`
	Format string `yaml:"format"`
}

// Manifest is one traceable dataset: one or more edge layers joined in order,
// plus an optional secondary-link source. Relative paths resolve against the
// manifest file's directory.
type Manifest struct {
	Name  string   `yaml:"name" validate:"required"`
	Edges []Source `yaml:"edges" validate:"required,min=1,dive"`
	Links *Source  `yaml:"links"`

	// Direction is the default trace direction for requests that omit one.
	Direction string `yaml:"direction"`
}

// Load reads and validates a manifest file.
func Load(path string) (*Manifest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", filepath.Base(path), err)
	}
	if err := validate.Struct(&m); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", filepath.Base(path), err)
	}

	dir := filepath.Dir(path)
	for i := range m.Edges {
		if err := m.Edges[i].resolve(dir); err != nil {
			return nil, fmt.Errorf("manifest %s: edges[%d]: %w", filepath.Base(path), i, err)
		}
	}
	if m.Links != nil {
		if err := m.Links.resolve(dir); err != nil {
			return nil, fmt.Errorf("manifest %s: links: %w", filepath.Base(path), err)
		}
	}
	if m.Direction != "" {
		d, err := network.ParseDirection(m.Direction)
		if err != nil {
			return nil, fmt.Errorf("manifest %s: %w", filepath.Base(path), err)
		}
		m.Direction = d.String()
	}
	return &m, nil
}

func (s *Source) resolve(dir string) error {
	s.Path = strings.TrimSpace(s.Path)
	if !filepath.IsAbs(s.Path) {
		s.Path = filepath.Join(dir, s.Path)
	}
	format, err := records.ResolveFormat(s.Path, s.Format)
	if err != nil {
		return err
	}
	s.Format = format
	return nil
}

// PrimarySource is the first edge layer; the default cache location is
// colocated with it.
func (m *Manifest) PrimarySource() string {
	return m.Edges[0].Path
}

// SourceIDs lists every file that shapes the built graph, edge layers first.
// The link source participates because its refs are baked into the cached
// payload.
func (m *Manifest) SourceIDs() []string {
	ids := make([]string, 0, len(m.Edges)+1)
	for _, e := range m.Edges {
		ids = append(ids, e.Path)
	}
	if m.Links != nil {
		ids = append(ids, m.Links.Path)
	}
	return ids
}

// Variant tags the topology by how many edge layers were joined, so a
// pipes-only graph and a pipes+branches graph built from the same primary
// layer cache separately.
func (m *Manifest) Variant() graphcache.Variant {
	return graphcache.Variant{Layers: len(m.Edges)}
}

// LoadEdges reads every edge layer in manifest order into one record set.
func (m *Manifest) LoadEdges() ([]network.EdgeRecord, error) {
	var out []network.EdgeRecord
	for _, src := range m.Edges {
		recs, err := records.LoadEdges(src.Path, src.Format)
		if err != nil {
			return nil, err
		}
		out = append(out, recs...)
	}
	return out, nil
}

// LoadLinks reads the secondary-link source; a manifest without one yields
// no records.
func (m *Manifest) LoadLinks() ([]network.LinkRecord, error) {
	if m.Links == nil {
		return nil, nil
	}
	return records.LoadLinks(m.Links.Path, m.Links.Format)
}
