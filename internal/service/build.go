package service

import (
	"context"
	"fmt"
	"time"

	"pipetrace/internal/dataset"
	"pipetrace/internal/feedback"
	"pipetrace/internal/graphcache"
	"pipetrace/internal/graphjson"
	"pipetrace/internal/network"
)

// BuildRequest resolves one dataset+direction to a graph. Force bypasses
// every cache layer and overwrites the default location and pointer.
type BuildRequest struct {
	Dataset   string
	Direction network.Direction
	Force     bool
}

// BuildInfo reports where the returned graph came from.
type BuildInfo struct {
	Key       string            `json:"key"`
	Direction network.Direction `json:"direction"`

	// Source is memory, cache or rebuild.
	Source string `json:"source"`

	// Location is the cache slot the graph was read from or saved to; empty
	// when a rebuilt graph could not be persisted anywhere.
	Location string `json:"location,omitempty"`

	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

const (
	SourceMemory  = "memory"
	SourceCache   = "cache"
	SourceRebuild = "rebuild"
)

// GetOrBuild returns the graph for a dataset+direction, consulting the
// decoded-graph LRU, then the cache candidate chain, then rebuilding from the
// record sources. Unreadable or undecodable cache payloads are misses, never
// errors.
func (s *Service) GetOrBuild(ctx context.Context, req BuildRequest) (*network.Graph, BuildInfo, error) {
	if s == nil {
		return nil, BuildInfo{}, fmt.Errorf("service is nil")
	}
	m, ok := s.Manifest(req.Dataset)
	if !ok {
		return nil, BuildInfo{}, fmt.Errorf("%w: %q", ErrUnknownDataset, req.Dataset)
	}
	if !req.Direction.Valid() {
		return nil, BuildInfo{}, fmt.Errorf("invalid direction %q", string(req.Direction))
	}

	key, err := graphcache.Key(m.SourceIDs(), req.Direction, m.Variant())
	if err != nil {
		return nil, BuildInfo{}, err
	}
	info := BuildInfo{Key: key, Direction: req.Direction}

	// A source change since the last build upgrades this request to a
	// forced rebuild; the stale payloads keep the same key on disk.
	force := req.Force || s.takeDirty(req.Dataset)

	if !force {
		if g, ok := s.graphs.Get(key); ok {
			s.metrics.CacheHit(SourceMemory)
			info.Source = SourceMemory
			info.Nodes = g.NodeCount()
			info.Edges = g.EdgeCount()
			return g, info, nil
		}

		candidates := s.locator.Candidates(ctx, m.PrimarySource(), req.Direction, key)
		if g, loc, ok := s.loadCached(ctx, candidates); ok {
			s.metrics.CacheHit(loc.Origin)
			// Refresh the fast path to the slot that actually worked.
			s.locator.RecordPointer(ctx, m.PrimarySource(), req.Direction, loc.Location, s.sink)
			s.graphs.Add(key, g)
			s.rememberKey(req.Dataset, key)
			info.Source = SourceCache
			info.Location = loc.Location.String()
			info.Nodes = g.NodeCount()
			info.Edges = g.EdgeCount()
			return g, info, nil
		}
		s.metrics.CacheMiss()
	}

	g, err := s.rebuild(m, req.Direction)
	if err != nil {
		return nil, BuildInfo{}, err
	}
	info.Source = SourceRebuild
	info.Nodes = g.NodeCount()
	info.Edges = g.EdgeCount()

	targets := s.locator.SaveTargets(m.PrimarySource(), req.Direction, key)
	if loc, ok := s.persist(ctx, targets, g); ok {
		info.Location = loc.Location.String()
		s.locator.RecordPointer(ctx, m.PrimarySource(), req.Direction, loc.Location, s.sink)
	} else {
		s.metrics.SaveFailed()
	}

	s.graphs.Add(key, g)
	s.rememberKey(req.Dataset, key)
	return g, info, nil
}

// loadCached walks the candidate chain and decodes the first readable
// payload. A payload that fails to decode is reported and treated as a miss.
func (s *Service) loadCached(ctx context.Context, candidates []graphcache.Candidate) (*network.Graph, graphcache.Candidate, bool) {
	remaining := candidates
	for len(remaining) > 0 {
		hit, raw, ok := s.locator.Find(ctx, remaining, s.sink)
		if !ok {
			return nil, graphcache.Candidate{}, false
		}
		g, err := graphjson.Decode(raw)
		if err == nil {
			return g, hit, true
		}
		feedback.Warnf(s.sink, "cached graph at %s is unreadable, trying next candidate: %v", hit.Location, err)
		remaining = after(remaining, hit)
	}
	return nil, graphcache.Candidate{}, false
}

func after(candidates []graphcache.Candidate, hit graphcache.Candidate) []graphcache.Candidate {
	for i, c := range candidates {
		if c.Location == hit.Location {
			return candidates[i+1:]
		}
	}
	return nil
}

func (s *Service) rebuild(m *dataset.Manifest, direction network.Direction) (*network.Graph, error) {
	started := time.Now()

	edges, err := m.LoadEdges()
	if err != nil {
		return nil, err
	}
	links, err := m.LoadLinks()
	if err != nil {
		return nil, err
	}

	g, err := network.Build(edges, direction)
	if err != nil {
		return nil, err
	}
	if err := network.AttachSecondaryLinks(g, links); err != nil {
		return nil, err
	}

	s.metrics.BuildObserved(time.Since(started))
	feedback.Infof(s.sink, "built %s graph for dataset %q: %d nodes, %d edges",
		direction, m.Name, g.NodeCount(), g.EdgeCount())
	return g, nil
}

// persist encodes and saves a rebuilt graph; writes land on the default
// location first.
func (s *Service) persist(ctx context.Context, targets []graphcache.Candidate, g *network.Graph) (graphcache.Candidate, bool) {
	payload, err := graphjson.Encode(g)
	if err != nil {
		feedback.Errorf(s.sink, false, "could not encode graph for caching: %v", err)
		return graphcache.Candidate{}, false
	}
	return s.locator.Save(ctx, targets, payload, s.sink)
}
