package network

import (
	"fmt"
	"strings"
)

// Build constructs the directed graph for one traversal direction.
//
// Direction rule: an edge observed from start to end is stored so that
// "follow adjacency" always means "follow the network in the requested
// direction": Upstream records start as a neighbor of end, Downstream
// records end as a neighbor of start. One traversal routine then answers
// both query directions uniformly.
//
// Records with a missing required field fail the whole build; no partial
// graph is returned. No I/O happens here.
func Build(records []EdgeRecord, direction Direction) (*Graph, error) {
	if !direction.Valid() {
		return nil, fmt.Errorf("unknown direction %q", direction)
	}
	g := newGraph(direction)
	for i, rec := range records {
		if err := rec.validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		edge := strings.TrimSpace(rec.EdgeID)
		start := strings.TrimSpace(rec.StartNode)
		end := strings.TrimSpace(rec.EndNode)

		switch direction {
		case Upstream:
			g.Adjacency.Append(end, start)
			g.EdgesByNode.Append(end, edge)
		case Downstream:
			g.Adjacency.Append(start, end)
			g.EdgesByNode.Append(start, edge)
		}
		if ref := strings.TrimSpace(rec.ExternalRef); ref != "" {
			g.ExternalRefByEdge[edge] = ref
		}
	}
	return g, nil
}

// AttachSecondaryLinks appends secondary refs to the graph's per-edge link
// sets. Calling it twice with the same input duplicates entries; callers own
// deduplication if they need it. Link records naming edges absent from the
// graph are attached as given; the link map is independent of adjacency.
func AttachSecondaryLinks(g *Graph, links []LinkRecord) error {
	if g == nil {
		return fmt.Errorf("graph is nil")
	}
	if g.SecondaryLinksByEdge == nil {
		g.SecondaryLinksByEdge = make(map[EdgeID][]string)
	}
	for i, link := range links {
		edge := strings.TrimSpace(link.EdgeID)
		if edge == "" {
			return fmt.Errorf("link record %d: edge_id is required", i)
		}
		for _, ref := range link.Refs {
			ref = strings.TrimSpace(ref)
			if ref == "" {
				continue
			}
			g.SecondaryLinksByEdge[edge] = append(g.SecondaryLinksByEdge[edge], ref)
		}
	}
	return nil
}
