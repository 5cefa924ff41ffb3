package trace

import (
	"sort"

	"pipetrace/internal/network"
)

// EdgeList returns the visited edge ids in sorted order.
func (r *Result) EdgeList() []network.EdgeID {
	if r == nil {
		return nil
	}
	return sortedKeys(r.VisitedEdges)
}

// NodeList returns the visited node ids in sorted order.
func (r *Result) NodeList() []network.NodeID {
	if r == nil {
		return nil
	}
	return sortedKeys(r.VisitedNodes)
}

// EndOfPathList returns the end-of-path node ids in sorted order.
func (r *Result) EndOfPathList() []network.NodeID {
	if r == nil {
		return nil
	}
	return sortedKeys(r.EndOfPathNodes)
}

// ExternalRefs maps the visited edges back to the provider-native handles the
// builder stored, for callers that report results against the source system.
// Edges without a stored ref are omitted.
func (r *Result) ExternalRefs(g *network.Graph) []string {
	if r == nil || g == nil || len(g.ExternalRefByEdge) == 0 {
		return nil
	}
	refs := make([]string, 0, len(r.VisitedEdges))
	for edge := range r.VisitedEdges {
		if ref, ok := g.ExternalRefByEdge[edge]; ok {
			refs = append(refs, ref)
		}
	}
	sort.Strings(refs)
	return refs
}

// SecondaryRefs collects the secondary entity refs attached to the visited
// edges (deduplicated, sorted).
func (r *Result) SecondaryRefs(g *network.Graph) []string {
	if r == nil || g == nil || len(g.SecondaryLinksByEdge) == 0 {
		return nil
	}
	seen := make(map[string]struct{})
	for edge := range r.VisitedEdges {
		for _, ref := range g.SecondaryLinksByEdge[edge] {
			seen[ref] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
