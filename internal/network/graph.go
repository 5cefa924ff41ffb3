package network

import "sort"

// NodeID identifies a junction point (manhole, fitting). Opaque: compared by
// equality only, never ordered numerically. Numeric source ids are carried as
// their decimal string.
type NodeID = string

// EdgeID identifies a linear asset (pipe segment) between two nodes.
type EdgeID = string

// IDListMap is a key-unique mapping from node id to an ordered id sequence
// that behaves as a total function: looking up an absent key yields an empty
// sequence instead of a missing-key condition. The zero value is not usable;
// construct with NewIDListMap.
type IDListMap[T ~string] struct {
	m map[NodeID][]T
}

func NewIDListMap[T ~string]() *IDListMap[T] {
	return &IDListMap[T]{m: make(map[NodeID][]T)}
}

// Get returns the sequence stored under key, or an empty sequence when the
// key is absent. The returned slice is the live backing slice; callers must
// not mutate it.
func (lm *IDListMap[T]) Get(key NodeID) []T {
	if lm == nil || lm.m == nil {
		return nil
	}
	return lm.m[key]
}

// Append adds values to the end of key's sequence, creating it if needed.
func (lm *IDListMap[T]) Append(key NodeID, values ...T) {
	if lm.m == nil {
		lm.m = make(map[NodeID][]T)
	}
	lm.m[key] = append(lm.m[key], values...)
}

// Len reports the number of keys with a stored sequence.
func (lm *IDListMap[T]) Len() int {
	if lm == nil {
		return 0
	}
	return len(lm.m)
}

// Keys returns the stored keys in sorted order.
func (lm *IDListMap[T]) Keys() []NodeID {
	if lm == nil || len(lm.m) == 0 {
		return nil
	}
	keys := make([]NodeID, 0, len(lm.m))
	for k := range lm.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Graph is the directed pipe network for one traversal direction.
//
// Adjacency and EdgesByNode are index-aligned: the i-th neighbor in
// Adjacency.Get(n) was reached via the i-th edge id in EdgesByNode.Get(n).
// Built once per (dataset, direction) by Build; never mutated afterwards
// except by AttachSecondaryLinks, which must complete before the graph is
// handed to a tracer or serializer.
type Graph struct {
	Direction Direction

	// Adjacency maps a node to its ordered neighbors in Direction.
	Adjacency *IDListMap[NodeID]

	// EdgesByNode maps a node to the edge ids incident in Direction.
	EdgesByNode *IDListMap[EdgeID]

	// ExternalRefByEdge carries a provider-native handle per edge, used only
	// for reporting results back to the caller. Populated only for edges the
	// builder was given a ref for.
	ExternalRefByEdge map[EdgeID]string

	// SecondaryLinksByEdge maps an edge to secondary entity refs (parcels
	// served by a pipe). Filled by AttachSecondaryLinks, independent of the
	// base adjacency.
	SecondaryLinksByEdge map[EdgeID][]string
}

func newGraph(direction Direction) *Graph {
	return &Graph{
		Direction:            direction,
		Adjacency:            NewIDListMap[NodeID](),
		EdgesByNode:          NewIDListMap[EdgeID](),
		ExternalRefByEdge:    make(map[EdgeID]string),
		SecondaryLinksByEdge: make(map[EdgeID][]string),
	}
}

// NodeCount reports the number of nodes with outgoing adjacency. Nodes that
// appear only as neighbors are not counted; this mirrors what the summary
// reports as graph size.
func (g *Graph) NodeCount() int {
	if g == nil {
		return 0
	}
	return g.Adjacency.Len()
}

// EdgeCount reports the number of distinct stored edge sequences summed by
// length; with unique edge ids per record this equals the record count.
func (g *Graph) EdgeCount() int {
	if g == nil || g.EdgesByNode == nil {
		return 0
	}
	total := 0
	for _, k := range g.EdgesByNode.Keys() {
		total += len(g.EdgesByNode.Get(k))
	}
	return total
}
