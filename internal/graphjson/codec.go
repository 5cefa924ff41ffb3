// Package graphjson persists network graphs as tagged, deterministic JSON.
//
// Every structurally distinct value carries a "$type" discriminator so a
// decoder reconstructs the exact in-memory shape instead of a generic nested
// map. The variant set is closed: direction, node-list mapping, graph. Output
// is byte-stable for equal graphs (sorted keys, fixed indentation), which
// keeps persisted files diff-friendly.
package graphjson

import (
	"encoding/json"
	"fmt"

	"pipetrace/internal/network"
)

// Discriminator tags. Decoding matches on these statically; there is no
// reflection-driven type lookup.
const (
	TagGraph       = "pipetrace.Graph"
	TagDirection   = "pipetrace.Direction"
	TagNodeListMap = "pipetrace.NodeListMap"
)

type directionDoc struct {
	Type  string `json:"$type"`
	Value string `json:"value"`
}

type nodeListDoc struct {
	Type string `json:"$type"`
	// Entries is the plain unique-key mapping behind the total-function
	// wrapper; keys absent here decode as empty sequences.
	Entries map[string][]string `json:"entries"`
}

type graphDoc struct {
	Type           string              `json:"$type"`
	Adjacency      nodeListDoc         `json:"adjacency"`
	Direction      directionDoc        `json:"direction"`
	EdgesByNode    nodeListDoc         `json:"edges_by_node"`
	ExternalRefs   map[string]string   `json:"external_refs"`
	SecondaryLinks map[string][]string `json:"secondary_links"`
}

// Encode serializes g. The output round-trips through Decode losslessly.
func Encode(g *network.Graph) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("graph is nil")
	}
	if !g.Direction.Valid() {
		return nil, fmt.Errorf("unknown direction %q", g.Direction)
	}
	doc := graphDoc{
		Type:           TagGraph,
		Adjacency:      encodeListMap(g.Adjacency),
		Direction:      directionDoc{Type: TagDirection, Value: g.Direction.String()},
		EdgesByNode:    encodeListMap(g.EdgesByNode),
		ExternalRefs:   make(map[string]string, len(g.ExternalRefByEdge)),
		SecondaryLinks: make(map[string][]string, len(g.SecondaryLinksByEdge)),
	}
	for edge, ref := range g.ExternalRefByEdge {
		doc.ExternalRefs[edge] = ref
	}
	for edge, refs := range g.SecondaryLinksByEdge {
		doc.SecondaryLinks[edge] = append([]string(nil), refs...)
	}
	return json.MarshalIndent(doc, "", "  ")
}

func encodeListMap[T ~string](lm *network.IDListMap[T]) nodeListDoc {
	doc := nodeListDoc{Type: TagNodeListMap, Entries: make(map[string][]string, lm.Len())}
	for _, key := range lm.Keys() {
		values := lm.Get(key)
		out := make([]string, len(values))
		for i, v := range values {
			out[i] = string(v)
		}
		doc.Entries[key] = out
	}
	return doc
}

// Decode reconstructs a graph from Encode output. Any structural defect
// (missing or foreign "$type" tags, an unknown direction, misaligned
// adjacency/edge sequences) is an error; callers in the cache layer treat
// that as a cache miss, never as a fatal condition.
func Decode(data []byte) (*network.Graph, error) {
	var probe struct {
		Type string `json:"$type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parse graph document: %w", err)
	}
	if probe.Type == "" {
		return nil, fmt.Errorf("missing $type discriminator")
	}
	if probe.Type != TagGraph {
		return nil, fmt.Errorf("unexpected $type %q, want %q", probe.Type, TagGraph)
	}

	var doc graphDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse graph document: %w", err)
	}
	direction, err := decodeDirection(doc.Direction)
	if err != nil {
		return nil, err
	}
	adjacency, err := decodeListMap[network.NodeID](doc.Adjacency, "adjacency")
	if err != nil {
		return nil, err
	}
	edges, err := decodeListMap[network.EdgeID](doc.EdgesByNode, "edges_by_node")
	if err != nil {
		return nil, err
	}
	if err := checkAligned(adjacency, edges); err != nil {
		return nil, err
	}

	g := &network.Graph{
		Direction:            direction,
		Adjacency:            adjacency,
		EdgesByNode:          edges,
		ExternalRefByEdge:    make(map[network.EdgeID]string, len(doc.ExternalRefs)),
		SecondaryLinksByEdge: make(map[network.EdgeID][]string, len(doc.SecondaryLinks)),
	}
	for edge, ref := range doc.ExternalRefs {
		g.ExternalRefByEdge[edge] = ref
	}
	for edge, refs := range doc.SecondaryLinks {
		g.SecondaryLinksByEdge[edge] = append([]string(nil), refs...)
	}
	return g, nil
}

func decodeDirection(doc directionDoc) (network.Direction, error) {
	if doc.Type != TagDirection {
		return "", fmt.Errorf("direction: unexpected $type %q, want %q", doc.Type, TagDirection)
	}
	direction, err := network.ParseDirection(doc.Value)
	if err != nil {
		return "", fmt.Errorf("direction: %w", err)
	}
	return direction, nil
}

func decodeListMap[T ~string](doc nodeListDoc, field string) (*network.IDListMap[T], error) {
	if doc.Type != TagNodeListMap {
		return nil, fmt.Errorf("%s: unexpected $type %q, want %q", field, doc.Type, TagNodeListMap)
	}
	lm := network.NewIDListMap[T]()
	// A missing or null entries object decodes as the empty mapping; absent
	// keys keep reading as empty sequences afterwards.
	for key, values := range doc.Entries {
		out := make([]T, len(values))
		for i, v := range values {
			out[i] = T(v)
		}
		lm.Append(key, out...)
	}
	return lm, nil
}

func checkAligned(adjacency *network.IDListMap[network.NodeID], edges *network.IDListMap[network.EdgeID]) error {
	adjKeys, edgeKeys := adjacency.Keys(), edges.Keys()
	if len(adjKeys) != len(edgeKeys) {
		return fmt.Errorf("adjacency and edges_by_node key sets differ")
	}
	for i, node := range adjKeys {
		if edgeKeys[i] != node {
			return fmt.Errorf("adjacency and edges_by_node key sets differ")
		}
		if len(adjacency.Get(node)) != len(edges.Get(node)) {
			return fmt.Errorf("adjacency and edges_by_node are misaligned at node %q", node)
		}
	}
	return nil
}
