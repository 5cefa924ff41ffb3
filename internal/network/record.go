package network

import (
	"fmt"
	"strings"
)

// EdgeRecord is one linear asset as supplied by a record source. EdgeID,
// StartNode and EndNode are required; a record missing any of them is a hard
// build error, never silently skipped.
type EdgeRecord struct {
	EdgeID    EdgeID
	StartNode NodeID
	EndNode   NodeID

	// ExternalRef is an optional provider-native handle (feature id) carried
	// through to trace results.
	ExternalRef string
}

func (r EdgeRecord) validate() error {
	if strings.TrimSpace(r.EdgeID) == "" {
		return fmt.Errorf("edge_id is required")
	}
	if strings.TrimSpace(r.StartNode) == "" {
		return fmt.Errorf("start_node is required")
	}
	if strings.TrimSpace(r.EndNode) == "" {
		return fmt.Errorf("end_node is required")
	}
	return nil
}

// LinkRecord associates an edge with zero or more secondary entity refs
// (parcels, service connections).
type LinkRecord struct {
	EdgeID EdgeID
	Refs   []string
}
