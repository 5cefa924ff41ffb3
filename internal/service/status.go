package service

import (
	"context"
	"fmt"

	"pipetrace/internal/feedback"
	"pipetrace/internal/graphcache"
	"pipetrace/internal/network"
)

// CandidateStatus reports one cache slot of a graph.
type CandidateStatus struct {
	Origin   string `json:"origin"`
	Location string `json:"location"`
	Exists   bool   `json:"exists"`
}

// GraphStatus describes where a dataset+direction graph currently lives
// without loading or building anything.
type GraphStatus struct {
	Dataset   string            `json:"dataset"`
	Direction network.Direction `json:"direction"`
	Key       string            `json:"key"`

	// InMemory reports a decoded graph in the LRU; Nodes/Edges are only
	// known in that case.
	InMemory bool `json:"in_memory"`
	Nodes    int  `json:"nodes,omitempty"`
	Edges    int  `json:"edges,omitempty"`

	Candidates []CandidateStatus `json:"candidates"`
}

// Describe probes every cache candidate for the dataset+direction. Probe
// errors degrade to exists=false with a warning; status is diagnostic, never
// load-bearing.
func (s *Service) Describe(ctx context.Context, datasetName string, direction network.Direction) (*GraphStatus, error) {
	if s == nil {
		return nil, fmt.Errorf("service is nil")
	}
	m, ok := s.Manifest(datasetName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, datasetName)
	}
	if !direction.Valid() {
		return nil, fmt.Errorf("invalid direction %q", string(direction))
	}
	key, err := graphcache.Key(m.SourceIDs(), direction, m.Variant())
	if err != nil {
		return nil, err
	}

	status := &GraphStatus{Dataset: datasetName, Direction: direction, Key: key}
	if g, ok := s.graphs.Get(key); ok {
		status.InMemory = true
		status.Nodes = g.NodeCount()
		status.Edges = g.EdgeCount()
	}

	for _, c := range s.locator.Candidates(ctx, m.PrimarySource(), direction, key) {
		exists, err := c.Probe(ctx)
		if err != nil {
			feedback.Warnf(s.sink, "could not probe %s (%s): %v", c.Location, c.Origin, err)
			exists = false
		}
		status.Candidates = append(status.Candidates, CandidateStatus{
			Origin:   c.Origin,
			Location: c.Location.String(),
			Exists:   exists,
		})
	}
	return status, nil
}
