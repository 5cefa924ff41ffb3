package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"pipetrace/internal/feedback"
	"pipetrace/internal/network"
	"pipetrace/internal/trace"
)

// TraceRequest runs one trace against a registered dataset. A zero Direction
// falls back to the manifest's declared default.
type TraceRequest struct {
	Dataset   string
	Direction network.Direction

	Start     network.NodeID
	StopNodes []network.NodeID

	Label       string
	WantSummary bool
	Force       bool
}

// InlineTraceRequest runs one trace against records supplied in the request
// itself. The graph is built ad hoc and never cached.
type InlineTraceRequest struct {
	Edges []network.EdgeRecord
	Links []network.LinkRecord

	Direction network.Direction
	Start     network.NodeID
	StopNodes []network.NodeID

	Label       string
	WantSummary bool
}

// TraceResponse pairs the engine result with the graph's provenance, the
// provider refs of the visited edges, and the run id used in feedback and
// metrics.
type TraceResponse struct {
	RunID  string
	Result *trace.Result
	Build  BuildInfo

	ExternalRefs  []string
	SecondaryRefs []string
}

// Trace resolves the graph for the request and walks it. Cache trouble on
// the way in is already downgraded to warnings; by this point a graph either
// exists or the request fails for a real reason.
func (s *Service) Trace(ctx context.Context, req TraceRequest) (*TraceResponse, error) {
	if s == nil {
		return nil, fmt.Errorf("service is nil")
	}
	direction, err := s.resolveDirection(req)
	if err != nil {
		return nil, err
	}

	g, info, err := s.GetOrBuild(ctx, BuildRequest{
		Dataset:   req.Dataset,
		Direction: direction,
		Force:     req.Force,
	})
	if err != nil {
		return nil, err
	}
	return s.execute(g, info, req.Start, req.StopNodes, req.Label, req.WantSummary)
}

// TraceInline builds a throwaway graph from the supplied records and walks
// it.
func (s *Service) TraceInline(ctx context.Context, req InlineTraceRequest) (*TraceResponse, error) {
	if s == nil {
		return nil, fmt.Errorf("service is nil")
	}
	if len(req.Edges) == 0 {
		return nil, fmt.Errorf("at least one edge record is required")
	}

	started := time.Now()
	g, err := network.Build(req.Edges, req.Direction)
	if err != nil {
		return nil, err
	}
	if err := network.AttachSecondaryLinks(g, req.Links); err != nil {
		return nil, err
	}
	s.metrics.BuildObserved(time.Since(started))

	info := BuildInfo{
		Direction: req.Direction,
		Source:    SourceRebuild,
		Nodes:     g.NodeCount(),
		Edges:     g.EdgeCount(),
	}
	return s.execute(g, info, req.Start, req.StopNodes, req.Label, req.WantSummary)
}

func (s *Service) execute(g *network.Graph, info BuildInfo, start network.NodeID,
	stopNodes []network.NodeID, label string, wantSummary bool) (*TraceResponse, error) {

	opts := make([]trace.Option, 0, 3)
	if len(stopNodes) > 0 {
		opts = append(opts, trace.WithStopNodes(stopNodes...))
	}
	if wantSummary {
		opts = append(opts, trace.WithSummary())
	}
	if strings.TrimSpace(label) != "" {
		opts = append(opts, trace.WithLabel(label))
	}

	runID := uuid.NewString()
	started := time.Now()
	result, err := trace.Run(g, start, opts...)
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(started)

	s.metrics.TraceObserved(g.Direction.String(), elapsed)
	feedback.Infof(s.sink, "trace %s: %s from %q visited %d node(s), %d edge(s), %d end(s) in %s",
		runID, g.Direction, string(start), len(result.VisitedNodes), len(result.VisitedEdges),
		len(result.EndOfPathNodes), elapsed.Round(time.Millisecond))

	return &TraceResponse{
		RunID:         runID,
		Result:        result,
		Build:         info,
		ExternalRefs:  result.ExternalRefs(g),
		SecondaryRefs: result.SecondaryRefs(g),
	}, nil
}

func (s *Service) resolveDirection(req TraceRequest) (network.Direction, error) {
	if req.Direction != "" {
		if !req.Direction.Valid() {
			return "", fmt.Errorf("invalid direction %q", string(req.Direction))
		}
		return req.Direction, nil
	}
	m, ok := s.Manifest(req.Dataset)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownDataset, req.Dataset)
	}
	if m.Direction == "" {
		return "", fmt.Errorf("dataset %q declares no default direction; one is required", req.Dataset)
	}
	return network.ParseDirection(m.Direction)
}
