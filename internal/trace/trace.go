// Package trace runs reachability queries over a built network graph:
// an iterative depth-first walk that follows the graph's adjacency in its
// build direction and reports visited edges, visited nodes and the nodes
// where expansion ended.
package trace

import (
	"fmt"
	"strings"

	"pipetrace/internal/network"
)

// StopPredicate decides whether traversal may continue through a node.
// Returning false halts the entire trace at that node, not just the current
// branch; remaining stack entries are discarded unexplored. Callers needing
// branch-local pruning must encode it in the predicate itself. This is also
// the only cancellation mechanism: a caller wanting early abort makes its
// predicate return false.
type StopPredicate func(network.NodeID) bool

// Result holds the outcome of one trace. Created fresh per invocation and
// never mutated after return.
type Result struct {
	VisitedEdges   map[network.EdgeID]struct{}
	VisitedNodes   map[network.NodeID]struct{}
	EndOfPathNodes map[network.NodeID]struct{}

	// Summary is populated only when requested via WithSummary.
	Summary *Summary
}

// Summary is the optional diagnostic record attached to a Result. It never
// affects the visited sets.
type Summary struct {
	Direction network.Direction `json:"direction"`
	Nodes     int               `json:"nodes"`
	StartNode network.NodeID    `json:"start_node"`
	Predicate string            `json:"predicate"`
	Label     string            `json:"label,omitempty"`
}

type options struct {
	predicate     StopPredicate
	predicateDesc string
	wantSummary   bool
	label         string
}

// Option configures a single trace run.
type Option func(*options)

// WithStopPredicate installs a stop predicate and its human-readable
// description (shown in the summary). A nil predicate keeps the default
// always-continue behavior.
func WithStopPredicate(p StopPredicate, description string) Option {
	return func(o *options) {
		if p != nil {
			o.predicate = p
			o.predicateDesc = description
		}
	}
}

// WithStopNodes is a convenience predicate halting at any of the given nodes.
func WithStopNodes(nodes ...network.NodeID) Option {
	stop := make(map[network.NodeID]struct{}, len(nodes))
	labels := make([]string, 0, len(nodes))
	for _, n := range nodes {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		stop[n] = struct{}{}
		labels = append(labels, n)
	}
	return WithStopPredicate(func(n network.NodeID) bool {
		_, halt := stop[n]
		return !halt
	}, fmt.Sprintf("stop at {%s}", strings.Join(labels, ", ")))
}

// WithSummary requests the diagnostic summary on the result.
func WithSummary() Option {
	return func(o *options) { o.wantSummary = true }
}

// WithLabel names the trace run in its summary.
func WithLabel(label string) Option {
	return func(o *options) { o.label = strings.TrimSpace(label) }
}

// Run traces the graph from start.
//
// Explicit-stack depth-first walk, LIFO order: the last-pushed node is
// expanded next. Neighbors are pushed even when already visited; revisits
// are filtered at pop time, which is how cycles terminate. A node whose
// adjacency is empty is an end-of-path node; so is the node at which the
// stop predicate halts the run.
//
// A start node absent from the graph is not an error: the adjacency behaves
// as a total function, so the result degrades to start being its own sole
// visited and end-of-path node.
func Run(g *network.Graph, start network.NodeID, opts ...Option) (*Result, error) {
	if g == nil {
		return nil, fmt.Errorf("graph is nil")
	}
	start = strings.TrimSpace(start)
	if start == "" {
		return nil, fmt.Errorf("start node is required")
	}

	o := options{
		predicate:     func(network.NodeID) bool { return true },
		predicateDesc: "always continue",
	}
	for _, opt := range opts {
		opt(&o)
	}

	res := &Result{
		VisitedEdges:   make(map[network.EdgeID]struct{}),
		VisitedNodes:   make(map[network.NodeID]struct{}),
		EndOfPathNodes: make(map[network.NodeID]struct{}),
	}

	stack := []network.NodeID{start}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if !o.predicate(current) {
			// Hard stop: the whole traversal ends here, not just this branch.
			res.VisitedNodes[current] = struct{}{}
			res.EndOfPathNodes[current] = struct{}{}
			break
		}
		if _, seen := res.VisitedNodes[current]; seen {
			continue
		}
		res.VisitedNodes[current] = struct{}{}

		neighbors := g.Adjacency.Get(current)
		if len(neighbors) == 0 {
			res.EndOfPathNodes[current] = struct{}{}
		}
		stack = append(stack, neighbors...)
		for _, edge := range g.EdgesByNode.Get(current) {
			res.VisitedEdges[edge] = struct{}{}
		}
	}

	if o.wantSummary {
		res.Summary = &Summary{
			Direction: g.Direction,
			Nodes:     g.NodeCount(),
			StartNode: start,
			Predicate: o.predicateDesc,
			Label:     o.label,
		}
	}
	return res, nil
}
