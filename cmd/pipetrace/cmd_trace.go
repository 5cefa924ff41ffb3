package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pipetrace/internal/network"
	"pipetrace/internal/service"
)

var (
	traceDirection string
	traceStop      []string
	traceLabel     string
	traceSummary   bool
	traceForce     bool
	traceJSON      bool
)

var traceCmd = &cobra.Command{
	Use:   "trace MANIFEST START_NODE",
	Short: "Walk the network from a node and report everything reachable",
	Long: `Trace the network from a starting node in the manifest's default
direction (or the one given with --direction) and list the nodes, pipes
and linked records the walk reaches.

Stop nodes mark closed points: reaching one ends the whole trace.

Examples:
  pipetrace trace datasets/northside.yaml J-1047
  pipetrace trace datasets/northside.yaml J-1047 --direction upstream
  pipetrace trace datasets/northside.yaml J-1047 --stop V-201 --stop V-207
  pipetrace trace datasets/northside.yaml J-1047 --summary --label "shutdown block 7"`,
	Args: cobra.ExactArgs(2),
	Run:  runTrace,
}

func init() {
	traceCmd.Flags().StringVar(&traceDirection, "direction", "",
		"upstream or downstream (defaults to the manifest)")
	traceCmd.Flags().StringArrayVar(&traceStop, "stop", nil,
		"node that ends the trace when reached (repeatable)")
	traceCmd.Flags().StringVar(&traceLabel, "label", "",
		"free-form label recorded in the summary")
	traceCmd.Flags().BoolVar(&traceSummary, "summary", false,
		"include a run summary")
	traceCmd.Flags().BoolVar(&traceForce, "force", false,
		"rebuild the graph even when a cached one exists")
	traceCmd.Flags().BoolVar(&traceJSON, "json", false,
		"print the result as JSON")
	rootCmd.AddCommand(traceCmd)
}

func runTrace(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	svc, m, err := datasetService(args[0])
	if err != nil {
		fail("Failed to load dataset", err)
	}

	var direction network.Direction
	if v := strings.TrimSpace(traceDirection); v != "" {
		direction, err = network.ParseDirection(v)
		if err != nil {
			fail("Failed to resolve direction", err)
		}
	}

	res, err := svc.Trace(ctx, service.TraceRequest{
		Dataset:     m.Name,
		Direction:   direction,
		Start:       args[1],
		StopNodes:   traceStop,
		Label:       traceLabel,
		WantSummary: traceSummary,
		Force:       traceForce,
	})
	if err != nil {
		fail("Trace failed", err)
	}

	if traceJSON {
		printJSON(map[string]any{
			"run_id":            res.RunID,
			"direction":         res.Build.Direction,
			"visited_nodes":     res.Result.NodeList(),
			"visited_edges":     res.Result.EdgeList(),
			"end_of_path_nodes": res.Result.EndOfPathList(),
			"external_refs":     res.ExternalRefs,
			"secondary_refs":    res.SecondaryRefs,
			"summary":           res.Result.Summary,
			"build":             res.Build,
		})
		return
	}

	fmt.Printf("run %s: %s from %s (graph from %s)\n",
		res.RunID, res.Build.Direction, args[1], res.Build.Source)
	printList("visited nodes", res.Result.NodeList())
	printList("visited edges", res.Result.EdgeList())
	printList("end of path", res.Result.EndOfPathList())
	printList("external refs", res.ExternalRefs)
	printList("secondary refs", res.SecondaryRefs)

	if s := res.Result.Summary; s != nil {
		fmt.Println("summary:")
		fmt.Printf("  direction: %s\n", s.Direction)
		fmt.Printf("  nodes:     %d\n", s.Nodes)
		fmt.Printf("  start:     %s\n", s.StartNode)
		if s.Predicate != "" {
			fmt.Printf("  predicate: %s\n", s.Predicate)
		}
		if s.Label != "" {
			fmt.Printf("  label:     %s\n", s.Label)
		}
	}
}

func printList(name string, ids []string) {
	if len(ids) == 0 {
		return
	}
	fmt.Printf("%s (%d): %s\n", name, len(ids), strings.Join(ids, ", "))
}
