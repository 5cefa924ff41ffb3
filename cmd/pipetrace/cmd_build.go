package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pipetrace/internal/service"
)

var (
	buildDirection string
	buildForce     bool
	buildJSON      bool
)

var buildCmd = &cobra.Command{
	Use:   "build MANIFEST",
	Short: "Build a dataset graph and persist it to cache",
	Long: `Build the directed graph for a dataset manifest and persist it to
the first writable cache slot.

Examples:
  pipetrace build datasets/northside.yaml
  pipetrace build datasets/northside.yaml --direction upstream
  pipetrace build datasets/northside.yaml --force --json`,
	Args: cobra.ExactArgs(1),
	Run:  runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildDirection, "direction", "",
		"upstream or downstream (defaults to the manifest)")
	buildCmd.Flags().BoolVar(&buildForce, "force", false,
		"rebuild even when a cached graph exists")
	buildCmd.Flags().BoolVar(&buildJSON, "json", false,
		"print the report as JSON")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	svc, m, err := datasetService(args[0])
	if err != nil {
		fail("Failed to load dataset", err)
	}
	direction, err := resolveDirection(m, buildDirection)
	if err != nil {
		fail("Failed to resolve direction", err)
	}

	_, info, err := svc.GetOrBuild(ctx, service.BuildRequest{
		Dataset:   m.Name,
		Direction: direction,
		Force:     buildForce,
	})
	if err != nil {
		fail("Build failed", err)
	}

	if buildJSON {
		printJSON(info)
		return
	}
	fmt.Printf("dataset:   %s\n", m.Name)
	fmt.Printf("direction: %s\n", info.Direction)
	fmt.Printf("source:    %s\n", info.Source)
	if info.Location != "" {
		fmt.Printf("location:  %s\n", info.Location)
	}
	fmt.Printf("graph:     %d nodes, %d edges\n", info.Nodes, info.Edges)
}
