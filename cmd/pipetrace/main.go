package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pipetrace",
	Short: "Build and trace pipe network graphs from flat-file exports",
	Long: `pipetrace builds directed pipe-network graphs from edge exports and
walks them upstream or downstream from a starting node.

Graphs persist to the same cache the trace server uses, so a graph
built here is a cache hit there and the other way around.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func fail(msg string, err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", msg, err)
	} else {
		fmt.Fprintln(os.Stderr, msg)
	}
	os.Exit(1)
}
