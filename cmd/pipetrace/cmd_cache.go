package main

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pipetrace/internal/config"
	"pipetrace/internal/graphcache/blob"
)

var cacheJSON bool

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect and manage the service-owned graph cache",
}

var cacheInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show what the cache directory holds",
	Args:  cobra.NoArgs,
	Run:   runCacheInfo,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete every cached graph payload",
	Args:  cobra.NoArgs,
	Run:   runCachePurge,
}

func init() {
	cacheCmd.PersistentFlags().BoolVar(&cacheJSON, "json", false,
		"print the report as JSON")
	cacheCmd.AddCommand(cacheInfoCmd)
	cacheCmd.AddCommand(cachePurgeCmd)
	rootCmd.AddCommand(cacheCmd)
}

func localStoreFromEnv() (*blob.LocalStore, error) {
	_ = godotenv.Load()
	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if cfg.Cache.LocalDir == "" {
		return nil, fmt.Errorf("PIPETRACE_CACHE_DIR is not set")
	}
	return blob.NewLocalStore(blob.LocalConfig{
		Dir:        cfg.Cache.LocalDir,
		MaxEntries: cfg.Cache.MaxEntries,
		TTL:        cfg.Cache.TTL,
	})
}

func runCacheInfo(cmd *cobra.Command, args []string) {
	store, err := localStoreFromEnv()
	if err != nil {
		fail("Failed to open cache", err)
	}
	st := store.Stats()
	if cacheJSON {
		printJSON(st)
		return
	}
	fmt.Printf("dir:     %s\n", st.Dir)
	fmt.Printf("entries: %d\n", st.Entries)
	fmt.Printf("size:    %d bytes\n", st.TotalBytes)
	for _, addr := range st.Addresses {
		fmt.Printf("  %s\n", addr)
	}
}

func runCachePurge(cmd *cobra.Command, args []string) {
	store, err := localStoreFromEnv()
	if err != nil {
		fail("Failed to open cache", err)
	}
	n := store.Stats().Entries
	if err := store.Purge(); err != nil {
		fail("Failed to purge cache", err)
	}
	fmt.Printf("purged %d cached graph(s)\n", n)
}
