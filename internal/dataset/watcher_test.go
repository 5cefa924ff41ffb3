package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"pipetrace/internal/feedback"
)

func TestWatcherInvalidatesOnSourceChange(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "mains.csv")
	writeFile(t, src, "edge_id,start_node,end_node\n1,A,B\n")
	m, err := Load(writeManifest(t, dir, "name: northside\nedges:\n  - path: mains.csv\n"))
	require.NoError(t, err)

	got := make(chan []string, 1)
	w, err := NewWatcher(30*time.Millisecond, func(names []string) {
		select {
		case got <- names:
		default:
		}
	}, feedback.Discard{})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(m))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	// Rewrite the source the way an exporter would.
	require.NoError(t, os.WriteFile(src, []byte("edge_id,start_node,end_node\n1,A,C\n"), 0o644))

	select {
	case names := <-got:
		require.Equal(t, []string{"northside"}, names)
	case <-time.After(3 * time.Second):
		t.Fatal("no invalidation within 3s")
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mains.csv"), "edge_id,start_node,end_node\n1,A,B\n")
	m, err := Load(writeManifest(t, dir, "name: northside\nedges:\n  - path: mains.csv\n"))
	require.NoError(t, err)

	got := make(chan []string, 1)
	w, err := NewWatcher(20*time.Millisecond, func(names []string) { got <- names }, feedback.Discard{})
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, w.Watch(m))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "scratch.txt"), []byte("x"), 0o644))

	select {
	case names := <-got:
		t.Fatalf("unexpected invalidation: %v", names)
	case <-time.After(200 * time.Millisecond):
	}
}
