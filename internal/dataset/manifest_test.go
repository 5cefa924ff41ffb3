package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipetrace/internal/graphcache"
	"pipetrace/internal/network"
)

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "dataset.yaml")
	writeFile(t, path, body)
	return path
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mains.csv"), "edge_id,start_node,end_node\n1,A,B\n")
	writeFile(t, filepath.Join(dir, "branches.csv"), "edge_id,start_node,end_node\n2,B,C\n")
	writeFile(t, filepath.Join(dir, "services.jsonl"), `{"edge_id":"1","secondary_ref":"parcel-9"}`+"\n")

	path := writeManifest(t, dir, `
name: northside
direction: downstream
edges:
  - path: mains.csv
  - path: branches.csv
links:
  path: services.jsonl
`)

	m, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "northside", m.Name)
	assert.Equal(t, "DOWNSTREAM", m.Direction)
	assert.Equal(t, filepath.Join(dir, "mains.csv"), m.PrimarySource())
	assert.Equal(t, []string{
		filepath.Join(dir, "mains.csv"),
		filepath.Join(dir, "branches.csv"),
		filepath.Join(dir, "services.jsonl"),
	}, m.SourceIDs())
	assert.Equal(t, graphcache.Variant{Layers: 2}, m.Variant())

	edges, err := m.LoadEdges()
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, network.EdgeRecord{EdgeID: "1", StartNode: "A", EndNode: "B"}, edges[0])
	assert.Equal(t, "2", edges[1].EdgeID)

	links, err := m.LoadLinks()
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "parcel-9", links[0].Refs[0])
}

func TestLoadManifestWithoutLinks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "mains.csv"), "edge_id,start_node,end_node\n1,A,B\n")
	m, err := Load(writeManifest(t, dir, "name: bare\nedges:\n  - path: mains.csv\n"))
	require.NoError(t, err)

	links, err := m.LoadLinks()
	require.NoError(t, err)
	assert.Nil(t, links)
	assert.Equal(t, graphcache.Variant{Layers: 1}, m.Variant())
	assert.Empty(t, m.Direction)
}

func TestLoadManifestRejects(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"missing name":  "edges:\n  - path: mains.csv\n",
		"no edges":      "name: x\n",
		"blank path":    "name: x\nedges:\n  - path: \"\"\n",
		"bad direction": "name: x\ndirection: sideways\nedges:\n  - path: mains.csv\n",
		"bad format":    "name: x\nedges:\n  - path: mains.dat\n",
		"not yaml":      "{{{",
	}
	for label, body := range cases {
		_, err := Load(writeManifest(t, dir, body))
		assert.Error(t, err, label)
	}

	_, err := Load(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

func TestManifestKeepsAbsolutePaths(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(dir, "mains.csv")
	writeFile(t, abs, "edge_id,start_node,end_node\n1,A,B\n")

	other := t.TempDir()
	m, err := Load(writeManifest(t, other, "name: x\nedges:\n  - path: "+abs+"\n"))
	require.NoError(t, err)
	assert.Equal(t, abs, m.PrimarySource())
}
