package records

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipetrace/internal/network"
)

func TestReadEdgesCSV(t *testing.T) {
	src := strings.Join([]string{
		"start_node,notes,edge_id,end_node,external_ref",
		"A,main line,1,B,feat-100",
		"B,,2,C,",
		`"C","quoted, with comma",3,D,feat-101`,
	}, "\n")

	got, err := ReadEdgesCSV(strings.NewReader(src), "mains.csv")
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, network.EdgeRecord{EdgeID: "1", StartNode: "A", EndNode: "B", ExternalRef: "feat-100"}, got[0])
	assert.Equal(t, network.EdgeRecord{EdgeID: "2", StartNode: "B", EndNode: "C"}, got[1])
	assert.Equal(t, "3", got[2].EdgeID)
}

func TestReadEdgesCSVBOMHeader(t *testing.T) {
	src := "﻿edge_id,start_node,end_node\n1,A,B\n"
	got, err := ReadEdgesCSV(strings.NewReader(src), "mains.csv")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].EdgeID)
}

func TestReadEdgesCSVMissingColumn(t *testing.T) {
	src := "edge_id,start_node\n1,A\n"
	_, err := ReadEdgesCSV(strings.NewReader(src), "mains.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing required column "end_node"`)
	assert.Contains(t, err.Error(), "mains.csv")
}

func TestReadEdgesCSVBlankValue(t *testing.T) {
	src := "edge_id,start_node,end_node\n1,A,B\n2,,C\n"
	_, err := ReadEdgesCSV(strings.NewReader(src), "mains.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
	assert.Contains(t, err.Error(), "start_node is required")
}

func TestReadEdgesCSVEmptySource(t *testing.T) {
	_, err := ReadEdgesCSV(strings.NewReader(""), "mains.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty source")
}

func TestReadLinksCSV(t *testing.T) {
	src := "edge_id,secondary_ref\n1,parcel-9\n1,parcel-10\n2,parcel-11\n"
	got, err := ReadLinksCSV(strings.NewReader(src), "links.csv")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, network.LinkRecord{EdgeID: "1", Refs: []string{"parcel-9"}}, got[0])
	assert.Equal(t, network.LinkRecord{EdgeID: "1", Refs: []string{"parcel-10"}}, got[1])
}

func TestReadLinksCSVBlankRef(t *testing.T) {
	src := "edge_id,secondary_ref\n1,\n"
	_, err := ReadLinksCSV(strings.NewReader(src), "links.csv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 2")
	assert.Contains(t, err.Error(), "secondary_ref is required")
}

func TestReadEdgesJSONL(t *testing.T) {
	src := strings.Join([]string{
		`{"edge_id": 101, "start_node": "A", "end_node": "B", "external_ref": 7}`,
		``,
		`{"edge_id": "102", "start_node": 5, "end_node": 6}`,
	}, "\n")

	got, err := ReadEdgesJSONL(strings.NewReader(src), "mains.jsonl")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Integer attributes normalize to their decimal string form.
	assert.Equal(t, network.EdgeRecord{EdgeID: "101", StartNode: "A", EndNode: "B", ExternalRef: "7"}, got[0])
	assert.Equal(t, network.EdgeRecord{EdgeID: "102", StartNode: "5", EndNode: "6"}, got[1])
}

func TestReadEdgesJSONLMissingKey(t *testing.T) {
	src := `{"edge_id": "1", "start_node": "A"}`
	_, err := ReadEdgesJSONL(strings.NewReader(src), "mains.jsonl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1")
	assert.Contains(t, err.Error(), "end_node is required")
}

func TestReadEdgesJSONLRowNumbersArePhysicalLines(t *testing.T) {
	src := "{\"edge_id\":\"1\",\"start_node\":\"A\",\"end_node\":\"B\"}\n\nnot json\n"
	_, err := ReadEdgesJSONL(strings.NewReader(src), "mains.jsonl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 3")
}

func TestReadLinksJSONL(t *testing.T) {
	src := `{"edge_id": 1, "secondary_ref": "parcel-9"}`
	got, err := ReadLinksJSONL(strings.NewReader(src), "links.jsonl")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, network.LinkRecord{EdgeID: "1", Refs: []string{"parcel-9"}}, got[0])
}

func TestResolveFormat(t *testing.T) {
	cases := []struct {
		path, format string
		want         string
		wantErr      bool
	}{
		{"mains.csv", "", FormatCSV, false},
		{"mains.CSV", "", FormatCSV, false},
		{"mains.jsonl", "", FormatJSONL, false},
		{"mains.ndjson", "", FormatJSONL, false},
		{"mains.json", "", FormatJSONL, false},
		{"mains.txt", "csv", FormatCSV, false},
		{"mains.csv", "JSONL", FormatJSONL, false},
		{"mains.txt", "", "", true},
		{"mains.csv", "parquet", "", true},
	}
	for _, tc := range cases {
		got, err := ResolveFormat(tc.path, tc.format)
		if tc.wantErr {
			assert.Error(t, err, "%s/%s", tc.path, tc.format)
			continue
		}
		require.NoError(t, err, "%s/%s", tc.path, tc.format)
		assert.Equal(t, tc.want, got, "%s/%s", tc.path, tc.format)
	}
}

func TestLoadEdgesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mains.csv")
	require.NoError(t, os.WriteFile(path, []byte("edge_id,start_node,end_node\n1,A,B\n"), 0o644))

	got, err := LoadEdges(path, "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].EdgeID)

	_, err = LoadEdges(filepath.Join(dir, "missing.csv"), "")
	assert.Error(t, err)
}
