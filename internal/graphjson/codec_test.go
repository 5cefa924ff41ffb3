package graphjson

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pipetrace/internal/network"
)

func builtGraph(t *testing.T) *network.Graph {
	t.Helper()
	g, err := network.Build([]network.EdgeRecord{
		{EdgeID: "1", StartNode: "A", EndNode: "B", ExternalRef: "fid-1"},
		{EdgeID: "2", StartNode: "B", EndNode: "C"},
		{EdgeID: "3", StartNode: "B", EndNode: "D", ExternalRef: "fid-3"},
	}, network.Downstream)
	require.NoError(t, err)
	require.NoError(t, network.AttachSecondaryLinks(g, []network.LinkRecord{
		{EdgeID: "2", Refs: []string{"parcel-7", "parcel-8"}},
	}))
	return g
}

func TestRoundTrip(t *testing.T) {
	g := builtGraph(t)

	data, err := Encode(g)
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, g.Direction, decoded.Direction)
	assert.Equal(t, g.Adjacency, decoded.Adjacency)
	assert.Equal(t, g.EdgesByNode, decoded.EdgesByNode)
	assert.Equal(t, g.ExternalRefByEdge, decoded.ExternalRefByEdge)
	assert.Equal(t, g.SecondaryLinksByEdge, decoded.SecondaryLinksByEdge)
}

func TestRoundTripPreservesTotalFunction(t *testing.T) {
	g := builtGraph(t)

	data, err := Encode(g)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Empty(t, decoded.Adjacency.Get("never-seen"),
		"absent keys must keep reading as empty sequences after decode")
	assert.Equal(t, []network.NodeID{"C", "D"}, decoded.Adjacency.Get("B"),
		"neighbor order survives the round trip")
}

func TestEncodeDeterministic(t *testing.T) {
	g := builtGraph(t)

	first, err := Encode(g)
	require.NoError(t, err)
	second, err := Encode(g)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second), "equal graphs encode byte-identically")
}

func TestEncodeEmptyGraph(t *testing.T) {
	g, err := network.Build(nil, network.Upstream)
	require.NoError(t, err)

	data, err := Encode(g)
	require.NoError(t, err)
	decoded, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, network.Upstream, decoded.Direction)
	assert.Zero(t, decoded.NodeCount())
	assert.Empty(t, decoded.Adjacency.Get("anything"))
}

func TestEncodeErrors(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)

	_, err = Encode(&network.Graph{Direction: "DIAGONAL"})
	assert.Error(t, err)
}

func TestDecodeRejectsForeignDocuments(t *testing.T) {
	cases := []struct {
		name string
		data string
		want string
	}{
		{"not json", "{", "parse graph document"},
		{"missing tag", `{"adjacency": {}}`, "missing $type"},
		{"foreign tag", `{"$type": "pipetrace.Direction", "value": "UPSTREAM"}`, "unexpected $type"},
		{
			"bad direction",
			`{"$type": "pipetrace.Graph",
			  "adjacency": {"$type": "pipetrace.NodeListMap", "entries": {}},
			  "direction": {"$type": "pipetrace.Direction", "value": "SIDEWAYS"},
			  "edges_by_node": {"$type": "pipetrace.NodeListMap", "entries": {}},
			  "external_refs": {}, "secondary_links": {}}`,
			"direction",
		},
		{
			"untagged adjacency",
			`{"$type": "pipetrace.Graph",
			  "adjacency": {"entries": {}},
			  "direction": {"$type": "pipetrace.Direction", "value": "UPSTREAM"},
			  "edges_by_node": {"$type": "pipetrace.NodeListMap", "entries": {}},
			  "external_refs": {}, "secondary_links": {}}`,
			"adjacency",
		},
		{
			"misaligned sequences",
			`{"$type": "pipetrace.Graph",
			  "adjacency": {"$type": "pipetrace.NodeListMap", "entries": {"A": ["B", "C"]}},
			  "direction": {"$type": "pipetrace.Direction", "value": "UPSTREAM"},
			  "edges_by_node": {"$type": "pipetrace.NodeListMap", "entries": {"A": ["1"]}},
			  "external_refs": {}, "secondary_links": {}}`,
			"misaligned",
		},
		{
			"key set mismatch",
			`{"$type": "pipetrace.Graph",
			  "adjacency": {"$type": "pipetrace.NodeListMap", "entries": {"A": ["B"]}},
			  "direction": {"$type": "pipetrace.Direction", "value": "UPSTREAM"},
			  "edges_by_node": {"$type": "pipetrace.NodeListMap", "entries": {"Z": ["1"]}},
			  "external_refs": {}, "secondary_links": {}}`,
			"key sets differ",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode([]byte(tc.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestDecodeToleratesMissingOptionalSections(t *testing.T) {
	// Older files may omit the optional maps entirely; they decode as empty.
	data := `{"$type": "pipetrace.Graph",
	  "adjacency": {"$type": "pipetrace.NodeListMap", "entries": {"A": ["B"]}},
	  "direction": {"$type": "pipetrace.Direction", "value": "DOWNSTREAM"},
	  "edges_by_node": {"$type": "pipetrace.NodeListMap", "entries": {"A": ["1"]}}}`

	g, err := Decode([]byte(data))
	require.NoError(t, err)
	assert.NotNil(t, g.ExternalRefByEdge)
	assert.NotNil(t, g.SecondaryLinksByEdge)
	assert.Empty(t, g.ExternalRefByEdge)
}

func TestEncodeSortsKeys(t *testing.T) {
	g, err := network.Build([]network.EdgeRecord{
		{EdgeID: "9", StartNode: "zeta", EndNode: "alpha"},
		{EdgeID: "8", StartNode: "alpha", EndNode: "mid"},
	}, network.Downstream)
	require.NoError(t, err)

	data, err := Encode(g)
	require.NoError(t, err)

	text := string(data)
	assert.Less(t, strings.Index(text, `"alpha"`), strings.Index(text, `"zeta"`),
		"entry keys are emitted sorted")
	assert.Less(t, strings.Index(text, `"$type"`), strings.Index(text, `"adjacency"`))
}
