package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDListMapTotalFunction(t *testing.T) {
	lm := NewIDListMap[NodeID]()
	assert.Empty(t, lm.Get("missing"), "absent key reads as empty sequence")

	lm.Append("A", "B")
	lm.Append("A", "C", "D")
	assert.Equal(t, []NodeID{"B", "C", "D"}, lm.Get("A"))
	assert.Empty(t, lm.Get("B"), "appending under A must not fabricate B")
	assert.Equal(t, 1, lm.Len())
}

func TestIDListMapKeysSorted(t *testing.T) {
	lm := NewIDListMap[EdgeID]()
	lm.Append("n3", "e1")
	lm.Append("n1", "e2")
	lm.Append("n2", "e3")
	assert.Equal(t, []NodeID{"n1", "n2", "n3"}, lm.Keys())
}

func TestIDListMapNilSafe(t *testing.T) {
	var lm *IDListMap[NodeID]
	assert.Empty(t, lm.Get("A"))
	assert.Zero(t, lm.Len())
	assert.Nil(t, lm.Keys())
}

func TestParseDirection(t *testing.T) {
	cases := []struct {
		in   string
		want Direction
	}{
		{"UPSTREAM", Upstream},
		{"upstream", Upstream},
		{" u ", Upstream},
		{"DOWNSTREAM", Downstream},
		{"d", Downstream},
	}
	for _, tc := range cases {
		got, err := ParseDirection(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
	}

	_, err := ParseDirection("both")
	assert.Error(t, err)
	_, err = ParseDirection("")
	assert.Error(t, err)
}

func TestGraphCounts(t *testing.T) {
	g, err := Build(sampleRecords(), Downstream)
	require.NoError(t, err)

	assert.Equal(t, 2, g.NodeCount(), "only nodes with outgoing adjacency count")
	assert.Equal(t, 3, g.EdgeCount())

	var nilGraph *Graph
	assert.Zero(t, nilGraph.NodeCount())
	assert.Zero(t, nilGraph.EdgeCount())
}
