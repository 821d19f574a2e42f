package spatial

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exam_router/pkg/graph"
)

func TestEdgeIndexNearestRoadDistance(t *testing.T) {
	g := graph.New()
	g.AddNode(graph.Node{ID: 1, Lat: 0, Lon: 0})
	g.AddNode(graph.Node{ID: 2, Lat: 0, Lon: 0.01})
	g.AddEdge(1, 2, 10)
	g.AddEdge(2, 1, 10)

	idx := NewEdgeIndex(g)
	require.Equal(t, 2, idx.Len())

	// A point on the segment is at distance ~0.
	d := idx.NearestRoadDistance(0, 0.005)
	assert.Less(t, d, 1.0)

	// A point 0.001 deg north of the segment midpoint is ~111 m away.
	d = idx.NearestRoadDistance(0.001, 0.005)
	assert.InDelta(t, 111, d, 5)
}

func TestEdgeIndexNoRoadsNearby(t *testing.T) {
	g := graph.New()
	g.AddNode(graph.Node{ID: 1, Lat: 0, Lon: 0})
	g.AddNode(graph.Node{ID: 2, Lat: 0, Lon: 0.01})
	g.AddEdge(1, 2, 10)

	idx := NewEdgeIndex(g)

	// Far outside both search boxes.
	d := idx.NearestRoadDistance(5, 5)
	assert.True(t, math.IsInf(d, 1))
}

func TestEdgeIndexEmptyGraph(t *testing.T) {
	idx := NewEdgeIndex(graph.New())
	assert.Equal(t, 0, idx.Len())
	assert.True(t, math.IsInf(idx.NearestRoadDistance(0, 0), 1))
}
