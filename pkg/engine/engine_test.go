package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"exam_router/pkg/allot"
	"exam_router/pkg/osm"
)

// stubSource serves a fixed payload (or error) instead of hitting Overpass.
type stubSource struct {
	payload []byte
	err     error
}

func (s stubSource) Fetch(_ context.Context, _ orb.Bound, _ osm.Detail) ([]byte, error) {
	return s.payload, s.err
}

// trianglePayload is three vertices around the origin joined by
// bidirectional residential roads (30 km/h default speed).
var trianglePayload = []byte(`{
	"version": 0.6,
	"elements": [
		{"type": "node", "id": 1, "lat": 0, "lon": 0},
		{"type": "node", "id": 2, "lat": 0, "lon": 0.01},
		{"type": "node", "id": 3, "lat": 0.01, "lon": 0},
		{"type": "way", "id": 10, "nodes": [1, 2], "tags": {"highway": "residential"}},
		{"type": "way", "id": 11, "nodes": [1, 3], "tags": {"highway": "residential"}},
		{"type": "way", "id": 12, "nodes": [2, 3], "tags": {"highway": "residential"}}
	]
}`)

// twoComponentPayload keeps vertices 1-3 connected near the origin and an
// isolated 4-5 pair far north-east.
var twoComponentPayload = []byte(`{
	"version": 0.6,
	"elements": [
		{"type": "node", "id": 1, "lat": 0, "lon": 0},
		{"type": "node", "id": 2, "lat": 0, "lon": 0.01},
		{"type": "node", "id": 3, "lat": 0.01, "lon": 0},
		{"type": "node", "id": 4, "lat": 1, "lon": 1},
		{"type": "node", "id": 5, "lat": 1, "lon": 1.01},
		{"type": "way", "id": 10, "nodes": [1, 2, 3], "tags": {"highway": "residential"}},
		{"type": "way", "id": 11, "nodes": [4, 5], "tags": {"highway": "residential"}}
	]
}`)

// onewayPairPayload is two vertices joined by a single one-way segment 1->2.
var onewayPairPayload = []byte(`{
	"version": 0.6,
	"elements": [
		{"type": "node", "id": 1, "lat": 0, "lon": 0},
		{"type": "node", "id": 2, "lat": 0, "lon": 0.01},
		{"type": "way", "id": 10, "nodes": [1, 2],
		 "tags": {"highway": "residential", "oneway": "yes"}}
	]
}`)

var testBound = orb.Bound{Min: orb.Point{-0.1, -0.1}, Max: orb.Point{1.1, 1.1}}

func buildEngine(t *testing.T, payload []byte, centres []allot.Centre) *Engine {
	t.Helper()
	e := New(Config{Source: stubSource{payload: payload}})
	_, err := e.Build(context.Background(), testBound, osm.DetailMedium, centres)
	require.NoError(t, err)
	return e
}

func TestQueriesBeforeBuildRefuseService(t *testing.T) {
	e := New(Config{Source: stubSource{payload: trianglePayload}})

	_, err := e.RunAllotment(nil)
	assert.ErrorIs(t, err, ErrGraphNotReady)

	_, err = e.FindPathByNodes(1, 2)
	assert.ErrorIs(t, err, ErrGraphNotReady)

	_, err = e.Diagnostics()
	assert.ErrorIs(t, err, ErrGraphNotReady)

	_, err = e.RunParallelDijkstra()
	assert.ErrorIs(t, err, ErrGraphNotReady)
}

func TestBuildRejectsEmptyBBox(t *testing.T) {
	e := New(Config{Source: stubSource{payload: trianglePayload}})
	_, err := e.Build(context.Background(), orb.Bound{}, osm.DetailMedium, nil)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestBuildReportCounts(t *testing.T) {
	e := New(Config{Source: stubSource{payload: trianglePayload}})
	report, err := e.Build(context.Background(), testBound, osm.DetailMedium,
		[]allot.Centre{{CentreID: "C", Lat: 0, Lon: 0, MaxCapacity: 5}})
	require.NoError(t, err)

	assert.Equal(t, 3, report.NodeCount)
	assert.Equal(t, 6, report.EdgeCount)
	assert.False(t, report.UsedFallback)

	// The centre snapped onto vertex 1.
	centres := e.Centres()
	require.Len(t, centres, 1)
	assert.Equal(t, int64(1), centres[0].SnappedNode)
}

func TestBuildFallsBackOnFetchError(t *testing.T) {
	e := New(Config{Source: stubSource{err: errors.New("overpass down")}})
	report, err := e.Build(context.Background(), testBound, osm.DetailMedium, nil)
	require.NoError(t, err)

	assert.True(t, report.UsedFallback)
	assert.Equal(t, 80*80, report.NodeCount)
}

func TestBuildFallsBackOnEmptyPayload(t *testing.T) {
	e := New(Config{Source: stubSource{payload: []byte(`{"elements": []}`)}})
	report, err := e.Build(context.Background(), testBound, osm.DetailMedium, nil)
	require.NoError(t, err)
	assert.True(t, report.UsedFallback)
}

func TestAllotmentTriangleCapacityOne(t *testing.T) {
	e := buildEngine(t, trianglePayload, []allot.Centre{
		{CentreID: "C", Lat: 0, Lon: 0, MaxCapacity: 1},
	})

	students := []allot.Student{
		{StudentID: "s1", Lat: 0, Lon: 0.01, Category: allot.CategoryMale},
		{StudentID: "s2", Lat: 0.01, Lon: 0, Category: allot.CategoryMale},
	}

	result, err := e.RunAllotment(students)
	require.NoError(t, err)

	// Exactly one seat: both students are ~133 s away, so the id
	// tie-break fills it with s1.
	require.Len(t, result.Assignments, 1)
	assert.Equal(t, "C", result.Assignments["s1"])

	// Both debug rows carry the centre cost (~133.4 s for 1112 m at 30 km/h).
	require.Contains(t, result.DebugDistances, "s1")
	assert.InDelta(t, 133.4, result.DebugDistances["s1"]["C"], 1.0)
}

func TestAllotmentRescuesIslandStudent(t *testing.T) {
	e := buildEngine(t, twoComponentPayload, []allot.Centre{
		{CentreID: "C", Lat: 0, Lon: 0, MaxCapacity: 5},
	})

	// The student sits on the small island; the snap rescue moves them to
	// the main component, from which the centre is reachable.
	students := []allot.Student{
		{StudentID: "s1", Lat: 1, Lon: 1.01, Category: allot.CategoryMale},
	}

	result, err := e.RunAllotment(students)
	require.NoError(t, err)
	assert.Equal(t, "C", result.Assignments["s1"])

	report, err := e.Diagnostics()
	require.NoError(t, err)
	require.Len(t, report.Students, 1)
	assert.Equal(t, report.Students[0].ComponentID, e.g.MainComponent())
}

func TestAllotmentOnewayDirectionConvention(t *testing.T) {
	e := buildEngine(t, onewayPairPayload, []allot.Centre{
		{CentreID: "C", Lat: 0, Lon: 0, MaxCapacity: 5},
	})

	// Vertex 2 has no outgoing edges, so it is not in the spatial index and
	// the student snaps to vertex 1. Precompute runs from the centre outward,
	// so the table still records vertex 2, at the far end of the one-way
	// segment, as reachable.
	students := []allot.Student{
		{StudentID: "s1", Lat: 0, Lon: 0.01, Category: allot.CategoryMale},
	}

	result, err := e.RunAllotment(students)
	require.NoError(t, err)
	assert.Equal(t, "C", result.Assignments["s1"])
	require.Contains(t, e.table, int64(2))
	assert.InDelta(t, 133.4, e.table[2]["C"], 1.0)
}

func TestAllotmentDeterministic(t *testing.T) {
	centres := []allot.Centre{
		{CentreID: "C", Lat: 0, Lon: 0, MaxCapacity: 1},
	}
	makeStudents := func() []allot.Student {
		return []allot.Student{
			{StudentID: "s1", Lat: 0, Lon: 0.01, Category: allot.CategoryMale},
			{StudentID: "s2", Lat: 0.01, Lon: 0, Category: allot.CategoryMale},
			{StudentID: "s3", Lat: 0.005, Lon: 0.005, Category: allot.CategoryFemale},
		}
	}

	e := buildEngine(t, trianglePayload, centres)
	first, err := e.RunAllotment(makeStudents())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		again, err := e.RunAllotment(makeStudents())
		require.NoError(t, err)
		assert.Equal(t, first.Assignments, again.Assignments)
	}
}

func TestAllotmentEmptyStudents(t *testing.T) {
	e := buildEngine(t, trianglePayload, []allot.Centre{
		{CentreID: "C", Lat: 0, Lon: 0, MaxCapacity: 5},
	})

	result, err := e.RunAllotment(nil)
	require.NoError(t, err)
	assert.Empty(t, result.Assignments)
}

func TestAllotmentNoCentres(t *testing.T) {
	e := buildEngine(t, trianglePayload, nil)

	result, err := e.RunAllotment([]allot.Student{
		{StudentID: "s1", Lat: 0, Lon: 0.01},
	})
	require.NoError(t, err)
	assert.Empty(t, result.Assignments)
}

func TestFindPathByNodes(t *testing.T) {
	e := buildEngine(t, trianglePayload, nil)

	result, err := e.FindPathByNodes(2, 3)
	require.NoError(t, err)
	require.NotEmpty(t, result.Path)
	assert.Equal(t, int64(2), result.Path[0])
	assert.Equal(t, int64(3), result.Path[len(result.Path)-1])
	assert.Greater(t, result.TotalSeconds, 0.0)
	assert.Len(t, result.Coords, len(result.Path))
}

func TestFindPathSameNode(t *testing.T) {
	e := buildEngine(t, trianglePayload, nil)

	result, err := e.FindPathByNodes(1, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, result.Path)
	assert.Equal(t, 0.0, result.TotalSeconds)
}

func TestFindPathUnreachableReturnsReason(t *testing.T) {
	e := buildEngine(t, onewayPairPayload, nil)

	// Vertex 2 has no outgoing edges, so 2->1 cannot exist.
	result, err := e.FindPathByNodes(2, 1)
	require.NoError(t, err)
	assert.Empty(t, result.Path)
	assert.NotEmpty(t, result.Reason)
}

func TestFindPathByCoords(t *testing.T) {
	e := buildEngine(t, trianglePayload, nil)

	result, err := e.FindPathByCoords(0, 0.0101, 0.0099, 0)
	require.NoError(t, err)
	require.NotEmpty(t, result.Path)
	assert.Equal(t, int64(2), result.Path[0])

	// Second identical query hits the cache and matches.
	cached, err := e.FindPathByCoords(0, 0.0101, 0.0099, 0)
	require.NoError(t, err)
	assert.Equal(t, result.Path, cached.Path)
	assert.Equal(t, result.TotalSeconds, cached.TotalSeconds)
}

func TestParallelDijkstraPerCentreResults(t *testing.T) {
	e := buildEngine(t, trianglePayload, []allot.Centre{
		{CentreID: "C1", Lat: 0, Lon: 0, MaxCapacity: 5},
		{CentreID: "C2", Lat: 0.01, Lon: 0, MaxCapacity: 5},
	})

	results, err := e.RunParallelDijkstra()
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "C1", results[0].CentreID)
	assert.True(t, results[0].Success)
	assert.Equal(t, 3, results[0].ReachableNodes())
}

func TestDiagnosticsReport(t *testing.T) {
	e := buildEngine(t, trianglePayload, []allot.Centre{
		{CentreID: "C", Lat: 0, Lon: 0, MaxCapacity: 1},
	})

	_, err := e.RunAllotment([]allot.Student{
		{StudentID: "s1", Lat: 0, Lon: 0.01, Category: allot.CategoryMale},
		{StudentID: "s2", Lat: 0.01, Lon: 0, Category: allot.CategoryFemale},
	})
	require.NoError(t, err)

	report, err := e.Diagnostics()
	require.NoError(t, err)

	assert.Equal(t, 2, report.Metadata.NumStudents)
	assert.Equal(t, 1, report.Metadata.NumCentres)
	require.Len(t, report.Centres, 1)
	assert.Equal(t, 1, report.Centres[0].AssignedStudents)

	require.Len(t, report.Students, 2)
	byID := map[string]StudentDiagnostics{}
	for _, s := range report.Students {
		byID[s.StudentID] = s
	}

	// s1 won the only seat; s2 is left over and counts as unassigned.
	require.NotNil(t, byID["s1"].AssignedCentreID)
	assert.Equal(t, "C", *byID["s1"].AssignedCentreID)
	assert.Nil(t, byID["s2"].AssignedCentreID)
	assert.Equal(t, 1, report.Summary.UnreachableCount)

	// Students sit exactly on vertices, so snap distances are ~0 and both
	// reach the single centre.
	assert.Less(t, byID["s1"].SnapDistanceM, 1.0)
	assert.Equal(t, 1, byID["s1"].ReachableCount)
	require.Contains(t, byID["s1"].AltDistances, "C")
	require.NotNil(t, byID["s1"].AltDistances["C"])
	assert.InDelta(t, 133.4, *byID["s1"].AltDistances["C"], 1.0)

	// Single centre: no runner-up, so no near-tie.
	assert.False(t, byID["s1"].NearTie)
}
