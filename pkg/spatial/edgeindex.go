package spatial

import (
	"math"

	"github.com/tidwall/rtree"

	"exam_router/pkg/geo"
	"exam_router/pkg/graph"
)

// segment is one road edge kept in the r-tree, with endpoint coordinates.
type segment struct {
	aLat, aLon float64
	bLat, bLon float64
}

// Search boxes for nearest-road lookups, in degrees. The wide box is only
// tried when the tight one comes up empty.
const (
	roadSearchRadiusDeg     = 0.01
	roadSearchWideRadiusDeg = 0.05
)

// EdgeIndex is an r-tree over road segments. It backs the snap-quality
// diagnostics: how far a raw coordinate is from the nearest drawn road,
// as opposed to the nearest graph vertex.
type EdgeIndex struct {
	tr  rtree.RTreeG[segment]
	len int
}

// NewEdgeIndex indexes every directed edge's segment by its bounding box.
func NewEdgeIndex(g *graph.Graph) *EdgeIndex {
	idx := &EdgeIndex{}
	for from, edges := range g.Adj {
		a, ok := g.Nodes[from]
		if !ok {
			continue
		}
		for _, e := range edges {
			b, ok := g.Nodes[e.To]
			if !ok {
				continue
			}
			min := [2]float64{math.Min(a.Lon, b.Lon), math.Min(a.Lat, b.Lat)}
			max := [2]float64{math.Max(a.Lon, b.Lon), math.Max(a.Lat, b.Lat)}
			idx.tr.Insert(min, max, segment{
				aLat: a.Lat, aLon: a.Lon,
				bLat: b.Lat, bLon: b.Lon,
			})
			idx.len++
		}
	}
	return idx
}

// Len returns the number of indexed segments.
func (idx *EdgeIndex) Len() int {
	return idx.len
}

// NearestRoadDistance returns the distance in meters from the point to the
// closest indexed road segment. Returns +Inf when no segment lies within
// the widest search box.
func (idx *EdgeIndex) NearestRoadDistance(lat, lon float64) float64 {
	best := idx.searchBox(lat, lon, roadSearchRadiusDeg)
	if !math.IsInf(best, 1) {
		return best
	}
	return idx.searchBox(lat, lon, roadSearchWideRadiusDeg)
}

func (idx *EdgeIndex) searchBox(lat, lon, radius float64) float64 {
	best := math.Inf(1)
	idx.tr.Search(
		[2]float64{lon - radius, lat - radius},
		[2]float64{lon + radius, lat + radius},
		func(_, _ [2]float64, s segment) bool {
			d, _ := geo.PointToSegmentDist(lat, lon, s.aLat, s.aLon, s.bLat, s.bLon)
			if d < best {
				best = d
			}
			return true
		},
	)
	return best
}
