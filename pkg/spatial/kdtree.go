package spatial

import (
	"log"
	"math"
	"sort"

	"exam_router/pkg/geo"
	"exam_router/pkg/graph"
)

// kdNode is one node of the balanced 2-d tree. Axis 0 splits on latitude,
// axis 1 on longitude.
type kdNode struct {
	id       int64
	lat, lon float64
	axis     int
	left     *kdNode
	right    *kdNode
}

// point is a build-time (id, lat, lon) tuple.
type point struct {
	id       int64
	lat, lon float64
}

// Index answers nearest-vertex queries over the routable vertices of a
// graph (those with at least one outgoing edge).
type Index struct {
	g    *graph.Graph
	root *kdNode
}

// NewIndex builds the k-d tree over vertices that have outgoing edges.
func NewIndex(g *graph.Graph) *Index {
	points := make([]point, 0, len(g.Nodes))
	for _, id := range g.SortedNodeIDs() {
		if !g.HasOutgoing(id) {
			continue
		}
		n := g.Nodes[id]
		points = append(points, point{id: n.ID, lat: n.Lat, lon: n.Lon})
	}

	log.Printf("Building k-d tree from %d connected vertices", len(points))

	return &Index{g: g, root: buildKD(points, 0)}
}

// buildKD median-splits on the alternating axis, sorting the slice in
// place at each level.
func buildKD(points []point, depth int) *kdNode {
	if len(points) == 0 {
		return nil
	}

	axis := depth % 2
	sort.Slice(points, func(i, j int) bool {
		if axis == 0 {
			return points[i].lat < points[j].lat
		}
		return points[i].lon < points[j].lon
	})

	median := len(points) / 2
	node := &kdNode{
		id:   points[median].id,
		lat:  points[median].lat,
		lon:  points[median].lon,
		axis: axis,
	}
	node.left = buildKD(points[:median], depth+1)
	node.right = buildKD(points[median+1:], depth+1)
	return node
}

// nearestHelper descends best-first, pruning the far side whenever the
// splitting plane is provably further than the current best.
func nearestHelper(node *kdNode, lat, lon float64, bestID *int64, bestDist *float64) {
	if node == nil {
		return
	}

	dist := geo.Haversine(lat, lon, node.lat, node.lon)
	if dist < *bestDist {
		*bestDist = dist
		*bestID = node.id
	}

	var diff float64
	if node.axis == 0 {
		diff = lat - node.lat
	} else {
		diff = lon - node.lon
	}

	nearSide, farSide := node.left, node.right
	if diff >= 0 {
		nearSide, farSide = node.right, node.left
	}

	nearestHelper(nearSide, lat, lon, bestID, bestDist)

	if math.Abs(diff)*geo.MetersPerDegree < *bestDist {
		nearestHelper(farSide, lat, lon, bestID, bestDist)
	}
}

// Nearest returns the vertex closest to the point. Falls back to a linear
// scan over connected vertices when the tree is absent. The second return
// is false when no routable vertex exists.
func (idx *Index) Nearest(lat, lon float64) (int64, bool) {
	if idx.root != nil {
		bestID := int64(-1)
		bestDist := math.Inf(1)
		nearestHelper(idx.root, lat, lon, &bestID, &bestDist)
		if bestID != -1 {
			return bestID, true
		}
	}

	ids := idx.KNearest(lat, lon, 1)
	if len(ids) == 0 {
		return -1, false
	}
	return ids[0], true
}

// candidate pairs a distance with a vertex id for k-nearest selection.
type candidate struct {
	dist float64
	id   int64
}

// worseThan orders candidates by (distance, id); used as a max-heap
// priority so the selection and its tie-breaks are deterministic.
func (c candidate) worseThan(o candidate) bool {
	if c.dist != o.dist {
		return c.dist > o.dist
	}
	return c.id > o.id
}

// KNearest returns up to k vertex ids ordered by ascending distance, ties
// broken by id. Selection runs over all connected vertices with a bounded
// max-heap, so cost is O(n log k).
func (idx *Index) KNearest(lat, lon float64, k int) []int64 {
	if k <= 0 {
		return nil
	}

	heap := make([]candidate, 0, k+1)

	siftUp := func(i int) {
		for i > 0 {
			parent := (i - 1) / 2
			if !heap[i].worseThan(heap[parent]) {
				break
			}
			heap[i], heap[parent] = heap[parent], heap[i]
			i = parent
		}
	}
	siftDown := func(i int) {
		n := len(heap)
		for {
			worst := i
			if l := 2*i + 1; l < n && heap[l].worseThan(heap[worst]) {
				worst = l
			}
			if r := 2*i + 2; r < n && heap[r].worseThan(heap[worst]) {
				worst = r
			}
			if worst == i {
				break
			}
			heap[i], heap[worst] = heap[worst], heap[i]
			i = worst
		}
	}

	for id, node := range idx.g.Nodes {
		if !idx.g.HasOutgoing(id) {
			continue
		}
		c := candidate{dist: geo.Haversine(lat, lon, node.Lat, node.Lon), id: id}
		if len(heap) < k {
			heap = append(heap, c)
			siftUp(len(heap) - 1)
			continue
		}
		if heap[0].worseThan(c) {
			heap[0] = c
			siftDown(0)
		}
	}

	sort.Slice(heap, func(i, j int) bool {
		if heap[i].dist != heap[j].dist {
			return heap[i].dist < heap[j].dist
		}
		return heap[i].id < heap[j].id
	})

	ids := make([]int64, len(heap))
	for i, c := range heap {
		ids[i] = c.id
	}
	return ids
}

// NearestInMainComponent linearly scans the members of the main component,
// the snap target that is guaranteed routable. Scans in ascending id order
// so equal distances resolve to the lowest id.
func (idx *Index) NearestInMainComponent(lat, lon float64) (int64, bool) {
	main := idx.g.MainComponent()
	if main <= 0 {
		return idx.Nearest(lat, lon)
	}

	bestID := int64(-1)
	bestDist := math.Inf(1)
	for _, id := range idx.g.SortedNodeIDs() {
		if idx.g.Component[id] != main {
			continue
		}
		n := idx.g.Nodes[id]
		d := geo.Haversine(lat, lon, n.Lat, n.Lon)
		if d < bestDist {
			bestDist = d
			bestID = id
		}
	}
	if bestID == -1 {
		return -1, false
	}
	return bestID, true
}

// Snap resolves a free coordinate to a routable vertex: nearest first, and
// if that vertex sits outside the main component, the nearest main-component
// vertex instead. The second return is false only when no vertex has edges.
func (idx *Index) Snap(lat, lon float64) (int64, bool) {
	id, ok := idx.Nearest(lat, lon)
	if !ok {
		return -1, false
	}
	if idx.g.Component[id] != idx.g.MainComponent() {
		if rescued, ok := idx.NearestInMainComponent(lat, lon); ok {
			return rescued, true
		}
	}
	return id, true
}
