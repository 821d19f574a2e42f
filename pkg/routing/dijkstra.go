package routing

import (
	"math"

	"exam_router/pkg/graph"
)

// MinHeap is a concrete-typed min-heap for the Dijkstra priority queue.
// Avoids interface boxing overhead of container/heap.
type MinHeap struct {
	items []PQItem
}

// PQItem is a priority queue entry.
type PQItem struct {
	Node int64
	Dist float64
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node int64, dist float64) {
	h.items = append(h.items, PQItem{node, dist})
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].Dist >= h.items[parent].Dist {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.items[left].Dist < h.items[smallest].Dist {
			smallest = left
		}
		if right < n && h.items[right].Dist < h.items[smallest].Dist {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// Dijkstra computes single-source shortest times in seconds from start.
// Every vertex appears in the result; unreachable vertices stay +Inf.
// Stale heap entries are skipped on pop (lazy deletion).
func Dijkstra(g *graph.Graph, start int64) map[int64]float64 {
	distances := make(map[int64]float64, len(g.Nodes))
	for id := range g.Nodes {
		distances[id] = math.Inf(1)
	}
	distances[start] = 0

	var pq MinHeap
	pq.Push(start, 0)

	for pq.Len() > 0 {
		cur := pq.Pop()
		if cur.Dist > distances[cur.Node] {
			continue
		}
		for _, e := range g.Adj[cur.Node] {
			if next := cur.Dist + e.Seconds; next < distances[e.To] {
				distances[e.To] = next
				pq.Push(e.To, next)
			}
		}
	}

	return distances
}

// DijkstraWithParents additionally records the shortest-path tree.
// parents[start] == start; unreached vertices keep parent -1.
func DijkstraWithParents(g *graph.Graph, start int64) (map[int64]float64, map[int64]int64) {
	distances := make(map[int64]float64, len(g.Nodes))
	parents := make(map[int64]int64, len(g.Nodes))
	for id := range g.Nodes {
		distances[id] = math.Inf(1)
		parents[id] = -1
	}
	distances[start] = 0
	parents[start] = start

	var pq MinHeap
	pq.Push(start, 0)

	for pq.Len() > 0 {
		cur := pq.Pop()
		if cur.Dist > distances[cur.Node] {
			continue
		}
		for _, e := range g.Adj[cur.Node] {
			if next := cur.Dist + e.Seconds; next < distances[e.To] {
				distances[e.To] = next
				parents[e.To] = cur.Node
				pq.Push(e.To, next)
			}
		}
	}

	return distances, parents
}
