package routing

import (
	"math"

	"exam_router/pkg/geo"
	"exam_router/pkg/graph"
)

// maxSpeedMetersPerSecond is the highest category default speed (~100 km/h).
// Dividing great-circle distance by it keeps the heuristic admissible for
// time-weighted edges no faster than that; a maxspeed tag above 100 km/h
// produces a faster edge, on which the estimate can overshoot.
const maxSpeedMetersPerSecond = 27.8

// maxBidirectionalIterations caps the interleaved search; exceeding it
// returns an empty path.
const maxBidirectionalIterations = 100_000

// heuristic estimates remaining travel time in seconds between two vertices.
func heuristic(g *graph.Graph, from, to int64) float64 {
	a, okA := g.Nodes[from]
	b, okB := g.Nodes[to]
	if !okA || !okB {
		return 0
	}
	return geo.Haversine(a.Lat, a.Lon, b.Lat, b.Lon) / maxSpeedMetersPerSecond
}

// searchItem is an open-set entry ordered by f-score.
type searchItem struct {
	Node int64
	G    float64
	F    float64
}

// searchHeap is a concrete-typed min-heap keyed by f-score.
type searchHeap struct {
	items []searchItem
}

func (h *searchHeap) Len() int { return len(h.items) }

func (h *searchHeap) Push(item searchItem) {
	h.items = append(h.items, item)
	i := len(h.items) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if h.items[i].F >= h.items[parent].F {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *searchHeap) Pop() searchItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	i := 0
	for {
		smallest := i
		if l := 2*i + 1; l < len(h.items) && h.items[l].F < h.items[smallest].F {
			smallest = l
		}
		if r := 2*i + 2; r < len(h.items) && h.items[r].F < h.items[smallest].F {
			smallest = r
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
	return item
}

// AStar finds a shortest time path from start to goal, returned as the
// vertex sequence including both endpoints. Returns nil when the goal is
// unreachable.
func AStar(g *graph.Graph, start, goal int64) []int64 {
	if _, ok := g.Nodes[start]; !ok {
		return nil
	}
	if _, ok := g.Nodes[goal]; !ok {
		return nil
	}
	if start == goal {
		return []int64{start}
	}

	gScore := map[int64]float64{start: 0}
	cameFrom := make(map[int64]int64)

	var open searchHeap
	open.Push(searchItem{Node: start, G: 0, F: heuristic(g, start, goal)})
	inOpen := map[int64]bool{start: true} // prevents duplicate enqueues

	for open.Len() > 0 {
		current := open.Pop()
		delete(inOpen, current.Node)

		if current.Node == goal {
			return reconstructPath(cameFrom, start, goal)
		}

		for _, e := range g.Adj[current.Node] {
			tentative := gScore[current.Node] + e.Seconds
			if known, seen := gScore[e.To]; seen && tentative >= known {
				continue
			}
			gScore[e.To] = tentative
			cameFrom[e.To] = current.Node
			if !inOpen[e.To] {
				open.Push(searchItem{
					Node: e.To,
					G:    tentative,
					F:    tentative + heuristic(g, e.To, goal),
				})
				inOpen[e.To] = true
			}
		}
	}

	return nil
}

// reconstructPath backtracks the came-from chain from goal to start.
func reconstructPath(cameFrom map[int64]int64, start, goal int64) []int64 {
	path := []int64{goal}
	node := goal
	for node != start {
		prev, ok := cameFrom[node]
		if !ok {
			return nil
		}
		node = prev
		path = append(path, node)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// reverseAdjacency builds the reversed edge map so the backward frontier
// of the bidirectional search honours one-way semantics.
func reverseAdjacency(g *graph.Graph) map[int64][]graph.Edge {
	rev := make(map[int64][]graph.Edge, len(g.Adj))
	for from, edges := range g.Adj {
		for _, e := range edges {
			rev[e.To] = append(rev[e.To], graph.Edge{To: from, Seconds: e.Seconds})
		}
	}
	return rev
}

// AStarBidirectional interleaves one forward and one backward expansion per
// iteration. The search stops the first time a vertex is closed on one side
// while already closed on the other; that vertex is the meeting point. The
// meeting rule is a heuristic cutoff, not a proof of optimality. Exceeding
// the iteration cap returns an empty path.
func AStarBidirectional(g *graph.Graph, start, goal int64) []int64 {
	if _, ok := g.Nodes[start]; !ok {
		return nil
	}
	if _, ok := g.Nodes[goal]; !ok {
		return nil
	}
	if start == goal {
		return []int64{start}
	}

	rev := reverseAdjacency(g)

	gForward := map[int64]float64{start: 0}
	gBackward := map[int64]float64{goal: 0}
	cameForward := make(map[int64]int64)
	cameBackward := make(map[int64]int64)
	closedForward := make(map[int64]bool)
	closedBackward := make(map[int64]bool)

	var openForward, openBackward searchHeap
	openForward.Push(searchItem{Node: start, G: 0, F: heuristic(g, start, goal)})
	openBackward.Push(searchItem{Node: goal, G: 0, F: heuristic(g, goal, start)})

	meeting := int64(-1)

	for iter := 0; openForward.Len() > 0 && openBackward.Len() > 0 && iter < maxBidirectionalIterations; iter++ {
		// Forward step.
		current := openForward.Pop()
		if !closedForward[current.Node] {
			closedForward[current.Node] = true
			if closedBackward[current.Node] {
				meeting = current.Node
				break
			}
			for _, e := range g.Adj[current.Node] {
				tentative := gForward[current.Node] + e.Seconds
				if known, seen := gForward[e.To]; !seen || tentative < known {
					gForward[e.To] = tentative
					cameForward[e.To] = current.Node
					openForward.Push(searchItem{
						Node: e.To,
						G:    tentative,
						F:    tentative + heuristic(g, e.To, goal),
					})
				}
			}
		}

		if openBackward.Len() == 0 {
			break
		}

		// Backward step over reversed edges.
		current = openBackward.Pop()
		if !closedBackward[current.Node] {
			closedBackward[current.Node] = true
			if closedForward[current.Node] {
				meeting = current.Node
				break
			}
			for _, e := range rev[current.Node] {
				tentative := gBackward[current.Node] + e.Seconds
				if known, seen := gBackward[e.To]; !seen || tentative < known {
					gBackward[e.To] = tentative
					cameBackward[e.To] = current.Node
					openBackward.Push(searchItem{
						Node: e.To,
						G:    tentative,
						F:    tentative + heuristic(g, e.To, start),
					})
				}
			}
		}
	}

	if meeting == -1 {
		return nil
	}

	// Forward half: start ... meeting.
	var path []int64
	node := meeting
	for {
		path = append(path, node)
		prev, ok := cameForward[node]
		if !ok {
			break
		}
		node = prev
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	// Backward half: the chain from meeting leads toward goal.
	node = meeting
	for {
		prev, ok := cameBackward[node]
		if !ok {
			break
		}
		path = append(path, prev)
		node = prev
	}

	return path
}

// PathCost sums the edge weights along a vertex sequence. The second
// return is false when some consecutive pair has no connecting edge.
// Parallel edges contribute their cheapest weight.
func PathCost(g *graph.Graph, path []int64) (float64, bool) {
	total := 0.0
	for i := 0; i+1 < len(path); i++ {
		best := math.Inf(1)
		for _, e := range g.Adj[path[i]] {
			if e.To == path[i+1] && e.Seconds < best {
				best = e.Seconds
			}
		}
		if math.IsInf(best, 1) {
			return 0, false
		}
		total += best
	}
	return total, true
}
