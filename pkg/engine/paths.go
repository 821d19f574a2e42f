package engine

import (
	"fmt"
	"time"

	"exam_router/pkg/routing"
)

// pathCandidates bounds the k-nearest fan-out for coordinate queries.
const pathCandidates = 5

// PathResult is a point-to-point query outcome. An unreachable query is
// not an error: Path stays empty and Reason says why.
type PathResult struct {
	Path         []int64      `json:"node_ids"`
	Coords       [][2]float64 `json:"path"`
	TotalSeconds float64      `json:"total_seconds"`
	Reason       string       `json:"reason,omitempty"`
	AStarMs      int64        `json:"astar_ms"`
}

// FindPathByNodes runs A* between two vertex ids.
func (e *Engine) FindPathByNodes(from, to int64) (*PathResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.ready() {
		return nil, ErrGraphNotReady
	}
	return e.findPathLocked(fmt.Sprintf("n:%d:%d", from, to), []int64{from}, []int64{to}), nil
}

// FindPathByCoords snaps both endpoints to their 5 nearest candidates and
// returns the first non-empty A* path.
func (e *Engine) FindPathByCoords(fromLat, fromLon, toLat, toLon float64) (*PathResult, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.ready() {
		return nil, ErrGraphNotReady
	}

	fromCandidates := e.kd.KNearest(fromLat, fromLon, pathCandidates)
	toCandidates := e.kd.KNearest(toLat, toLon, pathCandidates)
	if len(fromCandidates) == 0 || len(toCandidates) == 0 {
		return &PathResult{Reason: "no routable vertices near endpoints"}, nil
	}

	key := fmt.Sprintf("c:%.6f:%.6f:%.6f:%.6f", fromLat, fromLon, toLat, toLon)
	return e.findPathLocked(key, fromCandidates, toCandidates), nil
}

// findPathLocked tries candidate pairs until a path materialises. Results
// are cached per key until the next Build purges the cache. Caller holds
// at least a read lock.
func (e *Engine) findPathLocked(cacheKey string, fromCandidates, toCandidates []int64) *PathResult {
	if cached, ok := e.pathCache.Get(cacheKey); ok {
		return &cached
	}

	start := time.Now()
	var path []int64
	for _, from := range fromCandidates {
		for _, to := range toCandidates {
			if p := routing.AStar(e.g, from, to); len(p) > 0 {
				path = p
				break
			}
		}
		if len(path) > 0 {
			break
		}
	}

	result := PathResult{AStarMs: time.Since(start).Milliseconds()}
	if len(path) == 0 {
		result.Reason = "no route between candidate vertices"
	} else {
		path = routing.CleanPath(e.g, path)
		result.Path = path
		if cost, ok := routing.PathCost(e.g, path); ok {
			result.TotalSeconds = cost
		}
		result.Coords = make([][2]float64, 0, len(path))
		for _, id := range path {
			n := e.g.Nodes[id]
			result.Coords = append(result.Coords, [2]float64{n.Lat, n.Lon})
		}
	}

	e.pathCache.Add(cacheKey, result)
	return &result
}
