package routing

import (
	"log"

	"exam_router/pkg/graph"
)

// CleanPath drops vertices that are missing from the graph or have no
// outgoing edges, preserving order. Run on candidate paths before they are
// returned to clients.
func CleanPath(g *graph.Graph, path []int64) []int64 {
	if len(path) == 0 {
		return nil
	}

	cleaned := make([]int64, 0, len(path))
	for _, id := range path {
		if _, ok := g.Nodes[id]; !ok {
			log.Printf("Path contains missing node %d", id)
			continue
		}
		if !g.HasOutgoing(id) {
			log.Printf("Path contains disconnected node %d", id)
			continue
		}
		cleaned = append(cleaned, id)
	}
	return cleaned
}
