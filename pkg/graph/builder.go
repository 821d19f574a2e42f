package graph

import (
	"log"

	"github.com/paulmach/orb"

	"exam_router/pkg/geo"
	osmparser "exam_router/pkg/osm"
)

// kmhToMetersPerSecond converts a km/h speed to m/s.
func kmhToMetersPerSecond(kmh float64) float64 {
	return kmh * 1000 / 3600
}

// Build constructs the weighted directed graph from a parsed map payload.
// Edge costs are travel time in seconds: segment haversine length divided
// by the way speed. Undirected ways emit both directions. Segments whose
// endpoints are missing from the node set are skipped.
func Build(result *osmparser.ParseResult) *Graph {
	log.Printf("Building graph from %d nodes and %d ways", len(result.Nodes), len(result.Ways))

	g := New()
	for _, n := range result.Nodes {
		g.AddNode(Node{ID: n.ID, Lat: n.Lat, Lon: n.Lon})
	}

	edgeCount := 0
	onewayCount := 0
	for _, w := range result.Ways {
		speed := kmhToMetersPerSecond(w.SpeedKmh)
		for i := 0; i+1 < len(w.NodeIDs); i++ {
			u, v := w.NodeIDs[i], w.NodeIDs[i+1]

			nu, okU := g.Nodes[u]
			nv, okV := g.Nodes[v]
			if !okU || !okV {
				continue
			}

			meters := geo.Haversine(nu.Lat, nu.Lon, nv.Lat, nv.Lon)
			seconds := meters / speed

			g.AddEdge(u, v, seconds)
			edgeCount++
			if w.Oneway {
				onewayCount++
			} else {
				g.AddEdge(v, u, seconds)
				edgeCount++
			}
		}
	}

	log.Printf("Graph built with %d nodes and %d directed edges (%d one-way segments)",
		g.NumNodes(), edgeCount, onewayCount)

	g.LabelComponents()
	return g
}

// Fallback grid dimensions and the assumed speed for its edges.
const (
	fallbackGridSize     = 80
	fallbackGridSpeedKmh = 30.0
)

// BuildFallbackGrid synthesises an 80x80 lat/lon grid with 8-connected
// neighbours over the bounding box. Used when the map payload yields zero
// vertices. Edge costs are seconds at an assumed 30 km/h so the fallback
// feeds the same time-based pipeline as the map graph.
func BuildFallbackGrid(bound orb.Bound) *Graph {
	log.Printf("Generating simulated fallback grid graph")

	g := New()

	minLat, minLon := bound.Min.Lat(), bound.Min.Lon()
	latStep := (bound.Max.Lat() - minLat) / fallbackGridSize
	lonStep := (bound.Max.Lon() - minLon) / fallbackGridSize

	var gridIDs [fallbackGridSize][fallbackGridSize]int64
	nextID := int64(1)
	for i := 0; i < fallbackGridSize; i++ {
		for j := 0; j < fallbackGridSize; j++ {
			g.AddNode(Node{
				ID:  nextID,
				Lat: minLat + float64(i)*latStep,
				Lon: minLon + float64(j)*lonStep,
			})
			gridIDs[i][j] = nextID
			nextID++
		}
	}

	directions := [8][2]int{
		{0, 1}, {1, 0}, {1, 1}, {1, -1}, {0, -1}, {-1, 0}, {-1, -1}, {-1, 1},
	}
	speed := kmhToMetersPerSecond(fallbackGridSpeedKmh)

	for i := 0; i < fallbackGridSize; i++ {
		for j := 0; j < fallbackGridSize; j++ {
			cur := gridIDs[i][j]
			curNode := g.Nodes[cur]

			for _, d := range directions {
				ni, nj := i+d[0], j+d[1]
				if ni < 0 || ni >= fallbackGridSize || nj < 0 || nj >= fallbackGridSize {
					continue
				}
				nb := gridIDs[ni][nj]
				nbNode := g.Nodes[nb]
				meters := geo.Haversine(curNode.Lat, curNode.Lon, nbNode.Lat, nbNode.Lon)
				g.AddEdge(cur, nb, meters/speed)
			}
		}
	}

	log.Printf("Simulated graph generated with %d nodes", g.NumNodes())

	g.LabelComponents()
	return g
}
