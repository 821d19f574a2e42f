package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/paulmach/orb"

	"exam_router/pkg/allot"
	"exam_router/pkg/graph"
	"exam_router/pkg/osm"
	"exam_router/pkg/routing"
	"exam_router/pkg/spatial"
)

// ErrGraphNotReady is returned by every query made before a successful Build.
var ErrGraphNotReady = errors.New("graph not built")

// ErrInvalidInput is returned for unusable request parameters.
var ErrInvalidInput = errors.New("invalid input")

// defaultPathCacheSize bounds the point-to-point query cache.
const defaultPathCacheSize = 1024

// Config wires the engine's collaborators.
type Config struct {
	// Source supplies raw map payloads. Required.
	Source osm.Source
	// Workers caps concurrent per-centre Dijkstra runs; <= 0 means one
	// worker per centre.
	Workers int
	// PathCacheSize overrides the path query cache bound when positive.
	PathCacheSize int
}

// Engine owns the full allotment pipeline state: graph, spatial indexes,
// centres, the precomputed distance table and the last run's assignments.
// Build replaces all of it atomically from the caller's viewpoint.
//
// Build and RunAllotment serialise against each other and against queries;
// concurrent read-only path queries and diagnostics are safe.
type Engine struct {
	source  osm.Source
	workers int

	mu          sync.RWMutex
	g           *graph.Graph
	kd          *spatial.Index
	edges       *spatial.EdgeIndex
	centres     []allot.Centre
	table       map[int64]map[string]float64
	students    []allot.Student
	assignments map[string]string

	pathCache *lru.Cache[string, PathResult]
}

// New creates an engine. Queries fail with ErrGraphNotReady until the
// first successful Build.
func New(cfg Config) *Engine {
	size := cfg.PathCacheSize
	if size <= 0 {
		size = defaultPathCacheSize
	}
	cache, _ := lru.New[string, PathResult](size)

	return &Engine{
		source:    cfg.Source,
		workers:   cfg.Workers,
		pathCache: cache,
	}
}

// ready reports whether a graph is in place. Callers hold at least a read lock.
func (e *Engine) ready() bool {
	return e.g != nil && !e.g.Empty()
}

// BuildTiming is the per-phase breakdown of a Build call, in milliseconds.
type BuildTiming struct {
	FetchMs      int64 `json:"fetch_overpass_ms"`
	BuildGraphMs int64 `json:"build_graph_ms"`
	IndexSnapMs  int64 `json:"build_kdtree_ms"`
	PrecomputeMs int64 `json:"dijkstra_precompute_ms"`
	TotalMs      int64 `json:"total_ms"`
}

// BuildReport summarises a completed Build.
type BuildReport struct {
	NodeCount    int         `json:"nodes_count"`
	EdgeCount    int         `json:"edges_count"`
	UsedFallback bool        `json:"used_fallback"`
	Timing       BuildTiming `json:"timing"`
}

// Build fetches the map payload for the bounding box, constructs the graph
// (falling back to the simulated grid when the payload yields no vertices),
// rebuilds both spatial indexes, snaps the centres and precomputes the
// per-centre distance table.
func (e *Engine) Build(ctx context.Context, bound orb.Bound, detail osm.Detail, centres []allot.Centre) (*BuildReport, error) {
	if bound.Min.Lat() >= bound.Max.Lat() || bound.Min.Lon() >= bound.Max.Lon() {
		return nil, fmt.Errorf("%w: empty bounding box", ErrInvalidInput)
	}

	total := time.Now()

	fetchStart := time.Now()
	payload, err := e.source.Fetch(ctx, bound, detail)
	if err != nil {
		// A dead transport is recoverable: the fallback grid takes over.
		log.Printf("Map fetch failed: %v", err)
		payload = nil
	}
	fetchMs := time.Since(fetchStart).Milliseconds()

	buildStart := time.Now()
	var g *graph.Graph
	usedFallback := false
	if parsed, perr := osm.Parse(payload); perr != nil || len(parsed.Nodes) == 0 {
		if perr != nil {
			log.Printf("Map payload unusable: %v", perr)
		}
		log.Printf("Map data empty, generating simulated graph fallback")
		g = graph.BuildFallbackGrid(bound)
		usedFallback = true
	} else {
		g = graph.Build(parsed)
		if g.Empty() {
			g = graph.BuildFallbackGrid(bound)
			usedFallback = true
		}
	}
	buildMs := time.Since(buildStart).Milliseconds()

	indexStart := time.Now()
	kd := spatial.NewIndex(g)
	edges := spatial.NewEdgeIndex(g)

	snapped := make([]allot.Centre, len(centres))
	copy(snapped, centres)
	for i := range snapped {
		snapped[i].CurrentLoad = 0
		snapped[i].SnappedNode = -1
		if id, ok := kd.Snap(snapped[i].Lat, snapped[i].Lon); ok {
			snapped[i].SnappedNode = id
		}
	}
	indexMs := time.Since(indexStart).Milliseconds()

	precomputeStart := time.Now()
	table := routing.BuildLookupTable(routing.ParallelDijkstra(g, centreSeeds(snapped), e.workers))
	precomputeMs := time.Since(precomputeStart).Milliseconds()

	e.mu.Lock()
	e.g = g
	e.kd = kd
	e.edges = edges
	e.centres = snapped
	e.table = table
	e.students = nil
	e.assignments = nil
	e.mu.Unlock()

	e.pathCache.Purge()

	return &BuildReport{
		NodeCount:    g.NumNodes(),
		EdgeCount:    g.NumEdges(),
		UsedFallback: usedFallback,
		Timing: BuildTiming{
			FetchMs:      fetchMs,
			BuildGraphMs: buildMs,
			IndexSnapMs:  indexMs,
			PrecomputeMs: precomputeMs,
			TotalMs:      time.Since(total).Milliseconds(),
		},
	}, nil
}

// centreSeeds maps snapped centres to Dijkstra seeds in insertion order.
func centreSeeds(centres []allot.Centre) []routing.Seed {
	seeds := make([]routing.Seed, len(centres))
	for i, c := range centres {
		seeds[i] = routing.Seed{CentreID: c.CentreID, Node: c.SnappedNode}
	}
	return seeds
}

// RunParallelDijkstra exposes the per-centre precompute directly, returning
// one result per centre in centre order.
func (e *Engine) RunParallelDijkstra() ([]routing.Result, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.ready() {
		return nil, ErrGraphNotReady
	}
	return routing.ParallelDijkstra(e.g, centreSeeds(e.centres), e.workers), nil
}

// Centres returns a copy of the current centre set.
func (e *Engine) Centres() []allot.Centre {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]allot.Centre, len(e.centres))
	copy(out, e.centres)
	return out
}

// Stats reports graph shape counters for health checks.
func (e *Engine) Stats() (nodes, edges, centres int, ready bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.g == nil {
		return 0, 0, len(e.centres), false
	}
	return e.g.NumNodes(), e.g.NumEdges(), len(e.centres), e.ready()
}
