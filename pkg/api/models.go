package api

import "exam_router/pkg/engine"

// defaultCentreCapacity applies when a centre omits max_capacity.
const defaultCentreCapacity = 500

// CentreJSON is one examination centre in a build request.
type CentreJSON struct {
	CentreID            string  `json:"centre_id"`
	Lat                 float64 `json:"lat"`
	Lon                 float64 `json:"lon"`
	MaxCapacity         *int    `json:"max_capacity"`
	HasWheelchairAccess bool    `json:"has_wheelchair_access"`
	IsFemaleOnly        bool    `json:"is_female_only"`
}

// BuildGraphRequest is the JSON body for POST /build-graph.
type BuildGraphRequest struct {
	MinLat      float64      `json:"min_lat"`
	MinLon      float64      `json:"min_lon"`
	MaxLat      float64      `json:"max_lat"`
	MaxLon      float64      `json:"max_lon"`
	GraphDetail string       `json:"graph_detail"`
	Centres     []CentreJSON `json:"centres"`
}

// BuildGraphResponse reports a completed build.
type BuildGraphResponse struct {
	Status       string             `json:"status"`
	NodesCount   int                `json:"nodes_count"`
	EdgesCount   int                `json:"edges_count"`
	UsedFallback bool               `json:"used_fallback"`
	Timing       engine.BuildTiming `json:"timing"`
}

// StudentJSON is one student in an allotment request.
type StudentJSON struct {
	StudentID string  `json:"student_id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Category  string  `json:"category"`
}

// RunAllotmentRequest is the JSON body for POST /run-allotment.
type RunAllotmentRequest struct {
	Students []StudentJSON `json:"students"`
}

// RunAllotmentResponse carries the final mapping and debug rows.
type RunAllotmentResponse struct {
	Status         string                        `json:"status"`
	Assignments    map[string]string             `json:"assignments"`
	DebugDistances map[string]map[string]float64 `json:"debug_distances"`
	Timing         engine.AllotmentTiming        `json:"timing"`
}

// PathTimingJSON is the timing block of a path response.
type PathTimingJSON struct {
	AStarMs int64 `json:"astar_ms"`
	TotalMs int64 `json:"total_ms"`
}

// GetPathResponse is the JSON response for GET /get-path.
type GetPathResponse struct {
	Status       string         `json:"status"`
	Path         [][2]float64   `json:"path"`
	NodeIDs      []int64        `json:"node_ids"`
	TotalSeconds float64        `json:"total_seconds"`
	Reason       string         `json:"reason,omitempty"`
	Timing       PathTimingJSON `json:"timing"`
}

// ParallelDijkstraRequest is the JSON body for POST /parallel-dijkstra.
type ParallelDijkstraRequest struct {
	WorkflowName string `json:"workflow_name"`
	WorkflowType string `json:"workflow_type"`
	SaveToFiles  bool   `json:"save_to_files"`
	OutputDir    string `json:"output_dir"`
}

// DijkstraResultJSON is one per-centre run in the parallel response.
type DijkstraResultJSON struct {
	CentreID          string `json:"centre_id"`
	StartNode         int64  `json:"start_node"`
	Success           bool   `json:"success"`
	ComputationTimeMs int64  `json:"computation_time_ms"`
	ReachableNodes    int    `json:"reachable_nodes,omitempty"`
	ErrorMessage      string `json:"error_message,omitempty"`
	SavedToFiles      *bool  `json:"saved_to_files,omitempty"`
	DistancesFile     string `json:"distances_file,omitempty"`
	ParentsFile       string `json:"parents_file,omitempty"`
}

// ParallelTimingJSON is the timing block of the parallel response.
type ParallelTimingJSON struct {
	ParallelExecutionMs   int64   `json:"parallel_execution_ms"`
	TotalTimeMs           int64   `json:"total_time_ms"`
	AvgPerCentreMs        int64   `json:"avg_per_centre_ms"`
	EstimatedSequentialMs int64   `json:"estimated_sequential_ms"`
	Speedup               float64 `json:"speedup"`
}

// PerformanceMetricsJSON summarises the workload shape.
type PerformanceMetricsJSON struct {
	NumWorkersUsed int `json:"num_workers_used"`
	NodesInGraph   int `json:"nodes_in_graph"`
	EdgesInGraph   int `json:"edges_in_graph"`
}

// ParallelDijkstraResponse is the JSON response for POST /parallel-dijkstra.
type ParallelDijkstraResponse struct {
	Status             string                 `json:"status"`
	WorkflowName       string                 `json:"workflow_name"`
	WorkflowType       string                 `json:"workflow_type"`
	CentresProcessed   int                    `json:"centres_processed"`
	Successful         int                    `json:"successful"`
	Failed             int                    `json:"failed"`
	Results            []DijkstraResultJSON   `json:"results"`
	Timing             ParallelTimingJSON     `json:"timing"`
	PerformanceMetrics PerformanceMetricsJSON `json:"performance_metrics"`
}

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"graph_ready"`
	Nodes   int    `json:"nodes_count"`
	Edges   int    `json:"edges_count"`
	Centres int    `json:"centres_count"`
}

// ErrorResponse is the JSON error payload every endpoint shares.
type ErrorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
