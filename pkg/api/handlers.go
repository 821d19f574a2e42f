package api

import (
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/paulmach/orb"

	"exam_router/pkg/allot"
	"exam_router/pkg/engine"
	"exam_router/pkg/osm"
	"exam_router/pkg/routing"
)

// maxRequestBody bounds request payloads (student lists dominate).
const maxRequestBody = 16 << 20

// Handlers holds the HTTP handlers and their engine dependency.
type Handlers struct {
	engine *engine.Engine
}

// NewHandlers creates handlers around the given engine.
func NewHandlers(eng *engine.Engine) *Handlers {
	return &Handlers{engine: eng}
}

// RegisterRoutes attaches all endpoints to the router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/build-graph", h.HandleBuildGraph).Methods(http.MethodPost)
	router.HandleFunc("/run-allotment", h.HandleRunAllotment).Methods(http.MethodPost)
	router.HandleFunc("/get-path", h.HandleGetPath).Methods(http.MethodGet)
	router.HandleFunc("/parallel-dijkstra", h.HandleParallelDijkstra).Methods(http.MethodPost)
	router.HandleFunc("/export-diagnostics", h.HandleExportDiagnostics).Methods(http.MethodGet)
	router.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
}

// HandleBuildGraph handles POST /build-graph.
func (h *Handlers) HandleBuildGraph(w http.ResponseWriter, r *http.Request) {
	var req BuildGraphRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	for _, f := range []float64{req.MinLat, req.MinLon, req.MaxLat, req.MaxLon} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			writeError(w, http.StatusBadRequest, "coordinates must be finite numbers")
			return
		}
	}

	centres := make([]allot.Centre, 0, len(req.Centres))
	for _, c := range req.Centres {
		capacity := defaultCentreCapacity
		if c.MaxCapacity != nil {
			capacity = *c.MaxCapacity
		}
		centres = append(centres, allot.Centre{
			CentreID:            c.CentreID,
			Lat:                 c.Lat,
			Lon:                 c.Lon,
			MaxCapacity:         capacity,
			HasWheelchairAccess: c.HasWheelchairAccess,
			IsFemaleOnly:        c.IsFemaleOnly,
		})
	}

	bound := orb.Bound{
		Min: orb.Point{req.MinLon, req.MinLat},
		Max: orb.Point{req.MaxLon, req.MaxLat},
	}

	report, err := h.engine.Build(r.Context(), bound, osm.ParseDetail(req.GraphDetail), centres)
	if err != nil {
		if errors.Is(err, engine.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, BuildGraphResponse{
		Status:       "success",
		NodesCount:   report.NodeCount,
		EdgesCount:   report.EdgeCount,
		UsedFallback: report.UsedFallback,
		Timing:       report.Timing,
	})
}

// HandleRunAllotment handles POST /run-allotment.
func (h *Handlers) HandleRunAllotment(w http.ResponseWriter, r *http.Request) {
	var req RunAllotmentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	students := make([]allot.Student, 0, len(req.Students))
	for _, s := range req.Students {
		students = append(students, allot.Student{
			StudentID: s.StudentID,
			Lat:       s.Lat,
			Lon:       s.Lon,
			Category:  allot.ParseCategory(s.Category),
		})
	}

	result, err := h.engine.RunAllotment(students)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, RunAllotmentResponse{
		Status:         "success",
		Assignments:    result.Assignments,
		DebugDistances: result.DebugDistances,
		Timing:         result.Timing,
	})
}

// HandleGetPath handles GET /get-path. Endpoints are either vertex ids
// (student_node_id, centre_node_id) or coordinates (student_lat/lon,
// centre_lat/lon).
func (h *Handlers) HandleGetPath(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var result *engine.PathResult
	var err error

	switch {
	case q.Has("student_node_id") && q.Has("centre_node_id"):
		from, errFrom := strconv.ParseInt(q.Get("student_node_id"), 10, 64)
		to, errTo := strconv.ParseInt(q.Get("centre_node_id"), 10, 64)
		if errFrom != nil || errTo != nil {
			writeError(w, http.StatusBadRequest, "node ids must be integers")
			return
		}
		result, err = h.engine.FindPathByNodes(from, to)

	case q.Has("student_lat") && q.Has("student_lon") && q.Has("centre_lat") && q.Has("centre_lon"):
		coords := make([]float64, 4)
		for i, name := range []string{"student_lat", "student_lon", "centre_lat", "centre_lon"} {
			v, perr := strconv.ParseFloat(q.Get(name), 64)
			if perr != nil || math.IsNaN(v) || math.IsInf(v, 0) {
				writeError(w, http.StatusBadRequest, "coordinates must be finite numbers")
				return
			}
			coords[i] = v
		}
		result, err = h.engine.FindPathByCoords(coords[0], coords[1], coords[2], coords[3])

	default:
		writeError(w, http.StatusBadRequest, "missing required parameters")
		return
	}

	if err != nil {
		writeEngineError(w, err)
		return
	}

	resp := GetPathResponse{
		Status:       "success",
		Path:         result.Coords,
		NodeIDs:      result.Path,
		TotalSeconds: result.TotalSeconds,
		Reason:       result.Reason,
		Timing: PathTimingJSON{
			AStarMs: result.AStarMs,
			TotalMs: result.AStarMs,
		},
	}
	if resp.Path == nil {
		resp.Path = [][2]float64{}
	}
	writeJSON(w, resp)
}

// HandleParallelDijkstra handles POST /parallel-dijkstra.
func (h *Handlers) HandleParallelDijkstra(w http.ResponseWriter, r *http.Request) {
	req := ParallelDijkstraRequest{
		WorkflowName: "Parallel_Dijkstra",
		WorkflowType: "parallel",
		OutputDir:    "./",
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	totalStart := time.Now()
	results, err := h.engine.RunParallelDijkstra()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	parallelMs := time.Since(totalStart).Milliseconds()

	resp := ParallelDijkstraResponse{
		Status:           "success",
		WorkflowName:     req.WorkflowName,
		WorkflowType:     req.WorkflowType,
		CentresProcessed: len(results),
	}

	var sequentialTotal int64
	for i := range results {
		res := &results[i]
		entry := DijkstraResultJSON{
			CentreID:          res.CentreID,
			StartNode:         res.StartNode,
			Success:           res.Success,
			ComputationTimeMs: res.ComputationTime.Milliseconds(),
		}

		if res.Success {
			resp.Successful++
			sequentialTotal += res.ComputationTime.Milliseconds()
			entry.ReachableNodes = res.ReachableNodes()

			if req.SaveToFiles {
				distFile := filepath.Join(req.OutputDir, res.CentreID+"_distances.json")
				parentFile := filepath.Join(req.OutputDir, res.CentreID+"_parents.json")
				saved := routing.SaveResult(res, distFile, parentFile) == nil
				entry.SavedToFiles = &saved
				if saved {
					entry.DistancesFile = distFile
					entry.ParentsFile = parentFile
				}
			}
		} else {
			resp.Failed++
			entry.ErrorMessage = res.ErrorMessage
		}

		resp.Results = append(resp.Results, entry)
	}

	var avgMs int64
	if resp.Successful > 0 {
		avgMs = sequentialTotal / int64(resp.Successful)
	}
	estimatedSequential := avgMs * int64(len(results))
	speedup := 0.0
	if parallelMs > 0 && estimatedSequential > 0 {
		speedup = float64(estimatedSequential) / float64(parallelMs)
	}

	nodes, edges, _, _ := h.engine.Stats()
	resp.Timing = ParallelTimingJSON{
		ParallelExecutionMs:   parallelMs,
		TotalTimeMs:           time.Since(totalStart).Milliseconds(),
		AvgPerCentreMs:        avgMs,
		EstimatedSequentialMs: estimatedSequential,
		Speedup:               speedup,
	}
	resp.PerformanceMetrics = PerformanceMetricsJSON{
		NumWorkersUsed: len(results),
		NodesInGraph:   nodes,
		EdgesInGraph:   edges,
	}

	writeJSON(w, resp)
}

// HandleExportDiagnostics handles GET /export-diagnostics.
func (h *Handlers) HandleExportDiagnostics(w http.ResponseWriter, r *http.Request) {
	report, err := h.engine.Diagnostics()
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, report)
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	nodes, edges, centres, ready := h.engine.Stats()
	writeJSON(w, HealthResponse{
		Status:  "ok",
		Ready:   ready,
		Nodes:   nodes,
		Edges:   edges,
		Centres: centres,
	})
}

// writeEngineError maps engine errors onto HTTP statuses.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrGraphNotReady):
		writeError(w, http.StatusConflict, "Graph not built. Call /build-graph first.")
	case errors.Is(err, engine.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Status: "error", Message: message})
}
