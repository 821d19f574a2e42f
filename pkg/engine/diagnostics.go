package engine

import (
	"math"
	"time"

	"exam_router/pkg/geo"
)

// nearTieThresholdSeconds flags students whose second-best centre is
// within this margin of the best.
const nearTieThresholdSeconds = 20.0

// largeSnapThresholdMeters counts snaps the summary calls out as large.
const largeSnapThresholdMeters = 100.0

// DiagnosticsMetadata identifies one diagnostics export.
type DiagnosticsMetadata struct {
	RunID             string `json:"run_id"`
	Timestamp         string `json:"timestamp"`
	NumStudents       int    `json:"num_students"`
	NumCentres        int    `json:"num_centres"`
	CapacityPerCentre int    `json:"capacity_per_centre"`
	Notes             string `json:"notes"`
}

// CentreDiagnostics is the per-centre slice of the report.
type CentreDiagnostics struct {
	CentreID         string  `json:"centre_id"`
	Lat              float64 `json:"lat"`
	Lon              float64 `json:"lon"`
	GraphNodeID      int64   `json:"graph_node_id"`
	AssignedStudents int     `json:"assigned_students"`
}

// StudentDiagnostics is the per-student slice of the report. AltDistances
// holds the travel time to every centre; unreachable centres map to nil and
// serialise as null.
type StudentDiagnostics struct {
	StudentID        string              `json:"student_id"`
	Lat              float64             `json:"lat"`
	Lon              float64             `json:"lon"`
	Category         string              `json:"category"`
	SnapNodeID       int64               `json:"snap_node_id"`
	SnapDistanceM    float64             `json:"snap_distance_m"`
	RoadDistanceM    float64             `json:"road_distance_m"`
	AssignedCentreID *string             `json:"assigned_centre_id"`
	AltDistances     map[string]*float64 `json:"alt_distances_s"`
	ComponentID      int                 `json:"component_id"`
	ReachableCount   int                 `json:"reachable_count"`
	NearTie          bool                `json:"near_tie"`
}

// DiagnosticsSummary aggregates the run-level counters.
type DiagnosticsSummary struct {
	UnreachableCount int     `json:"unreachable_count"`
	LargeSnapCount   int     `json:"large_snap_count"`
	AvgSnapDistanceM float64 `json:"avg_snap_distance_m"`
}

// DiagnosticsReport is the full derived view. Producing it never mutates
// engine state.
type DiagnosticsReport struct {
	Metadata DiagnosticsMetadata  `json:"metadata"`
	Centres  []CentreDiagnostics  `json:"centres"`
	Students []StudentDiagnostics `json:"students"`
	Summary  DiagnosticsSummary   `json:"summary"`
}

// Diagnostics reports snap quality, reachability and assignment spread for
// the most recent allotment run.
func (e *Engine) Diagnostics() (*DiagnosticsReport, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.ready() {
		return nil, ErrGraphNotReady
	}

	now := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	report := &DiagnosticsReport{
		Metadata: DiagnosticsMetadata{
			RunID:       "run_" + now,
			Timestamp:   now,
			NumStudents: len(e.students),
			NumCentres:  len(e.centres),
			Notes:       "Detailed diagnostic export",
		},
	}
	if len(e.centres) > 0 {
		report.Metadata.CapacityPerCentre = e.centres[0].MaxCapacity
	}

	assignedCount := make(map[string]int, len(e.centres))
	for _, centreID := range e.assignments {
		assignedCount[centreID]++
	}
	for i := range e.centres {
		c := &e.centres[i]
		report.Centres = append(report.Centres, CentreDiagnostics{
			CentreID:         c.CentreID,
			Lat:              c.Lat,
			Lon:              c.Lon,
			GraphNodeID:      c.SnappedNode,
			AssignedStudents: assignedCount[c.CentreID],
		})
	}

	var snapSum float64
	snapCount := 0

	for i := range e.students {
		s := &e.students[i]

		entry := StudentDiagnostics{
			StudentID:     s.StudentID,
			Lat:           s.Lat,
			Lon:           s.Lon,
			Category:      string(s.Category),
			SnapNodeID:    s.SnappedNode,
			SnapDistanceM: -1,
			RoadDistanceM: -1,
			ComponentID:   -1,
			AltDistances:  make(map[string]*float64, len(e.centres)),
		}

		if node, ok := e.g.Nodes[s.SnappedNode]; ok {
			entry.SnapDistanceM = geo.Haversine(s.Lat, s.Lon, node.Lat, node.Lon)
			snapSum += entry.SnapDistanceM
			snapCount++
			if entry.SnapDistanceM > largeSnapThresholdMeters {
				report.Summary.LargeSnapCount++
			}
		}
		if road := e.edges.NearestRoadDistance(s.Lat, s.Lon); !math.IsInf(road, 1) {
			entry.RoadDistanceM = road
		}
		if comp, ok := e.g.Component[s.SnappedNode]; ok {
			entry.ComponentID = comp
		}

		if centreID, ok := e.assignments[s.StudentID]; ok {
			id := centreID
			entry.AssignedCentreID = &id
		} else {
			report.Summary.UnreachableCount++
		}

		best := math.Inf(1)
		secondBest := math.Inf(1)
		row := e.table[s.SnappedNode]
		for j := range e.centres {
			centreID := e.centres[j].CentreID
			if dist, ok := row[centreID]; ok {
				d := dist
				entry.AltDistances[centreID] = &d
				entry.ReachableCount++
				if d < best {
					secondBest = best
					best = d
				} else if d < secondBest {
					secondBest = d
				}
			} else {
				entry.AltDistances[centreID] = nil
			}
		}
		entry.NearTie = !math.IsInf(secondBest, 1) && math.Abs(secondBest-best) < nearTieThresholdSeconds

		report.Students = append(report.Students, entry)
	}

	if snapCount > 0 {
		report.Summary.AvgSnapDistanceM = snapSum / float64(snapCount)
	}

	return report, nil
}
