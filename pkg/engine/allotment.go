package engine

import (
	"log"
	"time"

	"exam_router/pkg/allot"
	"exam_router/pkg/routing"
)

// AllotmentTiming is the per-phase breakdown of an allotment run.
type AllotmentTiming struct {
	SnapStudentsMs int64 `json:"snap_students_ms"`
	DijkstraMs     int64 `json:"dijkstra_ms"`
	AllotmentMs    int64 `json:"allotment_ms"`
	TotalMs        int64 `json:"total_ms"`
}

// AllotmentResult carries the final mapping plus the per-student distance
// rows used to decide it.
type AllotmentResult struct {
	Assignments    map[string]string             `json:"assignments"`
	DebugDistances map[string]map[string]float64 `json:"debug_distances"`
	Timing         AllotmentTiming               `json:"timing"`
}

// RunAllotment snaps the students, refreshes the per-centre distance table
// and runs the tiered greedy matcher. The student list is transient; the
// snapped students and final assignments are retained for diagnostics.
// Allotment itself never fails: students it could not place are simply
// absent from the mapping.
func (e *Engine) RunAllotment(students []allot.Student) (*AllotmentResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.ready() {
		return nil, ErrGraphNotReady
	}

	total := time.Now()

	snapStart := time.Now()
	log.Printf("Snapping %d students to road network", len(students))
	snappedCount, failed := 0, 0
	for i := range students {
		students[i].SnappedNode = -1
		if id, ok := e.kd.Snap(students[i].Lat, students[i].Lon); ok {
			students[i].SnappedNode = id
			snappedCount++
		} else {
			failed++
		}
	}
	log.Printf("Snapping complete: %d snapped, %d failed", snappedCount, failed)
	snapMs := time.Since(snapStart).Milliseconds()

	// Refresh the table so allotment always sees the current centre set.
	dijkstraStart := time.Now()
	e.table = routing.BuildLookupTable(routing.ParallelDijkstra(e.g, centreSeeds(e.centres), e.workers))
	dijkstraMs := time.Since(dijkstraStart).Milliseconds()

	allotStart := time.Now()
	assignments := allot.Run(students, e.centres, e.table)
	allotMs := time.Since(allotStart).Milliseconds()

	e.students = students
	e.assignments = assignments

	return &AllotmentResult{
		Assignments:    assignments,
		DebugDistances: e.debugDistancesLocked(),
		Timing: AllotmentTiming{
			SnapStudentsMs: snapMs,
			DijkstraMs:     dijkstraMs,
			AllotmentMs:    allotMs,
			TotalMs:        time.Since(total).Milliseconds(),
		},
	}, nil
}

// debugDistancesLocked returns each student's table row; an empty row when
// the snapped vertex is absent. Caller holds the lock.
func (e *Engine) debugDistancesLocked() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(e.students))
	for i := range e.students {
		s := &e.students[i]
		row := make(map[string]float64)
		for centreID, dist := range e.table[s.SnappedNode] {
			row[centreID] = dist
		}
		out[s.StudentID] = row
	}
	return out
}
