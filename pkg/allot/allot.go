package allot

import (
	"log"
	"math"
)

// pair is one candidate (cost, student, centre) bid.
type pair struct {
	Cost      float64
	StudentID string
	CentreID  string
}

// less orders bids by ascending cost, ties broken lexicographically by
// student then centre, making the pop order total and runs reproducible.
func (p pair) less(o pair) bool {
	if p.Cost != o.Cost {
		return p.Cost < o.Cost
	}
	if p.StudentID != o.StudentID {
		return p.StudentID < o.StudentID
	}
	return p.CentreID < o.CentreID
}

// pairHeap is a concrete-typed min-heap of bids.
type pairHeap struct {
	items []pair
}

func (h *pairHeap) Len() int { return len(h.items) }

func (h *pairHeap) Push(p pair) {
	h.items = append(h.items, p)
	i := len(h.items) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if !h.items[i].less(h.items[parent]) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *pairHeap) Pop() pair {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	i := 0
	for {
		smallest := i
		if l := 2*i + 1; l < len(h.items) && h.items[l].less(h.items[smallest]) {
			smallest = l
		}
		if r := 2*i + 2; r < len(h.items) && h.items[r].less(h.items[smallest]) {
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

// Run executes the tiered greedy capacitated matching. Earlier tiers get
// first pick of centres; inside a tier all candidate bids compete by
// ascending travel time. table[v][c] is the precomputed seconds from centre
// c to vertex v. Centres' CurrentLoad is reset and updated in place.
//
// Students whose snapped vertex is absent from the table, or whose every
// reachable centre fills up first, stay out of the returned mapping.
func Run(students []Student, centres []Centre, table map[int64]map[string]float64) map[string]string {
	log.Printf("Running tiered distance-first allotment")

	assignments := make(map[string]string)
	assigned := make(map[string]bool)

	centreByID := make(map[string]*Centre, len(centres))
	for i := range centres {
		centres[i].CurrentLoad = 0
		centreByID[centres[i].CentreID] = &centres[i]
	}

	var male, pwd, female []*Student
	for i := range students {
		switch students[i].Category {
		case CategoryFemale:
			female = append(female, &students[i])
		case CategoryPwd:
			pwd = append(pwd, &students[i])
		default:
			male = append(male, &students[i])
		}
	}

	log.Printf("Student distribution (male=%d, pwd=%d, female=%d)", len(male), len(pwd), len(female))

	runTier := func(tier []*Student) int {
		before := len(assignments)

		var heap pairHeap
		for _, s := range tier {
			row, ok := table[s.SnappedNode]
			if !ok {
				continue
			}
			for i := range centres {
				c := &centres[i]
				if !IsValidAssignment(s, c) {
					continue
				}
				cost, ok := row[c.CentreID]
				if !ok || math.IsInf(cost, 1) {
					continue
				}
				heap.Push(pair{Cost: cost, StudentID: s.StudentID, CentreID: c.CentreID})
			}
		}

		for heap.Len() > 0 {
			bid := heap.Pop()
			if assigned[bid.StudentID] {
				continue
			}
			centre := centreByID[bid.CentreID]
			if centre == nil || centre.CurrentLoad >= centre.MaxCapacity {
				continue
			}
			assignments[bid.StudentID] = bid.CentreID
			assigned[bid.StudentID] = true
			centre.CurrentLoad++
		}

		return len(assignments) - before
	}

	log.Printf("Assigned %d male students", runTier(male))
	log.Printf("Assigned %d PwD students", runTier(pwd))
	log.Printf("Assigned %d female students", runTier(female))

	log.Printf("Allotment complete: %d of %d students assigned", len(assignments), len(students))

	return assignments
}
