package graph

import "log"

// LabelComponents flood-fills over the out-edge adjacency, assigning
// increasing positive component ids. Vertices with no outgoing edges are
// labelled -1 and never joined to a component. Seeds are taken in
// ascending id order so labels are deterministic for a given graph.
//
// The main component (largest membership, ties to the lowest id) is
// computed here as well. Call after every construction path.
func (g *Graph) LabelComponents() {
	g.Component = make(map[int64]int, len(g.Nodes))

	compID := 0
	var stack []int64

	for _, id := range g.SortedNodeIDs() {
		if _, seen := g.Component[id]; seen {
			continue
		}
		if !g.HasOutgoing(id) {
			g.Component[id] = -1
			continue
		}

		compID++
		stack = stack[:0]
		stack = append(stack, id)
		g.Component[id] = compID

		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			for _, e := range g.Adj[cur] {
				if _, seen := g.Component[e.To]; seen {
					continue
				}
				if !g.HasOutgoing(e.To) {
					g.Component[e.To] = -1
					continue
				}
				g.Component[e.To] = compID
				stack = append(stack, e.To)
			}
		}
	}

	g.mainComponent = computeMainComponent(g.Component)

	log.Printf("Computed components: %d found, main=%d (isolated marked -1)", compID, g.mainComponent)
}

// computeMainComponent picks the positive component id with maximal
// membership; ties break to the lowest id. -1 when none exists.
func computeMainComponent(labels map[int64]int) int {
	counts := make(map[int]int)
	for _, comp := range labels {
		if comp > 0 {
			counts[comp]++
		}
	}

	main := -1
	best := 0
	for comp, count := range counts {
		if count > best || (count == best && main != -1 && comp < main) {
			best = count
			main = comp
		}
	}
	return main
}
