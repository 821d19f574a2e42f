package routing

import (
	"math"
	"math/rand"
	"testing"
)

func TestMinHeapOrdering(t *testing.T) {
	var h MinHeap

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		h.Push(int64(i), rng.Float64()*1000)
	}

	last := math.Inf(-1)
	for h.Len() > 0 {
		item := h.Pop()
		if item.Dist < last {
			t.Fatalf("heap popped %f after %f", item.Dist, last)
		}
		last = item.Dist
	}
}

func TestMinHeapReset(t *testing.T) {
	var h MinHeap
	h.Push(1, 10)
	h.Push(2, 5)
	h.Reset()
	if h.Len() != 0 {
		t.Fatalf("Len after Reset = %d, want 0", h.Len())
	}
}
