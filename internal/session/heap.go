package session

// slotHeap is a min-heap of free motor-slot indices (spec §4.6), handing
// out the lowest-numbered free slot to the next player that connects.
type slotHeap []int

func (h slotHeap) Len() int           { return len(h) }
func (h slotHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h slotHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *slotHeap) Push(x any) {
	*h = append(*h, x.(int))
}

func (h *slotHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
