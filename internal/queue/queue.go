// Package queue provides a value-based max-heap used as a bounded top-k
// buffer.
package queue

// Item represents an entry in the priority queue.
type Item struct {
	ID       uint32  // ID is the item identifier.
	Distance float32 // Distance is the priority of the item in the queue.
}

// PriorityQueue is a max-heap of Items ordered by (Distance, ID), so the
// worst of the retained items is on top.
//
// Ties on Distance are broken by ID so that the heap order is total and
// results built from it are deterministic.
type PriorityQueue struct {
	items []Item
}

// NewMax initializes a new priority queue with maximum priority.
func NewMax(capacity int) *PriorityQueue {
	return &PriorityQueue{items: make([]Item, 0, capacity)}
}

// Len returns the number of elements in the priority queue.
func (pq *PriorityQueue) Len() int { return len(pq.items) }

// Top returns the worst retained item.
func (pq *PriorityQueue) Top() (Item, bool) {
	if len(pq.items) == 0 {
		return Item{}, false
	}
	return pq.items[0], true
}

// Push inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue) Push(item Item) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// Pop removes and returns the top element while maintaining the heap invariant.
func (pq *PriorityQueue) Pop() (Item, bool) {
	n := len(pq.items)
	if n == 0 {
		return Item{}, false
	}
	root := pq.items[0]
	pq.items[0] = pq.items[n-1]
	pq.items = pq.items[:n-1]
	if n > 1 {
		pq.siftDown(0)
	}
	return root, true
}

// PushBounded keeps at most k items, evicting the top when item ranks
// before it.
func (pq *PriorityQueue) PushBounded(item Item, k int) {
	if len(pq.items) < k {
		pq.Push(item)
		return
	}
	if len(pq.items) == 0 || !after(pq.items[0], item) {
		return
	}
	pq.items[0] = item
	pq.siftDown(0)
}

// Drain pops every item and returns them in ascending (Distance, ID) order.
func (pq *PriorityQueue) Drain() []Item {
	out := make([]Item, len(pq.items))
	for i := len(out) - 1; i >= 0; i-- {
		out[i], _ = pq.Pop()
	}
	return out
}

// Reset clears the priority queue for reuse.
func (pq *PriorityQueue) Reset() {
	pq.items = pq.items[:0]
}

// after reports whether a sorts after b in ascending (Distance, ID) order.
func after(a, b Item) bool {
	if a.Distance != b.Distance {
		return a.Distance > b.Distance
	}
	return a.ID > b.ID
}

func (pq *PriorityQueue) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !after(pq.items[i], pq.items[p]) {
			return
		}
		pq.items[i], pq.items[p] = pq.items[p], pq.items[i]
		i = p
	}
}

func (pq *PriorityQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		worst := l
		if r := l + 1; r < n && after(pq.items[r], pq.items[l]) {
			worst = r
		}
		if !after(pq.items[worst], pq.items[i]) {
			return
		}
		pq.items[i], pq.items[worst] = pq.items[worst], pq.items[i]
		i = worst
	}
}
