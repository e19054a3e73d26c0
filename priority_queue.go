package tilestream

import "container/heap"

// pendingQueue is a max-heap of pending tasks ordered by priority, with
// insertion order breaking ties. Tasks keep their heap index while queued.
type pendingQueue []*task

func (pq pendingQueue) Len() int { return len(pq) }

func (pq pendingQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority > pq[j].priority // max-heap
	}
	return pq[i].seq < pq[j].seq
}

func (pq pendingQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *pendingQueue) Push(x any) {
	t := x.(*task)
	t.index = len(*pq)
	*pq = append(*pq, t)
}

func (pq *pendingQueue) Pop() any {
	old := *pq
	n := len(old)
	t := old[n-1]
	old[n-1] = nil
	t.index = -1
	*pq = old[:n-1]
	return t
}

// add queues a pending task.
func (pq *pendingQueue) add(t *task) {
	heap.Push(pq, t)
}

// peek returns the highest priority task without removing it.
func (pq pendingQueue) peek() (*task, bool) {
	if len(pq) == 0 {
		return nil, false
	}
	return pq[0], true
}

// take removes and returns the highest priority task.
func (pq *pendingQueue) take() *task {
	return heap.Pop(pq).(*task)
}

// rebuild re-establishes heap order after a bulk priority change.
func (pq *pendingQueue) rebuild() {
	heap.Init(pq)
}

// reset drops every queued task.
func (pq *pendingQueue) reset() {
	for _, t := range *pq {
		t.index = -1
	}
	*pq = nil
}
