// Package queue provides the thread-safe priority queue backing the URL
// frontier. Priority is supplied by the caller, so the same queue serves
// breadth-first (depth-ordered) and depth-first (recency-ordered) crawls.
package queue

import (
	"container/heap"
	"sync"

	"site-crawler/pkg/models"
)

// pqItem is one heap entry.
type pqItem struct {
	record   *models.URLRecord
	priority int64
	seq      uint64 // Insertion order, breaks priority ties FIFO
	index    int    // Heap index (required by heap.Interface)
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].priority != pq[j].priority {
		return pq[i].priority < pq[j].priority
	}
	return pq[i].seq < pq[j].seq
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *priorityQueue) Push(x any) {
	n := len(*pq)
	item := x.(*pqItem)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil // avoid memory leak
	item.index = -1
	*pq = old[0 : n-1]
	return item
}

// URLQueue wraps the heap with concurrency controls. Lower priority values
// pop first; equal priorities pop in insertion order.
type URLQueue struct {
	pq      priorityQueue
	mu      sync.Mutex
	cond    *sync.Cond
	nextSeq uint64
	closed  bool
}

func NewURLQueue() *URLQueue {
	q := &URLQueue{}
	q.cond = sync.NewCond(&q.mu)
	heap.Init(&q.pq)
	return q
}

// Push adds a record with the given priority. Pushes to a closed queue are
// dropped.
func (q *URLQueue) Push(rec *models.URLRecord, priority int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	heap.Push(&q.pq, &pqItem{record: rec, priority: priority, seq: q.nextSeq})
	q.nextSeq++
	q.cond.Signal()
}

// Pop blocks until a record is available or the queue is closed. Returns
// (nil, false) only when the queue is closed and drained.
func (q *URLQueue) Pop() (*models.URLRecord, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.pq) == 0 {
		if q.closed {
			return nil, false
		}
		q.cond.Wait()
	}
	item := heap.Pop(&q.pq).(*pqItem)
	return item.record, true
}

// TryPop is the non-blocking variant: it returns (nil, false) when the queue
// is currently empty, without distinguishing closed from drained.
func (q *URLQueue) TryPop() (*models.URLRecord, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pq) == 0 {
		return nil, false
	}
	item := heap.Pop(&q.pq).(*pqItem)
	return item.record, true
}

// PeekPriority returns the priority of the head record without removing it.
func (q *URLQueue) PeekPriority() (int64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pq) == 0 {
		return 0, false
	}
	return q.pq[0].priority, true
}

// Close marks the queue as accepting no further pushes and wakes all blocked
// Pop callers.
func (q *URLQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		q.cond.Broadcast()
	}
}

// Len returns the current queue length.
func (q *URLQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pq)
}
