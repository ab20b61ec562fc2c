package miner

import (
	"container/heap"
	"errors"
	"sync"
)

// WorkQueue is a bounded queue that drains pending requests in descending
// caller-stake order. Requests from high-stake validators are served first
// when the miner is saturated.
type WorkQueue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	items   workHeap
	maxSize int
	closed  bool
	wg      sync.WaitGroup

	// seq breaks priority ties in submission order.
	seq uint64
}

type workItem struct {
	priority float64
	seq      uint64
	run      func()
}

// NewWorkQueue creates a queue with the given capacity and starts the
// worker goroutines. Close must be called to release them.
func NewWorkQueue(workers, maxSize int) *WorkQueue {
	q := &WorkQueue{maxSize: maxSize}
	q.cond = sync.NewCond(&q.mu)
	if workers < 1 {
		workers = 1
	}
	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker()
	}
	return q
}

// ErrQueueFull is returned when the queue is at capacity.
var ErrQueueFull = errors.New("work queue full")

// ErrQueueClosed is returned for submissions after Close.
var ErrQueueClosed = errors.New("work queue closed")

// Submit enqueues a task with the given priority. When the queue is full
// the task is rejected rather than blocking the caller.
func (q *WorkQueue) Submit(priority float64, run func()) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}
	if q.maxSize > 0 && q.items.Len() >= q.maxSize {
		return ErrQueueFull
	}

	q.seq++
	heap.Push(&q.items, workItem{priority: priority, seq: q.seq, run: run})
	q.cond.Signal()
	return nil
}

// Len returns the number of pending tasks.
func (q *WorkQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Len()
}

// Close stops the workers after the pending tasks drain.
func (q *WorkQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *WorkQueue) worker() {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		for q.items.Len() == 0 && !q.closed {
			q.cond.Wait()
		}
		if q.items.Len() == 0 && q.closed {
			q.mu.Unlock()
			return
		}
		item := heap.Pop(&q.items).(workItem)
		q.mu.Unlock()

		item.run()
	}
}

type workHeap []workItem

func (h workHeap) Len() int { return len(h) }

func (h workHeap) Less(i, j int) bool {
	if h[i].priority != h[j].priority {
		return h[i].priority > h[j].priority
	}
	return h[i].seq < h[j].seq
}

func (h workHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *workHeap) Push(x any) {
	*h = append(*h, x.(workItem))
}

func (h *workHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
