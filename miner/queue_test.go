package miner

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blockWorker parks the queue's single worker and returns once it is
// parked, so later submissions accumulate in the heap deterministically.
func blockWorker(t *testing.T, q *WorkQueue) chan struct{} {
	t.Helper()
	started := make(chan struct{})
	gate := make(chan struct{})
	require.NoError(t, q.Submit(0, func() {
		close(started)
		<-gate
	}))
	<-started
	return gate
}

func TestWorkQueue_DrainsByPriority(t *testing.T) {
	q := NewWorkQueue(1, 10)
	gate := blockWorker(t, q)

	var mu sync.Mutex
	order := []string{}
	record := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}
	require.NoError(t, q.Submit(100, record("low")))
	require.NoError(t, q.Submit(9000, record("high")))
	require.NoError(t, q.Submit(1500, record("mid")))

	close(gate)
	q.Close()

	assert.Equal(t, []string{"high", "mid", "low"}, order)
}

func TestWorkQueue_TieBreaksInSubmissionOrder(t *testing.T) {
	q := NewWorkQueue(1, 10)
	gate := blockWorker(t, q)

	var mu sync.Mutex
	order := []int{}
	for i := 1; i <= 3; i++ {
		i := i
		require.NoError(t, q.Submit(50, func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		}))
	}

	close(gate)
	q.Close()

	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestWorkQueue_RejectsWhenFull(t *testing.T) {
	q := NewWorkQueue(1, 2)
	gate := blockWorker(t, q)

	// The worker holds the gate task; two more fit in the queue.
	require.NoError(t, q.Submit(1, func() {}))
	require.NoError(t, q.Submit(1, func() {}))
	assert.ErrorIs(t, q.Submit(1, func() {}), ErrQueueFull)

	close(gate)
	q.Close()
}

func TestWorkQueue_RejectsAfterClose(t *testing.T) {
	q := NewWorkQueue(2, 10)
	q.Close()
	assert.ErrorIs(t, q.Submit(1, func() {}), ErrQueueClosed)
}
