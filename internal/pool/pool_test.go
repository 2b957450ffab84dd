package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadPoolRunWaitsForAllTasks(t *testing.T) {
	p := NewThreadPool()
	p.Start(4)
	defer p.Stop()

	var n atomic.Int32
	fns := make([]func(), 10)
	for i := range fns {
		fns[i] = func() { n.Add(1) }
	}
	require.NoError(t, p.Run(fns...))
	assert.EqualValues(t, 10, n.Load())
}

func TestThreadPoolPostRejectsAfterStop(t *testing.T) {
	p := NewThreadPool()
	p.Start(2)
	p.Stop()

	err := p.Post(func() {})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestThreadPoolStartIsIdempotent(t *testing.T) {
	p := NewThreadPool()
	p.Start(2)
	p.Start(5) // no-op, should not add more workers or panic
	defer p.Stop()

	var n atomic.Int32
	require.NoError(t, p.Run(func() { n.Add(1) }))
	assert.EqualValues(t, 1, n.Load())
}

func TestThreadPoolStopDrainsQueue(t *testing.T) {
	p := NewThreadPool()
	p.Start(1)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 0; i < 3; i++ {
		i := i
		require.NoError(t, p.Post(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		}))
	}
	p.Stop()
	wg.Wait()
	assert.Len(t, order, 3)
}

func TestBlockingQueuePushPop(t *testing.T) {
	q := NewBlockingQueue[int]()
	q.Push(1)
	q.Push(2)

	v, ok := q.Pop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.Pop()
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestBlockingQueuePopBlocksUntilPush(t *testing.T) {
	q := NewBlockingQueue[string]()
	done := make(chan string)
	go func() {
		v, ok := q.Pop()
		if !ok {
			done <- "closed"
			return
		}
		done <- v
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push("hello")
	assert.Equal(t, "hello", <-done)
}

func TestBlockingQueueStopUnblocksPop(t *testing.T) {
	q := NewBlockingQueue[int]()
	done := make(chan bool)
	go func() {
		_, ok := q.Pop()
		done <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	q.Stop()
	assert.False(t, <-done)
}
