package taskq

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFIFOOrder(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Push(2)
	q.Push(3)
	require.Equal(t, 3, q.Len())

	for want := 1; want <= 3; want++ {
		got, ok := q.TryPop()
		require.True(t, ok)
		assert.Equal(t, want, got)
	}
}

func TestTryPopEmpty(t *testing.T) {
	q := New[string]()
	got, ok := q.TryPop()
	assert.False(t, ok)
	assert.Equal(t, "", got)
}

func TestWaitAndPopBlocksUntilPush(t *testing.T) {
	q := New[int]()

	done := make(chan int)
	go func() {
		v, ok := q.WaitAndPop()
		require.True(t, ok)
		done <- v
	}()

	select {
	case <-done:
		t.Fatal("WaitAndPop returned before any push")
	case <-time.After(20 * time.Millisecond):
	}

	q.Push(42)
	select {
	case v := <-done:
		assert.Equal(t, 42, v)
	case <-time.After(time.Second):
		t.Fatal("WaitAndPop did not wake after push")
	}
}

func TestCloseWakesAllWaiters(t *testing.T) {
	q := New[int]()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := q.WaitAndPop()
			assert.False(t, ok)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	q.Close()

	waited := make(chan struct{})
	go func() {
		wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("waiters not released by Close")
	}
}

func TestCloseDrainsRemainingItems(t *testing.T) {
	q := New[int]()
	q.Push(1)
	q.Push(2)
	q.Close()

	v, ok := q.WaitAndPop()
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = q.TryPop()
	require.True(t, ok)
	assert.Equal(t, 2, v)

	_, ok = q.WaitAndPop()
	assert.False(t, ok)
}

func TestPushAfterCloseIsDropped(t *testing.T) {
	q := New[int]()
	q.Close()
	q.Push(7)
	assert.Equal(t, 0, q.Len())
}

func TestConcurrentProducersConsumers(t *testing.T) {
	const producers = 4
	const perProducer = 250

	q := New[int]()
	var produced sync.WaitGroup
	for p := 0; p < producers; p++ {
		produced.Add(1)
		go func() {
			defer produced.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(i)
			}
		}()
	}
	go func() {
		produced.Wait()
		q.Close()
	}()

	var mu sync.Mutex
	total := 0
	var consumers sync.WaitGroup
	for c := 0; c < 4; c++ {
		consumers.Add(1)
		go func() {
			defer consumers.Done()
			for {
				_, ok := q.WaitAndPop()
				if !ok {
					return
				}
				mu.Lock()
				total++
				mu.Unlock()
			}
		}()
	}
	consumers.Wait()

	assert.Equal(t, producers*perProducer, total)
}
