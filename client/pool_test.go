package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func connectedFactory() (TransportFactoryFunc, *int) {
	created := new(int)
	var mu sync.Mutex
	return func() (Transport, error) {
		mu.Lock()
		*created++
		mu.Unlock()
		transport := NewInMemoryTransport()
		return transport, nil
	}, created
}

func TestPoolCreatesUpToMax(t *testing.T) {
	factory, created := connectedFactory()
	pool := NewTransportPool(PoolConfig{MaxConnections: 3}, factory, nil)
	defer pool.Close()

	var entries []*PoolEntry
	for i := 0; i < 3; i++ {
		entry, err := pool.Acquire(context.Background())
		require.NoError(t, err)
		entries = append(entries, entry)
	}

	assert.Equal(t, 3, *created)
	assert.Equal(t, 3, pool.Size())
	for _, entry := range entries {
		pool.Release(entry)
	}
}

func TestPoolReusesReleasedEntry(t *testing.T) {
	factory, created := connectedFactory()
	pool := NewTransportPool(PoolConfig{MaxConnections: 2}, factory, nil)
	defer pool.Close()

	entry, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pool.Release(entry)

	again, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Same(t, entry, again)
	assert.Equal(t, 1, *created)
	pool.Release(again)
}

func TestPoolBlocksAtCapacityUntilRelease(t *testing.T) {
	factory, _ := connectedFactory()
	pool := NewTransportPool(PoolConfig{MaxConnections: 1, AcquireTimeout: 5 * time.Second}, factory, nil)
	defer pool.Close()

	first, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	acquired := make(chan *PoolEntry, 1)
	go func() {
		entry, err := pool.Acquire(context.Background())
		if err == nil {
			acquired <- entry
		}
	}()

	select {
	case <-acquired:
		t.Fatal("acquire should block while the pool is exhausted")
	case <-time.After(50 * time.Millisecond):
	}

	pool.Release(first)

	select {
	case entry := <-acquired:
		assert.Same(t, first, entry)
		pool.Release(entry)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter was not woken by release")
	}
}

func TestPoolAcquireTimeout(t *testing.T) {
	factory, _ := connectedFactory()
	pool := NewTransportPool(PoolConfig{MaxConnections: 1, AcquireTimeout: 30 * time.Millisecond}, factory, nil)
	defer pool.Close()

	entry, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer pool.Release(entry)

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrAcquireTimeout)
}

func TestPoolAcquireContextCancel(t *testing.T) {
	factory, _ := connectedFactory()
	pool := NewTransportPool(PoolConfig{MaxConnections: 1, AcquireTimeout: time.Minute}, factory, nil)
	defer pool.Close()

	entry, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	defer pool.Release(entry)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPoolFIFOWaiterOrder(t *testing.T) {
	factory, _ := connectedFactory()
	pool := NewTransportPool(PoolConfig{MaxConnections: 1, AcquireTimeout: 5 * time.Second}, factory, nil)
	defer pool.Close()

	entry, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	ready := make(chan struct{}, 2)

	for i := 1; i <= 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ready <- struct{}{}
			// Stagger so waiter 1 queues before waiter 2.
			time.Sleep(time.Duration(i) * 30 * time.Millisecond)
			got, err := pool.Acquire(context.Background())
			if err != nil {
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			pool.Release(got)
		}(i)
	}
	<-ready
	<-ready
	time.Sleep(120 * time.Millisecond)

	pool.Release(entry)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, order)
}

func TestPoolFactoryErrorPropagates(t *testing.T) {
	boom := errors.New("dial failed")
	pool := NewTransportPool(PoolConfig{MaxConnections: 1}, func() (Transport, error) {
		return nil, boom
	}, nil)
	defer pool.Close()

	_, err := pool.Acquire(context.Background())
	assert.ErrorIs(t, err, boom)
	// The reserved slot was returned; the next attempt must not queue.
	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestPoolCloseRejectsWaitersAndAcquires(t *testing.T) {
	factory, _ := connectedFactory()
	pool := NewTransportPool(PoolConfig{MaxConnections: 1, AcquireTimeout: time.Minute}, factory, nil)

	entry, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	waitErr := make(chan error, 1)
	go func() {
		_, err := pool.Acquire(context.Background())
		waitErr <- err
	}()
	time.Sleep(50 * time.Millisecond)

	require.NoError(t, pool.Close())

	select {
	case err := <-waitErr:
		assert.ErrorIs(t, err, ErrPoolClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("waiter not rejected on close")
	}

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, ErrPoolClosed)
	assert.False(t, entry.Transport().IsConnected())
}

func TestPoolCloseIsIdempotent(t *testing.T) {
	factory, _ := connectedFactory()
	pool := NewTransportPool(PoolConfig{}, factory, nil)
	require.NoError(t, pool.Close())
	require.NoError(t, pool.Close())
}
