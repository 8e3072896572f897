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

func TestReconnectingTransportConnectsThroughFactory(t *testing.T) {
	created := 0
	factory := func() (Transport, error) {
		created++
		return NewInMemoryTransport(), nil
	}
	rt := NewReconnectingTransport(ReconnectConfig{
		Retry:               RetryConfig{Backoff: NewNoBackoff(1)},
		HealthCheckInterval: time.Hour,
	}, factory, nil, nil)
	defer rt.Close()

	require.NoError(t, rt.Connect(context.Background()))
	assert.True(t, rt.IsConnected())
	assert.Equal(t, 1, created)
}

func TestReconnectingTransportRetriesConnect(t *testing.T) {
	attempts := 0
	factory := func() (Transport, error) {
		attempts++
		if attempts < 3 {
			return nil, errors.New("dial refused")
		}
		return NewInMemoryTransport(), nil
	}
	rt := NewReconnectingTransport(ReconnectConfig{
		Retry:               RetryConfig{Backoff: NewNoBackoff(5)},
		HealthCheckInterval: time.Hour,
	}, factory, nil, nil)
	defer rt.Close()

	require.NoError(t, rt.Connect(context.Background()))
	assert.Equal(t, 3, attempts)
}

func TestReconnectingTransportGivesUpAfterMaxAttempts(t *testing.T) {
	boom := errors.New("dial refused")
	rt := NewReconnectingTransport(ReconnectConfig{
		Retry: RetryConfig{Backoff: NewNoBackoff(2)},
	}, func() (Transport, error) { return nil, boom }, nil, nil)
	defer rt.Close()

	err := rt.Connect(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.False(t, rt.IsConnected())
}

func TestReconnectingTransportHandlerSurvivesReconnect(t *testing.T) {
	var mu sync.Mutex
	var transports []*InMemoryTransport
	factory := func() (Transport, error) {
		transport := NewInMemoryTransport()
		mu.Lock()
		transports = append(transports, transport)
		mu.Unlock()
		return transport, nil
	}

	emitter := NewEventEmitter(nil)
	reconnected := make(chan struct{}, 1)
	emitter.On(EventReconnected, func(Event) {
		select {
		case reconnected <- struct{}{}:
		default:
		}
	})

	rt := NewReconnectingTransport(ReconnectConfig{
		Retry:               RetryConfig{Backoff: NewNoBackoff(3)},
		HealthCheckInterval: 20 * time.Millisecond,
	}, factory, emitter, nil)
	defer rt.Close()

	var received [][]byte
	var recvMu sync.Mutex
	rt.SetReceiveHandler(func(message []byte) {
		recvMu.Lock()
		received = append(received, message)
		recvMu.Unlock()
	})
	require.NoError(t, rt.Connect(context.Background()))

	// Kill the live transport; the health check should replace it.
	mu.Lock()
	first := transports[0]
	mu.Unlock()
	require.NoError(t, first.Close())

	select {
	case <-reconnected:
	case <-time.After(2 * time.Second):
		t.Fatal("no reconnect happened")
	}
	assert.True(t, rt.IsConnected())

	mu.Lock()
	replacement := transports[len(transports)-1]
	mu.Unlock()
	require.NotSame(t, first, replacement)

	// The replacement transport must feed the original handler.
	replacement.Deliver([]byte(`{"jsonrpc":"2.0","method":"ping"}`))
	recvMu.Lock()
	defer recvMu.Unlock()
	assert.Len(t, received, 1)
}

func TestReconnectingTransportSendRequiresConnection(t *testing.T) {
	rt := NewReconnectingTransport(ReconnectConfig{}, func() (Transport, error) {
		return NewInMemoryTransport(), nil
	}, nil, nil)
	defer rt.Close()

	err := rt.Send(context.Background(), []byte(`{}`))
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestReconnectingTransportCloseIsIdempotent(t *testing.T) {
	rt := NewReconnectingTransport(ReconnectConfig{
		HealthCheckInterval: time.Hour,
	}, func() (Transport, error) {
		return NewInMemoryTransport(), nil
	}, nil, nil)

	require.NoError(t, rt.Connect(context.Background()))
	require.NoError(t, rt.Close())
	require.NoError(t, rt.Close())
	assert.False(t, rt.IsConnected())
	assert.ErrorIs(t, rt.Connect(context.Background()), ErrClientClosed)
}
