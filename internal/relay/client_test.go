package relay

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tablelink/tablelink/pkg/bus"
	"github.com/tablelink/tablelink/pkg/transport"
)

type fakeBus struct {
	mu         sync.Mutex
	subscribes int
	unsubs     int
}

func (b *fakeBus) Publish(topic string, data []byte) error { return nil }

func (b *fakeBus) Subscribe(topic string, h bus.Handler) (bus.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribes++
	return &fakeSubscription{bus: b}, nil
}

func (b *fakeBus) Close() {}

func (b *fakeBus) unsubCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.unsubs
}

type fakeSubscription struct {
	bus *fakeBus
}

func (s *fakeSubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	s.bus.unsubs++
	return nil
}

// A connection can die while its JOIN is still registering: onClose then
// finds nothing to release, so the join path itself must undo the
// registration and subscription it just made.
func TestJoinAfterCloseReleasesResources(t *testing.T) {
	logger := newTestLogger()
	registry := NewInMemoryRegistry(logger)
	fb := &fakeBus{}
	r := New(logger, fb, registry, Config{SendBuffer: 4})

	var wg sync.WaitGroup
	conn := transport.NewConnection(
		context.Background(),
		&wg,
		nil,
		transport.ConnectionConfig{SendBuffer: 4},
		nil,
		nil,
		logger,
	)
	c := &client{relay: r, conn: conn, ip: "127.0.0.1", logger: logger}

	c.onClose(conn.ID(), nil)
	c.handleJoin([]byte(`{"type":"JOIN","payload":{"room":"GAME1"}}`))

	assert.Equal(t, 0, registry.ClientCount(), "membership must not outlive the connection")
	assert.Equal(t, 0, registry.RoomCount())
	assert.Equal(t, 1, fb.unsubCount(), "subscription must not outlive the connection")
}

func TestJoinBeforeCloseReleasesViaOnClose(t *testing.T) {
	logger := newTestLogger()
	registry := NewInMemoryRegistry(logger)
	fb := &fakeBus{}
	r := New(logger, fb, registry, Config{SendBuffer: 4})

	var wg sync.WaitGroup
	conn := transport.NewConnection(
		context.Background(),
		&wg,
		nil,
		transport.ConnectionConfig{SendBuffer: 4},
		nil,
		nil,
		logger,
	)
	c := &client{relay: r, conn: conn, ip: "127.0.0.1", logger: logger}

	c.handleJoin([]byte(`{"type":"JOIN","payload":{"room":"GAME1"}}`))
	assert.Equal(t, 1, registry.ClientCount())

	c.onClose(conn.ID(), nil)
	assert.Equal(t, 0, registry.ClientCount())
	assert.Equal(t, 0, registry.RoomCount())
	assert.Equal(t, 1, fb.unsubCount())
}
