// Package relay multiplexes WebSocket connections into named rooms over a
// broadcast bus. The relay is transparent: apart from the JOIN handshake
// and IDENTIFY, every valid envelope is published verbatim to the room
// topic and fanned out to all members.
package relay

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/tablelink/tablelink/pkg/bus"
	"github.com/tablelink/tablelink/pkg/transport"
)

const topicPrefix = "game."

// Topic returns the bus topic for a room.
func Topic(room string) string {
	return topicPrefix + room
}

type Config struct {
	// SendBuffer is the per-connection outbound queue capacity.
	SendBuffer int
	// ReadTimeout bounds each socket read; zero disables the deadline.
	ReadTimeout time.Duration
	// MoveThrottle, when non-zero, drops MOVE envelopes arriving faster
	// than this window per connection.
	MoveThrottle time.Duration
}

// Relay owns the room registry and hands each accepted socket to a
// connection lifecycle manager.
type Relay struct {
	logger   *slog.Logger
	bus      bus.Broadcaster
	registry Registry
	config   Config
	wg       sync.WaitGroup
}

func New(logger *slog.Logger, b bus.Broadcaster, registry Registry, cfg Config) *Relay {
	return &Relay{
		logger:   logger.With(slog.String("component", "relay")),
		bus:      b,
		registry: registry,
		config:   cfg,
	}
}

// Registry exposes the room registry for observability surfaces.
func (r *Relay) Registry() Registry {
	return r.registry
}

// HandleConnection runs a WebSocket connection through its whole
// lifecycle and returns when the connection is fully terminated.
func (r *Relay) HandleConnection(ctx context.Context, wsConn *websocket.Conn, ip string) {
	c := &client{
		relay:  r,
		ip:     ip,
		logger: r.logger,
	}

	conn := transport.NewConnection(
		ctx,
		&r.wg,
		wsConn,
		transport.ConnectionConfig{
			ReadTimeout: r.config.ReadTimeout,
			SendBuffer:  r.config.SendBuffer,
		},
		c.onMessage,
		c.onClose,
		r.logger,
	)
	c.conn = conn
	c.logger = r.logger.With(slog.String("connID", conn.ID().String()))

	conn.Run()
	<-conn.Done()
}

// Wait blocks until every connection goroutine has finished its cleanup.
func (r *Relay) Wait() {
	r.wg.Wait()
}
