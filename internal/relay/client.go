package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/tablelink/tablelink/pkg/bus"
	"github.com/tablelink/tablelink/pkg/protocol"
	"github.com/tablelink/tablelink/pkg/transport"
)

// client is the lifecycle manager for one connection. Its state machine is
// Connected(unjoined) -> Joined(room) -> Closed; the room is immutable once
// joined. Message handling runs on the read pump goroutine; onClose may run
// on either pump, so shared fields are guarded by mu.
type client struct {
	relay  *Relay
	conn   *transport.Connection
	ip     string
	logger *slog.Logger

	mu     sync.Mutex
	joined bool
	closed bool
	room   string
	sub    bus.Subscription

	lastMove time.Time // read pump only
}

func (c *client) onMessage(_ context.Context, _ uuid.UUID, msg []byte) {
	c.mu.Lock()
	joined := c.joined
	room := c.room
	c.mu.Unlock()

	if !joined {
		c.handleJoin(msg)
		return
	}

	env, err := protocol.ParseEnvelope(msg)
	if err != nil {
		// Not fatal once joined: log and drop the single message.
		c.logger.Warn("Invalid message from client", slog.Any("error", err))
		return
	}

	tag, payload := protocol.Route(env)
	switch tag {
	case protocol.TagIdentify:
		// Consumed locally, never forwarded to the bus.
		c.handleIdentify(payload)
		return
	case protocol.TagMove:
		if !c.allowMove() {
			return
		}
	}

	// A late JOIN relays like any other envelope; the connection's own
	// room never changes.

	if err := c.relay.bus.Publish(Topic(room), msg); err != nil {
		c.logger.Error("Bus publish failed", slog.Any("error", err))
		c.conn.Close(err)
	}
}

// handleJoin processes the required first message. Anything but a JOIN
// naming a valid room is a protocol violation that terminates the
// connection with a machine-readable close code.
func (c *client) handleJoin(msg []byte) {
	env, err := protocol.ParseEnvelope(msg)
	if err != nil {
		c.conn.CloseWithStatus(websocket.StatusCode(protocol.CloseProtocolError), "Invalid JSON", err)
		return
	}
	if env.Type != protocol.TypeJoin || !protocol.IsJoinPayload(env.Payload) {
		c.conn.CloseWithStatus(websocket.StatusCode(protocol.CloseProtocolError), "Expected JOIN message", nil)
		return
	}

	var payload protocol.JoinPayload
	if err := json.Unmarshal(env.Payload, &payload); err != nil {
		c.conn.CloseWithStatus(websocket.StatusCode(protocol.CloseProtocolError), "Invalid JOIN payload", err)
		return
	}

	room := payload.Room
	if !protocol.ValidateRoomCode(room) {
		c.conn.CloseWithStatus(websocket.StatusCode(protocol.CloseInvalidRoom), "Invalid room code format", nil)
		return
	}

	// The subscription callback never blocks: it attempts a non-blocking
	// enqueue and drops the message when the queue is full.
	sub, err := c.relay.bus.Subscribe(Topic(room), func(data []byte) {
		if !c.conn.TrySend(data) {
			c.logger.Debug("Dropping message for slow client", slog.String("room", room))
		}
	})
	if err != nil {
		c.conn.CloseWithStatus(websocket.StatusCode(protocol.CloseSubscribeFailed), "Failed to subscribe", err)
		return
	}

	if err := c.relay.registry.Join(c.conn, room, c.ip); err != nil {
		sub.Unsubscribe()
		c.conn.CloseWithStatus(websocket.StatusCode(protocol.CloseProtocolError), "Join rejected", err)
		return
	}

	c.mu.Lock()
	if c.closed {
		// The connection died while the join was in flight; onClose saw
		// nothing to release, so release it here.
		c.mu.Unlock()
		if uerr := sub.Unsubscribe(); uerr != nil {
			c.logger.Warn("Unsubscribe failed", slog.Any("error", uerr))
		}
		c.relay.registry.Leave(c.conn.ID())
		c.relay.registry.BroadcastRoomStatus(room)
		return
	}
	c.joined = true
	c.room = room
	c.sub = sub
	c.mu.Unlock()

	c.logger.Info("Client joined room", slog.String("room", room))
	c.relay.registry.BroadcastRoomStatus(room)
}

func (c *client) handleIdentify(payload json.RawMessage) {
	if !protocol.IsIdentifyPayload(payload) {
		c.logger.Warn("Invalid IDENTIFY payload")
		return
	}

	var p protocol.IdentifyPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		c.logger.Warn("Invalid IDENTIFY payload", slog.Any("error", err))
		return
	}

	var role protocol.ClientType
	switch p.ClientType {
	case string(protocol.ClientTypeHost):
		role = protocol.ClientTypeHost
	case string(protocol.ClientTypeController):
		role = protocol.ClientTypeController
	default:
		c.logger.Warn("Unknown client type", slog.String("clientType", p.ClientType))
		return
	}

	changed, room := c.relay.registry.SetRole(c.conn.ID(), role)
	if changed {
		c.logger.Info("Client identified", slog.String("role", string(role)), slog.String("room", room))
		c.relay.registry.BroadcastRoomStatus(room)
	}
}

// allowMove applies the optional server-side movement throttle. Dropped
// messages are silent; the control surface is continuously re-assertable.
func (c *client) allowMove() bool {
	window := c.relay.config.MoveThrottle
	if window <= 0 {
		return true
	}
	now := time.Now()
	if now.Sub(c.lastMove) < window {
		return false
	}
	c.lastMove = now
	return true
}

// onClose releases the room membership and bus subscription. The
// transport has already been marked closed, so late broadcasts are
// discarded rather than written to a dead socket.
func (c *client) onClose(connID uuid.UUID, err error) {
	c.mu.Lock()
	c.closed = true
	joined := c.joined
	room := c.room
	sub := c.sub
	c.sub = nil
	c.mu.Unlock()

	if sub != nil {
		if uerr := sub.Unsubscribe(); uerr != nil {
			c.logger.Warn("Unsubscribe failed", slog.Any("error", uerr))
		}
	}
	if !joined {
		return
	}

	c.relay.registry.Leave(connID)
	c.relay.registry.BroadcastRoomStatus(room)
	c.logger.Info("Client left room", slog.String("room", room), slog.Any("reason", err))
}
