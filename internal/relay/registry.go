package relay

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tablelink/tablelink/pkg/protocol"
)

// Sender is the outbound half of a connection. The registry only ever
// enqueues; it never owns or closes the connection.
type Sender interface {
	ID() uuid.UUID
	TrySend(msg []byte) bool
}

// Stats contains aggregate registry counts.
type Stats struct {
	RoomCount       int
	ClientCount     int
	HostCount       int
	ControllerCount int
}

// Registry tracks which connections belong to which room. It holds
// non-owning references: membership, not ownership.
type Registry interface {
	// Join binds a connection to a room for the rest of its lifetime.
	Join(conn Sender, room, ip string) error
	// Leave removes the connection; an empty room is removed entirely.
	Leave(connID uuid.UUID)
	// SetRole transitions a member's role exactly once (Unknown -> role).
	// It reports whether the role actually changed.
	SetRole(connID uuid.UUID, role protocol.ClientType) (changed bool, room string)

	RoomCount() int
	ClientCount() int
	ClientCountForIP(ip string) int
	Stats() Stats
	HasRole(room string, role protocol.ClientType) bool

	// BroadcastRoomStatus pushes a ROOM_STATUS envelope to every member of
	// the room, dropping for any member whose outbound queue is full.
	BroadcastRoomStatus(room string)
}

type member struct {
	conn     Sender
	room     string
	ip       string
	role     protocol.ClientType
	joinedAt time.Time
}

// InMemoryRegistry is the single-process Registry implementation. All
// state is guarded by one readers-writer lock; broadcasts snapshot the
// member list under a read lock and release it before any I/O.
type InMemoryRegistry struct {
	mu      sync.RWMutex
	members map[uuid.UUID]*member
	rooms   map[string]map[uuid.UUID]*member

	logger *slog.Logger
}

var _ Registry = (*InMemoryRegistry)(nil)

func NewInMemoryRegistry(logger *slog.Logger) *InMemoryRegistry {
	return &InMemoryRegistry{
		members: make(map[uuid.UUID]*member),
		rooms:   make(map[string]map[uuid.UUID]*member),
		logger:  logger.With(slog.String("component", "room_registry")),
	}
}

func (r *InMemoryRegistry) Join(conn Sender, room, ip string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	connID := conn.ID()
	if _, exists := r.members[connID]; exists {
		return errors.New("connection is already bound to a room")
	}

	m := &member{
		conn:     conn,
		room:     room,
		ip:       ip,
		role:     protocol.ClientTypeUnknown,
		joinedAt: time.Now(),
	}
	r.members[connID] = m

	if r.rooms[room] == nil {
		r.rooms[room] = make(map[uuid.UUID]*member)
	}
	r.rooms[room][connID] = m

	r.logger.Debug("Connection joined room", slog.String("connID", connID.String()), slog.String("room", room))
	return nil
}

func (r *InMemoryRegistry) Leave(connID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[connID]
	if !ok {
		return
	}
	delete(r.members, connID)

	if clients, ok := r.rooms[m.room]; ok {
		delete(clients, connID)
		// A room with zero members must not persist in the registry.
		if len(clients) == 0 {
			delete(r.rooms, m.room)
			r.logger.Debug("Removed empty room", slog.String("room", m.room))
		}
	}

	r.logger.Debug("Connection left room", slog.String("connID", connID.String()), slog.String("room", m.room))
}

func (r *InMemoryRegistry) SetRole(connID uuid.UUID, role protocol.ClientType) (bool, string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[connID]
	if !ok {
		return false, ""
	}
	if m.role != protocol.ClientTypeUnknown {
		// Roles transition exactly once.
		if m.role != role {
			r.logger.Warn("Ignoring role change for identified connection",
				slog.String("connID", connID.String()),
				slog.String("role", string(m.role)),
				slog.String("requested", string(role)),
			)
		}
		return false, m.room
	}

	m.role = role
	r.logger.Debug("Connection identified",
		slog.String("connID", connID.String()),
		slog.String("role", string(role)),
		slog.String("room", m.room),
	)
	return true, m.room
}

func (r *InMemoryRegistry) RoomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

func (r *InMemoryRegistry) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members)
}

func (r *InMemoryRegistry) ClientCountForIP(ip string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, m := range r.members {
		if m.ip == ip {
			count++
		}
	}
	return count
}

func (r *InMemoryRegistry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{RoomCount: len(r.rooms), ClientCount: len(r.members)}
	for _, m := range r.members {
		switch m.role {
		case protocol.ClientTypeHost:
			stats.HostCount++
		case protocol.ClientTypeController:
			stats.ControllerCount++
		}
	}
	return stats
}

func (r *InMemoryRegistry) HasRole(room string, role protocol.ClientType) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.hasRoleLocked(room, role)
}

func (r *InMemoryRegistry) hasRoleLocked(room string, role protocol.ClientType) bool {
	for _, m := range r.rooms[room] {
		if m.role == role {
			return true
		}
	}
	return false
}

func (r *InMemoryRegistry) BroadcastRoomStatus(room string) {
	r.mu.RLock()
	clients, ok := r.rooms[room]
	if !ok {
		r.mu.RUnlock()
		return
	}

	hostConnected := r.hasRoleLocked(room, protocol.ClientTypeHost)

	// Snapshot the member list so no I/O happens under the lock.
	conns := make([]Sender, 0, len(clients))
	for _, m := range clients {
		conns = append(conns, m.conn)
	}
	r.mu.RUnlock()

	msg, err := protocol.MakeEnvelope(protocol.TypeRoomStatus, protocol.RoomStatusPayload{
		HostConnected: hostConnected,
	})
	if err != nil {
		r.logger.Error("Failed to build ROOM_STATUS message", slog.Any("error", err))
		return
	}

	for _, conn := range conns {
		if !conn.TrySend(msg) {
			r.logger.Debug("Dropped ROOM_STATUS for slow or closed member", slog.String("room", room))
		}
	}
}
