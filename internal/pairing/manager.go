// Package pairing issues and validates the short-lived codes that bind a
// remote controller to a controllable entity. It is pure state plus an
// injected clock; nothing here touches the transport.
package pairing

import (
	"crypto/rand"
	"math/big"
	"sync"
	"time"
)

// DefaultTTL is how long a pairing code stays valid after creation.
const DefaultTTL = 5 * time.Minute

// roomCodeAlphabet excludes visually ambiguous characters (0/O/1/I).
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Session is one outstanding pairing authorization.
type Session struct {
	Code        string
	EntityID    string
	ContainerID string
	OwnerID     string
	CreatedAt   time.Time
}

// IsExpired reports whether the session is past its TTL at the given
// instant. The boundary is exclusive: a session is still valid exactly at
// CreatedAt+ttl.
func (s Session) IsExpired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.CreatedAt) > ttl
}

// Manager holds pairing sessions keyed by code, plus the set of active
// control bindings keyed by entity id. Sessions are not single-use: a
// controller issues many control messages against the same binding, so
// deletion only happens via TTL sweep or explicit revocation.
type Manager struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]Session
	bindings map[string]Session // entityID -> promoted session
}

func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		ttl:      ttl,
		sessions: make(map[string]Session),
		bindings: make(map[string]Session),
	}
}

func randomIndex(n int) int {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("pairing: crypto/rand failure: " + err.Error())
	}
	return int(v.Int64())
}

// GenerateCode returns a 4-digit numeric pairing code.
func GenerateCode() string {
	digits := make([]byte, 4)
	for i := range digits {
		digits[i] = byte('0' + randomIndex(10))
	}
	return string(digits)
}

// GenerateRoomCode returns a 6-character room code drawn from an alphabet
// without visually ambiguous characters.
func GenerateRoomCode() string {
	chars := make([]byte, 6)
	for i := range chars {
		chars[i] = roomCodeAlphabet[randomIndex(len(roomCodeAlphabet))]
	}
	return string(chars)
}

// Create issues a fresh pairing session for an entity. Re-pairing the same
// entity produces a new code; older codes for the entity stay valid until
// they expire.
func (m *Manager) Create(entityID, containerID, ownerID string, now time.Time) Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	code := GenerateCode()
	for {
		if _, taken := m.sessions[code]; !taken {
			break
		}
		code = GenerateCode()
	}

	sess := Session{
		Code:        code,
		EntityID:    entityID,
		ContainerID: containerID,
		OwnerID:     ownerID,
		CreatedAt:   now,
	}
	m.sessions[code] = sess
	return sess
}

// Validate looks a session up by code. It returns false when the code is
// unknown or expired. Validation is read-only so retries stay idempotent.
func (m *Manager) Validate(code string, now time.Time) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[code]
	if !ok || sess.IsExpired(now, m.ttl) {
		return Session{}, false
	}
	return sess, true
}

// FindByEntity returns a non-expired session for the entity, if any. Used
// to re-resolve a binding when control messages arrive without a fresh
// pairing handshake.
func (m *Manager) FindByEntity(entityID string, now time.Time) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, sess := range m.sessions {
		if sess.EntityID == entityID && !sess.IsExpired(now, m.ttl) {
			return sess, true
		}
	}
	return Session{}, false
}

// Promote records the session as the active control binding for its
// entity, so reconnects can re-locate it by entity id.
func (m *Manager) Promote(sess Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bindings[sess.EntityID] = sess
}

// Binding returns the active control binding for an entity.
func (m *Manager) Binding(entityID string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.bindings[entityID]
	return sess, ok
}

// Revoke removes a session by code and any binding promoted from it.
func (m *Manager) Revoke(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[code]
	if !ok {
		return
	}
	delete(m.sessions, code)
	if bound, ok := m.bindings[sess.EntityID]; ok && bound.Code == code {
		delete(m.bindings, sess.EntityID)
	}
}

// CleanupExpired removes every expired session and returns how many were
// removed. Intended to run on a periodic timer.
func (m *Manager) CleanupExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for code, sess := range m.sessions {
		if sess.IsExpired(now, m.ttl) {
			delete(m.sessions, code)
			removed++
		}
	}
	return removed
}

// Len returns the number of outstanding sessions, expired or not.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
