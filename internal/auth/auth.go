// Package auth implements the host-side password login and the long-lived
// "remember me" session tokens used for silent re-authentication.
package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is the session token lifetime.
const DefaultTokenTTL = 30 * 24 * time.Hour

var (
	ErrInvalidCredentials = errors.New("auth: invalid username or password")
	ErrInvalidToken       = errors.New("auth: invalid or expired session token")
)

// dummyHash is a real bcrypt hash compared when the username is unknown,
// so those logins cost a full comparison rather than failing fast on a
// malformed hash.
var dummyHash = func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("tablelink-unknown-user"), bcrypt.DefaultCost)
	if err != nil {
		panic("auth: generating dummy hash: " + err.Error())
	}
	return hash
}()

// User is one host-side account.
type User struct {
	ID   string
	Name string
	hash []byte
}

// Token is a stored session token record. The token string itself is a
// signed JWT; the record lets the host revoke tokens individually and
// sweep expired ones.
type Token struct {
	Value     string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Manager holds accounts and issued tokens. Mutations are infrequent and
// scans are short, so a single mutex guards everything.
type Manager struct {
	mu     sync.Mutex
	secret []byte
	ttl    time.Duration
	users  map[string]*User // keyed by username
	tokens map[string]Token // keyed by token value
}

func NewManager(secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		users:  make(map[string]*User),
		tokens: make(map[string]Token),
	}
}

// Register creates an account. The password is the client-side hash from
// the wire; it is bcrypt-hashed again before storage.
func (m *Manager) Register(id, username, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[username]; exists {
		return fmt.Errorf("auth: user %q already registered", username)
	}
	m.users[username] = &User{ID: id, Name: username, hash: hash}
	return nil
}

// Login checks credentials and issues a fresh session token.
func (m *Manager) Login(username, password string, now time.Time) (User, Token, error) {
	m.mu.Lock()
	user, ok := m.users[username]
	m.mu.Unlock()

	if !ok {
		// Unknown users take as long to reject as wrong passwords.
		bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return User{}, Token{}, ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword(user.hash, []byte(password)) != nil {
		return User{}, Token{}, ErrInvalidCredentials
	}

	token, err := m.issueToken(user.ID, now)
	if err != nil {
		return User{}, Token{}, err
	}
	return *user, token, nil
}

func (m *Manager) issueToken(userID string, now time.Time) (Token, error) {
	expiresAt := now.Add(m.ttl)
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return Token{}, fmt.Errorf("signing session token: %w", err)
	}

	token := Token{
		Value:     signed,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: expiresAt,
	}

	m.mu.Lock()
	m.tokens[signed] = token
	m.mu.Unlock()
	return token, nil
}

// ValidateToken authenticates a stored session token. The token must
// carry a valid signature and expiry, and must still be present in the
// store (revoked or swept tokens fail even with a valid signature).
func (m *Manager) ValidateToken(value string, now time.Time) (User, error) {
	parsed, err := jwt.ParseWithClaims(value, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }))
	if err != nil || !parsed.Valid {
		return User{}, ErrInvalidToken
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.tokens[value]
	if !ok || now.After(record.ExpiresAt) {
		return User{}, ErrInvalidToken
	}
	for _, user := range m.users {
		if user.ID == record.UserID {
			return *user, nil
		}
	}
	return User{}, ErrInvalidToken
}

// RevokeToken invalidates one token.
func (m *Manager) RevokeToken(value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, value)
}

// CleanupExpired sweeps expired tokens and returns how many were removed.
func (m *Manager) CleanupExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for value, token := range m.tokens {
		if now.After(token.ExpiresAt) {
			delete(m.tokens, value)
			removed++
		}
	}
	return removed
}

// TokenCount returns the number of stored tokens.
func (m *Manager) TokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}
