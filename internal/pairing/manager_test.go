package pairing

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := GenerateCode()
		require.Len(t, code, 4)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "code %q is not numeric", code)
		}
	}
}

func TestGenerateRoomCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := GenerateRoomCode()
		require.Len(t, code, 6)
		for _, r := range code {
			assert.NotContains(t, "0O1I", string(r), "code %q has an ambiguous character", code)
			assert.True(t, strings.ContainsRune(roomCodeAlphabet, r))
		}
	}
}

func TestIsExpiredBoundaries(t *testing.T) {
	sess := Session{CreatedAt: epoch}
	ttl := DefaultTTL

	assert.False(t, sess.IsExpired(epoch, ttl), "fresh session")
	assert.False(t, sess.IsExpired(epoch.Add(ttl-time.Millisecond), ttl), "just inside TTL")
	assert.False(t, sess.IsExpired(epoch.Add(ttl), ttl), "exactly at TTL")
	assert.True(t, sess.IsExpired(epoch.Add(ttl+time.Millisecond), ttl), "just past TTL")
}

func TestValidate(t *testing.T) {
	m := NewManager(DefaultTTL)
	sess := m.Create("tok1", "scene1", "user1", epoch)

	got, ok := m.Validate(sess.Code, epoch.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, sess, got)

	// Read-only: validating again still succeeds.
	_, ok = m.Validate(sess.Code, epoch.Add(2*time.Minute))
	assert.True(t, ok)

	_, ok = m.Validate("0000", epoch)
	assert.False(t, ok, "unknown code")

	_, ok = m.Validate(sess.Code, epoch.Add(DefaultTTL+time.Second))
	assert.False(t, ok, "expired code")
}

func TestFindByEntity(t *testing.T) {
	m := NewManager(DefaultTTL)
	old := m.Create("tok1", "scene1", "user1", epoch.Add(-10*time.Minute))
	fresh := m.Create("tok1", "scene1", "user1", epoch)
	m.Create("tok2", "scene1", "user2", epoch)

	got, ok := m.FindByEntity("tok1", epoch.Add(time.Minute))
	require.True(t, ok)
	assert.Equal(t, fresh.Code, got.Code, "expired session %s must be skipped", old.Code)

	_, ok = m.FindByEntity("nope", epoch)
	assert.False(t, ok)
}

func TestCleanupExpired(t *testing.T) {
	m := NewManager(DefaultTTL)
	m.Create("tok1", "scene1", "u1", epoch.Add(-10*time.Minute))
	m.Create("tok2", "scene1", "u1", epoch.Add(-6*time.Minute))
	keep := m.Create("tok3", "scene1", "u1", epoch)

	removed := m.CleanupExpired(epoch)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, m.Len())

	_, ok := m.Validate(keep.Code, epoch)
	assert.True(t, ok, "fresh session must survive the sweep")
}

func TestPromoteAndBinding(t *testing.T) {
	m := NewManager(DefaultTTL)
	sess := m.Create("tok1", "scene1", "u1", epoch)

	_, ok := m.Binding("tok1")
	assert.False(t, ok)

	m.Promote(sess)
	got, ok := m.Binding("tok1")
	require.True(t, ok)
	assert.Equal(t, sess, got)
}

func TestRevoke(t *testing.T) {
	m := NewManager(DefaultTTL)
	sess := m.Create("tok1", "scene1", "u1", epoch)
	m.Promote(sess)

	m.Revoke(sess.Code)
	_, ok := m.Validate(sess.Code, epoch)
	assert.False(t, ok)
	_, ok = m.Binding("tok1")
	assert.False(t, ok)

	m.Revoke("0000") // unknown code is a no-op
}

func TestCodesAreUnique(t *testing.T) {
	m := NewManager(DefaultTTL)
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		sess := m.Create("tok", "scene", "u", epoch)
		assert.False(t, seen[sess.Code], "duplicate live code %s", sess.Code)
		seen[sess.Code] = true
	}
}
