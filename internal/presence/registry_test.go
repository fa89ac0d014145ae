package presence

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/whisper-chat/relay/internal/protocol"
)

type nopConn struct{ id int }

func (c *nopConn) Push(evt *protocol.Event) bool { return true }

func TestRegisterLookup(t *testing.T) {
	r := NewRegistry()
	userID := uuid.New()
	conn := &nopConn{id: 1}

	_, ok := r.Lookup(userID)
	assert.False(t, ok)

	r.Register(userID, conn)
	got, ok := r.Lookup(userID)
	assert.True(t, ok)
	assert.Same(t, conn, got)
	assert.Equal(t, 1, r.Len())
}

func TestRegisterMostRecentWins(t *testing.T) {
	r := NewRegistry()
	userID := uuid.New()
	old := &nopConn{id: 1}
	replacement := &nopConn{id: 2}

	r.Register(userID, old)
	r.Register(userID, replacement)

	got, ok := r.Lookup(userID)
	assert.True(t, ok)
	assert.Same(t, replacement, got)
	assert.Equal(t, 1, r.Len())
}

func TestUnregisterIgnoresStaleConn(t *testing.T) {
	r := NewRegistry()
	userID := uuid.New()
	old := &nopConn{id: 1}
	replacement := &nopConn{id: 2}

	r.Register(userID, old)
	r.Register(userID, replacement)

	// The stale connection's disconnect must not evict the replacement.
	assert.False(t, r.Unregister(userID, old))
	got, ok := r.Lookup(userID)
	assert.True(t, ok)
	assert.Same(t, replacement, got)

	assert.True(t, r.Unregister(userID, replacement))
	_, ok = r.Lookup(userID)
	assert.False(t, ok)
}

func TestConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			userID := uuid.New()
			conn := &nopConn{}
			for j := 0; j < 100; j++ {
				r.Register(userID, conn)
				r.Lookup(userID)
				r.Len()
				r.Unregister(userID, conn)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, r.Len())
}
