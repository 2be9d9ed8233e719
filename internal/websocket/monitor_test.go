package websocket

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	id string

	mu     sync.Mutex
	alive  bool
	probes int
	closed bool
}

func newFakeConn(id string) *fakeConn {
	return &fakeConn{id: id, alive: true}
}

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Alive() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive
}

func (f *fakeConn) disarm() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive = false
}

func (f *fakeConn) probe() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probes++
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) reply() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive = true
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) probeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.probes
}

func TestMonitor_ReapsSilentConnectionAfterTwoSweeps(t *testing.T) {
	m := NewMonitor(time.Hour)
	conn := newFakeConn("c1")
	m.Track(conn)

	// First sweep: flag cleared, probe sent, connection kept.
	m.sweep()
	assert.False(t, conn.isClosed())
	assert.Equal(t, 1, conn.probeCount())
	require.Equal(t, 1, m.Tracked())

	// No reply before the second sweep: reaped and evicted.
	m.sweep()
	assert.True(t, conn.isClosed())
	assert.Equal(t, 0, m.Tracked())
}

func TestMonitor_ReplyKeepsConnectionAlive(t *testing.T) {
	m := NewMonitor(time.Hour)
	conn := newFakeConn("c1")
	m.Track(conn)

	for i := 0; i < 5; i++ {
		m.sweep()
		conn.reply()
	}

	assert.False(t, conn.isClosed())
	assert.Equal(t, 5, conn.probeCount())
	assert.Equal(t, 1, m.Tracked())
}

func TestMonitor_SweepIsPerConnection(t *testing.T) {
	m := NewMonitor(time.Hour)
	silent := newFakeConn("silent")
	chatty := newFakeConn("chatty")
	m.Track(silent)
	m.Track(chatty)

	m.sweep()
	chatty.reply()
	m.sweep()

	assert.True(t, silent.isClosed())
	assert.False(t, chatty.isClosed())
	assert.Equal(t, 1, m.Tracked())
}

func TestMonitor_RemoveIsIdempotent(t *testing.T) {
	m := NewMonitor(time.Hour)
	conn := newFakeConn("c1")
	m.Track(conn)

	m.Remove(conn)
	m.Remove(conn)

	assert.Equal(t, 0, m.Tracked())
}

func TestMonitor_RunSweepsOnInterval(t *testing.T) {
	m := NewMonitor(10 * time.Millisecond)
	conn := newFakeConn("c1")
	m.Track(conn)

	go m.Run()
	defer m.Stop()

	assert.Eventually(t, conn.isClosed, time.Second, 5*time.Millisecond,
		"silent connection should be reaped within two intervals")
}
