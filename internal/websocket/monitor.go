package websocket

import (
	"sync"
	"time"
)

// liveConn is what the monitor needs from a tracked connection.
type liveConn interface {
	ID() string
	Alive() bool
	disarm()
	probe()
	Close() error
}

// Monitor runs the heartbeat over all tracked connections. On each tick a
// connection that never re-armed its alive flag since the previous tick is
// closed and evicted; everyone else is disarmed and probed. An unresponsive
// peer is therefore reaped after at least one and at most two intervals.
type Monitor struct {
	interval time.Duration

	mu    sync.Mutex
	conns map[string]liveConn

	stop     chan struct{}
	stopOnce sync.Once
}

func NewMonitor(interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Monitor{
		interval: interval,
		conns:    make(map[string]liveConn),
		stop:     make(chan struct{}),
	}
}

func (m *Monitor) Track(c liveConn) {
	m.mu.Lock()
	m.conns[c.ID()] = c
	m.mu.Unlock()
}

func (m *Monitor) Remove(c liveConn) {
	m.mu.Lock()
	delete(m.conns, c.ID())
	m.mu.Unlock()
}

func (m *Monitor) Run() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.sweep()
		case <-m.stop:
			return
		}
	}
}

func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

// sweep closes dead connections and probes the rest. Closing unblocks the
// connection's read pump, which runs the relay's terminate path, so reaped
// connections leave their rooms the same way an explicit leave does.
func (m *Monitor) sweep() {
	m.mu.Lock()
	var dead []liveConn
	for id, c := range m.conns {
		if !c.Alive() {
			delete(m.conns, id)
			dead = append(dead, c)
			continue
		}
		c.disarm()
		c.probe()
	}
	m.mu.Unlock()

	for _, c := range dead {
		wsLogger.Info("reaping unresponsive connection", "connId", c.ID())
		c.Close()
	}
}

// Tracked reports the number of connections under heartbeat.
func (m *Monitor) Tracked() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.conns)
}
