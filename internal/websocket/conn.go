package websocket

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"Iris/internal/domain"
	"Iris/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
	sendQueueSize  = 256
)

var wsLogger = slog.With("component", "websocket")

// Handler consumes decoded inbound frames.
type Handler interface {
	Handle(conn domain.Conn, data []byte)
}

// Terminator is the relay's disconnect path.
type Terminator interface {
	Terminate(conn domain.Conn)
}

// Conn adapts a gorilla websocket connection to domain.Conn. Reads feed the
// protocol handler; writes are funneled through a single write pump so
// probes and frames never interleave on the wire. The alive flag is cleared
// by the liveness monitor and re-armed by pong replies or any inbound
// frame.
type Conn struct {
	id      string
	ws      *websocket.Conn
	send    chan []byte
	ping    chan struct{}
	handler Handler
	relay   Terminator
	monitor *Monitor

	alive     atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

func NewConn(id string, ws *websocket.Conn, handler Handler, relay Terminator, monitor *Monitor) *Conn {
	c := &Conn{
		id:      id,
		ws:      ws,
		send:    make(chan []byte, sendQueueSize),
		ping:    make(chan struct{}, 1),
		handler: handler,
		relay:   relay,
		monitor: monitor,
		done:    make(chan struct{}),
	}
	c.alive.Store(true)
	return c
}

func (c *Conn) ID() string { return c.id }

// Send queues data for the write pump. It never blocks; a full queue means
// the peer is not draining and the send is refused.
func (c *Conn) Send(data []byte) error {
	select {
	case <-c.done:
		return websocket.ErrCloseSent
	case c.send <- data:
		return nil
	default:
		return websocket.ErrCloseSent
	}
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return c.ws.Close()
}

// Start registers the connection with the liveness monitor, greets the
// client, and spins up the pumps.
func (c *Conn) Start() {
	c.monitor.Track(c)
	if err := c.Send(protocol.Welcome("connected to chat server")); err != nil {
		wsLogger.Warn("welcome send failed", "connId", c.id, "error", err)
	}
	go c.writePump()
	go c.readPump()
}

func (c *Conn) Alive() bool { return c.alive.Load() }

func (c *Conn) disarm() { c.alive.Store(false) }

// probe asks the write pump to emit a ping control frame.
func (c *Conn) probe() {
	select {
	case c.ping <- struct{}{}:
	default:
	}
}

func (c *Conn) readPump() {
	defer func() {
		c.monitor.Remove(c)
		c.relay.Terminate(c)
		c.Close()
	}()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				wsLogger.Warn("read error", "connId", c.id, "error", err)
			}
			return
		}
		c.alive.Store(true)
		c.handler.Handle(c, data)
	}
}

func (c *Conn) writePump() {
	defer c.ws.Close()

	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				wsLogger.Warn("write error", "connId", c.id, "error", err)
				return
			}
		case <-c.ping:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}
