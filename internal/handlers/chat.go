package handlers

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	wsConn "Iris/internal/websocket"
)

var chatLogger = slog.With("component", "chat")

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type ChatHandler struct {
	Handler wsConn.Handler
	Relay   wsConn.Terminator
	Monitor *wsConn.Monitor
}

func NewChatHandler(handler wsConn.Handler, relay wsConn.Terminator, monitor *wsConn.Monitor) *ChatHandler {
	return &ChatHandler{Handler: handler, Relay: relay, Monitor: monitor}
}

// ServeWS upgrades the request and hands the connection to the relay.
// Identity and room are supplied later by the join frame.
func (ch *ChatHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		chatLogger.Error("websocket upgrade failed", "error", err)
		return
	}

	id := uuid.NewString()
	chatLogger.Info("websocket connection established",
		"connId", id,
		"origin", r.Header.Get("Origin"),
		"remote", r.RemoteAddr)

	c := wsConn.NewConn(id, conn, ch.Handler, ch.Relay, ch.Monitor)
	c.Start()
}
