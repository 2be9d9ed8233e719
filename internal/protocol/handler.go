package protocol

import (
	"encoding/json"
	"log/slog"

	"Iris/internal/domain"
)

var protocolLogger = slog.With("component", "protocol")

// Relay is the set of operations a decoded frame can be routed to.
type Relay interface {
	Join(conn domain.Conn, roomID string, user domain.User) error
	Leave(conn domain.Conn) error
	Message(conn domain.Conn, msg domain.Message) error
	Typing(conn domain.Conn, roomID, user string, isTyping bool) error
}

// Handler decodes inbound frames and routes them to the relay. A bad frame
// is answered with an error frame and otherwise ignored; it never brings
// down the connection.
type Handler struct {
	relay Relay
}

func NewHandler(relay Relay) *Handler {
	return &Handler{relay: relay}
}

func (h *Handler) Handle(conn domain.Conn, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		protocolLogger.Warn("malformed frame", "connId", conn.ID(), "error", err)
		h.reply(conn, Error("malformed frame"))
		return
	}

	switch env.Type {
	case domain.KindPing:
		h.reply(conn, Pong())

	case domain.KindJoin:
		var f joinFrame
		if err := json.Unmarshal(data, &f); err != nil {
			h.reply(conn, Error("malformed join frame"))
			return
		}
		if f.Room == "" {
			h.reply(conn, Error("join requires a room"))
			return
		}
		if err := h.relay.Join(conn, f.Room, f.User); err != nil {
			h.reply(conn, Error(err.Error()))
		}

	case domain.KindLeave:
		if err := h.relay.Leave(conn); err != nil {
			h.reply(conn, Error(err.Error()))
		}

	case domain.KindMessage:
		var f messageFrame
		if err := json.Unmarshal(data, &f); err != nil {
			h.reply(conn, Error("malformed message frame"))
			return
		}
		msg := domain.Message{
			ID:       f.ID,
			RoomID:   f.Room,
			Sender:   f.Sender,
			Content:  f.Content,
			FileURL:  f.FileURL,
			FileName: f.FileName,
			FileSize: f.FileSize,
		}
		if f.Time != nil {
			msg.Time = *f.Time
		}
		if err := h.relay.Message(conn, msg); err != nil {
			h.reply(conn, Error(err.Error()))
		}

	case domain.KindTyping:
		var f typingFrame
		if err := json.Unmarshal(data, &f); err != nil {
			h.reply(conn, Error("malformed typing frame"))
			return
		}
		if err := h.relay.Typing(conn, f.Room, f.User, f.IsTyping); err != nil {
			h.reply(conn, Error(err.Error()))
		}

	default:
		protocolLogger.Warn("unknown frame type", "connId", conn.ID(), "type", env.Type)
		h.reply(conn, Error("unknown frame type: "+env.Type))
	}
}

func (h *Handler) reply(conn domain.Conn, data []byte) {
	if err := conn.Send(data); err != nil {
		protocolLogger.Warn("reply failed", "connId", conn.ID(), "error", err)
	}
}
