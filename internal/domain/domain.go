package domain

import (
	"context"
	"errors"
	"time"
)

// Inbound frame kinds.
const (
	KindJoin    = "join"
	KindLeave   = "leave"
	KindMessage = "message"
	KindTyping  = "typing"
	KindPing    = "ping"
)

// Outbound frame kinds.
const (
	KindWelcome  = "welcome"
	KindRoomInfo = "room_info"
	KindUserList = "user_list"
	KindPong     = "pong"
	KindError    = "error"
)

type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// Message is one chat message. Exactly one of Content and FileURL is set.
// Ordering within a room is the order the relay accepted messages, not
// client timestamps.
type Message struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"roomId"`
	Sender   string    `json:"sender"`
	Content  string    `json:"content,omitempty"`
	FileURL  string    `json:"fileUrl,omitempty"`
	FileName string    `json:"fileName,omitempty"`
	FileSize int64     `json:"fileSize,omitempty"`
	Time     time.Time `json:"time"`
}

type RoomInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Conn is one live client transport session. The relay holds a non-owning
// reference; the transport layer creates and closes it.
type Conn interface {
	ID() string
	Send(data []byte) error
	Close() error
}

// Store is the durable store gateway. RoomMessages returns the most recent
// messages in chronological order (oldest first).
type Store interface {
	SaveMessage(ctx context.Context, msg Message) error
	RoomMessages(ctx context.Context, roomID string, limit int) ([]Message, error)
	RoomInfo(ctx context.Context, roomID string) (RoomInfo, error)
	CreateRoom(ctx context.Context, id, name string) error
	ListRooms(ctx context.Context) ([]RoomInfo, error)
}

var (
	ErrNotInRoom      = errors.New("not joined to a room")
	ErrRoomMismatch   = errors.New("message addressed to a room you have not joined")
	ErrEmptyMessage   = errors.New("message needs text content or a file")
	ErrContentAndFile = errors.New("message cannot carry both text and a file")
	ErrMessageTooLong = errors.New("message is too long (max 1000 characters)")
	ErrMissingUser    = errors.New("user identity is required")
	ErrStoreFailure   = errors.New("message could not be saved")

	ErrRoomExists   = errors.New("room already exists")
	ErrRoomNotFound = errors.New("room not found")
)
