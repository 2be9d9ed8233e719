package protocol

import (
	"encoding/json"
	"time"

	"Iris/internal/domain"
)

// Inbound payloads. Each frame is decoded twice: once to read the type,
// once into the shape for that type.

type envelope struct {
	Type string `json:"type"`
}

type joinFrame struct {
	Room string      `json:"room"`
	User domain.User `json:"user"`
}

type messageFrame struct {
	Room     string     `json:"room"`
	Content  string     `json:"content"`
	Sender   string     `json:"sender"`
	FileURL  string     `json:"fileUrl"`
	FileName string     `json:"fileName"`
	FileSize int64      `json:"fileSize"`
	ID       string     `json:"id"`
	Time     *time.Time `json:"time"`
}

type typingFrame struct {
	Room     string `json:"room"`
	User     string `json:"user"`
	IsTyping bool   `json:"isTyping"`
}

// Outbound frames. Exported so callers and tests can decode what went
// over the wire.

type WelcomeFrame struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type RoomInfoFrame struct {
	Type string       `json:"type"`
	Room RoomSnapshot `json:"room"`
}

type RoomSnapshot struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	UserCount int              `json:"userCount"`
	Messages  []domain.Message `json:"messages"`
}

type UserListFrame struct {
	Type      string   `json:"type"`
	Users     []string `json:"users"`
	UserCount int      `json:"userCount"`
}

type MessageFrame struct {
	Type    string         `json:"type"`
	Message domain.Message `json:"message"`
}

type TypingFrame struct {
	Type     string `json:"type"`
	User     string `json:"user"`
	IsTyping bool   `json:"isTyping"`
}

type ErrorFrame struct {
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type PongFrame struct {
	Type string `json:"type"`
}

func Welcome(message string) []byte {
	return encode(WelcomeFrame{Type: domain.KindWelcome, Message: message, Timestamp: time.Now().UTC()})
}

func RoomInfo(id, name string, userCount int, messages []domain.Message) []byte {
	if messages == nil {
		messages = []domain.Message{}
	}
	return encode(RoomInfoFrame{Type: domain.KindRoomInfo, Room: RoomSnapshot{
		ID: id, Name: name, UserCount: userCount, Messages: messages,
	}})
}

func UserList(users []string) []byte {
	return encode(UserListFrame{Type: domain.KindUserList, Users: users, UserCount: len(users)})
}

func MessageEvent(msg domain.Message) []byte {
	return encode(MessageFrame{Type: domain.KindMessage, Message: msg})
}

func TypingEvent(user string, isTyping bool) []byte {
	return encode(TypingFrame{Type: domain.KindTyping, User: user, IsTyping: isTyping})
}

func Error(message string) []byte {
	return encode(ErrorFrame{Type: domain.KindError, Message: message, Timestamp: time.Now().UTC()})
}

func Pong() []byte {
	return encode(PongFrame{Type: domain.KindPong})
}

// encode never fails: all outbound frames are plain structs of
// marshalable fields.
func encode(v any) []byte {
	data, _ := json.Marshal(v)
	return data
}
