package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"Iris/internal/domain"
)

var roomsLogger = slog.With("component", "rooms")

const historyLimit = 200

// RoomStore is the slice of the store gateway the REST layer needs.
type RoomStore interface {
	CreateRoom(ctx context.Context, id, name string) error
	ListRooms(ctx context.Context) ([]domain.RoomInfo, error)
	RoomInfo(ctx context.Context, roomID string) (domain.RoomInfo, error)
	RoomMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error)
	SaveMessage(ctx context.Context, msg domain.Message) error
	AllMessages(ctx context.Context) ([]domain.Message, error)
}

type RoomHandler struct {
	Store RoomStore
}

func NewRoomHandler(store RoomStore) *RoomHandler {
	return &RoomHandler{Store: store}
}

type createRoomRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		httpError(w, http.StatusBadRequest, "room name is required")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	err := h.Store.CreateRoom(r.Context(), req.ID, req.Name)
	if errors.Is(err, domain.ErrRoomExists) {
		httpError(w, http.StatusConflict, "room already exists")
		return
	}
	if err != nil {
		roomsLogger.Error("create room failed", "roomId", req.ID, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	roomsLogger.Info("room created", "roomId", req.ID, "name", req.Name)
	writeJSON(w, http.StatusCreated, domain.RoomInfo{ID: req.ID, Name: req.Name})
}

func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Store.ListRooms(r.Context())
	if err != nil {
		roomsLogger.Error("list rooms failed", "error", err)
		httpError(w, http.StatusInternalServerError, "failed to fetch rooms")
		return
	}
	if rooms == nil {
		rooms = []domain.RoomInfo{}
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *RoomHandler) RoomMessages(w http.ResponseWriter, r *http.Request) {
	roomID := r.PathValue("roomID")
	if _, err := h.Store.RoomInfo(r.Context(), roomID); err != nil {
		if errors.Is(err, domain.ErrRoomNotFound) {
			httpError(w, http.StatusNotFound, "room not found")
			return
		}
		roomsLogger.Error("room lookup failed", "roomId", roomID, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to fetch room")
		return
	}

	messages, err := h.Store.RoomMessages(r.Context(), roomID, historyLimit)
	if err != nil {
		roomsLogger.Error("room history failed", "roomId", roomID, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, messages)
}

type sendMessageRequest struct {
	Content  string `json:"content"`
	FileURL  string `json:"fileUrl"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}

// SendMessage persists a message through the store gateway on behalf of the
// authenticated caller. Live delivery to joined peers happens over the
// websocket path only; this is the REST pass-through.
func (h *RoomHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFrom(r.Context())
	if !ok {
		httpError(w, http.StatusUnauthorized, "no token provided")
		return
	}

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Content == "" && req.FileURL == "" {
		httpError(w, http.StatusBadRequest, "message content or file required")
		return
	}
	if req.Content != "" && req.FileURL != "" {
		httpError(w, http.StatusBadRequest, "message cannot carry both text and a file")
		return
	}

	sender := claims.Name
	if sender == "" {
		sender = claims.Email
	}
	if sender == "" {
		sender = claims.Subject
	}

	msg := domain.Message{
		ID:       uuid.NewString(),
		RoomID:   r.PathValue("roomID"),
		Sender:   sender,
		Content:  req.Content,
		FileURL:  req.FileURL,
		FileName: req.FileName,
		FileSize: req.FileSize,
		Time:     time.Now().UTC(),
	}
	if err := h.Store.SaveMessage(r.Context(), msg); err != nil {
		roomsLogger.Error("send message failed", "roomId", msg.RoomID, "error", err)
		httpError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	roomsLogger.Info("message stored via rest", "roomId", msg.RoomID, "messageId", msg.ID)
	writeJSON(w, http.StatusCreated, msg)
}

// ExportAll dumps every room and message as one JSON document.
func (h *RoomHandler) ExportAll(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.Store.ListRooms(r.Context())
	if err != nil {
		roomsLogger.Error("export rooms failed", "error", err)
		httpError(w, http.StatusInternalServerError, "failed to export data")
		return
	}
	messages, err := h.Store.AllMessages(r.Context())
	if err != nil {
		roomsLogger.Error("export messages failed", "error", err)
		httpError(w, http.StatusInternalServerError, "failed to export data")
		return
	}
	if rooms == nil {
		rooms = []domain.RoomInfo{}
	}
	if messages == nil {
		messages = []domain.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"exportedAt": time.Now().UTC(),
		"rooms":      rooms,
		"messages":   messages,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		roomsLogger.Warn("response encode failed", "error", err)
	}
}

func httpError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
