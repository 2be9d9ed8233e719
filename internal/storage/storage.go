package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"Iris/internal/domain"
)

// Storage is the Postgres-backed durable store gateway.
type Storage struct {
	db *sql.DB
}

func NewStorage(connStr string) (*Storage, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

// EnsureSchema creates the rooms and messages tables if they are missing.
func (s *Storage) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS rooms (
			id   TEXT PRIMARY KEY,
			name TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS messages (
			id        TEXT PRIMARY KEY,
			room_id   TEXT NOT NULL,
			sender    TEXT NOT NULL,
			content   TEXT,
			file_url  TEXT,
			file_name TEXT,
			file_size BIGINT,
			time      TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS messages_room_time ON messages (room_id, time);
	`)
	if err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

func (s *Storage) SaveMessage(ctx context.Context, msg domain.Message) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, room_id, sender, content, file_url, file_name, file_size, time)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		msg.ID, msg.RoomID, msg.Sender,
		nullString(msg.Content), nullString(msg.FileURL), nullString(msg.FileName),
		nullInt(msg.FileSize), msg.Time,
	)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// RoomMessages returns the most recent messages of a room in chronological
// order, oldest first.
func (s *Storage) RoomMessages(ctx context.Context, roomID string, limit int) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, sender, COALESCE(content, ''), COALESCE(file_url, ''),
		        COALESCE(file_name, ''), COALESCE(file_size, 0), time
		 FROM messages WHERE room_id = $1 ORDER BY time DESC LIMIT $2`,
		roomID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("room messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Sender, &m.Content,
			&m.FileURL, &m.FileName, &m.FileSize, &m.Time); err != nil {
			return nil, fmt.Errorf("room messages: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("room messages: %w", err)
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (s *Storage) RoomInfo(ctx context.Context, roomID string) (domain.RoomInfo, error) {
	var info domain.RoomInfo
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name FROM rooms WHERE id = $1", roomID,
	).Scan(&info.ID, &info.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.RoomInfo{}, domain.ErrRoomNotFound
	}
	if err != nil {
		return domain.RoomInfo{}, fmt.Errorf("room info: %w", err)
	}
	return info, nil
}

func (s *Storage) CreateRoom(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO rooms (id, name) VALUES ($1, $2)", id, name,
	)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return domain.ErrRoomExists
	}
	if err != nil {
		return fmt.Errorf("create room: %w", err)
	}
	return nil
}

func (s *Storage) ListRooms(ctx context.Context) ([]domain.RoomInfo, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, name FROM rooms ORDER BY id DESC")
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var rooms []domain.RoomInfo
	for rows.Next() {
		var info domain.RoomInfo
		if err := rows.Scan(&info.ID, &info.Name); err != nil {
			return nil, fmt.Errorf("list rooms: %w", err)
		}
		rooms = append(rooms, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// AllMessages returns every persisted message, oldest first. Used by the
// export pass-through.
func (s *Storage) AllMessages(ctx context.Context) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, room_id, sender, COALESCE(content, ''), COALESCE(file_url, ''),
		        COALESCE(file_name, ''), COALESCE(file_size, 0), time
		 FROM messages ORDER BY time ASC`)
	if err != nil {
		return nil, fmt.Errorf("all messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.Sender, &m.Content,
			&m.FileURL, &m.FileName, &m.FileSize, &m.Time); err != nil {
			return nil, fmt.Errorf("all messages: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("all messages: %w", err)
	}
	return messages, nil
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
