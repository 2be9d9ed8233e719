package storage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Iris/internal/domain"
)

// Integration test against a real Postgres instance. Skipped unless
// CHAT_DB_CONN is set.
func TestStorage_RoundTrip(t *testing.T) {
	godotenv.Load("../../.env")
	connStr := os.Getenv("CHAT_DB_CONN")
	if connStr == "" {
		t.Skip("CHAT_DB_CONN not set")
	}

	store, err := NewStorage(connStr)
	require.NoError(t, err)
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, store.EnsureSchema(ctx))

	roomID := "room-" + uuid.NewString()
	require.NoError(t, store.CreateRoom(ctx, roomID, "Integration Room"))
	assert.ErrorIs(t, store.CreateRoom(ctx, roomID, "Integration Room"), domain.ErrRoomExists)

	info, err := store.RoomInfo(ctx, roomID)
	require.NoError(t, err)
	assert.Equal(t, "Integration Room", info.Name)

	_, err = store.RoomInfo(ctx, "missing-"+uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)

	first := domain.Message{
		ID:      uuid.NewString(),
		RoomID:  roomID,
		Sender:  "alice",
		Content: "first",
		Time:    time.Now().UTC().Add(-time.Minute),
	}
	second := domain.Message{
		ID:       uuid.NewString(),
		RoomID:   roomID,
		Sender:   "bob",
		FileURL:  "https://files/report.pdf",
		FileName: "report.pdf",
		FileSize: 2048,
		Time:     time.Now().UTC(),
	}
	require.NoError(t, store.SaveMessage(ctx, first))
	require.NoError(t, store.SaveMessage(ctx, second))

	messages, err := store.RoomMessages(ctx, roomID, 50)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "first", messages[0].Content, "oldest first")
	assert.Equal(t, "report.pdf", messages[1].FileName)
	assert.Equal(t, int64(2048), messages[1].FileSize)

	limited, err := store.RoomMessages(ctx, roomID, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, second.ID, limited[0].ID, "limit keeps the most recent")

	rooms, err := store.ListRooms(ctx)
	require.NoError(t, err)
	found := false
	for _, r := range rooms {
		if r.ID == roomID {
			found = true
		}
	}
	assert.True(t, found)
}
