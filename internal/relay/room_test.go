package relay

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Iris/internal/domain"
)

func TestRoom_CacheEvictsOldestPastCapacity(t *testing.T) {
	r := newRoom("r1")

	for i := 0; i < cacheCapacity+1; i++ {
		r.appendCached(domain.Message{ID: fmt.Sprintf("m%d", i), RoomID: "r1", Content: "x"})
	}

	require.Len(t, r.cache, cacheCapacity)
	assert.Equal(t, "m1", r.cache[0].ID, "oldest entry evicted")
	assert.Equal(t, fmt.Sprintf("m%d", cacheCapacity), r.cache[len(r.cache)-1].ID)
}

func TestRoom_CachedMessagesReturnsCopy(t *testing.T) {
	r := newRoom("r1")
	r.appendCached(domain.Message{ID: "m1", Content: "hello"})

	out := r.cachedMessages()
	out[0].Content = "mutated"

	assert.Equal(t, "hello", r.cache[0].Content)
}

func TestRoom_MemberNamesSorted(t *testing.T) {
	r := newRoom("r1")
	for _, name := range []string{"carol", "alice", "bob"} {
		r.members[name] = &session{userID: name, name: name}
	}

	assert.Equal(t, []string{"alice", "bob", "carol"}, r.memberNames())
}
