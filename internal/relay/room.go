package relay

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"Iris/internal/domain"
)

const (
	// cacheCapacity bounds the per-room recent-message cache; the oldest
	// entry is evicted first. The durable store stays the source of truth.
	cacheCapacity = 100

	// hydrationLimit caps how much history is pulled from the store when a
	// room is first materialized in memory.
	hydrationLimit = 50
)

// session is one currently-joined user. A connection has at most one.
type session struct {
	userID   string
	name     string
	conn     domain.Conn
	roomID   string
	joinedAt time.Time
}

// room is an active in-memory room. All mutation of members and cache, and
// every broadcast enumeration, happens under mu, so updates for one room
// are serialized while rooms stay independent of each other.
type room struct {
	id        string
	createdAt time.Time

	mu       sync.Mutex
	name     string
	hydrated bool
	members  map[string]*session
	cache    []domain.Message
}

func newRoom(id string) *room {
	return &room{
		id:        id,
		name:      id,
		createdAt: time.Now(),
		members:   make(map[string]*session),
	}
}

// appendCached must be called with r.mu held.
func (r *room) appendCached(msg domain.Message) {
	r.cache = append(r.cache, msg)
	if len(r.cache) > cacheCapacity {
		copy(r.cache, r.cache[1:])
		r.cache = r.cache[:cacheCapacity]
	}
}

// cachedMessages must be called with r.mu held.
func (r *room) cachedMessages() []domain.Message {
	out := make([]domain.Message, len(r.cache))
	copy(out, r.cache)
	return out
}

// memberNames must be called with r.mu held. Sorted for stable output.
func (r *room) memberNames() []string {
	names := make([]string, 0, len(r.members))
	for _, sess := range r.members {
		names = append(names, sess.name)
	}
	sort.Strings(names)
	return names
}

// broadcast sends data to every member except the user id in skip. A send
// failure is logged and the rest of the fan-out continues. Must be called
// with r.mu held.
func (r *room) broadcast(data []byte, skip string) {
	for userID, sess := range r.members {
		if userID == skip {
			continue
		}
		if err := sess.conn.Send(data); err != nil {
			relayLogger.Warn("send to member failed",
				"room", r.id, "user", userID, "error", err)
		}
	}
}

var relayLogger = slog.With("component", "relay")
