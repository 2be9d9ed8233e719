package relay

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"Iris/internal/domain"
	"Iris/internal/protocol"
)

const maxContentLength = 1000

// Engine is the room relay: it owns the session table and the room
// directory and implements the join/leave/message/typing handlers.
//
// Locking discipline: mu guards the two maps; each room's own mutex guards
// its members and cache. mu is never acquired while a room mutex is held.
// Store calls are bounded by storeTimeout and happen under the room mutex
// only, so one slow room never stalls another.
type Engine struct {
	store        domain.Store
	storeTimeout time.Duration

	mu       sync.RWMutex
	rooms    map[string]*room
	sessions map[string]*session // keyed by connection id
}

func NewEngine(store domain.Store, storeTimeout time.Duration) *Engine {
	if storeTimeout <= 0 {
		storeTimeout = 3 * time.Second
	}
	return &Engine{
		store:        store,
		storeTimeout: storeTimeout,
		rooms:        make(map[string]*room),
		sessions:     make(map[string]*session),
	}
}

// Join binds the connection to a room, leaving its current room first if it
// has one. The joiner gets a room snapshot; every member gets the updated
// user list. An internal failure leaves the connection unbound.
func (e *Engine) Join(conn domain.Conn, roomID string, user domain.User) error {
	if user.ID == "" {
		user.ID = user.Name
	}
	if user.Name == "" {
		user.Name = user.ID
	}
	if user.ID == "" {
		return domain.ErrMissingUser
	}

	sess := &session{
		userID:   user.ID,
		name:     user.Name,
		conn:     conn,
		roomID:   roomID,
		joinedAt: time.Now(),
	}

	e.mu.Lock()
	if prev, ok := e.sessions[conn.ID()]; ok {
		e.removeSession(prev)
	}
	r, ok := e.rooms[roomID]
	if !ok {
		r = newRoom(roomID)
		e.rooms[roomID] = r
	}
	// A user id holds at most one session; a newer connection joining with
	// the same identity displaces the older one through the leave path.
	r.mu.Lock()
	old := r.members[user.ID]
	r.mu.Unlock()
	if old != nil {
		e.removeSession(old)
		if _, ok := e.rooms[roomID]; !ok {
			e.rooms[roomID] = r
		}
		relayLogger.Info("session displaced by rejoining identity",
			"room", roomID, "user", user.ID, "connId", old.conn.ID())
	}
	e.sessions[conn.ID()] = sess
	r.mu.Lock()
	r.members[user.ID] = sess
	r.mu.Unlock()
	e.mu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.hydrated {
		e.hydrate(r)
	}
	snapshot := protocol.RoomInfo(r.id, r.name, len(r.members), r.cachedMessages())
	if err := conn.Send(snapshot); err != nil {
		relayLogger.Warn("room snapshot send failed", "room", r.id, "connId", conn.ID(), "error", err)
	}
	r.broadcast(protocol.UserList(r.memberNames()), "")

	relayLogger.Info("user joined room", "room", r.id, "user", user.Name, "members", len(r.members))
	return nil
}

// Leave unbinds the connection from its room. No-op when already unbound.
func (e *Engine) Leave(conn domain.Conn) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	sess, ok := e.sessions[conn.ID()]
	if !ok {
		return nil
	}
	e.removeSession(sess)
	return nil
}

// Terminate is the disconnect/heartbeat-timeout path. It shares the leave
// path so membership is only ever mutated in one place, and is safe to call
// more than once for the same connection.
func (e *Engine) Terminate(conn domain.Conn) {
	if err := e.Leave(conn); err != nil {
		relayLogger.Warn("terminate failed", "connId", conn.ID(), "error", err)
	}
}

// removeSession must be called with e.mu held. It drops the session, fixes
// up room membership, notifies remaining members, and drops the room from
// the directory once empty.
func (e *Engine) removeSession(sess *session) {
	delete(e.sessions, sess.conn.ID())
	r, ok := e.rooms[sess.roomID]
	if !ok {
		return
	}
	r.mu.Lock()
	if cur, ok := r.members[sess.userID]; ok && cur == sess {
		delete(r.members, sess.userID)
	}
	empty := len(r.members) == 0
	if !empty {
		r.broadcast(protocol.UserList(r.memberNames()), "")
	}
	r.mu.Unlock()

	relayLogger.Info("user left room", "room", r.id, "user", sess.name)
	if empty {
		delete(e.rooms, sess.roomID)
		relayLogger.Info("room dropped, no members left", "room", r.id)
	}
}

// Message accepts a message for the room the connection has joined,
// persists it, and only then caches and broadcasts it. A store failure is
// reported to the sender alone; nothing is broadcast or cached, so peers
// never see a message the store did not record.
func (e *Engine) Message(conn domain.Conn, msg domain.Message) error {
	e.mu.RLock()
	sess, ok := e.sessions[conn.ID()]
	var r *room
	if ok {
		r = e.rooms[sess.roomID]
	}
	e.mu.RUnlock()

	if !ok {
		return domain.ErrNotInRoom
	}
	if msg.RoomID != sess.roomID || r == nil {
		return domain.ErrRoomMismatch
	}
	if msg.Content == "" && msg.FileURL == "" {
		return domain.ErrEmptyMessage
	}
	if msg.Content != "" && msg.FileURL != "" {
		return domain.ErrContentAndFile
	}
	if len(msg.Content) > maxContentLength {
		return domain.ErrMessageTooLong
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Time.IsZero() {
		msg.Time = time.Now().UTC()
	}
	if msg.Sender == "" {
		msg.Sender = sess.name
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// The session may have been terminated while this frame was in flight.
	if cur, ok := r.members[sess.userID]; !ok || cur != sess {
		return domain.ErrNotInRoom
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.storeTimeout)
	defer cancel()
	if err := e.store.SaveMessage(ctx, msg); err != nil {
		// The driver detail stays in the log; the sender gets a generic
		// failure.
		relayLogger.Error("message write failed", "room", r.id, "messageId", msg.ID, "error", err)
		return domain.ErrStoreFailure
	}

	r.appendCached(msg)
	r.broadcast(protocol.MessageEvent(msg), "")
	return nil
}

// Typing relays a typing indicator to everyone else in the room. Nothing is
// persisted and no ordering is guaranteed relative to messages.
func (e *Engine) Typing(conn domain.Conn, roomID, user string, isTyping bool) error {
	e.mu.RLock()
	sess, ok := e.sessions[conn.ID()]
	var r *room
	if ok {
		r = e.rooms[sess.roomID]
	}
	e.mu.RUnlock()

	if !ok {
		return domain.ErrNotInRoom
	}
	if roomID != sess.roomID || r == nil {
		return domain.ErrRoomMismatch
	}
	if user == "" {
		user = sess.name
	}

	r.mu.Lock()
	r.broadcast(protocol.TypingEvent(user, isTyping), sess.userID)
	r.mu.Unlock()
	return nil
}

// hydrate pulls the room's display name and recent history from the store.
// A store failure degrades to an empty cache; it never fails the join.
// Must be called with r.mu held.
func (e *Engine) hydrate(r *room) {
	ctx, cancel := context.WithTimeout(context.Background(), e.storeTimeout)
	defer cancel()

	info, err := e.store.RoomInfo(ctx, r.id)
	switch {
	case err == nil && info.Name != "":
		r.name = info.Name
	case err != nil && !errors.Is(err, domain.ErrRoomNotFound):
		relayLogger.Warn("room info lookup failed", "room", r.id, "error", err)
	}

	msgs, err := e.store.RoomMessages(ctx, r.id, hydrationLimit)
	if err != nil {
		relayLogger.Warn("room hydration failed, starting with empty history", "room", r.id, "error", err)
	} else {
		for _, msg := range msgs {
			r.appendCached(msg)
		}
	}
	r.hydrated = true
}

// Stats reports the number of active rooms and sessions.
func (e *Engine) Stats() (rooms, sessions int) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.rooms), len(e.sessions)
}
