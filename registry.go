package go_chatrooms

import (
    "sync"
)

// sessionSet is the set of sessions a user has opened on a room.
type sessionSet map[*Session]struct{}

// Registry tracks which sessions are currently listening to each room.
//
// Sessions are grouped by user, since a user may be connected to the same
// room more than once (e.g., from different browser tabs). Empty groups are
// never kept: as soon as the last session of a user (or of a room) leaves,
// its entry is removed.
//
// Every method is safe to be called concurrently.
type Registry struct {
    // rooms maps each room to its users and to their sessions.
    rooms map[RoomID]map[UserID]sessionSet

    // lock synchronizes access to rooms.
    lock sync.RWMutex
}

// NewRegistry create an empty Registry.
func NewRegistry() *Registry {
    return &Registry {
        rooms: make(map[RoomID]map[UserID]sessionSet),
    }
}

// Join register `s` as one of the sessions of `user` on `room`.
//
// Joining the same session twice is harmless, as sessions are kept in a set.
func (r *Registry) Join(room RoomID, user UserID, s *Session) {
    r.lock.Lock()
    defer r.lock.Unlock()

    users, ok := r.rooms[room]
    if !ok {
        users = make(map[UserID]sessionSet)
        r.rooms[room] = users
    }

    set, ok := users[user]
    if !ok {
        set = make(sessionSet)
        users[user] = set
    }

    set[s] = struct{}{}
}

// Leave remove `s` from the sessions of `user` on `room`, pruning the user
// and the room if they become empty.
//
// Leaving with a session that isn't registered (for example, because the
// room was cleared) is a no-op.
func (r *Registry) Leave(room RoomID, user UserID, s *Session) {
    r.lock.Lock()
    defer r.lock.Unlock()

    users, ok := r.rooms[room]
    if !ok {
        return
    }
    set, ok := users[user]
    if !ok {
        return
    }

    delete(set, s)
    if len(set) == 0 {
        delete(users, user)
    }
    if len(users) == 0 {
        delete(r.rooms, room)
    }
}

// MembersOf retrieve a snapshot of every session currently registered on
// `room`. The returned slice is owned by the caller.
func (r *Registry) MembersOf(room RoomID) []*Session {
    r.lock.RLock()
    defer r.lock.RUnlock()

    return collectSessions(r.rooms[room])
}

// Clear atomically remove and return every session registered on `room`.
//
// Once this returns, `MembersOf(room)` is empty until a new session joins.
func (r *Registry) Clear(room RoomID) []*Session {
    r.lock.Lock()
    defer r.lock.Unlock()

    list := collectSessions(r.rooms[room])
    delete(r.rooms, room)

    return list
}

// Rooms retrieve every room with at least one registered session.
func (r *Registry) Rooms() []RoomID {
    r.lock.RLock()
    defer r.lock.RUnlock()

    list := make([]RoomID, 0, len(r.rooms))
    for room := range r.rooms {
        list = append(list, room)
    }

    return list
}

// Len retrieve the number of rooms with at least one registered session.
func (r *Registry) Len() int {
    r.lock.RLock()
    defer r.lock.RUnlock()

    return len(r.rooms)
}

// collectSessions flatten every session in `users` into a new slice.
func collectSessions(users map[UserID]sessionSet) []*Session {
    var count int
    for _, set := range users {
        count += len(set)
    }

    list := make([]*Session, 0, count)
    for _, set := range users {
        for s := range set {
            list = append(list, s)
        }
    }

    return list
}
