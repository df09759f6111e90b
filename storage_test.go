package go_chatrooms

import (
    "context"
    "sync"
    "time"
)

// memStore implements both `Directory` and `MessageStore` in memory.
type memStore struct {
    // tokens maps each credential to its user.
    tokens map[string]User

    // rooms maps each room to the users allowed to listen to it.
    rooms map[RoomID]map[UserID]bool

    // messages persisted so far, indexed by their ID minus one.
    messages []ChatMessage

    // failCreate, if set, is returned by `CreateMessage`.
    failCreate error

    // lock synchronizes every field.
    lock sync.Mutex
}

func newMemStore() *memStore {
    return &memStore {
        tokens: make(map[string]User),
        rooms: make(map[RoomID]map[UserID]bool),
    }
}

// addUser register a user with the given credential.
func (m *memStore) addUser(credential string, id UserID) User {
    m.lock.Lock()
    defer m.lock.Unlock()

    u := User {
        ID: id,
        Email: credential + "@example.com",
    }
    m.tokens[credential] = u
    return u
}

// addRoom register a room that may be accessed by `users`.
func (m *memStore) addRoom(room RoomID, users ...UserID) {
    m.lock.Lock()
    defer m.lock.Unlock()

    allowed := make(map[UserID]bool)
    for _, u := range users {
        allowed[u] = true
    }
    m.rooms[room] = allowed
}

// deleteRoom remove the room from the store.
func (m *memStore) deleteRoom(room RoomID) {
    m.lock.Lock()
    defer m.lock.Unlock()

    delete(m.rooms, room)
}

// setFailure make `CreateMessage` fail with `err`.
func (m *memStore) setFailure(err error) {
    m.lock.Lock()
    defer m.lock.Unlock()

    m.failCreate = err
}

// getMessage retrieve a copy of a persisted message.
func (m *memStore) getMessage(id MessageID) (ChatMessage, bool) {
    m.lock.Lock()
    defer m.lock.Unlock()

    if id <= 0 || int(id) > len(m.messages) {
        return ChatMessage{}, false
    }
    return m.messages[id-1], true
}

// count the number of persisted messages.
func (m *memStore) count() int {
    m.lock.Lock()
    defer m.lock.Unlock()

    return len(m.messages)
}

func (m *memStore) ResolveUser(_ context.Context, credential string) (User, error) {
    m.lock.Lock()
    defer m.lock.Unlock()

    u, ok := m.tokens[credential]
    if !ok {
        return User{}, NotFound
    }
    return u, nil
}

func (m *memStore) IsRoomAccessibleTo(_ context.Context, room RoomID, user UserID) (bool, error) {
    m.lock.Lock()
    defer m.lock.Unlock()

    allowed, ok := m.rooms[room]
    if !ok {
        return false, NotFound
    }
    return allowed[user], nil
}

func (m *memStore) CreateMessage(_ context.Context, room RoomID, author UserID, text string) (ChatMessage, error) {
    m.lock.Lock()
    defer m.lock.Unlock()

    if m.failCreate != nil {
        return ChatMessage{}, m.failCreate
    }

    msg := ChatMessage {
        ID: MessageID(len(m.messages) + 1),
        Text: text,
        CreatedAt: time.Now().UTC(),
        AuthorID: author,
        RoomID: room,
    }
    m.messages = append(m.messages, msg)
    return msg, nil
}

func (m *memStore) SoftDeleteMessage(_ context.Context, id MessageID) error {
    m.lock.Lock()
    defer m.lock.Unlock()

    if id <= 0 || int(id) > len(m.messages) {
        return NotFound
    }
    m.messages[id-1].SoftDelete()
    return nil
}
