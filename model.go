package go_chatrooms

import (
    "github.com/google/uuid"
    "time"
)

// RoomID uniquely identifies a room for its whole lifetime. Rooms are owned
// by the storage, so the chat server only ever references them.
type RoomID = uuid.UUID

// UserID uniquely identifies a user.
type UserID int64

// MessageID identifies a chat message. It's assigned by the storage and grows
// monotonically.
type MessageID int64

// User resolved from a credential.
type User struct {
    ID UserID `json:"id"`
    Email string `json:"email"`
}

// Room is a chat channel with a single creator and any number of
// participants.
type Room struct {
    ID RoomID `json:"id"`
    Title string `json:"title"`
    CreatedAt time.Time `json:"created_at"`
    CreatorID UserID `json:"creator_id"`
}

// ChatMessage is a message persisted in a room.
//
// Messages are never physically removed. Deleting a message clears its text
// but keeps everything else.
type ChatMessage struct {
    ID MessageID `json:"id"`
    Text string `json:"text"`
    CreatedAt time.Time `json:"created_at"`
    IsDeleted bool `json:"is_deleted"`
    AuthorID UserID `json:"author_id"`
    RoomID RoomID `json:"chat_id"`
}

// SoftDelete mark the message as deleted and permanently clear its text.
//
// Calling it on an already deleted message leaves it unchanged, and the
// returned value reports whether anything changed.
func (m *ChatMessage) SoftDelete() bool {
    if m.IsDeleted && len(m.Text) == 0 {
        return false
    }

    m.Text = ""
    m.IsDeleted = true
    return true
}
