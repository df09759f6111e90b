package go_chatrooms

import (
    "context"
)

// Directory resolves who is connecting and whether they may listen to a
// room. It's implemented by the application's storage.
type Directory interface {
    // ResolveUser retrieve the user associated with `credential`.
    //
    // If no user is associated with the credential, `NotFound` (or an error
    // wrapping it) must be returned.
    ResolveUser(ctx context.Context, credential string) (User, error)

    // IsRoomAccessibleTo check whether `user` is either the creator or a
    // participant of `room`.
    //
    // If the room doesn't exist, `NotFound` (or an error wrapping it) must be
    // returned.
    IsRoomAccessibleTo(ctx context.Context, room RoomID, user UserID) (bool, error)
}

// MessageStore persists chat messages.
type MessageStore interface {
    // CreateMessage persist a new message, returning it with its identity
    // and creation timestamp filled.
    CreateMessage(ctx context.Context, room RoomID, author UserID, text string) (ChatMessage, error)

    // SoftDeleteMessage clear the message's text and mark it as deleted.
    //
    // Deleting an already deleted message must not fail.
    SoftDeleteMessage(ctx context.Context, message MessageID) error
}
