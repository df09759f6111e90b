package go_chatrooms

// Error type for this package.
type ChatError uint

const (
    // The session did not supply any credential.
    NoCredential ChatError = iota
    // The supplied credential doesn't resolve to any user.
    InvalidCredential
    // The requested room doesn't exist.
    RoomNotFound
    // The user is neither the room's creator nor one of its participants.
    RoomNotAccessible
    // The message was empty after trimming its surrounding whitespace.
    EmptyMessage
    // The message exceeds the maximum allowed length.
    MessageTooLong
    // A collaborator couldn't find the requested resource.
    NotFound
    // A collaborator refused to create a duplicated resource.
    AlreadyExists
    // The user isn't allowed to do the requested operation.
    PermissionDenied
    // The server was closed and doesn't accept new sessions.
    ServerClosed
    // The session couldn't keep up with the messages sent to it.
    SlowConsumer
    // The connection was closed.
    ConnEOF
    // Test timed out waiting for a message.
    TestTimeout
)

func (c ChatError) Error() string {
    switch c {
    case NoCredential:
        return "No credential supplied"
    case InvalidCredential:
        return "Invalid credential"
    case RoomNotFound:
        return "Room not found"
    case RoomNotAccessible:
        return "Room not accessible to the user"
    case EmptyMessage:
        return "Message is empty"
    case MessageTooLong:
        return "Message is too long"
    case NotFound:
        return "Not found"
    case AlreadyExists:
        return "Already exists"
    case PermissionDenied:
        return "Permission denied"
    case ServerClosed:
        return "Server is closed"
    case SlowConsumer:
        return "Session's outbound queue is full"
    case ConnEOF:
        return "Connection closed"
    case TestTimeout:
        return "Test timed out"
    default:
        return "Unknown error"
    }
}

// isAdmissionError check whether `err` should reject a session before it
// joins a room.
func isAdmissionError(err error) bool {
    switch err {
    case NoCredential, InvalidCredential, RoomNotFound, RoomNotAccessible:
        return true
    default:
        return false
    }
}
