package go_chatrooms

import (
    "io"
)

// CloseCode is sent to the remote endpoint when the server terminates a
// connection. The values match the WebSocket close status codes (RFC 6455,
// section 7.4.1), but any transport may map them as it sees fit.
type CloseCode uint16

const (
    // The session finished without any issue.
    CloseNormal CloseCode = 1000
    // The server is shutting down.
    CloseGoingAway CloseCode = 1001
    // The session was rejected during admission.
    ClosePolicyViolation CloseCode = 1008
    // The server couldn't keep serving the session, for example because its
    // room was deleted.
    CloseInternalError CloseCode = 1011
)

func (c CloseCode) String() string {
    switch c {
    case CloseNormal:
        return "normal closure"
    case CloseGoingAway:
        return "going away"
    case ClosePolicyViolation:
        return "policy violation"
    case CloseInternalError:
        return "internal error"
    default:
        return "unknown close code"
    }
}

// Conn is a generic interface for sending and receiving messages.
type Conn interface {
    io.Closer

    // Recv blocks until a new message was received.
    //
    // Once the connection gets closed, by either endpoint, Recv must return
    // an error (preferably `ConnEOF`).
    Recv() (string, error)

    // SendStr send `msg`, previously formatted by the caller.
    SendStr(msg string) error

    // CloseWithCode close the connection, reporting `code` and `reason` to
    // the remote endpoint.
    //
    // Closing an already closed connection must be a no-op.
    CloseWithCode(code CloseCode, reason string) error
}
