/*
Package go_chatrooms implements the live core of a multi-room chat server:
tracking which authenticated sessions are listening to each room, fanning
out newly created messages to exactly those sessions and tearing rooms down.

The core is divided into a few components:

 - `Registry`: Which sessions are currently registered on each room
 - `Session`: A single live connection of a user to a room
 - `Pipeline`: Validates and persists messages received from a session
 - `Broadcaster`: Delivers an event to every session on a room
 - `Lifecycle`: Forcibly disconnects every session on a room

Everything is tied together by the `ChatServer`, which should be the only
entry point needed by most applications.

The `ChatServer` doesn't store anything by itself. Users, rooms and messages
are owned by the application, which must implement both `Directory` and
`MessageStore`:

    conf := go_chatrooms.GetDefaultServerConf()
    // Modify 'conf' as desired
    server := go_chatrooms.NewServerConf(conf, directory, messages)

To connect a remote client to a room, the application must supply the
client's credential (e.g., a token received in the query string), the room
and something that implements the `Conn` interface. `gorilla-ws-conn` and
`gobwas-ws-conn` implement `Conn` over WebSocket connections. The session is
started by calling either `Connect`, which spawns a goroutine to wait for
messages from the client, or `ConnectAndWait`, which blocks until the `Conn`
gets closed:

    err := server.ConnectAndWait(ctx, token, roomID, conn)
    if err != nil {
        // The session was rejected and 'conn' is already closed
    }

From this point onward, `Conn.Recv` blocks waiting for a message. Each message
is trimmed and validated. Valid messages are persisted and broadcast to
every session on the room, including the sender's, as a `new_message`
event:

    new_message:{"id":1,"text":"hello","created_at":"...","is_deleted":false,"author_id":1,"chat_id":"..."}

Rejected messages are reported exclusively to the sender, as a
`validation_error` event, and the session keeps running.

When a room is deleted, the application must call `ForceDisconnect` so every
session on that room gets closed with `CloseInternalError`.
*/
package go_chatrooms
