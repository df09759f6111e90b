package go_chatrooms

import (
    "context"
    "errors"
    "fmt"
    "io"
    "sync/atomic"
)

// The chat server.
type server struct {
    // conf used by every component of the server.
    conf ServerConf

    // directory resolves users and their access to rooms.
    directory Directory

    // pipeline validates and persists received messages.
    pipeline *Pipeline

    // registry of every session listening to a room.
    registry *Registry

    // broadcaster delivers events to the registered sessions.
    broadcaster *Broadcaster

    // lifecycle disconnects sessions from rooms.
    lifecycle *Lifecycle

    // Whether the chat server is currently running.
    running uint32
}

// The public interface of the chat server.
type ChatServer interface {
    io.Closer

    // Connect admit a new session on `room`, authenticated by `credential`,
    // and spawn a goroutine to handle the messages received over `conn`.
    //
    // If the session is rejected, `conn` is closed (with
    // `ClosePolicyViolation` if the credential or the room were refused)
    // and the reason is returned.
    Connect(ctx context.Context, credential string, room RoomID, conn Conn) error

    // ConnectAndWait admit a new session on `room`, authenticated by
    // `credential`, and handle the messages received over `conn` in the
    // calling goroutine, until the connection gets closed.
    //
    // If the session is rejected, `conn` is closed (with
    // `ClosePolicyViolation` if the credential or the room were refused)
    // and the reason is returned. Otherwise, this returns nil once the
    // session was removed from its room.
    //
    // This may be advantageous if the external server already spawns a new
    // goroutine to handle each new connection.
    ConnectAndWait(ctx context.Context, credential string, room RoomID, conn Conn) error

    // Publish deliver an already framed `event` to every session on `room`
    // and wait until every delivery was attempted.
    Publish(room RoomID, event string)

    // ForceDisconnect close every session on `room` with `code`, returning
    // how many sessions were closed.
    //
    // The room deletion flow must call this alongside deleting the room.
    ForceDisconnect(room RoomID, code CloseCode) int

    // Members describe every session currently on `room`.
    Members(room RoomID) []SessionInfo

    // GetConf retrieve the server's configuration.
    GetConf() ServerConf
}

// isRunning check if the server still accepts new sessions.
func (s *server) isRunning() bool {
    return atomic.LoadUint32(&s.running) == 1
}

// Close the server, disconnecting every session from every room.
func (s *server) Close() error {
    if atomic.CompareAndSwapUint32(&s.running, 1, 0) {
        count := s.lifecycle.ForceDisconnectAll(CloseGoingAway)
        s.conf.infof("go_chatrooms/server: Server closed.\n\tsessions: %d", count)
    }

    return nil
}

// GetConf retrieve the server's configuration.
func (s *server) GetConf() ServerConf {
    return s.conf
}

// Publish deliver `event` to every session on `room`.
func (s *server) Publish(room RoomID, event string) {
    s.broadcaster.Publish(room, event)
}

// ForceDisconnect close every session on `room` with `code`.
func (s *server) ForceDisconnect(room RoomID, code CloseCode) int {
    return s.lifecycle.ForceDisconnect(room, code)
}

// Members describe every session currently on `room`.
func (s *server) Members(room RoomID) []SessionInfo {
    sessions := s.registry.MembersOf(room)

    list := make([]SessionInfo, 0, len(sessions))
    for _, sess := range sessions {
        list = append(list, sess.Info())
    }

    return list
}

// admit move `sess` from connecting to joined, resolving its user and
// checking whether it may listen to its room.
func (s *server) admit(ctx context.Context, credential string, sess *Session) error {
    if !s.isRunning() {
        return ServerClosed
    } else if len(credential) == 0 {
        return NoCredential
    }

    user, err := s.directory.ResolveUser(ctx, credential)
    if errors.Is(err, NotFound) {
        return InvalidCredential
    } else if err != nil {
        return fmt.Errorf("couldn't resolve the credential: %w", err)
    }
    sess.authenticate(user)

    ok, err := s.directory.IsRoomAccessibleTo(ctx, sess.room, user.ID)
    if errors.Is(err, NotFound) {
        return RoomNotFound
    } else if err != nil {
        return fmt.Errorf("couldn't check the access to the room: %w", err)
    } else if !ok {
        return RoomNotAccessible
    }

    sess.join(s.registry)

    // The server may have been closed while this session was joining.
    if !s.isRunning() {
        return ServerClosed
    }

    s.conf.debugf("go_chatrooms/server: Session joined.\n\tsession: \"%s\"\n\troom: \"%s\"\n\tuser: \"%d\"",
            sess.ID(), sess.room, user.ID)
    return nil
}

// reject close the connection of a session that failed admission.
func (s *server) reject(sess *Session, err error) {
    code := CloseInternalError
    if isAdmissionError(err) {
        code = ClosePolicyViolation
        s.conf.debugf("go_chatrooms/server: Session rejected.\n\tsession: \"%s\"\n\troom: \"%s\"\n\treason: %+v",
                sess.ID(), sess.room, err)
    } else if err == ServerClosed {
        code = CloseGoingAway
    } else {
        s.conf.errorf("go_chatrooms/server: Couldn't admit the session.\n\tsession: \"%s\"\n\troom: \"%s\"\n\terror: %+v",
                sess.ID(), sess.room, err)
    }

    sess.closeWith(code, err.Error())
    sess.finish()
}

// start create and admit a new session. If admission fails, the session is
// closed and the error returned.
func (s *server) start(ctx context.Context, credential string, room RoomID,
        conn Conn) (*Session, error) {

    if conn == nil {
        panic("go_chatrooms/server: nil conn")
    }

    sess := newSession(s, room, conn, s.conf.SendQueueSize)
    if err := s.admit(ctx, credential, sess); err != nil {
        s.reject(sess, err)
        return nil, err
    }

    return sess, nil
}

// Connect admit a new session and handle it on a new goroutine.
//
// See `ChatServer.Connect` for a more complete description.
//
// If `conn` is nil, then this function will panic!
func (s *server) Connect(ctx context.Context, credential string, room RoomID,
        conn Conn) error {

    sess, err := s.start(ctx, credential, room, conn)
    if err != nil {
        return err
    }

    go sess.run(ctx)
    return nil
}

// ConnectAndWait admit a new session and handle it on the calling
// goroutine.
//
// See `ChatServer.ConnectAndWait` for a more complete description.
//
// If `conn` is nil, then this function will panic!
func (s *server) ConnectAndWait(ctx context.Context, credential string,
        room RoomID, conn Conn) error {

    sess, err := s.start(ctx, credential, room, conn)
    if err != nil {
        return err
    }

    sess.run(ctx)
    return nil
}

// handleMessage process a message received by `sess`, returning whether the
// session should keep running.
//
// Valid messages are persisted and broadcast to the whole room. Rejected
// messages are reported exclusively to the sender.
func (s *server) handleMessage(ctx context.Context, sess *Session, text string) bool {
    msg, err := s.pipeline.Submit(ctx, sess.room, sess.user.ID, text)

    var verr *ValidationError
    if errors.As(err, &verr) {
        s.conf.debugf("go_chatrooms/server: Message rejected.\n\tsession: \"%s\"\n\troom: \"%s\"\n\treason: %+v",
                sess.ID(), sess.room, verr)
        s.broadcaster.SendTo(sess, EncodeValidationError(verr))
        return true
    } else if err != nil {
        s.conf.errorf("go_chatrooms/server: Couldn't store the message.\n\tsession: \"%s\"\n\troom: \"%s\"\n\terror: %+v",
                sess.ID(), sess.room, err)
        sess.closeWith(CloseInternalError, "couldn't store the message")
        return false
    }

    event, err := EncodeNewMessage(msg)
    if err != nil {
        s.conf.errorf("go_chatrooms/server: Couldn't encode the message.\n\tsession: \"%s\"\n\troom: \"%s\"\n\terror: %+v",
                sess.ID(), sess.room, err)
        return true
    }

    s.broadcaster.Publish(sess.room, event)
    return true
}

// NewServerConf create a new chat server customized by `conf`, resolving
// users through `directory` and persisting messages into `messages`.
func NewServerConf(conf ServerConf, directory Directory,
        messages MessageStore) ChatServer {

    s := &server {
        conf: conf.sanitize(),
        directory: directory,
        registry: NewRegistry(),
        running: 1,
    }
    s.pipeline = NewPipeline(messages, s.conf.MaxMessageLength)
    s.broadcaster = NewBroadcaster(s.registry, &s.conf)
    s.lifecycle = NewLifecycle(s.registry, &s.conf)

    return s
}

// NewServer create a new chat server with the default configuration.
func NewServer(directory Directory, messages MessageStore) ChatServer {
    return NewServerConf(GetDefaultServerConf(), directory, messages)
}
