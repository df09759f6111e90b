package go_chatrooms

import (
    "context"
    "github.com/oklog/ulid/v2"
    "sync"
    "sync/atomic"
    "time"
)

// SessionState is the stage in which a session currently is.
type SessionState uint32

const (
    // The transport was accepted, but the user wasn't resolved yet.
    StateConnecting SessionState = iota
    // The user was resolved, but its access to the room wasn't checked yet.
    StateAuthenticated
    // The session is registered on the room, sending and receiving events.
    StateJoined
    // The session finished. This is terminal.
    StateClosed
)

func (s SessionState) String() string {
    switch s {
    case StateConnecting:
        return "connecting"
    case StateAuthenticated:
        return "authenticated"
    case StateJoined:
        return "joined"
    case StateClosed:
        return "closed"
    default:
        return "unknown"
    }
}

// SessionInfo describes a session without exposing its connection.
type SessionInfo struct {
    ID string `json:"id"`
    User UserID `json:"user_id"`
    State SessionState `json:"state"`
    JoinedAt time.Time `json:"joined_at"`
}

// outbound is an event waiting to be written to a session.
type outbound struct {
    // msg is the framed event.
    msg string

    // done, if set, is called once the write was attempted.
    done func(error)
}

// finish report the result of the write, if anyone is waiting for it.
func (o *outbound) finish(err error) {
    if o.done != nil {
        o.done(err)
    }
}

// Session is a single live connection of a user to a room.
//
// Events sent to a session are queued and written, in order, by a dedicated
// goroutine. Messages received from the remote client are handled, one at a
// time, by the goroutine running the session.
type Session struct {
    // id uniquely identifies this session on the logs.
    id ulid.ULID

    // room to which this session is bound.
    room RoomID

    // user that opened the session. Only valid after authentication.
    user User

    // conn is the connection to the remote endpoint.
    conn Conn

    // srv handles every message received by this session.
    srv *server

    // state of the session, accessed atomically.
    state uint32

    // joinedAt is when the session was registered on the room.
    joinedAt time.Time

    // out queues events to be written by the writer goroutine.
    out chan outbound

    // lock synchronizes `closed` with enqueueing into `out`.
    lock sync.Mutex

    // closed is set once the writer was told to stop. Nothing may be
    // queued afterwards.
    closed bool

    // stop signals, by getting closed, that the writer should stop.
    stop chan struct{}

    // writing is set once the writer goroutine was started.
    writing bool

    // writerDone gets closed when the writer goroutine exits.
    writerDone chan struct{}

    // finishOnce guarantees that the session is torn down exactly once.
    finishOnce sync.Once
}

// newSession create a new session for `room` over `conn`.
func newSession(srv *server, room RoomID, conn Conn, queueSize int) *Session {
    return &Session {
        id: ulid.Make(),
        room: room,
        conn: conn,
        srv: srv,
        state: uint32(StateConnecting),
        out: make(chan outbound, queueSize),
        stop: make(chan struct{}),
        writerDone: make(chan struct{}),
    }
}

// ID retrieve the session's unique identifier.
func (s *Session) ID() string {
    return s.id.String()
}

// Room retrieve the room to which this session is bound.
func (s *Session) Room() RoomID {
    return s.room
}

// User retrieve the user that opened this session.
func (s *Session) User() User {
    return s.user
}

// State retrieve the session's current state.
func (s *Session) State() SessionState {
    return SessionState(atomic.LoadUint32(&s.state))
}

// Info describe the session.
func (s *Session) Info() SessionInfo {
    return SessionInfo {
        ID: s.ID(),
        User: s.user.ID,
        State: s.State(),
        JoinedAt: s.joinedAt,
    }
}

func (s *Session) setState(state SessionState) {
    atomic.StoreUint32(&s.state, uint32(state))
}

// authenticate bind the session to `user`.
func (s *Session) authenticate(user User) {
    s.user = user
    s.setState(StateAuthenticated)
}

// join register the session on its room and start writing events to it.
func (s *Session) join(registry *Registry) {
    s.joinedAt = time.Now()
    s.writing = true
    go s.writeLoop()

    registry.Join(s.room, s.user.ID, s)
    s.setState(StateJoined)
}

// enqueue queue `item` to be written to the session.
//
// If the session is closing, `ConnEOF` is returned. If the queue is full,
// `SlowConsumer` is returned. In either case, `item.done` isn't called.
func (s *Session) enqueue(item outbound) error {
    s.lock.Lock()
    defer s.lock.Unlock()

    if s.closed {
        return ConnEOF
    }

    select {
    case s.out <- item:
        return nil
    default:
        return SlowConsumer
    }
}

// writeLoop write every queued event, in order, until the session stops.
func (s *Session) writeLoop() {
    defer close(s.writerDone)

    for {
        select {
        case item := <-s.out:
            s.write(item)
        case <-s.stop:
            // Since `closed` was set before `stop` got closed, nothing
            // else may be queued.
            for {
                select {
                case item := <-s.out:
                    item.finish(ConnEOF)
                default:
                    return
                }
            }
        }
    }
}

// write send a single event to the remote endpoint.
//
// If it fails, the connection is closed so the receiving goroutine notices
// it and terminates the session.
func (s *Session) write(item outbound) {
    err := s.conn.SendStr(item.msg)
    item.finish(err)

    if err != nil {
        if err != ConnEOF {
            s.srv.conf.errorf("go_chatrooms/session: Couldn't send an event to the session.\n\tsession: \"%s\"\n\troom: \"%s\"\n\terror: %+v",
                    s.ID(), s.room, err)
        }
        s.conn.Close()
    }
}

// closeWith close the session's connection, reporting `code` to the remote
// endpoint. The session is torn down once its receiving goroutine notices
// the closed connection.
func (s *Session) closeWith(code CloseCode, reason string) error {
    return s.conn.CloseWithCode(code, reason)
}

// run handle messages received by the session until its connection gets
// closed, then tear the session down.
//
// If `ctx` is cancelled while the session is running, the connection is
// closed as if the server was going away.
func (s *Session) run(ctx context.Context) {
    defer s.finish()

    if ctx.Done() != nil {
        go func() {
            select {
            case <-ctx.Done():
                s.closeWith(CloseGoingAway, "context cancelled")
            case <-s.stop:
            }
        } ()
    }

    for {
        text, err := s.conn.Recv()
        if err != nil {
            return
        }

        if !s.srv.handleMessage(ctx, s, text) {
            return
        }
    }
}

// finish remove the session from the registry, stop its writer and close
// its connection. Only the first call does anything.
func (s *Session) finish() {
    s.finishOnce.Do(func() {
        s.srv.registry.Leave(s.room, s.user.ID, s)

        s.lock.Lock()
        s.closed = true
        close(s.stop)
        s.lock.Unlock()

        s.conn.Close()
        if s.writing {
            <-s.writerDone
        }

        s.setState(StateClosed)
        s.srv.conf.debugf("go_chatrooms/session: Session closed.\n\tsession: \"%s\"\n\troom: \"%s\"\n\tuser: \"%d\"",
                s.ID(), s.room, s.user.ID)
    })
}
