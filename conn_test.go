package go_chatrooms

import (
    "sync"
    "sync/atomic"
    "time"
)

// A simple mock connection, used to test the chat server without an actual
// HTTP connection.
//
// Although `Session` may use the `Conn` API to use this connection, tests
// must access this structure directly to simulate interactions.
//
// To simulate a message arriving from the client's remote endpoint, push a
// message into `fromClient` (or call `TestSend`):
//
//     c := newMockConn()
//     /* Setup the server and the session. */
//     c.fromClient <- "the message"
//
// On the other hand, to simulate a client receiving a message, pop a
// message from `fromServer` (or call `TestRecv`). Be sure to check that the
// channel isn't empty, to avoid causing tests to hang:
//
//     select {
//     case <-c.fromServer:
//         /* Got a message back from the server. */
//     default:
//         t.Error("Server did not respond.")
//     }
type mockConn struct {
    // fromClient simulates incoming messages (from the server's
    // perspectives) from the client's remote endpoint. Therefore, tests
    // must push directly to this channel.
    fromClient chan string

    // fromServer simulates outgoing messages (from the server's
    // perspectives) to the client's remote endpoint. Therefore, tests must
    // read directly to this channel
    fromServer chan string

    // stop signals, by getting closed, that the connection should get
    // closed.
    stop chan struct{}

    // Whether the connection is currently running.
    running uint32

    // closeCode received by the first call to `CloseWithCode`.
    closeCode CloseCode

    // lock synchronizes access to closeCode.
    lock sync.Mutex
}

// isClosed check if the connection is closed.
func (mc *mockConn) isClosed() bool {
    return atomic.LoadUint32(&mc.running) == 0
}

// Close the connection.
//
// This can safely be called multiple times without any issue.
func (mc *mockConn) Close() error {
    if atomic.CompareAndSwapUint32(&mc.running, 1, 0) {
        close(mc.stop)
    }
    return nil
}

// CloseWithCode close the connection, recording `code`.
//
// Closing an already closed connection keeps the original code.
func (mc *mockConn) CloseWithCode(code CloseCode, reason string) error {
    if atomic.CompareAndSwapUint32(&mc.running, 1, 0) {
        mc.lock.Lock()
        mc.closeCode = code
        mc.lock.Unlock()

        close(mc.stop)
        return nil
    }
    return ConnEOF
}

// getCloseCode retrieve the code with which the connection was closed, if
// any.
func (mc *mockConn) getCloseCode() CloseCode {
    mc.lock.Lock()
    defer mc.lock.Unlock()
    return mc.closeCode
}

// Recv blocks until a new message was received.
func (mc *mockConn) Recv() (string, error) {
    var msg string

    select {
    case msg = <-mc.fromClient:
        return msg, nil
    case <-mc.stop:
        return msg, ConnEOF
    }
}

// SendStr send `msg`, previously formatted by the caller.
func (mc *mockConn) SendStr(msg string) error {
    if mc.isClosed() {
        return ConnEOF
    }

    select {
    case mc.fromServer <- msg:
        return nil
    case <-mc.stop:
        return ConnEOF
    }
}

// TestSend send a message from the client to the server.
func (mc *mockConn) TestSend(msg string) error {
    select {
    case mc.fromClient <- msg:
        return nil
    case <-mc.stop:
        return ConnEOF
    }
}

// TestRecv wait for `timeout` to receive a message from the server.
func (mc *mockConn) TestRecv(timeout time.Duration) (string, error) {
    select {
    case msg := <-mc.fromServer:
        return msg, nil
    case <-time.After(timeout):
        return "", TestTimeout
    }
}

// TestWaitClose wait for `timeout` until the connection gets closed.
func (mc *mockConn) TestWaitClose(timeout time.Duration) error {
    select {
    case <-mc.stop:
        return nil
    case <-time.After(timeout):
        return TestTimeout
    }
}

// newMockConn create a dummy, mock connection that may be used in tests.
func newMockConn() *mockConn {
    return &mockConn {
        fromClient: make(chan string),
        fromServer: make(chan string, 100),
        stop: make(chan struct{}),
        running: 1,
    }
}
