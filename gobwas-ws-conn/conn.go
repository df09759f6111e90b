// Package gobwas_ws_conn implements the Conn interface from
// https://github.com/SirGFM/go-chatrooms over a WebSocket connection
// from https://github.com/gobwas/ws.
//
// Differently from gorilla/ws, gobwas/ws works directly over the hijacked
// `net.Conn`, so idle connections are detected with read deadlines.
package gobwas_ws_conn

import (
    chatrooms "github.com/SirGFM/go-chatrooms"
    "github.com/gobwas/ws"
    "github.com/gobwas/ws/wsutil"
    "log"
    "net"
    "net/http"
    "sync"
    "sync/atomic"
    "time"
)

// module is the string used when logging messages from this package.
const module = "go-chatrooms/gobwas-ws-conn"

// writeWait is how long a single write may block before the remote endpoint
// is considered dead.
const writeWait = 10 * time.Second

// gbwConn wrap a hijacked connection into a chatrooms.Conn.
type gbwConn struct {
    // The upgraded connection.
    conn net.Conn

    // How long the connection may stay without receiving anything. If
    // zero, it never times out.
    timeout time.Duration

    // sendMutex synchronizes write operations on `conn`.
    sendMutex sync.Mutex

    // Whether the connection is currently active.
    active uint32
}

// isActive check if the connection is still active.
func (c *gbwConn) isActive() bool {
    return atomic.LoadUint32(&c.active) == 1
}

// Close the connection without notifying the remote endpoint.
func (c *gbwConn) Close() error {
    if atomic.CompareAndSwapUint32(&c.active, 1, 0) {
        return c.conn.Close()
    }

    return nil
}

// CloseWithCode send a close frame with `code` and `reason` and then close
// the connection.
func (c *gbwConn) CloseWithCode(code chatrooms.CloseCode, reason string) error {
    if !atomic.CompareAndSwapUint32(&c.active, 1, 0) {
        return chatrooms.ConnEOF
    }

    body := ws.NewCloseFrameBody(ws.StatusCode(code), reason)

    c.sendMutex.Lock()
    c.conn.SetWriteDeadline(time.Now().Add(writeWait))
    err := wsutil.WriteServerMessage(c.conn, ws.OpClose, body)
    c.sendMutex.Unlock()

    c.conn.Close()
    return err
}

// Recv blocks until a new text message was received.
//
// Control frames are handled while waiting: pings are answered and a close
// frame terminates the connection.
func (c *gbwConn) Recv() (string, error) {
    var buf [1]wsutil.Message

    for c.isActive() {
        if c.timeout > 0 {
            c.conn.SetReadDeadline(time.Now().Add(c.timeout))
        }

        msgs, err := wsutil.ReadClientMessage(c.conn, buf[:0])
        if err != nil {
            if c.isActive() {
                log.Printf("%s: Couldn't read: %+v", module, err)
            }
            c.Close()
            return "", chatrooms.ConnEOF
        }

        for i := range msgs {
            data := &(msgs[i])

            switch data.OpCode {
            case ws.OpClose:
                c.Close()
                return "", chatrooms.ConnEOF
            case ws.OpPing:
                err = c.send(ws.OpPong, data.Payload)
                if err != nil {
                    c.Close()
                    return "", chatrooms.ConnEOF
                }
            case ws.OpText:
                return string(data.Payload), nil
            default:
                /* Ignore pongs and binary messages */
            }
        }
    }

    return "", chatrooms.ConnEOF
}

// send the message, properly synchronizing the connection.
func (c *gbwConn) send(op ws.OpCode, data []byte) error {
    c.sendMutex.Lock()
    defer c.sendMutex.Unlock()

    if !c.isActive() {
        return chatrooms.ConnEOF
    }

    c.conn.SetWriteDeadline(time.Now().Add(writeWait))
    return wsutil.WriteServerMessage(c.conn, op, data)
}

// SendStr send `msg`, previously formatted by the caller.
func (c *gbwConn) SendStr(msg string) error {
    op := ws.OpText

    if !c.isActive() {
        return chatrooms.ConnEOF
    } else if len(msg) == 0 {
        // Empty messages become pongs, to check if the remote endpoint is
        // alive.
        op = ws.OpPong
    }

    return c.send(op, []byte(msg))
}

// NewConn upgrade a HTTP connection to a chatrooms.Conn.
//
// The connection is closed if it doesn't receive anything from its remote
// endpoint in `timeout`.
func NewConn(timeout time.Duration, w http.ResponseWriter,
        req *http.Request) (chatrooms.Conn, error) {

    conn, _, _, err := ws.UpgradeHTTP(req, w)
    if err != nil {
        return nil, err
    }

    return &gbwConn {
        conn: conn,
        timeout: timeout,
        active: 1,
    }, nil
}
