// Package gorilla_ws_conn implements the Conn interface from
// https://github.com/SirGFM/go-chatrooms over a WebSocket connection
// from https://github.com/gorilla/websocket.
package gorilla_ws_conn

import (
    chatrooms "github.com/SirGFM/go-chatrooms"
    gows "github.com/gorilla/websocket"
    "log"
    "net/http"
    "sync"
    "sync/atomic"
    "time"
)

// defaultPing is sent on ping messages as the application data.
const defaultPing = "go_chatrooms says hi"

// module is the string used when logging messages from this package.
const module = "go-chatrooms/gorilla-ws-conn"

// defaultTimeout is used whenever the supplied timeout isn't positive.
const defaultTimeout = time.Minute

// writeWait is how long a single write may block before the remote endpoint
// is considered dead.
const writeWait = 10 * time.Second

// gwsConn wrap a gorilla/ws connection into a chatrooms.Conn.
type gwsConn struct {
    // The gorilla WebSocket connection.
    conn *gows.Conn

    // How long the connection waits until sending a ping back to the
    // remote endpoint.
    timeout time.Duration

    // ticker generates a message on a channel if `timeout` elapsed without
    // receiving any message.
    ticker *time.Ticker

    // timeoutCount counts the number of consecutive timeouts that happened.
    timeoutCount uint32

    // sendMutex synchronizes write operations on `conn`.
    sendMutex sync.Mutex

    // Whether the connection is currently active.
    active uint32

    // stop signals, by getting closed, that the connection should get
    // closed.
    stop chan struct{}
}

// isActive check if the connection is still active.
func (c *gwsConn) isActive() bool {
    return atomic.LoadUint32(&c.active) == 1
}

// shutdown mark the connection as inactive, returning whether this call
// was the one that did it.
func (c *gwsConn) shutdown() bool {
    if !atomic.CompareAndSwapUint32(&c.active, 1, 0) {
        return false
    }

    c.ticker.Stop()
    close(c.stop)
    return true
}

// Close the connection without notifying the remote endpoint.
func (c *gwsConn) Close() error {
    if c.shutdown() {
        c.conn.Close()
    }

    return nil
}

// CloseWithCode send a close frame with `code` and `reason` and then close
// the connection.
//
// Gorilla/ws allows `WriteControl` and `Close` to be called concurrently
// with the other methods, so this doesn't wait for pending writes.
func (c *gwsConn) CloseWithCode(code chatrooms.CloseCode, reason string) error {
    if !c.shutdown() {
        return chatrooms.ConnEOF
    }

    msg := gows.FormatCloseMessage(int(code), reason)
    err := c.conn.WriteControl(gows.CloseMessage, msg, time.Now().Add(writeWait))
    c.conn.Close()

    return err
}

// resetTimeout reset the last timeout.
//
// This must be called whenever this connections receives any message from
// its remote endpoint.
func (c *gwsConn) resetTimeout() {
    atomic.StoreUint32(&c.timeoutCount, 0)
    if c.isActive() {
        c.ticker.Reset(c.timeout)
    }
}

// Recv blocks until a new message was received.
func (c *gwsConn) Recv() (string, error) {
    for c.isActive() {
        typ, txt, err := c.conn.ReadMessage()
        if err != nil {
            c.Close()
            return "", chatrooms.ConnEOF
        }

        c.resetTimeout()

        switch typ {
        case gows.CloseMessage:
            c.Close()
            return "", chatrooms.ConnEOF
        case gows.TextMessage:
            return string(txt), nil
        default:
            continue
        }
    }

    return "", chatrooms.ConnEOF
}

// send the message, properly synchronizing the connection.
func (c *gwsConn) send(mType int, data []byte) error {
    c.sendMutex.Lock()
    defer c.sendMutex.Unlock()

    if !c.isActive() {
        return chatrooms.ConnEOF
    }

    c.conn.SetWriteDeadline(time.Now().Add(writeWait))
    return c.conn.WriteMessage(mType, data)
}

// SendStr send `msg`, previously formatted by the caller.
func (c *gwsConn) SendStr(msg string) error {
    mType := gows.TextMessage

    if !c.isActive() {
        return chatrooms.ConnEOF
    } else if len(msg) == 0 {
        // In case of empty message, just change it into a pong, to check
        // if the remote endpoint is alive.
        mType = gows.PongMessage
    }

    return c.send(mType, []byte(msg))
}

// detectTimeout wait some time checking if the connection timed out.
//
// After two consecutive timeouts, the connection is automatically closed.
func (c *gwsConn) detectTimeout() {
    for c.isActive() {
        select {
        case <-c.ticker.C:
            if atomic.CompareAndSwapUint32(&c.timeoutCount, 0, 1) {
                // Try to ping the remote endpoint and see if there's any
                // response.
                err := c.send(gows.PingMessage, []byte(defaultPing))
                if err != nil {
                    log.Printf("%s: Couldn't ping on timeout: %+v", module, err)
                    c.Close()
                }
            } else {
                // This is the second time that this connection timed out,
                // so just close it.
                c.CloseWithCode(chatrooms.CloseGoingAway, "timed out")
            }
        case <-c.stop:
            /* Do nothing and simply exit */
        }
    }
}

// ping handle received ping messages.
//
// The WebSocket protocol defines that the receiver must respond with a
// pong with the same `appData` as received. The default handler would
// write concurrently with the other messages, so this one goes through
// `send` instead.
func (c *gwsConn) ping(appData string) error {
    c.resetTimeout()

    return c.send(gows.PongMessage, []byte(appData))
}

// pong handle received pong messages, either requested or not, resetting
// the time without messages.
func (c *gwsConn) pong(appData string) error {
    c.resetTimeout()
    return nil
}

// NewConn upgrade a HTTP connection to a chatrooms.Conn.
//
// The supplied `upgrader` is used to upgrade the HTTP request into a
// WebSocket connection. Other than that, this connection's times out if it
// doesn't receive any message from its remote endpoint in `timeout`. Upon
// timing out, the connection will first try to ping the remote end point,
// but it will close if there's no response in a timely manner.
//
// Gorilla/ws's documentation specifies that if `SetReadDeadline` is set
// and a read times out, the websocket becomes corrupt. To work around
// that, `NewConn` spawns a goroutine to manually detect timeouts.
func NewConn(upgrader gows.Upgrader, timeout time.Duration,
        w http.ResponseWriter, req *http.Request) (chatrooms.Conn, error) {

    if timeout <= 0 {
        timeout = defaultTimeout
    }

    conn, err := upgrader.Upgrade(w, req, nil)
    if err != nil {
        return nil, err
    }

    c := &gwsConn {
        conn: conn,
        timeout: timeout,
        ticker: time.NewTicker(timeout),
        timeoutCount: 0,
        active: 1,
        stop: make(chan struct{}),
    }
    conn.SetPingHandler(c.ping)
    conn.SetPongHandler(c.pong)
    go c.detectTimeout()

    return c, nil
}
