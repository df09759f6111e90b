package gorilla_ws_conn

import (
    "errors"
    chatrooms "github.com/SirGFM/go-chatrooms"
    gows "github.com/gorilla/websocket"
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"
    "time"
)

// startServer start a HTTP server that upgrades every request, returning
// the server and a channel with each upgraded connection.
func startServer(t *testing.T, timeout time.Duration) (*httptest.Server, chan chatrooms.Conn) {
    conns := make(chan chatrooms.Conn, 1)

    srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
        conn, err := NewConn(gows.Upgrader{}, timeout, w, req)
        if err != nil {
            t.Errorf("Couldn't upgrade the connection: %+v", err)
            return
        }
        conns <- conn
    }))

    return srv, conns
}

// dial connect a client to `srv`, returning both ends of the connection.
func dial(t *testing.T, srv *httptest.Server, conns chan chatrooms.Conn) (*gows.Conn, chatrooms.Conn) {
    url := "ws" + strings.TrimPrefix(srv.URL, "http")

    client, _, err := gows.DefaultDialer.Dial(url, nil)
    if err != nil {
        t.Fatalf("Couldn't connect to the server: %+v", err)
    }

    select {
    case conn := <-conns:
        return client, conn
    case <-time.After(time.Second):
        t.Fatal("Server didn't upgrade the connection")
    }
    return nil, nil
}

// TestMessages check that text messages go through in both directions.
func TestMessages(t *testing.T) {
    srv, conns := startServer(t, time.Minute)
    defer srv.Close()

    client, conn := dial(t, srv, conns)
    defer client.Close()
    defer conn.Close()

    err := client.WriteMessage(gows.TextMessage, []byte("hello"))
    if err != nil {
        t.Fatalf("Couldn't send from the client: %+v", err)
    }
    msg, err := conn.Recv()
    if err != nil {
        t.Fatalf("Couldn't receive on the server: %+v", err)
    } else if want, got := "hello", msg; want != got {
        t.Errorf("Invalid message: expected '%s' but got '%s'", want, got)
    }

    err = conn.SendStr("new_message:{}")
    if err != nil {
        t.Fatalf("Couldn't send from the server: %+v", err)
    }
    typ, data, err := client.ReadMessage()
    if err != nil {
        t.Fatalf("Couldn't receive on the client: %+v", err)
    } else if want, got := gows.TextMessage, typ; want != got {
        t.Errorf("Invalid message type: expected '%d' but got '%d'", want, got)
    } else if want, got := "new_message:{}", string(data); want != got {
        t.Errorf("Invalid message: expected '%s' but got '%s'", want, got)
    }
}

// TestCloseWithCode check that the remote endpoint receives the close code.
func TestCloseWithCode(t *testing.T) {
    srv, conns := startServer(t, time.Minute)
    defer srv.Close()

    client, conn := dial(t, srv, conns)
    defer client.Close()

    err := conn.CloseWithCode(chatrooms.ClosePolicyViolation, "invalid token")
    if err != nil {
        t.Fatalf("Couldn't close the connection: %+v", err)
    }

    _, _, err = client.ReadMessage()
    var closeErr *gows.CloseError
    if !errors.As(err, &closeErr) {
        t.Fatalf("Client didn't receive a close frame: %+v", err)
    } else if want, got := int(chatrooms.ClosePolicyViolation), closeErr.Code; want != got {
        t.Errorf("Invalid close code: expected '%d' but got '%d'", want, got)
    } else if want, got := "invalid token", closeErr.Text; want != got {
        t.Errorf("Invalid close reason: expected '%s' but got '%s'", want, got)
    }

    // Every operation fails once closed.
    if want, got := chatrooms.ConnEOF, conn.CloseWithCode(chatrooms.CloseNormal, ""); want != got {
        t.Errorf("Closed twice: expected '%+v' but got '%+v'", want, got)
    } else if want, got := chatrooms.ConnEOF, conn.SendStr("late"); want != got {
        t.Errorf("Sent after closing: expected '%+v' but got '%+v'", want, got)
    }
    if _, err := conn.Recv(); err != chatrooms.ConnEOF {
        t.Errorf("Received after closing: expected '%+v' but got '%+v'", chatrooms.ConnEOF, err)
    }
}

// TestRemoteClose check that the server notices the client leaving.
func TestRemoteClose(t *testing.T) {
    srv, conns := startServer(t, time.Minute)
    defer srv.Close()

    client, conn := dial(t, srv, conns)
    client.Close()

    done := make(chan error, 1)
    go func() {
        _, err := conn.Recv()
        done <- err
    } ()

    select {
    case err := <-done:
        if want, got := chatrooms.ConnEOF, err; want != got {
            t.Errorf("Invalid error: expected '%+v' but got '%+v'", want, got)
        }
    case <-time.After(time.Second):
        t.Fatal("Server didn't notice the closed connection")
    }
}

// TestTimeout check that an idle connection gets pinged and then closed.
func TestTimeout(t *testing.T) {
    const timeout = time.Millisecond * 50

    srv, conns := startServer(t, timeout)
    defer srv.Close()

    client, _ := dial(t, srv, conns)
    defer client.Close()

    // Ignore pings, so the server times out.
    pinged := make(chan struct{}, 1)
    client.SetPingHandler(func(string) error {
        select {
        case pinged <- struct{}{}:
        default:
        }
        return nil
    })

    client.SetReadDeadline(time.Now().Add(time.Second))
    _, _, err := client.ReadMessage()
    var closeErr *gows.CloseError
    if !errors.As(err, &closeErr) {
        t.Fatalf("Client wasn't closed: %+v", err)
    } else if want, got := int(chatrooms.CloseGoingAway), closeErr.Code; want != got {
        t.Errorf("Invalid close code: expected '%d' but got '%d'", want, got)
    }

    select {
    case <-pinged:
    default:
        t.Error("Server didn't ping before timing out")
    }
}
