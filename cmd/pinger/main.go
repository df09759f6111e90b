package main

import (
    crand "crypto/rand"
    "encoding/binary"
    "errors"
    "fmt"
    chatrooms "github.com/SirGFM/go-chatrooms"
    "github.com/gobwas/ws"
    "github.com/gobwas/ws/wsutil"
    "github.com/google/uuid"
    "log"
    mrand "math/rand"
    "net"
    "net/url"
    "os"
    "os/signal"
    "sync"
    "time"
)

// newRand create a random generator seeded from the system's source.
func newRand() *mrand.Rand {
    var buf [8]byte

    crand.Read(buf[:])
    s, _ := binary.Varint(buf[:])
    return mrand.New(mrand.NewSource(s))
}

func main() {
    var buf [1]wsutil.Message

    log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)
    rng := newRand()

    if len(os.Args) != 4 {
        log.Fatalf("Usage: %s host:port room-id token", os.Args[0])
    }
    host := os.Args[1]
    room, err := uuid.Parse(os.Args[2])
    if err != nil {
        log.Fatalf("Invalid room '%s': %+v", os.Args[2], err)
    }
    token := os.Args[3]

    uri, err := url.ParseRequestURI(fmt.Sprintf("ws://%s/api/v1/chats/ws/%s?token=%s",
            host, room, url.QueryEscape(token)))
    if err != nil {
        log.Fatalf("Couldn't parse the URL: %+v", err)
    }

    conn, err := net.Dial("tcp", host)
    if err != nil {
        log.Fatalf("Couldn't connect: %+v", err)
    }

    var m sync.Mutex
    var closeOnce sync.Once

    onClose := func() {
        closeOnce.Do(func() {
            m.Lock()
            body := ws.NewCloseFrameBody(ws.StatusNormalClosure, "")
            err := wsutil.WriteClientMessage(conn, ws.OpClose, body)
            if err != nil {
                log.Printf("Couldn't send close: %+v", err)
            }
            m.Unlock()
            time.Sleep(time.Millisecond)

            conn.Close()
        })
    }
    defer onClose()

    _, _, err = ws.DefaultDialer.Upgrade(conn, uri)
    if err != nil {
        log.Fatalf("Failed to upgrade: %+v", err)
    }

    intHndlr := make(chan os.Signal, 1)
    signal.Notify(intHndlr, os.Interrupt)

    go func() {
        <-intHndlr
        log.Printf("Exiting...")
        onClose()
    } ()

    go func() {
        for {
            // Generate a number between 1 and 128 and
            // then convert it to 125ms to 16s
            n := (rng.Uint32() & 0x7f) + 1
            t := time.Millisecond * time.Duration(n * 125)
            time.Sleep(t)

            s := fmt.Sprintf("pinger waited %s to say something", t)
            m.Lock()
            err := wsutil.WriteClientMessage(conn, ws.OpText, []byte(s))
            m.Unlock()
            if err != nil {
                log.Printf("Couldn't send message: %+v", err)
                return
            }
        }
    } ()

    log.Printf("Waiting...")
    for {
        msgs, err := wsutil.ReadServerMessage(conn, buf[:0])
        if err != nil {
            var closed wsutil.ClosedError
            if errors.As(err, &closed) {
                log.Printf("Server closed the connection: %d %s", closed.Code, closed.Reason)
            } else {
                log.Printf("Couldn't read: %+v", err)
            }
            return
        }

        for i := range msgs {
            data := &(msgs[i])
            switch data.OpCode {
            case ws.OpClose:
                code, reason := ws.ParseCloseFrameData(data.Payload)
                log.Printf("Server closed the connection: %d %s", code, reason)
                return
            case ws.OpPing:
                m.Lock()
                err = wsutil.WriteClientMessage(conn, ws.OpPong, data.Payload)
                m.Unlock()
                if err != nil {
                    log.Printf("Couldn't pong: %+v", err)
                    return
                }
            case ws.OpText:
                name, payload, err := chatrooms.ParseEvent(string(data.Payload))
                if err != nil {
                    log.Printf("Received an invalid event: %+v", err)
                    continue
                }
                log.Printf("%s: %s", name, payload)
            }
        }
    }
}
