package main

import (
    "fmt"
    chatrooms "github.com/SirGFM/go-chatrooms"
    gobwas_ws "github.com/SirGFM/go-chatrooms/gobwas-ws-conn"
    gorilla_ws "github.com/SirGFM/go-chatrooms/gorilla-ws-conn"
    gows "github.com/gorilla/websocket"
    "net/http"
)

// connFactory upgrade a HTTP connection to a Chat Connection.
type connFactory func(w http.ResponseWriter, req *http.Request) (chatrooms.Conn, error)

func ignoreOrigin(r *http.Request) bool {
    return true
}

// newConnFactory create a connFactory for the transport selected in `args`.
func newConnFactory(args Args) (connFactory, error) {
    switch args.Transport {
    case transportGorilla, "":
        upgrader := gows.Upgrader {
            ReadBufferSize:  args.ReadSize,
            WriteBufferSize: args.WriteSize,
        }
        if args.IgnoreOrigin {
            upgrader.CheckOrigin = ignoreOrigin
        }

        return func(w http.ResponseWriter, req *http.Request) (chatrooms.Conn, error) {
            return gorilla_ws.NewConn(upgrader, args.IdleTimeout, w, req)
        }, nil
    case transportGobwas:
        return func(w http.ResponseWriter, req *http.Request) (chatrooms.Conn, error) {
            return gobwas_ws.NewConn(args.IdleTimeout, w, req)
        }, nil
    default:
        return nil, fmt.Errorf("invalid transport '%s'", args.Transport)
    }
}
