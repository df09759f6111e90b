package main

import (
    "context"
    "encoding/json"
    "fmt"
    chatrooms "github.com/SirGFM/go-chatrooms"
    sqlite_store "github.com/SirGFM/go-chatrooms/sqlite-store"
    "log"
    "net/http"
    "net/url"
    "path"
    "strings"
)

// Prefix of every API endpoint.
const apiPrefix = "api/v1/"

type server struct {
    // The server's HTTP server
    httpServer *http.Server
    // The chat server
    chat chatrooms.ChatServer
    // The storage of users, rooms and messages
    store *sqlite_store.Store
    // newConn upgrades requests to WebSockets
    newConn connFactory
}

// route is a single API endpoint, matched against the components of the
// URL after the API prefix. A component "*" matches anything.
type route struct {
    method string
    pattern []string
    handler func(s *server, w http.ResponseWriter, req *http.Request, parts []string)
}

// routes available on the API, in the order they are tried.
var routes = []route {
    {http.MethodGet, []string{"health", "status"}, (*server).getHealth},
    {http.MethodPost, []string{"auth", "register"}, (*server).registerUser},
    {http.MethodPost, []string{"auth", "login"}, (*server).loginUser},
    {http.MethodPost, []string{"auth", "logout"}, (*server).logoutUser},
    {http.MethodPost, []string{"chats"}, (*server).createRoom},
    {http.MethodGet, []string{"chats", "own"}, (*server).listOwnRooms},
    {http.MethodGet, []string{"chats", "joined"}, (*server).listJoinedRooms},
    {http.MethodGet, []string{"chats", "ws", "*"}, (*server).serveWebSocket},
    {http.MethodDelete, []string{"chats", "messages", "*"}, (*server).deleteMessage},
    {http.MethodPost, []string{"chats", "*", "access"}, (*server).joinRoom},
    {http.MethodGet, []string{"chats", "*", "messages"}, (*server).listMessages},
    {http.MethodGet, []string{"chats", "*"}, (*server).getRoom},
    {http.MethodDelete, []string{"chats", "*"}, (*server).deleteRoom},
}

// match check whether `parts` matches `pattern`.
func match(pattern, parts []string) bool {
    if len(pattern) != len(parts) {
        return false
    }
    for i := range pattern {
        if pattern[i] != "*" && pattern[i] != parts[i] {
            return false
        }
    }
    return true
}

// ServeHTTP is called by Go's http package whenever a new HTTP request arrives
func (s *server) ServeHTTP(w http.ResponseWriter, req *http.Request) {
    uri := cleanURL(req.URL)
    log.Printf("%s - %s - %s", req.RemoteAddr, req.Method, uri)

    if uri == "chat_page" || uri == "" {
        serveChatPage(w)
        return
    } else if !strings.HasPrefix(uri, apiPrefix) {
        httpTextReply(http.StatusNotFound, "404 - Nothing to see here...", w)
        log.Printf("%s - %s - %s [404]", req.RemoteAddr, req.Method, uri)
        return
    }

    var parts []string
    for _, p := range strings.Split(strings.TrimPrefix(uri, apiPrefix), "/") {
        clean, err := url.PathUnescape(p)
        if err != nil {
            httpErrorReply(http.StatusBadRequest, "Invalid URL.", w)
            return
        }
        parts = append(parts, clean)
    }

    allowed := false
    for _, r := range routes {
        if !match(r.pattern, parts) {
            continue
        } else if r.method != req.Method {
            allowed = true
            continue
        }

        r.handler(s, w, req, parts)
        return
    }

    if allowed {
        httpErrorReply(http.StatusMethodNotAllowed, "Method Not Allowed", w)
        log.Printf("%s - %s - %s [405]", req.RemoteAddr, req.Method, uri)
    } else {
        httpErrorReply(http.StatusNotFound, "Not Found", w)
        log.Printf("%s - %s - %s [404]", req.RemoteAddr, req.Method, uri)
    }
}

// cleanURL so everything is properly escaped/encoded and so it may be split into each of its components.
//
// Use `url.Unescape` to retrieve the unescaped path, if so desired.
func cleanURL(uri *url.URL) string {
    // Normalize and strip the URL from its leading prefix (and slash)
    resUrl := path.Clean(uri.EscapedPath())
    if len(resUrl) > 0 && resUrl[0] == '/' {
        resUrl = resUrl[1:]
    } else if len(resUrl) == 1 && resUrl[0] == '.' {
        // Clean converts an empty path into a single "."
        resUrl = ""
    }

    return resUrl
}

// httpTextReply send a simple HTTP response as a plain text.
func httpTextReply(status int, msg string, w http.ResponseWriter) {
    w.Header().Set("Content-Type", "text/plain")
    w.WriteHeader(status)

    for data := []byte(msg); len(data) > 0; {
        n, err := w.Write(data)
        if err != nil {
            log.Printf("Failed to send %d: %+v", status, err)
            return
        }
        data = data[n:]
    }
}

// httpJSONReply send `v` encoded as JSON.
func httpJSONReply(status int, v interface{}, w http.ResponseWriter) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)

    if err := json.NewEncoder(w).Encode(v); err != nil {
        log.Printf("Failed to send %d: %+v", status, err)
    }
}

// httpErrorReply send an error, described by `detail`, as JSON.
func httpErrorReply(status int, detail interface{}, w http.ResponseWriter) {
    httpJSONReply(status, map[string]interface{} {
        "detail": detail,
    }, w)
}

// Shutdown stop accepting requests and disconnect every session.
func (s *server) Shutdown(ctx context.Context) error {
    err := s.httpServer.Shutdown(ctx)
    s.chat.Close()

    return err
}

// newServer create the web server, without starting it.
func newServer(args Args, store *sqlite_store.Store) (*server, error) {
    var srv server

    newConn, err := newConnFactory(args)
    if err != nil {
        return nil, err
    }

    conf := chatrooms.GetDefaultServerConf()
    conf.MaxMessageLength = args.MaxMessageLength
    conf.SendQueueSize = args.SendQueueSize
    conf.Logger = log.Default()
    conf.DebugLog = args.Debug

    srv.httpServer = &http.Server {
        Addr: fmt.Sprintf("%s:%d", args.IP, args.Port),
        Handler: &srv,
    }
    srv.chat = chatrooms.NewServerConf(conf, store, store)
    srv.store = store
    srv.newConn = newConn

    return &srv, nil
}
