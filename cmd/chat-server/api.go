package main

import (
    "encoding/json"
    "errors"
    chatrooms "github.com/SirGFM/go-chatrooms"
    "github.com/google/uuid"
    "golang.org/x/sync/errgroup"
    "log"
    "net/http"
    "strconv"
    "strings"
    "unicode/utf8"
)

// Number of items in each page of a list.
const pageSize = 20

// Maximum number of characters in a room's title.
const maxTitleLength = 160

// userDetail is how users are described by the API.
type userDetail struct {
    ID chatrooms.UserID `json:"id"`
    Email string `json:"email"`
}

// tokenResult is sent after registering or logging in.
type tokenResult struct {
    Key string `json:"key"`
    User userDetail `json:"user"`
}

// roomDetail describes a room along with its creator.
type roomDetail struct {
    ID chatrooms.RoomID `json:"id"`
    Title string `json:"title"`
    CreatedAt string `json:"created_at"`
    Creator userDetail `json:"creator"`
}

// credentials sent to register or to log in.
type credentials struct {
    Email string `json:"email"`
    Password string `json:"password"`
}

// newRoomDetail describe `r`, created by `creator`.
func newRoomDetail(r chatrooms.Room, creator chatrooms.User) roomDetail {
    return roomDetail {
        ID: r.ID,
        Title: r.Title,
        CreatedAt: r.CreatedAt.Format("2006-01-02T15:04:05.999999Z07:00"),
        Creator: userDetail(creator),
    }
}

// decodeBody decode the request's JSON body into `v`, replying with an
// error if it fails.
func decodeBody(w http.ResponseWriter, req *http.Request, v interface{}) bool {
    if err := json.NewDecoder(req.Body).Decode(v); err != nil {
        httpErrorReply(http.StatusUnprocessableEntity, "Invalid request body.", w)
        return false
    }
    return true
}

// parsePage retrieve the requested page from the query string.
func parsePage(req *http.Request) int {
    page, err := strconv.Atoi(req.URL.Query().Get("page"))
    if err != nil || page < 1 {
        return 1
    }
    return page
}

// tokenFromHeader extract the token from a "Token <key>" header.
func tokenFromHeader(header string) (string, bool) {
    auth := strings.Fields(header)
    if len(auth) != 2 || strings.ToLower(auth[0]) != "token" {
        return "", false
    }
    return auth[1], true
}

// authenticate resolve the user that sent the request, replying with an
// error if it fails.
func (s *server) authenticate(w http.ResponseWriter, req *http.Request) (chatrooms.User, bool) {
    token, ok := tokenFromHeader(req.Header.Get("Authorization"))
    if !ok {
        httpErrorReply(http.StatusUnauthorized, "Invalid token header.", w)
        return chatrooms.User{}, false
    }

    user, err := s.store.ResolveUser(req.Context(), token)
    if errors.Is(err, chatrooms.NotFound) {
        httpErrorReply(http.StatusUnauthorized, "Invalid token header.", w)
        return chatrooms.User{}, false
    } else if err != nil {
        s.internalError(w, req, err)
        return chatrooms.User{}, false
    }

    return user, true
}

// internalError log `err` and reply with a generic error.
func (s *server) internalError(w http.ResponseWriter, req *http.Request, err error) {
    log.Printf("%s - %s - %s [500]: %+v", req.RemoteAddr, req.Method, req.URL.Path, err)
    httpErrorReply(http.StatusInternalServerError, "Internal Server Error", w)
}

// parseRoomID parse the room's ID, replying with an error if it's invalid.
func parseRoomID(w http.ResponseWriter, id string) (chatrooms.RoomID, bool) {
    room, err := uuid.Parse(id)
    if err != nil {
        httpErrorReply(http.StatusNotFound, "Chat not found.", w)
        return chatrooms.RoomID{}, false
    }
    return room, true
}

// accessibleRoom retrieve the room `id` if `user` may access it, replying
// with an error otherwise.
func (s *server) accessibleRoom(w http.ResponseWriter, req *http.Request,
        id string, user chatrooms.User) (chatrooms.Room, bool) {

    roomID, ok := parseRoomID(w, id)
    if !ok {
        return chatrooms.Room{}, false
    }

    ctx := req.Context()
    ok, err := s.store.IsRoomAccessibleTo(ctx, roomID, user.ID)
    if errors.Is(err, chatrooms.NotFound) || (err == nil && !ok) {
        httpErrorReply(http.StatusNotFound, "Chat not found.", w)
        return chatrooms.Room{}, false
    } else if err != nil {
        s.internalError(w, req, err)
        return chatrooms.Room{}, false
    }

    room, err := s.store.GetRoom(ctx, roomID)
    if err != nil {
        s.internalError(w, req, err)
        return chatrooms.Room{}, false
    }

    return room, true
}

func (s *server) getHealth(w http.ResponseWriter, req *http.Request, _ []string) {
    httpJSONReply(http.StatusOK, map[string]string{"status": "OK"}, w)
}

func (s *server) registerUser(w http.ResponseWriter, req *http.Request, _ []string) {
    var cred credentials
    if !decodeBody(w, req, &cred) {
        return
    } else if !strings.Contains(cred.Email, "@") || len(cred.Password) == 0 {
        httpErrorReply(http.StatusUnprocessableEntity, "Invalid email or password.", w)
        return
    }

    ctx := req.Context()
    user, err := s.store.CreateUser(ctx, cred.Email, cred.Password)
    if errors.Is(err, chatrooms.AlreadyExists) {
        httpErrorReply(http.StatusBadRequest, map[string]string {
            "email": "User with the email already exists.",
        }, w)
        return
    } else if err != nil {
        s.internalError(w, req, err)
        return
    }

    key, err := s.store.IssueToken(ctx, user.ID)
    if err != nil {
        s.internalError(w, req, err)
        return
    }

    httpJSONReply(http.StatusCreated, tokenResult{key, userDetail(user)}, w)
}

func (s *server) loginUser(w http.ResponseWriter, req *http.Request, _ []string) {
    var cred credentials
    if !decodeBody(w, req, &cred) {
        return
    }

    ctx := req.Context()
    user, err := s.store.Authenticate(ctx, cred.Email, cred.Password)
    if errors.Is(err, chatrooms.NotFound) {
        httpErrorReply(http.StatusBadRequest, map[string]string {
            "non_field_errors": "Invalid email or password.",
        }, w)
        return
    } else if err != nil {
        s.internalError(w, req, err)
        return
    }

    key, err := s.store.IssueToken(ctx, user.ID)
    if err != nil {
        s.internalError(w, req, err)
        return
    }

    httpJSONReply(http.StatusOK, tokenResult{key, userDetail(user)}, w)
}

func (s *server) logoutUser(w http.ResponseWriter, req *http.Request, _ []string) {
    user, ok := s.authenticate(w, req)
    if !ok {
        return
    }

    if err := s.store.RevokeToken(req.Context(), user.ID); err != nil {
        s.internalError(w, req, err)
        return
    }

    httpJSONReply(http.StatusOK, map[string]string{"detail": "Logged out"}, w)
}

func (s *server) createRoom(w http.ResponseWriter, req *http.Request, _ []string) {
    var body struct {
        Title string `json:"title"`
    }

    user, ok := s.authenticate(w, req)
    if !ok || !decodeBody(w, req, &body) {
        return
    }

    var verr *chatrooms.ValidationError
    if length := utf8.RuneCountInString(body.Title); length == 0 {
        verr = &chatrooms.ValidationError{Field: "title", Reason: chatrooms.EmptyMessage, Limit: 1}
    } else if length > maxTitleLength {
        verr = &chatrooms.ValidationError{Field: "title", Reason: chatrooms.MessageTooLong, Limit: maxTitleLength}
    }
    if verr != nil {
        httpErrorReply(http.StatusUnprocessableEntity, verr.Details(), w)
        return
    }

    room, err := s.store.CreateRoom(req.Context(), body.Title, user.ID)
    if errors.Is(err, chatrooms.AlreadyExists) {
        httpErrorReply(http.StatusBadRequest, "You already created chat with the title.", w)
        return
    } else if err != nil {
        s.internalError(w, req, err)
        return
    }

    httpJSONReply(http.StatusCreated, newRoomDetail(room, user), w)
}

func (s *server) listOwnRooms(w http.ResponseWriter, req *http.Request, _ []string) {
    user, ok := s.authenticate(w, req)
    if !ok {
        return
    }

    page, err := s.store.ListOwnRooms(req.Context(), user.ID, parsePage(req), pageSize)
    if err != nil {
        s.internalError(w, req, err)
        return
    }

    httpJSONReply(http.StatusOK, page.Results, w)
}

func (s *server) listJoinedRooms(w http.ResponseWriter, req *http.Request, _ []string) {
    user, ok := s.authenticate(w, req)
    if !ok {
        return
    }

    ctx := req.Context()
    page, err := s.store.ListJoinedRooms(ctx, user.ID, parsePage(req), pageSize)
    if err != nil {
        s.internalError(w, req, err)
        return
    }

    list := make([]roomDetail, 0, len(page.Results))
    for _, room := range page.Results {
        creator, err := s.store.GetUser(ctx, room.CreatorID)
        if err != nil {
            s.internalError(w, req, err)
            return
        }
        list = append(list, newRoomDetail(room, creator))
    }

    httpJSONReply(http.StatusOK, list, w)
}

func (s *server) getRoom(w http.ResponseWriter, req *http.Request, parts []string) {
    user, ok := s.authenticate(w, req)
    if !ok {
        return
    }

    room, ok := s.accessibleRoom(w, req, parts[1], user)
    if !ok {
        return
    }

    creator, err := s.store.GetUser(req.Context(), room.CreatorID)
    if err != nil {
        s.internalError(w, req, err)
        return
    }

    httpJSONReply(http.StatusOK, newRoomDetail(room, creator), w)
}

func (s *server) deleteRoom(w http.ResponseWriter, req *http.Request, parts []string) {
    user, ok := s.authenticate(w, req)
    if !ok {
        return
    }

    id, ok := parseRoomID(w, parts[1])
    if !ok {
        return
    }

    room, err := s.store.GetRoom(req.Context(), id)
    if errors.Is(err, chatrooms.NotFound) {
        httpErrorReply(http.StatusNotFound, "Chat not found.", w)
        return
    } else if err != nil {
        s.internalError(w, req, err)
        return
    } else if room.CreatorID != user.ID {
        httpErrorReply(http.StatusForbidden, "Can't delete not own chat", w)
        return
    }

    // The sessions are disconnected as the room is deleted.
    g, ctx := errgroup.WithContext(req.Context())
    g.Go(func() error {
        return s.store.DeleteRoom(ctx, id)
    })
    g.Go(func() error {
        s.chat.ForceDisconnect(id, chatrooms.CloseInternalError)
        return nil
    })
    if err := g.Wait(); err != nil && !errors.Is(err, chatrooms.NotFound) {
        s.internalError(w, req, err)
        return
    }

    w.WriteHeader(http.StatusNoContent)
}

func (s *server) joinRoom(w http.ResponseWriter, req *http.Request, parts []string) {
    user, ok := s.authenticate(w, req)
    if !ok {
        return
    }

    id, ok := parseRoomID(w, parts[1])
    if !ok {
        return
    }

    err := s.store.AddParticipant(req.Context(), id, user.ID)
    if errors.Is(err, chatrooms.NotFound) {
        httpErrorReply(http.StatusNotFound, "Chat not found.", w)
        return
    } else if err != nil {
        s.internalError(w, req, err)
        return
    }

    httpJSONReply(http.StatusOK, map[string]string{"detail": "Joined"}, w)
}

func (s *server) listMessages(w http.ResponseWriter, req *http.Request, parts []string) {
    user, ok := s.authenticate(w, req)
    if !ok {
        return
    }

    room, ok := s.accessibleRoom(w, req, parts[1], user)
    if !ok {
        return
    }

    page, err := s.store.ListMessages(req.Context(), room.ID, parsePage(req), pageSize)
    if err != nil {
        s.internalError(w, req, err)
        return
    }

    httpJSONReply(http.StatusOK, page, w)
}

func (s *server) deleteMessage(w http.ResponseWriter, req *http.Request, parts []string) {
    user, ok := s.authenticate(w, req)
    if !ok {
        return
    }

    id, err := strconv.ParseInt(parts[2], 10, 64)
    if err != nil {
        httpErrorReply(http.StatusNotFound, "Message not found.", w)
        return
    }

    ctx := req.Context()
    msg, err := s.store.GetMessage(ctx, chatrooms.MessageID(id))
    if errors.Is(err, chatrooms.NotFound) {
        httpErrorReply(http.StatusNotFound, "Message not found.", w)
        return
    } else if err != nil {
        s.internalError(w, req, err)
        return
    } else if msg.AuthorID != user.ID {
        httpErrorReply(http.StatusForbidden, "Can't delete not own message", w)
        return
    }

    if err := s.store.SoftDeleteMessage(ctx, msg.ID); err != nil {
        s.internalError(w, req, err)
        return
    }

    w.WriteHeader(http.StatusNoContent)
}

// serveWebSocket upgrade the request and hand it to the chat server until
// the session finishes.
//
// The credential is sent on the query string, as browsers can't set
// headers on WebSockets.
func (s *server) serveWebSocket(w http.ResponseWriter, req *http.Request, parts []string) {
    room, ok := parseRoomID(w, parts[2])
    if !ok {
        return
    }

    conn, err := s.newConn(w, req)
    if err != nil {
        // The upgrader already replied to the request.
        log.Printf("%s - %s - %s - Couldn't upgrade the connection: %+v", req.RemoteAddr, req.Method, req.URL.Path, err)
        return
    }

    err = s.chat.ConnectAndWait(req.Context(), req.URL.Query().Get("token"), room, conn)
    if err != nil {
        // Can't do HTTP anymore as the connection was upgraded to a websocket
        log.Printf("%s - %s - %s - Couldn't connect to the chat room: %+v", req.RemoteAddr, req.Method, req.URL.Path, err)
    }
}
