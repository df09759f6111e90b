package go_chatrooms

import (
    "golang.org/x/sync/errgroup"
)

// Lifecycle reacts to changes on the rooms themselves.
type Lifecycle struct {
    registry *Registry
    conf *ServerConf
}

// NewLifecycle create a Lifecycle that manages the sessions in `registry`.
func NewLifecycle(registry *Registry, conf *ServerConf) *Lifecycle {
    return &Lifecycle {
        registry: registry,
        conf: conf,
    }
}

// ForceDisconnect close every session on `room` with `code`, returning how
// many sessions were closed.
//
// The sessions are removed from the registry before any of them gets
// closed, so the room has no members once this returns (unless a new
// session joins it concurrently). Failing to close a connection that's
// already dead is tolerated.
//
// This must be called whenever a room is deleted.
func (l *Lifecycle) ForceDisconnect(room RoomID, code CloseCode) int {
    sessions := l.registry.Clear(room)

    var g errgroup.Group
    for _, s := range sessions {
        s := s
        g.Go(func() error {
            return s.closeWith(code, code.String())
        })
    }

    if err := g.Wait(); err != nil {
        l.conf.debugf("go_chatrooms/lifecycle: Couldn't close some session.\n\troom: \"%s\"\n\terror: %+v",
                room, err)
    }

    if len(sessions) > 0 {
        l.conf.infof("go_chatrooms/lifecycle: Disconnected every session on the room.\n\troom: \"%s\"\n\tsessions: %d\n\tcode: %d",
                room, len(sessions), code)
    }

    return len(sessions)
}

// ForceDisconnectAll close every session on every room with `code`.
func (l *Lifecycle) ForceDisconnectAll(code CloseCode) int {
    var count int

    for _, room := range l.registry.Rooms() {
        count += l.ForceDisconnect(room, code)
    }

    return count
}
