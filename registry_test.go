package go_chatrooms

import (
    "github.com/google/uuid"
    "sync"
    "testing"
)

// hasSession check whether `s` is in `list`.
func hasSession(list []*Session, s *Session) bool {
    for _, other := range list {
        if other == s {
            return true
        }
    }
    return false
}

// TestRegistryMembership check that a room lists exactly the sessions that
// joined and didn't leave yet.
func TestRegistryMembership(t *testing.T) {
    r := NewRegistry()
    room := uuid.New()
    other := uuid.New()

    a, b, c := &Session{}, &Session{}, &Session{}
    r.Join(room, 1, a)
    r.Join(room, 1, b)
    r.Join(room, 2, c)
    r.Join(other, 2, c)

    members := r.MembersOf(room)
    if want, got := 3, len(members); want != got {
        t.Fatalf("Invalid number of members: expected '%d' but got '%d'", want, got)
    }
    for _, s := range []*Session{a, b, c} {
        if !hasSession(members, s) {
            t.Errorf("Session '%p' is missing from the room", s)
        }
    }

    r.Leave(room, 1, a)
    members = r.MembersOf(room)
    if want, got := 2, len(members); want != got {
        t.Errorf("Invalid number of members: expected '%d' but got '%d'", want, got)
    } else if hasSession(members, a) {
        t.Error("Session that left is still in the room")
    }

    // Leaving doesn't affect the other rooms.
    if want, got := 1, len(r.MembersOf(other)); want != got {
        t.Errorf("Invalid number of members on the other room: expected '%d' but got '%d'", want, got)
    }
}

// TestRegistryPrune check that no empty entry is left behind.
func TestRegistryPrune(t *testing.T) {
    r := NewRegistry()
    room := uuid.New()

    a, b := &Session{}, &Session{}
    r.Join(room, 1, a)
    r.Join(room, 2, b)

    r.Leave(room, 1, a)
    if _, ok := r.rooms[room][1]; ok {
        t.Error("Empty user entry was kept")
    }

    r.Leave(room, 2, b)
    if want, got := 0, r.Len(); want != got {
        t.Errorf("Invalid number of rooms: expected '%d' but got '%d'", want, got)
    }
    if _, ok := r.rooms[room]; ok {
        t.Error("Empty room entry was kept")
    }
    if want, got := 0, len(r.MembersOf(room)); want != got {
        t.Errorf("Invalid number of members: expected '%d' but got '%d'", want, got)
    }

    // Reading a room must not create an entry for it.
    if want, got := 0, r.Len(); want != got {
        t.Errorf("Reading created a room: expected '%d' rooms but got '%d'", want, got)
    }
}

// TestRegistryIdempotent check that duplicated joins and missing leaves are
// tolerated.
func TestRegistryIdempotent(t *testing.T) {
    r := NewRegistry()
    room := uuid.New()
    s := &Session{}

    // Leaving before joining does nothing.
    r.Leave(room, 1, s)
    if want, got := 0, r.Len(); want != got {
        t.Errorf("Invalid number of rooms: expected '%d' but got '%d'", want, got)
    }

    r.Join(room, 1, s)
    r.Join(room, 1, s)
    if want, got := 1, len(r.MembersOf(room)); want != got {
        t.Errorf("Duplicated session: expected '%d' members but got '%d'", want, got)
    }

    r.Leave(room, 1, s)
    r.Leave(room, 1, s)
    if want, got := 0, r.Len(); want != got {
        t.Errorf("Invalid number of rooms: expected '%d' but got '%d'", want, got)
    }
}

// TestRegistryClear check that clearing a room returns and removes every
// session at once.
func TestRegistryClear(t *testing.T) {
    r := NewRegistry()
    room := uuid.New()
    other := uuid.New()

    a, b, c := &Session{}, &Session{}, &Session{}
    r.Join(room, 1, a)
    r.Join(room, 2, b)
    r.Join(other, 3, c)

    cleared := r.Clear(room)
    if want, got := 2, len(cleared); want != got {
        t.Fatalf("Invalid number of cleared sessions: expected '%d' but got '%d'", want, got)
    } else if !hasSession(cleared, a) || !hasSession(cleared, b) {
        t.Error("Some session wasn't cleared")
    }
    if want, got := 0, len(r.MembersOf(room)); want != got {
        t.Errorf("Invalid number of members: expected '%d' but got '%d'", want, got)
    }
    if want, got := 1, r.Len(); want != got {
        t.Errorf("Invalid number of rooms: expected '%d' but got '%d'", want, got)
    }

    // Sessions leaving after the room was cleared are ignored.
    r.Leave(room, 1, a)
    if want, got := 0, len(r.Clear(room)); want != got {
        t.Errorf("Room was cleared twice: expected '%d' sessions but got '%d'", want, got)
    }
}

// TestRegistryConcurrent join and leave from many goroutines and check that
// nothing is left behind.
func TestRegistryConcurrent(t *testing.T) {
    const workers = 16
    const rounds = 100

    r := NewRegistry()
    rooms := []RoomID{uuid.New(), uuid.New()}

    var wg sync.WaitGroup
    for i := 0; i < workers; i++ {
        wg.Add(1)
        go func(user UserID) {
            defer wg.Done()

            for j := 0; j < rounds; j++ {
                room := rooms[j % len(rooms)]
                s := &Session{}

                r.Join(room, user, s)
                r.MembersOf(room)
                r.Leave(room, user, s)
            }
        } (UserID(i % 4))
    }
    wg.Wait()

    if want, got := 0, r.Len(); want != got {
        t.Errorf("Invalid number of rooms: expected '%d' but got '%d'", want, got)
    }
}
