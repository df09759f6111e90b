package go_chatrooms

import (
    "sync"
)

// Broadcaster delivers events to every session registered on a room.
type Broadcaster struct {
    registry *Registry
    conf *ServerConf

    // order serializes queueing events, so every session of a room
    // receives them in the same order. It's never held while writing to a
    // connection.
    order sync.Mutex
}

// NewBroadcaster create a Broadcaster that delivers to the sessions in
// `registry`.
func NewBroadcaster(registry *Registry, conf *ServerConf) *Broadcaster {
    return &Broadcaster {
        registry: registry,
        conf: conf,
    }
}

// Publish deliver `event` to every session currently registered on `room`
// and wait until every delivery was attempted.
//
// Each session writes on its own goroutine, so deliveries happen
// concurrently. A failed delivery only affects its session, which gets
// closed and eventually removes itself from the registry.
func (b *Broadcaster) Publish(room RoomID, event string) {
    var wg sync.WaitGroup

    b.order.Lock()
    members := b.registry.MembersOf(room)
    for _, s := range members {
        b.deliver(s, event, &wg)
    }
    b.order.Unlock()

    b.conf.debugf("go_chatrooms/broadcast: Event published.\n\troom: \"%s\"\n\tmembers: %d\n\tevent: \"%s\"",
            room, len(members), event)

    wg.Wait()
}

// SendTo deliver `event` exclusively to `s` and wait until the delivery was
// attempted.
func (b *Broadcaster) SendTo(s *Session, event string) {
    var wg sync.WaitGroup

    b.order.Lock()
    b.deliver(s, event, &wg)
    b.order.Unlock()

    wg.Wait()
}

// deliver queue `event` on `s`, tracking it on `wg`.
func (b *Broadcaster) deliver(s *Session, event string, wg *sync.WaitGroup) {
    wg.Add(1)

    err := s.enqueue(outbound {
        msg: event,
        done: func(error) {
            wg.Done()
        },
    })

    switch err {
    case nil:
    case SlowConsumer:
        wg.Done()
        b.conf.errorf("go_chatrooms/broadcast: Dropping slow session.\n\tsession: \"%s\"\n\troom: \"%s\"",
                s.ID(), s.room)
        go s.closeWith(CloseInternalError, SlowConsumer.Error())
    default:
        wg.Done()
        b.conf.debugf("go_chatrooms/broadcast: Skipping closing session.\n\tsession: \"%s\"\n\troom: \"%s\"",
                s.ID(), s.room)
    }
}
