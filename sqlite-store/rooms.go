package sqlite_store

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    chatrooms "github.com/SirGFM/go-chatrooms"
    "github.com/google/uuid"
    "time"
)

// scanner is either a `*sql.Row` or a `*sql.Rows`.
type scanner interface {
    Scan(dest ...interface{}) error
}

// scanRoom read a room selected by `roomColumns`.
func scanRoom(row scanner) (chatrooms.Room, error) {
    var r chatrooms.Room

    err := row.Scan(&r.ID, &r.Title, &r.CreatedAt, &r.CreatorID)
    return r, err
}

// Columns read by `scanRoom`.
const roomColumns = `rooms.id, rooms.title, rooms.created_at, rooms.creator_id`

// CreateRoom create a new room owned by `creator`.
//
// A user may not create two rooms with the same title. If they try,
// `AlreadyExists` is returned.
func (s *Store) CreateRoom(ctx context.Context, title string,
        creator chatrooms.UserID) (chatrooms.Room, error) {

    r := chatrooms.Room {
        ID: uuid.New(),
        Title: title,
        CreatedAt: time.Now().UTC(),
        CreatorID: creator,
    }

    _, err := s.db.ExecContext(ctx,
            `INSERT INTO rooms (id, title, created_at, creator_id) VALUES (?, ?, ?, ?)`,
            r.ID, r.Title, r.CreatedAt, r.CreatorID)
    if isUniqueViolation(err) {
        return chatrooms.Room{}, chatrooms.AlreadyExists
    } else if err != nil {
        return chatrooms.Room{}, fmt.Errorf("couldn't create the room: %w", err)
    }

    return r, nil
}

// GetRoom retrieve the room identified by `id`.
func (s *Store) GetRoom(ctx context.Context, id chatrooms.RoomID) (chatrooms.Room, error) {
    row := s.db.QueryRowContext(ctx,
            `SELECT ` + roomColumns + ` FROM rooms WHERE id = ?`, id)

    r, err := scanRoom(row)
    if errors.Is(err, sql.ErrNoRows) {
        return chatrooms.Room{}, chatrooms.NotFound
    } else if err != nil {
        return chatrooms.Room{}, fmt.Errorf("couldn't retrieve the room: %w", err)
    }

    return r, nil
}

// DeleteRoom remove the room identified by `id`, along with its messages
// and participants.
//
// This doesn't disconnect anyone from the room. That's up to the caller.
func (s *Store) DeleteRoom(ctx context.Context, id chatrooms.RoomID) error {
    res, err := s.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
    if err != nil {
        return fmt.Errorf("couldn't delete the room: %w", err)
    }

    if n, err := res.RowsAffected(); err != nil {
        return fmt.Errorf("couldn't check the deleted room: %w", err)
    } else if n == 0 {
        return chatrooms.NotFound
    }

    return nil
}

// AddParticipant give `user` access to the room `id`.
//
// Adding the room's creator, or someone that already participates of the
// room, does nothing.
func (s *Store) AddParticipant(ctx context.Context, id chatrooms.RoomID,
        user chatrooms.UserID) error {

    r, err := s.GetRoom(ctx, id)
    if err != nil {
        return err
    } else if r.CreatorID == user {
        return nil
    }

    _, err = s.db.ExecContext(ctx,
            `INSERT OR IGNORE INTO participants (room_id, user_id) VALUES (?, ?)`,
            id, user)
    if err != nil {
        return fmt.Errorf("couldn't add the participant: %w", err)
    }

    return nil
}

// IsRoomAccessibleTo check whether `user` either created or participates of
// `room`. If the room doesn't exist, `NotFound` is returned.
func (s *Store) IsRoomAccessibleTo(ctx context.Context, room chatrooms.RoomID,
        user chatrooms.UserID) (bool, error) {

    var creator chatrooms.UserID
    var participants int

    err := s.db.QueryRowContext(ctx,
            `SELECT rooms.creator_id, COUNT(participants.user_id) FROM rooms
            LEFT JOIN participants ON participants.room_id = rooms.id
                AND participants.user_id = ?
            WHERE rooms.id = ?
            GROUP BY rooms.id`, user, room).Scan(&creator, &participants)
    if errors.Is(err, sql.ErrNoRows) {
        return false, chatrooms.NotFound
    } else if err != nil {
        return false, fmt.Errorf("couldn't check the access to the room: %w", err)
    }

    return creator == user || participants > 0, nil
}

// listRooms retrieve a page of the rooms selected by `where`.
func (s *Store) listRooms(ctx context.Context, from, where, order string,
        page, pageSize int, args ...interface{}) (Page[chatrooms.Room], error) {

    var p Page[chatrooms.Room]

    err := s.db.QueryRowContext(ctx,
            `SELECT COUNT(*) FROM ` + from + ` WHERE ` + where, args...).Scan(&p.Total)
    if err != nil {
        return p, fmt.Errorf("couldn't count the rooms: %w", err)
    }

    limit, offset := pageBounds(page, pageSize)
    rows, err := s.db.QueryContext(ctx,
            `SELECT ` + roomColumns + ` FROM ` + from + ` WHERE ` + where +
            ` ORDER BY ` + order + ` LIMIT ? OFFSET ?`,
            append(args, limit, offset)...)
    if err != nil {
        return p, fmt.Errorf("couldn't list the rooms: %w", err)
    }
    defer rows.Close()

    p.Results = []chatrooms.Room{}
    for rows.Next() {
        r, err := scanRoom(rows)
        if err != nil {
            return p, fmt.Errorf("couldn't read a room: %w", err)
        }
        p.Results = append(p.Results, r)
    }

    return p, rows.Err()
}

// ListOwnRooms retrieve a page of the rooms created by `user`, newest
// first.
func (s *Store) ListOwnRooms(ctx context.Context, user chatrooms.UserID,
        page, pageSize int) (Page[chatrooms.Room], error) {

    return s.listRooms(ctx, `rooms`, `rooms.creator_id = ?`,
            `rooms.created_at DESC`, page, pageSize, user)
}

// ListJoinedRooms retrieve a page of the rooms in which `user`
// participates, sorted by title.
func (s *Store) ListJoinedRooms(ctx context.Context, user chatrooms.UserID,
        page, pageSize int) (Page[chatrooms.Room], error) {

    return s.listRooms(ctx,
            `rooms INNER JOIN participants ON participants.room_id = rooms.id`,
            `participants.user_id = ?`, `rooms.title ASC`, page, pageSize, user)
}

// pageBounds convert a 1-based page into a limit and an offset. Pages
// before the first are clamped to it.
func pageBounds(page, pageSize int) (int, int) {
    if page < 1 {
        page = 1
    }
    return pageSize, pageSize * (page - 1)
}
