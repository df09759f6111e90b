package sqlite_store

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    chatrooms "github.com/SirGFM/go-chatrooms"
    "time"
)

// Columns read by `scanMessage`.
const messageColumns = `id, text, created_at, is_deleted, author_id, room_id`

// scanMessage read a message selected by `messageColumns`.
func scanMessage(row scanner) (chatrooms.ChatMessage, error) {
    var m chatrooms.ChatMessage

    err := row.Scan(&m.ID, &m.Text, &m.CreatedAt, &m.IsDeleted, &m.AuthorID, &m.RoomID)
    return m, err
}

// CreateMessage persist a new message sent by `author` to `room`.
//
// `text` must have been already validated.
func (s *Store) CreateMessage(ctx context.Context, room chatrooms.RoomID,
        author chatrooms.UserID, text string) (chatrooms.ChatMessage, error) {

    m := chatrooms.ChatMessage {
        Text: text,
        CreatedAt: time.Now().UTC(),
        AuthorID: author,
        RoomID: room,
    }

    res, err := s.db.ExecContext(ctx,
            `INSERT INTO messages (text, created_at, is_deleted, author_id, room_id)
            VALUES (?, ?, 0, ?, ?)`,
            m.Text, m.CreatedAt, m.AuthorID, m.RoomID)
    if err != nil {
        return chatrooms.ChatMessage{}, fmt.Errorf("couldn't create the message: %w", err)
    }

    id, err := res.LastInsertId()
    if err != nil {
        return chatrooms.ChatMessage{}, fmt.Errorf("couldn't retrieve the message's ID: %w", err)
    }
    m.ID = chatrooms.MessageID(id)

    return m, nil
}

// GetMessage retrieve the message identified by `id`.
func (s *Store) GetMessage(ctx context.Context, id chatrooms.MessageID) (chatrooms.ChatMessage, error) {
    row := s.db.QueryRowContext(ctx,
            `SELECT ` + messageColumns + ` FROM messages WHERE id = ?`, id)

    m, err := scanMessage(row)
    if errors.Is(err, sql.ErrNoRows) {
        return chatrooms.ChatMessage{}, chatrooms.NotFound
    } else if err != nil {
        return chatrooms.ChatMessage{}, fmt.Errorf("couldn't retrieve the message: %w", err)
    }

    return m, nil
}

// SoftDeleteMessage clear the text of the message `id` and mark it as
// deleted. Deleting a message twice is harmless.
func (s *Store) SoftDeleteMessage(ctx context.Context, id chatrooms.MessageID) error {
    res, err := s.db.ExecContext(ctx,
            `UPDATE messages SET text = '', is_deleted = 1 WHERE id = ?`, id)
    if err != nil {
        return fmt.Errorf("couldn't delete the message: %w", err)
    }

    if n, err := res.RowsAffected(); err != nil {
        return fmt.Errorf("couldn't check the deleted message: %w", err)
    } else if n == 0 {
        return chatrooms.NotFound
    }

    return nil
}

// ListMessages retrieve a page of the messages in `room`, newest first.
func (s *Store) ListMessages(ctx context.Context, room chatrooms.RoomID,
        page, pageSize int) (Page[chatrooms.ChatMessage], error) {

    var p Page[chatrooms.ChatMessage]

    err := s.db.QueryRowContext(ctx,
            `SELECT COUNT(*) FROM messages WHERE room_id = ?`, room).Scan(&p.Total)
    if err != nil {
        return p, fmt.Errorf("couldn't count the messages: %w", err)
    }

    limit, offset := pageBounds(page, pageSize)
    rows, err := s.db.QueryContext(ctx,
            `SELECT ` + messageColumns + ` FROM messages WHERE room_id = ?
            ORDER BY id DESC LIMIT ? OFFSET ?`, room, limit, offset)
    if err != nil {
        return p, fmt.Errorf("couldn't list the messages: %w", err)
    }
    defer rows.Close()

    p.Results = []chatrooms.ChatMessage{}
    for rows.Next() {
        m, err := scanMessage(rows)
        if err != nil {
            return p, fmt.Errorf("couldn't read a message: %w", err)
        }
        p.Results = append(p.Results, m)
    }

    return p, rows.Err()
}
