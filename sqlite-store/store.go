// Package sqlite_store persists the users, rooms and messages used by
// https://github.com/SirGFM/go-chatrooms into a SQLite database, through
// https://github.com/mattn/go-sqlite3.
//
// A `Store` implements both `Directory` and `MessageStore`, so it may be
// given directly to `go_chatrooms.NewServer`.
package sqlite_store

import (
    "context"
    "crypto/rand"
    "database/sql"
    "encoding/hex"
    "errors"
    "fmt"
    chatrooms "github.com/SirGFM/go-chatrooms"
    "github.com/mattn/go-sqlite3"
    "golang.org/x/crypto/bcrypt"
    "strings"
    "time"
)

// The name under which the driver is registered by go-sqlite3.
const driverName = "sqlite3"

// Number of random bytes in each token.
const tokenSize = 20

// Cost used to hash passwords.
const DefaultBcryptCost = bcrypt.DefaultCost

// schema is applied whenever a store is opened.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email TEXT NOT NULL UNIQUE,
    password TEXT NOT NULL,
    date_join TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS tokens (
    key TEXT PRIMARY KEY,
    user_id INTEGER NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
    created TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS rooms (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    creator_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    UNIQUE (creator_id, title)
);

CREATE TABLE IF NOT EXISTS participants (
    room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
    user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    PRIMARY KEY (room_id, user_id)
);

CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    text TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    is_deleted BOOLEAN NOT NULL DEFAULT 0,
    author_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    room_id TEXT NOT NULL REFERENCES rooms(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS messages_by_room ON messages (room_id, id);
`

// Store is the SQLite storage of the chat server.
type Store struct {
    db *sql.DB

    // cost used to hash new passwords.
    cost int
}

var _ chatrooms.Directory = (*Store)(nil)
var _ chatrooms.MessageStore = (*Store)(nil)

// Page is a slice of a longer list.
type Page[T any] struct {
    // Total number of items in the whole list.
    Total int `json:"total"`

    // Results in this page.
    Results []T `json:"results"`
}

// Open the database at `path`, creating its tables as required.
//
// `path` may be ":memory:" for a private, temporary database.
func Open(path string) (*Store, error) {
    return OpenCost(path, DefaultBcryptCost)
}

// OpenCost open the database at `path`, hashing passwords with `cost`.
func OpenCost(path string, cost int) (*Store, error) {
    dsn := path
    if strings.Contains(dsn, "?") {
        dsn += "&_foreign_keys=on"
    } else {
        dsn += "?_foreign_keys=on"
    }

    db, err := sql.Open(driverName, dsn)
    if err != nil {
        return nil, fmt.Errorf("couldn't open the database: %w", err)
    }
    // SQLite has a single writer, and every connection to ":memory:" would
    // be a different database.
    db.SetMaxOpenConns(1)

    if _, err := db.Exec(schema); err != nil {
        db.Close()
        return nil, fmt.Errorf("couldn't create the tables: %w", err)
    }

    return &Store {
        db: db,
        cost: cost,
    }, nil
}

// Close the database.
func (s *Store) Close() error {
    return s.db.Close()
}

// isUniqueViolation check whether `err` was caused by a duplicated key.
func isUniqueViolation(err error) bool {
    var serr sqlite3.Error
    if errors.As(err, &serr) {
        return serr.ExtendedCode == sqlite3.ErrConstraintUnique ||
                serr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
    }
    return false
}

// newToken generate a random hex-encoded key.
func newToken() (string, error) {
    var buf [tokenSize]byte

    if _, err := rand.Read(buf[:]); err != nil {
        return "", fmt.Errorf("couldn't generate a token: %w", err)
    }
    return hex.EncodeToString(buf[:]), nil
}

// CreateUser register a new user identified by `email`.
//
// If the email is already registered, `AlreadyExists` is returned.
func (s *Store) CreateUser(ctx context.Context, email, password string) (chatrooms.User, error) {
    hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
    if err != nil {
        return chatrooms.User{}, fmt.Errorf("couldn't hash the password: %w", err)
    }

    res, err := s.db.ExecContext(ctx,
            `INSERT INTO users (email, password, date_join) VALUES (?, ?, ?)`,
            email, string(hash), time.Now().UTC())
    if isUniqueViolation(err) {
        return chatrooms.User{}, chatrooms.AlreadyExists
    } else if err != nil {
        return chatrooms.User{}, fmt.Errorf("couldn't create the user: %w", err)
    }

    id, err := res.LastInsertId()
    if err != nil {
        return chatrooms.User{}, fmt.Errorf("couldn't retrieve the user's ID: %w", err)
    }

    return chatrooms.User {
        ID: chatrooms.UserID(id),
        Email: email,
    }, nil
}

// Authenticate retrieve the user identified by `email`, if `password`
// matches the stored one. Otherwise, `NotFound` is returned.
func (s *Store) Authenticate(ctx context.Context, email, password string) (chatrooms.User, error) {
    var u chatrooms.User
    var hash string

    err := s.db.QueryRowContext(ctx,
            `SELECT id, email, password FROM users WHERE email = ?`,
            email).Scan(&u.ID, &u.Email, &hash)
    if errors.Is(err, sql.ErrNoRows) {
        return chatrooms.User{}, chatrooms.NotFound
    } else if err != nil {
        return chatrooms.User{}, fmt.Errorf("couldn't retrieve the user: %w", err)
    }

    if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
        return chatrooms.User{}, chatrooms.NotFound
    }
    return u, nil
}

// GetUser retrieve the user identified by `id`.
func (s *Store) GetUser(ctx context.Context, id chatrooms.UserID) (chatrooms.User, error) {
    var u chatrooms.User

    err := s.db.QueryRowContext(ctx,
            `SELECT id, email FROM users WHERE id = ?`, id).Scan(&u.ID, &u.Email)
    if errors.Is(err, sql.ErrNoRows) {
        return chatrooms.User{}, chatrooms.NotFound
    } else if err != nil {
        return chatrooms.User{}, fmt.Errorf("couldn't retrieve the user: %w", err)
    }

    return u, nil
}

// IssueToken retrieve the token of `user`, generating one if it doesn't
// have any.
func (s *Store) IssueToken(ctx context.Context, user chatrooms.UserID) (string, error) {
    var key string

    err := s.db.QueryRowContext(ctx,
            `SELECT key FROM tokens WHERE user_id = ?`, user).Scan(&key)
    if err == nil {
        return key, nil
    } else if !errors.Is(err, sql.ErrNoRows) {
        return "", fmt.Errorf("couldn't retrieve the token: %w", err)
    }

    key, err = newToken()
    if err != nil {
        return "", err
    }

    _, err = s.db.ExecContext(ctx,
            `INSERT INTO tokens (key, user_id, created) VALUES (?, ?, ?)`,
            key, user, time.Now().UTC())
    if err != nil {
        return "", fmt.Errorf("couldn't store the token: %w", err)
    }

    return key, nil
}

// RevokeToken remove the token of `user`, if any.
func (s *Store) RevokeToken(ctx context.Context, user chatrooms.UserID) error {
    _, err := s.db.ExecContext(ctx, `DELETE FROM tokens WHERE user_id = ?`, user)
    if err != nil {
        return fmt.Errorf("couldn't revoke the token: %w", err)
    }
    return nil
}

// ResolveUser retrieve the user that owns the token `credential`.
func (s *Store) ResolveUser(ctx context.Context, credential string) (chatrooms.User, error) {
    var u chatrooms.User

    err := s.db.QueryRowContext(ctx,
            `SELECT users.id, users.email FROM tokens
            INNER JOIN users ON users.id = tokens.user_id
            WHERE tokens.key = ?`, credential).Scan(&u.ID, &u.Email)
    if errors.Is(err, sql.ErrNoRows) {
        return chatrooms.User{}, chatrooms.NotFound
    } else if err != nil {
        return chatrooms.User{}, fmt.Errorf("couldn't resolve the token: %w", err)
    }

    return u, nil
}
