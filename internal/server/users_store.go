package server

import (
	"database/sql"
	"errors"
	"fmt"
)

// ErrUserNotFound is returned by UsersStore.GetUser for unknown usernames.
var ErrUserNotFound = errors.New("user not found")

// UserRecord holds a username and everything needed to verify a password
// against it. Records are created by the adduser command only; the
// authenticated API never mutates them.
type UserRecord struct {
	Username         string
	PasswordHashInfo PasswordHashInfo
}

// UsersStore persists user credentials in a SQLite table.
type UsersStore struct {
	db    *sql.DB
	table string
}

// NewUsersStore returns a store bound to the given table, lazily creating
// the schema.
func NewUsersStore(db *sql.DB, table string) (*UsersStore, error) {
	if table == "" {
		table = "users"
	}
	s := &UsersStore{db: db, table: table}
	if err := s.Init(); err != nil {
		return nil, err
	}
	return s, nil
}

// Init creates the users table if it does not exist yet. Idempotent.
// The iteration count is stored per row so verification stays correct if
// the default ever changes for new accounts.
func (s *UsersStore) Init() error {
	_, err := s.db.Exec(fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		username TEXT PRIMARY KEY,
		hashed_password TEXT NOT NULL,
		salt TEXT NOT NULL,
		iterations INTEGER NOT NULL
	)`, s.table))
	if err != nil {
		return fmt.Errorf("init users table: %w", err)
	}
	return nil
}

// GetUser looks up one user by username.
func (s *UsersStore) GetUser(username string) (UserRecord, error) {
	var u UserRecord
	err := s.db.QueryRow(fmt.Sprintf(
		`SELECT username, hashed_password, salt, iterations FROM %s WHERE username = ?`, s.table),
		username,
	).Scan(&u.Username, &u.PasswordHashInfo.Hash, &u.PasswordHashInfo.Salt, &u.PasswordHashInfo.Iterations)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return UserRecord{}, ErrUserNotFound
		}
		return UserRecord{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// AddUser inserts one user and returns the number of rows affected.
func (s *UsersStore) AddUser(u UserRecord) (int64, error) {
	res, err := s.db.Exec(fmt.Sprintf(
		`INSERT INTO %s (username, hashed_password, salt, iterations) VALUES (?, ?, ?, ?)`, s.table),
		u.Username, u.PasswordHashInfo.Hash, u.PasswordHashInfo.Salt, u.PasswordHashInfo.Iterations)
	if err != nil {
		return 0, fmt.Errorf("add user: %w", err)
	}
	return res.RowsAffected()
}
