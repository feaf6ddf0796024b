package creds

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	login         TEXT PRIMARY KEY,
	password_hash TEXT NOT NULL,
	nickname      TEXT NOT NULL UNIQUE
);`

// SQLiteStore keeps credentials in a local SQLite file. Passwords are stored
// as bcrypt hashes.
type SQLiteStore struct {
	path string
	db   *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Connect() error {
	if strings.TrimSpace(s.path) == "" {
		return fmt.Errorf("credential db path is required")
	}
	dsn := filepath.Clean(s.path) + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("open credential db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping credential db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return fmt.Errorf("apply credential schema: %w", err)
	}
	s.db = db
	return nil
}

func (s *SQLiteStore) Disconnect() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// LookupNickname resolves a login/password pair to a nickname. A missing
// login and a wrong password both come back as ErrUnknownIdentity.
func (s *SQLiteStore) LookupNickname(login, password string) (string, error) {
	if s.db == nil {
		return "", fmt.Errorf("credential store is not connected")
	}
	var hash, nickname string
	err := s.db.QueryRow(
		`SELECT password_hash, nickname FROM users WHERE login = ?`, login,
	).Scan(&hash, &nickname)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrUnknownIdentity
	}
	if err != nil {
		return "", fmt.Errorf("lookup login %q: %w", login, err)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", ErrUnknownIdentity
	}
	return nickname, nil
}

// AddUser inserts or replaces one credential row, hashing the password.
func (s *SQLiteStore) AddUser(login, password, nickname string) error {
	if s.db == nil {
		return fmt.Errorf("credential store is not connected")
	}
	if login == "" || password == "" || nickname == "" {
		return fmt.Errorf("login, password and nickname are all required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO users (login, password_hash, nickname) VALUES (?, ?, ?)`,
		login, string(hash), nickname,
	)
	if err != nil {
		return fmt.Errorf("insert user %q: %w", login, err)
	}
	return nil
}
