package history

import (
	"database/sql"
	"errors"
	"fmt"
)

// SQLitePrefs is a PrefStore backed by the prefs table of a database opened
// with OpenDB.
type SQLitePrefs struct {
	db *sql.DB
}

// NewSQLitePrefs wraps an open database.
func NewSQLitePrefs(db *sql.DB) *SQLitePrefs {
	return &SQLitePrefs{db: db}
}

func (s *SQLitePrefs) GetString(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM prefs WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		sub("prefs").Debug("GetString", "key", key, "found", false)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get pref %q: %w", key, err)
	}
	sub("prefs").Debug("GetString", "key", key, "found", true)
	return value, nil
}

func (s *SQLitePrefs) SetString(key, value string) error {
	sub("prefs").Debug("SetString", "key", key, "bytes", len(value))
	_, err := s.db.Exec(`
		INSERT INTO prefs (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value      = excluded.value,
			updated_at = excluded.updated_at
	`, key, value, nowFunc().UnixNano())
	if err != nil {
		return fmt.Errorf("set pref %q: %w", key, err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLitePrefs) Close() error {
	return s.db.Close()
}
