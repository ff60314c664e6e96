package cache

import (
	"database/sql"
	"fmt"
	"net/http"
	"time"
)

// SessionRecord is what survives a restart of the client: the jar cookies
// for one API origin and the username they belong to.
type SessionRecord struct {
	Username string
	Cookies  []*http.Cookie
	SavedAt  time.Time
}

// SaveSession replaces the persisted session for origin.
func (d *DB) SaveSession(origin string, rec SessionRecord) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning session tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().Unix()
	if _, err := tx.Exec(`INSERT OR REPLACE INTO sessions (origin, username, saved_at) VALUES (?, ?, ?)`,
		origin, nullStr(rec.Username), now); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM cookies WHERE origin = ?`, origin); err != nil {
		return fmt.Errorf("clearing cookies: %w", err)
	}
	for _, c := range rec.Cookies {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO cookies (origin, name, value, saved_at) VALUES (?, ?, ?, ?)`,
			origin, c.Name, c.Value, now); err != nil {
			return fmt.Errorf("saving cookie %s: %w", c.Name, err)
		}
	}
	return tx.Commit()
}

// LoadSession returns the persisted session for origin, or nil when none
// is stored.
func (d *DB) LoadSession(origin string) (*SessionRecord, error) {
	var rec SessionRecord
	var username sql.NullString
	var savedAt int64
	err := d.db.QueryRow(`SELECT username, saved_at FROM sessions WHERE origin = ?`, origin).
		Scan(&username, &savedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	rec.Username = username.String
	rec.SavedAt = time.Unix(savedAt, 0)

	rows, err := d.db.Query(`SELECT name, value FROM cookies WHERE origin = ? ORDER BY name`, origin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var c http.Cookie
		if err := rows.Scan(&c.Name, &c.Value); err != nil {
			return nil, err
		}
		rec.Cookies = append(rec.Cookies, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &rec, nil
}

// DeleteSession drops the persisted session and its cookies for origin.
// Deleting a missing session is not an error.
func (d *DB) DeleteSession(origin string) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cookies WHERE origin = ?`, origin); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM sessions WHERE origin = ?`, origin); err != nil {
		return err
	}
	return tx.Commit()
}
