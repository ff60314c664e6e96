package cache

import (
	"database/sql"
	"time"
)

// Profile is the user_info snapshot of the last successful example fetch.
type Profile struct {
	Username    string
	Message     string
	BankBalance float64
	FetchedAt   time.Time
}

// GetProfile retrieves a cached profile. Returns (profile, isFresh, error).
// Returns nil profile on cache miss.
func (d *DB) GetProfile(username string, ttl time.Duration) (*Profile, bool, error) {
	row := d.db.QueryRow(`SELECT username, message, bank_balance, fetched_at FROM profiles WHERE username = ?`, username)
	return scanProfile(row, ttl)
}

// LatestProfile returns the most recently fetched profile of any user.
func (d *DB) LatestProfile(ttl time.Duration) (*Profile, bool, error) {
	row := d.db.QueryRow(`SELECT username, message, bank_balance, fetched_at FROM profiles
		ORDER BY fetched_at DESC LIMIT 1`)
	return scanProfile(row, ttl)
}

// PutProfile stores a profile, stamping it with the current time.
func (d *DB) PutProfile(p Profile) error {
	_, err := d.db.Exec(`INSERT OR REPLACE INTO profiles (username, message, bank_balance, fetched_at) VALUES (?, ?, ?, ?)`,
		p.Username, nullStr(p.Message), p.BankBalance, time.Now().Unix())
	return err
}

func scanProfile(row *sql.Row, ttl time.Duration) (*Profile, bool, error) {
	var p Profile
	var message sql.NullString
	var fetchedAt int64

	err := row.Scan(&p.Username, &message, &p.BankBalance, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	p.Message = message.String
	p.FetchedAt = time.Unix(fetchedAt, 0)

	isFresh := time.Since(p.FetchedAt) < ttl
	return &p, isFresh, nil
}

func nullStr(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
