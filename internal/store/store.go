// Package store persists user profiles, shared locations and the command
// log over SQLite. Every write here is fire-and-forget from the bot's
// point of view: failures are logged by the caller, never surfaced to the
// end user.
package store

import (
	"database/sql"
	"time"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// User is a messaging-platform user profile snapshot.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	FirstSeen time.Time
	LastSeen  time.Time
}

// UpsertUser records a user, updating the profile and last-seen time on
// repeat contact.
func (s *Store) UpsertUser(u User) error {
	now := time.Now().UTC()
	_, err := s.db.Exec(`
		INSERT INTO users (user_id, username, first_name, last_name, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			last_seen = excluded.last_seen
	`, u.ID, u.Username, u.FirstName, u.LastName, now, now)
	return err
}

func (s *Store) GetUser(userID int64) (*User, error) {
	row := s.db.QueryRow(`
		SELECT user_id, username, first_name, last_name, first_seen, last_seen
		FROM users WHERE user_id = ?
	`, userID)

	var u User
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.FirstSeen, &u.LastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// RecordUserLocation stores a shared "lon,lat" coordinate pair.
func (s *Store) RecordUserLocation(userID int64, location string) error {
	_, err := s.db.Exec(`
		INSERT INTO user_locations (user_id, location, recorded_at)
		VALUES (?, ?, ?)
	`, userID, location, time.Now().UTC())
	return err
}

// LogCommand appends one dispatched command to the analytics log.
func (s *Store) LogCommand(chatID, userID int64, command string) error {
	_, err := s.db.Exec(`
		INSERT INTO command_log (chat_id, user_id, command, at)
		VALUES (?, ?, ?, ?)
	`, chatID, userID, command, time.Now().UTC())
	return err
}

// CommandCounts returns how often each command was dispatched.
func (s *Store) CommandCounts() (map[string]int64, error) {
	rows, err := s.db.Query(`SELECT command, COUNT(*) FROM command_log GROUP BY command`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		var command string
		var n int64
		if err := rows.Scan(&command, &n); err != nil {
			return nil, err
		}
		counts[command] = n
	}
	return counts, rows.Err()
}

// RecordDeviceSelection stores a chat's device choice.
func (s *Store) RecordDeviceSelection(chatID int64, deviceID, deviceName string) error {
	_, err := s.db.Exec(`
		INSERT INTO device_selections (chat_id, device_id, device_name, at)
		VALUES (?, ?, ?, ?)
	`, chatID, deviceID, deviceName, time.Now().UTC())
	return err
}

// LastDeviceSelection returns a chat's most recent device choice, or
// empty strings if the chat never picked one.
func (s *Store) LastDeviceSelection(chatID int64) (deviceID, deviceName string, err error) {
	row := s.db.QueryRow(`
		SELECT device_id, device_name FROM device_selections
		WHERE chat_id = ?
		ORDER BY at DESC
		LIMIT 1
	`, chatID)
	err = row.Scan(&deviceID, &deviceName)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	return deviceID, deviceName, err
}
