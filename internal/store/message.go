package store

import (
	"database/sql"
	"fmt"
)

// InsertMessages bulk-inserts messages in a single transaction. Used by the
// legacy migration; transcript imports go through SaveImport. Messages
// without a derived timestamp get one from their date+time fields.
func (db *DB) InsertMessages(msgs []Message) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range msgs {
		m := &msgs[i]
		if m.Timestamp == 0 {
			m.Timestamp = DeriveTimestamp(m.Date, m.Time)
		}
		if _, err := tx.Exec(`
			INSERT INTO messages (id, chat_id, date, time, sender, content, is_system, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO NOTHING`,
			m.ID, m.ChatID, m.Date, m.Time, m.Sender, m.Content, m.IsSystem, m.Timestamp); err != nil {
			return fmt.Errorf("insert message %q: %w", m.ID, err)
		}
	}
	return tx.Commit()
}

// ListChatMessages returns a chat's messages ordered by timestamp ascending,
// walking the (chat_id, timestamp) index. Offset applies before limit on the
// already-ordered result. limit <= 0 means no limit.
func (db *DB) ListChatMessages(chatID string, limit, offset int) ([]Message, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := db.Query(`
		SELECT id, chat_id, date, time, sender, content, is_system, timestamp
		FROM messages
		WHERE chat_id = ?
		ORDER BY timestamp ASC, id ASC
		LIMIT ? OFFSET ?`, chatID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Date, &m.Time, &m.Sender,
			&m.Content, &m.IsSystem, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// GetMessage returns a single message by id, or nil when absent.
func (db *DB) GetMessage(id string) (*Message, error) {
	var m Message
	err := db.QueryRow(`
		SELECT id, chat_id, date, time, sender, content, is_system, timestamp
		FROM messages WHERE id = ?`, id).
		Scan(&m.ID, &m.ChatID, &m.Date, &m.Time, &m.Sender, &m.Content, &m.IsSystem, &m.Timestamp)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// MessageCount returns the total number of messages.
func (db *DB) MessageCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&count)
	return count, err
}
