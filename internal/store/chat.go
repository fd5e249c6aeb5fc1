package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// UpsertChat inserts or updates a chat metadata row.
func (db *DB) UpsertChat(c *Chat) error {
	participants, err := marshalParticipants(c.Participants)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		INSERT INTO chats (id, name, created_at, last_message_time, message_count, participant_count, participants)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			last_message_time = excluded.last_message_time,
			message_count = excluded.message_count,
			participant_count = excluded.participant_count,
			participants = excluded.participants`,
		c.ID, c.Name, c.CreatedAt, c.LastMessageTime, c.MessageCount, c.ParticipantCount, participants)
	return err
}

// SaveImport persists one parsed transcript — the chat row plus all of its
// messages — in a single transaction. Messages without a derived timestamp
// get one from their date+time fields.
func (db *DB) SaveImport(c *Chat, msgs []Message) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	participants, err := marshalParticipants(c.Participants)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`
		INSERT INTO chats (id, name, created_at, last_message_time, message_count, participant_count, participants)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.CreatedAt, c.LastMessageTime, c.MessageCount, c.ParticipantCount, participants); err != nil {
		return fmt.Errorf("insert chat: %w", err)
	}

	for i := range msgs {
		m := &msgs[i]
		if m.Timestamp == 0 {
			m.Timestamp = DeriveTimestamp(m.Date, m.Time)
		}
		if _, err := tx.Exec(`
			INSERT INTO messages (id, chat_id, date, time, sender, content, is_system, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, c.ID, m.Date, m.Time, m.Sender, m.Content, m.IsSystem, m.Timestamp); err != nil {
			return fmt.Errorf("insert message %q: %w", m.ID, err)
		}
	}

	return tx.Commit()
}

// ListChats returns all chat metadata ordered by import time descending.
// Message bodies are never loaded here.
func (db *DB) ListChats() ([]Chat, error) {
	rows, err := db.Query(`
		SELECT id, name, created_at, last_message_time, message_count, participant_count, participants
		FROM chats
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		chats = append(chats, *c)
	}
	return chats, rows.Err()
}

// GetChat returns a single chat by id, or nil when absent.
func (db *DB) GetChat(id string) (*Chat, error) {
	row := db.QueryRow(`
		SELECT id, name, created_at, last_message_time, message_count, participant_count, participants
		FROM chats WHERE id = ?`, id)
	c, err := scanChat(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// DeleteChat removes the chat row, every message with the chat's id (via the
// chat_id index) and every bookmark snapshotted from it, as one transaction.
// Returns ErrNotFound if the chat does not exist.
func (db *DB) DeleteChat(id string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`DELETE FROM chats WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: chat %q", ErrNotFound, id)
	}
	if _, err := tx.Exec(`DELETE FROM messages WHERE chat_id = ?`, id); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM bookmarks WHERE chat_id = ?`, id); err != nil {
		return fmt.Errorf("delete bookmarks: %w", err)
	}

	return tx.Commit()
}

// ChatCount returns the total number of chats.
func (db *DB) ChatCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM chats`).Scan(&count)
	return count, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanChat(row rowScanner) (*Chat, error) {
	var c Chat
	var participants string
	if err := row.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.LastMessageTime,
		&c.MessageCount, &c.ParticipantCount, &participants); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(participants), &c.Participants); err != nil {
		return nil, fmt.Errorf("decode participants for chat %q: %w", c.ID, err)
	}
	return &c, nil
}

func marshalParticipants(participants []string) (string, error) {
	if participants == nil {
		participants = []string{}
	}
	data, err := json.Marshal(participants)
	if err != nil {
		return "", fmt.Errorf("encode participants: %w", err)
	}
	return string(data), nil
}
