package migration

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"

	"github.com/matheus3301/chatarc/internal/store"
	_ "github.com/mattn/go-sqlite3"
)

// LegacyBookmark is the normalized bookmark row shape of the pre-rewrite
// store: a bare reference that must be joined against messages and chats to
// produce today's denormalized record.
type LegacyBookmark struct {
	ID        string
	ChatID    string
	MessageID string
	CreatedAt int64
}

// LegacyStore reads the pre-rewrite database. Chats and messages kept their
// row shape across the rewrite; only the store name and the bookmark layout
// changed. The coordinator never writes here except to delete the file
// wholesale during cleanup.
type LegacyStore struct {
	db   *sql.DB
	path string
}

// OpenLegacy opens the legacy database read-only. Returns nil (no error)
// when the file does not exist.
func OpenLegacy(path string) (*LegacyStore, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil
	}
	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open legacy store: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping legacy store: %w", err)
	}
	return &LegacyStore{db: db, path: path}, nil
}

// ChatCount returns the number of chats in the legacy store.
func (l *LegacyStore) ChatCount() (int64, error) {
	var count int64
	err := l.db.QueryRow(`SELECT COUNT(*) FROM chats`).Scan(&count)
	return count, err
}

// Chats returns one batch of legacy chats ordered by id.
func (l *LegacyStore) Chats(limit, offset int) ([]store.Chat, error) {
	rows, err := l.db.Query(`
		SELECT id, name, created_at, last_message_time, message_count, participant_count, participants
		FROM chats ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var chats []store.Chat
	for rows.Next() {
		var c store.Chat
		var participants string
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.LastMessageTime,
			&c.MessageCount, &c.ParticipantCount, &participants); err != nil {
			return nil, err
		}
		c.Participants = decodeParticipants(participants)
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

// Messages returns one batch of a chat's legacy messages ordered by timestamp.
func (l *LegacyStore) Messages(chatID string, limit, offset int) ([]store.Message, error) {
	rows, err := l.db.Query(`
		SELECT id, chat_id, date, time, sender, content, is_system, timestamp
		FROM messages WHERE chat_id = ?
		ORDER BY timestamp, id LIMIT ? OFFSET ?`, chatID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []store.Message
	for rows.Next() {
		var m store.Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.Date, &m.Time, &m.Sender,
			&m.Content, &m.IsSystem, &m.Timestamp); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// Bookmarks returns all legacy bookmark references.
func (l *LegacyStore) Bookmarks() ([]LegacyBookmark, error) {
	rows, err := l.db.Query(`SELECT id, chat_id, message_id, created_at FROM bookmarks ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var bookmarks []LegacyBookmark
	for rows.Next() {
		var b LegacyBookmark
		if err := rows.Scan(&b.ID, &b.ChatID, &b.MessageID, &b.CreatedAt); err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

// Close closes the legacy connection.
func (l *LegacyStore) Close() error {
	return l.db.Close()
}

// Delete removes the legacy database file from disk.
func (l *LegacyStore) Delete() error {
	return os.Remove(l.path)
}

func decodeParticipants(raw string) []string {
	// Legacy rows stored the same JSON array the current schema uses.
	// A corrupt value degrades to the empty set rather than failing the row.
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return []string{}
	}
	return out
}
