package store

import "database/sql"

// PutBookmark upserts a denormalized bookmark. A second save for the same
// message id overwrites the previous snapshot in place.
func (db *DB) PutBookmark(b *Bookmark) error {
	_, err := db.Exec(`
		INSERT INTO bookmarks (id, chat_id, created_at, sender, content, date, time, chat_name, is_system)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			chat_id = excluded.chat_id,
			created_at = excluded.created_at,
			sender = excluded.sender,
			content = excluded.content,
			date = excluded.date,
			time = excluded.time,
			chat_name = excluded.chat_name,
			is_system = excluded.is_system`,
		b.ID, b.ChatID, b.CreatedAt, b.Sender, b.Content, b.Date, b.Time, b.ChatName, b.IsSystem)
	return err
}

// DeleteBookmark removes a bookmark by message id. Deleting an absent
// bookmark is a no-op, not an error.
func (db *DB) DeleteBookmark(id string) error {
	_, err := db.Exec(`DELETE FROM bookmarks WHERE id = ?`, id)
	return err
}

// ListBookmarks returns all bookmarks newest-first. This touches only the
// bookmarks table — snapshots are complete, so no join is ever needed.
func (db *DB) ListBookmarks() ([]Bookmark, error) {
	rows, err := db.Query(`
		SELECT id, chat_id, created_at, sender, content, date, time, chat_name, is_system
		FROM bookmarks
		ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var bookmarks []Bookmark
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.ID, &b.ChatID, &b.CreatedAt, &b.Sender, &b.Content,
			&b.Date, &b.Time, &b.ChatName, &b.IsSystem); err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

// ListChatBookmarks returns one chat's bookmarks newest-first via the
// (chat_id, created_at) index.
func (db *DB) ListChatBookmarks(chatID string) ([]Bookmark, error) {
	rows, err := db.Query(`
		SELECT id, chat_id, created_at, sender, content, date, time, chat_name, is_system
		FROM bookmarks
		WHERE chat_id = ?
		ORDER BY created_at DESC, id DESC`, chatID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var bookmarks []Bookmark
	for rows.Next() {
		var b Bookmark
		if err := rows.Scan(&b.ID, &b.ChatID, &b.CreatedAt, &b.Sender, &b.Content,
			&b.Date, &b.Time, &b.ChatName, &b.IsSystem); err != nil {
			return nil, err
		}
		bookmarks = append(bookmarks, b)
	}
	return bookmarks, rows.Err()
}

// BookmarkExists reports whether a bookmark exists for the given message id.
// Primary-key lookup only.
func (db *DB) BookmarkExists(id string) (bool, error) {
	var one int
	err := db.QueryRow(`SELECT 1 FROM bookmarks WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// BookmarkCount returns the total number of bookmarks.
func (db *DB) BookmarkCount() (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM bookmarks`).Scan(&count)
	return count, err
}
