package store

import "database/sql"

// SetMeta stores a free-form key/value pair.
func (db *DB) SetMeta(key, value string) error {
	_, err := db.Exec(`
		INSERT INTO metadata (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	return err
}

// GetMeta retrieves a metadata value. ok is false when the key is absent.
func (db *DB) GetMeta(key string) (value string, ok bool, err error) {
	err = db.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}
