package store

import (
	"fmt"
	"sync"
)

// Handle owns the shared database connection for one profile. It is opened
// lazily on first use and reused afterwards; an invalidated connection is
// detected by ping and transparently reopened instead of producing permanent
// failure. Tests create an isolated Handle per temp dir instead of relying
// on ambient global state.
type Handle struct {
	mu   sync.Mutex
	path string
	db   *DB
}

// NewHandle creates a handle for the database at path. No connection is
// opened until Acquire.
func NewHandle(path string) *Handle {
	return &Handle{path: path}
}

// Acquire returns the live connection, opening (and migrating) it if needed.
func (h *Handle) Acquire() (*DB, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.db != nil {
		if err := h.db.Ping(); err == nil {
			return h.db, nil
		}
		// Connection invalidated; drop it and reopen below.
		_ = h.db.Close()
		h.db = nil
	}

	db, err := Open(h.path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	h.db = db
	return h.db, nil
}

// Close closes the connection if one is open. A later Acquire reopens it.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}
