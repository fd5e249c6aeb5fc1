// Package migration moves data from the pre-rewrite store into the current
// schema. It runs once, tolerates partially broken legacy data, and never
// blocks startup on failure.
package migration

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/matheus3301/chatarc/internal/store"
	"go.uber.org/zap"
)

// batchSize bounds how many legacy rows are held in memory at once.
const batchSize = 200

// Result reports what the migration accomplished.
type Result struct {
	Success           bool
	MigratedChats     int
	MigratedMessages  int
	MigratedBookmarks int
	SkippedBookmarks  int
}

// Coordinator detects and performs the one-time legacy migration.
type Coordinator struct {
	handle     *store.Handle
	legacyPath string
	flagPath   string
	logger     *zap.Logger
}

// New creates a coordinator. flagPath is the attempted-flag marker file; it
// lives outside the versioned store so it survives schema upgrades.
func New(handle *store.Handle, legacyPath, flagPath string, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		handle:     handle,
		legacyPath: legacyPath,
		flagPath:   flagPath,
		logger:     logger,
	}
}

// NeedsMigration reports whether the legacy store holds at least one chat
// while the current store holds none. Once the current store is non-empty —
// or a previous attempt left the flag — this never triggers again, even if
// the legacy file still exists.
func (c *Coordinator) NeedsMigration() (bool, error) {
	if _, err := os.Stat(c.flagPath); err == nil {
		return false, nil
	}

	legacy, err := OpenLegacy(c.legacyPath)
	if err != nil {
		return false, err
	}
	if legacy == nil {
		return false, nil
	}
	defer func() { _ = legacy.Close() }()

	legacyChats, err := legacy.ChatCount()
	if err != nil {
		return false, fmt.Errorf("count legacy chats: %w", err)
	}
	if legacyChats == 0 {
		return false, nil
	}

	db, err := c.handle.Acquire()
	if err != nil {
		return false, err
	}
	currentChats, err := db.ChatCount()
	if err != nil {
		return false, fmt.Errorf("count current chats: %w", err)
	}
	return currentChats == 0, nil
}

// Run performs the migration: legacy chats and messages in bounded batches
// through the store's normal mutation API, then legacy bookmarks resolved
// against the freshly migrated rows into denormalized form. Individual
// record failures are counted and skipped; only an unreachable store fails
// the run. The attempted-flag is written regardless of skips so a partially
// broken legacy source is not retried on every load.
func (c *Coordinator) Run() (*Result, error) {
	legacy, err := OpenLegacy(c.legacyPath)
	if err != nil {
		return nil, err
	}
	if legacy == nil {
		return nil, errors.New("legacy store missing")
	}
	defer func() { _ = legacy.Close() }()

	db, err := c.handle.Acquire()
	if err != nil {
		return nil, err
	}

	res := &Result{}

	for offset := 0; ; offset += batchSize {
		chats, err := legacy.Chats(batchSize, offset)
		if err != nil {
			return nil, fmt.Errorf("read legacy chats: %w", err)
		}
		if len(chats) == 0 {
			break
		}
		for i := range chats {
			if err := c.migrateChat(legacy, db, &chats[i], res); err != nil {
				return nil, err
			}
		}
	}

	if err := c.migrateBookmarks(legacy, db, res); err != nil {
		return nil, err
	}

	res.Success = true
	c.writeFlag(res)
	c.cleanupAsync()

	c.logger.Info("legacy migration complete",
		zap.Int("chats", res.MigratedChats),
		zap.Int("messages", res.MigratedMessages),
		zap.Int("bookmarks", res.MigratedBookmarks),
		zap.Int("skipped_bookmarks", res.SkippedBookmarks))
	return res, nil
}

func (c *Coordinator) migrateChat(legacy *LegacyStore, db *store.DB, chat *store.Chat, res *Result) error {
	if err := db.UpsertChat(chat); err != nil {
		return fmt.Errorf("migrate chat %q: %w", chat.ID, err)
	}
	res.MigratedChats++

	for offset := 0; ; offset += batchSize {
		msgs, err := legacy.Messages(chat.ID, batchSize, offset)
		if err != nil {
			return fmt.Errorf("read legacy messages for chat %q: %w", chat.ID, err)
		}
		if len(msgs) == 0 {
			return nil
		}
		if err := db.InsertMessages(msgs); err != nil {
			return fmt.Errorf("migrate messages for chat %q: %w", chat.ID, err)
		}
		res.MigratedMessages += len(msgs)
	}
}

func (c *Coordinator) migrateBookmarks(legacy *LegacyStore, db *store.DB, res *Result) error {
	bookmarks, err := legacy.Bookmarks()
	if err != nil {
		return fmt.Errorf("read legacy bookmarks: %w", err)
	}

	for _, lb := range bookmarks {
		msg, err := db.GetMessage(lb.MessageID)
		if err != nil {
			return fmt.Errorf("lookup message %q: %w", lb.MessageID, err)
		}
		chat, err := db.GetChat(lb.ChatID)
		if err != nil {
			return fmt.Errorf("lookup chat %q: %w", lb.ChatID, err)
		}

		b, err := ResolveBookmark(lb, msg, chat)
		if err != nil {
			// Dangling reference: skip this bookmark, keep the rest.
			res.SkippedBookmarks++
			c.logger.Warn("skipping legacy bookmark", zap.String("id", lb.ID), zap.Error(err))
			continue
		}
		if err := db.PutBookmark(b); err != nil {
			return fmt.Errorf("migrate bookmark %q: %w", lb.ID, err)
		}
		res.MigratedBookmarks++
	}
	return nil
}

func (c *Coordinator) writeFlag(res *Result) {
	content := fmt.Sprintf("migrated_at=%s\nchats=%d\nmessages=%d\nbookmarks=%d\nskipped=%d\n",
		time.Now().UTC().Format(time.RFC3339),
		res.MigratedChats, res.MigratedMessages, res.MigratedBookmarks, res.SkippedBookmarks)
	if err := os.WriteFile(c.flagPath, []byte(content), 0600); err != nil {
		c.logger.Warn("could not write migration flag", zap.Error(err))
	}
}

// cleanupAsync deletes the legacy database in the background. Failure is
// logged, never surfaced to the user.
func (c *Coordinator) cleanupAsync() {
	path := c.legacyPath
	logger := c.logger
	go func() {
		if err := os.Remove(path); err != nil {
			logger.Warn("legacy store cleanup failed", zap.String("path", path), zap.Error(err))
			return
		}
		logger.Info("legacy store removed", zap.String("path", path))
	}()
}
