// Package bookmarks maintains the denormalized bookmark list. Saves snapshot
// the message and its chat once; reads never join back to either.
package bookmarks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/matheus3301/chatarc/internal/bus"
	"github.com/matheus3301/chatarc/internal/perf"
	"github.com/matheus3301/chatarc/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrInFlight is returned when a save or remove for the same message id is
// already running. Callers drive optimistic local state and must not
// double-fire the same toggle.
var ErrInFlight = errors.New("bookmark operation already in flight for message")

// Service exposes the bookmark operations over the store.
type Service struct {
	handle  *store.Handle
	bus     *bus.Bus
	logger  *zap.Logger
	tracker *perf.Tracker

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewService creates a bookmark service.
func NewService(handle *store.Handle, b *bus.Bus, logger *zap.Logger, tracker *perf.Tracker) *Service {
	if tracker == nil {
		tracker = perf.Default
	}
	return &Service{
		handle:   handle,
		bus:      b,
		logger:   logger,
		tracker:  tracker,
		inflight: make(map[string]struct{}),
	}
}

// begin marks a message id as having a mutation in flight.
func (s *Service) begin(messageID string) (release func(), err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[messageID]; busy {
		return nil, fmt.Errorf("%w: %s", ErrInFlight, messageID)
	}
	s.inflight[messageID] = struct{}{}
	return func() {
		s.mu.Lock()
		delete(s.inflight, messageID)
		s.mu.Unlock()
	}, nil
}

// Save bookmarks a message, snapshotting its content and owning chat's name.
// Saving an already-bookmarked message overwrites the previous snapshot.
// Returns store.ErrNotFound when the message or its chat is absent; nothing
// is written in that case.
func (s *Service) Save(messageID string) error {
	release, err := s.begin(messageID)
	if err != nil {
		return err
	}
	defer release()
	defer s.tracker.Start("bookmark.save")()

	db, err := s.handle.Acquire()
	if err != nil {
		return err
	}

	msg, err := db.GetMessage(messageID)
	if err != nil {
		return fmt.Errorf("lookup message: %w", err)
	}
	if msg == nil {
		return fmt.Errorf("%w: message %q", store.ErrNotFound, messageID)
	}
	chat, err := db.GetChat(msg.ChatID)
	if err != nil {
		return fmt.Errorf("lookup chat: %w", err)
	}
	if chat == nil {
		return fmt.Errorf("%w: chat %q", store.ErrNotFound, msg.ChatID)
	}

	b := &store.Bookmark{
		ID:        msg.ID,
		ChatID:    chat.ID,
		CreatedAt: time.Now().UnixMilli(),
		Sender:    msg.Sender,
		Content:   msg.Content,
		Date:      msg.Date,
		Time:      msg.Time,
		ChatName:  chat.Name,
		IsSystem:  msg.IsSystem,
	}
	if err := db.PutBookmark(b); err != nil {
		return fmt.Errorf("put bookmark: %w", err)
	}

	s.bus.Publish(bus.Event{
		Kind:    bus.KindBookmarkSaved,
		Payload: bus.ChatRef{ChatID: chat.ID, MessageID: msg.ID},
	})
	return nil
}

// Remove deletes a bookmark by message id. Removing an absent bookmark is a
// no-op, not an error.
func (s *Service) Remove(messageID string) error {
	release, err := s.begin(messageID)
	if err != nil {
		return err
	}
	defer release()
	defer s.tracker.Start("bookmark.remove")()

	db, err := s.handle.Acquire()
	if err != nil {
		return err
	}
	if err := db.DeleteBookmark(messageID); err != nil {
		return fmt.Errorf("delete bookmark: %w", err)
	}

	s.bus.Publish(bus.Event{
		Kind:    bus.KindBookmarkRemoved,
		Payload: bus.ChatRef{MessageID: messageID},
	})
	return nil
}

// List returns all bookmarks newest-first. An unavailable store degrades to
// an empty list so the caller can still render.
func (s *Service) List() []store.Bookmark {
	defer s.tracker.Start("bookmark.list")()

	db, err := s.handle.Acquire()
	if err != nil {
		s.logger.Error("bookmark list unavailable", zap.Error(err))
		return []store.Bookmark{}
	}
	bookmarks, err := db.ListBookmarks()
	if err != nil {
		s.logger.Error("bookmark list failed", zap.Error(err))
		return []store.Bookmark{}
	}
	if bookmarks == nil {
		bookmarks = []store.Bookmark{}
	}
	return bookmarks
}

// IsBookmarked reports whether a bookmark exists for the message id.
func (s *Service) IsBookmarked(messageID string) (bool, error) {
	db, err := s.handle.Acquire()
	if err != nil {
		return false, err
	}
	return db.BookmarkExists(messageID)
}

// BatchStatus checks bookmark existence for a batch of message ids
// concurrently and merges the answers. Used to paint bookmark icons across a
// visible message list without sequential round trips.
func (s *Service) BatchStatus(ctx context.Context, messageIDs []string) (map[string]bool, error) {
	defer s.tracker.Start("bookmark.batch_status")()

	db, err := s.handle.Acquire()
	if err != nil {
		return nil, err
	}

	status := make(map[string]bool, len(messageIDs))
	var mu sync.Mutex

	g, _ := errgroup.WithContext(ctx)
	for _, id := range messageIDs {
		id := id
		g.Go(func() error {
			ok, err := db.BookmarkExists(id)
			if err != nil {
				return err
			}
			mu.Lock()
			status[id] = ok
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return status, nil
}
