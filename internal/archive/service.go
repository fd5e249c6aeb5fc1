// Package archive composes the parser, store and bookmark subsystem into
// the in-process API the UI layer consumes.
package archive

import (
	"context"
	"fmt"

	"github.com/matheus3301/chatarc/internal/bus"
	"github.com/matheus3301/chatarc/internal/parser"
	"github.com/matheus3301/chatarc/internal/perf"
	"github.com/matheus3301/chatarc/internal/store"
	"go.uber.org/zap"
)

// Service is the archive façade: transcript import plus chat reads/deletes.
// Bookmark operations live on bookmarks.Service.
type Service struct {
	handle  *store.Handle
	worker  *parser.Worker
	bus     *bus.Bus
	logger  *zap.Logger
	tracker *perf.Tracker
}

// NewService creates the archive service.
func NewService(handle *store.Handle, worker *parser.Worker, b *bus.Bus, logger *zap.Logger, tracker *perf.Tracker) *Service {
	if tracker == nil {
		tracker = perf.Default
	}
	return &Service{
		handle:  handle,
		worker:  worker,
		bus:     b,
		logger:  logger,
		tracker: tracker,
	}
}

// ImportTranscript parses raw transcript text on the worker goroutine,
// forwarding progress to the bus, then persists the resulting chat and
// messages in one transaction. Returns the stored chat metadata.
func (s *Service) ImportTranscript(ctx context.Context, text string) (*store.Chat, error) {
	defer s.tracker.Start("archive.import")()

	var result *parser.Result
	for evt := range s.worker.Run(ctx, text) {
		switch {
		case evt.Progress != nil:
			s.bus.Publish(bus.Event{
				Kind: bus.KindImportProgress,
				Payload: bus.ImportProgress{
					Progress:       evt.Progress.Progress,
					ProcessedLines: evt.Progress.ProcessedLines,
					TotalLines:     evt.Progress.TotalLines,
				},
			})
		case evt.Err != nil:
			s.bus.Publish(bus.Event{Kind: bus.KindImportFailed, Payload: evt.Err.Error()})
			return nil, fmt.Errorf("parse transcript: %w", evt.Err)
		case evt.Result != nil:
			result = evt.Result
		}
	}
	if result == nil {
		// Terminal event suppressed: the context was cancelled mid-parse.
		return nil, ctx.Err()
	}

	chat, msgs := result.ToStoreChat()

	db, err := s.handle.Acquire()
	if err != nil {
		return nil, err
	}
	if err := db.SaveImport(chat, msgs); err != nil {
		return nil, fmt.Errorf("save import: %w", err)
	}

	s.logger.Info("transcript imported",
		zap.String("chat_id", chat.ID),
		zap.String("name", chat.Name),
		zap.Int("messages", chat.MessageCount),
		zap.Int("dropped_lines", result.DroppedLines))

	s.bus.Publish(bus.Event{Kind: bus.KindImportDone, Payload: bus.ChatRef{ChatID: chat.ID}})
	s.bus.Publish(bus.Event{Kind: bus.KindChatSaved, Payload: bus.ChatRef{ChatID: chat.ID}})
	return chat, nil
}

// ListChats returns all chat metadata, newest import first, without message
// bodies. An unavailable store degrades to an empty list.
func (s *Service) ListChats() []store.Chat {
	defer s.tracker.Start("archive.list_chats")()

	db, err := s.handle.Acquire()
	if err != nil {
		s.logger.Error("chat list unavailable", zap.Error(err))
		return []store.Chat{}
	}
	chats, err := db.ListChats()
	if err != nil {
		s.logger.Error("chat list failed", zap.Error(err))
		return []store.Chat{}
	}
	if chats == nil {
		chats = []store.Chat{}
	}
	return chats
}

// LoadChat returns a chat's metadata plus its full ordered message list.
// Messages are not fetched anywhere else; callers load them on demand.
func (s *Service) LoadChat(id string) (*store.Chat, []store.Message, error) {
	defer s.tracker.Start("archive.load_chat")()

	db, err := s.handle.Acquire()
	if err != nil {
		return nil, nil, err
	}
	chat, err := db.GetChat(id)
	if err != nil {
		return nil, nil, fmt.Errorf("get chat: %w", err)
	}
	if chat == nil {
		return nil, nil, fmt.Errorf("%w: chat %q", store.ErrNotFound, id)
	}
	msgs, err := db.ListChatMessages(id, 0, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("list messages: %w", err)
	}
	return chat, msgs, nil
}

// DeleteChat removes a chat together with its messages and bookmarks.
func (s *Service) DeleteChat(id string) error {
	defer s.tracker.Start("archive.delete_chat")()

	db, err := s.handle.Acquire()
	if err != nil {
		return err
	}
	if err := db.DeleteChat(id); err != nil {
		return err
	}

	s.bus.Publish(bus.Event{Kind: bus.KindChatDeleted, Payload: bus.ChatRef{ChatID: id}})
	return nil
}

// Counts reports store totals for diagnostics.
func (s *Service) Counts() (chats, messages, bookmarks int64, err error) {
	db, err := s.handle.Acquire()
	if err != nil {
		return 0, 0, 0, err
	}
	if chats, err = db.ChatCount(); err != nil {
		return 0, 0, 0, err
	}
	if messages, err = db.MessageCount(); err != nil {
		return 0, 0, 0, err
	}
	if bookmarks, err = db.BookmarkCount(); err != nil {
		return 0, 0, 0, err
	}
	return chats, messages, bookmarks, nil
}
