package migration

import (
	"fmt"

	"github.com/matheus3301/chatarc/internal/store"
)

// ResolveBookmark joins a legacy normalized bookmark against the current
// message and chat rows it references, producing the denormalized record.
// Pure: callers look the rows up; a nil row or a reference mismatch yields
// store.ErrNotFound and the bookmark is skipped.
func ResolveBookmark(lb LegacyBookmark, msg *store.Message, chat *store.Chat) (*store.Bookmark, error) {
	if msg == nil {
		return nil, fmt.Errorf("%w: message %q for legacy bookmark %q", store.ErrNotFound, lb.MessageID, lb.ID)
	}
	if chat == nil {
		return nil, fmt.Errorf("%w: chat %q for legacy bookmark %q", store.ErrNotFound, lb.ChatID, lb.ID)
	}
	if msg.ChatID != chat.ID {
		return nil, fmt.Errorf("%w: legacy bookmark %q references chat %q but message belongs to %q",
			store.ErrNotFound, lb.ID, chat.ID, msg.ChatID)
	}

	return &store.Bookmark{
		ID:        msg.ID,
		ChatID:    chat.ID,
		CreatedAt: lb.CreatedAt,
		Sender:    msg.Sender,
		Content:   msg.Content,
		Date:      msg.Date,
		Time:      msg.Time,
		ChatName:  chat.Name,
		IsSystem:  msg.IsSystem,
	}, nil
}
