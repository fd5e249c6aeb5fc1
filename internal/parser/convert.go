package parser

import (
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/chatarc/internal/store"
)

// ToStoreChat converts a parse result into a chat row plus its message rows,
// ready for store.SaveImport. The chat id is freshly generated, so every
// import creates a new chat even for a previously imported transcript.
func (r *Result) ToStoreChat() (*store.Chat, []store.Message) {
	chat := &store.Chat{
		ID:               uuid.NewString(),
		Name:             r.ChatName,
		CreatedAt:        time.Now().UnixMilli(),
		MessageCount:     r.MessageCount,
		ParticipantCount: len(r.Participants),
		Participants:     r.Participants,
	}
	if n := len(r.Messages); n > 0 {
		chat.LastMessageTime = r.Messages[n-1].Time
	}

	msgs := make([]store.Message, len(r.Messages))
	for i, m := range r.Messages {
		msgs[i] = store.Message{
			ID:        m.ID,
			ChatID:    chat.ID,
			Date:      m.Date,
			Time:      m.Time,
			Sender:    m.Sender,
			Content:   m.Content,
			IsSystem:  m.IsSystem,
			Timestamp: store.DeriveTimestamp(m.Date, m.Time),
		}
	}
	return chat, msgs
}
