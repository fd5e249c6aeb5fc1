package bus

import "time"

// Event kinds published by the archive core. Subscribers filter by
// namespace prefix, e.g. "import." receives all import events.
const (
	KindImportProgress = "import.progress"
	KindImportDone     = "import.done"
	KindImportFailed   = "import.failed"

	KindChatSaved   = "chat.saved"
	KindChatDeleted = "chat.deleted"

	KindBookmarkSaved   = "bookmark.saved"
	KindBookmarkRemoved = "bookmark.removed"
)

// Event represents a domain event published on the bus.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// ImportProgress is the payload for KindImportProgress events.
type ImportProgress struct {
	Progress       int // percent, 0-100
	ProcessedLines int
	TotalLines     int
}

// ChatRef is the payload for chat and bookmark mutation events.
type ChatRef struct {
	ChatID    string
	MessageID string // empty for chat-level events
}
