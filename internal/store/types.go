package store

import "errors"

// Sentinel errors surfaced by storage operations. Callers test them with
// errors.Is; wrapped context describes the failing operation.
var (
	// ErrNotFound is returned when a referenced chat or message is absent.
	ErrNotFound = errors.New("record not found")
	// ErrUnavailable is returned when the underlying database cannot be
	// opened or migrated.
	ErrUnavailable = errors.New("store unavailable")
)

// Chat is the metadata row for one imported transcript.
type Chat struct {
	ID               string
	Name             string
	CreatedAt        int64 // unix ms, import time
	LastMessageTime  string
	MessageCount     int
	ParticipantCount int
	// Participants is the ordered sender set, excluding the synthetic
	// "System" sender. ParticipantCount always equals len(Participants).
	Participants []string
}

// Message is a single parsed transcript message. Messages are written in
// bulk at import time and never individually mutated.
type Message struct {
	ID       string
	ChatID   string
	Date     string // raw date field as it appeared in the transcript
	Time     string // raw time field as it appeared in the transcript
	Sender   string
	Content  string
	IsSystem bool
	// Timestamp is the derived sort key. Zero means "not yet derived";
	// SaveImport and InsertMessages fill it from Date+Time.
	Timestamp int64
}

// Bookmark is a denormalized point-in-time snapshot of a message and its
// owning chat. Reads never join back to messages or chats.
type Bookmark struct {
	ID        string // equal to the bookmarked message id
	ChatID    string
	CreatedAt int64 // bookmark creation time, distinct from message time
	Sender    string
	Content   string
	Date      string
	Time      string
	ChatName  string
	IsSystem  bool
}
