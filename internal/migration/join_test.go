package migration

import (
	"errors"
	"testing"

	"github.com/matheus3301/chatarc/internal/store"
)

func TestResolveBookmark(t *testing.T) {
	lb := LegacyBookmark{ID: "b1", ChatID: "c1", MessageID: "m1", CreatedAt: 42}
	msg := &store.Message{ID: "m1", ChatID: "c1", Date: "1/2/23", Time: "10:00", Sender: "Alice", Content: "Hello"}
	chat := &store.Chat{ID: "c1", Name: "Alice & Bob"}

	b, err := ResolveBookmark(lb, msg, chat)
	if err != nil {
		t.Fatalf("ResolveBookmark() error = %v", err)
	}
	if b.ID != "m1" {
		t.Errorf("ID = %q, want message id m1", b.ID)
	}
	if b.CreatedAt != 42 {
		t.Errorf("CreatedAt = %d, want legacy bookmark time 42", b.CreatedAt)
	}
	if b.Sender != "Alice" || b.Content != "Hello" || b.ChatName != "Alice & Bob" {
		t.Errorf("snapshot = %+v", b)
	}
	if b.Date != "1/2/23" || b.Time != "10:00" {
		t.Errorf("raw fields = %q %q", b.Date, b.Time)
	}
}

func TestResolveBookmarkMissingRows(t *testing.T) {
	lb := LegacyBookmark{ID: "b1", ChatID: "c1", MessageID: "m1"}
	msg := &store.Message{ID: "m1", ChatID: "c1"}
	chat := &store.Chat{ID: "c1"}

	tests := []struct {
		name string
		msg  *store.Message
		chat *store.Chat
	}{
		{"nil message", nil, chat},
		{"nil chat", msg, nil},
		{"chat mismatch", &store.Message{ID: "m1", ChatID: "other"}, chat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveBookmark(lb, tt.msg, tt.chat)
			if !errors.Is(err, store.ErrNotFound) {
				t.Errorf("error = %v, want ErrNotFound", err)
			}
		})
	}
}
