package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/matheus3301/chatarc/internal/store/migrations"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testChat(id string) *Chat {
	return &Chat{
		ID:               id,
		Name:             "Alice & Bob",
		CreatedAt:        1000,
		LastMessageTime:  "10:02",
		MessageCount:     2,
		ParticipantCount: 2,
		Participants:     []string{"Alice", "Bob"},
	}
}

func TestMigrateAppliesOnFreshDB(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so run it again to check idempotency.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + denormalize)", result.Version)
	}
}

// TestMigrateBackfillsDenormalizedBookmarks verifies the v1 -> v2 step joins
// normalized bookmark rows against messages and chats before dropping the
// old table. Skipping the join would silently lose every existing bookmark.
func TestMigrateBackfillsDenormalizedBookmarks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	// Bring the store to version 1 only and seed normalized data.
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		t.Fatal(err)
	}
	driver, err := sqlite3.WithInstance(db.DB, &sqlite3.Config{})
	if err != nil {
		t.Fatal(err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Migrate(1); err != nil {
		t.Fatal(err)
	}

	mustExec := func(query string, args ...any) {
		t.Helper()
		if _, err := db.Exec(query, args...); err != nil {
			t.Fatal(err)
		}
	}
	mustExec(`INSERT INTO chats (id, name, created_at) VALUES ('c1', 'Alice & Bob', 1)`)
	mustExec(`INSERT INTO messages (id, chat_id, date, time, sender, content, is_system, timestamp)
		VALUES ('m1', 'c1', '1/2/23', '10:00', 'Alice', 'Hello', 0, 1000)`)
	mustExec(`INSERT INTO bookmarks (id, chat_id, message_id, created_at) VALUES ('m1', 'c1', 'm1', 42)`)
	// Duplicate reference to the same message: the old table allowed it, the
	// new primary key does not, so the newer row must win without failing
	// the whole upgrade.
	mustExec(`INSERT INTO bookmarks (id, chat_id, message_id, created_at) VALUES ('dup', 'c1', 'm1', 44)`)
	// Dangling reference: its message does not exist, so it cannot be joined.
	mustExec(`INSERT INTO bookmarks (id, chat_id, message_id, created_at) VALUES ('gone', 'c1', 'gone', 43)`)

	if err := m.Up(); err != nil {
		t.Fatal(err)
	}

	bookmarks, err := db.ListBookmarks()
	if err != nil {
		t.Fatal(err)
	}
	if len(bookmarks) != 1 {
		t.Fatalf("got %d bookmarks after backfill, want 1", len(bookmarks))
	}
	b := bookmarks[0]
	if b.ID != "m1" || b.Sender != "Alice" || b.Content != "Hello" || b.ChatName != "Alice & Bob" {
		t.Errorf("backfilled bookmark = %+v", b)
	}
	if b.CreatedAt != 44 {
		t.Errorf("CreatedAt = %d, want 44 (newest duplicate's bookmark time)", b.CreatedAt)
	}
}

func TestSaveImportAndListChats(t *testing.T) {
	db := testDB(t)

	msgs := []Message{
		{ID: "m1", Date: "1/2/23", Time: "10:00", Sender: "Alice", Content: "Hello"},
		{ID: "m2", Date: "1/2/23", Time: "10:01", Sender: "Bob", Content: "Hi Alice"},
	}
	if err := db.SaveImport(testChat("c1"), msgs); err != nil {
		t.Fatal(err)
	}

	chats, err := db.ListChats()
	if err != nil {
		t.Fatal(err)
	}
	if len(chats) != 1 {
		t.Fatalf("got %d chats, want 1", len(chats))
	}
	c := chats[0]
	if c.Name != "Alice & Bob" {
		t.Errorf("name = %q, want Alice & Bob", c.Name)
	}
	if c.ParticipantCount != len(c.Participants) {
		t.Errorf("ParticipantCount = %d, participants = %v", c.ParticipantCount, c.Participants)
	}

	got, err := db.ListChatMessages("c1", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d messages, want 2", len(got))
	}
	for _, m := range got {
		if m.Timestamp == 0 {
			t.Errorf("message %q has no derived timestamp", m.ID)
		}
	}
}

func TestGetChatMissing(t *testing.T) {
	db := testDB(t)

	c, err := db.GetChat("missing")
	if err != nil {
		t.Fatal(err)
	}
	if c != nil {
		t.Errorf("expected nil for missing chat, got %+v", c)
	}
}

func TestListChatMessagesOrderOffsetLimit(t *testing.T) {
	db := testDB(t)

	msgs := []Message{
		{ID: "m3", Date: "1/2/23", Time: "10:02", Sender: "Alice", Content: "three"},
		{ID: "m1", Date: "1/2/23", Time: "10:00", Sender: "Alice", Content: "one"},
		{ID: "m2", Date: "1/2/23", Time: "10:01", Sender: "Bob", Content: "two"},
	}
	if err := db.SaveImport(testChat("c1"), msgs); err != nil {
		t.Fatal(err)
	}

	all, err := db.ListChatMessages("c1", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	wantOrder := []string{"m1", "m2", "m3"}
	for i, id := range wantOrder {
		if all[i].ID != id {
			t.Fatalf("position %d = %q, want %q (timestamp ordering broken)", i, all[i].ID, id)
		}
	}

	// Offset applies before limit on the ordered result.
	page, err := db.ListChatMessages("c1", 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page) != 1 || page[0].ID != "m2" {
		t.Errorf("offset=1 limit=1 = %v, want [m2]", page)
	}
}

// TestDeriveTimestampFallback: malformed date/time fields must yield a valid
// near-now timestamp on save, never an error.
func TestDeriveTimestampFallback(t *testing.T) {
	db := testDB(t)

	msgs := []Message{{ID: "m1", Date: "not-a-date", Time: "times", Sender: "A", Content: "x"}}
	if err := db.SaveImport(testChat("c1"), msgs); err != nil {
		t.Fatal(err)
	}

	got, err := db.ListChatMessages("c1", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	assertNearNow(t, got[0].Timestamp)
}

func TestDeleteChatCascades(t *testing.T) {
	db := testDB(t)

	msgs := []Message{
		{ID: "m1", Date: "1/2/23", Time: "10:00", Sender: "Alice", Content: "one"},
		{ID: "m2", Date: "1/2/23", Time: "10:01", Sender: "Bob", Content: "two"},
		{ID: "m3", Date: "1/2/23", Time: "10:02", Sender: "Alice", Content: "three"},
	}
	if err := db.SaveImport(testChat("c1"), msgs); err != nil {
		t.Fatal(err)
	}
	for _, id := range []string{"m1", "m3"} {
		if err := db.PutBookmark(&Bookmark{ID: id, ChatID: "c1", CreatedAt: 1, Sender: "Alice", Content: "x", ChatName: "Alice & Bob"}); err != nil {
			t.Fatal(err)
		}
	}

	if err := db.DeleteChat("c1"); err != nil {
		t.Fatal(err)
	}

	if c, _ := db.GetChat("c1"); c != nil {
		t.Error("chat row survived delete")
	}
	remaining, err := db.ListChatMessages("c1", 0, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(remaining) != 0 {
		t.Errorf("%d message rows survived delete (orphaned)", len(remaining))
	}
	bookmarks, err := db.ListChatBookmarks("c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(bookmarks) != 0 {
		t.Errorf("%d bookmark rows survived delete (orphaned)", len(bookmarks))
	}
}

func TestDeleteChatMissing(t *testing.T) {
	db := testDB(t)

	err := db.DeleteChat("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("DeleteChat(missing) error = %v, want ErrNotFound", err)
	}
}

func TestPutBookmarkUpsert(t *testing.T) {
	db := testDB(t)

	b := &Bookmark{ID: "m1", ChatID: "c1", CreatedAt: 1, Sender: "Alice", Content: "first", ChatName: "A"}
	if err := db.PutBookmark(b); err != nil {
		t.Fatal(err)
	}
	b.Content = "second"
	b.CreatedAt = 2
	if err := db.PutBookmark(b); err != nil {
		t.Fatal(err)
	}

	bookmarks, err := db.ListBookmarks()
	if err != nil {
		t.Fatal(err)
	}
	if len(bookmarks) != 1 {
		t.Fatalf("got %d bookmarks, want 1 (upsert created duplicate)", len(bookmarks))
	}
	if bookmarks[0].Content != "second" {
		t.Errorf("content = %q, want second", bookmarks[0].Content)
	}
}

func TestListBookmarksOrder(t *testing.T) {
	db := testDB(t)

	for _, b := range []Bookmark{
		{ID: "old", ChatID: "c1", CreatedAt: 100},
		{ID: "new", ChatID: "c1", CreatedAt: 300},
		{ID: "mid-b", ChatID: "c1", CreatedAt: 200},
		{ID: "mid-a", ChatID: "c1", CreatedAt: 200},
	} {
		if err := db.PutBookmark(&b); err != nil {
			t.Fatal(err)
		}
	}

	bookmarks, err := db.ListBookmarks()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"new", "mid-b", "mid-a", "old"}
	for i, id := range want {
		if bookmarks[i].ID != id {
			t.Fatalf("position %d = %q, want %q", i, bookmarks[i].ID, id)
		}
	}

	// Ties order identically on a second call.
	again, err := db.ListBookmarks()
	if err != nil {
		t.Fatal(err)
	}
	for i := range bookmarks {
		if again[i].ID != bookmarks[i].ID {
			t.Errorf("tie-break unstable at position %d: %q vs %q", i, again[i].ID, bookmarks[i].ID)
		}
	}
}

// TestListBookmarksNeedsNoJoin: bookmarks are complete snapshots, so listing
// must work even when every message and chat row is gone.
func TestListBookmarksNeedsNoJoin(t *testing.T) {
	db := testDB(t)

	msgs := []Message{{ID: "m1", Date: "1/2/23", Time: "10:00", Sender: "Alice", Content: "Hello"}}
	if err := db.SaveImport(testChat("c1"), msgs); err != nil {
		t.Fatal(err)
	}
	if err := db.PutBookmark(&Bookmark{
		ID: "m1", ChatID: "c1", CreatedAt: 1,
		Sender: "Alice", Content: "Hello", Date: "1/2/23", Time: "10:00", ChatName: "Alice & Bob",
	}); err != nil {
		t.Fatal(err)
	}

	// Remove the source rows out from under the bookmark.
	if _, err := db.Exec(`DELETE FROM messages`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`DELETE FROM chats`); err != nil {
		t.Fatal(err)
	}

	bookmarks, err := db.ListBookmarks()
	if err != nil {
		t.Fatal(err)
	}
	if len(bookmarks) != 1 {
		t.Fatalf("got %d bookmarks, want 1", len(bookmarks))
	}
	b := bookmarks[0]
	if b.Sender != "Alice" || b.Content != "Hello" || b.ChatName != "Alice & Bob" {
		t.Errorf("snapshot incomplete: %+v", b)
	}
}

func TestBookmarkExistsAndDelete(t *testing.T) {
	db := testDB(t)

	if err := db.PutBookmark(&Bookmark{ID: "m1", ChatID: "c1", CreatedAt: 1}); err != nil {
		t.Fatal(err)
	}

	ok, err := db.BookmarkExists("m1")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("BookmarkExists(m1) = false, want true")
	}
	ok, err = db.BookmarkExists("missing")
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("BookmarkExists(missing) = true, want false")
	}

	if err := db.DeleteBookmark("m1"); err != nil {
		t.Fatal(err)
	}
	// Deleting an absent bookmark is a no-op.
	if err := db.DeleteBookmark("m1"); err != nil {
		t.Errorf("second DeleteBookmark error = %v, want nil", err)
	}
}

func TestMeta(t *testing.T) {
	db := testDB(t)

	if _, ok, err := db.GetMeta("k"); err != nil || ok {
		t.Fatalf("GetMeta(k) = ok=%v err=%v, want absent", ok, err)
	}
	if err := db.SetMeta("k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SetMeta("k", "v2"); err != nil {
		t.Fatal(err)
	}
	v, ok, err := db.GetMeta("k")
	if err != nil {
		t.Fatal(err)
	}
	if !ok || v != "v2" {
		t.Errorf("GetMeta(k) = %q ok=%v, want v2", v, ok)
	}
}

func TestHandleReopensAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	h := NewHandle(path)
	t.Cleanup(func() { _ = h.Close() })

	db, err := h.Acquire()
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveImport(testChat("c1"), nil); err != nil {
		t.Fatal(err)
	}

	// Invalidate the connection; the next Acquire must reopen transparently.
	if err := h.Close(); err != nil {
		t.Fatal(err)
	}
	db, err = h.Acquire()
	if err != nil {
		t.Fatalf("Acquire after Close error = %v", err)
	}
	c, err := db.GetChat("c1")
	if err != nil {
		t.Fatal(err)
	}
	if c == nil {
		t.Error("data lost across handle reopen")
	}
}
