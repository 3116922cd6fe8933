// Package chatdbtest builds throwaway chat databases for tests.
package chatdbtest

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/chatwise-tools/chatwise-mcp/internal/chatdb"
)

// Fixture is a writable database in a test temp dir.
type Fixture struct {
	t    testing.TB
	DB   *chatdb.DB
	Path string
}

// New creates an empty database with the chat and message tables.
func New(t testing.TB) *Fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "app.db")
	db, err := chatdb.Create(context.Background(), path)
	if err != nil {
		t.Fatalf("chatdb.Create: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Fixture{t: t, DB: db, Path: path}
}

// Chat inserts a chat with a title. An empty title is stored as NULL.
func (f *Fixture) Chat(id, title string, createdAt int64) *Fixture {
	f.t.Helper()
	c := chatdb.Chat{ID: id, CreatedAt: createdAt}
	if title != "" {
		c.Title = &title
	}
	return f.ChatRow(c)
}

// ChatRow inserts a fully specified chat row.
func (f *Fixture) ChatRow(c chatdb.Chat) *Fixture {
	f.t.Helper()
	if err := f.DB.InsertChat(context.Background(), c); err != nil {
		f.t.Fatalf("InsertChat: %v", err)
	}
	return f
}

// Msg inserts a message without metadata.
func (f *Fixture) Msg(chatID, id, role, content string, createdAt int64) *Fixture {
	f.t.Helper()
	return f.MessageRow(chatdb.Message{ID: id, ChatID: chatID, Role: role, Content: content, CreatedAt: createdAt})
}

// MessageRow inserts a fully specified message row.
func (f *Fixture) MessageRow(m chatdb.Message) *Fixture {
	f.t.Helper()
	if err := f.DB.InsertMessage(context.Background(), m); err != nil {
		f.t.Fatalf("InsertMessage: %v", err)
	}
	return f
}

// OpenReadOnly opens a second, read-only handle on the fixture file.
func (f *Fixture) OpenReadOnly() *chatdb.DB {
	f.t.Helper()
	db, err := chatdb.Open(context.Background(), f.Path, chatdb.Options{})
	if err != nil {
		f.t.Fatalf("chatdb.Open: %v", err)
	}
	f.t.Cleanup(func() { db.Close() })
	return db
}

// Exec runs raw SQL against the fixture file, for rows the typed inserts
// cannot produce.
func (f *Fixture) Exec(query string, args ...any) *Fixture {
	f.t.Helper()
	db, err := sql.Open("sqlite", f.Path)
	if err != nil {
		f.t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	if _, err := db.ExecContext(context.Background(), query, args...); err != nil {
		f.t.Fatalf("Exec: %v", err)
	}
	return f
}
