package chatdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
)

// Create creates a database file at path with the chat and message tables.
// ChatWise owns the real schema; Create exists for fixtures and local
// experiments and only lays down the columns this module reads.
func Create(ctx context.Context, path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("chatdb: mkdir: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=rwc&_pragma=busy_timeout(%d)", path, DefaultBusyTimeout.Milliseconds()))
	if err != nil {
		return nil, fmt.Errorf("chatdb: create: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("chatdb: begin create: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS chat (
			id          TEXT PRIMARY KEY,
			title       TEXT,
			createdAt   INTEGER NOT NULL,
			lastReplyAt INTEGER
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("chatdb: create chat: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS message (
			id        TEXT PRIMARY KEY,
			chatId    TEXT NOT NULL,
			createdAt INTEGER NOT NULL,
			role      TEXT NOT NULL,
			content   TEXT,
			meta      TEXT
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("chatdb: create message: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_message_chat ON message(chatId, createdAt)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("chatdb: create index: %w", err)
	}

	if err := tx.Commit(); err != nil {
		db.Close()
		return nil, fmt.Errorf("chatdb: commit create: %w", err)
	}
	return &DB{db: db, path: path, writable: true}, nil
}

// InsertChat inserts or replaces a chat row.
func (d *DB) InsertChat(ctx context.Context, c Chat) error {
	var lastReply any
	if c.LastReplyAt != 0 {
		lastReply = c.LastReplyAt
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO chat (id, title, createdAt, lastReplyAt)
		VALUES (?, ?, ?, ?)
	`, c.ID, c.Title, c.CreatedAt, lastReply)
	if err != nil {
		return fmt.Errorf("chatdb: insert chat: %w", err)
	}
	return nil
}

// InsertMessage inserts or replaces a message row. An empty Meta is stored
// as NULL.
func (d *DB) InsertMessage(ctx context.Context, m Message) error {
	var meta any
	if m.Meta != "" {
		meta = m.Meta
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO message (id, chatId, createdAt, role, content, meta)
		VALUES (?, ?, ?, ?, ?, ?)
	`, m.ID, m.ChatID, m.CreatedAt, m.Role, m.Content, meta)
	if err != nil {
		return fmt.Errorf("chatdb: insert message: %w", err)
	}
	return nil
}
