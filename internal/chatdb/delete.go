package chatdb

import (
	"context"
	"fmt"
)

// deleteChunkSize keeps IN lists well under SQLite's variable limit.
const deleteChunkSize = 400

// DeleteCounts holds chat and message row counts.
type DeleteCounts struct {
	Chat     int `json:"chat"`
	Messages int `json:"messages"`
}

// ChatDeleteStat describes what deleting one chat would remove.
type ChatDeleteStat struct {
	ChatID   string       `json:"chatId"`
	Exists   bool         `json:"exists"`
	ToDelete DeleteCounts `json:"toDelete"`
}

// DeleteStats counts the rows that deleting ids would remove.
func (d *DB) DeleteStats(ctx context.Context, ids []string) ([]ChatDeleteStat, DeleteCounts, error) {
	var totals DeleteCounts
	stats := make([]ChatDeleteStat, 0, len(ids))
	for _, id := range ids {
		var chats, msgs int
		if err := d.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM chat WHERE id = ?", id).Scan(&chats); err != nil {
			return nil, totals, fmt.Errorf("chatdb: count chat: %w", err)
		}
		if err := d.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM message WHERE chatId = ?", id).Scan(&msgs); err != nil {
			return nil, totals, fmt.Errorf("chatdb: count messages: %w", err)
		}
		stats = append(stats, ChatDeleteStat{
			ChatID:   id,
			Exists:   chats > 0,
			ToDelete: DeleteCounts{Chat: chats, Messages: msgs},
		})
		totals.Chat += chats
		totals.Messages += msgs
	}
	return stats, totals, nil
}

// DeleteChats removes the messages and then the chat rows of ids in a single
// transaction. Files referenced by the rows are left on disk.
func (d *DB) DeleteChats(ctx context.Context, ids []string) (DeleteCounts, error) {
	var deleted DeleteCounts
	if !d.writable {
		return deleted, fmt.Errorf("chatdb: delete: database opened read-only")
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return deleted, fmt.Errorf("chatdb: begin delete: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, part := range chunk(ids, deleteChunkSize) {
		res, err := tx.ExecContext(ctx, "DELETE FROM message WHERE chatId IN ("+placeholders(len(part))+")", stringArgs(part)...)
		if err != nil {
			return DeleteCounts{}, fmt.Errorf("chatdb: delete messages: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted.Messages += int(n)
	}
	for _, part := range chunk(ids, deleteChunkSize) {
		res, err := tx.ExecContext(ctx, "DELETE FROM chat WHERE id IN ("+placeholders(len(part))+")", stringArgs(part)...)
		if err != nil {
			return DeleteCounts{}, fmt.Errorf("chatdb: delete chats: %w", err)
		}
		n, _ := res.RowsAffected()
		deleted.Chat += int(n)
	}

	if err := tx.Commit(); err != nil {
		return DeleteCounts{}, fmt.Errorf("chatdb: commit delete: %w", err)
	}
	storeLog.Info("chats_deleted", "chats", deleted.Chat, "messages", deleted.Messages)
	return deleted, nil
}

func chunk(ids []string, size int) [][]string {
	var out [][]string
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		out = append(out, ids[i:end])
	}
	return out
}
