package chatdb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/chatwise-tools/chatwise-mcp/internal/timewindow"
)

// millisExpr orders mixed-unit timestamps by their millisecond reading.
const millisExpr = "CASE WHEN %[1]s > 1000000000000 THEN %[1]s ELSE %[1]s * 1000 END"

// windowClause matches col against w read as milliseconds or as seconds.
func windowClause(col string, w timewindow.Window) (string, []any) {
	lo, hi := w.SecondsBounds()
	clause := fmt.Sprintf("((%[1]s BETWEEN ? AND ?) OR (%[1]s BETWEEN ? AND ?))", col)
	return clause, []any{w.StartMs, w.EndMs, lo, hi}
}

// GetChat returns the chat row with the given id, or nil when none exists.
func (d *DB) GetChat(ctx context.Context, id string) (*Chat, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT id, title, COALESCE(createdAt, 0), COALESCE(lastReplyAt, 0)
		FROM chat WHERE id = ?
	`, id)

	c := &Chat{}
	var title sql.NullString
	err := row.Scan(&c.ID, &title, &c.CreatedAt, &c.LastReplyAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("chatdb: get chat: %w", err)
	}
	if title.Valid {
		c.Title = &title.String
	}
	return c, nil
}

// ChatsByID returns the chat rows for ids keyed by id. Unknown ids are
// absent from the map.
func (d *DB) ChatsByID(ctx context.Context, ids []string) (map[string]*Chat, error) {
	out := make(map[string]*Chat, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, title, COALESCE(createdAt, 0), COALESCE(lastReplyAt, 0)
		FROM chat WHERE id IN (`+placeholders(len(ids))+`)
	`, stringArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("chatdb: chats by id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

// ChatsActiveIn returns chats whose activity timestamp (lastReplyAt, else
// createdAt; a zero lastReplyAt counts as unset) falls inside w. A non-empty chatIDs restricts the result to
// those chats.
func (d *DB) ChatsActiveIn(ctx context.Context, w timewindow.Window, chatIDs []string) ([]*Chat, error) {
	clause, args := windowClause("COALESCE(NULLIF(lastReplyAt, 0), createdAt)", w)
	query := `
		SELECT id, title, COALESCE(createdAt, 0), COALESCE(lastReplyAt, 0)
		FROM chat WHERE ` + clause
	if len(chatIDs) > 0 {
		query += " AND id IN (" + placeholders(len(chatIDs)) + ")"
		args = append(args, stringArgs(chatIDs)...)
	}
	query += " ORDER BY id"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("chatdb: chats in window: %w", err)
	}
	defer rows.Close()

	var result []*Chat
	for rows.Next() {
		c, err := scanChat(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

func scanChat(rows *sql.Rows) (*Chat, error) {
	c := &Chat{}
	var title sql.NullString
	if err := rows.Scan(&c.ID, &title, &c.CreatedAt, &c.LastReplyAt); err != nil {
		return nil, fmt.Errorf("chatdb: scan chat: %w", err)
	}
	if title.Valid {
		c.Title = &title.String
	}
	return c, nil
}

// Messages returns every message of a chat ordered by (createdAt, id).
func (d *DB) Messages(ctx context.Context, chatID string) ([]Message, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, chatId, COALESCE(createdAt, 0), COALESCE(role, ''),
		       COALESCE(content, ''), COALESCE(meta, '')
		FROM message
		WHERE chatId = ?
		ORDER BY `+fmt.Sprintf(millisExpr, "createdAt")+`, id
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("chatdb: messages: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

// MessageQuery selects messages for search candidates.
type MessageQuery struct {
	Window timewindow.Window

	// ChatIDs restricts the result when non-empty.
	ChatIDs []string

	// UserOnly keeps only role='user' rows.
	UserOnly bool
}

// MessagesInWindow returns messages whose createdAt falls inside q.Window,
// newest first.
func (d *DB) MessagesInWindow(ctx context.Context, q MessageQuery) ([]Message, error) {
	clause, args := windowClause("createdAt", q.Window)
	query := `
		SELECT id, chatId, COALESCE(createdAt, 0), COALESCE(role, ''),
		       COALESCE(content, ''), COALESCE(meta, '')
		FROM message WHERE ` + clause
	if q.UserOnly {
		query += " AND role = 'user'"
	}
	if len(q.ChatIDs) > 0 {
		query += " AND chatId IN (" + placeholders(len(q.ChatIDs)) + ")"
		args = append(args, stringArgs(q.ChatIDs)...)
	}
	query += " ORDER BY " + fmt.Sprintf(millisExpr, "createdAt") + " DESC, id"

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("chatdb: messages in window: %w", err)
	}
	defer rows.Close()
	return scanMessages(rows)
}

func scanMessages(rows *sql.Rows) ([]Message, error) {
	var result []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ChatID, &m.CreatedAt, &m.Role, &m.Content, &m.Meta); err != nil {
			return nil, fmt.Errorf("chatdb: scan message: %w", err)
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// Activity summarizes one chat for recency listings. Message times are in
// milliseconds.
type Activity struct {
	Chat
	MessageCount   int
	FirstMessageMs int64
	LastMessageMs  int64
}

// FirstMs is the earliest activity in milliseconds: the first message, else
// chat creation.
func (a *Activity) FirstMs() int64 {
	if a.MessageCount > 0 {
		return a.FirstMessageMs
	}
	return timewindow.ToMillis(a.CreatedAt)
}

// LastMs is the latest activity in milliseconds: the last message, else
// lastReplyAt, else chat creation.
func (a *Activity) LastMs() int64 {
	if a.MessageCount > 0 {
		return a.LastMessageMs
	}
	return timewindow.ToMillis(a.ActivityAt())
}

// Activity returns one summary per chat row.
func (d *DB) Activity(ctx context.Context) ([]Activity, error) {
	ms := fmt.Sprintf(millisExpr, "createdAt")
	rows, err := d.db.QueryContext(ctx, `
		WITH agg AS (
			SELECT chatId,
			       COUNT(id) AS msg_count,
			       MIN(`+ms+`) AS min_ms,
			       MAX(`+ms+`) AS max_ms
			FROM message
			GROUP BY chatId
		)
		SELECT ch.id, ch.title, COALESCE(ch.createdAt, 0), COALESCE(ch.lastReplyAt, 0),
		       COALESCE(a.msg_count, 0), COALESCE(a.min_ms, 0), COALESCE(a.max_ms, 0)
		FROM chat ch
		LEFT JOIN agg a ON a.chatId = ch.id
		ORDER BY ch.id
	`)
	if err != nil {
		return nil, fmt.Errorf("chatdb: activity: %w", err)
	}
	defer rows.Close()

	var result []Activity
	for rows.Next() {
		var a Activity
		var title sql.NullString
		if err := rows.Scan(&a.ID, &title, &a.CreatedAt, &a.LastReplyAt,
			&a.MessageCount, &a.FirstMessageMs, &a.LastMessageMs); err != nil {
			return nil, fmt.Errorf("chatdb: scan activity: %w", err)
		}
		if title.Valid {
			a.Title = &title.String
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// InvocationQuery locates a recent call to one of this server's tools.
type InvocationQuery struct {
	ServerName string
	ToolName   string
	Window     timewindow.Window
}

// LatestToolInvocation returns the chat id of the newest assistant message
// inside q.Window whose metadata records a use_mcp_tool call to
// q.ServerName/q.ToolName, or "" when there is none.
func (d *DB) LatestToolInvocation(ctx context.Context, q InvocationQuery) (string, error) {
	clause, args := windowClause("createdAt", q.Window)
	args = append([]any{
		fmt.Sprintf(`%%"server_name":"%s"%%`, q.ServerName),
		fmt.Sprintf(`%%"tool_name":"%s"%%`, q.ToolName),
	}, args...)

	var chatID string
	err := d.db.QueryRowContext(ctx, `
		SELECT chatId FROM message
		WHERE role = 'assistant'
		  AND meta IS NOT NULL AND trim(meta) <> ''
		  AND meta LIKE '%"toolCall"%'
		  AND meta LIKE '%"use_mcp_tool"%'
		  AND meta LIKE ?
		  AND meta LIKE ?
		  AND `+clause+`
		ORDER BY `+fmt.Sprintf(millisExpr, "createdAt")+` DESC
		LIMIT 1
	`, args...).Scan(&chatID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("chatdb: latest tool invocation: %w", err)
	}
	return chatID, nil
}
