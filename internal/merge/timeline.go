// Package merge renders ChatWise conversations as text: a single
// conversation on its own, or several side by side with the messages they
// all share aligned into one common section.
package merge

import (
	"context"
	"strings"

	"github.com/chatwise-tools/chatwise-mcp/internal/apperr"
	"github.com/chatwise-tools/chatwise-mcp/internal/chatdb"
	"github.com/chatwise-tools/chatwise-mcp/internal/logging"
	"github.com/chatwise-tools/chatwise-mcp/internal/timewindow"
)

var mergeLog = logging.ForComponent(logging.CompMerge)

// Store is the read side of chatdb used for rendering.
type Store interface {
	GetChat(ctx context.Context, id string) (*chatdb.Chat, error)
	Messages(ctx context.Context, chatID string) ([]chatdb.Message, error)
}

// Options control rendering.
type Options struct {
	// IncludeTools appends formatted tool call and result blocks below
	// messages that carry them.
	IncludeTools bool
}

// Entry is one message with its 1-based position in its conversation.
type Entry struct {
	Seq     int
	AtMs    int64
	Message chatdb.Message
}

// Timeline is one conversation of a merge, numbered by request order.
type Timeline struct {
	Ordinal int
	ChatID  string

	// Chat is nil when no chat row exists for ChatID.
	Chat    *chatdb.Chat
	Entries []Entry
}

// Title returns the chat title, or Untitled when it is missing or blank.
func (t *Timeline) Title() string {
	if title := t.Chat.TitleText(); title != "" {
		return title
	}
	return Untitled
}

// Span returns the first and last message timestamps as stored, and false
// when the conversation has no messages.
func (t *Timeline) Span() (first, last int64, ok bool) {
	if len(t.Entries) == 0 {
		return 0, 0, false
	}
	return t.Entries[0].Message.CreatedAt, t.Entries[len(t.Entries)-1].Message.CreatedAt, true
}

// loadTimeline reads one conversation. Messages arrive in (timestamp, id)
// order from the store, so Seq is their index plus one.
func loadTimeline(ctx context.Context, st Store, ordinal int, id string) (Timeline, error) {
	chat, err := st.GetChat(ctx, id)
	if err != nil {
		return Timeline{}, apperr.Unavailable("merge.load", err)
	}
	msgs, err := st.Messages(ctx, id)
	if err != nil {
		return Timeline{}, apperr.Unavailable("merge.load", err)
	}

	tl := Timeline{Ordinal: ordinal, ChatID: id, Chat: chat, Entries: make([]Entry, len(msgs))}
	for i, m := range msgs {
		tl.Entries[i] = Entry{Seq: i + 1, AtMs: timewindow.ToMillis(m.CreatedAt), Message: m}
	}
	return tl, nil
}

// cleanIDs trims ids and drops duplicates, keeping first-seen order. An
// empty id is an error.
func cleanIDs(op string, ids []string) ([]string, error) {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, apperr.InvalidArgument(op, "chat id must not be empty")
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}
