package search

import (
	"context"
	"strings"

	"github.com/chatwise-tools/chatwise-mcp/internal/chatdb"
	"github.com/chatwise-tools/chatwise-mcp/internal/textnorm"
	"github.com/chatwise-tools/chatwise-mcp/internal/timewindow"
)

// Source tags where a hit came from.
type Source string

const (
	SourceTitle   Source = "title"
	SourceContent Source = "content"
	SourceTool    Source = "tool"
)

// Store is the read side of chatdb used by search.
type Store interface {
	ChatsActiveIn(ctx context.Context, w timewindow.Window, chatIDs []string) ([]*chatdb.Chat, error)
	ChatsByID(ctx context.Context, ids []string) (map[string]*chatdb.Chat, error)
	MessagesInWindow(ctx context.Context, q chatdb.MessageQuery) ([]chatdb.Message, error)
	Activity(ctx context.Context) ([]chatdb.Activity, error)
	LatestToolInvocation(ctx context.Context, q chatdb.InvocationQuery) (string, error)
}

// Hit is one searchable unit: a chat title, a message body or a message's
// tool metadata.
type Hit struct {
	Source    Source
	ChatID    string
	MessageID string
	Role      string
	AtMs      int64

	// Text is the original text; match is what terms are tested against.
	Text  string
	match string
}

// plan is what every producer needs to build its hits.
type plan struct {
	window       timewindow.Window
	chatIDs      []string
	userOnly     bool
	includeTools bool

	// cutoffMs hides user content newer than it; 0 disables.
	cutoffMs int64
}

// producer yields the hits of one source restricted to a plan.
type producer func(ctx context.Context, st Store, p plan) ([]Hit, error)

// producers returns the enabled sources for p in a fixed order.
func producers(p plan) []producer {
	var out []producer
	if !p.userOnly {
		out = append(out, titleHits)
	}
	out = append(out, contentHits)
	if p.includeTools && !p.userOnly {
		out = append(out, toolHits)
	}
	return out
}

// collect concatenates the hits of every enabled source.
func collect(ctx context.Context, st Store, p plan) ([]Hit, error) {
	var all []Hit
	for _, produce := range producers(p) {
		hits, err := produce(ctx, st, p)
		if err != nil {
			return nil, err
		}
		all = append(all, hits...)
	}
	return all, nil
}

func titleHits(ctx context.Context, st Store, p plan) ([]Hit, error) {
	chats, err := st.ChatsActiveIn(ctx, p.window, p.chatIDs)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(chats))
	for _, c := range chats {
		title := c.TitleText()
		if strings.TrimSpace(title) == "" || !p.window.Contains(c.ActivityAt()) {
			continue
		}
		hits = append(hits, Hit{
			Source: SourceTitle,
			ChatID: c.ID,
			AtMs:   timewindow.ToMillis(c.ActivityAt()),
			Text:   title,
			match:  textnorm.Normalize(title),
		})
	}
	return hits, nil
}

func contentHits(ctx context.Context, st Store, p plan) ([]Hit, error) {
	msgs, err := windowMessages(ctx, st, p)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		at := timewindow.ToMillis(m.CreatedAt)
		if m.Role == "user" && p.cutoffMs > 0 && at > p.cutoffMs {
			continue
		}
		hits = append(hits, Hit{
			Source:    SourceContent,
			ChatID:    m.ChatID,
			MessageID: m.ID,
			Role:      m.Role,
			AtMs:      at,
			Text:      m.Content,
			match:     textnorm.Normalize(m.Content),
		})
	}
	return hits, nil
}

// toolHits treats the whole metadata blob as opaque lowercased text.
func toolHits(ctx context.Context, st Store, p plan) ([]Hit, error) {
	msgs, err := windowMessages(ctx, st, p)
	if err != nil {
		return nil, err
	}
	hits := make([]Hit, 0, len(msgs))
	for _, m := range msgs {
		if strings.TrimSpace(m.Meta) == "" {
			continue
		}
		hits = append(hits, Hit{
			Source:    SourceTool,
			ChatID:    m.ChatID,
			MessageID: m.ID,
			Role:      m.Role,
			AtMs:      timewindow.ToMillis(m.CreatedAt),
			Text:      m.Meta,
			match:     strings.ToLower(m.Meta),
		})
	}
	return hits, nil
}

func windowMessages(ctx context.Context, st Store, p plan) ([]chatdb.Message, error) {
	msgs, err := st.MessagesInWindow(ctx, chatdb.MessageQuery{
		Window:   p.window,
		ChatIDs:  p.chatIDs,
		UserOnly: p.userOnly,
	})
	if err != nil {
		return nil, err
	}
	// Re-check the pushed-down window in process.
	kept := msgs[:0]
	for _, m := range msgs {
		if p.window.Contains(m.CreatedAt) {
			kept = append(kept, m)
		}
	}
	return kept, nil
}
