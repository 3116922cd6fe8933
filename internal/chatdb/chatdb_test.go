package chatdb_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatwise-tools/chatwise-mcp/internal/apperr"
	"github.com/chatwise-tools/chatwise-mcp/internal/chatdb"
	"github.com/chatwise-tools/chatwise-mcp/internal/chatdb/chatdbtest"
	"github.com/chatwise-tools/chatwise-mcp/internal/timewindow"
)

func TestOpenMissingDatabase(t *testing.T) {
	_, err := chatdb.Open(context.Background(), filepath.Join(t.TempDir(), "nope.db"), chatdb.Options{})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.Contains(t, err.Error(), "database not found")
}

func TestOpenEmptyPath(t *testing.T) {
	_, err := chatdb.Open(context.Background(), "  ", chatdb.Options{})
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
}

func TestGetChatAndMessagesOrder(t *testing.T) {
	f := chatdbtest.New(t).
		Chat("c1", "Rust notes", 1_700_000_000).
		Msg("c1", "m-b", "assistant", "second", 1_700_000_010).
		Msg("c1", "m-a", "user", "first", 1_700_000_005_000). // milliseconds
		Msg("c1", "m-c", "user", "tie", 1_700_000_010)

	db := f.OpenReadOnly()
	ctx := context.Background()

	c, err := db.GetChat(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, "Rust notes", c.TitleText())

	missing, err := db.GetChat(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	msgs, err := db.Messages(ctx, "c1")
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	// Mixed units order by their millisecond reading, id breaks ties.
	assert.Equal(t, []string{"m-a", "m-b", "m-c"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

func TestMessagesInWindowDualUnits(t *testing.T) {
	f := chatdbtest.New(t).
		Chat("c1", "", 1_700_000_000).
		Msg("c1", "sec", "user", "seconds row", 1_700_000_050).
		Msg("c1", "ms", "assistant", "millis row", 1_700_000_060_000).
		Msg("c1", "old", "user", "too old", 1_600_000_000)

	db := f.OpenReadOnly()
	w := timewindow.Window{StartMs: 1_700_000_000_000, EndMs: 1_700_000_100_000}

	msgs, err := db.MessagesInWindow(context.Background(), chatdb.MessageQuery{Window: w})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "ms", msgs[0].ID, "newest first")
	assert.Equal(t, "sec", msgs[1].ID)

	userOnly, err := db.MessagesInWindow(context.Background(), chatdb.MessageQuery{Window: w, UserOnly: true})
	require.NoError(t, err)
	require.Len(t, userOnly, 1)
	assert.Equal(t, "sec", userOnly[0].ID)
}

func TestChatsActiveInUsesLastReply(t *testing.T) {
	title := "Old chat, new reply"
	f := chatdbtest.New(t).
		ChatRow(chatdb.Chat{ID: "c1", Title: &title, CreatedAt: 1_600_000_000, LastReplyAt: 1_700_000_050}).
		Chat("c2", "Stale", 1_600_000_000)

	db := f.OpenReadOnly()
	w := timewindow.Window{StartMs: 1_700_000_000_000, EndMs: 1_700_000_100_000}

	chats, err := db.ChatsActiveIn(context.Background(), w, nil)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "c1", chats[0].ID)
}

func TestChatsActiveInZeroLastReply(t *testing.T) {
	f := chatdbtest.New(t).
		Exec(`INSERT INTO chat (id, title, createdAt, lastReplyAt) VALUES ('c1', 'Rust', 1700050000, 0)`).
		Exec(`INSERT INTO chat (id, title, createdAt, lastReplyAt) VALUES ('c2', 'Go', 1600000000, 0)`)

	db := f.OpenReadOnly()
	w := timewindow.Window{StartMs: 1_700_000_000_000, EndMs: 1_700_100_000_000}

	chats, err := db.ChatsActiveIn(context.Background(), w, nil)
	require.NoError(t, err)
	require.Len(t, chats, 1, "a zero lastReplyAt falls back to createdAt")
	assert.Equal(t, "c1", chats[0].ID)
	assert.Equal(t, int64(1_700_050_000), chats[0].ActivityAt())
}

func TestActivity(t *testing.T) {
	f := chatdbtest.New(t).
		Chat("c1", "With messages", 1_700_000_000).
		Msg("c1", "m1", "user", "hi", 1_700_000_010).
		Msg("c1", "m2", "assistant", "hello", 1_700_000_020_000).
		Chat("c2", "Empty", 1_700_000_500)

	acts, err := f.OpenReadOnly().Activity(context.Background())
	require.NoError(t, err)
	require.Len(t, acts, 2)

	assert.Equal(t, 2, acts[0].MessageCount)
	assert.Equal(t, int64(1_700_000_010_000), acts[0].FirstMs())
	assert.Equal(t, int64(1_700_000_020_000), acts[0].LastMs())

	assert.Equal(t, 0, acts[1].MessageCount)
	assert.Equal(t, int64(1_700_000_500_000), acts[1].LastMs())
}

func TestLatestToolInvocation(t *testing.T) {
	meta := `{"toolCall":{"call_1":{"type":"use_mcp_tool","server_name":"chatwise-mcp","tool_name":"search_conversations","arguments":"{}"}}}`
	f := chatdbtest.New(t).
		Chat("current", "", 1_700_000_000).
		MessageRow(chatdb.Message{ID: "a1", ChatID: "current", Role: "assistant", CreatedAt: 1_700_000_050_000, Meta: meta}).
		Chat("other", "", 1_700_000_000).
		MessageRow(chatdb.Message{ID: "a2", ChatID: "other", Role: "assistant", CreatedAt: 1_700_000_040_000,
			Meta: `{"toolCall":{"c":{"type":"use_mcp_tool","server_name":"another","tool_name":"search_conversations"}}}`})

	db := f.OpenReadOnly()
	w := timewindow.Window{StartMs: 1_700_000_000_000, EndMs: 1_700_000_100_000}

	id, err := db.LatestToolInvocation(context.Background(), chatdb.InvocationQuery{
		ServerName: "chatwise-mcp", ToolName: "search_conversations", Window: w,
	})
	require.NoError(t, err)
	assert.Equal(t, "current", id)

	none, err := db.LatestToolInvocation(context.Background(), chatdb.InvocationQuery{
		ServerName: "chatwise-mcp", ToolName: "search_conversations",
		Window: timewindow.Window{StartMs: 0, EndMs: 1000},
	})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestDeleteChatsTransactional(t *testing.T) {
	f := chatdbtest.New(t).
		Chat("c1", "one", 1_700_000_000).
		Msg("c1", "m1", "user", "a", 1_700_000_001).
		Msg("c1", "m2", "assistant", "b", 1_700_000_002).
		Chat("c2", "two", 1_700_000_000).
		Msg("c2", "m3", "user", "c", 1_700_000_003)

	ctx := context.Background()
	stats, totals, err := f.DB.DeleteStats(ctx, []string{"c1", "ghost"})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.True(t, stats[0].Exists)
	assert.Equal(t, chatdb.DeleteCounts{Chat: 1, Messages: 2}, stats[0].ToDelete)
	assert.False(t, stats[1].Exists)
	assert.Equal(t, chatdb.DeleteCounts{Chat: 1, Messages: 2}, totals)

	deleted, err := f.DB.DeleteChats(ctx, []string{"c1", "ghost"})
	require.NoError(t, err)
	assert.Equal(t, chatdb.DeleteCounts{Chat: 1, Messages: 2}, deleted)

	left, err := f.DB.Messages(ctx, "c2")
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestDeleteRequiresWritable(t *testing.T) {
	f := chatdbtest.New(t).Chat("c1", "one", 1_700_000_000)
	_, err := f.OpenReadOnly().DeleteChats(context.Background(), []string{"c1"})
	assert.Error(t, err)
}
