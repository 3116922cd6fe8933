package mcpserver

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

const searchDescription = `Search ChatWise conversations by intent in the local ChatWise SQLite database.

<usecase>
- Find conversations by keyword or loose intent ("rust", "生活/日常"), optionally within a recent time window
- Prepare candidate chats for gather_chats
</usecase>

<behavior>
- Results are aggregated per conversation
- Searches chat titles, message content and tool output text (message.meta) by default
- Returns JSON: topChatIds, per-chat hits and timeRange (milliseconds), and snippets tagged with their source (title, content or tool)
- intent_query '*' (or 'recent', '最近') lists the most recently active chats
</behavior>

<instructions>
1. Provide intent_query; add time_window such as '60d' when the user names a period
2. Call gather_chats with topChatIds to read full timelines
3. When the user asks about "recent" chats, pass exclude_recent_user_secs=0 so nothing is filtered out
</instructions>`

const searchSchema = `{
  "type": "object",
  "properties": {
    "intent_query": {
      "description": "Keyword or intent, or an array of keywords/phrases (each phrase is matched as a whole)",
      "oneOf": [
        {"type": "string"},
        {"type": "array", "items": {"type": "string"}, "minItems": 1}
      ]
    },
    "time_window": {
      "description": "Time window to search. Default: 'all'. Explicit bounds are epoch milliseconds.",
      "oneOf": [
        {"type": "string", "enum": ["7d", "30d", "60d", "90d", "all"]},
        {
          "type": "object",
          "properties": {"start": {"type": "number"}, "end": {"type": "number"}},
          "required": ["start", "end"]
        }
      ]
    },
    "precision_mode": {"type": "string", "enum": ["basic", "fuzzy"], "description": "'basic' (default) substring matching or 'fuzzy' word matching"},
    "include_tools_in_search": {"type": "boolean", "description": "Include tool outputs from message.meta. Default: true."},
    "exclude_terms": {"type": "array", "items": {"type": "string"}, "description": "Chats matching any of these terms are dropped. Default: []."},
    "exclude_chat_ids": {"type": "array", "items": {"type": "string"}, "description": "Chat IDs to leave out of the results. Default: []."},
    "exclude_current_chat": {"type": "boolean", "description": "Exclude the chat this search runs from, detected via CHATWISE_CURRENT_CHAT_ID or recent tool calls. Default: true."},
    "exclude_recent_user_secs": {"type": "integer", "minimum": 0, "maximum": 600, "description": "Ignore user messages newer than this many seconds (default 60). 0 disables."},
    "user_only": {"type": "boolean", "description": "Search user messages only; titles and tool output are skipped. Default: false."},
    "match": {"type": "string", "enum": ["any", "all"], "description": "Whether any term or all terms must match. Default: 'any'."},
    "limit_chats": {"type": "integer", "minimum": 1, "maximum": 100, "description": "Default: 10."},
    "limit_snippets_per_chat": {"type": "integer", "minimum": 1, "maximum": 10, "description": "Default: 3."},
    "snippet_window": {"type": "integer", "minimum": 1, "maximum": 400, "description": "Characters kept on each side of the match. Default: 64."}
  },
  "required": ["intent_query"]
}`

func searchTool() mcp.Tool {
	tool := mcp.NewToolWithRawSchema(ToolSearch, searchDescription, json.RawMessage(searchSchema))
	tool.Annotations = mcp.ToolAnnotation{
		Title:           "Search Conversations",
		ReadOnlyHint:    mcp.ToBoolPtr(true),
		DestructiveHint: mcp.ToBoolPtr(false),
		IdempotentHint:  mcp.ToBoolPtr(true),
		OpenWorldHint:   mcp.ToBoolPtr(false),
	}
	return tool
}

func gatherTool() mcp.Tool {
	return mcp.NewTool(ToolGather,
		mcp.WithDescription(`Read one ChatWise conversation, or merge several into per-conversation timelines plus a common section.

<behavior>
- One id: conversation metadata followed by every message, numbered #1, #2, ...
- Several ids: each conversation keeps its own numbering (1#3 is message 3 of conversation 1); messages present in every conversation are listed once under Common alignment with references into each
- includeTools (default true) appends tool call and result blocks below the messages that carry them
</behavior>`),
		mcp.WithTitleAnnotation("Gather Chats"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
		mcp.WithArray("chatIds",
			mcp.Required(),
			mcp.Description("Chat identifiers to read or merge, in the order they should be numbered"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithBoolean("includeTools",
			mcp.Description("Include tool call and result details. Default: true."),
		),
	)
}

func deleteTool() mcp.Tool {
	return mcp.NewTool(ToolDelete,
		mcp.WithDescription(`Delete one or more ChatWise conversations and their messages.

<behavior>
- Deletes messages by chatId, then the chat rows, in one transaction
- dry_run=true only counts the rows that would be removed
- Files referenced by the rows (generated files, attachments) stay on disk
</behavior>`),
		mcp.WithTitleAnnotation("Delete Conversation"),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
		mcp.WithString("chatId",
			mcp.Description("ID of the chat to delete"),
		),
		mcp.WithArray("chatIds",
			mcp.Description("IDs of the chats to delete; takes precedence over chatId"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("When true, only return counts. Default: false."),
		),
	)
}
