package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/chatwise-tools/chatwise-mcp/internal/apperr"
	"github.com/chatwise-tools/chatwise-mcp/internal/merge"
	"github.com/chatwise-tools/chatwise-mcp/internal/search"
	"github.com/chatwise-tools/chatwise-mcp/internal/timewindow"
)

// errorResult renders err as {"status":"error","error":...}. A missing
// database is reported without the error flag.
func errorResult(err error) *mcp.CallToolResult {
	body, _ := json.Marshal(map[string]string{
		"status": "error",
		"error":  apperr.Message(err),
	})
	res := mcp.NewToolResultText(string(body))
	res.IsError = apperr.KindOf(err) != apperr.KindNotFound
	return res
}

func jsonResult(v any) *mcp.CallToolResult {
	body, err := json.Marshal(v)
	if err != nil {
		return errorResult(apperr.Internal("encode", err))
	}
	return mcp.NewToolResultText(string(body))
}

func (h *handlers) handleSearch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	db, err := h.open(ctx, false)
	if err != nil {
		return errorResult(err), nil
	}
	defer db.Close()

	eng := search.New(db, search.Options{
		Defaults: h.opts.Search,
		Current:  h.opts.Current,
		Now:      h.opts.Now,
	})
	sreq, err := SearchRequest(eng.NewRequest(), req.GetArguments(), h.opts.Now())
	if err != nil {
		return errorResult(err), nil
	}

	resp, err := eng.Search(ctx, sreq)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(resp), nil
}

// SearchRequest applies tool arguments to base, a request carrying the
// configured defaults.
func SearchRequest(base search.Request, args map[string]any, now time.Time) (search.Request, error) {
	const op = ToolSearch
	r := base

	switch q := args["intent_query"].(type) {
	case string:
		r.SetQuery(q)
	case []any, []string:
		phrases, err := optStrings(op, args, "intent_query")
		if err != nil {
			return r, err
		}
		if len(phrases) == 0 {
			return r, apperr.InvalidArgument(op, "intent_query must not be empty")
		}
		r.SetPhrases(phrases)
	case nil:
		return r, apperr.InvalidArgument(op, "intent_query is required")
	default:
		return r, apperr.InvalidArgument(op, "intent_query must be a string or an array of strings")
	}

	if raw, ok := args["time_window"]; ok && raw != nil {
		b, err := json.Marshal(raw)
		if err != nil {
			return r, apperr.InvalidArgument(op, "malformed time_window: %v", err)
		}
		w, err := timewindow.Parse(b, now)
		if err != nil {
			return r, err
		}
		r.Window = w
	}

	if s, ok, err := optString(op, args, "precision_mode"); err != nil {
		return r, err
	} else if ok {
		p, err := search.ParsePrecision(s)
		if err != nil {
			return r, err
		}
		r.Precision = p
	}
	if s, ok, err := optString(op, args, "match"); err != nil {
		return r, err
	} else if ok {
		m, err := search.ParsePolicy(s)
		if err != nil {
			return r, err
		}
		r.Match = m
	}

	var err error
	if r.IncludeTools, err = optBool(op, args, "include_tools_in_search", r.IncludeTools); err != nil {
		return r, err
	}
	if r.UserOnly, err = optBool(op, args, "user_only", r.UserOnly); err != nil {
		return r, err
	}
	if r.ExcludeCurrent, err = optBool(op, args, "exclude_current_chat", r.ExcludeCurrent); err != nil {
		return r, err
	}

	terms, err := optStrings(op, args, "exclude_terms")
	if err != nil {
		return r, err
	}
	r.SetExcludeTerms(terms)

	ids, err := optStrings(op, args, "exclude_chat_ids")
	if err != nil {
		return r, err
	}
	r.SetExcludeChatIDs(ids)

	if r.LimitChats, err = optInt(op, args, "limit_chats", r.LimitChats); err != nil {
		return r, err
	}
	if r.LimitSnippets, err = optInt(op, args, "limit_snippets_per_chat", r.LimitSnippets); err != nil {
		return r, err
	}
	if r.SnippetWindow, err = optInt(op, args, "snippet_window", r.SnippetWindow); err != nil {
		return r, err
	}
	secs, err := optInt(op, args, "exclude_recent_user_secs", int(r.RecentCutoff/time.Second))
	if err != nil {
		return r, err
	}
	if maxSecs := int(search.MaxRecentCutoff / time.Second); secs < 0 || secs > maxSecs {
		return r, apperr.InvalidArgument(op, "exclude_recent_user_secs must be between 0 and %d", maxSecs)
	}
	r.RecentCutoff = time.Duration(secs) * time.Second

	return r, r.Validate()
}

func gatherError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError("Failed to merge chats: " + apperr.Message(err))
}

func (h *handlers) handleGather(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = ToolGather
	args := req.GetArguments()

	ids, err := optRawStrings(op, args, "chatIds")
	if err != nil {
		return gatherError(err), nil
	}
	if len(ids) == 0 {
		return gatherError(apperr.InvalidArgument(op, "chatIds must contain at least one chat id")), nil
	}
	includeTools, err := optBool(op, args, "includeTools", true)
	if err != nil {
		return gatherError(err), nil
	}

	db, err := h.open(ctx, false)
	if err != nil {
		return gatherError(err), nil
	}
	defer db.Close()

	out, err := merge.Gather(ctx, db, ids, merge.Options{IncludeTools: includeTools})
	if err != nil {
		return gatherError(err), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (h *handlers) handleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	const op = ToolDelete
	args := req.GetArguments()

	ids, err := optStrings(op, args, "chatIds")
	if err != nil {
		return errorResult(err), nil
	}
	if len(ids) == 0 {
		single, _, err := optString(op, args, "chatId")
		if err != nil {
			return errorResult(err), nil
		}
		if single = strings.TrimSpace(single); single != "" {
			ids = []string{single}
		}
	}
	dryRun, err := optBool(op, args, "dry_run", false)
	if err != nil {
		return errorResult(err), nil
	}
	if len(ids) == 0 {
		return errorResult(apperr.InvalidArgument(op, "chatId or chatIds must be provided")), nil
	}

	db, err := h.open(ctx, !dryRun)
	if err != nil {
		return errorResult(err), nil
	}
	defer db.Close()

	report, err := Delete(ctx, db, ids, dryRun)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(report), nil
}
