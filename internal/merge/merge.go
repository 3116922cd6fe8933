package merge

import (
	"context"
	"time"

	"github.com/chatwise-tools/chatwise-mcp/internal/apperr"
)

// View renders one conversation. It fails with NotFound when the id has
// neither a chat row nor any message.
func View(ctx context.Context, st Store, id string, opts Options) (string, error) {
	ids, err := cleanIDs("merge.view", []string{id})
	if err != nil {
		return "", err
	}
	tl, err := loadTimeline(ctx, st, 1, ids[0])
	if err != nil {
		return "", err
	}
	if tl.Chat == nil && len(tl.Entries) == 0 {
		return "", apperr.NotFound("merge.view", "conversation not found: %s", ids[0])
	}
	mergeLog.Debug("view_rendered", "chat_id", tl.ChatID, "messages", len(tl.Entries))
	return RenderView(tl, opts), nil
}

// Merge renders two or more conversations and aligns the messages all of
// them share. Duplicate ids collapse; fewer than two distinct ids is an
// InvalidArgument. Unknown ids contribute an empty timeline.
func Merge(ctx context.Context, st Store, ids []string, opts Options) (string, error) {
	timelines, err := Timelines(ctx, st, ids)
	if err != nil {
		return "", err
	}
	start := time.Now()
	common := Align(timelines)

	total := 0
	for _, tl := range timelines {
		total += len(tl.Entries)
	}
	mergeLog.Info("merge_done",
		"chats", len(timelines),
		"messages", total,
		"common", len(common),
		"align_ms", time.Since(start).Milliseconds(),
	)
	return RenderMerge(timelines, common, opts), nil
}

// Timelines validates ids for a merge and loads one timeline per distinct
// id, numbered from 1 in request order.
func Timelines(ctx context.Context, st Store, ids []string) ([]Timeline, error) {
	clean, err := cleanIDs("merge", ids)
	if err != nil {
		return nil, err
	}
	if len(clean) < 2 {
		return nil, apperr.InvalidArgument("merge", "at least 2 distinct chat ids are required, got %d", len(clean))
	}

	timelines := make([]Timeline, 0, len(clean))
	for i, id := range clean {
		tl, err := loadTimeline(ctx, st, i+1, id)
		if err != nil {
			return nil, err
		}
		timelines = append(timelines, tl)
	}
	return timelines, nil
}

// Gather is View for one id and Merge for several.
func Gather(ctx context.Context, st Store, ids []string, opts Options) (string, error) {
	clean, err := cleanIDs("merge.gather", ids)
	if err != nil {
		return "", err
	}
	switch len(clean) {
	case 0:
		return "", apperr.InvalidArgument("merge.gather", "chatIds must contain at least one id")
	case 1:
		return View(ctx, st, clean[0], opts)
	}
	return Merge(ctx, st, clean, opts)
}
