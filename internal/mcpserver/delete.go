package mcpserver

import (
	"context"

	"github.com/chatwise-tools/chatwise-mcp/internal/apperr"
	"github.com/chatwise-tools/chatwise-mcp/internal/chatdb"
)

// DeleteReport is the delete_conversation response.
type DeleteReport struct {
	Status  string                  `json:"status"`
	DryRun  bool                    `json:"dryRun"`
	ChatIDs []string                `json:"chatIds"`
	Deleted *chatdb.DeleteCounts    `json:"deleted,omitempty"`
	PerChat []chatdb.ChatDeleteStat `json:"perChat"`
	Totals  chatdb.DeleteCounts     `json:"totals"`
	Notes   []string                `json:"notes"`
}

const noFileCleanup = "No filesystem cleanup is performed for generatedFiles or attachments."

// Delete counts, and unless dryRun removes, the rows of ids. Duplicate ids
// are collapsed; db must be writable when dryRun is false.
func Delete(ctx context.Context, db *chatdb.DB, ids []string, dryRun bool) (*DeleteReport, error) {
	ids = dedupe(ids)
	if len(ids) == 0 {
		return nil, apperr.InvalidArgument(ToolDelete, "chatId or chatIds must be provided")
	}

	perChat, totals, err := db.DeleteStats(ctx, ids)
	if err != nil {
		return nil, apperr.Unavailable(ToolDelete, err)
	}

	report := &DeleteReport{
		Status:  "ok",
		DryRun:  dryRun,
		ChatIDs: ids,
		PerChat: perChat,
		Totals:  totals,
	}
	if dryRun {
		report.Notes = []string{
			"This tool only deletes DB rows (message, chat).",
			noFileCleanup,
		}
		return report, nil
	}

	deleted, err := db.DeleteChats(ctx, ids)
	if err != nil {
		return nil, apperr.Unavailable(ToolDelete, err)
	}
	report.Deleted = &deleted
	report.Notes = []string{
		"Rows deleted within a single transaction.",
		noFileCleanup,
	}
	return report, nil
}
