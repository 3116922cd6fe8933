package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chatwise-tools/chatwise-mcp/internal/apperr"
	"github.com/chatwise-tools/chatwise-mcp/internal/chatdb"
	"github.com/chatwise-tools/chatwise-mcp/internal/clipboard"
	"github.com/chatwise-tools/chatwise-mcp/internal/mcpserver"
	"github.com/chatwise-tools/chatwise-mcp/internal/merge"
)

func handleView(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	tools := fs.Bool("tools", true, "Show tool calls and results")
	copyOut := fs.Bool("copy", false, "Also copy the transcript to the clipboard")
	fs.Usage = func() {
		fmt.Println("Usage: chatwise-mcp view [options] <chat-id>")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		os.Exit(1)
	}
	if fs.NArg() != 1 {
		fs.Usage()
		os.Exit(2)
	}

	err := withDB(context.Background(), env, false, func(ctx context.Context, db *chatdb.DB) error {
		text, err := merge.View(ctx, db, fs.Arg(0), merge.Options{IncludeTools: *tools})
		if err != nil {
			return err
		}
		return emitTranscript(ctx, text, *copyOut)
	})
	exitOnError(err)
}

func handleMerge(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	tools := fs.Bool("tools", true, "Show tool calls and results")
	copyOut := fs.Bool("copy", false, "Also copy the transcript to the clipboard")
	fs.Usage = func() {
		fmt.Println("Usage: chatwise-mcp merge [options] <chat-id> <chat-id>...")
		fmt.Println()
		fmt.Println("Print each conversation's timeline, then the messages all of them share.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		os.Exit(1)
	}
	if fs.NArg() < 2 {
		fs.Usage()
		os.Exit(2)
	}

	err := withDB(context.Background(), env, false, func(ctx context.Context, db *chatdb.DB) error {
		text, err := merge.Merge(ctx, db, fs.Args(), merge.Options{IncludeTools: *tools})
		if err != nil {
			return err
		}
		return emitTranscript(ctx, text, *copyOut)
	})
	exitOnError(err)
}

func handleDelete(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	dryRun := fs.Bool("dry-run", false, "Only count the rows that would be deleted")
	yes := fs.Bool("yes", false, "Skip the confirmation prompt")
	jsonOutput := fs.Bool("json", !stdoutIsTerminal(), "Output as JSON")
	fs.Usage = func() {
		fmt.Println("Usage: chatwise-mcp delete [options] <chat-id>...")
		fmt.Println()
		fmt.Println("Delete conversations and their messages in one transaction.")
		fmt.Println("Files the conversations reference stay on disk.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}

	out := NewCLIOutput(*jsonOutput)
	ids := fs.Args()
	if !*dryRun && !*yes {
		if !stdinIsTerminal() {
			err := apperr.InvalidArgument("delete", "refusing to delete without --yes when stdin is not a terminal")
			out.Fail(err)
			os.Exit(exitCode(err))
		}
		if !confirm(os.Stdin, os.Stdout, fmt.Sprintf("Delete %d conversation(s)? [y/N] ", len(ids))) {
			fmt.Println("Cancelled.")
			return
		}
	}

	report, err := runDelete(context.Background(), env, ids, *dryRun)
	if err != nil {
		out.Fail(err)
		os.Exit(exitCode(err))
	}
	out.Print(formatDelete(report), report)
}

func runDelete(ctx context.Context, env *cliEnv, ids []string, dryRun bool) (*mcpserver.DeleteReport, error) {
	var report *mcpserver.DeleteReport
	err := withDB(ctx, env, !dryRun, func(ctx context.Context, db *chatdb.DB) error {
		var err error
		report, err = mcpserver.Delete(ctx, db, ids, dryRun)
		return err
	})
	return report, err
}

func formatDelete(r *mcpserver.DeleteReport) string {
	var b strings.Builder
	for _, c := range r.PerChat {
		state := "missing"
		if c.Exists {
			state = fmt.Sprintf("%d messages", c.ToDelete.Messages)
		}
		fmt.Fprintf(&b, "  %s %s %s\n", bulletSymbol, c.ChatID, dimStyle.Render(state))
	}
	if r.DryRun {
		fmt.Fprintf(&b, "Would delete %d chat(s) and %d message(s).\n", r.Totals.Chat, r.Totals.Messages)
	} else if r.Deleted != nil {
		fmt.Fprintf(&b, "%s Deleted %d chat(s) and %d message(s).\n",
			successStyle.Render(successSymbol), r.Deleted.Chat, r.Deleted.Messages)
	}
	return b.String()
}

// emitTranscript prints text and optionally copies it to the clipboard.
func emitTranscript(ctx context.Context, text string, copyOut bool) error {
	fmt.Println(text)
	if !copyOut {
		return nil
	}
	res, err := clipboard.New().Copy(ctx, text)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "%s Copied %d lines via %s\n", successStyle.Render(successSymbol), res.Lines, res.Method)
	return nil
}

// confirm asks a yes/no question and reports whether the answer was yes.
func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// withDB opens the resolved database for one command.
func withDB(ctx context.Context, env *cliEnv, writable bool, fn func(context.Context, *chatdb.DB) error) error {
	path, err := env.databasePath()
	if err != nil {
		return err
	}
	db, err := chatdb.Open(ctx, path, chatdb.Options{Writable: writable})
	if err != nil {
		return err
	}
	defer db.Close()
	return fn(ctx, db)
}

func exitOnError(err error) {
	if err == nil {
		return
	}
	NewCLIOutput(false).Fail(err)
	os.Exit(exitCode(err))
}
