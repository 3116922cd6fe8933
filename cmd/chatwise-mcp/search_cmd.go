package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chatwise-tools/chatwise-mcp/internal/chatdb"
	"github.com/chatwise-tools/chatwise-mcp/internal/search"
	"github.com/chatwise-tools/chatwise-mcp/internal/timewindow"
)

// Table column widths for recent command output
const (
	tableColUpdated = 19
	tableColMsgs    = 5
	tableColTitle   = 40
)

type searchFlags struct {
	query        []string
	phrases      bool
	window       string
	match        string
	fuzzy        bool
	limit        int
	snippets     int
	snippetWidth int
	userOnly     bool
	noTools      bool
	exclude      string
	excludeChats string
}

func handleSearch(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	var f searchFlags
	fs.BoolVar(&f.phrases, "phrases", false, "Treat each argument as one phrase instead of splitting into words")
	fs.StringVar(&f.window, "window", "all", "Time window: 7d, 30d, 60d, 90d or all")
	fs.StringVar(&f.match, "match", "any", "Require any or all terms")
	fs.BoolVar(&f.fuzzy, "fuzzy", false, "Fuzzy word matching")
	fs.IntVar(&f.limit, "limit", 0, "Max conversations (default from config, 10)")
	fs.IntVar(&f.snippets, "snippets", 0, "Max snippets per conversation (default from config, 3)")
	fs.IntVar(&f.snippetWidth, "snippet-window", 0, "Characters around each match (default from config, 64)")
	fs.BoolVar(&f.userOnly, "user-only", false, "Search only your own messages")
	fs.BoolVar(&f.noTools, "no-tools", false, "Skip tool output")
	fs.StringVar(&f.exclude, "exclude", "", "Comma-separated terms that drop a conversation")
	fs.StringVar(&f.excludeChats, "exclude-chat", "", "Comma-separated chat ids to leave out")
	jsonOutput := fs.Bool("json", !stdoutIsTerminal(), "Output as JSON")

	fs.Usage = func() {
		fmt.Println("Usage: chatwise-mcp search [options] <query...>")
		fmt.Println()
		fmt.Println("Rank conversations by how often the query appears in titles, messages and tool output.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
		fmt.Println()
		fmt.Println("Examples:")
		fmt.Println("  chatwise-mcp search rust async --match all")
		fmt.Println("  chatwise-mcp search --phrases \"error handling\" 错误处理")
	}
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		os.Exit(1)
	}
	f.query = fs.Args()

	out := NewCLIOutput(*jsonOutput)
	if len(f.query) == 0 {
		fs.Usage()
		os.Exit(2)
	}

	resp, err := runSearch(context.Background(), env, f, time.Now())
	if err != nil {
		out.Fail(err)
		os.Exit(exitCode(err))
	}
	out.Print(formatSearch(resp), resp)
}

func handleRecent(env *cliEnv, args []string) {
	fs := flag.NewFlagSet("recent", flag.ExitOnError)
	window := fs.String("window", "all", "Time window: 7d, 30d, 60d, 90d or all")
	limit := fs.Int("limit", 20, "Max conversations")
	jsonOutput := fs.Bool("json", !stdoutIsTerminal(), "Output as JSON")

	fs.Usage = func() {
		fmt.Println("Usage: chatwise-mcp recent [options]")
		fmt.Println()
		fmt.Println("List conversations by latest activity.")
		fmt.Println()
		fmt.Println("Options:")
		fs.PrintDefaults()
	}
	if err := fs.Parse(normalizeArgs(fs, args)); err != nil {
		os.Exit(1)
	}

	out := NewCLIOutput(*jsonOutput)
	resp, err := runSearch(context.Background(), env, searchFlags{
		query:    []string{"*"},
		window:   *window,
		limit:    *limit,
		snippets: 1,
	}, time.Now())
	if err != nil {
		out.Fail(err)
		os.Exit(exitCode(err))
	}
	out.Print(formatRecent(resp), resp)
}

// runSearch runs one search with the CLI's view of defaults: there is no
// running chat to exclude and no prompt to hide.
func runSearch(ctx context.Context, env *cliEnv, f searchFlags, now time.Time) (*search.Response, error) {
	path, err := env.databasePath()
	if err != nil {
		return nil, err
	}
	db, err := chatdb.Open(ctx, path, chatdb.Options{})
	if err != nil {
		return nil, err
	}
	defer db.Close()

	eng := search.New(db, search.Options{
		Defaults: searchDefaults(env.cfg.Search),
		Now:      func() time.Time { return now },
	})
	req := eng.NewRequest()
	req.ExcludeCurrent = false
	req.RecentCutoff = 0

	if f.phrases {
		req.SetPhrases(f.query)
	} else {
		req.SetQuery(strings.Join(f.query, " "))
	}
	if req.Window, err = timewindow.ForName(f.window, now); err != nil {
		return nil, err
	}
	if req.Match, err = search.ParsePolicy(f.match); err != nil {
		return nil, err
	}
	if f.fuzzy {
		req.Precision = search.PrecisionFuzzy
	}
	if f.limit > 0 {
		req.LimitChats = f.limit
	}
	if f.snippets > 0 {
		req.LimitSnippets = f.snippets
	}
	if f.snippetWidth > 0 {
		req.SnippetWindow = f.snippetWidth
	}
	req.UserOnly = f.userOnly
	if f.noTools {
		req.IncludeTools = false
	}
	req.SetExcludeTerms(splitList(f.exclude))
	req.SetExcludeChatIDs(splitList(f.excludeChats))

	return eng.Search(ctx, req)
}

func displayTitle(title string) string {
	if strings.TrimSpace(title) == "" {
		return "<untitled>"
	}
	return title
}

func formatSearch(resp *search.Response) string {
	if len(resp.Results) == 0 {
		return "No matching conversations.\n"
	}

	var b strings.Builder
	for i, r := range resp.Results {
		fmt.Fprintf(&b, "%d. %s %s\n", i+1, titleStyle.Render(displayTitle(r.Title)), dimStyle.Render(r.ChatID))
		fmt.Fprintf(&b, "   %s  %s ~ %s\n",
			hitStyle.Render(fmt.Sprintf("%d hits", r.Hits)),
			timewindow.Format(r.TimeRange.From),
			timewindow.Format(r.TimeRange.To))
		for _, s := range r.Snippets {
			role := s.Role
			if role == "" {
				role = "-"
			}
			fmt.Fprintf(&b, "   %s %s %s %s\n",
				bulletSymbol,
				sourceStyle.Render("["+string(s.Source)+"]"),
				dimStyle.Render(role),
				strings.Join(strings.Fields(s.Text), " "))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Confidence: %.2f\n", resp.Confidence)
	return b.String()
}

func formatRecent(resp *search.Response) string {
	if len(resp.Results) == 0 {
		return "No conversations.\n"
	}

	var b strings.Builder
	header := fmt.Sprintf("%s %s %s %s",
		fitWidth("UPDATED", tableColUpdated),
		fitWidth("MSGS", tableColMsgs),
		fitWidth("TITLE", tableColTitle),
		"ID")
	b.WriteString(headerStyle.Render(header) + "\n")
	for _, r := range resp.Results {
		fmt.Fprintf(&b, "%s %s %s %s\n",
			fitWidth(timewindow.Format(r.TimeRange.To), tableColUpdated),
			fitWidth(fmt.Sprintf("%d", r.Hits), tableColMsgs),
			fitWidth(displayTitle(r.Title), tableColTitle),
			dimStyle.Render(r.ChatID))
	}
	fmt.Fprintf(&b, "\nTotal: %d conversations\n", len(resp.Results))
	return b.String()
}
