// Package search ranks ChatWise conversations against a query across chat
// titles, message content and tool metadata.
package search

import (
	"context"
	"sort"
	"time"

	"github.com/chatwise-tools/chatwise-mcp/internal/apperr"
	"github.com/chatwise-tools/chatwise-mcp/internal/chatdb"
	"github.com/chatwise-tools/chatwise-mcp/internal/logging"
	"github.com/chatwise-tools/chatwise-mcp/internal/timewindow"
)

var searchLog = logging.ForComponent(logging.CompSearch)

// Defaults fill a new Request.
type Defaults struct {
	LimitChats     int
	LimitSnippets  int
	SnippetWindow  int
	RecentCutoff   time.Duration
	Precision      Precision
	IncludeTools   bool
	ExcludeCurrent bool
}

// StandardDefaults are used when no configuration overrides them.
func StandardDefaults() Defaults {
	return Defaults{
		LimitChats:     DefaultLimitChats,
		LimitSnippets:  DefaultLimitSnips,
		SnippetWindow:  DefaultWindowRunes,
		RecentCutoff:   DefaultCutoff,
		Precision:      PrecisionBasic,
		IncludeTools:   true,
		ExcludeCurrent: true,
	}
}

// Options configure an Engine.
type Options struct {
	Defaults Defaults

	// Current finds the running conversation for ExcludeCurrent. Nil
	// disables automatic exclusion.
	Current CurrentResolver

	// Now is the clock; nil means time.Now.
	Now func() time.Time
}

// Engine runs searches against one open store.
type Engine struct {
	store Store
	opts  Options
}

// New returns an Engine over st.
func New(st Store, opts Options) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Engine{store: st, opts: opts}
}

// NewRequest returns a Request carrying the engine defaults over the whole
// time range.
func (e *Engine) NewRequest() Request {
	d := e.opts.Defaults
	return Request{
		Window:         timewindow.Everything(),
		Match:          MatchAny,
		Precision:      orDefault(d.Precision, PrecisionBasic),
		IncludeTools:   d.IncludeTools,
		ExcludeCurrent: d.ExcludeCurrent,
		LimitChats:     orInt(d.LimitChats, DefaultLimitChats),
		LimitSnippets:  orInt(d.LimitSnippets, DefaultLimitSnips),
		SnippetWindow:  orInt(d.SnippetWindow, DefaultWindowRunes),
		RecentCutoff:   d.RecentCutoff,
	}
}

func orInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func orDefault(p, def Precision) Precision {
	if p == "" {
		return def
	}
	return p
}

// Search runs req.
func (e *Engine) Search(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()
	now := e.opts.Now()

	excluded := e.excludedChats(ctx, req, now)

	var (
		resp *Response
		err  error
		mode string
	)
	switch {
	case len(req.Terms) > 0:
		mode = "keyword"
		resp, err = e.keyword(ctx, req, excluded, now)
	case IsWildcard(req.RawQuery):
		mode = "recent"
		resp, err = e.recent(ctx, req, excluded, now)
	default:
		mode = "empty"
		resp = newResponse(StopIfNoTerms, req.ExcludeTerms)
	}
	if err != nil {
		return nil, apperr.Unavailable("search", err)
	}

	searchLog.Info("search_done",
		"mode", mode,
		"terms", len(req.Terms),
		"results", len(resp.Results),
		"confidence", resp.Confidence,
		"excluded_chats", len(excluded),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

func (e *Engine) excludedChats(ctx context.Context, req Request, now time.Time) map[string]bool {
	excluded := make(map[string]bool, len(req.ExcludeChatIDs)+1)
	for _, id := range req.ExcludeChatIDs {
		excluded[id] = true
	}
	if req.ExcludeCurrent && e.opts.Current != nil {
		id, err := e.opts.Current.CurrentChatID(ctx, e.store, now)
		if err != nil {
			searchLog.Warn("current_chat_detect_failed", "error", err)
		} else if id != "" {
			searchLog.Debug("current_chat_excluded", "chat_id", id)
			excluded[id] = true
		}
	}
	return excluded
}

func (e *Engine) plan(req Request, now time.Time, chatIDs []string) plan {
	p := plan{
		window:       req.Window,
		chatIDs:      chatIDs,
		userOnly:     req.UserOnly,
		includeTools: req.IncludeTools,
	}
	if req.RecentCutoff > 0 {
		p.cutoffMs = now.Add(-req.RecentCutoff).UnixMilli()
	}
	return p
}

// aggregate is one conversation's hits.
type aggregate struct {
	chatID string
	hits   int
	minMs  int64
	maxMs  int64
}

func (e *Engine) keyword(ctx context.Context, req Request, excluded map[string]bool, now time.Time) (*Response, error) {
	m := matcher{
		terms:    req.Terms,
		policy:   req.Match,
		excludes: req.ExcludeTerms,
		fuzzy:    req.Precision == PrecisionFuzzy,
	}

	hits, err := collect(ctx, e.store, e.plan(req, now, nil))
	if err != nil {
		return nil, err
	}

	byChat := make(map[string]*aggregate)
	for _, h := range hits {
		if excluded[h.ChatID] || !m.Match(h.match) {
			continue
		}
		a, ok := byChat[h.ChatID]
		if !ok {
			a = &aggregate{chatID: h.ChatID, minMs: h.AtMs, maxMs: h.AtMs}
			byChat[h.ChatID] = a
		}
		a.hits++
		if h.AtMs < a.minMs {
			a.minMs = h.AtMs
		}
		if h.AtMs > a.maxMs {
			a.maxMs = h.AtMs
		}
	}

	ranked := make([]*aggregate, 0, len(byChat))
	for _, a := range byChat {
		ranked = append(ranked, a)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].hits != ranked[j].hits {
			return ranked[i].hits > ranked[j].hits
		}
		if ranked[i].maxMs != ranked[j].maxMs {
			return ranked[i].maxMs > ranked[j].maxMs
		}
		return ranked[i].chatID < ranked[j].chatID
	})
	if len(ranked) > req.LimitChats {
		ranked = ranked[:req.LimitChats]
	}

	resp := newResponse(StopIfKeyword, req.ExcludeTerms)
	resp.Guidance.State.ExpandedTerms["terms"] = append([]string{}, req.Terms...)
	if len(ranked) == 0 {
		resp.Guidance.NextActions = []Action{retryAction(req.RawQuery, req.Precision)}
		return resp, nil
	}

	ids := make([]string, len(ranked))
	for i, a := range ranked {
		ids[i] = a.chatID
	}
	titles, err := e.store.ChatsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	snippets, err := e.snippets(ctx, req, now, ids, &m)
	if err != nil {
		return nil, err
	}

	for _, a := range ranked {
		resp.Results = append(resp.Results, Result{
			ChatID:    a.chatID,
			Title:     titleOf(titles, a.chatID),
			Hits:      a.hits,
			TimeRange: TimeRange{From: a.minMs, To: a.maxMs},
			Snippets:  snippets[a.chatID],
		})
	}
	resp.TopChatIDs = ids
	resp.Confidence = KeywordConfidence(resp.Results)
	resp.Guidance.NextActions = []Action{gatherAction(ids,
		"Pull full context for top candidates while minimizing tokens; enable includeTools=true later if needed")}
	return resp, nil
}

func (e *Engine) recent(ctx context.Context, req Request, excluded map[string]bool, now time.Time) (*Response, error) {
	acts, err := e.store.Activity(ctx)
	if err != nil {
		return nil, err
	}

	kept := acts[:0]
	for _, a := range acts {
		if excluded[a.ID] || !req.Window.Contains(a.LastMs()) {
			continue
		}
		kept = append(kept, a)
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].LastMs() != kept[j].LastMs() {
			return kept[i].LastMs() > kept[j].LastMs()
		}
		return kept[i].ID < kept[j].ID
	})
	if len(kept) > req.LimitChats {
		kept = kept[:req.LimitChats]
	}

	resp := newResponse(StopIfRecent, req.ExcludeTerms)
	if len(kept) == 0 {
		return resp, nil
	}

	ids := make([]string, len(kept))
	for i, a := range kept {
		ids[i] = a.ID
	}
	snippets, err := e.snippets(ctx, req, now, ids, nil)
	if err != nil {
		return nil, err
	}

	for _, a := range kept {
		resp.Results = append(resp.Results, Result{
			ChatID:    a.ID,
			Title:     a.TitleText(),
			Hits:      a.MessageCount,
			TimeRange: TimeRange{From: a.FirstMs(), To: a.LastMs()},
			Snippets:  snippetsOrEmpty(snippets[a.ID]),
		})
	}
	resp.TopChatIDs = ids
	resp.Confidence = RecencyConfidence(resp.Results)
	resp.Guidance.NextActions = []Action{gatherAction(ids, "Pull full context for the most recent chats")}
	return resp, nil
}

// snippets re-derives hits for the given chats, keeps the newest
// LimitSnippets per chat that pass m (all of them when m is nil), and cuts
// a window around the first term of each.
func (e *Engine) snippets(ctx context.Context, req Request, now time.Time, ids []string, m *matcher) (map[string][]Snippet, error) {
	hits, err := collect(ctx, e.store, e.plan(req, now, ids))
	if err != nil {
		return nil, err
	}

	var terms []string
	byChat := make(map[string][]Hit, len(ids))
	for _, h := range hits {
		if m != nil && !m.Match(h.match) {
			continue
		}
		byChat[h.ChatID] = append(byChat[h.ChatID], h)
	}
	if m != nil {
		terms = m.terms
	}

	out := make(map[string][]Snippet, len(ids))
	for _, id := range ids {
		chatHits := byChat[id]
		sort.SliceStable(chatHits, func(i, j int) bool {
			if chatHits[i].AtMs != chatHits[j].AtMs {
				return chatHits[i].AtMs > chatHits[j].AtMs
			}
			return chatHits[i].MessageID < chatHits[j].MessageID
		})
		if len(chatHits) > req.LimitSnippets {
			chatHits = chatHits[:req.LimitSnippets]
		}
		snips := make([]Snippet, 0, len(chatHits))
		for _, h := range chatHits {
			snips = append(snips, Snippet{
				MessageID: h.MessageID,
				Role:      h.Role,
				CreatedAt: h.AtMs,
				Text:      Extract(h.Text, terms, req.SnippetWindow),
				Source:    h.Source,
			})
		}
		out[id] = snips
	}
	return out, nil
}

func snippetsOrEmpty(s []Snippet) []Snippet {
	if s == nil {
		return []Snippet{}
	}
	return s
}

func titleOf(chats map[string]*chatdb.Chat, id string) string {
	if c, ok := chats[id]; ok && c != nil {
		return c.TitleText()
	}
	return ""
}
