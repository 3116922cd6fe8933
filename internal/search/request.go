package search

import (
	"strings"
	"time"

	"github.com/chatwise-tools/chatwise-mcp/internal/apperr"
	"github.com/chatwise-tools/chatwise-mcp/internal/textnorm"
	"github.com/chatwise-tools/chatwise-mcp/internal/timewindow"
)

// Policy decides how multiple terms combine.
type Policy string

const (
	MatchAny Policy = "any"
	MatchAll Policy = "all"
)

// Precision selects literal or fuzzy term matching.
type Precision string

const (
	PrecisionBasic Precision = "basic"
	PrecisionFuzzy Precision = "fuzzy"
)

// Request limits.
const (
	MaxLimitChats      = 100
	MaxLimitSnippets   = 10
	MaxSnippetWindow   = 400
	MaxRecentCutoff    = 600 * time.Second
	MaxPhraseTerms     = 12
	DefaultLimitChats  = 10
	DefaultLimitSnips  = 3
	DefaultWindowRunes = 64
	DefaultCutoff      = 60 * time.Second
)

// ParsePolicy maps "any"/"all" (any case) to a Policy. Empty is MatchAny.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any":
		return MatchAny, nil
	case "all":
		return MatchAll, nil
	}
	return "", apperr.InvalidArgument("search.match", "match must be 'any' or 'all', got %q", s)
}

// ParsePrecision maps "basic"/"fuzzy" to a Precision. Empty is PrecisionBasic.
func ParsePrecision(s string) (Precision, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "basic":
		return PrecisionBasic, nil
	case "fuzzy":
		return PrecisionFuzzy, nil
	}
	return "", apperr.InvalidArgument("search.precision_mode", "precision_mode must be 'basic' or 'fuzzy', got %q", s)
}

// Request is one search call. Build it with Engine.NewRequest so unset
// fields carry the configured defaults.
type Request struct {
	// Terms are normalized query terms. Empty terms with a wildcard
	// RawQuery select the recency listing.
	Terms    []string
	RawQuery string

	Window    timewindow.Window
	Match     Policy
	Precision Precision

	IncludeTools   bool
	UserOnly       bool
	ExcludeTerms   []string
	ExcludeChatIDs []string
	ExcludeCurrent bool

	LimitChats    int
	LimitSnippets int
	SnippetWindow int

	// RecentCutoff hides user messages newer than now-RecentCutoff. Zero
	// disables the rule.
	RecentCutoff time.Duration
}

// SetQuery sets Terms and RawQuery from a free-text query. A wildcard
// query leaves Terms empty.
func (r *Request) SetQuery(q string) {
	r.RawQuery = strings.TrimSpace(q)
	r.Terms = nil
	if !IsWildcard(r.RawQuery) {
		r.Terms = textnorm.Tokenize(q)
	}
}

// SetPhrases sets Terms from a list of phrases. Each phrase is one term,
// normalized but not split; at most MaxPhraseTerms are kept.
func (r *Request) SetPhrases(phrases []string) {
	r.RawQuery = strings.TrimSpace(strings.Join(phrases, " "))
	r.Terms = nil
	for _, p := range phrases {
		if t := textnorm.Normalize(p); t != "" {
			r.Terms = append(r.Terms, t)
		}
		if len(r.Terms) == MaxPhraseTerms {
			break
		}
	}
}

// SetExcludeTerms lowercases, trims and drops empty exclusion terms.
func (r *Request) SetExcludeTerms(terms []string) {
	r.ExcludeTerms = cleanList(terms, strings.ToLower)
}

// SetExcludeChatIDs trims and drops empty ids.
func (r *Request) SetExcludeChatIDs(ids []string) {
	r.ExcludeChatIDs = cleanList(ids, nil)
}

func cleanList(in []string, fn func(string) string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if fn != nil {
			s = fn(s)
		}
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate checks limits and enums.
func (r *Request) Validate() error {
	const op = "search.validate"
	switch {
	case r.LimitChats < 1 || r.LimitChats > MaxLimitChats:
		return apperr.InvalidArgument(op, "limit_chats must be between 1 and %d", MaxLimitChats)
	case r.LimitSnippets < 1 || r.LimitSnippets > MaxLimitSnippets:
		return apperr.InvalidArgument(op, "limit_snippets_per_chat must be between 1 and %d", MaxLimitSnippets)
	case r.SnippetWindow < 1 || r.SnippetWindow > MaxSnippetWindow:
		return apperr.InvalidArgument(op, "snippet_window must be between 1 and %d", MaxSnippetWindow)
	case r.RecentCutoff < 0 || r.RecentCutoff > MaxRecentCutoff:
		return apperr.InvalidArgument(op, "exclude_recent_user_secs must be between 0 and %d", int(MaxRecentCutoff.Seconds()))
	case r.Window.StartMs > r.Window.EndMs:
		return apperr.InvalidArgument(op, "time window start is after end")
	}
	if _, err := ParsePolicy(string(r.Match)); err != nil {
		return err
	}
	if _, err := ParsePrecision(string(r.Precision)); err != nil {
		return err
	}
	return nil
}

// IsWildcard reports whether a raw query asks for the recency listing.
func IsWildcard(raw string) bool {
	raw = strings.TrimSpace(raw)
	return raw == "*" || strings.EqualFold(raw, "recent") || raw == "最近"
}
