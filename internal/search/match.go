package search

import (
	"strings"
	"unicode/utf8"

	"github.com/sahilm/fuzzy"
)

// matcher applies the term policy and the exclusion terms to hit text.
type matcher struct {
	terms    []string
	policy   Policy
	excludes []string
	fuzzy    bool
}

// Match reports whether text (already lowercased) satisfies the policy
// and contains none of the exclusion terms. A matcher without terms
// matches everything not excluded.
func (m matcher) Match(text string) bool {
	for _, ex := range m.excludes {
		if strings.Contains(text, ex) {
			return false
		}
	}
	if len(m.terms) == 0 {
		return true
	}

	var words []string
	if m.fuzzy {
		words = strings.Fields(text)
	}

	if m.policy == MatchAll {
		for _, t := range m.terms {
			if !m.termMatches(text, words, t) {
				return false
			}
		}
		return true
	}
	for _, t := range m.terms {
		if m.termMatches(text, words, t) {
			return true
		}
	}
	return false
}

func (m matcher) termMatches(text string, words []string, term string) bool {
	if strings.Contains(text, term) {
		return true
	}
	if !m.fuzzy {
		return false
	}
	return fuzzyWordMatch(term, words)
}

// fuzzyWordMatch reports whether term is an in-order subsequence of some
// word no longer than twice the term.
func fuzzyWordMatch(term string, words []string) bool {
	limit := 2 * utf8.RuneCountInString(term)
	candidates := make([]string, 0, len(words))
	for _, w := range words {
		if utf8.RuneCountInString(w) <= limit {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		return false
	}
	return len(fuzzy.Find(term, candidates)) > 0
}
