// Package textnorm canonicalizes message and title text into comparable
// forms: lowercased, line breaks flattened, whitespace runs collapsed.
package textnorm

import (
	"strings"
	"unicode"
)

// MaxTokens caps how many tokens Tokenize returns.
const MaxTokens = 8

// Normalize lowercases s, turns CR, LF and tab into spaces, collapses runs
// of spaces into one and trims leading/trailing spaces.
// Normalize(Normalize(s)) == Normalize(s) for every s.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(lower))
	prevSpace := false
	for _, r := range lower {
		switch r {
		case '\r', '\n', '\t':
			r = ' '
		}
		if r == ' ' {
			if prevSpace {
				continue
			}
			prevSpace = true
		} else {
			prevSpace = false
		}
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), " ")
}

// Tokenize splits a free-text query into lowercase terms on any run of
// characters that are neither letters nor digits. At most MaxTokens terms
// are returned.
func Tokenize(q string) []string {
	s := strings.TrimSpace(strings.ToLower(q))
	if s == "" {
		return nil
	}
	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	if len(tokens) > MaxTokens {
		tokens = tokens[:MaxTokens]
	}
	return tokens
}

// Signature is the key two messages share when they are the same for
// cross-conversation alignment. It is comparable and usable as a map key.
type Signature struct {
	Role    string
	Content string
}

// SignatureOf builds the signature of a message from its role and content.
// Metadata, citations and attachments never participate.
func SignatureOf(role, content string) Signature {
	return Signature{
		Role:    strings.ToLower(role),
		Content: Normalize(content),
	}
}
