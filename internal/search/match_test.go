package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatcherPolicies(t *testing.T) {
	text := "notes about rust and go tooling"

	anyOf := matcher{terms: []string{"rust", "python"}, policy: MatchAny}
	assert.True(t, anyOf.Match(text))

	allOf := matcher{terms: []string{"rust", "python"}, policy: MatchAll}
	assert.False(t, allOf.Match(text))

	allOf.terms = []string{"rust", "go"}
	assert.True(t, allOf.Match(text))
}

func TestMatcherExcludes(t *testing.T) {
	m := matcher{terms: []string{"rust"}, policy: MatchAny, excludes: []string{"tooling"}}
	assert.False(t, m.Match("notes about rust and go tooling"))
	assert.True(t, m.Match("rust only"))

	// Without terms only exclusions apply.
	none := matcher{excludes: []string{"secret"}}
	assert.True(t, none.Match("anything"))
	assert.False(t, none.Match("a secret"))
}

func TestMatcherFuzzy(t *testing.T) {
	basic := matcher{terms: []string{"prgm"}, policy: MatchAny}
	assert.False(t, basic.Match("i like programs"))

	fuzzy := basic
	fuzzy.fuzzy = true
	// "programs" is 8 runes, within twice the 4-rune term.
	assert.True(t, fuzzy.Match("i like programs"))
	// "programming" is 11 runes, too long for the term.
	assert.False(t, fuzzy.Match("i like programming"))
	// Literal substrings still match in fuzzy mode.
	assert.True(t, fuzzy.Match("xxprgmxx yy"))
}

func TestParsePolicyAndPrecision(t *testing.T) {
	p, err := ParsePolicy("ALL")
	assert.NoError(t, err)
	assert.Equal(t, MatchAll, p)

	_, err = ParsePolicy("some")
	assert.Error(t, err)

	pr, err := ParsePrecision("")
	assert.NoError(t, err)
	assert.Equal(t, PrecisionBasic, pr)

	_, err = ParsePrecision("exact")
	assert.Error(t, err)
}

func TestIsWildcard(t *testing.T) {
	for _, q := range []string{"*", "recent", "RECENT", " 最近 "} {
		assert.True(t, IsWildcard(q), q)
	}
	for _, q := range []string{"", "recently", "**"} {
		assert.False(t, IsWildcard(q), q)
	}
}

func TestConfidence(t *testing.T) {
	assert.Zero(t, KeywordConfidence(nil))
	assert.Zero(t, RecencyConfidence(nil))

	one := []Result{{Hits: 1}}
	assert.InDelta(t, 0.3+0.4*0.2+0.2/3, KeywordConfidence(one), 1e-9)

	many := []Result{{Hits: 9}, {Hits: 2}, {Hits: 1}, {Hits: 1}}
	assert.InDelta(t, 0.9, KeywordConfidence(many), 1e-9)
	assert.InDelta(t, 0.8, RecencyConfidence(many), 1e-9)
}
