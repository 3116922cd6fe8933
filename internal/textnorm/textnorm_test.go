package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"lowercase", "Hello World", "hello world"},
		{"line breaks", "line one\r\nline two\nthree", "line one line two three"},
		{"tabs", "a\t\tb", "a b"},
		{"runs of spaces", "  many     spaces  here ", "many spaces here"},
		{"unicode", "Ärger  ÜBER  Rust", "ärger über rust"},
		{"only whitespace", " \r\n\t ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"",
		"I love Rust programming",
		"  Mixed\tCASE\r\nwith   gaps ",
		"中文 内容\n\n测试",
		"trailing\n",
		" nbsp  kept ",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}

func TestTokenize(t *testing.T) {
	assert.Nil(t, Tokenize("   "))
	assert.Equal(t, []string{"rust", "async", "io"}, Tokenize("Rust: async/IO!"))
	assert.Equal(t, []string{"生活", "日常"}, Tokenize("生活/日常"))
	assert.Equal(t, []string{"v2", "release"}, Tokenize("v2 -- release"))
}

func TestTokenizeCapsTerms(t *testing.T) {
	got := Tokenize("a b c d e f g h i j k")
	assert.Len(t, got, MaxTokens)
	assert.Equal(t, "h", got[MaxTokens-1])
}

func TestSignatureOf(t *testing.T) {
	a := SignatureOf("User", "Ping\n")
	b := SignatureOf("user", "  ping ")
	assert.Equal(t, a, b)

	c := SignatureOf("assistant", "ping")
	assert.NotEqual(t, a, c)
}
