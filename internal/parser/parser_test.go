package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPlain 去掉格式标记后只保留文字
func TestPlain(t *testing.T) {
	tests := []struct {
		name     string
		markdown string
		want     string
	}{
		{name: "empty", markdown: "", want: ""},
		{name: "emphasis", markdown: "**bold** and *italic*", want: "bold and italic"},
		{name: "inline code", markdown: "run `go test` now", want: "run go test now"},
		{name: "fenced code", markdown: "```go\nx := 1\n```", want: "x := 1"},
		{name: "link", markdown: "see [docs](https://example.com)", want: "see docs"},
		{name: "paragraphs", markdown: "one\n\ntwo", want: "one\ntwo"},
		{name: "list", markdown: "* a\n* b", want: "a\nb"},
		{name: "unclosed marker stays literal", markdown: "**open", want: "**open"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Plain(tt.markdown))
		})
	}
}

func TestPreview(t *testing.T) {
	assert.Equal(t, "bold text", Preview("**bold**\n\ntext", 0))
	assert.Equal(t, "abc…", Preview("abcdef", 3))
	assert.Equal(t, "abc", Preview("abc", 3))
}
