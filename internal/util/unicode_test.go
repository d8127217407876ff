package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestUTF16Len 与 UTF-16 编码长度一致
func TestUTF16Len(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"hello", 5},
		{"你好", 2},
		{"☑️", 2},
		{"📌", 2},
		{"A📌B", 4},
		{"🇺🇸", 4},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, UTF16Len(tt.text))
		})
	}
}

func TestRunePrefix(t *testing.T) {
	assert.Equal(t, 3, RunePrefix("abcdef", 3))
	assert.Equal(t, len("ab"), RunePrefix("ab📌", 3), "surrogate pair must not be split")
	assert.Equal(t, len("ab📌"), RunePrefix("ab📌c", 4))
	assert.Equal(t, len("📌"), RunePrefix("📌x", 1), "first rune always makes progress")
	assert.Equal(t, 0, RunePrefix("", 5))
}

func TestGraphemePrefix(t *testing.T) {
	family := "👨‍👩‍👧" // 3 emoji joined by ZWJ = 8 UTF-16 units
	text := "ab" + family + "cd"

	assert.Equal(t, len("ab"), GraphemePrefix(text, 9), "ZWJ sequence stays whole")
	assert.Equal(t, len("ab"+family), GraphemePrefix(text, 10))
	assert.Equal(t, len("ab"+family+"c"), GraphemePrefix(text, 11))

	flags := "🇺🇸🇯🇵"
	assert.Equal(t, len("🇺🇸"), GraphemePrefix(flags, 6))

	// a single cluster larger than the limit falls back to rune boundaries
	assert.Equal(t, len("👨"), GraphemePrefix(family, 2))
	assert.Equal(t, 0, GraphemePrefix("", 3))
}
