package buffer

import "github.com/riverfjs/chatstream-go/internal/util"

// TextBuffer accumulates pending text and tracks its UTF-16 length.
type TextBuffer struct {
	text     string
	utf16Len int
}

// New creates a new TextBuffer.
func New() *TextBuffer {
	return &TextBuffer{}
}

// Write appends text to the buffer.
func (tb *TextBuffer) Write(text string) {
	if text == "" {
		return
	}
	tb.text += text
	tb.utf16Len += util.UTF16Len(text)
}

// UTF16Len returns the pending length in UTF-16 code units.
func (tb *TextBuffer) UTF16Len() int {
	return tb.utf16Len
}

// Len returns the pending length in bytes.
func (tb *TextBuffer) Len() int {
	return len(tb.text)
}

// Consume removes the first n bytes. n is clamped to the buffer length and
// must fall on a rune boundary.
func (tb *TextBuffer) Consume(n int) {
	if n <= 0 {
		return
	}
	if n >= len(tb.text) {
		tb.Reset()
		return
	}
	tb.utf16Len -= util.UTF16Len(tb.text[:n])
	tb.text = tb.text[n:]
}

// String returns the pending text.
func (tb *TextBuffer) String() string {
	return tb.text
}

// Reset clears the buffer.
func (tb *TextBuffer) Reset() {
	tb.text = ""
	tb.utf16Len = 0
}
