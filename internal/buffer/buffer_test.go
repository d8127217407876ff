package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextBuffer_WriteConsume(t *testing.T) {
	tb := New()
	tb.Write("hello ")
	tb.Write("📌 world")

	assert.Equal(t, "hello 📌 world", tb.String())
	// "hello " = 6, 📌 = 2, " world" = 6
	assert.Equal(t, 14, tb.UTF16Len())

	tb.Consume(len("hello "))
	assert.Equal(t, "📌 world", tb.String())
	assert.Equal(t, 8, tb.UTF16Len())

	tb.Consume(len("📌"))
	assert.Equal(t, " world", tb.String())
	assert.Equal(t, 6, tb.UTF16Len())
}

func TestTextBuffer_ConsumeClamps(t *testing.T) {
	tb := New()
	tb.Write("abc")
	tb.Consume(0)
	assert.Equal(t, "abc", tb.String())

	tb.Consume(10)
	assert.Equal(t, "", tb.String())
	assert.Equal(t, 0, tb.UTF16Len())
	assert.Equal(t, 0, tb.Len())
}

func TestTextBuffer_EmptyWrite(t *testing.T) {
	tb := New()
	tb.Write("")
	assert.Equal(t, 0, tb.Len())

	tb.Write("x")
	tb.Reset()
	assert.Equal(t, 0, tb.UTF16Len())
}
