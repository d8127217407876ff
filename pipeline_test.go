package chatstream

import (
	"context"
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAll(t *testing.T) {
	sink := &recordingSink{}
	n, err := SendAll(context.Background(), sink, "one two three four", WithChunkLimit(9))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"one two", "three", "four"}, sink.sent)
}

func TestSendAll_Error(t *testing.T) {
	errBoom := errors.New("boom")
	n, err := SendAll(context.Background(), SinkFunc(func(context.Context, string) error {
		return errBoom
	}), "text")
	assert.Equal(t, 0, n)
	assert.ErrorIs(t, err, errBoom)
}

func TestPipe(t *testing.T) {
	fragments := make(chan string)
	go func() {
		defer close(fragments)
		for _, f := range []string{"**str", "eam", "ed** _te", "xt"} {
			fragments <- f
		}
	}()

	sink := &recordingSink{}
	n, err := Pipe(context.Background(), sink, fragments, WithChunkLimit(13))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"**streamed**", "_text_"}, sink.sent)
}

func TestPipe_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &recordingSink{}
	n, err := Pipe(ctx, sink, make(chan string))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, n)
	assert.Empty(t, sink.sent)
}

// TestCopy_SplitMultibyte 逐字节读取，多字节字符被拆在两次读取之间
func TestCopy_SplitMultibyte(t *testing.T) {
	text := strings.Repeat("héllo wörld 😀 ", 30)
	sink := &recordingSink{}
	n, err := Copy(context.Background(), sink, iotest.OneByteReader(strings.NewReader(text)),
		WithChunkLimit(50), WithBoundaryPolicy(BoundaryKeepTrailing))
	require.NoError(t, err)
	assert.Equal(t, len(sink.sent), n)
	assert.Greater(t, n, 1)
	assert.Equal(t, text, strings.Join(sink.sent, ""))
}

func TestCopy_ReadError(t *testing.T) {
	errRead := errors.New("read failed")
	sink := &recordingSink{}
	_, err := Copy(context.Background(), sink, iotest.ErrReader(errRead))
	assert.ErrorIs(t, err, errRead)
}

func TestCompleteRunes(t *testing.T) {
	smile := []byte("😀")
	tests := []struct {
		name string
		data []byte
		want int
	}{
		{name: "ascii", data: []byte("abc"), want: 3},
		{name: "complete", data: append([]byte("a"), smile...), want: 5},
		{name: "one byte of four", data: append([]byte("a"), smile[:1]...), want: 1},
		{name: "three bytes of four", data: append([]byte("a"), smile[:3]...), want: 1},
		{name: "empty", data: nil, want: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, completeRunes(tt.data))
		})
	}
}
