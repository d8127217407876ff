package chatstream

import (
	"context"
	"errors"
	"math/rand/v2"
	"slices"
	"strings"
	"testing"
	"unicode"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riverfjs/chatstream-go/internal/span"
)

// recordingSink 记录每次投递的消息
type recordingSink struct {
	sent []string
}

func (r *recordingSink) Deliver(_ context.Context, message string) error {
	r.sent = append(r.sent, message)
	return nil
}

func sendAndFlush(t *testing.T, text string, opts ...Option) []string {
	t.Helper()
	sink := &recordingSink{}
	s := NewSender(sink, opts...)
	require.NoError(t, s.Send(context.Background(), text, false))
	require.NoError(t, s.Send(context.Background(), "", true))
	return sink.sent
}

// TestSender_SplitsLongText 超长文本拆分成多条，拼接后还原
func TestSender_SplitsLongText(t *testing.T) {
	text := strings.Repeat("a", 2000)
	sent := sendAndFlush(t, text)

	require.Len(t, sent, 2)
	assert.Equal(t, text, strings.Join(sent, ""))
	for _, msg := range sent {
		assert.LessOrEqual(t, UTF16Len(msg), PlatformLimit)
	}
	assert.Equal(t, ChunkLimit, len(sent[0]))
}

// TestSender_ClosesUnclosedAcrossPieces 跨段的强调被闭合并在下一段重开
func TestSender_ClosesUnclosedAcrossPieces(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		firstEnd  string
		second    string
		secondPfx string
	}{
		{
			name:     "single star",
			text:     strings.Repeat("a", 1949) + "*b",
			firstEnd: "**",
			second:   "*b*",
		},
		{
			name:     "bold",
			text:     strings.Repeat("a", 1948) + "**bold",
			firstEnd: "****",
			second:   "**bold**",
		},
		{
			name:     "underscore",
			text:     strings.Repeat("a", 1949) + "_b",
			firstEnd: "__",
			second:   "_b_",
		},
		{
			name:      "code fence",
			text:      strings.Repeat("a", 1947) + "```js\nconsole.log(1)",
			firstEnd:  "````",
			secondPfx: "```",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sent := sendAndFlush(t, tt.text)
			require.Len(t, sent, 2)
			assert.True(t, strings.HasSuffix(sent[0], tt.firstEnd), "first piece %q", sent[0][len(sent[0])-8:])
			if tt.second != "" {
				assert.Equal(t, tt.second, sent[1])
			}
			if tt.secondPfx != "" {
				assert.True(t, strings.HasPrefix(sent[1], tt.secondPfx))
			}
		})
	}
}

// TestSender_ReopenAfterLeadingSpace 下一段以空白开头时，重开标记放在空白之后
func TestSender_ReopenAfterLeadingSpace(t *testing.T) {
	tests := []struct {
		name string
		text string
		opts []Option
		want []string
	}{
		{
			name: "hard cut before space",
			text: "*" + strings.Repeat("a", 1949) + " b*",
			want: []string{"*" + strings.Repeat("a", 1949) + "*", " *b*"},
		},
		{
			name: "newline kept leading",
			text: "**aaaaaaaaaa\nmore bold** end",
			opts: []Option{WithChunkLimit(20), WithBoundaryPolicy(BoundaryKeepLeading)},
			want: []string{"**aaaaaaaaaa**", "\n**more bold** end"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sent := sendAndFlush(t, tt.text, tt.opts...)
			assert.Equal(t, tt.want, sent)
			for _, msg := range sent {
				assert.Empty(t, ComputeUnclosed(msg), msg)
			}
		})
	}
}

func TestSender_WhitespaceOnlyPieceKeepsCarry(t *testing.T) {
	sink := &recordingSink{}
	s := NewSender(sink, WithChunkLimit(12))
	ctx := context.Background()

	require.NoError(t, s.Send(ctx, "**aaaaaaaaaa", false))
	require.NoError(t, s.Send(ctx, "  ", true))
	assert.Equal(t, "**", s.CarryPrefix())
	require.NoError(t, s.Send(ctx, "b**", true))

	assert.Equal(t, []string{"**aaaaaaaaaa**", "  ", "**b**"}, sink.sent)
	assert.Equal(t, "", s.CarryPrefix())
}

// TestSender_FenceIgnoresEmphasis 围栏内的星号不参与强调跟踪
func TestSender_FenceIgnoresEmphasis(t *testing.T) {
	sink := &recordingSink{}
	s := NewSender(sink, WithChunkLimit(10))
	ctx := context.Background()

	require.NoError(t, s.Send(ctx, "```js\nconst a = *b*", false))
	require.NoError(t, s.Send(ctx, "```", true))

	require.Len(t, sink.sent, 3)
	assert.Equal(t, "```js```", sink.sent[0])
	assert.Equal(t, "```const a =```", sink.sent[1])
	assert.Equal(t, "```*b*```", sink.sent[2])
	for _, msg := range sink.sent {
		assert.Empty(t, ComputeUnclosed(msg), msg)
		assert.Equal(t, 6, strings.Count(msg, "`"), msg)
	}
	assert.Equal(t, "", s.CarryPrefix())
}

// TestSender_BoundaryPolicy 换行切分处的三种处理方式
func TestSender_BoundaryPolicy(t *testing.T) {
	text := strings.Repeat("a", 1925) + "\n" + strings.Repeat("b", 14) + "\nParagraph two."
	head := strings.Repeat("a", 1925) + "\n" + strings.Repeat("b", 14)

	tests := []struct {
		name   string
		policy BoundaryPolicy
		want   []string
	}{
		{name: "drop", policy: BoundaryDrop, want: []string{head, "Paragraph two."}},
		{name: "trailing", policy: BoundaryKeepTrailing, want: []string{head + "\n", "Paragraph two."}},
		{name: "leading", policy: BoundaryKeepLeading, want: []string{head, "\nParagraph two."}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sent := sendAndFlush(t, text, WithBoundaryPolicy(tt.policy))
			assert.Equal(t, tt.want, sent)
		})
	}
}

// TestSender_KeepTrailingRoundTrip 段落切分保留换行时拼接结果与原文一致
func TestSender_KeepTrailingRoundTrip(t *testing.T) {
	first := "Paragraph one.\n"
	text := first + strings.Repeat("a", 1940-len(first)) + "\nParagraph two."

	sent := sendAndFlush(t, text, WithBoundaryPolicy(BoundaryKeepTrailing))
	require.Len(t, sent, 2)
	assert.True(t, strings.HasSuffix(sent[0], "\n"))
	assert.Equal(t, text, strings.Join(sent, ""))
}

// TestSender_PrefersSentenceEnd 空格切分优先选择靠近末尾的句末
func TestSender_PrefersSentenceEnd(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "sentence end in tail",
			text: "aaaaaaaaaaaaaa. b c d",
			want: []string{"aaaaaaaaaaaaaa.", "b c d"},
		},
		{
			name: "early sentence end falls back to last space",
			text: "First one. Second two three four",
			want: []string{"First one. Second", "two three four"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sendAndFlush(t, tt.text, WithChunkLimit(20)))
		})
	}
}

func TestSender_ShortLeadingSentenceDoesNotShrinkPiece(t *testing.T) {
	sent := sendAndFlush(t, "Hi. "+strings.Repeat("word ", 400))
	require.NotEmpty(t, sent)
	assert.Len(t, sent[0], 1948)
	assert.True(t, strings.HasPrefix(sent[0], "Hi. word"))
}

func TestSender_HardCutKeepsGraphemes(t *testing.T) {
	text := "a😀😀😀"
	sent := sendAndFlush(t, text, WithChunkLimit(4))
	assert.Equal(t, []string{"a😀", "😀😀"}, sent)
	for _, msg := range sent {
		assert.True(t, utf8.ValidString(msg))
	}
}

func TestSender_TrimLeadingSpace(t *testing.T) {
	sent := sendAndFlush(t, "hello world again",
		WithChunkLimit(12),
		WithBoundaryPolicy(BoundaryKeepLeading),
		WithTrimLeadingSpace(true),
	)
	assert.Equal(t, []string{"hello world", "again"}, sent)
}

func TestSender_TrimmedEmptyBodyIsNotDelivered(t *testing.T) {
	sent := sendAndFlush(t, "   \n  ", WithTrimLeadingSpace(true))
	assert.Empty(t, sent)
}

func TestSender_NoDeliveryBelowLimit(t *testing.T) {
	sink := &recordingSink{}
	s := NewSender(sink)
	require.NoError(t, s.Write(context.Background(), "short"))
	assert.Empty(t, sink.sent)
	assert.Equal(t, "short", s.Pending())

	require.NoError(t, s.Flush(context.Background()))
	assert.Equal(t, []string{"short"}, sink.sent)
	assert.Equal(t, "", s.Pending())

	// flushing an empty buffer delivers nothing
	require.NoError(t, s.Flush(context.Background()))
	assert.Len(t, sink.sent, 1)
}

// TestSender_DeliveryFailure 投递失败时错误原样返回，失败的那一段保留在缓冲区
func TestSender_DeliveryFailure(t *testing.T) {
	errBoom := errors.New("boom")
	var sent []string
	fail := true
	sink := SinkFunc(func(_ context.Context, msg string) error {
		if len(sent) == 1 && fail {
			return errBoom
		}
		sent = append(sent, msg)
		return nil
	})

	s := NewSender(sink, WithChunkLimit(10))
	ctx := context.Background()
	err := s.Send(ctx, "**aaaaaaa bbbbbbb cc", true)

	var de *DeliveryError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 1, de.Piece)
	assert.ErrorIs(t, err, errBoom)
	require.Len(t, sent, 1)
	assert.Equal(t, "**aaaaaaa**", sent[0])
	assert.Equal(t, "bbbbbbb cc", s.Pending())
	assert.Equal(t, "**", s.CarryPrefix())

	fail = false
	require.NoError(t, s.Flush(ctx))
	assert.Equal(t, []string{"**aaaaaaa**", "**bbbbbbb cc**"}, sent)
}

func TestSender_ContextCanceled(t *testing.T) {
	sink := &recordingSink{}
	s := NewSender(sink)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Send(ctx, "pending", true)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, sink.sent)
	assert.Equal(t, "pending", s.Pending())
}

func TestNewSendFunc(t *testing.T) {
	sink := &recordingSink{}
	send := NewSendFunc(sink)
	ctx := context.Background()
	require.NoError(t, send(ctx, "**hi", false))
	require.NoError(t, send(ctx, "", true))
	assert.Equal(t, []string{"**hi**"}, sink.sent)
}

// TestSender_PiecesAreBalanced 每一段单独看都是闭合的
func TestSender_PiecesAreBalanced(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		b.WriteString("word **bold words here** and _italic text_ with `code span` end. ")
	}
	sent := sendAndFlush(t, b.String(), WithChunkLimit(97))
	require.Greater(t, len(sent), 10)
	for _, msg := range sent {
		assert.Empty(t, ComputeUnclosed(msg), msg)
	}
}

// TestSender_RoundTripProperty 任意输入、任意分批发送，去掉补充的标记后与原文一致，
// 且除重开标记与相邻标记粘连的情况外，每段消息本身都是闭合的
func TestSender_RoundTripProperty(t *testing.T) {
	alphabet := []string{
		"a", "b", "word", " ", " ", "\n", ".", "!", "*", "**", "_", "`", "```",
		"😀", "👨‍👩‍👧", "é", "foo_bar", "* item\n",
	}

	policies := []BoundaryPolicy{BoundaryKeepTrailing, BoundaryKeepLeading, BoundaryDrop}
	for seed := uint64(1); seed <= 60; seed++ {
		rng := rand.New(rand.NewPCG(seed, seed*7))

		var b strings.Builder
		for n := rng.IntN(400); n > 0; n-- {
			b.WriteString(alphabet[rng.IntN(len(alphabet))])
		}
		text := b.String()
		limit := 8 + rng.IntN(60)
		policy := policies[int(seed)%len(policies)]

		type delivery struct {
			message string
			open    []string
		}
		var got []delivery
		var s *Sender
		s = NewSender(SinkFunc(func(_ context.Context, msg string) error {
			got = append(got, delivery{message: msg, open: slices.Clone(s.open)})
			return nil
		}), WithChunkLimit(limit), WithBoundaryPolicy(policy))

		ctx := context.Background()
		rest := text
		for rest != "" {
			n := min(len(rest), 1+rng.IntN(50))
			for n < len(rest) && !utf8.RuneStart(rest[n]) {
				n++
			}
			require.NoError(t, s.Send(ctx, rest[:n], false))
			rest = rest[n:]
		}
		require.NoError(t, s.Send(ctx, "", true))

		var bodies strings.Builder
		for i, d := range got {
			next := s.open
			if i+1 < len(got) {
				next = got[i+1].open
			}
			lead := len(d.message) - len(strings.TrimLeftFunc(d.message, unicode.IsSpace))
			body := d.message
			if lead < len(d.message) {
				prefix, closing := span.Prefix(d.open), span.Closing(next)
				require.True(t, strings.HasPrefix(d.message[lead:], prefix), "seed %d piece %d", seed, i)
				inner := d.message[lead+len(prefix) : len(d.message)-len(closing)]
				body = d.message[:lead] + inner

				parts := append(slices.Clone(d.open), inner)
				for j := len(next) - 1; j >= 0; j-- {
					parts = append(parts, next[j])
				}
				if !markersTouch(parts) {
					assert.Empty(t, ComputeUnclosed(d.message), "seed %d piece %d: %q", seed, i, d.message)
				}
			}
			assert.LessOrEqual(t, UTF16Len(body), limit, "seed %d piece %d", seed, i)
			assert.True(t, utf8.ValidString(body), "seed %d piece %d", seed, i)
			bodies.WriteString(body)
		}

		if policy == BoundaryDrop {
			strip := strings.NewReplacer("\n", "", " ", "")
			assert.Equal(t, strip.Replace(text), strip.Replace(bodies.String()), "seed %d", seed)
		} else {
			assert.Equal(t, text, bodies.String(), "seed %d", seed)
		}
	}
}

// markersTouch 相邻两部分在同一种标记字符处相接时，合并后的连续标记会被当作一个标记
func markersTouch(parts []string) bool {
	for i := 1; i < len(parts); i++ {
		a, b := parts[i-1], parts[i]
		if a == "" || b == "" {
			continue
		}
		if c := b[0]; a[len(a)-1] == c && strings.IndexByte("*_`", c) >= 0 {
			return true
		}
	}
	return false
}

// TestSender_WordBoundaries 存在空格时不会在单词中间切分
func TestSender_WordBoundaries(t *testing.T) {
	words := strings.Repeat("lorem ipsum dolor sit amet consectetur ", 120)
	sent := sendAndFlush(t, words, WithBoundaryPolicy(BoundaryKeepTrailing))
	require.Greater(t, len(sent), 1)
	for _, msg := range sent[:len(sent)-1] {
		assert.True(t, strings.HasSuffix(msg, " "), "piece ends mid-word: %q", msg[len(msg)-10:])
	}
	assert.Equal(t, words, strings.Join(sent, ""))
}
