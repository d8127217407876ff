package chatstream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/riverfjs/chatstream-go/internal/buffer"
	"github.com/riverfjs/chatstream-go/internal/parser"
	"github.com/riverfjs/chatstream-go/internal/span"
	"github.com/riverfjs/chatstream-go/internal/util"
)

// Sink delivers one finished message, e.g. by posting it to a chat channel.
type Sink interface {
	Deliver(ctx context.Context, message string) error
}

// SinkFunc adapts a function to a Sink.
type SinkFunc func(ctx context.Context, message string) error

// Deliver calls f(ctx, message).
func (f SinkFunc) Deliver(ctx context.Context, message string) error {
	return f(ctx, message)
}

// DeliveryError is returned by Send when the sink rejects a piece.
type DeliveryError struct {
	// Piece is the zero-based index of the piece that failed.
	Piece int
	Err   error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver piece %d: %v", e.Piece, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// SendFunc is the closure form of Sender.Send.
type SendFunc func(ctx context.Context, text string, force bool) error

// Sender 把增量到达的文本流切成有界长度、各自独立合法的 Markdown 消息
//
// 每段消息 = 上一段遗留的重开标记 + 正文 + 闭合标记。Sender 不是并发安全的：
// 同一个实例的 Send 调用必须串行，每个输出流使用独立的实例。
type Sender struct {
	sink   Sink
	config Config
	logger *slog.Logger

	buf    *buffer.TextBuffer
	open   []string
	pieces int
}

// NewSender creates a Sender delivering to sink.
func NewSender(sink Sink, opts ...Option) *Sender {
	options := applyOptions(opts...)
	logger := options.Logger
	if logger == nil {
		logger = Logger
	}
	return &Sender{
		sink:   sink,
		config: *options.Config,
		logger: logger,
		buf:    buffer.New(),
	}
}

// NewSendFunc creates a Sender and returns its Send method.
func NewSendFunc(sink Sink, opts ...Option) SendFunc {
	return NewSender(sink, opts...).Send
}

// Send 追加 text；缓冲区达到上限（或 force 且非空）时切出并投递消息
//
// 每段投递完成后才计算下一段，因此投递顺序与生成顺序一致。投递失败时返回
// *DeliveryError，失败那一段仍留在缓冲区中，之前已投递的部分不会重发。
func (s *Sender) Send(ctx context.Context, text string, force bool) error {
	s.buf.Write(text)

	limit := s.config.ChunkLimit
	for s.buf.UTF16Len() >= limit || (force && s.buf.Len() > 0) {
		if err := ctx.Err(); err != nil {
			return err
		}

		pending := s.buf.String()
		c := findCut(pending, s.buf.UTF16Len(), limit, s.config.Boundary)
		body := pending[:c.end]
		if s.config.TrimLeadingSpace {
			body = strings.TrimLeftFunc(body, unicode.IsSpace)
		}
		if body == "" {
			s.buf.Consume(c.next)
			continue
		}

		// reopening tokens go after leading whitespace so "* b" never reads as a bullet
		lead := len(body) - len(strings.TrimLeftFunc(body, unicode.IsSpace))
		stack := span.UnclosedFrom(s.open, body[lead:])
		message := body
		if lead < len(body) {
			message = body[:lead] + span.Prefix(s.open) + body[lead:] + span.Closing(stack)
		}
		if !FitsPlatform(message) {
			s.logger.WarnContext(ctx, "piece exceeds platform limit", "piece", s.pieces, "utf16_len", UTF16Len(message))
		}

		if err := s.sink.Deliver(ctx, message); err != nil {
			return &DeliveryError{Piece: s.pieces, Err: err}
		}
		s.logPiece(ctx, message, stack)

		s.open = stack
		s.buf.Consume(c.next)
		s.pieces++
	}
	return nil
}

// Write appends text without forcing a flush.
func (s *Sender) Write(ctx context.Context, text string) error {
	return s.Send(ctx, text, false)
}

// Flush delivers everything still buffered.
func (s *Sender) Flush(ctx context.Context) error {
	return s.Send(ctx, "", true)
}

// Pending returns the text not yet delivered.
func (s *Sender) Pending() string {
	return s.buf.String()
}

// CarryPrefix returns the reopening tokens for the next piece.
func (s *Sender) CarryPrefix() string {
	return span.Prefix(s.open)
}

// Pieces returns how many pieces have been delivered.
func (s *Sender) Pieces() int {
	return s.pieces
}

func (s *Sender) logPiece(ctx context.Context, message string, stack []string) {
	if !s.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	s.logger.DebugContext(ctx, "piece delivered",
		"piece", s.pieces,
		"utf16_len", util.UTF16Len(message),
		"open_spans", stack,
		"preview", parser.Preview(message, 60),
	)
}
