// Package bot 把聊天命令分发给推理、生成和排队组件，并把结果发回频道
package bot

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/riverfjs/chatstream-go"
	"github.com/riverfjs/chatstream-go/internal/admission"
	"github.com/riverfjs/chatstream-go/internal/generate"
	"github.com/riverfjs/chatstream-go/internal/history"
	"github.com/riverfjs/chatstream-go/internal/metrics"
	"github.com/riverfjs/chatstream-go/internal/ollama"
	"github.com/riverfjs/chatstream-go/internal/types"
)

// Message is an incoming chat message.
type Message struct {
	ChannelID   string
	Author      string
	FromBot     bool
	Content     string
	Attachments []generate.Attachment
}

// Channel is where replies go.
type Channel interface {
	chatstream.Sink
	Post(ctx context.Context, content chatstream.Content) error
}

// Inference streams model output.
type Inference interface {
	Generate(ctx context.Context, req ollama.GenerateRequest, fn ollama.TokenFunc) error
	Chat(ctx context.Context, req ollama.ChatRequest, fn ollama.TokenFunc) (string, error)
}

// Generator produces images and music.
type Generator interface {
	Image(ctx context.Context, prompt string, seed *int64) (*generate.ImageResult, error)
	Music(ctx context.Context, prompt string) ([]byte, error)
	Upscale(ctx context.Context, imageBase64 string) (*generate.ImageResult, error)
}

// Deps are the collaborators of a Bot.
type Deps struct {
	Inference Inference
	Generator Generator
	Queue     *admission.Controller
	History   *history.Store
}

// Bot routes commands. It is safe for concurrent use; each reply stream
// gets its own chatstream.Sender.
type Bot struct {
	deps       Deps
	model      string
	thinkModel string
	senderOpts []chatstream.Option
	httpClient *http.Client
	reply      *types.ReplyConfig
	logger     *slog.Logger
}

// Option configures a Bot.
type Option func(*Bot)

// WithModels sets the models used by ask/chat and by think.
func WithModels(model, thinkModel string) Option {
	return func(b *Bot) {
		if model != "" {
			b.model = model
		}
		if thinkModel != "" {
			b.thinkModel = thinkModel
		}
	}
}

// WithSenderOptions configures every Sender the bot creates.
func WithSenderOptions(opts ...chatstream.Option) Option {
	return func(b *Bot) {
		b.senderOpts = append(b.senderOpts, opts...)
	}
}

// WithHTTPClient sets the client used to download attachments.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *Bot) {
		if hc != nil {
			b.httpClient = hc
		}
	}
}

// WithReplyConfig sets status symbols and caption limits.
func WithReplyConfig(rc *types.ReplyConfig) Option {
	return func(b *Bot) {
		if rc != nil {
			b.reply = rc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// New creates a Bot.
func New(deps Deps, opts ...Option) *Bot {
	b := &Bot{
		deps:       deps,
		model:      "gemma3:12b-it-qat",
		thinkModel: "qwen3:14b",
		httpClient: http.DefaultClient,
		reply:      types.DefaultReplyConfig(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.deps.Queue == nil {
		b.deps.Queue = admission.New(admission.WithLogger(b.logger))
	}
	if b.deps.History == nil {
		b.deps.History, _ = history.New(0, 0)
	}
	b.senderOpts = append([]chatstream.Option{chatstream.WithLogger(b.logger)}, b.senderOpts...)
	return b
}

// status values for metrics.RecordCommand
const (
	statusOK       = "ok"
	statusError    = "error"
	statusRejected = "rejected"
)

type handler func(b *Bot, ctx context.Context, msg Message, cmd Command, ch Channel) (string, error)

var handlers = map[string]handler{
	"ask":     (*Bot).ask,
	"chat":    (*Bot).chat,
	"think":   (*Bot).think,
	"image":   (*Bot).image,
	"music":   (*Bot).music,
	"upscale": (*Bot).upscale,
	"wait":    (*Bot).waitList,
	"queue":   (*Bot).waitList,
	"help":    (*Bot).help,
}

// Handle dispatches one message. Messages from bots, non-commands and unknown
// commands are ignored. The returned error is a reply that could not be
// delivered; backend failures are reported in the channel instead.
func (b *Bot) Handle(ctx context.Context, msg Message, ch Channel) error {
	if msg.FromBot {
		return nil
	}
	cmd, ok := ParseCommand(msg.Content)
	if !ok {
		return nil
	}
	h, ok := handlers[cmd.Name]
	if !ok {
		return nil
	}

	logger := b.logger.With("command", cmd.Name, "channel", msg.ChannelID, "author", msg.Author)
	logger.Debug("handling command")

	status, err := h(b, ctx, msg, cmd, b.instrument(ch))
	if err != nil {
		status = statusError
		logger.Error("command reply failed", "error", err)
	}
	metrics.RecordCommand(cmd.Name, status)
	return err
}

// instrument routes text deliveries through the metrics sink.
func (b *Bot) instrument(ch Channel) Channel {
	return instrumentedChannel{Channel: ch, sink: metrics.Instrument("channel", ch)}
}

type instrumentedChannel struct {
	Channel
	sink chatstream.Sink
}

func (c instrumentedChannel) Deliver(ctx context.Context, message string) error {
	return c.sink.Deliver(ctx, message)
}

// say sends a short status line.
func (b *Bot) say(ctx context.Context, ch Channel, text string) error {
	_, err := chatstream.SendAll(ctx, ch, text, b.senderOpts...)
	return err
}

func (b *Bot) label(cmd string, msg Message) string {
	return "!" + cmd + " by " + msg.Author
}
