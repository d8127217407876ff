package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/riverfjs/chatstream-go"
	"github.com/riverfjs/chatstream-go/internal/admission"
	"github.com/riverfjs/chatstream-go/internal/generate"
	"github.com/riverfjs/chatstream-go/internal/ollama"
	"github.com/riverfjs/chatstream-go/internal/util"
)

const (
	msgBusy          = "Another request is already in progress. Please wait for it to finish."
	msgOllamaFailed  = "Failed to get a response from the Ollama API."
	msgQueueFull     = "The waiting list is full. Please try again later."
	msgNothingQueued = "No requests in the waiting list."
)

func (b *Bot) missingPrompt(ctx context.Context, ch Channel, cmd string) (string, error) {
	return statusRejected, b.say(ctx, ch, b.reply.Symbols.Errorf(fmt.Sprintf("Please provide a prompt for the %s command.", cmd)))
}

func (b *Bot) thinkingNotice(ctx context.Context, ch Channel, model string) error {
	return b.say(ctx, ch, fmt.Sprintf("Let me think... (using %s)", model))
}

// stream 把模型输出逐段写入一个新的 Sender；出错时先发出已缓冲的文本
func (b *Bot) stream(ctx context.Context, ch Channel, run func(fn ollama.TokenFunc) error) error {
	sender := chatstream.NewSender(ch, b.senderOpts...)
	err := run(func(fragment string) error {
		return sender.Write(ctx, fragment)
	})
	if ferr := sender.Flush(ctx); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

// streamFailed 区分投递失败和推理失败：前者直接返回，后者在频道里说明
func (b *Bot) streamFailed(ctx context.Context, ch Channel, cmd string, err error) (string, error) {
	var de *chatstream.DeliveryError
	if errors.As(err, &de) {
		return statusError, err
	}
	b.logger.Error("inference failed", "command", cmd, "error", err)
	return statusError, b.say(ctx, ch, b.reply.Symbols.Errorf(msgOllamaFailed))
}

func (b *Bot) ask(ctx context.Context, msg Message, cmd Command, ch Channel) (string, error) {
	if cmd.Rest == "" {
		return b.missingPrompt(ctx, ch, "ask")
	}
	images := generate.FetchImages(ctx, b.httpClient, msg.Attachments, b.logger)

	if err := b.thinkingNotice(ctx, ch, b.model); err != nil {
		return statusError, err
	}
	err := b.stream(ctx, ch, func(fn ollama.TokenFunc) error {
		return b.deps.Inference.Generate(ctx, ollama.GenerateRequest{
			Model:  b.model,
			Prompt: cmd.Rest,
			Images: images,
		}, fn)
	})
	if err != nil {
		return b.streamFailed(ctx, ch, "ask", err)
	}
	return statusOK, nil
}

func (b *Bot) chat(ctx context.Context, msg Message, cmd Command, ch Channel) (string, error) {
	if cmd.Rest == "" {
		return b.missingPrompt(ctx, ch, "chat")
	}
	images := generate.FetchImages(ctx, b.httpClient, msg.Attachments, b.logger)

	if err := b.thinkingNotice(ctx, ch, b.model); err != nil {
		return statusError, err
	}

	user := ollama.NewUserMessage(cmd.Rest, images...)
	messages := append(b.deps.History.Get(msg.ChannelID), user)

	var reply string
	err := b.stream(ctx, ch, func(fn ollama.TokenFunc) error {
		var err error
		reply, err = b.deps.Inference.Chat(ctx, ollama.ChatRequest{
			Model:    b.model,
			Messages: messages,
		}, fn)
		return err
	})
	if err != nil {
		return b.streamFailed(ctx, ch, "chat", err)
	}

	b.deps.History.Append(msg.ChannelID, user, ollama.NewAssistantMessage(reply))
	return statusOK, nil
}

func (b *Bot) think(ctx context.Context, msg Message, cmd Command, ch Channel) (string, error) {
	if cmd.Rest == "" {
		return b.missingPrompt(ctx, ch, "think")
	}
	release, ok, err := b.acquire(ctx, ch, msg, "think")
	if !ok {
		return statusRejected, err
	}
	defer release()

	if err := b.thinkingNotice(ctx, ch, b.thinkModel); err != nil {
		return statusError, err
	}
	err = b.stream(ctx, ch, func(fn ollama.TokenFunc) error {
		return b.deps.Inference.Generate(ctx, ollama.GenerateRequest{
			Model:  b.thinkModel,
			Prompt: cmd.Rest,
			Think:  true,
		}, fn)
	})
	if err != nil {
		return b.streamFailed(ctx, ch, "think", err)
	}
	return statusOK, nil
}

// acquire takes the single generation slot. When it is taken the busy notice
// is sent and ok is false.
func (b *Bot) acquire(ctx context.Context, ch Channel, msg Message, cmd string) (release func(), ok bool, err error) {
	release, aerr := b.deps.Queue.TryAcquire(b.label(cmd, msg))
	if aerr != nil {
		if !errors.Is(aerr, admission.ErrBusy) {
			b.logger.Warn("admission refused", "error", aerr)
		}
		return nil, false, b.say(ctx, ch, b.reply.Symbols.Errorf(msgBusy))
	}
	return release, true, nil
}

func (b *Bot) image(ctx context.Context, msg Message, _ Command, ch Channel) (string, error) {
	seed, prompt := parseImage(msg.Content)
	if prompt == "" {
		return b.missingPrompt(ctx, ch, "image")
	}
	release, ok, err := b.acquire(ctx, ch, msg, "image")
	if !ok {
		return statusRejected, err
	}
	defer release()

	if err := b.say(ctx, ch, b.reply.Symbols.Workingf("Generating image, please wait...")); err != nil {
		return statusError, err
	}

	start := time.Now()
	result, err := b.deps.Generator.Image(ctx, prompt, seed)
	if err != nil {
		b.logger.Error("image generation failed", "error", err)
		return statusError, b.say(ctx, ch, b.reply.Symbols.Errorf("Failed to generate the image."))
	}
	b.logger.Info("image generated", "elapsed", util.FormatElapsed(time.Since(start)),
		"format", result.Info.Format, "width", result.Info.Width, "height", result.Info.Height)

	parts := []string{"Prompt: " + prompt}
	if result.Seed != nil {
		parts = append(parts, fmt.Sprintf("Seed: %d", *result.Seed))
	}
	return statusOK, ch.Post(ctx, &chatstream.Photo{
		FileName: imageFileName("image", result.Info.Format),
		FileData: result.Data,
		Caption:  b.caption(strings.Join(parts, " | ")),
		Width:    result.Info.Width,
		Height:   result.Info.Height,
		Trace: chatstream.Trace{
			Source: "image",
			Attrs:  map[string]any{"prompt": prompt},
		},
	})
}

func (b *Bot) music(ctx context.Context, msg Message, _ Command, ch Channel) (string, error) {
	prompt := parseMusic(msg.Content)
	if prompt == "" {
		return b.missingPrompt(ctx, ch, "music")
	}
	release, ok, err := b.acquire(ctx, ch, msg, "music")
	if !ok {
		return statusRejected, err
	}
	defer release()

	if err := b.say(ctx, ch, b.reply.Symbols.Workingf("Generating music, please wait...")); err != nil {
		return statusError, err
	}

	audio, err := b.deps.Generator.Music(ctx, prompt)
	if err != nil {
		b.logger.Error("music generation failed", "error", err)
		return statusError, b.say(ctx, ch, b.reply.Symbols.Errorf("Failed to generate the music."))
	}
	return statusOK, ch.Post(ctx, &chatstream.File{
		FileName: "music.mp3",
		FileData: audio,
		Trace:    chatstream.Trace{Source: "music"},
	})
}

func (b *Bot) upscale(ctx context.Context, msg Message, _ Command, ch Channel) (string, error) {
	att, ok := generate.FirstImage(msg.Attachments)
	if !ok {
		return statusRejected, b.say(ctx, ch, b.reply.Symbols.Errorf("Please attach an image to upscale."))
	}
	encoded, err := generate.FetchImage(ctx, b.httpClient, att)
	if err != nil {
		b.logger.Error("failed to fetch attachment", "url", att.URL, "error", err)
		return statusError, b.say(ctx, ch, b.reply.Symbols.Errorf("Failed to fetch the attached image."))
	}

	ticket, err := b.deps.Queue.Enqueue(b.label("upscale", msg), func(jobCtx context.Context) error {
		return b.runUpscale(jobCtx, ch, encoded)
	})
	if err != nil {
		return statusRejected, b.say(ctx, ch, b.reply.Symbols.Errorf(msgQueueFull))
	}
	if ticket.Ahead > 0 {
		notice := fmt.Sprintf("Added to waiting list. There are %d request(s) ahead of you.", ticket.Ahead)
		return statusOK, b.say(ctx, ch, b.reply.Symbols.Queuedf(notice))
	}
	return statusOK, nil
}

func (b *Bot) runUpscale(ctx context.Context, ch Channel, encoded string) error {
	if err := b.say(ctx, ch, b.reply.Symbols.Workingf("Upscaling image, please wait...")); err != nil {
		return err
	}
	result, err := b.deps.Generator.Upscale(ctx, encoded)
	if err != nil {
		if serr := b.say(ctx, ch, b.reply.Symbols.Errorf("Failed to upscale the image.")); serr != nil {
			b.logger.Error("failed to report upscale error", "error", serr)
		}
		return fmt.Errorf("upscale: %w", err)
	}
	return ch.Post(ctx, &chatstream.Photo{
		FileName: imageFileName("upscaled", result.Info.Format),
		FileData: result.Data,
		Width:    result.Info.Width,
		Height:   result.Info.Height,
		Trace:    chatstream.Trace{Source: "upscale"},
	})
}

func (b *Bot) waitList(ctx context.Context, _ Message, _ Command, ch Channel) (string, error) {
	snap := b.deps.Queue.List()
	if snap.Current == "" && len(snap.Waiting) == 0 {
		return statusOK, b.say(ctx, ch, msgNothingQueued)
	}

	var lines []string
	if snap.Current != "" {
		lines = append(lines, fmt.Sprintf("Currently processing: %s (%s)", snap.Current, util.FormatElapsed(time.Since(snap.Since))))
	}
	if len(snap.Waiting) > 0 {
		lines = append(lines, "Waiting list:")
		for i, label := range snap.Waiting {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, label))
		}
	}
	return statusOK, b.say(ctx, ch, strings.Join(lines, "\n"))
}

// helpText 可用命令列表
var helpText = strings.Join([]string{
	"**Available Commands:**",
	"!ask <prompt> - ask a question using the local Ollama API. Attach images to include them with the prompt.",
	"!chat <prompt> - like !ask, but remembers the conversation in this channel.",
	"!think <prompt> - ask the reasoning model; one request at a time.",
	"!image[:seed] <prompt> - generate an image using the API at DIFFUSION_URL.",
	"!music <prompt> - generate a short music clip.",
	"!upscale - upscale the attached image; requests wait in line.",
	"!wait - show the request being processed and the waiting list.",
	"!help - show this message.",
}, "\n")

func (b *Bot) help(ctx context.Context, _ Message, _ Command, ch Channel) (string, error) {
	return statusOK, b.say(ctx, ch, helpText)
}

// caption 截断过长的附件说明
func (b *Bot) caption(text string) string {
	limit := b.reply.CaptionLimit
	if limit <= 0 || util.UTF16Len(text) <= limit {
		return text
	}
	return text[:util.GraphemePrefix(text, limit-1)] + "…"
}

func imageFileName(base, format string) string {
	switch format {
	case "jpeg":
		return base + ".jpg"
	case "":
		return base + ".png"
	default:
		return base + "." + format
	}
}
