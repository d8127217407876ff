package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/riverfjs/chatstream-go/internal/admission"
	"github.com/riverfjs/chatstream-go/internal/bot"
	"github.com/riverfjs/chatstream-go/internal/discord"
	"github.com/riverfjs/chatstream-go/internal/generate"
	"github.com/riverfjs/chatstream-go/internal/history"
	"github.com/riverfjs/chatstream-go/internal/metrics"
	"github.com/riverfjs/chatstream-go/internal/ollama"
)

var runCmd = &cobra.Command{
	Use:   "run <channel-id> <command...>",
	Short: "Run one bot command and post the replies to a Discord channel",
	Long: `Run a single bot command (for example "!ask why is the sky blue") as if it
had been typed in the channel, and post every reply there over the Discord REST API.

Queued work such as !upscale is waited for before the command exits.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("author", "cli", "author name shown in queue labels")
	runCmd.Flags().StringSlice("attach", nil, "attachment URL (repeatable)")
	runCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address while running (default from config)")
}

func runRun(cmd *cobra.Command, args []string) error {
	if cfg.Discord.Token == "" {
		return errors.New("discord token is not configured (set DISCORD_TOKEN)")
	}
	ctx := cmd.Context()

	author, _ := cmd.Flags().GetString("author")
	urls, _ := cmd.Flags().GetStringSlice("attach")
	addr := cfg.Metrics.Addr
	if cmd.Flags().Changed("metrics-addr") {
		addr, _ = cmd.Flags().GetString("metrics-addr")
	}

	if addr != "" {
		srv := &http.Server{Addr: addr, Handler: metrics.Handler(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", addr, "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", "addr", addr)
	}

	b, queue, err := newBot()
	if err != nil {
		return err
	}
	defer queue.Close()

	dc := discord.NewClient(discord.Config{
		Token:         cfg.Discord.Token,
		APIBase:       cfg.Discord.APIBase,
		RatePerSecond: cfg.Discord.RatePerSecond,
		Burst:         cfg.Discord.Burst,
	}, logger)

	msg := bot.Message{
		ChannelID:   args[0],
		Author:      author,
		Content:     strings.Join(args[1:], " "),
		Attachments: attachments(urls),
	}
	if err := b.Handle(ctx, msg, dc.Channel(args[0])); err != nil {
		return err
	}

	queue.Wait()
	return nil
}

// newBot wires the bot's collaborators from the loaded config.
func newBot() (*bot.Bot, *admission.Controller, error) {
	hist, err := history.New(cfg.Chat.MaxChannels, cfg.Chat.HistoryLimit)
	if err != nil {
		return nil, nil, fmt.Errorf("creating history: %w", err)
	}
	queue := admission.New(
		admission.WithMaxBacklog(cfg.Queue.MaxBacklog),
		admission.WithLogger(logger),
		admission.WithDepthObserver(metrics.SetQueueDepth),
	)
	gen := generate.NewClient(generate.Config{
		ImageURL:   cfg.Generate.ImageURL,
		MusicURL:   cfg.Generate.MusicURL,
		UpscaleURL: cfg.Generate.UpscaleURL,
		Timeout:    cfg.Generate.Timeout,
	}, logger)

	b := bot.New(bot.Deps{
		Inference: ollama.NewClient(cfg.Ollama.URL, ollama.WithLogger(logger)),
		Generator: gen,
		Queue:     queue,
		History:   hist,
	},
		bot.WithModels(cfg.Ollama.Model, cfg.Ollama.ThinkModel),
		bot.WithSenderOptions(cfg.SenderOptions()...),
		bot.WithHTTPClient(gen.HTTPClient()),
		bot.WithLogger(logger),
	)
	return b, queue, nil
}

func attachments(urls []string) []generate.Attachment {
	atts := make([]generate.Attachment, 0, len(urls))
	for _, u := range urls {
		name := path.Base(u)
		if i := strings.IndexAny(name, "?#"); i >= 0 {
			name = name[:i]
		}
		atts = append(atts, generate.Attachment{
			URL:         u,
			Filename:    name,
			ContentType: mime.TypeByExtension(path.Ext(name)),
		})
	}
	return atts
}
