package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/riverfjs/chatstream-go"
	"github.com/riverfjs/chatstream-go/internal/config"
)

var (
	cfgFile string
	verbose bool
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "chatstream",
	Short: "Markdown-safe chunked messages for chat bots",
	Long: `chatstream cuts streamed markdown into messages that fit a chat platform's
length limit, closing and reopening formatting across message boundaries.

Example usage:
  chatstream split answer.md             # Show how a long answer would be split
  chatstream split --limit 200 < out.md  # Split stdin with a smaller limit
  chatstream unclosed '**bold _and'      # Print the spans left open
  chatstream run 1234 '!ask hello'       # Run one bot command against a channel`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./chatstream.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// initConfig loads configuration and installs the logger.
func initConfig() error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger = config.NewLogger(cfg.Logging, verbose, os.Stderr)
	slog.SetDefault(logger)
	chatstream.SetLogger(logger)

	logger.Debug("configuration loaded",
		"ollama_url", cfg.Ollama.URL,
		"model", cfg.Ollama.Model,
		"chunk_limit", cfg.Sender.ChunkLimit,
		"boundary", cfg.Sender.Boundary,
	)
	return nil
}
