// Package config provides Viper-based configuration management for chatstream
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/riverfjs/chatstream-go"
)

// Config represents the complete chatstream configuration
type Config struct {
	Discord  DiscordConfig  `mapstructure:"discord"`
	Ollama   OllamaConfig   `mapstructure:"ollama"`
	Generate GenerateConfig `mapstructure:"generate"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Queue    QueueConfig    `mapstructure:"queue"`
	Sender   SenderConfig   `mapstructure:"sender"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// DiscordConfig contains Discord REST settings
type DiscordConfig struct {
	Token         string  `mapstructure:"token"`
	APIBase       string  `mapstructure:"api_base"`
	RatePerSecond float64 `mapstructure:"rate_per_second"`
	Burst         int     `mapstructure:"burst"`
}

// OllamaConfig contains inference server settings
type OllamaConfig struct {
	URL        string `mapstructure:"url"`
	Model      string `mapstructure:"model"`
	ThinkModel string `mapstructure:"think_model"`
}

// GenerateConfig contains image/music/upscale service settings
type GenerateConfig struct {
	ImageURL   string        `mapstructure:"image_url"`
	MusicURL   string        `mapstructure:"music_url"`
	UpscaleURL string        `mapstructure:"upscale_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// ChatConfig contains chat history settings
type ChatConfig struct {
	HistoryLimit int `mapstructure:"history_limit"`
	MaxChannels  int `mapstructure:"max_channels"`
}

// QueueConfig contains admission settings
type QueueConfig struct {
	MaxBacklog int `mapstructure:"max_backlog"`
}

// SenderConfig contains chunked sender settings
type SenderConfig struct {
	ChunkLimit       int    `mapstructure:"chunk_limit"`
	Boundary         string `mapstructure:"boundary"`
	TrimLeadingSpace bool   `mapstructure:"trim_leading_space"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig contains the Prometheus listener address (empty disables it)
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// legacyEnv maps keys to the environment names the bot has always used
var legacyEnv = map[string]string{
	"discord.token":        "DISCORD_TOKEN",
	"ollama.url":           "OLLAMA_URL",
	"generate.image_url":   "DIFFUSION_URL",
	"generate.music_url":   "MUSIC_URL",
	"generate.upscale_url": "UPSCALE_URL",
	"chat.history_limit":   "CHAT_HISTORY_LIMIT",
}

// Load reads configuration from file and environment variables
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("chatstream")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/chatstream")
	}

	v.SetEnvPrefix("CHATSTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := "CHATSTREAM_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values
func setDefaults(v *viper.Viper) {
	v.SetDefault("discord.api_base", "https://discord.com/api/v10")
	v.SetDefault("discord.rate_per_second", 5.0)
	v.SetDefault("discord.burst", 5)

	v.SetDefault("ollama.url", "http://127.0.0.1:11434")
	v.SetDefault("ollama.model", "gemma3:12b-it-qat")
	v.SetDefault("ollama.think_model", "qwen3:14b")

	v.SetDefault("generate.image_url", "http://localhost:5000/generate_and_upscale")
	v.SetDefault("generate.music_url", "http://localhost:8000")
	v.SetDefault("generate.upscale_url", "http://localhost:5000/upscale")
	v.SetDefault("generate.timeout", 20*time.Minute)

	v.SetDefault("chat.history_limit", 50)
	v.SetDefault("chat.max_channels", 1024)

	v.SetDefault("queue.max_backlog", 50)

	v.SetDefault("sender.chunk_limit", chatstream.ChunkLimit)
	v.SetDefault("sender.boundary", "drop")
	v.SetDefault("sender.trim_leading_space", false)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("metrics.addr", "")
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (must be text or json)", cfg.Logging.Format)
	}

	if _, err := chatstream.ParseBoundaryPolicy(cfg.Sender.Boundary); err != nil {
		return err
	}
	if cfg.Sender.ChunkLimit <= 0 || cfg.Sender.ChunkLimit > chatstream.PlatformLimit {
		return fmt.Errorf("invalid sender.chunk_limit: %d (must be 1..%d)", cfg.Sender.ChunkLimit, chatstream.PlatformLimit)
	}
	if cfg.Chat.HistoryLimit <= 0 {
		return fmt.Errorf("invalid chat.history_limit: %d", cfg.Chat.HistoryLimit)
	}
	if cfg.Chat.MaxChannels <= 0 {
		return fmt.Errorf("invalid chat.max_channels: %d", cfg.Chat.MaxChannels)
	}
	if cfg.Queue.MaxBacklog <= 0 {
		return fmt.Errorf("invalid queue.max_backlog: %d", cfg.Queue.MaxBacklog)
	}
	if cfg.Generate.Timeout <= 0 {
		return fmt.Errorf("invalid generate.timeout: %s", cfg.Generate.Timeout)
	}

	return nil
}

// SenderOptions converts the sender section into chatstream options
func (c *Config) SenderOptions() []chatstream.Option {
	policy, _ := chatstream.ParseBoundaryPolicy(c.Sender.Boundary)
	return []chatstream.Option{
		chatstream.WithChunkLimit(c.Sender.ChunkLimit),
		chatstream.WithBoundaryPolicy(policy),
		chatstream.WithTrimLeadingSpace(c.Sender.TrimLeadingSpace),
	}
}

// NewLogger builds a slog logger from the logging section; verbose forces debug
func NewLogger(cfg LoggingConfig, verbose bool, w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
