package chatstream

import "log/slog"

// SenderOptions holds options for a Sender.
type SenderOptions struct {
	Config *Config
	Logger *slog.Logger
}

// Option is a function that configures SenderOptions.
type Option func(*SenderOptions)

// WithConfig replaces the whole configuration.
func WithConfig(config *Config) Option {
	return func(opts *SenderOptions) {
		if config != nil {
			c := *config
			opts.Config = &c
		}
	}
}

// WithChunkLimit sets the body size limit. Values <= 0 keep ChunkLimit.
func WithChunkLimit(limit int) Option {
	return func(opts *SenderOptions) {
		if limit > 0 {
			opts.Config.ChunkLimit = limit
		}
	}
}

// WithBoundaryPolicy sets what happens to the newline or space at a cut.
func WithBoundaryPolicy(policy BoundaryPolicy) Option {
	return func(opts *SenderOptions) {
		opts.Config.Boundary = policy
	}
}

// WithTrimLeadingSpace trims leading whitespace from every body before delivery.
func WithTrimLeadingSpace(enable bool) Option {
	return func(opts *SenderOptions) {
		opts.Config.TrimLeadingSpace = enable
	}
}

// WithLogger sets the logger used for per-piece debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(opts *SenderOptions) {
		opts.Logger = logger
	}
}

// defaultSenderOptions returns the default sender options.
func defaultSenderOptions() *SenderOptions {
	c := *DefaultConfig()
	return &SenderOptions{
		Config: &c,
	}
}

// applyOptions applies the given options to the default options.
func applyOptions(opts ...Option) *SenderOptions {
	options := defaultSenderOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.Config.ChunkLimit <= 0 {
		options.Config.ChunkLimit = ChunkLimit
	}
	return options
}
