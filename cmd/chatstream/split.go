package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/riverfjs/chatstream-go"
)

var splitCmd = &cobra.Command{
	Use:   "split [file]",
	Short: "Split markdown into chat messages",
	Long: `Read markdown from a file (or stdin) and print the messages a bot would send,
each preceded by a rule line with its index and UTF-16 length.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSplit,
}

func init() {
	rootCmd.AddCommand(splitCmd)

	splitCmd.Flags().Int("limit", 0, "chunk limit in UTF-16 units (default from config)")
	splitCmd.Flags().String("boundary", "", "separator policy at cuts: drop, trailing or leading (default from config)")
	splitCmd.Flags().Bool("trim", false, "trim leading whitespace of each message")
}

func runSplit(cmd *cobra.Command, args []string) error {
	opts, err := splitOptions(cmd)
	if err != nil {
		return err
	}

	var in io.Reader = cmd.InOrStdin()
	if len(args) == 1 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening input: %w", err)
		}
		defer f.Close()
		in = f
	}

	out := cmd.OutOrStdout()
	index := 0
	sink := chatstream.SinkFunc(func(ctx context.Context, message string) error {
		index++
		_, err := fmt.Fprintf(out, "----- %d (%d) -----\n%s\n", index, chatstream.UTF16Len(message), message)
		return err
	})

	n, err := chatstream.Copy(cmd.Context(), sink, in, opts...)
	if err != nil {
		return err
	}
	logger.Debug("split finished", "pieces", n)
	return nil
}

// splitOptions starts from the config's sender section and applies flag overrides.
func splitOptions(cmd *cobra.Command) ([]chatstream.Option, error) {
	opts := cfg.SenderOptions()

	if cmd.Flags().Changed("limit") {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit <= 0 {
			return nil, fmt.Errorf("invalid --limit: %d", limit)
		}
		opts = append(opts, chatstream.WithChunkLimit(limit))
	}
	if cmd.Flags().Changed("boundary") {
		name, _ := cmd.Flags().GetString("boundary")
		policy, err := chatstream.ParseBoundaryPolicy(name)
		if err != nil {
			return nil, err
		}
		opts = append(opts, chatstream.WithBoundaryPolicy(policy))
	}
	if cmd.Flags().Changed("trim") {
		trim, _ := cmd.Flags().GetBool("trim")
		opts = append(opts, chatstream.WithTrimLeadingSpace(trim))
	}
	return opts, nil
}
