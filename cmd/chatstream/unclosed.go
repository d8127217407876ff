package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/riverfjs/chatstream-go"
)

var unclosedCmd = &cobra.Command{
	Use:   "unclosed [text]",
	Short: "Print the markdown spans left open at the end of text",
	Long: `Print the opening tokens of every span still open at the end of the text,
outermost first, separated by spaces. Reads stdin when no text is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var text string
		if len(args) == 1 {
			text = args[0]
		} else {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("reading stdin: %w", err)
			}
			text = string(data)
		}

		tokens := chatstream.ComputeUnclosed(text)
		if len(tokens) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(none)")
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), strings.Join(tokens, " "))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unclosedCmd)
}
