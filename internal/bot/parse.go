package bot

import (
	"regexp"
	"strconv"
	"strings"
)

// Command is a parsed "!name[:arg] rest" message.
type Command struct {
	Name string
	// Arg is the text after a colon in the command token, e.g. the seed of "!image:42".
	Arg  string
	Rest string
}

var (
	imagePattern = regexp.MustCompile(`(?s)^!image(?::(\d+))?\s*(.*)$`)
	musicPattern = regexp.MustCompile(`(?s)^!music\s+(.*)$`)
)

// ParseCommand splits content into a command. ok is false when content is
// not a command.
func ParseCommand(content string) (cmd Command, ok bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "!") || len(content) == 1 {
		return Command{}, false
	}

	token, rest, _ := strings.Cut(content[1:], " ")
	name, arg, _ := strings.Cut(token, ":")
	if name == "" {
		return Command{}, false
	}
	return Command{
		Name: strings.ToLower(name),
		Arg:  arg,
		Rest: strings.TrimSpace(rest),
	}, true
}

// parseImage extracts the optional seed and the prompt of an image command.
func parseImage(content string) (seed *int64, prompt string) {
	m := imagePattern.FindStringSubmatch(strings.TrimSpace(content))
	if m == nil {
		return nil, ""
	}
	if m[1] != "" {
		if v, err := strconv.ParseInt(m[1], 10, 64); err == nil {
			seed = &v
		}
	}
	return seed, strings.TrimSpace(m[2])
}

// parseMusic extracts the prompt of a music command.
func parseMusic(content string) string {
	m := musicPattern.FindStringSubmatch(strings.TrimSpace(content))
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
