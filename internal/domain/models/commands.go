package models

import "strings"

// CommandType enumerates the chat commands understood by the bakery bot.
type CommandType string

const (
	CommandMade    CommandType = "made"
	CommandSold    CommandType = "sold"
	CommandToday   CommandType = "today"
	CommandHelp    CommandType = "help"
	CommandUnknown CommandType = "unknown"
)

// Command is a parsed chat instruction, e.g. "made croissant 12".
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// ParseCommand derives a Command from free-form message text.
func ParseCommand(message string) Command {
	normalized := strings.TrimSpace(strings.ToLower(message))
	cmd := Command{Type: CommandUnknown, Raw: message}

	tokens := strings.Fields(normalized)
	if len(tokens) == 0 {
		return cmd
	}

	switch head := strings.TrimPrefix(tokens[0], "/"); head {
	case "made", "baked", "make":
		cmd.Type = CommandMade
	case "sold", "sell":
		cmd.Type = CommandSold
	case "today", "summary":
		cmd.Type = CommandToday
	case "help", "?":
		cmd.Type = CommandHelp
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}

	return cmd
}
