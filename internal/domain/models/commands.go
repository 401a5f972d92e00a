package models

import "strings"

// CommandType enumerates the WhatsApp shortcuts a farmer can send.
type CommandType string

const (
	CommandPonds   CommandType = "ponds"
	CommandAlerts  CommandType = "alerts"
	CommandFeeding CommandType = "feeding"
	CommandReset   CommandType = "reset"
	CommandHelp    CommandType = "help"

	// Record-logging commands.
	CommandFeed   CommandType = "feed"
	CommandWater  CommandType = "water"
	CommandHealth CommandType = "health"

	// CommandChat is free text handed to the assistant.
	CommandChat CommandType = "chat"
)

// Command represents a parsed inbound WhatsApp message.
type Command struct {
	Type CommandType
	Raw  string
	Args []string
}

// Writes reports whether the command logs a record.
func (c Command) Writes() bool {
	switch c.Type {
	case CommandFeed, CommandWater, CommandHealth:
		return true
	}
	return false
}

// ParseCommand derives a Command from a message. Only messages starting with
// "/" are shortcuts; everything else is conversation.
func ParseCommand(message string) Command {
	trimmed := strings.TrimSpace(message)
	cmd := Command{Type: CommandChat, Raw: message}

	if !strings.HasPrefix(trimmed, "/") {
		return cmd
	}

	tokens := strings.Fields(strings.ToLower(trimmed))
	head := strings.TrimPrefix(tokens[0], "/")
	switch CommandType(head) {
	case CommandPonds, CommandAlerts, CommandFeeding, CommandReset, CommandHelp,
		CommandFeed, CommandWater, CommandHealth:
		cmd.Type = CommandType(head)
	default:
		cmd.Type = CommandHelp
	}

	if len(tokens) > 1 {
		cmd.Args = tokens[1:]
	}
	return cmd
}
