// terminal/commands.go
package terminal

import (
	"context"
	"fmt"
	"net"

	"edmoserver/internal/backend"
	"edmoserver/internal/eventbus"
)

// CommandFunc represents a terminal command function
type CommandFunc func(ctx *CommandContext, args []string) error

// CommandInfo holds metadata about a command
type CommandInfo struct {
	Name        string
	Description string
	Usage       string
	Handler     CommandFunc
}

// CommandContext provides context for command execution. One instance is
// created per accepted connection and reused across every line it sends, so
// SelectedIdentity persists for the life of the connection (the "use"
// command).
type CommandContext struct {
	Conn    net.Conn
	Backend *backend.Backend
	Cancel  context.CancelFunc

	EventBus   *eventbus.Bus
	Subscriber eventbus.Subscriber

	// SelectedIdentity is the robot identity that session-scoped commands
	// (startlog, start, run, stop, reset, motor tokens) operate on. Empty
	// means "pick the only active session", mirroring the original
	// console's next(iter(activeSessions.values())).
	SelectedIdentity string
}

// CommandRegistry holds all registered commands
type CommandRegistry struct {
	commands map[string]*CommandInfo
}

var DefaultRegistry = &CommandRegistry{
	commands: make(map[string]*CommandInfo),
}

// RegisterCommand registers a new command
func RegisterCommand(name, description, usage string, handler CommandFunc) {
	DefaultRegistry.commands[name] = &CommandInfo{
		Name:        name,
		Description: description,
		Usage:       usage,
		Handler:     handler,
	}
}

// GetCommand retrieves a command by name
func (r *CommandRegistry) GetCommand(name string) (*CommandInfo, bool) {
	cmd, exists := r.commands[name]
	return cmd, exists
}

// ListCommands returns all registered commands
func (r *CommandRegistry) ListCommands() []*CommandInfo {
	var commands []*CommandInfo
	for _, cmd := range r.commands {
		commands = append(commands, cmd)
	}
	return commands
}

// ExecuteCommand executes a command by name
func (r *CommandRegistry) ExecuteCommand(ctx *CommandContext, name string, args []string) error {
	cmd, exists := r.GetCommand(name)
	if !exists {
		return fmt.Errorf("unknown command: %s", name)
	}

	return cmd.Handler(ctx, args)
}
