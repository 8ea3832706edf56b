// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jeranaias/chimera-cli/internal/model"
)

var (
	// ErrNotCommand is returned by Execute for input without a leading slash.
	ErrNotCommand = errors.New("not a slash command")

	// ErrUnknownCommand is returned for a slash command nobody registered.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUsage is wrapped around argument errors.
	ErrUsage = errors.New("usage")
)

// =============================================================================
// ENVIRONMENT
// =============================================================================

// Conversations is the part of the conversation store commands use.
type Conversations interface {
	Get(id string) (model.Conversation, bool)
	Refresh(ctx context.Context, id string) error
	PinMessage(ctx context.Context, conversationID string, messageID model.MessageID) error
	UnpinMessage(ctx context.Context, conversationID string, messageID model.MessageID) error
	DeleteMessage(ctx context.Context, conversationID string, messageID model.MessageID) error
	InjectMemory(ctx context.Context, conversationID, memoryID string) error
	RemoveInjectedMemory(ctx context.Context, conversationID, memoryID string) error
	ToggleInjectedMemory(ctx context.Context, conversationID, memoryID string) (bool, error)
	Close(ctx context.Context, id string) (*model.Memory, error)
	Reopen(ctx context.Context, id string) error
}

// Memories is the part of the memory store commands use.
type Memories interface {
	Load(ctx context.Context, workspaceID, search, sortBy string) error
	Memories() []model.Memory
	Filter(query string) []model.Memory
	Get(id string) (model.Memory, bool)
}

// Env is what a command acts on.
type Env struct {
	ConversationID string
	Conversations  Conversations
	Memories       Memories
}

func (e *Env) conversation() (model.Conversation, error) {
	conv, ok := e.Conversations.Get(e.ConversationID)
	if !ok {
		return model.Conversation{}, fmt.Errorf("conversation %s is not loaded", e.ConversationID)
	}
	return conv, nil
}

// Result is what a command hands back to the caller.
type Result struct {
	Output string
	Quit   bool
}

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// Handler runs a command.
type Handler func(ctx context.Context, env *Env, args []string) (Result, error)

// ArgType drives completion for an argument.
type ArgType int

const (
	ArgString  ArgType = iota // free text
	ArgMemory                 // memory ID from the workspace
	ArgMessage                // confirmed message ID from the conversation
	ArgEnum                   // one of Values
)

// ArgDef describes one positional argument.
type ArgDef struct {
	Name     string
	Required bool
	Type     ArgType
	Values   []string
}

// Command is a slash command.
type Command struct {
	Name        string // with the leading slash, e.g. "/pin"
	Aliases     []string
	Description string
	Usage       string
	Category    string
	Args        []ArgDef
	Handler     Handler
}

func (c *Command) requiredArgs() int {
	n := 0
	for _, a := range c.Args {
		if a.Required {
			n++
		}
	}
	return n
}

// =============================================================================
// REGISTRY
// =============================================================================

// Registry holds every registered command.
type Registry struct {
	commands map[string]*Command
	aliases  map[string]*Command
	parser   *Parser
}

// NewRegistry returns a registry with the built-in commands.
func NewRegistry() *Registry {
	r := &Registry{
		commands: make(map[string]*Command),
		aliases:  make(map[string]*Command),
	}
	r.parser = NewParser(r)
	r.registerBuiltins()
	return r
}

// Register adds cmd, replacing any command of the same name.
func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	for _, alias := range cmd.Aliases {
		r.aliases[alias] = cmd
	}
}

// Get looks a command up by name or alias.
func (r *Registry) Get(name string) *Command {
	name = strings.ToLower(name)
	if cmd, ok := r.commands[name]; ok {
		return cmd
	}
	return r.aliases[name]
}

// All returns the commands sorted by name.
func (r *Registry) All() []*Command {
	cmds := make([]*Command, 0, len(r.commands))
	for _, cmd := range r.commands {
		cmds = append(cmds, cmd)
	}
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })
	return cmds
}

// ByCategory groups commands by category, each group sorted by name.
func (r *Registry) ByCategory() map[string][]*Command {
	out := make(map[string][]*Command)
	for _, cmd := range r.All() {
		cat := cmd.Category
		if cat == "" {
			cat = "General"
		}
		out[cat] = append(out[cat], cmd)
	}
	return out
}

// Parse splits input into a command and its arguments.
func (r *Registry) Parse(input string) ParseResult {
	return r.parser.Parse(input)
}

// Execute parses and runs one line of input.
func (r *Registry) Execute(ctx context.Context, env *Env, input string) (Result, error) {
	pr := r.parser.Parse(input)
	if !pr.IsCommand {
		return Result{}, ErrNotCommand
	}
	if pr.Command == nil {
		return Result{}, fmt.Errorf("%w: %s (try /help)", ErrUnknownCommand, pr.CommandName)
	}
	if len(pr.Args) < pr.Command.requiredArgs() {
		return Result{}, fmt.Errorf("%w: %s", ErrUsage, pr.Command.Usage)
	}
	if pr.Command.Name == "/help" {
		return Result{Output: r.helpText()}, nil
	}
	return pr.Command.Handler(ctx, env, pr.Args)
}

func (r *Registry) helpText() string {
	groups := r.ByCategory()
	cats := make([]string, 0, len(groups))
	for cat := range groups {
		cats = append(cats, cat)
	}
	sort.Strings(cats)

	var b strings.Builder
	for i, cat := range cats {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(cat + ":\n")
		for _, cmd := range groups[cat] {
			usage := cmd.Usage
			if usage == "" {
				usage = cmd.Name
			}
			fmt.Fprintf(&b, "  %-28s %s\n", usage, cmd.Description)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// =============================================================================
// BUILT-IN COMMANDS
// =============================================================================

func (r *Registry) registerBuiltins() {
	r.Register(&Command{
		Name:        "/help",
		Aliases:     []string{"/h", "/?"},
		Description: "Show available commands",
		Category:    "General",
	})
	r.Register(&Command{
		Name:        "/quit",
		Aliases:     []string{"/q", "/exit"},
		Description: "Leave the chat",
		Category:    "General",
		Handler:     handleQuit,
	})
	r.Register(&Command{
		Name:        "/refresh",
		Aliases:     []string{"/r"},
		Description: "Fetch the latest messages now",
		Category:    "General",
		Handler:     handleRefresh,
	})

	// Messages
	r.Register(&Command{
		Name:        "/pin",
		Description: "Pin a message",
		Usage:       "/pin <message-id>",
		Category:    "Messages",
		Args:        []ArgDef{{Name: "message", Required: true, Type: ArgMessage}},
		Handler:     handlePin,
	})
	r.Register(&Command{
		Name:        "/unpin",
		Description: "Unpin a message",
		Usage:       "/unpin <message-id>",
		Category:    "Messages",
		Args:        []ArgDef{{Name: "message", Required: true, Type: ArgMessage}},
		Handler:     handleUnpin,
	})
	r.Register(&Command{
		Name:        "/rm",
		Aliases:     []string{"/delete"},
		Description: "Delete a message",
		Usage:       "/rm <message-id>",
		Category:    "Messages",
		Args:        []ArgDef{{Name: "message", Required: true, Type: ArgMessage}},
		Handler:     handleDeleteMessage,
	})

	// Memories
	r.Register(&Command{
		Name:        "/memories",
		Aliases:     []string{"/mem"},
		Description: "List workspace memories, marking injected ones",
		Usage:       "/memories [filter]",
		Category:    "Memories",
		Args:        []ArgDef{{Name: "filter", Type: ArgString}},
		Handler:     handleMemories,
	})
	r.Register(&Command{
		Name:        "/inject",
		Description: "Inject a memory into the conversation",
		Usage:       "/inject <memory-id>",
		Category:    "Memories",
		Args:        []ArgDef{{Name: "memory", Required: true, Type: ArgMemory}},
		Handler:     handleInject,
	})
	r.Register(&Command{
		Name:        "/uninject",
		Description: "Remove an injected memory",
		Usage:       "/uninject <memory-id>",
		Category:    "Memories",
		Args:        []ArgDef{{Name: "memory", Required: true, Type: ArgMemory}},
		Handler:     handleUninject,
	})
	r.Register(&Command{
		Name:        "/toggle",
		Description: "Switch an injected memory on or off",
		Usage:       "/toggle <memory-id>",
		Category:    "Memories",
		Args:        []ArgDef{{Name: "memory", Required: true, Type: ArgMemory}},
		Handler:     handleToggle,
	})

	// Conversation
	r.Register(&Command{
		Name:        "/close",
		Description: "Close the conversation and archive it as a memory",
		Category:    "Conversation",
		Handler:     handleClose,
	})
	r.Register(&Command{
		Name:        "/reopen",
		Description: "Reopen a closed conversation",
		Category:    "Conversation",
		Handler:     handleReopen,
	})
}
