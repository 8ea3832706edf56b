// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"sort"
	"strings"

	"github.com/jeranaias/chimera-cli/internal/util"
)

// =============================================================================
// COMPLETER
// =============================================================================

// Completion is one candidate.
type Completion struct {
	Value       string
	Description string
	score       int
}

// Completer completes command names and their arguments.
type Completer struct {
	registry *Registry
	env      *Env
}

// NewCompleter returns a completer. env may be nil, in which case only
// command names complete.
func NewCompleter(registry *Registry, env *Env) *Completer {
	return &Completer{registry: registry, env: env}
}

// Complete returns candidates for the last token of input.
func (c *Completer) Complete(input string) []Completion {
	if !strings.HasPrefix(strings.TrimLeft(input, " "), "/") {
		return nil
	}
	parts := SplitArgs(input)
	trailingSpace := strings.HasSuffix(input, " ")

	if len(parts) <= 1 && !trailingSpace {
		partial := ""
		if len(parts) == 1 {
			partial = parts[0]
		}
		return c.completeCommands(partial)
	}

	cmd := c.registry.Get(parts[0])
	if cmd == nil {
		return nil
	}
	argIndex := len(parts) - 2
	partial := ""
	if trailingSpace {
		argIndex++
	} else {
		partial = parts[len(parts)-1]
	}
	if argIndex < 0 || argIndex >= len(cmd.Args) {
		return nil
	}
	return c.completeArg(cmd.Args[argIndex], partial)
}

// Line adapts Complete to a line editor: each candidate is the whole line
// with the last token replaced.
func (c *Completer) Line(line string) []string {
	comps := c.Complete(line)
	if len(comps) == 0 {
		return nil
	}
	head := line
	if !strings.HasSuffix(line, " ") {
		if i := strings.LastIndex(line, " "); i >= 0 {
			head = line[:i+1]
		} else {
			head = ""
		}
	}
	out := make([]string, len(comps))
	for i, comp := range comps {
		out[i] = head + comp.Value
	}
	return out
}

func (c *Completer) completeCommands(partial string) []Completion {
	partial = strings.ToLower(partial)
	if !strings.HasPrefix(partial, "/") {
		partial = "/" + partial
	}
	var out []Completion
	for _, cmd := range c.registry.All() {
		if strings.HasPrefix(cmd.Name, partial) {
			out = append(out, Completion{Value: cmd.Name, Description: cmd.Description, score: score(cmd.Name, partial)})
		}
	}
	sortCompletions(out)
	return out
}

func (c *Completer) completeArg(arg ArgDef, partial string) []Completion {
	var out []Completion
	add := func(value, desc string) {
		if strings.HasPrefix(strings.ToLower(value), strings.ToLower(partial)) {
			out = append(out, Completion{Value: value, Description: desc, score: score(value, partial)})
		}
	}

	switch arg.Type {
	case ArgEnum:
		for _, v := range arg.Values {
			add(v, "")
		}
	case ArgMemory:
		if c.env == nil || c.env.Memories == nil {
			return nil
		}
		for _, mem := range c.env.Memories.Memories() {
			add(mem.ID, mem.Title)
		}
	case ArgMessage:
		if c.env == nil || c.env.Conversations == nil {
			return nil
		}
		conv, ok := c.env.Conversations.Get(c.env.ConversationID)
		if !ok {
			return nil
		}
		for _, msg := range conv.ConfirmedMessages() {
			add(msg.ID.String(), util.TruncateRunes(msg.Content, 40))
		}
	}
	sortCompletions(out)
	return out
}

// score prefers exact and short matches.
func score(value, partial string) int {
	s := 100 - len(value)
	if strings.EqualFold(value, partial) {
		s += 1000
	}
	return s
}

func sortCompletions(comps []Completion) {
	sort.SliceStable(comps, func(i, j int) bool {
		if comps[i].score != comps[j].score {
			return comps[i].score > comps[j].score
		}
		return comps[i].Value < comps[j].Value
	})
}
