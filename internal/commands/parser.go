// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"strings"
	"unicode"
)

// ParseResult is one parsed line of input.
type ParseResult struct {
	IsCommand   bool
	Command     *Command // nil when CommandName is unknown
	CommandName string
	Args        []string
	RawArgs     string
}

// Parser splits input lines into commands and arguments.
type Parser struct {
	registry *Registry
}

// NewParser returns a parser resolving names against registry.
func NewParser(registry *Registry) *Parser {
	return &Parser{registry: registry}
}

// Parse parses input. Lines without a leading slash are not commands and are
// sent as messages instead.
func (p *Parser) Parse(input string) ParseResult {
	input = strings.TrimSpace(input)
	if !strings.HasPrefix(input, "/") {
		return ParseResult{}
	}

	res := ParseResult{IsCommand: true}
	tokens := SplitArgs(input)
	if len(tokens) == 0 {
		return res
	}
	res.CommandName = strings.ToLower(tokens[0])
	res.Args = tokens[1:]
	if i := strings.IndexFunc(input, unicode.IsSpace); i >= 0 {
		res.RawArgs = strings.TrimSpace(input[i:])
	}
	if p.registry != nil {
		res.Command = p.registry.Get(res.CommandName)
	}
	return res
}

// SplitArgs splits a line on whitespace, keeping quoted runs together.
// Single and double quotes are both accepted; a backslash escapes a quote
// inside a quoted run.
func SplitArgs(input string) []string {
	var (
		tokens  []string
		current strings.Builder
		quote   rune
		started bool
	)
	flush := func() {
		if started {
			tokens = append(tokens, current.String())
			current.Reset()
			started = false
		}
	}

	runes := []rune(input)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		switch {
		case quote != 0 && r == '\\' && i+1 < len(runes) && (runes[i+1] == quote || runes[i+1] == '\\'):
			current.WriteRune(runes[i+1])
			i++
		case quote != 0 && r == quote:
			quote = 0
		case quote == 0 && (r == '"' || r == '\''):
			quote = r
			started = true
		case quote == 0 && unicode.IsSpace(r):
			flush()
		default:
			current.WriteRune(r)
			started = true
		}
	}
	flush()
	return tokens
}
