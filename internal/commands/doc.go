// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package commands provides the slash commands shared by the chat REPL and
// the terminal chat view.
//
// # Key Types
//
//   - Registry: every command, keyed by name and alias
//   - Parser: splits a line into a command and arguments
//   - Env: the conversation a command acts on and the stores it uses
//   - Completer: tab completion for command names, memory IDs and message IDs
//
// # Usage
//
//	reg := commands.NewRegistry()
//	res, err := reg.Execute(ctx, env, line)
//	if res.Quit {
//	    return
//	}
//	fmt.Println(res.Output)
package commands
