// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli implements the chimera command line.
//
// Every command runs through a Runner, which parses the global flags, loads
// the configuration, builds the application and restores the saved session
// before calling the command handler:
//
//	os.Exit(cli.NewRunner().Run(ctx, os.Args[1:]))
//
// # Commands
//
// Account:
//   - login, register, logout, whoami
//   - settings: profile, memory retention, cleanup, export, account deletion
//
// Workspace data:
//   - workspaces: list, create, use, update, delete, dashboard
//   - conversations: list, new, show, rename, close, reopen, pin, delete
//   - memories: list, show, create, update, delete, search, import
//   - integrations: provider keys and the model catalog
//   - team, invitations
//
// Chat:
//   - send: one message, suitable for scripts
//   - chat: line-mode REPL with history and slash commands
//   - tui: full-screen chat view
//
// Every command accepts --json and then writes exactly one JSON document to
// stdout, errors included. Exit codes are listed in errors.go.
package cli
