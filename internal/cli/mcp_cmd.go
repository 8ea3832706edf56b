// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeranaias/chimera-cli/internal/api"
)

const mcpUsage = `chimera mcp remember <conversation> <text...> [--tags a,b]
chimera mcp search <query...> [--conversation ID] [--top-k N]
chimera mcp inject <conversation> [--max N]
chimera mcp list <conversation> [--limit N] [--offset N]`

// runMCP calls the Model Context Protocol endpoints. Their payloads are
// free-form, so results are printed as JSON.
func runMCP(ctx context.Context, e *Env) error {
	var (
		raw json.RawMessage
		err error
	)
	switch sub := e.sub(""); sub {
	case "remember":
		raw, err = mcpRemember(ctx, e)
	case "search":
		raw, err = mcpSearch(ctx, e)
	case "inject":
		raw, err = mcpInject(ctx, e)
	case "list", "ls":
		raw, err = mcpList(ctx, e)
	case "":
		return ErrMissingArgument("subcommand", mcpUsage)
	default:
		return ErrUnknownSubcommand("mcp", sub, mcpUsage)
	}
	if err != nil {
		return err
	}

	return e.emit(raw, func() {
		var pretty bytes.Buffer
		if json.Indent(&pretty, raw, "", "  ") != nil {
			fmt.Fprintln(e.Out, string(raw))
			return
		}
		fmt.Fprintln(e.Out, highlight(pretty.String(), "json"))
	})
}

func mcpRemember(ctx context.Context, e *Env) (json.RawMessage, error) {
	id, err := e.conversationArg(ctx, 1)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(JoinPositionalArgs(e.Params, 2))
	if text == "" {
		if text, err = e.readContent(); err != nil {
			return nil, err
		}
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrMissingArgument("text", mcpUsage)
	}
	return e.App.API.MCPRemember(ctx, api.MCPRememberRequest{
		Text:           text,
		ConversationID: id,
		Tags:           SplitList(e.Params.Flag("tags")),
	})
}

func mcpSearch(ctx context.Context, e *Env) (json.RawMessage, error) {
	query := strings.TrimSpace(JoinPositionalArgs(e.Params, 1))
	if query == "" {
		return nil, ErrMissingArgument("query", mcpUsage)
	}
	topK, err := e.Params.FlagInt("top-k")
	if err != nil {
		return nil, err
	}
	req := api.MCPSearchRequest{Query: query, TopK: topK}
	if ref := e.Params.Flag("conversation"); ref != "" {
		if req.ConversationID, err = e.resolveConversation(ctx, ref); err != nil {
			return nil, err
		}
	}
	return e.App.API.MCPSearch(ctx, req)
}

func mcpInject(ctx context.Context, e *Env) (json.RawMessage, error) {
	id, err := e.conversationArg(ctx, 1)
	if err != nil {
		return nil, err
	}
	max, err := e.Params.FlagInt("max")
	if err != nil {
		return nil, err
	}
	raw, err := e.App.API.MCPInject(ctx, api.MCPInjectRequest{ConversationID: id, MaxMemories: max})
	if err != nil {
		return nil, err
	}
	// Injection changes the conversation's memory list.
	if err := e.App.Conversations.Refresh(ctx, id); err != nil {
		e.App.Logger.WithError(err).Debug("refresh after mcp inject failed")
	}
	return raw, nil
}

func mcpList(ctx context.Context, e *Env) (json.RawMessage, error) {
	id, err := e.conversationArg(ctx, 1)
	if err != nil {
		return nil, err
	}
	limit, err := e.Params.FlagInt("limit")
	if err != nil {
		return nil, err
	}
	offset, err := e.Params.FlagInt("offset")
	if err != nil {
		return nil, err
	}
	return e.App.API.MCPListMemories(ctx, id, limit, offset)
}
