// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/chimera-cli/internal/model"
)

// messageRef turns a user-typed message ID into a confirmed ID. Pending
// messages have no server identity yet and cannot be acted on.
func messageRef(raw string) (model.MessageID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.MessageID{}, fmt.Errorf("%w: message id is required", ErrUsage)
	}
	if strings.HasPrefix(raw, model.PendingPrefix) {
		return model.MessageID{}, fmt.Errorf("message %s has not been saved yet", raw)
	}
	return model.ConfirmedID(raw), nil
}

func handleQuit(context.Context, *Env, []string) (Result, error) {
	return Result{Quit: true}, nil
}

func handleRefresh(ctx context.Context, env *Env, _ []string) (Result, error) {
	if err := env.Conversations.Refresh(ctx, env.ConversationID); err != nil {
		return Result{}, err
	}
	conv, err := env.conversation()
	if err != nil {
		return Result{}, err
	}
	return Result{Output: fmt.Sprintf("%d message(s)", len(conv.Messages))}, nil
}

// =============================================================================
// MESSAGES
// =============================================================================

func handlePin(ctx context.Context, env *Env, args []string) (Result, error) {
	id, err := messageRef(args[0])
	if err != nil {
		return Result{}, err
	}
	if err := env.Conversations.PinMessage(ctx, env.ConversationID, id); err != nil {
		return Result{}, err
	}
	return Result{Output: "Pinned " + id.String()}, nil
}

func handleUnpin(ctx context.Context, env *Env, args []string) (Result, error) {
	id, err := messageRef(args[0])
	if err != nil {
		return Result{}, err
	}
	if err := env.Conversations.UnpinMessage(ctx, env.ConversationID, id); err != nil {
		return Result{}, err
	}
	return Result{Output: "Unpinned " + id.String()}, nil
}

func handleDeleteMessage(ctx context.Context, env *Env, args []string) (Result, error) {
	id, err := messageRef(args[0])
	if err != nil {
		return Result{}, err
	}
	if err := env.Conversations.DeleteMessage(ctx, env.ConversationID, id); err != nil {
		return Result{}, err
	}
	return Result{Output: "Deleted " + id.String()}, nil
}

// =============================================================================
// MEMORIES
// =============================================================================

func handleMemories(ctx context.Context, env *Env, args []string) (Result, error) {
	conv, err := env.conversation()
	if err != nil {
		return Result{}, err
	}
	if err := env.Memories.Load(ctx, conv.WorkspaceID, "", ""); err != nil {
		return Result{}, err
	}
	mems := env.Memories.Filter(strings.Join(args, " "))
	if len(mems) == 0 {
		return Result{Output: "No memories"}, nil
	}

	var b strings.Builder
	for _, mem := range mems {
		mark := " "
		if i := conv.FindInjected(mem.ID); i >= 0 {
			mark = "+"
			if !conv.InjectedMemories[i].IsActive {
				mark = "-"
			}
		}
		fmt.Fprintf(&b, "%s %s  %s\n", mark, mem.ID, mem.Title)
	}
	return Result{Output: strings.TrimRight(b.String(), "\n")}, nil
}

func memoryLabel(env *Env, id string) string {
	if env.Memories != nil {
		if mem, ok := env.Memories.Get(id); ok && mem.Title != "" {
			return fmt.Sprintf("%q", mem.Title)
		}
	}
	return id
}

func handleInject(ctx context.Context, env *Env, args []string) (Result, error) {
	if err := env.Conversations.InjectMemory(ctx, env.ConversationID, args[0]); err != nil {
		return Result{}, err
	}
	return Result{Output: "Injected " + memoryLabel(env, args[0])}, nil
}

func handleUninject(ctx context.Context, env *Env, args []string) (Result, error) {
	if err := env.Conversations.RemoveInjectedMemory(ctx, env.ConversationID, args[0]); err != nil {
		return Result{}, err
	}
	return Result{Output: "Removed " + memoryLabel(env, args[0])}, nil
}

func handleToggle(ctx context.Context, env *Env, args []string) (Result, error) {
	active, err := env.Conversations.ToggleInjectedMemory(ctx, env.ConversationID, args[0])
	if err != nil {
		return Result{}, err
	}
	state := "off"
	if active {
		state = "on"
	}
	return Result{Output: fmt.Sprintf("%s is now %s", memoryLabel(env, args[0]), state)}, nil
}

// =============================================================================
// CONVERSATION
// =============================================================================

func handleClose(ctx context.Context, env *Env, _ []string) (Result, error) {
	mem, err := env.Conversations.Close(ctx, env.ConversationID)
	if err != nil {
		return Result{}, err
	}
	if mem != nil {
		return Result{Output: fmt.Sprintf("Closed. Archived as memory %s (%s)", mem.ID, mem.Title)}, nil
	}
	return Result{Output: "Closed"}, nil
}

func handleReopen(ctx context.Context, env *Env, _ []string) (Result, error) {
	if err := env.Conversations.Reopen(ctx, env.ConversationID); err != nil {
		return Result{}, err
	}
	return Result{Output: "Reopened"}, nil
}
