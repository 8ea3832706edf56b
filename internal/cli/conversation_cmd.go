// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/model"
	"github.com/jeranaias/chimera-cli/internal/ui/components"
	"github.com/jeranaias/chimera-cli/internal/ui/styles"
)

const conversationsUsage = `chimera conversations [list] [--all]
chimera conversations new [title] [--model MODEL]
chimera conversations show <conversation> [--limit N]
chimera conversations rename <conversation> <title>
chimera conversations delete <conversation> [--yes]
chimera conversations close <conversation>
chimera conversations reopen <conversation>
chimera conversations pin <conversation> <message>
chimera conversations unpin <conversation> <message>
chimera conversations rm-message <conversation> <message> [--yes]`

func runConversations(ctx context.Context, e *Env) error {
	switch sub := e.sub("list"); sub {
	case "list", "ls":
		return conversationsList(ctx, e)
	case "new", "create":
		return conversationsNew(ctx, e)
	case "show", "view":
		return conversationsShow(ctx, e)
	case "rename":
		return conversationsRename(ctx, e)
	case "delete", "rm":
		return conversationsDelete(ctx, e)
	case "close":
		return conversationsClose(ctx, e)
	case "reopen":
		return conversationsReopen(ctx, e)
	case "pin", "unpin":
		return conversationsPin(ctx, e, sub == "pin")
	case "rm-message", "delete-message":
		return conversationsRemoveMessage(ctx, e)
	default:
		return ErrUnknownSubcommand("conversations", sub, conversationsUsage)
	}
}

// conversationArg resolves the conversation named at index.
func (e *Env) conversationArg(ctx context.Context, index int) (string, error) {
	ref, err := e.Params.Require(index, "conversation", e.command.usage)
	if err != nil {
		return "", err
	}
	return e.resolveConversation(ctx, ref)
}

func conversationsList(ctx context.Context, e *Env) error {
	ws, err := e.workspace(ctx)
	if err != nil {
		return err
	}
	if err := e.App.Conversations.Load(ctx, ws.ID); err != nil {
		return err
	}

	var list []model.Conversation
	for _, c := range e.App.Conversations.ByWorkspace(ws.ID) {
		if e.Params.BoolFlag("all") || c.IsActive() {
			list = append(list, c)
		}
	}

	return e.emit(map[string]any{"workspaceId": ws.ID, "conversations": list}, func() {
		t := NewTable("ID", "TITLE", "MODEL", "STATUS", "MESSAGES", "UPDATED")
		for _, c := range list {
			count := c.MessageCount
			if count == 0 {
				count = len(c.Messages)
			}
			t.Add(c.ID, c.Title, c.ModelID, string(c.Status), fmt.Sprint(count), formatTime(c.UpdatedAt))
		}
		empty := "No active conversations. Start one with 'chimera conversations new'."
		if e.Params.BoolFlag("all") {
			empty = "No conversations yet."
		}
		t.Render(e.Out, empty)
	})
}

func conversationsNew(ctx context.Context, e *Env) error {
	ws, err := e.workspace(ctx)
	if err != nil {
		return err
	}
	title := strings.TrimSpace(JoinPositionalArgs(e.Params, 1))
	if title == "" {
		title = "New conversation"
	}
	modelID := e.Params.FlagOrDefault("model", e.Config.Chat.DefaultModel)

	conv, err := e.App.Conversations.Create(ctx, ws.ID, modelID, title)
	if err != nil {
		return err
	}
	return e.done(conv, fmt.Sprintf("Created conversation %s (%s) with %s", conv.Title, conv.ID, conv.ModelID))
}

func conversationsShow(ctx context.Context, e *Env) error {
	id, err := e.conversationArg(ctx, 1)
	if err != nil {
		return err
	}
	if err := e.App.Conversations.Refresh(ctx, id); err != nil {
		return err
	}
	conv, _ := e.App.Conversations.Get(id)

	msgs := conv.Messages
	if limit := e.Params.FlagIntOrDefault("limit", 0); limit > 0 && limit < len(msgs) {
		msgs = msgs[len(msgs)-limit:]
	}

	return e.emit(conv, func() {
		printConversation(e, conv, msgs)
	})
}

// printConversation writes a header and the messages, rendered with the
// chat view's message component.
func printConversation(e *Env, conv model.Conversation, msgs []model.Message) {
	w := e.Out
	theme, md := e.renderer()

	header := TitleStyle.Render(conv.Title) + " " + DimStyle.Render(fmt.Sprintf("(%s, %s)", conv.ModelID, conv.Status))
	fmt.Fprintln(w, header)
	if n := conv.ActiveMemoryCount(); n > 0 {
		fmt.Fprintln(w, DimStyle.Render(fmt.Sprintf("%d injected memor%s active", n, plural(n, "y", "ies"))))
	}
	fmt.Fprintln(w)
	if len(msgs) == 0 {
		fmt.Fprintln(w, DimStyle.Render("No messages yet."))
		return
	}
	fmt.Fprintln(w, components.RenderConversation(theme, md, msgs, GetTerminalWidth()))
}

// renderer returns the theme and Markdown renderer for message output.
// Markdown is off when colors are.
func (e *Env) renderer() (*styles.Theme, *components.Markdown) {
	theme := styles.NewTheme(e.Config.UI.Theme)
	return theme, components.NewMarkdown(theme.GlamourStyle(), e.Config.UI.Markdown && ColorsEnabled())
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func conversationsRename(ctx context.Context, e *Env) error {
	id, err := e.conversationArg(ctx, 1)
	if err != nil {
		return err
	}
	title := strings.TrimSpace(JoinPositionalArgs(e.Params, 2))
	if title == "" {
		return ErrMissingArgument("title", "chimera conversations rename <conversation> <title>")
	}
	conv, err := e.App.Conversations.Update(ctx, id, api.ConversationUpdate{Title: &title})
	if err != nil {
		return err
	}
	return e.done(conv, "Renamed to "+conv.Title)
}

func conversationsDelete(ctx context.Context, e *Env) error {
	id, err := e.conversationArg(ctx, 1)
	if err != nil {
		return err
	}
	ok, err := e.confirm("delete conversation "+id, "")
	if err != nil || !ok {
		return err
	}
	if err := e.App.Conversations.Delete(ctx, id); err != nil {
		return err
	}
	return e.done(map[string]string{"id": id}, "Deleted conversation "+id)
}

func conversationsClose(ctx context.Context, e *Env) error {
	id, err := e.conversationArg(ctx, 1)
	if err != nil {
		return err
	}
	mem, err := e.App.Conversations.Close(ctx, id)
	if err != nil {
		return err
	}
	msg := "Closed conversation " + id
	if mem != nil {
		msg += fmt.Sprintf(". Archived as memory %s (%s)", mem.ID, mem.Title)
	}
	return e.done(map[string]any{"id": id, "memory": mem}, msg)
}

func conversationsReopen(ctx context.Context, e *Env) error {
	id, err := e.conversationArg(ctx, 1)
	if err != nil {
		return err
	}
	if err := e.App.Conversations.Reopen(ctx, id); err != nil {
		return err
	}
	return e.done(map[string]string{"id": id}, "Reopened conversation "+id)
}

// withConversation makes sure the conversation's messages are held locally
// so the store can apply message-level changes.
func (e *Env) withConversation(ctx context.Context, index int) (string, model.MessageID, error) {
	id, err := e.conversationArg(ctx, index)
	if err != nil {
		return "", model.MessageID{}, err
	}
	raw, err := e.Params.Require(index+1, "message", e.command.usage)
	if err != nil {
		return "", model.MessageID{}, err
	}
	msgID, err := messageRef(raw)
	if err != nil {
		return "", model.MessageID{}, err
	}
	if err := e.App.Conversations.Refresh(ctx, id); err != nil {
		return "", model.MessageID{}, err
	}
	return id, msgID, nil
}

func conversationsPin(ctx context.Context, e *Env, pin bool) error {
	id, msgID, err := e.withConversation(ctx, 1)
	if err != nil {
		return err
	}
	if pin {
		err = e.App.Conversations.PinMessage(ctx, id, msgID)
	} else {
		err = e.App.Conversations.UnpinMessage(ctx, id, msgID)
	}
	if err != nil {
		return err
	}
	verb := "Unpinned"
	if pin {
		verb = "Pinned"
	}
	return e.done(map[string]any{"conversationId": id, "messageId": msgID, "pinned": pin}, verb+" "+msgID.String())
}

func conversationsRemoveMessage(ctx context.Context, e *Env) error {
	id, msgID, err := e.withConversation(ctx, 1)
	if err != nil {
		return err
	}
	ok, err := e.confirm("delete message "+msgID.String(), "")
	if err != nil || !ok {
		return err
	}
	if err := e.App.Conversations.DeleteMessage(ctx, id, msgID); err != nil {
		return err
	}
	return e.done(map[string]any{"conversationId": id, "messageId": msgID}, "Deleted message "+msgID.String())
}

// =============================================================================
// SEND
// =============================================================================

// SendData is the JSON form of `chimera send`.
type SendData struct {
	ConversationID   string         `json:"conversationId"`
	UserMessage      model.Message  `json:"userMessage"`
	AssistantMessage *model.Message `json:"assistantMessage,omitempty"`
}

func runSend(ctx context.Context, e *Env) error {
	id, err := e.conversationArg(ctx, 0)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(JoinPositionalArgs(e.Params, 1))
	if text == "" {
		if text, err = e.readContent(); err != nil {
			return err
		}
	}

	if err := e.App.Conversations.Refresh(ctx, id); err != nil {
		return err
	}
	ai := e.Config.Chat.AIResponse && !e.Params.BoolFlag("no-ai")
	res, err := e.App.Conversations.Send(ctx, id, text, ai)
	if err != nil {
		return err
	}

	data := SendData{ConversationID: id, UserMessage: res.UserMessage, AssistantMessage: res.AssistantMessage}
	return e.emit(data, func() {
		if res.AssistantMessage == nil {
			if !e.Args.Quiet {
				fmt.Fprintln(e.Out, Success("Sent "+res.UserMessage.ID.String()))
			}
			return
		}
		if e.Args.Quiet {
			fmt.Fprintln(e.Out, res.AssistantMessage.Content)
			return
		}
		theme, md := e.renderer()
		fmt.Fprintln(e.Out, components.RenderMessage(theme, md, *res.AssistantMessage, GetTerminalWidth()))
	})
}
