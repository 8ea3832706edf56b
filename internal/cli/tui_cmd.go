// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/chimera-cli/internal/commands"
	"github.com/jeranaias/chimera-cli/internal/config"
	"github.com/jeranaias/chimera-cli/internal/logging"
	"github.com/jeranaias/chimera-cli/internal/ui/chat"
	"github.com/jeranaias/chimera-cli/internal/ui/styles"
)

// runTUI opens the full-screen chat view on one conversation.
func runTUI(ctx context.Context, e *Env) error {
	if e.Args.JSON {
		return &UsageError{Message: "tui is interactive and has no JSON mode"}
	}
	if !e.Prompt.Interactive() || !IsStdoutTTY() {
		return &TTYRequiredError{Operation: "open the chat view"}
	}
	id, err := e.conversationArg(ctx, 0)
	if err != nil {
		return err
	}

	wsName := ""
	if ws, ok := e.App.Workspaces.Active(); ok {
		wsName = ws.Name
	}
	if err := e.App.StartBackground(); err != nil {
		e.notef("Background sync disabled: %v", err)
	}

	defer e.signOutIfIdle(ctx)
	m := chat.New(chat.Deps{
		Conversations: e.App.Conversations,
		Memories:      e.App.Memories,
		Toasts:        e.App.Toasts,
		Session:       e.App.Session,
		Poller:        e.App.NewPoller(),
		Commands:      commands.NewRegistry(),
		Theme:         styles.NewTheme(e.Config.UI.Theme),
		Markdown:      e.Config.UI.Markdown && ColorsEnabled(),
		AIResponse:    e.Config.Chat.AIResponse && !e.Params.BoolFlag("no-ai"),
		WorkspaceName: wsName,
		Log:           logging.Component(e.App.Logger, "tui"),
	}, id)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	noAI := e.Params.BoolFlag("no-ai")
	if path, perr := e.configPath(); perr == nil {
		watchCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		log := logging.Component(e.App.Logger, "config")
		go config.Watch(watchCtx, path, func(cfg *config.Config) {
			log.Debug("config file changed, applying display preferences")
			p.Send(chat.PrefsMsg{
				Theme:      cfg.UI.Theme,
				Markdown:   cfg.UI.Markdown && ColorsEnabled(),
				AIResponse: cfg.Chat.AIResponse && !noAI,
			})
		}, func(err error) {
			log.WithError(err).Warn("config reload failed")
		})
	}

	_, err = p.Run()
	if err != nil && ctx.Err() != nil {
		return nil
	}
	return err
}
