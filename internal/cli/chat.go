// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode chat REPL.
//
// Command: chat <conversation>
//
// Reads lines with history and tab completion. Lines starting with "/" run
// slash commands (/help lists them); everything else is sent as a message.
// Messages posted by teammates appear before the next prompt.
//
//   Up/Down             History
//   Tab                 Complete slash commands and their arguments
//   Ctrl+C, Ctrl+D      Exit
//
// With session.idle_timeout_mins set, a warning is printed before the idle
// timeout and the REPL signs out once it passes.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/peterh/liner"

	"github.com/jeranaias/chimera-cli/internal/commands"
	"github.com/jeranaias/chimera-cli/internal/config"
	"github.com/jeranaias/chimera-cli/internal/model"
	"github.com/jeranaias/chimera-cli/internal/session"
	"github.com/jeranaias/chimera-cli/internal/ui/components"
	"github.com/jeranaias/chimera-cli/internal/ui/styles"
)

// =============================================================================
// INPUT HISTORY
// =============================================================================

// lineReader provides line editing and persistent history.
type lineReader struct {
	line        *liner.State
	historyFile string
}

func newLineReader(cfg *config.Config, complete func(string) []string) *lineReader {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)
	line.SetTabCompletionStyle(liner.TabPrints)
	line.SetCompleter(complete)

	r := &lineReader{line: line}
	if path, err := cfg.HistoryPath(); err == nil {
		r.historyFile = path
		if f, err := os.Open(path); err == nil {
			r.line.ReadHistory(f)
			f.Close()
		}
	}
	return r
}

func (r *lineReader) read(prompt string) (string, error) {
	input, err := r.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		r.line.AppendHistory(input)
	}
	return input, nil
}

// close saves history (0600) and restores the terminal.
func (r *lineReader) close() {
	defer r.line.Close()
	if r.historyFile == "" {
		return
	}
	if err := config.EnsureConfigDir(); err != nil {
		return
	}
	f, err := os.OpenFile(r.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return
	}
	defer f.Close()
	r.line.WriteHistory(f)
}

// =============================================================================
// SESSION
// =============================================================================

// chatSession is the state of one REPL run.
type chatSession struct {
	e        *Env
	id       string
	ai       bool
	theme    *styles.Theme
	md       *components.Markdown
	registry *commands.Registry
	cmdEnv   *commands.Env
	seen     map[model.MessageID]bool
}

func runChat(ctx context.Context, e *Env) error {
	if e.Args.JSON {
		return &UsageError{Message: "chat is interactive and has no JSON mode; use 'chimera send --json'"}
	}
	if !e.Prompt.Interactive() {
		return &TTYRequiredError{Operation: "chat"}
	}
	id, err := e.conversationArg(ctx, 0)
	if err != nil {
		return err
	}
	if err := e.App.Conversations.SetActive(ctx, id); err != nil {
		return err
	}

	defer e.signOutIfIdle(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := e.App.NewPoller().Start(ctx, id)
	defer stop()
	if err := e.App.StartBackground(); err != nil {
		e.notef("Background sync disabled: %v", err)
	}
	defer e.watchIdle(ctx, cancel)()

	theme, md := e.renderer()
	s := &chatSession{
		e:        e,
		id:       id,
		ai:       e.Config.Chat.AIResponse && !e.Params.BoolFlag("no-ai"),
		theme:    theme,
		md:       md,
		registry: commands.NewRegistry(),
		cmdEnv: &commands.Env{
			ConversationID: id,
			Conversations:  e.App.Conversations,
			Memories:       e.App.Memories,
		},
		seen: make(map[model.MessageID]bool),
	}
	if ws := s.conversation().WorkspaceID; ws != "" {
		if err := e.App.Memories.Load(ctx, ws, "", ""); err != nil {
			e.App.Logger.WithError(err).Debug("memories unavailable for completion")
		}
	}

	completer := commands.NewCompleter(s.registry, s.cmdEnv)
	in := newLineReader(e.Config, completer.Line)
	defer in.close()

	s.printHistory()
	return s.loop(ctx, in)
}

func (s *chatSession) conversation() model.Conversation {
	conv, _ := s.e.App.Conversations.Get(s.id)
	return conv
}

// printHistory prints the conversation so far and marks it seen.
func (s *chatSession) printHistory() {
	conv := s.conversation()
	printConversation(s.e, conv, conv.Messages)
	for _, m := range conv.Messages {
		s.seen[m.ID] = true
	}
	fmt.Fprintln(s.e.Out, DimStyle.Render("Type a message, /help for commands, Ctrl+D to exit."))
}

// printNew prints confirmed messages that arrived since the last prompt.
func (s *chatSession) printNew() {
	for _, m := range s.conversation().Messages {
		if s.seen[m.ID] || m.ID.IsPending() {
			continue
		}
		s.seen[m.ID] = true
		fmt.Fprintln(s.e.Out, components.RenderMessage(s.theme, s.md, m, GetTerminalWidth()))
	}
}

func (s *chatSession) prompt() string {
	conv := s.conversation()
	if !conv.IsActive() {
		return "(closed) > "
	}
	return "> "
}

func (s *chatSession) loop(ctx context.Context, in *lineReader) error {
	for {
		s.printNew()
		line, err := in.read(s.prompt())
		if errors.Is(err, liner.ErrPromptAborted) || errors.Is(err, io.EOF) {
			fmt.Fprintln(s.e.Out)
			return nil
		}
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		s.e.App.Session.RecordActivity()

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "/") {
			quit, err := s.command(ctx, line)
			if err != nil {
				fmt.Fprintln(s.e.Err, ErrorStyle.Render("[ERROR] "+err.Error()))
			}
			if quit {
				return nil
			}
			continue
		}
		s.send(ctx, line)
	}
}

func (s *chatSession) command(ctx context.Context, line string) (bool, error) {
	res, err := s.registry.Execute(ctx, s.cmdEnv, line)
	if err != nil {
		return false, err
	}
	if res.Output != "" {
		fmt.Fprintln(s.e.Out, res.Output)
	}
	return res.Quit, nil
}

func (s *chatSession) send(ctx context.Context, text string) {
	if s.ai {
		fmt.Fprint(s.e.Out, DimStyle.Render("thinking...")+"\r")
	}
	res, err := s.e.App.Conversations.Send(ctx, s.id, text, s.ai)
	if s.ai {
		fmt.Fprint(s.e.Out, "\r"+strings.Repeat(" ", len("thinking..."))+"\r")
	}
	if err != nil {
		fmt.Fprintln(s.e.Err, ErrorStyle.Render("[ERROR] "+err.Error()))
		return
	}
	s.seen[res.UserMessage.ID] = true
	if res.AssistantMessage != nil {
		s.seen[res.AssistantMessage.ID] = true
		fmt.Fprintln(s.e.Out, components.RenderMessage(s.theme, s.md, *res.AssistantMessage, GetTerminalWidth()))
	}
}

// =============================================================================
// IDLE TIMEOUT
// =============================================================================

// watchIdle prints the idle warning and cancels the chat when the session
// idles out. The prompt is blocked on input at that point, so the user is
// asked to press Enter. The returned function detaches the callbacks.
func (e *Env) watchIdle(ctx context.Context, cancel context.CancelFunc) (detach func()) {
	sess := e.App.Session
	sess.SetWarningCallback(func(remaining time.Duration) {
		fmt.Fprintln(e.Err, "\r"+WarningStyle.Render("Session idle: signing out in "+session.FormatDuration(remaining)))
	})
	sess.SetTimeoutCallback(func() {
		fmt.Fprintln(e.Err, "\r"+WarningStyle.Render("Session expired after inactivity. Press Enter to exit."))
		cancel()
	})
	go sess.Monitor(ctx, time.Second)
	return func() {
		sess.SetWarningCallback(nil)
		sess.SetTimeoutCallback(nil)
	}
}

// signOutIfIdle ends an idle-expired session so the next command asks for a
// login instead of reusing the stored token.
func (e *Env) signOutIfIdle(ctx context.Context) {
	if !e.App.Session.IsExpired() {
		return
	}
	if err := e.App.Auth.Logout(ctx); err != nil {
		e.App.Logger.WithError(err).Debug("sign-out after idle timeout failed")
	}
	e.notef("Signed out after inactivity.")
}
