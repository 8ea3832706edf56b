// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/jeranaias/chimera-cli/internal/commands"
	"github.com/jeranaias/chimera-cli/internal/poller"
	"github.com/jeranaias/chimera-cli/internal/session"
	"github.com/jeranaias/chimera-cli/internal/store"
	"github.com/jeranaias/chimera-cli/internal/ui/components"
	"github.com/jeranaias/chimera-cli/internal/ui/styles"
)

// =============================================================================
// DEPENDENCIES
// =============================================================================

// Deps are the long-lived components the view reads and drives.
type Deps struct {
	Conversations *store.ConversationStore
	Memories      *store.MemoryStore
	Toasts        *store.ToastStore
	Session       *session.Manager
	Poller        *poller.Poller // nil disables live updates
	Commands      *commands.Registry

	Theme         *styles.Theme
	Markdown      bool
	AIResponse    bool
	WorkspaceName string
	Log           *logrus.Entry
}

// =============================================================================
// BRIDGE
// =============================================================================

// bridge is shared by every copy of the Model. It owns the goroutine-facing
// side: store subscriptions, the poller and the base context.
type bridge struct {
	ctx    context.Context
	cancel context.CancelFunc

	changes chan struct{}

	mu     sync.Mutex
	unsubs []func()
	stop   func()
	closed bool
}

func newBridge() *bridge {
	ctx, cancel := context.WithCancel(context.Background())
	return &bridge{ctx: ctx, cancel: cancel, changes: make(chan struct{}, 1)}
}

// notify coalesces change notifications into at most one pending signal.
func (b *bridge) notify() {
	select {
	case b.changes <- struct{}{}:
	default:
	}
}

func (b *bridge) subscribe(subs ...interface{ Subscribe(func()) func() }) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range subs {
		b.unsubs = append(b.unsubs, s.Subscribe(b.notify))
	}
}

func (b *bridge) setStop(stop func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		stop()
		return
	}
	b.stop = stop
}

func (b *bridge) close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	unsubs, stop := b.unsubs, b.stop
	b.unsubs, b.stop = nil, nil
	b.mu.Unlock()

	for _, u := range unsubs {
		u()
	}
	if stop != nil {
		stop()
	}
	b.cancel()
}

// waitForChange blocks until a subscribed store changes.
func (b *bridge) waitForChange() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-b.changes:
			return storeChangedMsg{}
		case <-b.ctx.Done():
			return nil
		}
	}
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the Bubble Tea model for one conversation.
type Model struct {
	deps           Deps
	conversationID string
	bridge         *bridge
	md             *components.Markdown
	completer      *commands.Completer
	env            *commands.Env

	keys     KeyMap
	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	width, height int
	ready         bool
	loading       bool
	sending       bool

	notice  string
	lastErr error
}

// New builds the view for conversationID.
func New(deps Deps, conversationID string) Model {
	if deps.Theme == nil {
		deps.Theme = styles.NewTheme(styles.ModeAuto)
	}
	if deps.Commands == nil {
		deps.Commands = commands.NewRegistry()
	}
	if deps.Log == nil {
		deps.Log = logrus.NewEntry(logrus.StandardLogger())
	}

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Message, or /help"
	ti.CharLimit = 8000
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: []string{"|", "/", "-", "\\"},
		FPS:    time.Second / 10,
	}
	sp.Style = deps.Theme.Spinner

	env := &commands.Env{
		ConversationID: conversationID,
		Conversations:  deps.Conversations,
		Memories:       deps.Memories,
	}

	b := newBridge()
	subs := []interface{ Subscribe(func()) func() }{deps.Conversations}
	if deps.Toasts != nil {
		subs = append(subs, deps.Toasts)
	}
	b.subscribe(subs...)

	return Model{
		deps:           deps,
		conversationID: conversationID,
		bridge:         b,
		md:             components.NewMarkdown(deps.Theme.GlamourStyle(), deps.Markdown),
		completer:      commands.NewCompleter(deps.Commands, env),
		env:            env,
		keys:           DefaultKeyMap(),
		viewport:       viewport.New(80, 20),
		input:          ti,
		spinner:        sp,
		loading:        true,
	}
}

// Close releases subscriptions and stops the poller. Safe to call twice.
func (m Model) Close() {
	m.bridge.close()
}

// Init starts the initial fetch, the poller and the session ticker.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		textinput.Blink,
		m.bridge.waitForChange(),
		m.loadCmd(),
	}
	if m.deps.Session != nil && m.deps.Session.RemainingTime() >= 0 {
		cmds = append(cmds, session.TickCmd())
	}
	return tea.Batch(cmds...)
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m Model) loadCmd() tea.Cmd {
	ctx, id := m.bridge.ctx, m.conversationID
	convs := m.deps.Conversations
	return func() tea.Msg {
		return loadedMsg{err: convs.SetActive(ctx, id)}
	}
}

// startPollerCmd starts the poller once the first fetch has landed.
func (m Model) startPollerCmd() tea.Cmd {
	if m.deps.Poller == nil {
		return nil
	}
	b, p, id := m.bridge, m.deps.Poller, m.conversationID
	return func() tea.Msg {
		b.setStop(p.Start(b.ctx, id))
		return nil
	}
}

func (m Model) sendCmd(content string) tea.Cmd {
	ctx, id, ai := m.bridge.ctx, m.conversationID, m.deps.AIResponse
	convs := m.deps.Conversations
	return func() tea.Msg {
		res, err := convs.Send(ctx, id, content, ai)
		return sendDoneMsg{result: res, err: err}
	}
}

func (m Model) commandCmd(line string) tea.Cmd {
	ctx, reg, env := m.bridge.ctx, m.deps.Commands, m.env
	return func() tea.Msg {
		res, err := reg.Execute(ctx, env, line)
		return commandDoneMsg{input: line, result: res, err: err}
	}
}

func (m Model) refreshCmd() tea.Cmd {
	ctx, id := m.bridge.ctx, m.conversationID
	convs := m.deps.Conversations
	return func() tea.Msg {
		return refreshDoneMsg{err: convs.Refresh(ctx, id)}
	}
}

// =============================================================================
// ACCESSORS
// =============================================================================

// ConversationID returns the conversation on screen.
func (m Model) ConversationID() string { return m.conversationID }

// IsSending reports whether the input is disabled by an in-flight send.
func (m Model) IsSending() bool { return m.sending }

// Err returns the last error shown, if any.
func (m Model) Err() error { return m.lastErr }

// errText turns store and API errors into one line for the notice area.
func errText(err error) string {
	switch {
	case errors.Is(err, store.ErrSendInProgress):
		return "a message is already being sent"
	case errors.Is(err, store.ErrEmptyMessage):
		return "message is empty"
	}
	return strings.TrimSpace(err.Error())
}
