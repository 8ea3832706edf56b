// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jeranaias/chimera-cli/internal/model"
	"github.com/jeranaias/chimera-cli/internal/storage"
	"github.com/jeranaias/chimera-cli/internal/util"
)

// ErrNoSession is returned when an operation needs credentials and none are held.
var ErrNoSession = errors.New("not signed in")

// =============================================================================
// SESSION MANAGER
// =============================================================================

// Manager tracks credentials and idle state for the signed-in user.
type Manager struct {
	mu    sync.Mutex
	store storage.Store
	now   func() time.Time

	// Session tracking
	sessionID    string
	startTime    time.Time
	lastActivity time.Time

	// Credentials
	token   string
	refresh string
	user    *model.User

	// Idle configuration; a zero timeout disables idle expiry.
	timeout       time.Duration
	warningBefore time.Duration
	warningShown  bool

	onTimeout func()
	onWarning func(remaining time.Duration)
}

// Config holds configuration for the session manager.
type Config struct {
	// IdleTimeout ends the session after this much inactivity. Zero disables it.
	IdleTimeout time.Duration

	// WarningBefore is how long before the idle timeout to warn (default: 2 minutes)
	WarningBefore time.Duration
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		IdleTimeout:   0,
		WarningBefore: 2 * time.Minute,
	}
}

// NewManager creates a session manager persisting through store. A nil store
// keeps credentials in memory only.
func NewManager(store storage.Store, cfg Config) *Manager {
	m := &Manager{
		store:         store,
		now:           time.Now,
		timeout:       cfg.IdleTimeout,
		warningBefore: cfg.WarningBefore,
	}
	m.reset()
	return m
}

// reset starts a fresh idle window. Caller holds mu or owns m.
func (m *Manager) reset() {
	now := m.now()
	m.sessionID = "sess_" + uuid.NewString()
	m.startTime = now
	m.lastActivity = now
	m.warningShown = false
}

// =============================================================================
// CREDENTIALS
// =============================================================================

// Begin stores the result of a login or register and persists it.
func (m *Manager) Begin(auth *model.AuthResult) error {
	if auth == nil || auth.Token == "" {
		return errors.New("auth result has no token")
	}
	user := auth.User

	m.mu.Lock()
	m.token = auth.Token
	m.refresh = auth.Refresh
	m.user = &user
	m.reset()
	m.mu.Unlock()

	return m.persist()
}

// Restore loads persisted credentials. It reports whether a session was found.
func (m *Manager) Restore() (bool, error) {
	if m.store == nil {
		return false, nil
	}

	token, err := storage.GetString(m.store, storage.KeyAuthToken)
	if err != nil {
		return false, fmt.Errorf("failed to read session: %w", err)
	}
	if token == "" {
		return false, nil
	}
	refresh, err := storage.GetString(m.store, storage.KeyRefreshToken)
	if err != nil {
		return false, fmt.Errorf("failed to read session: %w", err)
	}

	var user model.User
	if err := storage.GetJSON(m.store, storage.KeyUser, &user); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return false, fmt.Errorf("failed to read session: %w", err)
	}

	m.mu.Lock()
	m.token = token
	m.refresh = refresh
	m.user = &user
	m.reset()
	m.mu.Unlock()
	return true, nil
}

// End clears credentials in memory and in storage.
func (m *Manager) End() error {
	m.mu.Lock()
	m.token = ""
	m.refresh = ""
	m.user = nil
	m.reset()
	m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	return storage.DeleteAll(m.store, storage.KeyAuthToken, storage.KeyRefreshToken, storage.KeyUser)
}

// SetToken replaces the access token after a refresh.
func (m *Manager) SetToken(token string) error {
	m.mu.Lock()
	if m.token == "" {
		m.mu.Unlock()
		return ErrNoSession
	}
	m.token = token
	m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	return m.store.Put(storage.KeyAuthToken, []byte(token))
}

// SetUser replaces the cached user record, e.g. after a profile update.
func (m *Manager) SetUser(user model.User) error {
	m.mu.Lock()
	if m.token == "" {
		m.mu.Unlock()
		return ErrNoSession
	}
	m.user = &user
	m.mu.Unlock()

	if m.store == nil {
		return nil
	}
	return storage.PutJSON(m.store, storage.KeyUser, user)
}

func (m *Manager) persist() error {
	if m.store == nil {
		return nil
	}
	m.mu.Lock()
	token, refresh, user := m.token, m.refresh, m.user
	m.mu.Unlock()

	if err := m.store.Put(storage.KeyAuthToken, []byte(token)); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if refresh != "" {
		if err := m.store.Put(storage.KeyRefreshToken, []byte(refresh)); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
	} else if err := m.store.Delete(storage.KeyRefreshToken); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if user != nil {
		if err := storage.PutJSON(m.store, storage.KeyUser, user); err != nil {
			return fmt.Errorf("failed to save session: %w", err)
		}
	}
	return nil
}

// Token returns the access token, or "".
func (m *Manager) Token() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token
}

// RefreshToken returns the refresh token, or "".
func (m *Manager) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh
}

// User returns a copy of the signed-in user, or nil.
func (m *Manager) User() *model.User {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.user == nil {
		return nil
	}
	u := *m.user
	return &u
}

// IsAuthenticated reports whether a token is held and the session is not idle-expired.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != "" && !m.expiredLocked()
}

// =============================================================================
// TOKEN EXPIRY
// =============================================================================

// ExpiresAt returns the exp claim of the access token. The signature is not
// checked. ok is false when there is no token or it carries no exp claim.
func (m *Manager) ExpiresAt() (exp time.Time, ok bool) {
	return TokenExpiry(m.Token())
}

// NeedsRefresh reports whether the access token expires within skew. Tokens
// without an exp claim never need a refresh.
func (m *Manager) NeedsRefresh(skew time.Duration) bool {
	exp, ok := m.ExpiresAt()
	if !ok {
		return false
	}
	return !m.now().Add(skew).Before(exp)
}

// TokenExpiry parses token without verification and returns its exp claim.
func TokenExpiry(token string) (time.Time, bool) {
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// =============================================================================
// SESSION STATE
// =============================================================================

// SessionID returns the local session identifier. It changes on Begin, Restore and End.
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessionID
}

// RemainingTime returns time until idle timeout. Without a timeout it returns -1.
func (m *Manager) RemainingTime() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timeout <= 0 {
		return -1
	}
	remaining := m.timeout - m.now().Sub(m.lastActivity)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordActivity updates the last activity timestamp.
// This should be called on user input.
func (m *Manager) RecordActivity() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastActivity = m.now()
	m.warningShown = false
}

// IsExpired returns true if the session has been idle past the timeout.
func (m *Manager) IsExpired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiredLocked()
}

func (m *Manager) expiredLocked() bool {
	return m.timeout > 0 && m.now().Sub(m.lastActivity) >= m.timeout
}

// SetTimeoutCallback sets the function called when the session idles out.
func (m *Manager) SetTimeoutCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onTimeout = fn
}

// SetWarningCallback sets the function called when approaching the idle timeout.
func (m *Manager) SetWarningCallback(fn func(remaining time.Duration)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onWarning = fn
}

// idleState is one evaluation of the idle window.
type idleState struct {
	warn      bool // the warning is due and has not been reported yet
	remaining time.Duration
	expired   bool
}

// evaluate reads the idle window and marks the warning as reported when it
// becomes due, so each window warns at most once whichever caller sees it.
func (m *Manager) evaluate() idleState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.timeout <= 0 {
		return idleState{remaining: -1}
	}
	idle := m.now().Sub(m.lastActivity)
	st := idleState{remaining: max(m.timeout-idle, 0), expired: idle >= m.timeout}
	if !m.warningShown && !st.expired && idle >= m.timeout-m.warningBefore {
		st.warn = true
		m.warningShown = true
	}
	return st
}

// Check evaluates idle state and triggers callbacks.
// Returns true if the session is still valid, false if expired.
func (m *Manager) Check() bool {
	st := m.evaluate()

	m.mu.Lock()
	onTimeout := m.onTimeout
	onWarning := m.onWarning
	m.mu.Unlock()

	// Callbacks run outside the lock
	if st.warn && onWarning != nil {
		onWarning(st.remaining)
	}
	if st.expired && onTimeout != nil {
		onTimeout()
	}
	return !st.expired
}

// Monitor calls Check every interval until the session expires or ctx is
// done. Line-mode front ends run it in a goroutine; the terminal UI uses
// HandleTick instead.
func (m *Manager) Monitor(ctx context.Context, interval time.Duration) {
	m.mu.Lock()
	disabled := m.timeout <= 0
	m.mu.Unlock()
	if disabled {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if !m.Check() {
			return
		}
	}
}

// =============================================================================
// BUBBLE TEA INTEGRATION
// =============================================================================

// TickMsg is sent periodically to check session state.
type TickMsg struct {
	Time time.Time
}

// TimeoutWarningMsg indicates the session is about to idle out.
type TimeoutWarningMsg struct {
	Remaining time.Duration
}

// TimeoutMsg indicates the session has idled out.
type TimeoutMsg struct{}

// TickCmd returns a command that ticks every second.
func TickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg{Time: t}
	})
}

// HandleTick processes a tick and returns the resulting messages.
func (m *Manager) HandleTick() tea.Cmd {
	st := m.evaluate()

	var cmds []tea.Cmd
	if st.warn {
		cmds = append(cmds, func() tea.Msg {
			return TimeoutWarningMsg{Remaining: st.remaining}
		})
	}
	if st.expired {
		cmds = append(cmds, func() tea.Msg {
			return TimeoutMsg{}
		})
		return tea.Batch(cmds...)
	}

	cmds = append(cmds, TickCmd())
	return tea.Batch(cmds...)
}

// =============================================================================
// SESSION STATUS
// =============================================================================

// Status is a snapshot of the session.
type Status struct {
	SessionID     string
	User          string
	StartTime     time.Time
	IdleTime      time.Duration
	RemainingTime time.Duration
	TokenExpires  time.Time
	Authenticated bool
	IsExpired     bool
}

// GetStatus returns the current session status.
func (m *Manager) GetStatus() Status {
	exp, _ := m.ExpiresAt()

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	idle := now.Sub(m.lastActivity)
	remaining := time.Duration(-1)
	if m.timeout > 0 {
		remaining = max(m.timeout-idle, 0)
	}
	st := Status{
		SessionID:     m.sessionID,
		StartTime:     m.startTime,
		IdleTime:      idle,
		RemainingTime: remaining,
		TokenExpires:  exp,
		IsExpired:     m.expiredLocked(),
	}
	st.Authenticated = m.token != "" && !st.IsExpired
	if m.user != nil {
		st.User = m.user.Email
	}
	return st
}

// FormatDuration returns a human-readable duration string.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		return "never"
	}
	if d < time.Minute {
		return util.IntToString(int(d.Seconds())) + "s"
	}
	if d >= time.Hour {
		h := int(d.Hours())
		mins := int(d.Minutes()) % 60
		if mins == 0 {
			return util.IntToString(h) + "h"
		}
		return util.IntToString(h) + "h " + util.IntToString(mins) + "m"
	}
	mins := int(d.Minutes())
	secs := int(d.Seconds()) % 60
	if secs == 0 {
		return util.IntToString(mins) + "m"
	}
	return util.IntToString(mins) + "m " + util.IntToString(secs) + "s"
}
