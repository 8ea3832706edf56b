// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package app wires configuration, logging, storage, the API client and the
// stores into one App. It is the only place stores are constructed.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/config"
	"github.com/jeranaias/chimera-cli/internal/logging"
	"github.com/jeranaias/chimera-cli/internal/model"
	"github.com/jeranaias/chimera-cli/internal/poller"
	"github.com/jeranaias/chimera-cli/internal/scheduler"
	"github.com/jeranaias/chimera-cli/internal/session"
	"github.com/jeranaias/chimera-cli/internal/storage"
	"github.com/jeranaias/chimera-cli/internal/store"
)

var (
	// ErrNotSignedIn is returned by commands that need a session.
	ErrNotSignedIn = errors.New("not signed in (run 'chimera login')")

	// ErrNoWorkspace is returned when no workspace is available.
	ErrNoWorkspace = errors.New("no workspace selected (run 'chimera workspaces create' or 'chimera workspaces use')")

	// ErrMissingCacheKey is returned when encryption is on without a passphrase.
	ErrMissingCacheKey = errors.New("storage.encrypt is set but no cache key is configured (set CHIMERA_CACHE_KEY)")
)

// Job names registered by StartBackground.
const (
	JobInvitations  = "invitations"
	JobTeam         = "team"
	JobLoad         = "workspace-load"
	JobTokenRefresh = "token-refresh"
)

// Options configures New.
type Options struct {
	Version string
	Verbose bool
	Stderr  io.Writer

	// HTTPClientOptions are appended to the API client options. Tests use
	// them to shorten retries.
	HTTPClientOptions []api.Option
}

// App holds every long-lived component.
type App struct {
	Config  *config.Config
	Logger  *logrus.Logger
	API     *api.Client
	KV      storage.Store
	Session *session.Manager

	Auth          *store.AuthStore
	Workspaces    *store.WorkspaceStore
	Conversations *store.ConversationStore
	Memories      *store.MemoryStore
	Integrations  *store.IntegrationStore
	Invitations   *store.InvitationStore
	Team          *store.TeamStore
	Settings      *store.SettingsStore
	Toasts        *store.ToastStore

	Scheduler *scheduler.Scheduler

	closers []io.Closer
}

// New builds an App from cfg.
func New(cfg *config.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}

	logDir, err := cfg.LogDir()
	if err != nil {
		return nil, err
	}
	logger, logCloser, err := logging.New(logging.Options{
		Level:   cfg.Log.Level,
		Dir:     logDir,
		Name:    "chimera",
		JSON:    cfg.Log.JSON,
		Verbose: opts.Verbose,
		Stderr:  opts.Stderr,
	})
	if err != nil {
		return nil, err
	}
	a.Logger = logger
	a.closers = append(a.closers, logCloser)

	kv, err := openStorage(cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.KV = kv
	a.closers = append([]io.Closer{kv}, a.closers...)

	ua := "chimera-cli"
	if opts.Version != "" {
		ua += "/" + opts.Version
	}
	apiOpts := []api.Option{
		api.WithTimeout(cfg.Timeout()),
		api.WithMaxRetries(cfg.API.MaxRetries),
		api.WithRateLimit(cfg.API.RateLimit, cfg.API.RateBurst),
		api.WithUserAgent(ua),
		api.WithLogger(a.component("api")),
	}
	a.API = api.New(cfg.API.BaseURL, append(apiOpts, opts.HTTPClientOptions...)...)

	a.Session = session.NewManager(kv, session.Config{
		IdleTimeout:   cfg.IdleTimeout(),
		WarningBefore: 2 * time.Minute,
	})

	a.Auth = store.NewAuthStore(a.API, a.Session, store.WithLogger(a.component("auth")))
	a.Workspaces = store.NewWorkspaceStore(a.API, store.WithLogger(a.component("workspaces")), store.WithKV(kv))
	a.Conversations = store.NewConversationStore(a.API, store.WithLogger(a.component("conversations")), store.WithKV(kv))
	a.Memories = store.NewMemoryStore(a.API, store.WithLogger(a.component("memories")))
	a.Integrations = store.NewIntegrationStore(a.API, store.WithLogger(a.component("integrations")))
	a.Invitations = store.NewInvitationStore(a.API, store.WithLogger(a.component("invitations")))
	a.Team = store.NewTeamStore(a.API, store.WithLogger(a.component("team")))
	a.Settings = store.NewSettingsStore(a.API, store.WithLogger(a.component("settings")))
	a.Toasts = store.NewToastStore(store.DefaultToastDuration)

	a.Auth.OnLogout(a.Workspaces, a.Conversations, a.Memories, a.Integrations,
		a.Invitations, a.Team, a.Settings, a.Toasts)

	a.Scheduler = scheduler.New(a.component("scheduler"))
	return a, nil
}

func (a *App) component(name string) *logrus.Entry {
	return logging.Component(a.Logger, name)
}

// openStorage opens the configured backend, sealed when encryption is on.
func openStorage(cfg *config.Config) (storage.Store, error) {
	path, err := cfg.StoragePath()
	if err != nil {
		return nil, err
	}
	kv, err := storage.Open(cfg.Storage.Driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage at %s: %w", cfg.Storage.Driver, path, err)
	}
	if !cfg.Storage.Encrypt {
		return kv, nil
	}
	if cfg.Storage.CacheKey == "" {
		kv.Close()
		return nil, ErrMissingCacheKey
	}
	sealed, err := storage.Sealed(kv, cfg.Storage.CacheKey)
	if err != nil {
		kv.Close()
		return nil, err
	}
	return sealed, nil
}

// Close stops background work and releases storage and log files.
func (a *App) Close() error {
	if a.Scheduler != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.Scheduler.Stop(ctx)
		cancel()
	}
	if a.Toasts != nil {
		a.Toasts.Reset()
	}
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// =============================================================================
// SESSION
// =============================================================================

// Restore loads a persisted session and refreshes the token when it is close
// to expiry. It reports whether the user is signed in.
func (a *App) Restore(ctx context.Context) (bool, error) {
	ok, err := a.Auth.Restore()
	if err != nil || !ok {
		return false, err
	}
	if _, err := a.Auth.RefreshIfNeeded(ctx, a.Config.RefreshSkew()); err != nil {
		a.component("app").WithError(err).Warn("could not refresh access token")
	}
	return a.Auth.IsAuthenticated(), nil
}

// RequireAuth restores the session or returns ErrNotSignedIn.
func (a *App) RequireAuth(ctx context.Context) error {
	ok, err := a.Restore(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotSignedIn
	}
	return nil
}

// =============================================================================
// WORKSPACES
// =============================================================================

// ResolveWorkspace loads workspaces and returns the workspace to act on.
// A non-empty override is matched by ID or name and becomes active.
func (a *App) ResolveWorkspace(ctx context.Context, override string) (model.Workspace, error) {
	if err := a.Workspaces.Load(ctx); err != nil {
		return model.Workspace{}, err
	}
	if override != "" {
		for _, ws := range a.Workspaces.Workspaces() {
			if ws.ID == override || ws.Name == override {
				if err := a.Workspaces.SetActive(ws.ID); err != nil {
					return model.Workspace{}, err
				}
				return ws, nil
			}
		}
		return model.Workspace{}, fmt.Errorf("%w: %s", store.ErrWorkspaceNotFound, override)
	}
	ws, ok := a.Workspaces.Active()
	if !ok {
		return model.Workspace{}, ErrNoWorkspace
	}
	return ws, nil
}

// =============================================================================
// BACKGROUND SYNC
// =============================================================================

// NewPoller returns a poller for an open conversation. It runs while the
// session is authenticated and the conversation is active.
func (a *App) NewPoller() *poller.Poller {
	return poller.New(a.Conversations,
		poller.WithInterval(a.Config.PollInterval()),
		poller.WithLogger(a.component("poller")),
		poller.WithCondition(func(id string) bool {
			if !a.Auth.IsAuthenticated() {
				return false
			}
			conv, ok := a.Conversations.Get(id)
			return ok && conv.IsActive()
		}),
	)
}

// StartBackground registers the periodic sync jobs and starts the scheduler.
func (a *App) StartBackground() error {
	cfg := a.Config.Sync
	jobs := []struct {
		name     string
		interval time.Duration
		job      scheduler.Job
	}{
		{JobInvitations, time.Duration(cfg.InvitationIntervalSecs) * time.Second, a.syncInvitations},
		{JobTeam, time.Duration(cfg.TeamIntervalSecs) * time.Second, a.syncTeam},
		{JobLoad, time.Duration(cfg.LoadIntervalSecs) * time.Second, a.recordLoad},
		{JobTokenRefresh, 30 * time.Second, a.refreshToken},
	}
	for _, j := range jobs {
		if j.interval <= 0 {
			continue
		}
		if err := a.Scheduler.Every(j.name, j.interval, j.job); err != nil {
			return err
		}
	}
	a.Scheduler.Start()
	return nil
}

func (a *App) syncInvitations(ctx context.Context) error {
	if !a.Auth.IsAuthenticated() {
		return nil
	}
	before := a.Invitations.PendingCount()
	if err := a.Invitations.Load(ctx); err != nil {
		return err
	}
	if after := a.Invitations.PendingCount(); after > before {
		a.Toasts.Info("New invitation", fmt.Sprintf("You have %d pending workspace invitation(s)", after))
	}
	return nil
}

func (a *App) syncTeam(ctx context.Context) error {
	id := a.Workspaces.ActiveID()
	if id == "" || !a.Auth.IsAuthenticated() {
		return nil
	}
	return a.Team.Load(ctx, id)
}

func (a *App) recordLoad(ctx context.Context) error {
	id := a.Workspaces.ActiveID()
	if id == "" || !a.Auth.IsAuthenticated() {
		return nil
	}
	_, err := a.Workspaces.RecordLoad(ctx, id)
	return err
}

func (a *App) refreshToken(ctx context.Context) error {
	if !a.Auth.IsAuthenticated() {
		return nil
	}
	_, err := a.Auth.RefreshIfNeeded(ctx, a.Config.RefreshSkew())
	return err
}
