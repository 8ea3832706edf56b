// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/logging"
	"github.com/jeranaias/chimera-cli/internal/model"
	"github.com/jeranaias/chimera-cli/internal/storage"
)

var (
	// ErrEmptyMessage is returned by Send for blank content.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrConversationNotFound is returned for a conversation the store does not hold.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrSendInProgress is returned by Send while another send is in flight.
	ErrSendInProgress = errors.New("a message is already being sent")

	// ErrWorkspaceNotFound is returned when selecting an unknown workspace.
	ErrWorkspaceNotFound = errors.New("workspace not found")

	// ErrMemoryNotFound is returned when selecting an unknown memory.
	ErrMemoryNotFound = errors.New("memory not found")
)

// Resetter is implemented by every store. Logout resets them all.
type Resetter interface {
	Reset()
}

// =============================================================================
// API DEPENDENCIES
// =============================================================================

// ConversationAPI is the slice of the API client the conversation store needs.
type ConversationAPI interface {
	ListConversations(ctx context.Context, workspaceID string) ([]model.Conversation, error)
	CreateConversation(ctx context.Context, workspaceID, title, modelID string) (*model.Conversation, error)
	GetConversation(ctx context.Context, id string) (*model.Conversation, error)
	UpdateConversation(ctx context.Context, id string, upd api.ConversationUpdate) (*model.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	SendMessage(ctx context.Context, conversationID, content string, getAIResponse bool) (*model.SendResult, error)
	SetMessagePinned(ctx context.Context, conversationID string, messageID model.MessageID, pinned bool) (*model.Message, error)
	DeleteMessage(ctx context.Context, conversationID string, messageID model.MessageID) error
	InjectMemory(ctx context.Context, conversationID, memoryID string) error
	RemoveInjectedMemory(ctx context.Context, conversationID, memoryID string) error
	ToggleInjectedMemory(ctx context.Context, conversationID, memoryID string) (*api.ToggleResult, error)
	CloseConversation(ctx context.Context, id string) (*model.CloseResult, error)
	ReopenConversation(ctx context.Context, id string) (*model.Conversation, error)
}

// WorkspaceAPI is the slice of the API client the workspace store needs.
type WorkspaceAPI interface {
	ListWorkspaces(ctx context.Context) ([]model.Workspace, error)
	CreateWorkspace(ctx context.Context, name, description string) (*model.Workspace, error)
	UpdateWorkspace(ctx context.Context, id string, upd api.WorkspaceUpdate) (*model.Workspace, error)
	DeleteWorkspace(ctx context.Context, id string) error
	WorkspaceDashboard(ctx context.Context, id string) (*model.Dashboard, error)
	RecordWorkspaceLoad(ctx context.Context, id string) (float64, error)
}

// MemoryAPI is the slice of the API client the memory store needs.
type MemoryAPI interface {
	ListMemories(ctx context.Context, workspaceID, search, sortBy string) ([]model.Memory, error)
	CreateMemory(ctx context.Context, workspaceID string, in api.MemoryInput) (*model.Memory, error)
	GetMemory(ctx context.Context, id string) (*model.Memory, error)
	UpdateMemory(ctx context.Context, id string, in api.MemoryInput) (*model.Memory, error)
	DeleteMemory(ctx context.Context, id string) error
	ReEmbedMemory(ctx context.Context, id string) (*model.Memory, error)
	SearchMemories(ctx context.Context, query, workspaceID string, topK int) ([]model.SearchHit, error)
	ImportMemoryFromURL(ctx context.Context, workspaceID, pageURL string, summarize bool) (*model.ImportResult, error)
	ImportMemoryFromFile(ctx context.Context, workspaceID, filename string, r io.Reader, summarize bool) (*model.ImportResult, error)
}

// IntegrationAPI is the slice of the API client the integration store needs.
type IntegrationAPI interface {
	ListIntegrations(ctx context.Context) ([]model.Integration, error)
	CreateIntegration(ctx context.Context, provider model.Provider, apiKey string) (*model.Integration, error)
	UpdateIntegration(ctx context.Context, id, apiKey string) (*model.Integration, error)
	DeleteIntegration(ctx context.Context, id string) error
	TestIntegration(ctx context.Context, id string) (*api.TestResult, error)
	AvailableModels(ctx context.Context) ([]model.AvailableModel, error)
}

// InvitationAPI is the slice of the API client the invitation store needs.
type InvitationAPI interface {
	ListInvitations(ctx context.Context) ([]model.Invitation, error)
	AcceptInvitation(ctx context.Context, id string) (*api.JoinedWorkspace, error)
	DeclineInvitation(ctx context.Context, id string) error
}

// TeamAPI is the slice of the API client the team store needs.
type TeamAPI interface {
	ListTeam(ctx context.Context, workspaceID string) ([]model.TeamMember, error)
	InviteMember(ctx context.Context, workspaceID, email string) error
	UpdateMemberRole(ctx context.Context, workspaceID, userID string, role model.MemberRole) error
	UpdateMemberStatus(ctx context.Context, workspaceID, userID string, status model.MemberStatus) error
	RemoveMember(ctx context.Context, workspaceID, userID string) error
}

// SettingsAPI is the slice of the API client the settings store needs.
type SettingsAPI interface {
	GetSettings(ctx context.Context) (*model.Settings, error)
	UpdateProfile(ctx context.Context, upd api.ProfileUpdate) (*model.Settings, error)
	UpdateMemoryRetention(ctx context.Context, upd api.RetentionUpdate) (*model.Settings, error)
	CleanupInfo(ctx context.Context) (*model.CleanupInfo, error)
	TriggerCleanup(ctx context.Context) (*model.CleanupResult, error)
	ExportData(ctx context.Context, w io.Writer) (int64, error)
	DeleteAccount(ctx context.Context) error
}

// AuthAPI is the slice of the API client the auth store needs.
type AuthAPI interface {
	Register(ctx context.Context, name, email, password string) (*model.AuthResult, error)
	Login(ctx context.Context, email, password string) (*model.AuthResult, error)
	RefreshToken(ctx context.Context, refresh string) (string, error)
	Logout(ctx context.Context) error
	SetToken(token string)
}

// =============================================================================
// OPTIONS
// =============================================================================

// Option configures a store.
type Option func(*options)

type options struct {
	log *logrus.Entry
	kv  storage.Store
}

// WithLogger sets the log entry a store writes to.
func WithLogger(log *logrus.Entry) Option {
	return func(o *options) { o.log = log }
}

// WithKV persists small preferences (active workspace, auto-store) in kv.
func WithKV(kv storage.Store) Option {
	return func(o *options) { o.kv = kv }
}

func buildOptions(component string, opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logging.Component(logging.Discard(), component)
	}
	return o
}

// =============================================================================
// CHANGE NOTIFICATION
// =============================================================================

// notifier is embedded in every store.
type notifier struct {
	subMu   sync.Mutex
	subs    map[uint64]func()
	nextSub uint64
	rev     atomic.Uint64
}

// Subscribe registers fn to run after every state change. The returned
// function removes the subscription.
func (n *notifier) Subscribe(fn func()) (unsubscribe func()) {
	n.subMu.Lock()
	defer n.subMu.Unlock()
	if n.subs == nil {
		n.subs = make(map[uint64]func())
	}
	id := n.nextSub
	n.nextSub++
	n.subs[id] = fn
	return func() {
		n.subMu.Lock()
		delete(n.subs, id)
		n.subMu.Unlock()
	}
}

// Revision increases by one for every state change.
func (n *notifier) Revision() uint64 {
	return n.rev.Load()
}

// changed bumps the revision and runs subscribers. It must be called without
// the store's state lock held.
func (n *notifier) changed() {
	n.rev.Add(1)
	n.subMu.Lock()
	fns := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.subMu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
