// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/model"
)

var errBackend = errors.New("backend unavailable")

func msg(id string, role model.Role, content string) model.Message {
	return model.Message{
		ID:             model.ConfirmedID(id),
		ConversationID: "c1",
		Role:           role,
		Content:        content,
		Timestamp:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func twoMessageConversation() model.Conversation {
	return model.Conversation{
		ID:          "c1",
		WorkspaceID: "w1",
		Title:       "Lab notes",
		Status:      model.StatusActive,
		Messages: []model.Message{
			msg("m1", model.RoleUser, "hi"),
			msg("m2", model.RoleAssistant, "hello"),
		},
	}
}

// fakeConversationAPI serves a single mutable conversation record. Hooks run
// inside the corresponding call, before it returns.
type fakeConversationAPI struct {
	mu sync.Mutex

	server model.Conversation
	list   []model.Conversation

	getCalls  int
	sendCalls int
	reopens   int

	sendResult *model.SendResult
	sendErr    error
	reopenErr  error
	injectErr  error
	toggleTo   bool
	closeMem   *model.Memory

	onGet    func()
	onSend   func()
	onInject func()
	onToggle func()
}

func (f *fakeConversationAPI) ListConversations(ctx context.Context, workspaceID string) ([]model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Conversation(nil), f.list...), nil
}

func (f *fakeConversationAPI) CreateConversation(ctx context.Context, workspaceID, title, modelID string) (*model.Conversation, error) {
	return &model.Conversation{ID: "new", WorkspaceID: workspaceID, Title: title, ModelID: modelID, Status: model.StatusActive}, nil
}

func (f *fakeConversationAPI) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	f.mu.Lock()
	f.getCalls++
	snapshot := f.server.Clone()
	hook := f.onGet
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

func (f *fakeConversationAPI) UpdateConversation(ctx context.Context, id string, upd api.ConversationUpdate) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := f.server.Clone()
	c.Messages = nil
	if upd.Title != nil {
		c.Title = *upd.Title
	}
	return &c, nil
}

func (f *fakeConversationAPI) DeleteConversation(ctx context.Context, id string) error { return nil }

func (f *fakeConversationAPI) SendMessage(ctx context.Context, conversationID, content string, getAIResponse bool) (*model.SendResult, error) {
	f.mu.Lock()
	f.sendCalls++
	hook := f.onSend
	res, err := f.sendResult, f.sendErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	if res == nil {
		u := msg("u-"+content, model.RoleUser, content)
		res = &model.SendResult{UserMessage: u}
	}
	return res, nil
}

func (f *fakeConversationAPI) SetMessagePinned(ctx context.Context, conversationID string, messageID model.MessageID, pinned bool) (*model.Message, error) {
	m := msg(messageID.Value(), model.RoleUser, "")
	m.IsPinned = pinned
	return &m, nil
}

func (f *fakeConversationAPI) DeleteMessage(ctx context.Context, conversationID string, messageID model.MessageID) error {
	return nil
}

func (f *fakeConversationAPI) InjectMemory(ctx context.Context, conversationID, memoryID string) error {
	f.mu.Lock()
	hook, err := f.onInject, f.injectErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (f *fakeConversationAPI) RemoveInjectedMemory(ctx context.Context, conversationID, memoryID string) error {
	return nil
}

func (f *fakeConversationAPI) ToggleInjectedMemory(ctx context.Context, conversationID, memoryID string) (*api.ToggleResult, error) {
	f.mu.Lock()
	hook, to := f.onToggle, f.toggleTo
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	return &api.ToggleResult{MemoryID: memoryID, IsActive: to}, nil
}

func (f *fakeConversationAPI) CloseConversation(ctx context.Context, id string) (*model.CloseResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &model.CloseResult{
		Conversation: model.Conversation{ID: id, Status: model.StatusCompleted},
		Memory:       f.closeMem,
	}, nil
}

func (f *fakeConversationAPI) ReopenConversation(ctx context.Context, id string) (*model.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reopens++
	if f.reopenErr != nil {
		return nil, f.reopenErr
	}
	return &model.Conversation{ID: id, Status: model.StatusActive}, nil
}

// =============================================================================
// OTHER FAKES
// =============================================================================

type fakeWorkspaceAPI struct {
	list    []model.Workspace
	listErr error
	load    float64
}

func (f *fakeWorkspaceAPI) ListWorkspaces(ctx context.Context) ([]model.Workspace, error) {
	return append([]model.Workspace(nil), f.list...), f.listErr
}

func (f *fakeWorkspaceAPI) CreateWorkspace(ctx context.Context, name, description string) (*model.Workspace, error) {
	return &model.Workspace{ID: "w-" + name, Name: name, Description: description}, nil
}

func (f *fakeWorkspaceAPI) UpdateWorkspace(ctx context.Context, id string, upd api.WorkspaceUpdate) (*model.Workspace, error) {
	ws := model.Workspace{ID: id}
	if upd.Name != nil {
		ws.Name = *upd.Name
	}
	return &ws, nil
}

func (f *fakeWorkspaceAPI) DeleteWorkspace(ctx context.Context, id string) error { return nil }

func (f *fakeWorkspaceAPI) WorkspaceDashboard(ctx context.Context, id string) (*model.Dashboard, error) {
	return &model.Dashboard{Stats: model.WorkspaceStats{TotalMemories: 7}}, nil
}

func (f *fakeWorkspaceAPI) RecordWorkspaceLoad(ctx context.Context, id string) (float64, error) {
	return f.load, nil
}

type fakeMemoryAPI struct {
	list []model.Memory
}

func (f *fakeMemoryAPI) ListMemories(ctx context.Context, workspaceID, search, sortBy string) ([]model.Memory, error) {
	return append([]model.Memory(nil), f.list...), nil
}

func (f *fakeMemoryAPI) CreateMemory(ctx context.Context, workspaceID string, in api.MemoryInput) (*model.Memory, error) {
	return &model.Memory{ID: "new", WorkspaceID: workspaceID, Title: in.Title, Content: in.Content}, nil
}

func (f *fakeMemoryAPI) GetMemory(ctx context.Context, id string) (*model.Memory, error) {
	return &model.Memory{ID: id}, nil
}

func (f *fakeMemoryAPI) UpdateMemory(ctx context.Context, id string, in api.MemoryInput) (*model.Memory, error) {
	return &model.Memory{ID: id, Title: in.Title, Content: in.Content}, nil
}

func (f *fakeMemoryAPI) DeleteMemory(ctx context.Context, id string) error { return nil }

func (f *fakeMemoryAPI) ReEmbedMemory(ctx context.Context, id string) (*model.Memory, error) {
	return &model.Memory{ID: id, Embedding: []float64{0.1}}, nil
}

func (f *fakeMemoryAPI) SearchMemories(ctx context.Context, query, workspaceID string, topK int) ([]model.SearchHit, error) {
	return []model.SearchHit{{ID: "m1", Score: 0.9}}, nil
}

func (f *fakeMemoryAPI) ImportMemoryFromURL(ctx context.Context, workspaceID, pageURL string, summarize bool) (*model.ImportResult, error) {
	return &model.ImportResult{Memory: model.Memory{ID: "url", Title: pageURL}, SourceType: "url"}, nil
}

func (f *fakeMemoryAPI) ImportMemoryFromFile(ctx context.Context, workspaceID, filename string, r io.Reader, summarize bool) (*model.ImportResult, error) {
	data, _ := io.ReadAll(r)
	return &model.ImportResult{Memory: model.Memory{ID: "file", Title: filename, Content: string(data)}}, nil
}
