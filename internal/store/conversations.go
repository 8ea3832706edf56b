// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/model"
	"github.com/jeranaias/chimera-cli/internal/storage"
)

// DefaultConversationTitle is used when Create is given no title.
const DefaultConversationTitle = "New Conversation"

// =============================================================================
// CONVERSATION STORE
// =============================================================================

// ConversationStore holds conversations and runs the optimistic message
// pipeline.
//
// A single sending flag covers the whole store. While it is raised, Refresh is
// a no-op and a second Send fails with ErrSendInProgress. The sync epoch
// increases with every send so a refresh that started before the send cannot
// commit its older snapshot afterwards.
type ConversationStore struct {
	notifier

	api ConversationAPI
	log *logrus.Entry
	kv  storage.Store

	mu            sync.Mutex
	conversations []model.Conversation
	activeID      string
	autoStore     bool
	loading       bool
	sending       bool
	epoch         uint64
}

// NewConversationStore creates an empty store.
func NewConversationStore(client ConversationAPI, opts ...Option) *ConversationStore {
	o := buildOptions("conversations", opts)
	s := &ConversationStore{
		api:       client,
		log:       o.log,
		kv:        o.kv,
		autoStore: true,
	}
	if s.kv != nil {
		if v, err := storage.GetString(s.kv, storage.KeyAutoStore); err == nil && v != "" {
			s.autoStore = v == "true"
		}
	}
	return s
}

// indexLocked returns the position of id or -1. Caller holds mu.
func (s *ConversationStore) indexLocked(id string) int {
	for i := range s.conversations {
		if s.conversations[i].ID == id {
			return i
		}
	}
	return -1
}

// =============================================================================
// LOAD AND CRUD
// =============================================================================

// Load replaces the conversation list with the workspace's conversations.
// Messages and injected memories already held for a conversation are kept,
// since the list endpoint omits them.
func (s *ConversationStore) Load(ctx context.Context, workspaceID string) error {
	s.mu.Lock()
	s.loading = true
	s.mu.Unlock()

	list, err := s.api.ListConversations(ctx, workspaceID)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.mu.Unlock()
		s.log.WithError(err).WithField("workspace", workspaceID).Warn("failed to load conversations")
		s.changed()
		return err
	}

	next := make([]model.Conversation, 0, len(list))
	for _, conv := range list {
		if i := s.indexLocked(conv.ID); i >= 0 {
			existing := s.conversations[i]
			conv.Messages = existing.Messages
			if existing.InjectedMemories != nil {
				conv.InjectedMemories = existing.InjectedMemories
			}
		}
		next = append(next, conv)
	}
	s.conversations = next
	s.mu.Unlock()

	s.log.WithField("count", len(next)).Debug("conversations loaded")
	s.changed()
	return nil
}

// Create creates a conversation and makes it active.
func (s *ConversationStore) Create(ctx context.Context, workspaceID, modelID, title string) (*model.Conversation, error) {
	if strings.TrimSpace(title) == "" {
		title = DefaultConversationTitle
	}
	conv, err := s.api.CreateConversation(ctx, workspaceID, title, modelID)
	if err != nil {
		s.log.WithError(err).Warn("failed to create conversation")
		return nil, err
	}

	s.mu.Lock()
	s.conversations = append(s.conversations, conv.Clone())
	s.activeID = conv.ID
	s.mu.Unlock()

	s.changed()
	return conv, nil
}

// Update applies upd and merges the server's record, keeping local messages.
func (s *ConversationStore) Update(ctx context.Context, id string, upd api.ConversationUpdate) (*model.Conversation, error) {
	conv, err := s.api.UpdateConversation(ctx, id, upd)
	if err != nil {
		s.log.WithError(err).WithField("conversation", id).Warn("failed to update conversation")
		return nil, err
	}

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		merged := conv.Clone()
		merged.Messages = s.conversations[i].Messages
		if merged.InjectedMemories == nil {
			merged.InjectedMemories = s.conversations[i].InjectedMemories
		}
		s.conversations[i] = merged
	}
	s.mu.Unlock()

	s.changed()
	return conv, nil
}

// Delete deletes a conversation. The active conversation is cleared if it was deleted.
func (s *ConversationStore) Delete(ctx context.Context, id string) error {
	if err := s.api.DeleteConversation(ctx, id); err != nil {
		s.log.WithError(err).WithField("conversation", id).Warn("failed to delete conversation")
		return err
	}

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.conversations = append(s.conversations[:i], s.conversations[i+1:]...)
	}
	if s.activeID == id {
		s.activeID = ""
	}
	s.mu.Unlock()

	s.changed()
	return nil
}

// SetActive selects a conversation. It is fetched when it is not held yet or
// has no messages. An empty id clears the selection.
func (s *ConversationStore) SetActive(ctx context.Context, id string) error {
	s.mu.Lock()
	s.activeID = id
	needsLoad := true
	if i := s.indexLocked(id); i >= 0 {
		needsLoad = len(s.conversations[i].Messages) == 0
	}
	s.mu.Unlock()
	s.changed()

	if id != "" && needsLoad {
		return s.Refresh(ctx, id)
	}
	return nil
}

// SetAutoStore records whether closed conversations should be summarized
// into memories.
func (s *ConversationStore) SetAutoStore(enabled bool) {
	s.mu.Lock()
	s.autoStore = enabled
	s.mu.Unlock()

	if s.kv != nil {
		v := "false"
		if enabled {
			v = "true"
		}
		if err := s.kv.Put(storage.KeyAutoStore, []byte(v)); err != nil {
			s.log.WithError(err).Warn("failed to persist auto-store preference")
		}
	}
	s.changed()
}

// =============================================================================
// SYNC
// =============================================================================

// Refresh fetches the conversation and reconciles its messages, injected
// memories and status with the local copy.
//
// Refresh does nothing while a send is in flight. The flag is checked before
// the request and again before the commit, and the commit is also dropped when
// a send started during the round trip. When the fetched list has the same
// length and final message as the confirmed local list, nothing changes.
func (s *ConversationStore) Refresh(ctx context.Context, id string) error {
	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return nil
	}
	epoch := s.epoch
	s.mu.Unlock()

	conv, err := s.api.GetConversation(ctx, id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.sending || s.epoch != epoch {
		s.mu.Unlock()
		s.log.WithField("conversation", id).Debug("discarding refresh raced by a send")
		return nil
	}

	i := s.indexLocked(id)
	if i < 0 {
		s.conversations = append(s.conversations, conv.Clone())
		s.mu.Unlock()
		s.changed()
		return nil
	}

	local := &s.conversations[i]
	if !messagesChanged(local.ConfirmedMessages(), conv.Messages) {
		s.mu.Unlock()
		return nil
	}

	fetched := conv.Clone()
	local.Messages = fetched.Messages
	local.InjectedMemories = fetched.InjectedMemories
	local.Status = fetched.Status
	local.MessageCount = len(fetched.Messages)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"conversation": id, "messages": len(fetched.Messages)}).Debug("conversation refreshed")
	s.changed()
	return nil
}

// messagesChanged compares by count and final message ID.
func messagesChanged(local, fetched []model.Message) bool {
	if len(local) != len(fetched) {
		return true
	}
	if len(local) == 0 {
		return false
	}
	return local[len(local)-1].ID != fetched[len(fetched)-1].ID
}

// =============================================================================
// MESSAGE PIPELINE
// =============================================================================

// Send posts content to the conversation.
//
// The user message, and a typing placeholder when a reply is requested, are
// appended immediately with pending IDs. On success every pending message is
// replaced by the server's messages in order. On failure the pending messages
// are removed and the error is returned. A completed conversation is reopened
// first; if reopening fails the send still goes ahead.
func (s *ConversationStore) Send(ctx context.Context, conversationID, content string, getAIResponse bool) (*model.SendResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	i := s.indexLocked(conversationID)
	if i < 0 {
		s.mu.Unlock()
		return nil, ErrConversationNotFound
	}
	if s.sending {
		s.mu.Unlock()
		return nil, ErrSendInProgress
	}
	s.sending = true
	s.epoch++
	epoch := s.epoch

	conv := &s.conversations[i]
	conv.Messages = append(conv.Messages, model.NewPendingUserMessage(conversationID, content))
	if getAIResponse {
		conv.Messages = append(conv.Messages, model.NewTypingPlaceholder(conversationID))
	}
	conv.UpdatedAt = time.Now()
	completed := conv.Status == model.StatusCompleted
	s.mu.Unlock()
	s.changed()

	if completed {
		if err := s.reopenForSend(ctx, conversationID); err != nil {
			s.log.WithError(err).WithField("conversation", conversationID).Warn("failed to reopen conversation before send")
		}
	}

	res, err := s.api.SendMessage(ctx, conversationID, content, getAIResponse)

	// A Reset during the round trip owns the flag and the message lists now;
	// a send started after it may already be in flight.
	s.mu.Lock()
	if s.epoch != epoch {
		s.mu.Unlock()
		if err != nil {
			return nil, err
		}
		return res, nil
	}
	s.sending = false
	if i := s.indexLocked(conversationID); i >= 0 {
		conv := &s.conversations[i]
		conv.Messages = dropPending(conv.Messages)
		if err == nil {
			conv.Messages = append(conv.Messages, res.UserMessage.Clone())
			if res.AssistantMessage != nil {
				conv.Messages = append(conv.Messages, res.AssistantMessage.Clone())
			}
			conv.MessageCount = len(conv.Messages)
			conv.UpdatedAt = time.Now()
		}
	}
	s.mu.Unlock()
	s.changed()

	if err != nil {
		s.log.WithError(err).WithField("conversation", conversationID).Warn("failed to send message")
		return nil, err
	}
	return res, nil
}

func (s *ConversationStore) reopenForSend(ctx context.Context, id string) error {
	conv, err := s.api.ReopenConversation(ctx, id)
	if err != nil {
		return err
	}
	s.setStatus(id, conv, model.StatusActive)
	return nil
}

func dropPending(msgs []model.Message) []model.Message {
	out := msgs[:0:0]
	for _, m := range msgs {
		if !m.IsPending() {
			out = append(out, m)
		}
	}
	return out
}

// PinMessage marks a message as pinned.
func (s *ConversationStore) PinMessage(ctx context.Context, conversationID string, messageID model.MessageID) error {
	return s.setPinned(ctx, conversationID, messageID, true)
}

// UnpinMessage clears a message's pinned flag.
func (s *ConversationStore) UnpinMessage(ctx context.Context, conversationID string, messageID model.MessageID) error {
	return s.setPinned(ctx, conversationID, messageID, false)
}

func (s *ConversationStore) setPinned(ctx context.Context, conversationID string, messageID model.MessageID, pinned bool) error {
	if _, err := s.api.SetMessagePinned(ctx, conversationID, messageID, pinned); err != nil {
		s.log.WithError(err).WithField("message", messageID.String()).Warn("failed to update pin")
		return err
	}

	s.mu.Lock()
	if i := s.indexLocked(conversationID); i >= 0 {
		conv := &s.conversations[i]
		if j := conv.FindMessage(messageID); j >= 0 {
			conv.Messages[j].IsPinned = pinned
		}
	}
	s.mu.Unlock()

	s.changed()
	return nil
}

// DeleteMessage deletes a message.
func (s *ConversationStore) DeleteMessage(ctx context.Context, conversationID string, messageID model.MessageID) error {
	if err := s.api.DeleteMessage(ctx, conversationID, messageID); err != nil {
		s.log.WithError(err).WithField("message", messageID.String()).Warn("failed to delete message")
		return err
	}

	s.mu.Lock()
	if i := s.indexLocked(conversationID); i >= 0 {
		conv := &s.conversations[i]
		if j := conv.FindMessage(messageID); j >= 0 {
			conv.Messages = append(conv.Messages[:j], conv.Messages[j+1:]...)
			conv.MessageCount = len(conv.Messages)
		}
	}
	s.mu.Unlock()

	s.changed()
	return nil
}

// =============================================================================
// MEMORY INJECTION
// =============================================================================

// InjectMemory adds an active reference to the memory before the server call
// returns. If the call fails the reference added here is removed again.
func (s *ConversationStore) InjectMemory(ctx context.Context, conversationID, memoryID string) error {
	s.mu.Lock()
	added := false
	if i := s.indexLocked(conversationID); i >= 0 {
		conv := &s.conversations[i]
		if conv.FindInjected(memoryID) < 0 {
			conv.InjectedMemories = append(conv.InjectedMemories, model.InjectedMemory{ID: memoryID, IsActive: true})
			conv.UpdatedAt = time.Now()
			added = true
		}
	}
	s.mu.Unlock()
	if added {
		s.changed()
	}

	err := s.api.InjectMemory(ctx, conversationID, memoryID)
	if err == nil {
		return nil
	}

	s.log.WithError(err).WithField("memory", memoryID).Warn("failed to inject memory")
	if added {
		s.mu.Lock()
		if i := s.indexLocked(conversationID); i >= 0 {
			conv := &s.conversations[i]
			if j := conv.FindInjected(memoryID); j >= 0 {
				conv.InjectedMemories = append(conv.InjectedMemories[:j], conv.InjectedMemories[j+1:]...)
			}
		}
		s.mu.Unlock()
		s.changed()
	}
	return err
}

// RemoveInjectedMemory removes a memory reference from the conversation.
func (s *ConversationStore) RemoveInjectedMemory(ctx context.Context, conversationID, memoryID string) error {
	if err := s.api.RemoveInjectedMemory(ctx, conversationID, memoryID); err != nil {
		s.log.WithError(err).WithField("memory", memoryID).Warn("failed to remove injected memory")
		return err
	}

	s.mu.Lock()
	if i := s.indexLocked(conversationID); i >= 0 {
		conv := &s.conversations[i]
		if j := conv.FindInjected(memoryID); j >= 0 {
			conv.InjectedMemories = append(conv.InjectedMemories[:j], conv.InjectedMemories[j+1:]...)
			conv.UpdatedAt = time.Now()
		}
	}
	s.mu.Unlock()

	s.changed()
	return nil
}

// ToggleInjectedMemory flips a reference's active flag. Local state changes
// only to the value the server returns.
func (s *ConversationStore) ToggleInjectedMemory(ctx context.Context, conversationID, memoryID string) (bool, error) {
	res, err := s.api.ToggleInjectedMemory(ctx, conversationID, memoryID)
	if err != nil {
		s.log.WithError(err).WithField("memory", memoryID).Warn("failed to toggle injected memory")
		return false, err
	}

	s.mu.Lock()
	if i := s.indexLocked(conversationID); i >= 0 {
		conv := &s.conversations[i]
		if j := conv.FindInjected(memoryID); j >= 0 {
			conv.InjectedMemories[j].IsActive = res.IsActive
			conv.UpdatedAt = time.Now()
		}
	}
	s.mu.Unlock()

	s.changed()
	return res.IsActive, nil
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// Close completes the conversation. The server may summarize the transcript
// into a memory, which is returned; callers should reload memories.
func (s *ConversationStore) Close(ctx context.Context, id string) (*model.Memory, error) {
	res, err := s.api.CloseConversation(ctx, id)
	if err != nil {
		s.log.WithError(err).WithField("conversation", id).Warn("failed to close conversation")
		return nil, err
	}
	s.setStatus(id, &res.Conversation, model.StatusCompleted)
	return res.Memory, nil
}

// Reopen returns a completed conversation to active.
func (s *ConversationStore) Reopen(ctx context.Context, id string) error {
	conv, err := s.api.ReopenConversation(ctx, id)
	if err != nil {
		s.log.WithError(err).WithField("conversation", id).Warn("failed to reopen conversation")
		return err
	}
	s.setStatus(id, conv, model.StatusActive)
	return nil
}

// setStatus applies the server's status, or fallback when the response
// carries none.
func (s *ConversationStore) setStatus(id string, conv *model.Conversation, fallback model.ConversationStatus) {
	status := fallback
	if conv != nil && conv.Status.Valid() {
		status = conv.Status
	}

	s.mu.Lock()
	if i := s.indexLocked(id); i >= 0 {
		s.conversations[i].Status = status
	}
	s.mu.Unlock()
	s.changed()
}

// Reset clears all state. In-flight refreshes are discarded, and an in-flight
// send returns its result without touching the store.
func (s *ConversationStore) Reset() {
	s.mu.Lock()
	s.conversations = nil
	s.activeID = ""
	s.loading = false
	s.sending = false
	s.epoch++
	s.mu.Unlock()
	s.changed()
}

// =============================================================================
// SELECTORS
// =============================================================================

// Conversations returns copies of every conversation.
func (s *ConversationStore) Conversations() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Conversation, len(s.conversations))
	for i, c := range s.conversations {
		out[i] = c.Clone()
	}
	return out
}

// ByWorkspace returns the conversations of one workspace.
func (s *ConversationStore) ByWorkspace(workspaceID string) []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Conversation
	for _, c := range s.conversations {
		if c.WorkspaceID == workspaceID {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Get returns a copy of the conversation.
func (s *ConversationStore) Get(id string) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.conversations[i].Clone(), true
	}
	return model.Conversation{}, false
}

// Active returns the selected conversation.
func (s *ConversationStore) Active() (model.Conversation, bool) {
	s.mu.Lock()
	id := s.activeID
	s.mu.Unlock()
	if id == "" {
		return model.Conversation{}, false
	}
	return s.Get(id)
}

// ActiveID returns the selected conversation's ID, or "".
func (s *ConversationStore) ActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// MessageByID searches every conversation for the message.
func (s *ConversationStore) MessageByID(id model.MessageID) (model.Message, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.conversations {
		if j := s.conversations[i].FindMessage(id); j >= 0 {
			return s.conversations[i].Messages[j].Clone(), true
		}
	}
	return model.Message{}, false
}

// IsSending reports whether a send is in flight.
func (s *ConversationStore) IsSending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// IsLoading reports whether Load is in progress.
func (s *ConversationStore) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// AutoStore reports the auto-store preference.
func (s *ConversationStore) AutoStore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.autoStore
}
