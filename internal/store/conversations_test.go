// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/chimera-cli/internal/model"
)

// newLoadedStore returns a store holding the two-message conversation c1.
func newLoadedStore(t *testing.T) (*ConversationStore, *fakeConversationAPI) {
	t.Helper()
	fake := &fakeConversationAPI{server: twoMessageConversation()}
	s := NewConversationStore(fake)
	require.NoError(t, s.Refresh(context.Background(), "c1"))
	conv, ok := s.Get("c1")
	require.True(t, ok)
	require.Len(t, conv.Messages, 2)
	return s, fake
}

func messageIDs(conv model.Conversation) []string {
	ids := make([]string, len(conv.Messages))
	for i, m := range conv.Messages {
		ids[i] = m.ID.String()
	}
	return ids
}

// =============================================================================
// SEND
// =============================================================================

func TestSend_SuccessReplacesPlaceholders(t *testing.T) {
	s, fake := newLoadedStore(t)
	m3 := msg("m3", model.RoleUser, "hello")
	m4 := msg("m4", model.RoleAssistant, "hi there")
	fake.sendResult = &model.SendResult{UserMessage: m3, AssistantMessage: &m4}

	started := make(chan struct{})
	release := make(chan struct{})
	fake.onSend = func() {
		close(started)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "c1", "hello", true)
		done <- err
	}()

	<-started
	conv, _ := s.Get("c1")
	require.Len(t, conv.Messages, 4)
	require.True(t, s.IsSending())

	user, typing := conv.Messages[2], conv.Messages[3]
	require.True(t, user.IsPending())
	require.True(t, strings.HasPrefix(user.ID.String(), model.PendingPrefix))
	require.Equal(t, model.RoleUser, user.Role)
	require.Equal(t, "hello", user.Content)
	require.True(t, typing.IsPending())
	require.True(t, typing.IsTyping())
	require.Equal(t, model.RoleAssistant, typing.Role)
	require.Equal(t, model.TypingContent, typing.Content)

	close(release)
	require.NoError(t, <-done)

	conv, _ = s.Get("c1")
	require.Equal(t, []string{"m1", "m2", "m3", "m4"}, messageIDs(conv))
	require.False(t, conv.HasPending())
	require.False(t, s.IsSending())
}

func TestSend_FailureRestoresMessages(t *testing.T) {
	s, fake := newLoadedStore(t)
	before, _ := s.Get("c1")
	fake.sendErr = errBackend

	_, err := s.Send(context.Background(), "c1", "hello", true)
	require.ErrorIs(t, err, errBackend)

	after, _ := s.Get("c1")
	require.Equal(t, before.Messages, after.Messages)
	require.False(t, s.IsSending())
}

func TestSend_WithoutReplyAddsOnlyUserPlaceholder(t *testing.T) {
	s, fake := newLoadedStore(t)

	var during model.Conversation
	fake.onSend = func() { during, _ = s.Get("c1") }

	res, err := s.Send(context.Background(), "c1", "note to self", false)
	require.NoError(t, err)
	require.Nil(t, res.AssistantMessage)

	require.Len(t, during.Messages, 3)
	require.True(t, during.Messages[2].IsPending())
	require.False(t, during.Messages[2].IsTyping())

	conv, _ := s.Get("c1")
	require.Len(t, conv.Messages, 3)
	require.False(t, conv.HasPending())
}

func TestSend_RejectsBadInput(t *testing.T) {
	s, fake := newLoadedStore(t)
	rev := s.Revision()

	_, err := s.Send(context.Background(), "c1", "   \n\t", true)
	require.ErrorIs(t, err, ErrEmptyMessage)

	_, err = s.Send(context.Background(), "missing", "hello", true)
	require.ErrorIs(t, err, ErrConversationNotFound)

	require.Equal(t, rev, s.Revision())
	require.Zero(t, fake.sendCalls)
}

func TestSend_TrimsContent(t *testing.T) {
	s, _ := newLoadedStore(t)
	res, err := s.Send(context.Background(), "c1", "  hello  ", false)
	require.NoError(t, err)
	require.Equal(t, "hello", res.UserMessage.Content)
}

func TestSend_SecondSendWhileInFlight(t *testing.T) {
	s, fake := newLoadedStore(t)
	started := make(chan struct{})
	release := make(chan struct{})
	fake.onSend = func() {
		close(started)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "c1", "first", true)
		done <- err
	}()
	<-started

	fake.mu.Lock()
	fake.onSend = nil
	fake.mu.Unlock()

	_, err := s.Send(context.Background(), "c1", "second", true)
	require.ErrorIs(t, err, ErrSendInProgress)

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, 1, fake.sendCalls)
}

func TestSend_ReopensCompletedConversation(t *testing.T) {
	s, fake := newLoadedStore(t)
	_, err := s.Close(context.Background(), "c1")
	require.NoError(t, err)

	_, err = s.Send(context.Background(), "c1", "back again", false)
	require.NoError(t, err)
	require.Equal(t, 1, fake.reopens)

	conv, _ := s.Get("c1")
	require.Equal(t, model.StatusActive, conv.Status)
}

func TestSend_ProceedsWhenReopenFails(t *testing.T) {
	s, fake := newLoadedStore(t)
	_, err := s.Close(context.Background(), "c1")
	require.NoError(t, err)
	fake.reopenErr = errBackend

	_, err = s.Send(context.Background(), "c1", "back again", false)
	require.NoError(t, err)
	require.Equal(t, 1, fake.reopens)
	require.Equal(t, 1, fake.sendCalls)

	conv, _ := s.Get("c1")
	require.Equal(t, model.StatusCompleted, conv.Status)
}

func TestSend_CancelledContextRollsBack(t *testing.T) {
	s, fake := newLoadedStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	fake.onSend = cancel
	fake.sendErr = context.Canceled

	_, err := s.Send(ctx, "c1", "hello", true)
	require.ErrorIs(t, err, context.Canceled)

	conv, _ := s.Get("c1")
	require.Len(t, conv.Messages, 2)
}

// =============================================================================
// REFRESH
// =============================================================================

func TestRefresh_NoOpWhileSending(t *testing.T) {
	s, fake := newLoadedStore(t)
	started := make(chan struct{})
	release := make(chan struct{})
	fake.onSend = func() {
		close(started)
		<-release
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "c1", "hello", true)
		done <- err
	}()
	<-started

	fake.mu.Lock()
	fake.server.Messages = append(fake.server.Messages, msg("x9", model.RoleUser, "from another viewer"))
	calls := fake.getCalls
	fake.mu.Unlock()

	before, _ := s.Get("c1")
	rev := s.Revision()
	require.NoError(t, s.Refresh(context.Background(), "c1"))
	after, _ := s.Get("c1")

	require.Equal(t, before.Messages, after.Messages)
	require.Equal(t, rev, s.Revision())
	require.Equal(t, calls, fake.getCalls, "no request while sending")

	close(release)
	require.NoError(t, <-done)
}

func TestRefresh_DiscardedWhenSendRacesRoundTrip(t *testing.T) {
	s, fake := newLoadedStore(t)

	// The server snapshot is taken before the send lands, so it is stale
	// by the time the refresh would commit.
	fake.server.Messages = append(fake.server.Messages, msg("x9", model.RoleUser, "other viewer"))
	fake.onGet = func() {
		fake.mu.Lock()
		fake.onGet = nil
		fake.mu.Unlock()
		_, err := s.Send(context.Background(), "c1", "mine", false)
		require.NoError(t, err)
	}

	require.NoError(t, s.Refresh(context.Background(), "c1"))

	conv, _ := s.Get("c1")
	require.Equal(t, []string{"m1", "m2", "u-mine"}, messageIDs(conv))
}

func TestRefresh_UnchangedKeepsRevision(t *testing.T) {
	s, _ := newLoadedStore(t)
	rev := s.Revision()

	var notified int
	unsubscribe := s.Subscribe(func() { notified++ })
	defer unsubscribe()

	require.NoError(t, s.Refresh(context.Background(), "c1"))
	require.Equal(t, rev, s.Revision())
	require.Zero(t, notified)
}

func TestRefresh_ReplacesChangedMessages(t *testing.T) {
	s, fake := newLoadedStore(t)
	fake.server.Messages = append(fake.server.Messages, msg("m3", model.RoleUser, "new"))
	fake.server.InjectedMemories = []model.InjectedMemory{{ID: "mem1", IsActive: true}}
	rev := s.Revision()

	require.NoError(t, s.Refresh(context.Background(), "c1"))

	conv, _ := s.Get("c1")
	require.Equal(t, []string{"m1", "m2", "m3"}, messageIDs(conv))
	require.Equal(t, fake.server.InjectedMemories, conv.InjectedMemories)
	require.Greater(t, s.Revision(), rev)
}

func TestRefresh_SameCountDifferentTail(t *testing.T) {
	s, fake := newLoadedStore(t)
	fake.server.Messages[1] = msg("m2b", model.RoleAssistant, "edited")

	require.NoError(t, s.Refresh(context.Background(), "c1"))
	conv, _ := s.Get("c1")
	require.Equal(t, []string{"m1", "m2b"}, messageIDs(conv))
}

func TestRefresh_ErrorLeavesState(t *testing.T) {
	s, fake := newLoadedStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fake.server.Messages = nil

	require.ErrorIs(t, s.Refresh(ctx, "c1"), context.Canceled)
	conv, _ := s.Get("c1")
	require.Len(t, conv.Messages, 2)
}

// =============================================================================
// LOAD AND CRUD
// =============================================================================

func TestLoad_KeepsFetchedMessages(t *testing.T) {
	s, fake := newLoadedStore(t)
	fake.list = []model.Conversation{
		{ID: "c1", WorkspaceID: "w1", Title: "Renamed", Status: model.StatusActive, MessageCount: 2},
		{ID: "c2", WorkspaceID: "w1", Title: "Other", Status: model.StatusActive},
	}

	require.NoError(t, s.Load(context.Background(), "w1"))
	require.False(t, s.IsLoading())

	c1, ok := s.Get("c1")
	require.True(t, ok)
	require.Equal(t, "Renamed", c1.Title)
	require.Len(t, c1.Messages, 2)

	c2, ok := s.Get("c2")
	require.True(t, ok)
	require.Empty(t, c2.Messages)
	require.Len(t, s.ByWorkspace("w1"), 2)
}

func TestCreate_ActivatesWithDefaultTitle(t *testing.T) {
	fake := &fakeConversationAPI{}
	s := NewConversationStore(fake)

	conv, err := s.Create(context.Background(), "w1", "gpt-4o", "")
	require.NoError(t, err)
	require.Equal(t, DefaultConversationTitle, conv.Title)
	require.Equal(t, "new", s.ActiveID())

	active, ok := s.Active()
	require.True(t, ok)
	require.Equal(t, "gpt-4o", active.ModelID)
}

func TestDelete_ClearsActive(t *testing.T) {
	s, _ := newLoadedStore(t)
	require.NoError(t, s.SetActive(context.Background(), "c1"))
	require.NoError(t, s.Delete(context.Background(), "c1"))

	_, ok := s.Get("c1")
	require.False(t, ok)
	require.Empty(t, s.ActiveID())
}

func TestSetActive_LoadsMessagesWhenEmpty(t *testing.T) {
	fake := &fakeConversationAPI{
		server: twoMessageConversation(),
		list:   []model.Conversation{{ID: "c1", WorkspaceID: "w1", Status: model.StatusActive}},
	}
	s := NewConversationStore(fake)
	require.NoError(t, s.Load(context.Background(), "w1"))

	require.NoError(t, s.SetActive(context.Background(), "c1"))
	conv, _ := s.Active()
	require.Len(t, conv.Messages, 2)
	require.Equal(t, 1, fake.getCalls)

	require.NoError(t, s.SetActive(context.Background(), "c1"))
	require.Equal(t, 1, fake.getCalls)
}

func TestPinAndDeleteMessage(t *testing.T) {
	s, _ := newLoadedStore(t)
	ctx := context.Background()
	id := model.ConfirmedID("m1")

	require.NoError(t, s.PinMessage(ctx, "c1", id))
	m, ok := s.MessageByID(id)
	require.True(t, ok)
	require.True(t, m.IsPinned)

	require.NoError(t, s.UnpinMessage(ctx, "c1", id))
	m, _ = s.MessageByID(id)
	require.False(t, m.IsPinned)

	require.NoError(t, s.DeleteMessage(ctx, "c1", id))
	_, ok = s.MessageByID(id)
	require.False(t, ok)
}

// =============================================================================
// MEMORY INJECTION
// =============================================================================

func TestInjectMemory_AddsBeforeConfirmation(t *testing.T) {
	s, fake := newLoadedStore(t)

	var seen []model.InjectedMemory
	fake.onInject = func() {
		conv, _ := s.Get("c1")
		seen = conv.InjectedMemories
	}

	require.NoError(t, s.InjectMemory(context.Background(), "c1", "mem1"))
	require.Equal(t, []model.InjectedMemory{{ID: "mem1", IsActive: true}}, seen)

	conv, _ := s.Get("c1")
	require.Equal(t, []model.InjectedMemory{{ID: "mem1", IsActive: true}}, conv.InjectedMemories)

	require.NoError(t, s.InjectMemory(context.Background(), "c1", "mem1"))
	conv, _ = s.Get("c1")
	require.Len(t, conv.InjectedMemories, 1)
}

func TestInjectMemory_RollsBackOnFailure(t *testing.T) {
	s, fake := newLoadedStore(t)
	fake.injectErr = errBackend

	err := s.InjectMemory(context.Background(), "c1", "mem1")
	require.ErrorIs(t, err, errBackend)

	conv, _ := s.Get("c1")
	require.Empty(t, conv.InjectedMemories)
}

func TestToggleInjectedMemory_WaitsForServer(t *testing.T) {
	s, fake := newLoadedStore(t)
	require.NoError(t, s.InjectMemory(context.Background(), "c1", "mem1"))

	fake.toggleTo = false
	fake.onToggle = func() {
		conv, _ := s.Get("c1")
		require.True(t, conv.InjectedMemories[0].IsActive, "flag must not flip before the server answers")
	}

	active, err := s.ToggleInjectedMemory(context.Background(), "c1", "mem1")
	require.NoError(t, err)
	require.False(t, active)

	conv, _ := s.Get("c1")
	require.False(t, conv.InjectedMemories[0].IsActive)
	require.Equal(t, 0, conv.ActiveMemoryCount())
}

func TestRemoveInjectedMemory(t *testing.T) {
	s, _ := newLoadedStore(t)
	require.NoError(t, s.InjectMemory(context.Background(), "c1", "mem1"))
	require.NoError(t, s.RemoveInjectedMemory(context.Background(), "c1", "mem1"))

	conv, _ := s.Get("c1")
	require.Empty(t, conv.InjectedMemories)
}

// =============================================================================
// LIFECYCLE
// =============================================================================

func TestCloseAndReopen(t *testing.T) {
	s, fake := newLoadedStore(t)
	fake.closeMem = &model.Memory{ID: "summary", Title: "Lab notes summary"}

	mem, err := s.Close(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, "summary", mem.ID)

	conv, _ := s.Get("c1")
	require.Equal(t, model.StatusCompleted, conv.Status)
	require.Len(t, conv.Messages, 2)

	require.NoError(t, s.Reopen(context.Background(), "c1"))
	conv, _ = s.Get("c1")
	require.True(t, conv.IsActive())
}

func TestReset(t *testing.T) {
	s, _ := newLoadedStore(t)
	require.NoError(t, s.SetActive(context.Background(), "c1"))
	s.Reset()

	require.Empty(t, s.Conversations())
	require.Empty(t, s.ActiveID())
}

func TestReset_StaleSendLeavesNewSendAlone(t *testing.T) {
	s, fake := newLoadedStore(t)
	ctx := context.Background()

	firstStarted, firstRelease := make(chan struct{}), make(chan struct{})
	fake.onSend = func() {
		close(firstStarted)
		<-firstRelease
	}
	firstDone := make(chan error, 1)
	go func() {
		_, err := s.Send(ctx, "c1", "before logout", true)
		firstDone <- err
	}()
	<-firstStarted

	// Sign out and back in while the first send is still on the wire.
	s.Reset()
	require.False(t, s.IsSending())
	require.NoError(t, s.Refresh(ctx, "c1"))

	secondStarted, secondRelease := make(chan struct{}), make(chan struct{})
	fake.mu.Lock()
	fake.onSend = func() {
		close(secondStarted)
		<-secondRelease
	}
	fake.mu.Unlock()
	secondDone := make(chan error, 1)
	go func() {
		_, err := s.Send(ctx, "c1", "after login", true)
		secondDone <- err
	}()
	<-secondStarted

	close(firstRelease)
	require.NoError(t, <-firstDone)

	require.True(t, s.IsSending(), "the old send must not lower the new send's flag")
	conv, _ := s.Get("c1")
	require.Len(t, conv.Messages, 4)
	require.True(t, conv.Messages[2].IsPending())
	require.Equal(t, "after login", conv.Messages[2].Content)

	// Refresh stays a no-op for the new send.
	getsBefore := fake.getCalls
	require.NoError(t, s.Refresh(ctx, "c1"))
	require.Equal(t, getsBefore, fake.getCalls)

	close(secondRelease)
	require.NoError(t, <-secondDone)
	require.False(t, s.IsSending())
	conv, _ = s.Get("c1")
	require.Equal(t, []string{"m1", "m2", "u-after login"}, messageIDs(conv))
}

// =============================================================================
// CONCURRENCY
// =============================================================================

func TestConcurrentSendAndRefresh(t *testing.T) {
	s, fake := newLoadedStore(t)

	var wg sync.WaitGroup
	var sent, busy int
	var mu sync.Mutex
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := s.Send(context.Background(), "c1", "hello", true)
			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				sent++
			case ErrSendInProgress:
				busy++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
		go func() {
			defer wg.Done()
			_ = s.Refresh(context.Background(), "c1")
		}()
	}
	wg.Wait()

	require.Equal(t, 20, sent+busy)
	require.Equal(t, sent, fake.sendCalls)
	conv, _ := s.Get("c1")
	require.False(t, conv.HasPending())
	require.False(t, s.IsSending())
}
