// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the full-screen chat view.
//
// The Model renders one conversation from the conversation store. Sending
// runs as a tea.Cmd through ConversationStore.Send, so the optimistic
// placeholders show up through the same store notifications the poller
// produces. The input is disabled while a send is in flight. Lines starting
// with a slash run through the commands registry instead of being sent.
//
//	m := chat.New(chat.Deps{...}, conversationID)
//	defer m.Close()
//	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
package chat
