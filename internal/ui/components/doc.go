// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components renders the pieces of the chat view: messages, the
// status bar and toasts. Components are pure functions of their inputs and
// hold no Bubble Tea state.
package components
