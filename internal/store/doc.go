// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the client-side state for each backend resource.
//
// Every store is an explicit container built by the composition root with its
// API dependency injected. Stores follow one reconciliation contract: Load
// replaces the local collection with the server's version while keeping
// substructure the list endpoint omits, and mutations call the API first and
// touch local state only after success. The two exceptions live in
// ConversationStore: message sending and memory injection are optimistic.
//
// All stores are safe for concurrent use. Subscribe registers a callback run
// after each state change, and Revision increases only when state actually
// changed, so views can skip redundant redraws.
package store
