// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// PendingPrefix is prepended to pending identifiers when they are rendered.
// Server-issued identifiers never start with it.
const PendingPrefix = "temp-"

// ErrPendingID is returned when a pending identifier is about to be sent to the server.
var ErrPendingID = errors.New("pending message id cannot be serialized")

// =============================================================================
// MESSAGE ID
// =============================================================================

// MessageID identifies a message. It is either Pending (generated locally for
// an optimistic placeholder) or Confirmed (issued by the server). The zero
// value is an empty confirmed ID.
//
// MessageID is comparable and can be used as a map key.
type MessageID struct {
	value   string
	pending bool
}

// ConfirmedID wraps a server-issued message identifier.
func ConfirmedID(id string) MessageID {
	return MessageID{value: id}
}

// NewPendingID returns a fresh client-local identifier.
func NewPendingID() MessageID {
	return MessageID{value: uuid.NewString(), pending: true}
}

// IsPending reports whether the ID belongs to an optimistic placeholder.
func (id MessageID) IsPending() bool {
	return id.pending
}

// IsZero reports whether the ID is empty.
func (id MessageID) IsZero() bool {
	return id.value == "" && !id.pending
}

// Value returns the raw identifier without any prefix.
func (id MessageID) Value() string {
	return id.value
}

// String renders the ID. Pending IDs carry the reserved prefix.
func (id MessageID) String() string {
	if id.pending {
		return PendingPrefix + id.value
	}
	return id.value
}

// MarshalJSON encodes a confirmed ID as a JSON string. Pending IDs exist only
// on the client and refuse to serialize.
func (id MessageID) MarshalJSON() ([]byte, error) {
	if id.pending {
		return nil, ErrPendingID
	}
	return json.Marshal(id.value)
}

// UnmarshalJSON decodes a server identifier. Anything read from the wire is
// confirmed, even if it happens to start with the pending prefix.
func (id *MessageID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Some endpoints emit numeric primary keys.
		var n json.Number
		if numErr := json.Unmarshal(data, &n); numErr != nil {
			return err
		}
		s = n.String()
	}
	*id = MessageID{value: strings.TrimSpace(s)}
	return nil
}
