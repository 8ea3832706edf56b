// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Fallback messages used when the backend gives nothing better.
const (
	msgRequestFailed    = "Request failed"
	msgValidationFailed = "Validation failed"
	msgAPIFailed        = "API request failed"
)

// Sentinel errors matched by errors.Is against *Error status codes.
var (
	// ErrUnauthorized indicates a missing or expired token (HTTP 401).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission (HTTP 403).
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound indicates the resource does not exist (HTTP 404).
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates too many requests were made (HTTP 429).
	ErrRateLimited = errors.New("rate limited")
)

// =============================================================================
// ERROR KINDS
// =============================================================================

// ErrorKind classifies where a failure came from.
type ErrorKind int

const (
	// KindTransport is a network failure before any response arrived.
	KindTransport ErrorKind = iota
	// KindStatus is a non-2xx HTTP status.
	KindStatus
	// KindEnvelope is a 2xx response whose envelope carried ok:false.
	KindEnvelope
	// KindValidation is a failure whose error field was a field-keyed object.
	KindValidation
)

// String returns the name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindEnvelope:
		return "envelope"
	case KindValidation:
		return "validation"
	default:
		return "unknown"
	}
}

// Error is the normalized failure returned by every Client method.
type Error struct {
	Kind    ErrorKind
	Status  int                 // HTTP status, 0 for transport failures
	Message string              // display message
	Fields  map[string][]string // validation messages keyed by field
	Err     error               // underlying transport error, if any
}

// Error implements the error interface. The message is what the user sees.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying transport error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is maps status codes onto the package sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrForbidden:
		return e.Status == http.StatusForbidden
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	}
	return false
}

// Temporary reports whether retrying the same request might succeed.
func (e *Error) Temporary() bool {
	switch e.Kind {
	case KindTransport:
		return true
	case KindStatus, KindValidation:
		return e.Status >= 500 || e.Status == http.StatusTooManyRequests
	}
	return false
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// =============================================================================
// NORMALIZATION
// =============================================================================

// errorBody is the subset of an error response we inspect.
type errorBody struct {
	Error json.RawMessage `json:"error"`
}

// transportError wraps a failure that happened before a response arrived.
func transportError(err error) *Error {
	return &Error{
		Kind:    KindTransport,
		Message: fmt.Sprintf("request failed: %v", err),
		Err:     err,
	}
}

// statusError builds the error for a non-2xx response.
//
// A string error field is used verbatim. An object error field becomes
// "field: a, b; other: c". Otherwise the message is "HTTP <code>: <text>",
// or "Request failed" when the body is not JSON at all.
func statusError(status int, body []byte) *Error {
	apiErr := &Error{
		Kind:    KindStatus,
		Status:  status,
		Message: fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status)),
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		apiErr.Message = msgRequestFailed
		return apiErr
	}
	applyErrorField(apiErr, eb.Error, "")
	return apiErr
}

// missingDataError is returned when an ok:true envelope lacks the record the
// call promises, such as data:null for a conversation fetch.
func missingDataError(status int, what string) *Error {
	return &Error{
		Kind:    KindEnvelope,
		Status:  status,
		Message: "API response missing " + what,
	}
}

// envelopeError builds the error for an ok:false envelope.
func envelopeError(status int, raw json.RawMessage) *Error {
	apiErr := &Error{
		Kind:   KindEnvelope,
		Status: status,
	}
	applyErrorField(apiErr, raw, msgAPIFailed)
	if apiErr.Message == "" {
		apiErr.Message = msgAPIFailed
	}
	return apiErr
}

// applyErrorField fills the message (and fields, for validation objects) from
// a raw error value. fallback replaces an empty string message when set.
func applyErrorField(apiErr *Error, raw json.RawMessage, fallback string) {
	if len(raw) == 0 || string(raw) == "null" {
		if fallback != "" {
			apiErr.Message = fallback
		}
		return
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s != "" {
			apiErr.Message = s
		} else if fallback != "" {
			apiErr.Message = fallback
		}
		return
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		apiErr.Kind = KindValidation
		apiErr.Fields = validationFields(obj)
		apiErr.Message = joinValidation(apiErr.Fields)
		if apiErr.Message == "" {
			apiErr.Message = msgValidationFailed
		}
		return
	}

	if fallback != "" {
		apiErr.Message = fallback
	}
}

// validationFields flattens {"field": ["a", "b"]} or {"field": "a"} into string slices.
func validationFields(obj map[string]json.RawMessage) map[string][]string {
	fields := make(map[string][]string, len(obj))
	for field, raw := range obj {
		var list []any
		if err := json.Unmarshal(raw, &list); err == nil {
			msgs := make([]string, 0, len(list))
			for _, v := range list {
				msgs = append(msgs, fmt.Sprint(v))
			}
			fields[field] = msgs
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			fields[field] = []string{s}
			continue
		}
		fields[field] = []string{strings.TrimSpace(string(raw))}
	}
	return fields
}

// joinValidation renders fields sorted by name as "field: a, b; other: c".
func joinValidation(fields map[string][]string) string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, fmt.Sprintf("%s: %s", name, strings.Join(fields[name], ", ")))
	}
	return strings.Join(parts, "; ")
}
