// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultToastDuration is how long a toast stays before it is removed.
const DefaultToastDuration = 4 * time.Second

// ToastKind is the severity of a toast.
type ToastKind string

const (
	ToastSuccess ToastKind = "success"
	ToastError   ToastKind = "error"
	ToastWarning ToastKind = "warning"
	ToastInfo    ToastKind = "info"
)

// Toast is a transient notification.
type Toast struct {
	ID        string
	Kind      ToastKind
	Title     string
	Message   string
	Duration  time.Duration // 0 means it stays until removed
	CreatedAt time.Time
}

// ToastStore holds transient notifications.
type ToastStore struct {
	notifier

	mu       sync.Mutex
	toasts   []Toast
	timers   map[string]*time.Timer
	duration time.Duration
}

// NewToastStore creates a store. A negative duration selects DefaultToastDuration.
func NewToastStore(duration time.Duration) *ToastStore {
	if duration < 0 {
		duration = DefaultToastDuration
	}
	return &ToastStore{duration: duration, timers: make(map[string]*time.Timer)}
}

// Add shows a toast and returns its ID.
func (s *ToastStore) Add(kind ToastKind, title, message string, duration time.Duration) string {
	t := Toast{
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Message:   message,
		Duration:  duration,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.toasts = append(s.toasts, t)
	if duration > 0 {
		s.timers[t.ID] = time.AfterFunc(duration, func() { s.Remove(t.ID) })
	}
	s.mu.Unlock()

	s.changed()
	return t.ID
}

// Success shows a success toast with the default duration.
func (s *ToastStore) Success(title, message string) string {
	return s.Add(ToastSuccess, title, message, s.duration)
}

// Error shows an error toast with the default duration.
func (s *ToastStore) Error(title, message string) string {
	return s.Add(ToastError, title, message, s.duration)
}

// Warning shows a warning toast with the default duration.
func (s *ToastStore) Warning(title, message string) string {
	return s.Add(ToastWarning, title, message, s.duration)
}

// Info shows an info toast with the default duration.
func (s *ToastStore) Info(title, message string) string {
	return s.Add(ToastInfo, title, message, s.duration)
}

// Remove dismisses a toast. Removing an unknown ID does nothing.
func (s *ToastStore) Remove(id string) {
	s.mu.Lock()
	found := false
	for i := range s.toasts {
		if s.toasts[i].ID == id {
			s.toasts = append(s.toasts[:i], s.toasts[i+1:]...)
			found = true
			break
		}
	}
	if t, ok := s.timers[id]; ok {
		t.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()

	if found {
		s.changed()
	}
}

// List returns the visible toasts, oldest first.
func (s *ToastStore) List() []Toast {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Toast(nil), s.toasts...)
}

// Reset removes every toast and stops pending timers.
func (s *ToastStore) Reset() {
	s.mu.Lock()
	for id, t := range s.timers {
		t.Stop()
		delete(s.timers, id)
	}
	s.toasts = nil
	s.mu.Unlock()
	s.changed()
}
