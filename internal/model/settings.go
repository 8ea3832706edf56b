// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// Profile is the editable part of the user's account.
type Profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// MemoryRetention controls whether closed conversations are summarized into
// memories and how long memories are kept.
type MemoryRetention struct {
	AutoStore       bool   `json:"autoStore"`
	RetentionPeriod string `json:"retentionPeriod"`
}

// Settings is the user's account settings.
type Settings struct {
	Profile         Profile         `json:"profile"`
	MemoryRetention MemoryRetention `json:"memoryRetention"`
}

// CleanupInfo previews when the next retention cleanup runs. The remaining
// fields are nil when the retention period is indefinite.
type CleanupInfo struct {
	CleanupDate           *time.Time `json:"cleanup_date"`
	DaysRemaining         *int       `json:"days_remaining"`
	HoursRemaining        *int       `json:"hours_remaining"`
	MinutesRemaining      *int       `json:"minutes_remaining"`
	TotalSecondsRemaining *int64     `json:"total_seconds_remaining"`
	IsIndefinite          bool       `json:"is_indefinite"`
	RetentionPeriod       string     `json:"retention_period"`
}

// Remaining returns the time until the next cleanup, or false when none is scheduled.
func (c CleanupInfo) Remaining() (time.Duration, bool) {
	if c.IsIndefinite || c.TotalSecondsRemaining == nil {
		return 0, false
	}
	return time.Duration(*c.TotalSecondsRemaining) * time.Second, true
}

// CleanupResult reports what a retention cleanup removed.
type CleanupResult struct {
	WorkspacesDeleted    int       `json:"workspaces_deleted"`
	ConversationsDeleted int       `json:"conversations_deleted"`
	MemoriesDeleted      int       `json:"memories_deleted"`
	MessagesDeleted      int       `json:"messages_deleted"`
	CleanupTime          time.Time `json:"cleanup_time"`
}

// RetentionPeriods lists the retention choices the backend accepts.
var RetentionPeriods = []string{"7-days", "30-days", "90-days", "indefinite-84", "indefinite-forever"}
