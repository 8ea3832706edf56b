// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// =============================================================================
// USER & TEAM
// =============================================================================

// User is an account on the backend.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// AuthResult is returned by login and register.
type AuthResult struct {
	Token   string `json:"token"`
	Refresh string `json:"refresh"`
	User    User   `json:"user"`
}

// MemberRole is a workspace member's role.
type MemberRole string

const (
	RoleAdmin  MemberRole = "admin"
	RoleMember MemberRole = "member"
	RoleViewer MemberRole = "viewer"
)

// Valid reports whether r is a known role.
func (r MemberRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleViewer:
		return true
	}
	return false
}

// MemberStatus is a workspace member's presence status.
type MemberStatus string

const (
	MemberOnline  MemberStatus = "online"
	MemberAway    MemberStatus = "away"
	MemberOffline MemberStatus = "offline"
)

// TeamMember is a user's membership in a workspace.
type TeamMember struct {
	ID          string       `json:"id"`
	UserID      string       `json:"userId,omitempty"`
	WorkspaceID string       `json:"workspaceId,omitempty"`
	Name        string       `json:"name"`
	Email       string       `json:"email"`
	Role        MemberRole   `json:"role"`
	Status      MemberStatus `json:"status"`
	JoinedAt    time.Time    `json:"joinedAt,omitempty"`
}

// =============================================================================
// WORKSPACE
// =============================================================================

// WorkspaceStats are the server-computed usage numbers of a workspace.
type WorkspaceStats struct {
	TotalMemories      int       `json:"totalMemories"`
	TotalEmbeddings    int       `json:"totalEmbeddings"`
	TotalConversations int       `json:"totalConversations"`
	SystemLoad         float64   `json:"systemLoad"`
	LastActivity       time.Time `json:"lastActivity,omitempty"`
}

// Workspace is a collaboration container.
type Workspace struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	OwnerID     string         `json:"ownerId"`
	Members     []TeamMember   `json:"members,omitempty"`
	Stats       WorkspaceStats `json:"stats"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Clone returns a deep copy of the workspace.
func (w Workspace) Clone() Workspace {
	if w.Members != nil {
		w.Members = append([]TeamMember(nil), w.Members...)
	}
	return w
}

// LoadSample is one point of the dashboard's neural load series.
type LoadSample struct {
	Time  time.Time `json:"timestamp"`
	Value float64   `json:"value"`
}

// Activity is one entry of the dashboard's recent activity feed. Its shape
// varies by event type.
type Activity map[string]any

// Dashboard aggregates what the workspace overview shows.
type Dashboard struct {
	Stats          WorkspaceStats `json:"stats"`
	NeuralLoad     []LoadSample   `json:"neuralLoad,omitempty"`
	RecentActivity []Activity     `json:"recentActivity,omitempty"`
}
