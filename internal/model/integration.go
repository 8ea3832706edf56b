// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// =============================================================================
// PROVIDERS
// =============================================================================

// Provider is an LLM vendor the backend can call on the user's behalf.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGoogle    Provider = "google"
	ProviderDeepSeek  Provider = "deepseek"
)

// Providers lists every supported provider in display order.
var Providers = []Provider{ProviderOpenAI, ProviderAnthropic, ProviderGoogle, ProviderDeepSeek}

// Valid reports whether p is a supported provider.
func (p Provider) Valid() bool {
	for _, known := range Providers {
		if p == known {
			return true
		}
	}
	return false
}

// DisplayName returns the vendor's name as shown to users.
func (p Provider) DisplayName() string {
	switch p {
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderAnthropic:
		return "Anthropic"
	case ProviderGoogle:
		return "Google"
	case ProviderDeepSeek:
		return "DeepSeek"
	default:
		return string(p)
	}
}

// =============================================================================
// INTEGRATION
// =============================================================================

// IntegrationStatus is the last known health of a stored credential.
type IntegrationStatus string

const (
	IntegrationConnected    IntegrationStatus = "connected"
	IntegrationError        IntegrationStatus = "error"
	IntegrationDisconnected IntegrationStatus = "disconnected"
)

// Integration is a stored provider credential owned by a user.
type Integration struct {
	ID           string            `json:"id"`
	UserID       string            `json:"userId,omitempty"`
	Provider     Provider          `json:"provider"`
	APIKey       string            `json:"apiKey"`
	Status       IntegrationStatus `json:"status"`
	LastTested   *time.Time        `json:"lastTested,omitempty"`
	ErrorMessage string            `json:"errorMessage,omitempty"`
}

// MaskedKey returns the API key with everything but the last four characters hidden.
func (i *Integration) MaskedKey() string {
	if len(i.APIKey) <= 4 {
		return "****"
	}
	return "****" + i.APIKey[len(i.APIKey)-4:]
}

// Position places a model in the backend's brain map.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// AvailableModel is a model the user can pick because a provider is connected.
type AvailableModel struct {
	ID          string   `json:"id"`
	Provider    Provider `json:"provider"`
	Name        string   `json:"name"`
	DisplayName string   `json:"displayName"`
	BrainRegion string   `json:"brainRegion,omitempty"`
	Status      string   `json:"status,omitempty"`
	Position    Position `json:"position,omitempty"`
}
