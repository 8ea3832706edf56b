// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/chimera-cli/internal/commands"
	"github.com/jeranaias/chimera-cli/internal/model"
)

// storeChangedMsg is delivered after any subscribed store changed.
type storeChangedMsg struct{}

// loadedMsg reports the initial conversation fetch.
type loadedMsg struct{ err error }

// sendDoneMsg reports the end of a send.
type sendDoneMsg struct {
	result *model.SendResult
	err    error
}

// commandDoneMsg reports a finished slash command.
type commandDoneMsg struct {
	input  string
	result commands.Result
	err    error
}

// refreshDoneMsg reports a manual refresh.
type refreshDoneMsg struct{ err error }

// PrefsMsg replaces the display preferences, typically after the config file
// was edited while the view is open.
type PrefsMsg struct {
	Theme      string
	Markdown   bool
	AIResponse bool
}
