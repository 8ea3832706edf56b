// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// confirm.go - Confirmation for destructive commands.
//
//  1. --yes proceeds without prompting
//  2. --json requires --yes (no prompts in JSON mode)
//  3. A non-terminal stdin requires --yes
//  4. Otherwise the user is asked

package cli

import (
	"errors"
	"fmt"
	"strings"
)

// ConfirmationOptions describes how a confirmation may be satisfied.
type ConfirmationOptions struct {
	// Yes is true when --yes was passed.
	Yes bool
	// JSONMode is true when --json was passed.
	JSONMode bool
	// Phrase, when set, must be typed exactly instead of y/N.
	Phrase string
}

// RequireConfirmation asks before a destructive action. A false result with
// a nil error means the user declined.
func RequireConfirmation(p *Prompter, action string, opts ConfirmationOptions) (bool, error) {
	if opts.Yes {
		return true, nil
	}
	if opts.JSONMode {
		return false, &UsageError{Message: "confirmation required: pass --yes to " + action + " in JSON mode"}
	}
	if !p.Interactive() {
		return false, &UsageError{Message: "confirmation required but stdin is not a terminal: pass --yes to " + action}
	}

	if opts.Phrase != "" {
		answer, err := p.Line(fmt.Sprintf("Type %q to %s: ", opts.Phrase, action))
		if err != nil {
			return false, fmt.Errorf("failed to read confirmation: %w", err)
		}
		return answer == opts.Phrase, nil
	}

	answer, err := p.Line(fmt.Sprintf("Are you sure you want to %s? [y/N]: ", action))
	if err != nil {
		if errors.Is(err, ErrNoInput) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	answer = strings.ToLower(answer)
	return answer == "y" || answer == "yes", nil
}
