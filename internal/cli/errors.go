// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types, display and exit codes for chimera commands.
//
// Handlers always return errors and never print them. Run displays the
// error once, in text or JSON, and maps it to an exit code.

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/app"
	"github.com/jeranaias/chimera-cli/internal/config"
	"github.com/jeranaias/chimera-cli/internal/session"
	"github.com/jeranaias/chimera-cli/internal/store"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError is a failed command with context.
type CommandError struct {
	Command string // e.g. "memories"
	Action  string // e.g. "import-file"
	Reason  string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %s: %v", e.Command, e.Action, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s %s failed: %s", e.Command, e.Action, e.Reason)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError is bad user input.
type ValidationError struct {
	Field   string
	Value   string
	Reason  string
	Example string
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	if e.Value != "" {
		msg += fmt.Sprintf(" (got: %s)", e.Value)
	}
	if e.Example != "" {
		msg += fmt.Sprintf("\nExample: %s", e.Example)
	}
	return msg
}

// NotFoundError is a resource missing from the loaded lists.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// UsageError is an unknown command or subcommand.
type UsageError struct {
	Message string
	Usage   string
}

func (e *UsageError) Error() string {
	if e.Usage == "" {
		return e.Message
	}
	return e.Message + "\nUsage: " + e.Usage
}

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// NewCommandError creates a command error.
func NewCommandError(command, action, reason string, err error) error {
	return &CommandError{Command: command, Action: action, Reason: reason, Err: err}
}

// ErrMissingArgument reports a required argument that was not given.
func ErrMissingArgument(argName, usage string) error {
	return &UsageError{Message: "missing required argument: " + argName, Usage: usage}
}

// ErrInvalidChoice reports a value outside a fixed set.
func ErrInvalidChoice(field, value string, choices []string) error {
	return &ValidationError{
		Field:  field,
		Value:  value,
		Reason: "must be one of " + strings.Join(choices, ", "),
	}
}

// ErrUnknownSubcommand reports a subcommand the command does not have.
func ErrUnknownSubcommand(command, sub, usage string) error {
	return &UsageError{Message: fmt.Sprintf("unknown %s subcommand: %s", command, sub), Usage: usage}
}

// ErrNotFound reports a resource that is not in the loaded lists.
func ErrNotFound(resource, id string) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError writes err to w as text, or as a JSON failure response.
func DisplayError(w io.Writer, command string, err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		resp := NewJSONErrorResponse(command, err)
		resp.Details = errorDetails(err)
		_ = resp.Write(w)
		return
	}

	fmt.Fprintf(w, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
	var apiErr *api.Error
	if errors.As(err, &apiErr) && len(apiErr.Fields) > 0 {
		fields := make([]string, 0, len(apiErr.Fields))
		for f := range apiErr.Fields {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			fmt.Fprintf(w, "  %s %s\n", LabelStyle.Width(0).Render(f+":"), strings.Join(apiErr.Fields[f], "; "))
		}
	}
}

func errorDetails(err error) map[string]any {
	out := map[string]any{"error_type": "generic_error"}

	var (
		cmdErr   *CommandError
		valErr   *ValidationError
		nfErr    *NotFoundError
		usageErr *UsageError
		apiErr   *api.Error
	)
	switch {
	case errors.As(err, &valErr):
		out["error_type"] = "validation_error"
		out["field"] = valErr.Field
		out["value"] = valErr.Value
	case errors.As(err, &nfErr):
		out["error_type"] = "not_found_error"
		out["resource"] = nfErr.Resource
		out["id"] = nfErr.ID
	case errors.As(err, &usageErr):
		out["error_type"] = "usage_error"
	case errors.As(err, &apiErr):
		out["error_type"] = "api_error"
		out["kind"] = apiErr.Kind.String()
		out["status"] = apiErr.Status
		if len(apiErr.Fields) > 0 {
			out["fields"] = apiErr.Fields
		}
	case errors.As(err, &cmdErr):
		out["error_type"] = "command_error"
		out["command"] = cmdErr.Command
		out["action"] = cmdErr.Action
	}
	return out
}

// GetExitCode maps an error to the process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var (
		valErr   *ValidationError
		usageErr *UsageError
		nfErr    *NotFoundError
		cfgErrs  config.ValidateErrors
		apiErr   *api.Error
	)
	switch {
	case errors.As(err, &usageErr), errors.As(err, &valErr):
		return ExitUsageError
	case errors.As(err, &cfgErrs), errors.Is(err, app.ErrMissingCacheKey):
		return ExitConfigError
	case errors.Is(err, app.ErrNotSignedIn), errors.Is(err, session.ErrNoSession),
		errors.Is(err, api.ErrUnauthorized), errors.Is(err, api.ErrForbidden):
		return ExitAuthError
	case errors.As(err, &nfErr), errors.Is(err, api.ErrNotFound),
		errors.Is(err, store.ErrConversationNotFound), errors.Is(err, store.ErrWorkspaceNotFound),
		errors.Is(err, store.ErrMemoryNotFound):
		return ExitNotFoundError
	case errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case errors.As(err, &apiErr) && apiErr.Kind == api.KindTransport:
		return ExitNetworkError
	}
	return ExitGeneralError
}
