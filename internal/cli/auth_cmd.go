// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// auth_cmd.go - login, register, logout and whoami.

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jeranaias/chimera-cli/internal/model"
	"github.com/jeranaias/chimera-cli/internal/session"
)

// passwordEnv lets scripts sign in without a prompt.
const passwordEnv = "CHIMERA_PASSWORD"

// credential returns --name, or asks for it.
func (e *Env) credential(flag, question string) (string, error) {
	if v := strings.TrimSpace(e.Params.Flag(flag)); v != "" {
		return v, nil
	}
	v, err := e.Prompt.Line(question)
	if err != nil {
		return "", err
	}
	if v == "" {
		return "", ErrMissingArgument("--"+flag, e.command.usage)
	}
	return v, nil
}

func (e *Env) password(confirm bool) (string, error) {
	if v := e.Params.Flag("password"); v != "" {
		return v, nil
	}
	if v := os.Getenv(passwordEnv); v != "" {
		return v, nil
	}
	pw, err := e.Prompt.Password("Password: ")
	if err != nil {
		return "", err
	}
	if pw == "" {
		return "", ErrMissingArgument("password", e.command.usage)
	}
	if confirm && e.Prompt.Interactive() {
		again, err := e.Prompt.Password("Confirm password: ")
		if err != nil {
			return "", err
		}
		if again != pw {
			return "", &ValidationError{Field: "password", Reason: "passwords do not match"}
		}
	}
	return pw, nil
}

// UserData is the JSON form of the signed-in user.
type UserData struct {
	User      *model.User `json:"user"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
	SessionID string      `json:"sessionId,omitempty"`
	// IdleTimeoutIn is the time left before the idle sign-out, in seconds.
	// Absent when no idle timeout is configured.
	IdleTimeoutIn *int64 `json:"idleTimeoutIn,omitempty"`
}

func runLogin(ctx context.Context, e *Env) error {
	email, err := e.credential("email", "Email: ")
	if err != nil {
		return err
	}
	pw, err := e.password(false)
	if err != nil {
		return err
	}
	user, err := e.App.Auth.Login(ctx, email, pw)
	if err != nil {
		return err
	}
	return e.done(UserData{User: user}, fmt.Sprintf("Signed in as %s <%s>", user.Name, user.Email))
}

func runRegister(ctx context.Context, e *Env) error {
	name, err := e.credential("name", "Name: ")
	if err != nil {
		return err
	}
	email, err := e.credential("email", "Email: ")
	if err != nil {
		return err
	}
	pw, err := e.password(true)
	if err != nil {
		return err
	}
	user, err := e.App.Auth.Register(ctx, name, email, pw)
	if err != nil {
		return err
	}
	return e.done(UserData{User: user}, fmt.Sprintf("Welcome, %s. You are signed in.", user.Name))
}

func runLogout(ctx context.Context, e *Env) error {
	ok, err := e.App.Restore(ctx)
	if err != nil && !errors.Is(err, session.ErrNoSession) {
		return err
	}
	if !ok {
		return e.done(nil, "Not signed in")
	}
	if err := e.App.Auth.Logout(ctx); err != nil {
		return err
	}
	return e.done(nil, "Signed out")
}

func runWhoami(_ context.Context, e *Env) error {
	st := e.App.Auth.Session().GetStatus()
	data := UserData{User: e.App.Auth.User(), SessionID: st.SessionID}
	if !st.TokenExpires.IsZero() {
		data.ExpiresAt = &st.TokenExpires
	}
	if st.RemainingTime >= 0 {
		secs := int64(st.RemainingTime / time.Second)
		data.IdleTimeoutIn = &secs
	}
	return e.emit(data, func() {
		u := data.User
		if u == nil {
			u = &model.User{}
		}
		pairs := []string{"Name", u.Name, "Email", u.Email, "User ID", u.ID}
		if data.ExpiresAt != nil {
			pairs = append(pairs, "Token expires", formatTime(*data.ExpiresAt))
		}
		if !st.StartTime.IsZero() {
			pairs = append(pairs, "Session started", formatTime(st.StartTime))
		}
		if data.IdleTimeoutIn != nil {
			pairs = append(pairs, "Idle sign-out in", session.FormatDuration(st.RemainingTime))
		}
		pairs = append(pairs, "API", e.Config.API.BaseURL)
		Fields(e.Out, pairs...)
	})
}
