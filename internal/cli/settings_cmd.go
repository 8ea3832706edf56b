// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/model"
	"github.com/jeranaias/chimera-cli/internal/util"
)

const settingsUsage = `chimera settings [show]
chimera settings profile [--name NAME] [--email EMAIL]
chimera settings retention [--auto-store on|off] [--period PERIOD]
chimera settings cleanup-info
chimera settings cleanup [--yes]
chimera settings export [--output FILE]
chimera settings delete-account [--yes]`

// deleteAccountPhrase must be typed to delete an account interactively.
const deleteAccountPhrase = "delete my account"

func runSettings(ctx context.Context, e *Env) error {
	switch sub := e.sub("show"); sub {
	case "show", "get":
		return settingsShow(ctx, e)
	case "profile":
		return settingsProfile(ctx, e)
	case "retention":
		return settingsRetention(ctx, e)
	case "cleanup-info":
		return settingsCleanupInfo(ctx, e)
	case "cleanup":
		return settingsCleanup(ctx, e)
	case "export":
		return settingsExport(ctx, e)
	case "delete-account":
		return settingsDeleteAccount(ctx, e)
	default:
		return ErrUnknownSubcommand("settings", sub, settingsUsage)
	}
}

func printSettings(e *Env, s *model.Settings) {
	autoStore := "off"
	if s.MemoryRetention.AutoStore {
		autoStore = "on"
	}
	fmt.Fprintln(e.Out, SectionStyle.Render("Profile"))
	Fields(e.Out, "Name", s.Profile.Name, "Email", s.Profile.Email)
	fmt.Fprintln(e.Out, SectionStyle.Render("Memory retention"))
	Fields(e.Out, "Auto-store", autoStore, "Period", s.MemoryRetention.RetentionPeriod)
}

func settingsShow(ctx context.Context, e *Env) error {
	s, err := e.App.Settings.Fetch(ctx)
	if err != nil {
		return err
	}
	return e.emit(s, func() { printSettings(e, s) })
}

func settingsProfile(ctx context.Context, e *Env) error {
	var upd api.ProfileUpdate
	if e.Params.HasFlag("name") {
		name := strings.TrimSpace(e.Params.Flag("name"))
		upd.Name = &name
	}
	if e.Params.HasFlag("email") {
		email := strings.TrimSpace(e.Params.Flag("email"))
		if !strings.Contains(email, "@") {
			return &ValidationError{Field: "--email", Value: email, Reason: "not an email address"}
		}
		upd.Email = &email
	}
	if upd.Name == nil && upd.Email == nil {
		return settingsShow(ctx, e)
	}

	s, err := e.App.Settings.UpdateProfile(ctx, upd)
	if err != nil {
		return err
	}
	return e.emit(s, func() {
		if !e.Args.Quiet {
			fmt.Fprintln(e.Out, Success("Profile updated"))
		}
		printSettings(e, s)
	})
}

func settingsRetention(ctx context.Context, e *Env) error {
	var upd api.RetentionUpdate
	if e.Params.HasFlag("auto-store") {
		v, err := ParseBoolString(e.Params.Flag("auto-store"))
		if err != nil {
			return ErrInvalidChoice("--auto-store", e.Params.Flag("auto-store"), []string{"on", "off"})
		}
		upd.AutoStore = &v
	}
	if e.Params.HasFlag("period") {
		period := e.Params.Flag("period")
		if !slices.Contains(model.RetentionPeriods, period) {
			return ErrInvalidChoice("--period", period, model.RetentionPeriods)
		}
		upd.RetentionPeriod = &period
	}
	if upd.AutoStore == nil && upd.RetentionPeriod == nil {
		return settingsShow(ctx, e)
	}

	s, err := e.App.Settings.UpdateMemoryRetention(ctx, upd)
	if err != nil {
		return err
	}
	return e.emit(s, func() {
		if !e.Args.Quiet {
			fmt.Fprintln(e.Out, Success("Memory retention updated"))
		}
		printSettings(e, s)
	})
}

func settingsCleanupInfo(ctx context.Context, e *Env) error {
	info, err := e.App.Settings.CleanupInfo(ctx)
	if err != nil {
		return err
	}
	return e.emit(info, func() {
		left, scheduled := info.Remaining()
		if !scheduled {
			fmt.Fprintf(e.Out, "No cleanup scheduled (retention period %s)\n", info.RetentionPeriod)
			return
		}
		next := "-"
		if info.CleanupDate != nil {
			next = formatTime(*info.CleanupDate)
		}
		Fields(e.Out,
			"Retention period", info.RetentionPeriod,
			"Next cleanup", next,
			"Time remaining", formatRemaining(left),
		)
	})
}

// formatRemaining renders a duration as days, hours and minutes.
func formatRemaining(d time.Duration) string {
	if d <= 0 {
		return "due now"
	}
	days := int(d / (24 * time.Hour))
	hours := int(d%(24*time.Hour)) / int(time.Hour)
	mins := int(d%time.Hour) / int(time.Minute)
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh %dm", days, hours, mins)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}

func settingsCleanup(ctx context.Context, e *Env) error {
	ok, err := e.confirm("permanently delete data older than your retention period", "")
	if err != nil || !ok {
		return err
	}
	res, err := e.App.Settings.TriggerCleanup(ctx)
	if err != nil {
		return err
	}
	return e.emit(res, func() {
		if !e.Args.Quiet {
			fmt.Fprintln(e.Out, Success("Cleanup finished"))
		}
		Fields(e.Out,
			"Workspaces", fmt.Sprint(res.WorkspacesDeleted),
			"Conversations", fmt.Sprint(res.ConversationsDeleted),
			"Memories", fmt.Sprint(res.MemoriesDeleted),
			"Messages", fmt.Sprint(res.MessagesDeleted),
		)
	})
}

// settingsExport writes the account archive to --output, or to stdout.
// Terminal output is highlighted; redirected output is byte-for-byte.
func settingsExport(ctx context.Context, e *Env) error {
	if out := e.Params.Flag("output"); out != "" {
		var n int64
		err := util.AtomicWrite(out, 0600, func(w io.Writer) error {
			var err error
			n, err = e.App.Settings.Export(ctx, w)
			return err
		})
		if err != nil {
			return NewCommandError("settings", "export", "could not write "+out, err)
		}
		return e.done(map[string]any{"path": out, "bytes": n}, fmt.Sprintf("Exported %s to %s", formatBytes(n), out))
	}

	var buf bytes.Buffer
	if _, err := e.App.Settings.Export(ctx, &buf); err != nil {
		return err
	}
	if e.Args.JSON || !IsStdoutTTY() || !ColorsEnabled() {
		_, err := e.Out.Write(buf.Bytes())
		return err
	}
	fmt.Fprintln(e.Out, highlight(buf.String(), "json"))
	return nil
}

func settingsDeleteAccount(ctx context.Context, e *Env) error {
	ok, err := e.confirm("permanently delete your account and all of its data", deleteAccountPhrase)
	if err != nil || !ok {
		return err
	}
	if err := e.App.Settings.DeleteAccount(ctx); err != nil {
		return err
	}
	if err := e.App.Auth.Logout(ctx); err != nil {
		e.notef("Account deleted, but the local session could not be cleared: %v", err)
	}
	return e.done(map[string]bool{"deleted": true}, "Account deleted")
}
