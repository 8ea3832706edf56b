// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/chimera-cli/internal/model"
)

const integrationsUsage = `chimera integrations [list]
chimera integrations add <provider> [--key KEY]
chimera integrations update <id> [--key KEY]
chimera integrations delete <id> [--yes]
chimera integrations test <id>
chimera integrations models [--connected]`

func runIntegrations(ctx context.Context, e *Env) error {
	sub := e.sub("list")
	if sub == "ls" {
		sub = "list"
	}
	switch sub {
	case "list", "add", "update", "delete", "rm", "test", "models":
	default:
		return ErrUnknownSubcommand("integrations", sub, integrationsUsage)
	}

	if err := e.App.Integrations.Load(ctx); err != nil {
		return err
	}
	switch sub {
	case "list":
		return integrationsList(e)
	case "add":
		return integrationsAdd(ctx, e)
	case "update":
		return integrationsUpdate(ctx, e)
	case "test":
		return integrationsTest(ctx, e)
	case "models":
		return integrationsModels(e)
	default:
		return integrationsDelete(ctx, e)
	}
}

func integrationsList(e *Env) error {
	list := e.App.Integrations.Integrations()
	return e.emit(map[string]any{"integrations": list}, func() {
		t := NewTable("ID", "PROVIDER", "KEY", "STATUS", "LAST TESTED", "ERROR")
		for _, in := range list {
			tested := "-"
			if in.LastTested != nil {
				tested = formatTime(*in.LastTested)
			}
			t.Add(in.ID, in.Provider.DisplayName(), in.MaskedKey(), RenderStatus(string(in.Status)), tested, in.ErrorMessage)
		}
		t.Render(e.Out, "No integrations. Add a provider key with 'chimera integrations add <provider>'.")
	})
}

// apiKey returns --key or asks for it without echo.
func (e *Env) apiKey() (string, error) {
	if k := strings.TrimSpace(e.Params.Flag("key")); k != "" {
		return k, nil
	}
	k, err := e.Prompt.Password("API key: ")
	if err != nil {
		return "", err
	}
	if k = strings.TrimSpace(k); k == "" {
		return "", ErrMissingArgument("--key", integrationsUsage)
	}
	return k, nil
}

func integrationsAdd(ctx context.Context, e *Env) error {
	raw, err := e.Params.Require(1, "provider", "chimera integrations add <provider> [--key KEY]")
	if err != nil {
		return err
	}
	provider := model.Provider(strings.ToLower(raw))
	if !provider.Valid() {
		names := make([]string, len(model.Providers))
		for i, p := range model.Providers {
			names[i] = string(p)
		}
		return ErrInvalidChoice("provider", raw, names)
	}
	key, err := e.apiKey()
	if err != nil {
		return err
	}
	in, err := e.App.Integrations.Create(ctx, provider, key)
	if err != nil {
		return err
	}
	return e.done(in, fmt.Sprintf("Added %s key %s", in.Provider.DisplayName(), in.MaskedKey()))
}

func (e *Env) integrationArg() (model.Integration, error) {
	ref, err := e.Params.Require(1, "integration", integrationsUsage)
	if err != nil {
		return model.Integration{}, err
	}
	for _, in := range e.App.Integrations.Integrations() {
		if in.ID == ref || strings.EqualFold(string(in.Provider), ref) {
			return in, nil
		}
	}
	return model.Integration{}, ErrNotFound("integration", ref)
}

func integrationsUpdate(ctx context.Context, e *Env) error {
	in, err := e.integrationArg()
	if err != nil {
		return err
	}
	key, err := e.apiKey()
	if err != nil {
		return err
	}
	updated, err := e.App.Integrations.Update(ctx, in.ID, key)
	if err != nil {
		return err
	}
	return e.done(updated, fmt.Sprintf("Updated %s key %s", updated.Provider.DisplayName(), updated.MaskedKey()))
}

func integrationsDelete(ctx context.Context, e *Env) error {
	in, err := e.integrationArg()
	if err != nil {
		return err
	}
	ok, err := e.confirm("delete the "+in.Provider.DisplayName()+" key", "")
	if err != nil || !ok {
		return err
	}
	if err := e.App.Integrations.Delete(ctx, in.ID); err != nil {
		return err
	}
	return e.done(map[string]string{"id": in.ID}, "Deleted "+in.Provider.DisplayName()+" integration")
}

func integrationsTest(ctx context.Context, e *Env) error {
	in, err := e.integrationArg()
	if err != nil {
		return err
	}
	res, err := e.App.Integrations.Test(ctx, in.ID)
	if err != nil {
		return err
	}
	return e.emit(res, func() {
		status := res.Integration.Status
		fmt.Fprintf(e.Out, "%s %s %s\n", RenderStatus(string(status)), in.Provider.DisplayName(), res.Message)
		if res.Integration.ErrorMessage != "" {
			fmt.Fprintln(e.Out, "  "+ErrorStyle.Render(res.Integration.ErrorMessage))
		}
	})
}

func integrationsModels(e *Env) error {
	models := e.App.Integrations.Models()
	if e.Params.BoolFlag("connected") {
		models = e.App.Integrations.ConnectedModels()
	}
	return e.emit(map[string]any{"models": models}, func() {
		t := NewTable("ID", "NAME", "PROVIDER", "REGION", "STATUS")
		for _, m := range models {
			name := m.DisplayName
			if name == "" {
				name = m.Name
			}
			t.Add(m.ID, name, m.Provider.DisplayName(), m.BrainRegion, m.Status)
		}
		t.Render(e.Out, "No models available. Connect a provider first.")
	})
}
