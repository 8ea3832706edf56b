// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/model"
)

const workspacesUsage = `chimera workspaces [list]
chimera workspaces create <name> [--description TEXT]
chimera workspaces use <id|name>
chimera workspaces update <id|name> [--name NAME] [--description TEXT]
chimera workspaces delete <id|name> [--yes]
chimera workspaces dashboard [id|name]
chimera workspaces load [id|name]`

func runWorkspaces(ctx context.Context, e *Env) error {
	switch sub := e.sub("list"); sub {
	case "list", "ls":
		return workspacesList(ctx, e)
	case "create", "new":
		return workspacesCreate(ctx, e)
	case "use", "switch":
		return workspacesUse(ctx, e)
	case "update", "edit":
		return workspacesUpdate(ctx, e)
	case "delete", "rm":
		return workspacesDelete(ctx, e)
	case "dashboard", "stats":
		return workspacesDashboard(ctx, e)
	case "load":
		return workspacesLoad(ctx, e)
	default:
		return ErrUnknownSubcommand("workspaces", sub, workspacesUsage)
	}
}

// workspaceRef returns the workspace named at index, or the current one.
func (e *Env) workspaceRef(ctx context.Context, index int) (model.Workspace, error) {
	ref := e.Params.Positional(index)
	if ref == "" {
		return e.workspace(ctx)
	}
	if err := e.App.Workspaces.Load(ctx); err != nil {
		return model.Workspace{}, err
	}
	for _, ws := range e.App.Workspaces.Workspaces() {
		if ws.ID == ref || strings.EqualFold(ws.Name, ref) {
			return ws, nil
		}
	}
	return model.Workspace{}, ErrNotFound("workspace", ref)
}

func workspacesList(ctx context.Context, e *Env) error {
	if err := e.App.Workspaces.Load(ctx); err != nil {
		return err
	}
	list := e.App.Workspaces.Workspaces()
	activeID := e.App.Workspaces.ActiveID()

	return e.emit(map[string]any{"workspaces": list, "activeId": activeID}, func() {
		t := NewTable("", "ID", "NAME", "MEMORIES", "CONVERSATIONS", "MEMBERS")
		for _, ws := range list {
			mark := ""
			if ws.ID == activeID {
				mark = "*"
			}
			t.Add(mark, ws.ID, ws.Name,
				fmt.Sprint(ws.Stats.TotalMemories),
				fmt.Sprint(ws.Stats.TotalConversations),
				fmt.Sprint(len(ws.Members)))
		}
		t.Render(e.Out, "No workspaces yet. Create one with 'chimera workspaces create <name>'.")
	})
}

func workspacesCreate(ctx context.Context, e *Env) error {
	name := strings.TrimSpace(JoinPositionalArgs(e.Params, 1))
	if name == "" {
		return ErrMissingArgument("name", "chimera workspaces create <name> [--description TEXT]")
	}
	ws, err := e.App.Workspaces.Create(ctx, name, e.Params.Flag("description"))
	if err != nil {
		return err
	}
	if err := e.App.Workspaces.SetActive(ws.ID); err != nil {
		return err
	}
	return e.done(ws, fmt.Sprintf("Created workspace %s (%s) and made it active", ws.Name, ws.ID))
}

func workspacesUse(ctx context.Context, e *Env) error {
	if e.Params.Positional(1) == "" {
		return ErrMissingArgument("workspace", "chimera workspaces use <id|name>")
	}
	ws, err := e.workspaceRef(ctx, 1)
	if err != nil {
		return err
	}
	if err := e.App.Workspaces.SetActive(ws.ID); err != nil {
		return err
	}
	return e.done(ws, fmt.Sprintf("Active workspace is now %s", ws.Name))
}

func workspacesUpdate(ctx context.Context, e *Env) error {
	if e.Params.Positional(1) == "" {
		return ErrMissingArgument("workspace", "chimera workspaces update <id|name> [--name NAME] [--description TEXT]")
	}
	ws, err := e.workspaceRef(ctx, 1)
	if err != nil {
		return err
	}

	var upd api.WorkspaceUpdate
	if e.Params.HasFlag("name") {
		name := e.Params.Flag("name")
		upd.Name = &name
	}
	if e.Params.HasFlag("description") {
		desc := e.Params.Flag("description")
		upd.Description = &desc
	}
	if upd.Name == nil && upd.Description == nil {
		return &UsageError{Message: "nothing to update: pass --name or --description"}
	}

	updated, err := e.App.Workspaces.Update(ctx, ws.ID, upd)
	if err != nil {
		return err
	}
	return e.done(updated, "Updated workspace "+updated.Name)
}

func workspacesDelete(ctx context.Context, e *Env) error {
	if e.Params.Positional(1) == "" {
		return ErrMissingArgument("workspace", "chimera workspaces delete <id|name> [--yes]")
	}
	ws, err := e.workspaceRef(ctx, 1)
	if err != nil {
		return err
	}
	ok, err := e.confirm(fmt.Sprintf("delete workspace %q with all its conversations and memories", ws.Name), "")
	if err != nil || !ok {
		return err
	}
	if err := e.App.Workspaces.Delete(ctx, ws.ID); err != nil {
		return err
	}
	return e.done(map[string]string{"id": ws.ID}, "Deleted workspace "+ws.Name)
}

func workspacesDashboard(ctx context.Context, e *Env) error {
	ws, err := e.workspaceRef(ctx, 1)
	if err != nil {
		return err
	}
	dash, err := e.App.Workspaces.Dashboard(ctx, ws.ID)
	if err != nil {
		return err
	}
	return e.emit(dash, func() {
		fmt.Fprintln(e.Out, TitleStyle.Render(ws.Name))
		s := dash.Stats
		Fields(e.Out,
			"Memories", fmt.Sprint(s.TotalMemories),
			"Embeddings", fmt.Sprint(s.TotalEmbeddings),
			"Conversations", fmt.Sprint(s.TotalConversations),
			"System load", fmt.Sprintf("%.1f%%", s.SystemLoad),
			"Last activity", formatTime(s.LastActivity),
		)
		if n := len(dash.NeuralLoad); n > 0 {
			fmt.Fprintln(e.Out, SectionStyle.Render("Neural load"))
			fmt.Fprintln(e.Out, "  "+sparkline(dash.NeuralLoad))
		}
		if len(dash.RecentActivity) > 0 {
			fmt.Fprintln(e.Out, SectionStyle.Render("Recent activity"))
			for _, a := range dash.RecentActivity {
				fmt.Fprintln(e.Out, "  "+describeActivity(a))
			}
		}
	})
}

func workspacesLoad(ctx context.Context, e *Env) error {
	ws, err := e.workspaceRef(ctx, 1)
	if err != nil {
		return err
	}
	load, err := e.App.Workspaces.RecordLoad(ctx, ws.ID)
	if err != nil {
		return err
	}
	return e.emit(map[string]any{"workspaceId": ws.ID, "systemLoad": load}, func() {
		fmt.Fprintf(e.Out, "%s load: %.1f%%\n", ws.Name, load)
	})
}

// sparkline draws load samples (0-100) as block characters.
func sparkline(samples []model.LoadSample) string {
	blocks := []rune("▁▂▃▄▅▆▇█")
	var b strings.Builder
	for _, s := range samples {
		i := int(s.Value / 100 * float64(len(blocks)-1))
		i = max(0, min(i, len(blocks)-1))
		b.WriteRune(blocks[i])
	}
	return HighlightStyle.Render(b.String())
}

func describeActivity(a model.Activity) string {
	var parts []string
	for _, k := range []string{"type", "title", "description", "user"} {
		if v, ok := a[k]; ok && v != nil {
			parts = append(parts, fmt.Sprint(v))
		}
	}
	if len(parts) == 0 {
		return fmt.Sprint(map[string]any(a))
	}
	return strings.Join(parts, " - ")
}
