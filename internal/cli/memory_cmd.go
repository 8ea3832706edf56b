// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/jeranaias/chimera-cli/internal/api"
	"github.com/jeranaias/chimera-cli/internal/model"
	"github.com/jeranaias/chimera-cli/internal/util"
)

const memoriesUsage = `chimera memories [list] [--search TEXT] [--sort recent|title|relevance]
chimera memories show <memory>
chimera memories create --title TITLE (--content TEXT | --file PATH) [--tags a,b]
chimera memories update <memory> [--title TITLE] [--content TEXT | --file PATH] [--tags a,b]
chimera memories delete <memory> [--yes]
chimera memories search <query...> [--top-k N]
chimera memories reembed <memory>
chimera memories import-url <url> [--summarize]
chimera memories import-file <path> [--summarize]`

// maxImportSize mirrors the backend's upload limit.
const maxImportSize = 10 << 20

func runMemories(ctx context.Context, e *Env) error {
	switch sub := e.sub("list"); sub {
	case "list", "ls":
		return memoriesList(ctx, e)
	case "show", "view":
		return memoriesShow(ctx, e)
	case "create", "new", "add":
		return memoriesCreate(ctx, e)
	case "update", "edit":
		return memoriesUpdate(ctx, e)
	case "delete", "rm":
		return memoriesDelete(ctx, e)
	case "search", "find":
		return memoriesSearch(ctx, e)
	case "reembed", "re-embed":
		return memoriesReEmbed(ctx, e)
	case "import-url":
		return memoriesImportURL(ctx, e)
	case "import-file", "import":
		return memoriesImportFile(ctx, e)
	default:
		return ErrUnknownSubcommand("memories", sub, memoriesUsage)
	}
}

func (e *Env) memoryArg(ctx context.Context, index int) (string, error) {
	ref, err := e.Params.Require(index, "memory", memoriesUsage)
	if err != nil {
		return "", err
	}
	return e.resolveMemory(ctx, ref)
}

func memoriesList(ctx context.Context, e *Env) error {
	ws, err := e.workspace(ctx)
	if err != nil {
		return err
	}
	sortBy := e.Params.Flag("sort")
	if sortBy != "" && sortBy != "recent" && sortBy != "title" && sortBy != "relevance" {
		return ErrInvalidChoice("--sort", sortBy, []string{"recent", "title", "relevance"})
	}
	if err := e.App.Memories.Load(ctx, ws.ID, e.Params.Flag("search"), sortBy); err != nil {
		return err
	}
	list := e.App.Memories.Memories()

	return e.emit(map[string]any{"workspaceId": ws.ID, "memories": list}, func() {
		t := NewTable("ID", "TITLE", "TAGS", "EMBEDDED", "UPDATED")
		for _, m := range list {
			embedded := "no"
			if m.HasEmbedding() {
				embedded = "yes"
			}
			t.Add(m.ID, m.Title, strings.Join(m.Tags, ","), embedded, formatTime(m.UpdatedAt))
		}
		t.Render(e.Out, "No memories. Add one with 'chimera memories create' or 'chimera memories import-file'.")
	})
}

func memoriesShow(ctx context.Context, e *Env) error {
	id, err := e.memoryArg(ctx, 1)
	if err != nil {
		return err
	}
	mem, err := e.App.Memories.Fetch(ctx, id)
	if err != nil {
		return err
	}
	return e.emit(mem, func() {
		fmt.Fprintln(e.Out, TitleStyle.Render(mem.Title))
		Fields(e.Out,
			"ID", mem.ID,
			"Tags", strings.Join(mem.Tags, ", "),
			"Version", fmt.Sprint(mem.Version),
			"Embedded", fmt.Sprint(mem.HasEmbedding()),
			"Updated", formatTime(mem.UpdatedAt),
		)
		fmt.Fprintln(e.Out)
		_, md := e.renderer()
		fmt.Fprintln(e.Out, md.Render(mem.Content, GetTerminalWidth()))
	})
}

func (e *Env) memoryInput() (api.MemoryInput, error) {
	content, err := e.readContent()
	if err != nil {
		return api.MemoryInput{}, err
	}
	return api.MemoryInput{
		Title:   strings.TrimSpace(e.Params.Flag("title")),
		Content: content,
		Tags:    SplitList(e.Params.Flag("tags")),
	}, nil
}

func memoriesCreate(ctx context.Context, e *Env) error {
	ws, err := e.workspace(ctx)
	if err != nil {
		return err
	}
	in, err := e.memoryInput()
	if err != nil {
		return err
	}
	if in.Title == "" {
		return ErrMissingArgument("--title", memoriesUsage)
	}
	if strings.TrimSpace(in.Content) == "" {
		return ErrMissingArgument("--content or --file", memoriesUsage)
	}
	mem, err := e.App.Memories.Create(ctx, ws.ID, in)
	if err != nil {
		return err
	}
	return e.done(mem, fmt.Sprintf("Created memory %s (%s)", mem.Title, mem.ID))
}

func memoriesUpdate(ctx context.Context, e *Env) error {
	id, err := e.memoryArg(ctx, 1)
	if err != nil {
		return err
	}
	in, err := e.memoryInput()
	if err != nil {
		return err
	}
	if in.Title == "" && in.Content == "" && in.Tags == nil {
		return &UsageError{Message: "nothing to update: pass --title, --content, --file or --tags"}
	}
	mem, err := e.App.Memories.Update(ctx, id, in)
	if err != nil {
		return err
	}
	return e.done(mem, fmt.Sprintf("Updated memory %s (version %d)", mem.Title, mem.Version))
}

func memoriesDelete(ctx context.Context, e *Env) error {
	id, err := e.memoryArg(ctx, 1)
	if err != nil {
		return err
	}
	ok, err := e.confirm("delete memory "+id, "")
	if err != nil || !ok {
		return err
	}
	if err := e.App.Memories.Delete(ctx, id); err != nil {
		return err
	}
	return e.done(map[string]string{"id": id}, "Deleted memory "+id)
}

func memoriesSearch(ctx context.Context, e *Env) error {
	query := strings.TrimSpace(JoinPositionalArgs(e.Params, 1))
	if query == "" {
		return ErrMissingArgument("query", "chimera memories search <query...> [--top-k N]")
	}
	ws, err := e.workspace(ctx)
	if err != nil {
		return err
	}
	topK, err := e.Params.FlagInt("top-k")
	if err != nil {
		return err
	}
	if topK <= 0 {
		topK = api.DefaultTopK
	}

	hits, err := e.App.Memories.Search(ctx, query, ws.ID, topK)
	if err != nil {
		return err
	}
	return e.emit(map[string]any{"query": query, "results": hits}, func() {
		t := NewTable("SCORE", "ID", "TITLE", "SNIPPET")
		for _, h := range hits {
			t.Add(fmt.Sprintf("%.2f", h.Score), h.ID, h.Title, util.TruncateRunes(oneLine(h.Snippet), 60))
		}
		t.Render(e.Out, "No matching memories.")
	})
}

func memoriesReEmbed(ctx context.Context, e *Env) error {
	id, err := e.memoryArg(ctx, 1)
	if err != nil {
		return err
	}
	mem, err := e.App.Memories.ReEmbed(ctx, id)
	if err != nil {
		return err
	}
	return e.done(mem, "Regenerated embedding for "+mem.Title)
}

func memoriesImportURL(ctx context.Context, e *Env) error {
	pageURL, err := e.Params.Require(1, "url", "chimera memories import-url <url> [--summarize]")
	if err != nil {
		return err
	}
	ws, err := e.workspace(ctx)
	if err != nil {
		return err
	}
	e.notef("Fetching %s...", pageURL)
	res, err := e.App.Memories.ImportURL(ctx, ws.ID, pageURL, e.Params.BoolFlag("summarize"))
	if err != nil {
		return err
	}
	return e.done(res, importMessage(res))
}

// memoriesImportFile uploads a document. HTML is converted to Markdown here
// and stored as a plain memory, so the stored content is readable text.
func memoriesImportFile(ctx context.Context, e *Env) error {
	path, err := e.Params.Require(1, "path", "chimera memories import-file <path> [--summarize]")
	if err != nil {
		return err
	}
	ws, err := e.workspace(ctx)
	if err != nil {
		return err
	}

	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() > maxImportSize {
		return &ValidationError{Field: "file", Value: path, Reason: "larger than " + formatBytes(maxImportSize)}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		mem, err := importHTML(ctx, e, ws.ID, path)
		if err != nil {
			return err
		}
		res := &model.ImportResult{Memory: *mem, SourceType: "file", FileType: "html", OriginalFilename: filepath.Base(path)}
		return e.done(res, importMessage(res))
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	e.notef("Uploading %s (%s)...", filepath.Base(path), formatBytes(info.Size()))
	res, err := e.App.Memories.ImportFile(ctx, ws.ID, filepath.Base(path), f, e.Params.BoolFlag("summarize"))
	if err != nil {
		return err
	}
	return e.done(res, importMessage(res))
}

func importHTML(ctx context.Context, e *Env, workspaceID, path string) (*model.Memory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	content, err := htmltomarkdown.ConvertString(string(data))
	if err != nil {
		return nil, NewCommandError("memories", "import-file", "could not convert HTML", err)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, &ValidationError{Field: "file", Value: path, Reason: "no text content"}
	}

	title := strings.TrimSpace(e.Params.Flag("title"))
	if title == "" {
		title = markdownTitle(content)
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return e.App.Memories.Create(ctx, workspaceID, api.MemoryInput{
		Title:   title,
		Content: content,
		Tags:    SplitList(e.Params.Flag("tags")),
		Metadata: map[string]any{
			"source_type":       "file",
			"file_type":         "html",
			"original_filename": filepath.Base(path),
		},
	})
}

// markdownTitle returns the text of the first heading, if any.
func markdownTitle(md string) string {
	for _, line := range strings.Split(md, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "#") {
			return strings.TrimSpace(strings.TrimLeft(line, "#"))
		}
	}
	return ""
}

func importMessage(res *model.ImportResult) string {
	msg := fmt.Sprintf("Imported %q as memory %s", res.Memory.Title, res.Memory.ID)
	if res.WasSummarized {
		msg += " (summarized)"
	}
	return msg
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
