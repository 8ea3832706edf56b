// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// output.go - JSON responses and column tables.
//
// With --json every command writes exactly one JSONResponse to stdout and
// human-readable chatter goes to stderr.

package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// =============================================================================
// JSON RESPONSES
// =============================================================================

// JSONResponse is the envelope of --json output.
type JSONResponse struct {
	Success   bool           `json:"success"`
	Command   string         `json:"command,omitempty"`
	Data      any            `json:"data"`
	Error     *string        `json:"error"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// NewJSONResponse creates a successful response.
func NewJSONResponse(command string, data any) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Command:   command,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// NewJSONErrorResponse creates a failure response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	msg := err.Error()
	return &JSONResponse{
		Success:   false,
		Command:   command,
		Error:     &msg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Write encodes the response, indented, to w.
func (r *JSONResponse) Write(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// String returns the indented JSON.
func (r *JSONResponse) String() string {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"success":false,"error":"failed to marshal response: %s","timestamp":"%s"}`,
			err.Error(), time.Now().UTC().Format(time.RFC3339))
	}
	return string(data)
}

// =============================================================================
// TABLES
// =============================================================================

// maxCellWidth caps a column so long titles do not wrap the terminal.
const maxCellWidth = 48

// Table is a simple left-aligned column layout measured in display cells,
// so CJK titles and emoji line up.
type Table struct {
	Headers []string
	Rows    [][]string
}

// NewTable starts a table with the given headers.
func NewTable(headers ...string) *Table {
	return &Table{Headers: headers}
}

// Add appends a row. Missing cells render empty.
func (t *Table) Add(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table to w. An empty table writes empty instead.
func (t *Table) Render(w io.Writer, empty string) {
	if len(t.Rows) == 0 {
		fmt.Fprintln(w, DimStyle.Render(empty))
		return
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = cellWidth(h)
	}
	for _, row := range t.Rows {
		for i := range widths {
			if i < len(row) {
				widths[i] = max(widths[i], min(cellWidth(row[i]), maxCellWidth))
			}
		}
	}

	line := func(cells []string, style func(string) string) {
		parts := make([]string, len(widths))
		for i, width := range widths {
			var cell string
			if i < len(cells) {
				cell = cells[i]
				if cellWidth(cell) > maxCellWidth {
					cell = runewidth.Truncate(cell, maxCellWidth, "...")
				}
			}
			if pad := width - cellWidth(cell); i < len(widths)-1 && pad > 0 {
				cell += strings.Repeat(" ", pad)
			}
			parts[i] = cell
		}
		fmt.Fprintln(w, style(strings.TrimRight(strings.Join(parts, "  "), " ")))
	}

	line(t.Headers, func(s string) string { return LabelStyle.Width(0).Render(s) })
	for _, row := range t.Rows {
		line(row, func(s string) string { return s })
	}
}

// cellWidth is the display width of s. Styled cells (status badges) carry
// ANSI sequences, which take no space.
func cellWidth(s string) int {
	if strings.Contains(s, "\x1b[") {
		return lipgloss.Width(s)
	}
	return runewidth.StringWidth(s)
}

// =============================================================================
// FIELD LISTS
// =============================================================================

// Fields prints label/value pairs with aligned labels.
func Fields(w io.Writer, pairs ...string) {
	labelWidth := 0
	for i := 0; i < len(pairs); i += 2 {
		labelWidth = max(labelWidth, runewidth.StringWidth(pairs[i]))
	}
	for i := 0; i+1 < len(pairs); i += 2 {
		label := runewidth.FillRight(pairs[i]+":", labelWidth+1)
		fmt.Fprintf(w, "  %s  %s\n", LabelStyle.Width(0).Render(label), pairs[i+1])
	}
}

// formatTime renders t for tables, or "-" when unset.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
