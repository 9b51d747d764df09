package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// OutputFormat selects how commands print results.
type OutputFormat string

const (
	// FormatTable renders rounded go-pretty tables.
	FormatTable OutputFormat = "table"
	// FormatPlain renders kubectl-style columns for piping.
	FormatPlain OutputFormat = "plain"
	// FormatJSON renders indented JSON.
	FormatJSON OutputFormat = "json"
)

// ParseOutputFormat validates s.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(s); f {
	case FormatTable, FormatPlain, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want table, plain or json)", s)
	}
}

// Table is implemented by both the rounded and the plain renderer.
type Table interface {
	SetHeaders(headers []string)
	AppendRow(row []string)
	Render()
}

// NewTable returns a renderer for format writing to w. FormatJSON has no
// table form and falls back to plain.
func NewTable(format OutputFormat, w io.Writer) Table {
	if format == FormatTable {
		tw := table.NewWriter()
		tw.SetStyle(table.StyleRounded)
		tw.Style().Format.Header = text.FormatUpper
		return &prettyTable{tw: tw, out: w}
	}
	return NewPlainTableWriter(w)
}

type prettyTable struct {
	tw  table.Writer
	out io.Writer
}

func (p *prettyTable) SetHeaders(headers []string) {
	row := make(table.Row, len(headers))
	for i, h := range headers {
		row[i] = h
	}
	p.tw.AppendHeader(row)
}

func (p *prettyTable) AppendRow(cells []string) {
	row := make(table.Row, len(cells))
	for i, c := range cells {
		row[i] = c
	}
	p.tw.AppendRow(row)
}

func (p *prettyTable) Render() {
	fmt.Fprintln(p.out, p.tw.Render())
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// FormatSuccess formats a success message for CLI output
func FormatSuccess(msg string) string {
	return text.FgGreen.Sprintf("✓ %s", msg)
}

// FormatWarning formats a warning message for CLI output
func FormatWarning(msg string) string {
	return text.FgYellow.Sprintf("⚠ %s", msg)
}

// FormatError formats an error message for CLI output
func FormatError(err error) string {
	return text.FgRed.Sprintf("Error: %v", err)
}
