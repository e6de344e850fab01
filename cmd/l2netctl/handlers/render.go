package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

var (
	colorBlue = lipgloss.Color("#3b82f6")
	colorDim  = lipgloss.Color("#6b7280")
	colorRed  = lipgloss.Color("#ef4444")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(colorBlue)
	dimStyle    = lipgloss.NewStyle().Foreground(colorDim)
	redStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

// stdout is where handlers write. Tests replace it.
var stdout io.Writer = os.Stdout

// table is a rendered-once text table.
type table struct {
	headers []string
	rows    [][]string
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

// render lays out the table with columns padded to their widest cell.
// Styling is only applied when color is true.
func (t *table) render(color bool) string {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = len(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if i < len(widths) && lipgloss.Width(cell) > widths[i] {
				widths[i] = lipgloss.Width(cell)
			}
		}
	}

	line := func(cells []string, style *lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			padded := cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if color && style != nil {
				padded = style.Render(padded)
			}
			parts[i] = padded
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	var b strings.Builder
	b.WriteString(line(t.headers, &headerStyle))
	b.WriteString("\n")
	if len(t.rows) == 0 {
		empty := "(none)"
		if color {
			empty = dimStyle.Render(empty)
		}
		b.WriteString(empty + "\n")
		return b.String()
	}
	for _, row := range t.rows {
		b.WriteString(line(row, nil))
		b.WriteString("\n")
	}
	return b.String()
}

// write encodes v in format, or prints tbl for the table format.
func write(format string, v any, tbl *table) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatTable, "":
		_, err := fmt.Fprint(stdout, tbl.render(isInteractiveTTY()))
		return err
	default:
		return fmt.Errorf("unknown output format %q (want table, yaml or json)", format)
	}
}

// ValidateFormat rejects unknown output formats before any work is done.
func ValidateFormat(format string) error {
	switch format {
	case FormatTable, FormatYAML, FormatJSON, "":
		return nil
	default:
		return fmt.Errorf("unknown output format %q (want table, yaml or json)", format)
	}
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func isInteractiveTTY() bool {
	f, ok := stdout.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
