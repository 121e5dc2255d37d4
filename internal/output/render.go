package output

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"charm.land/lipgloss/v2"
	"charm.land/lipgloss/v2/table"
	"github.com/charmbracelet/x/term"
)

// Renderer handles styled terminal output.
type Renderer struct {
	width  int
	styled bool

	Summary lipgloss.Style
	Muted   lipgloss.Style
	Error   lipgloss.Style
	Hint    lipgloss.Style
	Warning lipgloss.Style
	Success lipgloss.Style
	Header  lipgloss.Style
	Cell    lipgloss.Style
}

// NewRenderer creates a renderer. Styling is enabled when writing to a TTY,
// or when forceStyled is true, unless NO_COLOR is set.
func NewRenderer(w io.Writer, forceStyled bool) *Renderer {
	width, tty := terminalInfo(w)
	styled := (tty || forceStyled) && os.Getenv("NO_COLOR") == ""

	r := &Renderer{width: width, styled: styled}
	if !styled {
		plain := lipgloss.NewStyle()
		r.Summary, r.Muted, r.Error, r.Hint = plain, plain, plain, plain
		r.Warning, r.Success, r.Header, r.Cell = plain, plain, plain, plain
		return r
	}
	r.Summary = lipgloss.NewStyle().Foreground(lipgloss.Color("#7aa2f7")).Bold(true)
	r.Muted = lipgloss.NewStyle().Foreground(lipgloss.Color("#787c99"))
	r.Error = lipgloss.NewStyle().Foreground(lipgloss.Color("#f7768e")).Bold(true)
	r.Hint = lipgloss.NewStyle().Foreground(lipgloss.Color("#787c99")).Italic(true)
	r.Warning = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	r.Success = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a"))
	r.Header = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	r.Cell = lipgloss.NewStyle().Padding(0, 1)
	return r
}

// terminalInfo returns the terminal width and whether w is a TTY.
func terminalInfo(w io.Writer) (width int, isTTY bool) {
	width = 100
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(f.Fd()) {
		return width, false
	}
	if tw, _, err := term.GetSize(f.Fd()); err == nil && tw > 0 {
		width = tw
	}
	return width, true
}

// RenderResponse renders a success response.
func (r *Renderer) RenderResponse(w io.Writer, resp *Response) error {
	var b strings.Builder

	if resp.Summary != "" {
		b.WriteString(r.Summary.Render(resp.Summary))
		b.WriteString("\n\n")
	}
	for _, n := range resp.Notices {
		b.WriteString(r.Warning.Render("! " + n))
		b.WriteString("\n")
	}
	if len(resp.Notices) > 0 {
		b.WriteString("\n")
	}

	r.renderData(&b, normalizeData(resp.Data))

	if len(resp.Breadcrumbs) > 0 {
		b.WriteString("\n")
		b.WriteString(r.Muted.Render("Next:"))
		b.WriteString("\n")
		for _, bc := range resp.Breadcrumbs {
			fmt.Fprintf(&b, "  %s  %s\n", bc.Cmd, r.Muted.Render(bc.Description))
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError renders an error response.
func (r *Renderer) RenderError(w io.Writer, resp *ErrorResponse) error {
	var b strings.Builder
	b.WriteString(r.Error.Render("Error: " + resp.Error))
	b.WriteString("\n")
	keys := make([]string, 0, len(resp.Fields))
	for k := range resp.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s  %s\n", r.Muted.Render(k), resp.Fields[k])
	}
	if resp.Hint != "" {
		b.WriteString(r.Hint.Render(resp.Hint))
		b.WriteString("\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func (r *Renderer) renderData(b *strings.Builder, data any) {
	switch d := data.(type) {
	case []any:
		rows := toMapSlice(d)
		if rows == nil {
			for _, item := range d {
				fmt.Fprintf(b, "- %s\n", formatCell(item))
			}
			return
		}
		r.renderTable(b, rows)
	case map[string]any:
		r.renderObject(b, d)
	case nil:
	default:
		fmt.Fprintf(b, "%s\n", formatCell(d))
	}
}

func toMapSlice(slice []any) []map[string]any {
	if len(slice) == 0 {
		return nil
	}
	out := make([]map[string]any, 0, len(slice))
	for _, item := range slice {
		m, ok := item.(map[string]any)
		if !ok {
			return nil
		}
		out = append(out, m)
	}
	return out
}

// renderTable prints scalar columns of a homogeneous object list.
func (r *Renderer) renderTable(b *strings.Builder, data []map[string]any) {
	cols := scalarColumns(data)
	t := table.New().
		Border(lipgloss.HiddenBorder()).
		Headers(headers(cols)...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.Header
			}
			return r.Cell
		})
	for _, item := range data {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = formatCell(item[c])
		}
		t.Row(cells...)
	}
	b.WriteString(t.String())
	b.WriteString("\n")
}

func (r *Renderer) renderObject(b *strings.Builder, data map[string]any) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := data[k]
		switch nested := v.(type) {
		case []any:
			fmt.Fprintf(b, "%s:\n", r.Muted.Render(formatHeader(k)))
			if rows := toMapSlice(nested); rows != nil {
				r.renderTable(b, rows)
				continue
			}
			for _, item := range nested {
				fmt.Fprintf(b, "  - %s\n", formatCell(item))
			}
		default:
			fmt.Fprintf(b, "%s  %s\n", r.Muted.Render(formatHeader(k)+":"), formatCell(v))
		}
	}
}

// scalarColumns returns keys whose values are scalars, with "id" and
// "name" first and the rest sorted.
func scalarColumns(data []map[string]any) []string {
	seen := map[string]bool{}
	for _, item := range data {
		for k, v := range item {
			switch v.(type) {
			case map[string]any, []any:
				continue
			}
			seen[k] = true
		}
	}
	var cols []string
	for _, k := range []string{"id", "name"} {
		if seen[k] {
			cols = append(cols, k)
			delete(seen, k)
		}
	}
	rest := make([]string, 0, len(seen))
	for k := range seen {
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(cols, rest...)
}

func headers(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = formatHeader(c)
	}
	return out
}

// formatHeader turns camelCase or snake_case keys into Title Case.
func formatHeader(key string) string {
	var b strings.Builder
	for i, r := range key {
		switch {
		case r == '_':
			b.WriteByte(' ')
			continue
		case i > 0 && r >= 'A' && r <= 'Z':
			b.WriteByte(' ')
		}
		if i == 0 {
			b.WriteString(strings.ToUpper(string(r)))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func formatCell(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		if v {
			return "yes"
		}
		return "no"
	case map[string]any:
		if name, ok := v["name"].(string); ok {
			return name
		}
		return fmt.Sprintf("%v", v)
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, formatCell(item))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprintf("%v", v)
	}
}
