// Package richtext renders section collections as Markdown for the
// terminal. It uses glamour for terminal-friendly Markdown rendering.
package richtext

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/studioline/shootplan/internal/models"
)

// DefaultWidth is the wrap width when the terminal size is unknown.
const DefaultWidth = 80

// SectionsMarkdown renders one collection as a Markdown document, in order,
// with each section's id next to its title.
func SectionsMarkdown(kind models.SectionKind, sections []models.Section) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", heading(string(kind)))
	if len(sections) == 0 {
		b.WriteString("\n_No sections yet._\n")
		return b.String()
	}
	for _, s := range sections {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			title = "Untitled"
		}
		fmt.Fprintf(&b, "\n## %s `#%d`\n\n", escape(title), s.ID)
		switch s.Type {
		case models.SectionList:
			for _, item := range s.Items {
				if strings.TrimSpace(item) == "" {
					continue
				}
				fmt.Fprintf(&b, "- %s\n", escape(item))
			}
		default:
			if text := strings.TrimSpace(s.Text); text != "" {
				b.WriteString(text)
				b.WriteString("\n")
			}
		}
	}
	return b.String()
}

func heading(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// escape keeps titles and list items from turning into Markdown syntax.
// Text bodies are authored as Markdown and pass through untouched.
func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "#", `\#`, "[", `\[`, "]", `\]`)
	return r.Replace(s)
}

// Render renders Markdown for terminal display using glamour.
func Render(md string, width int) (string, error) {
	if md == "" {
		return "", nil
	}
	if width <= 0 {
		width = DefaultWidth
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", err
	}

	out, err := r.Render(md)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}
