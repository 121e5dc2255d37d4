package commands

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/studioline/shootplan/internal/appctx"
	"github.com/studioline/shootplan/internal/models"
	"github.com/studioline/shootplan/internal/output"
	"github.com/studioline/shootplan/internal/richtext"
	"github.com/studioline/shootplan/internal/sections"
)

// NewSectionsCmd creates the sections command group.
func NewSectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sections",
		Aliases: []string{"section"},
		Short:   "Edit a project's brief and logistics",
		Long: "A project carries two ordered collections of sections, the brief and the logistics. " +
			"A section is text or a list. Every change saves the whole collection; a failed save " +
			"leaves the project as it was.",
	}

	cmd.AddCommand(
		newSectionsListCmd(),
		newSectionsAddCmd(),
		newSectionsEditCmd(),
		newSectionsDeleteCmd(),
	)

	return cmd
}

// sectionFlags are the content flags shared by add and edit.
type sectionFlags struct {
	kind   string
	typ    string
	title  string
	text   string
	items  []string
	append []string
	file   string
}

func (f *sectionFlags) registerKind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.kind, "kind", "k", "", "Collection: brief or logistics")
	_ = cmd.MarkFlagRequired("kind")
}

func (f *sectionFlags) registerContent(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.title, "title", "t", "", "Section title")
	cmd.Flags().StringVar(&f.text, "text", "", "Body of a text section (Markdown)")
	cmd.Flags().StringArrayVar(&f.items, "item", nil, "List item; replaces the list (repeatable)")
}

func (f *sectionFlags) parseKind() (models.SectionKind, error) {
	k, err := models.ParseSectionKind(f.kind)
	if err != nil {
		return "", output.ErrUsage(err.Error())
	}
	return k, nil
}

// openEditor loads the project's collections and returns the editor for
// the requested kind.
func openEditor(cmd *cobra.Command, app *appctx.App, projectID string, kind models.SectionKind) (*sections.Editor, error) {
	client, err := app.Client()
	if err != nil {
		return nil, err
	}
	set, err := sections.Load(cmd.Context(), client, projectID, sections.WithLogger(app.Logger))
	if err != nil {
		return nil, err
	}
	return set.Get(kind), nil
}

// apply writes the changed content flags to the section being edited.
func (f *sectionFlags) apply(cmd *cobra.Command, ed *sections.Editor, t models.SectionType) error {
	flags := cmd.Flags()
	if flags.Changed("title") {
		if err := ed.SetTitle(f.title); err != nil {
			return err
		}
	}
	if flags.Changed("text") {
		if t != models.SectionText {
			return output.ErrUsage("--text applies to text sections; use --item for lists")
		}
		if err := ed.SetText(f.text); err != nil {
			return err
		}
	}
	if anyChanged(flags, "item", "append-item") {
		if t != models.SectionList {
			return output.ErrUsage("--item applies to list sections; use --text for text")
		}
	}
	if flags.Changed("item") {
		if err := replaceItems(ed, f.items); err != nil {
			return err
		}
	}
	for _, item := range f.append {
		if err := appendItem(ed, item); err != nil {
			return err
		}
	}
	return nil
}

func editedSection(ed *sections.Editor) (models.Section, bool) {
	id, ok := ed.Editing()
	if !ok {
		return models.Section{}, false
	}
	all := ed.Sections()
	i := slices.IndexFunc(all, func(s models.Section) bool { return s.ID == id })
	if i < 0 {
		return models.Section{}, false
	}
	return all[i], true
}

func replaceItems(ed *sections.Editor, items []string) error {
	s, ok := editedSection(ed)
	if !ok {
		return sections.ErrNotEditing
	}
	for range s.Items {
		if err := ed.RemoveItem(0); err != nil {
			return err
		}
	}
	for i, item := range items {
		if err := ed.InsertItem(i, item); err != nil {
			return err
		}
	}
	return nil
}

func appendItem(ed *sections.Editor, item string) error {
	s, ok := editedSection(ed)
	if !ok {
		return sections.ErrNotEditing
	}
	// A new list starts with one blank item; fill it before growing.
	if n := len(s.Items); n > 0 && s.Items[n-1] == "" {
		return ed.SetItem(n-1, item)
	}
	return ed.InsertItem(len(s.Items), item)
}

func parseSectionID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil || id <= 0 {
		return 0, output.ErrUsage(fmt.Sprintf("Invalid section id %q", s))
	}
	return id, nil
}

func sectionsSaved(app *appctx.App, ed *sections.Editor, summary string) error {
	return app.OK(ed.Sections(),
		output.WithSummary(summary),
		output.WithNotices(app.T("SectionsSaved", map[string]any{"Kind": string(ed.Kind())})))
}

// saveFailed adds the rollback notice to a failed save.
func saveFailed(app *appctx.App, kind models.SectionKind, err error) error {
	e := output.AsError(err)
	wrapped := *e
	wrapped.Message = app.T("SectionSaveFailed", map[string]any{"Kind": string(kind)}) + ": " + e.Message
	wrapped.Cause = err
	return &wrapped
}

func newSectionsListCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "list <project>",
		Short: "Show a project's brief and logistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			kinds := []models.SectionKind{models.KindBrief, models.KindLogistics}
			if kind != "" {
				k, err := models.ParseSectionKind(kind)
				if err != nil {
					return output.ErrUsage(err.Error())
				}
				kinds = []models.SectionKind{k}
			}

			client, err := app.Client()
			if err != nil {
				return err
			}
			set, err := sections.Load(cmd.Context(), client, args[0], sections.WithLogger(app.Logger))
			if err != nil {
				return err
			}

			if app.Output.Styled() {
				return renderSections(app, set, kinds)
			}
			result := map[string][]models.Section{}
			total := 0
			for _, k := range kinds {
				result[string(k)] = set.Get(k).Sections()
				total += len(result[string(k)])
			}
			return app.OK(result, output.WithSummary(plural(total, "section")))
		},
	}

	cmd.Flags().StringVarP(&kind, "kind", "k", "", "Only this collection: brief or logistics")

	return cmd
}

func renderSections(app *appctx.App, set sections.Set, kinds []models.SectionKind) error {
	width := richtext.DefaultWidth
	if f, ok := app.Stdout.(interface{ Fd() uintptr }); ok {
		if w, _, err := term.GetSize(f.Fd()); err == nil && w > 0 {
			width = w
		}
	}
	var md string
	for _, k := range kinds {
		md += richtext.SectionsMarkdown(k, set.Get(k).Sections()) + "\n"
	}
	out, err := richtext.Render(md, width)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(app.Stdout, out)
	return err
}

func newSectionsAddCmd() *cobra.Command {
	var f sectionFlags

	cmd := &cobra.Command{
		Use:   "add <project>",
		Short: "Add a section at the top of a collection",
		Long: "Add a section at the top of a collection. With --file, every section in the YAML " +
			"list is added in file order and saved together.",
		Example: `  shootplan sections add p-1 --kind brief --type text --title Mood --text "Warm, late light"
  shootplan sections add p-1 --kind logistics --type list --title Kit --item "2 strobes" --item "C-stands"
  shootplan sections add p-1 --kind brief --file brief.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			kind, err := f.parseKind()
			if err != nil {
				return err
			}

			var specs []sectionFile
			if f.file != "" {
				if err := readYAML(app, f.file, &specs); err != nil {
					return err
				}
				if len(specs) == 0 {
					return output.ErrUsage("No sections in " + f.file)
				}
			}

			ed, err := openEditor(cmd, app, args[0], kind)
			if err != nil {
				return err
			}

			if len(specs) > 0 {
				// Add prepends, so walk the file backwards to keep its order.
				for i := len(specs) - 1; i >= 0; i-- {
					if err := specs[i].add(ed); err != nil {
						return err
					}
				}
			} else {
				t, err := models.ParseSectionType(f.typ)
				if err != nil {
					return output.ErrUsage(err.Error())
				}
				if _, err := ed.Add(t); err != nil {
					return err
				}
				if err := f.apply(cmd, ed, t); err != nil {
					return err
				}
			}

			if err := ed.Commit(cmd.Context()); err != nil {
				return saveFailed(app, kind, err)
			}
			return sectionsSaved(app, ed, fmt.Sprintf("Added %s to %s", plural(max(len(specs), 1), "section"), kind))
		},
	}

	f.registerKind(cmd)
	f.registerContent(cmd)
	cmd.Flags().StringVar(&f.typ, "type", "text", "Section type: text or list")
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "YAML list of sections (- for stdin)")
	cmd.MarkFlagsMutuallyExclusive("file", "title")
	cmd.MarkFlagsMutuallyExclusive("file", "text")
	cmd.MarkFlagsMutuallyExclusive("file", "item")

	return cmd
}

// sectionFile is one entry of a --file list:
//
//   - title: Mood
//     text: Warm, late light
//   - title: Shot list
//     items: [Hero, Detail]
type sectionFile struct {
	Title string   `yaml:"title"`
	Text  string   `yaml:"text"`
	Items []string `yaml:"items"`
}

func (s sectionFile) add(ed *sections.Editor) error {
	t := models.SectionText
	if s.Items != nil {
		t = models.SectionList
	}
	if _, err := ed.Add(t); err != nil {
		return err
	}
	if err := ed.SetTitle(s.Title); err != nil {
		return err
	}
	if t == models.SectionList {
		return replaceItems(ed, s.Items)
	}
	return ed.SetText(s.Text)
}

func newSectionsEditCmd() *cobra.Command {
	var f sectionFlags

	cmd := &cobra.Command{
		Use:   "edit <project> <id>",
		Short: "Change a section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			kind, err := f.parseKind()
			if err != nil {
				return err
			}
			id, err := parseSectionID(args[1])
			if err != nil {
				return err
			}
			if !anyChanged(cmd.Flags(), "title", "text", "item", "append-item") {
				return output.ErrUsage("Nothing to update")
			}

			ed, err := openEditor(cmd, app, args[0], kind)
			if err != nil {
				return err
			}
			if err := ed.Edit(id); err != nil {
				return output.ErrNotFound("section", args[1])
			}
			s, _ := editedSection(ed)
			if err := f.apply(cmd, ed, s.Type); err != nil {
				return err
			}
			if !ed.Dirty() {
				_ = ed.Cancel()
				return app.OK(ed.Sections(), output.WithSummary("No changes"))
			}
			if err := ed.Commit(cmd.Context()); err != nil {
				return saveFailed(app, kind, err)
			}
			return sectionsSaved(app, ed, fmt.Sprintf("Updated section %d in %s", id, kind))
		},
	}

	f.registerKind(cmd)
	f.registerContent(cmd)
	cmd.Flags().StringArrayVar(&f.append, "append-item", nil, "List item to add at the end (repeatable)")

	return cmd
}

func newSectionsDeleteCmd() *cobra.Command {
	var f sectionFlags
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <project> <id>",
		Short: "Delete a section",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			kind, err := f.parseKind()
			if err != nil {
				return err
			}
			id, err := parseSectionID(args[1])
			if err != nil {
				return err
			}
			if err := confirmDelete(app, force, fmt.Sprintf("%s section %d", kind, id)); err != nil {
				return err
			}

			ed, err := openEditor(cmd, app, args[0], kind)
			if err != nil {
				return err
			}
			if err := ed.Delete(cmd.Context(), id); err != nil {
				if errors.Is(err, sections.ErrNoSuchSection) {
					return output.ErrNotFound("section", args[1])
				}
				return saveFailed(app, kind, err)
			}
			return sectionsSaved(app, ed, fmt.Sprintf("Deleted section %d from %s", id, kind))
		},
	}

	f.registerKind(cmd)
	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")

	return cmd
}
