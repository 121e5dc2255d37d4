// Package sections edits a project's brief and logistics collections with
// optimistic local changes and rollback to the last saved copy.
package sections

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/studioline/shootplan/internal/data"
	"github.com/studioline/shootplan/internal/models"
	"github.com/studioline/shootplan/internal/output"
)

// State is the editor's mode.
type State int

const (
	StateView State = iota
	StateEditing
	StateSaving
)

func (s State) String() string {
	switch s {
	case StateEditing:
		return "editing"
	case StateSaving:
		return "saving"
	default:
		return "view"
	}
}

var (
	ErrNotEditing    = errors.New("no section is being edited")
	ErrNoSuchSection = errors.New("no such section")
	ErrWrongType     = errors.New("wrong section type")
	ErrItemRange     = errors.New("list item out of range")
)

// Saver replaces a whole collection remotely and returns what was stored.
type Saver interface {
	SaveSections(ctx context.Context, projectID string, kind models.SectionKind, sections []models.Section) ([]models.Section, error)
}

// Editor owns one collection. Sections is the live copy; the baseline is
// the last copy the server confirmed and only changes after a save.
type Editor struct {
	saver     Saver
	projectID string
	kind      models.SectionKind
	logger    *slog.Logger
	onSaved   func(models.SectionKind, []models.Section)

	sections []models.Section
	baseline []models.Section

	state     State
	editingID int
	// prior remembers where a failed save returns to.
	prior State
	// editSnap is taken when editing starts, for Commit to fall back to.
	editSnap *data.Snapshot[[]models.Section]
}

// Option configures an Editor.
type Option func(*Editor)

// WithOnSaved registers the callback run after every confirmed save.
func WithOnSaved(fn func(models.SectionKind, []models.Section)) Option {
	return func(e *Editor) { e.onSaved = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(e *Editor) { e.logger = l } }

// NewEditor creates an editor over initial, ordered by each section's Order.
func NewEditor(saver Saver, projectID string, kind models.SectionKind, initial []models.Section, opts ...Option) *Editor {
	e := &Editor{saver: saver, projectID: projectID, kind: kind, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	sorted := models.CloneSections(initial)
	if sorted == nil {
		sorted = []models.Section{}
	}
	slices.SortStableFunc(sorted, func(a, b models.Section) int { return cmp.Compare(a.Order, b.Order) })
	e.baseline = sorted
	e.sections = models.CloneSections(sorted)
	return e
}

// Kind returns the collection name.
func (e *Editor) Kind() models.SectionKind { return e.kind }

// Sections returns a copy of the live collection.
func (e *Editor) Sections() []models.Section { return models.CloneSections(e.sections) }

// Baseline returns a copy of the last saved collection.
func (e *Editor) Baseline() []models.Section { return models.CloneSections(e.baseline) }

// State returns the current mode.
func (e *Editor) State() State { return e.state }

// Editing returns the id of the section being edited.
func (e *Editor) Editing() (int, bool) {
	return e.editingID, e.state == StateEditing
}

// Dirty reports whether the live collection differs from the baseline.
func (e *Editor) Dirty() bool {
	return !slices.EqualFunc(e.sections, e.baseline, sectionEqual)
}

func sectionEqual(a, b models.Section) bool {
	return a.ID == b.ID && a.Title == b.Title && a.Type == b.Type &&
		a.Text == b.Text && a.Order == b.Order && slices.Equal(a.Items, b.Items)
}

func (e *Editor) index(id int) int {
	return slices.IndexFunc(e.sections, func(s models.Section) bool { return s.ID == id })
}

func (e *Editor) busy(op string) error {
	if e.state == StateSaving {
		return output.ErrBusy(op + " " + string(e.kind))
	}
	return nil
}

// NextID is one more than the largest id in the collection, or 1 when it
// is empty.
func (e *Editor) NextID() int {
	next := 1
	for _, s := range e.sections {
		next = max(next, s.ID+1)
	}
	return next
}

func (e *Editor) beginEdit(id int) {
	if e.state != StateEditing {
		snap := data.Take(&e.sections, models.CloneSections)
		e.editSnap = &snap
	}
	e.state = StateEditing
	e.editingID = id
}

// Add prepends a blank section and starts editing it.
func (e *Editor) Add(t models.SectionType) (int, error) {
	if err := e.busy("add to"); err != nil {
		return 0, err
	}
	id := e.NextID()
	e.beginEdit(id)
	e.sections = slices.Insert(e.sections, 0, models.NewSection(id, t))
	return id, nil
}

// Edit makes id the single edit target.
func (e *Editor) Edit(id int) error {
	if err := e.busy("edit"); err != nil {
		return err
	}
	if e.index(id) < 0 {
		return fmt.Errorf("edit section %d: %w", id, ErrNoSuchSection)
	}
	e.beginEdit(id)
	return nil
}

func (e *Editor) target() (*models.Section, error) {
	if e.state != StateEditing {
		return nil, ErrNotEditing
	}
	i := e.index(e.editingID)
	if i < 0 {
		return nil, fmt.Errorf("section %d: %w", e.editingID, ErrNoSuchSection)
	}
	return &e.sections[i], nil
}

// SetTitle changes the edited section's title.
func (e *Editor) SetTitle(title string) error {
	s, err := e.target()
	if err != nil {
		return err
	}
	s.Title = title
	return nil
}

// SetText replaces a text section's body.
func (e *Editor) SetText(text string) error {
	s, err := e.target()
	if err != nil {
		return err
	}
	if s.Type != models.SectionText {
		return fmt.Errorf("set text on %s section %d: %w", s.Type, s.ID, ErrWrongType)
	}
	s.Text = text
	return nil
}

func (e *Editor) listTarget() (*models.Section, error) {
	s, err := e.target()
	if err != nil {
		return nil, err
	}
	if s.Type != models.SectionList {
		return nil, fmt.Errorf("edit items of %s section %d: %w", s.Type, s.ID, ErrWrongType)
	}
	return s, nil
}

// SetItem replaces list item i.
func (e *Editor) SetItem(i int, text string) error {
	s, err := e.listTarget()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(s.Items) {
		return fmt.Errorf("item %d of %d: %w", i, len(s.Items), ErrItemRange)
	}
	s.Items[i] = text
	return nil
}

// InsertItem inserts an item before position i; i equal to the length
// appends.
func (e *Editor) InsertItem(i int, text string) error {
	s, err := e.listTarget()
	if err != nil {
		return err
	}
	if i < 0 || i > len(s.Items) {
		return fmt.Errorf("insert at %d of %d: %w", i, len(s.Items), ErrItemRange)
	}
	s.Items = slices.Insert(s.Items, i, text)
	return nil
}

// RemoveItem deletes list item i.
func (e *Editor) RemoveItem(i int) error {
	s, err := e.listTarget()
	if err != nil {
		return err
	}
	if i < 0 || i >= len(s.Items) {
		return fmt.Errorf("remove item %d of %d: %w", i, len(s.Items), ErrItemRange)
	}
	s.Items = slices.Delete(s.Items, i, i+1)
	return nil
}

// Cancel discards every unsaved change.
func (e *Editor) Cancel() error {
	if err := e.busy("cancel"); err != nil {
		return err
	}
	e.sections = models.CloneSections(e.baseline)
	e.toView()
	return nil
}

func (e *Editor) toView() {
	e.state = StateView
	e.editingID = 0
	e.editSnap = nil
}

// Save sends the whole live collection. On failure the live collection is
// left exactly as it was and the editor returns to its previous mode.
func (e *Editor) Save(ctx context.Context) error {
	if err := e.busy("save"); err != nil {
		return err
	}
	return e.send(ctx, e.sections)
}

// Commit saves the item being edited. If the save fails the collection
// goes back to how it was when editing started.
func (e *Editor) Commit(ctx context.Context) error {
	if err := e.busy("save"); err != nil {
		return err
	}
	if e.state != StateEditing {
		return ErrNotEditing
	}
	snap := e.editSnap
	op := data.Optimistic[[]models.Section]{
		Target: &e.sections,
		Clone:  models.CloneSections,
		Commit: e.send,
	}
	if snap != nil {
		op.Rollback = func(_, _ []models.Section) []models.Section { return snap.Value() }
	}
	if err := op.Run(ctx); err != nil {
		e.toView()
		return err
	}
	return nil
}

// Delete removes a section and saves. If the save fails the section is put
// back where it was.
func (e *Editor) Delete(ctx context.Context, id int) error {
	if err := e.busy("delete from"); err != nil {
		return err
	}
	idx := e.index(id)
	if idx < 0 {
		return fmt.Errorf("delete section %d: %w", id, ErrNoSuchSection)
	}
	removed := e.sections[idx].Clone()
	if e.state == StateEditing && e.editingID == id {
		e.toView()
	}
	return data.Optimistic[[]models.Section]{
		Target: &e.sections,
		Clone:  models.CloneSections,
		Apply: func(s []models.Section) []models.Section {
			return slices.Delete(s, idx, idx+1)
		},
		Commit: e.send,
		Rollback: func(current, _ []models.Section) []models.Section {
			if slices.ContainsFunc(current, func(s models.Section) bool { return s.ID == id }) {
				return current
			}
			return slices.Insert(current, min(idx, len(current)), removed)
		},
	}.Run(ctx)
}

// renumber returns a copy of sections with Order following position.
func renumber(sections []models.Section) []models.Section {
	out := models.CloneSections(sections)
	if out == nil {
		out = []models.Section{}
	}
	for i := range out {
		out[i].Order = i + 1
	}
	return out
}

func (e *Editor) send(ctx context.Context, sections []models.Section) error {
	e.prior = e.state
	e.state = StateSaving
	payload := renumber(sections)

	stored, err := e.saver.SaveSections(ctx, e.projectID, e.kind, payload)
	if err != nil {
		e.state = e.prior
		e.logger.Warn("section save failed", "project", e.projectID, "kind", e.kind, "error", err)
		return err
	}
	if len(stored) == 0 {
		// An empty echo means the server stored the payload as sent.
		stored = payload
	}
	e.baseline = models.CloneSections(stored)
	e.sections = models.CloneSections(stored)
	e.toView()
	e.logger.Debug("sections saved", "project", e.projectID, "kind", e.kind, "count", len(stored))
	if e.onSaved != nil {
		e.onSaved(e.kind, models.CloneSections(stored))
	}
	return nil
}
