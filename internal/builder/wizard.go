// Package builder composes a multi-event booking draft and submits it in one
// create call.
//
// The Wizard is owned by a single goroutine. Methods that change an event's
// window return the availability fetch for it as a data.Cmd; nothing in this
// package blocks except Submit.
package builder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/studioline/shootplan/internal/api"
	"github.com/studioline/shootplan/internal/availability"
	"github.com/studioline/shootplan/internal/data"
	"github.com/studioline/shootplan/internal/i18n"
	"github.com/studioline/shootplan/internal/models"
	"github.com/studioline/shootplan/internal/output"
)

// Step is a wizard page.
type Step int

const (
	StepProject Step = 1
	StepEvents  Step = 2
)

var (
	ErrLastEvent           = errors.New("last event")
	ErrNoSuchEvent         = errors.New("no such event")
	ErrWrongStep           = errors.New("wrong step")
	ErrHourOutOfRange      = errors.New("hour out of range")
	ErrMemberNotSelected   = errors.New("no member staged")
	ErrMemberUnknown       = errors.New("member not in availability")
	ErrMemberUnavailable   = errors.New("member unavailable")
	ErrMemberAssigned      = errors.New("member already assigned")
	ErrRoleRequired        = errors.New("role required")
	ErrAvailabilityLoading = errors.New("availability loading")
)

// Creator persists a finished draft.
type Creator interface {
	CreateProject(ctx context.Context, req api.CreateProjectRequest) (models.Project, error)
}

// Availability is the part of availability.Resolver the wizard uses.
type Availability interface {
	Select(ctx context.Context, w models.Window) data.Cmd
	Current() availability.View
}

// Notice is a transient message for the user.
type Notice struct {
	Level   slog.Level
	Message string
}

// Notifier receives notices as they happen.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Wizard holds the draft while the booking flow is open.
//
// The step only gates Next and tells a UI which page to show. Event and
// team setters work from either step, so a draft replayed from a file can
// be filled before step 1 validates and Submit still reports every error.
type Wizard struct {
	creator   Creator
	resolver  Availability
	companyID string
	notifier  Notifier
	onCreated func(models.Project)
	tr        *i18n.Translator
	logger    *slog.Logger
	newID     func() string

	ctx  context.Context
	open bool

	step          Step
	draft         ProjectDraft
	clientEnabled bool
	selected      int
	errors        FieldErrors
	staged        StagedMember
	submitting    bool
}

// Option configures a Wizard.
type Option func(*Wizard)

// WithCompany sets the company the project is created under.
func WithCompany(id string) Option { return func(w *Wizard) { w.companyID = id } }

// WithNotifier routes warnings and confirmations.
func WithNotifier(n Notifier) Option { return func(w *Wizard) { w.notifier = n } }

// WithOnCreated registers the callback run after a successful submit.
func WithOnCreated(fn func(models.Project)) Option { return func(w *Wizard) { w.onCreated = fn } }

// WithTranslator sets the message catalog.
func WithTranslator(t *i18n.Translator) Option { return func(w *Wizard) { w.tr = t } }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return func(w *Wizard) { w.logger = l } }

// WithIDGenerator replaces uuid event ids, for tests.
func WithIDGenerator(fn func() string) Option { return func(w *Wizard) { w.newID = fn } }

// New creates a closed wizard with an empty draft.
func New(creator Creator, resolver Availability, opts ...Option) *Wizard {
	w := &Wizard{
		creator:  creator,
		resolver: resolver,
		notifier: NotifierFunc(func(Notice) {}),
		tr:       i18n.Default(),
		logger:   slog.Default(),
		newID:    uuid.NewString,
		ctx:      context.Background(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.reset()
	return w
}

// Open starts a fresh draft. ctx bounds the fetches issued by returned
// commands until the wizard closes.
func (w *Wizard) Open(ctx context.Context) {
	w.reset()
	w.ctx = ctx
	w.open = true
}

// Close discards the draft. Reopening starts over.
func (w *Wizard) Close() {
	w.reset()
	w.open = false
	w.ctx = context.Background()
}

func (w *Wizard) reset() {
	w.step = StepProject
	w.draft = ProjectDraft{Events: []EventDraft{w.newEvent()}}
	w.clientEnabled = false
	w.selected = 0
	w.errors = FieldErrors{}
	w.staged = StagedMember{}
	w.submitting = false
}

func (w *Wizard) newEvent() EventDraft {
	return EventDraft{ID: w.newID(), Start: DefaultStart, End: DefaultEnd}
}

func (w *Wizard) t(key string, data map[string]any) string { return w.tr.T(key, data) }

func (w *Wizard) warn(msg string) {
	w.notifier.Notify(Notice{Level: slog.LevelWarn, Message: msg})
}

// invalid builds a validation error that matches sentinel with errors.Is.
func (w *Wizard) invalid(sentinel error, key string, data map[string]any) error {
	return &output.Error{Code: output.CodeValidation, Message: w.t(key, data), Cause: sentinel}
}

// IsOpen reports whether a draft is in progress.
func (w *Wizard) IsOpen() bool { return w.open }

// Step returns the current page.
func (w *Wizard) Step() Step { return w.step }

// Draft returns a copy of the draft.
func (w *Wizard) Draft() ProjectDraft { return w.draft.Clone() }

// ClientEnabled reports whether the client block is toggled on.
func (w *Wizard) ClientEnabled() bool { return w.clientEnabled }

// Errors returns the current validation messages. The map is owned by the
// wizard; callers must not modify it.
func (w *Wizard) Errors() FieldErrors { return w.errors }

// Submitting reports whether a create call is in flight.
func (w *Wizard) Submitting() bool { return w.submitting }

// Selected returns the selected event index.
func (w *Wizard) Selected() int { return w.selected }

// SelectedEvent returns a copy of the selected event.
func (w *Wizard) SelectedEvent() EventDraft { return w.draft.Events[w.selected].clone() }

// Staged returns the member being prepared.
func (w *Wizard) Staged() StagedMember { return w.staged }

// Step 1

func (w *Wizard) setProject(name string, apply func(*ProjectDraft)) {
	apply(&w.draft)
	w.recheckProject(name)
}

// recheckProject refreshes the message of a field that already has one, so
// messages clear as the user corrects them but do not appear before the
// first attempt to advance.
func (w *Wizard) recheckProject(name string) {
	k := Field(name)
	if !w.errors.Has(k) {
		return
	}
	if key := projectFieldKey(w.draft, w.clientEnabled, name); key != "" {
		w.errors.Set(k, w.t(key, nil))
		return
	}
	w.errors.Clear(k)
}

func (w *Wizard) SetName(s string) {
	w.setProject(FieldProjectName, func(d *ProjectDraft) { d.Name = s })
}

func (w *Wizard) SetColor(s string) {
	w.setProject(FieldColor, func(d *ProjectDraft) { d.Color = s })
}

func (w *Wizard) SetDescription(s string) {
	w.setProject(FieldDescription, func(d *ProjectDraft) { d.Description = s })
}

func (w *Wizard) SetReminders(r models.Reminders) { w.draft.Reminders = r }

// SetClientEnabled toggles the client block. Turning it off drops the
// client messages; the typed values are kept in case it is turned back on.
func (w *Wizard) SetClientEnabled(on bool) {
	w.clientEnabled = on
	if !on {
		w.errors.Clear(Field(FieldClientName))
		w.errors.Clear(Field(FieldClientEmail))
		w.errors.Clear(Field(FieldClientMobile))
	}
}

func (w *Wizard) SetClientName(s string) {
	w.setProject(FieldClientName, func(d *ProjectDraft) { d.Client.Name = s })
}

func (w *Wizard) SetClientEmail(s string) {
	w.setProject(FieldClientEmail, func(d *ProjectDraft) { d.Client.Email = s })
}

func (w *Wizard) SetClientMobile(s string) {
	w.setProject(FieldClientMobile, func(d *ProjectDraft) { d.Client.Mobile = s })
}

func (w *Wizard) SetClientCC(s string) { w.draft.Client.CC = s }

func (w *Wizard) validateProject() FieldErrors {
	errs := FieldErrors{}
	for _, name := range projectFields {
		if key := projectFieldKey(w.draft, w.clientEnabled, name); key != "" {
			errs.Set(Field(name), w.t(key, nil))
		}
	}
	return errs
}

func (w *Wizard) validationError(errs FieldErrors) error {
	return output.ErrValidation(w.t("FixHighlightedFields", nil), errs.Strings())
}

// Next validates step 1 and moves to the events page. On failure the step
// does not change and Errors holds the messages. The returned command
// fetches availability for the selected event.
func (w *Wizard) Next() (data.Cmd, error) {
	if w.step != StepProject {
		return nil, fmt.Errorf("next from step %d: %w", w.step, ErrWrongStep)
	}
	for _, name := range projectFields {
		w.errors.Clear(Field(name))
	}
	if errs := w.validateProject(); len(errs) > 0 {
		for k, msg := range errs {
			w.errors.Set(k, msg)
		}
		return nil, w.validationError(errs)
	}
	w.step = StepEvents
	return w.refetch(), nil
}

// Back returns to step 1. The events are kept.
func (w *Wizard) Back() { w.step = StepProject }

// Step 2

// Events returns the number of events in the draft.
func (w *Wizard) Events() int { return len(w.draft.Events) }

// refetch returns the availability fetch for the selected event, or nil
// when its window is not complete yet.
func (w *Wizard) refetch() data.Cmd {
	win := w.draft.Events[w.selected].Window()
	if win.Validate() != nil {
		return nil
	}
	return w.resolver.Select(w.ctx, win)
}

// SelectEvent switches the event being edited. The staged member belongs
// to the previous event and is dropped.
func (w *Wizard) SelectEvent(i int) (data.Cmd, error) {
	if i < 0 || i >= len(w.draft.Events) {
		return nil, fmt.Errorf("select event %d: %w", i, ErrNoSuchEvent)
	}
	if i != w.selected {
		w.staged = StagedMember{}
	}
	w.selected = i
	return w.refetch(), nil
}

// AddEvent appends a default event and selects it.
func (w *Wizard) AddEvent() data.Cmd {
	w.draft.Events = append(w.draft.Events, w.newEvent())
	w.selected = len(w.draft.Events) - 1
	w.staged = StagedMember{}
	return w.refetch()
}

// RemoveEvent deletes event i. The last event cannot be removed.
func (w *Wizard) RemoveEvent(i int) (data.Cmd, error) {
	if i < 0 || i >= len(w.draft.Events) {
		return nil, fmt.Errorf("remove event %d: %w", i, ErrNoSuchEvent)
	}
	if len(w.draft.Events) == 1 {
		msg := w.t("LastEventRequired", nil)
		w.warn(msg)
		return nil, &output.Error{Code: output.CodeValidation, Message: msg, Cause: ErrLastEvent}
	}
	w.draft.Events = slices.Delete(w.draft.Events, i, i+1)
	w.errors.removeEvent(i)
	if w.selected >= i && w.selected > 0 {
		w.selected--
	}
	w.staged = StagedMember{}
	return w.refetch(), nil
}

func (w *Wizard) event() *EventDraft { return &w.draft.Events[w.selected] }

func (w *Wizard) recheckEvent(name string) {
	k := EventField(w.selected, name)
	if !w.errors.Has(k) {
		return
	}
	if key := eventFieldKey(*w.event(), name); key != "" {
		w.errors.Set(k, w.t(key, nil))
		return
	}
	w.errors.Clear(k)
}

// SetEventName sets the selected event's name.
func (w *Wizard) SetEventName(s string) data.Cmd {
	w.event().Name = s
	w.recheckEvent(FieldEventName)
	return w.refetch()
}

// SetEventDate sets the selected event's date (YYYY-MM-DD).
func (w *Wizard) SetEventDate(s string) data.Cmd {
	w.event().Date = s
	w.recheckEvent(FieldEventDate)
	return w.refetch()
}

// SetLocation sets the selected event's location.
func (w *Wizard) SetLocation(s string) data.Cmd {
	w.event().Location = s
	w.recheckEvent(FieldLocation)
	return w.refetch()
}

// SetEventReminders sets the selected event's reminder toggles.
func (w *Wizard) SetEventReminders(r models.Reminders) { w.event().Reminders = r }

// StartHourOptions lists the hours an event may start at.
func (w *Wizard) StartHourOptions() []int {
	out := make([]int, 0, 24)
	for h := 0; h < 24; h++ {
		out = append(out, h)
	}
	return out
}

// EndHourOptions lists the hours the selected event may end at: every hour
// after its start, up to midnight.
func (w *Wizard) EndHourOptions() []int {
	var out []int
	for h := w.event().Start.Hour() + 1; h <= 24; h++ {
		out = append(out, h)
	}
	return out
}

// SetStartHour moves the selected event's start. An end at or before the
// new start is pushed to one hour after it.
func (w *Wizard) SetStartHour(h int) (data.Cmd, error) {
	if !slices.Contains(w.StartHourOptions(), h) {
		return nil, fmt.Errorf("start hour %d: %w", h, ErrHourOutOfRange)
	}
	ev := w.event()
	ev.Start = models.FromHour(h)
	if ev.End <= ev.Start {
		ev.End = ev.Start + models.MinutesPerHour
	}
	w.recheckEvent(FieldEventHours)
	return w.refetch(), nil
}

// SetEndHour moves the selected event's end. Only EndHourOptions are
// accepted.
func (w *Wizard) SetEndHour(h int) (data.Cmd, error) {
	if !slices.Contains(w.EndHourOptions(), h) {
		return nil, fmt.Errorf("end hour %d: %w", h, ErrHourOutOfRange)
	}
	w.event().End = models.FromHour(h)
	w.recheckEvent(FieldEventHours)
	return w.refetch(), nil
}

// Team staging

// view returns availability for the selected event's window, refusing
// data that belongs to any other window.
func (w *Wizard) view() (availability.View, error) {
	v := w.resolver.Current()
	if v.Window != w.event().Window() || v.Loading {
		return v, w.invalid(ErrAvailabilityLoading, "AvailabilityLoading", nil)
	}
	if v.Err != nil {
		return v, v.Err
	}
	return v, nil
}

func (w *Wizard) lookup(memberID string) (models.AvailableMember, error) {
	v, err := w.view()
	if err != nil {
		return models.AvailableMember{}, err
	}
	for _, m := range v.Members {
		if m.ID == memberID {
			return m, nil
		}
	}
	return models.AvailableMember{}, w.invalid(ErrMemberUnknown, "MemberUnknown", nil)
}

// StageMember picks a member for the selected event and fills the role
// from the member's default. Unavailable members are refused; partially
// available ones are staged with a warning.
func (w *Wizard) StageMember(memberID string) error {
	m, err := w.lookup(memberID)
	if err != nil {
		return err
	}
	switch m.AvailabilityStatus {
	case models.Unavailable:
		msg := w.t("MemberUnavailable", nil)
		w.warn(msg)
		return &output.Error{Code: output.CodeValidation, Message: msg, Cause: ErrMemberUnavailable}
	case models.PartiallyAvailable:
		w.warn(w.t("MemberPartiallyAvailable", map[string]any{"Name": m.Name, "Count": len(m.Conflicts)}))
	}
	w.staged = StagedMember{MemberID: m.ID, MemberName: m.Name, RoleID: m.Role}
	return nil
}

// SetStagedRole overrides the staged member's role.
func (w *Wizard) SetStagedRole(roleID string) { w.staged.RoleID = roleID }

// SetStagedInstructions sets per-assignment notes.
func (w *Wizard) SetStagedInstructions(s string) { w.staged.Instructions = s }

// ClearStaged drops the staged member.
func (w *Wizard) ClearStaged() { w.staged = StagedMember{} }

func (w *Wizard) checkStaged() error {
	s := w.staged
	if s.Empty() {
		return w.invalid(ErrMemberNotSelected, "MemberNotSelected", nil)
	}
	// The window may have changed since the member was staged.
	m, err := w.lookup(s.MemberID)
	if err != nil {
		return err
	}
	if m.AvailabilityStatus == models.Unavailable {
		return w.invalid(ErrMemberUnavailable, "MemberUnavailable", nil)
	}
	if w.event().Assigned(s.MemberID) {
		return w.invalid(ErrMemberAssigned, "MemberAlreadyAssigned", map[string]any{"Name": m.Name})
	}
	if blank(s.RoleID) {
		return w.invalid(ErrRoleRequired, "RoleRequired", nil)
	}
	return nil
}

// CanAddTeamMember reports whether AddTeamMember would succeed.
func (w *Wizard) CanAddTeamMember() bool { return w.checkStaged() == nil }

// AddTeamMember assigns the staged member to the selected event.
func (w *Wizard) AddTeamMember() error {
	if err := w.checkStaged(); err != nil {
		if errors.Is(err, ErrMemberUnavailable) || errors.Is(err, ErrMemberAssigned) {
			w.warn(err.(*output.Error).Message)
		}
		return err
	}
	s := w.staged
	ev := w.event()
	ev.Assignments = append(ev.Assignments, AssignmentDraft{
		MemberID:     s.MemberID,
		MemberName:   s.MemberName,
		RoleID:       s.RoleID,
		Instructions: s.Instructions,
	})
	w.staged = StagedMember{}
	w.recheckEvent(FieldAssignments)
	return nil
}

// RemoveAssignment takes a member off the selected event.
func (w *Wizard) RemoveAssignment(memberID string) bool {
	ev := w.event()
	n := len(ev.Assignments)
	ev.Assignments = slices.DeleteFunc(ev.Assignments, func(a AssignmentDraft) bool {
		return a.MemberID == memberID
	})
	if len(ev.Assignments) == n {
		return false
	}
	w.recheckEvent(FieldAssignments)
	return true
}

// Submit

// Validate checks the whole draft and stores the messages in Errors.
func (w *Wizard) Validate() FieldErrors {
	errs := w.validateProject()
	for i, ev := range w.draft.Events {
		for _, name := range eventFields {
			if key := eventFieldKey(ev, name); key != "" {
				errs.Set(EventField(i, name), w.t(key, nil))
			}
		}
	}
	w.errors = errs
	return errs
}

// Submit validates every event and creates the project in one call. On
// success the wizard resets, closes and calls OnCreated. On failure the
// draft is left exactly as it was.
func (w *Wizard) Submit(ctx context.Context) (models.Project, error) {
	if w.submitting {
		return models.Project{}, output.ErrBusy("create project")
	}
	if errs := w.Validate(); len(errs) > 0 {
		for _, name := range projectFields {
			if errs.Has(Field(name)) {
				w.step = StepProject
				break
			}
		}
		return models.Project{}, w.validationError(errs)
	}

	req := w.draft.request(w.companyID, w.clientEnabled)
	w.submitting = true
	defer func() { w.submitting = false }()

	w.logger.Debug("creating project", "name", req.Name, "events", len(req.Events))
	p, err := w.creator.CreateProject(ctx, req)
	if err != nil {
		w.logger.Warn("project create failed", "name", req.Name, "error", err)
		e := output.AsError(err)
		failed := *e
		failed.Message = w.t("ProjectCreateFailed", nil) + ": " + e.Message
		failed.Cause = err
		return models.Project{}, &failed
	}

	w.Close()
	w.notifier.Notify(Notice{
		Level:   slog.LevelInfo,
		Message: w.t("ProjectCreated", map[string]any{"Name": req.Name, "Events": len(req.Events)}),
	})
	if w.onCreated != nil {
		w.onCreated(p)
	}
	return p, nil
}
