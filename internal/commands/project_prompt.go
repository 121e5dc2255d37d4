package commands

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/studioline/shootplan/internal/appctx"
	"github.com/studioline/shootplan/internal/availability"
	"github.com/studioline/shootplan/internal/builder"
	"github.com/studioline/shootplan/internal/data"
	"github.com/studioline/shootplan/internal/models"
	"github.com/studioline/shootplan/internal/output"
	"github.com/studioline/shootplan/internal/tui"
)

// projectPrompt walks the wizard with terminal forms: project details
// first, then each event with its team.
type projectPrompt struct {
	app      *appctx.App
	w        *builder.Wizard
	resolver *availability.Resolver

	// pending holds the wizard's fetch commands until the team step runs
	// them. Every command is run, or its pool would stay marked in flight.
	pending []data.Cmd
}

func newProjectPrompt(app *appctx.App, w *builder.Wizard, resolver *availability.Resolver) *projectPrompt {
	return &projectPrompt{app: app, w: w, resolver: resolver}
}

const (
	actionSubmit  = "submit"
	actionAdd     = "add"
	actionDetails = "details"
	actionCancel  = "cancel"
	actionEdit    = "edit:"
	actionRemove  = "remove:"
)

func (p *projectPrompt) run(ctx context.Context) (models.Project, error) {
	w := p.w
	w.Open(ctx)
	proj, err := p.loop(ctx)
	if err != nil {
		w.Close()
		if errors.Is(err, tui.ErrCanceled) {
			return models.Project{}, &output.Error{Code: output.CodeUsage, Message: "Canceled", Cause: err}
		}
	}
	return proj, err
}

func (p *projectPrompt) loop(ctx context.Context) (models.Project, error) {
	w := p.w
	if err := p.details(); err != nil {
		return models.Project{}, err
	}
	if err := p.event(ctx); err != nil {
		return models.Project{}, err
	}
	for {
		action, err := tui.Select("What next?", actionSubmit, p.actions())
		if err != nil {
			return models.Project{}, err
		}

		switch {
		case action == actionSubmit:
			proj, err := w.Submit(ctx)
			if err == nil {
				return proj, nil
			}
			if !output.IsCode(err, output.CodeValidation) {
				return models.Project{}, err
			}
			if err := p.show(err); err != nil {
				return models.Project{}, err
			}
			if w.Step() == builder.StepProject {
				if err := p.details(); err != nil {
					return models.Project{}, err
				}
			}
		case action == actionAdd:
			p.queue(w.AddEvent())
			if err := p.event(ctx); err != nil {
				return models.Project{}, err
			}
		case action == actionDetails:
			w.Back()
			if err := p.details(); err != nil {
				return models.Project{}, err
			}
		case action == actionCancel:
			return models.Project{}, tui.ErrCanceled
		case strings.HasPrefix(action, actionEdit):
			i, _ := strconv.Atoi(strings.TrimPrefix(action, actionEdit))
			cmd, err := w.SelectEvent(i)
			if err != nil {
				return models.Project{}, err
			}
			p.queue(cmd)
			if err := p.event(ctx); err != nil {
				return models.Project{}, err
			}
		case strings.HasPrefix(action, actionRemove):
			i, _ := strconv.Atoi(strings.TrimPrefix(action, actionRemove))
			cmd, err := w.RemoveEvent(i)
			if err != nil {
				if err := p.show(err); err != nil {
					return models.Project{}, err
				}
			}
			p.queue(cmd)
		}
	}
}

func (p *projectPrompt) actions() []tui.SelectOption {
	w := p.w
	errs := w.Errors()
	opts := []tui.SelectOption{{Value: actionSubmit, Label: "Create project"}}
	opts = append(opts, tui.SelectOption{Value: actionAdd, Label: "Add another event"})
	for i := range w.Events() {
		label := fmt.Sprintf("Edit event %d", i+1)
		if errs.HasEvent(i) {
			label += " (needs attention)"
		}
		opts = append(opts, tui.SelectOption{Value: actionEdit + strconv.Itoa(i), Label: label})
	}
	if w.Events() > 1 {
		for i := range w.Events() {
			opts = append(opts, tui.SelectOption{Value: actionRemove + strconv.Itoa(i), Label: fmt.Sprintf("Remove event %d", i+1)})
		}
	}
	opts = append(opts,
		tui.SelectOption{Value: actionDetails, Label: "Edit project details"},
		tui.SelectOption{Value: actionCancel, Label: "Cancel"},
	)
	return opts
}

// details runs step 1 until it validates.
func (p *projectPrompt) details() error {
	w := p.w
	for {
		d := w.Draft()
		errs := w.Errors()
		vals, err := tui.Form("Project", []tui.FormField{
			{Key: builder.FieldProjectName, Title: "Name", Default: d.Name, Error: errs.Get(builder.Field(builder.FieldProjectName))},
			{Key: builder.FieldColor, Title: "Color", Default: d.Color, Error: errs.Get(builder.Field(builder.FieldColor))},
			{Key: builder.FieldDescription, Title: "Description", Default: d.Description, Error: errs.Get(builder.Field(builder.FieldDescription))},
		})
		if err != nil {
			return err
		}
		w.SetName(vals[builder.FieldProjectName])
		w.SetColor(vals[builder.FieldColor])
		w.SetDescription(vals[builder.FieldDescription])

		withClient, err := tui.Confirm("Add a client contact?", w.ClientEnabled())
		if err != nil {
			return err
		}
		w.SetClientEnabled(withClient)
		if withClient {
			vals, err := tui.Form("Client", []tui.FormField{
				{Key: builder.FieldClientName, Title: "Name", Default: d.Client.Name, Error: errs.Get(builder.Field(builder.FieldClientName))},
				{Key: builder.FieldClientEmail, Title: "Email", Default: d.Client.Email, Error: errs.Get(builder.Field(builder.FieldClientEmail))},
				{Key: builder.FieldClientMobile, Title: "Mobile", Default: d.Client.Mobile, Error: errs.Get(builder.Field(builder.FieldClientMobile))},
				{Key: "cc", Title: "CC", Default: d.Client.CC},
			})
			if err != nil {
				return err
			}
			w.SetClientName(vals[builder.FieldClientName])
			w.SetClientEmail(vals[builder.FieldClientEmail])
			w.SetClientMobile(vals[builder.FieldClientMobile])
			w.SetClientCC(vals["cc"])
		}

		if cmd, err := w.Next(); err == nil {
			p.queue(cmd)
			return nil
		}
	}
}

// event edits the selected event, then its team.
func (p *projectPrompt) event(ctx context.Context) error {
	w := p.w
	i := w.Selected()
	e := w.SelectedEvent()
	errs := w.Errors()

	vals, err := tui.Form(fmt.Sprintf("Event %d", i+1), []tui.FormField{
		{Key: builder.FieldEventName, Title: "Name", Default: e.Name, Error: errs.Get(builder.EventField(i, builder.FieldEventName))},
		{Key: builder.FieldEventDate, Title: "Date (YYYY-MM-DD, tomorrow, friday, +3)", Default: e.Date, Error: errs.Get(builder.EventField(i, builder.FieldEventDate))},
		{Key: builder.FieldLocation, Title: "Location", Default: e.Location, Error: errs.Get(builder.EventField(i, builder.FieldLocation))},
	})
	if err != nil {
		return err
	}
	date := vals[builder.FieldEventDate]
	if d, err := parseDate(date); err == nil {
		date = d
	}
	p.queue(w.SetEventName(vals[builder.FieldEventName]))
	p.queue(w.SetEventDate(date))
	p.queue(w.SetLocation(vals[builder.FieldLocation]))

	start, err := tui.Select("Start", strconv.Itoa(e.Start.Hour()), hourOptions(w.StartHourOptions()))
	if err != nil {
		return err
	}
	h, _ := strconv.Atoi(start)
	cmd, err := w.SetStartHour(h)
	if err != nil {
		return err
	}
	p.queue(cmd)
	end, err := tui.Select("End", strconv.Itoa(w.SelectedEvent().End.Hour()), hourOptions(w.EndHourOptions()))
	if err != nil {
		return err
	}
	h, _ = strconv.Atoi(end)
	if cmd, err = w.SetEndHour(h); err != nil {
		return err
	}
	p.queue(cmd)

	reminders := w.SelectedEvent().Reminders
	weekBefore, err := tui.Confirm("Remind the team a week before?", reminders.WeekBefore)
	if err != nil {
		return err
	}
	dayBefore, err := tui.Confirm("Remind the team a day before?", reminders.DayBefore)
	if err != nil {
		return err
	}
	w.SetEventReminders(models.Reminders{WeekBefore: weekBefore, DayBefore: dayBefore})

	return p.team(ctx)
}

func hourOptions(hours []int) []tui.SelectOption {
	out := make([]tui.SelectOption, len(hours))
	for i, h := range hours {
		out[i] = tui.SelectOption{Value: strconv.Itoa(h), Label: models.FromHour(h).String()}
	}
	return out
}

// queue keeps a wizard command for the next team step.
func (p *projectPrompt) queue(cmd data.Cmd) {
	if cmd != nil {
		p.pending = append(p.pending, cmd)
	}
}

// team runs the queued fetches, then assigns members to the selected event
// from the availability of its window.
func (p *projectPrompt) team(ctx context.Context) error {
	w := p.w
	fetch := data.Batch(p.pending...)
	p.pending = nil
	if msg, ok := data.Run(fetch).(availability.UpdatedMsg); ok && msg.Err != nil {
		return p.show(msg.Err)
	}
	if w.SelectedEvent().Window().Validate() != nil {
		return tui.Note("Team", "Set a valid date and hours to choose the team.")
	}

	for {
		ev := w.SelectedEvent()
		view := p.resolver.Current()
		opts := []tui.SelectOption{{Value: "", Label: "Done"}}
		for _, a := range ev.Assignments {
			opts = append(opts, tui.SelectOption{Value: actionRemove + a.MemberID, Label: "Remove " + a.MemberName})
		}
		for _, m := range view.Members {
			if !ev.Assigned(m.ID) {
				opts = append(opts, tui.SelectOption{Value: m.ID, Label: memberLabel(m)})
			}
		}

		title := fmt.Sprintf("Team for %s (%s)", ev.Window(), plural(len(ev.Assignments), "member"))
		choice, err := tui.Select(title, "", opts)
		if err != nil {
			return err
		}
		switch {
		case choice == "":
			return nil
		case strings.HasPrefix(choice, actionRemove):
			w.RemoveAssignment(strings.TrimPrefix(choice, actionRemove))
			continue
		}

		if err := w.StageMember(choice); err != nil {
			if err := p.show(err); err != nil {
				return err
			}
			continue
		}
		if err := p.stageDetails(ctx); err != nil {
			return err
		}
		if err := w.AddTeamMember(); err != nil {
			if err := p.show(err); err != nil {
				return err
			}
		}
	}
}

func (p *projectPrompt) stageDetails(ctx context.Context) error {
	w := p.w
	resolver, err := p.app.Names()
	if err != nil {
		return err
	}
	roles, err := resolver.Roles(ctx)
	if err != nil {
		return err
	}
	opts := make([]tui.SelectOption, len(roles))
	for i, r := range roles {
		opts[i] = tui.SelectOption{Value: r.ID, Label: r.Name}
	}
	role, err := tui.Select("Role for "+w.Staged().MemberName, w.Staged().RoleID, opts)
	if err != nil {
		return err
	}
	w.SetStagedRole(role)

	instructions, err := tui.Input("Instructions (optional)", w.Staged().Instructions, nil)
	if err != nil {
		return err
	}
	w.SetStagedInstructions(instructions)
	return nil
}

func memberLabel(m models.AvailableMember) string {
	switch m.AvailabilityStatus {
	case models.FullyAvailable:
		return m.Name + " (available)"
	case models.PartiallyAvailable:
		return fmt.Sprintf("%s (partially available, %s)", m.Name, plural(len(m.Conflicts), "conflict"))
	default:
		return m.Name + " (unavailable)"
	}
}

// show presents an error and its field messages as a note.
func (p *projectPrompt) show(err error) error {
	e := output.AsError(err)
	var b strings.Builder
	b.WriteString(e.Message)
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "\n  %s: %s", k, e.Fields[k])
	}
	if e.Hint != "" {
		b.WriteString("\n" + e.Hint)
	}
	return tui.Note("Cannot continue", b.String())
}
