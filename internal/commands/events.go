package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studioline/shootplan/internal/api"
	"github.com/studioline/shootplan/internal/appctx"
	"github.com/studioline/shootplan/internal/builder"
	"github.com/studioline/shootplan/internal/models"
	"github.com/studioline/shootplan/internal/names"
	"github.com/studioline/shootplan/internal/output"
)

// NewEventCmd creates the event command group.
func NewEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "event",
		Aliases: []string{"events"},
		Short:   "Manage the events of an existing project",
	}

	cmd.AddCommand(
		newEventAddCmd(),
		newEventUpdateCmd(),
		newEventDeleteCmd(),
	)

	return cmd
}

func newEventAddCmd() *cobra.Command {
	var (
		projectID, name, date, start, end, location string
		assign                                      []string
		weekBefore, dayBefore                       bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an event to a project",
		Long: "Add a dated event with its team to an existing project. Members are given as " +
			"member:role[:instructions], where member is an id, email or name and role an id or name.",
		Example: `  shootplan event add --project p-1 --name "Day 2" --date friday --start 8 --end 18 \
    --location "Studio B" --assign ana@studio.test:Photographer --assign "Ben:Assistant:Call at 7"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}

			e := builder.EventDraft{
				Name:      name,
				Location:  location,
				Start:     builder.DefaultStart,
				End:       builder.DefaultEnd,
				Reminders: models.Reminders{WeekBefore: weekBefore, DayBefore: dayBefore},
			}
			if date != "" {
				if e.Date, err = parseDate(date); err != nil {
					return err
				}
			}
			sh, err := parseHour("start", start)
			if err != nil {
				return err
			}
			eh, err := parseHour("end", end)
			if err != nil {
				return err
			}
			e.Start, e.End = models.FromHour(sh), models.FromHour(eh)

			n := newNotices(app.Logger)
			if len(assign) > 0 && e.Window().Validate() == nil {
				if e.Assignments, err = resolveTeam(cmd, app, e.Window(), assign, n); err != nil {
					return err
				}
			}
			if errs := builder.EventErrors(e, app.Tr); len(errs) > 0 {
				return output.ErrValidation(app.T("FixHighlightedFields", nil), errs)
			}

			client, err := app.Client()
			if err != nil {
				return err
			}
			req := api.CreateEventRequest{
				ProjectID: projectID,
				Name:      e.Name,
				Date:      e.Date,
				StartHour: e.Start.Hour(),
				EndHour:   e.End.Hour(),
				Location:  e.Location,
				Reminders: e.Reminders,
			}
			for _, a := range e.Assignments {
				req.Assignments = append(req.Assignments, api.AssignmentInput{MemberID: a.MemberID, RoleID: a.RoleID, Instructions: a.Instructions})
			}
			ev, err := client.CreateEvent(cmd.Context(), req)
			if err != nil {
				return err
			}
			return app.OK(ev,
				output.WithSummary(fmt.Sprintf("Added %s on %s to project %s", e.Name, e.Window(), projectID)),
				n.option(),
				output.WithBreadcrumbs(showBreadcrumb(projectID)))
		},
	}

	cmd.Flags().StringVarP(&projectID, "project", "p", "", "Project ID")
	cmd.Flags().StringVar(&name, "name", "", "Event name")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Date (YYYY-MM-DD, tomorrow, friday, +3)")
	cmd.Flags().StringVar(&start, "start", "9", "Start hour")
	cmd.Flags().StringVar(&end, "end", "17", "End hour (24 is midnight)")
	cmd.Flags().StringVar(&location, "location", "", "Location")
	cmd.Flags().StringArrayVarP(&assign, "assign", "a", nil, "Team member as member:role[:instructions] (repeatable)")
	cmd.Flags().BoolVar(&weekBefore, "week-before", false, "Remind the team a week before")
	cmd.Flags().BoolVar(&dayBefore, "day-before", false, "Remind the team a day before")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}

// resolveTeam turns --assign values into assignments, applying the same
// availability rules as the create wizard.
func resolveTeam(cmd *cobra.Command, app *appctx.App, w models.Window, specs []string, n *notices) ([]builder.AssignmentDraft, error) {
	r, err := app.Availability()
	if err != nil {
		return nil, err
	}
	view, err := r.Load(cmd.Context(), w)
	if err != nil {
		return nil, err
	}
	roles, err := app.Names()
	if err != nil {
		return nil, err
	}

	var out []builder.AssignmentDraft
	for _, s := range specs {
		spec, err := parseAssign(s)
		if err != nil {
			return nil, err
		}
		m, err := names.ResolveMember(view.Members, spec.Member)
		if err != nil {
			return nil, err
		}
		switch m.AvailabilityStatus {
		case models.Unavailable:
			return nil, output.ErrValidation(app.T("MemberUnavailable", nil),
				map[string]string{"assign": m.Name + ": " + app.T("MemberUnavailable", nil)})
		case models.PartiallyAvailable:
			n.add(app.T("MemberPartiallyAvailable", map[string]any{"Name": m.Name, "Count": len(m.Conflicts)}))
		}
		for _, a := range out {
			if a.MemberID == m.ID {
				msg := app.T("MemberAlreadyAssigned", map[string]any{"Name": m.Name})
				return nil, output.ErrValidation(msg, map[string]string{"assign": msg})
			}
		}
		roleID, _, err := roles.ResolveRole(cmd.Context(), spec.Role)
		if err != nil {
			return nil, err
		}
		out = append(out, builder.AssignmentDraft{
			MemberID:     m.ID,
			MemberName:   m.Name,
			RoleID:       roleID,
			Instructions: spec.Instructions,
		})
	}
	return out, nil
}

func newEventUpdateCmd() *cobra.Command {
	var (
		name, date, start, end, location string
		weekBefore, dayBefore            bool
	)

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an event",
		Long:  "Change an event's details. Only the flags given are sent.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			var patch api.EventPatch
			fields := map[string]string{}

			if flags.Changed("name") {
				if strings.TrimSpace(name) == "" {
					fields["name"] = app.T("EventNameRequired", nil)
				}
				patch.Name = &name
			}
			if flags.Changed("location") {
				if strings.TrimSpace(location) == "" {
					fields["location"] = app.T("LocationRequired", nil)
				}
				patch.Location = &location
			}
			if flags.Changed("date") {
				d, err := parseDate(date)
				if err != nil {
					return err
				}
				patch.Date = &d
			}
			if flags.Changed("start") {
				h, err := parseHour("start", start)
				if err != nil {
					return err
				}
				patch.StartHour = &h
			}
			if flags.Changed("end") {
				h, err := parseHour("end", end)
				if err != nil {
					return err
				}
				patch.EndHour = &h
			}
			if patch.StartHour != nil && patch.EndHour != nil && *patch.EndHour <= *patch.StartHour {
				fields["hours"] = app.T("EventHoursInvalid", nil)
			}
			if anyChanged(flags, "week-before", "day-before") {
				patch.Reminders = &models.Reminders{WeekBefore: weekBefore, DayBefore: dayBefore}
			}

			if len(fields) > 0 {
				return output.ErrValidation(app.T("FixHighlightedFields", nil), fields)
			}
			if patch.Empty() {
				return output.ErrUsage("Nothing to update")
			}

			client, err := app.Client()
			if err != nil {
				return err
			}
			ev, err := client.UpdateEvent(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			if ev.ID == "" {
				ev.ID = args[0]
			}
			return app.OK(ev, output.WithSummary("Updated event "+ev.ID))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Event name")
	cmd.Flags().StringVarP(&date, "date", "d", "", "Date (YYYY-MM-DD, tomorrow, friday, +3)")
	cmd.Flags().StringVar(&start, "start", "", "Start hour")
	cmd.Flags().StringVar(&end, "end", "", "End hour (24 is midnight)")
	cmd.Flags().StringVar(&location, "location", "", "Location")
	cmd.Flags().BoolVar(&weekBefore, "week-before", false, "Remind the team a week before")
	cmd.Flags().BoolVar(&dayBefore, "day-before", false, "Remind the team a day before")

	return cmd
}

func newEventDeleteCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := appFrom(cmd)
			if err != nil {
				return err
			}
			if err := confirmDelete(app, force, "event "+args[0]); err != nil {
				return err
			}
			client, err := app.Client()
			if err != nil {
				return err
			}
			if err := client.DeleteEvent(cmd.Context(), args[0]); err != nil {
				return err
			}
			return app.OK(map[string]string{"id": args[0], "status": "deleted"},
				output.WithSummary("Deleted event "+args[0]))
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip the confirmation prompt")

	return cmd
}
