package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/studioline/shootplan/internal/appctx"
	"github.com/studioline/shootplan/internal/availability"
	"github.com/studioline/shootplan/internal/builder"
	"github.com/studioline/shootplan/internal/data"
	"github.com/studioline/shootplan/internal/models"
	"github.com/studioline/shootplan/internal/names"
	"github.com/studioline/shootplan/internal/output"
)

// draftFile is the YAML form of a project draft:
//
//	name: Spring lookbook
//	color: "#e4572e"
//	description: Two days in the north studio
//	client: {name: Acme, email: ops@acme.test, mobile: "555 0100"}
//	events:
//	  - name: Day 1
//	    date: tomorrow
//	    start: 9am
//	    end: 17
//	    location: Studio A
//	    team:
//	      - member: ana@studio.test
//	        role: Photographer
//	        instructions: Bring the 85mm
type draftFile struct {
	Name        string        `yaml:"name"`
	Color       string        `yaml:"color"`
	Description string        `yaml:"description"`
	Reminders   remindersFile `yaml:"reminders"`
	Client      *clientFile   `yaml:"client"`
	Events      []eventFile   `yaml:"events"`
}

type remindersFile struct {
	WeekBefore bool `yaml:"week_before"`
	DayBefore  bool `yaml:"day_before"`
}

func (r remindersFile) model() models.Reminders {
	return models.Reminders{WeekBefore: r.WeekBefore, DayBefore: r.DayBefore}
}

type clientFile struct {
	Name   string `yaml:"name"`
	Email  string `yaml:"email"`
	Mobile string `yaml:"mobile"`
	CC     string `yaml:"cc"`
}

type eventFile struct {
	Name      string        `yaml:"name"`
	Date      string        `yaml:"date"`
	Start     string        `yaml:"start"`
	End       string        `yaml:"end"`
	Location  string        `yaml:"location"`
	Reminders remindersFile `yaml:"reminders"`
	Team      []teamFile    `yaml:"team"`
}

type teamFile struct {
	Member       string `yaml:"member"`
	Role         string `yaml:"role"`
	Instructions string `yaml:"instructions"`
}

// readYAML decodes path ("-" for stdin) into v, rejecting unknown keys.
func readYAML(app *appctx.App, path string, v any) error {
	var (
		b   []byte
		err error
	)
	if path == "-" {
		b, err = io.ReadAll(app.Stdin)
	} else {
		b, err = os.ReadFile(path)
	}
	if err != nil {
		return output.ErrUsage(fmt.Sprintf("Cannot read %s: %v", path, err))
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return output.ErrUsage(fmt.Sprintf("Invalid YAML in %s: %v", path, err))
	}
	return nil
}

// draftFiller replays a draft file through the wizard, so a file goes
// through the same validation and availability checks as the prompts.
type draftFiller struct {
	wizard   *builder.Wizard
	resolver *availability.Resolver
	roles    func() (*names.Resolver, error)
}

func (f draftFiller) fill(ctx context.Context, d draftFile) error {
	w := f.wizard
	w.Open(ctx)
	w.SetName(d.Name)
	w.SetColor(d.Color)
	w.SetDescription(d.Description)
	w.SetReminders(d.Reminders.model())
	if d.Client != nil {
		w.SetClientEnabled(true)
		w.SetClientName(d.Client.Name)
		w.SetClientEmail(d.Client.Email)
		w.SetClientMobile(d.Client.Mobile)
		w.SetClientCC(d.Client.CC)
	}
	// Step 1 errors are reported with the rest by Submit.
	_, _ = w.Next()

	for i, e := range d.Events {
		if i > 0 {
			w.AddEvent()
		}
		if err := f.event(ctx, i, e); err != nil {
			return err
		}
	}
	return nil
}

func (f draftFiller) event(ctx context.Context, i int, e eventFile) error {
	w := f.wizard
	date := e.Date
	if date != "" {
		// Unparseable dates are left for the validator to flag.
		if d, err := parseDate(date); err == nil {
			date = d
		}
	}

	// A new event has no date, so its window stays incomplete and nothing
	// is fetched until the date is set last.
	cmds := []data.Cmd{w.SetEventName(e.Name), w.SetLocation(e.Location)}
	w.SetEventReminders(e.Reminders.model())
	if e.Start != "" {
		h, err := parseHour("start", e.Start)
		if err != nil {
			return eventErr(i, err)
		}
		cmd, err := w.SetStartHour(h)
		if err != nil {
			return eventErr(i, output.ErrUsage(err.Error()))
		}
		cmds = append(cmds, cmd)
	}
	if e.End != "" {
		h, err := parseHour("end", e.End)
		if err != nil {
			return eventErr(i, err)
		}
		cmd, err := w.SetEndHour(h)
		if err != nil {
			return eventErr(i, output.ErrUsage(err.Error()))
		}
		cmds = append(cmds, cmd)
	}
	cmds = append(cmds, w.SetEventDate(date))
	msg := data.Run(data.Batch(cmds...))

	if len(e.Team) == 0 || w.SelectedEvent().Window().Validate() != nil {
		return nil
	}
	if m, ok := msg.(availability.UpdatedMsg); ok && m.Err != nil {
		return m.Err
	}
	members := f.resolver.Current().Members
	for _, t := range e.Team {
		m, err := names.ResolveMember(members, t.Member)
		if err != nil {
			return eventErr(i, err)
		}
		if err := w.StageMember(m.ID); err != nil {
			return eventErr(i, err)
		}
		if t.Role != "" {
			roles, err := f.roles()
			if err != nil {
				return err
			}
			id, _, err := roles.ResolveRole(ctx, t.Role)
			if err != nil {
				return eventErr(i, err)
			}
			w.SetStagedRole(id)
		}
		w.SetStagedInstructions(t.Instructions)
		if err := w.AddTeamMember(); err != nil {
			return eventErr(i, err)
		}
	}
	return nil
}

// eventErr prefixes an error with the 1-based event it belongs to.
func eventErr(i int, err error) error {
	e := output.AsError(err)
	prefixed := *e
	prefixed.Message = fmt.Sprintf("Event %d: %s", i+1, e.Message)
	prefixed.Cause = err
	return &prefixed
}
