package builder

import (
	"slices"

	"github.com/studioline/shootplan/internal/api"
	"github.com/studioline/shootplan/internal/models"
)

// Default event hours.
var (
	DefaultStart = models.FromHour(9)
	DefaultEnd   = models.FromHour(17)
)

// ClientDraft is the optional client block of step 1.
type ClientDraft struct {
	Name   string
	Email  string
	Mobile string
	CC     string
}

// AssignmentDraft is one member bound to a role on an event.
type AssignmentDraft struct {
	MemberID     string
	MemberName   string
	RoleID       string
	Instructions string
}

// EventDraft is one event being composed. ID only tells drafts apart while
// the wizard is open and is never sent.
type EventDraft struct {
	ID          string
	Name        string
	Date        string
	Start       models.Minutes
	End         models.Minutes
	Location    string
	Reminders   models.Reminders
	Assignments []AssignmentDraft
}

// Window is the availability window this event is checked against.
func (e EventDraft) Window() models.Window {
	return models.Window{Date: e.Date, Start: e.Start, End: e.End}
}

// Assigned reports whether memberID is already on the event.
func (e EventDraft) Assigned(memberID string) bool {
	return slices.ContainsFunc(e.Assignments, func(a AssignmentDraft) bool {
		return a.MemberID == memberID
	})
}

func (e EventDraft) clone() EventDraft {
	e.Assignments = slices.Clone(e.Assignments)
	return e
}

// ProjectDraft is everything the wizard collects before the single create
// call.
type ProjectDraft struct {
	Name        string
	Color       string
	Description string
	Client      ClientDraft
	Reminders   models.Reminders
	Events      []EventDraft
}

// Clone returns a deep copy.
func (d ProjectDraft) Clone() ProjectDraft {
	events := make([]EventDraft, len(d.Events))
	for i, e := range d.Events {
		events[i] = e.clone()
	}
	d.Events = events
	return d
}

// StagedMember is the scratch member being prepared for AddTeamMember.
type StagedMember struct {
	MemberID     string
	MemberName   string
	RoleID       string
	Instructions string
}

// Empty reports whether no member is staged.
func (s StagedMember) Empty() bool { return s.MemberID == "" }

// request flattens the draft into the create payload. Event ids and staging
// never leave the wizard; the client block is sent only when enabled.
func (d ProjectDraft) request(companyID string, withClient bool) api.CreateProjectRequest {
	req := api.CreateProjectRequest{
		CompanyID:   companyID,
		Name:        d.Name,
		Color:       d.Color,
		Description: d.Description,
		Reminders:   d.Reminders,
		Events:      make([]api.EventInput, 0, len(d.Events)),
	}
	if withClient {
		req.Client = &models.Client{
			Name:   d.Client.Name,
			Email:  d.Client.Email,
			Mobile: d.Client.Mobile,
			CC:     d.Client.CC,
		}
	}
	for _, e := range d.Events {
		in := api.EventInput{
			Name:        e.Name,
			Date:        e.Date,
			StartHour:   e.Start.Hour(),
			EndHour:     ceilHour(e.End),
			Location:    e.Location,
			Reminders:   e.Reminders,
			Assignments: make([]api.AssignmentInput, 0, len(e.Assignments)),
		}
		for _, a := range e.Assignments {
			in.Assignments = append(in.Assignments, api.AssignmentInput{
				MemberID:     a.MemberID,
				RoleID:       a.RoleID,
				Instructions: a.Instructions,
			})
		}
		req.Events = append(req.Events, in)
	}
	return req
}

func ceilHour(m models.Minutes) int {
	h := m.Hour()
	if models.FromHour(h) < m {
		h++
	}
	return h
}
