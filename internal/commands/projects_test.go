package commands

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioline/shootplan/internal/api"
	"github.com/studioline/shootplan/internal/models"
	"github.com/studioline/shootplan/internal/output"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const twoDayDraft = `name: Spring lookbook
color: "#e4572e"
description: Two days in the north studio
reminders: {week_before: true}
client:
  name: Acme
  email: ops@acme.test
  mobile: "555 0100 22"
events:
  - name: Day 1
    date: "2026-11-02"
    start: 9am
    end: "17"
    location: Studio A
    team:
      - member: ana@studio.test
        role: Photographer
        instructions: Bring the 85mm
  - name: Day 2
    date: "2026-11-03"
    start: "10"
    end: 6pm
    location: Studio B
    reminders: {day_before: true}
    team:
      - member: Ben Ortiz
`

func TestProjectCreateFromFile(t *testing.T) {
	f := newFakeAPI(t)
	app, out := newTestApp(t, f)
	path := writeFile(t, "draft.yaml", twoDayDraft)

	require.NoError(t, execute(app, NewProjectCmd(), "create", "--file", path))

	var req api.CreateProjectRequest
	require.NoError(t, json.Unmarshal(f.last(t, "POST", "/projects"), &req))
	assert.Equal(t, "co-1", req.CompanyID)
	assert.Equal(t, "Spring lookbook", req.Name)
	assert.True(t, req.Reminders.WeekBefore)
	require.NotNil(t, req.Client)
	assert.Equal(t, "ops@acme.test", req.Client.Email)

	require.Len(t, req.Events, 2)
	day1, day2 := req.Events[0], req.Events[1]
	assert.Equal(t, "2026-11-02", day1.Date)
	assert.Equal(t, 9, day1.StartHour)
	assert.Equal(t, 17, day1.EndHour)
	assert.Equal(t, []api.AssignmentInput{{MemberID: "m-ana", RoleID: "r-photo", Instructions: "Bring the 85mm"}}, day1.Assignments)

	assert.Equal(t, 10, day2.StartHour)
	assert.Equal(t, 18, day2.EndHour)
	assert.True(t, day2.Reminders.DayBefore)
	// No role given: the member's default role is used.
	assert.Equal(t, []api.AssignmentInput{{MemberID: "m-ben", RoleID: "r-assist"}}, day2.Assignments)

	env := decodeEnvelope(t, out)
	assert.Equal(t, "Created project Spring lookbook (p-new)", env.Summary)
	assert.Contains(t, env.Notices, "Ben Ortiz has 1 conflict(s) in this window")
	assert.Contains(t, env.Notices, "Project Spring lookbook created with 2 event(s)")
}

func TestProjectCreateFromFileReportsEveryInvalidField(t *testing.T) {
	f := newFakeAPI(t)
	app, _ := newTestApp(t, f)
	path := writeFile(t, "draft.yaml", `name: Spring lookbook
description: Missing a color
events:
  - name: Day 1
    date: "2026-11-02"
`)

	err := execute(app, NewProjectCmd(), "create", "--file", path)
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, output.CodeValidation, e.Code)
	assert.Equal(t, "Color is required", e.Fields["color"])
	assert.Equal(t, "Location is required", e.Fields["event-0-location"])
	assert.Equal(t, "At least one team member is required", e.Fields["event-0-assignments"])
	assert.Zero(t, f.count("POST", "/projects"))
}

func TestProjectCreateRefusesUnavailableMember(t *testing.T) {
	f := newFakeAPI(t)
	app, _ := newTestApp(t, f)
	path := writeFile(t, "draft.yaml", `name: Spring lookbook
color: blue
description: d
events:
  - name: Day 1
    date: "2026-11-02"
    location: Studio A
    team:
      - member: Cy Rivera
        role: Photographer
`)

	err := execute(app, NewProjectCmd(), "create", "--file", path)
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, output.CodeValidation, e.Code)
	assert.Equal(t, "Event 1: Member Unavailable", e.Message)
	assert.Zero(t, f.count("POST", "/projects"))
}

func TestProjectCreateRejectsUnknownKeys(t *testing.T) {
	f := newFakeAPI(t)
	app, _ := newTestApp(t, f)
	path := writeFile(t, "draft.yaml", "name: x\ncolour: blue\n")

	err := execute(app, NewProjectCmd(), "create", "--file", path)
	require.Error(t, err)
	assert.Equal(t, output.CodeUsage, output.AsError(err).Code)
}

func TestProjectCreateNeedsFileWithoutTerminal(t *testing.T) {
	f := newFakeAPI(t)
	app, _ := newTestApp(t, f)

	err := execute(app, NewProjectCmd(), "create")
	require.Error(t, err)
	assert.Equal(t, "Draft file required", output.AsError(err).Message)
}

func TestProjectShowResolvesRoleNames(t *testing.T) {
	f := newFakeAPI(t)
	f.projects["p-1"] = models.Project{
		ID: "p-1", Name: "Lookbook",
		Events: []models.Event{{
			ID: "e-1", Name: "Day 1",
			Assignments: []models.Assignment{{MemberID: "m-ana", RoleID: "r-photo"}},
		}},
	}
	app, out := newTestApp(t, f)

	require.NoError(t, execute(app, NewProjectCmd(), "show", "p-1"))

	env := decodeEnvelope(t, out)
	assert.Equal(t, "Lookbook, 1 event", env.Summary)
	var view struct {
		ID        string            `json:"id"`
		RoleNames map[string]string `json:"roleNames"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "p-1", view.ID)
	assert.Equal(t, map[string]string{"r-photo": "Photographer"}, view.RoleNames)
}

func TestProjectShowNotFound(t *testing.T) {
	f := newFakeAPI(t)
	app, _ := newTestApp(t, f)

	err := execute(app, NewProjectCmd(), "show", "p-missing")
	require.Error(t, err)
	assert.Equal(t, output.ExitNotFound, output.AsError(err).ExitCode())
}

func TestProjectEditSendsOnlyChangedFields(t *testing.T) {
	f := newFakeAPI(t)
	app, out := newTestApp(t, f)

	require.NoError(t, execute(app, NewProjectCmd(), "edit", "p-1", "--name", "Autumn lookbook", "--schedule"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(f.last(t, "PUT", "/projects/p-1"), &body))
	assert.Equal(t, map[string]any{
		"projectId":        "p-1",
		"name":             "Autumn lookbook",
		"isScheduleUpdate": true,
	}, body)
	assert.Equal(t, "Updated project p-1", decodeEnvelope(t, out).Summary)
}

func TestProjectEditClearClient(t *testing.T) {
	f := newFakeAPI(t)
	app, _ := newTestApp(t, f)

	require.NoError(t, execute(app, NewProjectCmd(), "edit", "p-1", "--clear-client"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(f.last(t, "PUT", "/projects/p-1"), &body))
	v, ok := body["client"]
	assert.True(t, ok)
	assert.Nil(t, v)
}

func TestProjectEditValidatesClient(t *testing.T) {
	f := newFakeAPI(t)
	app, _ := newTestApp(t, f)

	err := execute(app, NewProjectCmd(), "edit", "p-1", "--client-name", "Acme", "--client-email", "not-an-address")
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, output.CodeValidation, e.Code)
	assert.Equal(t, map[string]string{
		"client-email":  "Please enter a valid email address",
		"client-mobile": "Client mobile is required",
	}, e.Fields)
	assert.Zero(t, f.count("PUT", "/projects/p-1"))
}

func TestProjectEditRejectsBlankName(t *testing.T) {
	f := newFakeAPI(t)
	app, _ := newTestApp(t, f)

	err := execute(app, NewProjectCmd(), "edit", "p-1", "--name", "  ")
	require.Error(t, err)
	assert.Equal(t, "Project name is required", output.AsError(err).Fields["name"])
}

func TestProjectEditNothingToUpdate(t *testing.T) {
	f := newFakeAPI(t)
	app, _ := newTestApp(t, f)

	err := execute(app, NewProjectCmd(), "edit", "p-1")
	require.Error(t, err)
	assert.Equal(t, "Nothing to update", output.AsError(err).Message)
}

func TestProjectDeleteNeedsForceWithoutTerminal(t *testing.T) {
	f := newFakeAPI(t)
	app, out := newTestApp(t, f)

	err := execute(app, NewProjectCmd(), "delete", "p-1")
	require.Error(t, err)
	assert.Equal(t, output.CodeUsage, output.AsError(err).Code)
	assert.Zero(t, f.count("DELETE", "/projects"))

	require.NoError(t, execute(app, NewProjectCmd(), "delete", "p-1", "--force"))
	assert.JSONEq(t, `{"projectId":"p-1"}`, string(f.last(t, "DELETE", "/projects")))
	assert.Equal(t, "Deleted project p-1", decodeEnvelope(t, out).Summary)
}
