package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioline/shootplan/internal/api"
	"github.com/studioline/shootplan/internal/models"
	"github.com/studioline/shootplan/internal/output"
)

func seedSections(f *fakeAPI) {
	f.sections["p-1"] = api.SectionCollections{
		Brief: []models.Section{
			{ID: 1, Title: "Mood", Type: models.SectionText, Text: "Warm, late light", Order: 1},
			{ID: 2, Title: "Shot list", Type: models.SectionList, Items: []string{"Hero", "Detail"}, Order: 2},
		},
		Logistics: []models.Section{},
	}
}

// savedSections decodes the collection sent by the last save.
func savedSections(t *testing.T, f *fakeAPI) (models.SectionKind, []models.Section) {
	t.Helper()
	var req struct {
		SectionType models.SectionKind `json:"sectionType"`
		Sections    []models.Section   `json:"sections"`
	}
	require.NoError(t, json.Unmarshal(f.last(t, "PUT", "/projects/p-1/sections"), &req))
	return req.SectionType, req.Sections
}

func TestSectionsList(t *testing.T) {
	f := newFakeAPI(t)
	seedSections(f)
	app, out := newTestApp(t, f)

	require.NoError(t, execute(app, NewSectionsCmd(), "list", "p-1"))

	env := decodeEnvelope(t, out)
	assert.Equal(t, "2 sections", env.Summary)
	var got map[string][]models.Section
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got["brief"], 2)
	assert.Equal(t, []string{"Hero", "Detail"}, got["brief"][1].Items)
	assert.Empty(t, got["logistics"])
}

func TestSectionsAddPrependsAndRenumbers(t *testing.T) {
	f := newFakeAPI(t)
	seedSections(f)
	app, out := newTestApp(t, f)

	require.NoError(t, execute(app, NewSectionsCmd(), "add", "p-1",
		"--kind", "brief", "--type", "list", "--title", "Kit", "--item", "2 strobes", "--item", "C-stands"))

	kind, sent := savedSections(t, f)
	assert.Equal(t, models.KindBrief, kind)
	require.Len(t, sent, 3)
	assert.Equal(t, models.Section{ID: 3, Title: "Kit", Type: models.SectionList, Items: []string{"2 strobes", "C-stands"}, Order: 1}, sent[0])
	assert.Equal(t, 1, sent[1].ID)
	assert.Equal(t, 2, sent[1].Order)
	assert.Equal(t, 3, sent[2].Order)

	env := decodeEnvelope(t, out)
	assert.Equal(t, "Added 1 section to brief", env.Summary)
	assert.Equal(t, []string{"brief saved"}, env.Notices)
}

func TestSectionsAddFromFileKeepsFileOrder(t *testing.T) {
	f := newFakeAPI(t)
	app, _ := newTestApp(t, f)
	path := writeFile(t, "logistics.yaml", `- title: Parking
  text: Loading bay on the east side
- title: Kit
  items: [Strobes, Stands]
`)

	require.NoError(t, execute(app, NewSectionsCmd(), "add", "p-1", "--kind", "logistics", "--file", path))

	kind, sent := savedSections(t, f)
	assert.Equal(t, models.KindLogistics, kind)
	require.Len(t, sent, 2)
	assert.Equal(t, "Parking", sent[0].Title)
	assert.Equal(t, "Loading bay on the east side", sent[0].Text)
	assert.Equal(t, "Kit", sent[1].Title)
	assert.Equal(t, []string{"Strobes", "Stands"}, sent[1].Items)
	assert.Equal(t, 1, f.count("PUT", "/projects/p-1/sections"))
}

func TestSectionsAddRejectsTextOnList(t *testing.T) {
	f := newFakeAPI(t)
	app, _ := newTestApp(t, f)

	err := execute(app, NewSectionsCmd(), "add", "p-1", "--kind", "brief", "--type", "list", "--text", "nope")
	require.Error(t, err)
	assert.Equal(t, output.CodeUsage, output.AsError(err).Code)
	assert.Zero(t, f.count("PUT", "/projects/p-1/sections"))
}

func TestSectionsEditAppendsItem(t *testing.T) {
	f := newFakeAPI(t)
	seedSections(f)
	app, out := newTestApp(t, f)

	require.NoError(t, execute(app, NewSectionsCmd(), "edit", "p-1", "2", "--kind", "brief", "--append-item", "Wide"))

	_, sent := savedSections(t, f)
	require.Len(t, sent, 2)
	assert.Equal(t, []string{"Hero", "Detail", "Wide"}, sent[1].Items)
	assert.Equal(t, "Updated section 2 in brief", decodeEnvelope(t, out).Summary)
}

func TestSectionsEditWithoutChangesDoesNotSave(t *testing.T) {
	f := newFakeAPI(t)
	seedSections(f)
	app, out := newTestApp(t, f)

	require.NoError(t, execute(app, NewSectionsCmd(), "edit", "p-1", "1", "--kind", "brief", "--title", "Mood"))

	assert.Zero(t, f.count("PUT", "/projects/p-1/sections"))
	assert.Equal(t, "No changes", decodeEnvelope(t, out).Summary)
}

func TestSectionsEditUnknownSection(t *testing.T) {
	f := newFakeAPI(t)
	seedSections(f)
	app, _ := newTestApp(t, f)

	err := execute(app, NewSectionsCmd(), "edit", "p-1", "9", "--kind", "brief", "--title", "x")
	require.Error(t, err)
	assert.Equal(t, output.CodeNotFound, output.AsError(err).Code)
}

func TestSectionsEditFailedSaveIsRolledBack(t *testing.T) {
	f := newFakeAPI(t)
	seedSections(f)
	f.failSections = true
	app, _ := newTestApp(t, f)

	err := execute(app, NewSectionsCmd(), "edit", "p-1", "1", "--kind", "brief", "--text", "Cold, hard light")
	require.Error(t, err)
	e := output.AsError(err)
	assert.Equal(t, output.CodeAPI, e.Code)
	assert.Equal(t, "Could not save brief, changes were rolled back: database unavailable", e.Message)
	assert.Equal(t, "Warm, late light", f.sections["p-1"].Brief[0].Text)
}

func TestSectionsDelete(t *testing.T) {
	f := newFakeAPI(t)
	seedSections(f)
	app, out := newTestApp(t, f)

	require.NoError(t, execute(app, NewSectionsCmd(), "delete", "p-1", "1", "--kind", "brief", "--force"))

	_, sent := savedSections(t, f)
	require.Len(t, sent, 1)
	assert.Equal(t, 2, sent[0].ID)
	assert.Equal(t, 1, sent[0].Order)
	assert.Equal(t, "Deleted section 1 from brief", decodeEnvelope(t, out).Summary)
}

func TestSectionsDeleteUnknownSection(t *testing.T) {
	f := newFakeAPI(t)
	seedSections(f)
	app, _ := newTestApp(t, f)

	err := execute(app, NewSectionsCmd(), "delete", "p-1", "7", "--kind", "brief", "--force")
	require.Error(t, err)
	assert.Equal(t, output.CodeNotFound, output.AsError(err).Code)
	assert.Zero(t, f.count("PUT", "/projects/p-1/sections"))
}

func TestSectionsRejectsBadKind(t *testing.T) {
	f := newFakeAPI(t)
	app, _ := newTestApp(t, f)

	err := execute(app, NewSectionsCmd(), "delete", "p-1", "1", "--kind", "notes", "--force")
	require.Error(t, err)
	assert.Equal(t, output.CodeUsage, output.AsError(err).Code)
}
