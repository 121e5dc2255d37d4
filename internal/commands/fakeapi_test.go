package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/studioline/shootplan/internal/api"
	"github.com/studioline/shootplan/internal/appctx"
	"github.com/studioline/shootplan/internal/auth"
	"github.com/studioline/shootplan/internal/config"
	"github.com/studioline/shootplan/internal/models"
)

// call is one request the fake API received.
type call struct {
	Method string
	Path   string
	Body   json.RawMessage
}

// fakeAPI serves the booking endpoints the commands use from memory.
type fakeAPI struct {
	srv *httptest.Server

	mu       sync.Mutex
	members  []models.AvailableMember
	roles    []models.Role
	projects map[string]models.Project
	sections map[string]api.SectionCollections
	// failSections makes every sections save answer 500.
	failSections bool
	calls        []call
}

var (
	ana = models.AvailableMember{
		ID: "m-ana", Name: "Ana Silva", Email: "ana@studio.test", Role: "r-photo",
		AvailabilityStatus: models.FullyAvailable, Conflicts: []models.Conflict{},
	}
	ben = models.AvailableMember{
		ID: "m-ben", Name: "Ben Ortiz", Email: "ben@studio.test", Role: "r-assist",
		AvailabilityStatus: models.PartiallyAvailable,
		Conflicts: []models.Conflict{{
			ProjectName: "Catalog", EventName: "Fittings", Date: "2026-11-02",
			StartHour: 8, EndHour: 10, Type: models.ConflictDateTime,
		}},
	}
	cy = models.AvailableMember{
		ID: "m-cy", Name: "Cy Rivera", Email: "cy@studio.test", Role: "r-photo",
		AvailabilityStatus: models.Unavailable,
		Conflicts: []models.Conflict{{
			ProjectName: "Catalog", EventName: "Day 1", Date: "2026-11-02",
			StartHour: 9, EndHour: 17, Type: models.ConflictDateTime,
		}},
	}
)

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{
		members: []models.AvailableMember{ana, ben, cy},
		roles: []models.Role{
			{ID: "r-photo", Name: "Photographer"},
			{ID: "r-assist", Name: "Assistant"},
		},
		projects: map[string]models.Project{},
		sections: map[string]api.SectionCollections{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /availability/members", f.availability)
	mux.HandleFunc("GET /companies/{company}/roles", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, f.roles)
	})
	mux.HandleFunc("POST /projects", f.createProject)
	mux.HandleFunc("GET /projects/{id}", f.getProject)
	mux.HandleFunc("PUT /projects/{id}", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Name string `json:"name"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		writeData(w, models.Project{ID: r.PathValue("id"), Name: body.Name})
	})
	mux.HandleFunc("DELETE /projects", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, nil)
	})
	mux.HandleFunc("POST /events", func(w http.ResponseWriter, r *http.Request) {
		var req api.CreateEventRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		writeData(w, models.Event{ID: "e-new", ProjectID: req.ProjectID, Name: req.Name, Date: req.Date})
	})
	mux.HandleFunc("PUT /events/{id}", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, models.Event{ID: r.PathValue("id")})
	})
	mux.HandleFunc("DELETE /events", func(w http.ResponseWriter, r *http.Request) {
		writeData(w, nil)
	})
	mux.HandleFunc("GET /projects/{id}/sections", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		writeData(w, f.sections[r.PathValue("id")])
	})
	mux.HandleFunc("PUT /projects/{id}/sections", f.saveSections)

	f.srv = httptest.NewServer(f.record(mux))
	t.Cleanup(f.srv.Close)
	return f
}

// record keeps every request body so tests can inspect what was sent.
func (f *fakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.calls = append(f.calls, call{Method: r.Method, Path: r.URL.Path, Body: body})
		f.mu.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(body))
		next.ServeHTTP(w, r)
	})
}

func writeData(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": v})
}

func (f *fakeAPI) availability(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var counts models.AvailabilityCounts
	for _, m := range f.members {
		switch m.AvailabilityStatus {
		case models.FullyAvailable:
			counts.FullyAvailable++
		case models.PartiallyAvailable:
			counts.PartiallyAvailable++
		default:
			counts.Unavailable++
		}
	}
	counts.Total = len(f.members)
	writeData(w, map[string]any{
		"availableMembers":        f.members,
		"totalFullyAvailable":     counts.FullyAvailable,
		"totalPartiallyAvailable": counts.PartiallyAvailable,
		"totalUnavailable":        counts.Unavailable,
		"totalMembers":            counts.Total,
	})
}

func (f *fakeAPI) createProject(w http.ResponseWriter, r *http.Request) {
	var req api.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p := models.Project{ID: "p-new", Name: req.Name, Color: req.Color, Description: req.Description, Client: req.Client}
	f.mu.Lock()
	f.projects[p.ID] = p
	f.mu.Unlock()
	writeData(w, p)
}

func (f *fakeAPI) getProject(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	p, ok := f.projects[r.PathValue("id")]
	f.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Project not found"}`))
		return
	}
	writeData(w, p)
}

func (f *fakeAPI) saveSections(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSections {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"database unavailable"}`))
		return
	}
	var req struct {
		SectionType models.SectionKind `json:"sectionType"`
		Sections    []models.Section   `json:"sections"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	id := r.PathValue("id")
	cols := f.sections[id]
	if req.SectionType == models.KindLogistics {
		cols.Logistics = req.Sections
	} else {
		cols.Brief = req.Sections
	}
	f.sections[id] = cols
	writeData(w, map[string]any{"sections": req.Sections})
}

// last returns the body of the most recent request to method and path.
func (f *fakeAPI) last(t *testing.T, method, path string) json.RawMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if c := f.calls[i]; c.Method == method && c.Path == path {
			return c.Body
		}
	}
	t.Fatalf("no %s %s request", method, path)
	return nil
}

// count returns how many requests hit method and path.
func (f *fakeAPI) count(method, path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method && c.Path == path {
			n++
		}
	}
	return n
}

// newTestApp builds an App that talks JSON to the fake API.
func newTestApp(t *testing.T, f *fakeAPI) (*appctx.App, *bytes.Buffer) {
	t.Helper()
	t.Setenv(auth.TokenEnv, "test-token")
	t.Setenv("SHOOTPLAN_NO_KEYRING", "1")
	t.Setenv(appctx.DebugEnv, "")

	cfg := config.Default()
	cfg.BaseURL = f.srv.URL
	cfg.CompanyID = "co-1"
	cfg.StateDir = t.TempDir()
	cfg.Timeout = 5 * time.Second

	app := appctx.NewApp(cfg)
	var out bytes.Buffer
	app.Stdin = strings.NewReader("")
	app.Stdout = &out
	app.Stderr = io.Discard
	app.Flags.JSON = true
	app.ApplyFlags()
	return app, &out
}

func execute(app *appctx.App, cmd *cobra.Command, args ...string) error {
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	return cmd.ExecuteContext(appctx.WithApp(context.Background(), app))
}

// envelope is the success response as written to stdout.
type envelope struct {
	OK      bool                       `json:"ok"`
	Data    json.RawMessage            `json:"data"`
	Summary string                     `json:"summary"`
	Notices []string                   `json:"notices"`
	Meta    map[string]json.RawMessage `json:"meta"`
}

func decodeEnvelope(t *testing.T, out *bytes.Buffer) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(out.Bytes(), &env), out.String())
	require.True(t, env.OK)
	return env
}
