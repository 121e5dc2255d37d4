package appctx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioline/shootplan/internal/auth"
	"github.com/studioline/shootplan/internal/config"
	"github.com/studioline/shootplan/internal/observability"
	"github.com/studioline/shootplan/internal/output"
)

func testApp(t *testing.T, cfg *config.Config) (*App, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	t.Setenv("SHOOTPLAN_NO_KEYRING", "1")
	t.Setenv(auth.TokenEnv, "")
	t.Setenv(DebugEnv, "")
	if cfg == nil {
		cfg = config.Default()
	}
	cfg.StateDir = t.TempDir()
	app := NewApp(cfg)
	var stdout, stderr bytes.Buffer
	app.Stdout = &stdout
	app.Stderr = &stderr
	app.ApplyFlags()
	return app, &stdout, &stderr
}

func TestNewApp(t *testing.T) {
	app, _, _ := testApp(t, nil)
	assert.NotNil(t, app.Auth)
	assert.NotNil(t, app.Output)
	assert.NotNil(t, app.Logger)
	assert.NotNil(t, app.Tr)
	assert.NotNil(t, app.Realm)
	assert.Nil(t, app.Session())
}

func TestWithAppAndFromContext(t *testing.T) {
	app, _, _ := testApp(t, nil)
	ctx := WithApp(context.Background(), app)
	assert.Same(t, app, FromContext(ctx))
	assert.Nil(t, FromContext(context.Background()))
}

func TestApplyFlagsFormats(t *testing.T) {
	tests := []struct {
		name  string
		flags GlobalFlags
		check func(t *testing.T, out string)
	}{
		{"json", GlobalFlags{JSON: true}, func(t *testing.T, out string) {
			assert.Contains(t, out, `"ok": true`)
		}},
		{"quiet", GlobalFlags{Quiet: true}, func(t *testing.T, out string) {
			assert.NotContains(t, out, `"ok"`)
			assert.Contains(t, out, `"id": "p-1"`)
		}},
		{"ids", GlobalFlags{IDsOnly: true}, func(t *testing.T, out string) {
			assert.Equal(t, "p-1\n", out)
		}},
		{"ids wins over json", GlobalFlags{IDsOnly: true, JSON: true}, func(t *testing.T, out string) {
			assert.Equal(t, "p-1\n", out)
		}},
		{"jq", GlobalFlags{JSON: true, JQ: ".data.id"}, func(t *testing.T, out string) {
			assert.Equal(t, "p-1\n", out)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, stdout, _ := testApp(t, nil)
			app.Flags = tt.flags
			app.ApplyFlags()
			require.NoError(t, app.OK(map[string]any{"id": "p-1", "name": "Spring"}))
			tt.check(t, stdout.String())
		})
	}
}

func TestConfigFormatApplies(t *testing.T) {
	cfg := config.Default()
	cfg.Format = "json"
	app, stdout, _ := testApp(t, cfg)
	require.NoError(t, app.OK([]string{"a"}))
	assert.Contains(t, stdout.String(), `"ok": true`)
}

func TestLevelFor(t *testing.T) {
	assert.Equal(t, slog.LevelWarn, levelFor("warn", 0))
	assert.Equal(t, slog.LevelError, levelFor("error", 0))
	assert.Equal(t, slog.LevelWarn, levelFor("loud", 0))
	assert.Equal(t, slog.LevelInfo, levelFor("error", 1))
	assert.Equal(t, slog.LevelDebug, levelFor("error", 2))
}

func TestDebugEnvRaisesVerbosity(t *testing.T) {
	app, _, stderr := testApp(t, nil)
	t.Setenv(DebugEnv, "true")
	app.ApplyFlags()
	app.Logger.Debug("visible")
	assert.Contains(t, stderr.String(), "visible")
}

func TestErrWritesStructuredError(t *testing.T) {
	app, stdout, _ := testApp(t, nil)
	app.Flags.JSON = true
	app.ApplyFlags()

	require.NoError(t, app.Err(output.ErrValidation("Please fix the highlighted fields", map[string]string{"color": "Color is required"})))
	var resp output.ErrorResponse
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &resp))
	assert.Equal(t, output.CodeValidation, resp.Code)
	assert.Equal(t, "Color is required", resp.Fields["color"])
}

func TestErrPrintsStatsForHumans(t *testing.T) {
	app, _, stderr := testApp(t, nil)
	app.Flags.Stats = true
	app.Collector.RecordRequest(observability.RequestMetrics{Method: "GET", Path: "/projects/p-1", Duration: time.Millisecond})

	require.NoError(t, app.Err(output.ErrNotFound("Project", "p-1")))
	assert.Contains(t, stderr.String(), "Stats: ")
	assert.Contains(t, stderr.String(), "1 request")

	stderr.Reset()
	app.Flags.JSON = true
	app.ApplyFlags()
	require.NoError(t, app.Err(output.ErrNotFound("Project", "p-1")))
	assert.NotContains(t, stderr.String(), "Stats: ")
}

func TestErrLocalizesSessionExpired(t *testing.T) {
	app, stdout, stderr := testApp(t, nil)
	app.Flags.JSON = true
	app.ApplyFlags()

	require.NoError(t, app.Err(output.ErrSessionExpired()))
	assert.Contains(t, stdout.String()+stderr.String(), "Your session has expired, please log in again")
}

func TestRequireCompany(t *testing.T) {
	app, _, _ := testApp(t, nil)
	_, err := app.RequireCompany()
	assert.True(t, output.IsCode(err, output.CodeUsage))

	app.Config.CompanyID = "co-config"
	id, err := app.RequireCompany()
	require.NoError(t, err)
	assert.Equal(t, "co-config", id)

	app.Flags.Company = "co-flag"
	assert.Equal(t, "co-flag", app.CompanyID())
}

func TestClientRequiresLogin(t *testing.T) {
	app, _, _ := testApp(t, nil)
	_, err := app.Client()
	assert.True(t, output.IsCode(err, output.CodeAuth))
}

func TestSessionExpiryTearsDownRealm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/companies/co-1/roles":
			_, _ = w.Write([]byte(`{"success":true,"data":{"roles":[{"id":"r1","name":"Photographer"}]}}`))
		default:
			w.WriteHeader(498)
		}
	}))
	defer srv.Close()

	cfg := config.Default()
	cfg.BaseURL = srv.URL
	cfg.CompanyID = "co-1"
	cfg.Timeout = 5 * time.Second
	app, _, _ := testApp(t, cfg)
	_, err := app.Auth.Login("opaque-token")
	require.NoError(t, err)

	resolver, err := app.Names()
	require.NoError(t, err)
	assert.Equal(t, "Photographer", resolver.RoleName(context.Background(), "r1"))
	require.NotNil(t, app.Realm.Pool("roles:co-1"))

	client, err := app.Client()
	require.NoError(t, err)
	_, err = client.GetProject(context.Background(), "p-1")
	assert.True(t, output.IsCode(err, output.CodeSessionExpired))
	assert.False(t, app.Session().Active())
	assert.Nil(t, app.Realm.Pool("roles:co-1"), "realm torn down")

	_, err = app.Auth.Store().Load(srv.URL)
	assert.True(t, errors.Is(err, auth.ErrNoCredentials), "stored token cleared")
}

func TestIsInteractiveFalseForBuffers(t *testing.T) {
	app, _, _ := testApp(t, nil)
	app.Stdin = bytes.NewReader(nil)
	assert.False(t, app.IsInteractive())

	app.Flags.JSON = true
	assert.False(t, app.IsInteractive())
}
