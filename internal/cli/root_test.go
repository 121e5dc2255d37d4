package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studioline/shootplan/internal/output"
)

// isolate points every configuration source at empty temp directories.
func isolate(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("XDG_STATE_HOME", dir)
	t.Setenv("SHOOTPLAN_NO_KEYRING", "1")
	t.Setenv("SHOOTPLAN_TOKEN", "")
	t.Setenv("SHOOTPLAN_DEBUG", "")
	t.Setenv("SHOOTPLAN_BASE_URL", "")
	t.Setenv("SHOOTPLAN_COMPANY_ID", "")
	t.Setenv("SHOOTPLAN_FORMAT", "")
	t.Setenv("SHOOTPLAN_OTLP_ENDPOINT", "")
}

func runCLI(t *testing.T, args ...string) (int, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), args, strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String()
}

func TestTransformCobraError(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"flag needs an argument: --date", "--date requires a value"},
		{"unknown flag: --bogus", "Unknown option: --bogus"},
		{"unknown shorthand flag: 'x' in -x", "Unknown option: -x"},
		{"accepts 1 arg(s), received 0", "ID required"},
		{"accepts 1 arg(s), received 3", "accepts 1 arg(s), received 3"},
		{`required flag(s) "project" not set`, "--project is required"},
		{`invalid argument "x" for "--verbose" flag`, `invalid argument "x" for "--verbose" flag`},
		{"if any flags in the group [file interactive] are set none of the others can be; [file interactive] were all set",
			"if any flags in the group [file interactive] are set none of the others can be; [file interactive] were all set"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			err := transformCobraError(errors.New(tt.in))
			var oe *output.Error
			require.ErrorAs(t, err, &oe)
			assert.Equal(t, output.CodeUsage, oe.Code)
			assert.Equal(t, tt.want, oe.Message)
		})
	}
}

func TestTransformCobraErrorKeepsOutputErrors(t *testing.T) {
	in := output.ErrNotFound("project", "p-1")
	assert.Same(t, in, transformCobraError(in))

	plain := errors.New("boom")
	assert.Equal(t, plain, transformCobraError(plain))
}

func TestTransformCobraErrorUnknownCommandHint(t *testing.T) {
	err := transformCobraError(errors.New(`unknown command "bogus" for "shootplan"`))
	oe := output.AsError(err)
	assert.Equal(t, output.CodeUsage, oe.Code)
	assert.Contains(t, oe.Hint, "--help")
}

func TestRunVersion(t *testing.T) {
	isolate(t)
	code, out := runCLI(t, "version")
	assert.Equal(t, output.ExitOK, code)
	assert.Contains(t, out, "shootplan version")
}

func TestRunUnknownFlag(t *testing.T) {
	isolate(t)
	code, out := runCLI(t, "--bogus")
	assert.Equal(t, output.ExitUsage, code)

	var resp output.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.OK)
	assert.Equal(t, output.CodeUsage, resp.Code)
	assert.Equal(t, "Unknown option: --bogus", resp.Error)
}

func TestRunMissingArgument(t *testing.T) {
	isolate(t)
	code, out := runCLI(t, "project", "show", "--json")
	assert.Equal(t, output.ExitUsage, code)
	assert.Contains(t, out, "ID required")
}

func TestRunMissingRequiredFlag(t *testing.T) {
	isolate(t)
	code, out := runCLI(t, "sections", "add", "p-1", "--json")
	assert.Equal(t, output.ExitUsage, code)
	assert.Contains(t, out, "--kind is required")
}

func TestRunConfigShow(t *testing.T) {
	isolate(t)
	code, out := runCLI(t, "config", "show", "--json", "--company", "co-9")
	require.Equal(t, output.ExitOK, code, out)

	var resp struct {
		OK   bool `json:"ok"`
		Data []struct {
			Key    string `json:"key"`
			Value  string `json:"value"`
			Source string `json:"source"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.True(t, resp.OK)

	got := map[string][2]string{}
	for _, e := range resp.Data {
		got[e.Key] = [2]string{e.Value, e.Source}
	}
	assert.Equal(t, [2]string{"co-9", "flag"}, got["company_id"])
	assert.Equal(t, [2]string{"https://api.shootplan.app", "default"}, got["base_url"])
}

func TestRunInvalidConfigIsUsageError(t *testing.T) {
	isolate(t)
	t.Setenv("SHOOTPLAN_FORMAT", "xml")
	code, out := runCLI(t, "config", "show", "--json")
	assert.Equal(t, output.ExitUsage, code)
	assert.Contains(t, out, "invalid format")
}

func TestRunAuthStatusLoggedOut(t *testing.T) {
	isolate(t)
	code, out := runCLI(t, "auth", "status", "--json", "--state-dir", t.TempDir())
	require.Equal(t, output.ExitOK, code, out)
	assert.Contains(t, out, "Not logged in")
	assert.Contains(t, out, "shootplan auth login")
}

func TestRunAPICommandWithoutTokenIsAuthError(t *testing.T) {
	isolate(t)
	code, out := runCLI(t, "roles", "--json", "--company", "co-1", "--state-dir", t.TempDir())
	assert.Equal(t, output.ExitAuth, code, out)
}
