package output

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCodeFor(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{CodeUsage, ExitUsage},
		{CodeValidation, ExitValidation},
		{CodeNotFound, ExitNotFound},
		{CodeAuth, ExitAuth},
		{CodeSessionExpired, ExitAuth},
		{CodeForbidden, ExitForbidden},
		{CodeRateLimit, ExitRateLimit},
		{CodeNetwork, ExitNetwork},
		{CodeAPI, ExitAPI},
		{CodeRejected, ExitRejected},
		{CodeBusy, ExitBusy},
		{"unknown", ExitAPI},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCodeFor(tt.code))
		})
	}
}

func TestErrorUnwrapAndMessage(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := ErrNetwork(cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, err.Retryable)
	assert.Equal(t, ExitNetwork, err.ExitCode())
	assert.Contains(t, err.Error(), "refused")
}

func TestAsErrorWrapsPlainErrors(t *testing.T) {
	e := AsError(errors.New("boom"))
	assert.Equal(t, CodeAPI, e.Code)
	assert.Equal(t, "boom", e.Message)

	orig := ErrNotFound("project", "p1")
	assert.Same(t, orig, AsError(orig))
	assert.True(t, IsCode(orig, CodeNotFound))
	assert.False(t, IsCode(errors.New("x"), CodeNotFound))
}

func TestWriterJSONSuccess(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatJSON, Writer: &buf})

	err := w.OK(map[string]any{"id": "p1"}, WithSummary("Created"), WithNotices("Member Unavailable"))
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.True(t, resp.OK)
	assert.Equal(t, "Created", resp.Summary)
	assert.Equal(t, []string{"Member Unavailable"}, resp.Notices)
}

func TestWriterJSONErrorIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatJSON, Writer: &buf})

	err := w.Err(ErrValidation("Please fix the highlighted fields", map[string]string{
		"projectName": "Project name is required",
	}))
	require.NoError(t, err)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.OK)
	assert.Equal(t, CodeValidation, resp.Code)
	assert.Equal(t, "Project name is required", resp.Fields["projectName"])
}

func TestWriterQuietEmitsDataOnly(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Format: FormatQuiet, Writer: &buf})

	require.NoError(t, w.OK([]string{"a", "b"}, WithSummary("ignored")))
	assert.JSONEq(t, `["a","b"]`, buf.String())
}

func TestWriterIDs(t *testing.T) {
	type item struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	var buf bytes.Buffer
	w := New(Options{Format: FormatIDs, Writer: &buf})

	require.NoError(t, w.OK([]item{{"e1", "Day 1"}, {"e2", "Day 2"}}))
	assert.Equal(t, "e1\ne2\n", buf.String())
}

func TestWriterJQ(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Writer: &buf, JQ: ".data[].name"})

	data := []map[string]string{{"name": "Ana"}, {"name": "Ben"}}
	require.NoError(t, w.OK(data))
	assert.Equal(t, "Ana\nBen\n", buf.String())
}

func TestWriterJQInvalidExpression(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Writer: &buf, JQ: ".data[["})

	err := w.OK(nil)
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeUsage))
}

func TestAutoFormatNonTTYIsJSON(t *testing.T) {
	var buf bytes.Buffer
	w := New(Options{Writer: &buf})
	assert.False(t, w.Styled())

	require.NoError(t, w.OK(map[string]any{"id": "x"}))
	assert.True(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"))
}

func TestStyledRendersTableAndNotices(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	w := New(Options{Format: FormatStyled, Writer: &buf})

	data := []map[string]any{
		{"id": "m1", "name": "Ana", "availabilityStatus": "fully_available"},
		{"id": "m2", "name": "Ben", "availabilityStatus": "unavailable"},
	}
	require.NoError(t, w.OK(data, WithSummary("2 members"), WithNotices("Ben is unavailable")))

	out := buf.String()
	assert.Contains(t, out, "2 members")
	assert.Contains(t, out, "! Ben is unavailable")
	assert.Contains(t, out, "Availability Status")
	assert.Contains(t, out, "Ana")
	assert.Contains(t, out, "unavailable")
}

func TestStyledRendersErrorFieldsSorted(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	w := New(Options{Format: FormatStyled, Writer: &buf})

	require.NoError(t, w.Err(ErrValidation("Invalid draft", map[string]string{
		"event-0-name": "Event name is required",
		"clientEmail":  "Enter a valid email",
	})))

	out := buf.String()
	assert.Contains(t, out, "Error: Invalid draft")
	assert.Less(t, strings.Index(out, "clientEmail"), strings.Index(out, "event-0-name"))
}

func TestFormatHeader(t *testing.T) {
	assert.Equal(t, "Start Hour", formatHeader("startHour"))
	assert.Equal(t, "Project id", formatHeader("project_id"))
	assert.Equal(t, "Id", formatHeader("id"))
}
