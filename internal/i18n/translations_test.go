package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogMessages(t *testing.T) {
	tr := New("en")

	assert.Equal(t, "Project name is required", tr.T("ProjectNameRequired", nil))
	assert.Equal(t, "At least one event is required", tr.T("LastEventRequired", nil))
	assert.Equal(t, "Member Unavailable", tr.T("MemberUnavailable", nil))
	assert.Equal(t, "Please enter a valid mobile number", tr.T("ClientMobileInvalid", nil))
}

func TestTemplateData(t *testing.T) {
	got := T("MemberAlreadyAssigned", map[string]any{"Name": "Ana"})
	assert.Equal(t, "Ana is already assigned to this event", got)
}

func TestUnknownKeyFallsBackToKey(t *testing.T) {
	assert.Equal(t, "NoSuchKey", T("NoSuchKey", nil))
	assert.Equal(t, "", T("", nil))
}

func TestUnknownLocaleFallsBackToEnglish(t *testing.T) {
	tr := New("fr")
	assert.Equal(t, "Location is required", tr.T("LocationRequired", nil))

	tr = New("not a locale")
	assert.Equal(t, "Color is required", tr.T("ColorRequired", nil))
}
