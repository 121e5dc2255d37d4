package builder

import (
	"regexp"
	"strings"
	"time"

	"github.com/studioline/shootplan/internal/i18n"
	"github.com/studioline/shootplan/internal/models"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

const minMobileDigits = 7

// ValidEmail reports whether s looks like an address.
func ValidEmail(s string) bool { return emailPattern.MatchString(strings.TrimSpace(s)) }

// ValidMobile reports whether s has enough ASCII digits once everything
// else is stripped.
func ValidMobile(s string) bool {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n >= minMobileDigits
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// projectFieldKey returns the catalog key for the named step-1 field, or ""
// when the field is valid.
func projectFieldKey(d ProjectDraft, withClient bool, name string) string {
	switch name {
	case FieldProjectName:
		if blank(d.Name) {
			return "ProjectNameRequired"
		}
	case FieldColor:
		if blank(d.Color) {
			return "ColorRequired"
		}
	case FieldDescription:
		if blank(d.Description) {
			return "DescriptionRequired"
		}
	case FieldClientName:
		if withClient && blank(d.Client.Name) {
			return "ClientNameRequired"
		}
	case FieldClientEmail:
		switch {
		case !withClient:
		case blank(d.Client.Email):
			return "ClientEmailRequired"
		case !ValidEmail(d.Client.Email):
			return "ClientEmailInvalid"
		}
	case FieldClientMobile:
		switch {
		case !withClient:
		case blank(d.Client.Mobile):
			return "ClientMobileRequired"
		case !ValidMobile(d.Client.Mobile):
			return "ClientMobileInvalid"
		}
	}
	return ""
}

var projectFields = []string{
	FieldProjectName, FieldColor, FieldDescription,
	FieldClientName, FieldClientEmail, FieldClientMobile,
}

// eventFieldKey is projectFieldKey for one event.
func eventFieldKey(e EventDraft, name string) string {
	switch name {
	case FieldEventName:
		if blank(e.Name) {
			return "EventNameRequired"
		}
	case FieldEventDate:
		if blank(e.Date) {
			return "EventDateRequired"
		}
		if _, err := time.Parse(models.DateLayout, e.Date); err != nil {
			return "EventDateInvalid"
		}
	case FieldEventHours:
		if !e.Start.Valid() || !e.End.Valid() || e.Start >= e.End {
			return "EventHoursInvalid"
		}
	case FieldLocation:
		if blank(e.Location) {
			return "LocationRequired"
		}
	case FieldAssignments:
		if len(e.Assignments) == 0 {
			return "TeamMemberRequired"
		}
	}
	return ""
}

var eventFields = []string{
	FieldEventName, FieldEventDate, FieldEventHours, FieldLocation, FieldAssignments,
}

// EventErrors checks one event on its own, keyed by field name. It serves
// events added to a project that already exists.
func EventErrors(e EventDraft, tr *i18n.Translator) map[string]string {
	out := map[string]string{}
	for _, name := range eventFields {
		if key := eventFieldKey(e, name); key != "" {
			out[name] = tr.T(key, nil)
		}
	}
	return out
}
