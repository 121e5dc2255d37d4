package models

import (
	"fmt"
	"time"
)

// Minutes is a time of day expressed as minutes since midnight.
// All event times are held in this form and converted at the API boundary.
type Minutes int

const (
	MinutesPerHour = 60
	EndOfDay       = Minutes(24 * MinutesPerHour)
)

// FromHour converts an hour of day (0-24) to Minutes.
func FromHour(h int) Minutes { return Minutes(h * MinutesPerHour) }

// Hour returns the whole hour, truncating any minutes.
func (m Minutes) Hour() int { return int(m) / MinutesPerHour }

// Valid reports whether m lies in [0, 24:00].
func (m Minutes) Valid() bool { return m >= 0 && m <= EndOfDay }

func (m Minutes) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/MinutesPerHour, int(m)%MinutesPerHour)
}

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Window is the (date, start, end) tuple an availability query is keyed by.
// It is comparable and used directly as a map key.
type Window struct {
	Date  string
	Start Minutes
	End   Minutes
}

// Validate checks the date format and that start < end within the day.
func (w Window) Validate() error {
	if _, err := time.Parse(DateLayout, w.Date); err != nil {
		return fmt.Errorf("invalid date %q: expected YYYY-MM-DD", w.Date)
	}
	if !w.Start.Valid() || !w.End.Valid() {
		return fmt.Errorf("hours must be between 00:00 and 24:00")
	}
	if w.Start >= w.End {
		return fmt.Errorf("start %s must be before end %s", w.Start, w.End)
	}
	return nil
}

func (w Window) String() string {
	return fmt.Sprintf("%s %s-%s", w.Date, w.Start, w.End)
}
