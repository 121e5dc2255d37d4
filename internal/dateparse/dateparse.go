// Package dateparse turns the date words people type on the command line
// into calendar dates for events and availability queries.
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/studioline/shootplan/internal/models"
)

// Date resolves input relative to the current day and returns it as
// YYYY-MM-DD.
//
// Accepted forms:
//   - today, tomorrow
//   - monday ... sunday, mon ... sun (next occurrence, same day = next week)
//   - next monday, next week, next month
//   - eow (Friday of this week), eom (last day of this month)
//   - +N, in N days, in N weeks
//   - YYYY-MM-DD and DD/MM/YYYY
func Date(input string) (string, error) {
	return DateFrom(input, time.Now())
}

// DateFrom is Date relative to now.
func DateFrom(input string, now time.Time) (string, error) {
	t, err := Resolve(input, now)
	if err != nil {
		return "", err
	}
	return t.Format(models.DateLayout), nil
}

// Resolve returns the calendar day input refers to, at midnight in now's
// location.
func Resolve(input string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	switch s {
	case "":
		return time.Time{}, fmt.Errorf("empty date")
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	case "next week", "nextweek":
		return today.AddDate(0, 0, 7), nil
	case "next month", "nextmonth":
		return today.AddDate(0, 1, 0), nil
	case "end of week", "eow":
		return upcoming(today, time.Friday, false), nil
	case "end of month", "eom":
		return time.Date(y, m+1, 0, 0, 0, 0, 0, now.Location()), nil
	}

	if day, ok := weekday(strings.TrimPrefix(s, "next ")); ok {
		return upcoming(today, day, strings.HasPrefix(s, "next ")), nil
	}

	if rest, ok := strings.CutPrefix(s, "+"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n >= 0 {
			return today.AddDate(0, 0, n), nil
		}
	}
	if match := inPattern.FindStringSubmatch(s); match != nil {
		n, _ := strconv.Atoi(match[1])
		if strings.HasPrefix(match[2], "week") {
			n *= 7
		}
		return today.AddDate(0, 0, n), nil
	}

	for _, layout := range []string{models.DateLayout, "02/01/2006", "2/1/2006"} {
		if t, err := time.ParseInLocation(layout, s, now.Location()); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q (try YYYY-MM-DD, tomorrow, friday or +3)", input)
}

var inPattern = regexp.MustCompile(`^in (\d{1,4}) (days?|weeks?)$`)

func weekday(s string) (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if s == name || s == name[:3] {
			return d, true
		}
	}
	return 0, false
}

// upcoming returns the next target weekday strictly after today. With
// skip ("next friday") the week's own occurrence is passed over unless
// today is the target day.
func upcoming(today time.Time, target time.Weekday, skip bool) time.Time {
	days := int(target - today.Weekday())
	sameDay := days == 0
	if days <= 0 {
		days += 7
	}
	if skip && !sameDay {
		days += 7
	}
	return today.AddDate(0, 0, days)
}

// Hour parses an hour of day: "9", "09", "9:00", "17:00", "9am", "5pm" or
// "24" for midnight at the end of the day.
func Hour(input string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(input))
	pm := false
	switch {
	case strings.HasSuffix(s, "am"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "am"))
	case strings.HasSuffix(s, "pm"):
		s = strings.TrimSpace(strings.TrimSuffix(s, "pm"))
		pm = true
	}
	if h, rest, ok := strings.Cut(s, ":"); ok {
		if rest != "00" {
			return 0, fmt.Errorf("hour %q: only whole hours are bookable", input)
		}
		s = h
	}
	h, err := strconv.Atoi(s)
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("invalid hour %q", input)
	}
	if pm && h < 12 {
		h += 12
	}
	if !pm && h == 12 && strings.HasSuffix(strings.ToLower(input), "am") {
		h = 0
	}
	return h, nil
}
