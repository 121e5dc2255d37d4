package models

// AvailabilityStatus is the server's classification of a member for a window.
type AvailabilityStatus string

const (
	FullyAvailable     AvailabilityStatus = "fully_available"
	PartiallyAvailable AvailabilityStatus = "partially_available"
	Unavailable        AvailabilityStatus = "unavailable"
)

// Selectable reports whether a member with this status may be assigned.
func (s AvailabilityStatus) Selectable() bool {
	return s != Unavailable
}

// ConflictType distinguishes overlaps on the same date and hours from
// commitments that only share the date.
type ConflictType string

const (
	ConflictDateTime ConflictType = "date_time"
	ConflictDateOnly ConflictType = "date_only"
)

// Conflict is an existing commitment overlapping the requested window.
type Conflict struct {
	ProjectName string       `json:"projectName"`
	EventName   string       `json:"eventName"`
	Date        string       `json:"date"`
	StartHour   int          `json:"startHour"`
	EndHour     int          `json:"endHour"`
	Type        ConflictType `json:"type"`
}

// AvailableMember is a company member classified against a window.
// Role holds the member's default role id.
type AvailableMember struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Email              string             `json:"email,omitempty"`
	Role               string             `json:"role"`
	AvailabilityStatus AvailabilityStatus `json:"availabilityStatus"`
	Conflicts          []Conflict         `json:"conflicts"`
}

// AvailabilityCounts are the aggregate totals reported with a member list.
type AvailabilityCounts struct {
	FullyAvailable     int `json:"totalFullyAvailable"`
	PartiallyAvailable int `json:"totalPartiallyAvailable"`
	Unavailable        int `json:"totalUnavailable"`
	Total              int `json:"totalMembers"`
}

// DateRange echoes the dates the server evaluated.
type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Availability is one resolved member list.
type Availability struct {
	Members   []AvailableMember  `json:"availableMembers"`
	Counts    AvailabilityCounts `json:"counts"`
	DateRange DateRange          `json:"dateRange"`
}

// Member returns the member with the given id.
func (a Availability) Member(id string) (AvailableMember, bool) {
	for _, m := range a.Members {
		if m.ID == id {
			return m, true
		}
	}
	return AvailableMember{}, false
}
