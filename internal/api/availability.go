package api

import (
	"context"

	"github.com/studioline/shootplan/internal/models"
	"github.com/studioline/shootplan/internal/output"
)

// AvailabilityQuery asks which members are free in a window. Either Date
// or StartDate+EndDate is set.
type AvailabilityQuery struct {
	CompanyID        string `json:"companyId"`
	Date             string `json:"date,omitempty"`
	StartDate        string `json:"startDate,omitempty"`
	EndDate          string `json:"endDate,omitempty"`
	StartHour        int    `json:"startHour"`
	EndHour          int    `json:"endHour"`
	ExcludeProjectID string `json:"excludeProjectId,omitempty"`
}

// WindowQuery converts a window to the hour-granular wire query. A start
// with minutes rounds down and an end with minutes rounds up, so the query
// always covers the window.
func WindowQuery(companyID string, w models.Window, excludeProjectID string) AvailabilityQuery {
	end := w.End.Hour()
	if int(w.End)%models.MinutesPerHour != 0 {
		end++
	}
	return AvailabilityQuery{
		CompanyID:        companyID,
		Date:             w.Date,
		StartHour:        w.Start.Hour(),
		EndHour:          end,
		ExcludeProjectID: excludeProjectID,
	}
}

type availabilityData struct {
	Members []models.AvailableMember `json:"availableMembers"`
	models.AvailabilityCounts
	DateRange models.DateRange `json:"dateRange"`
}

// Availability classifies the company's members against the query window.
// Statuses and conflicts are passed through as the server reports them.
func (c *Client) Availability(ctx context.Context, q AvailabilityQuery) (models.Availability, error) {
	if q.CompanyID == "" {
		return models.Availability{}, output.ErrUsageHint("No company configured",
			"Use --company or set SHOOTPLAN_COMPANY_ID")
	}
	var d availabilityData
	// A read despite the POST, so it is safe to retry.
	err := c.do(ctx, request{method: "POST", path: "/availability/members", body: q, idempotent: true}, &d)
	if err != nil {
		return models.Availability{}, err
	}
	if d.Members == nil {
		d.Members = []models.AvailableMember{}
	}
	return models.Availability{Members: d.Members, Counts: d.AvailabilityCounts, DateRange: d.DateRange}, nil
}
