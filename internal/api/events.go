package api

import (
	"context"
	"net/url"

	"github.com/studioline/shootplan/internal/models"
)

// CreateEventRequest adds an event to an existing project.
type CreateEventRequest struct {
	ProjectID   string            `json:"projectId"`
	Name        string            `json:"name"`
	Date        string            `json:"date"`
	StartHour   int               `json:"startHour"`
	EndHour     int               `json:"endHour"`
	Location    string            `json:"location"`
	Reminders   models.Reminders  `json:"reminders"`
	Assignments []AssignmentInput `json:"assignments"`
}

// EventPatch is a partial event update; nil fields are not sent.
type EventPatch struct {
	Name        *string            `json:"name,omitempty"`
	Date        *string            `json:"date,omitempty"`
	StartHour   *int               `json:"startHour,omitempty"`
	EndHour     *int               `json:"endHour,omitempty"`
	Location    *string            `json:"location,omitempty"`
	Reminders   *models.Reminders  `json:"reminders,omitempty"`
	Assignments *[]AssignmentInput `json:"assignments,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p == EventPatch{}
}

// CreateEvent adds an event to a project.
func (c *Client) CreateEvent(ctx context.Context, req CreateEventRequest) (models.Event, error) {
	var e models.Event
	err := c.post(ctx, "/events", req, &e)
	return e, err
}

// UpdateEvent applies patch to the event.
func (c *Client) UpdateEvent(ctx context.Context, eventID string, patch EventPatch) (models.Event, error) {
	var e models.Event
	err := c.put(ctx, "/events/"+url.PathEscape(eventID), patch, &e)
	return e, err
}

// DeleteEvent removes an event.
func (c *Client) DeleteEvent(ctx context.Context, eventID string) error {
	return c.delete(ctx, "/events", map[string]string{"eventId": eventID})
}
