package api

import (
	"context"
	"encoding/json"
	"net/url"

	"github.com/studioline/shootplan/internal/models"
)

// AssignmentInput is one member/role binding in a create payload.
type AssignmentInput struct {
	MemberID     string `json:"memberId"`
	RoleID       string `json:"roleId"`
	Instructions string `json:"instructions,omitempty"`
}

// EventInput is one event in a project create payload.
type EventInput struct {
	Name        string            `json:"name"`
	Date        string            `json:"date"`
	StartHour   int               `json:"startHour"`
	EndHour     int               `json:"endHour"`
	Location    string            `json:"location"`
	Reminders   models.Reminders  `json:"reminders"`
	Assignments []AssignmentInput `json:"assignments"`
}

// CreateProjectRequest creates a project and all its events in one call.
type CreateProjectRequest struct {
	CompanyID   string           `json:"companyId,omitempty"`
	Name        string           `json:"name"`
	Color       string           `json:"color"`
	Description string           `json:"description"`
	Client      *models.Client   `json:"client,omitempty"`
	Reminders   models.Reminders `json:"reminders"`
	Events      []EventInput     `json:"events"`
}

// UpdateProjectRequest edits a project. Nil fields are left unchanged.
// ClearClient sends an explicit null to remove the client.
type UpdateProjectRequest struct {
	ProjectID        string
	Name             *string
	Color            *string
	Description      *string
	Client           *models.Client
	ClearClient      bool
	IsScheduleUpdate *bool
}

// MarshalJSON emits only the fields that are set.
func (r UpdateProjectRequest) MarshalJSON() ([]byte, error) {
	m := map[string]any{"projectId": r.ProjectID}
	if r.Name != nil {
		m["name"] = *r.Name
	}
	if r.Color != nil {
		m["color"] = *r.Color
	}
	if r.Description != nil {
		m["description"] = *r.Description
	}
	switch {
	case r.ClearClient:
		m["client"] = nil
	case r.Client != nil:
		m["client"] = r.Client
	}
	if r.IsScheduleUpdate != nil {
		m["isScheduleUpdate"] = *r.IsScheduleUpdate
	}
	return json.Marshal(m)
}

// CreateProject persists a project draft.
func (c *Client) CreateProject(ctx context.Context, req CreateProjectRequest) (models.Project, error) {
	var p models.Project
	err := c.post(ctx, "/projects", req, &p)
	return p, err
}

// UpdateProject applies a partial update.
func (c *Client) UpdateProject(ctx context.Context, req UpdateProjectRequest) (models.Project, error) {
	var p models.Project
	err := c.put(ctx, "/projects/"+url.PathEscape(req.ProjectID), req, &p)
	return p, err
}

// DeleteProject removes a project and its events.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.delete(ctx, "/projects", map[string]string{"projectId": projectID})
}

// GetProject returns a project with its events, assignments and company.
func (c *Client) GetProject(ctx context.Context, projectID string) (models.Project, error) {
	var p models.Project
	err := c.get(ctx, "/projects/"+url.PathEscape(projectID), &p)
	return p, err
}
