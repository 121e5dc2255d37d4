package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/studioline/shootplan/internal/models"
)

// Roles lists the company's roles. The payload arrives as a bare array,
// as {roles: [...]} or as {data: {roles: [...]}}; it is adapted here once.
func (c *Client) Roles(ctx context.Context, companyID string) ([]models.Role, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/companies/"+url.PathEscape(companyID)+"/roles", &raw); err != nil {
		return nil, err
	}
	roles, err := adaptRoles(raw)
	if err != nil {
		return nil, err
	}
	return roles, nil
}

func adaptRoles(raw json.RawMessage) ([]models.Role, error) {
	roles := []models.Role{}
	if len(raw) == 0 {
		return roles, nil
	}
	if err := json.Unmarshal(raw, &roles); err == nil {
		return roles, nil
	}

	var wrapped struct {
		Roles []models.Role   `json:"roles"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("unexpected roles payload: %w", err)
	}
	if wrapped.Roles != nil {
		return wrapped.Roles, nil
	}
	if len(wrapped.Data) > 0 {
		return adaptRoles(wrapped.Data)
	}
	return roles, nil
}
