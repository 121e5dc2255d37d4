package api

import (
	"context"
	"net/url"

	"github.com/studioline/shootplan/internal/models"
)

// SectionCollections holds both section collections of a project.
type SectionCollections struct {
	Brief     []models.Section `json:"brief"`
	Logistics []models.Section `json:"logistics"`
}

// Get returns the collection of the given kind.
func (s SectionCollections) Get(kind models.SectionKind) []models.Section {
	if kind == models.KindLogistics {
		return s.Logistics
	}
	return s.Brief
}

type saveSectionsRequest struct {
	ProjectID   string             `json:"projectId"`
	SectionType models.SectionKind `json:"sectionType"`
	Sections    []models.Section   `json:"sections"`
}

// SaveSections replaces a whole collection and returns what the server
// stored.
func (c *Client) SaveSections(ctx context.Context, projectID string, kind models.SectionKind, sections []models.Section) ([]models.Section, error) {
	if sections == nil {
		sections = []models.Section{}
	}
	req := saveSectionsRequest{ProjectID: projectID, SectionType: kind, Sections: sections}

	// The echo may be the bare array or wrapped as {sections: [...]}.
	var raw struct {
		Sections []models.Section `json:"sections"`
	}
	var echoed []models.Section
	err := c.put(ctx, "/projects/"+url.PathEscape(projectID)+"/sections", req, &rawOrList{obj: &raw, list: &echoed})
	if err != nil {
		return nil, err
	}
	if echoed == nil {
		echoed = raw.Sections
	}
	return echoed, nil
}

// Sections fetches the brief and logistics collections.
func (c *Client) Sections(ctx context.Context, projectID string) (SectionCollections, error) {
	var s SectionCollections
	err := c.get(ctx, "/projects/"+url.PathEscape(projectID)+"/sections", &s)
	return s, err
}
