package sections

import (
	"context"
	"fmt"

	"github.com/studioline/shootplan/internal/api"
	"github.com/studioline/shootplan/internal/models"
)

// Client reads and writes a project's sections.
type Client interface {
	Saver
	Sections(ctx context.Context, projectID string) (api.SectionCollections, error)
}

// Set is one editor per collection of a project.
type Set struct {
	Brief     *Editor
	Logistics *Editor
}

// Get returns the editor for kind.
func (s Set) Get(kind models.SectionKind) *Editor {
	if kind == models.KindLogistics {
		return s.Logistics
	}
	return s.Brief
}

// Load fetches both collections and builds their editors.
func Load(ctx context.Context, client Client, projectID string, opts ...Option) (Set, error) {
	cols, err := client.Sections(ctx, projectID)
	if err != nil {
		return Set{}, fmt.Errorf("load sections: %w", err)
	}
	return Set{
		Brief:     NewEditor(client, projectID, models.KindBrief, cols.Brief, opts...),
		Logistics: NewEditor(client, projectID, models.KindLogistics, cols.Logistics, opts...),
	}, nil
}
