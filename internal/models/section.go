package models

import (
	"encoding/json"
	"fmt"
	"slices"
)

// SectionType is the content shape of a section.
type SectionType string

const (
	SectionText SectionType = "text"
	SectionList SectionType = "list"
)

// SectionKind names a project's section collection.
type SectionKind string

const (
	KindBrief     SectionKind = "brief"
	KindLogistics SectionKind = "logistics"
)

// ParseSectionKind validates a collection name.
func ParseSectionKind(s string) (SectionKind, error) {
	switch SectionKind(s) {
	case KindBrief, KindLogistics:
		return SectionKind(s), nil
	}
	return "", fmt.Errorf("unknown section kind %q (want brief or logistics)", s)
}

// ParseSectionType validates a content type name.
func ParseSectionType(s string) (SectionType, error) {
	switch SectionType(s) {
	case SectionText, SectionList:
		return SectionType(s), nil
	}
	return "", fmt.Errorf("unknown section type %q (want text or list)", s)
}

// Section is an ordered, typed content block of a brief or logistics collection.
// Text sections use Text; list sections use Items. On the wire both are the
// single "content" field, a string or an array of strings.
type Section struct {
	ID    int         `json:"id"`
	Title string      `json:"title"`
	Type  SectionType `json:"type"`
	Text  string      `json:"-"`
	Items []string    `json:"-"`
	Order int         `json:"order"`
}

// NewSection returns a blank section of the given type.
func NewSection(id int, t SectionType) Section {
	s := Section{ID: id, Type: t}
	if t == SectionList {
		s.Items = []string{""}
	}
	return s
}

// Clone returns a deep copy.
func (s Section) Clone() Section {
	s.Items = slices.Clone(s.Items)
	return s
}

// CloneSections deep-copies a collection.
func CloneSections(in []Section) []Section {
	if in == nil {
		return nil
	}
	out := make([]Section, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}

type sectionWire struct {
	ID      int             `json:"id"`
	Title   string          `json:"title"`
	Type    SectionType     `json:"type"`
	Content json.RawMessage `json:"content"`
	Order   int             `json:"order"`
}

func (s Section) MarshalJSON() ([]byte, error) {
	var content any = s.Text
	if s.Type == SectionList {
		items := s.Items
		if items == nil {
			items = []string{}
		}
		content = items
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(sectionWire{ID: s.ID, Title: s.Title, Type: s.Type, Content: raw, Order: s.Order})
}

func (s *Section) UnmarshalJSON(data []byte) error {
	var w sectionWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*s = Section{ID: w.ID, Title: w.Title, Type: w.Type, Order: w.Order}
	if len(w.Content) == 0 || string(w.Content) == "null" {
		if s.Type == SectionList {
			s.Items = []string{}
		}
		return nil
	}
	switch s.Type {
	case SectionList:
		if err := json.Unmarshal(w.Content, &s.Items); err != nil {
			// Tolerate a list stored as a single string.
			var one string
			if json.Unmarshal(w.Content, &one) != nil {
				return fmt.Errorf("section %d: list content: %w", s.ID, err)
			}
			s.Items = []string{one}
		}
	default:
		if err := json.Unmarshal(w.Content, &s.Text); err != nil {
			return fmt.Errorf("section %d: text content: %w", s.ID, err)
		}
	}
	return nil
}
