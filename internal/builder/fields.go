package builder

import (
	"fmt"
	"maps"
	"sort"
)

// Scope says which part of the draft a FieldKey points at.
type Scope int

const (
	// ScopeGlobal is a form-wide message not tied to one input.
	ScopeGlobal Scope = iota
	// ScopeField is a step-1 project or client field.
	ScopeField
	// ScopeEventField is a field of the event at FieldKey.Event.
	ScopeEventField
)

// FieldKey identifies one validation message.
type FieldKey struct {
	Scope Scope
	Name  string
	Event int
}

// GlobalKey returns the key for a form-wide message.
func GlobalKey(name string) FieldKey { return FieldKey{Scope: ScopeGlobal, Name: name} }

// Field returns the key for a project or client field.
func Field(name string) FieldKey { return FieldKey{Scope: ScopeField, Name: name} }

// EventField returns the key for a field of event i.
func EventField(i int, name string) FieldKey {
	return FieldKey{Scope: ScopeEventField, Name: name, Event: i}
}

// String renders the key the way forms address inputs:
// "projectName" or "event-2-location".
func (k FieldKey) String() string {
	if k.Scope == ScopeEventField {
		return fmt.Sprintf("event-%d-%s", k.Event, k.Name)
	}
	return k.Name
}

// FieldErrors maps a field to its message. A field with no entry is valid.
type FieldErrors map[FieldKey]string

// Set records msg for key.
func (e FieldErrors) Set(key FieldKey, msg string) { e[key] = msg }

// Clear drops the message for key.
func (e FieldErrors) Clear(key FieldKey) { delete(e, key) }

// Has reports whether key currently has a message.
func (e FieldErrors) Has(key FieldKey) bool {
	_, ok := e[key]
	return ok
}

// Get returns the message for key, or "".
func (e FieldErrors) Get(key FieldKey) string { return e[key] }

// HasEvent reports whether event i has any message, so an event selector
// can mark the tab.
func (e FieldErrors) HasEvent(i int) bool {
	for k := range e {
		if k.Scope == ScopeEventField && k.Event == i {
			return true
		}
	}
	return false
}

// Events lists the event indexes that carry messages, ascending.
func (e FieldErrors) Events() []int {
	seen := map[int]bool{}
	for k := range e {
		if k.Scope == ScopeEventField {
			seen[k.Event] = true
		}
	}
	out := make([]int, 0, len(seen))
	for i := range seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// removeEvent drops event i's messages and shifts later events down so the
// keys follow the events slice after a removal.
func (e FieldErrors) removeEvent(i int) {
	moved := FieldErrors{}
	for k, msg := range e {
		if k.Scope != ScopeEventField || k.Event < i {
			continue
		}
		delete(e, k)
		if k.Event > i {
			k.Event--
			moved[k] = msg
		}
	}
	maps.Copy(e, moved)
}

// Strings flattens the map to display keys, the shape output.Error carries.
func (e FieldErrors) Strings() map[string]string {
	if len(e) == 0 {
		return nil
	}
	out := make(map[string]string, len(e))
	for k, msg := range e {
		out[k.String()] = msg
	}
	return out
}

// Step-1 field names.
const (
	FieldProjectName  = "projectName"
	FieldColor        = "color"
	FieldDescription  = "description"
	FieldClientName   = "clientName"
	FieldClientEmail  = "clientEmail"
	FieldClientMobile = "clientMobile"
)

// Event field names.
const (
	FieldEventName   = "name"
	FieldEventDate   = "date"
	FieldEventHours  = "hours"
	FieldLocation    = "location"
	FieldAssignments = "assignments"
)
