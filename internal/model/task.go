package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Priority is stored and transported as its string tag.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// AllPriorities returns the priorities in selector order.
func AllPriorities() []Priority {
	return []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical}
}

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

func (p Priority) String() string {
	return string(p)
}

// ParsePriority accepts a tag in any letter case. An empty string yields the default.
func ParsePriority(s string) (Priority, error) {
	if s == "" {
		return PriorityNormal, nil
	}
	p := Priority(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", s)
	}
	return p, nil
}

func (p *Priority) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if !Priority(s).Valid() {
		return fmt.Errorf("unknown priority %q", s)
	}
	*p = Priority(s)
	return nil
}

// Task is the local entity. ID is the local row key and stays 0 until the
// first save; Identifier stays nil until the first push.
type Task struct {
	ID         int64
	Identifier *uuid.UUID
	Name       string
	Notes      *string
	Priority   Priority
}

// TaskRepresentation is the wire projection of a Task.
type TaskRepresentation struct {
	Identifier *string  `json:"identifier,omitempty"`
	Name       string   `json:"name"`
	Notes      *string  `json:"notes,omitempty"`
	Priority   Priority `json:"priority"`
}

var errMissingField = errors.New("missing required field")

// UnmarshalJSON rejects payloads without a name or a priority.
func (r *TaskRepresentation) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return fmt.Errorf("%w: representation is null", errMissingField)
	}

	type plain TaskRepresentation
	var aux struct {
		plain
		Name     *string   `json:"name"`
		Priority *Priority `json:"priority"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Name == nil {
		return fmt.Errorf("%w: name", errMissingField)
	}
	if aux.Priority == nil {
		return fmt.Errorf("%w: priority", errMissingField)
	}

	*r = TaskRepresentation(aux.plain)
	r.Name = *aux.Name
	r.Priority = *aux.Priority
	return nil
}

// UUID parses the embedded identifier. Only the 36-character hyphenated form
// is accepted, in either letter case; ok is false otherwise.
func (r TaskRepresentation) UUID() (id uuid.UUID, ok bool) {
	if r.Identifier == nil || len(*r.Identifier) != 36 {
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(*r.Identifier)
	if err != nil {
		return uuid.UUID{}, false
	}
	return id, true
}

// NewTask builds a Task from a wire representation. A malformed identifier is
// left unset.
func NewTask(rep TaskRepresentation) *Task {
	t := &Task{
		Name:     rep.Name,
		Notes:    copyString(rep.Notes),
		Priority: rep.Priority,
	}
	if t.Priority == "" {
		t.Priority = PriorityNormal
	}
	if id, ok := rep.UUID(); ok {
		t.Identifier = &id
	}
	return t
}

// Representation projects the task onto its wire form.
func (t *Task) Representation() TaskRepresentation {
	rep := TaskRepresentation{
		Name:     t.Name,
		Notes:    copyString(t.Notes),
		Priority: t.Priority,
	}
	if t.Identifier != nil {
		s := FormatIdentifier(*t.Identifier)
		rep.Identifier = &s
	}
	return rep
}

// Apply overwrites the mutable fields from rep. The identifier is never touched.
func (t *Task) Apply(rep TaskRepresentation) {
	t.Name = rep.Name
	t.Notes = copyString(rep.Notes)
	t.Priority = rep.Priority
}

// Clone returns a deep copy.
func (t *Task) Clone() *Task {
	c := *t
	if t.Identifier != nil {
		id := *t.Identifier
		c.Identifier = &id
	}
	c.Notes = copyString(t.Notes)
	return &c
}

// FormatIdentifier renders a UUID the way remote resource paths and payloads carry it.
func FormatIdentifier(id uuid.UUID) string {
	return strings.ToUpper(id.String())
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
