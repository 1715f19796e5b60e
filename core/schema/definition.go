// Package schema describes the entity field metadata consumed by dialect
// translators: which fields of an entity payload are bindable, which are
// nullable, and which field carries the row identity. The metadata is supplied
// by whatever component builds insert and update payloads; translators treat
// it as read-only for their lifetime.
package schema

import (
	"fmt"
	"sort"
)

// FieldDefinition describes one field of a logical entity.
type FieldDefinition struct {
	Name     string `json:"name" mapstructure:"name"`
	Nullable bool   `json:"nullable" mapstructure:"nullable"`
	// ReadOnly fields are never bound into INSERT or UPDATE column lists,
	// typically computed columns or row versions.
	ReadOnly bool `json:"read_only" mapstructure:"read_only"`
	// Identity marks the field holding the row identity. Identity fields are
	// excluded from insert binding and key merge/upsert statements.
	Identity bool `json:"identity" mapstructure:"identity"`
}

// EntityDefinition describes a logical entity's bindable surface.
type EntityDefinition struct {
	Name   string                     `json:"name" mapstructure:"name"`
	Fields map[string]FieldDefinition `json:"fields" mapstructure:"fields"`
}

// KeyField returns the name of the identity field, or "Id" when the
// definition is absent or does not mark one.
func (d *EntityDefinition) KeyField() string {
	if d == nil {
		return "Id"
	}
	for name, f := range d.Fields {
		if f.Identity {
			return name
		}
	}
	return "Id"
}

// Bindable reports whether the named field may be bound into a modifying
// statement. Fields absent from the definition are bindable; declaring
// metadata only restricts the surface.
func (d *EntityDefinition) Bindable(field string) bool {
	if d == nil {
		return true
	}
	f, ok := d.Fields[field]
	if !ok {
		return true
	}
	return !f.ReadOnly && !f.Identity
}

// BindableFields returns the payload's bindable field names in a stable
// sorted order, so identical payloads always render identical column lists.
func (d *EntityDefinition) BindableFields(payload map[string]any) []string {
	fields := make([]string, 0, len(payload))
	for name := range payload {
		if d == nil || d.Bindable(name) {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}

// ValidatePayload checks an entity payload against the definition: nil values
// are rejected for non-nullable declared fields. Unknown fields pass; the
// definition restricts, it does not enumerate.
func (d *EntityDefinition) ValidatePayload(payload map[string]any) error {
	if d == nil {
		return nil
	}
	for name, value := range payload {
		f, ok := d.Fields[name]
		if !ok {
			continue
		}
		if value == nil && !f.Nullable {
			return fmt.Errorf("field %q is not nullable", name)
		}
	}
	return nil
}
