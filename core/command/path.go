// Package command defines the immutable data-command model: logical container
// paths, the command value types (Query, Insert, Update, Delete, Upsert,
// Count, Exists and their bulk variants), and the translated-command output
// consumed by an execution layer. Commands are pure values; every fluent
// operation returns a new instance and never mutates the receiver, so a single
// command can be shared freely across goroutines.
package command

import (
	"strings"
)

// ContainerPath identifies a logical data container as an ordered sequence of
// non-empty name segments, for example a schema and a table name. Paths are
// immutable; rendering under a concrete quoting convention is the job of the
// dialect translator.
type ContainerPath struct {
	segments []string
}

// NewContainerPath creates a container path from the given segments.
// It returns a ConstructionError if no segments are supplied or any segment
// is empty or whitespace-only.
func NewContainerPath(segments ...string) (ContainerPath, error) {
	if len(segments) == 0 {
		return ContainerPath{}, &ConstructionError{Field: "segments", Message: "container path requires at least one segment"}
	}
	copied := make([]string, len(segments))
	for i, s := range segments {
		if strings.TrimSpace(s) == "" {
			return ContainerPath{}, &ConstructionError{Field: "segments", Message: "container path segments cannot be empty"}
		}
		copied[i] = s
	}
	return ContainerPath{segments: copied}, nil
}

// MustContainerPath is like NewContainerPath but panics on invalid input.
// Intended for package-level declarations and tests.
func MustContainerPath(segments ...string) ContainerPath {
	p, err := NewContainerPath(segments...)
	if err != nil {
		panic(err)
	}
	return p
}

// Segments returns a copy of the path's name segments.
func (p ContainerPath) Segments() []string {
	out := make([]string, len(p.segments))
	copy(out, p.segments)
	return out
}

// Len returns the number of segments in the path.
func (p ContainerPath) Len() int {
	return len(p.segments)
}

// Name returns the terminal segment of the path, or "" for the zero path.
func (p ContainerPath) Name() string {
	if len(p.segments) == 0 {
		return ""
	}
	return p.segments[len(p.segments)-1]
}

// IsZero reports whether the path has no segments.
func (p ContainerPath) IsZero() bool {
	return len(p.segments) == 0
}

// Equal reports whether two paths have identical segment sequences.
func (p ContainerPath) Equal(other ContainerPath) bool {
	if len(p.segments) != len(other.segments) {
		return false
	}
	for i, s := range p.segments {
		if s != other.segments[i] {
			return false
		}
	}
	return true
}

// String renders the path with dot separators. This is a diagnostic form, not
// a quoted SQL identifier.
func (p ContainerPath) String() string {
	return strings.Join(p.segments, ".")
}
