package command

import "fmt"

// ConstructionError reports invalid command arguments detected at construction
// time, before any translation takes place.
type ConstructionError struct {
	Field   string
	Message string
}

// Error returns the error message for a ConstructionError.
func (e *ConstructionError) Error() string {
	return fmt.Sprintf("invalid command argument %s: %s", e.Field, e.Message)
}

// UnsupportedExpressionError reports a predicate or order node the translator
// has no rendering rule for. Translation never approximates or silently drops
// such a node.
type UnsupportedExpressionError struct {
	Kind string
}

// Error returns the error message for an UnsupportedExpressionError.
func (e *UnsupportedExpressionError) Error() string {
	return fmt.Sprintf("expression node kind %q has no translation rule", e.Kind)
}

// MissingPayloadError reports a data-modifying command that reached the
// translator without its required entity or entity collection.
type MissingPayloadError struct {
	CommandType CommandType
}

// Error returns the error message for a MissingPayloadError.
func (e *MissingPayloadError) Error() string {
	return fmt.Sprintf("%s command has no entity payload", e.CommandType)
}

// UnsupportedCommandTypeError reports a command tag the dialect translator has
// no rendering rule for.
type UnsupportedCommandTypeError struct {
	CommandType CommandType
}

// Error returns the error message for an UnsupportedCommandTypeError.
func (e *UnsupportedCommandTypeError) Error() string {
	return fmt.Sprintf("command type %q has no rendering rule", e.CommandType)
}
