package command

import (
	"maps"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CommandType tags a data command with its operation kind. The set is closed;
// dialect translators dispatch over it exhaustively.
type CommandType string

// Supported command types.
const (
	CommandTypeQuery      CommandType = "query"
	CommandTypeInsert     CommandType = "insert"
	CommandTypeUpdate     CommandType = "update"
	CommandTypeDelete     CommandType = "delete"
	CommandTypeUpsert     CommandType = "upsert"
	CommandTypeCount      CommandType = "count"
	CommandTypeExists     CommandType = "exists"
	CommandTypeBulkInsert CommandType = "bulk_insert"
	CommandTypeBulkUpsert CommandType = "bulk_upsert"
)

// IsDataModifying reports whether commands of this type change stored data.
func (t CommandType) IsDataModifying() bool {
	switch t {
	case CommandTypeInsert, CommandTypeUpdate, CommandTypeDelete, CommandTypeUpsert,
		CommandTypeBulkInsert, CommandTypeBulkUpsert:
		return true
	default:
		return false
	}
}

// ResultType describes the shape of result a command expects from execution.
// It is fixed at construction and never changes across fluent operations.
type ResultType string

// Supported result types.
const (
	ResultTypeRows     ResultType = "rows"
	ResultTypeScalar   ResultType = "scalar"
	ResultTypeRowCount ResultType = "row_count"
	ResultTypeNone     ResultType = "none"
)

// Metadata keys driving cross-cutting translation policies.
const (
	MetaPaged            = "paged"
	MetaOffset           = "offset"
	MetaLimit            = "limit"
	MetaSingleResult     = "single_result"
	MetaSoftDelete       = "soft_delete"
	MetaSoftDeleteField  = "soft_delete_field"
	MetaSoftDeleteValue  = "soft_delete_value"
	MetaReturnIdentity   = "return_identity"
	MetaIgnoreDuplicates = "ignore_duplicates"
)

// Command is the immutable base shared by every command variant. Variants
// embed it by value; fluent operations copy the whole value and clone the
// maps they touch, so no instance is ever mutated in place.
type Command struct {
	Type           CommandType
	ConnectionName string
	Container      ContainerPath
	Result         ResultType
	Parameters     map[string]any
	Metadata       map[string]any
	Timeout        *time.Duration
	CommandID      uuid.UUID
	CorrelationID  uuid.UUID
	CreatedAt      time.Time
}

// newCommand constructs the shared base, assigning the identity/trace triple.
func newCommand(t CommandType, connection string, result ResultType) (Command, error) {
	if strings.TrimSpace(connection) == "" {
		return Command{}, &ConstructionError{Field: "connection", Message: "connection name cannot be empty"}
	}
	return Command{
		Type:           t,
		ConnectionName: connection,
		Result:         result,
		CommandID:      uuid.New(),
		CorrelationID:  uuid.New(),
		CreatedAt:      time.Now().UTC(),
	}, nil
}

// Base returns the command's shared base value. Embedding gives every variant
// this accessor, which is what dialect translators accept.
func (c Command) Base() Command {
	return c
}

// IsDataModifying reports whether the command changes stored data.
func (c Command) IsDataModifying() bool {
	return c.Type.IsDataModifying()
}

// MetadataValue returns the metadata value for key and whether it is present.
func (c Command) MetadataValue(key string) (any, bool) {
	v, ok := c.Metadata[key]
	return v, ok
}

// HasMetadata reports whether the metadata key is present.
func (c Command) HasMetadata(key string) bool {
	_, ok := c.Metadata[key]
	return ok
}

// withParameter returns a copy of the base with one named parameter added.
func (c Command) withParameter(name string, value any) Command {
	params := maps.Clone(c.Parameters)
	if params == nil {
		params = make(map[string]any, 1)
	}
	params[name] = value
	c.Parameters = params
	return c
}

// withMetadata returns a copy of the base with the given metadata entries set.
func (c Command) withMetadata(entries map[string]any) Command {
	meta := maps.Clone(c.Metadata)
	if meta == nil {
		meta = make(map[string]any, len(entries))
	}
	maps.Copy(meta, entries)
	c.Metadata = meta
	return c
}

// withContainer returns a copy of the base targeting the given container path.
func (c Command) withContainer(p ContainerPath) Command {
	c.Container = p
	return c
}

// withTimeout returns a copy of the base carrying the given timeout.
func (c Command) withTimeout(d time.Duration) (Command, error) {
	if d <= 0 {
		return Command{}, &ConstructionError{Field: "timeout", Message: "timeout must be positive"}
	}
	c.Timeout = &d
	return c, nil
}

// withCorrelationID returns a copy of the base carrying the given correlation id.
func (c Command) withCorrelationID(id uuid.UUID) Command {
	c.CorrelationID = id
	return c
}

// DataCommand is the read-only view a dialect translator consumes. Every
// command variant satisfies it through its embedded base.
type DataCommand interface {
	Base() Command
}

// Parameter is one ordered name/value pair bound into a translated statement.
type Parameter struct {
	Name  string
	Value any
}

// TranslatedCommand is the output of one translation call: final statement
// text plus its parameters in the exact order they appear in the text. An
// execution layer must bind the parameters verbatim and must not re-quote
// identifiers the translator has already quoted.
type TranslatedCommand struct {
	Sql    string
	Params []Parameter
}

// Values returns the parameter values in binding order, for drivers that take
// positional arguments.
func (tc *TranslatedCommand) Values() []any {
	out := make([]any, len(tc.Params))
	for i, p := range tc.Params {
		out[i] = p.Value
	}
	return out
}

// CommandTranslator renders one data command into one dialect statement.
// Translation is a pure, deterministic function of the command and the
// translator's configuration; identical inputs always yield identical output.
type CommandTranslator interface {
	Translate(cmd DataCommand) (*TranslatedCommand, error)
}
