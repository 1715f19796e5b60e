package command

import (
	"time"

	"github.com/CyberdineDevelopment/go-datakit/core/expr"
	"github.com/google/uuid"
)

// QueryCommand reads rows from a container. It optionally carries a predicate,
// an order-by field selector, a column projection and pagination metadata.
type QueryCommand struct {
	Command
	EntityName string
	Predicate  *expr.Node
	OrderBy    *expr.Node
	OrderDesc  bool
	Columns    []string
}

// NewQuery creates a query command against the named logical entity.
func NewQuery(connection, entity string) (QueryCommand, error) {
	base, err := newCommand(CommandTypeQuery, connection, ResultTypeRows)
	if err != nil {
		return QueryCommand{}, err
	}
	if entity == "" {
		return QueryCommand{}, &ConstructionError{Field: "entity", Message: "entity name cannot be empty"}
	}
	return QueryCommand{Command: base, EntityName: entity}, nil
}

// Where returns a copy of the query filtered by the given predicate tree.
func (c QueryCommand) Where(p *expr.Node) QueryCommand {
	c.Predicate = p
	return c
}

// OrderByField returns a copy of the query ordered ascending by the given
// field selector.
func (c QueryCommand) OrderByField(sel *expr.Node) QueryCommand {
	c.OrderBy = sel
	c.OrderDesc = false
	return c
}

// OrderByFieldDesc returns a copy of the query ordered descending by the given
// field selector.
func (c QueryCommand) OrderByFieldDesc(sel *expr.Node) QueryCommand {
	c.OrderBy = sel
	c.OrderDesc = true
	return c
}

// Select returns a copy of the query projecting only the named columns.
func (c QueryCommand) Select(columns ...string) QueryCommand {
	copied := make([]string, len(columns))
	copy(copied, columns)
	c.Columns = copied
	return c
}

// Skip returns a copy of the query that skips the first n rows. Combined with
// Limit it drives the dialect's pagination clause.
func (c QueryCommand) Skip(n int) (QueryCommand, error) {
	if n <= 0 {
		return QueryCommand{}, &ConstructionError{Field: "offset", Message: "offset must be positive"}
	}
	c.Command = c.withMetadata(map[string]any{MetaPaged: true, MetaOffset: n})
	return c, nil
}

// Limit returns a copy of the query capped at n rows.
func (c QueryCommand) Limit(n int) (QueryCommand, error) {
	if n <= 0 {
		return QueryCommand{}, &ConstructionError{Field: "limit", Message: "limit must be positive"}
	}
	c.Command = c.withMetadata(map[string]any{MetaPaged: true, MetaLimit: n})
	return c, nil
}

// First returns a copy of the query restricted to a single result.
func (c QueryCommand) First() QueryCommand {
	c.Command = c.withMetadata(map[string]any{MetaSingleResult: true})
	return c
}

// WithContainer returns a copy of the query targeting an explicit container
// path instead of the entity's resolved name.
func (c QueryCommand) WithContainer(p ContainerPath) QueryCommand {
	c.Command = c.withContainer(p)
	return c
}

// WithParameter returns a copy of the query with one named parameter added.
func (c QueryCommand) WithParameter(name string, value any) QueryCommand {
	c.Command = c.withParameter(name, value)
	return c
}

// WithTimeout returns a copy of the query carrying the given timeout. The
// timeout is advisory for the execution layer; translation ignores it.
func (c QueryCommand) WithTimeout(d time.Duration) (QueryCommand, error) {
	base, err := c.withTimeout(d)
	if err != nil {
		return QueryCommand{}, err
	}
	c.Command = base
	return c, nil
}

// WithCorrelationID returns a copy of the query carrying the given correlation id.
func (c QueryCommand) WithCorrelationID(id uuid.UUID) QueryCommand {
	c.Command = c.withCorrelationID(id)
	return c
}

// CountCommand counts the rows matching an optional predicate.
type CountCommand struct {
	Command
	EntityName string
	Predicate  *expr.Node
}

// NewCount creates a count command against the named logical entity.
func NewCount(connection, entity string) (CountCommand, error) {
	base, err := newCommand(CommandTypeCount, connection, ResultTypeScalar)
	if err != nil {
		return CountCommand{}, err
	}
	if entity == "" {
		return CountCommand{}, &ConstructionError{Field: "entity", Message: "entity name cannot be empty"}
	}
	return CountCommand{Command: base, EntityName: entity}, nil
}

// Where returns a copy of the count filtered by the given predicate tree.
func (c CountCommand) Where(p *expr.Node) CountCommand {
	c.Predicate = p
	return c
}

// WithContainer returns a copy of the count targeting an explicit container path.
func (c CountCommand) WithContainer(p ContainerPath) CountCommand {
	c.Command = c.withContainer(p)
	return c
}

// WithCorrelationID returns a copy of the count carrying the given correlation id.
func (c CountCommand) WithCorrelationID(id uuid.UUID) CountCommand {
	c.Command = c.withCorrelationID(id)
	return c
}

// ExistsCommand tests whether any row matches an optional predicate.
type ExistsCommand struct {
	Command
	EntityName string
	Predicate  *expr.Node
}

// NewExists creates an exists command against the named logical entity.
func NewExists(connection, entity string) (ExistsCommand, error) {
	base, err := newCommand(CommandTypeExists, connection, ResultTypeScalar)
	if err != nil {
		return ExistsCommand{}, err
	}
	if entity == "" {
		return ExistsCommand{}, &ConstructionError{Field: "entity", Message: "entity name cannot be empty"}
	}
	return ExistsCommand{Command: base, EntityName: entity}, nil
}

// Where returns a copy of the exists command filtered by the given predicate tree.
func (c ExistsCommand) Where(p *expr.Node) ExistsCommand {
	c.Predicate = p
	return c
}

// WithContainer returns a copy of the exists command targeting an explicit container path.
func (c ExistsCommand) WithContainer(p ContainerPath) ExistsCommand {
	c.Command = c.withContainer(p)
	return c
}

// WithCorrelationID returns a copy of the exists command carrying the given correlation id.
func (c ExistsCommand) WithCorrelationID(id uuid.UUID) ExistsCommand {
	c.Command = c.withCorrelationID(id)
	return c
}
