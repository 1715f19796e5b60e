package command

import (
	"maps"
	"time"

	"github.com/CyberdineDevelopment/go-datakit/core/expr"
	"github.com/google/uuid"
)

// clonePayload copies an entity payload so command values never alias
// caller-owned maps.
func clonePayload(payload map[string]any) map[string]any {
	return maps.Clone(payload)
}

// InsertCommand writes one new entity to a container.
type InsertCommand struct {
	Command
	EntityName string
	Entity     map[string]any
}

// NewInsert creates an insert command carrying the given entity payload.
func NewInsert(connection, entity string, payload map[string]any) (InsertCommand, error) {
	base, err := newCommand(CommandTypeInsert, connection, ResultTypeRowCount)
	if err != nil {
		return InsertCommand{}, err
	}
	if entity == "" {
		return InsertCommand{}, &ConstructionError{Field: "entity", Message: "entity name cannot be empty"}
	}
	if payload == nil {
		return InsertCommand{}, &ConstructionError{Field: "payload", Message: "insert requires an entity payload"}
	}
	return InsertCommand{Command: base, EntityName: entity, Entity: clonePayload(payload)}, nil
}

// ReturnIdentity returns a copy of the insert that also selects the generated
// identity value.
func (c InsertCommand) ReturnIdentity() InsertCommand {
	c.Command = c.withMetadata(map[string]any{MetaReturnIdentity: true})
	return c
}

// IgnoreDuplicates returns a copy of the insert rendered in the dialect's
// duplicate-tolerant form.
func (c InsertCommand) IgnoreDuplicates() InsertCommand {
	c.Command = c.withMetadata(map[string]any{MetaIgnoreDuplicates: true})
	return c
}

// WithContainer returns a copy of the insert targeting an explicit container path.
func (c InsertCommand) WithContainer(p ContainerPath) InsertCommand {
	c.Command = c.withContainer(p)
	return c
}

// WithTimeout returns a copy of the insert carrying the given timeout.
func (c InsertCommand) WithTimeout(d time.Duration) (InsertCommand, error) {
	base, err := c.withTimeout(d)
	if err != nil {
		return InsertCommand{}, err
	}
	c.Command = base
	return c, nil
}

// WithCorrelationID returns a copy of the insert carrying the given correlation id.
func (c InsertCommand) WithCorrelationID(id uuid.UUID) InsertCommand {
	c.Command = c.withCorrelationID(id)
	return c
}

// UpdateCommand applies changed fields to the rows matching a predicate.
type UpdateCommand struct {
	Command
	EntityName string
	Entity     map[string]any
	Predicate  *expr.Node
}

// NewUpdate creates an update command carrying the changed fields.
func NewUpdate(connection, entity string, changes map[string]any) (UpdateCommand, error) {
	base, err := newCommand(CommandTypeUpdate, connection, ResultTypeRowCount)
	if err != nil {
		return UpdateCommand{}, err
	}
	if entity == "" {
		return UpdateCommand{}, &ConstructionError{Field: "entity", Message: "entity name cannot be empty"}
	}
	if changes == nil {
		return UpdateCommand{}, &ConstructionError{Field: "changes", Message: "update requires changed fields"}
	}
	return UpdateCommand{Command: base, EntityName: entity, Entity: clonePayload(changes)}, nil
}

// Where returns a copy of the update restricted to rows matching the predicate.
func (c UpdateCommand) Where(p *expr.Node) UpdateCommand {
	c.Predicate = p
	return c
}

// WithContainer returns a copy of the update targeting an explicit container path.
func (c UpdateCommand) WithContainer(p ContainerPath) UpdateCommand {
	c.Command = c.withContainer(p)
	return c
}

// WithCorrelationID returns a copy of the update carrying the given correlation id.
func (c UpdateCommand) WithCorrelationID(id uuid.UUID) UpdateCommand {
	c.Command = c.withCorrelationID(id)
	return c
}

// DeleteCommand removes the rows matching a predicate. The predicate is
// required at translation time; with soft-delete metadata the statement is
// rewritten to an update that marks rows logically removed.
type DeleteCommand struct {
	Command
	EntityName string
	Predicate  *expr.Node
}

// NewDelete creates a delete command against the named logical entity.
func NewDelete(connection, entity string) (DeleteCommand, error) {
	base, err := newCommand(CommandTypeDelete, connection, ResultTypeRowCount)
	if err != nil {
		return DeleteCommand{}, err
	}
	if entity == "" {
		return DeleteCommand{}, &ConstructionError{Field: "entity", Message: "entity name cannot be empty"}
	}
	return DeleteCommand{Command: base, EntityName: entity}, nil
}

// Where returns a copy of the delete restricted to rows matching the predicate.
func (c DeleteCommand) Where(p *expr.Node) DeleteCommand {
	c.Predicate = p
	return c
}

// SoftDelete returns a copy of the delete that marks rows with the given field
// and value instead of physically removing them.
func (c DeleteCommand) SoftDelete(field string, value any) (DeleteCommand, error) {
	if field == "" {
		return DeleteCommand{}, &ConstructionError{Field: "soft_delete_field", Message: "soft delete field cannot be empty"}
	}
	c.Command = c.withMetadata(map[string]any{
		MetaSoftDelete:      true,
		MetaSoftDeleteField: field,
		MetaSoftDeleteValue: value,
	})
	return c, nil
}

// Limit returns a copy of the delete bounded to affect at most n rows.
func (c DeleteCommand) Limit(n int) (DeleteCommand, error) {
	if n <= 0 {
		return DeleteCommand{}, &ConstructionError{Field: "limit", Message: "limit must be positive"}
	}
	c.Command = c.withMetadata(map[string]any{MetaLimit: n})
	return c, nil
}

// WithContainer returns a copy of the delete targeting an explicit container path.
func (c DeleteCommand) WithContainer(p ContainerPath) DeleteCommand {
	c.Command = c.withContainer(p)
	return c
}

// WithCorrelationID returns a copy of the delete carrying the given correlation id.
func (c DeleteCommand) WithCorrelationID(id uuid.UUID) DeleteCommand {
	c.Command = c.withCorrelationID(id)
	return c
}

// UpsertCommand inserts an entity or updates it when a row with the same key
// already exists. The key field comes from the entity's field metadata.
type UpsertCommand struct {
	Command
	EntityName string
	Entity     map[string]any
}

// NewUpsert creates an upsert command carrying the given entity payload.
func NewUpsert(connection, entity string, payload map[string]any) (UpsertCommand, error) {
	base, err := newCommand(CommandTypeUpsert, connection, ResultTypeRowCount)
	if err != nil {
		return UpsertCommand{}, err
	}
	if entity == "" {
		return UpsertCommand{}, &ConstructionError{Field: "entity", Message: "entity name cannot be empty"}
	}
	if payload == nil {
		return UpsertCommand{}, &ConstructionError{Field: "payload", Message: "upsert requires an entity payload"}
	}
	return UpsertCommand{Command: base, EntityName: entity, Entity: clonePayload(payload)}, nil
}

// ReturnIdentity returns a copy of the upsert that also selects the row's
// identity value.
func (c UpsertCommand) ReturnIdentity() UpsertCommand {
	c.Command = c.withMetadata(map[string]any{MetaReturnIdentity: true})
	return c
}

// WithContainer returns a copy of the upsert targeting an explicit container path.
func (c UpsertCommand) WithContainer(p ContainerPath) UpsertCommand {
	c.Command = c.withContainer(p)
	return c
}

// WithCorrelationID returns a copy of the upsert carrying the given correlation id.
func (c UpsertCommand) WithCorrelationID(id uuid.UUID) UpsertCommand {
	c.Command = c.withCorrelationID(id)
	return c
}
