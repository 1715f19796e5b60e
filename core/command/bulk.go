package command

import (
	"github.com/google/uuid"
)

// cloneEntities deep-copies a collection of entity payloads.
func cloneEntities(entities []map[string]any) []map[string]any {
	copied := make([]map[string]any, len(entities))
	for i, e := range entities {
		copied[i] = clonePayload(e)
	}
	return copied
}

// BulkInsertCommand writes a non-empty collection of entities in one
// multi-row statement, or hands the collection to a bulk-load execution path.
type BulkInsertCommand struct {
	Command
	EntityName string
	Entities   []map[string]any
}

// NewBulkInsert creates a bulk insert command over the given entity collection.
func NewBulkInsert(connection, entity string, entities []map[string]any) (BulkInsertCommand, error) {
	base, err := newCommand(CommandTypeBulkInsert, connection, ResultTypeRowCount)
	if err != nil {
		return BulkInsertCommand{}, err
	}
	if entity == "" {
		return BulkInsertCommand{}, &ConstructionError{Field: "entity", Message: "entity name cannot be empty"}
	}
	if len(entities) == 0 {
		return BulkInsertCommand{}, &ConstructionError{Field: "entities", Message: "bulk insert requires a non-empty entity collection"}
	}
	return BulkInsertCommand{Command: base, EntityName: entity, Entities: cloneEntities(entities)}, nil
}

// IgnoreDuplicates returns a copy of the bulk insert rendered in the dialect's
// duplicate-tolerant form.
func (c BulkInsertCommand) IgnoreDuplicates() BulkInsertCommand {
	c.Command = c.withMetadata(map[string]any{MetaIgnoreDuplicates: true})
	return c
}

// WithContainer returns a copy of the bulk insert targeting an explicit container path.
func (c BulkInsertCommand) WithContainer(p ContainerPath) BulkInsertCommand {
	c.Command = c.withContainer(p)
	return c
}

// WithCorrelationID returns a copy of the bulk insert carrying the given correlation id.
func (c BulkInsertCommand) WithCorrelationID(id uuid.UUID) BulkInsertCommand {
	c.Command = c.withCorrelationID(id)
	return c
}

// BulkUpsertCommand merges a non-empty collection of entities keyed by the
// entity's identity field.
type BulkUpsertCommand struct {
	Command
	EntityName string
	Entities   []map[string]any
}

// NewBulkUpsert creates a bulk upsert command over the given entity collection.
func NewBulkUpsert(connection, entity string, entities []map[string]any) (BulkUpsertCommand, error) {
	base, err := newCommand(CommandTypeBulkUpsert, connection, ResultTypeRowCount)
	if err != nil {
		return BulkUpsertCommand{}, err
	}
	if entity == "" {
		return BulkUpsertCommand{}, &ConstructionError{Field: "entity", Message: "entity name cannot be empty"}
	}
	if len(entities) == 0 {
		return BulkUpsertCommand{}, &ConstructionError{Field: "entities", Message: "bulk upsert requires a non-empty entity collection"}
	}
	return BulkUpsertCommand{Command: base, EntityName: entity, Entities: cloneEntities(entities)}, nil
}

// WithContainer returns a copy of the bulk upsert targeting an explicit container path.
func (c BulkUpsertCommand) WithContainer(p ContainerPath) BulkUpsertCommand {
	c.Command = c.withContainer(p)
	return c
}

// WithCorrelationID returns a copy of the bulk upsert carrying the given correlation id.
func (c BulkUpsertCommand) WithCorrelationID(id uuid.UUID) BulkUpsertCommand {
	c.Command = c.withCorrelationID(id)
	return c
}
