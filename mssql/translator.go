package mssql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/CyberdineDevelopment/go-datakit/core/command"
	"github.com/CyberdineDevelopment/go-datakit/core/schema"
	"go.uber.org/zap"
)

// Translator renders data commands into parameterized Transact-SQL. It holds
// only immutable state: the mapping configuration, the entity field metadata
// and a logger. Every Translate call allocates its own parameter context, so
// a single translator is safe for concurrent use.
type Translator struct {
	config   *Config
	entities map[string]*schema.EntityDefinition
	logger   *zap.Logger
}

// Ensure Translator implements the command.CommandTranslator interface.
var _ command.CommandTranslator = (*Translator)(nil)

// NewTranslator creates a translator from the given configuration and entity
// field metadata. Both may be nil; defaults take over.
func NewTranslator(cfg *Config, entities map[string]*schema.EntityDefinition, logger *zap.Logger) *Translator {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if entities == nil {
		entities = map[string]*schema.EntityDefinition{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Translator{config: cfg, entities: entities, logger: logger}
}

// Translate renders one command into one statement. Translation is pure and
// deterministic: identical inputs always yield an identical outcome, and a
// failure never produces partial SQL.
func (t *Translator) Translate(cmd command.DataCommand) (*command.TranslatedCommand, error) {
	ctx := newParamContext()

	var sql string
	var err error
	switch c := cmd.(type) {
	case command.QueryCommand:
		sql, err = t.translateQuery(c, ctx)
	case command.CountCommand:
		sql, err = t.translateCount(c, ctx)
	case command.ExistsCommand:
		sql, err = t.translateExists(c, ctx)
	case command.InsertCommand:
		sql, err = t.translateInsert(c, ctx)
	case command.UpdateCommand:
		sql, err = t.translateUpdate(c, ctx)
	case command.DeleteCommand:
		sql, err = t.translateDelete(c, ctx)
	case command.UpsertCommand:
		sql, err = t.translateUpsert(c, ctx)
	case command.BulkInsertCommand:
		sql, err = t.translateBulkInsert(c, ctx)
	case command.BulkUpsertCommand:
		sql, err = t.translateBulkUpsert(c, ctx)
	default:
		return nil, &command.UnsupportedCommandTypeError{CommandType: cmd.Base().Type}
	}
	if err != nil {
		return nil, err
	}

	translated := &command.TranslatedCommand{Sql: sql, Params: ctx.params}
	t.logTranslation(cmd.Base(), translated)
	return translated, nil
}

// resolveContainer renders the fully qualified, quoted container for a
// command. An explicit multi-segment container path is rendered as given; a
// single-segment path or the entity's logical name goes through the mapping
// table, falling back to the configured default schema.
func (t *Translator) resolveContainer(base command.Command, entityName string) (string, error) {
	logical := entityName
	if !base.Container.IsZero() {
		if base.Container.Len() > 1 {
			return quotePath(base.Container.Segments()), nil
		}
		logical = base.Container.Name()
	}
	if logical == "" {
		return "", fmt.Errorf("%s command has no target container", base.Type)
	}
	if mapped, ok := t.config.Mapped(logical); ok {
		return quotePath(strings.Split(mapped, ".")), nil
	}
	return quotePath([]string{t.config.DefaultSchema, logical}), nil
}

func quotePath(segments []string) string {
	quoted := make([]string, len(segments))
	for i, s := range segments {
		quoted[i] = quoteIdentifier(s)
	}
	return strings.Join(quoted, ".")
}

// definition returns the field metadata for an entity, or nil when none was
// registered. All schema accessors are nil-safe.
func (t *Translator) definition(entity string) *schema.EntityDefinition {
	return t.entities[entity]
}

// defaultOrdering synthesizes a deterministic ORDER BY for pagination when no
// explicit ordering was supplied: the entity's key field when metadata knows
// one, otherwise the constant-expression form the dialect accepts.
func (t *Translator) defaultOrdering(entity string) string {
	if def := t.definition(entity); def != nil {
		return quoteIdentifier(def.KeyField())
	}
	return "(SELECT NULL)"
}

func metaInt(base command.Command, key string) (int, bool) {
	v, ok := base.MetadataValue(key)
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}

func (t *Translator) translateQuery(c command.QueryCommand, ctx *paramContext) (string, error) {
	container, err := t.resolveContainer(c.Command, c.EntityName)
	if err != nil {
		return "", err
	}

	columns := "*"
	if len(c.Columns) > 0 {
		quoted := make([]string, len(c.Columns))
		for i, col := range c.Columns {
			quoted[i] = quoteIdentifier(col)
		}
		columns = strings.Join(quoted, ", ")
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + columns + " FROM " + container)

	if c.Predicate != nil {
		where, err := translateExpr(c.Predicate, ctx)
		if err != nil {
			return "", err
		}
		sb.WriteString(" WHERE " + where)
	}

	orderBy := ""
	if c.OrderBy != nil {
		col, ok := columnRef(c.OrderBy)
		if !ok {
			return "", &command.UnsupportedExpressionError{Kind: string(c.OrderBy.Kind)}
		}
		orderBy = col
		if c.OrderDesc {
			orderBy += " DESC"
		}
	}

	single := c.HasMetadata(command.MetaSingleResult)
	paged := c.HasMetadata(command.MetaPaged)

	if single || paged {
		// OFFSET/FETCH is only valid alongside an ORDER BY.
		if orderBy == "" {
			orderBy = t.defaultOrdering(c.EntityName)
		}
		sb.WriteString(" ORDER BY " + orderBy)

		offset, limit := 0, 0
		haveLimit := false
		if single {
			limit, haveLimit = 1, true
		} else {
			if n, ok := metaInt(c.Command, command.MetaOffset); ok {
				offset = n
			}
			if n, ok := metaInt(c.Command, command.MetaLimit); ok {
				limit, haveLimit = n, true
			}
		}
		sb.WriteString(fmt.Sprintf(" OFFSET %d ROWS", offset))
		if haveLimit {
			sb.WriteString(fmt.Sprintf(" FETCH NEXT %d ROWS ONLY", limit))
		}
	} else if orderBy != "" {
		sb.WriteString(" ORDER BY " + orderBy)
	}

	return sb.String(), nil
}

func (t *Translator) translateCount(c command.CountCommand, ctx *paramContext) (string, error) {
	container, err := t.resolveContainer(c.Command, c.EntityName)
	if err != nil {
		return "", err
	}
	sql := "SELECT COUNT(*) FROM " + container
	if c.Predicate != nil {
		where, err := translateExpr(c.Predicate, ctx)
		if err != nil {
			return "", err
		}
		sql += " WHERE " + where
	}
	return sql, nil
}

func (t *Translator) translateExists(c command.ExistsCommand, ctx *paramContext) (string, error) {
	container, err := t.resolveContainer(c.Command, c.EntityName)
	if err != nil {
		return "", err
	}
	inner := "SELECT 1 FROM " + container
	if c.Predicate != nil {
		where, err := translateExpr(c.Predicate, ctx)
		if err != nil {
			return "", err
		}
		inner += " WHERE " + where
	}
	return "SELECT CASE WHEN EXISTS (" + inner + ") THEN CAST(1 AS BIT) ELSE CAST(0 AS BIT) END", nil
}

func (t *Translator) translateInsert(c command.InsertCommand, ctx *paramContext) (string, error) {
	if len(c.Entity) == 0 {
		return "", &command.MissingPayloadError{CommandType: c.Type}
	}
	container, err := t.resolveContainer(c.Command, c.EntityName)
	if err != nil {
		return "", err
	}
	def := t.definition(c.EntityName)
	fields := def.BindableFields(c.Entity)
	if len(fields) == 0 {
		return "", fmt.Errorf("insert into %s has no bindable fields", c.EntityName)
	}

	var sb strings.Builder
	if c.HasMetadata(command.MetaIgnoreDuplicates) {
		keyField := def.KeyField()
		keyValue, ok := c.Entity[keyField]
		if !ok {
			return "", fmt.Errorf("duplicate-tolerant insert into %s requires the key field %q in the payload", c.EntityName, keyField)
		}
		sb.WriteString("IF NOT EXISTS (SELECT 1 FROM " + container + " WHERE " + quoteIdentifier(keyField) + " = " + ctx.bind(keyValue) + ") ")
	}

	columns := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = quoteIdentifier(field)
		placeholders[i] = ctx.bind(c.Entity[field])
	}
	sb.WriteString("INSERT INTO " + container + " (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")")

	if c.HasMetadata(command.MetaReturnIdentity) {
		sb.WriteString("; SELECT CAST(SCOPE_IDENTITY() AS BIGINT)")
	}
	return sb.String(), nil
}

func (t *Translator) translateUpdate(c command.UpdateCommand, ctx *paramContext) (string, error) {
	if len(c.Entity) == 0 {
		return "", &command.MissingPayloadError{CommandType: c.Type}
	}
	container, err := t.resolveContainer(c.Command, c.EntityName)
	if err != nil {
		return "", err
	}
	def := t.definition(c.EntityName)
	fields := def.BindableFields(c.Entity)
	if len(fields) == 0 {
		return "", fmt.Errorf("update of %s has no bindable fields", c.EntityName)
	}

	assignments := make([]string, len(fields))
	for i, field := range fields {
		assignments[i] = quoteIdentifier(field) + " = " + ctx.bind(c.Entity[field])
	}

	sql := "UPDATE " + container + " SET " + strings.Join(assignments, ", ")
	if c.Predicate != nil {
		where, err := translateExpr(c.Predicate, ctx)
		if err != nil {
			return "", err
		}
		sql += " WHERE " + where
	}
	return sql, nil
}

func (t *Translator) translateDelete(c command.DeleteCommand, ctx *paramContext) (string, error) {
	if c.Predicate == nil {
		return "", &command.ConstructionError{Field: "predicate", Message: "delete requires a predicate"}
	}
	container, err := t.resolveContainer(c.Command, c.EntityName)
	if err != nil {
		return "", err
	}

	softDelete := c.HasMetadata(command.MetaSoftDelete)
	limit, limited := metaInt(c.Command, command.MetaLimit)

	// Soft delete rewrites the statement to an UPDATE that marks rows
	// logically removed; the row is never physically deleted. The SET
	// parameter is bound before the predicate so binding order matches the
	// statement text.
	var sb strings.Builder
	if softDelete {
		field, _ := c.MetadataValue(command.MetaSoftDeleteField)
		fieldName, ok := field.(string)
		if !ok || fieldName == "" {
			return "", &command.ConstructionError{Field: "soft_delete_field", Message: "soft delete requires a field name"}
		}
		value, _ := c.MetadataValue(command.MetaSoftDeleteValue)
		sb.WriteString("UPDATE " + container + " SET " + quoteIdentifier(fieldName) + " = " + ctx.bind(value))
	} else {
		sb.WriteString("DELETE FROM " + container)
	}

	where, err := translateExpr(c.Predicate, ctx)
	if err != nil {
		return "", err
	}

	if limited {
		// A limited delete bounds the affected rows through a keyed TOP
		// subquery instead of a plain WHERE.
		key := quoteIdentifier(t.definition(c.EntityName).KeyField())
		sb.WriteString(fmt.Sprintf(" WHERE %s IN (SELECT TOP (%d) %s FROM %s WHERE %s)", key, limit, key, container, where))
	} else {
		sb.WriteString(" WHERE " + where)
	}
	return sb.String(), nil
}

// mergeFields returns the sorted set of payload fields participating in a
// merge statement: the bindable fields plus the key field when present.
func mergeFields(def *schema.EntityDefinition, payload map[string]any, keyField string) []string {
	fields := def.BindableFields(payload)
	if _, ok := payload[keyField]; ok {
		found := false
		for _, f := range fields {
			if f == keyField {
				found = true
				break
			}
		}
		if !found {
			fields = append(fields, keyField)
		}
	}
	// BindableFields sorts; re-sort after a key append keeps determinism.
	sort.Strings(fields)
	return fields
}

func (t *Translator) translateUpsert(c command.UpsertCommand, ctx *paramContext) (string, error) {
	if len(c.Entity) == 0 {
		return "", &command.MissingPayloadError{CommandType: c.Type}
	}
	container, err := t.resolveContainer(c.Command, c.EntityName)
	if err != nil {
		return "", err
	}
	def := t.definition(c.EntityName)
	keyField := def.KeyField()
	if _, ok := c.Entity[keyField]; !ok {
		return "", fmt.Errorf("upsert of %s requires the key field %q in the payload", c.EntityName, keyField)
	}
	fields := mergeFields(def, c.Entity, keyField)

	sourceColumns := make([]string, len(fields))
	for i, field := range fields {
		sourceColumns[i] = ctx.bind(c.Entity[field]) + " AS " + quoteIdentifier(field)
	}

	var sb strings.Builder
	sb.WriteString("MERGE INTO " + container + " AS [target]")
	sb.WriteString(" USING (SELECT " + strings.Join(sourceColumns, ", ") + ") AS [source]")
	sb.WriteString(" ON ([target]." + quoteIdentifier(keyField) + " = [source]." + quoteIdentifier(keyField) + ")")

	updates := make([]string, 0, len(fields))
	for _, field := range fields {
		if field == keyField {
			continue
		}
		updates = append(updates, "[target]."+quoteIdentifier(field)+" = [source]."+quoteIdentifier(field))
	}
	if len(updates) > 0 {
		sb.WriteString(" WHEN MATCHED THEN UPDATE SET " + strings.Join(updates, ", "))
	}

	insertColumns := make([]string, len(fields))
	insertValues := make([]string, len(fields))
	for i, field := range fields {
		insertColumns[i] = quoteIdentifier(field)
		insertValues[i] = "[source]." + quoteIdentifier(field)
	}
	sb.WriteString(" WHEN NOT MATCHED THEN INSERT (" + strings.Join(insertColumns, ", ") + ") VALUES (" + strings.Join(insertValues, ", ") + ");")

	return sb.String(), nil
}

// bulkFields computes the union of bindable fields across all entity payloads
// in a stable sorted order. Payloads missing a field bind NULL for it.
func bulkFields(def *schema.EntityDefinition, entities []map[string]any) []string {
	set := make(map[string]struct{})
	for _, entity := range entities {
		for _, field := range def.BindableFields(entity) {
			set[field] = struct{}{}
		}
	}
	fields := make([]string, 0, len(set))
	for field := range set {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func (t *Translator) translateBulkInsert(c command.BulkInsertCommand, ctx *paramContext) (string, error) {
	if len(c.Entities) == 0 {
		return "", &command.MissingPayloadError{CommandType: c.Type}
	}
	container, err := t.resolveContainer(c.Command, c.EntityName)
	if err != nil {
		return "", err
	}
	def := t.definition(c.EntityName)

	if c.HasMetadata(command.MetaIgnoreDuplicates) {
		// Duplicate-tolerant bulk load renders as a merge with only the
		// not-matched branch.
		return t.mergeFromValues(container, def, c.EntityName, c.Entities, ctx, false)
	}

	fields := bulkFields(def, c.Entities)
	if len(fields) == 0 {
		return "", fmt.Errorf("bulk insert into %s has no bindable fields", c.EntityName)
	}
	columns := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = quoteIdentifier(field)
	}

	rows := make([]string, len(c.Entities))
	for i, entity := range c.Entities {
		placeholders := make([]string, len(fields))
		for j, field := range fields {
			placeholders[j] = ctx.bind(entity[field])
		}
		rows[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}

	return "INSERT INTO " + container + " (" + strings.Join(columns, ", ") + ") VALUES " + strings.Join(rows, ", "), nil
}

func (t *Translator) translateBulkUpsert(c command.BulkUpsertCommand, ctx *paramContext) (string, error) {
	if len(c.Entities) == 0 {
		return "", &command.MissingPayloadError{CommandType: c.Type}
	}
	container, err := t.resolveContainer(c.Command, c.EntityName)
	if err != nil {
		return "", err
	}
	return t.mergeFromValues(container, t.definition(c.EntityName), c.EntityName, c.Entities, ctx, true)
}

// mergeFromValues renders a MERGE sourced from a multi-row VALUES table,
// keyed by the entity's key field. With updateMatched false only the
// not-matched insert branch is emitted (duplicate-tolerant bulk insert).
func (t *Translator) mergeFromValues(container string, def *schema.EntityDefinition, entityName string, entities []map[string]any, ctx *paramContext, updateMatched bool) (string, error) {
	keyField := def.KeyField()
	for i, entity := range entities {
		if _, ok := entity[keyField]; !ok {
			return "", fmt.Errorf("merge of %s requires the key field %q in every payload, missing at index %d", entityName, keyField, i)
		}
	}
	fields := bulkFields(def, entities)
	hasKey := false
	for _, f := range fields {
		if f == keyField {
			hasKey = true
			break
		}
	}
	if !hasKey {
		fields = append(fields, keyField)
		sort.Strings(fields)
	}

	rows := make([]string, len(entities))
	for i, entity := range entities {
		placeholders := make([]string, len(fields))
		for j, field := range fields {
			placeholders[j] = ctx.bind(entity[field])
		}
		rows[i] = "(" + strings.Join(placeholders, ", ") + ")"
	}

	sourceColumns := make([]string, len(fields))
	insertValues := make([]string, len(fields))
	for i, field := range fields {
		sourceColumns[i] = quoteIdentifier(field)
		insertValues[i] = "[source]." + quoteIdentifier(field)
	}

	var sb strings.Builder
	sb.WriteString("MERGE INTO " + container + " AS [target]")
	sb.WriteString(" USING (VALUES " + strings.Join(rows, ", ") + ") AS [source] (" + strings.Join(sourceColumns, ", ") + ")")
	sb.WriteString(" ON ([target]." + quoteIdentifier(keyField) + " = [source]." + quoteIdentifier(keyField) + ")")

	if updateMatched {
		updates := make([]string, 0, len(fields))
		for _, field := range fields {
			if field == keyField {
				continue
			}
			updates = append(updates, "[target]."+quoteIdentifier(field)+" = [source]."+quoteIdentifier(field))
		}
		if len(updates) > 0 {
			sb.WriteString(" WHEN MATCHED THEN UPDATE SET " + strings.Join(updates, ", "))
		}
	}
	sb.WriteString(" WHEN NOT MATCHED THEN INSERT (" + strings.Join(sourceColumns, ", ") + ") VALUES (" + strings.Join(insertValues, ", ") + ");")
	return sb.String(), nil
}

// logTranslation emits the diagnostic line for one translation when the
// configuration enables it, truncating statement text to the configured
// maximum.
func (t *Translator) logTranslation(base command.Command, tc *command.TranslatedCommand) {
	if !t.config.LogTranslations {
		return
	}
	sql := tc.Sql
	if max := t.config.MaxLogLength; max > 0 && len(sql) > max {
		sql = sql[:max] + "..."
	}
	t.logger.Debug("translated command",
		zap.String("type", string(base.Type)),
		zap.String("command_id", base.CommandID.String()),
		zap.String("correlation_id", base.CorrelationID.String()),
		zap.String("sql", sql),
		zap.Int("parameters", len(tc.Params)),
	)
}
