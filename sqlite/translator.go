// Package sqlite renders data commands into parameterized SQLite SQL.
// Identifiers are double-quote quoted, parameters bind positionally with "?"
// placeholders, pagination uses LIMIT/OFFSET, and duplicate handling uses
// INSERT OR IGNORE and ON CONFLICT. It implements the same CommandTranslator
// surface as the mssql package, which is what makes the command model
// provider-agnostic in practice.
package sqlite

import (
	"fmt"
	"sort"
	"strings"

	"github.com/CyberdineDevelopment/go-datakit/core/command"
	"github.com/CyberdineDevelopment/go-datakit/core/expr"
	"github.com/CyberdineDevelopment/go-datakit/core/schema"
	"go.uber.org/zap"
)

// Config is the schema-mapping configuration for the SQLite translator.
// SQLite has no default schema; logical names map directly to table names,
// optionally qualified with an attached database as "db.table".
type Config struct {
	Mappings        map[string]string `mapstructure:"mappings"`
	LogTranslations bool              `mapstructure:"log_translations"`
	MaxLogLength    int               `mapstructure:"max_log_length"`
}

// DefaultConfig returns a configuration with no overrides.
func DefaultConfig() *Config {
	return &Config{Mappings: map[string]string{}, MaxLogLength: 4096}
}

// Translator renders data commands into parameterized SQLite SQL. It is
// stateless across calls; every Translate allocates a fresh parameter list.
type Translator struct {
	config   *Config
	entities map[string]*schema.EntityDefinition
	logger   *zap.Logger
}

// Ensure Translator implements the command.CommandTranslator interface.
var _ command.CommandTranslator = (*Translator)(nil)

// NewTranslator creates a SQLite translator. All arguments may be nil.
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

// paramContext collects positional bindings for one translation call.
// Parameter names are "?1", "?2", ... purely for diagnostics; the rendered
// placeholder is always "?".
type paramContext struct {
	params []command.Parameter
}

func (c *paramContext) bind(value any) string {
	c.params = append(c.params, command.Parameter{Name: fmt.Sprintf("?%d", len(c.params)+1), Value: value})
	return "?"
}

// quoteIdentifier properly quotes an identifier for SQLite.
func quoteIdentifier(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

var compareSQL = map[expr.Operator]string{
	expr.OpEq: "=",
	expr.OpNe: "<>",
	expr.OpLt: "<",
	expr.OpLe: "<=",
	expr.OpGt: ">",
	expr.OpGe: ">=",
}

var logicalSQL = map[expr.Operator]string{
	expr.OpAnd: "AND",
	expr.OpOr:  "OR",
}

func columnRef(n *expr.Node) (string, bool) {
	if n == nil {
		return "", false
	}
	switch n.Kind {
	case expr.KindField:
		return quoteIdentifier(n.Name), true
	case expr.KindMember:
		if expr.DependsOnRow(n) {
			return quoteIdentifier(n.Name), true
		}
	}
	return "", false
}

// translateExpr renders a predicate subtree, binding positionally on ctx.
// The rules mirror the mssql renderer: closed subtrees constant-fold to one
// bound literal, comparisons against a nil literal bind NULL and render "= ?",
// and unsupported node kinds fail rather than degrade.
func translateExpr(n *expr.Node, ctx *paramContext) (string, error) {
	if n == nil {
		return "", fmt.Errorf("cannot translate nil expression node")
	}

	if !expr.DependsOnRow(n) {
		value, err := expr.Eval(n)
		if err != nil {
			return "", fmt.Errorf("constant folding failed: %w", err)
		}
		return ctx.bind(value), nil
	}

	switch n.Kind {
	case expr.KindField, expr.KindMember:
		col, ok := columnRef(n)
		if !ok {
			return "", &command.UnsupportedExpressionError{Kind: string(n.Kind)}
		}
		return col, nil

	case expr.KindCompare, expr.KindLogical:
		left, err := translateOperand(n.Left, ctx)
		if err != nil {
			return "", err
		}
		right, err := translateOperand(n.Right, ctx)
		if err != nil {
			return "", err
		}
		var op string
		var ok bool
		if n.Kind == expr.KindCompare {
			op, ok = compareSQL[n.Op]
		} else {
			op, ok = logicalSQL[n.Op]
		}
		if !ok {
			return "", &command.UnsupportedExpressionError{Kind: fmt.Sprintf("%s.%s", n.Kind, n.Op)}
		}
		return "(" + left + " " + op + " " + right + ")", nil

	case expr.KindCall:
		return translateCall(n, ctx)

	default:
		return "", &command.UnsupportedExpressionError{Kind: string(n.Kind)}
	}
}

// translateOperand renders a child fragment for composition under a compare
// or logical node, wrapping bare call fragments so pattern matches nest like
// any other condition. A call standing alone at the top level stays unwrapped.
func translateOperand(n *expr.Node, ctx *paramContext) (string, error) {
	s, err := translateExpr(n, ctx)
	if err != nil {
		return "", err
	}
	if n.Kind == expr.KindCall && expr.DependsOnRow(n) {
		return "(" + s + ")", nil
	}
	return s, nil
}

func translateCall(n *expr.Node, ctx *paramContext) (string, error) {
	var pattern func(string) string
	switch n.Op {
	case expr.OpContains:
		pattern = func(s string) string { return "%" + s + "%" }
	case expr.OpStartsWith:
		pattern = func(s string) string { return s + "%" }
	case expr.OpEndsWith:
		pattern = func(s string) string { return "%" + s }
	default:
		return "", &command.UnsupportedExpressionError{Kind: fmt.Sprintf("%s.%s", n.Kind, n.Name)}
	}

	col, ok := columnRef(n.Recv)
	if !ok {
		return "", fmt.Errorf("string method %s requires a row field receiver", n.Op)
	}
	if len(n.Args) != 1 || expr.DependsOnRow(n.Args[0]) {
		return "", fmt.Errorf("string method %s requires one constant argument", n.Op)
	}
	value, err := expr.Eval(n.Args[0])
	if err != nil {
		return "", fmt.Errorf("constant folding failed: %w", err)
	}
	s, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("string method %s requires a string argument, got %T", n.Op, value)
	}
	return col + " LIKE " + ctx.bind(pattern(s)), nil
}

// Translate renders one command into one SQLite statement.
func (t *Translator) Translate(cmd command.DataCommand) (*command.TranslatedCommand, error) {
	ctx := &paramContext{}

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

func (t *Translator) resolveContainer(base command.Command, entityName string) (string, error) {
	logical := entityName
	if !base.Container.IsZero() {
		if base.Container.Len() > 1 {
			segments := base.Container.Segments()
			quoted := make([]string, len(segments))
			for i, s := range segments {
				quoted[i] = quoteIdentifier(s)
			}
			return strings.Join(quoted, "."), nil
		}
		logical = base.Container.Name()
	}
	if logical == "" {
		return "", fmt.Errorf("%s command has no target container", base.Type)
	}
	if mapped, ok := t.config.Mappings[logical]; ok {
		parts := strings.Split(mapped, ".")
		quoted := make([]string, len(parts))
		for i, p := range parts {
			quoted[i] = quoteIdentifier(p)
		}
		return strings.Join(quoted, "."), nil
	}
	return quoteIdentifier(logical), nil
}

func (t *Translator) definition(entity string) *schema.EntityDefinition {
	return t.entities[entity]
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

	if c.OrderBy != nil {
		col, ok := columnRef(c.OrderBy)
		if !ok {
			return "", &command.UnsupportedExpressionError{Kind: string(c.OrderBy.Kind)}
		}
		sb.WriteString(" ORDER BY " + col)
		if c.OrderDesc {
			sb.WriteString(" DESC")
		}
	}

	if c.HasMetadata(command.MetaSingleResult) {
		sb.WriteString(" LIMIT 1")
		return sb.String(), nil
	}
	if c.HasMetadata(command.MetaPaged) {
		limit := -1
		if n, ok := metaInt(c.Command, command.MetaLimit); ok {
			limit = n
		}
		sb.WriteString(fmt.Sprintf(" LIMIT %d", limit))
		if offset, ok := metaInt(c.Command, command.MetaOffset); ok && offset > 0 {
			sb.WriteString(fmt.Sprintf(" OFFSET %d", offset))
		}
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
	return "SELECT EXISTS (" + inner + ")", nil
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

	verb := "INSERT INTO "
	if c.HasMetadata(command.MetaIgnoreDuplicates) {
		verb = "INSERT OR IGNORE INTO "
	}

	columns := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = quoteIdentifier(field)
		placeholders[i] = ctx.bind(c.Entity[field])
	}

	sql := verb + container + " (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
	if c.HasMetadata(command.MetaReturnIdentity) {
		// Requires SQLite 3.35.0+.
		sql += " RETURNING " + quoteIdentifier(def.KeyField())
	}
	return sql, nil
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

	limit, limited := metaInt(c.Command, command.MetaLimit)

	var sb strings.Builder
	if c.HasMetadata(command.MetaSoftDelete) {
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
		key := quoteIdentifier(t.definition(c.EntityName).KeyField())
		sb.WriteString(fmt.Sprintf(" WHERE %s IN (SELECT %s FROM %s WHERE %s LIMIT %d)", key, key, container, where, limit))
	} else {
		sb.WriteString(" WHERE " + where)
	}
	return sb.String(), nil
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

	fields := upsertFields(def, c.Entity, keyField)
	columns := make([]string, len(fields))
	placeholders := make([]string, len(fields))
	for i, field := range fields {
		columns[i] = quoteIdentifier(field)
		placeholders[i] = ctx.bind(c.Entity[field])
	}

	updates := make([]string, 0, len(fields))
	for _, field := range fields {
		if field == keyField {
			continue
		}
		updates = append(updates, quoteIdentifier(field)+" = excluded."+quoteIdentifier(field))
	}

	sql := "INSERT INTO " + container + " (" + strings.Join(columns, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")" +
		" ON CONFLICT(" + quoteIdentifier(keyField) + ")"
	if len(updates) > 0 {
		sql += " DO UPDATE SET " + strings.Join(updates, ", ")
	} else {
		sql += " DO NOTHING"
	}
	if c.HasMetadata(command.MetaReturnIdentity) {
		sql += " RETURNING " + quoteIdentifier(keyField)
	}
	return sql, nil
}

// upsertFields returns the sorted payload fields participating in an upsert:
// the bindable fields plus the key field.
func upsertFields(def *schema.EntityDefinition, payload map[string]any, keyField string) []string {
	fields := def.BindableFields(payload)
	hasKey := false
	for _, f := range fields {
		if f == keyField {
			hasKey = true
			break
		}
	}
	if !hasKey {
		if _, ok := payload[keyField]; ok {
			fields = append(fields, keyField)
			sort.Strings(fields)
		}
	}
	return fields
}

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
	fields := bulkFields(def, c.Entities)
	if len(fields) == 0 {
		return "", fmt.Errorf("bulk insert into %s has no bindable fields", c.EntityName)
	}

	verb := "INSERT INTO "
	if c.HasMetadata(command.MetaIgnoreDuplicates) {
		verb = "INSERT OR IGNORE INTO "
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

	return verb + container + " (" + strings.Join(columns, ", ") + ") VALUES " + strings.Join(rows, ", "), nil
}

func (t *Translator) translateBulkUpsert(c command.BulkUpsertCommand, ctx *paramContext) (string, error) {
	if len(c.Entities) == 0 {
		return "", &command.MissingPayloadError{CommandType: c.Type}
	}
	container, err := t.resolveContainer(c.Command, c.EntityName)
	if err != nil {
		return "", err
	}
	def := t.definition(c.EntityName)
	keyField := def.KeyField()
	for i, entity := range c.Entities {
		if _, ok := entity[keyField]; !ok {
			return "", fmt.Errorf("bulk upsert of %s requires the key field %q in every payload, missing at index %d", c.EntityName, keyField, i)
		}
	}

	fields := bulkFields(def, c.Entities)
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

	updates := make([]string, 0, len(fields))
	for _, field := range fields {
		if field == keyField {
			continue
		}
		updates = append(updates, quoteIdentifier(field)+" = excluded."+quoteIdentifier(field))
	}

	sql := "INSERT INTO " + container + " (" + strings.Join(columns, ", ") + ") VALUES " + strings.Join(rows, ", ") +
		" ON CONFLICT(" + quoteIdentifier(keyField) + ")"
	if len(updates) > 0 {
		sql += " DO UPDATE SET " + strings.Join(updates, ", ")
	} else {
		sql += " DO NOTHING"
	}
	return sql, nil
}

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
