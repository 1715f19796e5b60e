package command

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CyberdineDevelopment/go-datakit/core/expr"
)

func TestCommandType_IsDataModifying(t *testing.T) {
	modifying := []CommandType{
		CommandTypeInsert, CommandTypeUpdate, CommandTypeDelete,
		CommandTypeUpsert, CommandTypeBulkInsert, CommandTypeBulkUpsert,
	}
	for _, ct := range modifying {
		assert.True(t, ct.IsDataModifying(), "expected %s to be data modifying", ct)
	}
	reading := []CommandType{CommandTypeQuery, CommandTypeCount, CommandTypeExists}
	for _, ct := range reading {
		assert.False(t, ct.IsDataModifying(), "expected %s to be read only", ct)
	}
}

func TestNewQuery(t *testing.T) {
	q, err := NewQuery("primary", "Users")
	require.NoError(t, err)
	assert.Equal(t, CommandTypeQuery, q.Type)
	assert.Equal(t, "primary", q.ConnectionName)
	assert.Equal(t, "Users", q.EntityName)
	assert.Equal(t, ResultTypeRows, q.Result)
	assert.NotEqual(t, uuid.Nil, q.CommandID)
	assert.NotEqual(t, uuid.Nil, q.CorrelationID)
	assert.False(t, q.CreatedAt.IsZero())
	assert.False(t, q.IsDataModifying())
}

func TestNewQuery_EmptyConnection(t *testing.T) {
	_, err := NewQuery("  ", "Users")
	var cerr *ConstructionError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "connection", cerr.Field)
}

func TestNewQuery_EmptyEntity(t *testing.T) {
	_, err := NewQuery("primary", "")
	var cerr *ConstructionError
	require.ErrorAs(t, err, &cerr)
}

// Every with-X operation must return a new value differing only in the
// targeted field, leaving the original untouched.
func TestQueryCommand_Immutability(t *testing.T) {
	original, err := NewQuery("primary", "Users")
	require.NoError(t, err)

	pred := expr.Eq(expr.Field("Id"), expr.Value(1))
	filtered := original.Where(pred)
	assert.Nil(t, original.Predicate)
	assert.Same(t, pred, filtered.Predicate)
	assert.Equal(t, original.CommandID, filtered.CommandID)

	paged, err := filtered.Skip(20)
	require.NoError(t, err)
	assert.False(t, filtered.HasMetadata(MetaPaged))
	assert.True(t, paged.HasMetadata(MetaPaged))
	offset, ok := paged.MetadataValue(MetaOffset)
	require.True(t, ok)
	assert.Equal(t, 20, offset)

	limited, err := paged.Limit(10)
	require.NoError(t, err)
	_, ok = paged.MetadataValue(MetaLimit)
	assert.False(t, ok, "Limit must not leak into the ancestor command")
	limit, ok := limited.MetadataValue(MetaLimit)
	require.True(t, ok)
	assert.Equal(t, 10, limit)

	withParam := limited.WithParameter("tenant", "acme")
	assert.Empty(t, limited.Parameters)
	assert.Equal(t, "acme", withParam.Parameters["tenant"])
}

func TestQueryCommand_First(t *testing.T) {
	q, err := NewQuery("primary", "Users")
	require.NoError(t, err)
	single := q.First()
	assert.False(t, q.HasMetadata(MetaSingleResult))
	assert.True(t, single.HasMetadata(MetaSingleResult))
}

func TestQueryCommand_OrderBy(t *testing.T) {
	q, err := NewQuery("primary", "Users")
	require.NoError(t, err)

	asc := q.OrderByField(expr.Field("Name"))
	desc := q.OrderByFieldDesc(expr.Field("Name"))
	assert.Nil(t, q.OrderBy)
	assert.False(t, asc.OrderDesc)
	assert.True(t, desc.OrderDesc)
}

func TestQueryCommand_InvalidPaging(t *testing.T) {
	q, err := NewQuery("primary", "Users")
	require.NoError(t, err)

	var cerr *ConstructionError
	_, err = q.Skip(0)
	require.ErrorAs(t, err, &cerr)
	_, err = q.Skip(-5)
	require.ErrorAs(t, err, &cerr)
	_, err = q.Limit(0)
	require.ErrorAs(t, err, &cerr)
}

func TestQueryCommand_WithTimeout(t *testing.T) {
	q, err := NewQuery("primary", "Users")
	require.NoError(t, err)

	timed, err := q.WithTimeout(5 * time.Second)
	require.NoError(t, err)
	assert.Nil(t, q.Timeout)
	require.NotNil(t, timed.Timeout)
	assert.Equal(t, 5*time.Second, *timed.Timeout)

	var cerr *ConstructionError
	_, err = q.WithTimeout(0)
	require.ErrorAs(t, err, &cerr)
	_, err = q.WithTimeout(-time.Second)
	require.ErrorAs(t, err, &cerr)
}

func TestQueryCommand_WithCorrelationID(t *testing.T) {
	q, err := NewQuery("primary", "Users")
	require.NoError(t, err)

	id := uuid.New()
	correlated := q.WithCorrelationID(id)
	assert.NotEqual(t, id, q.CorrelationID)
	assert.Equal(t, id, correlated.CorrelationID)
	assert.Equal(t, q.CommandID, correlated.CommandID)
}

func TestNewInsert(t *testing.T) {
	payload := map[string]any{"Name": "Alice"}
	ins, err := NewInsert("primary", "Users", payload)
	require.NoError(t, err)
	assert.Equal(t, CommandTypeInsert, ins.Type)
	assert.Equal(t, ResultTypeRowCount, ins.Result)
	assert.True(t, ins.IsDataModifying())

	// The command must not alias the caller's map.
	payload["Name"] = "mutated"
	assert.Equal(t, "Alice", ins.Entity["Name"])
}

func TestNewInsert_MissingPayload(t *testing.T) {
	_, err := NewInsert("primary", "Users", nil)
	var cerr *ConstructionError
	require.ErrorAs(t, err, &cerr)
}

func TestInsertCommand_PolicyFlags(t *testing.T) {
	ins, err := NewInsert("primary", "Users", map[string]any{"Name": "Alice"})
	require.NoError(t, err)

	withIdentity := ins.ReturnIdentity()
	assert.False(t, ins.HasMetadata(MetaReturnIdentity))
	assert.True(t, withIdentity.HasMetadata(MetaReturnIdentity))

	tolerant := ins.IgnoreDuplicates()
	assert.True(t, tolerant.HasMetadata(MetaIgnoreDuplicates))
	assert.False(t, tolerant.HasMetadata(MetaReturnIdentity))
}

func TestNewDelete_SoftDelete(t *testing.T) {
	del, err := NewDelete("primary", "Users")
	require.NoError(t, err)

	soft, err := del.SoftDelete("IsDeleted", true)
	require.NoError(t, err)
	assert.False(t, del.HasMetadata(MetaSoftDelete))
	assert.True(t, soft.HasMetadata(MetaSoftDelete))
	field, _ := soft.MetadataValue(MetaSoftDeleteField)
	assert.Equal(t, "IsDeleted", field)
	value, _ := soft.MetadataValue(MetaSoftDeleteValue)
	assert.Equal(t, true, value)

	_, err = del.SoftDelete("", true)
	var cerr *ConstructionError
	require.ErrorAs(t, err, &cerr)
}

func TestNewDelete_Limit(t *testing.T) {
	del, err := NewDelete("primary", "Users")
	require.NoError(t, err)

	bounded, err := del.Limit(100)
	require.NoError(t, err)
	limit, _ := bounded.MetadataValue(MetaLimit)
	assert.Equal(t, 100, limit)

	var cerr *ConstructionError
	_, err = del.Limit(0)
	require.ErrorAs(t, err, &cerr)
}

func TestNewBulkInsert(t *testing.T) {
	entities := []map[string]any{{"Name": "a"}, {"Name": "b"}}
	bulk, err := NewBulkInsert("primary", "Users", entities)
	require.NoError(t, err)
	assert.Len(t, bulk.Entities, 2)

	entities[0]["Name"] = "mutated"
	assert.Equal(t, "a", bulk.Entities[0]["Name"])
}

func TestNewBulkInsert_EmptyCollection(t *testing.T) {
	_, err := NewBulkInsert("primary", "Users", nil)
	var cerr *ConstructionError
	require.ErrorAs(t, err, &cerr)

	_, err = NewBulkUpsert("primary", "Users", []map[string]any{})
	require.ErrorAs(t, err, &cerr)
}

func TestCommand_WithContainer(t *testing.T) {
	q, err := NewQuery("primary", "Users")
	require.NoError(t, err)

	p := MustContainerPath("auth", "Users")
	targeted := q.WithContainer(p)
	assert.True(t, q.Container.IsZero())
	assert.True(t, targeted.Container.Equal(p))
}

func TestTranslatedCommand_Values(t *testing.T) {
	tc := &TranslatedCommand{
		Sql: "SELECT 1",
		Params: []Parameter{
			{Name: "@p0", Value: 1},
			{Name: "@p1", Value: "x"},
		},
	}
	assert.Equal(t, []any{1, "x"}, tc.Values())
}

func TestErrorTaxonomy_Messages(t *testing.T) {
	assert.Contains(t, (&ConstructionError{Field: "timeout", Message: "must be positive"}).Error(), "timeout")
	assert.Contains(t, (&UnsupportedExpressionError{Kind: "arithmetic"}).Error(), "arithmetic")
	assert.Contains(t, (&MissingPayloadError{CommandType: CommandTypeInsert}).Error(), "insert")
	assert.Contains(t, (&UnsupportedCommandTypeError{CommandType: CommandType("weird")}).Error(), "weird")
}
