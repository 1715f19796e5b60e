package expr

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type address struct {
	City string
}

type person struct {
	Name    string
	Age     int
	Address *address
}

func (p person) DisplayName() string {
	return strings.ToUpper(p.Name)
}

func TestEval_Constant(t *testing.T) {
	v, err := Eval(Value(42))
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = Eval(Value(nil))
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestEval_RowDependentFails(t *testing.T) {
	_, err := Eval(Field("Id"))
	require.Error(t, err)

	_, err = Eval(Eq(Field("Id"), Value(1)))
	require.Error(t, err)
}

func TestEval_MemberAccess(t *testing.T) {
	p := person{Name: "alice", Age: 30, Address: &address{City: "Nairobi"}}

	v, err := Eval(Member(Value(p), "Name"))
	require.NoError(t, err)
	assert.Equal(t, "alice", v)

	// Nested member access through a pointer field.
	v, err = Eval(Member(Member(Value(p), "Address"), "City"))
	require.NoError(t, err)
	assert.Equal(t, "Nairobi", v)

	v, err = Eval(Member(Value(map[string]any{"k": 7}), "k"))
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

func TestEval_MemberAccessErrors(t *testing.T) {
	_, err := Eval(Member(Value(nil), "X"))
	require.Error(t, err)

	_, err = Eval(Member(Value(person{}), "Missing"))
	require.Error(t, err)

	_, err = Eval(Member(Value(42), "X"))
	require.Error(t, err)
}

func TestEval_Arithmetic(t *testing.T) {
	v, err := Eval(Add(Value(10), Value(5)))
	require.NoError(t, err)
	assert.Equal(t, int64(15), v)

	v, err = Eval(Mul(Sub(Value(10), Value(4)), Value(3)))
	require.NoError(t, err)
	assert.Equal(t, int64(18), v)

	v, err = Eval(Div(Value(10.0), Value(4)))
	require.NoError(t, err)
	assert.Equal(t, 2.5, v)

	_, err = Eval(Div(Value(1), Value(0)))
	require.Error(t, err)

	_, err = Eval(Add(Value("a"), Value(1)))
	require.Error(t, err)
}

func TestEval_CompareAndLogical(t *testing.T) {
	v, err := Eval(Eq(Value("a"), Value("a")))
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = Eval(Gt(Value(10), Value(3)))
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = Eval(And(Eq(Value(1), Value(1)), Or(Eq(Value(1), Value(2)), Eq(Value(3), Value(3)))))
	require.NoError(t, err)
	assert.Equal(t, true, v)

	_, err = Eval(And(Value(1), Value(true)))
	require.Error(t, err)
}

func TestEval_StringCalls(t *testing.T) {
	v, err := Eval(Contains(Value("hello world"), Value("lo w")))
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = Eval(StartsWith(Value("hello"), Value("he")))
	require.NoError(t, err)
	assert.Equal(t, true, v)

	v, err = Eval(EndsWith(Value("hello"), Value("he")))
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestEval_ReflectiveMethodCall(t *testing.T) {
	p := person{Name: "alice"}
	v, err := Eval(Call(Value(p), "DisplayName"))
	require.NoError(t, err)
	assert.Equal(t, "ALICE", v)

	_, err = Eval(Call(Value(p), "NoSuchMethod"))
	require.Error(t, err)

	_, err = Eval(Call(Value(nil), "Anything"))
	require.Error(t, err)
}

func TestToFloat64(t *testing.T) {
	v, ok := ToFloat64(int32(7))
	assert.True(t, ok)
	assert.Equal(t, 7.0, v)

	v, ok = ToFloat64("2.5")
	assert.True(t, ok)
	assert.Equal(t, 2.5, v)

	_, ok = ToFloat64(struct{}{})
	assert.False(t, ok)
}
