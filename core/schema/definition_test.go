package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefinition() *EntityDefinition {
	return &EntityDefinition{
		Name: "Users",
		Fields: map[string]FieldDefinition{
			"Id":      {Name: "Id", Identity: true},
			"Name":    {Name: "Name"},
			"Email":   {Name: "Email", Nullable: true},
			"Version": {Name: "Version", ReadOnly: true},
		},
	}
}

func TestKeyField(t *testing.T) {
	assert.Equal(t, "Id", testDefinition().KeyField())

	noKey := &EntityDefinition{Name: "Logs", Fields: map[string]FieldDefinition{
		"Message": {Name: "Message"},
	}}
	assert.Equal(t, "Id", noKey.KeyField())

	var nilDef *EntityDefinition
	assert.Equal(t, "Id", nilDef.KeyField())
}

func TestBindable(t *testing.T) {
	def := testDefinition()

	assert.True(t, def.Bindable("Name"))
	assert.False(t, def.Bindable("Id"))
	assert.False(t, def.Bindable("Version"))
	// Fields outside the declared surface stay bindable.
	assert.True(t, def.Bindable("Nickname"))

	var nilDef *EntityDefinition
	assert.True(t, nilDef.Bindable("anything"))
}

func TestBindableFields(t *testing.T) {
	def := testDefinition()
	payload := map[string]any{
		"Id":       1,
		"Name":     "Ada",
		"Email":    "ada@example.com",
		"Version":  3,
		"Nickname": "countess",
	}

	assert.Equal(t, []string{"Email", "Name", "Nickname"}, def.BindableFields(payload))

	var nilDef *EntityDefinition
	assert.Equal(t, []string{"Email", "Id", "Name", "Nickname", "Version"}, nilDef.BindableFields(payload))
}

func TestValidatePayload(t *testing.T) {
	def := testDefinition()

	require.NoError(t, def.ValidatePayload(map[string]any{"Name": "Ada", "Email": nil}))

	err := def.ValidatePayload(map[string]any{"Name": nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Name")

	// Undeclared fields carry no nullability constraint.
	require.NoError(t, def.ValidatePayload(map[string]any{"Nickname": nil}))

	var nilDef *EntityDefinition
	require.NoError(t, nilDef.ValidatePayload(map[string]any{"Name": nil}))
}
